package clinical

import (
	"time"

	"github.com/google/uuid"
)

// MedicalRecord is a doctor's note of one consultation.
type MedicalRecord struct {
	ID            uuid.UUID      `json:"id"`
	PatientID     uuid.UUID      `json:"patientId"`
	DoctorID      uuid.UUID      `json:"doctorId"`
	DoctorName    string         `json:"doctorName,omitempty"`
	AppointmentID *uuid.UUID     `json:"appointmentId,omitempty"`
	Date          time.Time      `json:"date"`
	Diagnosis     string         `json:"diagnosis"`
	Treatment     *string        `json:"treatment,omitempty"`
	Notes         *string        `json:"notes,omitempty"`
	Prescriptions []Prescription `json:"prescriptions"`
}

type Prescription struct {
	ID              uuid.UUID `json:"id"`
	MedicalRecordID uuid.UUID `json:"medicalRecordId"`
	Medication      string    `json:"medication"`
	Dosage          string    `json:"dosage"`
	Frequency       *string   `json:"frequency,omitempty"`
	Duration        *string   `json:"duration,omitempty"`
	Instructions    *string   `json:"instructions,omitempty"`
}

type LabResult struct {
	ID             uuid.UUID `json:"id"`
	PatientID      uuid.UUID `json:"patientId"`
	TestName       string    `json:"testName"`
	Result         string    `json:"result"`
	Unit           *string   `json:"unit,omitempty"`
	ReferenceRange *string   `json:"referenceRange,omitempty"`
	Status         string    `json:"status"`
	Date           time.Time `json:"date"`
}

// RecordInput is what a doctor submits after a consultation.
type RecordInput struct {
	PatientID     string         `json:"patientId"`
	AppointmentID string         `json:"appointmentId"`
	Diagnosis     string         `json:"diagnosis"`
	Treatment     string         `json:"treatment"`
	Notes         string         `json:"notes"`
	Prescriptions []Prescription `json:"prescriptions"`
}

// History is a patient's medical history, newest first.
type History struct {
	MedicalRecords []*MedicalRecord `json:"medicalRecords"`
	LabResults     []*LabResult     `json:"labResults"`
}
