package clinical

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	CreateRecord(ctx context.Context, r *MedicalRecord) error
	AddPrescription(ctx context.Context, p *Prescription) error
	RecordsByPatient(ctx context.Context, patientID uuid.UUID) ([]*MedicalRecord, error)
	LabResultsByPatient(ctx context.Context, patientID uuid.UUID) ([]*LabResult, error)
}
