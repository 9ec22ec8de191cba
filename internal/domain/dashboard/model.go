package dashboard

import (
	"github.com/citamed/citamed/internal/domain/clinical"
	"github.com/citamed/citamed/internal/domain/identity"
	"github.com/citamed/citamed/internal/domain/scheduling"
	"github.com/citamed/citamed/internal/platform/auth"
)

// UpcomingLimit is how many appointments the patient home page shows.
const UpcomingLimit = 5

// Page wraps every view model with the page title and the signed-in user.
type Page struct {
	Title string     `json:"title"`
	User  *auth.User `json:"user,omitempty"`
	Data  any        `json:"data,omitempty"`
}

type DoctorHome struct {
	Doctor *identity.Doctor          `json:"doctor"`
	Stats  *scheduling.DoctorStats   `json:"stats"`
	Today  []*scheduling.Appointment `json:"today"`
}

type PatientHome struct {
	Patient  *identity.Patient         `json:"patient"`
	Stats    *scheduling.PatientStats  `json:"stats"`
	Upcoming []*scheduling.Appointment `json:"upcoming"`
}

type PatientHistory struct {
	Patient *identity.Patient `json:"patient"`
	*clinical.History
}

type Notice struct {
	Message string `json:"message"`
	Home    string `json:"home"`
}
