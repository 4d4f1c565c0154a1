package appointment

import (
	"time"
)

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// transitions lists the statuses reachable from each status.
// Completed and cancelled are terminal.
var transitions = map[Status][]Status{
	StatusScheduled:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Appointment struct {
	ID              int64
	PatientID       int64
	DoctorClinicID  int64
	TokenNumber     int
	AppointmentTime time.Time
	// AppointmentDay is the calendar date of AppointmentTime in the service time zone.
	AppointmentDay time.Time
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AppointmentDetail is an appointment with the doctor, clinic and live queue position.
type AppointmentDetail struct {
	Appointment
	DoctorName   string
	ClinicName   string
	CurrentToken int
}

// BookRequest asks for a token at a doctor-clinic. A nil AppointmentTime means now.
// PatientID 0 books for the calling patient.
type BookRequest struct {
	DoctorClinicID  int64
	AppointmentTime *time.Time
	PatientID       int64
}
