package domain

import (
	"context"
	"time"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "SCHEDULED"
	AppointmentStatusCompleted AppointmentStatus = "COMPLETED"
	AppointmentStatusCancelled AppointmentStatus = "CANCELLED"
)

type Appointment struct {
	ID          int
	PatientID   int
	DoctorID    int
	ScheduledAt time.Time
	Status      AppointmentStatus
	Reason      string
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// ServiceDescription is the line shown on checkout pages and receipts. The
// booking reason is preferred when the patient gave one.
func (a *Appointment) ServiceDescription(doctor *Doctor) string {
	if a.Reason != "" {
		return a.Reason
	}

	if doctor.Specialization != "" {
		return doctor.Specialization + " consultation"
	}

	return "Medical consultation"
}

type AppointmentRepository interface {
	GetById(ctx context.Context, id int) (*Appointment, error)
	// CompleteIfScheduled reports whether the appointment moved from SCHEDULED to COMPLETED.
	CompleteIfScheduled(ctx context.Context, id int) (bool, error)
}
