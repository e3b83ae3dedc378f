package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/metinatakli/hospital-payments/internal/domain"
)

// AppointmentSynchronizer marks an appointment COMPLETED once its payment
// completes. Appointments that already left SCHEDULED are left untouched.
type AppointmentSynchronizer struct {
	appointments domain.AppointmentRepository
	logger       *slog.Logger
}

func NewAppointmentSynchronizer(appointments domain.AppointmentRepository, logger *slog.Logger) *AppointmentSynchronizer {
	return &AppointmentSynchronizer{
		appointments: appointments,
		logger:       logger,
	}
}

func (s *AppointmentSynchronizer) OnPaymentCompleted(ctx context.Context, appointmentID int) error {
	updated, err := s.appointments.CompleteIfScheduled(ctx, appointmentID)
	if err != nil {
		return fmt.Errorf("failed to complete appointment %d: %w", appointmentID, err)
	}

	if updated {
		s.logger.Info("appointment completed after payment", "appointment_id", appointmentID)
		return nil
	}

	appointment, err := s.appointments.GetById(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			s.logger.Warn("paid appointment no longer exists", "appointment_id", appointmentID)
			return nil
		}

		return fmt.Errorf("failed to load appointment %d: %w", appointmentID, err)
	}

	s.logger.Info("appointment status left unchanged after payment",
		"appointment_id", appointmentID,
		"status", appointment.Status)

	return nil
}
