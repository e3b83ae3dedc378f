package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/hospital-payments/internal/domain"
)

type PostgresAppointmentRepository struct {
	db *pgxpool.Pool
}

func NewPostgresAppointmentRepository(db *pgxpool.Pool) *PostgresAppointmentRepository {
	return &PostgresAppointmentRepository{
		db: db,
	}
}

func (p *PostgresAppointmentRepository) GetById(ctx context.Context, id int) (*domain.Appointment, error) {
	query := `SELECT id, patient_id, doctor_id, scheduled_at, status, reason, created_at, updated_at
		FROM appointments
		WHERE id = $1`

	var appointment domain.Appointment

	err := p.db.QueryRow(ctx, query, id).Scan(
		&appointment.ID,
		&appointment.PatientID,
		&appointment.DoctorID,
		&appointment.ScheduledAt,
		&appointment.Status,
		&appointment.Reason,
		&appointment.CreatedAt,
		&appointment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return &appointment, nil
}

func (p *PostgresAppointmentRepository) CompleteIfScheduled(ctx context.Context, id int) (bool, error) {
	query := `UPDATE appointments
		SET status = 'COMPLETED', updated_at = NOW()
		WHERE id = $1 AND status = 'SCHEDULED'`

	result, err := p.db.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}

	return result.RowsAffected() == 1, nil
}
