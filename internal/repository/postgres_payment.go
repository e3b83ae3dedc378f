package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/hospital-payments/internal/domain"
)

const paymentColumns = `id, appointment_id, user_id, amount, currency, status, payment_method,
	provider_payment_id, transaction_id, error_message, payment_date, created_at, updated_at`

// backs the one COMPLETED payment per appointment rule
const oneCompletedPerAppointmentIndex = "payments_one_completed_per_appointment"

type PostgresPaymentRepository struct {
	db *pgxpool.Pool
}

func NewPostgresPaymentRepository(db *pgxpool.Pool) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{
		db: db,
	}
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var payment domain.Payment

	err := row.Scan(
		&payment.ID,
		&payment.AppointmentID,
		&payment.UserID,
		&payment.Amount,
		&payment.Currency,
		&payment.Status,
		&payment.PaymentMethod,
		&payment.ProviderPaymentID,
		&payment.TransactionID,
		&payment.ErrorMsg,
		&payment.PaymentDate,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &payment, nil
}

func (p *PostgresPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (
			appointment_id,
			user_id,
			amount,
			currency,
			status,
			payment_method
		)
		SELECT $1, $2, $3, $4, $5, $6
		WHERE NOT EXISTS (
			SELECT 1 FROM payments WHERE appointment_id = $1 AND status = 'COMPLETED'
		)
		RETURNING id, created_at
	`

	err := p.db.QueryRow(
		ctx,
		query,
		payment.AppointmentID,
		payment.UserID,
		payment.Amount,
		payment.Currency,
		payment.Status,
		payment.PaymentMethod,
	).Scan(&payment.ID, &payment.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrAlreadyPaid
		}

		return err
	}

	return nil
}

func (p *PostgresPaymentRepository) GetById(ctx context.Context, id int) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	payment, err := scanPayment(p.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return payment, nil
}

func (p *PostgresPaymentRepository) GetByProviderPaymentId(ctx context.Context, reference string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE provider_payment_id = $1`

	payment, err := scanPayment(p.db.QueryRow(ctx, query, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return payment, nil
}

func (p *PostgresPaymentRepository) GetByUserId(
	ctx context.Context,
	userId int,
	pagination domain.Pagination) ([]domain.Payment, *domain.Metadata, error) {

	query := `SELECT count(*) OVER(), ` + paymentColumns + `
		FROM payments
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := p.db.Query(ctx, query, userId, pagination.Limit(), pagination.Offset())
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	totalRecords := 0
	payments := []domain.Payment{}

	for rows.Next() {
		var payment domain.Payment

		err := rows.Scan(
			&totalRecords,
			&payment.ID,
			&payment.AppointmentID,
			&payment.UserID,
			&payment.Amount,
			&payment.Currency,
			&payment.Status,
			&payment.PaymentMethod,
			&payment.ProviderPaymentID,
			&payment.TransactionID,
			&payment.ErrorMsg,
			&payment.PaymentDate,
			&payment.CreatedAt,
			&payment.UpdatedAt,
		)
		if err != nil {
			return nil, nil, err
		}

		payments = append(payments, payment)
	}

	if err = rows.Err(); err != nil {
		return nil, nil, err
	}

	metadata := domain.NewMetadata(totalRecords, pagination.Page, pagination.PageSize)

	return payments, metadata, nil
}

func (p *PostgresPaymentRepository) GetByAppointmentId(ctx context.Context, appointmentId int) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE appointment_id = $1
		ORDER BY created_at, id`

	rows, err := p.db.Query(ctx, query, appointmentId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := []domain.Payment{}

	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}

		payments = append(payments, *payment)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return payments, nil
}

func (p *PostgresPaymentRepository) HasCompletedForAppointment(ctx context.Context, appointmentId int) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM payments WHERE appointment_id = $1 AND status = 'COMPLETED'
	)`

	var exists bool
	err := p.db.QueryRow(ctx, query, appointmentId).Scan(&exists)

	return exists, err
}

func (p *PostgresPaymentRepository) SetProviderPaymentId(ctx context.Context, id int, reference string) error {
	query := `UPDATE payments
		SET provider_payment_id = $2, updated_at = NOW()
		WHERE id = $1 AND provider_payment_id IS NULL AND status = 'PENDING'`

	result, err := p.db.Exec(ctx, query, id, reference)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return domain.ErrEditConflict
		}

		return err
	}

	if result.RowsAffected() == 0 {
		return domain.ErrEditConflict
	}

	return nil
}

func (p *PostgresPaymentRepository) Complete(ctx context.Context, id int, transactionId string) (*domain.Payment, error) {
	query := `UPDATE payments
		SET status = 'COMPLETED',
			transaction_id = $2,
			error_message = NULL,
			payment_date = NOW(),
			updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'
		RETURNING ` + paymentColumns

	payment, err := scanPayment(p.db.QueryRow(ctx, query, id, transactionId))
	if err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, domain.ErrEditConflict
		case errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation &&
			pgErr.ConstraintName == oneCompletedPerAppointmentIndex:
			return nil, domain.ErrAlreadyPaid
		default:
			return nil, err
		}
	}

	return payment, nil
}

func (p *PostgresPaymentRepository) Fail(ctx context.Context, id int, errMsg string) (*domain.Payment, error) {
	query := `UPDATE payments
		SET status = 'FAILED', error_message = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'
		RETURNING ` + paymentColumns

	payment, err := scanPayment(p.db.QueryRow(ctx, query, id, errMsg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEditConflict
		}

		return nil, err
	}

	return payment, nil
}

func (p *PostgresPaymentRepository) RecordError(ctx context.Context, id int, errMsg string) error {
	query := `UPDATE payments
		SET error_message = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'`

	result, err := p.db.Exec(ctx, query, id, errMsg)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return domain.ErrEditConflict
	}

	return nil
}
