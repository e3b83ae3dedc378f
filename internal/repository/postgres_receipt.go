package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/hospital-payments/internal/domain"
)

const receiptColumns = `id, receipt_number, payment_id, user_id, appointment_id, amount, currency,
	patient_name, patient_email, doctor_name, service_description, payment_method,
	transaction_id, qr_payload, issued_at`

// Receipts are append-only: this repository never updates or deletes them.
type PostgresReceiptRepository struct {
	db *pgxpool.Pool
}

func NewPostgresReceiptRepository(db *pgxpool.Pool) *PostgresReceiptRepository {
	return &PostgresReceiptRepository{
		db: db,
	}
}

func scanReceipt(row pgx.Row, receipt *domain.Receipt) error {
	return row.Scan(
		&receipt.ID,
		&receipt.ReceiptNumber,
		&receipt.PaymentID,
		&receipt.UserID,
		&receipt.AppointmentID,
		&receipt.Amount,
		&receipt.Currency,
		&receipt.PatientName,
		&receipt.PatientEmail,
		&receipt.DoctorName,
		&receipt.ServiceDescription,
		&receipt.PaymentMethod,
		&receipt.TransactionID,
		&receipt.QRPayload,
		&receipt.IssuedAt,
	)
}

func (p *PostgresReceiptRepository) NextReceiptSequence(ctx context.Context) (int64, error) {
	var seq int64
	err := p.db.QueryRow(ctx, `SELECT nextval('receipt_number_seq')`).Scan(&seq)

	return seq, err
}

func (p *PostgresReceiptRepository) CreateOrGet(ctx context.Context, receipt *domain.Receipt) (bool, error) {
	query := `
		INSERT INTO receipts (
			receipt_number,
			payment_id,
			user_id,
			appointment_id,
			amount,
			currency,
			patient_name,
			patient_email,
			doctor_name,
			service_description,
			payment_method,
			transaction_id,
			qr_payload,
			issued_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (payment_id) DO NOTHING
		RETURNING id
	`

	err := p.db.QueryRow(
		ctx,
		query,
		receipt.ReceiptNumber,
		receipt.PaymentID,
		receipt.UserID,
		receipt.AppointmentID,
		receipt.Amount,
		receipt.Currency,
		receipt.PatientName,
		receipt.PatientEmail,
		receipt.DoctorName,
		receipt.ServiceDescription,
		receipt.PaymentMethod,
		receipt.TransactionID,
		receipt.QRPayload,
		receipt.IssuedAt,
	).Scan(&receipt.ID)

	if err == nil {
		return true, nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return false, err
	}

	// the conflicting insert has committed once ON CONFLICT returns
	query = `SELECT ` + receiptColumns + ` FROM receipts WHERE payment_id = $1`
	if err := scanReceipt(p.db.QueryRow(ctx, query, receipt.PaymentID), receipt); err != nil {
		return false, err
	}

	return false, nil
}

func (p *PostgresReceiptRepository) GetByNumber(ctx context.Context, receiptNumber string) (*domain.Receipt, error) {
	return p.getOne(ctx, `SELECT `+receiptColumns+` FROM receipts WHERE receipt_number = $1`, receiptNumber)
}

func (p *PostgresReceiptRepository) GetByPaymentId(ctx context.Context, paymentId int) (*domain.Receipt, error) {
	return p.getOne(ctx, `SELECT `+receiptColumns+` FROM receipts WHERE payment_id = $1`, paymentId)
}

func (p *PostgresReceiptRepository) getOne(ctx context.Context, query string, arg any) (*domain.Receipt, error) {
	var receipt domain.Receipt

	err := scanReceipt(p.db.QueryRow(ctx, query, arg), &receipt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return &receipt, nil
}

func (p *PostgresReceiptRepository) GetByUserId(
	ctx context.Context,
	userId int,
	pagination domain.Pagination) ([]domain.Receipt, *domain.Metadata, error) {

	query := `SELECT count(*) OVER(), ` + receiptColumns + `
		FROM receipts
		WHERE user_id = $1
		ORDER BY issued_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := p.db.Query(ctx, query, userId, pagination.Limit(), pagination.Offset())
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	totalRecords := 0
	receipts := []domain.Receipt{}

	for rows.Next() {
		var receipt domain.Receipt

		err := rows.Scan(
			&totalRecords,
			&receipt.ID,
			&receipt.ReceiptNumber,
			&receipt.PaymentID,
			&receipt.UserID,
			&receipt.AppointmentID,
			&receipt.Amount,
			&receipt.Currency,
			&receipt.PatientName,
			&receipt.PatientEmail,
			&receipt.DoctorName,
			&receipt.ServiceDescription,
			&receipt.PaymentMethod,
			&receipt.TransactionID,
			&receipt.QRPayload,
			&receipt.IssuedAt,
		)
		if err != nil {
			return nil, nil, err
		}

		receipts = append(receipts, receipt)
	}

	if err = rows.Err(); err != nil {
		return nil, nil, err
	}

	metadata := domain.NewMetadata(totalRecords, pagination.Page, pagination.PageSize)

	return receipts, metadata, nil
}
