package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/metinatakli/hospital-payments/internal/domain"
)

type IssueResult struct {
	Receipt *domain.Receipt
	Created bool
}

type ReceiptIssuer struct {
	logger       *slog.Logger
	receipts     domain.ReceiptRepository
	payments     domain.PaymentRepository
	appointments domain.AppointmentRepository
	users        domain.UserRepository
	doctors      domain.DoctorRepository
	publisher    domain.EventPublisher
	metrics      instruments
	now          func() time.Time
}

func NewReceiptIssuer(
	logger *slog.Logger,
	receipts domain.ReceiptRepository,
	payments domain.PaymentRepository,
	appointments domain.AppointmentRepository,
	users domain.UserRepository,
	doctors domain.DoctorRepository,
	publisher domain.EventPublisher) *ReceiptIssuer {

	return &ReceiptIssuer{
		logger:       logger,
		receipts:     receipts,
		payments:     payments,
		appointments: appointments,
		users:        users,
		doctors:      doctors,
		publisher:    publisher,
		metrics:      newInstruments(),
		now:          time.Now,
	}
}

// Issue returns the receipt of a COMPLETED payment, creating it on first use.
// Concurrent calls for the same payment all observe the same receipt.
func (i *ReceiptIssuer) Issue(ctx context.Context, paymentID int) (*IssueResult, error) {
	payment, err := i.payments.GetById(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if payment.Status != domain.PaymentStatusCompleted || payment.TransactionID == nil {
		return nil, fmt.Errorf("%w: payment %d is %s", domain.ErrNotCompleted, payment.ID, payment.Status)
	}

	appointment, err := i.appointments.GetById(ctx, payment.AppointmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load appointment %d: %w", payment.AppointmentID, err)
	}

	patient, err := i.users.GetById(ctx, payment.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load patient %d: %w", payment.UserID, err)
	}

	doctor, err := i.doctors.GetById(ctx, appointment.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load doctor %d: %w", appointment.DoctorID, err)
	}

	seq, err := i.receipts.NextReceiptSequence(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate receipt number: %w", err)
	}

	issuedAt := i.now().UTC().Truncate(time.Second)
	number := FormatReceiptNumber(issuedAt, seq)

	receipt := &domain.Receipt{
		ReceiptNumber:      number,
		PaymentID:          payment.ID,
		UserID:             payment.UserID,
		AppointmentID:      payment.AppointmentID,
		Amount:             payment.Amount,
		Currency:           payment.Currency,
		PatientName:        patient.FullName(),
		PatientEmail:       patient.Email,
		DoctorName:         doctor.FullName(),
		ServiceDescription: appointment.ServiceDescription(doctor),
		PaymentMethod:      payment.PaymentMethod,
		TransactionID:      *payment.TransactionID,
		QRPayload: EncodeQRPayload(QRPayload{
			ReceiptNumber: number,
			Amount:        payment.Amount,
			Currency:      payment.Currency,
			PayerName:     patient.FullName(),
		}),
		IssuedAt: issuedAt,
	}

	created, err := i.receipts.CreateOrGet(ctx, receipt)
	if err != nil {
		return nil, fmt.Errorf("failed to persist receipt for payment %d: %w", payment.ID, err)
	}

	if created {
		i.logger.Info("receipt issued", "receipt_number", receipt.ReceiptNumber, "payment_id", payment.ID)
		i.metrics.receiptsIssued.Add(ctx, 1)
		i.publish(ctx, receipt)
	}

	return &IssueResult{Receipt: receipt, Created: created}, nil
}

// Verify checks a scanned QR payload against the stored receipt.
func (i *ReceiptIssuer) Verify(ctx context.Context, qrPayload string) (*domain.ReceiptSummary, error) {
	payload, err := ParseQRPayload(qrPayload)
	if err != nil {
		return nil, err
	}

	receipt, err := i.receipts.GetByNumber(ctx, payload.ReceiptNumber)
	if err != nil {
		return nil, err
	}

	if !receipt.Amount.Equal(payload.Amount) ||
		receipt.Currency != payload.Currency ||
		receipt.PatientName != payload.PayerName {

		i.logger.Warn("receipt verification mismatch", "receipt_number", payload.ReceiptNumber)
		return nil, domain.ErrReceiptMismatch
	}

	summary := receipt.Summary()

	return &summary, nil
}

func (i *ReceiptIssuer) GetByNumber(ctx context.Context, receiptNumber string) (*domain.Receipt, error) {
	return i.receipts.GetByNumber(ctx, receiptNumber)
}

func (i *ReceiptIssuer) GetByPayment(ctx context.Context, paymentID int) (*domain.Receipt, error) {
	return i.receipts.GetByPaymentId(ctx, paymentID)
}

func (i *ReceiptIssuer) ListByUser(
	ctx context.Context,
	userID int,
	pagination domain.Pagination) ([]domain.Receipt, *domain.Metadata, error) {

	return i.receipts.GetByUserId(ctx, userID, pagination)
}

func (i *ReceiptIssuer) publish(ctx context.Context, receipt *domain.Receipt) {
	event := domain.NewEvent(domain.EventReceiptIssued, domain.ReceiptEventData{
		ReceiptNumber: receipt.ReceiptNumber,
		PaymentID:     receipt.PaymentID,
		UserID:        receipt.UserID,
		Amount:        receipt.Amount,
		Currency:      receipt.Currency,
	})

	if err := i.publisher.Publish(ctx, event); err != nil && !errors.Is(err, context.Canceled) {
		i.logger.Error("failed to publish receipt event", "receipt_number", receipt.ReceiptNumber, "error", err)
	}
}
