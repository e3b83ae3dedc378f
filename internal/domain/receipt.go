package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Receipt struct {
	ID                 int
	ReceiptNumber      string
	PaymentID          int
	UserID             int
	AppointmentID      int
	Amount             decimal.Decimal
	Currency           string
	PatientName        string
	PatientEmail       string
	DoctorName         string
	ServiceDescription string
	PaymentMethod      string
	TransactionID      string
	QRPayload          string
	IssuedAt           time.Time
}

// ReceiptSummary is what an unauthenticated verifier is allowed to see.
type ReceiptSummary struct {
	ReceiptNumber      string
	Amount             decimal.Decimal
	Currency           string
	PatientName        string
	DoctorName         string
	ServiceDescription string
	PaymentMethod      string
	IssuedAt           time.Time
}

func (r *Receipt) Summary() ReceiptSummary {
	return ReceiptSummary{
		ReceiptNumber:      r.ReceiptNumber,
		Amount:             r.Amount,
		Currency:           r.Currency,
		PatientName:        r.PatientName,
		DoctorName:         r.DoctorName,
		ServiceDescription: r.ServiceDescription,
		PaymentMethod:      r.PaymentMethod,
		IssuedAt:           r.IssuedAt,
	}
}

type ReceiptRepository interface {
	NextReceiptSequence(ctx context.Context) (int64, error)
	// CreateOrGet inserts the receipt unless one exists for the same payment.
	// In that case the stored receipt is copied into r and created is false.
	CreateOrGet(ctx context.Context, r *Receipt) (created bool, err error)
	GetByNumber(ctx context.Context, receiptNumber string) (*Receipt, error)
	GetByPaymentId(ctx context.Context, paymentId int) (*Receipt, error)
	GetByUserId(ctx context.Context, userId int, pagination Pagination) ([]Receipt, *Metadata, error)
}
