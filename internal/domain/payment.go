package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed
}

type Payment struct {
	ID                int
	AppointmentID     int
	UserID            int
	Amount            decimal.Decimal
	Currency          string
	Status            PaymentStatus
	PaymentMethod     string
	ProviderPaymentID *string
	TransactionID     *string
	ErrorMsg          *string
	PaymentDate       *time.Time
	CreatedAt         time.Time
	UpdatedAt         *time.Time
}

// CanTransitionTo allows PENDING -> COMPLETED and PENDING -> FAILED only.
func (p *Payment) CanTransitionTo(target PaymentStatus) error {
	if p.Status == PaymentStatusPending && target.IsTerminal() {
		return nil
	}

	return fmt.Errorf("%w: payment %d cannot move from %s to %s", ErrInvalidState, p.ID, p.Status, target)
}

func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() || !amount.Round(2).Equal(amount) {
		return ErrInvalidAmount
	}

	return nil
}

type PaymentRepository interface {
	// Create inserts a PENDING payment. It returns ErrAlreadyPaid when the
	// appointment already has a COMPLETED payment.
	Create(ctx context.Context, payment *Payment) error
	GetById(ctx context.Context, id int) (*Payment, error)
	GetByProviderPaymentId(ctx context.Context, reference string) (*Payment, error)
	GetByUserId(ctx context.Context, userId int, pagination Pagination) ([]Payment, *Metadata, error)
	GetByAppointmentId(ctx context.Context, appointmentId int) ([]Payment, error)
	HasCompletedForAppointment(ctx context.Context, appointmentId int) (bool, error)
	// SetProviderPaymentId records the approval reference once. ErrEditConflict
	// is returned if a reference is already set or the payment left PENDING.
	SetProviderPaymentId(ctx context.Context, id int, reference string) error
	// Complete and Fail only touch PENDING rows and return ErrEditConflict otherwise.
	Complete(ctx context.Context, id int, transactionId string) (*Payment, error)
	Fail(ctx context.Context, id int, errMsg string) (*Payment, error)
	// RecordError stores errMsg on a PENDING payment without changing its status.
	RecordError(ctx context.Context, id int, errMsg string) error
}
