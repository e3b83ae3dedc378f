package app

import (
	"context"

	"github.com/metinatakli/hospital-payments/internal/billing"
	"github.com/metinatakli/hospital-payments/internal/domain"
)

type paymentService interface {
	Create(ctx context.Context, input billing.CreatePaymentInput) (*billing.PaymentCheckout, error)
	Execute(ctx context.Context, input billing.ExecuteInput) (*billing.ExecuteResult, error)
	Cancel(ctx context.Context, paymentID int) (*domain.Payment, error)
	Get(ctx context.Context, paymentID int) (*domain.Payment, error)
	GetByReference(ctx context.Context, reference string) (*domain.Payment, error)
	ListByUser(ctx context.Context, userID int, pagination domain.Pagination) ([]domain.Payment, *domain.Metadata, error)
	ListByAppointment(ctx context.Context, appointmentID, userID int) ([]domain.Payment, error)
}

type receiptService interface {
	Issue(ctx context.Context, paymentID int) (*billing.IssueResult, error)
	Verify(ctx context.Context, qrPayload string) (*domain.ReceiptSummary, error)
	GetByNumber(ctx context.Context, receiptNumber string) (*domain.Receipt, error)
	GetByPayment(ctx context.Context, paymentID int) (*domain.Receipt, error)
	ListByUser(ctx context.Context, userID int, pagination domain.Pagination) ([]domain.Receipt, *domain.Metadata, error)
}

type receiptRenderer interface {
	RenderReceipt(receipt *domain.Receipt) ([]byte, error)
}
