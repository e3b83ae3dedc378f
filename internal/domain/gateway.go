package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

type ChargeRequest struct {
	PaymentID     int
	AppointmentID int
	Amount        decimal.Decimal
	Currency      string
	Description   string
	ReturnURL     string
	CancelURL     string
	CustomerEmail string
}

type Charge struct {
	ApprovalReference string
	ApprovalURL       string
	Simulated         bool
}

type CaptureRequest struct {
	Reference         string
	PayerConfirmation string
	IdempotencyKey    string
}

type Capture struct {
	TransactionID string
}

// PaymentGateway is implemented by every payment provider adapter. Errors are
// reported as *GatewayError.
type PaymentGateway interface {
	CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error)
	CaptureCharge(ctx context.Context, req CaptureRequest) (*Capture, error)
}
