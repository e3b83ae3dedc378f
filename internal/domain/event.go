package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventPaymentCompleted EventType = "payment.completed"
	EventPaymentFailed    EventType = "payment.failed"
	EventReceiptIssued    EventType = "receipt.issued"
)

type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data"`
}

func NewEvent(eventType EventType, data any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

type PaymentEventData struct {
	PaymentID     int             `json:"paymentId"`
	AppointmentID int             `json:"appointmentId"`
	UserID        int             `json:"userId"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Status        PaymentStatus   `json:"status"`
	TransactionID *string         `json:"transactionId,omitempty"`
	Reason        *string         `json:"reason,omitempty"`
}

func NewPaymentEventData(p *Payment) PaymentEventData {
	return PaymentEventData{
		PaymentID:     p.ID,
		AppointmentID: p.AppointmentID,
		UserID:        p.UserID,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Status:        p.Status,
		TransactionID: p.TransactionID,
		Reason:        p.ErrorMsg,
	}
}

type ReceiptEventData struct {
	ReceiptNumber string          `json:"receiptNumber"`
	PaymentID     int             `json:"paymentId"`
	UserID        int             `json:"userId"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
}

type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}
