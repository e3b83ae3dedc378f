package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrEditConflict      = errors.New("edit conflict")
	ErrInvalidState      = errors.New("operation is not allowed in the current state")
	ErrAlreadyPaid       = errors.New("appointment has already been paid")
	ErrNotCompleted      = errors.New("payment is not completed")
	ErrPaymentDeclined   = errors.New("payment was declined by the provider")
	ErrPaymentInProgress = errors.New("payment is being processed, please retry shortly")
	ErrInvalidAmount     = errors.New("amount must be positive with at most two decimal places")
	ErrInvalidFormat     = errors.New("receipt payload has an invalid format")
	ErrReceiptMismatch   = errors.New("receipt payload does not match the issued receipt")
)

type GatewayErrorKind string

const (
	// GatewayUnavailable covers transport failures, timeouts and provider misconfiguration.
	GatewayUnavailable GatewayErrorKind = "unavailable"
	// GatewayDeclined means the provider answered and refused the operation.
	GatewayDeclined GatewayErrorKind = "declined"
	// GatewayPending means the charge exists but the payer has not paid it yet.
	GatewayPending GatewayErrorKind = "pending"
)

type GatewayError struct {
	Op   string
	Kind GatewayErrorKind
	Err  error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway %s %s: %v", e.Op, e.Kind, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

func IsGatewayUnavailable(err error) bool {
	var gwErr *GatewayError
	return errors.As(err, &gwErr) && gwErr.Kind == GatewayUnavailable
}
