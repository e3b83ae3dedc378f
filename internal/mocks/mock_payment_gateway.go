package mocks

import (
	"context"

	"github.com/metinatakli/hospital-payments/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockPaymentGateway struct {
	mock.Mock
	domain.PaymentGateway
}

func (m *MockPaymentGateway) CreateCharge(ctx context.Context, req domain.ChargeRequest) (*domain.Charge, error) {
	args := m.Called(ctx, req)
	charge, _ := args.Get(0).(*domain.Charge)
	return charge, args.Error(1)
}

func (m *MockPaymentGateway) CaptureCharge(ctx context.Context, req domain.CaptureRequest) (*domain.Capture, error) {
	args := m.Called(ctx, req)
	capture, _ := args.Get(0).(*domain.Capture)
	return capture, args.Error(1)
}
