package mocks

import (
	"context"

	"github.com/metinatakli/hospital-payments/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockPaymentRepo struct {
	mock.Mock
	domain.PaymentRepository
}

func (m *MockPaymentRepo) Create(ctx context.Context, payment *domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepo) GetById(ctx context.Context, id int) (*domain.Payment, error) {
	args := m.Called(ctx, id)
	payment, _ := args.Get(0).(*domain.Payment)
	return payment, args.Error(1)
}

func (m *MockPaymentRepo) GetByProviderPaymentId(ctx context.Context, reference string) (*domain.Payment, error) {
	args := m.Called(ctx, reference)
	payment, _ := args.Get(0).(*domain.Payment)
	return payment, args.Error(1)
}

func (m *MockPaymentRepo) HasCompletedForAppointment(ctx context.Context, appointmentId int) (bool, error) {
	args := m.Called(ctx, appointmentId)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentRepo) SetProviderPaymentId(ctx context.Context, id int, reference string) error {
	args := m.Called(ctx, id, reference)
	return args.Error(0)
}

func (m *MockPaymentRepo) Complete(ctx context.Context, id int, transactionId string) (*domain.Payment, error) {
	args := m.Called(ctx, id, transactionId)
	payment, _ := args.Get(0).(*domain.Payment)
	return payment, args.Error(1)
}

func (m *MockPaymentRepo) Fail(ctx context.Context, id int, errMsg string) (*domain.Payment, error) {
	args := m.Called(ctx, id, errMsg)
	payment, _ := args.Get(0).(*domain.Payment)
	return payment, args.Error(1)
}

func (m *MockPaymentRepo) RecordError(ctx context.Context, id int, errMsg string) error {
	args := m.Called(ctx, id, errMsg)
	return args.Error(0)
}
