package app

import (
	"context"

	"github.com/metinatakli/hospital-payments/internal/billing"
	"github.com/metinatakli/hospital-payments/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) Create(ctx context.Context, input billing.CreatePaymentInput) (*billing.PaymentCheckout, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PaymentCheckout), args.Error(1)
}

func (m *MockPaymentService) Execute(ctx context.Context, input billing.ExecuteInput) (*billing.ExecuteResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.ExecuteResult), args.Error(1)
}

func (m *MockPaymentService) Cancel(ctx context.Context, paymentID int) (*domain.Payment, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentService) Get(ctx context.Context, paymentID int) (*domain.Payment, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentService) GetByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentService) ListByUser(
	ctx context.Context,
	userID int,
	pagination domain.Pagination) ([]domain.Payment, *domain.Metadata, error) {

	args := m.Called(ctx, userID, pagination)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).([]domain.Payment), args.Get(1).(*domain.Metadata), args.Error(2)
}

func (m *MockPaymentService) ListByAppointment(ctx context.Context, appointmentID, userID int) ([]domain.Payment, error) {
	args := m.Called(ctx, appointmentID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Payment), args.Error(1)
}

type MockReceiptService struct {
	mock.Mock
}

func (m *MockReceiptService) Issue(ctx context.Context, paymentID int) (*billing.IssueResult, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.IssueResult), args.Error(1)
}

func (m *MockReceiptService) Verify(ctx context.Context, qrPayload string) (*domain.ReceiptSummary, error) {
	args := m.Called(ctx, qrPayload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReceiptSummary), args.Error(1)
}

func (m *MockReceiptService) GetByNumber(ctx context.Context, receiptNumber string) (*domain.Receipt, error) {
	args := m.Called(ctx, receiptNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Receipt), args.Error(1)
}

func (m *MockReceiptService) GetByPayment(ctx context.Context, paymentID int) (*domain.Receipt, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Receipt), args.Error(1)
}

func (m *MockReceiptService) ListByUser(
	ctx context.Context,
	userID int,
	pagination domain.Pagination) ([]domain.Receipt, *domain.Metadata, error) {

	args := m.Called(ctx, userID, pagination)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).([]domain.Receipt), args.Get(1).(*domain.Metadata), args.Error(2)
}

type MockReceiptRenderer struct {
	mock.Mock
}

func (m *MockReceiptRenderer) RenderReceipt(receipt *domain.Receipt) ([]byte, error) {
	args := m.Called(receipt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
