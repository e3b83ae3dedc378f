package mocks

import (
	"context"

	"github.com/metinatakli/hospital-payments/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockAppointmentRepo struct {
	mock.Mock
	domain.AppointmentRepository
}

func (m *MockAppointmentRepo) GetById(ctx context.Context, id int) (*domain.Appointment, error) {
	args := m.Called(ctx, id)
	appointment, _ := args.Get(0).(*domain.Appointment)
	return appointment, args.Error(1)
}

func (m *MockAppointmentRepo) CompleteIfScheduled(ctx context.Context, id int) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}
