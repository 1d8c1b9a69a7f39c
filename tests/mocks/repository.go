package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/loop2cod/madin-fee-engine/internal/domain"
)

type MockFeeStructureRepository struct {
	mock.Mock
}

func (m *MockFeeStructureRepository) Create(ctx context.Context, structure *domain.FeeStructure) error {
	args := m.Called(ctx, structure)
	return args.Error(0)
}

func (m *MockFeeStructureRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.FeeStructure, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FeeStructure), args.Error(1)
}

func (m *MockFeeStructureRepository) List(ctx context.Context, program, academicYear string) ([]*domain.FeeStructure, error) {
	args := m.Called(ctx, program, academicYear)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.FeeStructure), args.Error(1)
}

func (m *MockFeeStructureRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockAssignmentRepository struct {
	mock.Mock
}

func (m *MockAssignmentRepository) Create(ctx context.Context, assignment *domain.FeeAssignment) error {
	args := m.Called(ctx, assignment)
	return args.Error(0)
}

func (m *MockAssignmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.FeeAssignment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FeeAssignment), args.Error(1)
}

func (m *MockAssignmentRepository) GetActiveByStudentID(ctx context.Context, studentID string) (*domain.FeeAssignment, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FeeAssignment), args.Error(1)
}

func (m *MockAssignmentRepository) AppendCustomization(ctx context.Context, customization *domain.Customization) error {
	args := m.Called(ctx, customization)
	return args.Error(0)
}

func (m *MockAssignmentRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetByStudentID(ctx context.Context, studentID string) ([]*domain.Payment, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*domain.Payment, error) {
	args := m.Called(ctx, gatewayPaymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockPaymentRepository) AttachGatewayPayment(ctx context.Context, id uuid.UUID, gatewayPaymentID string) error {
	args := m.Called(ctx, id, gatewayPaymentID)
	return args.Error(0)
}

func (m *MockPaymentRepository) RecordRefund(ctx context.Context, id uuid.UUID, status string, refundedAmount decimal.Decimal) error {
	args := m.Called(ctx, id, status, refundedAmount)
	return args.Error(0)
}

func (m *MockPaymentRepository) MarkStalePendingFailed(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}
