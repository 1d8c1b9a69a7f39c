package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string, notes map[string]interface{}) (string, error) {
	args := m.Called(ctx, amount, currency, receipt, notes)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) VerifySignature(orderID, paymentID, signature string) bool {
	args := m.Called(orderID, paymentID, signature)
	return args.Bool(0)
}

// MockAssignmentLocker hands out no-op releases so service tests exercise the
// lock ordering without a Redis instance.
type MockAssignmentLocker struct {
	mock.Mock
}

func (m *MockAssignmentLocker) Lock(ctx context.Context, assignmentID uuid.UUID) (func(), error) {
	args := m.Called(ctx, assignmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(func()), args.Error(1)
}
