package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/loop2cod/madin-fee-engine/internal/domain"
)

// FeeStructureRepository defines the interface for fee catalog operations
type FeeStructureRepository interface {
	// Create stores a new fee structure
	Create(ctx context.Context, structure *domain.FeeStructure) error

	// GetByID retrieves a fee structure by id
	GetByID(ctx context.Context, id uuid.UUID) (*domain.FeeStructure, error)

	// List retrieves fee structures, optionally filtered by program and year
	List(ctx context.Context, program, academicYear string) ([]*domain.FeeStructure, error)

	// Deactivate flags a structure so it cannot be assigned anymore
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// AssignmentRepository defines the interface for fee assignment operations.
// Assignments are never deleted; customizations are append-only.
type AssignmentRepository interface {
	// Create stores a new assignment with its snapshot
	Create(ctx context.Context, assignment *domain.FeeAssignment) error

	// GetByID retrieves an assignment with its customizations
	GetByID(ctx context.Context, id uuid.UUID) (*domain.FeeAssignment, error)

	// GetActiveByStudentID retrieves the active assignment for a student
	GetActiveByStudentID(ctx context.Context, studentID string) (*domain.FeeAssignment, error)

	// AppendCustomization adds an override record to an assignment
	AppendCustomization(ctx context.Context, customization *domain.Customization) error

	// Deactivate flags an assignment inactive
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// PaymentRepository defines the interface for the append-only payment ledger
type PaymentRepository interface {
	// Create appends a new payment record
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by id
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)

	// GetByStudentID retrieves all payments for a student, oldest first
	GetByStudentID(ctx context.Context, studentID string) ([]*domain.Payment, error)

	// GetByGatewayPaymentID retrieves a payment by its gateway payment id
	GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*domain.Payment, error)

	// UpdateStatus moves a payment to a new status
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error

	// AttachGatewayPayment records the gateway payment id on a payment
	AttachGatewayPayment(ctx context.Context, id uuid.UUID, gatewayPaymentID string) error

	// RecordRefund moves a payment to a refund status with the refunded amount
	RecordRefund(ctx context.Context, id uuid.UUID, status string, refundedAmount decimal.Decimal) error

	// MarkStalePendingFailed fails gateway payments stuck pending since before cutoff
	MarkStalePendingFailed(ctx context.Context, cutoff time.Time) (int64, error)
}
