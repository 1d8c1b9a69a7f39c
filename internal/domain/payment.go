package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PaymentTypeFull     = "full_payment"
	PaymentTypeSemester = "semester_payment"
	PaymentTypePartial  = "partial_payment"
	PaymentTypeHostel   = "hostel_fee"
)

const (
	PaymentStatusPending       = "pending"
	PaymentStatusProcessing    = "processing"
	PaymentStatusCompleted     = "completed"
	PaymentStatusFailed        = "failed"
	PaymentStatusRefunded      = "refunded"
	PaymentStatusPartialRefund = "partial_refund"
)

const (
	PaymentMethodRazorpay     = "razorpay_online"
	PaymentMethodCashOffice   = "cash_office"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodDD           = "dd"
	PaymentMethodCheque       = "cheque"
)

const (
	PaymentSourceOnline = "online_gateway"
	PaymentSourceOffice = "manual_office"
)

// HostelSemester is the pseudo-semester number used for hostel fee entries.
const HostelSemester = 0

// BreakdownEntry is one fee type actually being paid in a transaction.
// Entries are semester-tagged so a cross-semester full payment still
// reconciles per semester.
type BreakdownEntry struct {
	Semester int             `json:"semester"`
	FeeType  FeeType         `json:"feeType"`
	Amount   decimal.Decimal `json:"amount"`
}

// Payment is one ledger entry. Rows are append-only: status transitions and
// refund amounts are the only in-place updates, and a payment in a terminal
// state is otherwise immutable.
type Payment struct {
	ID           uuid.UUID `json:"id" db:"id"`
	StudentID    string    `json:"student_id" db:"student_id"`
	AssignmentID uuid.UUID `json:"assignment_id" db:"assignment_id"`

	PaymentType string           `json:"payment_type" db:"payment_type"`
	Semester    *int             `json:"semester,omitempty" db:"semester"`
	Breakdown   []BreakdownEntry `json:"fee_breakdown" db:"-"`

	AmountPaid         decimal.Decimal `json:"amount_paid" db:"amount_paid"`
	ConvenienceFee     decimal.Decimal `json:"convenience_fee" db:"convenience_fee"`
	TotalAmountCharged decimal.Decimal `json:"total_amount_charged" db:"total_amount_charged"`
	RefundedAmount     decimal.Decimal `json:"refunded_amount" db:"refunded_amount"`

	PaymentStatus string `json:"payment_status" db:"payment_status"`
	PaymentMethod string `json:"payment_method" db:"payment_method"`
	PaymentSource string `json:"payment_source" db:"payment_source"`

	GatewayOrderID   *string `json:"gateway_order_id,omitempty" db:"gateway_order_id"`
	GatewayPaymentID *string `json:"gateway_payment_id,omitempty" db:"gateway_payment_id"`

	RecordedBy *Actor `json:"recorded_by,omitempty" db:"-"`

	AcademicYear string    `json:"academic_year" db:"academic_year"`
	PaymentDate  time.Time `json:"payment_date" db:"payment_date"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// CanTransition reports whether a payment status transition is legal.
// pending -> processing|failed, processing -> completed|failed,
// completed -> refunded|partial_refund. Everything else is rejected; a failed
// payment is never resurrected.
func CanTransition(from, to string) bool {
	switch from {
	case PaymentStatusPending:
		return to == PaymentStatusProcessing || to == PaymentStatusFailed
	case PaymentStatusProcessing:
		return to == PaymentStatusCompleted || to == PaymentStatusFailed
	case PaymentStatusCompleted:
		return to == PaymentStatusRefunded || to == PaymentStatusPartialRefund
	}
	return false
}

// CountsTowardBalance reports whether a payment in this status contributes to
// paid amounts. Refund statuses still count; the reconciliation engine nets
// out the refunded portion separately.
func CountsTowardBalance(status string) bool {
	switch status {
	case PaymentStatusCompleted, PaymentStatusPartialRefund, PaymentStatusRefunded:
		return true
	}
	return false
}

func IsValidPaymentType(t string) bool {
	switch t {
	case PaymentTypeFull, PaymentTypeSemester, PaymentTypePartial, PaymentTypeHostel:
		return true
	}
	return false
}

func IsOfficeMethod(method string) bool {
	switch method {
	case PaymentMethodCashOffice, PaymentMethodBankTransfer, PaymentMethodDD, PaymentMethodCheque:
		return true
	}
	return false
}

// DTOs for requests and responses

type CreateOrderRequest struct {
	PaymentType      string    `json:"payment_type" validate:"required"`
	Semester         *int      `json:"semester,omitempty"`
	SelectedFeeTypes []FeeType `json:"selected_fee_types,omitempty"`
}

type CreateOrderResponse struct {
	Payment        *Payment        `json:"payment"`
	GatewayOrderID string          `json:"gateway_order_id"`
	Amount         decimal.Decimal `json:"amount"`
	ConvenienceFee decimal.Decimal `json:"convenience_fee"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
}

type VerifyPaymentRequest struct {
	PaymentID        uuid.UUID `json:"payment_id" validate:"required"`
	GatewayOrderID   string    `json:"gateway_order_id" validate:"required"`
	GatewayPaymentID string    `json:"gateway_payment_id" validate:"required"`
	Signature        string    `json:"signature" validate:"required"`
}

type RefundPaymentRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

type OfficePaymentRequest struct {
	PaymentType      string    `json:"payment_type" validate:"required"`
	Semester         *int      `json:"semester,omitempty"`
	SelectedFeeTypes []FeeType `json:"selected_fee_types,omitempty"`
	PaymentMethod    string    `json:"payment_method" validate:"required"`
	RecordedBy       Actor     `json:"recorded_by" validate:"required"`
}
