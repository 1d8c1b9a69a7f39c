package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/loop2cod/madin-fee-engine/internal/domain"
)

type paymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

type paymentRow struct {
	ID                 uuid.UUID       `db:"id"`
	StudentID          string          `db:"student_id"`
	AssignmentID       uuid.UUID       `db:"assignment_id"`
	PaymentType        string          `db:"payment_type"`
	Semester           *int            `db:"semester"`
	Breakdown          []byte          `db:"breakdown"`
	AmountPaid         decimal.Decimal `db:"amount_paid"`
	ConvenienceFee     decimal.Decimal `db:"convenience_fee"`
	TotalAmountCharged decimal.Decimal `db:"total_amount_charged"`
	RefundedAmount     decimal.Decimal `db:"refunded_amount"`
	PaymentStatus      string          `db:"payment_status"`
	PaymentMethod      string          `db:"payment_method"`
	PaymentSource      string          `db:"payment_source"`
	GatewayOrderID     *string         `db:"gateway_order_id"`
	GatewayPaymentID   *string         `db:"gateway_payment_id"`
	RecordedByName     *string         `db:"recorded_by_name"`
	RecordedByEmail    *string         `db:"recorded_by_email"`
	AcademicYear       string          `db:"academic_year"`
	PaymentDate        time.Time       `db:"payment_date"`
	CreatedAt          time.Time       `db:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at"`
}

const paymentColumns = `
	id, student_id, assignment_id, payment_type, semester, breakdown,
	amount_paid, convenience_fee, total_amount_charged, refunded_amount,
	payment_status, payment_method, payment_source,
	gateway_order_id, gateway_payment_id, recorded_by_name, recorded_by_email,
	academic_year, payment_date, created_at, updated_at
`

func (r paymentRow) toDomain() (*domain.Payment, error) {
	var breakdown []domain.BreakdownEntry
	if len(r.Breakdown) > 0 {
		if err := json.Unmarshal(r.Breakdown, &breakdown); err != nil {
			return nil, err
		}
	}

	payment := &domain.Payment{
		ID:                 r.ID,
		StudentID:          r.StudentID,
		AssignmentID:       r.AssignmentID,
		PaymentType:        r.PaymentType,
		Semester:           r.Semester,
		Breakdown:          breakdown,
		AmountPaid:         r.AmountPaid,
		ConvenienceFee:     r.ConvenienceFee,
		TotalAmountCharged: r.TotalAmountCharged,
		RefundedAmount:     r.RefundedAmount,
		PaymentStatus:      r.PaymentStatus,
		PaymentMethod:      r.PaymentMethod,
		PaymentSource:      r.PaymentSource,
		GatewayOrderID:     r.GatewayOrderID,
		GatewayPaymentID:   r.GatewayPaymentID,
		AcademicYear:       r.AcademicYear,
		PaymentDate:        r.PaymentDate,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
	if r.RecordedByName != nil && r.RecordedByEmail != nil {
		payment.RecordedBy = &domain.Actor{Name: *r.RecordedByName, Email: *r.RecordedByEmail}
	}

	return payment, nil
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	breakdown, err := json.Marshal(payment.Breakdown)
	if err != nil {
		return err
	}

	var recordedByName, recordedByEmail *string
	if payment.RecordedBy != nil {
		recordedByName = &payment.RecordedBy.Name
		recordedByEmail = &payment.RecordedBy.Email
	}

	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`

	_, err = r.db.ExecContext(ctx, query,
		payment.ID,
		payment.StudentID,
		payment.AssignmentID,
		payment.PaymentType,
		payment.Semester,
		breakdown,
		payment.AmountPaid,
		payment.ConvenienceFee,
		payment.TotalAmountCharged,
		payment.RefundedAmount,
		payment.PaymentStatus,
		payment.PaymentMethod,
		payment.PaymentSource,
		payment.GatewayOrderID,
		payment.GatewayPaymentID,
		recordedByName,
		recordedByEmail,
		payment.AcademicYear,
		payment.PaymentDate,
		payment.CreatedAt,
		payment.UpdatedAt,
	)

	return err
}

func (r *paymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	var row paymentRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}

	return row.toDomain()
}

func (r *paymentRepository) GetByStudentID(ctx context.Context, studentID string) ([]*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE student_id = $1
		ORDER BY payment_date, created_at
	`

	var rows []paymentRow
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, err
	}

	payments := make([]*domain.Payment, 0, len(rows))
	for _, row := range rows {
		payment, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}

	return payments, nil
}

func (r *paymentRepository) GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE gateway_payment_id = $1`

	var row paymentRow
	if err := r.db.GetContext(ctx, &row, query, gatewayPaymentID); err != nil {
		return nil, err
	}

	return row.toDomain()
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `
		UPDATE payments
		SET payment_status = $2, updated_at = $3
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, status, time.Now())
	return err
}

func (r *paymentRepository) AttachGatewayPayment(ctx context.Context, id uuid.UUID, gatewayPaymentID string) error {
	query := `
		UPDATE payments
		SET gateway_payment_id = $2, updated_at = $3
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, gatewayPaymentID, time.Now())
	return err
}

func (r *paymentRepository) RecordRefund(ctx context.Context, id uuid.UUID, status string, refundedAmount decimal.Decimal) error {
	query := `
		UPDATE payments
		SET payment_status = $2, refunded_amount = $3, updated_at = $4
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, status, refundedAmount, time.Now())
	return err
}

func (r *paymentRepository) MarkStalePendingFailed(ctx context.Context, cutoff time.Time) (int64, error) {
	// Office payments are recorded completed, so only abandoned gateway
	// checkouts ever match.
	query := `
		UPDATE payments
		SET payment_status = $1, updated_at = $2
		WHERE payment_status = $3
		  AND payment_source = $4
		  AND created_at < $5
	`

	result, err := r.db.ExecContext(ctx, query,
		domain.PaymentStatusFailed,
		time.Now(),
		domain.PaymentStatusPending,
		domain.PaymentSourceOnline,
		cutoff,
	)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
