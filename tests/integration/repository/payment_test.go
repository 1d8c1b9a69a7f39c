package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loop2cod/madin-fee-engine/internal/domain"
	"github.com/loop2cod/madin-fee-engine/internal/repository"
)

func TestPaymentRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewPaymentRepository(db)
	ctx := context.Background()

	assignment := mustCreateAssignment(t, ctx, db, "MDN2026010")
	payment := newTestPayment(assignment)
	orderID := "order_INT001"
	payment.GatewayOrderID = &orderID
	require.NoError(t, repo.Create(ctx, payment))

	result, err := repo.GetByID(ctx, payment.ID)
	require.NoError(t, err)

	assert.Equal(t, payment.StudentID, result.StudentID)
	assert.Equal(t, domain.PaymentStatusPending, result.PaymentStatus)
	assert.True(t, result.AmountPaid.Equal(decimal.NewFromInt(20000)))
	assert.True(t, result.ConvenienceFee.Equal(decimal.NewFromInt(600)))
	require.NotNil(t, result.GatewayOrderID)
	assert.Equal(t, orderID, *result.GatewayOrderID)
	require.Len(t, result.Breakdown, 1)
	assert.Equal(t, domain.FeeTypeTuition, result.Breakdown[0].FeeType)
	assert.True(t, result.Breakdown[0].Amount.Equal(decimal.NewFromInt(20000)))
}

func TestPaymentRepository_OfficePaymentKeepsRecorder(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewPaymentRepository(db)
	ctx := context.Background()

	assignment := mustCreateAssignment(t, ctx, db, "MDN2026011")
	payment := newTestPayment(assignment)
	payment.PaymentStatus = domain.PaymentStatusCompleted
	payment.PaymentMethod = domain.PaymentMethodCashOffice
	payment.PaymentSource = domain.PaymentSourceOffice
	payment.ConvenienceFee = decimal.Zero
	payment.TotalAmountCharged = payment.AmountPaid
	payment.RecordedBy = &domain.Actor{Name: "Front Office", Email: "office@madin.example"}
	require.NoError(t, repo.Create(ctx, payment))

	result, err := repo.GetByID(ctx, payment.ID)
	require.NoError(t, err)
	require.NotNil(t, result.RecordedBy)
	assert.Equal(t, "office@madin.example", result.RecordedBy.Email)
	assert.True(t, result.ConvenienceFee.IsZero())
}

func TestPaymentRepository_GetByStudentID_OrdersByDate(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewPaymentRepository(db)
	ctx := context.Background()

	assignment := mustCreateAssignment(t, ctx, db, "MDN2026012")

	older := newTestPayment(assignment)
	older.PaymentDate = time.Now().Add(-time.Hour)
	newer := newTestPayment(assignment)
	require.NoError(t, repo.Create(ctx, newer))
	require.NoError(t, repo.Create(ctx, older))

	payments, err := repo.GetByStudentID(ctx, assignment.StudentID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, older.ID, payments[0].ID)
	assert.Equal(t, newer.ID, payments[1].ID)
}

func TestPaymentRepository_GatewayPaymentLookupAndStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewPaymentRepository(db)
	ctx := context.Background()

	assignment := mustCreateAssignment(t, ctx, db, "MDN2026013")
	payment := newTestPayment(assignment)
	require.NoError(t, repo.Create(ctx, payment))

	_, err := repo.GetByGatewayPaymentID(ctx, "pay_UNKNOWN")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	require.NoError(t, repo.AttachGatewayPayment(ctx, payment.ID, "pay_INT013"))
	require.NoError(t, repo.UpdateStatus(ctx, payment.ID, domain.PaymentStatusProcessing))
	require.NoError(t, repo.UpdateStatus(ctx, payment.ID, domain.PaymentStatusCompleted))

	result, err := repo.GetByGatewayPaymentID(ctx, "pay_INT013")
	require.NoError(t, err)
	assert.Equal(t, payment.ID, result.ID)
	assert.Equal(t, domain.PaymentStatusCompleted, result.PaymentStatus)
}

func TestPaymentRepository_RecordRefund(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewPaymentRepository(db)
	ctx := context.Background()

	assignment := mustCreateAssignment(t, ctx, db, "MDN2026014")
	payment := newTestPayment(assignment)
	payment.PaymentStatus = domain.PaymentStatusCompleted
	require.NoError(t, repo.Create(ctx, payment))

	require.NoError(t, repo.RecordRefund(ctx, payment.ID, domain.PaymentStatusPartialRefund, decimal.NewFromInt(5000)))

	result, err := repo.GetByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPartialRefund, result.PaymentStatus)
	assert.True(t, result.RefundedAmount.Equal(decimal.NewFromInt(5000)))
}

func TestPaymentRepository_MarkStalePendingFailed(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewPaymentRepository(db)
	ctx := context.Background()

	assignment := mustCreateAssignment(t, ctx, db, "MDN2026015")

	stale := newTestPayment(assignment)
	stale.CreatedAt = time.Now().Add(-2 * time.Hour)
	fresh := newTestPayment(assignment)
	office := newTestPayment(assignment)
	office.PaymentSource = domain.PaymentSourceOffice
	office.PaymentMethod = domain.PaymentMethodCashOffice
	office.CreatedAt = time.Now().Add(-2 * time.Hour)

	require.NoError(t, repo.Create(ctx, stale))
	require.NoError(t, repo.Create(ctx, fresh))
	require.NoError(t, repo.Create(ctx, office))

	count, err := repo.MarkStalePendingFailed(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	result, err := repo.GetByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusFailed, result.PaymentStatus)

	untouched, err := repo.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, untouched.PaymentStatus)
}
