package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/loop2cod/madin-fee-engine/internal/config"
	"github.com/loop2cod/madin-fee-engine/internal/domain"
	"github.com/loop2cod/madin-fee-engine/internal/gateway"
	"github.com/loop2cod/madin-fee-engine/internal/reconcile"
	"github.com/loop2cod/madin-fee-engine/internal/repository"
	customError "github.com/loop2cod/madin-fee-engine/pkg/errors"
	"github.com/loop2cod/madin-fee-engine/pkg/utils"
)

// PaymentService turns payment intents into validated, priced ledger entries.
// Order figures are fixed at creation time; verification never reprices from
// a possibly-changed ledger.
type PaymentService struct {
	AssignmentRepo repository.AssignmentRepository
	PaymentRepo    repository.PaymentRepository
	gateway        gateway.Gateway
	locker         AssignmentLocker
	config         *config.Config
}

func NewPaymentService(
	assignmentRepo repository.AssignmentRepository,
	paymentRepo repository.PaymentRepository,
	gw gateway.Gateway,
	locker AssignmentLocker,
	cfg *config.Config,
) *PaymentService {
	return &PaymentService{
		AssignmentRepo: assignmentRepo,
		PaymentRepo:    paymentRepo,
		gateway:        gw,
		locker:         locker,
		config:         cfg,
	}
}

// selection is a priced payment intent: what to charge and how it maps back
// onto semesters and fee types.
type selection struct {
	amount    decimal.Decimal
	breakdown []domain.BreakdownEntry
	semester  *int
}

// CreateOrder validates a payment intent against the reconciled balances,
// prices it (base + convenience fee), registers a gateway order and appends a
// pending Payment carrying those exact figures.
func (s *PaymentService) CreateOrder(ctx context.Context, studentID string, request *domain.CreateOrderRequest) (*domain.CreateOrderResponse, error) {
	assignment, err := s.loadAssignment(ctx, studentID)
	if err != nil {
		return nil, err
	}

	release, err := s.locker.Lock(ctx, assignment.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	sel, err := s.buildSelection(ctx, assignment, request.PaymentType, request.Semester, request.SelectedFeeTypes)
	if err != nil {
		return nil, err
	}

	convenienceFee := utils.ConvenienceFee(sel.amount, s.config.GetConvenienceFeeRate())
	totalAmount := sel.amount.Add(convenienceFee)

	paymentID := uuid.New()
	now := time.Now()

	orderID, err := s.gateway.CreateOrder(ctx, totalAmount, s.config.Razorpay.Currency, paymentID.String(), map[string]interface{}{
		"student_id":   studentID,
		"payment_type": request.PaymentType,
	})
	if err != nil {
		// Order creation failed before anything was persisted; nothing to
		// mark failed, just report.
		return nil, customError.WrapGatewayError(err)
	}

	payment := &domain.Payment{
		ID:                 paymentID,
		StudentID:          studentID,
		AssignmentID:       assignment.ID,
		PaymentType:        request.PaymentType,
		Semester:           sel.semester,
		Breakdown:          sel.breakdown,
		AmountPaid:         sel.amount,
		ConvenienceFee:     convenienceFee,
		TotalAmountCharged: totalAmount,
		RefundedAmount:     decimal.Zero,
		PaymentStatus:      domain.PaymentStatusPending,
		PaymentMethod:      domain.PaymentMethodRazorpay,
		PaymentSource:      domain.PaymentSourceOnline,
		GatewayOrderID:     &orderID,
		AcademicYear:       assignment.Snapshot.AcademicYear,
		PaymentDate:        now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.PaymentRepo.Create(ctx, payment); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return &domain.CreateOrderResponse{
		Payment:        payment,
		GatewayOrderID: orderID,
		Amount:         sel.amount,
		ConvenienceFee: convenienceFee,
		TotalAmount:    totalAmount,
	}, nil
}

// VerifyPayment applies a gateway callback. Callbacks may be retried or
// arrive out of order, so applying the same verified callback twice is a
// no-op keyed by the gateway payment id.
func (s *PaymentService) VerifyPayment(ctx context.Context, request *domain.VerifyPaymentRequest) (*domain.Payment, error) {
	payment, err := s.getPayment(ctx, request.PaymentID)
	if err != nil {
		return nil, err
	}

	release, err := s.locker.Lock(ctx, payment.AssignmentID)
	if err != nil {
		return nil, err
	}
	defer release()

	// Re-read under the lock so the status checks below run against the row
	// as it is now, not as it was before the lock was acquired.
	payment, err = s.getPayment(ctx, request.PaymentID)
	if err != nil {
		return nil, err
	}

	// Idempotency: a completed payment already recorded for this gateway
	// payment id means this callback was applied before.
	existing, err := s.PaymentRepo.GetByGatewayPaymentID(ctx, request.GatewayPaymentID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapDatabaseError(err)
	}
	if existing != nil && existing.PaymentStatus == domain.PaymentStatusCompleted {
		return existing, nil
	}

	if payment.GatewayOrderID == nil || *payment.GatewayOrderID != request.GatewayOrderID {
		return nil, customError.WrapValidation("gateway order id does not match this payment")
	}

	if !s.gateway.VerifySignature(request.GatewayOrderID, request.GatewayPaymentID, request.Signature) {
		if domain.CanTransition(payment.PaymentStatus, domain.PaymentStatusFailed) {
			if err := s.PaymentRepo.UpdateStatus(ctx, payment.ID, domain.PaymentStatusFailed); err != nil {
				return nil, customError.WrapDatabaseError(err)
			}
		}
		return nil, customError.WrapSignatureVerification()
	}

	// pending -> processing -> completed; anything else is illegal here
	// (a failed payment is never resurrected).
	if payment.PaymentStatus == domain.PaymentStatusPending {
		if err := s.PaymentRepo.UpdateStatus(ctx, payment.ID, domain.PaymentStatusProcessing); err != nil {
			return nil, customError.WrapDatabaseError(err)
		}
		payment.PaymentStatus = domain.PaymentStatusProcessing
	}
	if !domain.CanTransition(payment.PaymentStatus, domain.PaymentStatusCompleted) {
		return nil, customError.WrapIllegalTransition(payment.PaymentStatus, domain.PaymentStatusCompleted)
	}

	if err := s.PaymentRepo.AttachGatewayPayment(ctx, payment.ID, request.GatewayPaymentID); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if err := s.PaymentRepo.UpdateStatus(ctx, payment.ID, domain.PaymentStatusCompleted); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	payment.PaymentStatus = domain.PaymentStatusCompleted
	payment.GatewayPaymentID = &request.GatewayPaymentID
	return payment, nil
}

// RecordOfficePayment appends a counter payment taken by staff. No gateway,
// no convenience fee, recorded completed immediately under the same
// remaining-balance validation as online orders.
func (s *PaymentService) RecordOfficePayment(ctx context.Context, studentID string, request *domain.OfficePaymentRequest) (*domain.Payment, error) {
	if !domain.IsOfficeMethod(request.PaymentMethod) {
		return nil, customError.WrapValidation(fmt.Sprintf("invalid office payment method %q", request.PaymentMethod))
	}

	assignment, err := s.loadAssignment(ctx, studentID)
	if err != nil {
		return nil, err
	}

	release, err := s.locker.Lock(ctx, assignment.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	sel, err := s.buildSelection(ctx, assignment, request.PaymentType, request.Semester, request.SelectedFeeTypes)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	recordedBy := request.RecordedBy
	payment := &domain.Payment{
		ID:                 uuid.New(),
		StudentID:          studentID,
		AssignmentID:       assignment.ID,
		PaymentType:        request.PaymentType,
		Semester:           sel.semester,
		Breakdown:          sel.breakdown,
		AmountPaid:         sel.amount,
		ConvenienceFee:     decimal.Zero,
		TotalAmountCharged: sel.amount,
		RefundedAmount:     decimal.Zero,
		PaymentStatus:      domain.PaymentStatusCompleted,
		PaymentMethod:      request.PaymentMethod,
		PaymentSource:      domain.PaymentSourceOffice,
		RecordedBy:         &recordedBy,
		AcademicYear:       assignment.Snapshot.AcademicYear,
		PaymentDate:        now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.PaymentRepo.Create(ctx, payment); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return payment, nil
}

// RefundPayment adjusts a completed payment. The ledger row stays; the status
// transition plus refunded amount is the adjustment record.
func (s *PaymentService) RefundPayment(ctx context.Context, paymentID uuid.UUID, amount decimal.Decimal) (*domain.Payment, error) {
	if !amount.IsPositive() {
		return nil, customError.WrapValidation("refund amount must be positive")
	}

	// The first read only resolves which assignment to lock; the refund is
	// validated against a fresh row once the lock is held.
	payment, err := s.getPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	release, err := s.locker.Lock(ctx, payment.AssignmentID)
	if err != nil {
		return nil, err
	}
	defer release()

	statusBefore := payment.PaymentStatus
	payment, err = s.getPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	// A refund that landed between the first read and the lock wins; this
	// request was priced against stale figures.
	if payment.PaymentStatus != statusBefore {
		return nil, customError.WrapConcurrencyConflict(payment.AssignmentID.String())
	}

	if amount.GreaterThan(payment.AmountPaid) {
		return nil, customError.WrapValidation("refund amount exceeds the amount paid")
	}

	status := domain.PaymentStatusPartialRefund
	if amount.Equal(payment.AmountPaid) {
		status = domain.PaymentStatusRefunded
	}
	if !domain.CanTransition(payment.PaymentStatus, status) {
		return nil, customError.WrapIllegalTransition(payment.PaymentStatus, status)
	}

	if err := s.PaymentRepo.RecordRefund(ctx, payment.ID, status, amount); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	payment.PaymentStatus = status
	payment.RefundedAmount = amount
	return payment, nil
}

// ListPayments returns the student's ledger history, oldest first.
func (s *PaymentService) ListPayments(ctx context.Context, studentID string) ([]*domain.Payment, error) {
	payments, err := s.PaymentRepo.GetByStudentID(ctx, studentID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return payments, nil
}

// SweepStalePending fails gateway payments abandoned at checkout.
func (s *PaymentService) SweepStalePending(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.config.GetPendingTTL())
	count, err := s.PaymentRepo.MarkStalePendingFailed(ctx, cutoff)
	if err != nil {
		return 0, customError.WrapDatabaseError(err)
	}
	return count, nil
}

func (s *PaymentService) getPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	payment, err := s.PaymentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapNotFound("payment", id.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return payment, nil
}

func (s *PaymentService) loadAssignment(ctx context.Context, studentID string) (*domain.FeeAssignment, error) {
	assignment, err := s.AssignmentRepo.GetActiveByStudentID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapNotFound("fee assignment for student", studentID)
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return assignment, nil
}

// buildSelection reconciles the current ledger and prices the intent from
// remaining balances only. A reconciliation failure aborts order creation;
// there is no gross-total fallback.
func (s *PaymentService) buildSelection(ctx context.Context, assignment *domain.FeeAssignment, paymentType string, semester *int, selectedFeeTypes []domain.FeeType) (*selection, error) {
	if !domain.IsValidPaymentType(paymentType) {
		return nil, customError.WrapValidation(fmt.Sprintf("unknown payment type %q", paymentType))
	}

	payments, err := s.PaymentRepo.GetByStudentID(ctx, assignment.StudentID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	status, err := reconcile.ComputeStatus(assignment, payments)
	if err != nil {
		return nil, err
	}

	var sel *selection
	switch paymentType {
	case domain.PaymentTypeFull:
		sel = buildFullSelection(status)
	case domain.PaymentTypeSemester:
		sel, err = buildSemesterSelection(status, semester)
	case domain.PaymentTypePartial:
		sel, err = buildPartialSelection(status, semester, selectedFeeTypes)
	case domain.PaymentTypeHostel:
		sel = buildHostelSelection(status)
	}
	if err != nil {
		return nil, err
	}

	// A payment order must never be created for a zero or negative amount.
	if !sel.amount.IsPositive() {
		return nil, customError.WrapNothingDue()
	}

	return sel, nil
}

func buildFullSelection(status *reconcile.StudentStatus) *selection {
	sel := &selection{amount: decimal.Zero}
	for _, sem := range status.Semesters {
		for _, feeType := range domain.AllFeeTypes() {
			state := sem.FeeTypes[feeType]
			if state == nil || !state.Remaining.IsPositive() {
				continue
			}
			sel.breakdown = append(sel.breakdown, domain.BreakdownEntry{
				Semester: sem.Semester,
				FeeType:  feeType,
				Amount:   state.Remaining,
			})
			sel.amount = sel.amount.Add(state.Remaining)
		}
	}
	return sel
}

func buildSemesterSelection(status *reconcile.StudentStatus, semester *int) (*selection, error) {
	if semester == nil {
		return nil, customError.WrapValidation("semester is required for a semester payment")
	}
	sem := status.FindSemester(*semester)
	if sem == nil {
		return nil, customError.WrapSemesterNotFound(*semester)
	}

	sel := &selection{amount: sem.Outstanding, semester: semester}
	for _, feeType := range domain.AllFeeTypes() {
		state := sem.FeeTypes[feeType]
		if state == nil || !state.Remaining.IsPositive() {
			continue
		}
		sel.breakdown = append(sel.breakdown, domain.BreakdownEntry{
			Semester: sem.Semester,
			FeeType:  feeType,
			Amount:   state.Remaining,
		})
	}
	return sel, nil
}

func buildPartialSelection(status *reconcile.StudentStatus, semester *int, selectedFeeTypes []domain.FeeType) (*selection, error) {
	if semester == nil {
		return nil, customError.WrapValidation("semester is required for a partial payment")
	}
	if len(selectedFeeTypes) == 0 {
		return nil, customError.WrapValidation("at least one fee type must be selected for a partial payment")
	}
	sem := status.FindSemester(*semester)
	if sem == nil {
		return nil, customError.WrapSemesterNotFound(*semester)
	}

	sel := &selection{amount: decimal.Zero, semester: semester}
	seen := make(map[domain.FeeType]bool, len(selectedFeeTypes))
	for _, feeType := range selectedFeeTypes {
		if !domain.IsValidFeeType(feeType) {
			return nil, customError.WrapValidation(fmt.Sprintf("unknown fee type %q", feeType))
		}
		if seen[feeType] {
			return nil, customError.WrapValidation(fmt.Sprintf("fee type %s selected more than once", feeType))
		}
		seen[feeType] = true

		state := sem.FeeTypes[feeType]
		// Selecting a settled fee type is a hard failure, not a skip;
		// silently dropping it would invite double payment.
		if state == nil || state.Status == reconcile.FeeStatusFullyPaid || state.Remaining.IsZero() {
			return nil, customError.WrapAlreadyPaid(string(feeType))
		}

		sel.breakdown = append(sel.breakdown, domain.BreakdownEntry{
			Semester: sem.Semester,
			FeeType:  feeType,
			Amount:   state.Remaining,
		})
		sel.amount = sel.amount.Add(state.Remaining)
	}
	return sel, nil
}

func buildHostelSelection(status *reconcile.StudentStatus) *selection {
	hostelSemester := domain.HostelSemester
	sel := &selection{amount: decimal.Zero, semester: &hostelSemester}
	if status.Hostel != nil {
		sel.amount = status.Hostel.Remaining
	}
	return sel
}
