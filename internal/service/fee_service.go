package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/loop2cod/madin-fee-engine/internal/domain"
	"github.com/loop2cod/madin-fee-engine/internal/reconcile"
	"github.com/loop2cod/madin-fee-engine/internal/repository"
	customError "github.com/loop2cod/madin-fee-engine/pkg/errors"
	"github.com/loop2cod/madin-fee-engine/pkg/utils"
)

// FeeService manages the fee structure catalog, per-student assignments and
// their customizations, and exposes reconciled payment status.
type FeeService struct {
	StructureRepo  repository.FeeStructureRepository
	AssignmentRepo repository.AssignmentRepository
	PaymentRepo    repository.PaymentRepository
}

func NewFeeService(
	structureRepo repository.FeeStructureRepository,
	assignmentRepo repository.AssignmentRepository,
	paymentRepo repository.PaymentRepository,
) *FeeService {
	return &FeeService{
		StructureRepo:  structureRepo,
		AssignmentRepo: assignmentRepo,
		PaymentRepo:    paymentRepo,
	}
}

// CreateFeeStructure stores a new catalog entry. Semester totals and the
// grand total are computed here rather than trusted from the request, so the
// snapshot invariant holds from the start.
func (s *FeeService) CreateFeeStructure(ctx context.Context, request *domain.CreateFeeStructureRequest) (*domain.FeeStructure, error) {
	if request.HostelFee.IsNegative() {
		return nil, customError.WrapValidation("hostel fee must not be negative")
	}

	seen := make(map[int]bool, len(request.Semesters))
	semesters := make([]domain.SemesterFees, 0, len(request.Semesters))
	grandTotal := decimal.Zero

	for _, sem := range request.Semesters {
		if seen[sem.Semester] {
			return nil, customError.WrapValidation(fmt.Sprintf("duplicate semester %d", sem.Semester))
		}
		seen[sem.Semester] = true

		for _, feeType := range domain.AllFeeTypes() {
			if sem.Fees.Amount(feeType).IsNegative() {
				return nil, customError.WrapValidation(
					fmt.Sprintf("semester %d %s must not be negative", sem.Semester, feeType))
			}
		}

		total := sem.Fees.Total()
		semesters = append(semesters, domain.SemesterFees{
			Semester:     sem.Semester,
			SemesterName: sem.SemesterName,
			Fees:         sem.Fees,
			Total:        total,
		})
		grandTotal = grandTotal.Add(total)
	}

	now := time.Now()
	structure := &domain.FeeStructure{
		ID:           uuid.New(),
		Program:      request.Program,
		AcademicYear: request.AcademicYear,
		Semesters:    semesters,
		GrandTotal:   grandTotal,
		HostelFee:    utils.RoundMoney(request.HostelFee),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.StructureRepo.Create(ctx, structure); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return structure, nil
}

// GetFeeStructure retrieves a catalog entry by id.
func (s *FeeService) GetFeeStructure(ctx context.Context, id uuid.UUID) (*domain.FeeStructure, error) {
	structure, err := s.StructureRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapNotFound("fee structure", id.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return structure, nil
}

// ListFeeStructures lists catalog entries with optional program/year filters.
func (s *FeeService) ListFeeStructures(ctx context.Context, program, academicYear string) ([]*domain.FeeStructure, error) {
	structures, err := s.StructureRepo.List(ctx, program, academicYear)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return structures, nil
}

// DeactivateFeeStructure retires a catalog entry. Existing assignments keep
// their snapshots and are unaffected.
func (s *FeeService) DeactivateFeeStructure(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetFeeStructure(ctx, id); err != nil {
		return err
	}
	if err := s.StructureRepo.Deactivate(ctx, id); err != nil {
		return customError.WrapDatabaseError(err)
	}
	return nil
}

// AssignStructure binds a student to a deep-copied snapshot of a structure.
func (s *FeeService) AssignStructure(ctx context.Context, studentID string, request *domain.AssignFeeStructureRequest) (*domain.FeeAssignment, error) {
	existing, err := s.AssignmentRepo.GetActiveByStudentID(ctx, studentID)
	if err == nil && existing != nil {
		return nil, customError.WrapAssignmentExists(studentID)
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapDatabaseError(err)
	}

	structure, err := s.GetFeeStructure(ctx, request.StructureID)
	if err != nil {
		return nil, err
	}
	if !structure.IsActive {
		return nil, customError.WrapValidation("fee structure is no longer active")
	}

	snapshot := structure.Snapshot()
	if err := reconcile.ValidateSnapshot(snapshot); err != nil {
		return nil, err
	}

	now := time.Now()
	assignment := &domain.FeeAssignment{
		ID:         uuid.New(),
		StudentID:  studentID,
		Snapshot:   snapshot,
		AssignedBy: request.AssignedBy,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.AssignmentRepo.Create(ctx, assignment); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return assignment, nil
}

// GetAssignment retrieves a student's active assignment with customizations.
func (s *FeeService) GetAssignment(ctx context.Context, studentID string) (*domain.FeeAssignment, error) {
	assignment, err := s.AssignmentRepo.GetActiveByStudentID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapNotFound("fee assignment for student", studentID)
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return assignment, nil
}

// AddCustomization appends a fee override to a student's assignment. The
// override history is never collapsed; precedence is recomputed on read.
func (s *FeeService) AddCustomization(ctx context.Context, studentID string, request *domain.AddCustomizationRequest) (*domain.FeeAssignment, error) {
	assignment, err := s.GetAssignment(ctx, studentID)
	if err != nil {
		return nil, err
	}

	if _, ok := assignment.Snapshot.Semester(request.Semester); !ok {
		return nil, customError.WrapSemesterNotFound(request.Semester)
	}

	for feeType, amount := range request.Overrides {
		if !domain.IsValidFeeType(feeType) {
			return nil, customError.WrapValidation(fmt.Sprintf("unknown fee type %q", feeType))
		}
		if amount.IsNegative() {
			return nil, customError.WrapValidation(fmt.Sprintf("override for %s must not be negative", feeType))
		}
	}

	customization := &domain.Customization{
		ID:           uuid.New(),
		AssignmentID: assignment.ID,
		Semester:     request.Semester,
		Overrides:    request.Overrides,
		Reason:       request.Reason,
		CustomizedBy: request.CustomizedBy,
		CustomizedAt: time.Now(),
	}

	if err := s.AssignmentRepo.AppendCustomization(ctx, customization); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	assignment.Customizations = append(assignment.Customizations, *customization)
	return assignment, nil
}

// GetPaymentStatus reconciles the student's ledger against their assignment.
func (s *FeeService) GetPaymentStatus(ctx context.Context, studentID string) (*reconcile.StudentStatus, error) {
	assignment, err := s.GetAssignment(ctx, studentID)
	if err != nil {
		return nil, err
	}

	payments, err := s.PaymentRepo.GetByStudentID(ctx, studentID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return reconcile.ComputeStatus(assignment, payments)
}
