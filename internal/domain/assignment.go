package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Actor identifies the authenticated staff member behind a customization or
// an office payment. Supplied by the surrounding application.
type Actor struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

// Customization is a staff-authored override of specific fee types for one
// semester of one student's assignment. Customizations are append-only; the
// most recent value per fee type wins when fees are resolved.
type Customization struct {
	ID           uuid.UUID                   `json:"id" db:"id"`
	AssignmentID uuid.UUID                   `json:"assignment_id" db:"assignment_id"`
	Semester     int                         `json:"semester" db:"semester"`
	Overrides    map[FeeType]decimal.Decimal `json:"overrides" db:"-"`
	Reason       string                      `json:"reason" db:"reason"`
	CustomizedBy Actor                       `json:"customized_by" db:"-"`
	CustomizedAt time.Time                   `json:"customized_at" db:"customized_at"`
}

// FeeAssignment binds a student to a point-in-time snapshot of a fee
// structure. Created once, appended to via customizations, never deleted.
type FeeAssignment struct {
	ID             uuid.UUID            `json:"id" db:"id"`
	StudentID      string               `json:"student_id" db:"student_id"`
	Snapshot       FeeStructureSnapshot `json:"snapshot" db:"-"`
	Customizations []Customization      `json:"customizations" db:"-"`
	AssignedBy     Actor                `json:"assigned_by" db:"-"`
	IsActive       bool                 `json:"is_active" db:"is_active"`
	CreatedAt      time.Time            `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at" db:"updated_at"`
}

// DTOs for requests and responses

type CreateFeeStructureRequest struct {
	Program      string                      `json:"program" validate:"required"`
	AcademicYear string                      `json:"academic_year" validate:"required"`
	Semesters    []CreateSemesterFeesRequest `json:"semesters" validate:"required,min=1,dive"`
	HostelFee    decimal.Decimal             `json:"hostel_fee" validate:"gte=0"`
}

type CreateSemesterFeesRequest struct {
	Semester     int          `json:"semester" validate:"required,gt=0"`
	SemesterName string       `json:"semester_name" validate:"required"`
	Fees         FeeBreakdown `json:"fees"`
}

type AssignFeeStructureRequest struct {
	StructureID uuid.UUID `json:"structure_id" validate:"required"`
	AssignedBy  Actor     `json:"assigned_by" validate:"required"`
}

type AddCustomizationRequest struct {
	Semester     int                         `json:"semester" validate:"required,gt=0"`
	Overrides    map[FeeType]decimal.Decimal `json:"overrides" validate:"required,min=1"`
	Reason       string                      `json:"reason"`
	CustomizedBy Actor                       `json:"customized_by" validate:"required"`
}
