package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeeType is the closed set of fee categories that make up a semester's dues.
type FeeType string

const (
	FeeTypeAdmission     FeeType = "admissionFee"
	FeeTypeExamPermitReg FeeType = "examPermitRegFee"
	FeeTypeSpecial       FeeType = "specialFee"
	FeeTypeTuition       FeeType = "tuitionFee"
	FeeTypeOthers        FeeType = "others"
)

// AllFeeTypes returns the fee types in their canonical display order.
func AllFeeTypes() []FeeType {
	return []FeeType{
		FeeTypeAdmission,
		FeeTypeExamPermitReg,
		FeeTypeSpecial,
		FeeTypeTuition,
		FeeTypeOthers,
	}
}

// IsValidFeeType reports whether t is one of the five known fee types.
func IsValidFeeType(t FeeType) bool {
	switch t {
	case FeeTypeAdmission, FeeTypeExamPermitReg, FeeTypeSpecial, FeeTypeTuition, FeeTypeOthers:
		return true
	}
	return false
}

// FeeBreakdown holds an amount for each of the five fee types. Fixed fields
// rather than a map so the closed set is compiler-checked.
type FeeBreakdown struct {
	AdmissionFee     decimal.Decimal `json:"admissionFee"`
	ExamPermitRegFee decimal.Decimal `json:"examPermitRegFee"`
	SpecialFee       decimal.Decimal `json:"specialFee"`
	TuitionFee       decimal.Decimal `json:"tuitionFee"`
	Others           decimal.Decimal `json:"others"`
}

// Amount returns the amount for a single fee type. Unknown types return zero.
func (b FeeBreakdown) Amount(t FeeType) decimal.Decimal {
	switch t {
	case FeeTypeAdmission:
		return b.AdmissionFee
	case FeeTypeExamPermitReg:
		return b.ExamPermitRegFee
	case FeeTypeSpecial:
		return b.SpecialFee
	case FeeTypeTuition:
		return b.TuitionFee
	case FeeTypeOthers:
		return b.Others
	}
	return decimal.Zero
}

// SetAmount overwrites the amount for a single fee type.
func (b *FeeBreakdown) SetAmount(t FeeType, amount decimal.Decimal) {
	switch t {
	case FeeTypeAdmission:
		b.AdmissionFee = amount
	case FeeTypeExamPermitReg:
		b.ExamPermitRegFee = amount
	case FeeTypeSpecial:
		b.SpecialFee = amount
	case FeeTypeTuition:
		b.TuitionFee = amount
	case FeeTypeOthers:
		b.Others = amount
	}
}

// Total sums all five fee types.
func (b FeeBreakdown) Total() decimal.Decimal {
	return b.AdmissionFee.
		Add(b.ExamPermitRegFee).
		Add(b.SpecialFee).
		Add(b.TuitionFee).
		Add(b.Others)
}

// SemesterFees is one semester's dues inside a fee structure or snapshot.
type SemesterFees struct {
	Semester     int             `json:"semester"`
	SemesterName string          `json:"semesterName"`
	Fees         FeeBreakdown    `json:"fees"`
	Total        decimal.Decimal `json:"total"`
}

// FeeStructure is a catalog entry: the dues for one program and academic year.
// Once referenced by an assignment it must never be edited in place; the
// assignment keeps its own snapshot.
type FeeStructure struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	Program      string          `json:"program" db:"program"`
	AcademicYear string          `json:"academic_year" db:"academic_year"`
	Semesters    []SemesterFees  `json:"semesters" db:"-"`
	GrandTotal   decimal.Decimal `json:"grand_total" db:"grand_total"`
	HostelFee    decimal.Decimal `json:"hostel_fee" db:"hostel_fee"`
	IsActive     bool            `json:"is_active" db:"is_active"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// FeeStructureSnapshot is the immutable copy embedded in an assignment.
type FeeStructureSnapshot struct {
	StructureID  uuid.UUID       `json:"structureId"`
	Program      string          `json:"program"`
	AcademicYear string          `json:"academicYear"`
	Semesters    []SemesterFees  `json:"semesters"`
	GrandTotal   decimal.Decimal `json:"grandTotal"`
	HostelFee    decimal.Decimal `json:"hostelFee"`
}

// Snapshot deep-copies the structure so later catalog edits never reach an
// active assignment.
func (f *FeeStructure) Snapshot() FeeStructureSnapshot {
	semesters := make([]SemesterFees, len(f.Semesters))
	copy(semesters, f.Semesters)
	return FeeStructureSnapshot{
		StructureID:  f.ID,
		Program:      f.Program,
		AcademicYear: f.AcademicYear,
		Semesters:    semesters,
		GrandTotal:   f.GrandTotal,
		HostelFee:    f.HostelFee,
	}
}

// Semester returns the snapshot entry for the given semester number.
func (s *FeeStructureSnapshot) Semester(semester int) (SemesterFees, bool) {
	for _, sem := range s.Semesters {
		if sem.Semester == semester {
			return sem, true
		}
	}
	return SemesterFees{}, false
}
