// Package reconcile derives payment status from an assignment and its ledger.
// Everything here is a pure function of its inputs so the same snapshot of
// data always reconciles to the same result.
package reconcile

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/loop2cod/madin-fee-engine/internal/domain"
	customError "github.com/loop2cod/madin-fee-engine/pkg/errors"
	"github.com/loop2cod/madin-fee-engine/pkg/utils"
)

const (
	FeeStatusUnpaid        = "unpaid"
	FeeStatusPartiallyPaid = "partially_paid"
	FeeStatusFullyPaid     = "fully_paid"
)

// statusRank orders statuses so a semester aggregates to the minimum of its
// fee-type statuses: unpaid < partially_paid < fully_paid.
func statusRank(status string) int {
	switch status {
	case FeeStatusUnpaid:
		return 0
	case FeeStatusPartiallyPaid:
		return 1
	default:
		return 2
	}
}

// FeeTypeState is the derived position of a single fee type in a semester.
type FeeTypeState struct {
	Due       decimal.Decimal `json:"due"`
	Paid      decimal.Decimal `json:"paid"`
	Remaining decimal.Decimal `json:"remaining"`
	Status    string          `json:"status"`
}

// SemesterStatus is the derived position of one semester.
type SemesterStatus struct {
	Semester     int                              `json:"semester"`
	SemesterName string                           `json:"semester_name"`
	FeeTypes     map[domain.FeeType]*FeeTypeState `json:"fee_types"`
	TotalDue     decimal.Decimal                  `json:"total_due"`
	TotalPaid    decimal.Decimal                  `json:"total_paid"`
	Outstanding  decimal.Decimal                  `json:"outstanding"`
	Status       string                           `json:"status"`
}

// StudentStatus is the derived position of the whole assignment, with the
// hostel fee carried as its own pseudo-semester.
type StudentStatus struct {
	StudentID   string           `json:"student_id"`
	Semesters   []SemesterStatus `json:"semesters"`
	Hostel      *FeeTypeState    `json:"hostel,omitempty"`
	TotalDue    decimal.Decimal  `json:"total_due"`
	TotalPaid   decimal.Decimal  `json:"total_paid"`
	Outstanding decimal.Decimal  `json:"outstanding"`
	Status      string           `json:"status"`
}

// FindSemester returns the status entry for a semester number, or nil.
func (s *StudentStatus) FindSemester(semester int) *SemesterStatus {
	for i := range s.Semesters {
		if s.Semesters[i].Semester == semester {
			return &s.Semesters[i]
		}
	}
	return nil
}

// EffectiveFees resolves the dues for one semester: the snapshot amounts with
// customizations folded in, oldest first, so the most recent override per fee
// type wins. A negative resolved amount is a data error, never a discount.
func EffectiveFees(assignment *domain.FeeAssignment, semester int) (domain.FeeBreakdown, error) {
	sem, ok := assignment.Snapshot.Semester(semester)
	if !ok {
		return domain.FeeBreakdown{}, customError.WrapSemesterNotFound(semester)
	}

	customizations := make([]domain.Customization, 0, len(assignment.Customizations))
	for _, c := range assignment.Customizations {
		if c.Semester == semester {
			customizations = append(customizations, c)
		}
	}
	sort.SliceStable(customizations, func(i, j int) bool {
		return customizations[i].CustomizedAt.Before(customizations[j].CustomizedAt)
	})

	fees := sem.Fees
	for _, c := range customizations {
		for feeType, amount := range c.Overrides {
			if !domain.IsValidFeeType(feeType) {
				return domain.FeeBreakdown{}, customError.WrapDataIntegrity(
					fmt.Sprintf("customization %s references unknown fee type %q", c.ID, feeType), nil)
			}
			if amount.IsNegative() {
				return domain.FeeBreakdown{}, customError.WrapDataIntegrity(
					fmt.Sprintf("customization %s sets %s to a negative amount", c.ID, feeType), nil)
			}
			fees.SetAmount(feeType, amount)
		}
	}

	for _, feeType := range domain.AllFeeTypes() {
		if fees.Amount(feeType).IsNegative() {
			return domain.FeeBreakdown{}, customError.WrapDataIntegrity(
				fmt.Sprintf("effective %s for semester %d is negative", feeType, semester), nil)
		}
	}

	return fees, nil
}

// ValidateSnapshot checks the snapshot invariant that every semester total
// equals the sum of its breakdown. Financial data that disagrees with itself
// halts computation instead of guessing.
func ValidateSnapshot(snapshot domain.FeeStructureSnapshot) error {
	for _, sem := range snapshot.Semesters {
		if !sem.Total.Equal(sem.Fees.Total()) {
			return customError.WrapDataIntegrity(
				fmt.Sprintf("semester %d total %s disagrees with breakdown sum %s",
					sem.Semester, sem.Total, sem.Fees.Total()), nil)
		}
	}
	return nil
}

// ComputeStatus reconciles the full ledger against the assignment. Only
// completed payments count; a refunded payment contributes nothing and a
// partial refund contributes its unrefunded portion, spread proportionally
// across the payment's breakdown. Over-payment clamps to fully paid with
// zero remaining.
func ComputeStatus(assignment *domain.FeeAssignment, payments []*domain.Payment) (*StudentStatus, error) {
	paidByKey := make(map[string]decimal.Decimal)
	hostelPaid := decimal.Zero

	for _, p := range payments {
		if !domain.CountsTowardBalance(p.PaymentStatus) {
			continue
		}
		net := netAmount(p)
		if !net.IsPositive() {
			continue
		}

		if p.PaymentType == domain.PaymentTypeHostel {
			hostelPaid = hostelPaid.Add(net)
			continue
		}
		for i, share := range allocateNet(p.Breakdown, net, p.AmountPaid) {
			key := entryKey(p.Breakdown[i].Semester, p.Breakdown[i].FeeType)
			paidByKey[key] = paidByKey[key].Add(share)
		}
	}

	result := &StudentStatus{
		StudentID: assignment.StudentID,
		Semesters: make([]SemesterStatus, 0, len(assignment.Snapshot.Semesters)),
	}

	for _, sem := range assignment.Snapshot.Semesters {
		fees, err := EffectiveFees(assignment, sem.Semester)
		if err != nil {
			return nil, err
		}

		semStatus := SemesterStatus{
			Semester:     sem.Semester,
			SemesterName: sem.SemesterName,
			FeeTypes:     make(map[domain.FeeType]*FeeTypeState, 5),
		}
		for _, feeType := range domain.AllFeeTypes() {
			due := fees.Amount(feeType)
			paid := paidByKey[entryKey(sem.Semester, feeType)]
			state := feeTypeState(due, paid)
			semStatus.FeeTypes[feeType] = state

			semStatus.TotalDue = semStatus.TotalDue.Add(due)
			semStatus.TotalPaid = semStatus.TotalPaid.Add(state.Paid)
			semStatus.Outstanding = semStatus.Outstanding.Add(state.Remaining)
		}
		semStatus.Status = aggregateStatus(semStatus.FeeTypes)

		result.Semesters = append(result.Semesters, semStatus)
		result.TotalDue = result.TotalDue.Add(semStatus.TotalDue)
		result.TotalPaid = result.TotalPaid.Add(semStatus.TotalPaid)
		result.Outstanding = result.Outstanding.Add(semStatus.Outstanding)
	}

	if assignment.Snapshot.HostelFee.IsPositive() {
		hostel := feeTypeState(assignment.Snapshot.HostelFee, hostelPaid)
		result.Hostel = hostel
		result.TotalDue = result.TotalDue.Add(hostel.Due)
		result.TotalPaid = result.TotalPaid.Add(hostel.Paid)
		result.Outstanding = result.Outstanding.Add(hostel.Remaining)
	}

	result.Status = overallStatus(result)

	return result, nil
}

// netAmount returns how much of a payment still counts after refunds: the
// full amount for completed, zero for refunded, the unrefunded remainder for
// a partial refund.
func netAmount(p *domain.Payment) decimal.Decimal {
	switch p.PaymentStatus {
	case domain.PaymentStatusRefunded:
		return decimal.Zero
	case domain.PaymentStatusPartialRefund:
		remaining := p.AmountPaid.Sub(p.RefundedAmount)
		if remaining.IsNegative() {
			return decimal.Zero
		}
		return remaining
	default:
		return p.AmountPaid
	}
}

// allocateNet spreads a payment's unrefunded amount across its breakdown
// entries without fractional residue: each share is rounded money and the
// shares sum to exactly net. Repeating-fraction amounts must never leak into
// balances, where they would surface as unpayable sub-paise remainders.
func allocateNet(breakdown []domain.BreakdownEntry, net, gross decimal.Decimal) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(breakdown))
	if len(breakdown) == 0 || !gross.IsPositive() {
		return shares
	}
	if net.Equal(gross) {
		for i, entry := range breakdown {
			shares[i] = entry.Amount
		}
		return shares
	}

	allocated := decimal.Zero
	for i, entry := range breakdown[:len(breakdown)-1] {
		share := utils.RoundMoney(entry.Amount.Mul(net).Div(gross))
		shares[i] = share
		allocated = allocated.Add(share)
	}
	// The last entry absorbs the rounding remainder so the total matches the
	// ledger exactly.
	shares[len(breakdown)-1] = net.Sub(allocated)
	return shares
}

func feeTypeState(due, paid decimal.Decimal) *FeeTypeState {
	remaining := due.Sub(paid)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	// Over-payment clamps: report at most the due amount as paid.
	reported := paid
	if reported.GreaterThan(due) {
		reported = due
	}

	status := FeeStatusUnpaid
	switch {
	case remaining.IsZero():
		status = FeeStatusFullyPaid
	case paid.IsPositive():
		status = FeeStatusPartiallyPaid
	}

	return &FeeTypeState{
		Due:       due,
		Paid:      reported,
		Remaining: remaining,
		Status:    status,
	}
}

func aggregateStatus(feeTypes map[domain.FeeType]*FeeTypeState) string {
	status := FeeStatusFullyPaid
	for _, state := range feeTypes {
		if statusRank(state.Status) < statusRank(status) {
			status = state.Status
		}
	}
	return status
}

func overallStatus(s *StudentStatus) string {
	switch {
	case s.Outstanding.IsZero():
		return FeeStatusFullyPaid
	case s.TotalPaid.IsPositive():
		return FeeStatusPartiallyPaid
	default:
		return FeeStatusUnpaid
	}
}

func entryKey(semester int, feeType domain.FeeType) string {
	return fmt.Sprintf("%d:%s", semester, feeType)
}
