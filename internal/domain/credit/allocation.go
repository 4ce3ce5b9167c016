package credit

import (
	"sort"
	"time"

	"github.com/fiado/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlanEntry is the settlement of one installment within an allocation plan.
// PreviousAmountPaid and ExpectedVersion are the values the plan was computed
// from; stores use them to reject the write if the installment moved meanwhile.
type PlanEntry struct {
	InstallmentID      uuid.UUID
	SaleID             uuid.UUID
	DueDate            time.Time
	FaceAmount         decimal.Decimal
	PreviousAmountPaid decimal.Decimal
	PreviousStatus     InstallmentStatus
	ExpectedVersion    int
	AmountApplied      decimal.Decimal
	NewAmountPaid      decimal.Decimal
	NewStatus          InstallmentStatus
}

// SettlesInstallment reports whether this entry moves the installment to paid
func (e PlanEntry) SettlesInstallment() bool {
	return e.NewStatus == InstallmentStatusPaid && e.PreviousStatus != InstallmentStatusPaid
}

// AllocationPlan distributes one payment over a client's outstanding installments.
// TotalApplied + Remainder always equals PaymentAmount exactly.
type AllocationPlan struct {
	PaymentAmount decimal.Decimal
	Entries       []PlanEntry
	TotalApplied  decimal.Decimal
	Remainder     decimal.Decimal
}

// IsEmpty reports whether the plan touches no installment
func (p *AllocationPlan) IsEmpty() bool {
	return len(p.Entries) == 0
}

// SettledSaleCandidates returns, in plan order and without duplicates, the sales
// that had at least one installment moved to paid by the plan.
func (p *AllocationPlan) SettledSaleCandidates() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	sales := make([]uuid.UUID, 0)
	for _, entry := range p.Entries {
		if !entry.SettlesInstallment() {
			continue
		}
		if _, ok := seen[entry.SaleID]; ok {
			continue
		}
		seen[entry.SaleID] = struct{}{}
		sales = append(sales, entry.SaleID)
	}
	return sales
}

// AllocationEngine computes FIFO-by-maturity allocation plans
type AllocationEngine struct {
	tolerance Tolerance
}

// NewAllocationEngine creates an engine using the given tolerance
func NewAllocationEngine(tol Tolerance) *AllocationEngine {
	return &AllocationEngine{tolerance: tol}
}

// Tolerance returns the engine tolerance
func (e *AllocationEngine) Tolerance() Tolerance {
	return e.tolerance
}

// Allocate applies amount to the installments oldest due date first. Installments
// with nothing left to collect are skipped, and allocation stops once the
// remaining amount is within tolerance. An amount larger than the debt is not an
// error: the excess is returned as Remainder.
func (e *AllocationEngine) Allocate(installments []Installment, amount decimal.Decimal) (*AllocationPlan, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}

	plan := &AllocationPlan{
		PaymentAmount: amount,
		Entries:       make([]PlanEntry, 0),
		TotalApplied:  decimal.Zero,
	}
	remaining := amount

	for _, inst := range SortByMaturity(installments) {
		if e.tolerance.IsZero(remaining) {
			break
		}
		if !inst.IsOutstanding(e.tolerance) {
			continue
		}

		residual := inst.Residual()
		applied := decimal.Min(remaining, residual)
		newPaid := inst.AmountPaid.Add(applied)
		newStatus := InstallmentStatusPending
		if e.tolerance.Covers(newPaid, inst.FaceAmount) {
			newStatus = InstallmentStatusPaid
		}

		plan.Entries = append(plan.Entries, PlanEntry{
			InstallmentID:      inst.ID,
			SaleID:             inst.SaleID,
			DueDate:            inst.DueDate,
			FaceAmount:         inst.FaceAmount,
			PreviousAmountPaid: inst.AmountPaid,
			PreviousStatus:     inst.Status,
			ExpectedVersion:    inst.Version,
			AmountApplied:      applied,
			NewAmountPaid:      newPaid,
			NewStatus:          newStatus,
		})
		plan.TotalApplied = plan.TotalApplied.Add(applied)
		remaining = remaining.Sub(applied)
	}

	plan.Remainder = remaining
	return plan, nil
}

// SortByMaturity returns a copy of installments ordered by due date ascending.
// Ties fall back to schedule number, creation time, then id, so the order is total.
func SortByMaturity(installments []Installment) []Installment {
	sorted := make([]Installment, len(installments))
	copy(sorted, installments)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		if a.Number != b.Number {
			return a.Number < b.Number
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
	return sorted
}
