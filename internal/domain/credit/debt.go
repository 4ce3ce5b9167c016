package credit

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// DebtSummary is a client's outstanding credit position
type DebtSummary struct {
	ClientID           uuid.UUID
	TotalOutstanding   decimal.Decimal
	OverdueOutstanding decimal.Decimal
	OverdueCount       int
	Installments       []Installment // outstanding only, ordered by maturity
}

// HasDebt reports whether anything is left to collect
func (d *DebtSummary) HasDebt() bool {
	return len(d.Installments) > 0
}

// SummarizeDebt keeps the installments with a residual above tolerance and totals
// their residuals, separately for those overdue at now.
func SummarizeDebt(clientID uuid.UUID, installments []Installment, now time.Time, tol Tolerance) *DebtSummary {
	outstanding := lo.Filter(installments, func(inst Installment, _ int) bool {
		return inst.IsOutstanding(tol)
	})
	overdue := lo.Filter(outstanding, func(inst Installment, _ int) bool {
		return inst.IsOverdue(now)
	})

	return &DebtSummary{
		ClientID:           clientID,
		TotalOutstanding:   sumResiduals(outstanding),
		OverdueOutstanding: sumResiduals(overdue),
		OverdueCount:       len(overdue),
		Installments:       SortByMaturity(outstanding),
	}
}

func sumResiduals(installments []Installment) decimal.Decimal {
	return lo.Reduce(installments, func(acc decimal.Decimal, inst Installment, _ int) decimal.Decimal {
		return acc.Add(inst.Residual())
	}, decimal.Zero)
}
