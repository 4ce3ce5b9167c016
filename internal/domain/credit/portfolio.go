package credit

import (
	"strings"
	"time"

	"github.com/fiado/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InstallmentView selects a slice of the installment portfolio
type InstallmentView string

const (
	InstallmentViewAll     InstallmentView = "all"
	InstallmentViewPending InstallmentView = "pending" // not paid and not yet due
	InstallmentViewOverdue InstallmentView = "overdue" // not paid and past due
	InstallmentViewPaid    InstallmentView = "paid"
)

// ParseInstallmentView parses a view name; empty means pending
func ParseInstallmentView(raw string) (InstallmentView, error) {
	switch v := InstallmentView(strings.ToLower(strings.TrimSpace(raw))); v {
	case "":
		return InstallmentViewPending, nil
	case InstallmentViewAll, InstallmentViewPending, InstallmentViewOverdue, InstallmentViewPaid:
		return v, nil
	}
	// legacy names from the POS frontend
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pendiente":
		return InstallmentViewPending, nil
	case "vencido":
		return InstallmentViewOverdue, nil
	case "pagado":
		return InstallmentViewPaid, nil
	}
	return "", shared.NewDomainError("INVALID_FILTER", "Unknown installment status filter: "+raw)
}

// Matches reports whether the installment belongs to the view at now
func (v InstallmentView) Matches(inst *Installment, now time.Time) bool {
	switch v {
	case InstallmentViewPending:
		return !inst.IsPaid() && !inst.IsOverdue(now)
	case InstallmentViewOverdue:
		return inst.IsOverdue(now)
	case InstallmentViewPaid:
		return inst.IsPaid()
	default:
		return true
	}
}

// PortfolioStats summarizes the installment portfolio
type PortfolioStats struct {
	ToCollect    decimal.Decimal // residual of pending installments not yet due
	Overdue      decimal.Decimal // residual of installments past due
	Recovered    decimal.Decimal // cash collected so far, partial payments included
	PendingCount int
	OverdueCount int
	PaidCount    int
}

// ComputePortfolioStats totals a set of installments at now
func ComputePortfolioStats(installments []Installment, now time.Time) PortfolioStats {
	stats := PortfolioStats{
		ToCollect: decimal.Zero,
		Overdue:   decimal.Zero,
		Recovered: decimal.Zero,
	}
	for i := range installments {
		inst := &installments[i]
		stats.Recovered = stats.Recovered.Add(inst.AmountPaid)
		switch {
		case inst.IsPaid():
			stats.PaidCount++
		case inst.IsOverdue(now):
			stats.OverdueCount++
			stats.Overdue = stats.Overdue.Add(inst.Residual())
		default:
			stats.PendingCount++
			stats.ToCollect = stats.ToCollect.Add(inst.Residual())
		}
	}
	return stats
}
