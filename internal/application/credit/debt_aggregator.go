package credit

import (
	"context"
	"time"

	"github.com/fiado/backend/internal/domain/credit"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// DebtAggregator computes a client's outstanding credit position from the store
type DebtAggregator struct {
	tolerance credit.Tolerance
	now       func() time.Time
}

// NewDebtAggregator creates a new DebtAggregator
func NewDebtAggregator(tol credit.Tolerance) *DebtAggregator {
	return &DebtAggregator{tolerance: tol, now: time.Now}
}

// Aggregate loads the client's credit sales and their unpaid installments and
// summarizes what is left to collect. A client without credit sales has no debt;
// that is not an error. Read failures are tagged with ErrStoreReadFailed.
func (a *DebtAggregator) Aggregate(ctx context.Context, repos credit.Repositories, clientID uuid.UUID) (*credit.DebtSummary, error) {
	summary, _, err := a.aggregate(ctx, repos, clientID)
	return summary, err
}

// aggregate also returns the pending sales that have no unpaid installment
// left. Those are sales whose completion write failed after their last
// installment was paid.
func (a *DebtAggregator) aggregate(ctx context.Context, repos credit.Repositories, clientID uuid.UUID) (*credit.DebtSummary, []uuid.UUID, error) {
	sales, err := repos.Sales.FindCreditSalesByClient(ctx, clientID)
	if err != nil {
		return nil, nil, storeReadFailed("load credit sales", err)
	}

	var installments []credit.Installment
	if len(sales) > 0 {
		saleIDs := lo.Map(sales, func(s credit.Sale, _ int) uuid.UUID { return s.ID })
		installments, err = repos.Installments.FindUnpaidBySales(ctx, saleIDs)
		if err != nil {
			return nil, nil, storeReadFailed("load installments", err)
		}
	}

	owing := lo.SliceToMap(installments, func(inst credit.Installment) (uuid.UUID, struct{}) {
		return inst.SaleID, struct{}{}
	})
	completable := lo.FilterMap(sales, func(sale credit.Sale, _ int) (uuid.UUID, bool) {
		_, unpaid := owing[sale.ID]
		return sale.ID, !sale.IsPaid() && !unpaid
	})

	return credit.SummarizeDebt(clientID, installments, a.now(), a.tolerance), completable, nil
}
