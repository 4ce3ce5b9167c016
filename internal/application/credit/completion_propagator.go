package credit

import (
	"context"
	"fmt"

	"github.com/fiado/backend/internal/domain/credit"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// SaleCompletionPropagator settles a sale once every installment of it is paid
type SaleCompletionPropagator struct{}

// NewSaleCompletionPropagator creates a new SaleCompletionPropagator
func NewSaleCompletionPropagator() *SaleCompletionPropagator {
	return &SaleCompletionPropagator{}
}

// Propagate re-reads the installments of saleID and marks the sale paid when all
// of them are paid. It returns the sale when this call settled it, nil otherwise.
// A sale already paid is left alone; a sale is never moved back to pending.
func (p *SaleCompletionPropagator) Propagate(ctx context.Context, repos credit.Repositories, saleID uuid.UUID) (*credit.Sale, error) {
	installments, err := repos.Installments.FindBySale(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load installments of sale %s: %w", saleID, err)
	}
	if len(installments) == 0 {
		return nil, nil
	}
	allPaid := lo.EveryBy(installments, func(inst credit.Installment) bool {
		return inst.IsPaid()
	})
	if !allPaid {
		return nil, nil
	}

	sale, err := repos.Sales.FindByID(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sale %s: %w", saleID, notFoundAs(err, ErrSaleNotFound))
	}
	if !sale.MarkPaid() {
		return nil, nil
	}

	changed, err := repos.Sales.MarkPaid(ctx, sale.ID, *sale.SettledAt)
	if err != nil {
		return nil, fmt.Errorf("failed to mark sale %s paid: %w", saleID, err)
	}
	if !changed {
		// settled concurrently by another payment
		return nil, nil
	}
	return sale, nil
}
