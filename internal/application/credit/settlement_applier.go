package credit

import (
	"context"
	"fmt"

	"github.com/fiado/backend/internal/domain/credit"
	"github.com/fiado/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// SettlementStage names the write that failed inside a plan entry
type SettlementStage string

const (
	StageUpdate    SettlementStage = "update_installment"
	StageRecord    SettlementStage = "append_record"
	StagePropagate SettlementStage = "settle_sale"
)

// AppliedEntry is a plan entry whose installment update and ledger record were both written
type AppliedEntry struct {
	Entry  credit.PlanEntry
	Record *credit.PaymentRecord
}

// FailedEntry is the plan entry at which settlement stopped
type FailedEntry struct {
	Entry credit.PlanEntry
	Stage SettlementStage
	Err   error
}

// SettlementOutcome reports what a settlement run wrote.
// Applied holds the fully written entries in plan order. UnsettledSales lists
// sales whose installments are all paid but whose completion write failed.
type SettlementOutcome struct {
	Applied        []AppliedEntry
	Failed         *FailedEntry
	SettledSales   []*credit.Sale
	UnsettledSales []uuid.UUID
}

// Complete reports whether every plan entry was applied
func (o *SettlementOutcome) Complete() bool {
	return o.Failed == nil
}

// Written returns the entries whose installment row currently holds the new
// amount: the applied ones plus an entry that failed after its update.
func (o *SettlementOutcome) Written() []AppliedEntry {
	written := append([]AppliedEntry(nil), o.Applied...)
	if o.Failed != nil && o.Failed.Stage == StageRecord {
		written = append(written, AppliedEntry{Entry: o.Failed.Entry})
	}
	return written
}

// Events returns the domain events raised by the applied entries
func (o *SettlementOutcome) Events() []shared.DomainEvent {
	events := make([]shared.DomainEvent, 0)
	for _, applied := range o.Applied {
		if !applied.Entry.SettlesInstallment() {
			continue
		}
		inst := &credit.Installment{
			BaseAggregateRoot: shared.BaseAggregateRoot{BaseEntity: shared.BaseEntity{ID: applied.Entry.InstallmentID}},
			SaleID:            applied.Entry.SaleID,
			FaceAmount:        applied.Entry.FaceAmount,
			AmountPaid:        applied.Entry.NewAmountPaid,
			Status:            applied.Entry.NewStatus,
		}
		if applied.Record != nil {
			paidAt := applied.Record.CreatedAt
			inst.PaidAt = &paidAt
		}
		events = append(events, credit.NewInstallmentPaidEvent(inst))
	}
	for _, sale := range o.SettledSales {
		events = append(events, sale.GetDomainEvents()...)
	}
	return events
}

// SettlementApplier writes an allocation plan to the store one entry at a time
type SettlementApplier struct {
	propagator *SaleCompletionPropagator
	logger     *zap.Logger
}

// NewSettlementApplier creates a new SettlementApplier
func NewSettlementApplier(propagator *SaleCompletionPropagator, logger *zap.Logger) *SettlementApplier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettlementApplier{propagator: propagator, logger: logger}
}

// Apply writes the plan entries in order: the conditional installment update,
// then one ledger record. It stops at the first failure.
//
// With deferSales false the sale of an installment that became paid is checked
// right after that entry. With deferSales true those checks run once every
// entry is written, so a failure mid-plan never leaves a sale settled. A
// deferred check that fails does not fail the plan: the installments stay paid
// and the sale is listed in UnsettledSales for a later completion check.
func (a *SettlementApplier) Apply(
	ctx context.Context,
	repos credit.Repositories,
	plan *credit.AllocationPlan,
	pc credit.PaymentContext,
	deferSales bool,
) *SettlementOutcome {
	outcome := &SettlementOutcome{
		Applied:      make([]AppliedEntry, 0, len(plan.Entries)),
		SettledSales: make([]*credit.Sale, 0),
	}

	for _, entry := range plan.Entries {
		if err := repos.Installments.ApplyPayment(ctx, entry); err != nil {
			outcome.Failed = &FailedEntry{Entry: entry, Stage: StageUpdate, Err: err}
			return outcome
		}

		record, err := credit.NewPaymentRecord(entry, pc)
		if err == nil {
			err = repos.Payments.Append(ctx, record)
		}
		if err != nil {
			outcome.Failed = &FailedEntry{Entry: entry, Stage: StageRecord, Err: err}
			return outcome
		}
		outcome.Applied = append(outcome.Applied, AppliedEntry{Entry: entry, Record: record})

		a.logger.Debug("Installment payment applied",
			zap.String("installment_id", entry.InstallmentID.String()),
			zap.String("amount_applied", entry.AmountApplied.String()),
			zap.String("new_status", string(entry.NewStatus)),
		)

		if !deferSales && entry.SettlesInstallment() {
			if failed := a.settleSale(ctx, repos, entry, outcome); failed != nil {
				outcome.Failed = failed
				return outcome
			}
		}
	}

	if deferSales {
		saleIDs := lo.Uniq(lo.FilterMap(outcome.Applied, func(applied AppliedEntry, _ int) (uuid.UUID, bool) {
			return applied.Entry.SaleID, applied.Entry.SettlesInstallment()
		}))
		outcome.SettledSales, outcome.UnsettledSales = a.CompleteSales(ctx, repos, saleIDs)
	}
	return outcome
}

// CompleteSales runs the completion check for each sale. It returns the sales
// settled by this call and the ones whose check failed, which are logged and
// left pending.
func (a *SettlementApplier) CompleteSales(ctx context.Context, repos credit.Repositories, saleIDs []uuid.UUID) ([]*credit.Sale, []uuid.UUID) {
	settled := make([]*credit.Sale, 0)
	var unsettled []uuid.UUID
	for _, saleID := range saleIDs {
		sale, err := a.propagator.Propagate(ctx, repos, saleID)
		if err != nil {
			a.logger.Warn("Sale completion check failed, sale left pending",
				zap.String("sale_id", saleID.String()),
				zap.Error(err),
			)
			unsettled = append(unsettled, saleID)
			continue
		}
		if sale != nil {
			settled = append(settled, sale)
		}
	}
	return settled, unsettled
}

func (a *SettlementApplier) settleSale(ctx context.Context, repos credit.Repositories, entry credit.PlanEntry, outcome *SettlementOutcome) *FailedEntry {
	sale, err := a.propagator.Propagate(ctx, repos, entry.SaleID)
	if err != nil {
		return &FailedEntry{Entry: entry, Stage: StagePropagate, Err: fmt.Errorf("sale completion: %w", err)}
	}
	if sale != nil {
		outcome.SettledSales = append(outcome.SettledSales, sale)
	}
	return nil
}
