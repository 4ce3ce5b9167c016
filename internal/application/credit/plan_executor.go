package credit

import (
	"context"
	"fmt"
	"time"

	"github.com/fiado/backend/internal/domain/credit"
	"github.com/fiado/backend/internal/domain/shared"
	"github.com/fiado/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// planExecutor writes allocation plans through a credit.Store and publishes the
// resulting events. On a store without transactions it undoes a half-written
// plan with compensating writes.
type planExecutor struct {
	store        credit.Store
	applier      *SettlementApplier
	publisher    shared.EventPublisher
	metrics      *telemetry.CreditMetrics
	storeTimeout time.Duration
	logger       *zap.Logger
}

// execution is the result of one plan run. When err is set, Residue lists the
// entries whose writes could not be undone; empty means nothing stayed applied.
type execution struct {
	Outcome *SettlementOutcome
	Residue []AppliedEntry
	Err     error
}

func (e *execution) partial() bool {
	return e.Err != nil && len(e.Residue) > 0
}

func (x *planExecutor) execute(ctx context.Context, plan *credit.AllocationPlan, pc credit.PaymentContext) *execution {
	transactional := x.store.Transactional()

	var outcome *SettlementOutcome
	err := x.store.Atomic(ctx, func(ctx context.Context, repos credit.Repositories) error {
		outcome = x.applier.Apply(ctx, withTimeout(repos, x.storeTimeout), plan, pc, !transactional)
		if outcome.Failed != nil {
			return fmt.Errorf("%s failed for installment %s: %w",
				outcome.Failed.Stage, outcome.Failed.Entry.InstallmentID, outcome.Failed.Err)
		}
		return nil
	})
	if outcome == nil {
		outcome = &SettlementOutcome{}
	}
	if err == nil {
		return &execution{Outcome: outcome}
	}
	if transactional {
		return &execution{Outcome: outcome, Err: err}
	}

	written := outcome.Written()
	if len(written) == 0 {
		return &execution{Outcome: outcome, Err: err}
	}

	reason := fmt.Sprintf("payment %s not completed", pc.ReceiptNo)
	reverted, cerr := x.compensate(ctx, written, reason)
	x.metrics.RecordCompensation(ctx, reverted)
	if cerr != nil {
		x.logger.Error("Compensation failed, payment left partially applied",
			zap.String("receipt_no", pc.ReceiptNo),
			zap.Int("written", len(written)),
			zap.Int("reverted", reverted),
			zap.Error(cerr),
		)
		return &execution{Outcome: outcome, Residue: written[:len(written)-reverted], Err: err}
	}

	x.logger.Warn("Payment rolled back by compensation",
		zap.String("receipt_no", pc.ReceiptNo),
		zap.Int("reverted", reverted),
		zap.Error(err),
	)
	return &execution{Outcome: outcome, Err: err}
}

// compensate restores written entries newest first and books a reversal for each
// ledger record. It stops at the first failed write and reports how many
// installments were restored.
func (x *planExecutor) compensate(ctx context.Context, written []AppliedEntry, reason string) (int, error) {
	ctx = context.WithoutCancel(ctx)
	repos := withTimeout(x.store.Repositories(), x.storeTimeout)

	reverted := 0
	for i := len(written) - 1; i >= 0; i-- {
		entry := written[i]
		if err := repos.Installments.RevertPayment(ctx, entry.Entry); err != nil {
			return reverted, fmt.Errorf("revert installment %s: %w", entry.Entry.InstallmentID, err)
		}
		reverted++
		if entry.Record == nil {
			continue
		}
		if err := repos.Payments.Append(ctx, credit.NewReversalRecord(entry.Record, reason)); err != nil {
			return reverted, fmt.Errorf("append reversal for installment %s: %w", entry.Entry.InstallmentID, err)
		}
	}
	return reverted, nil
}

// publish delivers events after the writes are durable. Handler failures never
// fail the payment.
func (x *planExecutor) publish(ctx context.Context, events ...shared.DomainEvent) {
	if x.publisher == nil || len(events) == 0 {
		return
	}
	if err := x.publisher.Publish(ctx, events...); err != nil {
		x.logger.Warn("Failed to publish credit events", zap.Int("events", len(events)), zap.Error(err))
	}
}
