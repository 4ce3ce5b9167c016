package credit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fiado/backend/internal/domain/credit"
	"github.com/fiado/backend/internal/domain/shared"
	"github.com/fiado/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// PaymentServiceConfig holds the payment registration settings
type PaymentServiceConfig struct {
	// MaxRetries is how many times a plan rejected by a concurrent write is
	// recomputed from fresh balances. Default: 3
	MaxRetries int
	// StoreTimeout bounds each store call. Default: 5s
	StoreTimeout time.Duration
	Idempotency  shared.IdempotencyConfig
}

// DefaultPaymentServiceConfig returns the default configuration
func DefaultPaymentServiceConfig() PaymentServiceConfig {
	return PaymentServiceConfig{
		MaxRetries:   3,
		StoreTimeout: 5 * time.Second,
		Idempotency:  shared.DefaultIdempotencyConfig(),
	}
}

// PaymentServiceOption configures PaymentService
type PaymentServiceOption func(*PaymentService)

// WithPaymentConfig replaces the default configuration
func WithPaymentConfig(cfg PaymentServiceConfig) PaymentServiceOption {
	return func(s *PaymentService) {
		if cfg.MaxRetries < 0 {
			cfg.MaxRetries = 0
		}
		s.cfg = cfg
	}
}

// WithReplayStore enables Idempotency-Key handling
func WithReplayStore(store shared.ReplayStore) PaymentServiceOption {
	return func(s *PaymentService) {
		s.replay = store
	}
}

// WithEventPublisher sets the publisher for payment events
func WithEventPublisher(publisher shared.EventPublisher) PaymentServiceOption {
	return func(s *PaymentService) {
		s.executor.publisher = publisher
	}
}

// WithCreditMetrics sets the metrics recorder
func WithCreditMetrics(metrics *telemetry.CreditMetrics) PaymentServiceOption {
	return func(s *PaymentService) {
		s.metrics = metrics
		s.executor.metrics = metrics
	}
}

// WithPaymentLogger sets the logger
func WithPaymentLogger(logger *zap.Logger) PaymentServiceOption {
	return func(s *PaymentService) {
		s.logger = logger
		s.executor.logger = logger
		s.executor.applier.logger = logger
	}
}

// PaymentService registers client payments against their installment schedules
type PaymentService struct {
	store      credit.Store
	aggregator *DebtAggregator
	engine     *credit.AllocationEngine
	receipts   ReceiptNumberGenerator
	executor   *planExecutor
	replay     shared.ReplayStore
	metrics    *telemetry.CreditMetrics
	cfg        PaymentServiceConfig
	logger     *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	store credit.Store,
	engine *credit.AllocationEngine,
	receipts ReceiptNumberGenerator,
	opts ...PaymentServiceOption,
) *PaymentService {
	logger := zap.NewNop()
	s := &PaymentService{
		store:      store,
		aggregator: NewDebtAggregator(engine.Tolerance()),
		engine:     engine,
		receipts:   receipts,
		executor: &planExecutor{
			store:   store,
			applier: NewSettlementApplier(NewSaleCompletionPropagator(), logger),
			logger:  logger,
		},
		cfg:    DefaultPaymentServiceConfig(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.executor.storeTimeout = s.cfg.StoreTimeout
	return s
}

// paymentCommand is a validated RegisterPaymentInput
type paymentCommand struct {
	clientID  uuid.UUID
	amount    decimal.Decimal
	method    credit.PaymentMethod
	reference string
	userID    uuid.UUID
	channel   Channel
}

// RegisterPayment spreads a client payment over the client's outstanding
// installments, oldest due date first.
//
// A client without debt gets a no_debt result with the whole amount as
// remainder. A plan rejected by a concurrent write is recomputed up to
// MaxRetries times. A partial result (status partial, nil error) is only
// possible on a non-transactional store whose compensation also failed.
func (s *PaymentService) RegisterPayment(ctx context.Context, in RegisterPaymentInput) (*PaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "credit", "register_payment")
	defer span.End()

	if in.Channel == "" {
		in.Channel = ChannelGlobal
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrClientID, in.ClientID,
		telemetry.SpanAttrAmount, in.Amount.String(),
		telemetry.SpanAttrPaymentMethod, in.Method,
		telemetry.SpanAttrChannel, string(in.Channel),
	)

	started := time.Now()
	var result *PaymentResult
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.CreditOperationLabels(telemetry.OperationRegisterPayment, string(in.Channel)), func(c context.Context) {
		cmd, err := s.validate(in)
		if err != nil {
			operationErr = err
			return
		}
		if in.IdempotencyKey != "" && s.replay != nil && s.cfg.Idempotency.Enabled {
			key := "credit:payment:" + cmd.userID.String() + ":" + in.IdempotencyKey
			result, operationErr = s.withIdempotency(c, key, func(c context.Context) (*PaymentResult, error) {
				return s.allocateAndSettle(c, cmd)
			})
			return
		}
		result, operationErr = s.allocateAndSettle(c, cmd)
	})

	if operationErr != nil {
		telemetry.RecordError(span, operationErr)
		s.metrics.RecordPayment(ctx, string(in.Channel), methodLabel(in.Method), telemetry.PaymentOutcomeFailed,
			decimal.Zero, decimal.Zero, time.Since(started))
		return nil, operationErr
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrReceiptNo, result.ReceiptNo,
		telemetry.SpanAttrAmountApplied, result.AmountApplied.String(),
		telemetry.SpanAttrRemainder, result.Remainder.String(),
		"status", result.Status,
		"replayed", result.Replayed,
	)
	if !result.Replayed {
		s.metrics.RecordPayment(ctx, string(in.Channel), methodLabel(in.Method), result.Status,
			result.AmountApplied, result.Remainder, time.Since(started))
	}
	return result, nil
}

func (s *PaymentService) validate(in RegisterPaymentInput) (*paymentCommand, error) {
	raw := strings.TrimSpace(in.ClientID)
	if raw == "" {
		return nil, validationError("client_id is required")
	}
	clientID, err := uuid.Parse(raw)
	if err != nil || clientID == uuid.Nil {
		return nil, validationError("client_id must be a valid UUID")
	}
	if !in.Amount.IsPositive() {
		return nil, validationError("amount must be greater than 0")
	}
	method, err := credit.ParseSettlementMethod(in.Method)
	if err != nil {
		return nil, validationError(err.Error())
	}
	reference, err := normalizeReference(in.Reference)
	if err != nil {
		return nil, err
	}
	return &paymentCommand{
		clientID:  clientID,
		amount:    in.Amount,
		method:    method,
		reference: reference,
		userID:    in.UserID,
		channel:   in.Channel,
	}, nil
}

// normalizeReference trims and NFC-normalizes a free-text reference
func normalizeReference(raw string) (string, error) {
	ref := norm.NFC.String(strings.TrimSpace(raw))
	if utf8.RuneCountInString(ref) > credit.MaxReferenceLength {
		return "", validationError(fmt.Sprintf("reference cannot exceed %d characters", credit.MaxReferenceLength))
	}
	return ref, nil
}

func methodLabel(raw string) string {
	method, err := credit.ParseSettlementMethod(raw)
	if err != nil {
		return "invalid"
	}
	return string(method)
}

func (s *PaymentService) allocateAndSettle(ctx context.Context, cmd *paymentCommand) (*PaymentResult, error) {
	repos := withTimeout(s.store.Repositories(), s.cfg.StoreTimeout)

	for attempt := 0; ; attempt++ {
		summary, completable, err := s.aggregator.aggregate(ctx, repos, cmd.clientID)
		if err != nil {
			return nil, err
		}
		if attempt == 0 && len(completable) > 0 {
			s.completeSales(ctx, repos, completable)
		}
		if !summary.HasDebt() {
			return noDebtResult(cmd), nil
		}

		plan, err := s.engine.Allocate(summary.Installments, cmd.amount)
		if err != nil {
			return nil, err
		}
		pc := credit.PaymentContext{
			ClientID:   cmd.clientID,
			UserID:     cmd.userID,
			Method:     cmd.method,
			Reference:  cmd.reference,
			ChannelTag: cmd.channel.Tag(),
		}
		if plan.IsEmpty() {
			return buildResult(cmd.clientID, plan, pc, &SettlementOutcome{}), nil
		}
		pc.ReceiptNo = s.receipts.NextReceiptNo()

		run := s.executor.execute(ctx, plan, pc)
		if run.Err == nil {
			s.afterSettlement(ctx, plan, pc, run.Outcome)
			return buildResult(cmd.clientID, plan, pc, run.Outcome), nil
		}
		if run.partial() {
			return partialResult(cmd.clientID, plan, pc, run.Residue), nil
		}
		if errors.Is(run.Err, shared.ErrConcurrencyConflict) && attempt < s.cfg.MaxRetries {
			s.metrics.RecordConflict(ctx, string(cmd.channel))
			s.logger.Info("Allocation plan conflicted with a concurrent write, retrying",
				zap.String("client_id", cmd.clientID.String()),
				zap.Int("attempt", attempt+1),
			)
			continue
		}
		return nil, fmt.Errorf("failed to apply payment: %w", run.Err)
	}
}

// SettleInstallment pays the full residual of one installment through the same
// plan, ledger and sale-completion path as a client payment.
func (s *PaymentService) SettleInstallment(ctx context.Context, in SettleInstallmentInput) (*PaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "credit", "settle_installment")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrInstallmentID, in.InstallmentID.String())

	started := time.Now()
	var result *PaymentResult
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.CreditOperationLabels(telemetry.OperationSettleDirect, ""), func(c context.Context) {
		result, operationErr = s.settleInstallment(c, in)
	})
	if operationErr != nil {
		telemetry.RecordError(span, operationErr)
		s.metrics.RecordPayment(ctx, string(ChannelGlobal), methodLabel(in.Method), telemetry.PaymentOutcomeFailed,
			decimal.Zero, decimal.Zero, time.Since(started))
		return nil, operationErr
	}
	s.metrics.RecordPayment(ctx, string(ChannelGlobal), methodLabel(in.Method), result.Status,
		result.AmountApplied, result.Remainder, time.Since(started))
	return result, nil
}

func (s *PaymentService) settleInstallment(ctx context.Context, in SettleInstallmentInput) (*PaymentResult, error) {
	method, err := credit.ParseSettlementMethod(in.Method)
	if err != nil {
		return nil, validationError(err.Error())
	}
	reference, err := normalizeReference(in.Reference)
	if err != nil {
		return nil, err
	}

	repos := withTimeout(s.store.Repositories(), s.cfg.StoreTimeout)
	inst, err := repos.Installments.FindByID(ctx, in.InstallmentID)
	if err != nil {
		return nil, storeReadFailed("load installment", notFoundAs(err, ErrInstallmentMissing))
	}
	if !inst.IsOutstanding(s.engine.Tolerance()) {
		return nil, ErrInstallmentSettled
	}
	sale, err := repos.Sales.FindByID(ctx, inst.SaleID)
	if err != nil {
		return nil, storeReadFailed("load sale", notFoundAs(err, ErrSaleNotFound))
	}
	clientID := lo.FromPtr(sale.ClientID)

	plan, err := s.engine.Allocate([]credit.Installment{*inst}, inst.Residual())
	if err != nil {
		return nil, err
	}
	if plan.IsEmpty() {
		return nil, ErrInstallmentSettled
	}
	pc := credit.PaymentContext{
		ClientID:   clientID,
		UserID:     in.UserID,
		Method:     method,
		Reference:  reference,
		ChannelTag: ChannelGlobal.Tag(),
		ReceiptNo:  s.receipts.NextReceiptNo(),
	}

	run := s.executor.execute(ctx, plan, pc)
	switch {
	case run.Err == nil:
		s.afterSettlement(ctx, plan, pc, run.Outcome)
		return buildResult(clientID, plan, pc, run.Outcome), nil
	case run.partial():
		return partialResult(clientID, plan, pc, run.Residue), nil
	default:
		return nil, fmt.Errorf("failed to settle installment: %w", run.Err)
	}
}

func (s *PaymentService) afterSettlement(ctx context.Context, plan *credit.AllocationPlan, pc credit.PaymentContext, outcome *SettlementOutcome) {
	settledInstallments := lo.CountBy(plan.Entries, func(e credit.PlanEntry) bool { return e.SettlesInstallment() })
	s.metrics.RecordSettlements(ctx, settledInstallments, len(outcome.SettledSales))

	events := []shared.DomainEvent{credit.NewPaymentRegisteredEvent(pc, plan)}
	events = append(events, outcome.Events()...)
	s.executor.publish(ctx, events...)
}

// completeSales settles sales left pending by an earlier payment whose
// completion write failed
func (s *PaymentService) completeSales(ctx context.Context, repos credit.Repositories, saleIDs []uuid.UUID) {
	settled, _ := s.executor.applier.CompleteSales(ctx, repos, saleIDs)
	if len(settled) == 0 {
		return
	}
	s.logger.Info("Settled sales left pending by an earlier payment", zap.Int("sales", len(settled)))
	s.metrics.RecordSettlements(ctx, 0, len(settled))

	events := make([]shared.DomainEvent, 0, len(settled))
	for _, sale := range settled {
		events = append(events, sale.GetDomainEvents()...)
	}
	s.executor.publish(ctx, events...)
}

// withIdempotency runs fn at most once per key and replays its stored result.
// Replay store failures degrade to running fn without protection.
func (s *PaymentService) withIdempotency(ctx context.Context, key string, fn func(context.Context) (*PaymentResult, error)) (*PaymentResult, error) {
	if replayed, err := s.lookupReplay(ctx, key); replayed != nil || err != nil {
		return replayed, err
	}

	reserved, err := s.replay.Reserve(ctx, key, s.cfg.Idempotency.TTL)
	if err != nil {
		s.logger.Warn("Idempotency store unavailable, processing without replay protection", zap.Error(err))
		return fn(ctx)
	}
	if !reserved {
		if replayed, err := s.lookupReplay(ctx, key); replayed != nil || err != nil {
			return replayed, err
		}
		return nil, ErrRequestInProgress
	}

	result, err := fn(ctx)
	if err != nil {
		if rerr := s.replay.Release(context.WithoutCancel(ctx), key); rerr != nil {
			s.logger.Warn("Failed to release idempotency key", zap.String("key", key), zap.Error(rerr))
		}
		return nil, err
	}

	payload, err := json.Marshal(result)
	if err == nil {
		err = s.replay.Complete(context.WithoutCancel(ctx), key, payload, s.cfg.Idempotency.TTL)
	}
	if err != nil {
		s.logger.Warn("Failed to store idempotent response", zap.String("key", key), zap.Error(err))
	}
	return result, nil
}

// lookupReplay returns the stored result for key, ErrRequestInProgress while the
// first request is running, or (nil, nil) when the key is unknown.
func (s *PaymentService) lookupReplay(ctx context.Context, key string) (*PaymentResult, error) {
	payload, found, err := s.replay.Lookup(ctx, key)
	if err != nil {
		s.logger.Warn("Idempotency lookup failed", zap.String("key", key), zap.Error(err))
		return nil, nil
	}
	if !found {
		return nil, nil
	}
	if payload == nil {
		return nil, ErrRequestInProgress
	}
	var result PaymentResult
	if err := json.Unmarshal(payload, &result); err != nil {
		s.logger.Warn("Discarding unreadable idempotent response", zap.String("key", key), zap.Error(err))
		return nil, nil
	}
	result.Replayed = true
	return &result, nil
}

func noDebtResult(cmd *paymentCommand) *PaymentResult {
	return &PaymentResult{
		ClientID:      cmd.clientID,
		Amount:        cmd.amount,
		AmountApplied: decimal.Zero,
		Remainder:     cmd.amount,
		Detail:        []PaymentDetail{},
		SalesSettled:  []uuid.UUID{},
		Complete:      true,
		Status:        PaymentStatusNoDebt,
	}
}

func buildResult(clientID uuid.UUID, plan *credit.AllocationPlan, pc credit.PaymentContext, outcome *SettlementOutcome) *PaymentResult {
	return &PaymentResult{
		ClientID:      clientID,
		ReceiptNo:     pc.ReceiptNo,
		Amount:        plan.PaymentAmount,
		AmountApplied: plan.TotalApplied,
		Remainder:     plan.Remainder,
		Detail:        lo.Map(plan.Entries, func(e credit.PlanEntry, _ int) PaymentDetail { return toPaymentDetail(e) }),
		SalesSettled:  lo.Map(outcome.SettledSales, func(s *credit.Sale, _ int) uuid.UUID { return s.ID }),
		Complete:      true,
		Status:        PaymentStatusApplied,
	}
}

func partialResult(clientID uuid.UUID, plan *credit.AllocationPlan, pc credit.PaymentContext, residue []AppliedEntry) *PaymentResult {
	applied := decimal.Zero
	detail := make([]PaymentDetail, 0, len(residue))
	for _, r := range residue {
		applied = applied.Add(r.Entry.AmountApplied)
		detail = append(detail, toPaymentDetail(r.Entry))
	}
	return &PaymentResult{
		ClientID:      clientID,
		ReceiptNo:     pc.ReceiptNo,
		Amount:        plan.PaymentAmount,
		AmountApplied: applied,
		Remainder:     plan.PaymentAmount.Sub(applied),
		Detail:        detail,
		SalesSettled:  []uuid.UUID{},
		Complete:      false,
		Status:        PaymentStatusPartial,
	}
}
