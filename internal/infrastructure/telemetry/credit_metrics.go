package telemetry

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Payment outcomes used as metric attribute values
const (
	PaymentOutcomeApplied = "applied"
	PaymentOutcomeNoDebt  = "no_debt"
	PaymentOutcomePartial = "partial"
	PaymentOutcomeFailed  = "failed"
)

// CreditMetrics records installment payment activity.
type CreditMetrics struct {
	payments         *Counter
	amountApplied    *Histogram
	remainder        *Histogram
	conflicts        *Counter
	compensations    *Counter
	installmentsPaid *Counter
	salesSettled     *Counter
	duration         *Histogram
}

// NewCreditMetrics creates the credit instruments on meter.
func NewCreditMetrics(meter metric.Meter) (*CreditMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	var err error
	m := &CreditMetrics{}
	if m.payments, err = NewCounter(meter, "credit_payments_total", "Client payments processed", "{payment}"); err != nil {
		return nil, err
	}
	if m.amountApplied, err = NewHistogram(meter, HistogramOpts{
		Name:        "credit_payment_applied_amount",
		Description: "Amount applied to installments per payment",
		Unit:        "{currency}",
		Boundaries:  AmountBuckets,
	}); err != nil {
		return nil, err
	}
	if m.remainder, err = NewHistogram(meter, HistogramOpts{
		Name:        "credit_payment_remainder_amount",
		Description: "Amount left unapplied per payment",
		Unit:        "{currency}",
		Boundaries:  AmountBuckets,
	}); err != nil {
		return nil, err
	}
	if m.conflicts, err = NewCounter(meter, "credit_allocation_conflicts_total", "Allocation plans rejected by a concurrent write", "{conflict}"); err != nil {
		return nil, err
	}
	if m.compensations, err = NewCounter(meter, "credit_settlement_compensations_total", "Installment writes rolled back after a failure", "{write}"); err != nil {
		return nil, err
	}
	if m.installmentsPaid, err = NewCounter(meter, "credit_installments_paid_total", "Installments moved to paid", "{installment}"); err != nil {
		return nil, err
	}
	if m.salesSettled, err = NewCounter(meter, "credit_sales_settled_total", "Credit sales moved to paid", "{sale}"); err != nil {
		return nil, err
	}
	if m.duration, err = NewHistogram(meter, HistogramOpts{
		Name:        "credit_payment_duration_seconds",
		Description: "Time to process one client payment",
		Unit:        "s",
		Boundaries:  LatencyBuckets,
	}); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordPayment records one processed payment.
func (m *CreditMetrics) RecordPayment(ctx context.Context, channel, method, outcome string, applied, remainder decimal.Decimal, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{AttrPaymentChannel.String(channel), AttrPaymentMethod.String(method)}
	m.payments.Inc(ctx, append(attrs, AttrPaymentOutcome.String(outcome))...)
	m.duration.RecordDuration(ctx, elapsed, attrs...)
	if applied.IsPositive() {
		m.amountApplied.Record(ctx, applied.InexactFloat64(), attrs...)
	}
	if remainder.IsPositive() {
		m.remainder.Record(ctx, remainder.InexactFloat64(), attrs...)
	}
}

// RecordConflict records a rejected allocation attempt.
func (m *CreditMetrics) RecordConflict(ctx context.Context, channel string) {
	if m == nil {
		return
	}
	m.conflicts.Inc(ctx, AttrPaymentChannel.String(channel))
}

// RecordCompensation records rolled back installment writes.
func (m *CreditMetrics) RecordCompensation(ctx context.Context, writes int) {
	if m == nil || writes <= 0 {
		return
	}
	m.compensations.Add(ctx, int64(writes))
}

// RecordSettlements records installments and sales that reached paid.
func (m *CreditMetrics) RecordSettlements(ctx context.Context, installments, sales int) {
	if m == nil {
		return
	}
	if installments > 0 {
		m.installmentsPaid.Add(ctx, int64(installments))
	}
	if sales > 0 {
		m.salesSettled.Add(ctx, int64(sales))
	}
}

// ErrMeterNil is returned when no meter is supplied.
var ErrMeterNil = &MetricsError{Op: "NewCreditMetrics", Err: "meter cannot be nil"}

// MetricsError is a metrics setup error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
