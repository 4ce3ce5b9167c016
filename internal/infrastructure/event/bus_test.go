package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fiado/backend/internal/domain/credit"
	"github.com/fiado/backend/internal/domain/shared"
	"github.com/fiado/backend/internal/infrastructure/cache"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// recordingHandler implements EventHandler for testing
type recordingHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	panics     bool
	mu         sync.Mutex
}

func newRecordingHandler(eventTypes ...string) *recordingHandler {
	return &recordingHandler{eventTypes: eventTypes}
}

func (h *recordingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	if h.panics {
		panic("boom")
	}
	return h.err
}

func (h *recordingHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func saleSettled() shared.DomainEvent {
	clientID := uuid.New()
	sale, _ := credit.NewSale(&clientID, decimal.NewFromInt(300), credit.PaymentMethodInstallments)
	return credit.NewSaleSettledEvent(sale)
}

func TestInMemoryEventBus_RoutesByType(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	settled := newRecordingHandler(credit.EventTypeSaleSettled)
	paid := newRecordingHandler(credit.EventTypeInstallmentPaid)
	all := newRecordingHandler()
	bus.Subscribe(settled)
	bus.Subscribe(paid)
	bus.Subscribe(all)

	require.NoError(t, bus.Publish(context.Background(), saleSettled(), saleSettled()))

	assert.Equal(t, 2, settled.count())
	assert.Equal(t, 0, paid.count())
	assert.Equal(t, 2, all.count())
}

func TestInMemoryEventBus_HandlerFailuresAreIsolated(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	bus := NewInMemoryEventBus(zap.New(core))

	failing := newRecordingHandler(credit.EventTypeSaleSettled)
	failing.err = errors.New("handler error")
	panicking := newRecordingHandler(credit.EventTypeSaleSettled)
	panicking.panics = true
	healthy := newRecordingHandler(credit.EventTypeSaleSettled)
	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), saleSettled())
	require.NoError(t, err)
	assert.Equal(t, 1, healthy.count())
	assert.Equal(t, 2, logs.FilterMessage("Event handler failed").Len())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newRecordingHandler(credit.EventTypeSaleSettled)
	bus.Subscribe(handler)

	_ = bus.Publish(context.Background(), saleSettled())
	bus.Unsubscribe(handler)
	_ = bus.Publish(context.Background(), saleSettled())

	assert.Equal(t, 1, handler.count())
	assert.Empty(t, bus.registry.Handlers(credit.EventTypeSaleSettled))
}

func TestInMemoryEventBus_StopDropsEvents(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newRecordingHandler()
	bus.Subscribe(handler)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Stop(ctx))
	require.NoError(t, bus.Publish(ctx, saleSettled()))
	assert.Equal(t, 0, handler.count())

	require.NoError(t, bus.Start(ctx))
	require.NoError(t, bus.Publish(ctx, saleSettled()))
	assert.Equal(t, 1, handler.count())
}

func TestDedupHandler(t *testing.T) {
	store := cache.NewInMemoryReplayStore()
	defer store.Close()

	t.Run("same event is handled once", func(t *testing.T) {
		inner := newRecordingHandler(credit.EventTypeSaleSettled)
		h := NewDedupHandler(inner, store, shared.DefaultIdempotencyConfig(), nil)
		event := saleSettled()

		require.NoError(t, h.Handle(context.Background(), event))
		require.NoError(t, h.Handle(context.Background(), event))
		assert.Equal(t, 1, inner.count())
		assert.Equal(t, []string{credit.EventTypeSaleSettled}, h.EventTypes())
	})

	t.Run("disabled passes everything through", func(t *testing.T) {
		inner := newRecordingHandler()
		h := NewDedupHandler(inner, store, shared.IdempotencyConfig{Enabled: false}, nil)
		event := saleSettled()

		require.NoError(t, h.Handle(context.Background(), event))
		require.NoError(t, h.Handle(context.Background(), event))
		assert.Equal(t, 2, inner.count())
	})

	t.Run("handler error is returned and the claim kept", func(t *testing.T) {
		inner := newRecordingHandler()
		inner.err = errors.New("down")
		h := NewDedupHandler(inner, store, shared.DefaultIdempotencyConfig(), nil)
		event := saleSettled()

		assert.EqualError(t, h.Handle(context.Background(), event), "down")
		assert.NoError(t, h.Handle(context.Background(), event))
		assert.Equal(t, 1, inner.count())
	})
}
