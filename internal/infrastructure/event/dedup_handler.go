package event

import (
	"context"

	"github.com/fiado/backend/internal/domain/shared"
	"go.uber.org/zap"
)

const eventKeyPrefix = "event:"

// DedupHandler wraps an EventHandler so each event id is handled at most once,
// using the same replay store that guards payment requests.
type DedupHandler struct {
	handler shared.EventHandler
	store   shared.ReplayStore
	config  shared.IdempotencyConfig
	logger  *zap.Logger
}

// NewDedupHandler creates a new DedupHandler
func NewDedupHandler(handler shared.EventHandler, store shared.ReplayStore, config shared.IdempotencyConfig, logger *zap.Logger) *DedupHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DedupHandler{
		handler: handler,
		store:   store,
		config:  config,
		logger:  logger,
	}
}

// EventTypes returns the wrapped handler's event types
func (h *DedupHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// Handle runs the wrapped handler unless the event id was already claimed.
// A store failure does not drop the event; it is handled anyway.
func (h *DedupHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.config.Enabled || h.store == nil {
		return h.handler.Handle(ctx, event)
	}

	key := eventKeyPrefix + event.EventID().String()
	isNew, err := h.store.Reserve(ctx, key, h.config.TTL)
	if err != nil {
		h.logger.Warn("Failed to check event idempotency, handling anyway",
			zap.String("event_id", event.EventID().String()),
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
	} else if !isNew {
		h.logger.Debug("Duplicate event skipped",
			zap.String("event_id", event.EventID().String()),
			zap.String("event_type", event.EventType()),
		)
		return nil
	}

	if err := h.handler.Handle(ctx, event); err != nil {
		// the claim is kept and expires with TTL
		return err
	}
	if err := h.store.Complete(ctx, key, []byte("done"), h.config.TTL); err != nil {
		h.logger.Warn("Failed to record handled event", zap.String("event_id", event.EventID().String()), zap.Error(err))
	}
	return nil
}

var _ shared.EventHandler = (*DedupHandler)(nil)
