package event

import (
	"context"

	"go.uber.org/zap"

	"github.com/shulepay/backend/internal/domain/shared"
)

// IdempotentHandler wraps an EventHandler with idempotency checking so a
// re-delivered event is acknowledged without being processed twice.
type IdempotentHandler struct {
	handler shared.EventHandler
	store   shared.IdempotencyStore
	config  shared.IdempotencyConfig
	logger  *zap.Logger
}

// NewIdempotentHandler creates a new idempotent handler wrapper
func NewIdempotentHandler(handler shared.EventHandler, store shared.IdempotencyStore, config shared.IdempotencyConfig, logger *zap.Logger) *IdempotentHandler {
	return &IdempotentHandler{
		handler: handler,
		store:   store,
		config:  config,
		logger:  logger,
	}
}

// EventTypes returns the event types of the wrapped handler
func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// Handle processes the event once. A store error is logged and the event is
// processed anyway; dropping an event is worse than the rare duplicate.
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.config.Enabled {
		return h.handler.Handle(ctx, event)
	}

	eventID := event.EventID().String()

	isNew, err := h.store.MarkProcessed(ctx, eventID, h.config.TTL)
	if err != nil {
		h.logger.Warn("idempotency check failed, processing anyway",
			zap.String("event_id", eventID),
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
	} else if !isNew {
		h.logger.Debug("duplicate event skipped",
			zap.String("event_id", eventID),
			zap.String("event_type", event.EventType()),
		)
		return nil
	}

	// The idempotency key is kept on failure; the TTL acts as a retry
	// cooldown rather than inviting an immediate re-run.
	return h.handler.Handle(ctx, event)
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
