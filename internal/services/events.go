package services

import (
	"context"
	"log/slog"

	"ledger/internal/amqp"
)

// publish sends a change event without failing the caller: the write has
// already been committed when this runs.
func publish(ctx context.Context, events EventPublisher, event, ownerID, entityID string) {
	if events == nil {
		slog.DebugContext(ctx, "Event publisher not configured, skipping event", "event", event)
		return
	}
	if err := events.Publish(ctx, amqp.NewLedgerEvent(event, ownerID, entityID)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"event", event,
			"entity_id", entityID,
			"error", err)
	}
}
