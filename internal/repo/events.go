package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/vitrine-shop/backend-loja/internal/events"
)

// EventRepo persists domain events.
type EventRepo struct {
	DB DB
}

// InsertEvent stores one event row and returns it with its generated identity.
func (r EventRepo) InsertEvent(ctx context.Context, topic string, aggregateID uuid.UUID, payload []byte) (events.Event, error) {
	var ev events.Event
	err := r.DB.QueryRow(ctx, `
		INSERT INTO domain_events (topic, aggregate_id, payload)
		VALUES ($1, $2, $3)
		RETURNING id, topic, aggregate_id, payload, occurred_at`,
		topic, aggregateID, payload,
	).Scan(&ev.ID, &ev.Topic, &ev.AggregateID, &ev.Payload, &ev.OccurredAt)
	return ev, err
}
