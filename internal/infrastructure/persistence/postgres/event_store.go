package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/suilotion/peerhelp-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVENT STORE
// Append-only log of every domain event. The sequence column is assigned by
// the database and is the replay cursor for external pollers.
// ══════════════════════════════════════════════════════════════════════════════

// EventStore persists domain events in an append-only table.
type EventStore struct {
	conn *Connection
}

// NewEventStore creates a new EventStore.
func NewEventStore(conn *Connection) *EventStore {
	return &EventStore{conn: conn}
}

// Append stores a domain event and returns the assigned sequence number.
func (s *EventStore) Append(ctx context.Context, event shared.Event) (int64, error) {
	payloadJSON, err := json.Marshal(event.Payload())
	if err != nil {
		return 0, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	query := `
		INSERT INTO events (id, event_type, aggregate_id, occurred_at, version, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING sequence
	`

	var sequence int64
	err = s.conn.QueryRow(ctx, query,
		uuid.NewString(),
		string(event.EventType()),
		event.AggregateID(),
		event.OccurredAt(),
		1,
		payloadJSON,
	).Scan(&sequence)
	if err != nil {
		return 0, fmt.Errorf("failed to append event: %w", err)
	}

	return sequence, nil
}

// LoadSince returns up to limit envelopes with Sequence > afterSequence,
// in ascending sequence order.
func (s *EventStore) LoadSince(ctx context.Context, afterSequence int64, limit int) ([]shared.EventEnvelope, error) {
	query := `
		SELECT sequence, id, event_type, aggregate_id, occurred_at, version,
			   COALESCE(correlation_id, ''), payload
		FROM events
		WHERE sequence > $1
		ORDER BY sequence ASC
		LIMIT $2
	`

	rows, err := s.conn.Query(ctx, query, afterSequence, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	defer rows.Close()

	return s.scanEnvelopes(rows)
}

// LoadByAggregate returns all events for one aggregate, oldest first.
func (s *EventStore) LoadByAggregate(ctx context.Context, aggregateID string) ([]shared.EventEnvelope, error) {
	query := `
		SELECT sequence, id, event_type, aggregate_id, occurred_at, version,
			   COALESCE(correlation_id, ''), payload
		FROM events
		WHERE aggregate_id = $1
		ORDER BY sequence ASC
	`

	rows, err := s.conn.Query(ctx, query, aggregateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load aggregate events: %w", err)
	}
	defer rows.Close()

	return s.scanEnvelopes(rows)
}

// LastSequence returns the highest assigned sequence number, 0 when empty.
func (s *EventStore) LastSequence(ctx context.Context) (int64, error) {
	var sequence int64
	err := s.conn.QueryRow(ctx, "SELECT COALESCE(MAX(sequence), 0) FROM events").Scan(&sequence)
	if err != nil {
		return 0, fmt.Errorf("failed to read last sequence: %w", err)
	}
	return sequence, nil
}

// CountByType returns event counts per event type.
func (s *EventStore) CountByType(ctx context.Context) (map[shared.EventType]int64, error) {
	rows, err := s.conn.Query(ctx, "SELECT event_type, COUNT(*) FROM events GROUP BY event_type")
	if err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}
	defer rows.Close()

	counts := make(map[shared.EventType]int64)
	for rows.Next() {
		var eventType string
		var count int64
		if err := rows.Scan(&eventType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan event count: %w", err)
		}
		counts[shared.EventType(eventType)] = count
	}

	return counts, rows.Err()
}

// scanEnvelopes scans event envelopes from rows.
func (s *EventStore) scanEnvelopes(rows pgx.Rows) ([]shared.EventEnvelope, error) {
	var envelopes []shared.EventEnvelope

	for rows.Next() {
		var env shared.EventEnvelope
		var eventType string
		var payload []byte

		err := rows.Scan(
			&env.Sequence,
			&env.ID,
			&eventType,
			&env.AggregateID,
			&env.Timestamp,
			&env.Version,
			&env.CorrelationID,
			&payload,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event envelope: %w", err)
		}

		env.Type = shared.EventType(eventType)
		env.Payload = json.RawMessage(payload)

		envelopes = append(envelopes, env)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return envelopes, nil
}
