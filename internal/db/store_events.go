package db

import (
	"context"
	"fmt"

	"github.com/go4itsports/licensing/internal/models"
	"github.com/google/uuid"
)

// RecordSubscriptionEvent appends one subscription lifecycle event.
func (db *DB) RecordSubscriptionEvent(ctx context.Context, e *models.SubscriptionEvent) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO subscription_events (id, customer_id, event_type, event_data, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, e.ID, e.CustomerID, e.EventType, e.EventData, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("record subscription event: %w", err)
	}
	return nil
}

// GetSubscriptionEvents returns lifecycle events for a customer, newest first.
func (db *DB) GetSubscriptionEvents(ctx context.Context, customerID uuid.UUID, limit int) ([]*models.SubscriptionEvent, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, customer_id, event_type, event_data, created_at
		FROM subscription_events
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("get subscription events: %w", err)
	}
	defer rows.Close()

	var events []*models.SubscriptionEvent
	for rows.Next() {
		var e models.SubscriptionEvent
		if err := rows.Scan(&e.ID, &e.CustomerID, &e.EventType, &e.EventData, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subscription event: %w", err)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

// GetNewlyExpiredCustomerIDs returns customers whose subscription expiry has
// passed and who do not yet have an expired event recorded. Used by the
// maintenance sweep so each expiry is recorded exactly once.
func (db *DB) GetNewlyExpiredCustomerIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT c.id
		FROM customers c
		WHERE c.subscription_expires_at IS NOT NULL
		  AND c.subscription_expires_at < NOW()
		  AND NOT EXISTS (
			SELECT 1 FROM subscription_events e
			WHERE e.customer_id = c.id
			  AND e.event_type = 'expired'
			  AND e.created_at >= c.subscription_expires_at
		  )
	`)
	if err != nil {
		return nil, fmt.Errorf("get newly expired customers: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan customer id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
