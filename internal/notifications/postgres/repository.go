// Package postgres provides PostgreSQL implementation of the notifications repository.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hrops/casetrack/internal/notifications"
)

// claimWindow is how long a fetched item stays invisible to other workers.
// Items not marked sent, failed or retried within the window become due again.
const claimWindow = time.Minute

// Repository implements notifications.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const queueColumns = `id, recipient_id, recipient_email, kind, subject, body, link,
	status, attempts, max_attempts, next_attempt_at, last_error, created_at, updated_at, sent_at`

// Enqueue stores a new queue item.
func (r *Repository) Enqueue(ctx context.Context, item *notifications.QueueItem) error {
	query := `
		INSERT INTO notification_queue (id, recipient_id, recipient_email, kind, subject, body, link, status, max_attempts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING next_attempt_at, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		item.ID,
		item.RecipientID,
		item.RecipientEmail,
		item.Kind,
		item.Subject,
		item.Body,
		item.Link,
		item.Status,
		item.MaxAttempts,
	).Scan(&item.NextAttemptAt, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

// FetchPending claims up to limit due pending items. Claiming pushes
// next_attempt_at forward so concurrent fetchers skip the same rows.
func (r *Repository) FetchPending(ctx context.Context, limit int) ([]*notifications.QueueItem, error) {
	query := `
		WITH due AS (
			SELECT id
			FROM notification_queue
			WHERE status = 'pending' AND next_attempt_at <= NOW()
			ORDER BY next_attempt_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE notification_queue q
		SET next_attempt_at = NOW() + $2, updated_at = NOW()
		FROM due
		WHERE q.id = due.id
		RETURNING ` + prefixColumns("q") + `
	`
	rows, err := r.db.Query(ctx, query, limit, claimWindow)
	if err != nil {
		return nil, fmt.Errorf("fetch pending notifications: %w", err)
	}
	defer rows.Close()

	items := make([]*notifications.QueueItem, 0)
	for rows.Next() {
		var item notifications.QueueItem
		err := rows.Scan(
			&item.ID,
			&item.RecipientID,
			&item.RecipientEmail,
			&item.Kind,
			&item.Subject,
			&item.Body,
			&item.Link,
			&item.Status,
			&item.Attempts,
			&item.MaxAttempts,
			&item.NextAttemptAt,
			&item.LastError,
			&item.CreatedAt,
			&item.UpdatedAt,
			&item.SentAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan queue item: %w", err)
		}
		items = append(items, &item)
	}

	return items, nil
}

// MarkAsSent marks a queue item as delivered.
func (r *Repository) MarkAsSent(ctx context.Context, id string) error {
	query := `
		UPDATE notification_queue
		SET status = 'sent', attempts = attempts + 1, sent_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark as sent: %w", err)
	}
	if result.RowsAffected() == 0 {
		return notifications.ErrNotificationNotFound
	}
	return nil
}

// MarkAsFailed marks a queue item as permanently failed.
func (r *Repository) MarkAsFailed(ctx context.Context, id string, cause error) error {
	query := `
		UPDATE notification_queue
		SET status = 'failed', attempts = attempts + 1, last_error = $2, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query, id, cause.Error())
	if err != nil {
		return fmt.Errorf("mark as failed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return notifications.ErrNotificationNotFound
	}
	return nil
}

// MarkForRetry reschedules a queue item after a transient failure.
func (r *Repository) MarkForRetry(ctx context.Context, id string, cause error, nextAttemptAt time.Time) error {
	query := `
		UPDATE notification_queue
		SET attempts = attempts + 1, last_error = $2, next_attempt_at = $3, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query, id, cause.Error(), nextAttemptAt)
	if err != nil {
		return fmt.Errorf("mark for retry: %w", err)
	}
	if result.RowsAffected() == 0 {
		return notifications.ErrNotificationNotFound
	}
	return nil
}

// ListForRecipient returns the most recent notifications for a recipient.
func (r *Repository) ListForRecipient(ctx context.Context, recipientID string, limit int) ([]*notifications.QueueItem, error) {
	query := `
		SELECT ` + queueColumns + `
		FROM notification_queue
		WHERE recipient_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, recipientID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	items := make([]*notifications.QueueItem, 0)
	for rows.Next() {
		var item notifications.QueueItem
		err := rows.Scan(
			&item.ID,
			&item.RecipientID,
			&item.RecipientEmail,
			&item.Kind,
			&item.Subject,
			&item.Body,
			&item.Link,
			&item.Status,
			&item.Attempts,
			&item.MaxAttempts,
			&item.NextAttemptAt,
			&item.LastError,
			&item.CreatedAt,
			&item.UpdatedAt,
			&item.SentAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan queue item: %w", err)
		}
		items = append(items, &item)
	}

	return items, nil
}

// QueueStats returns per-status queue sizes.
func (r *Repository) QueueStats(ctx context.Context) (*notifications.QueueStats, error) {
	query := `SELECT status, COUNT(*) FROM notification_queue GROUP BY status`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	var stats notifications.QueueStats
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan queue stats: %w", err)
		}
		switch notifications.QueueStatus(status) {
		case notifications.QueueStatusPending:
			stats.Pending = count
		case notifications.QueueStatusSent:
			stats.Sent = count
		case notifications.QueueStatusFailed:
			stats.Failed = count
		}
	}

	return &stats, nil
}

func prefixColumns(alias string) string {
	return alias + `.id, ` + alias + `.recipient_id, ` + alias + `.recipient_email, ` + alias + `.kind, ` +
		alias + `.subject, ` + alias + `.body, ` + alias + `.link, ` + alias + `.status, ` +
		alias + `.attempts, ` + alias + `.max_attempts, ` + alias + `.next_attempt_at, ` +
		alias + `.last_error, ` + alias + `.created_at, ` + alias + `.updated_at, ` + alias + `.sent_at`
}
