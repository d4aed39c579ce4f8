// Package notifications delivers workflow notifications to employees and
// approvers through a persistent queue with retries.
package notifications

import (
	"context"
	"time"
)

// Repository is the notification queue store.
type Repository interface {
	Enqueue(ctx context.Context, item *QueueItem) error
	// FetchPending claims up to limit due pending items for delivery.
	// Claimed items are not returned to concurrent fetchers.
	FetchPending(ctx context.Context, limit int) ([]*QueueItem, error)
	MarkAsSent(ctx context.Context, id string) error
	MarkAsFailed(ctx context.Context, id string, cause error) error
	MarkForRetry(ctx context.Context, id string, cause error, nextAttemptAt time.Time) error
	ListForRecipient(ctx context.Context, recipientID string, limit int) ([]*QueueItem, error)
	QueueStats(ctx context.Context) (*QueueStats, error)
}

// Notification is one rendered message ready for a sender.
type Notification struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a rendered notification.
type Sender interface {
	Send(ctx context.Context, notification Notification) error
}
