package notifications

import "time"

// QueueStatus represents the status of a queue item.
type QueueStatus string

// Queue statuses.
const (
	QueueStatusPending QueueStatus = "pending"
	QueueStatusSent    QueueStatus = "sent"
	QueueStatusFailed  QueueStatus = "failed"
)

// QueueItem is one stored notification awaiting delivery. Workflow writes
// enqueue items synchronously; delivery happens out of band.
type QueueItem struct {
	ID             string
	RecipientID    string
	RecipientEmail string
	Kind           string
	Subject        string
	Body           string
	Link           string
	Status         QueueStatus
	Attempts       int
	MaxAttempts    int
	NextAttemptAt  time.Time
	LastError      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	SentAt         *time.Time
}

// QueueStats holds per-status queue sizes for metrics.
type QueueStats struct {
	Pending int
	Sent    int
	Failed  int
}
