package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hrops/casetrack/internal/cases"
	"github.com/hrops/casetrack/internal/domain"
	"github.com/hrops/casetrack/internal/pkg/ctxlog"
)

// RecipientResolver resolves a user id to a deliverable address.
type RecipientResolver interface {
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

// Notifier enqueues workflow notifications. It satisfies the workflow's
// Notifier port: enqueueing is synchronous and cheap, delivery is the
// worker's job.
type Notifier struct {
	repo        Repository
	resolver    RecipientResolver
	maxAttempts int
}

// NewNotifier creates a new Notifier.
func NewNotifier(repo Repository, resolver RecipientResolver, maxAttempts int) *Notifier {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Notifier{repo: repo, resolver: resolver, maxAttempts: maxAttempts}
}

// Notify stores one notification for the recipient.
func (n *Notifier) Notify(ctx context.Context, recipientID string, kind cases.NotificationKind, message, link string) error {
	user, err := n.resolver.GetUserByID(ctx, recipientID)
	if err != nil {
		return fmt.Errorf("resolve recipient %s: %w", recipientID, err)
	}

	subject, body := render(kind, user.Name, message, link)

	item := &QueueItem{
		ID:             uuid.New().String(),
		RecipientID:    recipientID,
		RecipientEmail: user.Email,
		Kind:           string(kind),
		Subject:        subject,
		Body:           body,
		Link:           link,
		Status:         QueueStatusPending,
		MaxAttempts:    n.maxAttempts,
	}

	if err := n.repo.Enqueue(ctx, item); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}

	ctxlog.FromContext(ctx).Debug("notification enqueued",
		"item_id", item.ID,
		"recipient", recipientID,
		"kind", kind,
	)
	recordQueueEnqueued(string(kind))
	return nil
}
