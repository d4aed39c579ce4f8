package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memQueueRepo struct {
	mu    sync.Mutex
	items map[string]*QueueItem
}

func newMemQueueRepo() *memQueueRepo {
	return &memQueueRepo{items: make(map[string]*QueueItem)}
}

func (r *memQueueRepo) Enqueue(_ context.Context, item *QueueItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *item
	r.items[item.ID] = &clone
	return nil
}

func (r *memQueueRepo) FetchPending(_ context.Context, limit int) ([]*QueueItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	out := make([]*QueueItem, 0)
	for _, item := range r.items {
		if item.Status == QueueStatusPending && !item.NextAttemptAt.After(now) && len(out) < limit {
			item.NextAttemptAt = now.Add(time.Minute)
			clone := *item
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memQueueRepo) MarkAsSent(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return ErrNotificationNotFound
	}
	now := time.Now()
	item.Status = QueueStatusSent
	item.Attempts++
	item.SentAt = &now
	return nil
}

func (r *memQueueRepo) MarkAsFailed(_ context.Context, id string, cause error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return ErrNotificationNotFound
	}
	item.Status = QueueStatusFailed
	item.Attempts++
	item.LastError = cause.Error()
	return nil
}

func (r *memQueueRepo) MarkForRetry(_ context.Context, id string, cause error, nextAttemptAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return ErrNotificationNotFound
	}
	item.Attempts++
	item.LastError = cause.Error()
	item.NextAttemptAt = nextAttemptAt
	return nil
}

func (r *memQueueRepo) ListForRecipient(_ context.Context, recipientID string, limit int) ([]*QueueItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*QueueItem, 0)
	for _, item := range r.items {
		if item.RecipientID == recipientID && len(out) < limit {
			clone := *item
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memQueueRepo) QueueStats(_ context.Context) (*QueueStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var stats QueueStats
	for _, item := range r.items {
		switch item.Status {
		case QueueStatusPending:
			stats.Pending++
		case QueueStatusSent:
			stats.Sent++
		case QueueStatusFailed:
			stats.Failed++
		}
	}
	return &stats, nil
}

func (r *memQueueRepo) get(id string) QueueItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.items[id]
}

type fakeSender struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (s *fakeSender) Send(_ context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, n)
	return nil
}

func pendingItem(id string, attempts, maxAttempts int) *QueueItem {
	return &QueueItem{
		ID:             id,
		RecipientID:    "emp-1",
		RecipientEmail: "emp@example.com",
		Kind:           "notice_issued",
		Subject:        "subject",
		Body:           "body",
		Status:         QueueStatusPending,
		Attempts:       attempts,
		MaxAttempts:    maxAttempts,
		NextAttemptAt:  time.Now().Add(-time.Second),
	}
}

func TestWorker_ProcessItem_Success(t *testing.T) {
	repo := newMemQueueRepo()
	sender := &fakeSender{}
	worker := NewWorker(DefaultWorkerConfig(), repo, sender)

	item := pendingItem("n-1", 0, 3)
	require.NoError(t, repo.Enqueue(context.Background(), item))

	worker.processItem(context.Background(), item)

	stored := repo.get("n-1")
	assert.Equal(t, QueueStatusSent, stored.Status)
	require.NotNil(t, stored.SentAt)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "emp@example.com", sender.sent[0].To)
}

func TestWorker_ProcessItem_RetryableFailureSchedulesRetry(t *testing.T) {
	repo := newMemQueueRepo()
	sender := &fakeSender{err: NewRetryableError(errors.New("smtp 451"))}
	worker := NewWorker(DefaultWorkerConfig(), repo, sender)

	item := pendingItem("n-1", 0, 3)
	require.NoError(t, repo.Enqueue(context.Background(), item))

	worker.processItem(context.Background(), item)

	stored := repo.get("n-1")
	assert.Equal(t, QueueStatusPending, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	assert.Contains(t, stored.LastError, "smtp 451")
	assert.True(t, stored.NextAttemptAt.After(time.Now()))
}

func TestWorker_ProcessItem_NonRetryableFailureFails(t *testing.T) {
	repo := newMemQueueRepo()
	sender := &fakeSender{err: NewNonRetryableError(errors.New("mailbox does not exist"))}
	worker := NewWorker(DefaultWorkerConfig(), repo, sender)

	item := pendingItem("n-1", 0, 3)
	require.NoError(t, repo.Enqueue(context.Background(), item))

	worker.processItem(context.Background(), item)

	stored := repo.get("n-1")
	assert.Equal(t, QueueStatusFailed, stored.Status)
	assert.Contains(t, stored.LastError, "mailbox does not exist")
}

func TestWorker_ProcessItem_MaxAttemptsExceeded(t *testing.T) {
	repo := newMemQueueRepo()
	sender := &fakeSender{err: NewRetryableError(errors.New("timeout"))}
	worker := NewWorker(DefaultWorkerConfig(), repo, sender)

	item := pendingItem("n-1", 2, 3)
	require.NoError(t, repo.Enqueue(context.Background(), item))

	worker.processItem(context.Background(), item)

	stored := repo.get("n-1")
	assert.Equal(t, QueueStatusFailed, stored.Status)
	assert.Contains(t, stored.LastError, "max attempts exceeded")
}

func TestWorker_ProcessBatch_DrainsDueItems(t *testing.T) {
	repo := newMemQueueRepo()
	sender := &fakeSender{}
	worker := NewWorker(DefaultWorkerConfig(), repo, sender)

	require.NoError(t, repo.Enqueue(context.Background(), pendingItem("n-1", 0, 3)))
	require.NoError(t, repo.Enqueue(context.Background(), pendingItem("n-2", 0, 3)))

	future := pendingItem("n-3", 0, 3)
	future.NextAttemptAt = time.Now().Add(time.Hour)
	require.NoError(t, repo.Enqueue(context.Background(), future))

	worker.processBatch(context.Background(), 0)

	assert.Len(t, sender.sent, 2)
	assert.Equal(t, QueueStatusPending, repo.get("n-3").Status)
}

func TestWorker_CalculateNextAttempt(t *testing.T) {
	config := WorkerConfig{
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        5 * time.Minute,
		BackoffMultiplier: 2.0,
	}

	worker := &Worker{config: config}

	tests := []struct {
		name            string
		attempt         int
		expectedBackoff time.Duration
	}{
		{"first retry", 1, 1 * time.Second},
		{"second retry", 2, 2 * time.Second},
		{"third retry", 3, 4 * time.Second},
		{"fourth retry", 4, 8 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := time.Now()
			result := worker.calculateNextAttempt(tt.attempt)
			after := time.Now()

			expectedMin := before.Add(tt.expectedBackoff)
			expectedMax := after.Add(tt.expectedBackoff)

			assert.True(t, result.After(expectedMin) || result.Equal(expectedMin),
				"result %v should be >= %v", result, expectedMin)
			assert.True(t, result.Before(expectedMax) || result.Equal(expectedMax),
				"result %v should be <= %v", result, expectedMax)
		})
	}
}

func TestWorker_CalculateNextAttempt_MaxBackoff(t *testing.T) {
	config := WorkerConfig{
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	}

	worker := &Worker{config: config}

	before := time.Now()
	result := worker.calculateNextAttempt(100)

	expectedMin := before.Add(config.MaxBackoff)
	assert.True(t, result.After(expectedMin) || result.Equal(expectedMin))

	expectedMax := time.Now().Add(config.MaxBackoff + time.Second)
	assert.True(t, result.Before(expectedMax))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "retryable error",
			err:      NewRetryableError(errors.New("temporary error")),
			expected: true,
		},
		{
			name:     "non-retryable error",
			err:      NewNonRetryableError(errors.New("permanent error")),
			expected: false,
		},
		{
			name:     "generic error defaults to retryable",
			err:      errors.New("unknown error"),
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isRetryable(tt.err))
		})
	}
}

func TestRetryableError(t *testing.T) {
	originalErr := errors.New("original error")

	t.Run("retryable error", func(t *testing.T) {
		err := NewRetryableError(originalErr)

		assert.Equal(t, "original error", err.Error())
		assert.True(t, err.IsRetryable())
		assert.Equal(t, originalErr, errors.Unwrap(err))
	})

	t.Run("non-retryable error", func(t *testing.T) {
		err := NewNonRetryableError(originalErr)

		assert.Equal(t, "original error", err.Error())
		assert.False(t, err.IsRetryable())
		assert.Equal(t, originalErr, errors.Unwrap(err))
	})
}

func TestDefaultWorkerConfig(t *testing.T) {
	config := DefaultWorkerConfig()

	assert.Equal(t, 100, config.BatchSize)
	assert.Equal(t, 5*time.Second, config.PollInterval)
	assert.Equal(t, 3, config.MaxAttempts)
	assert.Equal(t, 1*time.Second, config.InitialBackoff)
	assert.Equal(t, 5*time.Minute, config.MaxBackoff)
	assert.Equal(t, 2.0, config.BackoffMultiplier)
	assert.Equal(t, 5, config.NumWorkers)
}
