package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrops/casetrack/internal/cases"
	"github.com/hrops/casetrack/internal/domain"
)

type fakeResolver struct {
	users map[string]*domain.User
}

func (r *fakeResolver) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	return user, nil
}

func TestNotifier_Notify_EnqueuesRenderedItem(t *testing.T) {
	repo := newMemQueueRepo()
	resolver := &fakeResolver{users: map[string]*domain.User{
		"emp-1": {ID: "emp-1", Name: "Dana Ortiz", Email: "dana@example.com"},
	}}
	notifier := NewNotifier(repo, resolver, 3)

	err := notifier.Notify(context.Background(), "emp-1", cases.KindNoticeIssued,
		"A written notice was issued against incident inc-1.", "https://hr.example.com/notices/nt-1")
	require.NoError(t, err)

	items, err := repo.ListForRecipient(context.Background(), "emp-1", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, "dana@example.com", item.RecipientEmail)
	assert.Equal(t, string(cases.KindNoticeIssued), item.Kind)
	assert.Equal(t, QueueStatusPending, item.Status)
	assert.Equal(t, 3, item.MaxAttempts)
	assert.Contains(t, item.Subject, "written notice")
	assert.Contains(t, item.Body, "Dana Ortiz")
	assert.Contains(t, item.Body, "https://hr.example.com/notices/nt-1")
}

func TestNotifier_Notify_UnknownRecipient(t *testing.T) {
	repo := newMemQueueRepo()
	notifier := NewNotifier(repo, &fakeResolver{users: map[string]*domain.User{}}, 3)

	err := notifier.Notify(context.Background(), "ghost", cases.KindApprovalRequested, "msg", "")
	require.Error(t, err)

	stats, err := repo.QueueStats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Pending)
}

func TestNotifier_DefaultMaxAttempts(t *testing.T) {
	repo := newMemQueueRepo()
	resolver := &fakeResolver{users: map[string]*domain.User{
		"mgr-1": {ID: "mgr-1", Name: "Lee", Email: "lee@example.com"},
	}}
	notifier := NewNotifier(repo, resolver, 0)

	require.NoError(t, notifier.Notify(context.Background(), "mgr-1", cases.KindApprovalRequested, "msg", ""))

	items, err := repo.ListForRecipient(context.Background(), "mgr-1", 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].MaxAttempts)
}

func TestRender(t *testing.T) {
	tests := []struct {
		name        string
		kind        cases.NotificationKind
		wantSubject string
	}{
		{"notice issued", cases.KindNoticeIssued, "A written notice has been issued to you"},
		{"approval requested", cases.KindApprovalRequested, "Your approval is requested"},
		{"acknowledgement requested", cases.KindAcknowledgementRequested, "A decision awaits your acknowledgement"},
		{"unknown kind falls back", cases.NotificationKind("mystery"), "CaseTrack notification"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, body := render(tt.kind, "Pat", "Something happened.", "")

			assert.Equal(t, tt.wantSubject, subject)
			assert.Contains(t, body, "Hello Pat,")
			assert.Contains(t, body, "Something happened.")
			assert.NotContains(t, body, "Open the case")
		})
	}
}

func TestRender_IncludesLink(t *testing.T) {
	_, body := render(cases.KindNoticeIssued, "Pat", "msg", "https://hr.example.com/board")
	assert.Contains(t, body, "Open the case: https://hr.example.com/board")
}
