package cases

import (
	"context"
	"testing"
	"time"

	"github.com/hrops/casetrack/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRepository implements Repository in memory for testing.
type mockRepository struct {
	incidents   map[string]*domain.Incident
	notices     map[string]*domain.Notice
	resolutions map[string]*domain.Resolution
	messages    []*domain.Message
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		incidents:   make(map[string]*domain.Incident),
		notices:     make(map[string]*domain.Notice),
		resolutions: make(map[string]*domain.Resolution),
	}
}

func (m *mockRepository) CreateIncident(_ context.Context, incident *domain.Incident) error {
	incident.Version = 1
	incident.CreatedAt = time.Now()
	incident.UpdatedAt = incident.CreatedAt
	cp := *incident
	m.incidents[incident.ID] = &cp
	return nil
}

func (m *mockRepository) GetIncident(_ context.Context, id string) (*domain.Incident, error) {
	incident, ok := m.incidents[id]
	if !ok {
		return nil, ErrIncidentNotFound
	}
	cp := *incident
	for _, n := range m.notices {
		if n.IncidentID == id {
			cp.NoticeIDs = append(cp.NoticeIDs, n.ID)
		}
	}
	return &cp, nil
}

func (m *mockRepository) UpdateIncident(_ context.Context, incident *domain.Incident) error {
	existing, ok := m.incidents[incident.ID]
	if !ok {
		return ErrIncidentNotFound
	}
	if existing.Version != incident.Version {
		return ErrVersionConflict
	}
	incident.Version++
	incident.UpdatedAt = time.Now()
	cp := *incident
	m.incidents[incident.ID] = &cp
	return nil
}

func (m *mockRepository) ListIncidents(_ context.Context, _ IncidentFilters) ([]*domain.Incident, error) {
	out := make([]*domain.Incident, 0, len(m.incidents))
	for _, i := range m.incidents {
		cp := *i
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockRepository) AppendMessage(_ context.Context, msg *domain.Message) error {
	msg.CreatedAt = time.Now()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *mockRepository) ListMessages(_ context.Context, incidentID string) ([]*domain.Message, error) {
	out := make([]*domain.Message, 0)
	for _, msg := range m.messages {
		if msg.IncidentID == incidentID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *mockRepository) CreateNotice(_ context.Context, notice *domain.Notice) error {
	notice.Version = 1
	notice.CreatedAt = time.Now()
	notice.UpdatedAt = notice.CreatedAt
	cp := *notice
	m.notices[notice.ID] = &cp
	return nil
}

func (m *mockRepository) GetNotice(_ context.Context, id string) (*domain.Notice, error) {
	notice, ok := m.notices[id]
	if !ok {
		return nil, ErrNoticeNotFound
	}
	cp := *notice
	return &cp, nil
}

func (m *mockRepository) UpdateNotice(_ context.Context, notice *domain.Notice) error {
	existing, ok := m.notices[notice.ID]
	if !ok {
		return ErrNoticeNotFound
	}
	if existing.Version != notice.Version {
		return ErrVersionConflict
	}
	notice.Version++
	notice.UpdatedAt = time.Now()
	cp := *notice
	m.notices[notice.ID] = &cp
	return nil
}

func (m *mockRepository) ListNotices(_ context.Context) ([]*domain.Notice, error) {
	out := make([]*domain.Notice, 0, len(m.notices))
	for _, n := range m.notices {
		cp := *n
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockRepository) ListNoticesByIncident(_ context.Context, incidentID string) ([]*domain.Notice, error) {
	out := make([]*domain.Notice, 0)
	for _, n := range m.notices {
		if n.IncidentID == incidentID {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockRepository) GetOpenNotice(_ context.Context, incidentID, employeeID string) (*domain.Notice, error) {
	for _, n := range m.notices {
		if n.IncidentID == incidentID && n.Employee.ID == employeeID && n.Status.IsOpen() {
			cp := *n
			return &cp, nil
		}
	}
	return nil, ErrNoticeNotFound
}

func (m *mockRepository) CreateResolution(_ context.Context, resolution *domain.Resolution) error {
	resolution.Version = 1
	resolution.CreatedAt = time.Now()
	resolution.UpdatedAt = resolution.CreatedAt
	cp := *resolution
	m.resolutions[resolution.ID] = &cp
	return nil
}

func (m *mockRepository) GetResolution(_ context.Context, id string) (*domain.Resolution, error) {
	resolution, ok := m.resolutions[id]
	if !ok {
		return nil, ErrResolutionNotFound
	}
	cp := *resolution
	return &cp, nil
}

func (m *mockRepository) UpdateResolution(_ context.Context, resolution *domain.Resolution) error {
	existing, ok := m.resolutions[resolution.ID]
	if !ok {
		return ErrResolutionNotFound
	}
	if existing.Version != resolution.Version {
		return ErrVersionConflict
	}
	resolution.Version++
	resolution.UpdatedAt = time.Now()
	cp := *resolution
	m.resolutions[resolution.ID] = &cp
	return nil
}

func (m *mockRepository) ListResolutions(_ context.Context) ([]*domain.Resolution, error) {
	out := make([]*domain.Resolution, 0, len(m.resolutions))
	for _, r := range m.resolutions {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockRepository) ListResolutionsByIncident(_ context.Context, incidentID string) ([]*domain.Resolution, error) {
	out := make([]*domain.Resolution, 0)
	for _, r := range m.resolutions {
		if r.IncidentID == incidentID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockRepository) GetActiveResolution(_ context.Context, incidentID, employeeID string) (*domain.Resolution, error) {
	for _, r := range m.resolutions {
		if r.IncidentID == incidentID && r.EmployeeID == employeeID && r.Status.IsActive() {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrResolutionNotFound
}

// mockNotifier records enqueued notifications.
type mockNotifier struct {
	sent []mockNotification
}

type mockNotification struct {
	recipientID string
	kind        NotificationKind
}

func (m *mockNotifier) Notify(_ context.Context, recipientID string, kind NotificationKind, _, _ string) error {
	m.sent = append(m.sent, mockNotification{recipientID: recipientID, kind: kind})
	return nil
}

func (m *mockNotifier) sentTo(recipientID string, kind NotificationKind) bool {
	for _, n := range m.sent {
		if n.recipientID == recipientID && n.kind == kind {
			return true
		}
	}
	return false
}

// allowAllPerms grants every action.
type allowAllPerms struct{}

func (allowAllPerms) Can(_ domain.Actor, _, _ string) bool { return true }

// denyAllPerms denies every action.
type denyAllPerms struct{}

func (denyAllPerms) Can(_ domain.Actor, _, _ string) bool { return false }

// noopAudit discards audit records.
type noopAudit struct{}

func (noopAudit) Record(_ context.Context, _ domain.Actor, _, _, _, _ string) {}

var (
	hrActor       = domain.Actor{ID: "hr-1", Name: "Dana", Role: domain.RoleHR}
	managerActor  = domain.Actor{ID: "mgr-1", Name: "Kim", Role: domain.RoleManager}
	directorActor = domain.Actor{ID: "dir-1", Name: "Alex", Role: domain.RoleDirector}
	employeeActor = domain.Actor{ID: "emp-1", Name: "Sam", Role: domain.RoleEmployee}
)

func newTestService(repo Repository, notifier Notifier) *Service {
	return NewService(repo, allowAllPerms{}, notifier, noopAudit{}, ServiceConfig{
		ResponseDeadlineDays: 5,
		BaseURL:              "http://casetrack.local",
	})
}

func standardApprovers() []domain.ApproverStep {
	return []domain.ApproverStep{
		{ApproverID: "mgr-1", ApproverName: "Kim", Role: domain.RoleManager, Status: domain.ApprovalStatusPending},
		{ApproverID: "dir-1", ApproverName: "Alex", Role: domain.RoleDirector, Status: domain.ApprovalStatusPending},
	}
}

func createTestIncident(t *testing.T, svc *Service, employees ...domain.EmployeeRef) *domain.Incident {
	t.Helper()
	if len(employees) == 0 {
		employees = []domain.EmployeeRef{{ID: "emp-1", Name: "Sam"}}
	}
	incident, err := svc.CreateIncident(context.Background(), hrActor, CreateIncidentInput{
		Category:     "attendance",
		Description:  "Repeated unexcused absences",
		OccurredAt:   time.Now().Add(-48 * time.Hour),
		BusinessUnit: "operations",
		Employees:    employees,
	})
	require.NoError(t, err)
	return incident
}

func issueTestNotice(t *testing.T, svc *Service, incidentID string, employee domain.EmployeeRef) *domain.Notice {
	t.Helper()
	notice, err := svc.IssueNotice(context.Background(), hrActor, IssueNoticeInput{
		IncidentID: incidentID,
		Employee:   employee,
		Allegation: "Violation of attendance policy",
		PolicyRefs: []string{"HR-7.2"},
		Approvers:  standardApprovers(),
	})
	require.NoError(t, err)
	return notice
}

func approveNotice(t *testing.T, svc *Service, noticeID string) *domain.Notice {
	t.Helper()
	_, _, err := svc.RecordNoticeDecision(context.Background(), managerActor, noticeID, domain.ApprovalStatusApproved, "")
	require.NoError(t, err)
	notice, verdict, err := svc.RecordNoticeDecision(context.Background(), directorActor, noticeID, domain.ApprovalStatusApproved, "")
	require.NoError(t, err)
	require.Equal(t, domain.VerdictApproved, verdict)
	return notice
}

func TestCreateIncident_Validation(t *testing.T) {
	svc := newTestService(newMockRepository(), &mockNotifier{})

	_, err := svc.CreateIncident(context.Background(), hrActor, CreateIncidentInput{})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Messages, 4)
}

func TestCreateIncident_PermissionDenied(t *testing.T) {
	svc := NewService(newMockRepository(), denyAllPerms{}, &mockNotifier{}, noopAudit{}, ServiceConfig{})

	_, err := svc.CreateIncident(context.Background(), hrActor, CreateIncidentInput{})

	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestBeginReview_AssignsHandler(t *testing.T) {
	svc := newTestService(newMockRepository(), &mockNotifier{})
	incident := createTestIncident(t, svc)

	updated, err := svc.BeginReview(context.Background(), hrActor, incident.ID, "")

	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStatusHRReview, updated.Status)
	require.NotNil(t, updated.HandlerID)
	assert.Equal(t, hrActor.ID, *updated.HandlerID)
}

func TestCloseWithoutAction_BlockedByNotices(t *testing.T) {
	svc := newTestService(newMockRepository(), &mockNotifier{})
	incident := createTestIncident(t, svc)
	issueTestNotice(t, svc, incident.ID, domain.EmployeeRef{ID: "emp-1", Name: "Sam"})

	_, err := svc.CloseWithoutAction(context.Background(), hrActor, incident.ID)

	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestConvertToCoaching(t *testing.T) {
	svc := newTestService(newMockRepository(), &mockNotifier{})
	incident := createTestIncident(t, svc)

	updated, err := svc.ConvertToCoaching(context.Background(), hrActor, incident.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStatusConverted, updated.Status)

	_, err = svc.ConvertToCoaching(context.Background(), hrActor, incident.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestIssueNotice_RequiresDirectorApprover(t *testing.T) {
	svc := newTestService(newMockRepository(), &mockNotifier{})
	incident := createTestIncident(t, svc)

	_, err := svc.IssueNotice(context.Background(), hrActor, IssueNoticeInput{
		IncidentID: incident.ID,
		Employee:   domain.EmployeeRef{ID: "emp-1", Name: "Sam"},
		Allegation: "Violation of attendance policy",
		PolicyRefs: []string{"HR-7.2"},
		Approvers: []domain.ApproverStep{
			{ApproverID: "mgr-1", Role: domain.RoleManager, Status: domain.ApprovalStatusPending},
		},
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Messages, "include at least one director approver")
}

func TestIssueNotice_EmployeeMustBeNamed(t *testing.T) {
	svc := newTestService(newMockRepository(), &mockNotifier{})
	incident := createTestIncident(t, svc)

	_, err := svc.IssueNotice(context.Background(), hrActor, IssueNoticeInput{
		IncidentID: incident.ID,
		Employee:   domain.EmployeeRef{ID: "emp-99", Name: "Stranger"},
		Allegation: "Violation of attendance policy",
		PolicyRefs: []string{"HR-7.2"},
		Approvers:  standardApprovers(),
	})

	assert.ErrorIs(t, err, ErrEmployeeNotOnIncident)
}

func TestIssueNotice_OnePerEmployee(t *testing.T) {
	svc := newTestService(newMockRepository(), &mockNotifier{})
	incident := createTestIncident(t, svc)
	employee := domain.EmployeeRef{ID: "emp-1", Name: "Sam"}
	issueTestNotice(t, svc, incident.ID, employee)

	_, err := svc.IssueNotice(context.Background(), hrActor, IssueNoticeInput{
		IncidentID: incident.ID,
		Employee:   employee,
		Allegation: "Second allegation",
		PolicyRefs: []string{"HR-7.3"},
		Approvers:  standardApprovers(),
	})

	assert.ErrorIs(t, err, ErrOpenNoticeExists)
}

func TestIssueNotice_TerminalIncident(t *testing.T) {
	svc := newTestService(newMockRepository(), &mockNotifier{})
	employee := domain.EmployeeRef{ID: "emp-1", Name: "Sam"}

	closed := createTestIncident(t, svc)
	_, err := svc.CloseWithoutAction(context.Background(), hrActor, closed.ID)
	require.NoError(t, err)

	_, err = svc.IssueNotice(context.Background(), hrActor, IssueNoticeInput{
		IncidentID: closed.ID,
		Employee:   employee,
		Allegation: "Violation of attendance policy",
		PolicyRefs: []string{"HR-7.2"},
		Approvers:  standardApprovers(),
	})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	converted := createTestIncident(t, svc)
	_, err = svc.ConvertToCoaching(context.Background(), hrActor, converted.ID)
	require.NoError(t, err)

	_, err = svc.IssueNotice(context.Background(), hrActor, IssueNoticeInput{
		IncidentID: converted.ID,
		Employee:   employee,
		Allegation: "Violation of attendance policy",
		PolicyRefs: []string{"HR-7.2"},
		Approvers:  standardApprovers(),
	})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestIssueNotice_NotifiesApprovers(t *testing.T) {
	notifier := &mockNotifier{}
	svc := newTestService(newMockRepository(), notifier)
	incident := createTestIncident(t, svc)

	issueTestNotice(t, svc, incident.ID, domain.EmployeeRef{ID: "emp-1", Name: "Sam"})

	assert.True(t, notifier.sentTo("mgr-1", KindApprovalRequested))
	assert.True(t, notifier.sentTo("dir-1", KindApprovalRequested))
}

func TestRecordNoticeDecision_FullApprovalIssues(t *testing.T) {
	notifier := &mockNotifier{}
	svc := newTestService(newMockRepository(), notifier)
	incident := createTestIncident(t, svc)
	notice := issueTestNotice(t, svc, incident.ID, domain.EmployeeRef{ID: "emp-1", Name: "Sam"})

	issued := approveNotice(t, svc, notice.ID)

	assert.Equal(t, domain.NoticeStatusIssued, issued.Status)
	require.NotNil(t, issued.IssueDate)
	require.NotNil(t, issued.ResponseDeadline)
	assert.WithinDuration(t, issued.IssueDate.AddDate(0, 0, 5), *issued.ResponseDeadline, time.Second)
	assert.True(t, notifier.sentTo("emp-1", KindNoticeIssued))
}

func TestRecordNoticeDecision_VetoKeepsPendingAndRecordsReason(t *testing.T) {
	svc := newTestService(newMockRepository(), &mockNotifier{})
	incident := createTestIncident(t, svc)
	notice := issueTestNotice(t, svc, incident.ID, domain.EmployeeRef{ID: "emp-1", Name: "Sam"})

	_, _, err := svc.RecordNoticeDecision(context.Background(), managerActor, notice.ID, domain.ApprovalStatusApproved, "")
	require.NoError(t, err)
	updated, verdict, err := svc.RecordNoticeDecision(context.Background(), directorActor, notice.ID, domain.ApprovalStatusRejected, "allegation lacks dates")
	require.NoError(t, err)

	assert.Equal(t, domain.VerdictRejected, verdict)
	assert.Equal(t, domain.NoticeStatusPendingApproval, updated.Status)

	msgs, err := svc.ListMessages(context.Background(), incident.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Body, "allegation lacks dates")
}

func TestResubmitNotice_ResetsSteps(t *testing.T) {
	svc := newTestService(newMockRepository(), &mockNotifier{})
	incident := createTestIncident(t, svc)
	notice := issueTestNotice(t, svc, incident.ID, domain.EmployeeRef{ID: "emp-1", Name: "Sam"})

	_, _, err := svc.RecordNoticeDecision(context.Background(), directorActor, notice.ID, domain.ApprovalStatusRejected, "too vague")
	require.NoError(t, err)

	resubmitted, err := svc.ResubmitNotice(context.Background(), hrActor, notice.ID, ResubmitNoticeInput{
		Allegation: "Violation of attendance policy on 2026-08-12 and 2026-08-19",
	})
	require.NoError(t, err)

	assert.Equal(t, "Violation of attendance policy on 2026-08-12 and 2026-08-19", resubmitted.Allegation)
	for _, step := range resubmitted.Steps {
		assert.Equal(t, domain.ApprovalStatusPending, step.Status)
		assert.Empty(t, step.Reason)
	}
}

func TestResubmitNotice_OnlyAfterVeto(t *testing.T) {
	svc := newTestService(newMockRepository(), &mockNotifier{})
	incident := createTestIncident(t, svc)
	notice := issueTestNotice(t, svc, incident.ID, domain.EmployeeRef{ID: "emp-1", Name: "Sam"})

	_, err := svc.ResubmitNotice(context.Background(), hrActor, notice.ID, ResubmitNoticeInput{})

	assert.ErrorIs(t, err, ErrNotResubmittable)
}

func TestSubmitResponse_OwnNoticeOnly(t *testing.T) {
	svc := newTestService(newMockRepository(), &mockNotifier{})
	incident := createTestIncident(t, svc)
	notice := issueTestNotice(t, svc, incident.ID, domain.EmployeeRef{ID: "emp-1", Name: "Sam"})
	approveNotice(t, svc, notice.ID)

	otherEmployee := domain.Actor{ID: "emp-2", Name: "Riley", Role: domain.RoleEmployee}
	_, err := svc.SubmitResponse(context.Background(), otherEmployee, notice.ID, "I dispute this")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	updated, err := svc.SubmitResponse(context.Background(), employeeActor, notice.ID, "I dispute this")
	require.NoError(t, err)
	assert.Equal(t, domain.NoticeStatusResponseSubmitted, updated.Status)
	require.NotNil(t, updated.Response)
	assert.Equal(t, "I dispute this", *updated.Response)
}

func TestScheduleHearing_AfterResponse(t *testing.T) {
	svc := newTestService(newMockRepository(), &mockNotifier{})
	incident := createTestIncident(t, svc)
	notice := issueTestNotice(t, svc, incident.ID, domain.EmployeeRef{ID: "emp-1", Name: "Sam"})
	approveNotice(t, svc, notice.ID)

	_, err := svc.SubmitResponse(context.Background(), employeeActor, notice.ID, "I dispute this")
	require.NoError(t, err)

	updated, err := svc.ScheduleHearing(context.Background(), hrActor, notice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.NoticeStatusHearingScheduled, updated.Status)
}

func TestRecordWaiver_OnlyFromIssued(t *testing.T) {
	svc := newTestService(newMockRepository(), &mockNotifier{})
	incident := createTestIncident(t, svc)
	notice := issueTestNotice(t, svc, incident.ID, domain.EmployeeRef{ID: "emp-1", Name: "Sam"})

	_, err := svc.RecordWaiver(context.Background(), hrActor, notice.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	approveNotice(t, svc, notice.ID)
	updated, err := svc.RecordWaiver(context.Background(), hrActor, notice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.NoticeStatusWaiver, updated.Status)
}

func setupReviewedNotice(t *testing.T, svc *Service) (*domain.Incident, *domain.Notice) {
	t.Helper()
	incident := createTestIncident(t, svc)
	notice := issueTestNotice(t, svc, incident.ID, domain.EmployeeRef{ID: "emp-1", Name: "Sam"})
	approveNotice(t, svc, notice.ID)
	_, err := svc.SubmitResponse(context.Background(), employeeActor, notice.ID, "I dispute this")
	require.NoError(t, err)
	return incident, notice
}

func TestCreateResolution_RequiresReviewedNotice(t *testing.T) {
	svc := newTestService(newMockRepository(), &mockNotifier{})
	incident := createTestIncident(t, svc)
	issueTestNotice(t, svc, incident.ID, domain.EmployeeRef{ID: "emp-1", Name: "Sam"})

	_, err := svc.CreateResolution(context.Background(), hrActor, CreateResolutionInput{
		IncidentID: incident.ID,
		EmployeeID: "emp-1",
		Decision:   "written warning",
		Approvers:  standardApprovers(),
	})

	assert.ErrorIs(t, err, ErrNoticeNotReviewed)
}

func TestCreateResolution_ClosesNotice(t *testing.T) {
	svc := newTestService(newMockRepository(), &mockNotifier{})
	incident, notice := setupReviewedNotice(t, svc)

	resolution, err := svc.CreateResolution(context.Background(), hrActor, CreateResolutionInput{
		IncidentID: incident.ID,
		EmployeeID: "emp-1",
		Decision:   "written warning",
		Approvers:  standardApprovers(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ResolutionStatusPendingApproval, resolution.Status)

	closedNotice, err := svc.GetNotice(context.Background(), notice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.NoticeStatusClosed, closedNotice.Status)
}

func TestCreateResolution_OneActivePerEmployee(t *testing.T) {
	svc := newTestService(newMockRepository(), &mockNotifier{})
	incident, _ := setupReviewedNotice(t, svc)

	_, err := svc.CreateResolution(context.Background(), hrActor, CreateResolutionInput{
		IncidentID: incident.ID,
		EmployeeID: "emp-1",
		Decision:   "written warning",
		Approvers:  standardApprovers(),
	})
	require.NoError(t, err)

	_, err = svc.CreateResolution(context.Background(), hrActor, CreateResolutionInput{
		IncidentID: incident.ID,
		EmployeeID: "emp-1",
		Decision:   "suspension",
		Approvers:  standardApprovers(),
	})
	assert.ErrorIs(t, err, ErrActiveResolutionExists)
}

func createTestResolution(t *testing.T, svc *Service) (*domain.Incident, *domain.Resolution) {
	t.Helper()
	incident, _ := setupReviewedNotice(t, svc)
	resolution, err := svc.CreateResolution(context.Background(), hrActor, CreateResolutionInput{
		IncidentID: incident.ID,
		EmployeeID: "emp-1",
		Decision:   "written warning",
		Approvers:  standardApprovers(),
	})
	require.NoError(t, err)
	return incident, resolution
}

func TestRecordResolutionDecision_ApprovalRequestsAcknowledgement(t *testing.T) {
	notifier := &mockNotifier{}
	svc := newTestService(newMockRepository(), notifier)
	_, resolution := createTestResolution(t, svc)

	_, _, err := svc.RecordResolutionDecision(context.Background(), managerActor, resolution.ID, domain.ApprovalStatusApproved, "")
	require.NoError(t, err)
	updated, verdict, err := svc.RecordResolutionDecision(context.Background(), directorActor, resolution.ID, domain.ApprovalStatusApproved, "")
	require.NoError(t, err)

	assert.Equal(t, domain.VerdictApproved, verdict)
	assert.Equal(t, domain.ResolutionStatusPendingAcknowledgement, updated.Status)
	assert.True(t, notifier.sentTo("emp-1", KindAcknowledgementRequested))
}

func TestRecordResolutionDecision_VetoRejects(t *testing.T) {
	svc := newTestService(newMockRepository(), &mockNotifier{})
	incident, resolution := createTestResolution(t, svc)

	updated, verdict, err := svc.RecordResolutionDecision(context.Background(), directorActor, resolution.ID, domain.ApprovalStatusRejected, "sanction too harsh")
	require.NoError(t, err)

	assert.Equal(t, domain.VerdictRejected, verdict)
	assert.Equal(t, domain.ResolutionStatusRejected, updated.Status)

	msgs, err := svc.ListMessages(context.Background(), incident.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Body, "sanction too harsh")
}

func TestResubmitResolution_AmendsAndResets(t *testing.T) {
	svc := newTestService(newMockRepository(), &mockNotifier{})
	_, resolution := createTestResolution(t, svc)

	_, _, err := svc.RecordResolutionDecision(context.Background(), directorActor, resolution.ID, domain.ApprovalStatusRejected, "sanction too harsh")
	require.NoError(t, err)

	amended, err := svc.ResubmitResolution(context.Background(), hrActor, resolution.ID, ResubmitResolutionInput{
		Decision: "verbal warning",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ResolutionStatusPendingApproval, amended.Status)
	assert.Equal(t, "verbal warning", amended.Decision)
	for _, step := range amended.Steps {
		assert.Equal(t, domain.ApprovalStatusPending, step.Status)
	}
}

func TestAcknowledgeResolution(t *testing.T) {
	svc := newTestService(newMockRepository(), &mockNotifier{})
	_, resolution := createTestResolution(t, svc)
	_, _, err := svc.RecordResolutionDecision(context.Background(), managerActor, resolution.ID, domain.ApprovalStatusApproved, "")
	require.NoError(t, err)
	_, _, err = svc.RecordResolutionDecision(context.Background(), directorActor, resolution.ID, domain.ApprovalStatusApproved, "")
	require.NoError(t, err)

	otherEmployee := domain.Actor{ID: "emp-2", Name: "Riley", Role: domain.RoleEmployee}
	_, err = svc.AcknowledgeResolution(context.Background(), otherEmployee, resolution.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	acked, err := svc.AcknowledgeResolution(context.Background(), employeeActor, resolution.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ResolutionStatusAcknowledged, acked.Status)
}

func TestFinalizeResolution_WithoutAcknowledgement(t *testing.T) {
	svc := newTestService(newMockRepository(), &mockNotifier{})
	_, resolution := createTestResolution(t, svc)
	_, _, err := svc.RecordResolutionDecision(context.Background(), managerActor, resolution.ID, domain.ApprovalStatusApproved, "")
	require.NoError(t, err)
	_, _, err = svc.RecordResolutionDecision(context.Background(), directorActor, resolution.ID, domain.ApprovalStatusApproved, "")
	require.NoError(t, err)

	finalized, err := svc.FinalizeResolution(context.Background(), hrActor, resolution.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ResolutionStatusApproved, finalized.Status)
}

func TestOverrideStage_InvalidStage(t *testing.T) {
	svc := newTestService(newMockRepository(), &mockNotifier{})
	incident := createTestIncident(t, svc)

	_, err := svc.OverrideStage(context.Background(), hrActor, incident.ID, domain.Stage("limbo"))

	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestOverrideStage_DivergenceSurvivesWorkflowProgress(t *testing.T) {
	svc := newTestService(newMockRepository(), &mockNotifier{})
	incident := createTestIncident(t, svc)
	notice := issueTestNotice(t, svc, incident.ID, domain.EmployeeRef{ID: "emp-1", Name: "Sam"})

	_, err := svc.OverrideStage(context.Background(), hrActor, incident.ID, domain.StageNTEForApproval)
	require.NoError(t, err)

	// Workflow moves on; the override stays put and the board flags it.
	approveNotice(t, svc, notice.ID)

	columns, err := svc.Board(context.Background(), BoardFilters{})
	require.NoError(t, err)

	entry := findBoardEntry(t, columns, incident.ID)
	assert.Equal(t, domain.StageNTEForApproval, entry.Stage)
	assert.Equal(t, domain.StageNTESent, entry.DerivedStage)
	assert.True(t, entry.StageDiverged)

	_, err = svc.ClearStageOverride(context.Background(), hrActor, incident.ID)
	require.NoError(t, err)

	columns, err = svc.Board(context.Background(), BoardFilters{})
	require.NoError(t, err)
	entry = findBoardEntry(t, columns, incident.ID)
	assert.Equal(t, domain.StageNTESent, entry.Stage)
	assert.False(t, entry.StageDiverged)
}

func findBoardEntry(t *testing.T, columns []Column, id string) BoardEntry {
	t.Helper()
	for _, col := range columns {
		for _, e := range col.Entries {
			if e.ID == id {
				return e
			}
		}
	}
	t.Fatalf("board entry %s not found", id)
	return BoardEntry{}
}

func TestBoard_StableColumns(t *testing.T) {
	svc := newTestService(newMockRepository(), &mockNotifier{})

	columns, err := svc.Board(context.Background(), BoardFilters{})

	require.NoError(t, err)
	require.Len(t, columns, len(domain.BoardStages()))
	for i, stage := range domain.BoardStages() {
		assert.Equal(t, stage, columns[i].Stage)
		assert.Empty(t, columns[i].Entries)
	}
}

func TestBoard_SearchIsCaseless(t *testing.T) {
	svc := newTestService(newMockRepository(), &mockNotifier{})
	incident := createTestIncident(t, svc)

	columns, err := svc.Board(context.Background(), BoardFilters{Search: "ATTENDANCE"})
	require.NoError(t, err)
	entry := findBoardEntry(t, columns, incident.ID)
	assert.Equal(t, incident.ID, entry.IncidentID)

	columns, err = svc.Board(context.Background(), BoardFilters{Search: "harassment"})
	require.NoError(t, err)
	for _, col := range columns {
		assert.Empty(t, col.Entries)
	}
}
