package cases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hrops/casetrack/internal/approval"
	"github.com/hrops/casetrack/internal/authz"
	"github.com/hrops/casetrack/internal/domain"
	"github.com/hrops/casetrack/internal/pkg/ctxlog"
	"github.com/hrops/casetrack/internal/pkg/keylock"
	"github.com/hrops/casetrack/internal/pkg/metrics"
	"github.com/google/uuid"
	textcases "golang.org/x/text/cases"
)

// ServiceConfig tunes workflow behavior.
type ServiceConfig struct {
	// ResponseDeadlineDays is the employee's answer window, counted from
	// the notice issue date.
	ResponseDeadlineDays int
	// BaseURL prefixes deep links embedded in notifications.
	BaseURL string
}

// Service implements the case workflow. All writes to one (incident,
// employee) thread are serialized through a keyed lock; the repository
// additionally detects lost updates via record versions.
type Service struct {
	repo     Repository
	perms    PermissionEvaluator
	notifier Notifier
	audit    AuditRecorder
	locks    *keylock.KeyedMutex
	cfg      ServiceConfig
}

// NewService creates the case workflow service.
func NewService(repo Repository, perms PermissionEvaluator, notifier Notifier, auditor AuditRecorder, cfg ServiceConfig) *Service {
	if cfg.ResponseDeadlineDays <= 0 {
		cfg.ResponseDeadlineDays = 5
	}
	return &Service{
		repo:     repo,
		perms:    perms,
		notifier: notifier,
		audit:    auditor,
		locks:    keylock.New(),
		cfg:      cfg,
	}
}

func (s *Service) lockThread(incidentID, employeeID string) func() {
	return s.locks.Lock(incidentID + compositeIDSeparator + employeeID)
}

// CreateIncidentInput holds data for filing an incident.
type CreateIncidentInput struct {
	Category     string
	Description  string
	OccurredAt   time.Time
	BusinessUnit string
	Employees    []domain.EmployeeRef
	Witnesses    []domain.EmployeeRef
}

// CreateIncident files a new incident on behalf of the actor.
func (s *Service) CreateIncident(ctx context.Context, actor domain.Actor, input CreateIncidentInput) (*domain.Incident, error) {
	if !s.perms.Can(actor, authz.ResourceIncident, authz.ActionCreate) {
		return nil, ErrPermissionDenied
	}

	var msgs []string
	if strings.TrimSpace(input.Category) == "" {
		msgs = append(msgs, "select an incident category")
	}
	if strings.TrimSpace(input.Description) == "" {
		msgs = append(msgs, "describe the incident")
	}
	if len(input.Employees) == 0 {
		msgs = append(msgs, "name at least one involved employee")
	}
	if input.OccurredAt.IsZero() {
		msgs = append(msgs, "provide the incident date")
	}
	if len(msgs) > 0 {
		return nil, &ValidationError{Messages: msgs}
	}

	incident := &domain.Incident{
		ID:           uuid.New().String(),
		Category:     input.Category,
		Description:  input.Description,
		OccurredAt:   input.OccurredAt,
		ReportedBy:   actor.ID,
		ReporterName: actor.Name,
		BusinessUnit: input.BusinessUnit,
		Employees:    input.Employees,
		Witnesses:    input.Witnesses,
		Status:       domain.IncidentStatusSubmitted,
	}

	if err := s.repo.CreateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("create incident: %w", err)
	}

	s.audit.Record(ctx, actor, "incident.create", "incident", incident.ID,
		fmt.Sprintf("Incident filed: %s (%d employees)", incident.Category, len(incident.Employees)))
	metrics.StageTransitions.WithLabelValues(string(domain.StageIRReview)).Inc()

	return incident, nil
}

// GetIncident retrieves an incident by id.
func (s *Service) GetIncident(ctx context.Context, id string) (*domain.Incident, error) {
	return s.repo.GetIncident(ctx, id)
}

// ListIncidents retrieves incidents with optional filters.
func (s *Service) ListIncidents(ctx context.Context, filters IncidentFilters) ([]*domain.Incident, error) {
	return s.repo.ListIncidents(ctx, filters)
}

// BeginReview moves a submitted incident into HR review and assigns the
// case handler.
func (s *Service) BeginReview(ctx context.Context, actor domain.Actor, incidentID, handlerID string) (*domain.Incident, error) {
	if !s.perms.Can(actor, authz.ResourceIncident, authz.ActionReview) {
		return nil, ErrPermissionDenied
	}

	incident, err := s.repo.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	if incident.Status != domain.IncidentStatusSubmitted {
		return nil, fmt.Errorf("%w: incident is %s", ErrInvalidTransition, incident.Status)
	}

	incident.Status = domain.IncidentStatusHRReview
	if handlerID == "" {
		handlerID = actor.ID
	}
	incident.HandlerID = &handlerID

	if err := s.repo.UpdateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}

	s.audit.Record(ctx, actor, "incident.review", "incident", incident.ID, "HR review started")
	return incident, nil
}

// CloseWithoutAction ends an incident with no disciplinary consequence.
func (s *Service) CloseWithoutAction(ctx context.Context, actor domain.Actor, incidentID string) (*domain.Incident, error) {
	return s.closeIncident(ctx, actor, incidentID, domain.IncidentStatusNoAction, "incident.close", "Closed without action")
}

// ConvertToCoaching ends an incident by converting it into informal coaching.
func (s *Service) ConvertToCoaching(ctx context.Context, actor domain.Actor, incidentID string) (*domain.Incident, error) {
	return s.closeIncident(ctx, actor, incidentID, domain.IncidentStatusConverted, "incident.convert", "Converted to coaching")
}

func (s *Service) closeIncident(ctx context.Context, actor domain.Actor, incidentID string, status domain.IncidentStatus, action, summary string) (*domain.Incident, error) {
	resource, verb := authz.ResourceIncident, authz.ActionClose
	if status == domain.IncidentStatusConverted {
		verb = authz.ActionConvert
	}
	if !s.perms.Can(actor, resource, verb) {
		return nil, ErrPermissionDenied
	}

	incident, err := s.repo.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	if incident.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: incident already %s", ErrInvalidTransition, incident.Status)
	}
	if len(incident.NoticeIDs) > 0 {
		return nil, fmt.Errorf("%w: incident has issued notices", ErrInvalidTransition)
	}

	incident.Status = status
	if err := s.repo.UpdateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}

	s.audit.Record(ctx, actor, action, "incident", incident.ID, summary)
	return incident, nil
}

// AppendMessage adds one entry to the incident's discussion thread.
func (s *Service) AppendMessage(ctx context.Context, actor domain.Actor, incidentID, body string) (*domain.Message, error) {
	if !s.perms.Can(actor, authz.ResourceIncident, authz.ActionComment) {
		return nil, ErrPermissionDenied
	}
	if strings.TrimSpace(body) == "" {
		return nil, &ValidationError{Messages: []string{"message body is required"}}
	}

	if _, err := s.repo.GetIncident(ctx, incidentID); err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ID:         uuid.New().String(),
		IncidentID: incidentID,
		AuthorID:   actor.ID,
		AuthorName: actor.Name,
		Body:       body,
	}
	if err := s.repo.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	return msg, nil
}

// ListMessages returns the incident's thread in chronological order.
func (s *Service) ListMessages(ctx context.Context, incidentID string) ([]*domain.Message, error) {
	return s.repo.ListMessages(ctx, incidentID)
}

// IssueNoticeInput holds data for drafting a formal written notice.
type IssueNoticeInput struct {
	IncidentID   string
	Employee     domain.EmployeeRef
	Allegation   string
	PolicyRefs   []string
	EvidenceLink string
	Approvers    []domain.ApproverStep
}

// IssueNotice drafts a notice for one employee of an incident and starts
// its approval cycle. The notice stays in pending approval until every
// approver signs off.
func (s *Service) IssueNotice(ctx context.Context, actor domain.Actor, input IssueNoticeInput) (*domain.Notice, error) {
	if !s.perms.Can(actor, authz.ResourceNotice, authz.ActionIssue) {
		return nil, ErrPermissionDenied
	}

	incident, err := s.repo.GetIncident(ctx, input.IncidentID)
	if err != nil {
		return nil, err
	}
	if incident.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: incident is %s", ErrInvalidTransition, incident.Status)
	}

	var msgs []string
	if strings.TrimSpace(input.Allegation) == "" {
		msgs = append(msgs, "state the allegation")
	}
	if input.Employee.ID == "" {
		msgs = append(msgs, "select an employee recipient")
	}
	if len(input.PolicyRefs) == 0 {
		msgs = append(msgs, "cite at least one policy reference")
	}
	if len(input.Approvers) == 0 {
		msgs = append(msgs, "add at least one approver")
	} else if !approval.HasRole(input.Approvers, domain.RoleDirector) {
		msgs = append(msgs, "include at least one director approver")
	}
	if len(msgs) > 0 {
		return nil, &ValidationError{Messages: msgs}
	}

	if !incident.NamesEmployee(input.Employee.ID) {
		return nil, ErrEmployeeNotOnIncident
	}

	unlock := s.lockThread(input.IncidentID, input.Employee.ID)
	defer unlock()

	if _, err := s.repo.GetOpenNotice(ctx, input.IncidentID, input.Employee.ID); err == nil {
		return nil, ErrOpenNoticeExists
	} else if err != ErrNoticeNotFound {
		return nil, fmt.Errorf("check open notice: %w", err)
	}

	notice := &domain.Notice{
		ID:           uuid.New().String(),
		IncidentID:   input.IncidentID,
		Employee:     input.Employee,
		Status:       domain.NoticeStatusPendingApproval,
		Allegation:   input.Allegation,
		PolicyRefs:   input.PolicyRefs,
		EvidenceLink: input.EvidenceLink,
		IssuedBy:     actor.ID,
		Steps:        approval.Reset(input.Approvers),
	}

	if err := s.repo.CreateNotice(ctx, notice); err != nil {
		return nil, fmt.Errorf("create notice: %w", err)
	}

	// First notice pulls the incident out of plain review.
	if incident.Status == domain.IncidentStatusSubmitted {
		incident.Status = domain.IncidentStatusHRReview
		if err := s.repo.UpdateIncident(ctx, incident); err != nil {
			return nil, fmt.Errorf("update incident: %w", err)
		}
	}

	s.notifyApprovers(ctx, notice.Steps, "A written notice awaits your approval", "/notices/"+notice.ID)
	s.audit.Record(ctx, actor, "notice.create", "notice", notice.ID,
		fmt.Sprintf("Notice drafted for %s", notice.Employee.Name))
	metrics.StageTransitions.WithLabelValues(string(domain.StageNTEForApproval)).Inc()

	return notice, nil
}

// GetNotice retrieves a notice by id.
func (s *Service) GetNotice(ctx context.Context, id string) (*domain.Notice, error) {
	return s.repo.GetNotice(ctx, id)
}

// RecordNoticeDecision records one approver's vote on a pending notice.
// Full approval issues the notice and notifies the employee; a veto keeps
// the notice pending correction and files the reason on the incident
// thread.
func (s *Service) RecordNoticeDecision(ctx context.Context, actor domain.Actor, noticeID string, decision domain.ApprovalStatus, reason string) (*domain.Notice, domain.Verdict, error) {
	if !s.perms.Can(actor, authz.ResourceNotice, authz.ActionApprove) {
		return nil, "", ErrPermissionDenied
	}

	notice, err := s.repo.GetNotice(ctx, noticeID)
	if err != nil {
		return nil, "", err
	}
	if notice.Status != domain.NoticeStatusPendingApproval {
		return nil, "", fmt.Errorf("%w: notice is %s", ErrInvalidTransition, notice.Status)
	}

	unlock := s.lockThread(notice.IncidentID, notice.Employee.ID)
	defer unlock()

	steps, err := approval.RecordDecision(notice.Steps, actor.ID, decision, reason, time.Now())
	if err != nil {
		return nil, "", err
	}
	notice.Steps = steps
	metrics.ApprovalDecisions.WithLabelValues("notice", string(decision)).Inc()

	verdict := approval.Aggregate(steps)
	switch verdict {
	case domain.VerdictApproved:
		now := time.Now()
		deadline := now.AddDate(0, 0, s.cfg.ResponseDeadlineDays)
		notice.Status = domain.NoticeStatusIssued
		notice.IssueDate = &now
		notice.ResponseDeadline = &deadline
	case domain.VerdictRejected:
		s.recordRejectionOnThread(ctx, actor, notice.IncidentID,
			fmt.Sprintf("Notice for %s rejected: %s", notice.Employee.Name, reason))
	}

	if err := s.repo.UpdateNotice(ctx, notice); err != nil {
		return nil, "", fmt.Errorf("update notice: %w", err)
	}

	if verdict == domain.VerdictApproved {
		s.notify(ctx, notice.Employee.ID, KindNoticeIssued,
			"A formal written notice has been issued to you", "/notices/"+notice.ID)
		metrics.StageTransitions.WithLabelValues(string(domain.StageNTESent)).Inc()
	}

	s.audit.Record(ctx, actor, "notice."+string(decision), "notice", notice.ID,
		fmt.Sprintf("Notice %s by %s (aggregate: %s)", decision, actor.Name, verdict))

	return notice, verdict, nil
}

// ResubmitNoticeInput carries the corrected notice content.
type ResubmitNoticeInput struct {
	Allegation   string
	PolicyRefs   []string
	EvidenceLink string
}

// ResubmitNotice restarts the approval cycle of a vetoed notice with fresh
// all-pending steps on the same record.
func (s *Service) ResubmitNotice(ctx context.Context, actor domain.Actor, noticeID string, input ResubmitNoticeInput) (*domain.Notice, error) {
	if !s.perms.Can(actor, authz.ResourceNotice, authz.ActionIssue) {
		return nil, ErrPermissionDenied
	}

	notice, err := s.repo.GetNotice(ctx, noticeID)
	if err != nil {
		return nil, err
	}
	if notice.Status != domain.NoticeStatusPendingApproval || approval.Aggregate(notice.Steps) != domain.VerdictRejected {
		return nil, ErrNotResubmittable
	}

	unlock := s.lockThread(notice.IncidentID, notice.Employee.ID)
	defer unlock()

	if input.Allegation != "" {
		notice.Allegation = input.Allegation
	}
	if len(input.PolicyRefs) > 0 {
		notice.PolicyRefs = input.PolicyRefs
	}
	if input.EvidenceLink != "" {
		notice.EvidenceLink = input.EvidenceLink
	}
	notice.Steps = approval.Reset(notice.Steps)

	if err := s.repo.UpdateNotice(ctx, notice); err != nil {
		return nil, fmt.Errorf("update notice: %w", err)
	}

	s.notifyApprovers(ctx, notice.Steps, "A corrected written notice awaits your approval", "/notices/"+notice.ID)
	s.audit.Record(ctx, actor, "notice.resubmit", "notice", notice.ID, "Notice corrected and resubmitted")

	return notice, nil
}

// SubmitResponse records the employee's written answer to an issued notice.
func (s *Service) SubmitResponse(ctx context.Context, actor domain.Actor, noticeID, response string) (*domain.Notice, error) {
	if !s.perms.Can(actor, authz.ResourceNotice, authz.ActionRespond) {
		return nil, ErrPermissionDenied
	}
	if strings.TrimSpace(response) == "" {
		return nil, &ValidationError{Messages: []string{"response text is required"}}
	}

	notice, err := s.repo.GetNotice(ctx, noticeID)
	if err != nil {
		return nil, err
	}
	if notice.Status != domain.NoticeStatusIssued {
		return nil, fmt.Errorf("%w: notice is %s", ErrInvalidTransition, notice.Status)
	}
	// Employees may only answer their own notice.
	if actor.Role == domain.RoleEmployee && actor.ID != notice.Employee.ID {
		return nil, ErrPermissionDenied
	}

	unlock := s.lockThread(notice.IncidentID, notice.Employee.ID)
	defer unlock()

	now := time.Now()
	notice.Status = domain.NoticeStatusResponseSubmitted
	notice.Response = &response
	notice.ResponseAt = &now

	if err := s.repo.UpdateNotice(ctx, notice); err != nil {
		return nil, fmt.Errorf("update notice: %w", err)
	}

	s.audit.Record(ctx, actor, "notice.respond", "notice", notice.ID, "Employee response submitted")
	metrics.StageTransitions.WithLabelValues(string(domain.StageHRReviewResponse)).Inc()
	return notice, nil
}

// RecordWaiver marks an issued notice as answered by waiver: the employee
// declined to contest.
func (s *Service) RecordWaiver(ctx context.Context, actor domain.Actor, noticeID string) (*domain.Notice, error) {
	return s.transitionNotice(ctx, actor, noticeID, domain.NoticeStatusWaiver,
		[]domain.NoticeStatus{domain.NoticeStatusIssued}, "notice.waiver", "Response waived")
}

// ScheduleHearing moves a notice to an administrative hearing.
func (s *Service) ScheduleHearing(ctx context.Context, actor domain.Actor, noticeID string) (*domain.Notice, error) {
	return s.transitionNotice(ctx, actor, noticeID, domain.NoticeStatusHearingScheduled,
		[]domain.NoticeStatus{domain.NoticeStatusIssued, domain.NoticeStatusResponseSubmitted},
		"notice.hearing", "Hearing scheduled")
}

// CloseNotice closes a notice; its thread moves into the resolution phase.
func (s *Service) CloseNotice(ctx context.Context, actor domain.Actor, noticeID string) (*domain.Notice, error) {
	return s.transitionNotice(ctx, actor, noticeID, domain.NoticeStatusClosed,
		[]domain.NoticeStatus{
			domain.NoticeStatusIssued,
			domain.NoticeStatusResponseSubmitted,
			domain.NoticeStatusHearingScheduled,
			domain.NoticeStatusWaiver,
		}, "notice.close", "Notice closed")
}

func (s *Service) transitionNotice(ctx context.Context, actor domain.Actor, noticeID string, to domain.NoticeStatus, from []domain.NoticeStatus, action, summary string) (*domain.Notice, error) {
	if !s.perms.Can(actor, authz.ResourceNotice, authz.ActionClose) {
		return nil, ErrPermissionDenied
	}

	notice, err := s.repo.GetNotice(ctx, noticeID)
	if err != nil {
		return nil, err
	}

	allowed := false
	for _, f := range from {
		if notice.Status == f {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: notice is %s", ErrInvalidTransition, notice.Status)
	}

	unlock := s.lockThread(notice.IncidentID, notice.Employee.ID)
	defer unlock()

	notice.Status = to
	if err := s.repo.UpdateNotice(ctx, notice); err != nil {
		return nil, fmt.Errorf("update notice: %w", err)
	}

	s.audit.Record(ctx, actor, action, "notice", notice.ID, summary)
	return notice, nil
}

// CreateResolutionInput holds data for issuing a disciplinary decision.
type CreateResolutionInput struct {
	IncidentID   string
	EmployeeID   string
	Decision     string
	SignatureRef string
	Approvers    []domain.ApproverStep
}

// CreateResolution issues the disciplinary decision for one employee's
// thread once their notice response has been reviewed, and starts the
// decision's own approval cycle. The notice is closed as a side effect.
func (s *Service) CreateResolution(ctx context.Context, actor domain.Actor, input CreateResolutionInput) (*domain.Resolution, error) {
	if !s.perms.Can(actor, authz.ResourceResolution, authz.ActionCreate) {
		return nil, ErrPermissionDenied
	}

	var msgs []string
	if strings.TrimSpace(input.Decision) == "" {
		msgs = append(msgs, "state the disciplinary decision")
	}
	if len(input.Approvers) == 0 {
		msgs = append(msgs, "add at least one approver")
	} else if !approval.HasRole(input.Approvers, domain.RoleDirector) {
		msgs = append(msgs, "include at least one director approver")
	}
	if len(msgs) > 0 {
		return nil, &ValidationError{Messages: msgs}
	}

	unlock := s.lockThread(input.IncidentID, input.EmployeeID)
	defer unlock()

	notice, err := s.repo.GetOpenNotice(ctx, input.IncidentID, input.EmployeeID)
	if err == ErrNoticeNotFound {
		// The notice may already be closed; resolution then continues the
		// closed thread.
		notices, listErr := s.repo.ListNoticesByIncident(ctx, input.IncidentID)
		if listErr != nil {
			return nil, fmt.Errorf("list notices: %w", listErr)
		}
		notice = latestNoticeFor(notices, input.EmployeeID)
		if notice == nil {
			return nil, ErrNoticeNotFound
		}
	} else if err != nil {
		return nil, fmt.Errorf("get open notice: %w", err)
	}

	if notice.Status.IsOpen() && !notice.Status.AwaitingReview() {
		return nil, ErrNoticeNotReviewed
	}

	if _, err := s.repo.GetActiveResolution(ctx, input.IncidentID, input.EmployeeID); err == nil {
		return nil, ErrActiveResolutionExists
	} else if err != ErrResolutionNotFound {
		return nil, fmt.Errorf("check active resolution: %w", err)
	}

	resolution := &domain.Resolution{
		ID:           uuid.New().String(),
		IncidentID:   input.IncidentID,
		EmployeeID:   input.EmployeeID,
		Decision:     input.Decision,
		DecidedBy:    actor.ID,
		DeciderName:  actor.Name,
		SignatureRef: input.SignatureRef,
		DecisionDate: time.Now(),
		Status:       domain.ResolutionStatusPendingApproval,
		Steps:        approval.Reset(input.Approvers),
	}

	if err := s.repo.CreateResolution(ctx, resolution); err != nil {
		return nil, fmt.Errorf("create resolution: %w", err)
	}

	if notice.Status.IsOpen() {
		notice.Status = domain.NoticeStatusClosed
		if err := s.repo.UpdateNotice(ctx, notice); err != nil {
			return nil, fmt.Errorf("close notice: %w", err)
		}
	}

	s.notifyApprovers(ctx, resolution.Steps, "A disciplinary decision awaits your approval", "/resolutions/"+resolution.ID)
	s.audit.Record(ctx, actor, "resolution.create", "resolution", resolution.ID,
		fmt.Sprintf("Resolution drafted for employee %s", input.EmployeeID))
	metrics.StageTransitions.WithLabelValues(string(domain.StageBodGmApproval)).Inc()

	return resolution, nil
}

// GetResolution retrieves a resolution by id.
func (s *Service) GetResolution(ctx context.Context, id string) (*domain.Resolution, error) {
	return s.repo.GetResolution(ctx, id)
}

// RecordResolutionDecision records one approver's vote on a pending
// resolution. Full approval sends it to the employee for acknowledgement;
// a veto rejects the resolution and sends the thread back to HR review.
func (s *Service) RecordResolutionDecision(ctx context.Context, actor domain.Actor, resolutionID string, decision domain.ApprovalStatus, reason string) (*domain.Resolution, domain.Verdict, error) {
	if !s.perms.Can(actor, authz.ResourceResolution, authz.ActionApprove) {
		return nil, "", ErrPermissionDenied
	}

	resolution, err := s.repo.GetResolution(ctx, resolutionID)
	if err != nil {
		return nil, "", err
	}
	if resolution.Status != domain.ResolutionStatusPendingApproval {
		return nil, "", fmt.Errorf("%w: resolution is %s", ErrInvalidTransition, resolution.Status)
	}

	unlock := s.lockThread(resolution.IncidentID, resolution.EmployeeID)
	defer unlock()

	steps, err := approval.RecordDecision(resolution.Steps, actor.ID, decision, reason, time.Now())
	if err != nil {
		return nil, "", err
	}
	resolution.Steps = steps
	metrics.ApprovalDecisions.WithLabelValues("resolution", string(decision)).Inc()

	verdict := approval.Aggregate(steps)
	switch verdict {
	case domain.VerdictApproved:
		resolution.Status = domain.ResolutionStatusPendingAcknowledgement
	case domain.VerdictRejected:
		resolution.Status = domain.ResolutionStatusRejected
		s.recordRejectionOnThread(ctx, actor, resolution.IncidentID,
			fmt.Sprintf("Resolution for employee %s rejected: %s", resolution.EmployeeID, reason))
	}

	if err := s.repo.UpdateResolution(ctx, resolution); err != nil {
		return nil, "", fmt.Errorf("update resolution: %w", err)
	}

	switch verdict {
	case domain.VerdictApproved:
		s.notify(ctx, resolution.EmployeeID, KindAcknowledgementRequested,
			"A disciplinary decision awaits your acknowledgement", "/resolutions/"+resolution.ID)
		metrics.StageTransitions.WithLabelValues(string(domain.StageResolution)).Inc()
	case domain.VerdictRejected:
		metrics.StageTransitions.WithLabelValues(string(domain.StageHRReviewResponse)).Inc()
	}

	s.audit.Record(ctx, actor, "resolution."+string(decision), "resolution", resolution.ID,
		fmt.Sprintf("Resolution %s by %s (aggregate: %s)", decision, actor.Name, verdict))

	return resolution, verdict, nil
}

// ResubmitResolutionInput carries the amended decision.
type ResubmitResolutionInput struct {
	Decision     string
	SignatureRef string
}

// ResubmitResolution amends a rejected resolution and restarts its
// approval cycle on the same record with fresh all-pending steps.
func (s *Service) ResubmitResolution(ctx context.Context, actor domain.Actor, resolutionID string, input ResubmitResolutionInput) (*domain.Resolution, error) {
	if !s.perms.Can(actor, authz.ResourceResolution, authz.ActionCreate) {
		return nil, ErrPermissionDenied
	}

	resolution, err := s.repo.GetResolution(ctx, resolutionID)
	if err != nil {
		return nil, err
	}
	if resolution.Status != domain.ResolutionStatusRejected {
		return nil, ErrNotResubmittable
	}

	unlock := s.lockThread(resolution.IncidentID, resolution.EmployeeID)
	defer unlock()

	if input.Decision != "" {
		resolution.Decision = input.Decision
	}
	if input.SignatureRef != "" {
		resolution.SignatureRef = input.SignatureRef
	}
	resolution.Status = domain.ResolutionStatusPendingApproval
	resolution.Steps = approval.Reset(resolution.Steps)
	resolution.DecisionDate = time.Now()

	if err := s.repo.UpdateResolution(ctx, resolution); err != nil {
		return nil, fmt.Errorf("update resolution: %w", err)
	}

	s.notifyApprovers(ctx, resolution.Steps, "An amended disciplinary decision awaits your approval", "/resolutions/"+resolution.ID)
	s.audit.Record(ctx, actor, "resolution.resubmit", "resolution", resolution.ID, "Resolution amended and resubmitted")

	return resolution, nil
}

// AcknowledgeResolution records the employee's acknowledgement and closes
// the thread.
func (s *Service) AcknowledgeResolution(ctx context.Context, actor domain.Actor, resolutionID string) (*domain.Resolution, error) {
	if !s.perms.Can(actor, authz.ResourceResolution, authz.ActionAcknowledge) {
		return nil, ErrPermissionDenied
	}

	resolution, err := s.repo.GetResolution(ctx, resolutionID)
	if err != nil {
		return nil, err
	}
	if resolution.Status != domain.ResolutionStatusPendingAcknowledgement {
		return nil, fmt.Errorf("%w: resolution is %s", ErrInvalidTransition, resolution.Status)
	}
	if actor.Role == domain.RoleEmployee && actor.ID != resolution.EmployeeID {
		return nil, ErrPermissionDenied
	}

	unlock := s.lockThread(resolution.IncidentID, resolution.EmployeeID)
	defer unlock()

	resolution.Status = domain.ResolutionStatusAcknowledged
	if err := s.repo.UpdateResolution(ctx, resolution); err != nil {
		return nil, fmt.Errorf("update resolution: %w", err)
	}

	s.audit.Record(ctx, actor, "resolution.acknowledge", "resolution", resolution.ID, "Resolution acknowledged")
	metrics.StageTransitions.WithLabelValues(string(domain.StageClosed)).Inc()
	return resolution, nil
}

// FinalizeResolution closes a fully approved resolution whose employee
// acknowledgement is waived (e.g. the employee has separated).
func (s *Service) FinalizeResolution(ctx context.Context, actor domain.Actor, resolutionID string) (*domain.Resolution, error) {
	if !s.perms.Can(actor, authz.ResourceResolution, authz.ActionFinalize) {
		return nil, ErrPermissionDenied
	}

	resolution, err := s.repo.GetResolution(ctx, resolutionID)
	if err != nil {
		return nil, err
	}
	if resolution.Status != domain.ResolutionStatusPendingAcknowledgement {
		return nil, fmt.Errorf("%w: resolution is %s", ErrInvalidTransition, resolution.Status)
	}

	unlock := s.lockThread(resolution.IncidentID, resolution.EmployeeID)
	defer unlock()

	resolution.Status = domain.ResolutionStatusApproved
	if err := s.repo.UpdateResolution(ctx, resolution); err != nil {
		return nil, fmt.Errorf("update resolution: %w", err)
	}

	s.audit.Record(ctx, actor, "resolution.finalize", "resolution", resolution.ID,
		"Resolution finalized without employee acknowledgement")
	metrics.StageTransitions.WithLabelValues(string(domain.StageClosed)).Inc()
	return resolution, nil
}

// OverrideStage manually assigns a board stage for an incident, bypassing
// derivation. The override can desynchronize the board from the workflow;
// the board flags the divergence rather than resolving it.
func (s *Service) OverrideStage(ctx context.Context, actor domain.Actor, incidentID string, st domain.Stage) (*domain.Incident, error) {
	if !s.perms.Can(actor, authz.ResourceStage, authz.ActionOverride) {
		return nil, ErrPermissionDenied
	}
	if !st.IsValid() {
		return nil, &ValidationError{Messages: []string{"unknown stage"}}
	}

	incident, err := s.repo.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}

	incident.StageOverride = &st
	incident.ManualStage = true

	if err := s.repo.UpdateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}

	s.audit.Record(ctx, actor, "stage.override", "incident", incident.ID,
		fmt.Sprintf("Board stage manually set to %s", st))
	return incident, nil
}

// ClearStageOverride removes a manual stage assignment; the board falls
// back to derivation.
func (s *Service) ClearStageOverride(ctx context.Context, actor domain.Actor, incidentID string) (*domain.Incident, error) {
	if !s.perms.Can(actor, authz.ResourceStage, authz.ActionOverride) {
		return nil, ErrPermissionDenied
	}

	incident, err := s.repo.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}

	incident.StageOverride = nil
	incident.ManualStage = false

	if err := s.repo.UpdateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}

	s.audit.Record(ctx, actor, "stage.override.clear", "incident", incident.ID, "Manual stage cleared")
	return incident, nil
}

// Board assembles the case board: every incident expanded into per-employee
// entries, filtered, and grouped into stage columns. Reads refetch the full
// collections; there is no incremental cache.
func (s *Service) Board(ctx context.Context, filters BoardFilters) ([]Column, error) {
	incidents, err := s.repo.ListIncidents(ctx, IncidentFilters{})
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	notices, err := s.repo.ListNotices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list notices: %w", err)
	}
	resolutions, err := s.repo.ListResolutions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list resolutions: %w", err)
	}

	noticesByIncident := make(map[string][]*domain.Notice, len(incidents))
	for _, n := range notices {
		noticesByIncident[n.IncidentID] = append(noticesByIncident[n.IncidentID], n)
	}
	resolutionsByIncident := make(map[string][]*domain.Resolution, len(incidents))
	for _, r := range resolutions {
		resolutionsByIncident[r.IncidentID] = append(resolutionsByIncident[r.IncidentID], r)
	}

	// A Caser is stateful and must not be shared between goroutines, so
	// each Board call folds with its own.
	folder := textcases.Fold()

	var entries []BoardEntry
	for _, inc := range incidents {
		for _, e := range Expand(inc, noticesByIncident[inc.ID], resolutionsByIncident[inc.ID]) {
			if matchesFilters(e, filters, folder) {
				if e.StageDiverged {
					ctxlog.FromContext(ctx).Warn("board stage diverges from workflow state",
						"entry_id", e.ID,
						"display_stage", e.Stage,
						"derived_stage", e.DerivedStage,
					)
				}
				entries = append(entries, e)
			}
		}
	}

	return groupIntoColumns(entries), nil
}

func (s *Service) notify(ctx context.Context, recipientID string, kind NotificationKind, message, path string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, recipientID, kind, message, s.cfg.BaseURL+path); err != nil {
		ctxlog.FromContext(ctx).Error("failed to enqueue notification",
			"recipient", recipientID,
			"kind", kind,
			"error", err,
		)
	}
}

func (s *Service) notifyApprovers(ctx context.Context, steps []domain.ApproverStep, message, path string) {
	for _, id := range approval.PendingApprovers(steps) {
		s.notify(ctx, id, KindApprovalRequested, message, path)
	}
}

// recordRejectionOnThread retains a veto reason on the incident's message
// thread before the step set is later replaced on resubmission.
func (s *Service) recordRejectionOnThread(ctx context.Context, actor domain.Actor, incidentID, body string) {
	msg := &domain.Message{
		ID:         uuid.New().String(),
		IncidentID: incidentID,
		AuthorID:   actor.ID,
		AuthorName: actor.Name,
		Body:       body,
	}
	if err := s.repo.AppendMessage(ctx, msg); err != nil {
		ctxlog.FromContext(ctx).Error("failed to record rejection on thread",
			"incident_id", incidentID,
			"error", err,
		)
	}
}
