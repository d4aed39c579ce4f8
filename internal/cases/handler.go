package cases

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/hrops/casetrack/internal/approval"
	"github.com/hrops/casetrack/internal/domain"
	"github.com/hrops/casetrack/internal/pkg/httputil"
)

// Handler handles HTTP requests for the case workflow.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new case workflow handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers the workflow routes. Authentication is applied
// by the caller; fine-grained permissions are enforced in the service.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/incidents", func(r chi.Router) {
		r.Post("/", h.CreateIncident)
		r.Get("/", h.ListIncidents)
		r.Get("/{id}", h.GetIncident)
		r.Post("/{id}/review", h.BeginReview)
		r.Post("/{id}/close", h.CloseWithoutAction)
		r.Post("/{id}/convert", h.ConvertToCoaching)
		r.Get("/{id}/messages", h.ListMessages)
		r.Post("/{id}/messages", h.AppendMessage)
		r.Put("/{id}/stage", h.OverrideStage)
		r.Delete("/{id}/stage", h.ClearStageOverride)
	})

	r.Route("/notices", func(r chi.Router) {
		r.Post("/", h.IssueNotice)
		r.Get("/{id}", h.GetNotice)
		r.Post("/{id}/decision", h.RecordNoticeDecision)
		r.Post("/{id}/resubmit", h.ResubmitNotice)
		r.Post("/{id}/response", h.SubmitResponse)
		r.Post("/{id}/waiver", h.RecordWaiver)
		r.Post("/{id}/hearing", h.ScheduleHearing)
		r.Post("/{id}/close", h.CloseNotice)
	})

	r.Route("/resolutions", func(r chi.Router) {
		r.Post("/", h.CreateResolution)
		r.Get("/{id}", h.GetResolution)
		r.Post("/{id}/decision", h.RecordResolutionDecision)
		r.Post("/{id}/resubmit", h.ResubmitResolution)
		r.Post("/{id}/acknowledge", h.AcknowledgeResolution)
		r.Post("/{id}/finalize", h.FinalizeResolution)
	})

	r.Get("/board", h.GetBoard)
}

// EmployeeRefRequest identifies one employee on a request body.
type EmployeeRefRequest struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required"`
}

func toEmployeeRefs(reqs []EmployeeRefRequest) []domain.EmployeeRef {
	refs := make([]domain.EmployeeRef, 0, len(reqs))
	for _, r := range reqs {
		refs = append(refs, domain.EmployeeRef{ID: r.ID, Name: r.Name})
	}
	return refs
}

// ApproverRequest names one approver on a request body. Only roles that
// hold the approve permission are accepted; a step naming anyone else
// could never be decided.
type ApproverRequest struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required"`
	Role string `json:"role" validate:"required,oneof=manager director"`
}

func toApproverSteps(reqs []ApproverRequest) []domain.ApproverStep {
	steps := make([]domain.ApproverStep, 0, len(reqs))
	for _, r := range reqs {
		steps = append(steps, domain.ApproverStep{
			ApproverID:   r.ID,
			ApproverName: r.Name,
			Role:         domain.Role(r.Role),
			Status:       domain.ApprovalStatusPending,
		})
	}
	return steps
}

// CreateIncidentRequest represents the request body for filing an incident.
type CreateIncidentRequest struct {
	Category     string               `json:"category" validate:"required,min=1,max=255"`
	Description  string               `json:"description" validate:"required"`
	OccurredAt   time.Time            `json:"occurred_at" validate:"required"`
	BusinessUnit string               `json:"business_unit"`
	Employees    []EmployeeRefRequest `json:"employees" validate:"required,min=1,dive"`
	Witnesses    []EmployeeRefRequest `json:"witnesses" validate:"dive"`
}

// CreateIncident handles POST /incidents request.
func (h *Handler) CreateIncident(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.ActorFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.CreateIncident(r.Context(), actor, CreateIncidentInput{
		Category:     req.Category,
		Description:  req.Description,
		OccurredAt:   req.OccurredAt,
		BusinessUnit: req.BusinessUnit,
		Employees:    toEmployeeRefs(req.Employees),
		Witnesses:    toEmployeeRefs(req.Witnesses),
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusCreated, incident)
}

// GetIncident handles GET /incidents/{id} request.
func (h *Handler) GetIncident(w http.ResponseWriter, r *http.Request) {
	incident, err := h.service.GetIncident(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.Success(w, http.StatusOK, incident)
}

// ListIncidents handles GET /incidents request.
func (h *Handler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	filters := IncidentFilters{}
	q := r.URL.Query()

	if status := q.Get("status"); status != "" {
		s := domain.IncidentStatus(status)
		if !s.IsValid() {
			httputil.Error(w, http.StatusBadRequest, "invalid status filter")
			return
		}
		filters.Status = &s
	}
	if handlerID := q.Get("handler_id"); handlerID != "" {
		filters.HandlerID = &handlerID
	}
	if bu := q.Get("business_unit"); bu != "" {
		filters.BusinessUnit = &bu
	}
	var err error
	if filters.From, err = parseTimeParam(q.Get("from")); err != nil {
		httputil.Error(w, http.StatusBadRequest, "from must be RFC 3339")
		return
	}
	if filters.To, err = parseTimeParam(q.Get("to")); err != nil {
		httputil.Error(w, http.StatusBadRequest, "to must be RFC 3339")
		return
	}

	incidents, err := h.service.ListIncidents(r.Context(), filters)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.Success(w, http.StatusOK, incidents)
}

// BeginReviewRequest represents the request body for starting HR review.
type BeginReviewRequest struct {
	HandlerID string `json:"handler_id"`
}

// BeginReview handles POST /incidents/{id}/review request.
func (h *Handler) BeginReview(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.ActorFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req BeginReviewRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid json")
			return
		}
	}

	incident, err := h.service.BeginReview(r.Context(), actor, chi.URLParam(r, "id"), req.HandlerID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.Success(w, http.StatusOK, incident)
}

// CloseWithoutAction handles POST /incidents/{id}/close request.
func (h *Handler) CloseWithoutAction(w http.ResponseWriter, r *http.Request) {
	h.closeIncident(w, r, h.service.CloseWithoutAction)
}

// ConvertToCoaching handles POST /incidents/{id}/convert request.
func (h *Handler) ConvertToCoaching(w http.ResponseWriter, r *http.Request) {
	h.closeIncident(w, r, h.service.ConvertToCoaching)
}

func (h *Handler) closeIncident(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, actor domain.Actor, id string) (*domain.Incident, error)) {
	actor, ok := httputil.ActorFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	incident, err := op(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.Success(w, http.StatusOK, incident)
}

// AppendMessageRequest represents the request body for a thread message.
type AppendMessageRequest struct {
	Body string `json:"body" validate:"required"`
}

// AppendMessage handles POST /incidents/{id}/messages request.
func (h *Handler) AppendMessage(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.ActorFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req AppendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	msg, err := h.service.AppendMessage(r.Context(), actor, chi.URLParam(r, "id"), req.Body)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.Success(w, http.StatusCreated, msg)
}

// ListMessages handles GET /incidents/{id}/messages request.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.service.ListMessages(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.Success(w, http.StatusOK, msgs)
}

// OverrideStageRequest represents the request body for a manual stage move.
type OverrideStageRequest struct {
	Stage string `json:"stage" validate:"required"`
}

// OverrideStage handles PUT /incidents/{id}/stage request.
func (h *Handler) OverrideStage(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.ActorFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req OverrideStageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.OverrideStage(r.Context(), actor, chi.URLParam(r, "id"), domain.Stage(req.Stage))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.Success(w, http.StatusOK, incident)
}

// ClearStageOverride handles DELETE /incidents/{id}/stage request.
func (h *Handler) ClearStageOverride(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.ActorFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	incident, err := h.service.ClearStageOverride(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.Success(w, http.StatusOK, incident)
}

// IssueNoticeRequest represents the request body for drafting a notice.
type IssueNoticeRequest struct {
	IncidentID   string             `json:"incident_id" validate:"required"`
	Employee     EmployeeRefRequest `json:"employee" validate:"required"`
	Allegation   string             `json:"allegation" validate:"required"`
	PolicyRefs   []string           `json:"policy_refs" validate:"required,min=1"`
	EvidenceLink string             `json:"evidence_link"`
	Approvers    []ApproverRequest  `json:"approvers" validate:"required,min=1,dive"`
}

// IssueNotice handles POST /notices request.
func (h *Handler) IssueNotice(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.ActorFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req IssueNoticeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	notice, err := h.service.IssueNotice(r.Context(), actor, IssueNoticeInput{
		IncidentID:   req.IncidentID,
		Employee:     domain.EmployeeRef{ID: req.Employee.ID, Name: req.Employee.Name},
		Allegation:   req.Allegation,
		PolicyRefs:   req.PolicyRefs,
		EvidenceLink: req.EvidenceLink,
		Approvers:    toApproverSteps(req.Approvers),
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.Success(w, http.StatusCreated, notice)
}

// GetNotice handles GET /notices/{id} request.
func (h *Handler) GetNotice(w http.ResponseWriter, r *http.Request) {
	notice, err := h.service.GetNotice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.Success(w, http.StatusOK, notice)
}

// DecisionRequest represents an approver's vote.
type DecisionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approved rejected"`
	Reason   string `json:"reason"`
}

// DecisionResponse returns the updated record together with the aggregate
// verdict of its approval cycle.
type DecisionResponse struct {
	Record  interface{}    `json:"record"`
	Verdict domain.Verdict `json:"verdict"`
}

// RecordNoticeDecision handles POST /notices/{id}/decision request.
func (h *Handler) RecordNoticeDecision(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.ActorFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	notice, verdict, err := h.service.RecordNoticeDecision(r.Context(), actor,
		chi.URLParam(r, "id"), domain.ApprovalStatus(req.Decision), req.Reason)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.Success(w, http.StatusOK, DecisionResponse{Record: notice, Verdict: verdict})
}

// ResubmitNoticeRequest represents the corrected notice content.
type ResubmitNoticeRequest struct {
	Allegation   string   `json:"allegation"`
	PolicyRefs   []string `json:"policy_refs"`
	EvidenceLink string   `json:"evidence_link"`
}

// ResubmitNotice handles POST /notices/{id}/resubmit request.
func (h *Handler) ResubmitNotice(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.ActorFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ResubmitNoticeRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid json")
			return
		}
	}

	notice, err := h.service.ResubmitNotice(r.Context(), actor, chi.URLParam(r, "id"), ResubmitNoticeInput{
		Allegation:   req.Allegation,
		PolicyRefs:   req.PolicyRefs,
		EvidenceLink: req.EvidenceLink,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.Success(w, http.StatusOK, notice)
}

// SubmitResponseRequest represents the employee's written answer.
type SubmitResponseRequest struct {
	Response string `json:"response" validate:"required"`
}

// SubmitResponse handles POST /notices/{id}/response request.
func (h *Handler) SubmitResponse(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.ActorFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req SubmitResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	notice, err := h.service.SubmitResponse(r.Context(), actor, chi.URLParam(r, "id"), req.Response)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.Success(w, http.StatusOK, notice)
}

// RecordWaiver handles POST /notices/{id}/waiver request.
func (h *Handler) RecordWaiver(w http.ResponseWriter, r *http.Request) {
	h.transitionNotice(w, r, h.service.RecordWaiver)
}

// ScheduleHearing handles POST /notices/{id}/hearing request.
func (h *Handler) ScheduleHearing(w http.ResponseWriter, r *http.Request) {
	h.transitionNotice(w, r, h.service.ScheduleHearing)
}

// CloseNotice handles POST /notices/{id}/close request.
func (h *Handler) CloseNotice(w http.ResponseWriter, r *http.Request) {
	h.transitionNotice(w, r, h.service.CloseNotice)
}

func (h *Handler) transitionNotice(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, actor domain.Actor, id string) (*domain.Notice, error)) {
	actor, ok := httputil.ActorFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	notice, err := op(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.Success(w, http.StatusOK, notice)
}

// CreateResolutionRequest represents the request body for a resolution.
type CreateResolutionRequest struct {
	IncidentID   string            `json:"incident_id" validate:"required"`
	EmployeeID   string            `json:"employee_id" validate:"required"`
	Decision     string            `json:"decision" validate:"required"`
	SignatureRef string            `json:"signature_ref"`
	Approvers    []ApproverRequest `json:"approvers" validate:"required,min=1,dive"`
}

// CreateResolution handles POST /resolutions request.
func (h *Handler) CreateResolution(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.ActorFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateResolutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	resolution, err := h.service.CreateResolution(r.Context(), actor, CreateResolutionInput{
		IncidentID:   req.IncidentID,
		EmployeeID:   req.EmployeeID,
		Decision:     req.Decision,
		SignatureRef: req.SignatureRef,
		Approvers:    toApproverSteps(req.Approvers),
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.Success(w, http.StatusCreated, resolution)
}

// GetResolution handles GET /resolutions/{id} request.
func (h *Handler) GetResolution(w http.ResponseWriter, r *http.Request) {
	resolution, err := h.service.GetResolution(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.Success(w, http.StatusOK, resolution)
}

// RecordResolutionDecision handles POST /resolutions/{id}/decision request.
func (h *Handler) RecordResolutionDecision(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.ActorFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	resolution, verdict, err := h.service.RecordResolutionDecision(r.Context(), actor,
		chi.URLParam(r, "id"), domain.ApprovalStatus(req.Decision), req.Reason)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.Success(w, http.StatusOK, DecisionResponse{Record: resolution, Verdict: verdict})
}

// ResubmitResolutionRequest represents the amended decision.
type ResubmitResolutionRequest struct {
	Decision     string `json:"decision"`
	SignatureRef string `json:"signature_ref"`
}

// ResubmitResolution handles POST /resolutions/{id}/resubmit request.
func (h *Handler) ResubmitResolution(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.ActorFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ResubmitResolutionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid json")
			return
		}
	}

	resolution, err := h.service.ResubmitResolution(r.Context(), actor, chi.URLParam(r, "id"), ResubmitResolutionInput{
		Decision:     req.Decision,
		SignatureRef: req.SignatureRef,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.Success(w, http.StatusOK, resolution)
}

// AcknowledgeResolution handles POST /resolutions/{id}/acknowledge request.
func (h *Handler) AcknowledgeResolution(w http.ResponseWriter, r *http.Request) {
	h.transitionResolution(w, r, h.service.AcknowledgeResolution)
}

// FinalizeResolution handles POST /resolutions/{id}/finalize request.
func (h *Handler) FinalizeResolution(w http.ResponseWriter, r *http.Request) {
	h.transitionResolution(w, r, h.service.FinalizeResolution)
}

func (h *Handler) transitionResolution(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, actor domain.Actor, id string) (*domain.Resolution, error)) {
	actor, ok := httputil.ActorFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	resolution, err := op(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.Success(w, http.StatusOK, resolution)
}

// GetBoard handles GET /board request.
func (h *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	filters := BoardFilters{}
	q := r.URL.Query()

	filters.Search = q.Get("search")
	filters.BusinessUnit = q.Get("business_unit")
	filters.HandlerID = q.Get("handler_id")

	if stage := q.Get("stage"); stage != "" {
		s := domain.Stage(stage)
		if !s.IsValid() {
			httputil.Error(w, http.StatusBadRequest, "invalid stage filter")
			return
		}
		filters.Stage = &s
	}
	var err error
	if filters.From, err = parseTimeParam(q.Get("from")); err != nil {
		httputil.Error(w, http.StatusBadRequest, "from must be RFC 3339")
		return
	}
	if filters.To, err = parseTimeParam(q.Get("to")); err != nil {
		httputil.Error(w, http.StatusBadRequest, "to must be RFC 3339")
		return
	}

	columns, err := h.service.Board(r.Context(), filters)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.Success(w, http.StatusOK, columns)
}

func parseTimeParam(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		httputil.ValidationError(w, verr)
		return
	}

	httputil.HandleError(r.Context(), w, err, serviceErrorMappings)
}

var serviceErrorMappings = []httputil.ErrorMapping{
	{Error: ErrIncidentNotFound, Status: http.StatusNotFound},
	{Error: ErrNoticeNotFound, Status: http.StatusNotFound},
	{Error: ErrResolutionNotFound, Status: http.StatusNotFound},
	{Error: ErrPermissionDenied, Status: http.StatusForbidden},
	{Error: ErrVersionConflict, Status: http.StatusConflict},
	{Error: ErrOpenNoticeExists, Status: http.StatusConflict},
	{Error: ErrActiveResolutionExists, Status: http.StatusConflict},
	{Error: ErrEmployeeNotOnIncident, Status: http.StatusUnprocessableEntity},
	{Error: ErrNoticeNotReviewed, Status: http.StatusUnprocessableEntity},
	{Error: ErrInvalidTransition, Status: http.StatusConflict},
	{Error: ErrNotResubmittable, Status: http.StatusConflict},
	{Error: approval.ErrNotAnEligibleApprover, Status: http.StatusConflict},
	{Error: approval.ErrReasonRequired, Status: http.StatusBadRequest},
}
