// Package cases implements the disciplinary case workflow: incidents,
// notices, resolutions, their approval cycles, and the case board.
package cases

import (
	"context"
	"time"

	"github.com/hrops/casetrack/internal/domain"
)

// Repository is the case record store. Updates carry the full current
// shape of mutable fields and are compare-and-set on Version: a stale
// version yields ErrVersionConflict and nothing is written.
type Repository interface {
	CreateIncident(ctx context.Context, incident *domain.Incident) error
	GetIncident(ctx context.Context, id string) (*domain.Incident, error)
	UpdateIncident(ctx context.Context, incident *domain.Incident) error
	ListIncidents(ctx context.Context, filters IncidentFilters) ([]*domain.Incident, error)

	AppendMessage(ctx context.Context, msg *domain.Message) error
	ListMessages(ctx context.Context, incidentID string) ([]*domain.Message, error)

	CreateNotice(ctx context.Context, notice *domain.Notice) error
	GetNotice(ctx context.Context, id string) (*domain.Notice, error)
	UpdateNotice(ctx context.Context, notice *domain.Notice) error
	ListNotices(ctx context.Context) ([]*domain.Notice, error)
	ListNoticesByIncident(ctx context.Context, incidentID string) ([]*domain.Notice, error)
	// GetOpenNotice returns the single non-closed notice for the pair, or
	// ErrNoticeNotFound.
	GetOpenNotice(ctx context.Context, incidentID, employeeID string) (*domain.Notice, error)

	CreateResolution(ctx context.Context, resolution *domain.Resolution) error
	GetResolution(ctx context.Context, id string) (*domain.Resolution, error)
	UpdateResolution(ctx context.Context, resolution *domain.Resolution) error
	ListResolutions(ctx context.Context) ([]*domain.Resolution, error)
	ListResolutionsByIncident(ctx context.Context, incidentID string) ([]*domain.Resolution, error)
	// GetActiveResolution returns the non-rejected resolution for the pair,
	// or ErrResolutionNotFound.
	GetActiveResolution(ctx context.Context, incidentID, employeeID string) (*domain.Resolution, error)
}

// IncidentFilters holds filter options for listing incidents.
// Results are always ordered by recency.
type IncidentFilters struct {
	Status       *domain.IncidentStatus
	HandlerID    *string
	BusinessUnit *string
	From         *time.Time
	To           *time.Time
	Limit        int
	Offset       int
}

// NotificationKind names the workflow events that trigger notifications.
type NotificationKind string

const (
	KindNoticeIssued             NotificationKind = "notice_issued"
	KindApprovalRequested        NotificationKind = "approval_requested"
	KindAcknowledgementRequested NotificationKind = "acknowledgement_requested"
)

// Notifier delivers workflow notifications. Implementations must not block
// the workflow on delivery; failures are the notifier's problem.
type Notifier interface {
	Notify(ctx context.Context, recipientID string, kind NotificationKind, message, link string) error
}

// PermissionEvaluator gates workflow actions on a boolean result.
type PermissionEvaluator interface {
	Can(actor domain.Actor, resource, action string) bool
}

// AuditRecorder receives one record per state-changing action.
type AuditRecorder interface {
	Record(ctx context.Context, actor domain.Actor, action, entityKind, entityID, summary string)
}
