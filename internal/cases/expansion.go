package cases

import (
	"time"

	"github.com/hrops/casetrack/internal/domain"
	"github.com/hrops/casetrack/internal/stage"
)

// compositeIDSeparator joins incident and notice ids into the synthetic id
// of an expanded entry.
const compositeIDSeparator = ":"

// BoardEntry is a read-only projection of one employee's case thread for
// the board. Entries for multi-employee incidents are synthesized, one per
// notice; they are never persisted.
type BoardEntry struct {
	ID           string             `json:"id"`
	IncidentID   string             `json:"incident_id"`
	NoticeID     string             `json:"notice_id,omitempty"`
	ResolutionID string             `json:"resolution_id,omitempty"`
	Employee     domain.EmployeeRef `json:"employee"`
	Category     string             `json:"category"`
	Description  string             `json:"description"`
	BusinessUnit string             `json:"business_unit,omitempty"`
	OccurredAt   time.Time          `json:"occurred_at"`
	HandlerID    *string            `json:"handler_id,omitempty"`

	// Stage is what the board displays; DerivedStage is what the workflow
	// statuses imply. They differ only under a manual override, in which
	// case StageDiverged warns about the mismatch.
	Stage         domain.Stage `json:"stage"`
	DerivedStage  domain.Stage `json:"derived_stage"`
	ManualStage   bool         `json:"manual_stage"`
	StageDiverged bool         `json:"stage_diverged"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Expand builds the board entries for one incident from its notices and
// resolutions (both ordered by recency).
//
// A single-employee incident maps to exactly one entry carrying the
// incident's own id. A multi-employee incident fans out into one entry per
// notice; named employees without a notice are implicitly awaiting one and
// get no entry. Until the first notice exists, the incident is shown as a
// single entry at its own status-derived stage.
func Expand(inc *domain.Incident, notices []*domain.Notice, resolutions []*domain.Resolution) []BoardEntry {
	resByEmployee := make(map[string]*domain.Resolution, len(resolutions))
	for _, r := range resolutions {
		// Recency order: keep the first (latest) per employee.
		if _, ok := resByEmployee[r.EmployeeID]; !ok {
			resByEmployee[r.EmployeeID] = r
		}
	}

	if len(inc.Employees) > 1 && len(notices) > 0 {
		entries := make([]BoardEntry, 0, len(notices))
		for _, n := range notices {
			e := baseEntry(inc)
			e.ID = inc.ID + compositeIDSeparator + n.ID
			e.NoticeID = n.ID
			e.Employee = n.Employee
			applyStage(&e, inc, n, resByEmployee[n.Employee.ID])
			entries = append(entries, e)
		}
		return entries
	}

	e := baseEntry(inc)
	e.ID = inc.ID
	if len(inc.Employees) == 1 {
		e.Employee = inc.Employees[0]
	}

	notice := latestNoticeFor(notices, e.Employee.ID)
	var res *domain.Resolution
	if notice != nil {
		e.NoticeID = notice.ID
		res = resByEmployee[notice.Employee.ID]
	}
	applyStage(&e, inc, notice, res)

	return []BoardEntry{e}
}

func baseEntry(inc *domain.Incident) BoardEntry {
	return BoardEntry{
		IncidentID:   inc.ID,
		Category:     inc.Category,
		Description:  inc.Description,
		BusinessUnit: inc.BusinessUnit,
		OccurredAt:   inc.OccurredAt,
		HandlerID:    inc.HandlerID,
		UpdatedAt:    inc.UpdatedAt,
	}
}

// applyStage computes the derived stage and applies a manual override when
// one is set on the incident. The override wins for display; divergence is
// flagged, never silently reconciled.
func applyStage(e *BoardEntry, inc *domain.Incident, notice *domain.Notice, res *domain.Resolution) {
	if notice == nil && res == nil {
		e.DerivedStage = stage.FromIncident(inc)
	} else {
		e.DerivedStage = stage.Derive(notice, res)
	}
	if res != nil {
		e.ResolutionID = res.ID
	}

	e.Stage = e.DerivedStage
	if inc.ManualStage && inc.StageOverride != nil {
		e.Stage = *inc.StageOverride
		e.ManualStage = true
		e.StageDiverged = e.Stage != e.DerivedStage
	}
}

// latestNoticeFor picks the employee's most recent notice, preferring an
// open one. With an empty employee id (incident not yet scoped) the most
// recent notice overall is used.
func latestNoticeFor(notices []*domain.Notice, employeeID string) *domain.Notice {
	var latest *domain.Notice
	for _, n := range notices {
		if employeeID != "" && n.Employee.ID != employeeID {
			continue
		}
		if n.Status.IsOpen() {
			return n
		}
		if latest == nil {
			latest = n
		}
	}
	return latest
}
