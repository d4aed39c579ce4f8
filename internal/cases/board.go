package cases

import (
	"strings"
	"time"

	"github.com/hrops/casetrack/internal/domain"
	"golang.org/x/text/cases"
)

// BoardFilters narrows the board to matching entries.
type BoardFilters struct {
	Search       string
	BusinessUnit string
	HandlerID    string
	Stage        *domain.Stage
	From         *time.Time
	To           *time.Time
}

// Column is one board column: a stage and its entries.
type Column struct {
	Stage   domain.Stage `json:"stage"`
	Entries []BoardEntry `json:"entries"`
}

// EditorTarget names the editor a board selection opens.
type EditorTarget string

const (
	EditorIncident   EditorTarget = "incident"
	EditorNotice     EditorTarget = "notice"
	EditorResolution EditorTarget = "resolution"
)

// RouteFor returns which editor opens for a board entry. Notice-phase
// stages open the notice editor when a notice exists; resolution-phase
// stages open the resolution editor; everything else falls back to the
// incident editor.
func RouteFor(e BoardEntry) EditorTarget {
	switch e.Stage {
	case domain.StageIRReview, domain.StageNTEForApproval, domain.StageHRReviewResponse:
		if e.NoticeID != "" {
			return EditorNotice
		}
		return EditorIncident
	case domain.StageResolution, domain.StageBodGmApproval:
		return EditorResolution
	default:
		return EditorIncident
	}
}

// groupIntoColumns distributes entries into board columns in stage order.
// Empty columns are kept so the board shape is stable.
func groupIntoColumns(entries []BoardEntry) []Column {
	stages := domain.BoardStages()
	byStage := make(map[domain.Stage][]BoardEntry, len(stages))
	for _, e := range entries {
		byStage[e.Stage] = append(byStage[e.Stage], e)
	}

	columns := make([]Column, 0, len(stages))
	for _, s := range stages {
		columns = append(columns, Column{Stage: s, Entries: byStage[s]})
	}
	return columns
}

// matchesFilters applies board filters to one entry. Search matching is
// caseless via Unicode case folding over employee name, category and
// description.
func matchesFilters(e BoardEntry, f BoardFilters, folder cases.Caser) bool {
	if f.Stage != nil && e.Stage != *f.Stage {
		return false
	}
	if f.BusinessUnit != "" && e.BusinessUnit != f.BusinessUnit {
		return false
	}
	if f.HandlerID != "" && (e.HandlerID == nil || *e.HandlerID != f.HandlerID) {
		return false
	}
	if f.From != nil && e.OccurredAt.Before(*f.From) {
		return false
	}
	if f.To != nil && e.OccurredAt.After(*f.To) {
		return false
	}
	if f.Search != "" {
		needle := folder.String(f.Search)
		haystack := folder.String(e.Employee.Name + " " + e.Category + " " + e.Description)
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}
