package domain

import "time"

type IncidentStatus string

const (
	IncidentStatusSubmitted IncidentStatus = "submitted"
	IncidentStatusHRReview  IncidentStatus = "hr_review"
	IncidentStatusConverted IncidentStatus = "converted"
	IncidentStatusNoAction  IncidentStatus = "no_action"
)

func (s IncidentStatus) IsValid() bool {
	switch s {
	case IncidentStatusSubmitted, IncidentStatusHRReview, IncidentStatusConverted, IncidentStatusNoAction:
		return true
	}
	return false
}

// IsTerminal reports whether the incident has reached an end-of-life state.
// Terminal incidents are never deleted, only marked.
func (s IncidentStatus) IsTerminal() bool {
	return s == IncidentStatusConverted || s == IncidentStatusNoAction
}

// EmployeeRef identifies an employee by id and display name.
// Stored as jsonb, hence the tags.
type EmployeeRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Incident is one reported disciplinary event. It may name several
// employees; each of them gets an independent notice/resolution thread.
type Incident struct {
	ID           string         `json:"id"`
	Category     string         `json:"category"`
	Description  string         `json:"description"`
	OccurredAt   time.Time      `json:"occurred_at"`
	ReportedBy   string         `json:"reported_by"`
	ReporterName string         `json:"reporter_name"`
	BusinessUnit string         `json:"business_unit,omitempty"`
	Employees    []EmployeeRef  `json:"employees"` // order-significant
	Witnesses    []EmployeeRef  `json:"witnesses,omitempty"`
	Status       IncidentStatus `json:"status"`
	HandlerID    *string        `json:"handler_id,omitempty"`
	NoticeIDs    []string       `json:"notice_ids,omitempty"`

	// StageOverride is the manually assigned board stage. When ManualStage
	// is set the board displays the override instead of the derived stage.
	StageOverride *Stage `json:"stage_override,omitempty"`
	ManualStage   bool   `json:"manual_stage"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NamesEmployee reports whether the employee is listed on the incident.
func (i *Incident) NamesEmployee(employeeID string) bool {
	for _, e := range i.Employees {
		if e.ID == employeeID {
			return true
		}
	}
	return false
}

// Message is one entry in an incident's append-only discussion thread.
type Message struct {
	ID         string    `json:"id"`
	IncidentID string    `json:"incident_id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}
