package domain

import "time"

type ResolutionStatus string

const (
	ResolutionStatusPendingApproval        ResolutionStatus = "pending_approval"
	ResolutionStatusPendingAcknowledgement ResolutionStatus = "pending_acknowledgement"
	ResolutionStatusApproved               ResolutionStatus = "approved"
	ResolutionStatusAcknowledged           ResolutionStatus = "acknowledged"
	ResolutionStatusRejected               ResolutionStatus = "rejected"
)

func (s ResolutionStatus) IsValid() bool {
	switch s {
	case ResolutionStatusPendingApproval, ResolutionStatusPendingAcknowledgement,
		ResolutionStatusApproved, ResolutionStatusAcknowledged, ResolutionStatusRejected:
		return true
	}
	return false
}

// IsActive reports whether the resolution blocks creation of another one
// for the same (incident, employee) pair. A rejected resolution does not:
// it is amended and resubmitted on the same record instead.
func (s ResolutionStatus) IsActive() bool {
	return s != ResolutionStatusRejected
}

// IsClosed reports whether the resolution ends the employee's case thread.
func (s ResolutionStatus) IsClosed() bool {
	return s == ResolutionStatusApproved || s == ResolutionStatusAcknowledged
}

// Resolution is the disciplinary decision for one (incident, employee)
// pair, created after the employee's notice response has been reviewed.
type Resolution struct {
	ID           string           `json:"id"`
	IncidentID   string           `json:"incident_id"`
	EmployeeID   string           `json:"employee_id"`
	Decision     string           `json:"decision"`
	DecidedBy    string           `json:"decided_by"`
	DeciderName  string           `json:"decider_name"`
	SignatureRef string           `json:"signature_ref,omitempty"`
	DecisionDate time.Time        `json:"decision_date"`
	Status       ResolutionStatus `json:"status"`
	Steps        []ApproverStep   `json:"steps"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
