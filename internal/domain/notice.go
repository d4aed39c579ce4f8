package domain

import "time"

type NoticeStatus string

const (
	NoticeStatusPendingApproval   NoticeStatus = "pending_approval"
	NoticeStatusIssued            NoticeStatus = "issued"
	NoticeStatusResponseSubmitted NoticeStatus = "response_submitted"
	NoticeStatusHearingScheduled  NoticeStatus = "hearing_scheduled"
	NoticeStatusWaiver            NoticeStatus = "waiver"
	NoticeStatusClosed            NoticeStatus = "closed"
)

func (s NoticeStatus) IsValid() bool {
	switch s {
	case NoticeStatusPendingApproval, NoticeStatusIssued, NoticeStatusResponseSubmitted,
		NoticeStatusHearingScheduled, NoticeStatusWaiver, NoticeStatusClosed:
		return true
	}
	return false
}

// IsOpen reports whether the notice still blocks a new notice for the same
// (incident, employee) pair. Only one open notice per pair may exist.
func (s NoticeStatus) IsOpen() bool {
	return s != NoticeStatusClosed
}

// AwaitingReview reports whether the employee side of the notice is done
// and HR review of the response may start.
func (s NoticeStatus) AwaitingReview() bool {
	switch s {
	case NoticeStatusResponseSubmitted, NoticeStatusHearingScheduled, NoticeStatusWaiver:
		return true
	}
	return false
}

// Notice is the formal written charge (NTE) issued to one employee for one
// incident. Issuance requires a full approval cycle over Steps.
type Notice struct {
	ID               string         `json:"id"`
	IncidentID       string         `json:"incident_id"`
	Employee         EmployeeRef    `json:"employee"`
	Status           NoticeStatus   `json:"status"`
	Allegation       string         `json:"allegation"`
	PolicyRefs       []string       `json:"policy_refs"`
	EvidenceLink     string         `json:"evidence_link,omitempty"`
	IssuedBy         string         `json:"issued_by"`
	IssueDate        *time.Time     `json:"issue_date,omitempty"`
	ResponseDeadline *time.Time     `json:"response_deadline,omitempty"`
	Response         *string        `json:"response,omitempty"`
	ResponseAt       *time.Time     `json:"response_at,omitempty"`
	Steps            []ApproverStep `json:"steps"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
