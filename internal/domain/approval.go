package domain

import "time"

type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// ApproverStep is one named approver's vote within an approval cycle.
// Steps are embedded in their owning notice/resolution as jsonb.
type ApproverStep struct {
	ApproverID   string         `json:"approver_id"`
	ApproverName string         `json:"approver_name"`
	Role         Role           `json:"role"`
	Status       ApprovalStatus `json:"status"`
	DecidedAt    *time.Time     `json:"decided_at,omitempty"`
	Reason       string         `json:"reason,omitempty"` // set only on rejection
}

// Verdict is the aggregate outcome of a set of approver steps.
type Verdict string

const (
	VerdictPending  Verdict = "pending"
	VerdictApproved Verdict = "approved"
	VerdictRejected Verdict = "rejected"
)
