// Package approval drives a set of named approver steps to a single
// aggregate verdict. The engine is veto-based: one rejection rejects the
// whole cycle regardless of the remaining steps, and approvers decide
// independently, in any order.
package approval

import (
	"errors"
	"strings"
	"time"

	"github.com/hrops/casetrack/internal/domain"
)

var (
	// ErrNotAnEligibleApprover is returned when the deciding identity has
	// no pending step in the cycle.
	ErrNotAnEligibleApprover = errors.New("no pending approval step for this approver")

	// ErrReasonRequired is returned when a rejection carries no reason.
	ErrReasonRequired = errors.New("a rejection requires a reason")

	// ErrInvalidDecision is returned for decisions other than approved/rejected.
	ErrInvalidDecision = errors.New("decision must be approved or rejected")
)

// RecordDecision applies one approver's decision and returns the updated
// step set. The input slice is never mutated: on error the caller's steps
// are exactly as they were.
func RecordDecision(steps []domain.ApproverStep, approverID string, decision domain.ApprovalStatus, reason string, now time.Time) ([]domain.ApproverStep, error) {
	if decision != domain.ApprovalStatusApproved && decision != domain.ApprovalStatusRejected {
		return nil, ErrInvalidDecision
	}
	if decision == domain.ApprovalStatusRejected && strings.TrimSpace(reason) == "" {
		return nil, ErrReasonRequired
	}

	out := make([]domain.ApproverStep, len(steps))
	copy(out, steps)

	for i := range out {
		if out[i].ApproverID != approverID || out[i].Status != domain.ApprovalStatusPending {
			continue
		}
		decidedAt := now
		out[i].Status = decision
		out[i].DecidedAt = &decidedAt
		if decision == domain.ApprovalStatusRejected {
			out[i].Reason = strings.TrimSpace(reason)
		}
		return out, nil
	}

	return nil, ErrNotAnEligibleApprover
}

// Aggregate computes the verdict for a step set. Any rejected step rejects
// the whole cycle; all steps approved approves it; anything else is still
// pending. An empty set is pending — step-set validity is enforced where
// the owning record is created, not here.
func Aggregate(steps []domain.ApproverStep) domain.Verdict {
	if len(steps) == 0 {
		return domain.VerdictPending
	}

	allApproved := true
	for _, s := range steps {
		if s.Status == domain.ApprovalStatusRejected {
			return domain.VerdictRejected
		}
		if s.Status != domain.ApprovalStatusApproved {
			allApproved = false
		}
	}

	if allApproved {
		return domain.VerdictApproved
	}
	return domain.VerdictPending
}

// Reset returns a fresh all-pending cycle with the same approvers, used
// when a rejected notice/resolution is corrected and resubmitted. Prior
// decisions and reasons are dropped here; the owning record keeps them on
// its message thread for audit.
func Reset(steps []domain.ApproverStep) []domain.ApproverStep {
	out := make([]domain.ApproverStep, len(steps))
	for i, s := range steps {
		out[i] = domain.ApproverStep{
			ApproverID:   s.ApproverID,
			ApproverName: s.ApproverName,
			Role:         s.Role,
			Status:       domain.ApprovalStatusPending,
		}
	}
	return out
}

// HasRole reports whether any step's approver holds the given role.
func HasRole(steps []domain.ApproverStep, role domain.Role) bool {
	for _, s := range steps {
		if s.Role == role {
			return true
		}
	}
	return false
}

// PendingApprovers returns the ids of approvers who still have to decide.
func PendingApprovers(steps []domain.ApproverStep) []string {
	ids := make([]string, 0, len(steps))
	for _, s := range steps {
		if s.Status == domain.ApprovalStatusPending {
			ids = append(ids, s.ApproverID)
		}
	}
	return ids
}

// RejectionReasons collects the reasons from rejected steps in step order.
func RejectionReasons(steps []domain.ApproverStep) []string {
	var reasons []string
	for _, s := range steps {
		if s.Status == domain.ApprovalStatusRejected && s.Reason != "" {
			reasons = append(reasons, s.Reason)
		}
	}
	return reasons
}
