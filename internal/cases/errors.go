package cases

import (
	"errors"
	"strings"
)

var (
	ErrIncidentNotFound   = errors.New("incident not found")
	ErrNoticeNotFound     = errors.New("notice not found")
	ErrResolutionNotFound = errors.New("resolution not found")

	// ErrVersionConflict surfaces a lost update: the record changed between
	// the caller's read and write. The caller must re-read and retry.
	ErrVersionConflict = errors.New("record was modified concurrently")

	ErrPermissionDenied = errors.New("permission denied")

	// ErrEmployeeNotOnIncident rejects a notice for someone the incident
	// does not name.
	ErrEmployeeNotOnIncident = errors.New("employee is not named on the incident")

	// ErrOpenNoticeExists enforces one open notice per (incident, employee).
	ErrOpenNoticeExists = errors.New("an open notice already exists for this employee")

	// ErrActiveResolutionExists enforces at most one non-rejected resolution
	// per (incident, employee).
	ErrActiveResolutionExists = errors.New("an active resolution already exists for this employee")

	// ErrNoticeNotReviewed rejects a resolution before the employee's
	// notice response has been reviewed.
	ErrNoticeNotReviewed = errors.New("notice response has not been reviewed")

	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNotResubmittable rejects a resubmission of a record whose approval
	// cycle was not vetoed.
	ErrNotResubmittable = errors.New("record is not in a rejected approval cycle")
)

// ValidationError carries the full list of distinct validation messages
// detected before any state is mutated.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// Details returns the individual messages; used by the HTTP layer.
func (e *ValidationError) Details() []string {
	return e.Messages
}
