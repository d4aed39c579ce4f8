// Package stage computes the single board stage for one employee's case
// thread from the statuses of its notice and resolution. Precedence is a
// lookup table, not control flow: a resolution, when present, always wins
// because it is a strictly later phase of the same workflow.
package stage

import "github.com/hrops/casetrack/internal/domain"

var resolutionStages = map[domain.ResolutionStatus]domain.Stage{
	domain.ResolutionStatusPendingApproval:        domain.StageBodGmApproval,
	domain.ResolutionStatusPendingAcknowledgement: domain.StageResolution,
	domain.ResolutionStatusApproved:               domain.StageClosed,
	domain.ResolutionStatusAcknowledged:           domain.StageClosed,
	// Sent back for correction: the thread falls back to HR review.
	domain.ResolutionStatusRejected: domain.StageHRReviewResponse,
}

var noticeStages = map[domain.NoticeStatus]domain.Stage{
	domain.NoticeStatusResponseSubmitted: domain.StageHRReviewResponse,
	domain.NoticeStatusWaiver:            domain.StageHRReviewResponse,
	domain.NoticeStatusHearingScheduled:  domain.StageHRReviewResponse,
	domain.NoticeStatusClosed:            domain.StageResolution,
	domain.NoticeStatusPendingApproval:   domain.StageNTEForApproval,
	domain.NoticeStatusIssued:            domain.StageNTESent,
}

var incidentStages = map[domain.IncidentStatus]domain.Stage{
	domain.IncidentStatusSubmitted: domain.StageIRReview,
	domain.IncidentStatusHRReview:  domain.StageIRReview,
	domain.IncidentStatusConverted: domain.StageConvertedCoaching,
	domain.IncidentStatusNoAction:  domain.StageNoAction,
}

// Derive returns the display stage for one (incident, employee) thread.
// It is a pure function of the two statuses.
func Derive(notice *domain.Notice, resolution *domain.Resolution) domain.Stage {
	if resolution != nil {
		if s, ok := resolutionStages[resolution.Status]; ok {
			return s
		}
	}
	if notice != nil {
		if s, ok := noticeStages[notice.Status]; ok {
			return s
		}
	}
	return domain.StageNTESent
}

// FromIncident maps an incident that has no notices yet to its own
// status-derived stage.
func FromIncident(inc *domain.Incident) domain.Stage {
	if s, ok := incidentStages[inc.Status]; ok {
		return s
	}
	return domain.StageIRReview
}
