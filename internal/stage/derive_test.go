package stage

import (
	"testing"

	"github.com/hrops/casetrack/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestDerive_NoResolution(t *testing.T) {
	tests := []struct {
		status domain.NoticeStatus
		want   domain.Stage
	}{
		{domain.NoticeStatusPendingApproval, domain.StageNTEForApproval},
		{domain.NoticeStatusIssued, domain.StageNTESent},
		{domain.NoticeStatusResponseSubmitted, domain.StageHRReviewResponse},
		{domain.NoticeStatusWaiver, domain.StageHRReviewResponse},
		{domain.NoticeStatusHearingScheduled, domain.StageHRReviewResponse},
		{domain.NoticeStatusClosed, domain.StageResolution},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			n := &domain.Notice{Status: tt.status}
			assert.Equal(t, tt.want, Derive(n, nil))
		})
	}
}

func TestDerive_ResolutionOverridesNotice(t *testing.T) {
	tests := []struct {
		status domain.ResolutionStatus
		want   domain.Stage
	}{
		{domain.ResolutionStatusPendingApproval, domain.StageBodGmApproval},
		{domain.ResolutionStatusPendingAcknowledgement, domain.StageResolution},
		{domain.ResolutionStatusApproved, domain.StageClosed},
		{domain.ResolutionStatusAcknowledged, domain.StageClosed},
		{domain.ResolutionStatusRejected, domain.StageHRReviewResponse},
	}

	// The notice status must not matter once a resolution exists.
	noticeStatuses := []domain.NoticeStatus{
		domain.NoticeStatusPendingApproval,
		domain.NoticeStatusIssued,
		domain.NoticeStatusResponseSubmitted,
		domain.NoticeStatusHearingScheduled,
		domain.NoticeStatusWaiver,
		domain.NoticeStatusClosed,
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			r := &domain.Resolution{Status: tt.status}
			for _, ns := range noticeStatuses {
				n := &domain.Notice{Status: ns}
				assert.Equal(t, tt.want, Derive(n, r), "notice status %s", ns)
			}
		})
	}
}

func TestDerive_RejectedResolutionSendsClosedNoticeBack(t *testing.T) {
	n := &domain.Notice{Status: domain.NoticeStatusClosed}
	r := &domain.Resolution{Status: domain.ResolutionStatusRejected}
	assert.Equal(t, domain.StageHRReviewResponse, Derive(n, r))
}

func TestDerive_IsPure(t *testing.T) {
	n := &domain.Notice{Status: domain.NoticeStatusIssued}
	first := Derive(n, nil)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Derive(n, nil))
	}
	assert.Equal(t, domain.StageNTESent, first)
}

func TestFromIncident(t *testing.T) {
	tests := []struct {
		status domain.IncidentStatus
		want   domain.Stage
	}{
		{domain.IncidentStatusSubmitted, domain.StageIRReview},
		{domain.IncidentStatusHRReview, domain.StageIRReview},
		{domain.IncidentStatusConverted, domain.StageConvertedCoaching},
		{domain.IncidentStatusNoAction, domain.StageNoAction},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, FromIncident(&domain.Incident{Status: tt.status}))
		})
	}
}
