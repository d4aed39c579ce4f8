package domain

// Stage is the single display state computed for one employee's case
// thread. The board groups entries into columns by stage.
type Stage string

const (
	StageIRReview          Stage = "ir-review"
	StageNTEForApproval    Stage = "nte-for-approval"
	StageNTESent           Stage = "nte-sent"
	StageHRReviewResponse  Stage = "hr-review-response"
	StageBodGmApproval     Stage = "bod-gm-approval"
	StageResolution        Stage = "resolution"
	StageClosed            Stage = "closed"
	StageNoAction          Stage = "no-action"
	StageConvertedCoaching Stage = "converted-coaching"
)

// BoardStages lists all stages in board column order.
func BoardStages() []Stage {
	return []Stage{
		StageIRReview,
		StageNTEForApproval,
		StageNTESent,
		StageHRReviewResponse,
		StageBodGmApproval,
		StageResolution,
		StageClosed,
		StageNoAction,
		StageConvertedCoaching,
	}
}

func (s Stage) IsValid() bool {
	for _, st := range BoardStages() {
		if s == st {
			return true
		}
	}
	return false
}
