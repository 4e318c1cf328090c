package domain

type SubmissionState string

const (
	StateWaitingToBeGraded SubmissionState = "waiting_to_be_graded"
	StateBeingGraded       SubmissionState = "being_graded"
	StateFinished          SubmissionState = "finished"
)

func (s SubmissionState) IsValid() bool {
	switch s {
	case StateWaitingToBeGraded, StateBeingGraded, StateFinished:
		return true
	default:
		return false
	}
}

// GraderType records who should grade a submission next and who graded
// it last.
type GraderType string

const (
	GraderTypeInstructor      GraderType = "instructor"
	GraderTypeMachineLearning GraderType = "ml"
	GraderTypeNone            GraderType = "none"
)

func (g GraderType) IsValid() bool {
	switch g {
	case GraderTypeInstructor, GraderTypeMachineLearning, GraderTypeNone:
		return true
	default:
		return false
	}
}

type GradeStatus string

const (
	GradeStatusSuccess GradeStatus = "success"
	GradeStatusFailure GradeStatus = "failure"
)
