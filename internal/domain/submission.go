package domain

import (
	"time"

	"github.com/google/uuid"
)

// Submission is one student response waiting for, undergoing or done
// with grading. Rows are created by the upstream ingestion pipeline;
// this service only moves them between states.
type Submission struct {
	ID                 uuid.UUID
	CourseID           string
	Location           string
	ProblemID          string
	StudentResponse    string
	Rubric             string
	Prompt             string
	MaxScore           int
	State              SubmissionState
	NextGraderType     GraderType
	PreviousGraderType GraderType
	CreatedAt          time.Time
	EditedAt           time.Time
}

// SubmissionFilter narrows submission queries. Zero-value fields are
// ignored; slice fields translate to IN clauses.
type SubmissionFilter struct {
	CourseID            string
	Location            string
	States              []SubmissionState
	NextGraderTypes     []GraderType
	PreviousGraderTypes []GraderType
	EditedBefore        time.Time
}

// LocationProgress is the per-problem dashboard row: how many
// submissions an instructor already graded at a location and how many
// still wait for one. Derived on demand, never persisted.
type LocationProgress struct {
	Location    string
	ProblemName string
	NumGraded   int
	NumPending  int
	MinForML    int
}

// GradingItem is everything a grader needs to review one submission.
type GradingItem struct {
	SubmissionID    uuid.UUID
	StudentResponse string
	Rubric          string
	Prompt          string
	MaxScore        int
	ProblemName     string
	NumGraded       int
	NumPending      int
	MinForML        int
	MLAdvisory      string
}
