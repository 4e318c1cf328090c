package domain

import (
	"time"

	"github.com/google/uuid"
)

// Grade is one committed grading decision. Immutable once stored.
type Grade struct {
	ID           uuid.UUID
	SubmissionID uuid.UUID
	GraderID     string
	GraderType   GraderType
	Score        int
	Feedback     string
	Status       GradeStatus
	Confidence   float64
	Errors       string
	CreatedAt    time.Time
}

// ModelStats describes the quality of the latest ML model trained for a
// location. Fields are pointers because the stats provider may omit any
// of them.
type ModelStats struct {
	Kappa             *float64 `json:"kappa"`
	MeanAbsoluteError *float64 `json:"mean_absolute_error"`
	DateCreated       *string  `json:"date_created"`
	NumberOfEssays    *int     `json:"number_of_essays"`
}
