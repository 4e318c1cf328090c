package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"grading_service/internal/domain"
	"grading_service/internal/repository"
)

// GradeCommand carries a grader's decision. Score stays a string here:
// it arrives as free text from the grading form and validating it is the
// recorder's job.
type GradeCommand struct {
	SubmissionID uuid.UUID
	GraderID     string
	Score        string
	Feedback     string
}

// RecorderService commits instructor grades and releases skipped claims.
type RecorderService struct {
	store  SubmissionStore
	grades GradeStore
	events GradingEvents
}

func NewRecorderService(store SubmissionStore, grades GradeStore, events GradingEvents) *RecorderService {
	return &RecorderService{store: store, grades: grades, events: events}
}

// RecordGrade validates and commits a grade. The grade store finishes
// the submission as part of the commit; on a store failure the
// submission stays being_graded and the caller decides what to do, this
// service never retries.
func (r *RecorderService) RecordGrade(ctx context.Context, cmd GradeCommand) error {
	score, err := strconv.Atoi(cmd.Score)
	if err != nil {
		return fmt.Errorf("%w: got %q", ErrInvalidScore, cmd.Score)
	}

	grade := &domain.Grade{
		SubmissionID: cmd.SubmissionID,
		GraderID:     cmd.GraderID,
		GraderType:   domain.GraderTypeInstructor,
		Score:        score,
		Feedback:     cmd.Feedback,
		// Humans always succeed if they grade at all, and they are
		// always confident.
		Status:     domain.GradeStatusSuccess,
		Confidence: 1.0,
		Errors:     "",
	}

	if err := r.grades.Commit(ctx, grade); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSubmissionNotFound
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	r.events.GradeRecorded(cmd.SubmissionID, cmd.GraderID, score)
	return nil
}

// Skip releases a claimed submission back to the pool with the ML
// grader next in line. A second Skip on the same claim fails with
// ErrInvalidState: the submission is no longer being graded.
func (r *RecorderService) Skip(ctx context.Context, submissionID uuid.UUID) error {
	released, err := r.store.ReleaseToML(ctx, submissionID)
	if err != nil {
		return err
	}
	if released {
		return nil
	}

	// Distinguish an unknown id from a submission that simply is not
	// claimed right now.
	if _, err := r.store.GetByID(ctx, submissionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSubmissionNotFound
		}
		return err
	}
	return ErrInvalidState
}
