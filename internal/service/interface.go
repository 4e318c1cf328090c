package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"grading_service/internal/domain"
)

var (
	// ErrNoSubmissionFound means the pool had no work to offer. It is a
	// legitimate empty result, not a failure; callers should try later.
	ErrNoSubmissionFound = errors.New("no submission to grade")

	ErrSubmissionNotFound = errors.New("submission not found")
	ErrInvalidScore       = errors.New("score must be an integer")
	ErrInvalidState       = errors.New("submission is in an invalid state")
	ErrPersistence        = errors.New("failed to persist grade")
	ErrMissingField       = errors.New("missing model stats field")
	ErrNoProblemsFound    = errors.New("no problems associated with course")
)

// SubmissionStore is the durable submission pool. Implemented by
// repository.SubmissionRepository.
type SubmissionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Submission, error)
	FindByFilter(ctx context.Context, filter domain.SubmissionFilter) ([]*domain.Submission, error)
	CountByFilter(ctx context.Context, filter domain.SubmissionFilter) (int, error)
	DistinctLocations(ctx context.Context, courseID string) ([]string, error)
	ClaimForGrading(ctx context.Context, id uuid.UUID) (bool, error)
	ReleaseToML(ctx context.Context, id uuid.UUID) (bool, error)
}

// GradeStore commits grades. It owns the finished-state transition of
// the graded submission.
type GradeStore interface {
	Commit(ctx context.Context, grade *domain.Grade) error
}

// GradingEvents receives fire-and-forget grading lifecycle events.
type GradingEvents interface {
	InitTiming(submissionID uuid.UUID)
	GradeRecorded(submissionID uuid.UUID, graderID string, score int)
}

// MLStatsProvider reports quality stats of the latest ML model trained
// for a location.
type MLStatsProvider interface {
	ModelStats(ctx context.Context, location string) (*domain.ModelStats, error)
}
