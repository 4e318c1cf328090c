package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"grading_service/internal/domain"
	"grading_service/internal/repository"
)

const mlAdvisoryPrefix = "Machine learning error information: "

// GradingService assembles everything a grader needs for one piece of
// work: it asks the selector for a claim, loads the submission content
// and decorates it with progress counts and the ML model advisory.
type GradingService struct {
	selector   *SelectorService
	progress   *ProgressService
	store      SubmissionStore
	stats      MLStatsProvider
	minToUseML int
}

func NewGradingService(
	selector *SelectorService,
	progress *ProgressService,
	store SubmissionStore,
	stats MLStatsProvider,
	minToUseML int,
) *GradingService {
	return &GradingService{
		selector:   selector,
		progress:   progress,
		store:      store,
		stats:      stats,
		minToUseML: minToUseML,
	}
}

// NextSubmission claims the next submission for a grader. A non-empty
// location narrows the pick to that problem (ML-gated); otherwise the
// whole course is searched with the two-pass fallback.
func (g *GradingService) NextSubmission(ctx context.Context, courseID, location string) (*domain.GradingItem, error) {
	var id uuid.UUID
	var err error

	if location != "" {
		id, err = g.selector.SelectForLocation(ctx, location, true)
	} else {
		id, err = g.selector.SelectForCourse(ctx, courseID)
	}
	if err != nil {
		return nil, err
	}

	sub, err := g.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to load claimed submission %s: %w", id, ErrSubmissionNotFound)
		}
		return nil, err
	}

	if sub.State != domain.StateBeingGraded {
		return nil, fmt.Errorf("%w: submission %s is %s", ErrInvalidState, sub.ID, sub.State)
	}

	graded, pending, err := g.progress.Counts(ctx, sub.Location)
	if err != nil {
		return nil, err
	}

	return &domain.GradingItem{
		SubmissionID:    sub.ID,
		StudentResponse: sub.StudentResponse,
		Rubric:          sub.Rubric,
		Prompt:          sub.Prompt,
		MaxScore:        sub.MaxScore,
		ProblemName:     sub.ProblemID,
		NumGraded:       graded,
		NumPending:      pending,
		MinForML:        g.minToUseML,
		MLAdvisory:      g.modelAdvisory(ctx, sub.Location),
	}, nil
}

// modelAdvisory never fails the grading request: when stats are
// unavailable or incomplete the advisory carries the error text instead.
func (g *GradingService) modelAdvisory(ctx context.Context, location string) string {
	stats, err := g.stats.ModelStats(ctx, location)
	if err != nil {
		return mlAdvisoryPrefix + err.Error()
	}

	advisory, err := FormatModelAdvisory(stats)
	if err != nil {
		return mlAdvisoryPrefix + err.Error()
	}
	return mlAdvisoryPrefix + advisory
}
