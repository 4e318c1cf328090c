package service

import (
	"context"
	"strings"

	"grading_service/internal/domain"
)

// ProgressService reports grading progress per problem location. It is
// read-only; counts are computed from submission state on every call.
type ProgressService struct {
	store      SubmissionStore
	minToUseML int
}

func NewProgressService(store SubmissionStore, minToUseML int) *ProgressService {
	return &ProgressService{store: store, minToUseML: minToUseML}
}

// Counts returns how many submissions at a location an instructor has
// finished grading and how many still have an instructor as their next
// grader (waiting or in progress). Meant for dashboards; the counts are
// a best-effort snapshot, not linearized with concurrent claims.
func (p *ProgressService) Counts(ctx context.Context, location string) (graded, pending int, err error) {
	graded, err = p.store.CountByFilter(ctx, domain.SubmissionFilter{
		Location:            location,
		States:              []domain.SubmissionState{domain.StateFinished},
		PreviousGraderTypes: []domain.GraderType{domain.GraderTypeInstructor},
	})
	if err != nil {
		return 0, 0, err
	}

	pending, err = p.store.CountByFilter(ctx, domain.SubmissionFilter{
		Location: location,
		States: []domain.SubmissionState{
			domain.StateBeingGraded,
			domain.StateWaitingToBeGraded,
		},
		NextGraderTypes: []domain.GraderType{domain.GraderTypeInstructor},
	})
	if err != nil {
		return 0, 0, err
	}

	return graded, pending, nil
}

// ProblemList builds the per-course grading dashboard: one row per
// location with its progress counts and the ML threshold.
func (p *ProgressService) ProblemList(ctx context.Context, courseID string) ([]domain.LocationProgress, error) {
	locations, err := p.store.DistinctLocations(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if len(locations) == 0 {
		return nil, ErrNoProblemsFound
	}

	problems := make([]domain.LocationProgress, 0, len(locations))
	for _, location := range locations {
		graded, pending, err := p.Counts(ctx, location)
		if err != nil {
			return nil, err
		}
		problems = append(problems, domain.LocationProgress{
			Location:    location,
			ProblemName: ProblemNameFromLocation(location),
			NumGraded:   graded,
			NumPending:  pending,
			MinForML:    p.minToUseML,
		})
	}

	return problems, nil
}

// ProblemNameFromLocation strips the scheme prefix from a location id,
// e.g. "i4x://org/course/problem/attempt" -> "org/course/problem/attempt".
func ProblemNameFromLocation(location string) string {
	if _, name, ok := strings.Cut(location, "://"); ok {
		return name
	}
	return location
}
