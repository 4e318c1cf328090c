package service

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"grading_service/internal/domain"
)

// SelectorService hands out submissions to instructors. A submission is
// offered at most once while its claim is outstanding: the pick runs
// under a per-location lock and the claim write re-checks the state, so
// concurrent callers never receive the same id.
type SelectorService struct {
	store      SubmissionStore
	events     GradingEvents
	minToUseML int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewSelectorService(store SubmissionStore, events GradingEvents, minToUseML int) *SelectorService {
	return &SelectorService{
		store:      store,
		events:     events,
		minToUseML: minToUseML,
		locks:      make(map[string]*sync.Mutex),
	}
}

func (s *SelectorService) locationLock(location string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[location]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[location] = lock
	}
	return lock
}

// SelectForLocation claims one waiting submission at a location for
// instructor grading and returns its id.
//
// With preferMLGate set, a location whose instructor-graded plus
// in-grading count has reached the ML threshold offers nothing: enough
// training examples exist, the ML grader should take it from here. That
// outcome is ErrNoSubmissionFound, not a failure.
func (s *SelectorService) SelectForLocation(ctx context.Context, location string, preferMLGate bool) (uuid.UUID, error) {
	if preferMLGate {
		graded, pending, err := s.gateCounts(ctx, location)
		if err != nil {
			return uuid.Nil, err
		}
		if graded+pending >= s.minToUseML {
			return uuid.Nil, ErrNoSubmissionFound
		}
	}

	lock := s.locationLock(location)
	lock.Lock()
	defer lock.Unlock()

	// Pool: waiting submissions not yet committed to ML-only grading.
	pool, err := s.store.FindByFilter(ctx, domain.SubmissionFilter{
		Location: location,
		States:   []domain.SubmissionState{domain.StateWaitingToBeGraded},
		NextGraderTypes: []domain.GraderType{
			domain.GraderTypeInstructor,
			domain.GraderTypeMachineLearning,
		},
	})
	if err != nil {
		return uuid.Nil, err
	}

	for _, sub := range pool {
		claimed, err := s.store.ClaimForGrading(ctx, sub.ID)
		if err != nil {
			return uuid.Nil, err
		}
		if !claimed {
			// Another worker won the race for this one; try the next.
			continue
		}

		s.events.InitTiming(sub.ID)
		return sub.ID, nil
	}

	return uuid.Nil, ErrNoSubmissionFound
}

// SelectForCourse tries every location of a course in first-seen order,
// ML-gated first. If every location is gated or empty it retries with
// the gate off, so human-gradable work is never withheld entirely.
func (s *SelectorService) SelectForCourse(ctx context.Context, courseID string) (uuid.UUID, error) {
	locations, err := s.store.DistinctLocations(ctx, courseID)
	if err != nil {
		return uuid.Nil, err
	}

	for _, preferMLGate := range []bool{true, false} {
		for _, location := range locations {
			id, err := s.SelectForLocation(ctx, location, preferMLGate)
			if err == nil {
				return id, nil
			}
			if !errors.Is(err, ErrNoSubmissionFound) {
				return uuid.Nil, err
			}
		}
	}

	return uuid.Nil, ErrNoSubmissionFound
}

// gateCounts implements the ML-gate arithmetic: finished submissions an
// instructor graded plus submissions an instructor is grading right now.
// Narrower than ProgressService counts, which also include waiting work.
func (s *SelectorService) gateCounts(ctx context.Context, location string) (graded, pending int, err error) {
	graded, err = s.store.CountByFilter(ctx, domain.SubmissionFilter{
		Location:            location,
		States:              []domain.SubmissionState{domain.StateFinished},
		PreviousGraderTypes: []domain.GraderType{domain.GraderTypeInstructor},
	})
	if err != nil {
		return 0, 0, err
	}

	pending, err = s.store.CountByFilter(ctx, domain.SubmissionFilter{
		Location:        location,
		States:          []domain.SubmissionState{domain.StateBeingGraded},
		NextGraderTypes: []domain.GraderType{domain.GraderTypeInstructor},
	})
	if err != nil {
		return 0, 0, err
	}

	return graded, pending, nil
}
