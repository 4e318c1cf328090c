package testutils

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"grading_service/internal/domain"
	"grading_service/internal/repository"
)

// InMemSubmissionStore is a mutex-guarded substitute for the Postgres
// submission repository, with the same compare-and-set claim semantics.
// Used to drive selector tests, including concurrent ones.
type InMemSubmissionStore struct {
	mu   sync.Mutex
	subs []*domain.Submission
}

func NewInMemSubmissionStore(subs ...*domain.Submission) *InMemSubmissionStore {
	store := &InMemSubmissionStore{}
	for _, sub := range subs {
		store.Add(sub)
	}
	return store
}

// Add registers a submission, assigning a time-ordered id when missing.
func (s *InMemSubmissionStore) Add(sub *domain.Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub.ID == uuid.Nil {
		sub.ID, _ = uuid.NewV7()
	}
	s.subs = append(s.subs, sub)
}

func (s *InMemSubmissionStore) Get(id uuid.UUID) *domain.Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if sub.ID == id {
			copied := *sub
			return &copied
		}
	}
	return nil
}

func (s *InMemSubmissionStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Submission, error) {
	if sub := s.Get(id); sub != nil {
		return sub, nil
	}
	return nil, repository.ErrNotFound
}

func (s *InMemSubmissionStore) FindByFilter(_ context.Context, filter domain.SubmissionFilter) ([]*domain.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*domain.Submission
	for _, sub := range s.subs {
		if matches(sub, filter) {
			copied := *sub
			matched = append(matched, &copied)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return bytes.Compare(matched[i].ID[:], matched[j].ID[:]) < 0
	})

	return matched, nil
}

func (s *InMemSubmissionStore) CountByFilter(ctx context.Context, filter domain.SubmissionFilter) (int, error) {
	matched, err := s.FindByFilter(ctx, filter)
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

func (s *InMemSubmissionStore) DistinctLocations(_ context.Context, courseID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool)
	var locations []string
	for _, sub := range s.subs {
		if sub.CourseID != courseID || seen[sub.Location] {
			continue
		}
		seen[sub.Location] = true
		locations = append(locations, sub.Location)
	}

	return locations, nil
}

func (s *InMemSubmissionStore) ClaimForGrading(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sub := range s.subs {
		if sub.ID != id {
			continue
		}
		if sub.State != domain.StateWaitingToBeGraded {
			return false, nil
		}
		sub.State = domain.StateBeingGraded
		sub.NextGraderType = domain.GraderTypeInstructor
		return true, nil
	}

	return false, nil
}

func (s *InMemSubmissionStore) ReleaseToML(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sub := range s.subs {
		if sub.ID != id {
			continue
		}
		if sub.State != domain.StateBeingGraded {
			return false, nil
		}
		sub.State = domain.StateWaitingToBeGraded
		sub.NextGraderType = domain.GraderTypeMachineLearning
		return true, nil
	}

	return false, nil
}

func matches(sub *domain.Submission, filter domain.SubmissionFilter) bool {
	if filter.CourseID != "" && sub.CourseID != filter.CourseID {
		return false
	}
	if filter.Location != "" && sub.Location != filter.Location {
		return false
	}
	if len(filter.States) > 0 && !containsState(filter.States, sub.State) {
		return false
	}
	if len(filter.NextGraderTypes) > 0 && !containsGrader(filter.NextGraderTypes, sub.NextGraderType) {
		return false
	}
	if len(filter.PreviousGraderTypes) > 0 && !containsGrader(filter.PreviousGraderTypes, sub.PreviousGraderType) {
		return false
	}
	if !filter.EditedBefore.IsZero() && !sub.EditedAt.Before(filter.EditedBefore) {
		return false
	}
	return true
}

func containsState(states []domain.SubmissionState, state domain.SubmissionState) bool {
	for _, s := range states {
		if s == state {
			return true
		}
	}
	return false
}

func containsGrader(types []domain.GraderType, graderType domain.GraderType) bool {
	for _, t := range types {
		if t == graderType {
			return true
		}
	}
	return false
}
