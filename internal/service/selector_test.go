package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grading_service/internal/domain"
	"grading_service/internal/service"
	"grading_service/internal/testutils"
)

const (
	testCourse   = "course-1"
	testLocation = "i4x://course-1/problem-1"
	minToUseML   = 5
)

func waitingSubmission(location string) *domain.Submission {
	return &domain.Submission{
		CourseID:           testCourse,
		Location:           location,
		ProblemID:          "problem-1",
		State:              domain.StateWaitingToBeGraded,
		NextGraderType:     domain.GraderTypeInstructor,
		PreviousGraderType: domain.GraderTypeNone,
	}
}

func finishedInstructorSubmission(location string) *domain.Submission {
	return &domain.Submission{
		CourseID:           testCourse,
		Location:           location,
		ProblemID:          "problem-1",
		State:              domain.StateFinished,
		NextGraderType:     domain.GraderTypeNone,
		PreviousGraderType: domain.GraderTypeInstructor,
	}
}

func beingGradedSubmission(location string) *domain.Submission {
	return &domain.Submission{
		CourseID:           testCourse,
		Location:           location,
		ProblemID:          "problem-1",
		State:              domain.StateBeingGraded,
		NextGraderType:     domain.GraderTypeInstructor,
		PreviousGraderType: domain.GraderTypeNone,
	}
}

func TestSelectForLocation_ClaimsWaitingSubmission(t *testing.T) {
	store := testutils.NewInMemSubmissionStore(
		waitingSubmission(testLocation),
		waitingSubmission(testLocation),
		waitingSubmission(testLocation),
	)
	events := &testutils.EventRecorder{}
	selector := service.NewSelectorService(store, events, minToUseML)

	id, err := selector.SelectForLocation(context.Background(), testLocation, true)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)

	claimed := store.Get(id)
	require.NotNil(t, claimed)
	assert.Equal(t, domain.StateBeingGraded, claimed.State)
	assert.Equal(t, domain.GraderTypeInstructor, claimed.NextGraderType)
	assert.Equal(t, []uuid.UUID{id}, events.TimingInits)
}

func TestSelectForLocation_DeterministicPickOrder(t *testing.T) {
	first := waitingSubmission(testLocation)
	second := waitingSubmission(testLocation)
	third := waitingSubmission(testLocation)
	store := testutils.NewInMemSubmissionStore(first, second, third)
	selector := service.NewSelectorService(store, &testutils.EventRecorder{}, minToUseML)

	id, err := selector.SelectForLocation(context.Background(), testLocation, true)
	require.NoError(t, err)
	assert.Equal(t, first.ID, id, "expected the oldest submission to be picked first")

	id, err = selector.SelectForLocation(context.Background(), testLocation, true)
	require.NoError(t, err)
	assert.Equal(t, second.ID, id)
}

func TestSelectForLocation_NeverReturnsSameIDTwice(t *testing.T) {
	store := testutils.NewInMemSubmissionStore(
		waitingSubmission(testLocation),
		waitingSubmission(testLocation),
		waitingSubmission(testLocation),
	)
	selector := service.NewSelectorService(store, &testutils.EventRecorder{}, minToUseML)

	seen := make(map[uuid.UUID]bool)
	for i := 0; i < 3; i++ {
		id, err := selector.SelectForLocation(context.Background(), testLocation, true)
		require.NoError(t, err)
		assert.False(t, seen[id], "submission %s offered twice", id)
		seen[id] = true
	}

	_, err := selector.SelectForLocation(context.Background(), testLocation, true)
	assert.ErrorIs(t, err, service.ErrNoSubmissionFound)
}

func TestSelectForLocation_MLGate(t *testing.T) {
	t.Run("below threshold keeps pool open", func(t *testing.T) {
		// 2 graded + 1 pending = 3 < 5.
		store := testutils.NewInMemSubmissionStore(
			finishedInstructorSubmission(testLocation),
			finishedInstructorSubmission(testLocation),
			beingGradedSubmission(testLocation),
			waitingSubmission(testLocation),
		)
		selector := service.NewSelectorService(store, &testutils.EventRecorder{}, minToUseML)

		_, err := selector.SelectForLocation(context.Background(), testLocation, true)
		assert.NoError(t, err)
	})

	t.Run("at threshold returns no submission", func(t *testing.T) {
		// 4 graded + 1 pending = 5, waiting work exists but ML should
		// take over.
		store := testutils.NewInMemSubmissionStore(
			finishedInstructorSubmission(testLocation),
			finishedInstructorSubmission(testLocation),
			finishedInstructorSubmission(testLocation),
			finishedInstructorSubmission(testLocation),
			beingGradedSubmission(testLocation),
			waitingSubmission(testLocation),
		)
		selector := service.NewSelectorService(store, &testutils.EventRecorder{}, minToUseML)

		_, err := selector.SelectForLocation(context.Background(), testLocation, true)
		assert.ErrorIs(t, err, service.ErrNoSubmissionFound)
	})

	t.Run("gate off ignores threshold", func(t *testing.T) {
		store := testutils.NewInMemSubmissionStore(
			finishedInstructorSubmission(testLocation),
			finishedInstructorSubmission(testLocation),
			finishedInstructorSubmission(testLocation),
			finishedInstructorSubmission(testLocation),
			beingGradedSubmission(testLocation),
			waitingSubmission(testLocation),
		)
		selector := service.NewSelectorService(store, &testutils.EventRecorder{}, minToUseML)

		_, err := selector.SelectForLocation(context.Background(), testLocation, false)
		assert.NoError(t, err)
	})
}

func TestSelectForLocation_PoolExcludesNoneGraderType(t *testing.T) {
	excluded := waitingSubmission(testLocation)
	excluded.NextGraderType = domain.GraderTypeNone
	store := testutils.NewInMemSubmissionStore(excluded)
	selector := service.NewSelectorService(store, &testutils.EventRecorder{}, minToUseML)

	_, err := selector.SelectForLocation(context.Background(), testLocation, true)
	assert.ErrorIs(t, err, service.ErrNoSubmissionFound)
}

func TestSelectForLocation_MLPoolSubmissionIsReclaimable(t *testing.T) {
	sub := waitingSubmission(testLocation)
	sub.NextGraderType = domain.GraderTypeMachineLearning
	store := testutils.NewInMemSubmissionStore(sub)
	selector := service.NewSelectorService(store, &testutils.EventRecorder{}, minToUseML)

	id, err := selector.SelectForLocation(context.Background(), testLocation, true)
	require.NoError(t, err)

	claimed := store.Get(id)
	assert.Equal(t, domain.GraderTypeInstructor, claimed.NextGraderType,
		"claiming must route the submission back to an instructor")
}

func TestSelectForLocation_ConcurrentCallersGetDistinctIDs(t *testing.T) {
	const submissions = 3
	const callers = 10

	store := testutils.NewInMemSubmissionStore()
	for i := 0; i < submissions; i++ {
		store.Add(waitingSubmission(testLocation))
	}
	selector := service.NewSelectorService(store, &testutils.EventRecorder{}, minToUseML)

	var wg sync.WaitGroup
	results := make(chan uuid.UUID, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := selector.SelectForLocation(context.Background(), testLocation, true)
			if err == nil {
				results <- id
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[uuid.UUID]bool)
	for id := range results {
		assert.False(t, seen[id], "submission %s claimed twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, submissions, "every submission should be claimed exactly once")
}

func TestSelectForCourse_TwoPassFallback(t *testing.T) {
	gatedLocation := "i4x://course-1/gated"
	store := testutils.NewInMemSubmissionStore()
	// First-seen location is fully gated: 5 finished instructor grades.
	for i := 0; i < minToUseML; i++ {
		store.Add(finishedInstructorSubmission(gatedLocation))
	}
	gatedWaiting := waitingSubmission(gatedLocation)
	store.Add(gatedWaiting)

	selector := service.NewSelectorService(store, &testutils.EventRecorder{}, minToUseML)

	// The gated pass offers nothing, the ungated pass must claim the
	// waiting submission anyway.
	id, err := selector.SelectForCourse(context.Background(), testCourse)
	require.NoError(t, err)
	assert.Equal(t, gatedWaiting.ID, id)
}

func TestSelectForCourse_PrefersUngatedLocation(t *testing.T) {
	gatedLocation := "i4x://course-1/gated"
	openLocation := "i4x://course-1/open"
	store := testutils.NewInMemSubmissionStore()
	for i := 0; i < minToUseML; i++ {
		store.Add(finishedInstructorSubmission(gatedLocation))
	}
	store.Add(waitingSubmission(gatedLocation))
	openWaiting := waitingSubmission(openLocation)
	store.Add(openWaiting)

	selector := service.NewSelectorService(store, &testutils.EventRecorder{}, minToUseML)

	id, err := selector.SelectForCourse(context.Background(), testCourse)
	require.NoError(t, err)
	assert.Equal(t, openWaiting.ID, id, "gated pass should reach the open location first")
}

func TestSelectForCourse_NoLocations(t *testing.T) {
	store := testutils.NewInMemSubmissionStore()
	selector := service.NewSelectorService(store, &testutils.EventRecorder{}, minToUseML)

	_, err := selector.SelectForCourse(context.Background(), "unknown-course")
	assert.ErrorIs(t, err, service.ErrNoSubmissionFound)
}

func TestSelectForCourse_EmptyLocationDoesNotStopSearch(t *testing.T) {
	emptyLocation := "i4x://course-1/empty"
	fullLocation := "i4x://course-1/full"
	store := testutils.NewInMemSubmissionStore()
	// The first-seen location has only finished work, nothing claimable.
	store.Add(finishedInstructorSubmission(emptyLocation))
	target := waitingSubmission(fullLocation)
	store.Add(target)

	selector := service.NewSelectorService(store, &testutils.EventRecorder{}, minToUseML)

	id, err := selector.SelectForCourse(context.Background(), testCourse)
	require.NoError(t, err)
	assert.Equal(t, target.ID, id)
}
