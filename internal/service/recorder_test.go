package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"grading_service/internal/domain"
	"grading_service/internal/repository"
	"grading_service/internal/service"
	"grading_service/internal/testutils"
)

type mockGradeStore struct {
	mock.Mock
}

func (m *mockGradeStore) Commit(ctx context.Context, grade *domain.Grade) error {
	args := m.Called(ctx, grade)
	return args.Error(0)
}

func mustUUID(t *testing.T) uuid.UUID {
	t.Helper()
	id, err := uuid.NewV7()
	require.NoError(t, err)
	return id
}

func TestRecordGrade_Success(t *testing.T) {
	sub := beingGradedSubmission(testLocation)
	store := testutils.NewInMemSubmissionStore(sub)
	grades := &mockGradeStore{}
	events := &testutils.EventRecorder{}
	recorder := service.NewRecorderService(store, grades, events)

	var committed *domain.Grade
	grades.On("Commit", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		committed = args.Get(1).(*domain.Grade)
	}).Return(nil)

	err := recorder.RecordGrade(context.Background(), service.GradeCommand{
		SubmissionID: sub.ID,
		GraderID:     "grader-7",
		Score:        "3",
		Feedback:     "solid reasoning",
	})
	require.NoError(t, err)

	require.NotNil(t, committed)
	assert.Equal(t, sub.ID, committed.SubmissionID)
	assert.Equal(t, "grader-7", committed.GraderID)
	assert.Equal(t, domain.GraderTypeInstructor, committed.GraderType)
	assert.Equal(t, 3, committed.Score)
	assert.Equal(t, "solid reasoning", committed.Feedback)
	assert.Equal(t, domain.GradeStatusSuccess, committed.Status)
	assert.Equal(t, 1.0, committed.Confidence)
	assert.Empty(t, committed.Errors)

	assert.Contains(t, events.GradesEmitted, sub.ID)
}

func TestRecordGrade_InvalidScore(t *testing.T) {
	sub := beingGradedSubmission(testLocation)
	store := testutils.NewInMemSubmissionStore(sub)
	grades := &mockGradeStore{}
	recorder := service.NewRecorderService(store, grades, &testutils.EventRecorder{})

	err := recorder.RecordGrade(context.Background(), service.GradeCommand{
		SubmissionID: sub.ID,
		GraderID:     "grader-7",
		Score:        "abc",
		Feedback:     "fb",
	})
	assert.ErrorIs(t, err, service.ErrInvalidScore)

	// No commit attempted, submission untouched.
	grades.AssertNotCalled(t, "Commit", mock.Anything, mock.Anything)
	assert.Equal(t, domain.StateBeingGraded, store.Get(sub.ID).State)
}

func TestRecordGrade_PersistenceFailure(t *testing.T) {
	sub := beingGradedSubmission(testLocation)
	store := testutils.NewInMemSubmissionStore(sub)
	grades := &mockGradeStore{}
	grades.On("Commit", mock.Anything, mock.Anything).Return(errors.New("db down"))
	events := &testutils.EventRecorder{}
	recorder := service.NewRecorderService(store, grades, events)

	err := recorder.RecordGrade(context.Background(), service.GradeCommand{
		SubmissionID: sub.ID,
		GraderID:     "grader-7",
		Score:        "2",
		Feedback:     "fb",
	})
	assert.ErrorIs(t, err, service.ErrPersistence)

	// The claim stays outstanding and no event fires.
	assert.Equal(t, domain.StateBeingGraded, store.Get(sub.ID).State)
	assert.Empty(t, events.GradesEmitted)
}

func TestRecordGrade_UnknownSubmission(t *testing.T) {
	store := testutils.NewInMemSubmissionStore()
	grades := &mockGradeStore{}
	grades.On("Commit", mock.Anything, mock.Anything).Return(repository.ErrNotFound)
	recorder := service.NewRecorderService(store, grades, &testutils.EventRecorder{})

	ghost := waitingSubmission(testLocation)
	ghost.ID = mustUUID(t)

	err := recorder.RecordGrade(context.Background(), service.GradeCommand{
		SubmissionID: ghost.ID,
		GraderID:     "grader-7",
		Score:        "2",
		Feedback:     "fb",
	})
	assert.ErrorIs(t, err, service.ErrSubmissionNotFound)
}

func TestSkip_ReleasesClaimToML(t *testing.T) {
	sub := beingGradedSubmission(testLocation)
	store := testutils.NewInMemSubmissionStore(sub)
	recorder := service.NewRecorderService(store, &mockGradeStore{}, &testutils.EventRecorder{})

	err := recorder.Skip(context.Background(), sub.ID)
	require.NoError(t, err)

	released := store.Get(sub.ID)
	assert.Equal(t, domain.StateWaitingToBeGraded, released.State)
	assert.Equal(t, domain.GraderTypeMachineLearning, released.NextGraderType)
}

func TestSkip_TwiceFailsCleanly(t *testing.T) {
	sub := beingGradedSubmission(testLocation)
	store := testutils.NewInMemSubmissionStore(sub)
	recorder := service.NewRecorderService(store, &mockGradeStore{}, &testutils.EventRecorder{})

	require.NoError(t, recorder.Skip(context.Background(), sub.ID))

	err := recorder.Skip(context.Background(), sub.ID)
	assert.ErrorIs(t, err, service.ErrInvalidState)

	// The first release sticks.
	released := store.Get(sub.ID)
	assert.Equal(t, domain.StateWaitingToBeGraded, released.State)
	assert.Equal(t, domain.GraderTypeMachineLearning, released.NextGraderType)
}

func TestSkip_UnknownSubmission(t *testing.T) {
	store := testutils.NewInMemSubmissionStore()
	recorder := service.NewRecorderService(store, &mockGradeStore{}, &testutils.EventRecorder{})

	err := recorder.Skip(context.Background(), mustUUID(t))
	assert.ErrorIs(t, err, service.ErrSubmissionNotFound)
}
