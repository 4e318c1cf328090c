package testutils

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockKafkaProducer struct {
	mock.Mock
}

func (m *MockKafkaProducer) Send(ctx context.Context, topic string, message interface{}) error {
	args := m.Called(ctx, topic, message)
	return args.Error(0)
}

func (m *MockKafkaProducer) Close() error {
	args := m.Called()
	return args.Error(0)
}

// EventRecorder collects grading events so tests can assert on the side
// effects of claims and grade commits without a broker.
type EventRecorder struct {
	mu            sync.Mutex
	TimingInits   []uuid.UUID
	GradesEmitted []uuid.UUID
}

func (r *EventRecorder) InitTiming(submissionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.TimingInits = append(r.TimingInits, submissionID)
}

func (r *EventRecorder) GradeRecorded(submissionID uuid.UUID, graderID string, score int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.GradesEmitted = append(r.GradesEmitted, submissionID)
}
