package metrics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"grading_service/pkg/logging"
)

const (
	TimingTopic = "grading-timing"
	GradesTopic = "grades-recorded"
)

// Producer is the slice of the kafka producer the publisher needs.
type Producer interface {
	Send(ctx context.Context, topic string, message interface{}) error
}

// Publisher emits grading lifecycle events. Every publish is
// fire-and-forget: a broker outage must never block or fail a grading
// request, so failures are logged and dropped.
type Publisher struct {
	producer Producer
	logger   *logging.Logger
	timeout  time.Duration
}

func NewPublisher(producer Producer, logger *logging.Logger) *Publisher {
	return &Publisher{
		producer: producer,
		logger:   logger,
		timeout:  5 * time.Second,
	}
}

// InitTiming marks the start of the grading duration clock for a
// freshly claimed submission.
func (p *Publisher) InitTiming(submissionID uuid.UUID) {
	p.publish(TimingTopic, map[string]interface{}{
		"submission_id": submissionID,
		"started_at":    time.Now().UTC(),
	})
}

// GradeRecorded reports a committed instructor grade.
func (p *Publisher) GradeRecorded(submissionID uuid.UUID, graderID string, score int) {
	p.publish(GradesTopic, map[string]interface{}{
		"submission_id": submissionID,
		"grader_id":     graderID,
		"score":         score,
		"recorded_at":   time.Now().UTC(),
	})
}

func (p *Publisher) publish(topic string, message map[string]interface{}) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		if err := p.producer.Send(ctx, topic, message); err != nil {
			p.logger.Error(ctx, "failed to publish grading event",
				zap.String("topic", topic),
				zap.Any("message", message),
				zap.Error(err),
			)
		}
	}()
}
