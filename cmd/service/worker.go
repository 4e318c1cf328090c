package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	configs "grading_service/config"
	"grading_service/internal/domain"
	"grading_service/internal/metrics"
	"grading_service/internal/service"
	"grading_service/pkg/logging"
)

const staleClaimsTopic = "grading-stale-claims"

// StaleClaimWorker watches for submissions stuck in being_graded, which
// happens when a grader claims work and walks away. It only reports;
// releasing a stuck claim is an operator decision, not an automatic one.
type StaleClaimWorker struct {
	store    service.SubmissionStore
	producer metrics.Producer
	logger   *logging.Logger
	interval time.Duration
	maxAge   time.Duration
}

func NewStaleClaimWorker(
	store service.SubmissionStore,
	producer metrics.Producer,
	logger *logging.Logger,
	cfg configs.GradingConfig,
) *StaleClaimWorker {
	return &StaleClaimWorker{
		store:    store,
		producer: producer,
		logger:   logger,
		interval: cfg.WorkerInterval,
		maxAge:   cfg.StaleClaimAge,
	}
}

func (w *StaleClaimWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "stale claim worker stopped")
			return
		case <-ticker.C:
			w.reportStaleClaims(ctx)
		}
	}
}

func (w *StaleClaimWorker) reportStaleClaims(ctx context.Context) {
	stale, err := w.store.FindByFilter(ctx, domain.SubmissionFilter{
		States:       []domain.SubmissionState{domain.StateBeingGraded},
		EditedBefore: time.Now().Add(-w.maxAge),
	})
	if err != nil {
		w.logger.Error(ctx, "failed to list stale claims", zap.Error(err))
		return
	}

	for _, sub := range stale {
		message := map[string]interface{}{
			"submission_id": sub.ID,
			"course_id":     sub.CourseID,
			"location":      sub.Location,
			"claimed_at":    sub.EditedAt,
		}

		if err := w.producer.Send(ctx, staleClaimsTopic, message); err != nil {
			w.logger.Error(ctx, "failed to report stale claim",
				zap.String("submission_id", sub.ID.String()),
				zap.Error(err),
			)
			continue
		}

		w.logger.Warn(ctx, "submission stuck in grading",
			zap.String("submission_id", sub.ID.String()),
			zap.String("location", sub.Location),
			zap.Time("claimed_at", sub.EditedAt),
		)
	}
}
