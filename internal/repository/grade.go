package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"grading_service/internal/domain"
)

type GradeRepository struct {
	db *sql.DB
}

func NewGradeRepository(db *sql.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// Commit stores a grade and finishes its submission in one transaction.
// The submission's grading history shifts: previous_grader_type takes
// the committing grader type and next_grader_type clears.
func (r *GradeRepository) Commit(ctx context.Context, grade *domain.Grade) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("failed to generate UUID: %w", err)
	}

	insertQuery := `
		INSERT INTO grades
			(id, submission_id, grader_id, grader_type, score, feedback, status, confidence, errors, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	now := time.Now()
	if _, err := tx.ExecContext(ctx, insertQuery,
		id,
		grade.SubmissionID,
		grade.GraderID,
		grade.GraderType,
		grade.Score,
		grade.Feedback,
		grade.Status,
		grade.Confidence,
		grade.Errors,
		now,
	); err != nil {
		return fmt.Errorf("failed to insert grade: %w", err)
	}

	updateQuery := `
		UPDATE submissions
		SET state = $1, previous_grader_type = $2, next_grader_type = $3, edited_at = $4
		WHERE id = $5
	`

	result, err := tx.ExecContext(ctx, updateQuery,
		domain.StateFinished,
		grade.GraderType,
		domain.GraderTypeNone,
		now,
		grade.SubmissionID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish submission: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	grade.ID = id
	grade.CreatedAt = now
	return nil
}

