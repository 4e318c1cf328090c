package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"grading_service/internal/domain"
)

var ErrNotFound = errors.New("not found")

const submissionColumns = `id, course_id, location, problem_id, student_response,
rubric, prompt, max_score, state, next_grader_type, previous_grader_type,
created_at, edited_at`

type SubmissionRepository struct {
	db *sql.DB
}

func NewSubmissionRepository(db *sql.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

func (r *SubmissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM submissions
		WHERE id = $1
	`

	var s domain.Submission
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID,
		&s.CourseID,
		&s.Location,
		&s.ProblemID,
		&s.StudentResponse,
		&s.Rubric,
		&s.Prompt,
		&s.MaxScore,
		&s.State,
		&s.NextGraderType,
		&s.PreviousGraderType,
		&s.CreatedAt,
		&s.EditedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	return &s, nil
}

// FindByFilter returns matching submissions in ascending id order.
// Submission ids are UUIDv7, so this is creation order and a stable
// tie-break for the selection policy.
func (r *SubmissionRepository) FindByFilter(ctx context.Context, filter domain.SubmissionFilter) ([]*domain.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE 1=1`
	where, args := buildFilter(filter)
	query += where + ` ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var submissions []*domain.Submission
	for rows.Next() {
		var s domain.Submission
		if err := rows.Scan(
			&s.ID,
			&s.CourseID,
			&s.Location,
			&s.ProblemID,
			&s.StudentResponse,
			&s.Rubric,
			&s.Prompt,
			&s.MaxScore,
			&s.State,
			&s.NextGraderType,
			&s.PreviousGraderType,
			&s.CreatedAt,
			&s.EditedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		submissions = append(submissions, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return submissions, nil
}

func (r *SubmissionRepository) CountByFilter(ctx context.Context, filter domain.SubmissionFilter) (int, error) {
	query := `SELECT COUNT(*) FROM submissions WHERE 1=1`
	where, args := buildFilter(filter)
	query += where

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}

	return count, nil
}

// DistinctLocations lists the problem locations seen for a course,
// ordered by the earliest submission at each location (first-seen order).
func (r *SubmissionRepository) DistinctLocations(ctx context.Context, courseID string) ([]string, error) {
	query := `
		SELECT location
		FROM submissions
		WHERE course_id = $1
		GROUP BY location
		ORDER BY MIN(id) ASC
	`

	rows, err := r.db.QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var locations []string
	for rows.Next() {
		var location string
		if err := rows.Scan(&location); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locations = append(locations, location)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return locations, nil
}

// ClaimForGrading moves a submission to being_graded for an instructor.
// The WHERE clause re-checks the expected state, so of two racing
// claimants exactly one sees true.
func (r *SubmissionRepository) ClaimForGrading(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE submissions
		SET state = $1, next_grader_type = $2, edited_at = $3
		WHERE id = $4 AND state = $5
	`

	result, err := r.db.ExecContext(ctx, query,
		domain.StateBeingGraded,
		domain.GraderTypeInstructor,
		time.Now(),
		id,
		domain.StateWaitingToBeGraded,
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim submission: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// ReleaseToML puts a claimed submission back into the pool with the ML
// grader as its next stop. Returns false when the submission was not in
// being_graded, so a second release of the same claim fails cleanly.
func (r *SubmissionRepository) ReleaseToML(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE submissions
		SET state = $1, next_grader_type = $2, edited_at = $3
		WHERE id = $4 AND state = $5
	`

	result, err := r.db.ExecContext(ctx, query,
		domain.StateWaitingToBeGraded,
		domain.GraderTypeMachineLearning,
		time.Now(),
		id,
		domain.StateBeingGraded,
	)
	if err != nil {
		return false, fmt.Errorf("failed to release submission: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

func buildFilter(filter domain.SubmissionFilter) (string, []interface{}) {
	var clauses strings.Builder
	var args []interface{}
	argsCount := 1

	if filter.CourseID != "" {
		clauses.WriteString(fmt.Sprintf(" AND course_id = $%d", argsCount))
		args = append(args, filter.CourseID)
		argsCount++
	}

	if filter.Location != "" {
		clauses.WriteString(fmt.Sprintf(" AND location = $%d", argsCount))
		args = append(args, filter.Location)
		argsCount++
	}

	if len(filter.States) > 0 {
		placeholders := make([]string, len(filter.States))
		for i := range filter.States {
			placeholders[i] = fmt.Sprintf("$%d", argsCount)
			args = append(args, filter.States[i])
			argsCount++
		}
		clauses.WriteString(fmt.Sprintf(" AND state IN (%s)", strings.Join(placeholders, ", ")))
	}

	if len(filter.NextGraderTypes) > 0 {
		placeholders := make([]string, len(filter.NextGraderTypes))
		for i := range filter.NextGraderTypes {
			placeholders[i] = fmt.Sprintf("$%d", argsCount)
			args = append(args, filter.NextGraderTypes[i])
			argsCount++
		}
		clauses.WriteString(fmt.Sprintf(" AND next_grader_type IN (%s)", strings.Join(placeholders, ", ")))
	}

	if len(filter.PreviousGraderTypes) > 0 {
		placeholders := make([]string, len(filter.PreviousGraderTypes))
		for i := range filter.PreviousGraderTypes {
			placeholders[i] = fmt.Sprintf("$%d", argsCount)
			args = append(args, filter.PreviousGraderTypes[i])
			argsCount++
		}
		clauses.WriteString(fmt.Sprintf(" AND previous_grader_type IN (%s)", strings.Join(placeholders, ", ")))
	}

	if !filter.EditedBefore.IsZero() {
		clauses.WriteString(fmt.Sprintf(" AND edited_at < $%d", argsCount))
		args = append(args, filter.EditedBefore)
	}

	return clauses.String(), args
}
