package service

import (
	"fmt"

	"grading_service/internal/domain"
)

// FormatModelAdvisory renders ML model quality stats as the advisory
// string shown next to a submission, so graders know how good the
// machine grader already is for this problem.
func FormatModelAdvisory(stats *domain.ModelStats) (string, error) {
	switch {
	case stats == nil:
		return "", fmt.Errorf("%w: stats", ErrMissingField)
	case stats.DateCreated == nil:
		return "", fmt.Errorf("%w: date_created", ErrMissingField)
	case stats.NumberOfEssays == nil:
		return "", fmt.Errorf("%w: number_of_essays", ErrMissingField)
	case stats.MeanAbsoluteError == nil:
		return "", fmt.Errorf("%w: mean_absolute_error", ErrMissingField)
	case stats.Kappa == nil:
		return "", fmt.Errorf("%w: kappa", ErrMissingField)
	}

	return fmt.Sprintf(
		"Latest model created on %s.  Contains %d essays.\nMean absolute error is %v and kappa is %v.",
		*stats.DateCreated,
		*stats.NumberOfEssays,
		*stats.MeanAbsoluteError,
		*stats.Kappa,
	), nil
}
