package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"grading_service/internal/domain"
	"grading_service/internal/service"
	"grading_service/pkg/logging"
)

type GradingWorkflow interface {
	NextSubmission(ctx context.Context, courseID, location string) (*domain.GradingItem, error)
}

type Recorder interface {
	RecordGrade(ctx context.Context, cmd service.GradeCommand) error
	Skip(ctx context.Context, submissionID uuid.UUID) error
}

type Progress interface {
	ProblemList(ctx context.Context, courseID string) ([]domain.LocationProgress, error)
}

// GradingHandler exposes the staff grading endpoints called by the LMS:
// fetch the next submission to grade, save a grade (or skip) and list
// the problems of a course with their grading progress.
type GradingHandler struct {
	grading  GradingWorkflow
	recorder Recorder
	progress Progress
	logger   *logging.Logger
}

func NewGradingHandler(grading GradingWorkflow, recorder Recorder, progress Progress, logger *logging.Logger) *GradingHandler {
	return &GradingHandler{
		grading:  grading,
		recorder: recorder,
		progress: progress,
		logger:   logger,
	}
}

func (h *GradingHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.With(authMiddleware).Group(func(r chi.Router) {
		r.Get("/grading/next-submission", h.GetNextSubmission)
		r.Post("/grading/grade", h.SaveGrade)
		r.Get("/grading/problem-list", h.GetProblemList)
	})
}

func (h *GradingHandler) GetNextSubmission(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	courseID := q.Get("course_id")
	graderID := q.Get("grader_id")
	location := q.Get("location")

	if (courseID == "" && location == "") || graderID == "" {
		writeError(w, "required_parameter_missing", nil)
		return
	}

	item, err := h.grading.NextSubmission(ctx, courseID, location)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoSubmissionFound):
			writeSuccess(w, map[string]interface{}{"message": "No more submissions to grade."})
		case errors.Is(err, service.ErrSubmissionNotFound):
			h.logger.Error(ctx, "could not load claimed submission", zap.Error(err))
			writeError(w, "failed_to_load_submission", nil)
		case errors.Is(err, service.ErrInvalidState):
			h.logger.Error(ctx, "claimed submission in invalid state", zap.Error(err))
			writeError(w, "wrong_internal_state", nil)
		default:
			h.logger.Error(ctx, "failed to get next submission",
				zap.String("course_id", courseID),
				zap.String("location", location),
				zap.Error(err),
			)
			writeError(w, "get_submission_error", nil)
		}
		return
	}

	writeSuccess(w, map[string]interface{}{
		"submission_id": item.SubmissionID,
		"submission":    item.StudentResponse,
		"rubric":        item.Rubric,
		"prompt":        item.Prompt,
		"max_score":     item.MaxScore,
		"ml_error_info": item.MLAdvisory,
		"problem_name":  item.ProblemName,
		"num_graded":    item.NumGraded,
		"num_pending":   item.NumPending,
		"min_for_ml":    item.MinForML,
	})
}

type saveGradeRequest struct {
	CourseID     string  `json:"course_id"`
	GraderID     string  `json:"grader_id"`
	SubmissionID string  `json:"submission_id"`
	Score        *string `json:"score"`
	Feedback     *string `json:"feedback"`
	Skipped      bool    `json:"skipped"`
}

func (h *GradingHandler) SaveGrade(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req saveGradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid_request_body", nil)
		return
	}

	if req.CourseID == "" || req.GraderID == "" || req.SubmissionID == "" ||
		req.Score == nil || req.Feedback == nil {
		writeError(w, "required_parameter_missing", nil)
		return
	}

	submissionID, err := uuid.Parse(req.SubmissionID)
	if err != nil {
		writeError(w, "grade_save_error", map[string]interface{}{
			"msg": fmt.Sprintf("Invalid submission id %q", req.SubmissionID),
		})
		return
	}

	if req.Skipped {
		if err := h.recorder.Skip(ctx, submissionID); err != nil {
			h.logger.Error(ctx, "failed to skip submission",
				zap.String("submission_id", req.SubmissionID),
				zap.Error(err),
			)
			writeError(w, err.Error(), nil)
			return
		}
		writeSuccess(w, nil)
		return
	}

	cmd := service.GradeCommand{
		SubmissionID: submissionID,
		GraderID:     req.GraderID,
		Score:        *req.Score,
		Feedback:     *req.Feedback,
	}

	if err := h.recorder.RecordGrade(ctx, cmd); err != nil {
		if errors.Is(err, service.ErrInvalidScore) {
			writeError(w, "grade_save_error", map[string]interface{}{
				"msg": fmt.Sprintf("Expected integer score.  Got %v", *req.Score),
			})
			return
		}
		h.logger.Error(ctx, "failed to save grade",
			zap.String("submission_id", req.SubmissionID),
			zap.Error(err),
		)
		writeError(w, "grade_save_error", map[string]interface{}{"msg": "Internal error"})
		return
	}

	writeSuccess(w, nil)
}

func (h *GradingHandler) GetProblemList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	courseID := r.URL.Query().Get("course_id")

	if courseID == "" {
		writeError(w, "Missing needed tag course_id", nil)
		return
	}

	problems, err := h.progress.ProblemList(ctx, courseID)
	if err != nil {
		if errors.Is(err, service.ErrNoProblemsFound) {
			writeError(w, "No problems associated with course.", nil)
			return
		}
		h.logger.Error(ctx, "failed to build problem list",
			zap.String("course_id", courseID),
			zap.Error(err),
		)
		writeError(w, "problem_list_error", nil)
		return
	}

	problemList := make([]map[string]interface{}, 0, len(problems))
	for _, p := range problems {
		problemList = append(problemList, map[string]interface{}{
			"location":     p.Location,
			"problem_name": p.ProblemName,
			"num_graded":   p.NumGraded,
			"num_pending":  p.NumPending,
			"min_for_ml":   p.MinForML,
		})
	}

	writeSuccess(w, map[string]interface{}{"problem_list": problemList})
}
