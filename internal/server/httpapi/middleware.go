package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"grading_service/internal/client"
	"grading_service/pkg/ctxdata"
	"grading_service/pkg/logging"
)

// Authorizer checks a session against the upstream LMS.
type Authorizer interface {
	Authorize(ctx context.Context, authHeader string) (string, error)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func NewLoggingMiddleware(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			traceID, err := uuid.NewV7()
			if err != nil {
				traceID = uuid.New()
			}

			ctx := ctxdata.WithTraceID(r.Context(), traceID.String())
			ctx = logging.ContextWithLogger(ctx, logger)
			r = r.WithContext(ctx)

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			w.Header().Set("X-Trace-Id", traceID.String())

			next.ServeHTTP(sw, r)

			logger.Info(ctx, "request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", sw.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

// NewAuthMiddleware rejects requests without a valid LMS session. The
// grader_id passed in request parameters is not matched against the
// session user; that check belongs to the LMS.
func NewAuthMiddleware(authorizer Authorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			header := r.Header.Get("Authorization")
			if header == "" {
				if logger, ok := logging.GetFromContext(ctx); ok {
					logger.Info(ctx, "no authorization header", zap.String("path", r.URL.Path))
				}
				w.WriteHeader(http.StatusUnauthorized)
				return
			}

			userID, err := authorizer.Authorize(ctx, header)
			if err != nil {
				if errors.Is(err, client.ErrUnauthorized) {
					if logger, ok := logging.GetFromContext(ctx); ok {
						logger.Info(ctx, "session rejected", zap.String("path", r.URL.Path))
					}
					w.WriteHeader(http.StatusUnauthorized)
					return
				}
				if logger, ok := logging.GetFromContext(ctx); ok {
					logger.Error(ctx, "error while checking session",
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
						zap.Error(err),
					)
				}
				w.WriteHeader(http.StatusInternalServerError)
				return
			}

			r = r.WithContext(ctxdata.WithGraderID(ctx, userID))
			next.ServeHTTP(w, r)
		})
	}
}
