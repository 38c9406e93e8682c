package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/relnotify/pkg/domain/types"
	"github.com/m-mizutani/relnotify/pkg/utils/errs"
)

// LoggingMiddleware returns a middleware that logs HTTP requests. The request
// context carries the logger of ctx tagged with the request ID.
func LoggingMiddleware(ctx context.Context) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			logger := ctxlog.From(ctx).With("request_id", middleware.GetReqID(r.Context()))
			r = r.WithContext(ctxlog.With(r.Context(), logger))

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				logger.Info("HTTP request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"duration_ms", time.Since(start).Milliseconds(),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// writeJSON writes a JSON response
func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		ctxlog.From(ctx).Error("Failed to encode response", "error", err)
	}
}

// writeError writes an error response
func writeError(w http.ResponseWriter, err error, status int) {
	writeJSON(context.Background(), w, status, map[string]string{
		"error": err.Error(),
	})
}

// handleError maps err to a status code by its tag. Unexpected errors are
// reported and their message is not exposed.
func handleError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case goerr.HasTag(err, types.ErrTagInvalidArgument):
		writeError(w, err, http.StatusBadRequest)
	case goerr.HasTag(err, types.ErrTagUnauthorized):
		writeError(w, err, http.StatusUnauthorized)
	case goerr.HasTag(err, types.ErrTagNotFound):
		writeError(w, err, http.StatusNotFound)
	default:
		errs.Handle(ctx, err)
		writeError(w, goerr.New("internal server error"), http.StatusInternalServerError)
	}
}
