package errs

import (
	"context"
	"log/slog"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// Handle logs err with its goerr values and reports it to Sentry. Reporting is
// a no-op unless sentry.Init has been called with a DSN.
func Handle(ctx context.Context, err error) {
	if err == nil {
		return
	}

	var values map[string]any
	if ge := goerr.Unwrap(err); ge != nil {
		values = ge.Values()
	}

	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		for k, v := range values {
			scope.SetExtra(k, v)
		}
	})
	evID := hub.CaptureException(err)

	attrs := []any{slog.Any("error", err)}
	for k, v := range values {
		attrs = append(attrs, slog.Any(k, v))
	}
	if evID != nil {
		attrs = append(attrs, slog.String("sentry_event_id", string(*evID)))
	}

	ctxlog.From(ctx).Error("error occurred", attrs...)
}
