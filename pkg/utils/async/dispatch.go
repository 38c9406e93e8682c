package async

import (
	"context"
	"runtime/debug"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/relnotify/pkg/utils/errs"
)

// Dispatch runs handler in a new goroutine. The handler context keeps the
// caller's logger, tagged with task, but is not cancelled with ctx. A returned
// error or a recovered panic is passed to errs.Handle.
func Dispatch(ctx context.Context, task string, handler func(ctx context.Context) error) {
	logger := ctxlog.From(ctx).With("task", task)
	newCtx := ctxlog.With(context.Background(), logger)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				errs.Handle(newCtx, goerr.New("panic in async task",
					goerr.V("task", task),
					goerr.V("recover", r),
					goerr.V("stack", string(debug.Stack())),
				))
			}
		}()

		if err := handler(newCtx); err != nil {
			errs.Handle(newCtx, goerr.Wrap(err, "async task failed", goerr.V("task", task)))
		}
	}()
}
