package mail

import (
	"context"
	"sync"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/relnotify/pkg/domain/interfaces"
	"github.com/m-mizutani/relnotify/pkg/domain/model"
	"github.com/m-mizutani/relnotify/pkg/utils/async"
)

// AsyncQueue hands each message to the sender in the background. Failures
// are logged, not returned.
type AsyncQueue struct {
	sender interfaces.MailSender
	wg     sync.WaitGroup
}

var _ interfaces.MailQueue = (*AsyncQueue)(nil)

// NewAsyncQueue creates an AsyncQueue delivering through sender
func NewAsyncQueue(sender interfaces.MailSender) *AsyncQueue {
	return &AsyncQueue{sender: sender}
}

// Enqueue starts delivery of msg and returns immediately
func (x *AsyncQueue) Enqueue(ctx context.Context, msg *model.EmailMessage) error {
	x.wg.Add(1)
	async.Dispatch(ctx, "deliver_email", func(ctx context.Context) error {
		defer x.wg.Done()

		if err := x.sender.Send(ctx, msg); err != nil {
			return goerr.Wrap(err, "failed to deliver email",
				goerr.V("message_id", msg.ID),
				goerr.V("subject", msg.Subject),
			)
		}

		ctxlog.From(ctx).Info("Email delivered",
			"message_id", msg.ID,
			"recipients", len(msg.To),
		)
		return nil
	})
	return nil
}

// Wait blocks until in-flight deliveries finish or ctx is done
func (x *AsyncQueue) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		x.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return goerr.Wrap(ctx.Err(), "pending email deliveries were not drained")
	}
}
