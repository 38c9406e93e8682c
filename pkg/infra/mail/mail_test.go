package mail_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/relnotify/pkg/domain/model"
	mailinfra "github.com/m-mizutani/relnotify/pkg/infra/mail"
)

type mockSender struct {
	SendFunc func(ctx context.Context, msg *model.EmailMessage) error
}

func (m *mockSender) Send(ctx context.Context, msg *model.EmailMessage) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, msg)
	}
	return nil
}

func TestOutbox(t *testing.T) {
	ctx := context.Background()
	outbox := mailinfra.NewOutbox()

	gt.NoError(t, outbox.Enqueue(ctx, &model.EmailMessage{ID: "1"}))
	gt.NoError(t, outbox.Send(ctx, &model.EmailMessage{ID: "2"}))

	msgs := outbox.Messages()
	gt.A(t, msgs).Length(2)
	gt.V(t, msgs[0].ID).Equal("1")
	gt.V(t, msgs[1].ID).Equal("2")

	outbox.Reset()
	gt.A(t, outbox.Messages()).Length(0)
}

func TestAsyncQueue(t *testing.T) {
	t.Run("delivers in background", func(t *testing.T) {
		var count atomic.Int32
		sender := &mockSender{
			SendFunc: func(ctx context.Context, msg *model.EmailMessage) error {
				time.Sleep(10 * time.Millisecond)
				count.Add(1)
				return nil
			},
		}
		queue := mailinfra.NewAsyncQueue(sender)

		ctx := context.Background()
		for i := 0; i < 3; i++ {
			gt.NoError(t, queue.Enqueue(ctx, &model.EmailMessage{ID: "msg"}))
		}

		gt.NoError(t, queue.Wait(ctx))
		gt.V(t, count.Load()).Equal(int32(3))
	})

	t.Run("send failure is not returned", func(t *testing.T) {
		sender := &mockSender{
			SendFunc: func(ctx context.Context, msg *model.EmailMessage) error {
				return errors.New("smtp down")
			},
		}
		queue := mailinfra.NewAsyncQueue(sender)

		ctx := context.Background()
		gt.NoError(t, queue.Enqueue(ctx, &model.EmailMessage{ID: "msg"}))
		gt.NoError(t, queue.Wait(ctx))
	})

	t.Run("wait honors context", func(t *testing.T) {
		release := make(chan struct{})
		sender := &mockSender{
			SendFunc: func(ctx context.Context, msg *model.EmailMessage) error {
				<-release
				return nil
			},
		}
		queue := mailinfra.NewAsyncQueue(sender)
		defer close(release)

		gt.NoError(t, queue.Enqueue(context.Background(), &model.EmailMessage{ID: "msg"}))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		gt.Error(t, queue.Wait(ctx))
	})
}

func TestMulti(t *testing.T) {
	ctx := context.Background()

	t.Run("sends through every sender", func(t *testing.T) {
		a := mailinfra.NewOutbox()
		b := mailinfra.NewOutbox()

		gt.NoError(t, mailinfra.Multi{a, b}.Send(ctx, &model.EmailMessage{ID: "1"}))
		gt.A(t, a.Messages()).Length(1)
		gt.A(t, b.Messages()).Length(1)
	})

	t.Run("stops at first failure", func(t *testing.T) {
		failing := &mockSender{
			SendFunc: func(ctx context.Context, msg *model.EmailMessage) error {
				return errors.New("failed")
			},
		}
		after := mailinfra.NewOutbox()

		gt.Error(t, mailinfra.Multi{failing, after}.Send(ctx, &model.EmailMessage{ID: "1"}))
		gt.A(t, after.Messages()).Length(0)
	})
}
