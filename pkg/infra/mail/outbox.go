package mail

import (
	"context"
	"sync"

	"github.com/m-mizutani/relnotify/pkg/domain/interfaces"
	"github.com/m-mizutani/relnotify/pkg/domain/model"
)

// Outbox records messages in memory instead of delivering them. It serves as
// both queue and sender, for tests and dry runs.
type Outbox struct {
	mu       sync.Mutex
	messages []*model.EmailMessage
}

var (
	_ interfaces.MailQueue  = (*Outbox)(nil)
	_ interfaces.MailSender = (*Outbox)(nil)
)

// NewOutbox creates an empty Outbox
func NewOutbox() *Outbox {
	return &Outbox{}
}

// Enqueue records msg
func (x *Outbox) Enqueue(ctx context.Context, msg *model.EmailMessage) error {
	return x.Send(ctx, msg)
}

// Send records msg
func (x *Outbox) Send(ctx context.Context, msg *model.EmailMessage) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.messages = append(x.messages, msg)
	return nil
}

// Messages returns recorded messages in arrival order
func (x *Outbox) Messages() []*model.EmailMessage {
	x.mu.Lock()
	defer x.mu.Unlock()
	resp := make([]*model.EmailMessage, len(x.messages))
	copy(resp, x.messages)
	return resp
}

// Reset drops recorded messages
func (x *Outbox) Reset() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.messages = nil
}
