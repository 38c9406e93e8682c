package interfaces

import (
	"context"

	"github.com/m-mizutani/relnotify/pkg/domain/model"
)

// MailSender delivers a rendered message synchronously
type MailSender interface {
	Send(ctx context.Context, msg *model.EmailMessage) error
}

// MailQueue accepts a message for eventual delivery. Enqueue must not block
// on delivery.
type MailQueue interface {
	Enqueue(ctx context.Context, msg *model.EmailMessage) error
}

// SummaryNotifier reports the result of a notification run to a side channel
type SummaryNotifier interface {
	NotifySummary(ctx context.Context, summary *model.DeliverySummary) error
}
