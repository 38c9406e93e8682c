package slack

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"

	"github.com/m-mizutani/relnotify/pkg/domain/interfaces"
	"github.com/m-mizutani/relnotify/pkg/domain/model"
)

// Notifier posts delivery summaries to a Slack incoming webhook
type Notifier struct {
	webhookURL string
	channel    string
}

var _ interfaces.SummaryNotifier = (*Notifier)(nil)

// Option configures Notifier
type Option func(*Notifier)

// WithChannel overrides the channel of the incoming webhook
func WithChannel(channel string) Option {
	return func(n *Notifier) {
		n.channel = channel
	}
}

// New creates a Notifier
func New(webhookURL string, opts ...Option) *Notifier {
	n := &Notifier{webhookURL: webhookURL}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// NotifySummary implements interfaces.SummaryNotifier. Skipped runs are not
// posted.
func (x *Notifier) NotifySummary(ctx context.Context, summary *model.DeliverySummary) error {
	if summary == nil || summary.Skipped {
		return nil
	}

	msg := &slack.WebhookMessage{
		Channel:     x.channel,
		Text:        summaryText(summary),
		Attachments: []slack.Attachment{summaryAttachment(summary)},
	}

	if err := slack.PostWebhookContext(ctx, x.webhookURL, msg); err != nil {
		return goerr.Wrap(err, "failed to post summary to slack",
			goerr.V("organization_id", summary.OrganizationID),
			goerr.V("version", summary.Version),
		)
	}
	return nil
}

func summaryText(summary *model.DeliverySummary) string {
	version := summary.ShortVersion
	if version == "" {
		version = summary.Version
	}
	if summary.Environment != "" {
		return fmt.Sprintf("Release %s deployed to %s", version, summary.Environment)
	}
	return fmt.Sprintf("Release %s published", version)
}

func summaryAttachment(summary *model.DeliverySummary) slack.Attachment {
	recipients := "(none)"
	if len(summary.Recipients) > 0 {
		recipients = strings.Join(summary.Recipients, "\n")
	}

	return slack.Attachment{
		Color: "good",
		Fields: []slack.AttachmentField{
			{Title: "Organization", Value: summary.OrganizationID, Short: true},
			{Title: "Notified", Value: fmt.Sprintf("%d", len(summary.Recipients)), Short: true},
			{Title: "Recipients", Value: recipients},
		},
	}
}
