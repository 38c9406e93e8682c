package config

import (
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/relnotify/pkg/domain/interfaces"
	"github.com/m-mizutani/relnotify/pkg/infra/slack"
)

// Slack holds delivery summary reporting configuration
type Slack struct {
	WebhookURL string `masq:"secret"`
	Channel    string
}

// Flags returns CLI flags for Slack configuration
func (c *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-webhook-url",
			Usage:       "Slack incoming webhook URL receiving delivery summaries",
			Destination: &c.WebhookURL,
			Sources:     cli.EnvVars("RELNOTIFY_SLACK_WEBHOOK_URL"),
		},
		&cli.StringFlag{
			Name:        "slack-channel",
			Usage:       "Channel override of the incoming webhook",
			Destination: &c.Channel,
			Sources:     cli.EnvVars("RELNOTIFY_SLACK_CHANNEL"),
		},
	}
}

// NewSummaryNotifier returns nil when no webhook URL is configured
func (c *Slack) NewSummaryNotifier() interfaces.SummaryNotifier {
	if c.WebhookURL == "" {
		return nil
	}

	var opts []slack.Option
	if c.Channel != "" {
		opts = append(opts, slack.WithChannel(c.Channel))
	}
	return slack.New(c.WebhookURL, opts...)
}
