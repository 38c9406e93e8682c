package config

import "github.com/urfave/cli/v3"

// Webhook holds GitHub webhook configuration
type Webhook struct {
	GitHubSecret string `masq:"secret"`
}

// Flags returns CLI flags for webhook configuration
func (c *Webhook) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "github-webhook-secret",
			Usage:       "GitHub webhook secret. The /hooks/github endpoint is disabled when empty",
			Destination: &c.GitHubSecret,
			Sources:     cli.EnvVars("RELNOTIFY_GITHUB_WEBHOOK_SECRET"),
		},
	}
}

// Enabled returns true if GitHub webhooks are accepted
func (c *Webhook) Enabled() bool {
	return c.GitHubSecret != ""
}
