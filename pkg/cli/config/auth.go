package config

import (
	"github.com/urfave/cli/v3"

	controller "github.com/m-mizutani/relnotify/pkg/controller/http"
)

// Auth holds activity API authentication configuration
type Auth struct {
	ActivitySecret string `masq:"secret"`
	JWTKey         string `masq:"secret"`
}

// Flags returns CLI flags for activity API authentication
func (c *Auth) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "activity-secret",
			Usage:       "HMAC-SHA256 secret for the X-Relnotify-Signature-256 header",
			Destination: &c.ActivitySecret,
			Sources:     cli.EnvVars("RELNOTIFY_ACTIVITY_SECRET"),
		},
		&cli.StringFlag{
			Name:        "jwt-key",
			Usage:       "HS256 key for Bearer tokens on the activity API",
			Destination: &c.JWTKey,
			Sources:     cli.EnvVars("RELNOTIFY_JWT_KEY"),
		},
	}
}

// ServerOptions returns HTTP server options for the configured methods
func (c *Auth) ServerOptions() []controller.Option {
	var opts []controller.Option
	if c.ActivitySecret != "" {
		opts = append(opts, controller.WithActivitySecret(c.ActivitySecret))
	}
	if c.JWTKey != "" {
		opts = append(opts, controller.WithJWTKey([]byte(c.JWTKey)))
	}
	return opts
}
