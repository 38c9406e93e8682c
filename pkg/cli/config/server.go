package config

import (
	"time"

	"github.com/urfave/cli/v3"
)

// Server holds HTTP listener settings
type Server struct {
	Addr string
	// ShutdownTimeout bounds both HTTP shutdown and draining queued emails
	ShutdownTimeout time.Duration
}

// Flags returns CLI flags for the HTTP listener
func (c *Server) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Listen address",
			Value:       "localhost:8080",
			Destination: &c.Addr,
			Sources:     cli.EnvVars("RELNOTIFY_ADDR"),
		},
		&cli.DurationFlag{
			Name:        "shutdown-timeout",
			Usage:       "Time allowed for in-flight requests and email deliveries on shutdown",
			Value:       30 * time.Second,
			Destination: &c.ShutdownTimeout,
			Sources:     cli.EnvVars("RELNOTIFY_SHUTDOWN_TIMEOUT"),
		},
	}
}
