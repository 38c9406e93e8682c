package config

import (
	"context"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"

	"github.com/m-mizutani/relnotify/pkg/domain/interfaces"
	"github.com/m-mizutani/relnotify/pkg/domain/types"
	"github.com/m-mizutani/relnotify/pkg/infra/mail"
	"github.com/m-mizutani/relnotify/pkg/infra/storage"
)

// Mail holds delivery configuration
type Mail struct {
	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string `masq:"secret"`
	ArchiveBucket string
	ArchivePrefix string
	DryRun        bool
}

// Flags returns CLI flags for delivery configuration
func (c *Mail) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "smtp-host",
			Usage:       "SMTP relay host",
			Destination: &c.SMTPHost,
			Sources:     cli.EnvVars("RELNOTIFY_SMTP_HOST"),
		},
		&cli.IntFlag{
			Name:        "smtp-port",
			Usage:       "SMTP relay port",
			Value:       587,
			Destination: &c.SMTPPort,
			Sources:     cli.EnvVars("RELNOTIFY_SMTP_PORT"),
		},
		&cli.StringFlag{
			Name:        "smtp-username",
			Usage:       "SMTP username. PLAIN auth is used when set",
			Destination: &c.SMTPUsername,
			Sources:     cli.EnvVars("RELNOTIFY_SMTP_USERNAME"),
		},
		&cli.StringFlag{
			Name:        "smtp-password",
			Usage:       "SMTP password",
			Destination: &c.SMTPPassword,
			Sources:     cli.EnvVars("RELNOTIFY_SMTP_PASSWORD"),
		},
		&cli.StringFlag{
			Name:        "archive-bucket",
			Usage:       "Cloud Storage bucket receiving a copy of every email",
			Destination: &c.ArchiveBucket,
			Sources:     cli.EnvVars("RELNOTIFY_ARCHIVE_BUCKET"),
		},
		&cli.StringFlag{
			Name:        "archive-prefix",
			Usage:       "Object prefix in the archive bucket",
			Value:       "emails",
			Destination: &c.ArchivePrefix,
			Sources:     cli.EnvVars("RELNOTIFY_ARCHIVE_PREFIX"),
		},
		&cli.BoolFlag{
			Name:        "dry-run",
			Usage:       "Record emails in memory instead of delivering them",
			Destination: &c.DryRun,
			Sources:     cli.EnvVars("RELNOTIFY_DRY_RUN"),
		},
	}
}

// NewSender creates the configured sender. SMTP and archive are combined when
// both are set. Dry run returns an Outbox. The returned function releases
// clients.
func (c *Mail) NewSender(ctx context.Context, opts ...option.ClientOption) (interfaces.MailSender, func(), error) {
	if c.DryRun {
		return mail.NewOutbox(), func() {}, nil
	}

	var senders mail.Multi
	closer := func() {}

	if c.SMTPHost != "" {
		smtp, err := mail.NewSMTP(c.SMTPHost, c.SMTPPort, c.SMTPUsername, c.SMTPPassword)
		if err != nil {
			return nil, nil, err
		}
		senders = append(senders, smtp)
	}

	if c.ArchiveBucket != "" {
		archiver, err := storage.New(ctx, c.ArchiveBucket, c.ArchivePrefix, opts...)
		if err != nil {
			return nil, nil, err
		}
		senders = append(senders, archiver)
		closer = func() {
			if err := archiver.Close(); err != nil {
				ctxlog.From(ctx).Warn("Failed to close storage client", "error", err)
			}
		}
	}

	switch len(senders) {
	case 0:
		return nil, nil, goerr.New("no mail backend configured, set --smtp-host, --archive-bucket or --dry-run",
			goerr.T(types.ErrTagInvalidArgument))
	case 1:
		return senders[0], closer, nil
	default:
		return senders, closer, nil
	}
}
