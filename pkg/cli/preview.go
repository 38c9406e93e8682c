package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/relnotify/pkg/cli/config"
	"github.com/m-mizutani/relnotify/pkg/domain/model"
	"github.com/m-mizutani/relnotify/pkg/domain/types"
	"github.com/m-mizutani/relnotify/pkg/infra/mail"
)

func cmdPreview() *cli.Command {
	var (
		target          release
		userID          string
		html            bool
		storeCfg        config.Store
		notificationCfg config.Notification
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "user",
			Usage:       "User ID of the recipient",
			Required:    true,
			Destination: &userID,
			Sources:     cli.EnvVars("RELNOTIFY_PREVIEW_USER"),
		},
		&cli.BoolFlag{
			Name:        "html",
			Usage:       "Print the HTML body instead of the text body",
			Destination: &html,
		},
	}
	flags = append(flags, target.Flags()...)
	flags = append(flags, storeCfg.Flags()...)
	flags = append(flags, notificationCfg.Flags()...)

	return &cli.Command{
		Name:  "preview",
		Usage: "Print the release email a user would receive without sending it",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			repo, closeRepo, err := storeCfg.New(ctx)
			if err != nil {
				return err
			}
			defer closeRepo()

			notifier, err := notificationCfg.NewReleaseNotifier(repo, mail.NewOutbox())
			if err != nil {
				return err
			}

			msg, err := notifier.PreviewRelease(ctx, target.Activity(), types.UserID(userID))
			if err != nil {
				return err
			}
			if msg == nil {
				return goerr.New("user would not be notified of this release",
					goerr.V("user_id", userID),
					goerr.V("version", target.Version),
				)
			}

			return printMessage(c.Root().Writer, msg, html)
		},
	}
}

func printMessage(w io.Writer, msg *model.EmailMessage, html bool) error {
	key := color.New(color.FgCyan, color.Bold)

	headers := [][2]string{
		{"From", msg.From},
		{"To", strings.Join(msg.To, ", ")},
		{"Subject", msg.Subject},
	}
	var names []string
	for k := range msg.Headers {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		headers = append(headers, [2]string{k, msg.Headers[k]})
	}

	for _, h := range headers {
		if _, err := key.Fprintf(w, "%s: ", h[0]); err != nil {
			return goerr.Wrap(err, "failed to write preview")
		}
		if _, err := fmt.Fprintln(w, h[1]); err != nil {
			return goerr.Wrap(err, "failed to write preview")
		}
	}

	body := msg.TextBody
	if html {
		body = msg.HTMLBody
	}
	if _, err := fmt.Fprintf(w, "\n%s\n", body); err != nil {
		return goerr.Wrap(err, "failed to write preview")
	}
	return nil
}
