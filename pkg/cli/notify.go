package cli

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/relnotify/pkg/cli/config"
	"github.com/m-mizutani/relnotify/pkg/domain/model"
	"github.com/m-mizutani/relnotify/pkg/domain/types"
	"github.com/m-mizutani/relnotify/pkg/infra/mail"
	"github.com/m-mizutani/relnotify/pkg/usecase"
)

// release identifies the release an activity is about
type release struct {
	ProjectID string
	Version   string
	DeployID  string
}

func (x *release) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "project",
			Usage:       "Project ID of the activity",
			Required:    true,
			Destination: &x.ProjectID,
			Sources:     cli.EnvVars("RELNOTIFY_PROJECT"),
		},
		&cli.StringFlag{
			Name:        "release-version",
			Aliases:     []string{"r"},
			Usage:       "Release version",
			Required:    true,
			Destination: &x.Version,
			Sources:     cli.EnvVars("RELNOTIFY_RELEASE_VERSION"),
		},
		&cli.StringFlag{
			Name:        "deploy",
			Usage:       "Deploy ID. The email reads as a plain release when empty",
			Destination: &x.DeployID,
			Sources:     cli.EnvVars("RELNOTIFY_DEPLOY"),
		},
	}
}

func (x *release) Activity() *model.Activity {
	activity := &model.Activity{
		ID:        types.ActivityID(uuid.NewString()),
		ProjectID: types.ProjectID(x.ProjectID),
		Type:      model.ActivityTypeRelease,
		Data: map[string]any{
			"version": x.Version,
		},
		DateAdded: time.Now(),
	}
	if x.DeployID != "" {
		activity.Data["deploy_id"] = x.DeployID
	}
	return activity
}

func cmdNotify() *cli.Command {
	var (
		target          release
		storeCfg        config.Store
		mailCfg         config.Mail
		notificationCfg config.Notification
		slackCfg        config.Slack
	)

	var flags []cli.Flag
	flags = append(flags, target.Flags()...)
	flags = append(flags, storeCfg.Flags()...)
	flags = append(flags, mailCfg.Flags()...)
	flags = append(flags, notificationCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)

	return &cli.Command{
		Name:  "notify",
		Usage: "Send release emails for one release or deploy and print the summary",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			repo, closeRepo, err := storeCfg.New(ctx)
			if err != nil {
				return err
			}
			defer closeRepo()

			sender, closeSender, err := mailCfg.NewSender(ctx, storeCfg.ClientOptions()...)
			if err != nil {
				return err
			}
			defer closeSender()

			queue := mail.NewAsyncQueue(sender)
			notifier, err := notificationCfg.NewReleaseNotifier(repo, queue)
			if err != nil {
				return err
			}

			var opts []usecase.ActivityOption
			if summary := slackCfg.NewSummaryNotifier(); summary != nil {
				opts = append(opts, usecase.WithSummaryNotifier(summary))
			}

			summary, err := usecase.NewActivity(notifier, opts...).HandleActivity(ctx, target.Activity())
			if err != nil {
				return err
			}

			waitCtx, cancel := context.WithTimeout(ctx, time.Minute)
			defer cancel()
			if err := queue.Wait(waitCtx); err != nil {
				return err
			}

			enc := json.NewEncoder(c.Root().Writer)
			enc.SetIndent("", "  ")
			if err := enc.Encode(summary); err != nil {
				return goerr.Wrap(err, "failed to write summary")
			}
			return nil
		},
	}
}
