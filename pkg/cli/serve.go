package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/relnotify/pkg/cli/config"
	githubcontroller "github.com/m-mizutani/relnotify/pkg/controller/github"
	controller "github.com/m-mizutani/relnotify/pkg/controller/http"
	"github.com/m-mizutani/relnotify/pkg/domain/interfaces"
	"github.com/m-mizutani/relnotify/pkg/infra/mail"
	"github.com/m-mizutani/relnotify/pkg/usecase"
)

func cmdServe() *cli.Command {
	var (
		serverCfg       config.Server
		authCfg         config.Auth
		webhookCfg      config.Webhook
		storeCfg        config.Store
		mailCfg         config.Mail
		notificationCfg config.Notification
		slackCfg        config.Slack
	)

	var flags []cli.Flag
	flags = append(flags, serverCfg.Flags()...)
	flags = append(flags, authCfg.Flags()...)
	flags = append(flags, webhookCfg.Flags()...)
	flags = append(flags, storeCfg.Flags()...)
	flags = append(flags, mailCfg.Flags()...)
	flags = append(flags, notificationCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			logger.Info("Starting relnotify server",
				slog.String("addr", serverCfg.Addr),
				slog.Any("auth", authCfg),
				slog.Any("store", storeCfg),
				slog.Any("mail", mailCfg),
				slog.Any("notification", notificationCfg),
			)

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

			var activityOpts []usecase.ActivityOption
			if summary := slackCfg.NewSummaryNotifier(); summary != nil {
				activityOpts = append(activityOpts, usecase.WithSummaryNotifier(summary))
			}
			activityUC := usecase.NewActivity(notifier, activityOpts...)

			var webhookUC interfaces.WebhookUseCase
			if webhookCfg.Enabled() {
				webhookUC = githubcontroller.NewEventProcessor(repo, activityUC)
			}

			opts := append([]controller.Option{
				controller.WithAddr(serverCfg.Addr),
				controller.WithWebhookSecret(webhookCfg.GitHubSecret),
			}, authCfg.ServerOptions()...)

			server, err := controller.NewServer(ctx, activityUC, notifier, webhookUC, opts...)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			// Start server in goroutine
			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("HTTP server error", slog.Any("error", err))
				}
			}()

			// Wait for interrupt signal
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			}

			// Graceful shutdown
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), serverCfg.ShutdownTimeout)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}
			if err := queue.Wait(shutdownCtx); err != nil {
				return err
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}
