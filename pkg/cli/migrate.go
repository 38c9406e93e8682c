package cli

import (
	"context"

	"github.com/m-mizutani/ctxlog"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/relnotify/pkg/cli/config"
)

func cmdMigrate() *cli.Command {
	var storeCfg config.Store

	return &cli.Command{
		Name:  "migrate",
		Usage: "Create Firestore indexes required by the firestore store",
		Flags: storeCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := storeCfg.MigrateIndexes(ctx); err != nil {
				return err
			}

			ctxlog.From(ctx).Info("Firestore indexes migrated",
				"project_id", storeCfg.FirestoreProjectID,
				"database_id", storeCfg.FirestoreDatabaseID,
			)
			return nil
		},
	}
}
