package cli

import (
	"context"

	"github.com/m-mizutani/ctxlog"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/relnotify/pkg/cli/config"
)

func cmdImport() *cli.Command {
	var (
		file     string
		storeCfg config.Store
	)

	flags := append([]cli.Flag{
		&cli.StringFlag{
			Name:        "file",
			Aliases:     []string{"f"},
			Usage:       "TOML dataset to import",
			Required:    true,
			Destination: &file,
			Sources:     cli.EnvVars("RELNOTIFY_IMPORT_FILE"),
		},
	}, storeCfg.Flags()...)

	return &cli.Command{
		Name:  "import",
		Usage: "Load a TOML dataset into the store",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ds, err := config.LoadDataset(file)
			if err != nil {
				return err
			}

			repo, closeRepo, err := storeCfg.New(ctx)
			if err != nil {
				return err
			}
			defer closeRepo()

			if err := repo.Import(ctx, ds); err != nil {
				return err
			}

			ctxlog.From(ctx).Info("Dataset imported",
				"file", file,
				"store", storeCfg.Backend,
				"organizations", len(ds.Organizations),
				"projects", len(ds.Projects),
				"users", len(ds.Users),
				"releases", len(ds.Releases),
				"commits", len(ds.Commits),
			)
			return nil
		},
	}
}
