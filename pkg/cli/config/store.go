package config

import (
	"context"
	"os"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"

	"github.com/m-mizutani/relnotify/pkg/domain/interfaces"
	"github.com/m-mizutani/relnotify/pkg/domain/model"
	"github.com/m-mizutani/relnotify/pkg/domain/types"
	"github.com/m-mizutani/relnotify/pkg/repository/firestore"
	"github.com/m-mizutani/relnotify/pkg/repository/memory"
)

// Store backends
const (
	StoreMemory    = "memory"
	StoreFirestore = "firestore"
)

// Store holds persistence configuration
type Store struct {
	Backend             string
	Dataset             string
	FirestoreProjectID  string
	FirestoreDatabaseID string
	CredentialsFile     string
}

// Flags returns CLI flags for persistence configuration
func (c *Store) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "store",
			Usage:       "Store backend (memory, firestore)",
			Value:       StoreMemory,
			Destination: &c.Backend,
			Sources:     cli.EnvVars("RELNOTIFY_STORE"),
		},
		&cli.StringFlag{
			Name:        "dataset",
			Usage:       "TOML dataset loaded into the memory store at startup",
			Destination: &c.Dataset,
			Sources:     cli.EnvVars("RELNOTIFY_DATASET"),
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Google Cloud project ID of Firestore",
			Destination: &c.FirestoreProjectID,
			Sources:     cli.EnvVars("RELNOTIFY_FIRESTORE_PROJECT_ID"),
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Destination: &c.FirestoreDatabaseID,
			Sources:     cli.EnvVars("RELNOTIFY_FIRESTORE_DATABASE_ID"),
		},
		&cli.StringFlag{
			Name:        "google-credentials",
			Usage:       "Path of a Google Cloud credentials JSON file. Application default credentials when empty",
			Destination: &c.CredentialsFile,
			Sources:     cli.EnvVars("RELNOTIFY_GOOGLE_CREDENTIALS"),
		},
	}
}

// ClientOptions returns Google Cloud client options
func (c *Store) ClientOptions() []option.ClientOption {
	if c.CredentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(c.CredentialsFile)}
}

// New creates the configured repository. The returned function releases it.
func (c *Store) New(ctx context.Context) (interfaces.Repository, func(), error) {
	switch c.Backend {
	case StoreMemory, "":
		repo := memory.New()
		if c.Dataset != "" {
			ds, err := LoadDataset(c.Dataset)
			if err != nil {
				return nil, nil, err
			}
			if err := repo.Import(ctx, ds); err != nil {
				return nil, nil, err
			}
			ctxlog.From(ctx).Info("Dataset loaded", "path", c.Dataset)
		}
		return repo, func() {}, nil

	case StoreFirestore:
		if c.FirestoreProjectID == "" {
			return nil, nil, goerr.New("firestore-project-id is required", goerr.T(types.ErrTagInvalidArgument))
		}
		client, err := firestore.New(ctx, c.FirestoreProjectID, c.FirestoreDatabaseID, c.ClientOptions()...)
		if err != nil {
			return nil, nil, err
		}
		closer := func() {
			if err := client.Close(); err != nil {
				ctxlog.From(ctx).Warn("Failed to close firestore client", "error", err)
			}
		}
		return client, closer, nil

	default:
		return nil, nil, goerr.New("unknown store backend",
			goerr.V("store", c.Backend),
			goerr.T(types.ErrTagInvalidArgument),
		)
	}
}

// MigrateIndexes creates the Firestore indexes the firestore backend queries
// need. It is an error for other backends.
func (c *Store) MigrateIndexes(ctx context.Context) error {
	if c.Backend != StoreFirestore {
		return goerr.New("index migration requires the firestore store",
			goerr.V("store", c.Backend),
			goerr.T(types.ErrTagInvalidArgument),
		)
	}
	if c.FirestoreProjectID == "" {
		return goerr.New("firestore-project-id is required", goerr.T(types.ErrTagInvalidArgument))
	}

	opts := []fireconf.Option{fireconf.WithLogger(ctxlog.From(ctx))}
	if c.CredentialsFile != "" {
		opts = append(opts, fireconf.WithCredentialsFile(c.CredentialsFile))
	}
	return firestore.MigrateIndexes(ctx, c.FirestoreProjectID, c.FirestoreDatabaseID, opts...)
}

// LoadDataset reads a TOML dataset file
func LoadDataset(path string) (*model.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read dataset", goerr.V("path", path))
	}

	ds, err := model.ParseDataset(data)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse dataset", goerr.V("path", path))
	}
	return ds, nil
}
