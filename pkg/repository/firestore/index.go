package firestore

import (
	"context"

	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
)

func ascending(paths ...string) fireconf.Index {
	fields := make([]fireconf.IndexField, 0, len(paths))
	for _, p := range paths {
		fields = append(fields, fireconf.IndexField{Path: p, Order: fireconf.OrderAscending})
	}
	return fireconf.Index{Fields: fields}
}

// IndexConfig returns the composite indexes required by the queries of Client
func IndexConfig() *fireconf.Config {
	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				// GetReleaseByVersion
				Name:    collReleases,
				Indexes: []fireconf.Index{ascending("organization_id", "version")},
			},
			{
				// ListReleaseCommits orders by position
				Name:    collReleaseCommits,
				Indexes: []fireconf.Index{ascending("release_id", "order")},
			},
			{
				// ListVerifiedUserEmails
				Name:    collUserEmails,
				Indexes: []fireconf.Index{ascending("email_normalized", "is_verified")},
			},
		},
	}
}

// MigrateIndexes creates missing indexes of IndexConfig in the database
func MigrateIndexes(ctx context.Context, projectID, databaseID string, opts ...fireconf.Option) error {
	client, err := fireconf.New(ctx, projectID, databaseID, IndexConfig(), opts...)
	if err != nil {
		return goerr.Wrap(err, "failed to create fireconf client",
			goerr.V("project_id", projectID),
			goerr.V("database_id", databaseID),
		)
	}
	defer client.Close()

	if err := client.Migrate(ctx); err != nil {
		return goerr.Wrap(err, "failed to migrate firestore indexes",
			goerr.V("project_id", projectID),
			goerr.V("database_id", databaseID),
		)
	}
	return nil
}
