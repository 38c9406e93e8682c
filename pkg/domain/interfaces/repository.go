package interfaces

import (
	"context"

	"github.com/m-mizutani/relnotify/pkg/domain/model"
	"github.com/m-mizutani/relnotify/pkg/domain/types"
)

// Repository is the query interface the notification composer needs from the
// persistence layer. Single-entity lookups return (nil, nil) when the entity
// does not exist; list lookups skip missing IDs.
type Repository interface {
	GetOrganization(ctx context.Context, id types.OrganizationID) (*model.Organization, error)
	GetProject(ctx context.Context, id types.ProjectID) (*model.Project, error)
	// FindProjectByGitHubRepository looks up a project by "owner/name"
	FindProjectByGitHubRepository(ctx context.Context, fullName string) (*model.Project, error)
	// ListProjects returns projects in the order of ids
	ListProjects(ctx context.Context, ids []types.ProjectID) ([]*model.Project, error)

	GetReleaseByVersion(ctx context.Context, orgID types.OrganizationID, version string) (*model.Release, error)
	// ListReleaseCommits returns commits of the release ordered by ReleaseCommit.Order
	ListReleaseCommits(ctx context.Context, releaseID types.ReleaseID) ([]*model.Commit, error)
	ListCommitAuthors(ctx context.Context, ids []types.CommitAuthorID) ([]*model.CommitAuthor, error)
	ListRepositories(ctx context.Context, ids []types.RepositoryID) ([]*model.Repository, error)

	GetDeploy(ctx context.Context, id types.DeployID) (*model.Deploy, error)
	GetEnvironment(ctx context.Context, id types.EnvironmentID) (*model.Environment, error)

	// ListVerifiedUserEmails returns verified addresses matching emails
	// (case-insensitive)
	ListVerifiedUserEmails(ctx context.Context, emails []string) ([]*model.UserEmail, error)
	ListUsers(ctx context.Context, ids []types.UserID) ([]*model.User, error)
	ListMembers(ctx context.Context, orgID types.OrganizationID) ([]*model.Member, error)

	// Import stores every entity of the dataset, overwriting existing ones
	Import(ctx context.Context, ds *model.Dataset) error
}
