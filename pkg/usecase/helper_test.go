package usecase_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/relnotify/pkg/domain/interfaces"
	"github.com/m-mizutani/relnotify/pkg/domain/model"
	"github.com/m-mizutani/relnotify/pkg/domain/types"
	"github.com/m-mizutani/relnotify/pkg/repository/memory"
)

var testVersion = strings.Repeat("a", 40)

// newDataset builds an organization with two committers. foo belongs to the
// team of project1; bar is a member without any team.
func newDataset() *model.Dataset {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	return &model.Dataset{
		Organizations: []*model.Organization{
			{ID: "org1", Slug: "acme", Name: "Acme"},
		},
		Teams: []*model.Team{
			{ID: "team1", OrganizationID: "org1", Slug: "team1", Name: "Team 1"},
			{ID: "team2", OrganizationID: "org1", Slug: "team2", Name: "Team 2"},
		},
		Projects: []*model.Project{
			{ID: "project1", OrganizationID: "org1", Slug: "web", Name: "Web", TeamIDs: []types.TeamID{"team1"}, GitHubRepository: "acme/web"},
			{ID: "project2", OrganizationID: "org1", Slug: "api", Name: "API", TeamIDs: []types.TeamID{"team2"}},
		},
		Users: []*model.User{
			{ID: "user1", Name: "Foo", Email: "foo@example.com", IsActive: true},
			{ID: "user2", Name: "Bar", Email: "bar@example.com", IsActive: true},
		},
		UserEmails: []*model.UserEmail{
			{UserID: "user1", Email: "foo@example.com", IsVerified: true},
			{UserID: "user2", Email: "bar@example.com", IsVerified: true},
		},
		Members: []*model.Member{
			{OrganizationID: "org1", UserID: "user1", TeamIDs: []types.TeamID{"team1"}},
			{OrganizationID: "org1", UserID: "user2"},
		},
		Releases: []*model.Release{
			{ID: "release1", OrganizationID: "org1", Version: testVersion, ProjectIDs: []types.ProjectID{"project1", "project2"}, DateReleased: now},
		},
		Repositories: []*model.Repository{
			{ID: "repo1", OrganizationID: "org1", Name: "acme/web", URL: "https://github.com/acme/web"},
		},
		CommitAuthors: []*model.CommitAuthor{
			{ID: "author1", OrganizationID: "org1", Name: "foo", Email: "foo@example.com"},
			{ID: "author2", OrganizationID: "org1", Name: "bar", Email: "bar@example.com"},
		},
		Commits: []*model.Commit{
			{ID: "commit1", OrganizationID: "org1", RepositoryID: "repo1", Key: "1111111111111111111111111111111111111111", Message: "fix login\n\ndetails", AuthorID: "author1", DateAdded: now},
			{ID: "commit2", OrganizationID: "org1", RepositoryID: "repo1", Key: "2222222222222222222222222222222222222222", Message: "add api", AuthorID: "author2", DateAdded: now},
		},
		ReleaseCommits: []*model.ReleaseCommit{
			{ReleaseID: "release1", CommitID: "commit2", Order: 1},
			{ReleaseID: "release1", CommitID: "commit1", Order: 0},
		},
		Environments: []*model.Environment{
			{ID: "env1", OrganizationID: "org1", Name: "production"},
		},
		Deploys: []*model.Deploy{
			{ID: "deploy1", OrganizationID: "org1", ReleaseID: "release1", EnvironmentID: "env1", DateFinished: now},
		},
	}
}

func newRepository(t *testing.T, ds *model.Dataset) *memory.Memory {
	t.Helper()
	repo := memory.New()
	gt.NoError(t, repo.Import(context.Background(), ds))
	return repo
}

func newDeployActivity() *model.Activity {
	return &model.Activity{
		ID:        "activity1",
		ProjectID: "project1",
		Type:      model.ActivityTypeRelease,
		Data: map[string]any{
			"version":   testVersion,
			"deploy_id": "deploy1",
		},
	}
}

// mockRepository overrides selected lookups of an underlying repository
type mockRepository struct {
	interfaces.Repository
	ListReleaseCommitsFunc func(ctx context.Context, releaseID types.ReleaseID) ([]*model.Commit, error)
	ListMembersFunc        func(ctx context.Context, orgID types.OrganizationID) ([]*model.Member, error)
}

func (m *mockRepository) ListReleaseCommits(ctx context.Context, releaseID types.ReleaseID) ([]*model.Commit, error) {
	if m.ListReleaseCommitsFunc != nil {
		return m.ListReleaseCommitsFunc(ctx, releaseID)
	}
	return m.Repository.ListReleaseCommits(ctx, releaseID)
}

func (m *mockRepository) ListMembers(ctx context.Context, orgID types.OrganizationID) ([]*model.Member, error) {
	if m.ListMembersFunc != nil {
		return m.ListMembersFunc(ctx, orgID)
	}
	return m.Repository.ListMembers(ctx, orgID)
}

type mockQueue struct {
	EnqueueFunc func(ctx context.Context, msg *model.EmailMessage) error
}

func (m *mockQueue) Enqueue(ctx context.Context, msg *model.EmailMessage) error {
	return m.EnqueueFunc(ctx, msg)
}
