package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/m-mizutani/relnotify/pkg/domain/interfaces"
	"github.com/m-mizutani/relnotify/pkg/domain/model"
	"github.com/m-mizutani/relnotify/pkg/domain/types"
)

// Memory is an in-memory Repository. Returned entities are shallow copies.
type Memory struct {
	mu sync.RWMutex

	organizations map[types.OrganizationID]*model.Organization
	teams         map[types.TeamID]*model.Team
	projects      map[types.ProjectID]*model.Project
	users         map[types.UserID]*model.User
	releases      map[types.ReleaseID]*model.Release
	commits       map[types.CommitID]*model.Commit
	authors       map[types.CommitAuthorID]*model.CommitAuthor
	repositories  map[types.RepositoryID]*model.Repository
	deploys       map[types.DeployID]*model.Deploy
	environments  map[types.EnvironmentID]*model.Environment

	userEmails     map[string]*model.UserEmail
	members        map[string]*model.Member
	releaseCommits map[string]*model.ReleaseCommit
}

var _ interfaces.Repository = (*Memory)(nil)

// New creates an empty in-memory repository
func New() *Memory {
	return &Memory{
		organizations:  make(map[types.OrganizationID]*model.Organization),
		teams:          make(map[types.TeamID]*model.Team),
		projects:       make(map[types.ProjectID]*model.Project),
		users:          make(map[types.UserID]*model.User),
		releases:       make(map[types.ReleaseID]*model.Release),
		commits:        make(map[types.CommitID]*model.Commit),
		authors:        make(map[types.CommitAuthorID]*model.CommitAuthor),
		repositories:   make(map[types.RepositoryID]*model.Repository),
		deploys:        make(map[types.DeployID]*model.Deploy),
		environments:   make(map[types.EnvironmentID]*model.Environment),
		userEmails:     make(map[string]*model.UserEmail),
		members:        make(map[string]*model.Member),
		releaseCommits: make(map[string]*model.ReleaseCommit),
	}
}

func clone[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func get[K comparable, V any](mu *sync.RWMutex, m map[K]*V, id K) *V {
	mu.RLock()
	defer mu.RUnlock()
	return clone(m[id])
}

func list[K comparable, V any](mu *sync.RWMutex, m map[K]*V, ids []K) []*V {
	mu.RLock()
	defer mu.RUnlock()

	resp := make([]*V, 0, len(ids))
	for _, id := range ids {
		if v, ok := m[id]; ok {
			resp = append(resp, clone(v))
		}
	}
	return resp
}

func pairKey(a, b string) string {
	return a + "\x00" + b
}

func (x *Memory) GetOrganization(ctx context.Context, id types.OrganizationID) (*model.Organization, error) {
	return get(&x.mu, x.organizations, id), nil
}

func (x *Memory) GetProject(ctx context.Context, id types.ProjectID) (*model.Project, error) {
	return get(&x.mu, x.projects, id), nil
}

func (x *Memory) FindProjectByGitHubRepository(ctx context.Context, fullName string) (*model.Project, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	var found *model.Project
	for _, p := range x.projects {
		if p.GitHubRepository != fullName {
			continue
		}
		// deterministic pick when several projects share a repository
		if found == nil || p.ID < found.ID {
			found = p
		}
	}
	return clone(found), nil
}

func (x *Memory) ListProjects(ctx context.Context, ids []types.ProjectID) ([]*model.Project, error) {
	return list(&x.mu, x.projects, ids), nil
}

func (x *Memory) GetReleaseByVersion(ctx context.Context, orgID types.OrganizationID, version string) (*model.Release, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	for _, r := range x.releases {
		if r.OrganizationID == orgID && r.Version == version {
			return clone(r), nil
		}
	}
	return nil, nil
}

func (x *Memory) ListReleaseCommits(ctx context.Context, releaseID types.ReleaseID) ([]*model.Commit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	var links []*model.ReleaseCommit
	for _, rc := range x.releaseCommits {
		if rc.ReleaseID == releaseID {
			links = append(links, rc)
		}
	}
	sort.Slice(links, func(i, j int) bool {
		if links[i].Order != links[j].Order {
			return links[i].Order < links[j].Order
		}
		return links[i].CommitID < links[j].CommitID
	})

	commits := make([]*model.Commit, 0, len(links))
	for _, rc := range links {
		if c, ok := x.commits[rc.CommitID]; ok {
			commits = append(commits, clone(c))
		}
	}
	return commits, nil
}

func (x *Memory) ListCommitAuthors(ctx context.Context, ids []types.CommitAuthorID) ([]*model.CommitAuthor, error) {
	return list(&x.mu, x.authors, ids), nil
}

func (x *Memory) ListRepositories(ctx context.Context, ids []types.RepositoryID) ([]*model.Repository, error) {
	return list(&x.mu, x.repositories, ids), nil
}

func (x *Memory) GetDeploy(ctx context.Context, id types.DeployID) (*model.Deploy, error) {
	return get(&x.mu, x.deploys, id), nil
}

func (x *Memory) GetEnvironment(ctx context.Context, id types.EnvironmentID) (*model.Environment, error) {
	return get(&x.mu, x.environments, id), nil
}

func (x *Memory) ListVerifiedUserEmails(ctx context.Context, emails []string) ([]*model.UserEmail, error) {
	want := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		want[model.NormalizeEmail(e)] = struct{}{}
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	var resp []*model.UserEmail
	for _, ue := range x.userEmails {
		if !ue.IsVerified {
			continue
		}
		if _, ok := want[model.NormalizeEmail(ue.Email)]; ok {
			resp = append(resp, clone(ue))
		}
	}
	sort.Slice(resp, func(i, j int) bool {
		return pairKey(string(resp[i].UserID), resp[i].Email) < pairKey(string(resp[j].UserID), resp[j].Email)
	})
	return resp, nil
}

func (x *Memory) ListUsers(ctx context.Context, ids []types.UserID) ([]*model.User, error) {
	return list(&x.mu, x.users, ids), nil
}

func (x *Memory) ListMembers(ctx context.Context, orgID types.OrganizationID) ([]*model.Member, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	var resp []*model.Member
	for _, m := range x.members {
		if m.OrganizationID == orgID {
			resp = append(resp, clone(m))
		}
	}
	sort.Slice(resp, func(i, j int) bool {
		return resp[i].UserID < resp[j].UserID
	})
	return resp, nil
}

func (x *Memory) Import(ctx context.Context, ds *model.Dataset) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	for _, v := range ds.Organizations {
		x.organizations[v.ID] = clone(v)
	}
	for _, v := range ds.Teams {
		x.teams[v.ID] = clone(v)
	}
	for _, v := range ds.Projects {
		x.projects[v.ID] = clone(v)
	}
	for _, v := range ds.Users {
		x.users[v.ID] = clone(v)
	}
	for _, v := range ds.UserEmails {
		x.userEmails[pairKey(string(v.UserID), model.NormalizeEmail(v.Email))] = clone(v)
	}
	for _, v := range ds.Members {
		x.members[pairKey(string(v.OrganizationID), string(v.UserID))] = clone(v)
	}
	for _, v := range ds.Releases {
		x.releases[v.ID] = clone(v)
	}
	for _, v := range ds.ReleaseCommits {
		x.releaseCommits[pairKey(string(v.ReleaseID), string(v.CommitID))] = clone(v)
	}
	for _, v := range ds.Commits {
		x.commits[v.ID] = clone(v)
	}
	for _, v := range ds.CommitAuthors {
		x.authors[v.ID] = clone(v)
	}
	for _, v := range ds.Repositories {
		x.repositories[v.ID] = clone(v)
	}
	for _, v := range ds.Deploys {
		x.deploys[v.ID] = clone(v)
	}
	for _, v := range ds.Environments {
		x.environments[v.ID] = clone(v)
	}

	return nil
}
