package firestore

import (
	"context"
	"net/url"
	"sort"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/m-mizutani/relnotify/pkg/domain/interfaces"
	"github.com/m-mizutani/relnotify/pkg/domain/model"
	"github.com/m-mizutani/relnotify/pkg/domain/types"
)

const (
	collOrganizations  = "organizations"
	collTeams          = "teams"
	collProjects       = "projects"
	collUsers          = "users"
	collUserEmails     = "user_emails"
	collMembers        = "members"
	collReleases       = "releases"
	collReleaseCommits = "release_commits"
	collCommits        = "commits"
	collCommitAuthors  = "commit_authors"
	collRepositories   = "repositories"
	collDeploys        = "deploys"
	collEnvironments   = "environments"

	// maxInValues is the Firestore limit of values in an "in" filter
	maxInValues = 30
)

// Client is a Repository backed by Cloud Firestore
type Client struct {
	client *firestore.Client
}

var _ interfaces.Repository = (*Client)(nil)

// New creates a Firestore repository for the project and database
func New(ctx context.Context, projectID, databaseID string, opts ...option.ClientOption) (*Client, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project_id", projectID),
			goerr.V("database_id", databaseID),
		)
	}
	return &Client{client: client}, nil
}

// Close releases the underlying client
func (x *Client) Close() error {
	return x.client.Close()
}

// userEmailDoc adds the normalized address used by "in" queries
type userEmailDoc struct {
	UserID          types.UserID `firestore:"user_id"`
	Email           string       `firestore:"email"`
	EmailNormalized string       `firestore:"email_normalized"`
	IsVerified      bool         `firestore:"is_verified"`
}

func docID(parts ...string) string {
	id := ""
	for i, p := range parts {
		if i > 0 {
			id += ":"
		}
		id += url.PathEscape(p)
	}
	return id
}

func getDoc[T any](ctx context.Context, client *firestore.Client, collection, id string) (*T, error) {
	if id == "" {
		return nil, nil
	}

	doc, err := client.Collection(collection).Doc(docID(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get document",
			goerr.V("collection", collection),
			goerr.V("id", id),
		)
	}

	var v T
	if err := doc.DataTo(&v); err != nil {
		return nil, goerr.Wrap(err, "failed to decode document",
			goerr.V("collection", collection),
			goerr.V("id", id),
		)
	}
	return &v, nil
}

func getDocs[T any, K ~string](ctx context.Context, client *firestore.Client, collection string, ids []K) ([]*T, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	refs := make([]*firestore.DocumentRef, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		refs = append(refs, client.Collection(collection).Doc(docID(string(id))))
	}

	docs, err := client.GetAll(ctx, refs)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get documents",
			goerr.V("collection", collection),
			goerr.V("count", len(refs)),
		)
	}

	resp := make([]*T, 0, len(docs))
	for _, doc := range docs {
		if !doc.Exists() {
			continue
		}
		var v T
		if err := doc.DataTo(&v); err != nil {
			return nil, goerr.Wrap(err, "failed to decode document",
				goerr.V("collection", collection),
				goerr.V("id", doc.Ref.ID),
			)
		}
		resp = append(resp, &v)
	}
	return resp, nil
}

func queryDocs[T any](ctx context.Context, q firestore.Query) ([]*T, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	var resp []*T
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate documents")
		}

		var v T
		if err := doc.DataTo(&v); err != nil {
			return nil, goerr.Wrap(err, "failed to decode document", goerr.V("id", doc.Ref.ID))
		}
		resp = append(resp, &v)
	}
	return resp, nil
}

func (x *Client) GetOrganization(ctx context.Context, id types.OrganizationID) (*model.Organization, error) {
	return getDoc[model.Organization](ctx, x.client, collOrganizations, string(id))
}

func (x *Client) GetProject(ctx context.Context, id types.ProjectID) (*model.Project, error) {
	return getDoc[model.Project](ctx, x.client, collProjects, string(id))
}

func (x *Client) FindProjectByGitHubRepository(ctx context.Context, fullName string) (*model.Project, error) {
	q := x.client.Collection(collProjects).Where("github_repository", "==", fullName)
	projects, err := queryDocs[model.Project](ctx, q)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query project by github repository", goerr.V("repository", fullName))
	}
	if len(projects) == 0 {
		return nil, nil
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].ID < projects[j].ID })
	return projects[0], nil
}

func (x *Client) ListProjects(ctx context.Context, ids []types.ProjectID) ([]*model.Project, error) {
	return getDocs[model.Project](ctx, x.client, collProjects, ids)
}

func (x *Client) GetReleaseByVersion(ctx context.Context, orgID types.OrganizationID, version string) (*model.Release, error) {
	q := x.client.Collection(collReleases).
		Where("organization_id", "==", string(orgID)).
		Where("version", "==", version).
		Limit(1)

	releases, err := queryDocs[model.Release](ctx, q)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query release",
			goerr.V("organization_id", orgID),
			goerr.V("version", version),
		)
	}
	if len(releases) == 0 {
		return nil, nil
	}
	return releases[0], nil
}

func (x *Client) ListReleaseCommits(ctx context.Context, releaseID types.ReleaseID) ([]*model.Commit, error) {
	q := x.client.Collection(collReleaseCommits).
		Where("release_id", "==", string(releaseID)).
		OrderBy("order", firestore.Asc)

	links, err := queryDocs[model.ReleaseCommit](ctx, q)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query release commits", goerr.V("release_id", releaseID))
	}

	ids := make([]types.CommitID, len(links))
	for i, rc := range links {
		ids[i] = rc.CommitID
	}
	return getDocs[model.Commit](ctx, x.client, collCommits, ids)
}

func (x *Client) ListCommitAuthors(ctx context.Context, ids []types.CommitAuthorID) ([]*model.CommitAuthor, error) {
	return getDocs[model.CommitAuthor](ctx, x.client, collCommitAuthors, ids)
}

func (x *Client) ListRepositories(ctx context.Context, ids []types.RepositoryID) ([]*model.Repository, error) {
	return getDocs[model.Repository](ctx, x.client, collRepositories, ids)
}

func (x *Client) GetDeploy(ctx context.Context, id types.DeployID) (*model.Deploy, error) {
	return getDoc[model.Deploy](ctx, x.client, collDeploys, string(id))
}

func (x *Client) GetEnvironment(ctx context.Context, id types.EnvironmentID) (*model.Environment, error) {
	return getDoc[model.Environment](ctx, x.client, collEnvironments, string(id))
}

func (x *Client) ListVerifiedUserEmails(ctx context.Context, emails []string) ([]*model.UserEmail, error) {
	seen := make(map[string]struct{}, len(emails))
	var normalized []string
	for _, e := range emails {
		n := model.NormalizeEmail(e)
		if _, ok := seen[n]; ok || n == "" {
			continue
		}
		seen[n] = struct{}{}
		normalized = append(normalized, n)
	}

	var resp []*model.UserEmail
	for start := 0; start < len(normalized); start += maxInValues {
		end := min(start+maxInValues, len(normalized))

		q := x.client.Collection(collUserEmails).
			Where("email_normalized", "in", normalized[start:end]).
			Where("is_verified", "==", true)

		docs, err := queryDocs[userEmailDoc](ctx, q)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to query user emails", goerr.V("count", end-start))
		}
		for _, d := range docs {
			resp = append(resp, &model.UserEmail{
				UserID:     d.UserID,
				Email:      d.Email,
				IsVerified: d.IsVerified,
			})
		}
	}

	sort.Slice(resp, func(i, j int) bool {
		if resp[i].UserID != resp[j].UserID {
			return resp[i].UserID < resp[j].UserID
		}
		return resp[i].Email < resp[j].Email
	})
	return resp, nil
}

func (x *Client) ListUsers(ctx context.Context, ids []types.UserID) ([]*model.User, error) {
	return getDocs[model.User](ctx, x.client, collUsers, ids)
}

func (x *Client) ListMembers(ctx context.Context, orgID types.OrganizationID) ([]*model.Member, error) {
	q := x.client.Collection(collMembers).Where("organization_id", "==", string(orgID))
	members, err := queryDocs[model.Member](ctx, q)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query members", goerr.V("organization_id", orgID))
	}
	sort.Slice(members, func(i, j int) bool { return members[i].UserID < members[j].UserID })
	return members, nil
}

func (x *Client) Import(ctx context.Context, ds *model.Dataset) error {
	bw := x.client.BulkWriter(ctx)
	var jobs []*firestore.BulkWriterJob

	set := func(collection, id string, v any) error {
		job, err := bw.Set(x.client.Collection(collection).Doc(id), v)
		if err != nil {
			return goerr.Wrap(err, "failed to enqueue document",
				goerr.V("collection", collection),
				goerr.V("id", id),
			)
		}
		jobs = append(jobs, job)
		return nil
	}

	var err error
	for _, v := range ds.Organizations {
		err = firstErr(err, set(collOrganizations, docID(string(v.ID)), v))
	}
	for _, v := range ds.Teams {
		err = firstErr(err, set(collTeams, docID(string(v.ID)), v))
	}
	for _, v := range ds.Projects {
		err = firstErr(err, set(collProjects, docID(string(v.ID)), v))
	}
	for _, v := range ds.Users {
		err = firstErr(err, set(collUsers, docID(string(v.ID)), v))
	}
	for _, v := range ds.UserEmails {
		normalized := model.NormalizeEmail(v.Email)
		err = firstErr(err, set(collUserEmails, docID(string(v.UserID), normalized), &userEmailDoc{
			UserID:          v.UserID,
			Email:           v.Email,
			EmailNormalized: normalized,
			IsVerified:      v.IsVerified,
		}))
	}
	for _, v := range ds.Members {
		err = firstErr(err, set(collMembers, docID(string(v.OrganizationID), string(v.UserID)), v))
	}
	for _, v := range ds.Releases {
		err = firstErr(err, set(collReleases, docID(string(v.ID)), v))
	}
	for _, v := range ds.ReleaseCommits {
		err = firstErr(err, set(collReleaseCommits, docID(string(v.ReleaseID), string(v.CommitID)), v))
	}
	for _, v := range ds.Commits {
		err = firstErr(err, set(collCommits, docID(string(v.ID)), v))
	}
	for _, v := range ds.CommitAuthors {
		err = firstErr(err, set(collCommitAuthors, docID(string(v.ID)), v))
	}
	for _, v := range ds.Repositories {
		err = firstErr(err, set(collRepositories, docID(string(v.ID)), v))
	}
	for _, v := range ds.Deploys {
		err = firstErr(err, set(collDeploys, docID(string(v.ID)), v))
	}
	for _, v := range ds.Environments {
		err = firstErr(err, set(collEnvironments, docID(string(v.ID)), v))
	}

	bw.End()
	if err != nil {
		return err
	}

	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return goerr.Wrap(err, "failed to write document")
		}
	}
	return nil
}

func firstErr(current, next error) error {
	if current != nil {
		return current
	}
	return next
}
