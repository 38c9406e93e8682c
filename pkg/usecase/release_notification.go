package usecase

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	htmltemplate "html/template"
	"net/url"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/relnotify/pkg/domain/interfaces"
	"github.com/m-mizutani/relnotify/pkg/domain/model"
	"github.com/m-mizutani/relnotify/pkg/domain/types"
)

//go:embed templates/release.txt.tmpl
var releaseTextTemplate string

//go:embed templates/release.html.tmpl
var releaseHTMLTemplate string

// DefaultEnvironmentName is used when a deploy has no named environment
const DefaultEnvironmentName = "Default Environment"

// Mail headers attached to every release notification
const (
	HeaderReason      = "X-Relnotify-Reason"
	HeaderRelease     = "X-Relnotify-Release"
	HeaderEnvironment = "X-Relnotify-Environment"
)

// ReleaseNotifier composes and sends release notification emails
type ReleaseNotifier struct {
	repo  interfaces.Repository
	queue interfaces.MailQueue

	gate                 types.FeatureGate
	baseURL              string
	from                 string
	subjectPrefix        string
	requireProjectAccess bool
	now                  func() time.Time

	textTmpl *texttemplate.Template
	htmlTmpl *htmltemplate.Template
}

// ReleaseNotifierOption configures ReleaseNotifier
type ReleaseNotifierOption func(*ReleaseNotifier)

// WithFeatureGate replaces the feature gate. Release emails are enabled for
// every organization by default.
func WithFeatureGate(gate types.FeatureGate) ReleaseNotifierOption {
	return func(uc *ReleaseNotifier) {
		uc.gate = gate
	}
}

// WithBaseURL sets the URL prefix of release links
func WithBaseURL(baseURL string) ReleaseNotifierOption {
	return func(uc *ReleaseNotifier) {
		uc.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithFrom sets the sender address
func WithFrom(from string) ReleaseNotifierOption {
	return func(uc *ReleaseNotifier) {
		uc.from = from
	}
}

// WithSubjectPrefix sets the prefix of every subject
func WithSubjectPrefix(prefix string) ReleaseNotifierOption {
	return func(uc *ReleaseNotifier) {
		uc.subjectPrefix = prefix
	}
}

// WithProjectAccessFilter controls whether committers must have team access
// to at least one release project to be notified. Enabled by default.
// Committers always have to be members of the organization.
func WithProjectAccessFilter(enabled bool) ReleaseNotifierOption {
	return func(uc *ReleaseNotifier) {
		uc.requireProjectAccess = enabled
	}
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) ReleaseNotifierOption {
	return func(uc *ReleaseNotifier) {
		uc.now = now
	}
}

// NewReleaseNotifier creates a ReleaseNotifier
func NewReleaseNotifier(repo interfaces.Repository, queue interfaces.MailQueue, opts ...ReleaseNotifierOption) (*ReleaseNotifier, error) {
	textTmpl, err := texttemplate.New("release.txt").Parse(releaseTextTemplate)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse release text template")
	}
	htmlTmpl, err := htmltemplate.New("release.html").Parse(releaseHTMLTemplate)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse release html template")
	}

	uc := &ReleaseNotifier{
		repo:                 repo,
		queue:                queue,
		gate:                 types.EnabledFeatures(types.FeatureReleaseEmails),
		from:                 "noreply@localhost",
		subjectPrefix:        "[relnotify] ",
		requireProjectAccess: true,
		now:                  time.Now,
		textTmpl:             textTmpl,
		htmlTmpl:             htmlTmpl,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc, nil
}

// Notify prepares the release email of the activity and sends it
func (uc *ReleaseNotifier) Notify(ctx context.Context, activity *model.Activity) (*model.DeliverySummary, error) {
	email, err := uc.Prepare(ctx, activity)
	if err != nil {
		return nil, err
	}
	return email.Send(ctx)
}

// Prepare looks up everything the release email of the activity needs. A
// missing release is not an error: the returned ReleaseEmail has a nil
// Release and ShouldNotify returns false.
func (uc *ReleaseNotifier) Prepare(ctx context.Context, activity *model.Activity) (*ReleaseEmail, error) {
	if err := activity.Validate(); err != nil {
		return nil, err
	}

	project, err := uc.repo.GetProject(ctx, activity.ProjectID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get project", goerr.V("project_id", activity.ProjectID))
	}
	if project == nil {
		return nil, goerr.New("project not found", goerr.V("project_id", activity.ProjectID), goerr.T(types.ErrTagNotFound))
	}

	org, err := uc.repo.GetOrganization(ctx, project.OrganizationID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get organization", goerr.V("organization_id", project.OrganizationID))
	}
	if org == nil {
		return nil, goerr.New("organization not found", goerr.V("organization_id", project.OrganizationID), goerr.T(types.ErrTagNotFound))
	}

	email := &ReleaseEmail{
		notifier:     uc,
		Activity:     activity,
		Project:      project,
		Organization: org,
	}

	release, err := uc.repo.GetReleaseByVersion(ctx, org.ID, activity.Version())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get release",
			goerr.V("organization_id", org.ID),
			goerr.V("version", activity.Version()),
		)
	}
	if release == nil {
		ctxlog.From(ctx).Debug("release not found",
			"organization_id", org.ID,
			"version", activity.Version(),
		)
		return email, nil
	}
	email.Release = release

	if err := email.load(ctx); err != nil {
		return nil, err
	}

	return email, nil
}

// ReleaseEmail is a release notification bound to one activity
type ReleaseEmail struct {
	notifier *ReleaseNotifier

	Activity     *model.Activity
	Project      *model.Project
	Organization *model.Organization

	// Release is nil when the activity version matches no release
	Release *model.Release
	// Deploy is nil when the activity has no deploy or it does not exist
	Deploy      *model.Deploy
	Environment string
	Projects    []*model.Project
	Commits     []*model.Commit

	authors     map[types.CommitAuthorID]*model.CommitAuthor
	repos       map[types.RepositoryID]*model.Repository
	userByEmail map[string]*model.User
	committers  []*model.User
	members     map[types.UserID]*model.Member

	context *model.ReleaseContext
}

func (e *ReleaseEmail) load(ctx context.Context) error {
	repo := e.notifier.repo

	if deployID := e.Activity.DeployID(); deployID != "" {
		deploy, err := repo.GetDeploy(ctx, deployID)
		if err != nil {
			return goerr.Wrap(err, "failed to get deploy", goerr.V("deploy_id", deployID))
		}
		if deploy != nil {
			e.Deploy = deploy
			e.Environment = DefaultEnvironmentName

			env, err := repo.GetEnvironment(ctx, deploy.EnvironmentID)
			if err != nil {
				return goerr.Wrap(err, "failed to get environment", goerr.V("environment_id", deploy.EnvironmentID))
			}
			if env != nil && env.Name != "" {
				e.Environment = env.Name
			}
		}
	}

	projects, err := repo.ListProjects(ctx, e.Release.ProjectIDs)
	if err != nil {
		return goerr.Wrap(err, "failed to list release projects", goerr.V("release_id", e.Release.ID))
	}
	e.Projects = projects

	commits, err := repo.ListReleaseCommits(ctx, e.Release.ID)
	if err != nil {
		return goerr.Wrap(err, "failed to list release commits", goerr.V("release_id", e.Release.ID))
	}
	e.Commits = commits

	var authorIDs []types.CommitAuthorID
	var repoIDs []types.RepositoryID
	seenAuthor := make(map[types.CommitAuthorID]bool)
	seenRepo := make(map[types.RepositoryID]bool)
	for _, c := range commits {
		if c.AuthorID != "" && !seenAuthor[c.AuthorID] {
			seenAuthor[c.AuthorID] = true
			authorIDs = append(authorIDs, c.AuthorID)
		}
		if !seenRepo[c.RepositoryID] {
			seenRepo[c.RepositoryID] = true
			repoIDs = append(repoIDs, c.RepositoryID)
		}
	}

	authors, err := repo.ListCommitAuthors(ctx, authorIDs)
	if err != nil {
		return goerr.Wrap(err, "failed to list commit authors", goerr.V("release_id", e.Release.ID))
	}
	e.authors = make(map[types.CommitAuthorID]*model.CommitAuthor, len(authors))
	var authorEmails []string
	for _, a := range authors {
		e.authors[a.ID] = a
		if a.Email != "" {
			authorEmails = append(authorEmails, a.Email)
		}
	}

	repos, err := repo.ListRepositories(ctx, repoIDs)
	if err != nil {
		return goerr.Wrap(err, "failed to list repositories", goerr.V("release_id", e.Release.ID))
	}
	e.repos = make(map[types.RepositoryID]*model.Repository, len(repos))
	for _, r := range repos {
		e.repos[r.ID] = r
	}

	if err := e.loadUsers(ctx, authorEmails); err != nil {
		return err
	}

	members, err := repo.ListMembers(ctx, e.Organization.ID)
	if err != nil {
		return goerr.Wrap(err, "failed to list members", goerr.V("organization_id", e.Organization.ID))
	}
	e.members = make(map[types.UserID]*model.Member, len(members))
	for _, m := range members {
		e.members[m.UserID] = m
	}

	e.context = e.buildContext()
	return nil
}

// loadUsers resolves commit author emails to users through verified addresses.
// Every matched user is a committer. When several users verified the same
// address, the lowest user ID is shown as the commit's author.
func (e *ReleaseEmail) loadUsers(ctx context.Context, emails []string) error {
	e.userByEmail = make(map[string]*model.User)
	if len(emails) == 0 {
		return nil
	}

	userEmails, err := e.notifier.repo.ListVerifiedUserEmails(ctx, emails)
	if err != nil {
		return goerr.Wrap(err, "failed to list verified user emails", goerr.V("count", len(emails)))
	}

	var userIDs []types.UserID
	seen := make(map[types.UserID]bool)
	for _, ue := range userEmails {
		if !ue.IsVerified || seen[ue.UserID] {
			continue
		}
		seen[ue.UserID] = true
		userIDs = append(userIDs, ue.UserID)
	}

	users, err := e.notifier.repo.ListUsers(ctx, userIDs)
	if err != nil {
		return goerr.Wrap(err, "failed to list users", goerr.V("count", len(userIDs)))
	}
	byID := make(map[types.UserID]*model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
		e.committers = append(e.committers, u)
	}

	for _, ue := range userEmails {
		if !ue.IsVerified {
			continue
		}
		user, ok := byID[ue.UserID]
		if !ok {
			continue
		}
		key := model.NormalizeEmail(ue.Email)
		if cur, ok := e.userByEmail[key]; !ok || user.ID < cur.ID {
			e.userByEmail[key] = user
		}
	}

	return nil
}

// ShouldNotify returns false when the activity matches no release or release
// emails are disabled for the organization
func (e *ReleaseEmail) ShouldNotify(ctx context.Context) bool {
	if e.Release == nil {
		return false
	}
	return e.notifier.gate(ctx, types.FeatureReleaseEmails, e.Organization.ID)
}

// hasProjectAccess returns true if the user is a member with team access to
// at least one release project
func (e *ReleaseEmail) hasProjectAccess(userID types.UserID) bool {
	member, ok := e.members[userID]
	if !ok {
		return false
	}
	for _, p := range e.Projects {
		if member.CanAccess(p) {
			return true
		}
	}
	return false
}

// Participants returns the users to notify. Commit authors matched by
// verified email participate as committed if they are members of the
// organization; members with access to a release
// project who asked for all deploy emails participate as deploy_setting.
func (e *ReleaseEmail) Participants(ctx context.Context) (model.Participants, error) {
	participants := model.Participants{}
	if e.Release == nil {
		return participants, nil
	}

	for _, user := range e.committers {
		if !user.IsActive || user.DeployEmailPreference() == model.DeployEmailsNever {
			continue
		}
		if _, ok := e.members[user.ID]; !ok {
			continue
		}
		if e.notifier.requireProjectAccess && !e.hasProjectAccess(user.ID) {
			continue
		}
		participants[user.ID] = &model.Participant{User: user, Reason: model.ReasonCommitted}
	}

	var candidates []types.UserID
	for userID := range e.members {
		if _, ok := participants[userID]; ok {
			continue
		}
		if e.hasProjectAccess(userID) {
			candidates = append(candidates, userID)
		}
	}
	if len(candidates) == 0 {
		return participants, nil
	}

	users, err := e.notifier.repo.ListUsers(ctx, candidates)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list members for deploy settings", goerr.V("count", len(candidates)))
	}
	for _, user := range users {
		if user.IsActive && user.DeployEmailPreference() == model.DeployEmailsAlways {
			participants[user.ID] = &model.Participant{User: user, Reason: model.ReasonDeploySetting}
		}
	}

	return participants, nil
}

// Context returns data shared by every recipient. It is nil when the activity
// matches no release.
func (e *ReleaseEmail) Context() *model.ReleaseContext {
	return e.context
}

func (e *ReleaseEmail) buildContext() *model.ReleaseContext {
	rc := &model.ReleaseContext{
		Organization: e.Organization,
		Release:      e.Release,
		ShortVersion: e.Release.ShortVersion(),
		Deploy:       e.Deploy,
		Environment:  e.Environment,
		TotalCommits: len(e.Commits),
	}

	groups := make(map[types.RepositoryID]*model.RepoCommits)
	for _, c := range e.Commits {
		group, ok := groups[c.RepositoryID]
		if !ok {
			group = &model.RepoCommits{Name: string(c.RepositoryID)}
			if r, ok := e.repos[c.RepositoryID]; ok {
				group.Repository = r
				group.Name = r.Name
			}
			groups[c.RepositoryID] = group
			rc.Repos = append(rc.Repos, group)
		}

		entry := &model.CommitWithAuthor{Commit: c}
		if author, ok := e.authors[c.AuthorID]; ok {
			entry.Author = author
			entry.User = e.userByEmail[model.NormalizeEmail(author.Email)]
		}
		group.Commits = append(group.Commits, entry)
	}

	for _, p := range e.Projects {
		rc.Projects = append(rc.Projects, &model.ProjectLink{
			Project:     p,
			ReleaseLink: e.releaseLink(p),
		})
	}

	return rc
}

func (e *ReleaseEmail) releaseLink(project *model.Project) string {
	return fmt.Sprintf("%s/organizations/%s/releases/%s/?project=%s",
		e.notifier.baseURL,
		url.PathEscape(e.Organization.Slug),
		url.PathEscape(e.Release.Version),
		url.QueryEscape(string(project.ID)),
	)
}

// UserContext narrows the release context to the projects the user can access
// through team membership, keeping release project order
func (e *ReleaseEmail) UserContext(user *model.User) *model.UserReleaseContext {
	resp := &model.UserReleaseContext{
		ReleaseContext: e.context,
		User:           user,
		Projects:       []*model.ProjectLink{},
	}
	if e.context == nil {
		return resp
	}

	member := e.members[user.ID]
	for _, link := range e.context.Projects {
		if member.CanAccess(link.Project) {
			resp.Projects = append(resp.Projects, link)
		}
	}
	return resp
}

// Subject returns the mail subject
func (e *ReleaseEmail) Subject() string {
	if e.Release == nil {
		return ""
	}
	if e.Environment != "" {
		return fmt.Sprintf("%sDeployed version %s to %s", e.notifier.subjectPrefix, e.Release.ShortVersion(), e.Environment)
	}
	return fmt.Sprintf("%sReleased version %s", e.notifier.subjectPrefix, e.Release.ShortVersion())
}

// Render builds the message for one participant
func (e *ReleaseEmail) Render(p *model.Participant) (*model.EmailMessage, error) {
	if e.Release == nil {
		return nil, goerr.New("no release to render", goerr.V("version", e.Activity.Version()))
	}

	data := e.UserContext(p.User)
	data.Reason = p.Reason

	var text bytes.Buffer
	if err := e.notifier.textTmpl.Execute(&text, data); err != nil {
		return nil, goerr.Wrap(err, "failed to render text body", goerr.V("user_id", p.User.ID))
	}
	var html bytes.Buffer
	if err := e.notifier.htmlTmpl.Execute(&html, data); err != nil {
		return nil, goerr.Wrap(err, "failed to render html body", goerr.V("user_id", p.User.ID))
	}

	headers := map[string]string{
		HeaderReason:  string(p.Reason),
		HeaderRelease: e.Release.Version,
	}
	if e.Environment != "" {
		headers[HeaderEnvironment] = e.Environment
	}

	return &model.EmailMessage{
		ID:        uuid.NewString(),
		From:      e.notifier.from,
		To:        []string{p.User.Email},
		Subject:   e.Subject(),
		TextBody:  text.String(),
		HTMLBody:  html.String(),
		Headers:   headers,
		CreatedAt: e.notifier.now(),
	}, nil
}

// Send renders and enqueues one message per participant. Nothing is sent when
// ShouldNotify is false.
func (e *ReleaseEmail) Send(ctx context.Context) (*model.DeliverySummary, error) {
	logger := ctxlog.From(ctx)

	summary := &model.DeliverySummary{
		OrganizationID: string(e.Organization.ID),
		Version:        e.Activity.Version(),
		Environment:    e.Environment,
		Recipients:     []string{},
		Skipped:        true,
	}
	if e.Release != nil {
		summary.ShortVersion = e.Release.ShortVersion()
	}

	if !e.ShouldNotify(ctx) {
		logger.Info("Release notification skipped",
			"organization_id", e.Organization.ID,
			"version", e.Activity.Version(),
			"release_found", e.Release != nil,
		)
		return summary, nil
	}
	summary.Skipped = false

	participants, err := e.Participants(ctx)
	if err != nil {
		return nil, err
	}

	sent := make(map[string]bool)
	for _, p := range participants.Sorted() {
		if p.User.Email == "" {
			logger.Warn("Participant has no email address", "user_id", p.User.ID)
			continue
		}
		address := model.NormalizeEmail(p.User.Email)
		if sent[address] {
			logger.Debug("Address already notified", "user_id", p.User.ID)
			continue
		}
		sent[address] = true

		msg, err := e.Render(p)
		if err != nil {
			return nil, err
		}

		if err := e.notifier.queue.Enqueue(ctx, msg); err != nil {
			return nil, goerr.Wrap(err, "failed to enqueue release email",
				goerr.V("user_id", p.User.ID),
				goerr.V("message_id", msg.ID),
			)
		}
		summary.Recipients = append(summary.Recipients, p.User.Email)
	}

	logger.Info("Release notification enqueued",
		"organization_id", e.Organization.ID,
		"version", e.Release.Version,
		"environment", e.Environment,
		"recipients", len(summary.Recipients),
	)

	return summary, nil
}

// PreviewRelease renders the message the user would receive for the activity
func (uc *ReleaseNotifier) PreviewRelease(ctx context.Context, activity *model.Activity, userID types.UserID) (*model.EmailMessage, error) {
	email, err := uc.Prepare(ctx, activity)
	if err != nil {
		return nil, err
	}
	if !email.ShouldNotify(ctx) {
		return nil, nil
	}

	participants, err := email.Participants(ctx)
	if err != nil {
		return nil, err
	}
	p, ok := participants[userID]
	if !ok {
		return nil, nil
	}
	return email.Render(p)
}

var _ interfaces.PreviewUseCase = (*ReleaseNotifier)(nil)
