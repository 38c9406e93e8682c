package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/relnotify/pkg/domain/interfaces"
	"github.com/m-mizutani/relnotify/pkg/domain/model"
	"github.com/m-mizutani/relnotify/pkg/domain/types"
	"github.com/m-mizutani/relnotify/pkg/infra/mail"
	"github.com/m-mizutani/relnotify/pkg/usecase"
)

func newNotifier(t *testing.T, repo interfaces.Repository, queue interfaces.MailQueue, opts ...usecase.ReleaseNotifierOption) *usecase.ReleaseNotifier {
	t.Helper()
	opts = append([]usecase.ReleaseNotifierOption{
		usecase.WithBaseURL("https://relnotify.example.com/"),
		usecase.WithFrom("noreply@example.com"),
		usecase.WithClock(func() time.Time { return time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC) }),
	}, opts...)

	notifier, err := usecase.NewReleaseNotifier(repo, queue, opts...)
	gt.NoError(t, err)
	return notifier
}

func TestReleaseEmail_Deploy(t *testing.T) {
	ctx := context.Background()
	outbox := mail.NewOutbox()
	notifier := newNotifier(t, newRepository(t, newDataset()), outbox)

	email, err := notifier.Prepare(ctx, newDeployActivity())
	gt.NoError(t, err)
	gt.V(t, email.Release).NotNil()
	gt.True(t, email.ShouldNotify(ctx))

	participants, err := email.Participants(ctx)
	gt.NoError(t, err)
	gt.V(t, participants.Reasons()).Equal(map[types.UserID]model.Reason{
		"user1": model.ReasonCommitted,
	})

	rc := email.Context()
	gt.V(t, rc).NotNil()
	gt.V(t, rc.Environment).Equal("production")
	gt.V(t, rc.ShortVersion).Equal("aaaaaaaaaaaa")
	gt.V(t, rc.TotalCommits).Equal(2)
	gt.V(t, rc.Deploy.ID).Equal(types.DeployID("deploy1"))

	gt.A(t, rc.Repos).Length(1)
	gt.V(t, rc.Repos[0].Name).Equal("acme/web")
	gt.A(t, rc.Repos[0].Commits).Length(2)
	gt.V(t, rc.Repos[0].Commits[0].Commit.ID).Equal(types.CommitID("commit1"))
	gt.V(t, rc.Repos[0].Commits[0].User.ID).Equal(types.UserID("user1"))
	gt.V(t, rc.Repos[0].Commits[1].Commit.ID).Equal(types.CommitID("commit2"))
	gt.V(t, rc.Repos[0].Commits[1].User.ID).Equal(types.UserID("user2"))

	gt.A(t, rc.Projects).Length(2)
	gt.V(t, rc.Projects[0].ReleaseLink).Equal("https://relnotify.example.com/organizations/acme/releases/" + testVersion + "/?project=project1")

	t.Run("user context lists accessible projects only", func(t *testing.T) {
		uc := email.UserContext(participants["user1"].User)
		gt.A(t, uc.Projects).Length(1)
		gt.V(t, uc.Projects[0].Project.ID).Equal(types.ProjectID("project1"))

		noTeam := email.UserContext(&model.User{ID: "user2"})
		gt.V(t, noTeam.Projects).NotNil()
		gt.A(t, noTeam.Projects).Length(0)
	})

	t.Run("subject mentions environment", func(t *testing.T) {
		gt.V(t, email.Subject()).Equal("[relnotify] Deployed version aaaaaaaaaaaa to production")
	})

	t.Run("send enqueues one message per participant", func(t *testing.T) {
		outbox.Reset()
		summary, err := email.Send(ctx)
		gt.NoError(t, err)
		gt.False(t, summary.Skipped)
		gt.V(t, summary.Recipients).Equal([]string{"foo@example.com"})
		gt.V(t, summary.Environment).Equal("production")

		msgs := outbox.Messages()
		gt.A(t, msgs).Length(1)
		gt.V(t, msgs[0].To).Equal([]string{"foo@example.com"})
		gt.V(t, msgs[0].From).Equal("noreply@example.com")
		gt.V(t, msgs[0].Headers[usecase.HeaderReason]).Equal("committed")
		gt.V(t, msgs[0].Headers[usecase.HeaderRelease]).Equal(testVersion)
		gt.V(t, msgs[0].Headers[usecase.HeaderEnvironment]).Equal("production")
		gt.String(t, msgs[0].TextBody).Contains("Version aaaaaaaaaaaa was deployed to production.")
		gt.String(t, msgs[0].TextBody).Contains("1111111 fix login (Foo)")
		gt.String(t, msgs[0].TextBody).Contains("2222222 add api (Bar)")
		gt.String(t, msgs[0].TextBody).Contains("Web: https://relnotify.example.com/")
		gt.String(t, msgs[0].HTMLBody).Contains("production")
	})
}

func TestReleaseEmail_WithoutProjectAccessFilter(t *testing.T) {
	ctx := context.Background()
	outbox := mail.NewOutbox()
	notifier := newNotifier(t, newRepository(t, newDataset()), outbox, usecase.WithProjectAccessFilter(false))

	summary, err := notifier.Notify(ctx, newDeployActivity())
	gt.NoError(t, err)
	gt.V(t, summary.Recipients).Equal([]string{"foo@example.com", "bar@example.com"})

	msgs := outbox.Messages()
	gt.A(t, msgs).Length(2)
	gt.V(t, msgs[1].To).Equal([]string{"bar@example.com"})
}

func TestReleaseEmail_NonMemberCommitter(t *testing.T) {
	// bar verified the commit author address but left the organization
	ds := newDataset()
	ds.Members = ds.Members[:1]

	for _, filter := range []bool{true, false} {
		ctx := context.Background()
		outbox := mail.NewOutbox()
		notifier := newNotifier(t, newRepository(t, ds), outbox, usecase.WithProjectAccessFilter(filter))

		summary, err := notifier.Notify(ctx, newDeployActivity())
		gt.NoError(t, err)
		gt.V(t, summary.Recipients).Equal([]string{"foo@example.com"})
	}
}

func TestReleaseEmail_CommitsAcrossRepositories(t *testing.T) {
	ds := newDataset()
	now := ds.Commits[0].DateAdded
	ds.Repositories = append(ds.Repositories,
		&model.Repository{ID: "repo2", OrganizationID: "org1", Name: "acme/api", URL: "https://github.com/acme/api"})
	ds.Commits[1].RepositoryID = "repo2"
	ds.Commits = append(ds.Commits, &model.Commit{
		ID: "commit3", OrganizationID: "org1", RepositoryID: "repo2",
		Key: "3333333333333333333333333333333333333333", Message: "tune api", AuthorID: "author1", DateAdded: now,
	})
	ds.ReleaseCommits = append(ds.ReleaseCommits, &model.ReleaseCommit{ReleaseID: "release1", CommitID: "commit3", Order: 2})

	ctx := context.Background()
	notifier := newNotifier(t, newRepository(t, ds), mail.NewOutbox())
	email, err := notifier.Prepare(ctx, newDeployActivity())
	gt.NoError(t, err)

	rc := email.Context()
	gt.V(t, rc.TotalCommits).Equal(3)
	gt.A(t, rc.Repos).Length(2)

	var names []string
	var commits [][]types.CommitID
	for _, group := range rc.Repos {
		names = append(names, group.Name)
		var ids []types.CommitID
		for _, c := range group.Commits {
			ids = append(ids, c.Commit.ID)
		}
		commits = append(commits, ids)
	}
	gt.V(t, names).Equal([]string{"acme/web", "acme/api"})
	gt.V(t, commits).Equal([][]types.CommitID{{"commit1"}, {"commit2", "commit3"}})
	gt.V(t, rc.Repos[1].Commits[1].User.ID).Equal(types.UserID("user1"))
}

func TestReleaseEmail_SharedAccountAddress(t *testing.T) {
	// bar's account uses the same mailbox as foo
	ds := newDataset()
	ds.Users[1].Email = "Foo@Example.com"
	ds.Members[1].TeamIDs = []types.TeamID{"team2"}

	ctx := context.Background()
	outbox := mail.NewOutbox()
	notifier := newNotifier(t, newRepository(t, ds), outbox)

	summary, err := notifier.Notify(ctx, newDeployActivity())
	gt.NoError(t, err)
	gt.V(t, summary.Recipients).Equal([]string{"foo@example.com"})
	gt.A(t, outbox.Messages()).Length(1)
}

func TestReleaseEmail_BothMembersWithAccess(t *testing.T) {
	ds := newDataset()
	ds.Members[1].TeamIDs = []types.TeamID{"team2"}

	ctx := context.Background()
	notifier := newNotifier(t, newRepository(t, ds), mail.NewOutbox())

	email, err := notifier.Prepare(ctx, newDeployActivity())
	gt.NoError(t, err)

	participants, err := email.Participants(ctx)
	gt.NoError(t, err)
	gt.V(t, participants.Reasons()).Equal(map[types.UserID]model.Reason{
		"user1": model.ReasonCommitted,
		"user2": model.ReasonCommitted,
	})

	uc := email.UserContext(participants["user2"].User)
	gt.A(t, uc.Projects).Length(1)
	gt.V(t, uc.Projects[0].Project.ID).Equal(types.ProjectID("project2"))
}

func TestReleaseEmail_ReleaseNotFound(t *testing.T) {
	ctx := context.Background()
	outbox := mail.NewOutbox()
	notifier := newNotifier(t, newRepository(t, newDataset()), outbox)

	activity := &model.Activity{
		ProjectID: "project1",
		Type:      model.ActivityTypeRelease,
		Data:      map[string]any{"version": "a", "deploy_id": float64(5)},
	}

	email, err := notifier.Prepare(ctx, activity)
	gt.NoError(t, err)
	gt.V(t, email.Release).Nil()
	gt.False(t, email.ShouldNotify(ctx))
	gt.V(t, email.Context()).Nil()

	participants, err := email.Participants(ctx)
	gt.NoError(t, err)
	gt.A(t, participants.Sorted()).Length(0)

	summary, err := email.Send(ctx)
	gt.NoError(t, err)
	gt.True(t, summary.Skipped)
	gt.A(t, outbox.Messages()).Length(0)
}

func TestReleaseEmail_FeatureDisabled(t *testing.T) {
	ctx := context.Background()
	outbox := mail.NewOutbox()
	var gotOrg types.OrganizationID
	gate := func(ctx context.Context, feature types.Feature, orgID types.OrganizationID) bool {
		gotOrg = orgID
		return false
	}
	notifier := newNotifier(t, newRepository(t, newDataset()), outbox, usecase.WithFeatureGate(gate))

	email, err := notifier.Prepare(ctx, newDeployActivity())
	gt.NoError(t, err)
	gt.False(t, email.ShouldNotify(ctx))
	gt.V(t, gotOrg).Equal(types.OrganizationID("org1"))

	summary, err := email.Send(ctx)
	gt.NoError(t, err)
	gt.True(t, summary.Skipped)
	gt.A(t, outbox.Messages()).Length(0)
}

func TestReleaseEmail_Environment(t *testing.T) {
	ctx := context.Background()
	ds := newDataset()
	ds.Deploys = append(ds.Deploys,
		&model.Deploy{ID: "deploy2", OrganizationID: "org1", ReleaseID: "release1", EnvironmentID: "missing"},
	)
	ds.Environments = append(ds.Environments,
		&model.Environment{ID: "env2", OrganizationID: "org1"},
	)
	ds.Deploys = append(ds.Deploys,
		&model.Deploy{ID: "deploy3", OrganizationID: "org1", ReleaseID: "release1", EnvironmentID: "env2"},
	)
	notifier := newNotifier(t, newRepository(t, ds), mail.NewOutbox())

	testCases := []struct {
		name    string
		data    map[string]any
		env     string
		subject string
	}{
		{
			name:    "no deploy",
			data:    map[string]any{"version": testVersion},
			env:     "",
			subject: "[relnotify] Released version aaaaaaaaaaaa",
		},
		{
			name:    "unknown deploy",
			data:    map[string]any{"version": testVersion, "deploy_id": "nope"},
			env:     "",
			subject: "[relnotify] Released version aaaaaaaaaaaa",
		},
		{
			name:    "missing environment",
			data:    map[string]any{"version": testVersion, "deploy_id": "deploy2"},
			env:     usecase.DefaultEnvironmentName,
			subject: "[relnotify] Deployed version aaaaaaaaaaaa to Default Environment",
		},
		{
			name:    "unnamed environment",
			data:    map[string]any{"version": testVersion, "deploy_id": "deploy3"},
			env:     usecase.DefaultEnvironmentName,
			subject: "[relnotify] Deployed version aaaaaaaaaaaa to Default Environment",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			email, err := notifier.Prepare(ctx, &model.Activity{
				ProjectID: "project1",
				Type:      model.ActivityTypeRelease,
				Data:      tc.data,
			})
			gt.NoError(t, err)
			gt.V(t, email.Context().Environment).Equal(tc.env)
			gt.V(t, email.Subject()).Equal(tc.subject)
		})
	}
}

func TestReleaseEmail_Preferences(t *testing.T) {
	ctx := context.Background()

	t.Run("never opts out of committed emails", func(t *testing.T) {
		ds := newDataset()
		ds.Users[0].DeployEmails = model.DeployEmailsNever
		notifier := newNotifier(t, newRepository(t, ds), mail.NewOutbox())

		email, err := notifier.Prepare(ctx, newDeployActivity())
		gt.NoError(t, err)
		participants, err := email.Participants(ctx)
		gt.NoError(t, err)
		gt.A(t, participants.Sorted()).Length(0)
	})

	t.Run("always adds members with access", func(t *testing.T) {
		ds := newDataset()
		ds.Users = append(ds.Users,
			&model.User{ID: "user3", Name: "Baz", Email: "baz@example.com", IsActive: true, DeployEmails: model.DeployEmailsAlways},
			&model.User{ID: "user4", Name: "Qux", Email: "qux@example.com", IsActive: true, DeployEmails: model.DeployEmailsAlways},
		)
		ds.Members = append(ds.Members,
			&model.Member{OrganizationID: "org1", UserID: "user3", TeamIDs: []types.TeamID{"team2"}},
			&model.Member{OrganizationID: "org1", UserID: "user4"},
		)
		notifier := newNotifier(t, newRepository(t, ds), mail.NewOutbox())

		email, err := notifier.Prepare(ctx, newDeployActivity())
		gt.NoError(t, err)
		participants, err := email.Participants(ctx)
		gt.NoError(t, err)
		gt.V(t, participants.Reasons()).Equal(map[types.UserID]model.Reason{
			"user1": model.ReasonCommitted,
			"user3": model.ReasonDeploySetting,
		})

		msg, err := email.Render(participants["user3"])
		gt.NoError(t, err)
		gt.V(t, msg.Headers[usecase.HeaderReason]).Equal("deploy_setting")
		gt.String(t, msg.TextBody).Contains("you subscribed to all deploy emails")
	})

	t.Run("inactive user is excluded", func(t *testing.T) {
		ds := newDataset()
		ds.Users[0].IsActive = false
		notifier := newNotifier(t, newRepository(t, ds), mail.NewOutbox())

		email, err := notifier.Prepare(ctx, newDeployActivity())
		gt.NoError(t, err)
		participants, err := email.Participants(ctx)
		gt.NoError(t, err)
		gt.A(t, participants.Sorted()).Length(0)
	})
}

func TestReleaseEmail_EmailMatching(t *testing.T) {
	ctx := context.Background()

	t.Run("unverified email does not match", func(t *testing.T) {
		ds := newDataset()
		ds.UserEmails[0].IsVerified = false
		notifier := newNotifier(t, newRepository(t, ds), mail.NewOutbox())

		email, err := notifier.Prepare(ctx, newDeployActivity())
		gt.NoError(t, err)
		participants, err := email.Participants(ctx)
		gt.NoError(t, err)
		gt.A(t, participants.Sorted()).Length(0)
		gt.V(t, email.Context().Repos[0].Commits[0].User).Nil()
		gt.V(t, email.Context().Repos[0].Commits[0].Author.Name).Equal("foo")
	})

	t.Run("users sharing a verified email all participate", func(t *testing.T) {
		ds := newDataset()
		ds.Users = append(ds.Users, &model.User{ID: "user0", Name: "Foo Alt", Email: "foo.alt@example.com", IsActive: true})
		ds.UserEmails = append(ds.UserEmails, &model.UserEmail{UserID: "user0", Email: "FOO@example.com", IsVerified: true})
		ds.Members = append(ds.Members, &model.Member{OrganizationID: "org1", UserID: "user0", TeamIDs: []types.TeamID{"team1"}})
		notifier := newNotifier(t, newRepository(t, ds), mail.NewOutbox())

		email, err := notifier.Prepare(ctx, newDeployActivity())
		gt.NoError(t, err)
		participants, err := email.Participants(ctx)
		gt.NoError(t, err)
		gt.V(t, participants.Reasons()).Equal(map[types.UserID]model.Reason{
			"user0": model.ReasonCommitted,
			"user1": model.ReasonCommitted,
		})
		gt.V(t, email.Context().Repos[0].Commits[0].User.ID).Equal(types.UserID("user0"))
	})

	t.Run("commit without author", func(t *testing.T) {
		ds := newDataset()
		ds.Commits[1].AuthorID = ""
		notifier := newNotifier(t, newRepository(t, ds), mail.NewOutbox())

		email, err := notifier.Prepare(ctx, newDeployActivity())
		gt.NoError(t, err)
		gt.V(t, email.Context().Repos[0].Commits[1].Author).Nil()
		gt.V(t, email.Context().Repos[0].Commits[1].User).Nil()
	})
}

func TestReleaseNotifier_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("project not found", func(t *testing.T) {
		notifier := newNotifier(t, newRepository(t, newDataset()), mail.NewOutbox())
		activity := newDeployActivity()
		activity.ProjectID = "unknown"

		_, err := notifier.Prepare(ctx, activity)
		gt.Error(t, err)
		gt.True(t, goerr.HasTag(err, types.ErrTagNotFound))
	})

	t.Run("invalid activity", func(t *testing.T) {
		notifier := newNotifier(t, newRepository(t, newDataset()), mail.NewOutbox())

		_, err := notifier.Prepare(ctx, &model.Activity{Type: model.ActivityTypeRelease})
		gt.Error(t, err)
		gt.True(t, goerr.HasTag(err, types.ErrTagInvalidArgument))
	})

	t.Run("commit lookup failure", func(t *testing.T) {
		repo := &mockRepository{
			Repository: newRepository(t, newDataset()),
			ListReleaseCommitsFunc: func(ctx context.Context, releaseID types.ReleaseID) ([]*model.Commit, error) {
				return nil, errors.New("datastore unavailable")
			},
		}
		notifier := newNotifier(t, repo, mail.NewOutbox())

		_, err := notifier.Prepare(ctx, newDeployActivity())
		gt.Error(t, err)
		gt.String(t, err.Error()).Contains("failed to list release commits")
	})

	t.Run("member lookup failure", func(t *testing.T) {
		repo := &mockRepository{
			Repository: newRepository(t, newDataset()),
			ListMembersFunc: func(ctx context.Context, orgID types.OrganizationID) ([]*model.Member, error) {
				return nil, errors.New("datastore unavailable")
			},
		}
		notifier := newNotifier(t, repo, mail.NewOutbox())

		_, err := notifier.Notify(ctx, newDeployActivity())
		gt.Error(t, err)
	})

	t.Run("enqueue failure", func(t *testing.T) {
		queue := &mockQueue{
			EnqueueFunc: func(ctx context.Context, msg *model.EmailMessage) error {
				return errors.New("queue full")
			},
		}
		notifier := newNotifier(t, newRepository(t, newDataset()), queue)

		_, err := notifier.Notify(ctx, newDeployActivity())
		gt.Error(t, err)
		gt.String(t, err.Error()).Contains("failed to enqueue release email")
	})
}

func TestReleaseNotifier_PreviewRelease(t *testing.T) {
	ctx := context.Background()
	notifier := newNotifier(t, newRepository(t, newDataset()), mail.NewOutbox())

	msg, err := notifier.PreviewRelease(ctx, newDeployActivity(), "user1")
	gt.NoError(t, err)
	gt.V(t, msg).NotNil()
	gt.V(t, msg.To).Equal([]string{"foo@example.com"})
	gt.V(t, msg.CreatedAt).Equal(time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC))

	msg, err = notifier.PreviewRelease(ctx, newDeployActivity(), "user2")
	gt.NoError(t, err)
	gt.V(t, msg).Nil()
}
