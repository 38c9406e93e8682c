package github

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/go-github/v75/github"
	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/relnotify/pkg/domain/interfaces"
	"github.com/m-mizutani/relnotify/pkg/domain/model"
	"github.com/m-mizutani/relnotify/pkg/domain/types"
)

// EventProcessor turns GitHub webhook events into activities
type EventProcessor struct {
	repo       interfaces.Repository
	activityUC interfaces.ActivityUseCase
	now        func() time.Time
}

var _ interfaces.WebhookUseCase = (*EventProcessor)(nil)

// NewEventProcessor creates a new GitHub event processor
func NewEventProcessor(repo interfaces.Repository, activityUC interfaces.ActivityUseCase) *EventProcessor {
	return &EventProcessor{
		repo:       repo,
		activityUC: activityUC,
		now:        time.Now,
	}
}

// ProcessEvent processes a GitHub webhook event. Events other than published
// releases are ignored.
func (p *EventProcessor) ProcessEvent(ctx context.Context, event *model.WebhookEvent) error {
	logger := ctxlog.From(ctx).With("delivery_id", event.ID)
	ctx = ctxlog.With(ctx, logger)

	if !event.IsSupportedEvent() {
		logger.Info("Ignoring unsupported event",
			"event_type", event.Type,
			"action", event.Action,
		)
		return nil
	}

	var releaseEvent github.ReleaseEvent
	if err := json.Unmarshal(event.RawPayload, &releaseEvent); err != nil {
		return goerr.Wrap(err, "failed to decode release event", goerr.T(types.ErrTagInvalidArgument))
	}

	return p.processReleaseEvent(ctx, &releaseEvent)
}

// processReleaseEvent dispatches a release activity for the project bound to
// the event's repository
func (p *EventProcessor) processReleaseEvent(ctx context.Context, releaseEvent *github.ReleaseEvent) error {
	logger := ctxlog.From(ctx)

	fullName, version, err := extractReleaseInfo(releaseEvent)
	if err != nil {
		return err
	}

	project, err := p.repo.FindProjectByGitHubRepository(ctx, fullName)
	if err != nil {
		return goerr.Wrap(err, "failed to find project", goerr.V("repository", fullName))
	}
	if project == nil {
		logger.Warn("No project bound to repository", "repository", fullName)
		return nil
	}

	dateAdded := p.now()
	if ts := releaseEvent.GetRelease().GetPublishedAt(); !ts.IsZero() {
		dateAdded = ts.Time
	}

	activity := &model.Activity{
		ID:        types.ActivityID(uuid.NewString()),
		ProjectID: project.ID,
		Type:      model.ActivityTypeRelease,
		Data: map[string]any{
			"version": version,
		},
		DateAdded: dateAdded,
	}

	logger.Info("Processing release event",
		"repository", fullName,
		"version", version,
		"project_id", project.ID,
		"activity_id", activity.ID,
	)

	summary, err := p.activityUC.HandleActivity(ctx, activity)
	if err != nil {
		return goerr.Wrap(err, "failed to handle release activity",
			goerr.V("repository", fullName),
			goerr.V("version", version),
		)
	}

	logger.Info("Processed release event",
		"repository", fullName,
		"skipped", summary.Skipped,
		"recipients", len(summary.Recipients),
	)
	return nil
}

// extractReleaseInfo returns the repository full name and version of a
// release event. The tag is the version; the target commitish is used when
// the tag is empty.
func extractReleaseInfo(event *github.ReleaseEvent) (string, string, error) {
	if event.GetRepo() == nil {
		return "", "", goerr.New("missing repository information in release event", goerr.T(types.ErrTagInvalidArgument))
	}
	if event.GetRelease() == nil {
		return "", "", goerr.New("missing release information in release event", goerr.T(types.ErrTagInvalidArgument))
	}

	fullName := event.GetRepo().GetFullName()
	if fullName == "" && event.GetRepo().GetOwner().GetLogin() != "" {
		fullName = event.GetRepo().GetOwner().GetLogin() + "/" + event.GetRepo().GetName()
	}

	version := event.GetRelease().GetTagName()
	if version == "" {
		version = event.GetRelease().GetTargetCommitish()
	}

	if fullName == "" || version == "" {
		return "", "", goerr.New("missing required fields in release event",
			goerr.V("repository", fullName),
			goerr.V("version", version),
			goerr.T(types.ErrTagInvalidArgument),
		)
	}

	return fullName, version, nil
}
