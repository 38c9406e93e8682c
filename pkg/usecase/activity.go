package usecase

import (
	"context"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/relnotify/pkg/domain/interfaces"
	"github.com/m-mizutani/relnotify/pkg/domain/model"
	"github.com/m-mizutani/relnotify/pkg/utils/errs"
)

type activityUseCase struct {
	notifier        *ReleaseNotifier
	summaryNotifier interfaces.SummaryNotifier
}

var _ interfaces.ActivityUseCase = (*activityUseCase)(nil)

// ActivityOption configures the activity use case
type ActivityOption func(*activityUseCase)

// WithSummaryNotifier reports every delivered notification to n
func WithSummaryNotifier(n interfaces.SummaryNotifier) ActivityOption {
	return func(uc *activityUseCase) {
		uc.summaryNotifier = n
	}
}

// NewActivity creates a new instance of ActivityUseCase
func NewActivity(notifier *ReleaseNotifier, opts ...ActivityOption) *activityUseCase {
	uc := &activityUseCase{notifier: notifier}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// HandleActivity dispatches the activity by type. Release and deploy
// activities produce release emails; other types are logged and skipped.
func (uc *activityUseCase) HandleActivity(ctx context.Context, activity *model.Activity) (*model.DeliverySummary, error) {
	if activity == nil {
		return nil, goerr.New("activity is nil")
	}
	if err := activity.Validate(); err != nil {
		return nil, err
	}

	logger := ctxlog.From(ctx).With("activity_id", activity.ID, "project_id", activity.ProjectID)
	ctx = ctxlog.With(ctx, logger)

	logger.Info("Processing activity",
		"type", activity.Type,
		"version", activity.Version(),
		"deploy_id", activity.DeployID(),
	)

	switch activity.Type {
	case model.ActivityTypeRelease, model.ActivityTypeDeploy:
		summary, err := uc.notifier.Notify(ctx, activity)
		if err != nil {
			return nil, err
		}

		if uc.summaryNotifier != nil && !summary.Skipped {
			if err := uc.summaryNotifier.NotifySummary(ctx, summary); err != nil {
				errs.Handle(ctx, goerr.Wrap(err, "failed to report delivery summary",
					goerr.V("activity_id", activity.ID),
				))
			}
		}
		return summary, nil

	default:
		logger.Warn("Unsupported activity type", "type", activity.Type)
		return &model.DeliverySummary{
			Version:    activity.Version(),
			Recipients: []string{},
			Skipped:    true,
		}, nil
	}
}
