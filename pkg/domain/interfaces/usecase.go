package interfaces

import (
	"context"

	"github.com/m-mizutani/relnotify/pkg/domain/model"
	"github.com/m-mizutani/relnotify/pkg/domain/types"
)

// ActivityUseCase defines the interface for activity processing
type ActivityUseCase interface {
	// HandleActivity processes an activity and sends its notifications
	HandleActivity(ctx context.Context, activity *model.Activity) (*model.DeliverySummary, error)
}

// PreviewUseCase renders a notification without delivering it
type PreviewUseCase interface {
	// PreviewRelease renders the release email the user would receive for
	// the activity. Returns nil when nothing would be sent to the user.
	PreviewRelease(ctx context.Context, activity *model.Activity, userID types.UserID) (*model.EmailMessage, error)
}

// WebhookUseCase defines the interface for GitHub webhook event processing
type WebhookUseCase interface {
	// ProcessEvent processes a webhook event
	ProcessEvent(ctx context.Context, event *model.WebhookEvent) error
}
