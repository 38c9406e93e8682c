package http_test

import (
	"context"

	"github.com/m-mizutani/relnotify/pkg/domain/model"
	"github.com/m-mizutani/relnotify/pkg/domain/types"
)

type mockActivityUseCase struct {
	HandleActivityFunc func(ctx context.Context, activity *model.Activity) (*model.DeliverySummary, error)
	calls              []*model.Activity
}

func (m *mockActivityUseCase) HandleActivity(ctx context.Context, activity *model.Activity) (*model.DeliverySummary, error) {
	m.calls = append(m.calls, activity)
	if m.HandleActivityFunc != nil {
		return m.HandleActivityFunc(ctx, activity)
	}
	return &model.DeliverySummary{Recipients: []string{}, Skipped: true}, nil
}

type mockPreviewUseCase struct {
	PreviewReleaseFunc func(ctx context.Context, activity *model.Activity, userID types.UserID) (*model.EmailMessage, error)
}

func (m *mockPreviewUseCase) PreviewRelease(ctx context.Context, activity *model.Activity, userID types.UserID) (*model.EmailMessage, error) {
	if m.PreviewReleaseFunc != nil {
		return m.PreviewReleaseFunc(ctx, activity, userID)
	}
	return nil, nil
}

type mockWebhookUseCase struct {
	ProcessEventFunc func(ctx context.Context, event *model.WebhookEvent) error
	events           []*model.WebhookEvent
}

func (m *mockWebhookUseCase) ProcessEvent(ctx context.Context, event *model.WebhookEvent) error {
	m.events = append(m.events, event)
	if m.ProcessEventFunc != nil {
		return m.ProcessEventFunc(ctx, event)
	}
	return nil
}
