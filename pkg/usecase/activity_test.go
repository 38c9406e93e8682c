package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/relnotify/pkg/domain/model"
	"github.com/m-mizutani/relnotify/pkg/domain/types"
	"github.com/m-mizutani/relnotify/pkg/infra/mail"
	"github.com/m-mizutani/relnotify/pkg/usecase"
)

type mockSummaryNotifier struct {
	NotifySummaryFunc func(ctx context.Context, summary *model.DeliverySummary) error
	calls             []*model.DeliverySummary
}

func (m *mockSummaryNotifier) NotifySummary(ctx context.Context, summary *model.DeliverySummary) error {
	m.calls = append(m.calls, summary)
	if m.NotifySummaryFunc != nil {
		return m.NotifySummaryFunc(ctx, summary)
	}
	return nil
}

func TestActivityUseCase_HandleActivity(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name         string
		activity     *model.Activity
		wantErr      bool
		wantSkipped  bool
		wantMessages int
	}{
		{
			name:         "release activity with deploy",
			activity:     newDeployActivity(),
			wantMessages: 1,
		},
		{
			name: "deploy activity",
			activity: &model.Activity{
				ProjectID: "project1",
				Type:      model.ActivityTypeDeploy,
				Data:      map[string]any{"version": testVersion},
			},
			wantMessages: 1,
		},
		{
			name: "unknown release version",
			activity: &model.Activity{
				ProjectID: "project1",
				Type:      model.ActivityTypeRelease,
				Data:      map[string]any{"version": "v0.0.0"},
			},
			wantSkipped: true,
		},
		{
			name: "unsupported activity type",
			activity: &model.Activity{
				ProjectID: "project1",
				Type:      "note",
			},
			wantSkipped: true,
		},
		{
			name:     "missing project",
			activity: &model.Activity{Type: model.ActivityTypeRelease},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outbox := mail.NewOutbox()
			summaries := &mockSummaryNotifier{}
			uc := usecase.NewActivity(
				newNotifier(t, newRepository(t, newDataset()), outbox),
				usecase.WithSummaryNotifier(summaries),
			)

			summary, err := uc.HandleActivity(ctx, tt.activity)
			if tt.wantErr {
				gt.Error(t, err)
				return
			}
			gt.NoError(t, err)
			gt.V(t, summary.Skipped).Equal(tt.wantSkipped)
			gt.A(t, outbox.Messages()).Length(tt.wantMessages)

			if tt.wantSkipped {
				gt.A(t, summaries.calls).Length(0)
			} else {
				gt.A(t, summaries.calls).Length(1)
			}
		})
	}
}

func TestActivityUseCase_SummaryFailureIsNotFatal(t *testing.T) {
	outbox := mail.NewOutbox()
	summaries := &mockSummaryNotifier{
		NotifySummaryFunc: func(ctx context.Context, summary *model.DeliverySummary) error {
			return errors.New("slack down")
		},
	}
	uc := usecase.NewActivity(
		newNotifier(t, newRepository(t, newDataset()), outbox),
		usecase.WithSummaryNotifier(summaries),
	)

	summary, err := uc.HandleActivity(context.Background(), newDeployActivity())
	gt.NoError(t, err)
	gt.V(t, summary.Recipients).Equal([]string{"foo@example.com"})
	gt.A(t, outbox.Messages()).Length(1)
}

func TestActivityUseCase_NotFound(t *testing.T) {
	uc := usecase.NewActivity(newNotifier(t, newRepository(t, newDataset()), mail.NewOutbox()))

	activity := newDeployActivity()
	activity.ProjectID = "unknown"
	_, err := uc.HandleActivity(context.Background(), activity)
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, types.ErrTagNotFound))
}
