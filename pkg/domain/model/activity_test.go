package model_test

import (
	"encoding/json"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/relnotify/pkg/domain/model"
	"github.com/m-mizutani/relnotify/pkg/domain/types"
)

func TestActivity_Payload(t *testing.T) {
	t.Run("string values", func(t *testing.T) {
		activity := &model.Activity{
			Data: map[string]any{"version": "1.0.0", "deploy_id": "dep-1"},
		}
		gt.V(t, activity.Version()).Equal("1.0.0")
		gt.V(t, activity.DeployID()).Equal(types.DeployID("dep-1"))
	})

	t.Run("numeric deploy_id from JSON", func(t *testing.T) {
		var activity model.Activity
		gt.NoError(t, json.Unmarshal([]byte(`{"project_id":"p1","type":"release","data":{"version":"a","deploy_id":5}}`), &activity))
		gt.V(t, activity.Version()).Equal("a")
		gt.V(t, activity.DeployID()).Equal(types.DeployID("5"))
	})

	t.Run("missing keys", func(t *testing.T) {
		activity := &model.Activity{}
		gt.V(t, activity.Version()).Equal("")
		gt.V(t, activity.DeployID()).Equal(types.DeployID(""))
	})
}

func TestActivity_Validate(t *testing.T) {
	gt.NoError(t, (&model.Activity{ProjectID: "p1", Type: model.ActivityTypeRelease}).Validate())

	err := (&model.Activity{Type: model.ActivityTypeRelease}).Validate()
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, types.ErrTagInvalidArgument))

	gt.Error(t, (&model.Activity{ProjectID: "p1"}).Validate())
}
