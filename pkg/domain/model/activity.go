package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/relnotify/pkg/domain/types"
)

// ActivityType tags the kind of event an Activity records
type ActivityType string

const (
	ActivityTypeRelease ActivityType = "release"
	ActivityTypeDeploy  ActivityType = "deploy"
)

// Activity is an event record driving a notification
type Activity struct {
	ID        types.ActivityID `json:"id"`
	ProjectID types.ProjectID  `json:"project_id"`
	UserID    types.UserID     `json:"user_id,omitempty"`
	Type      ActivityType     `json:"type"`
	Data      map[string]any   `json:"data"`
	DateAdded time.Time        `json:"date_added"`
}

// Validate checks required fields
func (x *Activity) Validate() error {
	if x.ProjectID == "" {
		return goerr.New("project_id is required", goerr.T(types.ErrTagInvalidArgument))
	}
	if x.Type == "" {
		return goerr.New("type is required", goerr.T(types.ErrTagInvalidArgument))
	}
	return nil
}

// Version returns the release version in the payload
func (x *Activity) Version() string {
	return dataString(x.Data, "version")
}

// DeployID returns the deploy ID in the payload, or empty if none
func (x *Activity) DeployID() types.DeployID {
	return types.DeployID(dataString(x.Data, "deploy_id"))
}

// dataString reads a payload value as string. Numbers are accepted because
// JSON producers commonly send numeric IDs.
func dataString(data map[string]any, key string) string {
	switch v := data[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
