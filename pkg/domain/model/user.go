package model

import (
	"strings"

	"github.com/m-mizutani/relnotify/pkg/domain/types"
)

// DeployEmailPreference controls which deploy notifications a user receives
type DeployEmailPreference string

const (
	// DeployEmailsAlways sends every deploy of projects the user can access
	DeployEmailsAlways DeployEmailPreference = "always"
	// DeployEmailsCommitted sends deploys containing the user's commits
	DeployEmailsCommitted DeployEmailPreference = "committed"
	// DeployEmailsNever disables deploy notifications
	DeployEmailsNever DeployEmailPreference = "never"
)

// User is a registered account
type User struct {
	ID       types.UserID `json:"id" firestore:"id" toml:"id"`
	Name     string       `json:"name" firestore:"name" toml:"name"`
	Email    string       `json:"email" firestore:"email" toml:"email"`
	IsActive bool         `json:"is_active" firestore:"is_active" toml:"is_active"`

	DeployEmails DeployEmailPreference `json:"deploy_emails,omitempty" firestore:"deploy_emails" toml:"deploy_emails"`
}

// DeployEmailPreference returns the user's preference, defaulting to committed
func (x *User) DeployEmailPreference() DeployEmailPreference {
	switch x.DeployEmails {
	case DeployEmailsAlways, DeployEmailsNever:
		return x.DeployEmails
	default:
		return DeployEmailsCommitted
	}
}

// UserEmail is an address registered to a user. Only verified addresses are
// used to match commit authors.
type UserEmail struct {
	UserID     types.UserID `json:"user_id" firestore:"user_id" toml:"user_id"`
	Email      string       `json:"email" firestore:"email" toml:"email"`
	IsVerified bool         `json:"is_verified" firestore:"is_verified" toml:"is_verified"`
}

// NormalizeEmail lowercases and trims an address for comparison
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
