package model

import (
	"regexp"
	"time"

	"github.com/m-mizutani/relnotify/pkg/domain/types"
)

// Release is a deployable version of a codebase
type Release struct {
	ID             types.ReleaseID      `json:"id" firestore:"id" toml:"id"`
	OrganizationID types.OrganizationID `json:"organization_id" firestore:"organization_id" toml:"organization_id"`
	Version        string               `json:"version" firestore:"version" toml:"version"`
	ProjectIDs     []types.ProjectID    `json:"project_ids" firestore:"project_ids" toml:"project_ids"`
	DateReleased   time.Time            `json:"date_released" firestore:"date_released" toml:"date_released"`
}

// ShortVersion returns the display form of the release version
func (x *Release) ShortVersion() string {
	return ShortVersion(x.Version)
}

var sha1Pattern = regexp.MustCompile(`^[a-f0-9]{40}$`)

// ShortVersion truncates a full SHA-1 version to 12 characters
func ShortVersion(version string) string {
	if sha1Pattern.MatchString(version) {
		return version[:12]
	}
	return version
}

// ReleaseCommit associates a commit with a release at a position
type ReleaseCommit struct {
	ReleaseID types.ReleaseID `json:"release_id" firestore:"release_id" toml:"release_id"`
	CommitID  types.CommitID  `json:"commit_id" firestore:"commit_id" toml:"commit_id"`
	Order     int             `json:"order" firestore:"order" toml:"order"`
}

// Commit is a commit in a repository
type Commit struct {
	ID             types.CommitID       `json:"id" firestore:"id" toml:"id"`
	OrganizationID types.OrganizationID `json:"organization_id" firestore:"organization_id" toml:"organization_id"`
	RepositoryID   types.RepositoryID   `json:"repository_id" firestore:"repository_id" toml:"repository_id"`
	Key            string               `json:"key" firestore:"key" toml:"key"`
	Message        string               `json:"message" firestore:"message" toml:"message"`
	AuthorID       types.CommitAuthorID `json:"author_id,omitempty" firestore:"author_id" toml:"author_id"`
	DateAdded      time.Time            `json:"date_added" firestore:"date_added" toml:"date_added"`
}

// ShortKey returns the abbreviated commit SHA
func (x *Commit) ShortKey() string {
	if len(x.Key) > 7 {
		return x.Key[:7]
	}
	return x.Key
}

// Title returns the first line of the commit message
func (x *Commit) Title() string {
	for i, c := range x.Message {
		if c == '\n' {
			return x.Message[:i]
		}
	}
	return x.Message
}

// CommitAuthor is the author recorded in commit metadata. It may not map to a
// registered user.
type CommitAuthor struct {
	ID             types.CommitAuthorID `json:"id" firestore:"id" toml:"id"`
	OrganizationID types.OrganizationID `json:"organization_id" firestore:"organization_id" toml:"organization_id"`
	Name           string               `json:"name" firestore:"name" toml:"name"`
	Email          string               `json:"email" firestore:"email" toml:"email"`
}

// Repository is a source code repository
type Repository struct {
	ID             types.RepositoryID   `json:"id" firestore:"id" toml:"id"`
	OrganizationID types.OrganizationID `json:"organization_id" firestore:"organization_id" toml:"organization_id"`
	Name           string               `json:"name" firestore:"name" toml:"name"`
	URL            string               `json:"url,omitempty" firestore:"url" toml:"url"`
}

// Deploy is a release deployed to an environment
type Deploy struct {
	ID             types.DeployID       `json:"id" firestore:"id" toml:"id"`
	OrganizationID types.OrganizationID `json:"organization_id" firestore:"organization_id" toml:"organization_id"`
	ReleaseID      types.ReleaseID      `json:"release_id" firestore:"release_id" toml:"release_id"`
	EnvironmentID  types.EnvironmentID  `json:"environment_id" firestore:"environment_id" toml:"environment_id"`
	DateFinished   time.Time            `json:"date_finished" firestore:"date_finished" toml:"date_finished"`
}

// Environment is a deploy target such as production
type Environment struct {
	ID             types.EnvironmentID  `json:"id" firestore:"id" toml:"id"`
	OrganizationID types.OrganizationID `json:"organization_id" firestore:"organization_id" toml:"organization_id"`
	Name           string               `json:"name" firestore:"name" toml:"name"`
}
