package model

import "time"

// ReleaseContext is the data rendered into a release notification, shared by
// all recipients
type ReleaseContext struct {
	Organization *Organization
	Release      *Release
	ShortVersion string
	// Deploy is nil when the activity has no deploy
	Deploy *Deploy
	// Environment is empty when the activity has no deploy
	Environment  string
	Repos        []*RepoCommits
	Projects     []*ProjectLink
	TotalCommits int
}

// RepoCommits groups release commits by repository in release order
type RepoCommits struct {
	Repository *Repository
	Name       string
	Commits    []*CommitWithAuthor
}

// CommitWithAuthor pairs a commit with its resolved author. User is nil when
// the author does not match a registered user.
type CommitWithAuthor struct {
	Commit *Commit
	Author *CommitAuthor
	User   *User
}

// ProjectLink is a release project with the URL of its release page
type ProjectLink struct {
	Project     *Project
	ReleaseLink string
}

// UserReleaseContext is ReleaseContext narrowed to one recipient. Projects
// shadows ReleaseContext.Projects and holds only projects the user can access.
type UserReleaseContext struct {
	*ReleaseContext
	User     *User
	Reason   Reason
	Projects []*ProjectLink
}

// EmailMessage is a rendered message ready for delivery
type EmailMessage struct {
	ID        string            `json:"id"`
	From      string            `json:"from"`
	To        []string          `json:"to"`
	Subject   string            `json:"subject"`
	TextBody  string            `json:"text_body"`
	HTMLBody  string            `json:"html_body"`
	Headers   map[string]string `json:"headers,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// DeliverySummary describes the outcome of one notification run
type DeliverySummary struct {
	OrganizationID string   `json:"organization_id,omitempty"`
	Version        string   `json:"version"`
	ShortVersion   string   `json:"short_version,omitempty"`
	Environment    string   `json:"environment,omitempty"`
	Recipients     []string `json:"recipients"`
	Skipped        bool     `json:"skipped"`
}
