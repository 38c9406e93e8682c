package model

import "github.com/m-mizutani/relnotify/pkg/domain/types"

// Organization owns teams, projects and releases
type Organization struct {
	ID   types.OrganizationID `json:"id" firestore:"id" toml:"id"`
	Slug string               `json:"slug" firestore:"slug" toml:"slug"`
	Name string               `json:"name" firestore:"name" toml:"name"`
}

// Team groups members; project access is granted through teams
type Team struct {
	ID             types.TeamID         `json:"id" firestore:"id" toml:"id"`
	OrganizationID types.OrganizationID `json:"organization_id" firestore:"organization_id" toml:"organization_id"`
	Slug           string               `json:"slug" firestore:"slug" toml:"slug"`
	Name           string               `json:"name" firestore:"name" toml:"name"`
}

// Project is a unit a release can be associated with
type Project struct {
	ID             types.ProjectID      `json:"id" firestore:"id" toml:"id"`
	OrganizationID types.OrganizationID `json:"organization_id" firestore:"organization_id" toml:"organization_id"`
	Slug           string               `json:"slug" firestore:"slug" toml:"slug"`
	Name           string               `json:"name" firestore:"name" toml:"name"`
	TeamIDs        []types.TeamID       `json:"team_ids" firestore:"team_ids" toml:"team_ids"`

	// GitHubRepository is "owner/name" of the repository whose webhooks map to this project
	GitHubRepository string `json:"github_repository,omitempty" firestore:"github_repository" toml:"github_repository"`
}

// Member is a user's membership of an organization
type Member struct {
	OrganizationID types.OrganizationID `json:"organization_id" firestore:"organization_id" toml:"organization_id"`
	UserID         types.UserID         `json:"user_id" firestore:"user_id" toml:"user_id"`
	TeamIDs        []types.TeamID       `json:"team_ids" firestore:"team_ids" toml:"team_ids"`
}

// CanAccess returns true if the member belongs to at least one of the project's teams
func (x *Member) CanAccess(project *Project) bool {
	if x == nil || project == nil {
		return false
	}
	for _, memberTeam := range x.TeamIDs {
		for _, projectTeam := range project.TeamIDs {
			if memberTeam == projectTeam {
				return true
			}
		}
	}
	return false
}
