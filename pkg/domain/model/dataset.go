package model

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
)

// Dataset is a bulk set of entities used to seed a store
type Dataset struct {
	Organizations  []*Organization  `toml:"organizations"`
	Teams          []*Team          `toml:"teams"`
	Projects       []*Project       `toml:"projects"`
	Users          []*User          `toml:"users"`
	UserEmails     []*UserEmail     `toml:"user_emails"`
	Members        []*Member        `toml:"members"`
	Releases       []*Release       `toml:"releases"`
	ReleaseCommits []*ReleaseCommit `toml:"release_commits"`
	Commits        []*Commit        `toml:"commits"`
	CommitAuthors  []*CommitAuthor  `toml:"commit_authors"`
	Repositories   []*Repository    `toml:"repositories"`
	Deploys        []*Deploy        `toml:"deploys"`
	Environments   []*Environment   `toml:"environments"`
}

// ParseDataset decodes a TOML document into a Dataset. Users registered
// without explicit user_emails get their primary address as an unverified
// UserEmail, mirroring account creation.
func ParseDataset(data []byte) (*Dataset, error) {
	var ds Dataset
	if err := toml.Unmarshal(data, &ds); err != nil {
		return nil, goerr.Wrap(err, "failed to decode dataset")
	}

	registered := make(map[string]bool)
	for _, e := range ds.UserEmails {
		registered[string(e.UserID)+"\x00"+NormalizeEmail(e.Email)] = true
	}
	for _, u := range ds.Users {
		if u.Email == "" || registered[string(u.ID)+"\x00"+NormalizeEmail(u.Email)] {
			continue
		}
		ds.UserEmails = append(ds.UserEmails, &UserEmail{UserID: u.ID, Email: u.Email})
	}

	return &ds, nil
}
