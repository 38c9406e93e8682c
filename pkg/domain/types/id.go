package types

// Identifiers of persisted entities. They are opaque strings so that both the
// in-memory store and Firestore document IDs can be used as-is.
type (
	OrganizationID string
	ProjectID      string
	TeamID         string
	UserID         string
	ReleaseID      string
	DeployID       string
	EnvironmentID  string
	RepositoryID   string
	CommitID       string
	CommitAuthorID string
	ActivityID     string
)

func (x OrganizationID) String() string { return string(x) }
func (x ProjectID) String() string      { return string(x) }
func (x TeamID) String() string         { return string(x) }
func (x UserID) String() string         { return string(x) }
func (x ReleaseID) String() string      { return string(x) }
func (x DeployID) String() string       { return string(x) }
func (x EnvironmentID) String() string  { return string(x) }
func (x RepositoryID) String() string   { return string(x) }
func (x CommitID) String() string       { return string(x) }
func (x CommitAuthorID) String() string { return string(x) }
func (x ActivityID) String() string     { return string(x) }
