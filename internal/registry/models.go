package registry

// AnonymousName is the reserved username and group name for unauthenticated access.
const AnonymousName = "anonymous"

// User is an account that can own identifiers and request downloads.
type User struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Group      string `json:"group"`
	Superuser  bool   `json:"superuser"`
	GroupAdmin bool   `json:"group_admin"`
}

// IsAnonymous reports whether the user is the reserved anonymous account.
func (u User) IsAnonymous() bool { return u.Username == AnonymousName }

// Group is a named set of users.
type Group struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// IsAnonymous reports whether the group is the reserved anonymous group.
func (g Group) IsAnonymous() bool { return g.Name == AnonymousName }

// Record is one identifier with its raw internal metadata.
type Record struct {
	Identifier string            `json:"identifier"`
	Owner      string            `json:"owner"`
	Metadata   map[string]string `json:"metadata"`
}
