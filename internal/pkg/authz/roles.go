package authz

const (
	Owner  = "owner"
	Admin  = "admin"
	Editor = "editor"
	Viewer = "viewer"
)

// ValidRoles is the set of allowed DB enum values for membership role
// (must match enum_workspace_members_role).
var ValidRoles = []string{Viewer, Editor, Admin, Owner}

// roleRank orders roles by privilege: owner > admin > editor > viewer.
var roleRank = map[string]int{
	Viewer: 1,
	Editor: 2,
	Admin:  3,
	Owner:  4,
}

// IsValidRole returns true if role is one of the allowed enum values.
func IsValidRole(role string) bool {
	_, ok := roleRank[role]
	return ok
}

// Outranks returns true if role a is strictly more privileged than role b.
// Unknown roles rank below everything.
func Outranks(a, b string) bool {
	return roleRank[a] > roleRank[b]
}
