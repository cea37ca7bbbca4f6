package authz

// Actions form a closed set. Extend by adding rows to PermissionRoles,
// never by branching on role names at call sites.
const (
	CreateWorkspace   = "create_workspace"
	EditWorkspace     = "edit_workspace"
	DeleteWorkspace   = "delete_workspace"
	InviteMember      = "invite_member"
	ChangeMemberRole  = "change_member_role"
	CreateContent     = "create_content"
	EditContent       = "edit_content"
	DeleteContent     = "delete_content"
	ViewContent       = "view_content"
	ScheduleContent   = "schedule_content"
	ViewAnalytics     = "view_analytics"
	TransferOwnership = "transfer_ownership"
)

// PermissionRoles maps each action to the roles allowed to perform it.
// Note: transfer_ownership additionally requires the actor to be the
// literal current owner of the workspace; services enforce that on top
// of this table (see membership.Service.TransferOwnership).
var PermissionRoles = map[string][]string{
	CreateWorkspace:   {Admin, Owner},
	EditWorkspace:     {Admin, Owner},
	DeleteWorkspace:   {Owner},
	InviteMember:      {Admin, Owner},
	ChangeMemberRole:  {Admin, Owner},
	CreateContent:     {Editor, Admin, Owner},
	EditContent:       {Editor, Admin, Owner},
	DeleteContent:     {Editor, Admin, Owner},
	ViewContent:       {Viewer, Editor, Admin, Owner},
	ScheduleContent:   {Editor, Admin, Owner},
	ViewAnalytics:     {Admin, Owner},
	TransferOwnership: {Owner},
}

// Can returns true if role may perform action. Unknown roles and unknown
// actions are denied.
func Can(role, action string) bool {
	roles, ok := PermissionRoles[action]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
