// Package rbac ranks workspace roles and the minimum role each action needs.
package rbac

import "strings"

type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleOwner  Role = "owner"
)

// Action is a class of request, not a single endpoint: every page and
// editor mutation is ActionWrite.
type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionManage Action = "manage"
)

var rank = map[Role]int{RoleViewer: 1, RoleEditor: 2, RoleOwner: 3}

var minimum = map[Action]Role{
	ActionRead:   RoleViewer,
	ActionWrite:  RoleEditor,
	ActionManage: RoleOwner,
}

// AtLeast reports whether role ranks at or above other. Unknown roles rank
// below everything.
func (r Role) AtLeast(other Role) bool {
	have, ok := rank[r]
	return ok && have >= rank[other]
}

// Can reports whether role may perform action; unknown actions are denied.
func Can(role Role, action Action) bool {
	need, ok := minimum[action]
	return ok && role.AtLeast(need)
}

// Normalize maps a stored role name to a Role. Unknown names become viewer.
func Normalize(role string) Role {
	r := Role(strings.ToLower(strings.TrimSpace(role)))
	if _, ok := rank[r]; ok {
		return r
	}
	return RoleViewer
}
