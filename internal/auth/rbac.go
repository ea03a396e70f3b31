// Package auth implements the token service and the static RBAC table:
// a plain map from role to its allowed permission set, checked by
// linear scan rather than a dynamic policy engine.
package auth

// Role is one of the three static roles. Higher roles are a strict
// superset of lower roles' permissions — enforced by construction in
// RolePermissions, not checked at runtime.
type Role string

const (
	RoleViewer    Role = "viewer"
	RoleDeveloper Role = "developer"
	RoleAdmin     Role = "admin"
)

// Permission is a (resource, action) pair flattened to a single string,
// e.g. "tools:execute".
type Permission string

const (
	PermToolsRead     Permission = "tools:read"
	PermToolsLint     Permission = "tools:lint"
	PermToolsExecute  Permission = "tools:execute"
	PermToolsTest     Permission = "tools:test"
	PermToolsGenerate Permission = "tools:generate"
	PermGraphQuery    Permission = "graph:query"
	PermGraphUpsert   Permission = "graph:upsert"
	PermSystemAdmin   Permission = "system:admin"
)

// RolePermissions is the literal, totally enumerated permission table.
// No dynamic grants exist anywhere in this system.
var RolePermissions = map[Role]map[Permission]bool{
	RoleViewer: {
		PermToolsRead:  true,
		PermToolsLint:  true,
		PermGraphQuery: true,
	},
	RoleDeveloper: {
		PermToolsRead:     true,
		PermToolsLint:     true,
		PermToolsExecute:  true,
		PermToolsTest:     true,
		PermToolsGenerate: true,
		PermGraphQuery:    true,
	},
	RoleAdmin: {
		PermToolsRead:     true,
		PermToolsLint:     true,
		PermToolsExecute:  true,
		PermToolsTest:     true,
		PermToolsGenerate: true,
		PermGraphQuery:    true,
		PermGraphUpsert:   true,
		PermSystemAdmin:   true,
	},
}

// Allow returns true iff the union of permissions across roles contains
// permission.
func Allow(roles []Role, permission Permission) bool {
	for _, r := range roles {
		if RolePermissions[r][permission] {
			return true
		}
	}
	return false
}

// ParseRole validates a role string against the known, static set.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleViewer, RoleDeveloper, RoleAdmin:
		return Role(s), true
	default:
		return "", false
	}
}
