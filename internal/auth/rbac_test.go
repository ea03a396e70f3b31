package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllow(t *testing.T) {
	assert.True(t, Allow([]Role{RoleViewer}, PermToolsRead))
	assert.True(t, Allow([]Role{RoleViewer}, PermGraphQuery))
	assert.False(t, Allow([]Role{RoleViewer}, PermToolsExecute))
	assert.True(t, Allow([]Role{RoleDeveloper}, PermToolsExecute))
	assert.False(t, Allow([]Role{RoleDeveloper}, PermSystemAdmin))
	assert.True(t, Allow([]Role{RoleAdmin}, PermSystemAdmin))
	assert.True(t, Allow([]Role{RoleAdmin}, PermGraphUpsert))
	assert.False(t, Allow(nil, PermToolsRead))
}

func TestRoleHierarchyIsStrictSuperset(t *testing.T) {
	for p := range RolePermissions[RoleViewer] {
		assert.True(t, RolePermissions[RoleDeveloper][p], "developer missing viewer permission %s", p)
	}
	for p := range RolePermissions[RoleDeveloper] {
		assert.True(t, RolePermissions[RoleAdmin][p], "admin missing developer permission %s", p)
	}
}

func TestParseRole(t *testing.T) {
	_, ok := ParseRole("superuser")
	assert.False(t, ok)

	r, ok := ParseRole("admin")
	assert.True(t, ok)
	assert.Equal(t, RoleAdmin, r)
}
