package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleHierarchy(t *testing.T) {
	assert.True(t, RoleViewer.Allows(RoleViewer))
	assert.False(t, RoleViewer.Allows(RoleModerator))

	assert.True(t, RoleModerator.Allows(RoleViewer))
	assert.True(t, RoleModerator.Allows(RoleModerator))
	assert.False(t, RoleModerator.Allows(RoleAdmin))

	assert.True(t, RoleAdmin.Allows(RoleModerator))
	assert.False(t, RoleAdmin.Allows(RoleSuperAdmin))

	assert.True(t, RoleSuperAdmin.Allows(RoleViewer))
	assert.True(t, RoleSuperAdmin.Allows(RoleAdmin))
	assert.True(t, RoleSuperAdmin.Allows(RoleSuperAdmin))
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleAdmin, ParseRole("admin"))
	assert.Equal(t, RoleSuperAdmin, ParseRole("superadmin"))
	// Unknown roles fall back to the least-privileged tier.
	assert.Equal(t, RoleViewer, ParseRole("root"))
	assert.Equal(t, RoleViewer, ParseRole(""))
	assert.Equal(t, RoleViewer, ParseRole("Admin"))
}
