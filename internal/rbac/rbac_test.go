package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCan(t *testing.T) {
	cases := []struct {
		role   Role
		action Action
		allow  bool
	}{
		{RoleViewer, ActionRead, true},
		{RoleViewer, ActionWrite, false},
		{RoleEditor, ActionWrite, true},
		{RoleEditor, ActionManage, false},
		{RoleOwner, ActionManage, true},
		{Role("guest"), ActionRead, false},
		{RoleOwner, Action("delete-everything"), false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allow, Can(tc.role, tc.action), "%s %s", tc.role, tc.action)
	}
}

func TestAtLeast(t *testing.T) {
	assert.True(t, RoleOwner.AtLeast(RoleEditor))
	assert.True(t, RoleEditor.AtLeast(RoleEditor))
	assert.False(t, RoleViewer.AtLeast(RoleEditor))
	assert.False(t, Role("").AtLeast(RoleViewer))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, RoleOwner, Normalize("owner"))
	assert.Equal(t, RoleEditor, Normalize(" Editor "))
	assert.Equal(t, RoleViewer, Normalize("admin"))
	assert.Equal(t, RoleViewer, Normalize(""))
}
