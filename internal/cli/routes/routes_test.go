package routes

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coinvest-dev/coinvest/internal/models"
)

func TestGroupOf(t *testing.T) {
	tests := map[string]Group{
		"/":                        GroupPublic,
		"/plans":                   GroupPublic,
		"/login":                   GroupAuth,
		"/reset-password?token=x":  GroupAuth,
		"/dashboard":               GroupUser,
		"/dashboard/withdrawals/":  GroupUser,
		"/dashboardx":              GroupPublic,
		"/admin/users":             GroupAdmin,
		"/admin":                   GroupAdmin,
		"/administrator":           GroupPublic,
	}
	for path, want := range tests {
		assert.Equal(t, want, GroupOf(path), path)
	}
}

func TestPostLoginTarget(t *testing.T) {
	admin := &models.User{ID: "a", Role: models.RoleAdmin}
	investor := &models.User{ID: "i", Role: models.RoleInvestor}
	support := &models.User{ID: "s", Role: models.RoleSupportAgent}

	tests := []struct {
		name string
		user *models.User
		from string
		want string
	}{
		{"admin returns to admin page", admin, "/admin/users", "/admin/users"},
		{"investor cannot return to admin page", investor, "/admin/users", UserDashboard},
		{"investor returns to dashboard page", investor, "/dashboard/withdrawals", "/dashboard/withdrawals"},
		{"auth page is never a target", admin, "/register", AdminDashboard},
		{"no from uses admin default", admin, "", AdminDashboard},
		{"no from uses investor default", investor, "", UserDashboard},
		{"admin may return to user area", admin, "/dashboard", "/dashboard"},
		{"public page is honored", investor, "/plans", "/plans"},
		{"query string is dropped", investor, "/dashboard/investments?page=2", "/dashboard/investments"},
		{"unlisted role lands home", support, "", Home},
		{"unlisted role denied admin subtree", support, "/admin/logs", Home},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PostLoginTarget(tt.user, tt.from))
		})
	}
}

func TestRequiresAuth(t *testing.T) {
	assert.True(t, RequiresAuth("/dashboard"))
	assert.True(t, RequiresAuth("/admin/settings"))
	assert.False(t, RequiresAuth("/plans"))
	assert.False(t, RequiresAuth("/login"))
}

func TestFromParam(t *testing.T) {
	assert.Equal(t, "/admin/users", FromParam("/login?from=%2Fadmin%2Fusers"))
	assert.Equal(t, "", FromParam("/login"))
}
