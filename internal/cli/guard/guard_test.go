package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coinvest-dev/coinvest/internal/cli/routes"
	"github.com/coinvest-dev/coinvest/internal/cli/session"
	"github.com/coinvest-dev/coinvest/internal/models"
)

func stateFor(role models.Role) session.State {
	return session.State{
		User:            &models.User{ID: "u1", Role: role},
		IsAuthenticated: true,
	}
}

func TestEvaluate(t *testing.T) {
	admin := RequireRoles(models.RoleAdmin)

	tests := []struct {
		name     string
		guard    Guard
		state    session.State
		location string
		want     Decision
	}{
		{
			name:  "loading renders nothing else",
			guard: admin,
			state: session.State{IsLoading: true, User: &models.User{Role: models.RoleAdmin}, IsAuthenticated: true},
			want:  Decision{Kind: Loading},
		},
		{
			name:     "anonymous goes to login with from",
			guard:    admin,
			state:    session.State{},
			location: "/admin/users/",
			want:     Decision{Kind: Redirect, To: routes.Login, From: routes.AdminUsers},
		},
		{
			name:     "investor on admin page goes to dashboard",
			guard:    admin,
			state:    stateFor(models.RoleInvestor),
			location: routes.AdminUsers,
			want:     Decision{Kind: Redirect, To: routes.UserDashboard},
		},
		{
			name:     "other role goes home",
			guard:    admin,
			state:    stateFor(models.RoleSupportAgent),
			location: routes.AdminUsers,
			want:     Decision{Kind: Redirect, To: routes.Home},
		},
		{
			name:     "admin on admin page renders",
			guard:    admin,
			state:    stateFor(models.RoleAdmin),
			location: routes.AdminUsers,
			want:     Decision{Kind: Render},
		},
		{
			name:     "any role passes auth-only guard",
			guard:    RequireAuth(),
			state:    stateFor(models.RoleSupportAgent),
			location: routes.UserDashboard,
			want:     Decision{Kind: Render},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.guard.Evaluate(tt.state, tt.location))
		})
	}
}

func TestNest_IsOneCombinedCheck(t *testing.T) {
	outer := RequireAuth()
	inner := RequireRoles(models.RoleAdmin)
	nested := Nest(outer, inner)

	for _, st := range []session.State{
		{},
		{IsLoading: true},
		stateFor(models.RoleInvestor),
		stateFor(models.RoleAdmin),
		stateFor(models.RoleSupportAgent),
	} {
		// evaluating outer then inner yields the same first non-render outcome
		sequential := outer.Evaluate(st, routes.AdminLogs)
		if sequential.Kind == Render {
			sequential = inner.Evaluate(st, routes.AdminLogs)
		}
		assert.Equal(t, sequential, nested.Evaluate(st, routes.AdminLogs))
	}
}

func TestNest_DisjointRolesDenyEveryone(t *testing.T) {
	g := Nest(RequireRoles(models.RoleAdmin), RequireRoles(models.RoleSupportAgent))
	assert.False(t, g.Allows(models.RoleAdmin))
	assert.False(t, g.Allows(models.RoleSupportAgent))

	g = Nest(RequireRoles(models.RoleAdmin, models.RoleSupportAgent), RequireRoles(models.RoleSupportAgent))
	assert.Equal(t, []models.Role{models.RoleSupportAgent}, g.Roles)
}

func TestForPath(t *testing.T) {
	_, guarded := ForPath(routes.Plans)
	assert.False(t, guarded)
	_, guarded = ForPath(routes.Login)
	assert.False(t, guarded)

	g, guarded := ForPath(routes.Withdrawals)
	assert.True(t, guarded)
	assert.True(t, g.Allows(models.RoleInvestor))

	g, guarded = ForPath(routes.AdminSettings)
	assert.True(t, guarded)
	assert.False(t, g.Allows(models.RoleInvestor))
	assert.True(t, g.Allows(models.RoleAdmin))
}

func TestLoginLocation(t *testing.T) {
	assert.Equal(t, "/login", LoginLocation(""))
	assert.Equal(t, "/login?from=%2Fadmin%2Fusers", LoginLocation(routes.AdminUsers))
}
