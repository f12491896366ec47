// Package guard decides whether a route may be entered given the
// current session.
package guard

import (
	"fmt"
	"net/url"

	"github.com/coinvest-dev/coinvest/internal/cli/routes"
	"github.com/coinvest-dev/coinvest/internal/cli/session"
	"github.com/coinvest-dev/coinvest/internal/models"
)

// Kind is the outcome of a guard evaluation
type Kind int

const (
	// Render lets the guarded command run
	Render Kind = iota
	// Loading means the session is not settled yet; show nothing else
	Loading
	// Redirect sends the user elsewhere
	Redirect
)

func (k Kind) String() string {
	switch k {
	case Loading:
		return "loading"
	case Redirect:
		return "redirect"
	default:
		return "render"
	}
}

// Decision is what a guard wants done for one location
type Decision struct {
	Kind Kind
	// To is the redirect target
	To string
	// From is the attempted location, set on redirects to login
	From string
}

// Guard requires a session and, when Roles is non-empty, one of the
// listed roles. The zero Guard requires authentication only.
type Guard struct {
	Roles []models.Role

	// denyAll marks a nested guard whose role lists share no role
	denyAll bool
}

// RequireAuth is the general authentication guard
func RequireAuth() Guard {
	return Guard{}
}

// RequireRoles restricts a subtree to roles
func RequireRoles(roles ...models.Role) Guard {
	return Guard{Roles: roles}
}

// Nest combines an outer and inner guard into one. The result is
// evaluated once, so a nested pair yields at most one redirect.
func Nest(outer, inner Guard) Guard {
	if outer.denyAll || inner.denyAll {
		return Guard{denyAll: true}
	}
	switch {
	case len(outer.Roles) == 0:
		return Guard{Roles: inner.Roles}
	case len(inner.Roles) == 0:
		return Guard{Roles: outer.Roles}
	}

	var roles []models.Role
	for _, r := range outer.Roles {
		if hasRole(inner.Roles, r) {
			roles = append(roles, r)
		}
	}
	if len(roles) == 0 {
		return Guard{denyAll: true}
	}
	return Guard{Roles: roles}
}

// ForPath returns the guard protecting path, or false for routes open to
// everyone.
func ForPath(path string) (Guard, bool) {
	if !routes.RequiresAuth(path) {
		return Guard{}, false
	}
	g := RequireAuth()
	if roles := routes.AllowedRoles(path); len(roles) > 0 {
		g = Nest(g, RequireRoles(roles...))
	}
	return g, true
}

// Allows reports whether role passes the role check
func (g Guard) Allows(role models.Role) bool {
	if g.denyAll {
		return false
	}
	return len(g.Roles) == 0 || hasRole(g.Roles, role)
}

// Evaluate decides what to do for location under state
func (g Guard) Evaluate(state session.State, location string) Decision {
	if state.IsLoading {
		return Decision{Kind: Loading}
	}
	if !state.IsAuthenticated || state.User == nil {
		return Decision{Kind: Redirect, To: routes.Login, From: routes.Clean(location)}
	}
	if !g.Allows(state.User.Role) {
		return Decision{Kind: Redirect, To: mismatchTarget(state.User.Role)}
	}
	return Decision{Kind: Render}
}

// mismatchTarget is where a role is sent from a subtree it does not own
func mismatchTarget(role models.Role) string {
	if role == models.RoleInvestor {
		return routes.UserDashboard
	}
	return routes.Home
}

func hasRole(roles []models.Role, role models.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// LoginLocation is the login path carrying from as its return location
func LoginLocation(from string) string {
	if from == "" {
		return routes.Login
	}
	return routes.Login + "?" + url.Values{"from": {from}}.Encode()
}

// RedirectError reports that a guarded command was not run
type RedirectError struct {
	Decision Decision
}

func (e *RedirectError) Error() string {
	if e.Decision.To == routes.Login {
		return "login required: run `coinvest login`"
	}
	return fmt.Sprintf("access denied: redirected to %s", e.Decision.To)
}
