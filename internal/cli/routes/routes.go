// Package routes is the client's route table: which paths exist, which
// group they belong to and which roles may enter them.
package routes

import (
	"net/url"
	"strings"

	"github.com/coinvest-dev/coinvest/internal/models"
)

const (
	Home           = "/"
	Plans          = "/plans"
	PlanGuide      = "/plans/guide"
	Prices         = "/prices"
	Login          = "/login"
	Register       = "/register"
	ForgotPassword = "/forgot-password"
	ResetPassword  = "/reset-password"
	VerifyEmail    = "/verify-email"

	UserDashboard = "/dashboard"
	Investments   = "/dashboard/investments"
	Invest        = "/dashboard/invest"
	Withdrawals   = "/dashboard/withdrawals"
	Notifications = "/dashboard/notifications"
	Profile       = "/dashboard/profile"
	Activity      = "/dashboard/activity"

	AdminDashboard   = "/admin/dashboard"
	AdminUsers       = "/admin/users"
	AdminPlans       = "/admin/plans"
	AdminInvestments = "/admin/investments"
	AdminWithdrawals = "/admin/withdrawals"
	AdminSettings    = "/admin/settings"
	AdminAnnounce    = "/admin/announcements"
	AdminLogs        = "/admin/logs"
)

// Group partitions the route table
type Group int

const (
	GroupPublic Group = iota
	GroupAuth
	GroupUser
	GroupAdmin
)

func (g Group) String() string {
	switch g {
	case GroupAuth:
		return "auth"
	case GroupUser:
		return "user"
	case GroupAdmin:
		return "admin"
	default:
		return "public"
	}
}

const (
	userPrefix  = "/dashboard"
	adminPrefix = "/admin"
)

var authPages = []string{Login, Register, ForgotPassword, ResetPassword, VerifyEmail}

// Clean strips query and fragment and normalizes trailing slashes
func Clean(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return Home
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	if path == "" {
		return Home
	}
	return path
}

// underPrefix reports whether path equals prefix or lies beneath it
func underPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// GroupOf classifies path
func GroupOf(path string) Group {
	path = Clean(path)
	switch {
	case IsAuthPage(path):
		return GroupAuth
	case underPrefix(path, adminPrefix):
		return GroupAdmin
	case underPrefix(path, userPrefix):
		return GroupUser
	default:
		return GroupPublic
	}
}

// IsAuthPage reports whether path is one of the login/register/password pages
func IsAuthPage(path string) bool {
	path = Clean(path)
	for _, p := range authPages {
		if underPrefix(path, p) {
			return true
		}
	}
	return false
}

// AllowedRoles returns the role allow-list of path's group. Nil means any
// authenticated user (user group) or no authentication at all (public and
// auth groups).
func AllowedRoles(path string) []models.Role {
	if GroupOf(path) == GroupAdmin {
		return []models.Role{models.RoleAdmin}
	}
	return nil
}

// RequiresAuth reports whether path needs a session
func RequiresAuth(path string) bool {
	g := GroupOf(path)
	return g == GroupUser || g == GroupAdmin
}

// RoleCanAccess reports whether role may enter path's subtree
func RoleCanAccess(role models.Role, path string) bool {
	allowed := AllowedRoles(path)
	if len(allowed) == 0 {
		return true
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// DefaultLanding is where a role lands after login when no return path
// applies. Roles other than Admin and Investor have no dedicated area and
// land on the public home page.
func DefaultLanding(role models.Role) string {
	switch role {
	case models.RoleAdmin:
		return AdminDashboard
	case models.RoleInvestor:
		return UserDashboard
	default:
		return Home
	}
}

// PostLoginTarget picks where to send user after login. from is the path
// the user was bounced away from, if any. It is honored unless it is an
// auth page or a subtree the user's role cannot access.
func PostLoginTarget(user *models.User, from string) string {
	if user == nil {
		return Login
	}
	if from != "" {
		from = Clean(from)
		if !IsAuthPage(from) && RoleCanAccess(user.Role, from) {
			return from
		}
	}
	return DefaultLanding(user.Role)
}

// FromParam returns the from query parameter of a login location
func FromParam(location string) string {
	u, err := url.Parse(location)
	if err != nil {
		return ""
	}
	return u.Query().Get("from")
}
