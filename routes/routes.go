// Package routes maps dashboard paths to the roles allowed to see them and
// decides where a user lands when they may not.
package routes

import (
	"net/url"
	"path"
	"slices"
	"strings"

	"github.com/jrsteele09/evcharge-client/users"
)

const (
	PathLogin          = "/login"
	PathRegister       = "/register"
	PathUserDashboard  = "/user-dashboard"
	PathHostDashboard  = "/host-dashboard"
	PathAdminDashboard = "/admin-dashboard"
)

// Route is one entry of the route table. Prefix matches itself and everything below it.
type Route struct {
	Prefix string
	Public bool
	Roles  []users.Role
}

// Allows reports whether role may open the route.
func (r Route) Allows(role users.Role) bool {
	return r.Public || slices.Contains(r.Roles, role)
}

var table = []Route{
	{Prefix: PathLogin, Public: true},
	{Prefix: PathRegister, Public: true},
	{Prefix: PathUserDashboard, Roles: []users.Role{users.RoleUser}},
	{Prefix: PathHostDashboard, Roles: []users.Role{users.RoleHost}},
	{Prefix: PathAdminDashboard, Roles: []users.Role{users.RoleAdmin}},
}

// Table returns a copy of the route table.
func Table() []Route {
	return slices.Clone(table)
}

// DefaultPath is the landing page for a role. Anything that is neither admin
// nor host lands on the user dashboard.
func DefaultPath(role users.Role) string {
	switch role {
	case users.RoleAdmin:
		return PathAdminDashboard
	case users.RoleHost:
		return PathHostDashboard
	default:
		return PathUserDashboard
	}
}

// Resolve finds the route serving path. Query strings and fragments are ignored.
func Resolve(path string) (Route, bool) {
	p := Clean(path)
	for _, r := range table {
		if p == r.Prefix || strings.HasPrefix(p, r.Prefix+"/") {
			return r, true
		}
	}
	return Route{}, false
}

// Clean strips the query and fragment, then normalises slashes and resolves
// dot segments so a path is matched by where it actually leads.
func Clean(raw string) string {
	if u, err := url.Parse(raw); err == nil {
		raw = u.Path
	}
	return path.Clean("/" + raw)
}
