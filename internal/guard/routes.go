package guard

import "coopconsole/internal/models"

// Routes maps a view path to the roles allowed to see it. A nil slice means
// any signed-in role.
type Routes map[string][]models.Role

var (
	cooperativeOnly = []models.Role{models.RoleCooperativeAdmin}
	associationOnly = []models.Role{models.RoleAssociationAdmin}
)

// Paths of the console views beyond the dashboards.
const (
	PathAssociations  = "/associations"
	PathMembers       = "/association/members"
	PathNotifications = "/notifications"
	PathProfile       = "/profile"
)

// ConsoleRoutes is the console's routing table.
func ConsoleRoutes() Routes {
	return Routes{
		PathCooperativeDashboard: cooperativeOnly,
		PathAssociations:         cooperativeOnly,
		PathAssociationDashboard: associationOnly,
		PathMembers:              associationOnly,
		PathNotifications:        nil,
		PathProfile:              nil,
	}
}

// Request builds the guard request for path. Unknown paths admit nobody
// without a session but any signed-in role.
func (r Routes) Request(path string) Request {
	return Request{Path: path, AllowedRoles: r[path]}
}
