// Package guard decides whether a requested console view may be shown.
//
// Decide is a pure function over the session state and the route's allowed
// roles. It performs no I/O; the caller acts on the returned Decision.
package guard

import (
	"slices"

	"coopconsole/internal/models"
)

// Well-known paths.
const (
	PathSignIn               = "/login"
	PathCooperativeDashboard = "/dashboard"
	PathAssociationDashboard = "/association/dashboard"
)

// Kind is what the caller should do with the requested view.
type Kind int

const (
	// Wait renders a neutral placeholder; the session is still being restored.
	Wait Kind = iota
	// Render shows the requested view.
	Render
	// Redirect navigates to Decision.Path instead.
	Redirect
)

func (k Kind) String() string {
	switch k {
	case Wait:
		return "wait"
	case Render:
		return "render"
	default:
		return "redirect"
	}
}

// State is the slice of the session the guard looks at.
type State struct {
	Loading       bool
	Identity      *models.Identity
	HasCredential bool
}

// Request is the view being asked for. A nil AllowedRoles admits any
// signed-in role.
type Request struct {
	Path         string
	AllowedRoles []models.Role
}

// Decision is the guard's verdict. ReturnTo is set on sign-in redirects so
// the operator lands back on the requested view after signing in.
type Decision struct {
	Kind     Kind
	Path     string
	ReturnTo string
}

// HomePath is the canonical landing view for a role. Unknown roles go to
// sign-in.
func HomePath(role models.Role) string {
	switch role {
	case models.RoleCooperativeAdmin:
		return PathCooperativeDashboard
	case models.RoleAssociationAdmin:
		return PathAssociationDashboard
	default:
		return PathSignIn
	}
}

// Decide applies the guard contract:
//   - loading: wait, never redirect
//   - no credential or no identity: sign-in, remembering the requested path
//   - role outside AllowedRoles: the role's home view
//   - otherwise: render
func Decide(st State, req Request) Decision {
	if st.Loading {
		return Decision{Kind: Wait}
	}
	if st.Identity == nil || !st.HasCredential {
		return Decision{Kind: Redirect, Path: PathSignIn, ReturnTo: returnHint(req.Path)}
	}
	if req.AllowedRoles != nil && !slices.Contains(req.AllowedRoles, st.Identity.Role) {
		return Decision{Kind: Redirect, Path: HomePath(st.Identity.Role)}
	}
	return Decision{Kind: Render, Path: req.Path}
}

func returnHint(path string) string {
	if path == "" || path == PathSignIn {
		return ""
	}
	return path
}

// PostLogin picks where to go after a successful sign-in: the remembered
// path when the routes table admits the role there, otherwise the role home.
func PostLogin(identity models.Identity, returnTo string, routes Routes) string {
	if returnTo != "" {
		if roles, ok := routes[returnTo]; ok && (roles == nil || slices.Contains(roles, identity.Role)) {
			return returnTo
		}
	}
	return HomePath(identity.Role)
}
