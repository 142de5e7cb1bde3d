package normalize

import (
	"strings"

	"coopconsole/internal/models"
)

var roleAliases = map[string]models.Role{
	"COOPERATIVEADMIN":         models.RoleCooperativeAdmin,
	"COOPERATIVEADMINISTRATOR": models.RoleCooperativeAdmin,
	"COOPADMIN":                models.RoleCooperativeAdmin,
	"SUPERADMIN":               models.RoleCooperativeAdmin,
	"ADMIN":                    models.RoleCooperativeAdmin,
	"ASSOCIATIONADMIN":         models.RoleAssociationAdmin,
	"ASSOCIATIONADMINISTRATOR": models.RoleAssociationAdmin,
	"ASSOCADMIN":               models.RoleAssociationAdmin,
	"ASSOCIATIONMANAGER":       models.RoleAssociationAdmin,
}

// ParseRole maps a backend role string onto the closed role set. Case and
// separators are ignored, so "association_admin", "Association-Admin" and
// "associationAdmin" all resolve the same way. Anything else is RoleUnknown.
func ParseRole(s string) models.Role {
	key := strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', ' ', '.':
			return -1
		}
		return r
	}, strings.ToUpper(strings.TrimSpace(s)))
	if role, ok := roleAliases[key]; ok {
		return role
	}
	return models.RoleUnknown
}
