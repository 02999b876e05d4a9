package authz

import (
	"strings"

	"github.com/morezero/operation-engine/pkg/operation"
)

// PermissionChecker is the external security collaborator.
type PermissionChecker interface {
	// HasPermissions reports whether identity holds every named permission on entity.
	HasPermissions(identity operation.Identity, entity operation.Entity, permissions []string) bool
	// CanSee reports whether identity may perceive entity at all.
	CanSee(identity operation.Identity, entity operation.Entity) bool
}

// AllowAll grants everything. It is the checker used when none is configured.
type AllowAll struct{}

func (AllowAll) HasPermissions(operation.Identity, operation.Entity, []string) bool { return true }
func (AllowAll) CanSee(operation.Identity, operation.Entity) bool                   { return true }

// WildcardPermission grants every permission to a role.
const WildcardPermission = "*"

// RoleGrants derives permissions from role membership.
//
// Permissions maps a role to the permissions it grants. Visibility restricts
// entity types to callers holding one of the listed roles; types not listed are
// visible to everyone. Role and type names compare case-insensitively.
type RoleGrants struct {
	Permissions map[string][]string
	Visibility  map[string][]string
}

// HasPermissions implements PermissionChecker.
func (g *RoleGrants) HasPermissions(identity operation.Identity, _ operation.Entity, permissions []string) bool {
	granted := make(map[string]struct{})
	for _, role := range identity.Roles() {
		for r, perms := range g.Permissions {
			if !strings.EqualFold(r, role) {
				continue
			}
			for _, p := range perms {
				granted[strings.ToLower(p)] = struct{}{}
			}
		}
	}
	if _, ok := granted[WildcardPermission]; ok {
		return true
	}
	for _, p := range permissions {
		if _, ok := granted[strings.ToLower(p)]; !ok {
			return false
		}
	}
	return true
}

// CanSee implements PermissionChecker.
func (g *RoleGrants) CanSee(identity operation.Identity, entity operation.Entity) bool {
	for typ, roles := range g.Visibility {
		if !strings.EqualFold(typ, entity.TypeName()) {
			continue
		}
		return hasAnyRole(identity, roles)
	}
	return true
}

func hasAnyRole(identity operation.Identity, roles []string) bool {
	for _, want := range roles {
		for _, have := range identity.Roles() {
			if strings.EqualFold(want, have) {
				return true
			}
		}
	}
	return false
}
