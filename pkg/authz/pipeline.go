package authz

import (
	"fmt"
	"strings"

	"github.com/morezero/operation-engine/pkg/operation"
)

// ContentTypeCheck reports whether a descriptor applies to the entity's type.
type ContentTypeCheck func(entity operation.Entity, d *operation.Descriptor) bool

// RoleCheck reports whether the identity belongs to an allowed role.
type RoleCheck func(identity operation.Identity, d *operation.Descriptor) bool

// PermissionCheck reports whether the identity holds the required permissions on the entity.
type PermissionCheck func(identity operation.Identity, entity operation.Entity, d *operation.Descriptor) bool

// PolicyCheck evaluates the named policies attached to the descriptor.
type PolicyCheck func(identity operation.Identity, call *operation.CallContext) Decision

// Pipeline runs the four authorization checks. Each check can be replaced.
type Pipeline struct {
	ContentType ContentTypeCheck
	Role        RoleCheck
	Permission  PermissionCheck
	Policy      PolicyCheck

	permissions PermissionChecker
	policies    *PolicyRegistry
}

// NewPipelineParams configures NewPipeline.
type NewPipelineParams struct {
	Permissions PermissionChecker
	Policies    *PolicyRegistry
}

// NewPipeline creates a pipeline with the default checks. A nil checker allows
// everything; a nil policy registry is treated as empty.
func NewPipeline(params NewPipelineParams) *Pipeline {
	p := &Pipeline{
		permissions: params.Permissions,
		policies:    params.Policies,
	}
	if p.permissions == nil {
		p.permissions = AllowAll{}
	}
	if p.policies == nil {
		p.policies = NewPolicyRegistry()
	}
	p.ContentType = CheckContentType
	p.Role = CheckRoles
	p.Permission = p.checkPermissions
	p.Policy = p.checkPolicies
	return p
}

// Policies returns the registry policies are looked up in.
func (p *Pipeline) Policies() *PolicyRegistry { return p.policies }

// Authorize decides whether identity may run d on entity.
func (p *Pipeline) Authorize(identity operation.Identity, entity operation.Entity, d *operation.Descriptor) Decision {
	return p.AuthorizeCall(&operation.CallContext{Descriptor: d, Entity: entity, Identity: identity})
}

// AuthorizeCall is Authorize for a resolved call, letting policies inspect the bound values.
func (p *Pipeline) AuthorizeCall(call *operation.CallContext) Decision {
	if dec, done := p.entityDecision(call.Identity, call.Entity); done {
		return dec
	}
	if !p.ContentType(call.Entity, call.Descriptor) {
		return forbidden(fmt.Sprintf("Content type not allowed: %s", call.Entity.TypeName()))
	}
	return p.AuthorizeOperation(call)
}

// AuthorizeOperation runs the role, permission and policy checks only.
// Listings use it after filtering by content type themselves.
func (p *Pipeline) AuthorizeOperation(call *operation.CallContext) Decision {
	if dec, done := p.entityDecision(call.Identity, call.Entity); done {
		return dec
	}
	if !p.Role(call.Identity, call.Descriptor) {
		return forbidden("Role not allowed")
	}
	if !p.Permission(call.Identity, call.Entity, call.Descriptor) {
		return forbidden("Permission denied")
	}
	return p.Policy(call.Identity, call)
}

// CanSee reports whether identity may perceive entity. A nil identity sees nothing.
func (p *Pipeline) CanSee(identity operation.Identity, entity operation.Entity) bool {
	if identity == nil {
		return false
	}
	if identity.IsSystem() {
		return true
	}
	return p.permissions.CanSee(identity, entity)
}

// entityDecision handles the system bypass and the entity visibility gate.
func (p *Pipeline) entityDecision(identity operation.Identity, entity operation.Entity) (Decision, bool) {
	if identity != nil && identity.IsSystem() {
		return enabled(), true
	}
	if identity == nil {
		return forbidden("No identity"), true
	}
	if !p.permissions.CanSee(identity, entity) {
		return invisible("Entity not visible"), true
	}
	return Decision{}, false
}

// CheckContentType allows the entity type or any of its ancestors. An empty list allows all.
func CheckContentType(entity operation.Entity, d *operation.Descriptor) bool {
	allowed := d.Metadata().ContentTypes
	if len(allowed) == 0 {
		return true
	}
	types := append([]string{entity.TypeName()}, entity.AncestorTypes()...)
	for _, want := range allowed {
		for _, t := range types {
			if strings.EqualFold(want, t) {
				return true
			}
		}
	}
	return false
}

// CheckRoles requires membership in any listed role. An empty list allows all.
func CheckRoles(identity operation.Identity, d *operation.Descriptor) bool {
	roles := d.Metadata().Roles
	if len(roles) == 0 {
		return true
	}
	return hasAnyRole(identity, roles)
}

func (p *Pipeline) checkPermissions(identity operation.Identity, entity operation.Entity, d *operation.Descriptor) bool {
	perms := d.Metadata().Permissions
	if len(perms) == 0 {
		return true
	}
	return p.permissions.HasPermissions(identity, entity, perms)
}

// checkPolicies returns the first Invisible verdict, else the first Forbidden, else Enabled.
func (p *Pipeline) checkPolicies(identity operation.Identity, call *operation.CallContext) Decision {
	var first *Decision
	for _, name := range call.Descriptor.Metadata().Policies {
		policy, ok := p.policies.Get(name)
		if !ok {
			if first == nil {
				dec := forbidden(fmt.Sprintf("Policy not found: %s", name))
				first = &dec
			}
			continue
		}
		switch policy.Evaluate(identity, call) {
		case Invisible:
			return invisible(fmt.Sprintf("Hidden by policy: %s", name))
		case Forbidden:
			if first == nil {
				dec := forbidden(fmt.Sprintf("Denied by policy: %s", name))
				first = &dec
			}
		}
	}
	if first != nil {
		return *first
	}
	return enabled()
}
