package operation

import (
	"slices"
	"strings"
)

// Descriptor is a registered, immutable operation.
type Descriptor struct {
	declaredName string
	entityParam  Parameter
	required     []Parameter
	optional     []Parameter
	returns      ReturnKind
	metadata     Metadata
	handler      Handler
}

// NewDescriptor builds a descriptor from a declaration that has already been validated.
func NewDescriptor(decl Declaration) *Descriptor {
	d := &Descriptor{
		declaredName: decl.Name,
		returns:      decl.Return,
		metadata:     decl.Metadata.clone(),
		handler:      decl.Handler,
	}
	for i, p := range decl.Parameters {
		p.Position = i
		switch {
		case i == 0:
			d.entityParam = p
		case p.Optional:
			d.optional = append(d.optional, p)
		default:
			d.required = append(d.required, p)
		}
	}
	return d
}

func (m Metadata) clone() Metadata {
	m.ContentTypes = slices.Clone(m.ContentTypes)
	m.Roles = slices.Clone(m.Roles)
	m.Permissions = slices.Clone(m.Permissions)
	m.Policies = slices.Clone(m.Policies)
	m.Scenarios = slices.Clone(m.Scenarios)
	return m
}

// Name is the reported name: the configured alias when present, else the declared name.
func (d *Descriptor) Name() string {
	if d.metadata.OperationName != "" {
		return d.metadata.OperationName
	}
	return d.declaredName
}

// DeclaredName is the name the implementation was declared with.
func (d *Descriptor) DeclaredName() string { return d.declaredName }

// EntityParameter is the target entity parameter.
func (d *Descriptor) EntityParameter() Parameter { return d.entityParam }

// Required returns the required parameters (entity excluded) in declared order.
func (d *Descriptor) Required() []Parameter { return d.required }

// Optional returns the optional parameters in declared order.
func (d *Descriptor) Optional() []Parameter { return d.optional }

// Return is the return classification.
func (d *Descriptor) Return() ReturnKind { return d.returns }

// Metadata returns the descriptor metadata.
func (d *Descriptor) Metadata() Metadata { return d.metadata }

// Handler returns the invocation handle.
func (d *Descriptor) Handler() Handler { return d.handler }

// Parameter finds a non-entity parameter by name.
func (d *Descriptor) Parameter(name string) (Parameter, bool) {
	for _, p := range d.required {
		if p.Name == name {
			return p, true
		}
	}
	for _, p := range d.optional {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// Signature renders the full signature used in ambiguity reports,
// e.g. "fv1(Entity content, String a, [Int32 x])".
func (d *Descriptor) Signature() string {
	var b strings.Builder
	b.WriteString(d.Name())
	b.WriteString("(")
	b.WriteString(d.entityParam.Type.String())
	b.WriteString(" ")
	b.WriteString(d.entityParam.Name)
	for _, p := range d.required {
		b.WriteString(", ")
		b.WriteString(p.Type.String())
		b.WriteString(" ")
		b.WriteString(p.Name)
	}
	for _, p := range d.optional {
		b.WriteString(", [")
		b.WriteString(p.Type.String())
		b.WriteString(" ")
		b.WriteString(p.Name)
		b.WriteString("]")
	}
	b.WriteString(")")
	return b.String()
}

// HasScenario reports whether the descriptor is tagged with scenario (case-insensitive).
func (d *Descriptor) HasScenario(scenario string) bool {
	for _, s := range d.metadata.Scenarios {
		if strings.EqualFold(s, scenario) {
			return true
		}
	}
	return false
}

// CallContext is a resolved call: the descriptor, the target entity, the bound
// parameter values by name, and the caller.
type CallContext struct {
	Descriptor *Descriptor
	Entity     Entity
	Values     map[string]any
	Identity   Identity
}

// Args returns the bound values ordered as the implementation expects them:
// required parameters in declared order, then optional parameters.
func (c *CallContext) Args() []any {
	args := make([]any, 0, len(c.Descriptor.required)+len(c.Descriptor.optional))
	for _, p := range c.Descriptor.required {
		args = append(args, c.Values[p.Name])
	}
	for _, p := range c.Descriptor.optional {
		args = append(args, c.Values[p.Name])
	}
	return args
}
