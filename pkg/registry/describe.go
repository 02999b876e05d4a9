package registry

import (
	"sort"

	"github.com/morezero/operation-engine/pkg/operation"
)

// Describe returns the registered overloads of name, or every overload when
// name is empty, sorted by reported name then signature.
func (r *Registry) Describe(name string) []OperationInfo {
	descs := r.All()
	if name != "" {
		descs = r.Lookup(name)
	}

	out := make([]OperationInfo, 0, len(descs))
	for _, d := range descs {
		out = append(out, DescribeOperation(d))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Signature < out[j].Signature
	})
	return out
}

// DescribeOperation builds the description of one descriptor.
func DescribeOperation(d *operation.Descriptor) OperationInfo {
	meta := d.Metadata()
	params := make([]ParameterInfo, 0, len(d.Required())+len(d.Optional()))
	for _, p := range d.Required() {
		params = append(params, ParameterInfo{Name: p.Name, Type: p.Type.String()})
	}
	for _, p := range d.Optional() {
		params = append(params, ParameterInfo{Name: p.Name, Type: p.Type.String(), Optional: true})
	}

	return OperationInfo{
		Name:         d.Name(),
		DeclaredName: d.DeclaredName(),
		Signature:    d.Signature(),
		Return:       d.Return().String(),
		Description:  meta.Description,
		DisplayName:  meta.DisplayName,
		Icon:         meta.Icon,
		Parameters:   params,
		ContentTypes: meta.ContentTypes,
		Roles:        meta.Roles,
		Permissions:  meta.Permissions,
		Policies:     meta.Policies,
		Scenarios:    meta.Scenarios,
	}
}
