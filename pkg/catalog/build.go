package catalog

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/morezero/operation-engine/pkg/authz"
	"github.com/morezero/operation-engine/pkg/operation"
	"github.com/morezero/operation-engine/pkg/policies"
)

const logPrefix = "catalog:build"

// DefaultEntityParameter names the entity parameter when a spec leaves it out.
const DefaultEntityParameter = "content"

// Built is a manifest resolved against a handler table.
type Built struct {
	Declarations []operation.Declaration
	Shapes       map[string]*operation.Shape
	Policies     []policies.Definition
	// Grants is nil when the manifest configures none.
	Grants *authz.RoleGrants
}

// Build resolves m against handlers. Operations whose handler key is unknown
// are skipped with a warning; malformed types, return kinds and policies fail the build.
func Build(m *Manifest, handlers map[string]operation.Handler) (*Built, error) {
	if err := CheckCompatibility(m); err != nil {
		return nil, err
	}

	shapes, err := BuildShapes(m.Shapes)
	if err != nil {
		return nil, err
	}

	decls, err := BuildOperations(m.Operations, shapes, handlers)
	if err != nil {
		return nil, err
	}

	defs := make([]policies.Definition, 0, len(m.Policies))
	for _, p := range m.Policies {
		deny, err := authz.ParseVerdict(p.Deny)
		if err != nil {
			return nil, fmt.Errorf("%s - policy %s: %w", logPrefix, p.Name, err)
		}
		defs = append(defs, policies.Definition{Name: p.Name, Engine: p.Engine, Expression: p.Expression, Deny: deny})
	}

	built := &Built{Declarations: decls, Shapes: shapes, Policies: defs}
	if len(m.Grants.Permissions) > 0 || len(m.Grants.Visibility) > 0 {
		built.Grants = &authz.RoleGrants{Permissions: m.Grants.Permissions, Visibility: m.Grants.Visibility}
	}
	return built, nil
}

// Pipeline creates an authorization pipeline using the built grants and policies.
func (b *Built) Pipeline() (*authz.Pipeline, error) {
	registry := authz.NewPolicyRegistry()
	if err := policies.RegisterAll(registry, b.Policies); err != nil {
		return nil, fmt.Errorf("%s - failed to compile policies: %w", logPrefix, err)
	}

	params := authz.NewPipelineParams{Policies: registry}
	if b.Grants != nil {
		params.Permissions = b.Grants
	}
	return authz.NewPipeline(params), nil
}

// BuildShapes resolves shape specs. Fields may reference other shapes, including
// the shape being declared.
func BuildShapes(specs map[string]ShapeSpec) (map[string]*operation.Shape, error) {
	shapes := make(map[string]*operation.Shape, len(specs))
	names := make([]string, 0, len(specs))
	for name := range specs {
		shapes[name] = &operation.Shape{Name: name}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		shape := shapes[name]
		for _, f := range specs[name].Fields {
			t, err := ParseType(f.Type, shapes)
			if err != nil {
				return nil, fmt.Errorf("%s - shape %s field %s: %w", logPrefix, name, f.Name, err)
			}
			shape.Fields = append(shape.Fields, operation.Field{Name: f.Name, Type: t})
		}
	}
	return shapes, nil
}

// BuildOperations turns operation specs into declarations.
func BuildOperations(specs []OperationSpec, shapes map[string]*operation.Shape, handlers map[string]operation.Handler) ([]operation.Declaration, error) {
	decls := make([]operation.Declaration, 0, len(specs))
	for _, spec := range specs {
		handler, ok := handlers[spec.Handler]
		if !ok {
			slog.Warn(fmt.Sprintf("%s - skipping operation %s: unknown handler %q", logPrefix, spec.Name, spec.Handler))
			continue
		}
		decl, err := BuildOperation(spec, shapes)
		if err != nil {
			return nil, err
		}
		decl.Handler = handler
		decls = append(decls, decl)
	}
	return decls, nil
}

// BuildOperation converts one spec without binding its handler.
func BuildOperation(spec OperationSpec, shapes map[string]*operation.Shape) (operation.Declaration, error) {
	ret, err := operation.ParseReturnKind(spec.Return)
	if err != nil {
		return operation.Declaration{}, fmt.Errorf("%s - operation %s: %w", logPrefix, spec.Name, err)
	}

	entityName := spec.Entity
	if entityName == "" {
		entityName = DefaultEntityParameter
	}
	params := make([]operation.Parameter, 0, len(spec.Parameters)+1)
	params = append(params, operation.Parameter{Name: entityName, Type: operation.Type{Kind: operation.KindEntity}})
	for _, p := range spec.Parameters {
		t, err := ParseType(p.Type, shapes)
		if err != nil {
			return operation.Declaration{}, fmt.Errorf("%s - operation %s parameter %s: %w", logPrefix, spec.Name, p.Name, err)
		}
		params = append(params, operation.Parameter{Name: p.Name, Type: t, Optional: p.Optional})
	}

	return operation.Declaration{
		Name:       spec.Name,
		Parameters: params,
		Return:     ret,
		Metadata: operation.Metadata{
			Description:   spec.Description,
			Icon:          spec.Icon,
			DisplayName:   spec.DisplayName,
			OperationName: spec.Alias,
			ContentTypes:  spec.ContentTypes,
			Roles:         spec.Roles,
			Permissions:   spec.Permissions,
			Policies:      spec.Policies,
			Scenarios:     spec.Scenarios,
		},
	}, nil
}
