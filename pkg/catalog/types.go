// Package catalog loads operation manifests and turns them into registry declarations.
package catalog

// Manifest is the root of a catalog file. Files may be YAML or JSON.
type Manifest struct {
	Name        string `yaml:"name" json:"name"`
	Version     string `yaml:"version" json:"version"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	// Requires is a semver constraint on the engine version, e.g. ">=1.0.0, <2.0.0".
	Requires   string               `yaml:"requires,omitempty" json:"requires,omitempty"`
	Shapes     map[string]ShapeSpec `yaml:"shapes,omitempty" json:"shapes,omitempty"`
	Operations []OperationSpec      `yaml:"operations" json:"operations"`
	Policies   []PolicySpec         `yaml:"policies,omitempty" json:"policies,omitempty"`
	Grants     GrantsSpec           `yaml:"grants,omitempty" json:"grants,omitempty"`
}

// ShapeSpec declares a structured parameter type.
type ShapeSpec struct {
	Fields []FieldSpec `yaml:"fields" json:"fields"`
}

// FieldSpec is one shape member.
type FieldSpec struct {
	Name string `yaml:"name" json:"name"`
	Type string `yaml:"type" json:"type"`
}

// OperationSpec declares one operation overload.
type OperationSpec struct {
	Name string `yaml:"name" json:"name"`
	// Handler is the key of the implementation in the handler table.
	Handler     string `yaml:"handler" json:"handler"`
	Return      string `yaml:"return,omitempty" json:"return,omitempty"`
	Alias       string `yaml:"alias,omitempty" json:"alias,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	DisplayName string `yaml:"displayName,omitempty" json:"displayName,omitempty"`
	Icon        string `yaml:"icon,omitempty" json:"icon,omitempty"`
	// Entity names the target entity parameter; it defaults to "content".
	Entity       string          `yaml:"entity,omitempty" json:"entity,omitempty"`
	Parameters   []ParameterSpec `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	ContentTypes []string        `yaml:"contentTypes,omitempty" json:"contentTypes,omitempty"`
	Roles        []string        `yaml:"roles,omitempty" json:"roles,omitempty"`
	Permissions  []string        `yaml:"permissions,omitempty" json:"permissions,omitempty"`
	Policies     []string        `yaml:"policies,omitempty" json:"policies,omitempty"`
	Scenarios    []string        `yaml:"scenarios,omitempty" json:"scenarios,omitempty"`
}

// ParameterSpec declares one non-entity parameter, e.g. {name: x, type: "int?", optional: true}.
type ParameterSpec struct {
	Name     string `yaml:"name" json:"name"`
	Type     string `yaml:"type" json:"type"`
	Optional bool   `yaml:"optional,omitempty" json:"optional,omitempty"`
}

// PolicySpec declares a named expression policy.
type PolicySpec struct {
	Name       string `yaml:"name" json:"name"`
	Engine     string `yaml:"engine,omitempty" json:"engine,omitempty"`
	Expression string `yaml:"expression" json:"expression"`
	// Deny is "forbidden" (default) or "invisible".
	Deny string `yaml:"deny,omitempty" json:"deny,omitempty"`
}

// GrantsSpec configures role-derived permissions and entity type visibility.
type GrantsSpec struct {
	Permissions map[string][]string `yaml:"permissions,omitempty" json:"permissions,omitempty"`
	Visibility  map[string][]string `yaml:"visibility,omitempty" json:"visibility,omitempty"`
}
