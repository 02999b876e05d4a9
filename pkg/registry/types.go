package registry

import "context"

// OperationInfo is the serializable description of one registered overload.
type OperationInfo struct {
	Name         string          `json:"name"`
	DeclaredName string          `json:"declaredName"`
	Signature    string          `json:"signature"`
	Return       string          `json:"return"`
	Description  string          `json:"description,omitempty"`
	DisplayName  string          `json:"displayName,omitempty"`
	Icon         string          `json:"icon,omitempty"`
	Parameters   []ParameterInfo `json:"parameters"`
	ContentTypes []string        `json:"contentTypes,omitempty"`
	Roles        []string        `json:"roles,omitempty"`
	Permissions  []string        `json:"permissions,omitempty"`
	Policies     []string        `json:"policies,omitempty"`
	Scenarios    []string        `json:"scenarios,omitempty"`
}

// ParameterInfo describes one non-entity parameter.
type ParameterInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Optional bool   `json:"optional,omitempty"`
}

// HealthOutput holds the result of the health method.
type HealthOutput struct {
	Status    string       `json:"status"`
	Checks    HealthChecks `json:"checks"`
	Timestamp string       `json:"timestamp"`
}

// HealthChecks holds individual health check results.
type HealthChecks struct {
	Discovered bool `json:"discovered"`
	Operations int  `json:"operations"`
	// Database is nil when no database backs the catalog.
	Database *bool `json:"database,omitempty"`
}

// HealthChecker is a dependency Health pings, such as the catalog database.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
