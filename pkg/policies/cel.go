package policies

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/morezero/operation-engine/pkg/authz"
	"github.com/morezero/operation-engine/pkg/operation"
)

// CELPolicy evaluates a CEL expression.
type CELPolicy struct {
	name    string
	deny    authz.Verdict
	program cel.Program
}

// NewCELPolicy compiles def with cel-go.
func NewCELPolicy(def Definition) (*CELPolicy, error) {
	env, err := cel.NewEnv(
		cel.Variable("identity", cel.MapType(cel.StringType, cel.AnyType)),
		cel.Variable("entity", cel.MapType(cel.StringType, cel.AnyType)),
		cel.Variable("operation", cel.MapType(cel.StringType, cel.AnyType)),
		cel.Variable("params", cel.MapType(cel.StringType, cel.AnyType)),
	)
	if err != nil {
		return nil, fmt.Errorf("policy %q: error creating CEL environment: %w", def.Name, err)
	}

	ast, issues := env.Compile(def.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("policy %q: error compiling CEL expression: %w", def.Name, issues.Err())
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("policy %q: error creating program: %w", def.Name, err)
	}
	return &CELPolicy{name: def.Name, deny: def.Deny, program: program}, nil
}

// Evaluate implements authz.Policy.
func (p *CELPolicy) Evaluate(identity operation.Identity, call *operation.CallContext) authz.Verdict {
	out, _, err := p.program.Eval(activation(identity, call))
	if err != nil {
		return authz.Forbidden
	}
	ok, isBool := out.Value().(bool)
	if !isBool {
		return authz.Forbidden
	}
	return verdictOf(ok, p.deny)
}
