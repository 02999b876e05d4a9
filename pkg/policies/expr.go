package policies

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/morezero/operation-engine/pkg/authz"
	"github.com/morezero/operation-engine/pkg/operation"
)

// ExprPolicy evaluates an expr-lang expression.
type ExprPolicy struct {
	name    string
	deny    authz.Verdict
	program *vm.Program
}

// NewExprPolicy compiles def with expr-lang.
func NewExprPolicy(def Definition) (*ExprPolicy, error) {
	env := activation(nil, nil)
	program, err := expr.Compile(def.Expression,
		expr.Env(env),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("policy %q: failed to compile expression: %w", def.Name, err)
	}
	return &ExprPolicy{name: def.Name, deny: def.Deny, program: program}, nil
}

// Evaluate implements authz.Policy.
func (p *ExprPolicy) Evaluate(identity operation.Identity, call *operation.CallContext) authz.Verdict {
	out, err := expr.Run(p.program, activation(identity, call))
	if err != nil {
		return authz.Forbidden
	}
	ok, isBool := out.(bool)
	if !isBool {
		return authz.Forbidden
	}
	return verdictOf(ok, p.deny)
}
