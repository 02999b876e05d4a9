// Package policies builds expression-backed authorization policies.
//
// A policy expression sees four variables:
//
//	identity  {id, roles, system}
//	entity    {id, type, ancestors}
//	operation {name, scenarios}
//	params    bound parameter values by name
//
// A true result enables the call; false yields the policy's deny verdict.
// Evaluation errors yield Forbidden.
package policies

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/inf.v0"

	"github.com/morezero/operation-engine/pkg/authz"
	"github.com/morezero/operation-engine/pkg/operation"
	"github.com/morezero/operation-engine/pkg/token"
)

// Engines.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
)

// Definition declares one named policy.
type Definition struct {
	Name       string
	Engine     string
	Expression string
	// Deny is the verdict returned when the expression is false.
	// Enabled is not a valid deny verdict and is read as Forbidden.
	Deny authz.Verdict
}

// Compile builds the policy a definition describes.
func Compile(def Definition) (authz.Policy, error) {
	if def.Expression == "" {
		return nil, fmt.Errorf("policy %q: expression is required", def.Name)
	}
	switch strings.ToLower(def.Engine) {
	case "", EngineExpr:
		return NewExprPolicy(def)
	case EngineCEL:
		return NewCELPolicy(def)
	}
	return nil, fmt.Errorf("policy %q: unknown engine %q", def.Name, def.Engine)
}

// RegisterAll compiles every definition into registry. It stops at the first failure.
func RegisterAll(registry *authz.PolicyRegistry, defs []Definition) error {
	for _, def := range defs {
		p, err := Compile(def)
		if err != nil {
			return err
		}
		registry.Register(def.Name, p)
	}
	return nil
}

func verdictOf(ok bool, deny authz.Verdict) authz.Verdict {
	if ok {
		return authz.Enabled
	}
	if deny == authz.Enabled {
		return authz.Forbidden
	}
	return deny
}

// activation builds the variables an expression is evaluated against.
func activation(identity operation.Identity, call *operation.CallContext) map[string]any {
	id := map[string]any{"id": "", "roles": []string{}, "system": false}
	if identity != nil {
		id["id"] = identity.ID()
		id["roles"] = nonNil(identity.Roles())
		id["system"] = identity.IsSystem()
	}

	ent := map[string]any{"id": "", "type": "", "ancestors": []string{}}
	op := map[string]any{"name": "", "scenarios": []string{}}
	params := map[string]any{}
	if call != nil {
		if call.Entity != nil {
			ent["id"] = call.Entity.ID()
			ent["type"] = call.Entity.TypeName()
			ent["ancestors"] = nonNil(call.Entity.AncestorTypes())
		}
		if call.Descriptor != nil {
			op["name"] = call.Descriptor.Name()
			op["scenarios"] = nonNil(call.Descriptor.Metadata().Scenarios)
		}
		for k, v := range call.Values {
			params[k] = plain(v)
		}
	}

	return map[string]any{
		"identity":  id,
		"entity":    ent,
		"operation": op,
		"params":    params,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// plain converts bound values to the JSON-like types both engines understand:
// nil, bool, string, int64, float64, []any and map[string]any.
func plain(v any) any {
	switch x := v.(type) {
	case nil, bool, string, int64, float64:
		return x
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case float32:
		return float64(x)
	case *inf.Dec:
		if x == nil {
			return nil
		}
		return x.String()
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		f, _ := x.Float64()
		return f
	case token.Value:
		return plain(x.Interface())
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = plain(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = plain(item)
		}
		return out
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil
	}
	return plain(out)
}
