// Package engine ties resolution, authorization and invocation together.
package engine

import (
	"context"

	"golang.org/x/text/language"

	"github.com/morezero/operation-engine/pkg/actions"
	"github.com/morezero/operation-engine/pkg/authz"
	"github.com/morezero/operation-engine/pkg/binder"
	"github.com/morezero/operation-engine/pkg/invoker"
	"github.com/morezero/operation-engine/pkg/operation"
	"github.com/morezero/operation-engine/pkg/resolver"
)

// Catalog is the descriptor source the engine reads. *registry.Registry satisfies it.
type Catalog interface {
	Lookup(name string) []*operation.Descriptor
	All() []*operation.Descriptor
}

// Config holds engine configuration.
type Config struct {
	// Locale is used to parse numeric text when a request carries none.
	Locale language.Tag
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{Locale: language.AmericanEnglish}
}

// NewEngineParams holds parameters for New.
type NewEngineParams struct {
	Catalog  Catalog
	Pipeline *authz.Pipeline
	Config   Config
}

// Engine resolves, authorizes and runs operation calls.
type Engine struct {
	resolver *resolver.Resolver
	lister   *actions.Lister
	pipeline *authz.Pipeline
}

// New creates an Engine. A nil pipeline allows every call.
func New(params NewEngineParams) *Engine {
	p := params.Pipeline
	if p == nil {
		p = authz.NewPipeline(authz.NewPipelineParams{})
	}
	return &Engine{
		resolver: resolver.New(params.Catalog, binder.Options{Locale: params.Config.Locale}),
		lister:   actions.New(params.Catalog, p),
		pipeline: p,
	}
}

// Pipeline returns the authorization pipeline, so callers can register
// policies or replace individual checks.
func (e *Engine) Pipeline() *authz.Pipeline { return e.pipeline }

// Prepare resolves req and authorizes the chosen overload. Calls on an entity
// the caller cannot see fail as INVISIBLE before any overload is considered.
func (e *Engine) Prepare(req resolver.Request) (*operation.CallContext, error) {
	if req.Identity != nil && !e.pipeline.CanSee(req.Identity, req.Entity) {
		return nil, operation.Invisible(req.Operation)
	}

	call, err := e.resolver.Resolve(req)
	if err != nil {
		return nil, err
	}

	dec := e.pipeline.AuthorizeCall(call)
	switch dec.Verdict {
	case authz.Invisible:
		return nil, operation.Invisible(req.Operation)
	case authz.Forbidden:
		return nil, operation.Forbidden(call.Descriptor.Name(), dec.Reason)
	}
	return call, nil
}

// Invoke runs a prepared Value or Void call.
func (e *Engine) Invoke(ctx context.Context, call *operation.CallContext) (any, error) {
	return invoker.Invoke(ctx, call)
}

// InvokeAsync starts a prepared AsyncValue or AsyncVoid call.
func (e *Engine) InvokeAsync(ctx context.Context, call *operation.CallContext) (<-chan operation.Result, error) {
	return invoker.InvokeAsync(ctx, call)
}

// Call prepares req and runs it.
func (e *Engine) Call(ctx context.Context, req resolver.Request) (any, error) {
	call, err := e.Prepare(req)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx, call)
}

// Run invokes a prepared call through the entry point its return kind
// requires, waiting for async completion or ctx cancellation.
func (e *Engine) Run(ctx context.Context, call *operation.CallContext) (any, error) {
	if !call.Descriptor.Return().IsAsync() {
		return e.Invoke(ctx, call)
	}

	done, err := e.InvokeAsync(ctx, call)
	if err != nil {
		return nil, err
	}
	select {
	case res := <-done:
		return res.Value, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Actions lists the operations identity can see on entity.
func (e *Engine) Actions(entity operation.Entity, scenario string, identity operation.Identity) []actions.Action {
	return e.lister.ListActions(entity, scenario, identity)
}
