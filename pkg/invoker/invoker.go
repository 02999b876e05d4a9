// Package invoker runs resolved calls against their implementations.
package invoker

import (
	"context"
	"fmt"

	"github.com/morezero/operation-engine/pkg/operation"
)

// Invoke runs a Value or Void operation and blocks until it returns.
// Errors from the implementation are returned unchanged.
func Invoke(ctx context.Context, call *operation.CallContext) (any, error) {
	d := call.Descriptor
	if d.Return().IsAsync() {
		return nil, fmt.Errorf("%w: %s is %s, use InvokeAsync", operation.ErrWrongEntryPoint, d.Name(), d.Return())
	}
	h := d.Handler().Sync
	if h == nil {
		return nil, fmt.Errorf("operation %s has no synchronous handler", d.Name())
	}

	result, err := h(ctx, call.Entity, call.Args())
	if err != nil {
		return nil, err
	}
	if d.Return() == operation.ReturnVoid {
		return nil, nil
	}
	return result, nil
}

// InvokeAsync starts an AsyncValue or AsyncVoid operation and returns its
// completion channel without waiting. The channel receives exactly one Result.
func InvokeAsync(ctx context.Context, call *operation.CallContext) (<-chan operation.Result, error) {
	d := call.Descriptor
	if !d.Return().IsAsync() {
		return nil, fmt.Errorf("%w: %s is %s, use Invoke", operation.ErrWrongEntryPoint, d.Name(), d.Return())
	}
	h := d.Handler().Async
	if h == nil {
		return nil, fmt.Errorf("operation %s has no asynchronous handler", d.Name())
	}

	done := h(ctx, call.Entity, call.Args())
	if d.Return() == operation.ReturnAsyncValue {
		return done, nil
	}

	// void completions carry only the error
	out := make(chan operation.Result, 1)
	go func() {
		defer close(out)
		r, ok := <-done
		if !ok {
			out <- operation.Result{}
			return
		}
		out <- operation.Result{Err: r.Err}
	}()
	return out, nil
}
