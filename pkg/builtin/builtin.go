// Package builtin implements the operations every engine instance ships with.
package builtin

import (
	"context"
	"fmt"
	"time"

	"github.com/morezero/operation-engine/pkg/operation"
)

// Handler keys, as referenced by catalog manifests.
const (
	KeyPing    = "builtin.ping"
	KeyGetInfo = "builtin.getInfo"
	KeyEcho    = "builtin.echo"
	KeyTouch   = "builtin.touch"
	KeyWait    = "builtin.wait"
)

// MaxWait caps the duration Wait accepts.
const MaxWait = time.Minute

// EntityInfo is the result of GetInfo.
type EntityInfo struct {
	ID        string   `json:"id"`
	Type      string   `json:"type"`
	Ancestors []string `json:"ancestors,omitempty"`
}

// Toucher records Touch calls. The default implementation does nothing.
type Toucher interface {
	Touch(ctx context.Context, entity operation.Entity) error
}

type noopToucher struct{}

func (noopToucher) Touch(context.Context, operation.Entity) error { return nil }

// Handlers returns the builtin handlers by key. A nil toucher does nothing.
func Handlers(toucher Toucher) map[string]operation.Handler {
	if toucher == nil {
		toucher = noopToucher{}
	}
	return map[string]operation.Handler{
		KeyPing:    {Sync: ping},
		KeyGetInfo: {Sync: getInfo},
		KeyEcho:    {Sync: echo},
		KeyTouch: {Sync: func(ctx context.Context, entity operation.Entity, _ []any) (any, error) {
			return nil, toucher.Touch(ctx, entity)
		}},
		KeyWait: {Async: wait},
	}
}

func ping(context.Context, operation.Entity, []any) (any, error) {
	return "pong", nil
}

func getInfo(_ context.Context, entity operation.Entity, _ []any) (any, error) {
	return EntityInfo{ID: entity.ID(), Type: entity.TypeName(), Ancestors: entity.AncestorTypes()}, nil
}

// echo returns its single raw argument unchanged.
func echo(_ context.Context, _ operation.Entity, args []any) (any, error) {
	if len(args) == 0 {
		return nil, nil
	}
	return args[0], nil
}

// wait completes after the requested number of milliseconds, or with the
// context error when ctx ends first.
func wait(ctx context.Context, _ operation.Entity, args []any) <-chan operation.Result {
	done := make(chan operation.Result, 1)

	var ms int32
	if len(args) > 0 {
		ms, _ = args[0].(int32)
	}
	d := time.Duration(ms) * time.Millisecond
	if d < 0 || d > MaxWait {
		done <- operation.Result{Err: fmt.Errorf("wait of %dms is out of range", ms)}
		return done
	}

	go func() {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			done <- operation.Result{Value: map[string]any{"waitedMs": ms}}
		case <-ctx.Done():
			done <- operation.Result{Err: ctx.Err()}
		}
	}()
	return done
}
