package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/morezero/operation-engine/pkg/events"
	"github.com/morezero/operation-engine/pkg/operation"
)

const discoverLogPrefix = "registry:discover"

// Source yields candidate operation declarations.
type Source interface {
	Declarations(ctx context.Context) ([]operation.Declaration, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]operation.Declaration, error)

func (f SourceFunc) Declarations(ctx context.Context) ([]operation.Declaration, error) {
	return f(ctx)
}

// Static is a Source over a fixed declaration list.
type Static []operation.Declaration

func (s Static) Declarations(context.Context) ([]operation.Declaration, error) {
	return s, nil
}

// Discover scans every source once, registering each eligible declaration and
// skipping the rest. Later calls are no-ops until Clear.
func (r *Registry) Discover(ctx context.Context) error {
	r.mu.Lock()
	if r.discovered {
		r.mu.Unlock()
		return nil
	}

	// Every source is read before anything registers, so a failing source
	// leaves the registry untouched and a retry cannot duplicate entries.
	var pending []operation.Declaration
	for _, src := range r.sources {
		decls, err := src.Declarations(ctx)
		if err != nil {
			r.mu.Unlock()
			return fmt.Errorf("%s - failed to read declarations: %w", discoverLogPrefix, err)
		}
		pending = append(pending, decls...)
	}

	var names []string
	skipped := 0
	for _, decl := range pending {
		d := r.registerLocked(decl)
		if d == nil {
			skipped++
			slog.Warn(fmt.Sprintf("%s - skipped ineligible operation %s: %s", discoverLogPrefix, decl.Name, Validate(decl)))
			continue
		}
		names = append(names, d.Name())
	}
	r.discovered = true
	count := len(r.snap.Load().all)
	r.mu.Unlock()

	slog.Info(fmt.Sprintf("%s - registered %d operations (%d skipped, %d total)", discoverLogPrefix, len(names), skipped, count))

	sort.Strings(names)
	r.publish(ctx, events.ActionDiscovered, names, count)
	return nil
}

// RemoveAndPublish is Remove followed by a change event.
func (r *Registry) RemoveAndPublish(ctx context.Context, name string) int {
	n := r.Remove(name)
	if n > 0 {
		r.publish(ctx, events.ActionRemoved, []string{name}, r.Len())
	}
	return n
}

// publish sends a change event. Failures are logged, never returned.
func (r *Registry) publish(ctx context.Context, action string, names []string, count int) {
	event := &events.OperationsChangedEvent{
		Action:     action,
		Operations: uniqueSorted(names),
		Count:      count,
		Service:    r.config.Service,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	if err := r.publisher.PublishChanged(ctx, event); err != nil {
		slog.Warn(fmt.Sprintf("%s - failed to publish %s event: %v", discoverLogPrefix, action, err))
	}
}

func uniqueSorted(names []string) []string {
	out := make([]string, 0, len(names))
	for i, n := range names {
		if i > 0 && names[i-1] == n {
			continue
		}
		out = append(out, n)
	}
	return out
}
