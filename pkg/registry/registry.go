// Package registry holds the process-wide set of operation descriptors.
package registry

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/morezero/operation-engine/pkg/events"
	"github.com/morezero/operation-engine/pkg/operation"
)

const logPrefix = "registry:registry"

// Config holds registry configuration.
type Config struct {
	// CaseInsensitiveNames makes lookup ignore name case.
	CaseInsensitiveNames bool
	// Service is stamped on change events.
	Service string
}

// DefaultConfig returns the default registry configuration.
func DefaultConfig() Config {
	return Config{CaseInsensitiveNames: true}
}

// snapshot is an immutable view of the registered descriptors.
type snapshot struct {
	byName map[string][]*operation.Descriptor
	all    []*operation.Descriptor
}

var emptySnapshot = &snapshot{byName: map[string][]*operation.Descriptor{}}

// Registry is the operation registry. Reads go through an immutable snapshot
// and take no lock; Register, Remove, Clear and Discover serialize on a mutex.
type Registry struct {
	mu         sync.Mutex
	snap       atomic.Pointer[snapshot]
	discovered bool

	config    Config
	publisher events.EventPublisher
	sources   []Source
	database  HealthChecker
}

// NewRegistryParams holds parameters for NewRegistry.
type NewRegistryParams struct {
	Publisher events.EventPublisher
	// Sources are scanned by Discover, in order.
	Sources []Source
	// Database, when set, is pinged by Health.
	Database HealthChecker
	Config   Config
}

// NewRegistry creates a new Registry instance.
func NewRegistry(params NewRegistryParams) *Registry {
	pub := params.Publisher
	if pub == nil {
		pub = &events.NoOpPublisher{}
	}

	r := &Registry{
		config:    params.Config,
		publisher: pub,
		sources:   params.Sources,
		database:  params.Database,
	}
	r.snap.Store(emptySnapshot)
	return r
}

// AddSource appends a declaration source scanned by the next Discover.
func (r *Registry) AddSource(src Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = append(r.sources, src)
}

func (r *Registry) key(name string) string {
	if r.config.CaseInsensitiveNames {
		return strings.ToLower(name)
	}
	return name
}

// Register validates decl and adds it. It returns nil, without error, when the
// declaration is not an eligible operation.
func (r *Registry) Register(decl operation.Declaration) *operation.Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registerLocked(decl)
}

func (r *Registry) registerLocked(decl operation.Declaration) *operation.Descriptor {
	if reason := Validate(decl); reason != "" {
		slog.Debug(fmt.Sprintf("%s - skipping %s: %s", logPrefix, decl.Name, reason))
		return nil
	}
	d := operation.NewDescriptor(decl)

	cur := r.snap.Load()
	next := &snapshot{
		byName: make(map[string][]*operation.Descriptor, len(cur.byName)+1),
		all:    make([]*operation.Descriptor, 0, len(cur.all)+1),
	}
	for k, v := range cur.byName {
		next.byName[k] = v
	}
	next.all = append(next.all, cur.all...)
	next.all = append(next.all, d)

	k := r.key(d.Name())
	overloads := make([]*operation.Descriptor, 0, len(cur.byName[k])+1)
	overloads = append(overloads, cur.byName[k]...)
	next.byName[k] = append(overloads, d)

	r.snap.Store(next)
	return d
}

// Validate returns why decl cannot be registered, or "" when it can.
func Validate(decl operation.Declaration) string {
	if decl.Name == "" {
		return "empty name"
	}
	if len(decl.Parameters) == 0 {
		return "no parameters"
	}
	first := decl.Parameters[0]
	if first.Type.Kind != operation.KindEntity || first.Type.Collection != operation.CollectionNone {
		return "first parameter is not the target entity"
	}
	if first.Optional {
		return "entity parameter is optional"
	}
	for _, p := range decl.Parameters[1:] {
		if p.Name == "" {
			return "unnamed parameter"
		}
		switch p.Type.Kind {
		case operation.KindEntity, operation.KindInvalid:
			return fmt.Sprintf("parameter %s has unsupported type %s", p.Name, p.Type)
		case operation.KindDateTime, operation.KindObject:
			if !p.Optional {
				return fmt.Sprintf("required parameter %s has unsupported type %s", p.Name, p.Type)
			}
		case operation.KindStruct:
			if p.Type.Shape == nil {
				return fmt.Sprintf("parameter %s has no shape", p.Name)
			}
		}
	}
	if decl.Return.IsAsync() && decl.Handler.Async == nil {
		return "async operation without async handler"
	}
	if !decl.Return.IsAsync() && decl.Handler.Sync == nil {
		return "sync operation without sync handler"
	}
	return ""
}

// Remove drops every overload registered under name and returns how many were removed.
func (r *Registry) Remove(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snap.Load()
	k := r.key(name)
	removed := cur.byName[k]
	if len(removed) == 0 {
		return 0
	}

	next := &snapshot{byName: make(map[string][]*operation.Descriptor, len(cur.byName))}
	for key, v := range cur.byName {
		if key != k {
			next.byName[key] = v
		}
	}
	for _, d := range cur.all {
		if r.key(d.Name()) != k {
			next.all = append(next.all, d)
		}
	}
	r.snap.Store(next)
	return len(removed)
}

// Clear empties the registry and re-arms Discover.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap.Store(emptySnapshot)
	r.discovered = false
}

// Lookup returns the overloads registered under name, in registration order.
// The returned slice must not be modified.
func (r *Registry) Lookup(name string) []*operation.Descriptor {
	return r.snap.Load().byName[r.key(name)]
}

// All returns every registered descriptor in registration order.
// The returned slice must not be modified.
func (r *Registry) All() []*operation.Descriptor {
	return r.snap.Load().all
}

// Len returns the number of registered descriptors.
func (r *Registry) Len() int {
	return len(r.snap.Load().all)
}
