package authz

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/morezero/operation-engine/pkg/operation"
)

// Policy is a named strategy contributing to the visibility verdict.
// Evaluate must be pure: no I/O, no blocking.
type Policy interface {
	Evaluate(identity operation.Identity, call *operation.CallContext) Verdict
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(identity operation.Identity, call *operation.CallContext) Verdict

func (f PolicyFunc) Evaluate(identity operation.Identity, call *operation.CallContext) Verdict {
	return f(identity, call)
}

// PolicyRegistry maps policy names to strategies. Reads are lock-free over an
// immutable snapshot; writes copy the map under a mutex.
type PolicyRegistry struct {
	mu       sync.Mutex
	policies atomic.Pointer[map[string]Policy]
}

// NewPolicyRegistry creates an empty registry.
func NewPolicyRegistry() *PolicyRegistry {
	r := &PolicyRegistry{}
	empty := map[string]Policy{}
	r.policies.Store(&empty)
	return r
}

// Register adds or replaces the policy registered under name.
func (r *PolicyRegistry) Register(name string, p Policy) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := *r.policies.Load()
	next := make(map[string]Policy, len(cur)+1)
	for k, v := range cur {
		next[k] = v
	}
	next[name] = p
	r.policies.Store(&next)
}

// Get returns the policy registered under name.
func (r *PolicyRegistry) Get(name string) (Policy, bool) {
	p, ok := (*r.policies.Load())[name]
	return p, ok
}

// Names returns the registered policy names, sorted.
func (r *PolicyRegistry) Names() []string {
	cur := *r.policies.Load()
	names := make([]string, 0, len(cur))
	for k := range cur {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Clear removes every policy.
func (r *PolicyRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	empty := map[string]Policy{}
	r.policies.Store(&empty)
}
