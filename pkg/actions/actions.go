// Package actions lists the operations a caller can see on an entity.
package actions

import (
	"sort"

	"github.com/morezero/operation-engine/pkg/authz"
	"github.com/morezero/operation-engine/pkg/operation"
)

// Catalog yields every registered descriptor.
type Catalog interface {
	All() []*operation.Descriptor
}

// Action is one listed operation. Forbidden entries are listed so callers can
// render them disabled.
type Action struct {
	Descriptor *operation.Descriptor
	Name       string
	Forbidden  bool
}

// Lister builds action listings.
type Lister struct {
	catalog  Catalog
	pipeline *authz.Pipeline
}

// New creates a Lister.
func New(catalog Catalog, pipeline *authz.Pipeline) *Lister {
	return &Lister{catalog: catalog, pipeline: pipeline}
}

// ListActions returns the operations applicable to entity, filtered by scenario
// when one is given. Entries the caller may not see are dropped; entries the
// caller may see but not run are flagged Forbidden. The result is sorted by name.
func (l *Lister) ListActions(entity operation.Entity, scenario string, identity operation.Identity) []Action {
	if identity == nil || !l.pipeline.CanSee(identity, entity) {
		return nil
	}

	var out []Action
	for _, d := range l.catalog.All() {
		if !l.pipeline.ContentType(entity, d) {
			continue
		}
		if scenario != "" && !d.HasScenario(scenario) {
			continue
		}
		dec := l.pipeline.AuthorizeOperation(&operation.CallContext{Descriptor: d, Entity: entity, Identity: identity})
		if dec.Verdict == authz.Invisible {
			continue
		}
		out = append(out, Action{Descriptor: d, Name: d.Name(), Forbidden: dec.Verdict == authz.Forbidden})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
