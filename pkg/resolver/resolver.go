// Package resolver selects the operation overload matching a request and binds its parameters.
package resolver

import (
	"net/url"

	"golang.org/x/text/language"

	"github.com/morezero/operation-engine/pkg/binder"
	"github.com/morezero/operation-engine/pkg/operation"
	"github.com/morezero/operation-engine/pkg/token"
)

// Catalog yields the overloads registered under a name.
type Catalog interface {
	Lookup(name string) []*operation.Descriptor
}

// Request is one call to resolve.
type Request struct {
	Entity    operation.Entity
	Operation string
	// Body is the JSON body; it may be Undefined for query-only calls.
	Body     token.Value
	Query    url.Values
	Identity operation.Identity
	// Locale overrides the resolver default when set.
	Locale language.Tag
}

// Resolver matches requests against a catalog.
type Resolver struct {
	catalog Catalog
	locale  language.Tag
}

// New creates a Resolver. opts.Locale is the default locale for requests without one.
func New(catalog Catalog, opts binder.Options) *Resolver {
	return &Resolver{catalog: catalog, locale: opts.Locale}
}

type candidate struct {
	desc   *operation.Descriptor
	values map[string]any

	strict      int // required parameters bound strictly
	optFailed   int // supplied optional keys that did not bind
	optBound    int // supplied optional keys that bound
	specificity int // kind ranks of every supplied key that bound
}

// rejection records why a candidate was discarded.
type rejection struct {
	param    string
	mismatch bool
}

// Resolve returns the call context of the single best matching overload.
//
// Candidates are ranked by, in order: strict required bindings (more wins),
// supplied optional keys that failed to bind (fewer wins), supplied optional
// keys that bound (more wins), and the summed kind rank of every supplied key
// (narrower kinds win). A tie at the top is an AMBIGUOUS_MATCH.
func (r *Resolver) Resolve(req Request) (*operation.CallContext, error) {
	descs := r.catalog.Lookup(req.Operation)
	if len(descs) == 0 {
		return nil, operation.NotFound(req.Operation)
	}

	locale := r.locale
	if req.Locale != language.Und {
		locale = req.Locale
	}
	b := binder.New(binder.Options{Locale: locale})
	args := binder.NewArguments(req.Body, req.Query)

	var (
		survivors []candidate
		rejected  []rejection
	)
	for _, d := range descs {
		c, rej, ok := bindCandidate(b, d, args)
		if !ok {
			rejected = append(rejected, rej)
			continue
		}
		survivors = append(survivors, c)
	}

	if len(survivors) == 0 {
		return nil, rejectionError(req.Operation, rejected)
	}

	best := topCandidates(survivors)
	if len(best) > 1 {
		sigs := make([]string, len(best))
		for i, c := range best {
			sigs[i] = c.desc.Signature()
		}
		return nil, operation.Ambiguous(req.Operation, sigs)
	}

	return &operation.CallContext{
		Descriptor: best[0].desc,
		Entity:     req.Entity,
		Values:     best[0].values,
		Identity:   req.Identity,
	}, nil
}

func bindCandidate(b *binder.Binder, d *operation.Descriptor, args binder.Arguments) (candidate, rejection, bool) {
	c := candidate{desc: d, values: make(map[string]any, len(d.Required())+len(d.Optional()))}

	for _, p := range d.Required() {
		bound := b.Bind(p, args)
		if bound.Match == binder.NoMatch {
			return candidate{}, rejection{param: p.Name, mismatch: bound.Present}, false
		}
		if bound.Match == binder.Strict {
			c.strict++
		}
		c.specificity += Rank(p.Type.Kind)
		c.values[p.Name] = bound.Value
	}

	for _, p := range d.Optional() {
		bound := b.Bind(p, args)
		if !bound.Present {
			c.values[p.Name] = bound.Value
			continue
		}
		if bound.Match == binder.NoMatch {
			// an optional parameter never fails the candidate; it falls back to its default
			c.optFailed++
			c.values[p.Name] = binder.ZeroValue(p.Type)
			continue
		}
		c.optBound++
		c.specificity += Rank(p.Type.Kind)
		c.values[p.Name] = bound.Value
	}
	return c, rejection{}, true
}

// rejectionError reports a parameter mismatch when any candidate was rejected
// for a present but unbindable value, else the first missing parameter.
func rejectionError(op string, rejected []rejection) error {
	for _, rej := range rejected {
		if rej.mismatch {
			return operation.ParameterMismatch(op, rej.param)
		}
	}
	return operation.MissingParameter(op, rejected[0].param)
}

func topCandidates(cs []candidate) []candidate {
	best := []candidate{cs[0]}
	for _, c := range cs[1:] {
		switch cmp := compare(c, best[0]); {
		case cmp > 0:
			best = []candidate{c}
		case cmp == 0:
			best = append(best, c)
		}
	}
	return best
}

// compare returns >0 when a ranks above b, <0 when below, 0 on a tie.
func compare(a, b candidate) int {
	if a.strict != b.strict {
		return a.strict - b.strict
	}
	if a.optFailed != b.optFailed {
		return b.optFailed - a.optFailed
	}
	if a.optBound != b.optBound {
		return a.optBound - b.optBound
	}
	return a.specificity - b.specificity
}

var kindRank = map[operation.Kind]int{
	operation.KindBool:    10,
	operation.KindByte:    9,
	operation.KindInt:     8,
	operation.KindLong:    7,
	operation.KindFloat:   6,
	operation.KindDouble:  5,
	operation.KindDecimal: 4,
	operation.KindString:  3,
	operation.KindStruct:  2,
	operation.KindRaw:     1,
}

// Rank is the tie-break priority of a kind; narrower kinds rank higher.
// Collections rank by their element kind.
func Rank(k operation.Kind) int {
	return kindRank[k]
}
