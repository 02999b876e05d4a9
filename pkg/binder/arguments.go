package binder

import (
	"net/url"
	"sort"

	"github.com/morezero/operation-engine/pkg/token"
)

// Arguments is the raw argument set of one request: an optional JSON body and
// the flat query-string collection. Members are looked up by name in the body
// first, then in the query string.
type Arguments struct {
	body  token.Value
	query url.Values
}

// NewArguments builds an argument set. A {"models":[{...}]} body is unwrapped
// to its first element.
func NewArguments(body token.Value, query url.Values) Arguments {
	return Arguments{body: token.UnwrapModels(body), query: query}
}

// lookup returns the raw value for name and whether it came from the query string.
// A single query entry is a String token; repeated entries are an Array of strings.
func (a Arguments) lookup(name string) (v token.Value, fromQuery bool, present bool) {
	if m, ok := a.body.Get(name); ok {
		return m, false, true
	}
	values, ok := a.query[name]
	if !ok || len(values) == 0 {
		return token.Value{}, false, false
	}
	if len(values) == 1 {
		return token.StringValue(values[0]), true, true
	}
	items := make([]token.Value, len(values))
	for i, s := range values {
		items[i] = token.StringValue(s)
	}
	return token.ArrayValue(items...), true, true
}

// Has reports whether name is supplied in the body or the query string.
func (a Arguments) Has(name string) bool {
	_, _, ok := a.lookup(name)
	return ok
}

// Keys returns every supplied member name, body and query combined, sorted.
func (a Arguments) Keys() []string {
	seen := make(map[string]struct{})
	for _, k := range a.body.Keys() {
		seen[k] = struct{}{}
	}
	for k := range a.query {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
