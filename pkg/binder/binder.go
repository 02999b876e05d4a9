// Package binder converts raw request arguments into typed parameter values.
//
// Binding reports how well a raw value fits the declared type: Strict when the
// raw value already has the target kind, Relaxed when it had to be parsed from
// text or converted, NoMatch when it cannot be bound at all.
package binder

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/inf.v0"

	"github.com/morezero/operation-engine/pkg/operation"
	"github.com/morezero/operation-engine/pkg/token"
)

// Match is the binding quality of one parameter.
type Match int

const (
	NoMatch Match = iota
	Relaxed
	Strict
)

func (m Match) String() string {
	switch m {
	case Strict:
		return "strict"
	case Relaxed:
		return "relaxed"
	default:
		return "none"
	}
}

// Options configures a Binder.
type Options struct {
	// Locale selects the decimal separator accepted for float, double and decimal text.
	Locale language.Tag
}

// Binding is the outcome of binding one parameter.
type Binding struct {
	Value any
	Match Match
	// Present is true when the argument key was supplied, null included.
	Present bool
}

// Binder binds parameters against an argument set. It is safe for concurrent use.
type Binder struct {
	locale language.Tag
}

// New creates a Binder.
func New(opts Options) *Binder {
	return &Binder{locale: opts.Locale}
}

// Locale returns the configured locale.
func (b *Binder) Locale() language.Tag { return b.locale }

// Bind binds p from args.
//
// A missing, null or undefined argument binds the default value of an optional
// parameter. A null argument binds nil for a nullable parameter. A required
// parameter that is missing does not match.
func (b *Binder) Bind(p operation.Parameter, args Arguments) Binding {
	raw, fromQuery, present := args.lookup(p.Name)

	if !present || raw.IsNull() {
		switch {
		case present && p.Type.Kind == operation.KindRaw:
			return Binding{Value: raw, Match: Relaxed, Present: true}
		case present && p.Type.Nullable && p.Type.Collection == operation.CollectionNone:
			return Binding{Value: nil, Match: Strict, Present: true}
		case p.Optional:
			return Binding{Value: ZeroValue(p.Type), Match: Strict, Present: present}
		default:
			return Binding{Match: NoMatch, Present: present}
		}
	}

	v, m := b.convert(p.Type, raw, fromQuery)
	if m == NoMatch {
		return Binding{Match: NoMatch, Present: true}
	}
	return Binding{Value: v, Match: m, Present: true}
}

// BindValue binds a single raw value to t, outside of any argument set.
func (b *Binder) BindValue(t operation.Type, raw token.Value) (any, Match) {
	if raw.IsNull() {
		if t.Kind == operation.KindRaw {
			return raw, Relaxed
		}
		if t.Nullable || t.Kind == operation.KindStruct {
			return nil, Strict
		}
		return nil, NoMatch
	}
	return b.convert(t, raw, false)
}

func (b *Binder) convert(t operation.Type, raw token.Value, fromQuery bool) (any, Match) {
	if t.Collection != operation.CollectionNone {
		return b.convertCollection(t, raw, fromQuery)
	}
	switch t.Kind {
	case operation.KindRaw:
		return raw, Relaxed
	case operation.KindStruct:
		return b.convertStruct(t, raw)
	default:
		if !t.Kind.IsPrimitive() {
			return nil, NoMatch
		}
		return b.convertPrimitive(t.Kind, raw)
	}
}

func (b *Binder) convertCollection(t operation.Type, raw token.Value, fromQuery bool) (any, Match) {
	var items []token.Value
	switch {
	case raw.Kind() == token.Array:
		items = raw.Items()
	case fromQuery:
		// the query string always yields a list, even for a single entry
		items = []token.Value{raw}
	default:
		return nil, NoMatch
	}

	elem := t.Elem()
	values := make([]any, len(items))
	match := Strict
	for i, item := range items {
		v, m := b.BindValue(elem, item)
		if m == NoMatch {
			return nil, NoMatch
		}
		if m < match {
			match = m
		}
		values[i] = v
	}
	return makeSlice(elem, values), match
}

func (b *Binder) convertStruct(t operation.Type, raw token.Value) (any, Match) {
	if raw.Kind() != token.Object {
		return nil, NoMatch
	}
	shape := t.Shape
	if shape == nil {
		return nil, NoMatch
	}

	fields := make(map[string]any, len(raw.Keys()))
	match := Strict
	for _, key := range raw.Keys() {
		f, ok := shape.Field(key)
		if !ok {
			return nil, NoMatch
		}
		member, _ := raw.Get(key)
		v, m := b.BindValue(f.Type, member)
		if m == NoMatch {
			return nil, NoMatch
		}
		if m < match {
			match = m
		}
		fields[f.Name] = jsonValue(v)
	}

	if shape.New == nil {
		return fields, match
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, NoMatch
	}
	out := shape.New()
	if err := json.Unmarshal(data, out); err != nil {
		return nil, NoMatch
	}
	return out, match
}

func (b *Binder) convertPrimitive(kind operation.Kind, raw token.Value) (any, Match) {
	switch raw.Kind() {
	case token.String:
		v, ok := b.parseText(kind, raw.Text())
		if !ok {
			return nil, NoMatch
		}
		if kind == operation.KindString {
			return v, Strict
		}
		return v, Relaxed
	case token.Number:
		if kind == operation.KindString {
			return raw.Text(), Relaxed
		}
		if kind == operation.KindBool {
			return nil, NoMatch
		}
		v, ok := parseNumber(kind, raw.Text())
		if !ok {
			return nil, NoMatch
		}
		return v, Strict
	case token.Bool:
		switch kind {
		case operation.KindBool:
			return raw.Bool(), Strict
		case operation.KindString:
			return strconv.FormatBool(raw.Bool()), Relaxed
		}
	}
	return nil, NoMatch
}

// parseText parses a string argument into kind.
func (b *Binder) parseText(kind operation.Kind, s string) (any, bool) {
	switch kind {
	case operation.KindString:
		return s, true
	case operation.KindBool:
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
		return nil, false
	case operation.KindFloat, operation.KindDouble, operation.KindDecimal:
		n, ok := normalizeDecimal(s, b.locale)
		if !ok {
			return nil, false
		}
		return parseNumber(kind, n)
	default:
		return parseNumber(kind, strings.TrimSpace(s))
	}
}

// parseNumber parses a canonical numeric literal into kind.
func parseNumber(kind operation.Kind, s string) (any, bool) {
	switch kind {
	case operation.KindInt:
		n, ok := parseInteger(s, math.MinInt32, math.MaxInt32)
		return int32(n), ok
	case operation.KindLong:
		n, ok := parseInteger(s, math.MinInt64, math.MaxInt64)
		return n, ok
	case operation.KindByte:
		n, ok := parseInteger(s, 0, math.MaxUint8)
		return uint8(n), ok
	case operation.KindFloat:
		f, err := strconv.ParseFloat(s, 32)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
		return float32(f), true
	case operation.KindDouble:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
		return f, true
	case operation.KindDecimal:
		d, ok := parseDecimal(s)
		if !ok {
			return nil, false
		}
		return d, true
	}
	return nil, false
}

// maxDecimalExponent bounds the exponent of a decimal literal.
const maxDecimalExponent = 1000

// parseDecimal parses a decimal literal, including the exponent forms JSON
// allows ("1e2", "2.5E-1"). Results never carry a negative scale.
func parseDecimal(s string) (*inf.Dec, bool) {
	if d, ok := new(inf.Dec).SetString(s); ok {
		return d, true
	}
	i := strings.IndexAny(s, "eE")
	if i <= 0 {
		return nil, false
	}
	exp, err := strconv.Atoi(s[i+1:])
	if err != nil || exp > maxDecimalExponent || exp < -maxDecimalExponent {
		return nil, false
	}
	d, ok := new(inf.Dec).SetString(s[:i])
	if !ok {
		return nil, false
	}
	d.SetScale(d.Scale() - inf.Scale(exp))
	if d.Scale() < 0 {
		d = new(inf.Dec).Round(d, 0, inf.RoundExact)
	}
	return d, d != nil
}

// parseInteger accepts plain integer literals and integral float literals
// ("42", "42.0", "4.2e1") inside [lo, hi].
func parseInteger(s string, lo, hi int64) (int64, bool) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, n >= lo && n <= hi
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < float64(lo) || f > float64(hi) {
		return 0, false
	}
	return int64(f), true
}

// ZeroValue is the default bound to an omitted optional parameter of type t.
// Nullable kinds, structs and raw values default to nil; collections to a nil slice.
func ZeroValue(t operation.Type) any {
	if t.Collection != operation.CollectionNone {
		return makeSlice(t.Elem(), nil)
	}
	if t.Nullable {
		return nil
	}
	switch t.Kind {
	case operation.KindString:
		return ""
	case operation.KindInt:
		return int32(0)
	case operation.KindLong:
		return int64(0)
	case operation.KindByte:
		return uint8(0)
	case operation.KindBool:
		return false
	case operation.KindFloat:
		return float32(0)
	case operation.KindDouble:
		return float64(0)
	case operation.KindDecimal:
		return new(inf.Dec)
	}
	return nil
}

// makeSlice builds a typed slice for elem from bound values. A nil values
// slice yields a typed nil slice.
func makeSlice(elem operation.Type, values []any) any {
	if elem.Nullable {
		return values
	}
	switch elem.Kind {
	case operation.KindString:
		return typedSlice[string](values)
	case operation.KindInt:
		return typedSlice[int32](values)
	case operation.KindLong:
		return typedSlice[int64](values)
	case operation.KindByte:
		return typedSlice[uint8](values)
	case operation.KindBool:
		return typedSlice[bool](values)
	case operation.KindFloat:
		return typedSlice[float32](values)
	case operation.KindDouble:
		return typedSlice[float64](values)
	case operation.KindDecimal:
		return typedSlice[*inf.Dec](values)
	}
	return values
}

func typedSlice[T any](values []any) []T {
	if values == nil {
		return nil
	}
	out := make([]T, len(values))
	for i, v := range values {
		out[i], _ = v.(T)
	}
	return out
}

// jsonValue prepares a bound value for JSON decoding into a shape.
func jsonValue(v any) any {
	switch x := v.(type) {
	case *inf.Dec:
		return json.Number(x.String())
	case []*inf.Dec:
		out := make([]json.Number, len(x))
		for i, d := range x {
			out[i] = json.Number(d.String())
		}
		return out
	}
	return v
}
