package resolver

import (
	"errors"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"golang.org/x/text/language"

	"github.com/morezero/operation-engine/pkg/binder"
	"github.com/morezero/operation-engine/pkg/operation"
	"github.com/morezero/operation-engine/pkg/token"
)

type stubCatalog map[string][]*operation.Descriptor

func (s stubCatalog) Lookup(name string) []*operation.Descriptor { return s[name] }

var content = &operation.Content{ContentID: "1", Type: "Folder"}

func entityParam() operation.Parameter {
	return operation.Parameter{Name: "content", Type: operation.Type{Kind: operation.KindEntity}}
}

func req(name string, kind operation.Kind) operation.Parameter {
	return operation.Parameter{Name: name, Type: operation.Type{Kind: kind}}
}

func opt(name string, kind operation.Kind) operation.Parameter {
	return operation.Parameter{Name: name, Type: operation.Type{Kind: kind}, Optional: true}
}

func descriptor(name string, params ...operation.Parameter) *operation.Descriptor {
	return operation.NewDescriptor(operation.Declaration{
		Name:       name,
		Parameters: append([]operation.Parameter{entityParam()}, params...),
	})
}

func resolve(t *testing.T, cat stubCatalog, op, body string) (*operation.CallContext, error) {
	t.Helper()
	r := New(cat, binder.Options{})
	return r.Resolve(Request{Entity: content, Operation: op, Body: token.MustParse(body)})
}

func TestResolve_FV1OptionalTieBreak(t *testing.T) {
	intX := descriptor("fv1", req("a", operation.KindString), opt("x", operation.KindInt))
	strX := descriptor("fv1", req("a", operation.KindString), opt("x", operation.KindString))
	boolX := descriptor("fv1", req("a", operation.KindString), opt("x", operation.KindBool))

	tests := []struct {
		name    string
		descs   []*operation.Descriptor
		body    string
		want    *operation.Descriptor
		wantErr string
	}{
		{name: "int vs string, numeric text", descs: []*operation.Descriptor{intX, strX}, body: `{"a":"asdf","x":"42"}`, want: intX},
		{name: "int vs string, boolean text", descs: []*operation.Descriptor{intX, strX}, body: `{"a":"asdf","x":"true"}`, want: strX},
		{name: "int vs bool, boolean text", descs: []*operation.Descriptor{intX, boolX}, body: `{"a":"asdf","x":"true"}`, want: boolX},
		{name: "int vs bool, numeric text", descs: []*operation.Descriptor{intX, boolX}, body: `{"a":"asdf","x":"42"}`, want: intX},
		{name: "bool vs int order independent", descs: []*operation.Descriptor{boolX, intX}, body: `{"a":"asdf","x":"42"}`, want: intX},
		{name: "int vs string, json number", descs: []*operation.Descriptor{strX, intX}, body: `{"a":"asdf","x":42}`, want: intX},
		{name: "optional omitted is ambiguous", descs: []*operation.Descriptor{intX, strX}, body: `{"a":"asdf"}`, wantErr: operation.CodeAmbiguousMatch},
		{name: "extra keys ignored", descs: []*operation.Descriptor{intX, boolX}, body: `{"a":"asdf","x":"1","zzz":5}`, want: intX},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call, err := resolve(t, stubCatalog{"fv1": tt.descs}, "fv1", tt.body)
			if tt.wantErr != "" {
				if operation.CodeOf(err) != tt.wantErr {
					t.Fatalf("resolver:resolver_test - err = %v, want %s", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolver:resolver_test - unexpected error: %v", err)
			}
			if call.Descriptor != tt.want {
				t.Errorf("resolver:resolver_test - resolved %s, want %s", call.Descriptor.Signature(), tt.want.Signature())
			}
		})
	}
}

func TestResolve_AmbiguousNamesAllSignatures(t *testing.T) {
	intX := descriptor("fv1", req("a", operation.KindString), opt("x", operation.KindInt))
	strX := descriptor("fv1", req("a", operation.KindString), opt("x", operation.KindString))

	_, err := resolve(t, stubCatalog{"fv1": {intX, strX}}, "fv1", `{"a":"asdf"}`)
	var opErr *operation.Error
	if !errors.As(err, &opErr) {
		t.Fatalf("resolver:resolver_test - err = %v, want *operation.Error", err)
	}
	for _, sig := range []string{intX.Signature(), strX.Signature()} {
		if !strings.Contains(opErr.Message, sig) {
			t.Errorf("resolver:resolver_test - message %q missing %q", opErr.Message, sig)
		}
	}
}

func TestResolve_DisjointRequiredShapes(t *testing.T) {
	strA := descriptor("op", req("a", operation.KindString))
	boolA := descriptor("op", req("a", operation.KindBool))
	intA := descriptor("op", req("a", operation.KindInt))
	intA2 := descriptor("op", req("a", operation.KindInt))
	longA := descriptor("op", req("a", operation.KindLong))

	tests := []struct {
		name    string
		descs   []*operation.Descriptor
		body    string
		want    *operation.Descriptor
		wantErr string
	}{
		{name: "json bool prefers bool", descs: []*operation.Descriptor{strA, boolA}, body: `{"a":true}`, want: boolA},
		{name: "text prefers string", descs: []*operation.Descriptor{strA, boolA}, body: `{"a":"hello"}`, want: strA},
		{name: "strict string beats relaxed bool", descs: []*operation.Descriptor{strA, boolA}, body: `{"a":"true"}`, want: strA},
		{name: "narrower numeric wins", descs: []*operation.Descriptor{longA, intA}, body: `{"a":42}`, want: intA},
		{name: "identical shapes are ambiguous", descs: []*operation.Descriptor{intA, intA2}, body: `{"a":42}`, wantErr: operation.CodeAmbiguousMatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call, err := resolve(t, stubCatalog{"op": tt.descs}, "op", tt.body)
			if tt.wantErr != "" {
				if operation.CodeOf(err) != tt.wantErr {
					t.Fatalf("resolver:resolver_test - err = %v, want %s", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolver:resolver_test - unexpected error: %v", err)
			}
			if call.Descriptor != tt.want {
				t.Errorf("resolver:resolver_test - resolved %s, want %s", call.Descriptor.Signature(), tt.want.Signature())
			}
		})
	}
}

func TestResolve_StructShapesDisambiguate(t *testing.T) {
	ship := &operation.Shape{Name: "Ship", Fields: []operation.Field{
		{Name: "Name", Type: operation.Type{Kind: operation.KindString}},
		{Name: "Class", Type: operation.Type{Kind: operation.KindString}},
		{Name: "Length", Type: operation.Type{Kind: operation.KindInt}},
	}}
	animal := &operation.Shape{Name: "Animal", Fields: []operation.Field{
		{Name: "Snout", Type: operation.Type{Kind: operation.KindInt}},
		{Name: "Height", Type: operation.Type{Kind: operation.KindInt}},
	}}
	shipOp := descriptor("ObjectParam", operation.Parameter{Name: "data", Type: operation.Type{Kind: operation.KindStruct, Shape: ship}})
	animalOp := descriptor("ObjectParam", operation.Parameter{Name: "data", Type: operation.Type{Kind: operation.KindStruct, Shape: animal}})
	cat := stubCatalog{"ObjectParam": {shipOp, animalOp}}

	call, err := resolve(t, cat, "ObjectParam", `{"data":{"Name":"X","Class":"Y","Length":3}}`)
	if err != nil || call.Descriptor != shipOp {
		t.Fatalf("resolver:resolver_test - ship token resolved to %v (err %v)", call, err)
	}
	call, err = resolve(t, cat, "ObjectParam", `{"data":{"Snout":1,"Height":2}}`)
	if err != nil || call.Descriptor != animalOp {
		t.Fatalf("resolver:resolver_test - animal token resolved to %v (err %v)", call, err)
	}
}

func TestResolve_NotFoundReasons(t *testing.T) {
	op := descriptor("op", req("a", operation.KindInt))
	cat := stubCatalog{"op": {op}}

	tests := []struct {
		name       string
		op         string
		body       string
		wantReason string
	}{
		{name: "unknown operation", op: "nope", body: `{}`, wantReason: operation.ReasonUnknownOperation},
		{name: "missing parameter", op: "op", body: `{}`, wantReason: operation.ReasonMissingParameter},
		{name: "wrong type", op: "op", body: `{"a":"x"}`, wantReason: operation.ReasonParameterMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolve(t, cat, tt.op, tt.body)
			var opErr *operation.Error
			if !errors.As(err, &opErr) {
				t.Fatalf("resolver:resolver_test - err = %v, want *operation.Error", err)
			}
			if opErr.Code != operation.CodeOperationNotFound || opErr.Reason != tt.wantReason {
				t.Errorf("resolver:resolver_test - got %s/%s, want %s/%s", opErr.Code, opErr.Reason, operation.CodeOperationNotFound, tt.wantReason)
			}
		})
	}
}

func TestResolve_OptionalDefaultsAndArgumentOrder(t *testing.T) {
	op := descriptor("op",
		req("a", operation.KindString),
		opt("n", operation.KindInt),
		opt("f", operation.KindBool),
		opt("s", operation.KindString),
		opt("maybe", operation.KindLong),
		req("b", operation.KindDouble),
	)

	call, err := resolve(t, stubCatalog{"op": {op}}, "op", `{"models":[{"a":"x","b":1.5}]}`)
	if err != nil {
		t.Fatalf("resolver:resolver_test - unexpected error: %v", err)
	}
	want := []any{"x", 1.5, int32(0), false, "", int64(0)}
	if got := call.Args(); !reflect.DeepEqual(got, want) {
		t.Errorf("resolver:resolver_test - Args() = %#v, want %#v", got, want)
	}
	if call.Entity != content {
		t.Error("resolver:resolver_test - entity not carried into call context")
	}
}

func TestResolve_QueryStringAndLocale(t *testing.T) {
	op := descriptor("op", req("amount", operation.KindDouble), opt("tags", operation.KindString))
	r := New(stubCatalog{"op": {op}}, binder.Options{Locale: language.AmericanEnglish})

	call, err := r.Resolve(Request{
		Entity:    content,
		Operation: "op",
		Query:     url.Values{"amount": {"2,5"}},
		Locale:    language.German,
	})
	if err != nil {
		t.Fatalf("resolver:resolver_test - unexpected error: %v", err)
	}
	if call.Values["amount"] != 2.5 {
		t.Errorf("resolver:resolver_test - amount = %v, want 2.5", call.Values["amount"])
	}

	if _, err := r.Resolve(Request{Entity: content, Operation: "op", Query: url.Values{"amount": {"2,5"}}}); operation.CodeOf(err) != operation.CodeOperationNotFound {
		t.Errorf("resolver:resolver_test - default en-US locale should reject comma, got %v", err)
	}
}

func TestRank_NarrowerFirst(t *testing.T) {
	order := []operation.Kind{
		operation.KindBool, operation.KindByte, operation.KindInt, operation.KindLong,
		operation.KindFloat, operation.KindDouble, operation.KindDecimal, operation.KindString,
		operation.KindStruct, operation.KindRaw,
	}
	for i := 1; i < len(order); i++ {
		if Rank(order[i-1]) <= Rank(order[i]) {
			t.Errorf("resolver:resolver_test - Rank(%s) should exceed Rank(%s)", order[i-1], order[i])
		}
	}
}
