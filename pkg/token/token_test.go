package token

import (
	"encoding/json"
	"testing"
)

func TestParse_Kinds(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Kind
	}{
		{name: "empty input", in: "", want: Undefined},
		{name: "null", in: "null", want: Null},
		{name: "bool", in: "true", want: Bool},
		{name: "number", in: "42", want: Number},
		{name: "string", in: `"x"`, want: String},
		{name: "array", in: `[1,2]`, want: Array},
		{name: "object", in: `{"a":1}`, want: Object},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Parse([]byte(tt.in))
			if err != nil {
				t.Fatalf("token:token_test - unexpected error: %v", err)
			}
			if v.Kind() != tt.want {
				t.Errorf("token:token_test - Kind() = %s, want %s", v.Kind(), tt.want)
			}
		})
	}
}

func TestParse_InvalidJSON(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "malformed", data: `{invalid`},
		{name: "trailing garbage", data: `{"a":1} junk`},
		{name: "second document", data: `{"a":1}{"b":2}`},
		{name: "stray delimiter", data: `[1] ]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Errorf("token:token_test - Parse(%q) accepted invalid input", tt.data)
			}
		})
	}
	if _, err := Parse([]byte("  {\"a\":1}\n")); err != nil {
		t.Errorf("token:token_test - surrounding whitespace rejected: %v", err)
	}
}

func TestParse_PreservesNumberLiteral(t *testing.T) {
	v := MustParse(`{"big":12345678901234567890.125}`)
	n, ok := v.Get("big")
	if !ok {
		t.Fatal("token:token_test - member big missing")
	}
	if n.Text() != "12345678901234567890.125" {
		t.Errorf("token:token_test - Text() = %q, want literal preserved", n.Text())
	}
}

func TestValue_MarshalJSON_RoundTripsStructure(t *testing.T) {
	v := MustParse(`{"b":[1,"two",null,true],"a":{"x":1.5}}`)
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("token:token_test - marshal failed: %v", err)
	}
	want := `{"a":{"x":1.5},"b":[1,"two",null,true]}`
	if string(data) != want {
		t.Errorf("token:token_test - MarshalJSON = %s, want %s", data, want)
	}
}

func TestValue_Interface(t *testing.T) {
	v := MustParse(`{"n":3,"s":"x","l":[false]}`)
	m, ok := v.Interface().(map[string]any)
	if !ok {
		t.Fatalf("token:token_test - Interface() = %T, want map", v.Interface())
	}
	if m["n"] != json.Number("3") {
		t.Errorf("token:token_test - n = %v, want json.Number 3", m["n"])
	}
	if m["s"] != "x" {
		t.Errorf("token:token_test - s = %v, want x", m["s"])
	}
	if l, ok := m["l"].([]any); !ok || len(l) != 1 || l[0] != false {
		t.Errorf("token:token_test - l = %v, want [false]", m["l"])
	}
}

func TestUnwrapModels(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantKey string
	}{
		{name: "wrapped", in: `{"models":[{"a":"x"}]}`, wantKey: "a"},
		{name: "plain object", in: `{"a":"x"}`, wantKey: "a"},
		{name: "empty models", in: `{"models":[]}`, wantKey: "models"},
		{name: "models not an array", in: `{"models":"x"}`, wantKey: "models"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UnwrapModels(MustParse(tt.in))
			if _, ok := got.Get(tt.wantKey); !ok {
				t.Errorf("token:token_test - expected member %q after unwrap, got keys %v", tt.wantKey, got.Keys())
			}
		})
	}
}

func TestFromInterface_Unsupported(t *testing.T) {
	if _, err := FromInterface(make(chan int)); err == nil {
		t.Fatal("token:token_test - expected error for channel")
	}
}

func TestValue_ZeroIsUndefined(t *testing.T) {
	var v Value
	if v.IsDefined() {
		t.Error("token:token_test - zero Value should be undefined")
	}
	if !v.IsNull() {
		t.Error("token:token_test - undefined should report IsNull")
	}
}
