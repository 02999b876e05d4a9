// Package token provides the tagged-value tree the engine binds raw request input from.
package token

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// Kind is the variant of a Value.
type Kind int

const (
	Undefined Kind = iota
	Null
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "undefined"
	}
}

// Value is one node of a JSON-like tree. The zero Value is Undefined.
// Numbers keep their literal text so no precision is lost before binding.
type Value struct {
	kind   Kind
	b      bool
	text   string
	items  []Value
	keys   []string
	fields map[string]Value
}

// NullValue returns an explicit null.
func NullValue() Value { return Value{kind: Null} }

// BoolValue wraps a boolean.
func BoolValue(b bool) Value { return Value{kind: Bool, b: b} }

// NumberValue wraps a numeric literal such as "42" or "1.5e3".
func NumberValue(literal string) Value { return Value{kind: Number, text: literal} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: String, text: s} }

// ArrayValue wraps a list of values.
func ArrayValue(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: Array, items: items}
}

// ObjectValue builds an object from a member map. Members are kept in key order.
func ObjectValue(members map[string]Value) Value {
	keys := make([]string, 0, len(members))
	fields := make(map[string]Value, len(members))
	for k, v := range members {
		keys = append(keys, k)
		fields[k] = v
	}
	sort.Strings(keys)
	return Value{kind: Object, keys: keys, fields: fields}
}

// Kind returns the variant.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null or undefined.
func (v Value) IsNull() bool { return v.kind == Null || v.kind == Undefined }

// IsDefined reports whether v carries anything, null included.
func (v Value) IsDefined() bool { return v.kind != Undefined }

// Bool returns the boolean payload.
func (v Value) Bool() bool { return v.b }

// Text returns the string payload or the numeric literal.
func (v Value) Text() string { return v.text }

// Items returns the array elements.
func (v Value) Items() []Value { return v.items }

// Keys returns object member names in sorted order.
func (v Value) Keys() []string { return v.keys }

// Get returns an object member.
func (v Value) Get(name string) (Value, bool) {
	if v.kind != Object {
		return Value{}, false
	}
	m, ok := v.fields[name]
	return m, ok
}

// Interface converts v to plain Go values: nil, bool, json.Number, string,
// []any and map[string]any.
func (v Value) Interface() any {
	switch v.kind {
	case Bool:
		return v.b
	case Number:
		return json.Number(v.text)
	case String:
		return v.text
	case Array:
		out := make([]any, len(v.items))
		for i, item := range v.items {
			out[i] = item.Interface()
		}
		return out
	case Object:
		out := make(map[string]any, len(v.fields))
		for k, f := range v.fields {
			out[k] = f.Interface()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON renders v as JSON. Undefined renders as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case Undefined, Null:
		return []byte("null"), nil
	case Bool:
		return []byte(strconv.FormatBool(v.b)), nil
	case Number:
		return []byte(v.text), nil
	case String:
		return json.Marshal(v.text)
	case Array:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	default:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range v.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			b, err := v.fields[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	}
}

// UnmarshalJSON parses JSON into v.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Parse decodes a JSON document. Empty input yields Undefined.
func Parse(data []byte) (Value, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Value{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Value{}, fmt.Errorf("token: invalid JSON: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, fmt.Errorf("token: invalid JSON: trailing data after document")
	}
	return FromInterface(raw)
}

// FromInterface converts decoded JSON or plain Go values into a Value.
func FromInterface(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return NullValue(), nil
	case Value:
		return x, nil
	case bool:
		return BoolValue(x), nil
	case json.Number:
		return NumberValue(x.String()), nil
	case float64:
		return NumberValue(strconv.FormatFloat(x, 'g', -1, 64)), nil
	case float32:
		return NumberValue(strconv.FormatFloat(float64(x), 'g', -1, 32)), nil
	case int:
		return NumberValue(strconv.Itoa(x)), nil
	case int32:
		return NumberValue(strconv.FormatInt(int64(x), 10)), nil
	case int64:
		return NumberValue(strconv.FormatInt(x, 10)), nil
	case string:
		return StringValue(x), nil
	case []string:
		items := make([]Value, len(x))
		for i, s := range x {
			items[i] = StringValue(s)
		}
		return ArrayValue(items...), nil
	case []any:
		items := make([]Value, len(x))
		for i, item := range x {
			v, err := FromInterface(item)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return ArrayValue(items...), nil
	case map[string]any:
		members := make(map[string]Value, len(x))
		for k, item := range x {
			v, err := FromInterface(item)
			if err != nil {
				return Value{}, err
			}
			members[k] = v
		}
		return ObjectValue(members), nil
	}
	return Value{}, fmt.Errorf("token: unsupported value type %T", raw)
}

// MustParse is Parse for literals in tests and fixtures.
func MustParse(s string) Value {
	v, err := Parse([]byte(s))
	if err != nil {
		panic(err)
	}
	return v
}

// UnwrapModels unwraps the POST-style {"models":[{...}]} envelope to its first element.
// Any other value is returned unchanged.
func UnwrapModels(v Value) Value {
	if v.kind != Object {
		return v
	}
	models, ok := v.fields["models"]
	if !ok || models.kind != Array || len(models.items) == 0 {
		return v
	}
	if first := models.items[0]; first.kind == Object {
		return first
	}
	return v
}
