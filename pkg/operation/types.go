// Package operation defines the descriptor model shared by the engine components:
// operation and parameter descriptors, the call context, and the caller/entity contracts.
package operation

import (
	"context"
	"fmt"
	"strings"
)

// Kind is the declared kind of a parameter value.
type Kind int

const (
	KindInvalid Kind = iota
	KindEntity
	KindString
	KindInt
	KindLong
	KindByte
	KindBool
	KindFloat
	KindDouble
	KindDecimal
	KindStruct
	KindRaw
	// KindDateTime and KindObject can be declared but are not bindable;
	// registration rejects them for required parameters.
	KindDateTime
	KindObject
)

var kindNames = map[Kind]string{
	KindEntity:   "Entity",
	KindString:   "String",
	KindInt:      "Int32",
	KindLong:     "Int64",
	KindByte:     "Byte",
	KindBool:     "Boolean",
	KindFloat:    "Single",
	KindDouble:   "Double",
	KindDecimal:  "Decimal",
	KindStruct:   "Object",
	KindRaw:      "Raw",
	KindDateTime: "DateTime",
	KindObject:   "Object",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "Invalid"
}

// IsPrimitive reports whether k is a scalar kind the binder can coerce from text.
func (k Kind) IsPrimitive() bool {
	switch k {
	case KindString, KindInt, KindLong, KindByte, KindBool, KindFloat, KindDouble, KindDecimal:
		return true
	}
	return false
}

// Collection marks a parameter as a homogeneous sequence of its element kind.
type Collection int

const (
	CollectionNone Collection = iota
	CollectionArray
	CollectionList
	CollectionSequence
)

// Field is one member of a structured shape.
type Field struct {
	Name string
	Type Type
}

// Shape describes a structured parameter type by its field set.
// New, when set, returns a pointer the bound object is JSON-decoded into.
type Shape struct {
	Name   string
	Fields []Field
	New    func() any
}

// Field returns the shape field matching name case-insensitively.
func (s *Shape) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return Field{}, false
}

// Type is the declared type of a parameter.
type Type struct {
	Kind       Kind
	Nullable   bool
	Collection Collection
	Shape      *Shape
}

// Elem returns the element type of a collection type.
func (t Type) Elem() Type {
	return Type{Kind: t.Kind, Nullable: t.Nullable, Shape: t.Shape}
}

// String renders the type the way signatures report it, e.g. "Int32?", "String[]".
func (t Type) String() string {
	name := t.Kind.String()
	if t.Kind == KindStruct && t.Shape != nil && t.Shape.Name != "" {
		name = t.Shape.Name
	}
	if t.Nullable {
		name += "?"
	}
	switch t.Collection {
	case CollectionArray:
		name += "[]"
	case CollectionList:
		name = "List<" + name + ">"
	case CollectionSequence:
		name = "Seq<" + name + ">"
	}
	return name
}

// Parameter describes one parameter slot of an operation.
type Parameter struct {
	Name     string
	Type     Type
	Optional bool
	Position int
}

// ReturnKind classifies how an operation returns its result.
type ReturnKind int

const (
	ReturnValue ReturnKind = iota
	ReturnVoid
	ReturnAsyncValue
	ReturnAsyncVoid
)

// IsAsync reports whether the operation must be called through InvokeAsync.
func (r ReturnKind) IsAsync() bool {
	return r == ReturnAsyncValue || r == ReturnAsyncVoid
}

func (r ReturnKind) String() string {
	switch r {
	case ReturnVoid:
		return "void"
	case ReturnAsyncValue:
		return "async-value"
	case ReturnAsyncVoid:
		return "async-void"
	default:
		return "value"
	}
}

// ParseReturnKind parses the textual form produced by ReturnKind.String.
func ParseReturnKind(s string) (ReturnKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "value":
		return ReturnValue, nil
	case "void":
		return ReturnVoid, nil
	case "async-value", "async":
		return ReturnAsyncValue, nil
	case "async-void":
		return ReturnAsyncVoid, nil
	}
	return ReturnValue, fmt.Errorf("unknown return kind %q", s)
}

// Metadata carries the descriptive and authorization data of an operation.
type Metadata struct {
	Description string
	Icon        string
	DisplayName string
	// OperationName overrides the declared name for lookup and listings.
	OperationName string
	ContentTypes  []string
	Roles         []string
	Permissions   []string
	Policies      []string
	Scenarios     []string
}

// Result is the completion of an asynchronous invocation.
type Result struct {
	Value any
	Err   error
}

// SyncFunc implements a Value or Void operation.
type SyncFunc func(ctx context.Context, entity Entity, args []any) (any, error)

// AsyncFunc implements an AsyncValue or AsyncVoid operation. It must not block;
// the returned channel receives exactly one Result.
type AsyncFunc func(ctx context.Context, entity Entity, args []any) <-chan Result

// Handler is the invocation handle of an operation.
type Handler struct {
	Sync  SyncFunc
	Async AsyncFunc
}

// Declaration is what a registration source yields for one candidate operation.
// Parameters include the target entity parameter at position 0.
type Declaration struct {
	Name       string
	Parameters []Parameter
	Return     ReturnKind
	Metadata   Metadata
	Handler    Handler
}
