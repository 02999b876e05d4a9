package catalog

import (
	"fmt"
	"strings"

	"github.com/morezero/operation-engine/pkg/operation"
)

var kindsByName = map[string]operation.Kind{
	"entity":   operation.KindEntity,
	"string":   operation.KindString,
	"int":      operation.KindInt,
	"int32":    operation.KindInt,
	"long":     operation.KindLong,
	"int64":    operation.KindLong,
	"byte":     operation.KindByte,
	"bool":     operation.KindBool,
	"boolean":  operation.KindBool,
	"float":    operation.KindFloat,
	"single":   operation.KindFloat,
	"double":   operation.KindDouble,
	"decimal":  operation.KindDecimal,
	"raw":      operation.KindRaw,
	"datetime": operation.KindDateTime,
	"object":   operation.KindObject,
}

// ParseType parses a parameter type string:
//
//	int  int?  string[]  list<long>  seq<int?>  struct:Ship  struct:Ship[]  raw
//
// Shape references are looked up in shapes by exact name.
func ParseType(s string, shapes map[string]*operation.Shape) (operation.Type, error) {
	spec := strings.TrimSpace(s)
	var t operation.Type

	lower := strings.ToLower(spec)
	switch {
	case strings.HasPrefix(lower, "list<") && strings.HasSuffix(lower, ">"):
		t.Collection = operation.CollectionList
		spec = spec[len("list<") : len(spec)-1]
	case strings.HasPrefix(lower, "seq<") && strings.HasSuffix(lower, ">"):
		t.Collection = operation.CollectionSequence
		spec = spec[len("seq<") : len(spec)-1]
	case strings.HasSuffix(lower, "[]"):
		t.Collection = operation.CollectionArray
		spec = spec[:len(spec)-2]
	}

	spec = strings.TrimSpace(spec)
	if strings.HasSuffix(spec, "?") {
		t.Nullable = true
		spec = strings.TrimSpace(spec[:len(spec)-1])
	}
	if strings.ContainsAny(spec, "<>[]?") {
		return operation.Type{}, fmt.Errorf("unsupported type %q", s)
	}

	if name, ok := cutPrefixFold(spec, "struct:"); ok {
		shape, found := shapes[name]
		if !found {
			return operation.Type{}, fmt.Errorf("unknown shape %q in type %q", name, s)
		}
		t.Kind = operation.KindStruct
		t.Shape = shape
		return t, nil
	}

	kind, ok := kindsByName[strings.ToLower(spec)]
	if !ok {
		return operation.Type{}, fmt.Errorf("unknown type %q", s)
	}
	t.Kind = kind
	return t, nil
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(s[len(prefix):]), true
}
