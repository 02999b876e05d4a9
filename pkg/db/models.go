package db

import (
	"strings"
	"time"

	"github.com/morezero/operation-engine/pkg/catalog"
)

// Operation statuses.
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// Operation represents a row in the operations table.
type Operation struct {
	ID           string                  `json:"id"`
	Name         string                  `json:"name"`
	Key          string                  `json:"key"`
	Handler      string                  `json:"handler"`
	ReturnKind   string                  `json:"return_kind"`
	Alias        *string                 `json:"alias,omitempty"`
	Description  *string                 `json:"description,omitempty"`
	DisplayName  *string                 `json:"display_name,omitempty"`
	Icon         *string                 `json:"icon,omitempty"`
	EntityParam  *string                 `json:"entity_param,omitempty"`
	Parameters   []catalog.ParameterSpec `json:"parameters"`
	ContentTypes []string                `json:"content_types"`
	Roles        []string                `json:"roles"`
	Permissions  []string                `json:"permissions"`
	Policies     []string                `json:"policies"`
	Scenarios    []string                `json:"scenarios"`
	Status       string                  `json:"status"`
	Revision     int                     `json:"revision"`
	Created      time.Time               `json:"created"`
	CreatedBy    string                  `json:"created_by"`
	Modified     time.Time               `json:"modified"`
	ModifiedBy   string                  `json:"modified_by"`
}

// Spec converts the row back to the manifest form.
func (o *Operation) Spec() catalog.OperationSpec {
	return catalog.OperationSpec{
		Name:         o.Name,
		Handler:      o.Handler,
		Return:       o.ReturnKind,
		Alias:        deref(o.Alias),
		Description:  deref(o.Description),
		DisplayName:  deref(o.DisplayName),
		Icon:         deref(o.Icon),
		Entity:       deref(o.EntityParam),
		Parameters:   o.Parameters,
		ContentTypes: o.ContentTypes,
		Roles:        o.Roles,
		Permissions:  o.Permissions,
		Policies:     o.Policies,
		Scenarios:    o.Scenarios,
	}
}

// OperationKey identifies an overload by name and parameter list, e.g.
// "fv1(string a,[int x])". Names compare case-insensitively.
func OperationKey(spec catalog.OperationSpec) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(spec.Name))
	b.WriteString("(")
	for i, p := range spec.Parameters {
		if i > 0 {
			b.WriteString(",")
		}
		if p.Optional {
			b.WriteString("[")
		}
		b.WriteString(strings.ToLower(strings.ReplaceAll(p.Type, " ", "")))
		b.WriteString(" ")
		b.WriteString(p.Name)
		if p.Optional {
			b.WriteString("]")
		}
	}
	b.WriteString(")")
	return b.String()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
