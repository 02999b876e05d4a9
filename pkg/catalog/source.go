package catalog

import (
	"context"
	"fmt"

	"github.com/morezero/operation-engine/pkg/operation"
)

// OperationStore yields persisted operation specs.
type OperationStore interface {
	ListOperationSpecs(ctx context.Context) ([]OperationSpec, error)
}

// StoreSource is a registry source over an OperationStore. Stored operations
// may reference the shapes of the file catalog they were seeded from.
type StoreSource struct {
	Store    OperationStore
	Shapes   map[string]*operation.Shape
	Handlers map[string]operation.Handler
}

// Declarations implements registry.Source.
func (s *StoreSource) Declarations(ctx context.Context) ([]operation.Declaration, error) {
	specs, err := s.Store.ListOperationSpecs(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to list stored operations: %w", logPrefix, err)
	}
	return BuildOperations(specs, s.Shapes, s.Handlers)
}
