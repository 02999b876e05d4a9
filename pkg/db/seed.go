package db

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/operation-engine/pkg/catalog"
)

const seedLogPrefix = "db:seed"

// SeedParams holds parameters for Seed.
type SeedParams struct {
	// Path is the manifest to seed; empty seeds the builtin manifest.
	Path string
	// BaseDir, when set, confines Path to that directory.
	BaseDir string
	UserID  string
}

// Seed validates a manifest and upserts its operations in one transaction.
// It returns the number of operations written.
func Seed(ctx context.Context, pool *pgxpool.Pool, params SeedParams) (int, error) {
	m, err := loadSeedManifest(params.Path, params.BaseDir)
	if err != nil {
		return 0, err
	}
	if err := ValidateManifest(m); err != nil {
		return 0, err
	}
	if len(m.Operations) == 0 {
		slog.Info(fmt.Sprintf("%s - no operations to seed", seedLogPrefix))
		return 0, nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s - begin tx: %w", seedLogPrefix, err)
	}
	defer tx.Rollback(ctx)

	repo := NewRepository(pool).WithTx(tx)
	for _, spec := range m.Operations {
		if _, err := repo.UpsertOperation(ctx, UpsertOperationParams{Spec: spec, UserID: params.UserID}); err != nil {
			return 0, fmt.Errorf("%s - upsert %s: %w", seedLogPrefix, spec.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%s - commit: %w", seedLogPrefix, err)
	}
	slog.Info(fmt.Sprintf("%s - seeded %d operations from %s", seedLogPrefix, len(m.Operations), m.Name))
	return len(m.Operations), nil
}

// ValidateManifest checks that every operation in m parses, without binding handlers.
func ValidateManifest(m *catalog.Manifest) error {
	if err := catalog.CheckCompatibility(m); err != nil {
		return err
	}
	shapes, err := catalog.BuildShapes(m.Shapes)
	if err != nil {
		return err
	}
	for _, spec := range m.Operations {
		if spec.Name == "" || spec.Handler == "" {
			return fmt.Errorf("%s - operation %q: name and handler are required", seedLogPrefix, spec.Name)
		}
		if _, err := catalog.BuildOperation(spec, shapes); err != nil {
			return err
		}
	}
	return nil
}

func loadSeedManifest(path, baseDir string) (*catalog.Manifest, error) {
	if path == "" {
		return catalog.DefaultManifest(), nil
	}
	if baseDir != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("%s - resolve path: %w", seedLogPrefix, err)
		}
		absBase, err := filepath.Abs(baseDir)
		if err != nil {
			return nil, fmt.Errorf("%s - resolve base dir: %w", seedLogPrefix, err)
		}
		rel, err := filepath.Rel(absBase, absPath)
		if err != nil {
			return nil, fmt.Errorf("%s - path not under base: %w", seedLogPrefix, err)
		}
		if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, fmt.Errorf("%s - path must be under base directory", seedLogPrefix)
		}
		path = absPath
	}
	return catalog.ReadManifest(path)
}
