package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/operation-engine/internal/config"
	"github.com/morezero/operation-engine/pkg/builtin"
	"github.com/morezero/operation-engine/pkg/catalog"
	"github.com/morezero/operation-engine/pkg/db"
	"github.com/morezero/operation-engine/pkg/dispatcher"
	"github.com/morezero/operation-engine/pkg/engine"
	"github.com/morezero/operation-engine/pkg/events"
	"github.com/morezero/operation-engine/pkg/metrics"
	"github.com/morezero/operation-engine/pkg/operation"
	"github.com/morezero/operation-engine/pkg/registry"
)

const wireLogPrefix = "server:wire"

// Components are the wired engine parts a server instance runs.
type Components struct {
	Registry   *registry.Registry
	Engine     *engine.Engine
	Dispatcher *dispatcher.Dispatcher
	// Pool is nil when no database backs the catalog.
	Pool *pgxpool.Pool
}

// Close releases the database pool, if any.
func (c *Components) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// Wire builds the catalog, registry, engine and dispatcher from cfg and runs
// discovery. Without DATABASE_URL only the file catalog is served.
func Wire(ctx context.Context, cfg *config.Config, publisher events.EventPublisher) (*Components, error) {
	manifest, err := catalog.LoadManifest(cfg.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to load catalog: %w", wireLogPrefix, err)
	}

	handlers := builtin.Handlers(logToucher{})
	built, err := catalog.Build(manifest, handlers)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to build catalog %s: %w", wireLogPrefix, manifest.Name, err)
	}
	pipeline, err := built.Pipeline()
	if err != nil {
		return nil, err
	}

	locale, err := cfg.Locale()
	if err != nil {
		return nil, err
	}

	c := &Components{}
	regConfig := registry.DefaultConfig()
	regConfig.CaseInsensitiveNames = cfg.CaseInsensitiveNames
	regConfig.Service = cfg.COMMSName
	params := registry.NewRegistryParams{
		Publisher: publisher,
		Sources:   []registry.Source{registry.Static(built.Declarations)},
		Config:    regConfig,
	}

	if cfg.DatabaseURL != "" {
		pool, err := openDatabase(ctx, cfg)
		if err != nil {
			return nil, err
		}
		c.Pool = pool
		repo := db.NewRepository(pool)
		params.Sources = append(params.Sources, &catalog.StoreSource{Store: repo, Shapes: built.Shapes, Handlers: handlers})
		params.Database = repo
	}

	c.Registry = registry.NewRegistry(params)
	if err := c.Registry.Discover(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("%s - discovery failed: %w", wireLogPrefix, err)
	}
	metrics.SetRegisteredOperations(c.Registry.Len())

	engineConfig := engine.DefaultConfig()
	engineConfig.Locale = locale
	c.Engine = engine.New(engine.NewEngineParams{Catalog: c.Registry, Pipeline: pipeline, Config: engineConfig})

	dispConfig := dispatcher.Config{
		Environment:          cfg.Environment,
		Identity:             cfg.Identity(),
		TrustContextIdentity: !cfg.Identity().Enabled(),
	}
	c.Dispatcher = dispatcher.NewDispatcher(dispatcher.NewDispatcherParams{Engine: c.Engine, Registry: c.Registry, Config: dispConfig})

	slog.Info(fmt.Sprintf("%s - Catalog %s@%s wired: %d operations, %d policies", wireLogPrefix, manifest.Name, manifest.Version, c.Registry.Len(), len(built.Policies)))
	return c, nil
}

func openDatabase(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to connect to database: %w", wireLogPrefix, err)
	}
	if !cfg.RunMigrations {
		return pool, nil
	}

	migrations, err := db.LoadMigrations(cfg.MigrationPath)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s - failed to load migrations: %w", wireLogPrefix, err)
	}
	applied, err := db.RunMigrations(ctx, pool, migrations)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s - failed to run migrations: %w", wireLogPrefix, err)
	}
	slog.Info(fmt.Sprintf("%s - Applied %d migrations", wireLogPrefix, applied))
	return pool, nil
}

// logToucher records Touch calls in the log.
type logToucher struct{}

func (logToucher) Touch(_ context.Context, entity operation.Entity) error {
	slog.Info(fmt.Sprintf("%s - touched %s %s", wireLogPrefix, entity.TypeName(), entity.ID()))
	return nil
}
