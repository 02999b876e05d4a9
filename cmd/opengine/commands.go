package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"text/tabwriter"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/morezero/operation-engine/internal/config"
	"github.com/morezero/operation-engine/internal/server"
	"github.com/morezero/operation-engine/pkg/builtin"
	"github.com/morezero/operation-engine/pkg/catalog"
	"github.com/morezero/operation-engine/pkg/db"
	"github.com/morezero/operation-engine/pkg/registry"
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "opengine",
		Short: "Operation engine - resolve, authorize and invoke named operations",
		Long: `opengine serves a catalog of named operations over COMMS (NATS).

Without a command it starts the server. Configuration comes from the
environment: COMMS_URL, DATABASE_URL (optional Postgres catalog),
ENGINE_CATALOG_FILE, MIGRATION_PATH, JWT_SECRET, HTTP_PORT, LOG_LEVEL.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return server.Run()
		},
	}

	cmd.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newEnsureDBCommand(),
		newClearCommand(),
		newSeedCommand(),
		newOperationsCommand(),
	)
	return cmd
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the engine (COMMS, HTTP, catalog)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return server.Run()
		},
	}
}

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withPool(cmd.Context(), func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
					migrations, err := db.LoadMigrations(cfg.MigrationPath)
					if err != nil {
						return fmt.Errorf("load migrations: %w", err)
					}
					n, err := db.RunMigrations(ctx, pool, migrations)
					if err != nil {
						return fmt.Errorf("run migrations: %w", err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s).\n", n)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show applied and pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withPool(cmd.Context(), func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
					applied, pending, err := db.MigrationStatus(ctx, pool, cfg.MigrationPath)
					if err != nil {
						return err
					}
					out := cmd.OutOrStdout()
					for _, name := range applied {
						fmt.Fprintf(out, "applied  %s\n", name)
					}
					for _, name := range pending {
						fmt.Fprintf(out, "pending  %s\n", name)
					}
					return nil
				})
			},
		},
	)
	return cmd
}

func newEnsureDBCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-db [name]",
		Short: "Create a database on the DATABASE_URL host if missing (default opengine_test)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadDBConfig()
			if err != nil {
				return err
			}
			name := "opengine_test"
			if len(args) == 1 && args[0] != "" {
				name = args[0]
			}
			u, err := url.Parse(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("parse DATABASE_URL: %w", err)
			}
			u.Path = "/" + name
			if err := db.EnsureDatabase(cmd.Context(), u.String()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database %q is ready.\n", name)
			return nil
		},
	}
}

func newClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Truncate the operations table; schema is preserved",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd.Context(), func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
				return db.ClearOperations(ctx, pool)
			})
		},
	}
}

func newSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed [file]",
		Short: "Store the operations of a catalog manifest (default: ENGINE_CATALOG_FILE or builtins)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd.Context(), func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				params := db.SeedParams{Path: cfg.CatalogFile}
				if len(args) == 1 {
					params.Path = args[0]
					params.BaseDir, _ = os.Getwd()
				}
				n, err := db.Seed(ctx, pool, params)
				if err != nil {
					return fmt.Errorf("seed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d operation(s).\n", n)
				return nil
			})
		},
	}
}

func newOperationsCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "operations [file]",
		Short: "Print the operations a catalog manifest declares",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			infos, err := describeCatalog(cmd.Context(), path)
			if err != nil {
				return err
			}
			return printOperations(cmd.OutOrStdout(), infos, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}

// describeCatalog loads and builds a manifest without a database or COMMS.
func describeCatalog(ctx context.Context, path string) ([]registry.OperationInfo, error) {
	var (
		m   *catalog.Manifest
		err error
	)
	if path != "" {
		m, err = catalog.ReadManifest(path)
		if err == nil {
			m = catalog.MergeManifests(catalog.DefaultManifest(), m)
		}
	} else {
		m, err = catalog.LoadManifest()
	}
	if err != nil {
		return nil, err
	}

	built, err := catalog.Build(m, builtin.Handlers(nil))
	if err != nil {
		return nil, err
	}
	reg := registry.NewRegistry(registry.NewRegistryParams{
		Sources: []registry.Source{registry.Static(built.Declarations)},
		Config:  registry.DefaultConfig(),
	})
	if err := reg.Discover(ctx); err != nil {
		return nil, err
	}
	return reg.Describe(""), nil
}

func printOperations(w io.Writer, infos []registry.OperationInfo, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIGNATURE\tRETURNS")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", info.Name, info.Signature, info.Return)
	}
	return tw.Flush()
}

func loadDBConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	server.SetupLogging(cfg.LogLevel)
	if err := cfg.ValidateForDB(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withPool runs fn against a pool on DATABASE_URL.
func withPool(ctx context.Context, fn func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadDBConfig()
	if err != nil {
		return err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	return fn(ctx, cfg, pool)
}
