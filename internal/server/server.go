// Package server orchestrates all components: COMMS client, catalog, DB, engine, dispatcher, HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/morezero/operation-engine/internal/config"
	"github.com/morezero/operation-engine/pkg/commsutil"
	"github.com/morezero/operation-engine/pkg/events"
)

const logPrefix = "server:server"

// SetupLogging installs the default slog text handler at the configured level.
func SetupLogging(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

// EngineSubject returns the subject the engine serves.
func EngineSubject(cfg *config.Config) string {
	if cfg.EngineSubject != "" {
		return cfg.EngineSubject
	}
	if cfg.COMMSName != "" {
		return commsutil.BuildServiceSubject(cfg.COMMSName, 1)
	}
	return commsutil.SubjectEngine
}

// HTTPAddr returns the address the HTTP server listens on.
func HTTPAddr(cfg *config.Config) string {
	if cfg.HTTPAddr != "" {
		return cfg.HTTPAddr
	}
	return fmt.Sprintf(":%d", cfg.HTTPPort)
}

// Run starts the server, blocks until a shutdown signal, then cleans up.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	SetupLogging(cfg.LogLevel)
	if err := cfg.ValidateForServe(); err != nil {
		return err
	}

	slog.Info(fmt.Sprintf("%s - Starting operation-engine", logPrefix))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	nc, err := commsutil.Connect(cfg.COMMSURL, cfg.COMMSName)
	if err != nil {
		return fmt.Errorf("%s - failed to connect to COMMS: %w", logPrefix, err)
	}
	defer commsutil.Drain(nc)

	publisher := events.NewCommsPublisher(nc, &events.CommsPublisherOpts{
		GlobalChangeSubject: cfg.ChangeEventSubject,
		Service:             cfg.COMMSName,
	})

	c, err := Wire(ctx, cfg, publisher)
	if err != nil {
		return err
	}
	defer c.Close()

	subject := EngineSubject(cfg)
	sub, err := Subscribe(ctx, nc, subject, c.Dispatcher, cfg.RequestTimeout)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	httpAddr := HTTPAddr(cfg)
	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           NewHTTPHandler(c.Registry, cfg.HealthCheckTimeout),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info(fmt.Sprintf("%s - HTTP server listening on %s", logPrefix, httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s - HTTP server error: %w", logPrefix, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info(fmt.Sprintf("%s - Shutting down", logPrefix))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HealthCheckTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	slog.Info(fmt.Sprintf("%s - Operation engine is ready on %s", logPrefix, subject))

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return nil
}
