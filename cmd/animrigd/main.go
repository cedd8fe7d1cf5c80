package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"animrig/internal/config"
	"animrig/internal/engine"
	"animrig/internal/logging"
	"animrig/internal/preflight"
	"animrig/internal/service"
	"animrig/internal/staging"
	"animrig/internal/storage"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		OutputPaths: []string{
			"stdout",
			filepath.Join(cfg.Paths.LogDir, "animrigd.log"),
		},
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	if err := os.MkdirAll(cfg.Paths.WorkDir, 0o755); err != nil {
		log.Fatalf("create work directory: %v", err)
	}

	checks := preflight.RunAll(ctx, cfg)
	for _, check := range checks {
		if check.Passed {
			logger.Debug("preflight check passed",
				logging.String("check", check.Name),
				logging.String("detail", check.Detail))
			continue
		}
		logger.Warn("preflight check failed",
			logging.String("check", check.Name),
			logging.Bool("optional", check.Optional),
			logging.String("detail", check.Detail))
	}
	if failed := preflight.RequiredFailures(checks); len(failed) > 0 {
		log.Fatalf("preflight failed: %s: %s", failed[0].Name, failed[0].Detail)
	}

	// Workspaces left behind by a crashed process never get released by
	// their owner; sweep them before taking new jobs.
	staleAge := time.Duration(cfg.Workspaces.StaleAfterHours) * time.Hour
	sweep := staging.CleanStale(cfg.Paths.WorkDir, staleAge, logger)
	if len(sweep.Removed) > 0 {
		logger.Info("swept stale workspaces", logging.Int("count", len(sweep.Removed)))
	}

	eng, err := engine.New(cfg.Engine.Binary, cfg.Engine.StageTimeoutSeconds)
	if err != nil {
		log.Fatalf("create engine client: %v", err)
	}

	session, err := staging.NewSession(cfg, storage.NewClient(cfg), eng, logger)
	if err != nil {
		log.Fatalf("create session: %v", err)
	}

	srv, err := service.New(cfg, session, logger)
	if err != nil {
		log.Fatalf("create service: %v", err)
	}
	if err := srv.Start(ctx); err != nil {
		log.Fatalf("start service: %v", err)
	}

	<-ctx.Done()
	srv.Stop()
	logger.Info("animrigd shutting down")
}
