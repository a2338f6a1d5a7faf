package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"multiplication-shooter/config"
	"multiplication-shooter/database"
	"multiplication-shooter/handlers"
	"multiplication-shooter/logger"
	"multiplication-shooter/services"
	"multiplication-shooter/utils"
	"multiplication-shooter/workers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lg, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, lg); err != nil {
		lg.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, lg *zap.Logger) error {
	db, err := database.Open(cfg.Database, lg)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	identity, err := services.NewGoogleIdentityResolver(ctx, cfg.Google.ClientID, cfg.Google.TokenCacheSize, lg)
	if err != nil {
		return err
	}

	accounts := services.NewAccountDirectory(db, lg)
	ledger := services.NewShotLedger(db, lg)
	sessions := services.NewSessionService(db, ledger, lg)
	reports := services.NewReportingService(db, ledger, lg)
	roster := services.NewRosterImporter(db, lg)

	scheduler, err := workers.NewScheduler(lg)
	if err != nil {
		return err
	}
	stale := workers.NewStaleSessionReporter(sessions, cfg.Jobs.StaleAfter, lg)
	if err := scheduler.Every(ctx, "stale-session-report", cfg.Jobs.StaleReportEvery, stale.Run); err != nil {
		return err
	}
	if cfg.R2.Enabled() {
		store, err := utils.NewR2Store(ctx, cfg.R2)
		if err != nil {
			return err
		}
		archiver := workers.NewExportArchiver(reports, store, lg)
		if err := scheduler.Every(ctx, "users-export-archive", cfg.Jobs.ExportArchiveEvery, archiver.Run); err != nil {
			return err
		}
	} else {
		lg.Info("R2 bucket not configured, export archive disabled")
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			lg.Warn("scheduler shutdown", zap.Error(err))
		}
	}()

	app := handlers.NewApp(handlers.Deps{
		Log:            lg,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Identity:       identity,
		Accounts:       accounts,
		Sessions:       sessions,
		Ledger:         ledger,
		Reports:        reports,
		Roster:         roster,
	})

	serverErr := make(chan error, 1)
	go func() {
		lg.Info("server listening",
			zap.String("address", cfg.Server.Address),
			zap.String("env", cfg.Env),
			zap.Strings("allowed_origins", cfg.Server.AllowedOrigins))
		serverErr <- app.Listen(cfg.Server.Address)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	lg.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		lg.Warn("server shutdown", zap.Error(err))
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return nil
}
