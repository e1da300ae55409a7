// Package main is the entry point for the Portico portfolio tracker backend.
// It serves the portfolio CRUD API, computes dashboard metrics, keeps a
// realtime price channel to the upstream feed and refreshes stored quotes on
// a schedule.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nkoutso/portico/internal/clients/marketdata"
	"github.com/nkoutso/portico/internal/clients/pricefeed"
	"github.com/nkoutso/portico/internal/config"
	"github.com/nkoutso/portico/internal/database"
	"github.com/nkoutso/portico/internal/jobs"
	"github.com/nkoutso/portico/internal/modules/alerts"
	alerthandlers "github.com/nkoutso/portico/internal/modules/alerts/handlers"
	"github.com/nkoutso/portico/internal/modules/assets"
	assethandlers "github.com/nkoutso/portico/internal/modules/assets/handlers"
	"github.com/nkoutso/portico/internal/modules/portfolio"
	portfoliohandlers "github.com/nkoutso/portico/internal/modules/portfolio/handlers"
	"github.com/nkoutso/portico/internal/realtime"
	"github.com/nkoutso/portico/internal/server"
	"github.com/nkoutso/portico/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting Portico")

	db, err := database.New(cfg.DatabasePath())
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath()).Msg("Failed to open database")
	}
	defer db.Close()

	// Repositories and services.
	assetRepo := assets.NewRepository(db.Conn(), log)
	portfolioRepo := portfolio.NewRepository(db.Conn(), log)
	alertRepo := alerts.NewRepository(db.Conn(), log)
	alertService := alerts.NewService(alertRepo, log)

	// Realtime channel: restore last-known prices so the first dashboard
	// render after a restart is not blank.
	book := realtime.NewPriceBook()
	if err := realtime.LoadSnapshot(book, cfg.SnapshotPath()); err != nil {
		log.Warn().Err(err).Msg("Failed to restore price snapshot, starting cold")
	}
	feed := pricefeed.New(cfg.PriceFeedURL, log)
	manager := realtime.NewManager(feed, assetRepo, book, cfg.ConnectTimeout, log)

	dashboards := portfolio.NewService(assetRepo, book, log)

	// Scheduled pull refresh keeps stored prices current even when no
	// realtime channel is open.
	quotes := marketdata.New(cfg.MarketDataURL, log)
	refresh := jobs.NewPriceRefresh(assetRepo, quotes, book, alertService, log)
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.RefreshSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := refresh.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Price refresh failed")
		}
	}); err != nil {
		log.Fatal().Err(err).Str("spec", cfg.RefreshSpec).Msg("Invalid refresh schedule")
	}
	scheduler.Start()

	srv := server.New(server.Config{
		Log:               log,
		Cfg:               cfg,
		DB:                db,
		Manager:           manager,
		PortfolioHandlers: portfoliohandlers.NewHandler(portfolioRepo, dashboards, log),
		AssetHandlers:     assethandlers.NewHandler(assetRepo, book, manager, log),
		AlertHandlers:     alerthandlers.NewHandler(alertRepo, log),
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server stopped")
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	cronCtx := scheduler.Stop()
	manager.Stop()

	if err := realtime.SaveSnapshot(book, cfg.SnapshotPath()); err != nil {
		log.Error().Err(err).Msg("Failed to persist price snapshot")
	}

	// Let an in-flight refresh finish before closing the database.
	select {
	case <-cronCtx.Done():
	case <-time.After(5 * time.Second):
		log.Warn().Msg("Timed out waiting for scheduled jobs to finish")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
