package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"otc-broker/src/autosave"
	"otc-broker/src/config"
	"otc-broker/src/interfaces"
	"otc-broker/src/logger"
	"otc-broker/src/server"
	"otc-broker/src/storage"

	"github.com/go-co-op/gocron"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// Load config from YAML file
	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(cfg.LogLevel, cfg.Name)

	// 2. Setup Storage
	var store interfaces.ICandleStore

	switch cfg.Storage.DBType {
	case "postgres":
		store, err = storage.NewPostgresCandleStore(cfg.MConfig, appLogger)
	default:
		// Default to SQLite
		store, err = storage.NewSQLiteCandleStore(cfg.MConfig, appLogger)
	}

	if err != nil {
		appLogger.Critical("Failed to create storage: %v", err)
	}
	if err := store.Initialize(); err != nil {
		appLogger.Critical("Failed to init storage: %v", err)
	}
	defer store.Close()

	// 3. Setup Server and Auto-Save
	// The server is the broadcast sink for completed candles.
	srv := server.NewFastAPIServer(cfg.MConfig, appLogger, store, nil)
	saver := autosave.NewAutoSaver(store, srv, appLogger)
	srv.Saver = saver

	// 4. Track configured series
	for _, seriesCfg := range cfg.Series {
		if err := saver.Track(seriesCfg); err != nil {
			appLogger.Critical("Failed to track series %s: %v", seriesCfg.Meta().Key(), err)
		}
		appLogger.Info("Tracking series %s", seriesCfg.Meta().Key())
	}

	// 5. Start the tick scheduler
	scheduler := gocron.NewScheduler(time.UTC)

	if cfg.AutoSave.Enabled {
		_, err := scheduler.Every(cfg.AutoSave.PollIntervalMs).Milliseconds().Do(func() {
			saver.Tick(time.Now().UTC().UnixMilli())
		})
		if err != nil {
			appLogger.Critical("Failed to schedule auto-save: %v", err)
		}
		scheduler.StartAsync()
		appLogger.Info("Auto-save running every %dms for %d series", cfg.AutoSave.PollIntervalMs, saver.TrackedCount())
	} else {
		appLogger.Warning("Auto-save disabled, candles are generated on request only")
	}

	// 6. Start Server
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()

	// 7. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	scheduler.Stop()
	srv.Stop()
}
