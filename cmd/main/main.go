package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"market-structure/src/config"
	"market-structure/src/logger"
	"market-structure/src/models"
)

const shutdownTimeout = 10 * time.Second

// -----------------------------------------------------------------------------

func main() {
	// 1. Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// 2. Load config
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// 3. Setup Logger
	appLogger := logger.NewLogger(conf.MConfig, conf.Name)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 4. Setup Components
	db, err := setupDatabase(ctx, conf.MConfig, appLogger)
	if err != nil {
		os.Exit(1)
	}

	registry, err := setupRegistry(conf.MConfig, appLogger)
	if err != nil {
		db.Close()
		os.Exit(1)
	}

	app := setupPipeline(ctx, conf.MConfig, db, registry, appLogger)

	scheduler := setupScheduler(conf.MConfig, db, appLogger)
	scheduler.Start()

	multiSource, err := setupDataSources(conf.MConfig, setupNetwork(conf.MConfig), appLogger)
	if err != nil {
		app.close()
		db.Close()
		os.Exit(1)
	}

	// 5. Start Servers
	servers := startServers(conf.MConfig, app, multiSource, appLogger)

	// 6. Start Sources
	var wg sync.WaitGroup
	candles := make(chan models.MCandle, conf.Engine.DispatchBuffer)
	if err := multiSource.Start(ctx, candles, &wg); err != nil {
		appLogger.Error("Failed to start data sources: %v", err)
		cancel()
	}

	// 7. Run Loop (Blocking)
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	runIngestLoop(ctx, candles, done, app, appLogger)

	// 8. Shutdown, producers first then sinks
	appLogger.Info("Shutting down...")
	multiSource.Stop()
	<-done

	if app.tracker != nil {
		app.tracker.Flush()
	}
	app.close()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	servers.stop(stopCtx)
	scheduler.Stop()

	if err := db.Close(); err != nil {
		appLogger.Error("Error closing database: %v", err)
	}
	appLogger.Info("Shutdown complete.")
}
