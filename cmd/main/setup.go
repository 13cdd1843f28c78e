package main

import (
	"context"
	"fmt"

	"market-structure/src/analysis"
	"market-structure/src/broker"
	datasource "market-structure/src/data_source"
	"market-structure/src/data_source/csvfile"
	"market-structure/src/data_source/yahoo"
	"market-structure/src/dispatch"
	"market-structure/src/interfaces"
	"market-structure/src/logger"
	"market-structure/src/models"
	"market-structure/src/network"
	"market-structure/src/server"
	"market-structure/src/session"
	"market-structure/src/storage"
	"market-structure/src/timeframe"
	"market-structure/src/utils"
)

// -----------------------------------------------------------------------------

// pipeline holds the components between the sources and the sinks
type pipeline struct {
	engine     *analysis.Engine
	dispatcher *dispatch.Dispatcher
	tracker    *session.Tracker
	server     *server.Server
	redis      *broker.RedisPublisher
}

// close drains queued events and releases the broker connection
func (p *pipeline) close() {
	p.dispatcher.Close()
	if p.redis != nil {
		if err := p.redis.Close(); err != nil {
			p.engine.Logger.Error("Error closing redis: %v", err)
		}
	}
}

// -----------------------------------------------------------------------------

// setupDatabase initializes the database connection based on config
func setupDatabase(ctx context.Context, config *models.MConfig, appLogger *logger.Logger) (interfaces.IDatabase, error) {
	dbLogger := logger.NewLogger(config, "Storage")
	db, err := storage.NewDatabase(config, dbLogger)
	if err != nil {
		appLogger.Error("Failed to init db: %v", err)
		return nil, err
	}
	if err := db.Initialize(ctx); err != nil {
		appLogger.Error("Failed to migrate db: %v", err)
		return nil, err
	}
	return db, nil
}

// -----------------------------------------------------------------------------

// setupRegistry parses the configured roll-up resolutions
func setupRegistry(config *models.MConfig, appLogger *logger.Logger) (*timeframe.Registry, error) {
	registry, err := timeframe.NewRegistry(config.WindowsAgg)
	if err != nil {
		appLogger.Error("Invalid windows_aggregation: %v", err)
		return nil, err
	}

	appLogger.Info("Resolutions: %v", registry.Labels())
	return registry, nil
}

// -----------------------------------------------------------------------------

// setupPipeline wires the engine to its sinks. The server is created before
// the engine it reads from, so its view is attached afterwards.
func setupPipeline(ctx context.Context, config *models.MConfig, db interfaces.IDatabase, registry *timeframe.Registry, appLogger *logger.Logger) *pipeline {
	p := &pipeline{}

	p.server = server.NewServer(config, nil, logger.NewLogger(config, "Server"))
	broadcasters := []interfaces.IDataExchanger{p.server}

	if config.Redis.Enabled {
		redisPub, err := broker.NewRedisPublisher(ctx, config.Redis, logger.NewLogger(config, "Redis"))
		if err != nil {
			appLogger.Error("Redis disabled: %v", err)
		} else {
			p.redis = redisPub
			broadcasters = append(broadcasters, redisPub)
		}
	}

	p.dispatcher = dispatch.NewDispatcher(db, broadcasters, config.Engine.DispatchBuffer, logger.NewLogger(config, "Dispatcher"))
	p.dispatcher.Start()

	p.engine = analysis.NewEngine(registry, p.dispatcher, analysis.EngineOptions{
		ReplayQueueCapacity: config.Engine.ReplayQueueCapacity,
		Shards:              config.Engine.Shards,
	}, logger.NewLogger(config, "Engine"))
	p.server.View = p.engine

	if config.Session.Enabled {
		cal := utils.GetCalendar(config.Session.MIC)
		p.tracker = session.NewTracker(p.dispatcher, cal, logger.NewLogger(config, "Sessions"))
	}
	return p
}

// -----------------------------------------------------------------------------

// setupScheduler registers the retention job
func setupScheduler(config *models.MConfig, db interfaces.IDatabase, appLogger *logger.Logger) *utils.MarketScheduler {
	scheduler := utils.NewMarketScheduler(nil, config.Session.MIC, logger.NewLogger(config, "MarketScheduler"))
	if err := scheduler.ScheduleRetention(config.Storage.CleanupCron, config.Storage.RetentionDays, db); err != nil {
		appLogger.Error("Retention job not scheduled: %v", err)
	}
	return scheduler
}

// -----------------------------------------------------------------------------

// setupNetwork initializes the network manager
func setupNetwork(config *models.MConfig) interfaces.INetworkManager {
	return network.NewAsyncNetworkManager(config, logger.NewLogger(config, "NetworkManager"))
}

// -----------------------------------------------------------------------------

// setupDataSources builds every configured source and wraps them in a manager
func setupDataSources(config *models.MConfig, networkManager interfaces.INetworkManager, appLogger *logger.Logger) (*datasource.MultiSourceManager, error) {
	var sources []interfaces.IDataSource
	appLogger.Info("Initializing data sources...")

	for _, srcCfg := range config.DataSource.Sources {
		srcLogger := logger.NewLogger(config, "Source-"+srcCfg.Name)
		switch srcCfg.Type {
		case "csv":
			sources = append(sources, csvfile.NewCSVSource(srcCfg, srcLogger))
		case "yahoo", "":
			if len(srcCfg.Symbols) == 0 {
				appLogger.Warning("Source %s: no symbols to fetch, skipped", srcCfg.Name)
				continue
			}
			sources = append(sources, yahoo.NewYahooFinanceSource(config, srcCfg, networkManager, srcLogger))
		default:
			appLogger.Warning("Unknown source type in config: %s", srcCfg.Type)
			continue
		}
		appLogger.Info("Added source: %s (%s) with %d symbols", srcCfg.Name, srcCfg.Type, len(srcCfg.Symbols))
	}

	if len(sources) == 0 {
		appLogger.Error("No valid data sources initialized. Exiting.")
		return nil, fmt.Errorf("no valid data sources")
	}

	return datasource.NewMultiSourceManager(sources, logger.NewLogger(config, "MultiSourceManager")), nil
}
