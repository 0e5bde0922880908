package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up

	"aisignalbot/config"
	"aisignalbot/internal/adapters/binancebars"
	"aisignalbot/internal/adapters/csvbars"
	"aisignalbot/internal/adapters/logger"
	"aisignalbot/internal/adapters/openaiclient"
	"aisignalbot/internal/adapters/sqlite"
	"aisignalbot/internal/adapters/telegram"
	"aisignalbot/internal/app"
	"aisignalbot/internal/clock"
	"aisignalbot/internal/engine"
	"aisignalbot/internal/ports"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 2. Initialize Logger
	var appLogger ports.Logger
	if cfg.LogFormat == "json" {
		appLogger = logger.NewZeroLogger(cfg.LogLevel)
	} else {
		appLogger = logger.NewStdLogger(cfg.LogLevel)
	}
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String(), "format": cfg.LogFormat})

	// 3. Validate strategy tables against the schema registry
	for _, table := range cfg.Tables {
		if !sqlite.IsRegistered(table) {
			log.Fatalf("FATAL: strategy table %q is not declared in the schema registry (known: %v)", table, sqlite.TableNames())
		}
	}

	// 4. Initialize Position Store
	store, err := sqlite.NewStore(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize position store")
		log.Fatalf("FATAL: Failed to initialize position store: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing position store")
		}
	}()

	// 5. Initialize Price/Chart Source
	var bars ports.BarSource
	var charts ports.ChartExcerpter
	if cfg.PriceSource == config.PriceSourceBinance {
		src, err := binancebars.New(binancebars.Config{
			APIKey:       cfg.BinanceAPIKey,
			SecretKey:    cfg.BinanceSecretKey,
			SymbolSuffix: cfg.SymbolSuffix,
			Tail:         cfg.ExcerptTail,
			Logger:       appLogger,
		})
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize Binance source: %v", err)
		}
		bars, charts = src, src
	} else {
		src, err := csvbars.New(csvbars.Config{
			Dir:    cfg.ChartDir,
			Tail:   cfg.ExcerptTail,
			Logger: appLogger,
		})
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize CSV source: %v", err)
		}
		bars, charts = src, src
	}
	appLogger.Info(context.Background(), "Price source initialized", map[string]interface{}{"source": cfg.PriceSource})

	// 6. Initialize Oracle Client
	oracle, err := openaiclient.New(openaiclient.Config{
		BaseURL: cfg.OracleBaseURL,
		APIKey:  cfg.OracleAPIKey,
		Model:   cfg.OracleModel,
		Timeout: cfg.OracleTimeout,
		Logger:  appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize oracle client: %v", err)
	}

	// 7. Initialize Telegram Notifier
	notifier, err := telegram.New(telegram.Config{
		Token:  cfg.TelegramToken,
		ChatID: cfg.TelegramChatID,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize Telegram notifier")
		log.Fatalf("FATAL: Failed to initialize Telegram notifier: %v", err)
	}

	// 8. Initialize Reconciliation Engine
	eng, err := engine.New(engine.Config{
		Store:            store,
		Oracle:           oracle,
		Bars:             bars,
		Charts:           charts,
		Notifier:         notifier,
		Logger:           appLogger,
		Question:         cfg.Question,
		PromptTimeframes: cfg.Timeframes,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize reconciliation engine: %v", err)
	}

	// 9. Initialize Schedule and Polling Service
	schedule, err := clock.NewSchedule(cfg.Timezone, nil)
	if err != nil {
		log.Fatalf("FATAL: Failed to build schedule: %v", err)
	}

	service, err := app.New(app.Config{
		Engine:      eng,
		Schedule:    schedule,
		Logger:      appLogger,
		Keys:        app.BuildKeys(cfg.Tables, cfg.Timeframes, cfg.Instruments),
		TickTimeout: cfg.TickTimeout,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize polling service: %v", err)
	}

	// 10. Run
	if err := service.Run(context.Background()); err != nil {
		appLogger.Error(context.Background(), err, "Polling service exited with error")
		log.Fatalf("FATAL: Polling service exited with error: %v", err)
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
}
