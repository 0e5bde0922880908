package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"aisignalbot/internal/adapters/logger" // Import the logger package for LogLevel
)

// PriceSource selects where bar extremes and chart excerpts come from.
const (
	PriceSourceCSV     = "csv"
	PriceSourceBinance = "binance"
)

// Config holds all application configuration.
type Config struct {
	// Oracle
	OracleBaseURL string
	OracleAPIKey  string
	OracleModel   string
	OracleTimeout time.Duration

	// Telegram
	TelegramToken  string
	TelegramChatID int64

	// Database
	DBPath string

	// Price data
	PriceSource string
	ChartDir    string // directory of exported chart CSVs
	ExcerptTail int    // trailing data lines embedded in each prompt

	// Binance (only used when PriceSource is "binance")
	BinanceAPIKey    string
	BinanceSecretKey string
	SymbolSuffix     string

	// Reconciliation keys
	Tables      []string // strategy tables, e.g. RR3,RR5
	Instruments []string // coin names, e.g. BTC
	Timeframes  []string // polling buckets, e.g. M15,H1,H4

	// Scheduling
	Timezone    string
	TickTimeout time.Duration

	// Prompting
	Question string

	// Logging
	LogLevel  logger.LogLevel
	LogFormat string // "text" or "json"
}

const defaultQuestion = "Есть ли сейчас сигнал на вход в позицию? Если да, ответь строго в формате {Сигнал: лонг или шорт}{Вход: цена}{SL: цена}{TP: цена}{Обоснование: краткое объяснение}. Если сигнала нет, ответь без фигурных скобок."

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Oracle
	cfg.OracleBaseURL = getEnv("ORACLE_BASE_URL", "https://api.openai.com/v1")
	cfg.OracleAPIKey = getEnv("ORACLE_API_KEY", "")
	if cfg.OracleAPIKey == "" {
		errs = append(errs, "ORACLE_API_KEY must be set")
	}
	cfg.OracleModel = getEnv("ORACLE_MODEL", "gpt-4o")

	oracleTimeoutSeconds := getEnvAsInt("ORACLE_TIMEOUT_SECONDS", 120)
	if oracleTimeoutSeconds <= 0 {
		errs = append(errs, "ORACLE_TIMEOUT_SECONDS must be positive")
	}
	cfg.OracleTimeout = time.Duration(oracleTimeoutSeconds) * time.Second

	// Telegram
	cfg.TelegramToken = getEnv("TELEGRAM_BOT_TOKEN", "")
	if cfg.TelegramToken == "" {
		errs = append(errs, "TELEGRAM_BOT_TOKEN must be set")
	}
	cfg.TelegramChatID, err = getEnvAsInt64("TELEGRAM_CHAT_ID", 0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TELEGRAM_CHAT_ID: %v", err))
	} else if cfg.TelegramChatID == 0 {
		errs = append(errs, "TELEGRAM_CHAT_ID must be set")
	}

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/signals.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Price data
	cfg.PriceSource = strings.ToLower(getEnv("PRICE_SOURCE", PriceSourceCSV))
	if cfg.PriceSource != PriceSourceCSV && cfg.PriceSource != PriceSourceBinance {
		errs = append(errs, fmt.Sprintf("PRICE_SOURCE must be %q or %q", PriceSourceCSV, PriceSourceBinance))
	}
	cfg.ChartDir = getEnv("CHART_DIR", "./downloads")
	if cfg.PriceSource == PriceSourceCSV && cfg.ChartDir == "" {
		errs = append(errs, "CHART_DIR must be set when PRICE_SOURCE is csv")
	}
	cfg.ExcerptTail = getEnvAsInt("EXCERPT_TAIL", 300)
	if cfg.ExcerptTail <= 0 {
		errs = append(errs, "EXCERPT_TAIL must be positive")
	}

	// Binance (public klines work without keys)
	cfg.BinanceAPIKey = getEnv("BINANCE_API_KEY", "")
	cfg.BinanceSecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.SymbolSuffix = getEnv("SYMBOL_SUFFIX", "USDT")

	// Reconciliation keys
	cfg.Tables = getEnvAsList("TABLES", "RR3")
	if len(cfg.Tables) == 0 {
		errs = append(errs, "TABLES must name at least one strategy table")
	}
	cfg.Instruments = getEnvAsList("COINS", "BTC")
	if len(cfg.Instruments) == 0 {
		errs = append(errs, "COINS must name at least one instrument")
	}
	cfg.Timeframes = getEnvAsList("TIMEFRAMES", "M15,H1,H4")
	if len(cfg.Timeframes) == 0 {
		errs = append(errs, "TIMEFRAMES must name at least one timeframe")
	}

	// Scheduling
	cfg.Timezone = getEnv("TIMEZONE", "Europe/Moscow")
	tickTimeoutSeconds := getEnvAsInt("TICK_TIMEOUT_SECONDS", 180)
	if tickTimeoutSeconds <= 0 {
		errs = append(errs, "TICK_TIMEOUT_SECONDS must be positive")
	}
	cfg.TickTimeout = time.Duration(tickTimeoutSeconds) * time.Second

	// Prompting
	cfg.Question = getEnv("ORACLE_QUESTION", defaultQuestion)

	// Logging
	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))
	cfg.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", "text"))
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		errs = append(errs, `LOG_FORMAT must be "text" or "json"`)
	}

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsInt64(key string, defaultValue int64) (int64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsList(key, defaultValue string) []string {
	valueStr := getEnv(key, defaultValue)
	parts := strings.Split(valueStr, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			values = append(values, v)
		}
	}
	return values
}
