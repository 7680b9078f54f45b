package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// Config is loaded once from the environment at startup.
type Config struct {
	Port        string
	RedisURL    string
	AdminAPIKey string

	MarketPollSecs    int
	HistoryPollSecs   int
	RefreshWindowDays int
	BackfillOnStart   bool

	// SourcePriority decides which feed fills the scalar snapshot fields
	// (24h change, market cap, volume) first.
	SourcePriority []string

	CoinGeckoBaseURL string
	BinanceBaseURL   string
	CoinCapBaseURL   string
	KrakenBaseURL    string
}

var defaultSourcePriority = []string{"coingecko", "binance", "coincap", "kraken"}

func Load() *Config {
	cfg := &Config{
		RedisURL:    os.Getenv("REDIS_URL"),
		AdminAPIKey: os.Getenv("ADMIN_API_KEY"),

		CoinGeckoBaseURL: strings.TrimSpace(os.Getenv("COINGECKO_BASE_URL")),
		BinanceBaseURL:   strings.TrimSpace(os.Getenv("BINANCE_BASE_URL")),
		CoinCapBaseURL:   strings.TrimSpace(os.Getenv("COINCAP_BASE_URL")),
		KrakenBaseURL:    strings.TrimSpace(os.Getenv("KRAKEN_BASE_URL")),
	}

	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}
	if cfg.AdminAPIKey == "" {
		log.Println("Warning: ADMIN_API_KEY not set, destructive history routes are unprotected")
	}

	cfg.Port = strings.TrimSpace(os.Getenv("PORT"))
	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	cfg.MarketPollSecs = 300
	if v := os.Getenv("MARKET_POLL_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MarketPollSecs = n
		}
	}

	cfg.HistoryPollSecs = 900
	if v := os.Getenv("HISTORY_REFRESH_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HistoryPollSecs = n
		}
	}

	cfg.RefreshWindowDays = 2
	if v := os.Getenv("REFRESH_WINDOW_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RefreshWindowDays = n
		}
	}

	cfg.BackfillOnStart = strings.EqualFold(strings.TrimSpace(os.Getenv("BACKFILL_ON_START")), "true")

	cfg.SourcePriority = defaultSourcePriority
	if v := strings.TrimSpace(os.Getenv("SOURCE_PRIORITY")); v != "" {
		var priority []string
		for _, name := range strings.Split(v, ",") {
			if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
				priority = append(priority, name)
			}
		}
		if len(priority) > 0 {
			cfg.SourcePriority = priority
		}
	}

	return cfg
}
