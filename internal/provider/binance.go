package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"coinlens/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const binanceBaseURL = "https://api.binance.com"

// Binance caps klines at 1000 rows per request. Hourly windows past ~41 days
// hit the cap, so Binance contributes only the most recent rows there and the
// other feeds cover the rest of the window.
const binanceKlineLimit = 1000

// BinanceAdapter fetches live tickers and klines from the Binance public API.
// Binance reports no market cap.
type BinanceAdapter struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
}

func NewBinanceAdapter(tracer trace.Tracer, baseURL string) *BinanceAdapter {
	if baseURL == "" {
		baseURL = binanceBaseURL
	}
	return &BinanceAdapter{
		client:  newHTTPClient(),
		baseURL: strings.TrimRight(baseURL, "/"),
		tracer:  tracer,
	}
}

func (a *BinanceAdapter) Name() string { return "binance" }

func (a *BinanceAdapter) FetchLive(ctx context.Context, coin domain.CoinConfig) (*domain.SourceSnapshot, error) {
	_, span := a.tracer.Start(ctx, "binance.fetch-live")
	defer span.End()

	if coin.BinancePair == "" {
		return nil, fmt.Errorf("%w: binance does not list %s", domain.ErrSourceUnavailable, coin.Symbol)
	}

	u := fmt.Sprintf("%s/api/v3/ticker/24hr?symbol=%s", a.baseURL, coin.BinancePair)
	body, err := doGet(ctx, a.client, u)
	if err != nil {
		return nil, fmt.Errorf("fetch live %s: %w", coin.Symbol, err)
	}

	var raw struct {
		LastPrice          string `json:"lastPrice"`
		PriceChangePercent string `json:"priceChangePercent"`
		QuoteVolume        string `json:"quoteVolume"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse live %s: %w", coin.Symbol, err)
	}

	price, err := strconv.ParseFloat(raw.LastPrice, 64)
	if err != nil {
		return nil, fmt.Errorf("parse last price for %s: %w", coin.Symbol, err)
	}

	snap := &domain.SourceSnapshot{Source: a.Name(), Price: price}
	if v, err := strconv.ParseFloat(raw.PriceChangePercent, 64); err == nil {
		snap.Change24h = &v
	}
	if v, err := strconv.ParseFloat(raw.QuoteVolume, 64); err == nil {
		snap.Volume24h = &v
	}
	return snap, nil
}

// FetchHistory fetches klines: hourly candles for windows up to 90 days,
// daily beyond or for full history. Uses the close price of each candle.
func (a *BinanceAdapter) FetchHistory(ctx context.Context, coin domain.CoinConfig, days int) ([]domain.PricePoint, error) {
	_, span := a.tracer.Start(ctx, "binance.fetch-history")
	defer span.End()

	if coin.BinancePair == "" {
		return nil, fmt.Errorf("%w: binance does not list %s", domain.ErrSourceUnavailable, coin.Symbol)
	}

	interval := "1d"
	limit := binanceKlineLimit
	if days > 0 && days <= 90 {
		interval = "1h"
		if limit = days * 24; limit > binanceKlineLimit {
			limit = binanceKlineLimit
		}
	} else if days > 0 && days < binanceKlineLimit {
		limit = days
	}

	u := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=%s&limit=%d", a.baseURL, coin.BinancePair, interval, limit)
	body, err := doGet(ctx, a.client, u)
	if err != nil {
		return nil, fmt.Errorf("fetch history %s: %w", coin.Symbol, err)
	}

	// Each kline row: [openTime, open, high, low, close, volume, closeTime, ...]
	var rows [][]json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("parse history %s: %w", coin.Symbol, err)
	}

	points := make([]domain.PricePoint, 0, len(rows))
	for _, row := range rows {
		if len(row) < 7 {
			continue
		}
		var openTime int64
		var closeStr string
		if err := json.Unmarshal(row[0], &openTime); err != nil {
			continue
		}
		if err := json.Unmarshal(row[4], &closeStr); err != nil {
			continue
		}
		price, err := strconv.ParseFloat(closeStr, 64)
		if err != nil || price <= 0 {
			continue
		}
		points = append(points, domain.PricePoint{T: openTime, P: price, C: DirectConfidence})
	}
	return points, nil
}
