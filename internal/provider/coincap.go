package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"coinlens/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const coincapBaseURL = "https://api.coincap.io/v2"

// CoinCapAdapter fetches live assets and historical windows from CoinCap.
type CoinCapAdapter struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
}

func NewCoinCapAdapter(tracer trace.Tracer, baseURL string) *CoinCapAdapter {
	if baseURL == "" {
		baseURL = coincapBaseURL
	}
	return &CoinCapAdapter{
		client:  newHTTPClient(),
		baseURL: strings.TrimRight(baseURL, "/"),
		tracer:  tracer,
	}
}

func (a *CoinCapAdapter) Name() string { return "coincap" }

func (a *CoinCapAdapter) FetchLive(ctx context.Context, coin domain.CoinConfig) (*domain.SourceSnapshot, error) {
	_, span := a.tracer.Start(ctx, "coincap.fetch-live")
	defer span.End()

	if coin.CoinCapID == "" {
		return nil, fmt.Errorf("%w: coincap does not list %s", domain.ErrSourceUnavailable, coin.Symbol)
	}

	body, err := doGet(ctx, a.client, fmt.Sprintf("%s/assets/%s", a.baseURL, coin.CoinCapID))
	if err != nil {
		return nil, fmt.Errorf("fetch live %s: %w", coin.Symbol, err)
	}

	var raw struct {
		Data struct {
			PriceUSD          string `json:"priceUsd"`
			ChangePercent24Hr string `json:"changePercent24Hr"`
			MarketCapUSD      string `json:"marketCapUsd"`
			VolumeUSD24Hr     string `json:"volumeUsd24Hr"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse live %s: %w", coin.Symbol, err)
	}

	price, err := strconv.ParseFloat(raw.Data.PriceUSD, 64)
	if err != nil {
		return nil, fmt.Errorf("parse price for %s: %w", coin.Symbol, err)
	}

	snap := &domain.SourceSnapshot{Source: a.Name(), Price: price}
	if v, err := strconv.ParseFloat(raw.Data.ChangePercent24Hr, 64); err == nil {
		snap.Change24h = &v
	}
	if v, err := strconv.ParseFloat(raw.Data.MarketCapUSD, 64); err == nil {
		snap.MarketCap = &v
	}
	if v, err := strconv.ParseFloat(raw.Data.VolumeUSD24Hr, 64); err == nil {
		snap.Volume24h = &v
	}
	return snap, nil
}

// FetchHistory fetches the /history endpoint: hourly samples for windows up
// to 90 days, daily beyond.
func (a *CoinCapAdapter) FetchHistory(ctx context.Context, coin domain.CoinConfig, days int) ([]domain.PricePoint, error) {
	_, span := a.tracer.Start(ctx, "coincap.fetch-history")
	defer span.End()

	if coin.CoinCapID == "" {
		return nil, fmt.Errorf("%w: coincap does not list %s", domain.ErrSourceUnavailable, coin.Symbol)
	}

	interval := "d1"
	if days > 0 && days <= 90 {
		interval = "h1"
	}
	start, end := historyWindow(days, time.Now())

	u := fmt.Sprintf("%s/assets/%s/history?interval=%s&start=%d&end=%d", a.baseURL, coin.CoinCapID, interval, start, end)
	body, err := doGet(ctx, a.client, u)
	if err != nil {
		return nil, fmt.Errorf("fetch history %s: %w", coin.Symbol, err)
	}

	var raw struct {
		Data []struct {
			PriceUSD string `json:"priceUsd"`
			Time     int64  `json:"time"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse history %s: %w", coin.Symbol, err)
	}

	points := make([]domain.PricePoint, 0, len(raw.Data))
	for _, row := range raw.Data {
		price, err := strconv.ParseFloat(row.PriceUSD, 64)
		if err != nil || price <= 0 {
			continue
		}
		points = append(points, domain.PricePoint{T: row.Time, P: price, C: DirectConfidence})
	}
	return points, nil
}
