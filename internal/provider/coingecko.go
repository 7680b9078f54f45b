package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"coinlens/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const coingeckoBaseURL = "https://api.coingecko.com/api/v3"

// CoinGeckoAdapter fetches live and historical prices from the CoinGecko
// free API. Rate limited to 8 requests per minute.
type CoinGeckoAdapter struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
	limiter *RateLimiter
}

func NewCoinGeckoAdapter(tracer trace.Tracer, baseURL string) *CoinGeckoAdapter {
	if baseURL == "" {
		baseURL = coingeckoBaseURL
	}
	return &CoinGeckoAdapter{
		client:  newHTTPClient(),
		baseURL: baseURL,
		tracer:  tracer,
		limiter: NewRateLimiter(8, 7500*time.Millisecond),
	}
}

func (a *CoinGeckoAdapter) Name() string { return "coingecko" }

func (a *CoinGeckoAdapter) FetchLive(ctx context.Context, coin domain.CoinConfig) (*domain.SourceSnapshot, error) {
	_, span := a.tracer.Start(ctx, "coingecko.fetch-live")
	defer span.End()

	if coin.CoinGeckoID == "" {
		return nil, fmt.Errorf("%w: coingecko does not list %s", domain.ErrSourceUnavailable, coin.Symbol)
	}
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %v", domain.ErrSourceUnavailable, err)
	}

	u := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd&include_market_cap=true&include_24hr_vol=true&include_24hr_change=true",
		a.baseURL, url.QueryEscape(coin.CoinGeckoID))

	body, err := doGet(ctx, a.client, u)
	if err != nil {
		return nil, fmt.Errorf("fetch live %s: %w", coin.Symbol, err)
	}

	// Shape: {"bitcoin": {"usd": 97000, "usd_market_cap": ..., "usd_24h_vol": ..., "usd_24h_change": ...}}
	var raw map[string]map[string]float64
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse live %s: %w", coin.Symbol, err)
	}
	data, ok := raw[coin.CoinGeckoID]
	if !ok {
		return nil, fmt.Errorf("%w: no row for %s", domain.ErrSourceUnavailable, coin.CoinGeckoID)
	}

	snap := &domain.SourceSnapshot{
		Source: a.Name(),
		Price:  data["usd"],
	}
	if v, ok := data["usd_24h_change"]; ok {
		snap.Change24h = &v
	}
	if v, ok := data["usd_market_cap"]; ok {
		snap.MarketCap = &v
	}
	if v, ok := data["usd_24h_vol"]; ok {
		snap.Volume24h = &v
	}
	return snap, nil
}

// FetchHistory fetches market_chart samples for the window. Granularity is
// decided upstream: hourly for windows up to 90 days, daily beyond.
func (a *CoinGeckoAdapter) FetchHistory(ctx context.Context, coin domain.CoinConfig, days int) ([]domain.PricePoint, error) {
	_, span := a.tracer.Start(ctx, "coingecko.fetch-history")
	defer span.End()

	if coin.CoinGeckoID == "" {
		return nil, fmt.Errorf("%w: coingecko does not list %s", domain.ErrSourceUnavailable, coin.Symbol)
	}
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %v", domain.ErrSourceUnavailable, err)
	}

	dayParam := "max"
	if days > 0 {
		dayParam = fmt.Sprintf("%d", days)
	}
	u := fmt.Sprintf("%s/coins/%s/market_chart?vs_currency=usd&days=%s", a.baseURL, coin.CoinGeckoID, dayParam)

	body, err := doGet(ctx, a.client, u)
	if err != nil {
		return nil, fmt.Errorf("fetch history %s: %w", coin.Symbol, err)
	}

	var raw struct {
		Prices [][]float64 `json:"prices"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse history %s: %w", coin.Symbol, err)
	}

	points := make([]domain.PricePoint, 0, len(raw.Prices))
	for _, row := range raw.Prices {
		if len(row) < 2 || row[1] <= 0 {
			continue
		}
		points = append(points, domain.PricePoint{T: int64(row[0]), P: row[1], C: DirectConfidence})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].T < points[j].T })
	return points, nil
}
