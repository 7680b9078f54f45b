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

const krakenBaseURL = "https://api.kraken.com"

// KrakenAdapter fetches live tickers from the Kraken public API. Kraken has
// no unauthenticated bulk history endpoint we can use, so it is live-only.
type KrakenAdapter struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
}

func NewKrakenAdapter(tracer trace.Tracer, baseURL string) *KrakenAdapter {
	if baseURL == "" {
		baseURL = krakenBaseURL
	}
	return &KrakenAdapter{
		client:  newHTTPClient(),
		baseURL: strings.TrimRight(baseURL, "/"),
		tracer:  tracer,
	}
}

func (a *KrakenAdapter) Name() string { return "kraken" }

func (a *KrakenAdapter) FetchLive(ctx context.Context, coin domain.CoinConfig) (*domain.SourceSnapshot, error) {
	_, span := a.tracer.Start(ctx, "kraken.fetch-live")
	defer span.End()

	if coin.KrakenPair == "" {
		return nil, fmt.Errorf("%w: kraken does not list %s", domain.ErrSourceUnavailable, coin.Symbol)
	}

	body, err := doGet(ctx, a.client, fmt.Sprintf("%s/0/public/Ticker?pair=%s", a.baseURL, coin.KrakenPair))
	if err != nil {
		return nil, fmt.Errorf("fetch live %s: %w", coin.Symbol, err)
	}

	// Result keys are Kraken's own pair spellings, so take the first entry.
	// c = last trade [price, lot volume], o = today's opening price.
	var raw struct {
		Error  []string `json:"error"`
		Result map[string]struct {
			C []string `json:"c"`
			O string   `json:"o"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse live %s: %w", coin.Symbol, err)
	}
	if len(raw.Error) > 0 {
		return nil, fmt.Errorf("%w: kraken error: %s", domain.ErrSourceUnavailable, strings.Join(raw.Error, "; "))
	}

	for _, ticker := range raw.Result {
		if len(ticker.C) == 0 {
			break
		}
		price, err := strconv.ParseFloat(ticker.C[0], 64)
		if err != nil || price <= 0 {
			return nil, fmt.Errorf("parse price for %s: %v", coin.Symbol, err)
		}
		snap := &domain.SourceSnapshot{Source: a.Name(), Price: price}
		if open, err := strconv.ParseFloat(ticker.O, 64); err == nil && open > 0 {
			change := (price - open) / open * 100
			snap.Change24h = &change
		}
		return snap, nil
	}
	return nil, fmt.Errorf("%w: kraken returned no ticker for %s", domain.ErrSourceUnavailable, coin.Symbol)
}
