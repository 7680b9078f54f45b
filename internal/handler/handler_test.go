package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"coinlens/internal/domain"
	"coinlens/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

var noopTracer = trace.NewNoopTracerProvider().Tracer("test")

type fakeMarket struct {
	snap *domain.MarketSnapshot
	err  error
}

func (f *fakeMarket) GetMarket(ctx context.Context, symbol string) (*domain.MarketSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.snap, nil
}

type fakeHistory struct {
	series     *domain.TimeSeries
	backfill   *service.BackfillResult
	refresh    *service.RefreshResult
	err        error
	lastDays   int
	lastForce  bool
	cleared    []string
	clearedAll bool
}

func (f *fakeHistory) GetHistory(ctx context.Context, symbol, rangeToken string) (*domain.TimeSeries, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.series, nil
}

func (f *fakeHistory) BackfillSymbol(ctx context.Context, symbol string, days int, force bool) (*service.BackfillResult, error) {
	f.lastDays, f.lastForce = days, force
	if f.err != nil {
		return nil, f.err
	}
	return f.backfill, nil
}

func (f *fakeHistory) BackfillAll(ctx context.Context, days int, force bool) []service.BackfillStatus {
	f.lastDays, f.lastForce = days, force
	return []service.BackfillStatus{{Symbol: "BTC", Status: "ok"}}
}

func (f *fakeHistory) RefreshHistory(ctx context.Context, symbol string, days int, force bool) (*service.RefreshResult, error) {
	f.lastDays, f.lastForce = days, force
	if f.err != nil {
		return nil, f.err
	}
	return f.refresh, nil
}

func (f *fakeHistory) ClearHistory(ctx context.Context, symbol string) error {
	if f.err != nil {
		return f.err
	}
	f.cleared = append(f.cleared, symbol)
	return nil
}

func (f *fakeHistory) ClearAllHistory(ctx context.Context) []service.ClearStatus {
	f.clearedAll = true
	return []service.ClearStatus{{Symbol: "BTC", Status: "ok"}}
}

func setupRouter(market MarketReader, history HistoryManager, adminKey string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	registry := domain.NewRegistry(domain.DefaultCoins())
	New(noopTracer, registry, market, history).RegisterRoutes(r, adminKey)
	return r
}

func doRequest(r *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	t.Parallel()

	r := setupRouter(&fakeMarket{}, &fakeHistory{}, "")
	w := doRequest(r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestListCoins(t *testing.T) {
	t.Parallel()

	r := setupRouter(&fakeMarket{}, &fakeHistory{}, "")
	w := doRequest(r, http.MethodGet, "/api/coins", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var coins []domain.CoinConfig
	if err := json.Unmarshal(w.Body.Bytes(), &coins); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(coins) != len(domain.DefaultCoins()) {
		t.Fatalf("expected every registered coin, got %d", len(coins))
	}
	if coins[0].Symbol != "BTC" || coins[0].Name != "Bitcoin" {
		t.Fatalf("unexpected first coin: %+v", coins[0])
	}
}

func TestGetMarket(t *testing.T) {
	t.Parallel()

	market := &fakeMarket{snap: &domain.MarketSnapshot{Symbol: "BTC", PriceUSD: 97000, ConsistencyScore: 1}}
	r := setupRouter(market, &fakeHistory{}, "")

	w := doRequest(r, http.MethodGet, "/api/market/btc", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var snap domain.MarketSnapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if snap.Symbol != "BTC" || snap.PriceUSD != 97000 {
		t.Fatalf("unexpected body: %+v", snap)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"unknown symbol", domain.ErrUnknownSymbol, http.StatusBadRequest},
		{"unknown range", domain.ErrUnknownRange, http.StatusBadRequest},
		{"history not found", domain.ErrHistoryNotFound, http.StatusNotFound},
		{"no sources", domain.ErrNoSourcesAvailable, http.StatusBadGateway},
		{"other", context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := setupRouter(&fakeMarket{}, &fakeHistory{err: tc.err}, "")
			w := doRequest(r, http.MethodGet, "/api/history/BTC?range=7d", nil)
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, w.Code)
			}
		})
	}
}

func TestBackfillSymbolParams(t *testing.T) {
	t.Parallel()

	history := &fakeHistory{backfill: &service.BackfillResult{Symbol: "BTC", Points: 100}}
	r := setupRouter(&fakeMarket{}, history, "")

	w := doRequest(r, http.MethodPost, "/api/history/BTC/backfill?days=30&force=true", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if history.lastDays != 30 || !history.lastForce {
		t.Fatalf("params not forwarded: days=%d force=%v", history.lastDays, history.lastForce)
	}

	w = doRequest(r, http.MethodPost, "/api/history/BTC/backfill?days=all", nil)
	if w.Code != http.StatusOK || history.lastDays != 0 {
		t.Fatalf("days=all must map to 0, got %d (status %d)", history.lastDays, w.Code)
	}

	w = doRequest(r, http.MethodPost, "/api/history/BTC/backfill?days=soon", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for garbage days, got %d", w.Code)
	}
}

func TestRefreshHistory(t *testing.T) {
	t.Parallel()

	history := &fakeHistory{refresh: &service.RefreshResult{Symbol: "BTC", Merged: 24, Total: 1000}}
	r := setupRouter(&fakeMarket{}, history, "")

	w := doRequest(r, http.MethodPost, "/api/history/BTC/refresh?days=1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var res service.RefreshResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if res.Merged != 24 {
		t.Fatalf("unexpected body: %+v", res)
	}
}

func TestAdminAuth(t *testing.T) {
	t.Parallel()

	history := &fakeHistory{}
	r := setupRouter(&fakeMarket{}, history, "sekrit")

	w := doRequest(r, http.MethodDelete, "/api/history/BTC", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", w.Code)
	}

	w = doRequest(r, http.MethodDelete, "/api/history/BTC", map[string]string{"X-API-Key": "wrong"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 with wrong key, got %d", w.Code)
	}

	w = doRequest(r, http.MethodDelete, "/api/history/BTC", map[string]string{"X-API-Key": "sekrit"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid key, got %d: %s", w.Code, w.Body.String())
	}
	if len(history.cleared) != 1 || history.cleared[0] != "BTC" {
		t.Fatalf("clear not forwarded: %v", history.cleared)
	}

	w = doRequest(r, http.MethodDelete, "/api/history", map[string]string{"X-API-Key": "sekrit"})
	if w.Code != http.StatusOK || !history.clearedAll {
		t.Fatalf("clear-all not forwarded (status %d)", w.Code)
	}
}

func TestAdminAuthDisabledWhenKeyEmpty(t *testing.T) {
	t.Parallel()

	r := setupRouter(&fakeMarket{}, &fakeHistory{}, "")
	w := doRequest(r, http.MethodDelete, "/api/history/BTC", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with auth disabled, got %d", w.Code)
	}
}
