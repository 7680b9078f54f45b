package job

import (
	"context"
	"sync"
	"testing"
	"time"

	"coinlens/internal/domain"
	"coinlens/internal/service"

	"go.opentelemetry.io/otel/trace"
)

var noopTracer = trace.NewNoopTracerProvider().Tracer("test")

func testRegistry() *domain.Registry {
	return domain.NewRegistry([]domain.CoinConfig{
		{ID: "bitcoin", Symbol: "BTC"},
		{ID: "ethereum", Symbol: "ETH"},
		{ID: "solana", Symbol: "SOL"},
	})
}

type fakeWarmer struct {
	mu      sync.Mutex
	symbols []string
}

func (f *fakeWarmer) GetMarket(ctx context.Context, symbol string) (*domain.MarketSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.symbols = append(f.symbols, symbol)
	return &domain.MarketSnapshot{Symbol: symbol}, nil
}

type fakeRefresher struct {
	mu      sync.Mutex
	symbols []string
	err     error
}

func (f *fakeRefresher) RefreshHistory(ctx context.Context, symbol string, days int, force bool) (*service.RefreshResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.symbols = append(f.symbols, symbol)
	if f.err != nil {
		return nil, f.err
	}
	return &service.RefreshResult{Symbol: symbol}, nil
}

func TestNewRefreshPollerDefaults(t *testing.T) {
	t.Parallel()

	p := NewRefreshPoller(noopTracer, testRegistry(), &fakeWarmer{}, &fakeRefresher{}, 0, 0, 0)
	if p.marketInterval != 300*time.Second {
		t.Fatalf("unexpected market interval: %v", p.marketInterval)
	}
	if p.historyInterval != 900*time.Second {
		t.Fatalf("unexpected history interval: %v", p.historyInterval)
	}
	if p.windowDays != 2 {
		t.Fatalf("unexpected window: %d", p.windowDays)
	}
}

func TestWarmMarketCoversAllSymbols(t *testing.T) {
	t.Parallel()

	warmer := &fakeWarmer{}
	p := NewRefreshPoller(noopTracer, testRegistry(), warmer, &fakeRefresher{}, 1, 1, 1)

	p.warmMarket(context.Background())

	if len(warmer.symbols) != 3 {
		t.Fatalf("expected all symbols warmed, got %v", warmer.symbols)
	}
}

func TestRefreshBatchRoundRobin(t *testing.T) {
	t.Parallel()

	refresher := &fakeRefresher{}
	p := NewRefreshPoller(noopTracer, testRegistry(), &fakeWarmer{}, refresher, 1, 1, 1)

	index := 0
	p.refreshBatch(context.Background(), &index)
	p.refreshBatch(context.Background(), &index)

	want := []string{"BTC", "ETH", "SOL", "BTC"}
	if len(refresher.symbols) != len(want) {
		t.Fatalf("unexpected refresh calls: %v", refresher.symbols)
	}
	for i, s := range want {
		if refresher.symbols[i] != s {
			t.Fatalf("round robin broken at %d: %v", i, refresher.symbols)
		}
	}
}

func TestRefreshBatchToleratesMissingHistory(t *testing.T) {
	t.Parallel()

	refresher := &fakeRefresher{err: domain.ErrHistoryNotFound}
	p := NewRefreshPoller(noopTracer, testRegistry(), &fakeWarmer{}, refresher, 1, 1, 1)

	index := 0
	p.refreshBatch(context.Background(), &index)

	if len(refresher.symbols) != 2 {
		t.Fatalf("missing history must not stop the batch: %v", refresher.symbols)
	}
}

func TestRefreshBatchEmptyRegistry(t *testing.T) {
	t.Parallel()

	refresher := &fakeRefresher{}
	empty := domain.NewRegistry(nil)
	p := NewRefreshPoller(noopTracer, empty, &fakeWarmer{}, refresher, 1, 1, 1)

	index := 0
	p.refreshBatch(context.Background(), &index)

	if len(refresher.symbols) != 0 {
		t.Fatalf("empty registry must refresh nothing: %v", refresher.symbols)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	t.Parallel()

	p := NewRefreshPoller(noopTracer, testRegistry(), &fakeWarmer{}, &fakeRefresher{}, 300, 900, 2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop on cancel")
	}
}
