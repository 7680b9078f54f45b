package job

import (
	"context"
	"errors"
	"log"
	"time"

	"coinlens/internal/domain"
	"coinlens/internal/service"

	"go.opentelemetry.io/otel/trace"
)

// MarketWarmer keeps the five-minute market cache hot.
type MarketWarmer interface {
	GetMarket(ctx context.Context, symbol string) (*domain.MarketSnapshot, error)
}

// HistoryRefresher merges the most recent window into stored series.
type HistoryRefresher interface {
	RefreshHistory(ctx context.Context, symbol string, days int, force bool) (*service.RefreshResult, error)
}

// RefreshPoller runs background goroutines that keep the market cache warm
// and incrementally refresh each symbol's history, round-robin.
type RefreshPoller struct {
	tracer          trace.Tracer
	registry        *domain.Registry
	market          MarketWarmer
	history         HistoryRefresher
	marketInterval  time.Duration
	historyInterval time.Duration
	windowDays      int
	symbolsPerTick  int
}

func NewRefreshPoller(
	tracer trace.Tracer,
	registry *domain.Registry,
	market MarketWarmer,
	history HistoryRefresher,
	marketPollSecs, historyPollSecs, windowDays int,
) *RefreshPoller {
	if marketPollSecs <= 0 {
		marketPollSecs = 300
	}
	if historyPollSecs <= 0 {
		historyPollSecs = 900
	}
	if windowDays <= 0 {
		windowDays = 2
	}
	return &RefreshPoller{
		tracer:          tracer,
		registry:        registry,
		market:          market,
		history:         history,
		marketInterval:  time.Duration(marketPollSecs) * time.Second,
		historyInterval: time.Duration(historyPollSecs) * time.Second,
		windowDays:      windowDays,
		symbolsPerTick:  2,
	}
}

// Start launches the polling goroutines. Blocks until ctx is cancelled.
func (p *RefreshPoller) Start(ctx context.Context) {
	log.Println("Refresh poller starting...")

	go p.pollLoop(ctx, p.marketInterval, p.warmMarket)

	// Stagger the history loop so the two loops do not land their upstream
	// calls in the same instant.
	go p.pollHistory(ctx)

	<-ctx.Done()
	log.Println("Refresh poller stopped")
}

func (p *RefreshPoller) pollLoop(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	fn(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

func (p *RefreshPoller) warmMarket(ctx context.Context) {
	_, span := p.tracer.Start(ctx, "refresh-poller.warm-market")
	defer span.End()

	for _, symbol := range p.registry.Symbols() {
		if _, err := p.market.GetMarket(ctx, symbol); err != nil {
			log.Printf("market warm error for %s: %v", symbol, err)
		}
	}
}

func (p *RefreshPoller) pollHistory(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(30 * time.Second):
	}

	ticker := time.NewTicker(p.historyInterval)
	defer ticker.Stop()

	index := 0
	p.refreshBatch(ctx, &index)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refreshBatch(ctx, &index)
		}
	}
}

func (p *RefreshPoller) refreshBatch(ctx context.Context, index *int) {
	_, span := p.tracer.Start(ctx, "refresh-poller.refresh-batch")
	defer span.End()

	symbols := p.registry.Symbols()
	if len(symbols) == 0 {
		return
	}
	for i := 0; i < p.symbolsPerTick; i++ {
		symbol := symbols[*index%len(symbols)]
		*index++

		result, err := p.history.RefreshHistory(ctx, symbol, p.windowDays, false)
		if err != nil {
			// Never-backfilled symbols are expected until the first backfill
			// runs; anything else is worth a look.
			if errors.Is(err, domain.ErrHistoryNotFound) {
				continue
			}
			log.Printf("history refresh error for %s: %v", symbol, err)
			continue
		}
		if result.Merged > 0 {
			log.Printf("history refresh %s merged=%d total=%d", symbol, result.Merged, result.Total)
		}
	}
}
