package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"coinlens/internal/domain"
	"coinlens/internal/provider"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

const marketCacheTTL = 300 * time.Second

// RedisClient is the slice of go-redis the market cache needs. Cache errors
// are safely lossy: a failed read or write just means a fresh fetch.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// MarketService reconciles live snapshots from every source adapter into one
// value with a consistency score, cached briefly.
type MarketService struct {
	tracer   trace.Tracer
	registry *domain.Registry
	adapters []provider.SourceAdapter
	priority []string
	redis    RedisClient
}

// NewMarketService wires the reconciler. priority decides which source fills
// the scalar fields (24h change, market cap, volume) first.
func NewMarketService(
	tracer trace.Tracer,
	registry *domain.Registry,
	adapters []provider.SourceAdapter,
	priority []string,
	redisClient RedisClient,
) *MarketService {
	return &MarketService{
		tracer:   tracer,
		registry: registry,
		adapters: adapters,
		priority: priority,
		redis:    redisClient,
	}
}

// GetMarket returns the reconciled live snapshot for a symbol. Cached for
// five minutes; on a miss every adapter is queried concurrently and the
// failures are dropped.
func (s *MarketService) GetMarket(ctx context.Context, symbol string) (*domain.MarketSnapshot, error) {
	ctx, span := s.tracer.Start(ctx, "market-service.get-market")
	defer span.End()

	coin, err := s.registry.Lookup(strings.ToUpper(symbol))
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		cached, err := s.getCache(ctx, coin.Symbol)
		if err != nil {
			log.Printf("market cache read error for %s: %v", coin.Symbol, err)
		}
		if cached != nil {
			return cached, nil
		}
	}

	snaps := s.fetchAll(ctx, coin)
	if len(snaps) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoSourcesAvailable, coin.Symbol)
	}

	snapshot := reconcile(coin.Symbol, snaps, s.priority)

	if s.redis != nil {
		if err := s.setCache(ctx, snapshot); err != nil {
			log.Printf("market cache write error for %s: %v", coin.Symbol, err)
		}
	}
	return snapshot, nil
}

// fetchAll fans out to every adapter, waits for all to settle, and keeps the
// successes with a positive price.
func (s *MarketService) fetchAll(ctx context.Context, coin domain.CoinConfig) []*domain.SourceSnapshot {
	results := make([]*domain.SourceSnapshot, len(s.adapters))
	var wg sync.WaitGroup
	for i, adapter := range s.adapters {
		wg.Add(1)
		go func(i int, adapter provider.SourceAdapter) {
			defer wg.Done()
			snap, err := adapter.FetchLive(ctx, coin)
			if err != nil {
				log.Printf("source %s unavailable for %s: %v", adapter.Name(), coin.Symbol, err)
				return
			}
			if snap.Price <= 0 {
				log.Printf("source %s reported non-positive price for %s, dropping", adapter.Name(), coin.Symbol)
				return
			}
			results[i] = snap
		}(i, adapter)
	}
	wg.Wait()

	snaps := make([]*domain.SourceSnapshot, 0, len(results))
	for _, snap := range results {
		if snap != nil {
			snaps = append(snaps, snap)
		}
	}
	return snaps
}

// reconcile averages the surviving prices and scores cross-source agreement.
// Scalar fields are filled by the first source in priority order that
// reported them; later sources never override.
func reconcile(symbol string, snaps []*domain.SourceSnapshot, priority []string) *domain.MarketSnapshot {
	ordered := orderByPriority(snaps, priority)

	prices := make([]float64, 0, len(ordered))
	sources := make([]string, 0, len(ordered))
	for _, snap := range ordered {
		prices = append(prices, snap.Price)
		sources = append(sources, snap.Source)
	}

	m := mean(prices)
	score := 1.0
	if m > 0 {
		score = clamp(1-stddev(prices, m)/m, 0, 1)
	}

	out := &domain.MarketSnapshot{
		Symbol:           symbol,
		PriceUSD:         m,
		SourcesUsed:      sources,
		ConsistencyScore: score,
		Timestamp:        time.Now().UnixMilli(),
	}
	var change, cap_, volume *float64
	for _, snap := range ordered {
		if change == nil && snap.Change24h != nil {
			change = snap.Change24h
		}
		if cap_ == nil && snap.MarketCap != nil {
			cap_ = snap.MarketCap
		}
		if volume == nil && snap.Volume24h != nil {
			volume = snap.Volume24h
		}
	}
	if change != nil {
		out.Change24h = *change
	}
	if cap_ != nil {
		out.MarketCap = *cap_
	}
	if volume != nil {
		out.Volume24h = *volume
	}
	return out
}

// orderByPriority sorts snapshots by the configured source priority; sources
// missing from the list keep their arrival order at the tail.
func orderByPriority(snaps []*domain.SourceSnapshot, priority []string) []*domain.SourceSnapshot {
	out := make([]*domain.SourceSnapshot, 0, len(snaps))
	seen := make(map[string]bool, len(snaps))
	for _, name := range priority {
		for _, snap := range snaps {
			if snap.Source == name && !seen[name] {
				out = append(out, snap)
				seen[name] = true
			}
		}
	}
	for _, snap := range snaps {
		if !seen[snap.Source] {
			out = append(out, snap)
			seen[snap.Source] = true
		}
	}
	return out
}

func (s *MarketService) setCache(ctx context.Context, snapshot *domain.MarketSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, "market:"+snapshot.Symbol, data, marketCacheTTL).Err()
}

func (s *MarketService) getCache(ctx context.Context, symbol string) (*domain.MarketSnapshot, error) {
	data, err := s.redis.Get(ctx, "market:"+symbol).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snapshot domain.MarketSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}
