package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"coinlens/internal/domain"
	"coinlens/internal/provider"
	"coinlens/internal/repository"

	"go.opentelemetry.io/otel/trace"
)

// Windows at most this many days are fetched and bucketed hourly; anything
// longer falls back to daily resolution.
const hourlyResolutionMaxDays = 90

// A refresh inside this interval is a no-op unless forced.
const refreshMinInterval = 30 * time.Minute

// HistoryStore is the durable chunked persistence the engines write through.
type HistoryStore interface {
	Load(ctx context.Context, symbol string) (*domain.TimeSeries, error)
	Meta(ctx context.Context, symbol string) (*domain.SeriesMeta, error)
	Save(ctx context.Context, symbol string, points []domain.PricePoint, sources []string, updatedDays int) (*repository.SaveResult, error)
	Clear(ctx context.Context, symbol string) error
	ClearAll(ctx context.Context, symbols []string) []repository.SymbolError
}

// HistoryService owns backfill, incremental refresh, and range-bounded reads
// of the chunked price history.
type HistoryService struct {
	tracer   trace.Tracer
	registry *domain.Registry
	sources  []provider.HistorySource
	store    HistoryStore
}

func NewHistoryService(
	tracer trace.Tracer,
	registry *domain.Registry,
	sources []provider.HistorySource,
	store HistoryStore,
) *HistoryService {
	return &HistoryService{
		tracer:   tracer,
		registry: registry,
		sources:  sources,
		store:    store,
	}
}

// BackfillResult reports a symbol's series stats after a backfill.
type BackfillResult struct {
	Symbol      string   `json:"symbol"`
	Points      int      `json:"points"`
	From        int64    `json:"from"`
	To          int64    `json:"to"`
	Confidence  float64  `json:"confidence"`
	SourcesUsed []string `json:"sources_used"`
	Skipped     bool     `json:"skipped,omitempty"`
}

// BackfillStatus is one symbol's outcome inside a batch backfill.
type BackfillStatus struct {
	Symbol string          `json:"symbol"`
	Status string          `json:"status"`
	Error  string          `json:"error,omitempty"`
	Result *BackfillResult `json:"result,omitempty"`
}

// RefreshResult reports an incremental refresh: how many points were merged
// versus stored in total afterwards.
type RefreshResult struct {
	Symbol      string `json:"symbol"`
	Merged      int    `json:"merged"`
	Total       int    `json:"total"`
	UpdatedDays int    `json:"updated_days"`
}

// ClearStatus is one symbol's outcome inside a batch clear.
type ClearStatus struct {
	Symbol string `json:"symbol"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// BackfillSymbol populates or rebuilds a symbol's series. days <= 0 requests
// the full available history. When force is false and the stored series
// already covers the window, the current stats come back with no network I/O.
func (s *HistoryService) BackfillSymbol(ctx context.Context, symbol string, days int, force bool) (*BackfillResult, error) {
	ctx, span := s.tracer.Start(ctx, "history-service.backfill-symbol")
	defer span.End()

	coin, err := s.registry.Lookup(strings.ToUpper(symbol))
	if err != nil {
		return nil, err
	}

	if !force {
		meta, err := s.store.Meta(ctx, coin.Symbol)
		if err == nil && coversWindow(meta, days, time.Now()) {
			return resultFromMeta(coin.Symbol, meta, true), nil
		}
		if err != nil && !errors.Is(err, domain.ErrHistoryNotFound) {
			return nil, err
		}
	}

	points, sources := s.fetchHistory(ctx, coin, days)
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no history for %s", domain.ErrNoSourcesAvailable, coin.Symbol)
	}

	updatedDays := days
	if updatedDays < 0 {
		updatedDays = 0
	}
	saved, err := s.store.Save(ctx, coin.Symbol, points, sources, updatedDays)
	if err != nil {
		return nil, err
	}
	return resultFromMeta(coin.Symbol, saved.Meta, false), nil
}

// BackfillAll fans BackfillSymbol out across every registered symbol. One
// symbol's failure is captured in its status, never propagated to the batch.
func (s *HistoryService) BackfillAll(ctx context.Context, days int, force bool) []BackfillStatus {
	ctx, span := s.tracer.Start(ctx, "history-service.backfill-all")
	defer span.End()

	symbols := s.registry.Symbols()
	statuses := make([]BackfillStatus, len(symbols))

	var wg sync.WaitGroup
	for i, symbol := range symbols {
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			result, err := s.BackfillSymbol(ctx, symbol, days, force)
			if err != nil {
				log.Printf("backfill error for %s: %v", symbol, err)
				statuses[i] = BackfillStatus{Symbol: symbol, Status: "error", Error: err.Error()}
				return
			}
			statuses[i] = BackfillStatus{Symbol: symbol, Status: "ok", Result: result}
		}(i, symbol)
	}
	wg.Wait()
	return statuses
}

// RefreshHistory merges only the most recent days window into an existing
// series. Fails with ErrHistoryNotFound when the symbol was never backfilled.
func (s *HistoryService) RefreshHistory(ctx context.Context, symbol string, days int, force bool) (*RefreshResult, error) {
	ctx, span := s.tracer.Start(ctx, "history-service.refresh-history")
	defer span.End()

	coin, err := s.registry.Lookup(strings.ToUpper(symbol))
	if err != nil {
		return nil, err
	}

	meta, err := s.store.Meta(ctx, coin.Symbol)
	if err != nil {
		return nil, err
	}

	if days <= 0 {
		days = 1
	}

	if !force && time.Since(time.UnixMilli(meta.LastUpdated)) < refreshMinInterval {
		return &RefreshResult{Symbol: coin.Symbol, Merged: 0, Total: meta.Points, UpdatedDays: meta.UpdatedDays}, nil
	}

	points, sources := s.fetchHistory(ctx, coin, days)
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no history for %s", domain.ErrNoSourcesAvailable, coin.Symbol)
	}

	saved, err := s.store.Save(ctx, coin.Symbol, points, sources, days)
	if err != nil {
		return nil, err
	}
	return &RefreshResult{
		Symbol:      coin.Symbol,
		Merged:      saved.Added + saved.Replaced,
		Total:       saved.Meta.Points,
		UpdatedDays: saved.Meta.UpdatedDays,
	}, nil
}

// GetHistory loads the stored series and slices it to the named range.
func (s *HistoryService) GetHistory(ctx context.Context, symbol, rangeToken string) (*domain.TimeSeries, error) {
	ctx, span := s.tracer.Start(ctx, "history-service.get-history")
	defer span.End()

	coin, err := s.registry.Lookup(strings.ToUpper(symbol))
	if err != nil {
		return nil, err
	}
	series, err := s.store.Load(ctx, coin.Symbol)
	if err != nil {
		return nil, err
	}
	return domain.SliceRange(series, rangeToken)
}

// ClearHistory removes a symbol's chunks and meta.
func (s *HistoryService) ClearHistory(ctx context.Context, symbol string) error {
	ctx, span := s.tracer.Start(ctx, "history-service.clear-history")
	defer span.End()

	coin, err := s.registry.Lookup(strings.ToUpper(symbol))
	if err != nil {
		return err
	}
	return s.store.Clear(ctx, coin.Symbol)
}

// ClearAllHistory clears every registered symbol, reporting per-symbol
// outcomes.
func (s *HistoryService) ClearAllHistory(ctx context.Context) []ClearStatus {
	ctx, span := s.tracer.Start(ctx, "history-service.clear-all-history")
	defer span.End()

	symbols := s.registry.Symbols()
	failures := s.store.ClearAll(ctx, symbols)
	failed := make(map[string]string, len(failures))
	for _, f := range failures {
		failed[f.Symbol] = f.Err.Error()
	}

	statuses := make([]ClearStatus, 0, len(symbols))
	for _, symbol := range symbols {
		if msg, ok := failed[symbol]; ok {
			statuses = append(statuses, ClearStatus{Symbol: symbol, Status: "error", Error: msg})
			continue
		}
		statuses = append(statuses, ClearStatus{Symbol: symbol, Status: "ok"})
	}
	return statuses
}

// fetchHistory fans out to every history-capable source, waits for all, and
// reconciles the survivors into one point sequence.
func (s *HistoryService) fetchHistory(ctx context.Context, coin domain.CoinConfig, days int) ([]domain.PricePoint, []string) {
	type sourceSeries struct {
		name   string
		points []domain.PricePoint
	}

	results := make([]*sourceSeries, len(s.sources))
	var wg sync.WaitGroup
	for i, src := range s.sources {
		wg.Add(1)
		go func(i int, src provider.HistorySource) {
			defer wg.Done()
			points, err := src.FetchHistory(ctx, coin, days)
			if err != nil {
				log.Printf("history source %s unavailable for %s: %v", src.Name(), coin.Symbol, err)
				return
			}
			if len(points) == 0 {
				return
			}
			results[i] = &sourceSeries{name: src.Name(), points: points}
		}(i, src)
	}
	wg.Wait()

	var sources []string
	buckets := make(map[int64][]domain.PricePoint)
	step := bucketStep(days)
	for _, res := range results {
		if res == nil {
			continue
		}
		sources = append(sources, res.name)
		for _, p := range res.points {
			b := p.T - p.T%step
			buckets[b] = append(buckets[b], p)
		}
	}
	if len(buckets) == 0 {
		return nil, nil
	}

	points := make([]domain.PricePoint, 0, len(buckets))
	for t, group := range buckets {
		points = append(points, reconcileBucket(t, group))
	}
	sort.Slice(points, func(i, j int) bool { return points[i].T < points[j].T })
	return points, sources
}

func bucketStep(days int) int64 {
	if days > 0 && days <= hourlyResolutionMaxDays {
		return time.Hour.Milliseconds()
	}
	return (24 * time.Hour).Milliseconds()
}

// reconcileBucket collapses all sources' samples for one time bucket into a
// single point. A lone sample keeps its own confidence; agreeing sources
// raise it, diverging ones cut it down via the dispersion score.
func reconcileBucket(t int64, group []domain.PricePoint) domain.PricePoint {
	if len(group) == 1 {
		return domain.PricePoint{T: t, P: group[0].P, C: group[0].C}
	}

	prices := make([]float64, 0, len(group))
	base := 0.0
	for _, p := range group {
		prices = append(prices, p.P)
		if p.C > base {
			base = p.C
		}
	}
	m := mean(prices)
	agreement := 1.0
	if m > 0 {
		agreement = clamp(1-stddev(prices, m)/m, 0, 1)
	}
	return domain.PricePoint{T: t, P: m, C: clamp(base*agreement, 0, 1)}
}

func coversWindow(meta *domain.SeriesMeta, days int, now time.Time) bool {
	if meta == nil || meta.Points == 0 {
		return false
	}
	fresh := meta.To >= now.Add(-24*time.Hour).UnixMilli()
	if days <= 0 {
		return fresh
	}
	// A day of slack: the stored window starts wherever the feeds' first
	// sample landed, not exactly at the cutoff.
	cutoff := now.Add(-time.Duration(days) * 24 * time.Hour).Add(24 * time.Hour).UnixMilli()
	return fresh && meta.From <= cutoff
}

func resultFromMeta(symbol string, meta *domain.SeriesMeta, skipped bool) *BackfillResult {
	return &BackfillResult{
		Symbol:      symbol,
		Points:      meta.Points,
		From:        meta.From,
		To:          meta.To,
		Confidence:  meta.Confidence,
		SourcesUsed: meta.SourcesUsed,
		Skipped:     skipped,
	}
}
