package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"coinlens/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

var noopTracer = trace.NewNoopTracerProvider().Tracer("test")

// fakeRedis is an in-memory stand-in for the history store's redis slice.
// setHook, when set, runs before every Set and lets a test interleave a
// concurrent writer.
type fakeRedis struct {
	mu      sync.Mutex
	data    map[string]string
	setHook func(f *fakeRedis, key string)
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	val, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(val, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.setHook != nil {
		f.setHook(f, key)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, key := range keys {
		if _, ok := f.data[key]; ok {
			delete(f.data, key)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) put(t *testing.T, key string, v interface{}) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	f.mu.Lock()
	f.data[key] = string(data)
	f.mu.Unlock()
}

func ms(year int, month time.Month, day int) int64 {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC).UnixMilli()
}

func TestSaveOnEmptyStore(t *testing.T) {
	t.Parallel()

	fake := newFakeRedis()
	repo := NewHistoryRepository(fake, noopTracer)

	points := []domain.PricePoint{
		{T: ms(2025, time.March, 1), P: 60000, C: 0.95},
		{T: ms(2025, time.March, 2), P: 61000, C: 0.95},
	}
	res, err := repo.Save(context.Background(), "btc", points, []string{"coingecko"}, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Added != 2 || res.Replaced != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Meta.Version != 1 || res.Meta.Points != 2 || res.Meta.UpdatedDays != 7 {
		t.Fatalf("unexpected meta: %+v", res.Meta)
	}
	if len(res.Meta.Years) != 1 || res.Meta.Years[0] != 2025 {
		t.Fatalf("unexpected years: %v", res.Meta.Years)
	}
	if res.Meta.From != points[0].T || res.Meta.To != points[1].T {
		t.Fatalf("unexpected range: %+v", res.Meta)
	}
	if _, ok := fake.data["history:BTC:v1:meta"]; !ok {
		t.Fatal("meta key not written")
	}
	if _, ok := fake.data["history:BTC:v1:year:2025"]; !ok {
		t.Fatal("year chunk key not written")
	}
}

func TestSaveAcrossYearBoundary(t *testing.T) {
	t.Parallel()

	fake := newFakeRedis()
	repo := NewHistoryRepository(fake, noopTracer)

	points := []domain.PricePoint{
		{T: ms(2024, time.December, 31), P: 93000, C: 0.95},
		{T: ms(2025, time.January, 1), P: 94000, C: 0.95},
	}
	res, err := repo.Save(context.Background(), "BTC", points, nil, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Meta.Years) != 2 || res.Meta.Years[0] != 2024 || res.Meta.Years[1] != 2025 {
		t.Fatalf("unexpected years: %v", res.Meta.Years)
	}

	series, err := repo.Load(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(series.Points) != 2 || series.Points[0].T != points[0].T || series.Points[1].T != points[1].T {
		t.Fatalf("unexpected points: %+v", series.Points)
	}
	if series.From != points[0].T || series.To != points[1].T {
		t.Fatalf("unexpected range: from=%d to=%d", series.From, series.To)
	}
}

func TestSaveLastWriteWins(t *testing.T) {
	t.Parallel()

	fake := newFakeRedis()
	repo := NewHistoryRepository(fake, noopTracer)

	first := []domain.PricePoint{
		{T: ms(2025, time.March, 1), P: 60000, C: 0.95},
		{T: ms(2025, time.March, 2), P: 61000, C: 0.95},
	}
	if _, err := repo.Save(context.Background(), "BTC", first, []string{"coingecko"}, 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := []domain.PricePoint{
		{T: ms(2025, time.March, 2), P: 65000, C: 0.75},
		{T: ms(2025, time.March, 3), P: 66000, C: 0.95},
	}
	res, err := repo.Save(context.Background(), "BTC", second, []string{"binance"}, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Added != 1 || res.Replaced != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Meta.Points != 3 || res.Meta.Version != 2 {
		t.Fatalf("unexpected meta: %+v", res.Meta)
	}
	if len(res.Meta.SourcesUsed) != 2 {
		t.Fatalf("unexpected sources: %v", res.Meta.SourcesUsed)
	}

	series, err := repo.Load(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if series.Points[1].P != 65000 {
		t.Fatalf("overlapping point not replaced: %+v", series.Points[1])
	}
}

func TestSaveVersionConflict(t *testing.T) {
	t.Parallel()

	fake := newFakeRedis()
	repo := NewHistoryRepository(fake, noopTracer)

	seed := []domain.PricePoint{{T: ms(2025, time.March, 1), P: 60000, C: 0.95}}
	if _, err := repo.Save(context.Background(), "BTC", seed, nil, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Bump the stored meta version under the writer's feet once the chunk
	// write lands, simulating another process.
	fake.setHook = func(f *fakeRedis, key string) {
		if !strings.Contains(key, ":year:") {
			return
		}
		f.setHook = nil
		f.mu.Lock()
		raw := f.data["history:BTC:v1:meta"]
		f.mu.Unlock()
		var meta domain.SeriesMeta
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			t.Errorf("decode meta: %v", err)
			return
		}
		meta.Version++
		f.put(t, "history:BTC:v1:meta", &meta)
	}

	_, err := repo.Save(context.Background(), "BTC",
		[]domain.PricePoint{{T: ms(2025, time.March, 2), P: 61000, C: 0.95}}, nil, 1)
	if !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
}

func TestMetaNotFound(t *testing.T) {
	t.Parallel()

	repo := NewHistoryRepository(newFakeRedis(), noopTracer)
	_, err := repo.Meta(context.Background(), "BTC")
	if !errors.Is(err, domain.ErrHistoryNotFound) {
		t.Fatalf("expected ErrHistoryNotFound, got %v", err)
	}
}

func TestLoadRejectsCorruptChunk(t *testing.T) {
	t.Parallel()

	fake := newFakeRedis()
	repo := NewHistoryRepository(fake, noopTracer)

	fake.put(t, "history:BTC:v1:meta", &domain.SeriesMeta{Years: []int{2025}, Points: 2, Version: 1})
	fake.put(t, "history:BTC:v1:year:2025", []domain.PricePoint{
		{T: ms(2025, time.March, 2), P: 61000, C: 0.95},
		{T: ms(2025, time.March, 1), P: 60000, C: 0.95},
	})

	if _, err := repo.Load(context.Background(), "BTC"); err == nil {
		t.Fatal("expected error for out-of-order chunk")
	}
}

func TestClear(t *testing.T) {
	t.Parallel()

	fake := newFakeRedis()
	repo := NewHistoryRepository(fake, noopTracer)

	seed := []domain.PricePoint{{T: ms(2025, time.March, 1), P: 60000, C: 0.95}}
	if _, err := repo.Save(context.Background(), "BTC", seed, nil, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.Clear(context.Background(), "BTC"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fake.data) != 0 {
		t.Fatalf("keys left behind: %v", fake.data)
	}
	if _, err := repo.Meta(context.Background(), "BTC"); !errors.Is(err, domain.ErrHistoryNotFound) {
		t.Fatalf("expected ErrHistoryNotFound after clear, got %v", err)
	}

	// Clearing again is a no-op.
	if err := repo.Clear(context.Background(), "BTC"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClearAllCollectsFailures(t *testing.T) {
	t.Parallel()

	fake := newFakeRedis()
	repo := NewHistoryRepository(fake, noopTracer)

	seed := []domain.PricePoint{{T: ms(2025, time.March, 1), P: 60000, C: 0.95}}
	if _, err := repo.Save(context.Background(), "BTC", seed, nil, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fake.data["history:ETH:v1:meta"] = "{not json"

	failures := repo.ClearAll(context.Background(), []string{"BTC", "ETH"})
	if len(failures) != 1 || failures[0].Symbol != "ETH" {
		t.Fatalf("unexpected failures: %+v", failures)
	}
	if _, ok := fake.data["history:BTC:v1:meta"]; ok {
		t.Fatal("BTC should still have been cleared")
	}
}
