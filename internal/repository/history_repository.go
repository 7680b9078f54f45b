package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"coinlens/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

// RedisClient is the slice of go-redis used by the history store. History
// keys carry no TTL; their unavailability is fatal for the operation.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// HistoryRepository persists a symbol's price series as one meta record plus
// one record per UTC calendar year, over a plain get/set/delete cache.
type HistoryRepository struct {
	redis  RedisClient
	tracer trace.Tracer
	locks  sync.Map // symbol -> *sync.Mutex
}

func NewHistoryRepository(redisClient RedisClient, tracer trace.Tracer) *HistoryRepository {
	return &HistoryRepository{redis: redisClient, tracer: tracer}
}

// SaveResult reports what one Save changed.
type SaveResult struct {
	Added    int
	Replaced int
	Meta     *domain.SeriesMeta
}

// SymbolError captures one symbol's failure inside a batch.
type SymbolError struct {
	Symbol string
	Err    error
}

func metaKey(symbol string) string {
	return "history:" + strings.ToUpper(symbol) + ":v1:meta"
}

func yearKey(symbol string, year int) string {
	return fmt.Sprintf("history:%s:v1:year:%d", strings.ToUpper(symbol), year)
}

// Meta reads the stored index record. ErrHistoryNotFound when the symbol was
// never backfilled.
func (r *HistoryRepository) Meta(ctx context.Context, symbol string) (*domain.SeriesMeta, error) {
	_, span := r.tracer.Start(ctx, "history-repo.meta")
	defer span.End()

	return r.readMeta(ctx, symbol)
}

func (r *HistoryRepository) readMeta(ctx context.Context, symbol string) (*domain.SeriesMeta, error) {
	data, err := r.redis.Get(ctx, metaKey(symbol)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrHistoryNotFound, symbol)
	}
	if err != nil {
		return nil, fmt.Errorf("read meta for %s: %w", symbol, err)
	}

	var meta domain.SeriesMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode meta for %s: %w", symbol, err)
	}
	if meta.Points < 0 || !sort.IntsAreSorted(meta.Years) {
		return nil, fmt.Errorf("invalid meta record for %s", symbol)
	}
	return &meta, nil
}

func (r *HistoryRepository) readChunk(ctx context.Context, symbol string, year int) ([]domain.PricePoint, error) {
	data, err := r.redis.Get(ctx, yearKey(symbol, year)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read chunk %s/%d: %w", symbol, year, err)
	}

	var points []domain.PricePoint
	if err := json.Unmarshal(data, &points); err != nil {
		return nil, fmt.Errorf("decode chunk %s/%d: %w", symbol, year, err)
	}
	for i := 1; i < len(points); i++ {
		if points[i].T <= points[i-1].T {
			return nil, fmt.Errorf("invalid chunk %s/%d: points not strictly ascending", symbol, year)
		}
	}
	return points, nil
}

// Load assembles the full series: meta first, then every listed year chunk
// concatenated in year order.
func (r *HistoryRepository) Load(ctx context.Context, symbol string) (*domain.TimeSeries, error) {
	_, span := r.tracer.Start(ctx, "history-repo.load")
	defer span.End()

	meta, err := r.readMeta(ctx, symbol)
	if err != nil {
		return nil, err
	}

	points := make([]domain.PricePoint, 0, meta.Points)
	for _, year := range meta.Years {
		chunk, err := r.readChunk(ctx, symbol, year)
		if err != nil {
			return nil, err
		}
		points = append(points, chunk...)
	}

	series := &domain.TimeSeries{
		Symbol:      strings.ToUpper(symbol),
		Points:      points,
		Confidence:  meta.Confidence,
		SourcesUsed: meta.SourcesUsed,
		Version:     meta.Version,
	}
	if len(points) > 0 {
		series.From = points[0].T
		series.To = points[len(points)-1].T
	}
	return series, nil
}

// Save merges new points into the affected year chunks (last-write-wins by
// timestamp) and rewrites meta. Mutations on the same symbol are serialized
// in-process; the meta version doubles as an optimistic check against other
// writers, so a stale writer gets ErrVersionConflict instead of silently
// clobbering.
//
// updatedDays < 0 keeps the stored value.
func (r *HistoryRepository) Save(ctx context.Context, symbol string, points []domain.PricePoint, sources []string, updatedDays int) (*SaveResult, error) {
	_, span := r.tracer.Start(ctx, "history-repo.save")
	defer span.End()

	mu := r.symbolLock(symbol)
	mu.Lock()
	defer mu.Unlock()

	var baseVersion int64
	prevUpdatedDays := 0
	var prevSources []string
	meta, err := r.readMeta(ctx, symbol)
	if err == nil {
		baseVersion = meta.Version
		prevUpdatedDays = meta.UpdatedDays
		prevSources = meta.SourcesUsed
	} else if !isNotFound(err) {
		return nil, err
	}

	chunks := make(map[int][]domain.PricePoint)
	if meta != nil {
		for _, year := range meta.Years {
			chunk, err := r.readChunk(ctx, symbol, year)
			if err != nil {
				return nil, err
			}
			chunks[year] = chunk
		}
	}

	added := 0
	incoming := domain.PartitionByYear(points)
	for year, newPoints := range incoming {
		merged, n := domain.MergePoints(chunks[year], newPoints)
		chunks[year] = merged
		added += n
	}
	replaced := 0
	for _, newPoints := range incoming {
		replaced += len(newPoints)
	}
	replaced -= added

	for year := range incoming {
		data, err := json.Marshal(chunks[year])
		if err != nil {
			return nil, fmt.Errorf("encode chunk %s/%d: %w", symbol, year, err)
		}
		if err := r.redis.Set(ctx, yearKey(symbol, year), data, 0).Err(); err != nil {
			return nil, fmt.Errorf("write chunk %s/%d: %w", symbol, year, err)
		}
	}

	// Another writer may have advanced meta while the chunks were written.
	if current, err := r.readMeta(ctx, symbol); err == nil {
		if current.Version != baseVersion {
			return nil, fmt.Errorf("%w: %s version %d, expected %d", domain.ErrVersionConflict, symbol, current.Version, baseVersion)
		}
	} else if !isNotFound(err) {
		return nil, err
	}

	if updatedDays < 0 {
		updatedDays = prevUpdatedDays
	}
	newMeta := buildMeta(chunks, unionSources(prevSources, sources), updatedDays, baseVersion+1)
	data, err := json.Marshal(newMeta)
	if err != nil {
		return nil, fmt.Errorf("encode meta for %s: %w", symbol, err)
	}
	if err := r.redis.Set(ctx, metaKey(symbol), data, 0).Err(); err != nil {
		return nil, fmt.Errorf("write meta for %s: %w", symbol, err)
	}

	return &SaveResult{Added: added, Replaced: replaced, Meta: newMeta}, nil
}

// Clear deletes every chunk listed in the current meta, then the meta itself.
// Clearing a symbol that was never backfilled is a no-op.
func (r *HistoryRepository) Clear(ctx context.Context, symbol string) error {
	_, span := r.tracer.Start(ctx, "history-repo.clear")
	defer span.End()

	mu := r.symbolLock(symbol)
	mu.Lock()
	defer mu.Unlock()

	meta, err := r.readMeta(ctx, symbol)
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(meta.Years)+1)
	for _, year := range meta.Years {
		keys = append(keys, yearKey(symbol, year))
	}
	keys = append(keys, metaKey(symbol))
	if err := r.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("clear history for %s: %w", symbol, err)
	}
	return nil
}

// ClearAll clears every given symbol, collecting per-symbol failures instead
// of aborting the batch.
func (r *HistoryRepository) ClearAll(ctx context.Context, symbols []string) []SymbolError {
	_, span := r.tracer.Start(ctx, "history-repo.clear-all")
	defer span.End()

	var failures []SymbolError
	for _, symbol := range symbols {
		if err := r.Clear(ctx, symbol); err != nil {
			failures = append(failures, SymbolError{Symbol: symbol, Err: err})
		}
	}
	return failures
}

func (r *HistoryRepository) symbolLock(symbol string) *sync.Mutex {
	v, _ := r.locks.LoadOrStore(strings.ToUpper(symbol), &sync.Mutex{})
	return v.(*sync.Mutex)
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrHistoryNotFound)
}

func buildMeta(chunks map[int][]domain.PricePoint, sources []string, updatedDays int, version int64) *domain.SeriesMeta {
	years := make([]int, 0, len(chunks))
	for year, chunk := range chunks {
		if len(chunk) > 0 {
			years = append(years, year)
		}
	}
	sort.Ints(years)

	meta := &domain.SeriesMeta{
		Years:       years,
		SourcesUsed: sources,
		LastUpdated: time.Now().UnixMilli(),
		UpdatedDays: updatedDays,
		Version:     version,
	}

	total := 0
	confidenceSum := 0.0
	for _, year := range years {
		chunk := chunks[year]
		total += len(chunk)
		for _, p := range chunk {
			confidenceSum += p.C
		}
	}
	meta.Points = total
	if total > 0 {
		first := chunks[years[0]]
		last := chunks[years[len(years)-1]]
		meta.From = first[0].T
		meta.To = last[len(last)-1].T
		meta.Confidence = confidenceSum / float64(total)
	}
	return meta
}

func unionSources(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, lst := range [][]string{a, b} {
		for _, s := range lst {
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
