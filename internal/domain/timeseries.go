package domain

import (
	"fmt"
	"sort"
	"time"
)

// RangeDurations maps the supported range tokens to their window size.
// "all" is handled separately and carries no cutoff.
var RangeDurations = map[string]time.Duration{
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
	"90d": 90 * 24 * time.Hour,
	"1y":  365 * 24 * time.Hour,
	"5y":  5 * 365 * 24 * time.Hour,
}

// RangeTokens lists every supported range token.
var RangeTokens = []string{"24h", "7d", "30d", "90d", "1y", "5y", "all"}

// MergePoints merges incoming points into existing ones, last-write-wins by
// timestamp: an incoming point with a stored timestamp replaces it, a new
// timestamp is inserted preserving ascending order. Both inputs are left
// untouched. Returns the merged slice and how many timestamps were new.
func MergePoints(existing, incoming []PricePoint) ([]PricePoint, int) {
	if len(incoming) == 0 {
		out := make([]PricePoint, len(existing))
		copy(out, existing)
		return out, 0
	}

	byTime := make(map[int64]PricePoint, len(existing)+len(incoming))
	for _, p := range existing {
		byTime[p.T] = p
	}
	added := 0
	for _, p := range incoming {
		if _, ok := byTime[p.T]; !ok {
			added++
		}
		byTime[p.T] = p
	}

	merged := make([]PricePoint, 0, len(byTime))
	for _, p := range byTime {
		merged = append(merged, p)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].T < merged[j].T })
	return merged, added
}

// SliceRange returns a bounded view of a series for a named time window.
// Pure: the input series is never mutated.
func SliceRange(series *TimeSeries, token string) (*TimeSeries, error) {
	return sliceRangeAt(series, token, time.Now())
}

func sliceRangeAt(series *TimeSeries, token string, now time.Time) (*TimeSeries, error) {
	var cutoff int64
	if token != "all" {
		d, ok := RangeDurations[token]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRange, token)
		}
		cutoff = now.Add(-d).UnixMilli()
	}

	points := make([]PricePoint, 0, len(series.Points))
	for _, p := range series.Points {
		if p.T >= cutoff {
			points = append(points, p)
		}
	}

	out := &TimeSeries{
		Symbol:      series.Symbol,
		Points:      points,
		Confidence:  series.Confidence,
		SourcesUsed: series.SourcesUsed,
		Version:     series.Version,
	}
	if len(points) > 0 {
		out.From = points[0].T
		out.To = points[len(points)-1].T
	}
	return out, nil
}

// YearOf returns the UTC calendar year an epoch-ms timestamp falls in.
func YearOf(t int64) int {
	return time.UnixMilli(t).UTC().Year()
}

// PartitionByYear splits points into per-UTC-calendar-year groups.
func PartitionByYear(points []PricePoint) map[int][]PricePoint {
	out := make(map[int][]PricePoint)
	for _, p := range points {
		year := YearOf(p.T)
		out[year] = append(out[year], p)
	}
	return out
}
