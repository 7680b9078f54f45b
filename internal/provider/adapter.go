package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"coinlens/internal/domain"
)

const (
	// Per-call budget for one upstream request. A slow feed must not stall
	// the reconciler's fan-out.
	requestTimeout = 8 * time.Second

	// Backoff before the single retry on HTTP 429.
	retryBackoff = time.Second
)

// Confidence attached to backfilled points, by fetch method.
const (
	DirectConfidence       = 0.95
	InterpolatedConfidence = 0.75
)

// SourceAdapter is one upstream price feed. Implementations hold no shared
// mutable state and are safe for concurrent use across symbols and sources.
type SourceAdapter interface {
	Name() string
	FetchLive(ctx context.Context, coin domain.CoinConfig) (*domain.SourceSnapshot, error)
}

// HistorySource is a feed that can also serve a historical window.
// days <= 0 requests the full available history.
type HistorySource interface {
	SourceAdapter
	FetchHistory(ctx context.Context, coin domain.CoinConfig, days int) ([]domain.PricePoint, error)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: requestTimeout}
}

// doGet performs a GET with one retry on 429 after a fixed backoff. Timeouts,
// transport errors, and non-2xx statuses all wrap ErrSourceUnavailable so the
// caller can route around the feed.
func doGet(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	body, status, err := getOnce(ctx, client, url)
	if err != nil {
		return nil, err
	}
	if status == http.StatusTooManyRequests {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, ctx.Err())
		case <-time.After(retryBackoff):
		}
		body, status, err = getOnce(ctx, client, url)
		if err != nil {
			return nil, err
		}
	}
	if status < 200 || status > 299 {
		return nil, fmt.Errorf("%w: status %d from %s", domain.ErrSourceUnavailable, status, url)
	}
	return body, nil
}

func getOnce(ctx context.Context, client *http.Client, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: read body: %v", domain.ErrSourceUnavailable, err)
	}
	return body, resp.StatusCode, nil
}

// historyWindow translates a day count into a [start, end] epoch-ms window.
func historyWindow(days int, now time.Time) (int64, int64) {
	end := now.UnixMilli()
	if days <= 0 {
		// Full history: reach back far enough to cover any listed asset.
		return time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli(), end
	}
	return now.Add(-time.Duration(days) * 24 * time.Hour).UnixMilli(), end
}
