package domain

// CoinConfig describes one supported asset: internal symbol, display name,
// chart color, and the identifiers each upstream feed uses for it.
type CoinConfig struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Color  string `json:"color"`

	// Per-source identifiers. Empty means the source does not list the coin.
	CoinGeckoID string `json:"-"`
	BinancePair string `json:"-"`
	CoinCapID   string `json:"-"`
	KrakenPair  string `json:"-"`
}

// SourceSnapshot is one adapter's view of a coin's live market data.
// Optional fields are nil when the source does not report them.
type SourceSnapshot struct {
	Source    string
	Price     float64
	Change24h *float64
	MarketCap *float64
	Volume24h *float64
}

// MarketSnapshot is the reconciled live view of a coin, merged across all
// sources that answered. Cached briefly, never part of durable history.
type MarketSnapshot struct {
	Symbol           string   `json:"symbol"`
	PriceUSD         float64  `json:"price_usd"`
	Change24h        float64  `json:"change_24h"`
	MarketCap        float64  `json:"market_cap"`
	Volume24h        float64  `json:"volume_24h"`
	SourcesUsed      []string `json:"sources_used"`
	ConsistencyScore float64  `json:"consistency_score"`
	Timestamp        int64    `json:"timestamp"`
}

// PricePoint is one historical sample: epoch-ms timestamp, USD price, and an
// opaque reliability score in [0,1].
type PricePoint struct {
	T int64   `json:"t"`
	P float64 `json:"p"`
	C float64 `json:"c"`
}

// TimeSeries is a symbol's assembled price history, ascending by timestamp
// with unique timestamps.
type TimeSeries struct {
	Symbol      string       `json:"symbol"`
	Points      []PricePoint `json:"points"`
	From        int64        `json:"from"`
	To          int64        `json:"to"`
	Confidence  float64      `json:"confidence"`
	SourcesUsed []string     `json:"sources_used"`
	Version     int64        `json:"version"`
}

// SeriesMeta is the stored index record for a symbol's chunked history.
// Years lists exactly the calendar years that have a non-empty chunk.
type SeriesMeta struct {
	Years       []int    `json:"years"`
	From        int64    `json:"from"`
	To          int64    `json:"to"`
	Points      int      `json:"points"`
	Confidence  float64  `json:"confidence"`
	SourcesUsed []string `json:"sources_used"`
	LastUpdated int64    `json:"last_updated"`
	UpdatedDays int      `json:"updated_days"`
	Version     int64    `json:"version"`
}
