package domain

import "fmt"

// Registry is the injected table of supported coins. Pure lookup, no mutation
// after construction.
type Registry struct {
	coins   map[string]CoinConfig
	symbols []string
}

// NewRegistry builds a registry from a coin list, preserving order.
func NewRegistry(coins []CoinConfig) *Registry {
	r := &Registry{
		coins:   make(map[string]CoinConfig, len(coins)),
		symbols: make([]string, 0, len(coins)),
	}
	for _, c := range coins {
		if _, ok := r.coins[c.Symbol]; ok {
			continue
		}
		r.coins[c.Symbol] = c
		r.symbols = append(r.symbols, c.Symbol)
	}
	return r
}

// Lookup validates a symbol before any network or store access.
func (r *Registry) Lookup(symbol string) (CoinConfig, error) {
	coin, ok := r.coins[symbol]
	if !ok {
		return CoinConfig{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	return coin, nil
}

// Coins returns every registered coin in stable order.
func (r *Registry) Coins() []CoinConfig {
	out := make([]CoinConfig, 0, len(r.symbols))
	for _, symbol := range r.symbols {
		out = append(out, r.coins[symbol])
	}
	return out
}

// Symbols returns every registered symbol in stable order.
func (r *Registry) Symbols() []string {
	out := make([]string, len(r.symbols))
	copy(out, r.symbols)
	return out
}

// DefaultCoins is the static table of tracked assets.
func DefaultCoins() []CoinConfig {
	return []CoinConfig{
		{ID: "bitcoin", Symbol: "BTC", Name: "Bitcoin", Color: "#f7931a", CoinGeckoID: "bitcoin", BinancePair: "BTCUSDT", CoinCapID: "bitcoin", KrakenPair: "XBTUSD"},
		{ID: "ethereum", Symbol: "ETH", Name: "Ethereum", Color: "#627eea", CoinGeckoID: "ethereum", BinancePair: "ETHUSDT", CoinCapID: "ethereum", KrakenPair: "ETHUSD"},
		{ID: "solana", Symbol: "SOL", Name: "Solana", Color: "#9945ff", CoinGeckoID: "solana", BinancePair: "SOLUSDT", CoinCapID: "solana", KrakenPair: "SOLUSD"},
		{ID: "ripple", Symbol: "XRP", Name: "XRP", Color: "#23292f", CoinGeckoID: "ripple", BinancePair: "XRPUSDT", CoinCapID: "xrp", KrakenPair: "XRPUSD"},
		{ID: "cardano", Symbol: "ADA", Name: "Cardano", Color: "#0033ad", CoinGeckoID: "cardano", BinancePair: "ADAUSDT", CoinCapID: "cardano", KrakenPair: "ADAUSD"},
		{ID: "dogecoin", Symbol: "DOGE", Name: "Dogecoin", Color: "#c2a633", CoinGeckoID: "dogecoin", BinancePair: "DOGEUSDT", CoinCapID: "dogecoin", KrakenPair: "DOGEUSD"},
		{ID: "polkadot", Symbol: "DOT", Name: "Polkadot", Color: "#e6007a", CoinGeckoID: "polkadot", BinancePair: "DOTUSDT", CoinCapID: "polkadot", KrakenPair: "DOTUSD"},
		{ID: "avalanche-2", Symbol: "AVAX", Name: "Avalanche", Color: "#e84142", CoinGeckoID: "avalanche-2", BinancePair: "AVAXUSDT", CoinCapID: "avalanche", KrakenPair: "AVAXUSD"},
		{ID: "chainlink", Symbol: "LINK", Name: "Chainlink", Color: "#2a5ada", CoinGeckoID: "chainlink", BinancePair: "LINKUSDT", CoinCapID: "chainlink", KrakenPair: "LINKUSD"},
		{ID: "matic-network", Symbol: "MATIC", Name: "Polygon", Color: "#8247e5", CoinGeckoID: "matic-network", BinancePair: "MATICUSDT", CoinCapID: "polygon", KrakenPair: "MATICUSD"},
	}
}
