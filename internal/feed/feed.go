// Package feed hosts market data providers: a deterministic stub for
// offline work and a websocket client for streaming option marks.
package feed

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"optionscout/internal/market"
)

const (
	// ProviderStub serves deterministic synthetic bars, chains, and marks.
	ProviderStub = "stub"
	// ProviderWebsocket streams option marks from a JSON websocket endpoint.
	ProviderWebsocket = "websocket"
)

const (
	stubHistoryBars = 90
	stubChainDTE    = 30
)

// Feed is a pluggable market data source. The stub provider synthesizes
// everything locally; the websocket provider fills the mark table from a
// stream and still synthesizes snapshots for scanning.
type Feed struct {
	provider string
	url      string
	log      zerolog.Logger

	mu      sync.RWMutex
	symbols []string
	marks   map[string]float64 // contract key -> last streamed premium
	drift   map[string]int     // contract key -> stub quote count
}

// NewFeed constructs a feed backed by the requested provider.
func NewFeed(provider string, symbols []string, url string, log zerolog.Logger) *Feed {
	if provider == "" {
		provider = ProviderStub
	}
	f := &Feed{
		provider: strings.ToLower(provider),
		url:      url,
		log:      log.With().Str("component", "feed").Logger(),
		marks:    make(map[string]float64),
		drift:    make(map[string]int),
	}
	f.SetSymbols(symbols)
	return f
}

// SetSymbols replaces the tracked symbol list (deduplicated, sorted).
func (f *Feed) SetSymbols(symbols []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	unique := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		unique[sym] = struct{}{}
	}
	f.symbols = f.symbols[:0]
	for sym := range unique {
		f.symbols = append(f.symbols, sym)
	}
	sort.Strings(f.symbols)
}

// Symbols returns the tracked watchlist.
func (f *Feed) Symbols() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, len(f.symbols))
	copy(out, f.symbols)
	return out
}

// Snapshot returns the daily bar history and the current option chain for a
// symbol. Both providers synthesize snapshots deterministically from the
// symbol name so repeated scans see consistent data.
func (f *Feed) Snapshot(_ context.Context, symbol string) (market.PriceSeries, market.Chain, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return market.PriceSeries{}, market.Chain{}, fmt.Errorf("snapshot requires a symbol")
	}

	now := time.Now().UTC().Truncate(24 * time.Hour)
	series, err := synthSeries(symbol, now)
	if err != nil {
		return market.PriceSeries{}, market.Chain{}, err
	}
	chain := synthChain(symbol, series.Last().Close, now)
	return series, chain, nil
}

// OptionPrice quotes the current premium for a contract. The websocket
// provider reads the streamed mark table; the stub synthesizes a premium
// that drifts upward a little on each call so paper positions resolve.
func (f *Feed) OptionPrice(_ context.Context, c market.OptionContract) (float64, error) {
	key := c.Key()

	if f.provider == ProviderWebsocket {
		f.mu.RLock()
		px, ok := f.marks[key]
		f.mu.RUnlock()
		if !ok {
			return 0, fmt.Errorf("no streamed mark for %s", key)
		}
		return px, nil
	}

	f.mu.Lock()
	n := f.drift[key]
	f.drift[key] = n + 1
	f.mu.Unlock()

	base := c.Mid()
	if base <= 0 {
		base = stubPremium(c.Strike)
	}
	return round2(base * (1 + 0.02*float64(n))), nil
}

// applyMark records a streamed premium for a contract key.
func (f *Feed) applyMark(key string, price float64) {
	if key == "" || price <= 0 {
		return
	}
	f.mu.Lock()
	f.marks[key] = price
	f.mu.Unlock()
}

// synthSeries builds a deterministic daily bar history seeded by the symbol
// name: a base level from the hash plus a slow trend and gentle oscillation.
func synthSeries(symbol string, end time.Time) (market.PriceSeries, error) {
	seed := symbolSeed(symbol)
	base := 40 + float64(seed%240)
	slope := base * (float64(seed%17) - 8) / 2000 // roughly -0.4% .. +0.4% per bar

	start := end.AddDate(0, 0, -stubHistoryBars)
	bars := make([]market.Bar, 0, stubHistoryBars)
	for i := 0; i < stubHistoryBars; i++ {
		wave := math.Sin(float64(i)/6+float64(seed%7)) * base * 0.01
		close := base + slope*float64(i) + wave
		if close < 1 {
			close = 1
		}
		volume := 800_000 + float64((seed+uint64(i*31))%400_000)
		bars = append(bars, market.Bar{
			Time:   start.AddDate(0, 0, i),
			Open:   close * 0.995,
			High:   close * 1.01,
			Low:    close * 0.99,
			Close:  round2(close),
			Volume: volume,
		})
	}
	return market.NewPriceSeries(symbol, bars)
}

// synthChain builds a chain with strikes from 90% to 110% of spot in 2.5%
// steps, one monthly expiry out, both rights quoted.
func synthChain(symbol string, spot float64, asOf time.Time) market.Chain {
	expiry := asOf.AddDate(0, 0, stubChainDTE)
	var contracts []market.OptionContract
	for pct := -0.10; pct <= 0.101; pct += 0.025 {
		strike := roundStrike(spot * (1 + pct))
		for _, right := range []market.Right{market.Call, market.Put} {
			premium := stubPremium(spot * 0.02)
			if premium < 0.20 {
				premium = 0.20
			}
			contracts = append(contracts, market.OptionContract{
				Symbol:       symbol,
				Expiry:       expiry,
				Strike:       strike,
				Right:        right,
				Bid:          round2(premium * 0.96),
				Ask:          round2(premium * 1.04),
				ImpliedVol:   0.35,
				OpenInterest: 2500,
			})
		}
	}
	return market.Chain{Symbol: symbol, UnderlyingPrice: spot, AsOf: asOf, Contracts: contracts}
}

func symbolSeed(symbol string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	return h.Sum64()
}

func stubPremium(v float64) float64 {
	return round2(math.Abs(v))
}

func roundStrike(v float64) float64 {
	return math.Round(v*2) / 2
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
