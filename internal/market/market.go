// Package market defines the data shapes shared by scoring, synthesis, and the ledger.
package market

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrEmptySeries     = errors.New("price series has no bars")
	ErrUnorderedSeries = errors.New("price series bars must be chronological without duplicate timestamps")
)

// Bar is a single OHLCV candlestick.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceSeries is an immutable, chronologically ordered bar sequence for one symbol.
type PriceSeries struct {
	symbol string
	bars   []Bar
}

// NewPriceSeries validates shape and copies the bars so later mutation of the
// input slice cannot leak into an analysis pass.
func NewPriceSeries(symbol string, bars []Bar) (PriceSeries, error) {
	if len(bars) == 0 {
		return PriceSeries{}, ErrEmptySeries
	}
	for i := 1; i < len(bars); i++ {
		if !bars[i].Time.After(bars[i-1].Time) {
			return PriceSeries{}, fmt.Errorf("%w: bar %d at %s follows %s", ErrUnorderedSeries, i, bars[i].Time, bars[i-1].Time)
		}
	}
	copied := make([]Bar, len(bars))
	copy(copied, bars)
	return PriceSeries{symbol: symbol, bars: copied}, nil
}

// Symbol returns the underlying ticker the series belongs to.
func (s PriceSeries) Symbol() string { return s.symbol }

// Len returns the number of bars.
func (s PriceSeries) Len() int { return len(s.bars) }

// Bar returns the i-th bar, oldest first.
func (s PriceSeries) Bar(i int) Bar { return s.bars[i] }

// Last returns the most recent bar.
func (s PriceSeries) Last() Bar { return s.bars[len(s.bars)-1] }

// Closes extracts closing prices, oldest first.
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.bars))
	for i, b := range s.bars {
		closes[i] = b.Close
	}
	return closes
}

// Volumes extracts bar volumes, oldest first.
func (s PriceSeries) Volumes() []float64 {
	vols := make([]float64, len(s.bars))
	for i, b := range s.bars {
		vols[i] = b.Volume
	}
	return vols
}

// Right enumerates option contract types.
type Right string

const (
	Call Right = "call"
	Put  Right = "put"
)

// OptionContract is one row of an options-chain snapshot. Read-only in the core.
type OptionContract struct {
	Symbol       string    `json:"symbol"`
	Expiry       time.Time `json:"expiry"`
	Strike       float64   `json:"strike"`
	Right        Right     `json:"right"`
	Bid          float64   `json:"bid"`
	Ask          float64   `json:"ask"`
	ImpliedVol   float64   `json:"implied_vol"`
	OpenInterest int64     `json:"open_interest"`
}

// Mid returns the bid/ask midpoint, falling back to whichever side is quoted.
func (c OptionContract) Mid() float64 {
	switch {
	case c.Bid > 0 && c.Ask > 0:
		return (c.Bid + c.Ask) / 2
	case c.Ask > 0:
		return c.Ask
	default:
		return c.Bid
	}
}

// SpreadPct returns the relative bid/ask spread, 1 when the ask is missing.
func (c OptionContract) SpreadPct() float64 {
	if c.Ask <= 0 {
		return 1
	}
	return (c.Ask - c.Bid) / c.Ask
}

// DTE returns whole days until expiry as of the given time.
func (c OptionContract) DTE(asOf time.Time) int {
	return int(c.Expiry.Sub(asOf).Hours() / 24)
}

// Key identifies a contract across quote lookups, e.g. "NVDA|20260220|call|180.00".
func (c OptionContract) Key() string {
	return fmt.Sprintf("%s|%s|%s|%.2f", c.Symbol, c.Expiry.Format("20060102"), c.Right, c.Strike)
}

// Describe renders the human-readable contract name used in reports,
// e.g. "NVDA 02/20 $180 Call".
func (c OptionContract) Describe() string {
	right := "Call"
	if c.Right == Put {
		right = "Put"
	}
	return fmt.Sprintf("%s %s $%.0f %s", c.Symbol, c.Expiry.Format("01/02"), c.Strike, right)
}

// Chain is an options-chain snapshot for one underlying.
type Chain struct {
	Symbol          string           `json:"symbol"`
	UnderlyingPrice float64          `json:"underlying_price"`
	AsOf            time.Time        `json:"as_of"`
	Contracts       []OptionContract `json:"contracts"`
}
