// Package synth converts a composite signal plus an options chain into a
// concrete trade idea with entry, target, and stop levels.
package synth

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"optionscout/internal/market"
	"optionscout/internal/scoring"
)

// ErrNoEligibleContract means the chain had no contract passing the
// expiry/liquidity filters. Distinct from a nil idea, which means the signal
// itself was not worth trading.
var ErrNoEligibleContract = errors.New("no eligible contract in chain")

// Direction is the trade's sign: +1 long the underlying move (calls), -1
// short (puts).
type Direction int

const (
	Bullish Direction = 1
	Bearish Direction = -1
)

// TradeIdea is a fully specified candidate position. Entry, target, and stop
// are option-premium levels; the underlying levels are kept for reporting.
type TradeIdea struct {
	ID        string                `json:"id"`
	Symbol    string                `json:"symbol"`
	Contract  market.OptionContract `json:"contract"`
	Direction Direction             `json:"direction"`

	EntryPrice  float64 `json:"entry_price"`
	TargetPrice float64 `json:"target_price"`
	StopPrice   float64 `json:"stop_price"`

	UnderlyingPrice  float64 `json:"underlying_price"`
	UnderlyingTarget float64 `json:"underlying_target"`
	UnderlyingStop   float64 `json:"underlying_stop"`

	Conviction float64   `json:"conviction"`
	Contracts  int       `json:"contracts"`
	CreatedAt  time.Time `json:"created_at"`
}

// Config holds the selection policy knobs. The conviction-to-moneyness band is
// tunable policy, not a law.
type Config struct {
	MinDTE          int     `yaml:"min_dte"`
	MaxDTE          int     `yaml:"max_dte"`
	MinOpenInterest int64   `yaml:"min_open_interest"`
	MinConviction   float64 `yaml:"min_conviction"`

	// MaxMoneyness is the furthest out-of-the-money strike offset (as a
	// fraction of spot) used at zero conviction; conviction 100 selects ATM.
	MaxMoneyness float64 `yaml:"max_moneyness"`

	// TargetMoveFrac/StopMoveFrac scale the expected underlying move into
	// target and stop distances.
	TargetMoveFrac float64 `yaml:"target_move_frac"`
	StopMoveFrac   float64 `yaml:"stop_move_frac"`

	// CaptureRatio approximates how much of an underlying move shows up in
	// the option premium.
	CaptureRatio float64 `yaml:"capture_ratio"`

	// DefaultVol backstops contracts quoted without an implied volatility.
	DefaultVol float64 `yaml:"default_vol"`

	// RiskBudget sizes the contract count: how many contracts fit the budget
	// at full premium loss.
	RiskBudget float64 `yaml:"risk_budget"`
}

// DefaultConfig: 14-45 DTE swing window, 100 OI floor, trade only above
// conviction 20, up to 8% OTM at zero conviction, 1.0x/0.5x expected-move
// target/stop, 70% premium capture, $500 risk budget.
func DefaultConfig() Config {
	return Config{
		MinDTE:          14,
		MaxDTE:          45,
		MinOpenInterest: 100,
		MinConviction:   20,
		MaxMoneyness:    0.08,
		TargetMoveFrac:  1.0,
		StopMoveFrac:    0.5,
		CaptureRatio:    0.7,
		DefaultVol:      0.30,
		RiskBudget:      500,
	}
}

// Synthesizer selects contracts. Stateless and safe to share across symbols.
type Synthesizer struct {
	cfg Config
}

// NewSynthesizer builds a synthesizer, defaulting any zero knob.
func NewSynthesizer(cfg Config) *Synthesizer {
	def := DefaultConfig()
	if cfg.MinDTE <= 0 {
		cfg.MinDTE = def.MinDTE
	}
	if cfg.MaxDTE <= 0 {
		cfg.MaxDTE = def.MaxDTE
	}
	if cfg.MinOpenInterest <= 0 {
		cfg.MinOpenInterest = def.MinOpenInterest
	}
	if cfg.MinConviction <= 0 {
		cfg.MinConviction = def.MinConviction
	}
	if cfg.MaxMoneyness <= 0 {
		cfg.MaxMoneyness = def.MaxMoneyness
	}
	if cfg.TargetMoveFrac <= 0 {
		cfg.TargetMoveFrac = def.TargetMoveFrac
	}
	if cfg.StopMoveFrac <= 0 {
		cfg.StopMoveFrac = def.StopMoveFrac
	}
	if cfg.CaptureRatio <= 0 {
		cfg.CaptureRatio = def.CaptureRatio
	}
	if cfg.DefaultVol <= 0 {
		cfg.DefaultVol = def.DefaultVol
	}
	if cfg.RiskBudget <= 0 {
		cfg.RiskBudget = def.RiskBudget
	}
	return &Synthesizer{cfg: cfg}
}

// Synthesize picks the best contract for the signal. Returns (nil, nil) when
// the bias is neutral or conviction is below the configured minimum, and
// ErrNoEligibleContract when the chain cannot serve the signal.
func (s *Synthesizer) Synthesize(sig scoring.CompositeSignal, chain market.Chain) (*TradeIdea, error) {
	if sig.Bias == scoring.BiasNeutral || sig.Conviction < s.cfg.MinConviction {
		return nil, nil
	}
	if chain.UnderlyingPrice <= 0 {
		return nil, fmt.Errorf("chain for %s has no underlying price", chain.Symbol)
	}

	dir := Bullish
	right := market.Call
	if sig.Bias == scoring.BiasBearish {
		dir = Bearish
		right = market.Put
	}

	best, ok := s.selectContract(chain, right, sig.Conviction)
	if !ok {
		return nil, fmt.Errorf("%s %s %d-%d DTE: %w", chain.Symbol, right, s.cfg.MinDTE, s.cfg.MaxDTE, ErrNoEligibleContract)
	}

	entry := roundCents(best.Mid())

	// Expected underlying move over the contract's remaining life, taken
	// from the chain's own volatility mark.
	iv := best.ImpliedVol
	if iv <= 0 {
		iv = s.cfg.DefaultVol
	}
	dte := best.DTE(chain.AsOf)
	expectedMove := chain.UnderlyingPrice * iv * math.Sqrt(float64(dte)/365)

	spot := chain.UnderlyingPrice
	d := float64(dir)
	underlyingTarget := roundCents(spot + d*s.cfg.TargetMoveFrac*expectedMove)
	underlyingStop := roundCents(spot - d*s.cfg.StopMoveFrac*expectedMove)

	// Premium levels follow the underlying-implied move: a put's target sits
	// below its entry because the marked price tracks the underlying level.
	target := roundCents(entry + d*s.cfg.CaptureRatio*s.cfg.TargetMoveFrac*expectedMove)
	stop := roundCents(entry - d*s.cfg.CaptureRatio*s.cfg.StopMoveFrac*expectedMove)
	if dir == Bullish && stop <= 0 {
		stop = roundCents(entry * 0.1)
	}
	if dir == Bearish && target <= 0 {
		target = roundCents(entry * 0.1)
	}

	contracts := 1
	if perContract := entry * 100; perContract > 0 {
		if n := int(s.cfg.RiskBudget / perContract); n > 1 {
			contracts = n
		}
	}

	return &TradeIdea{
		ID:               uuid.NewString(),
		Symbol:           chain.Symbol,
		Contract:         best,
		Direction:        dir,
		EntryPrice:       entry,
		TargetPrice:      target,
		StopPrice:        stop,
		UnderlyingPrice:  spot,
		UnderlyingTarget: underlyingTarget,
		UnderlyingStop:   underlyingStop,
		Conviction:       sig.Conviction,
		Contracts:        contracts,
		CreatedAt:        chain.AsOf,
	}, nil
}

// selectContract filters by right, expiry window, and liquidity, then picks
// the strike nearest the conviction-scaled moneyness band. Ties go to higher
// open interest, then tighter spread.
func (s *Synthesizer) selectContract(chain market.Chain, right market.Right, conviction float64) (market.OptionContract, bool) {
	// High conviction pulls the strike toward the money.
	offset := s.cfg.MaxMoneyness * (1 - conviction/100)
	want := chain.UnderlyingPrice * (1 + offset)
	if right == market.Put {
		want = chain.UnderlyingPrice * (1 - offset)
	}

	var best market.OptionContract
	found := false
	for _, c := range chain.Contracts {
		if c.Right != right {
			continue
		}
		dte := c.DTE(chain.AsOf)
		if dte < s.cfg.MinDTE || dte > s.cfg.MaxDTE {
			continue
		}
		if c.OpenInterest < s.cfg.MinOpenInterest {
			continue
		}
		if c.Bid <= 0 || c.Ask < c.Bid {
			continue
		}
		if !found || s.better(c, best, want) {
			best = c
			found = true
		}
	}
	return best, found
}

func (s *Synthesizer) better(a, b market.OptionContract, want float64) bool {
	da := math.Abs(a.Strike - want)
	db := math.Abs(b.Strike - want)
	if da != db {
		return da < db
	}
	if a.OpenInterest != b.OpenInterest {
		return a.OpenInterest > b.OpenInterest
	}
	return a.SpreadPct() < b.SpreadPct()
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
