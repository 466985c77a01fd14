package scoring

import (
	"fmt"
	"math"
	"time"
)

// Bias is the directional lean derived from combined factor scores.
type Bias string

const (
	BiasBullish Bias = "bullish"
	BiasBearish Bias = "bearish"
	BiasNeutral Bias = "neutral"
)

// CompositeSignal is the ranked output for one symbol.
type CompositeSignal struct {
	Symbol      string       `json:"symbol"`
	Bias        Bias         `json:"bias"`
	Conviction  float64      `json:"conviction"`
	Scores      FactorScores `json:"factor_scores"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// Weights is the fixed directional weight vector. Volatility carries no
// direction; it only dampens conviction.
type Weights struct {
	Trend    float64 `yaml:"trend"`
	Momentum float64 `yaml:"momentum"`
	Volume   float64 `yaml:"volume"`
}

// DefaultWeights leans on trend, with momentum confirming and volume as a
// minor tiebreaker.
func DefaultWeights() Weights {
	return Weights{Trend: 0.5, Momentum: 0.35, Volume: 0.15}
}

// Ranker combines factor scores into a CompositeSignal.
type Ranker struct {
	weights    Weights
	deadband   float64
	volPenalty float64
}

// NewRanker builds a ranker. Zero-valued knobs fall back to defaults:
// deadband 0.15, volatility penalty 0.5.
func NewRanker(weights Weights, deadband, volPenalty float64) *Ranker {
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	if deadband <= 0 {
		deadband = 0.15
	}
	if volPenalty <= 0 {
		volPenalty = 0.5
	}
	return &Ranker{weights: weights, deadband: deadband, volPenalty: volPenalty}
}

// Rank validates the scores and maps the weighted sum onto a bias and a
// conviction in [0, 100]. High volatility shrinks conviction but never flips
// direction.
func (r *Ranker) Rank(symbol string, scores FactorScores, asOf time.Time) (CompositeSignal, error) {
	if err := scores.Validate(); err != nil {
		return CompositeSignal{}, fmt.Errorf("rank %s: %w", symbol, err)
	}

	sum := r.weights.Trend*scores.Trend + r.weights.Momentum*scores.Momentum + r.weights.Volume*scores.Volume

	bias := BiasNeutral
	switch {
	case sum > r.deadband:
		bias = BiasBullish
	case sum < -r.deadband:
		bias = BiasBearish
	}

	conviction := 100 * clamp(math.Abs(sum)*(1-r.volPenalty*scores.Volatility), 0, 1)

	return CompositeSignal{
		Symbol:      symbol,
		Bias:        bias,
		Conviction:  conviction,
		Scores:      scores,
		GeneratedAt: asOf,
	}, nil
}
