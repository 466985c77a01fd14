// Package scoring turns a price series into normalized factor scores and a
// composite directional signal.
package scoring

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"optionscout/internal/market"
)

var (
	ErrInsufficientData   = errors.New("insufficient bars for factor lookbacks")
	ErrInvalidFactorScore = errors.New("factor score outside declared bounds")
)

// FactorScores holds the normalized sub-scores. Trend, momentum, and volume
// carry direction in [-1, 1]; volatility is a regime intensity in [0, 1].
type FactorScores struct {
	Trend      float64 `json:"trend"`
	Momentum   float64 `json:"momentum"`
	Volume     float64 `json:"volume"`
	Volatility float64 `json:"volatility"`
}

// Validate checks each field against its declared bounds.
func (f FactorScores) Validate() error {
	for _, v := range []float64{f.Trend, f.Momentum, f.Volume} {
		if v < -1 || v > 1 || math.IsNaN(v) {
			return fmt.Errorf("%w: directional score %.4f", ErrInvalidFactorScore, v)
		}
	}
	if f.Volatility < 0 || f.Volatility > 1 || math.IsNaN(f.Volatility) {
		return fmt.Errorf("%w: volatility %.4f", ErrInvalidFactorScore, f.Volatility)
	}
	return nil
}

// Config groups the lookback windows used by the sub-factors.
type Config struct {
	TrendShortWindow  int `yaml:"trend_short_window"`
	TrendLongWindow   int `yaml:"trend_long_window"`
	MomentumWindow    int `yaml:"momentum_window"`
	VolumeShortWindow int `yaml:"volume_short_window"`
	VolumeLongWindow  int `yaml:"volume_long_window"`
	VolWindow         int `yaml:"vol_window"`
}

// DefaultConfig mirrors the usual swing-trade horizons: 20/50 trend MAs,
// 10-bar momentum, 5/20 volume baseline, 10-bar realized volatility.
func DefaultConfig() Config {
	return Config{
		TrendShortWindow:  20,
		TrendLongWindow:   50,
		MomentumWindow:    10,
		VolumeShortWindow: 5,
		VolumeLongWindow:  20,
		VolWindow:         10,
	}
}

// MinBars is the longest lookback any sub-factor needs. Series shorter than
// this fail with ErrInsufficientData. The extra VolWindow bars give the
// volatility percentile a history to rank against.
func (c Config) MinBars() int {
	min := c.TrendLongWindow
	for _, w := range []int{c.MomentumWindow + 1, c.VolumeLongWindow, 2*c.VolWindow + 1} {
		if w > min {
			min = w
		}
	}
	return min
}

// Scorer computes FactorScores. It is stateless; scoring the same series
// always yields the same result.
type Scorer struct {
	cfg Config
}

// NewScorer builds a scorer, defaulting any zero window.
func NewScorer(cfg Config) *Scorer {
	def := DefaultConfig()
	if cfg.TrendShortWindow <= 0 {
		cfg.TrendShortWindow = def.TrendShortWindow
	}
	if cfg.TrendLongWindow <= 0 {
		cfg.TrendLongWindow = def.TrendLongWindow
	}
	if cfg.MomentumWindow <= 0 {
		cfg.MomentumWindow = def.MomentumWindow
	}
	if cfg.VolumeShortWindow <= 0 {
		cfg.VolumeShortWindow = def.VolumeShortWindow
	}
	if cfg.VolumeLongWindow <= 0 {
		cfg.VolumeLongWindow = def.VolumeLongWindow
	}
	if cfg.VolWindow <= 0 {
		cfg.VolWindow = def.VolWindow
	}
	return &Scorer{cfg: cfg}
}

// Score computes all sub-factors from the series.
func (s *Scorer) Score(series market.PriceSeries) (FactorScores, error) {
	if series.Len() < s.cfg.MinBars() {
		return FactorScores{}, fmt.Errorf("%w: have %d bars, need %d", ErrInsufficientData, series.Len(), s.cfg.MinBars())
	}

	closes := series.Closes()
	volumes := series.Volumes()

	return FactorScores{
		Trend:      s.trendScore(closes),
		Momentum:   s.momentumScore(closes),
		Volume:     s.volumeScore(volumes),
		Volatility: s.volatilityScore(closes),
	}, nil
}

// trendScore saturates the relative distance between the short and long
// moving averages. A 5% divergence lands near ±0.9.
func (s *Scorer) trendScore(closes []float64) float64 {
	short := sma(closes, s.cfg.TrendShortWindow)
	long := sma(closes, s.cfg.TrendLongWindow)
	if long == 0 {
		return 0
	}
	raw := (short - long) / long
	return clamp(math.Tanh(raw*30), -1, 1)
}

// momentumScore is the rate of change over the momentum window, normalized by
// realized volatility over the same horizon so scores compare across symbols.
func (s *Scorer) momentumScore(closes []float64) float64 {
	n := len(closes)
	anchor := closes[n-1-s.cfg.MomentumWindow]
	if anchor == 0 {
		return 0
	}
	roc := (closes[n-1] - anchor) / anchor

	vol := stddev(returns(closes[n-1-s.cfg.VolWindow:]))
	expected := vol * math.Sqrt(float64(s.cfg.MomentumWindow))
	if expected == 0 {
		if roc == 0 {
			return 0
		}
		return clamp(math.Copysign(1, roc), -1, 1)
	}
	return clamp(math.Tanh(roc/expected), -1, 1)
}

// volumeScore saturates the recent/baseline average volume ratio around 1.0,
// so normal volume scores 0 and a 2x surge lands near +0.76.
func (s *Scorer) volumeScore(volumes []float64) float64 {
	n := len(volumes)
	recent := mean(volumes[n-s.cfg.VolumeShortWindow:])
	baseline := mean(volumes[n-s.cfg.VolumeLongWindow:])
	if baseline == 0 {
		return 0
	}
	return clamp(math.Tanh(recent/baseline-1), -1, 1)
}

// volatilityScore ranks the current windowed realized volatility against
// every rolling window in the series, yielding a [0, 1] percentile where 1
// means the symbol is unusually volatile versus its own history.
func (s *Scorer) volatilityScore(closes []float64) float64 {
	rets := returns(closes)
	w := s.cfg.VolWindow
	if len(rets) < w {
		return 0
	}

	history := make([]float64, 0, len(rets)-w+1)
	for i := 0; i+w <= len(rets); i++ {
		history = append(history, stddev(rets[i:i+w]))
	}
	current := history[len(history)-1]

	sorted := append([]float64(nil), history...)
	sort.Float64s(sorted)
	rank := sort.SearchFloat64s(sorted, current)
	if len(sorted) <= 1 {
		return 0
	}
	return clamp(float64(rank)/float64(len(sorted)-1), 0, 1)
}

func sma(values []float64, window int) float64 {
	return mean(values[len(values)-window:])
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

func returns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	rets := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			rets = append(rets, 0)
			continue
		}
		rets = append(rets, closes[i]/closes[i-1]-1)
	}
	return rets
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// RealizedVol returns the annualized realized volatility over the last
// `window` returns, assuming daily bars. Used to size expected moves.
func RealizedVol(series market.PriceSeries, window int) float64 {
	closes := series.Closes()
	rets := returns(closes)
	if window <= 0 || len(rets) < window {
		return 0
	}
	return stddev(rets[len(rets)-window:]) * math.Sqrt(252)
}
