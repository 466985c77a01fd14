package scoring

import (
	"errors"
	"math"
	"testing"
	"time"

	"optionscout/internal/market"
)

func seriesFromCloses(t *testing.T, closes, volumes []float64) market.PriceSeries {
	t.Helper()
	start := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]market.Bar, len(closes))
	for i, c := range closes {
		vol := 1_000_000.0
		if volumes != nil {
			vol = volumes[i]
		}
		bars[i] = market.Bar{
			Time:   start.AddDate(0, 0, i),
			Open:   c * 0.995,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: vol,
		}
	}
	series, err := market.NewPriceSeries("TEST", bars)
	if err != nil {
		t.Fatalf("building series: %v", err)
	}
	return series
}

func trendingCloses(n int, start, dailyChange float64) []float64 {
	closes := make([]float64, n)
	price := start
	for i := range closes {
		closes[i] = price
		price *= 1 + dailyChange
	}
	return closes
}

func TestScoreInsufficientData(t *testing.T) {
	scorer := NewScorer(Config{})
	series := seriesFromCloses(t, trendingCloses(10, 100, 0.01), nil)
	if _, err := scorer.Score(series); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestScoreUptrendIsPositive(t *testing.T) {
	scorer := NewScorer(Config{})
	series := seriesFromCloses(t, trendingCloses(80, 100, 0.01), nil)

	scores, err := scorer.Score(series)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scores.Trend <= 0 {
		t.Fatalf("expected positive trend score in uptrend, got %.4f", scores.Trend)
	}
	if scores.Momentum <= 0 {
		t.Fatalf("expected positive momentum score in uptrend, got %.4f", scores.Momentum)
	}
}

func TestScoreDowntrendIsNegative(t *testing.T) {
	scorer := NewScorer(Config{})
	series := seriesFromCloses(t, trendingCloses(80, 100, -0.01), nil)

	scores, err := scorer.Score(series)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scores.Trend >= 0 {
		t.Fatalf("expected negative trend score in downtrend, got %.4f", scores.Trend)
	}
	if scores.Momentum >= 0 {
		t.Fatalf("expected negative momentum score in downtrend, got %.4f", scores.Momentum)
	}
}

func TestScoreVolumeSurge(t *testing.T) {
	scorer := NewScorer(Config{})
	closes := trendingCloses(80, 100, 0.002)

	volumes := make([]float64, len(closes))
	for i := range volumes {
		volumes[i] = 1_000_000
	}
	for i := len(volumes) - 5; i < len(volumes); i++ {
		volumes[i] = 3_000_000
	}

	scores, err := scorer.Score(seriesFromCloses(t, closes, volumes))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scores.Volume <= 0.3 {
		t.Fatalf("expected strong positive volume score on 3x surge, got %.4f", scores.Volume)
	}

	flat, err := scorer.Score(seriesFromCloses(t, closes, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(flat.Volume) > 1e-9 {
		t.Fatalf("expected zero volume score at baseline volume, got %.4f", flat.Volume)
	}
}

func TestScoreBoundsHold(t *testing.T) {
	scorer := NewScorer(Config{})

	// Extreme series should still saturate inside bounds.
	cases := [][]float64{
		trendingCloses(80, 100, 0.08),
		trendingCloses(80, 100, -0.08),
		trendingCloses(80, 0.5, 0.001),
	}
	for i, closes := range cases {
		scores, err := scorer.Score(seriesFromCloses(t, closes, nil))
		if err != nil {
			t.Fatalf("case %d: unexpected error: %v", i, err)
		}
		if err := scores.Validate(); err != nil {
			t.Fatalf("case %d: scores out of bounds: %+v (%v)", i, scores, err)
		}
	}
}

func TestScoreDeterministic(t *testing.T) {
	scorer := NewScorer(Config{})
	series := seriesFromCloses(t, trendingCloses(80, 100, 0.005), nil)

	first, err := scorer.Score(series)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := scorer.Score(series)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Fatalf("scoring is not deterministic: %+v vs %+v", first, second)
	}
}

func TestRealizedVolPositive(t *testing.T) {
	closes := trendingCloses(80, 100, 0.01)
	closes[70] *= 1.05 // inject a shock
	series := seriesFromCloses(t, closes, nil)
	if vol := RealizedVol(series, 10); vol <= 0 {
		t.Fatalf("expected positive realized vol, got %.4f", vol)
	}
}
