package market

import (
	"errors"
	"testing"
	"time"
)

func day(n int) time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestNewPriceSeriesRejectsEmpty(t *testing.T) {
	if _, err := NewPriceSeries("NVDA", nil); !errors.Is(err, ErrEmptySeries) {
		t.Fatalf("expected ErrEmptySeries, got %v", err)
	}
}

func TestNewPriceSeriesRejectsUnordered(t *testing.T) {
	bars := []Bar{
		{Time: day(1), Close: 10},
		{Time: day(3), Close: 11},
		{Time: day(2), Close: 12},
	}
	if _, err := NewPriceSeries("NVDA", bars); !errors.Is(err, ErrUnorderedSeries) {
		t.Fatalf("expected ErrUnorderedSeries, got %v", err)
	}
}

func TestNewPriceSeriesRejectsDuplicateTimestamps(t *testing.T) {
	bars := []Bar{
		{Time: day(1), Close: 10},
		{Time: day(1), Close: 11},
	}
	if _, err := NewPriceSeries("NVDA", bars); !errors.Is(err, ErrUnorderedSeries) {
		t.Fatalf("expected ErrUnorderedSeries, got %v", err)
	}
}

func TestPriceSeriesCopiesInput(t *testing.T) {
	bars := []Bar{{Time: day(1), Close: 10}, {Time: day(2), Close: 11}}
	series, err := NewPriceSeries("NVDA", bars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bars[1].Close = 999
	if series.Last().Close != 11 {
		t.Fatalf("series should not observe caller mutation, got %.2f", series.Last().Close)
	}
}

func TestOptionContractMid(t *testing.T) {
	c := OptionContract{Bid: 2.40, Ask: 2.60}
	if got := c.Mid(); got != 2.50 {
		t.Fatalf("expected mid 2.50, got %.2f", got)
	}
	oneSided := OptionContract{Ask: 1.00}
	if got := oneSided.Mid(); got != 1.00 {
		t.Fatalf("expected one-sided mid 1.00, got %.2f", got)
	}
}

func TestOptionContractDTE(t *testing.T) {
	asOf := day(0)
	c := OptionContract{Expiry: day(30)}
	if got := c.DTE(asOf); got != 30 {
		t.Fatalf("expected 30 DTE, got %d", got)
	}
}

func TestOptionContractDescribe(t *testing.T) {
	c := OptionContract{Symbol: "NVDA", Expiry: time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC), Strike: 180, Right: Call}
	if got := c.Describe(); got != "NVDA 02/20 $180 Call" {
		t.Fatalf("unexpected description: %s", got)
	}
}
