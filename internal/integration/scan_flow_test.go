package integration

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"optionscout/internal/engine"
	"optionscout/internal/ledger"
	"optionscout/internal/market"
	"optionscout/internal/recorder"
	"optionscout/internal/report"
	"optionscout/internal/risk"
	"optionscout/internal/scoring"
	"optionscout/internal/synth"
)

var flowAsOf = time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC)

// flowFeed serves one rallying symbol with a liquid chain and a settable quote.
type flowFeed struct {
	series market.PriceSeries
	chain  market.Chain
	quote  float64
}

func (f *flowFeed) Snapshot(context.Context, string) (market.PriceSeries, market.Chain, error) {
	return f.series, f.chain, nil
}

func (f *flowFeed) OptionPrice(context.Context, market.OptionContract) (float64, error) {
	return f.quote, nil
}

func newFlowFeed(t *testing.T) *flowFeed {
	t.Helper()
	start := flowAsOf.AddDate(0, 0, -60)
	bars := make([]market.Bar, 0, 60)
	for i := 0; i < 60; i++ {
		close := 150 + 1.1*float64(i)
		if i%2 == 0 {
			close += 0.4
		}
		bars = append(bars, market.Bar{
			Time: start.AddDate(0, 0, i), Open: close - 0.5, High: close + 1, Low: close - 1,
			Close: close, Volume: 2_000_000,
		})
	}
	series, err := market.NewPriceSeries("NVDA", bars)
	if err != nil {
		t.Fatalf("build series: %v", err)
	}

	spot := series.Last().Close
	expiry := flowAsOf.AddDate(0, 0, 30)
	var contracts []market.OptionContract
	for _, strike := range []float64{spot * 0.95, spot, spot * 1.05} {
		contracts = append(contracts,
			market.OptionContract{Symbol: "NVDA", Expiry: expiry, Strike: strike, Right: market.Call,
				Bid: 2.40, Ask: 2.60, ImpliedVol: 0.40, OpenInterest: 5000},
			market.OptionContract{Symbol: "NVDA", Expiry: expiry, Strike: strike, Right: market.Put,
				Bid: 2.10, Ask: 2.30, ImpliedVol: 0.42, OpenInterest: 4000},
		)
	}
	return &flowFeed{
		series: series,
		chain:  market.Chain{Symbol: "NVDA", UnderlyingPrice: spot, AsOf: flowAsOf, Contracts: contracts},
	}
}

// The full loop: scan opens a paper position, a tick past the target closes
// it, both recorders see the close, and the daily report reflects the win.
func TestScanTickReportFlow(t *testing.T) {
	dir := t.TempDir()
	jsonlPath := filepath.Join(dir, "closes.jsonl")

	jsonl, err := ledger.NewJSONLRecorder(jsonlPath)
	if err != nil {
		t.Fatalf("jsonl recorder: %v", err)
	}
	defer jsonl.Close()

	store, err := recorder.NewStore(filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatalf("sqlite store: %v", err)
	}
	defer store.Close()

	led := ledger.NewLedger(ledger.MultiRecorder{jsonl, store})
	feed := newFlowFeed(t)
	e := engine.New(
		scoring.NewScorer(scoring.Config{}),
		scoring.NewRanker(scoring.DefaultWeights(), 0.15, 0.5),
		synth.NewSynthesizer(synth.Config{}),
		led,
		risk.Limits{MaxOpenPositions: 5},
		feed,
		feed,
		zerolog.Nop(),
	)

	e.Scan(context.Background(), []string{"NVDA"}, flowAsOf)

	open := led.OpenPositions()
	if len(open) != 1 {
		t.Fatalf("expected 1 open position after scan, got %d", len(open))
	}
	pos := open[0]

	feed.quote = pos.TargetPrice + 1
	e.Tick(context.Background(), flowAsOf.Add(2*time.Hour))

	closed := led.ClosedPositions()
	if len(closed) != 1 {
		t.Fatalf("expected 1 closed position after tick, got %d", len(closed))
	}
	if closed[0].ExitReason != ledger.ExitTargetHit {
		t.Fatalf("exit reason = %s, want %s", closed[0].ExitReason, ledger.ExitTargetHit)
	}
	if closed[0].RealizedPnL <= 0 {
		t.Fatalf("target exit should realize a gain, got %.2f", closed[0].RealizedPnL)
	}

	// Both recorders saw the close.
	f, err := os.Open(jsonlPath)
	if err != nil {
		t.Fatalf("open jsonl: %v", err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	lines := 0
	for scanner.Scan() {
		if !strings.Contains(scanner.Text(), pos.ID) {
			t.Fatalf("jsonl line missing position id: %s", scanner.Text())
		}
		lines++
	}
	if lines != 1 {
		t.Fatalf("expected 1 jsonl close record, got %d", lines)
	}

	n, err := store.ClosedTradeCount()
	if err != nil {
		t.Fatalf("ClosedTradeCount: %v", err)
	}
	if n != 1 {
		t.Fatalf("sqlite close count = %d, want 1", n)
	}

	sum := report.Build(led, flowAsOf)
	if sum.Wins != 1 || sum.Losses != 0 {
		t.Fatalf("report wins/losses = %d/%d, want 1/0", sum.Wins, sum.Losses)
	}
	if sum.DayRealized != closed[0].RealizedPnL {
		t.Fatalf("day realized = %.2f, want %.2f", sum.DayRealized, closed[0].RealizedPnL)
	}
	if err := store.SaveDailySummary(sum); err != nil {
		t.Fatalf("SaveDailySummary: %v", err)
	}
}
