// Package engine drives the scan/mark loop: it pulls market snapshots,
// scores and ranks each symbol, synthesizes trade ideas, and keeps the
// paper ledger marked to market.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"optionscout/internal/ledger"
	"optionscout/internal/market"
	"optionscout/internal/metrics"
	"optionscout/internal/risk"
	"optionscout/internal/scoring"
	"optionscout/internal/synth"
)

// SnapshotProvider supplies the price history and option chain for a symbol.
type SnapshotProvider interface {
	Snapshot(ctx context.Context, symbol string) (market.PriceSeries, market.Chain, error)
}

// MarkSource quotes current premiums for tracked contracts.
type MarkSource interface {
	OptionPrice(ctx context.Context, c market.OptionContract) (float64, error)
}

// Engine owns the scan and mark cycles. All mutable state is behind mu.
type Engine struct {
	scorer *scoring.Scorer
	ranker *scoring.Ranker
	synth  *synth.Synthesizer
	ledger *ledger.Ledger
	limits risk.Limits

	provider SnapshotProvider
	marks    MarkSource
	log      zerolog.Logger

	mu      sync.RWMutex
	signals map[string]scoring.CompositeSignal
	ideas   []synth.TradeIdea
}

func New(scorer *scoring.Scorer, ranker *scoring.Ranker, syn *synth.Synthesizer, led *ledger.Ledger, limits risk.Limits, provider SnapshotProvider, marks MarkSource, log zerolog.Logger) *Engine {
	return &Engine{
		scorer:   scorer,
		ranker:   ranker,
		synth:    syn,
		ledger:   led,
		limits:   limits,
		provider: provider,
		marks:    marks,
		log:      log.With().Str("component", "engine").Logger(),
		signals:  make(map[string]scoring.CompositeSignal),
	}
}

// ScanSymbol runs one symbol through the full pipeline: score, rank,
// synthesize, and (risk permitting) open a paper position. Domain outcomes
// that produce no trade (neutral bias, no eligible contract, an already
// open position) are logged, not returned as errors.
func (e *Engine) ScanSymbol(ctx context.Context, symbol string, asOf time.Time) error {
	series, chain, err := e.provider.Snapshot(ctx, symbol)
	if err != nil {
		metrics.ScanErrors.WithLabelValues(symbol).Inc()
		return err
	}

	scores, err := e.scorer.Score(series)
	if err != nil {
		if errors.Is(err, scoring.ErrInsufficientData) {
			e.log.Debug().Str("symbol", symbol).Msg("not enough history to score")
			return nil
		}
		metrics.ScanErrors.WithLabelValues(symbol).Inc()
		return err
	}

	sig, err := e.ranker.Rank(symbol, scores, asOf)
	if err != nil {
		metrics.ScanErrors.WithLabelValues(symbol).Inc()
		return err
	}
	metrics.SignalsTotal.WithLabelValues(symbol, string(sig.Bias)).Inc()

	e.mu.Lock()
	e.signals[symbol] = sig
	e.mu.Unlock()

	e.log.Info().
		Str("symbol", symbol).
		Str("bias", string(sig.Bias)).
		Float64("conviction", sig.Conviction).
		Msg("signal")

	idea, err := e.synth.Synthesize(sig, chain)
	if err != nil {
		if errors.Is(err, synth.ErrNoEligibleContract) {
			e.log.Info().Str("symbol", symbol).Msg("no eligible contract on chain")
			return nil
		}
		metrics.ScanErrors.WithLabelValues(symbol).Inc()
		return err
	}
	if idea == nil {
		return nil
	}
	metrics.IdeasTotal.WithLabelValues(symbol).Inc()

	premium := idea.EntryPrice * ledger.Multiplier * float64(idea.Contracts)
	if !e.limits.AllowPremium(premium) {
		e.log.Info().Str("symbol", symbol).Float64("premium", premium).Msg("idea exceeds premium limit")
		return nil
	}
	if !e.limits.AllowOpen(len(e.ledger.OpenPositions())) {
		e.log.Info().Str("symbol", symbol).Msg("open position limit reached")
		return nil
	}

	pos, err := e.ledger.Open(idea, idea.EntryPrice, asOf)
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateOpenPosition) {
			e.log.Info().Str("symbol", symbol).Msg("already holding this exposure")
			return nil
		}
		return err
	}

	e.mu.Lock()
	e.ideas = append(e.ideas, *idea)
	e.mu.Unlock()

	e.log.Info().
		Str("id", pos.ID).
		Str("contract", idea.Contract.Describe()).
		Float64("entry", pos.EntryFillPrice).
		Int("contracts", pos.Contracts).
		Msg("opened paper position")
	return nil
}

// Scan runs ScanSymbol for every watchlist entry, continuing past
// per-symbol failures.
func (e *Engine) Scan(ctx context.Context, symbols []string, asOf time.Time) {
	for _, sym := range symbols {
		if ctx.Err() != nil {
			return
		}
		if err := e.ScanSymbol(ctx, sym, asOf); err != nil {
			e.log.Error().Err(err).Str("symbol", sym).Msg("scan failed")
		}
	}
}

// Tick marks every open position against the mark source and then sweeps
// expiries. Quote failures skip the position until the next tick; stale or
// raced marks are ignored.
func (e *Engine) Tick(ctx context.Context, asOf time.Time) {
	for _, pos := range e.ledger.OpenPositions() {
		if ctx.Err() != nil {
			return
		}
		price, err := e.marks.OptionPrice(ctx, pos.Contract)
		if err != nil {
			e.log.Warn().Err(err).Str("id", pos.ID).Msg("no quote for mark")
			continue
		}
		if _, err := e.ledger.Mark(pos.ID, price, asOf); err != nil {
			if errors.Is(err, ledger.ErrOutOfOrderMark) || errors.Is(err, ledger.ErrPositionClosed) {
				continue
			}
			e.log.Error().Err(err).Str("id", pos.ID).Msg("mark failed")
		}
	}

	for _, p := range e.ledger.ExpireSweep(asOf) {
		e.log.Info().Str("id", p.ID).Float64("pnl", p.RealizedPnL).Msg("position expired")
	}
}

// Signals returns the latest composite signal per symbol.
func (e *Engine) Signals() []scoring.CompositeSignal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]scoring.CompositeSignal, 0, len(e.signals))
	for _, s := range e.signals {
		out = append(out, s)
	}
	return out
}

// Ideas returns every trade idea synthesized this session, oldest first.
func (e *Engine) Ideas() []synth.TradeIdea {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]synth.TradeIdea, len(e.ideas))
	copy(out, e.ideas)
	return out
}

// Ledger exposes the paper ledger for read-side consumers.
func (e *Engine) Ledger() *ledger.Ledger {
	return e.ledger
}
