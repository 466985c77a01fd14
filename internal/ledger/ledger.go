// Package ledger owns the set of paper positions and their open-to-closed
// lifecycle, including mark-to-market and threshold-triggered exits.
package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"optionscout/internal/market"
	"optionscout/internal/metrics"
	"optionscout/internal/synth"
)

// Multiplier is the standard equity-option contract multiplier.
const Multiplier = 100

var (
	ErrDuplicateOpenPosition = errors.New("open position already exists for symbol and direction")
	ErrPositionClosed        = errors.New("position is closed and immutable")
	ErrOutOfOrderMark        = errors.New("mark timestamp precedes last mark")
	ErrUnknownPosition       = errors.New("position not found")
)

// Status is the position lifecycle state.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// ExitReason records why a position left the book.
type ExitReason string

const (
	ExitTargetHit ExitReason = "target_hit"
	ExitStopHit   ExitReason = "stop_hit"
	ExitManual    ExitReason = "manual"
	ExitExpired   ExitReason = "expired"
)

// Position is a ledger entry. The ledger exclusively owns all positions;
// callers only ever see copies.
type Position struct {
	ID        string                `json:"id"`
	IdeaID    string                `json:"idea_id"`
	Symbol    string                `json:"symbol"`
	Contract  market.OptionContract `json:"contract"`
	Direction synth.Direction       `json:"direction"`
	Contracts int                   `json:"contracts"`

	EntryFillPrice float64 `json:"entry_fill_price"`
	TargetPrice    float64 `json:"target_price"`
	StopPrice      float64 `json:"stop_price"`

	Status   Status    `json:"status"`
	OpenedAt time.Time `json:"opened_at"`

	LastMarkPrice float64   `json:"last_mark_price"`
	LastMarkAt    time.Time `json:"last_mark_at"`
	UnrealizedPnL float64   `json:"unrealized_pnl"`

	ExitFillPrice float64    `json:"exit_fill_price,omitempty"`
	ExitReason    ExitReason `json:"exit_reason,omitempty"`
	ClosedAt      time.Time  `json:"closed_at,omitempty"`
	RealizedPnL   float64    `json:"realized_pnl,omitempty"`
}

// CloseRecorder captures closed positions for later inspection.
type CloseRecorder interface {
	RecordClose(Position)
}

// MultiRecorder fans a close out to several recorders.
type MultiRecorder []CloseRecorder

func (m MultiRecorder) RecordClose(p Position) {
	for _, r := range m {
		r.RecordClose(p)
	}
}

// Ledger serializes all mutations behind one lock; reads copy out a
// consistent snapshot.
type Ledger struct {
	mu        sync.RWMutex
	positions map[string]*Position
	order     []string // insertion order for stable snapshots
	recorder  CloseRecorder
}

// NewLedger creates an empty ledger. The recorder may be nil.
func NewLedger(recorder CloseRecorder) *Ledger {
	return &Ledger{
		positions: make(map[string]*Position),
		recorder:  recorder,
	}
}

// Open creates a position from a trade idea. At most one open position may
// exist per underlying symbol and direction.
func (l *Ledger) Open(idea *synth.TradeIdea, fillPrice float64, asOf time.Time) (Position, error) {
	if idea == nil {
		return Position{}, errors.New("nil trade idea")
	}
	if fillPrice <= 0 {
		return Position{}, errors.New("fill price must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, p := range l.positions {
		if p.Status == StatusOpen && p.Symbol == idea.Symbol && p.Direction == idea.Direction {
			return Position{}, fmt.Errorf("%s: %w", idea.Symbol, ErrDuplicateOpenPosition)
		}
	}

	contracts := idea.Contracts
	if contracts <= 0 {
		contracts = 1
	}
	pos := &Position{
		ID:             uuid.NewString(),
		IdeaID:         idea.ID,
		Symbol:         idea.Symbol,
		Contract:       idea.Contract,
		Direction:      idea.Direction,
		Contracts:      contracts,
		EntryFillPrice: fillPrice,
		TargetPrice:    idea.TargetPrice,
		StopPrice:      idea.StopPrice,
		Status:         StatusOpen,
		OpenedAt:       asOf,
		LastMarkPrice:  fillPrice,
		LastMarkAt:     asOf,
	}
	l.positions[pos.ID] = pos
	l.order = append(l.order, pos.ID)

	metrics.PositionsOpened.WithLabelValues(pos.Symbol).Inc()
	return *pos, nil
}

// markOutcome is the tagged result of evaluating a mark against the
// position's thresholds.
type markOutcome struct {
	closed    bool
	reason    ExitReason
	exitPrice float64
}

// evaluateMark is the pure transition function: given direction, levels, and
// the marked price it decides whether the position stays open or closes, and
// at which threshold price. Crossings fill at the threshold, not the raw
// mark, so gaps do not overstate slippage-free gains.
func evaluateMark(dir synth.Direction, target, stop, price float64) markOutcome {
	if dir == synth.Bullish {
		switch {
		case price >= target:
			return markOutcome{closed: true, reason: ExitTargetHit, exitPrice: target}
		case price <= stop:
			return markOutcome{closed: true, reason: ExitStopHit, exitPrice: stop}
		}
		return markOutcome{}
	}
	switch {
	case price <= target:
		return markOutcome{closed: true, reason: ExitTargetHit, exitPrice: target}
	case price >= stop:
		return markOutcome{closed: true, reason: ExitStopHit, exitPrice: stop}
	}
	return markOutcome{}
}

// Mark applies a mark-to-market update. If the price crossed the target or
// stop (inclusive) the position auto-closes atomically within the same call.
// Re-marking with identical (price, asOf) is idempotent; a regressing asOf
// fails with ErrOutOfOrderMark.
func (l *Ledger) Mark(id string, price float64, asOf time.Time) (Position, error) {
	if price <= 0 {
		return Position{}, errors.New("mark price must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.positions[id]
	if !ok {
		return Position{}, fmt.Errorf("%s: %w", id, ErrUnknownPosition)
	}
	if p.Status == StatusClosed {
		return Position{}, fmt.Errorf("%s: %w", id, ErrPositionClosed)
	}
	if asOf.Before(p.LastMarkAt) {
		return Position{}, fmt.Errorf("%s: mark at %s before %s: %w", id, asOf, p.LastMarkAt, ErrOutOfOrderMark)
	}

	p.LastMarkPrice = price
	p.LastMarkAt = asOf
	p.UnrealizedPnL = pnl(p, price)
	metrics.MarksTotal.WithLabelValues(p.Symbol).Inc()

	if out := evaluateMark(p.Direction, p.TargetPrice, p.StopPrice, price); out.closed {
		l.closeLocked(p, out.exitPrice, out.reason, asOf)
	}
	return *p, nil
}

// Close manually closes an open position at its last marked price.
func (l *Ledger) Close(id string, reason ExitReason, asOf time.Time) (Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.positions[id]
	if !ok {
		return Position{}, fmt.Errorf("%s: %w", id, ErrUnknownPosition)
	}
	if p.Status == StatusClosed {
		return Position{}, fmt.Errorf("%s: %w", id, ErrPositionClosed)
	}
	if asOf.Before(p.LastMarkAt) {
		return Position{}, fmt.Errorf("%s: close at %s before %s: %w", id, asOf, p.LastMarkAt, ErrOutOfOrderMark)
	}

	l.closeLocked(p, p.LastMarkPrice, reason, asOf)
	return *p, nil
}

// ExpireSweep closes every open position whose contract expiry is on or
// before asOf, at the last marked price. No position survives past expiry.
func (l *Ledger) ExpireSweep(asOf time.Time) []Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	var swept []Position
	for _, id := range l.order {
		p := l.positions[id]
		if p.Status != StatusOpen {
			continue
		}
		if p.Contract.Expiry.After(asOf) {
			continue
		}
		l.closeLocked(p, p.LastMarkPrice, ExitExpired, asOf)
		swept = append(swept, *p)
	}
	return swept
}

// closeLocked finalizes a position. Caller holds the write lock.
func (l *Ledger) closeLocked(p *Position, exitPrice float64, reason ExitReason, asOf time.Time) {
	p.Status = StatusClosed
	p.ExitFillPrice = exitPrice
	p.ExitReason = reason
	p.ClosedAt = asOf
	p.RealizedPnL = pnl(p, exitPrice)
	p.UnrealizedPnL = 0

	metrics.PositionsClosed.WithLabelValues(p.Symbol, string(reason)).Inc()
	if l.recorder != nil {
		l.recorder.RecordClose(*p)
	}
}

func pnl(p *Position, price float64) float64 {
	return (price - p.EntryFillPrice) * float64(p.Direction) * Multiplier * float64(p.Contracts)
}

// OpenPositions returns copies of open positions in open order.
func (l *Ledger) OpenPositions() []Position {
	return l.snapshot(StatusOpen)
}

// ClosedPositions returns copies of closed positions in open order.
func (l *Ledger) ClosedPositions() []Position {
	return l.snapshot(StatusClosed)
}

func (l *Ledger) snapshot(status Status) []Position {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Position
	for _, id := range l.order {
		if p := l.positions[id]; p.Status == status {
			out = append(out, *p)
		}
	}
	return out
}

// ClosedBetween returns closed positions with ClosedAt in [from, to).
func (l *Ledger) ClosedBetween(from, to time.Time) []Position {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Position
	for _, id := range l.order {
		p := l.positions[id]
		if p.Status != StatusClosed {
			continue
		}
		if p.ClosedAt.Before(from) || !p.ClosedAt.Before(to) {
			continue
		}
		out = append(out, *p)
	}
	return out
}

// TotalRealizedPnL sums realized P&L across closed positions.
func (l *Ledger) TotalRealizedPnL() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var total float64
	for _, p := range l.positions {
		if p.Status == StatusClosed {
			total += p.RealizedPnL
		}
	}
	return total
}

// TotalUnrealizedPnL sums unrealized P&L across open positions.
func (l *Ledger) TotalUnrealizedPnL() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var total float64
	for _, p := range l.positions {
		if p.Status == StatusOpen {
			total += p.UnrealizedPnL
		}
	}
	return total
}
