// Package report builds read-only end-of-day views over the ledger for the
// email and dashboard adapters.
package report

import (
	"fmt"
	"strings"
	"time"

	"optionscout/internal/ledger"
)

// ExpiryWarningDays flags open positions this close to expiry.
const ExpiryWarningDays = 5

// Summary is a snapshot of one trading day plus running aggregates.
type Summary struct {
	Date time.Time `json:"date"`

	Closed       []ledger.Position `json:"closed"`
	DayRealized  float64           `json:"day_realized_pnl"`
	Wins         int               `json:"wins"`
	Losses       int               `json:"losses"`
	WinRate      float64           `json:"win_rate"`
	ExpiringSoon []ledger.Position `json:"expiring_soon"`

	OpenCount       int     `json:"open_count"`
	TotalRealized   float64 `json:"total_realized_pnl"`
	TotalUnrealized float64 `json:"total_unrealized_pnl"`
}

// Build assembles the summary for the calendar day containing `day` (UTC).
// It only reads ledger projections; nothing here mutates a position.
func Build(l *ledger.Ledger, day time.Time) Summary {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	closed := l.ClosedBetween(start, end)
	var dayRealized float64
	wins, losses := 0, 0
	for _, p := range closed {
		dayRealized += p.RealizedPnL
		switch {
		case p.RealizedPnL > 0:
			wins++
		case p.RealizedPnL < 0:
			losses++
		}
	}
	winRate := 0.0
	if wins+losses > 0 {
		winRate = 100 * float64(wins) / float64(wins+losses)
	}

	open := l.OpenPositions()
	var expiring []ledger.Position
	for _, p := range open {
		if p.Contract.DTE(day) <= ExpiryWarningDays {
			expiring = append(expiring, p)
		}
	}

	return Summary{
		Date:            start,
		Closed:          closed,
		DayRealized:     dayRealized,
		Wins:            wins,
		Losses:          losses,
		WinRate:         winRate,
		ExpiringSoon:    expiring,
		OpenCount:       len(open),
		TotalRealized:   l.TotalRealizedPnL(),
		TotalUnrealized: l.TotalUnrealizedPnL(),
	}
}

// Render formats the summary as the plain-text body consumed by the email
// adapter.
func (s Summary) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Daily paper-trading report for %s\n\n", s.Date.Format("2006-01-02"))

	if len(s.Closed) == 0 {
		b.WriteString("No positions closed today.\n")
	} else {
		fmt.Fprintf(&b, "Closed today (%d):\n", len(s.Closed))
		for _, p := range s.Closed {
			fmt.Fprintf(&b, "  %-28s %-10s entry %.2f exit %.2f pnl %+.2f\n",
				p.Contract.Describe(), p.ExitReason, p.EntryFillPrice, p.ExitFillPrice, p.RealizedPnL)
		}
		fmt.Fprintf(&b, "Day realized: %+.2f | win rate %.1f%% (%dW/%dL)\n",
			s.DayRealized, s.WinRate, s.Wins, s.Losses)
	}

	fmt.Fprintf(&b, "\nOpen positions: %d | total realized %+.2f | unrealized %+.2f\n",
		s.OpenCount, s.TotalRealized, s.TotalUnrealized)

	if len(s.ExpiringSoon) > 0 {
		fmt.Fprintf(&b, "\nExpiring within %d days:\n", ExpiryWarningDays)
		for _, p := range s.ExpiringSoon {
			fmt.Fprintf(&b, "  %s (expires %s)\n", p.Contract.Describe(), p.Contract.Expiry.Format("2006-01-02"))
		}
	}
	return b.String()
}
