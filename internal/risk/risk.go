// Package risk holds the guard-rails applied before a trade idea reaches the ledger.
package risk

// Limits caps how much simulated premium the engine may deploy.
type Limits struct {
	MaxPremiumPerTrade float64 `yaml:"max_premium_per_trade"`
	MaxOpenPositions   int     `yaml:"max_open_positions"`
}

// AllowPremium reports whether the total premium outlay fits the per-trade cap.
// A zero cap disables the check.
func (l Limits) AllowPremium(premium float64) bool {
	return l.MaxPremiumPerTrade <= 0 || premium <= l.MaxPremiumPerTrade
}

// AllowOpen reports whether another position may be opened given the current
// open count. A zero cap disables the check.
func (l Limits) AllowOpen(openCount int) bool {
	return l.MaxOpenPositions <= 0 || openCount < l.MaxOpenPositions
}
