package risk

import "testing"

func TestAllowPremium(t *testing.T) {
	limits := Limits{MaxPremiumPerTrade: 500}
	if !limits.AllowPremium(499.9) {
		t.Fatalf("expected premium under limit to pass")
	}
	if limits.AllowPremium(500.1) {
		t.Fatalf("expected premium above limit to fail")
	}
	if !(Limits{}).AllowPremium(1e9) {
		t.Fatalf("zero cap should disable the premium check")
	}
}

func TestAllowOpen(t *testing.T) {
	limits := Limits{MaxOpenPositions: 3}
	if !limits.AllowOpen(2) {
		t.Fatalf("expected open under limit to pass")
	}
	if limits.AllowOpen(3) {
		t.Fatalf("expected open at limit to fail")
	}
	if !(Limits{}).AllowOpen(100) {
		t.Fatalf("zero cap should disable the open check")
	}
}
