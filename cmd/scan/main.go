package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"optionscout/internal/config"
	"optionscout/internal/engine"
	"optionscout/internal/feed"
	"optionscout/internal/ledger"
	"optionscout/internal/scoring"
	"optionscout/internal/synth"
	"optionscout/internal/util"
)

// scan runs the pipeline once over the watchlist and prints ranked signals
// and the trade ideas they produced, without persisting anything.
func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to YAML config")
	symbols := flag.String("symbols", "", "comma-separated symbols (overrides watchlist)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := util.NewLogger("warn", cfg.App.Env)

	watch := cfg.Watchlist
	if *symbols != "" {
		watch = strings.Split(*symbols, ",")
	}

	mkt := feed.NewFeed(cfg.Feed.Provider, watch, cfg.Feed.URL, log)
	eng := engine.New(
		scoring.NewScorer(cfg.Scoring),
		scoring.NewRanker(cfg.Ranker.Weights, cfg.Ranker.Deadband, cfg.Ranker.VolPenalty),
		synth.NewSynthesizer(cfg.Synth),
		ledger.NewLedger(nil),
		cfg.Risk,
		mkt,
		mkt,
		log,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	asOf := time.Now().UTC()
	eng.Scan(ctx, mkt.Symbols(), asOf)

	sigs := eng.Signals()
	sort.Slice(sigs, func(i, j int) bool { return sigs[i].Conviction > sigs[j].Conviction })

	fmt.Printf("scan as of %s\n\n", asOf.Format(time.RFC3339))
	fmt.Printf("%-8s %-8s %10s %8s %8s %8s %8s\n", "SYMBOL", "BIAS", "CONVICTION", "TREND", "MOM", "VOLUME", "VOL")
	for _, s := range sigs {
		fmt.Printf("%-8s %-8s %10.1f %8.2f %8.2f %8.2f %8.2f\n",
			s.Symbol, s.Bias, s.Conviction,
			s.Scores.Trend, s.Scores.Momentum, s.Scores.Volume, s.Scores.Volatility)
	}

	ideas := eng.Ideas()
	if len(ideas) == 0 {
		fmt.Println("\nno trade ideas")
		return
	}

	fmt.Println("\ntrade ideas:")
	for _, idea := range ideas {
		fmt.Printf("  %-24s entry %.2f target %.2f stop %.2f x%d (conviction %.0f)\n",
			idea.Contract.Describe(), idea.EntryPrice, idea.TargetPrice, idea.StopPrice,
			idea.Contracts, idea.Conviction)
	}
}
