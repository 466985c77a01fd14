package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"optionscout/internal/api"
	"optionscout/internal/config"
	"optionscout/internal/engine"
	"optionscout/internal/feed"
	"optionscout/internal/ledger"
	"optionscout/internal/metrics"
	"optionscout/internal/recorder"
	"optionscout/internal/report"
	"optionscout/internal/scoring"
	"optionscout/internal/synth"
	"optionscout/internal/util"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		boot := util.NewLogger("info", "")
		boot.Fatal().Err(err).Str("path", *configPath).Msg("load config")
	}

	log := util.NewLogger(cfg.App.LogLevel, cfg.App.Env)

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	recorders := ledger.MultiRecorder{}
	if cfg.Ledger.HistoryPath != "" {
		jsonl, err := ledger.NewJSONLRecorder(cfg.Ledger.HistoryPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Ledger.HistoryPath).Msg("open close history")
		}
		defer jsonl.Close()
		recorders = append(recorders, jsonl)
	}

	var store *recorder.Store
	if cfg.Ledger.SQLitePath != "" {
		store, err = recorder.NewStore(cfg.Ledger.SQLitePath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Ledger.SQLitePath).Msg("open history store")
		}
		defer store.Close()
		recorders = append(recorders, store)
	}

	led := ledger.NewLedger(recorders)

	mkt := feed.NewFeed(cfg.Feed.Provider, cfg.Watchlist, cfg.Feed.URL, log)
	go func() {
		if err := mkt.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("feed stopped")
			cancel()
		}
	}()

	eng := engine.New(
		scoring.NewScorer(cfg.Scoring),
		scoring.NewRanker(cfg.Ranker.Weights, cfg.Ranker.Deadband, cfg.Ranker.VolPenalty),
		synth.NewSynthesizer(cfg.Synth),
		led,
		cfg.Risk,
		mkt,
		mkt,
		log,
	)

	apiSrv := &http.Server{Addr: cfg.App.APIAddr, Handler: api.NewServer(eng, log).Router()}
	go func() {
		log.Info().Str("addr", cfg.App.APIAddr).Msg("api up")
		if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("api server stopped")
			cancel()
		}
	}()

	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(cfg.Schedule.Scan, func() {
		eng.Scan(ctx, mkt.Symbols(), time.Now().UTC())
	}); err != nil {
		log.Fatal().Err(err).Str("spec", cfg.Schedule.Scan).Msg("register scan job")
	}
	if _, err := c.AddFunc(cfg.Schedule.Tick, func() {
		eng.Tick(ctx, time.Now().UTC())
	}); err != nil {
		log.Fatal().Err(err).Str("spec", cfg.Schedule.Tick).Msg("register tick job")
	}
	if _, err := c.AddFunc(cfg.Schedule.Report, func() {
		sum := report.Build(led, time.Now().UTC())
		log.Info().
			Int("closed", len(sum.Closed)).
			Float64("day_pnl", sum.DayRealized).
			Float64("win_rate", sum.WinRate).
			Msg("daily summary")
		if store != nil {
			if err := store.SaveDailySummary(sum); err != nil {
				log.Error().Err(err).Msg("persist daily summary")
			}
		}
	}); err != nil {
		log.Fatal().Err(err).Str("spec", cfg.Schedule.Report).Msg("register report job")
	}
	c.Start()
	defer c.Stop()

	// Prime the session so the dashboard is not empty until the first cron fire.
	eng.Scan(ctx, mkt.Symbols(), time.Now().UTC())

	log.Info().Strs("watchlist", mkt.Symbols()).Msg("scout engine started")
	<-ctx.Done()

	log.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = apiSrv.Shutdown(shutdownCtx)
}
