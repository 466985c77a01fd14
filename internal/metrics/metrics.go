// Package metrics registers prometheus collectors and serves the scrape endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_total", Help: "Composite signals generated"},
		[]string{"symbol", "bias"},
	)
	IdeasTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trade_ideas_total", Help: "Trade ideas synthesized"},
		[]string{"symbol"},
	)
	PositionsOpened = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "positions_opened_total", Help: "Paper positions opened"},
		[]string{"symbol"},
	)
	PositionsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "positions_closed_total", Help: "Paper positions closed"},
		[]string{"symbol", "reason"},
	)
	MarksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "marks_total", Help: "Mark-to-market updates applied"},
		[]string{"symbol"},
	)
	ScanErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "scan_errors_total", Help: "Symbols skipped during a scan"},
		[]string{"symbol"},
	)
)

func init() {
	prometheus.MustRegister(SignalsTotal, IdeasTotal, PositionsOpened, PositionsClosed, MarksTotal, ScanErrors)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
