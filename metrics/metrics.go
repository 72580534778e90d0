package metrics

import (
	"context"
	"net/http"
	"time"

	openbo "github.com/NewYaroslav/open-bo-api"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BetsOpened = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "openbo_bets_opened_total",
		Help: "Number of wagers allocated and submitted to a venue.",
	})

	Settlements = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "openbo_settlements_total",
		Help: "Number of settled wagers by outcome.",
	}, []string{"outcome"})

	RoutingDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "openbo_routing_decisions_total",
		Help: "Routing selector decisions by state.",
	}, []string{"state"})

	LedgerBalance = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "openbo_ledger_balance",
		Help: "Summed balance of enabled ledger accounts.",
	}, []string{"mode"})
)

func init() {
	prometheus.MustRegister(
		BetsOpened,
		Settlements,
		RoutingDecisions,
		LedgerBalance,
	)
}

// Serve exposes /metrics and a health endpoint until the context is done.
// An empty address disables the server.
func Serve(ctx context.Context, logger openbo.Logger, address string) {
	if len(address) == 0 {
		logger.Infof("metrics server disabled")
		return
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Infof("metrics server listening on [%v]", address)

		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			logger.Errorf("metrics server error: [%v]", err)
		}
	}()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancelCtx := context.WithTimeout(
			context.Background(),
			5*time.Second,
		)
		defer cancelCtx()

		_ = server.Shutdown(shutdownCtx)
	}()
}
