// Package metrics keeps the client's prometheus collectors on a private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	searchAttempts  *prometheus.CounterVec
	syncTicks       *prometheus.CounterVec
	matchesFinished *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "tictactoe_client_requests_total", Help: "Match service requests by route and status code"},
			[]string{"route", "code"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tictactoe_client_request_duration_seconds",
				Help:    "Match service request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		searchAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "tictactoe_client_search_attempts_total", Help: "Matchmaking attempts by result"},
			[]string{"result"},
		),
		syncTicks: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "tictactoe_client_sync_ticks_total", Help: "Match state polls by result"},
			[]string{"result"},
		),
		matchesFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "tictactoe_client_matches_finished_total", Help: "Online matches finished by outcome"},
			[]string{"outcome"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestsTotal, m.requestDuration, m.searchAttempts, m.syncTicks, m.matchesFinished,
	)

	return m
}

// ObserveRequest - code 0 means the request never got a response.
func (that *Metrics) ObserveRequest(route string, code int, elapsed time.Duration) {
	that.requestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	that.requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (that *Metrics) SearchAttempt(result string) {
	that.searchAttempts.WithLabelValues(result).Inc()
}

func (that *Metrics) SyncTick(result string) {
	that.syncTicks.WithLabelValues(result).Inc()
}

func (that *Metrics) MatchFinished(outcome string) {
	that.matchesFinished.WithLabelValues(outcome).Inc()
}

func (that *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(that.registry, promhttp.HandlerOpts{Registry: that.registry})
}
