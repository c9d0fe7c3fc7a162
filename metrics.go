package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"IP-DNS-API/log"
)

// --- PROMETHEUS METRICS ---
var (
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ipdns_http_request_duration_seconds",
			Help:    "Time taken to process API requests",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"route", "status"},
	)

	requestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ipdns_http_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"route", "status"},
	)

	dnsQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ipdns_dns_query_duration_seconds",
			Help:    "Time taken for queries against the platform nameservers",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"rtype", "nameserver", "transport"},
	)

	lookupFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ipdns_dns_lookup_failures_total",
			Help: "Record type lookups that failed and were answered with an empty list",
		},
		[]string{"rtype"},
	)
)

func init() {
	prometheus.MustRegister(requestDuration, requestTotal, dnsQueryDuration, lookupFailures)
}

// serveMetrics starts the prometheus listener in the background.
func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Sugar.Infof("metrics listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Sugar.Errorf("metrics server error=[%+v]", err)
		}
	}()

	return server
}
