// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kbchat",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route pattern, method and status.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "kbchat",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route pattern. Streamed responses include the whole stream.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"method", "route"})

	CorpusRebindsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kbchat",
		Name:      "corpus_rebinds_total",
		Help:      "Corpus rebind attempts by result.",
	}, []string{"result"})

	IngestionJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kbchat",
		Name:      "ingestion_jobs_total",
		Help:      "Finished ingestion jobs by terminal status.",
	}, []string{"status"})

	IngestionJobsRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "kbchat",
		Name:      "ingestion_jobs_running",
		Help:      "Ingestion jobs currently executing.",
	})
)
