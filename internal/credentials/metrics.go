package credentials

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lumen_credential_cache_lookups_total",
			Help: "Credential store reads by outcome (hit, miss, expired)",
		},
		[]string{"result"},
	)

	issuances = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lumen_credential_issuances_total",
			Help: "Credential issuance attempts by issuer and result",
		},
		[]string{"issuer", "result"},
	)

	storeWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lumen_credential_store_write_failures_total",
			Help: "Issued credentials that could not be written to the slot",
		},
	)

	issueDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lumen_credential_issue_duration_seconds",
			Help:    "Time spent obtaining a new credential, including rate limit backoff",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
		[]string{"issuer"},
	)
)
