package fetcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lumen_fetch_requests_total",
			Help: "Upstream API responses by status code",
		},
		[]string{"code"},
	)

	authRefreshes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lumen_fetch_auth_rejections_total",
		Help: "Upstream 401/403 responses",
	})

	rateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lumen_fetch_rate_limited_total",
		Help: "Upstream 429 responses",
	})
)
