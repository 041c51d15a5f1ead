package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	AuthExchanges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "njt_auth_exchanges_total",
		Help: "Number of token exchanges with the RailData API, by result",
	}, []string{"result"})
	TokenCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "njt_token_cache_hits_total",
		Help: "Number of times a cached token was reused",
	})
	APIRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "njt_api_requests_total",
		Help: "Number of RailData API requests, by endpoint and status code",
	}, []string{"endpoint", "code"})
	Refreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "njt_sensor_refreshes_total",
		Help: "Number of sensor refresh cycles, by sensor and result",
	}, []string{"sensor", "result"})
	RefreshDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "njt_sensor_refresh_duration_seconds",
		Help:    "Duration of sensor refresh cycles",
		Buckets: prometheus.DefBuckets,
	}, []string{"sensor"})
)

func init() {
	prometheus.MustRegister(AuthExchanges, TokenCacheHits, APIRequests, Refreshes, RefreshDuration)
}

// Refresh results
const (
	ResultOK            = "ok"
	ResultAuthFailed    = "auth_failed"
	ResultCannotConnect = "cannot_connect"
)
