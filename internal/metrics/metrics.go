// Package metrics provides access to Prometheus metrics.
//
// Collectors are only registered with the Registerer passed to the
// constructors. A nil Registerer yields working but unregistered collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "filecache"

// Cache holds the collectors of a filecache.Cache.
type Cache struct {
	Hits            prometheus.Counter
	Misses          prometheus.Counter
	ForcedRefreshes prometheus.Counter
	WriteErrors     prometheus.Counter
	FetchErrors     prometheus.Counter
	FetchTime       prometheus.Histogram
}

func NewCache(reg prometheus.Registerer) *Cache {
	factory := promauto.With(reg)

	return &Cache{
		Hits: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "hits_total",
			},
		),
		Misses: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "misses_total",
			},
		),
		ForcedRefreshes: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "forced_refreshes_total",
			},
		),
		WriteErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "write_errors_total",
			},
		),
		FetchErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "fetch",
				Name:      "errors_total",
			},
		),
		FetchTime: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "fetch",
				Name:      "duration_seconds",
				Buckets:   []float64{0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10, 30},
			},
		),
	}
}

// Web holds the collectors of the HTTP server.
type Web struct {
	HTTPResponseStatuses *prometheus.CounterVec
}

func NewWeb(reg prometheus.Registerer) *Web {
	return &Web{
		HTTPResponseStatuses: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "web",
				Name:      "http_response_statuses_total",
			},
			[]string{"status"},
		),
	}
}
