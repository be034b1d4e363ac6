// Package observability exposes Prometheus metrics for HTTP traffic and the
// entity store.
package observability

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"todomanager/internal/core"
	"todomanager/internal/store"
)

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todomanager_http_requests_total",
			Help: "HTTP requests served, by method, route pattern and status code",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "todomanager_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	storeMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todomanager_store_mutations_total",
			Help: "Successful store mutations by entity kind and operation",
		},
		[]string{"kind", "op"},
	)

	entities = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "todomanager_entities",
			Help: "Entities currently held by the store",
		},
		[]string{"kind"},
	)

	links = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "todomanager_links",
			Help: "Relationship pairs currently held by the store",
		},
		[]string{"class"},
	)
)

// Middleware counts every request. Unmatched paths are recorded under the
// route "unmatched" to keep label cardinality bounded.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" || route == "/*" {
				route = "unmatched"
			}
			method := c.Request().Method
			status := strconv.Itoa(c.Response().Status)

			httpRequests.WithLabelValues(method, route, status).Inc()
			httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// StoreObserver implements store.Observer by updating the store metrics.
type StoreObserver struct{}

// NewStoreObserver returns an observer ready to pass in store.Options.
func NewStoreObserver() *StoreObserver {
	return &StoreObserver{}
}

// StoreChanged records the mutation and refreshes the gauges from stats.
func (o *StoreObserver) StoreChanged(op store.Op, kind core.Kind, stats store.Stats) {
	storeMutations.WithLabelValues(string(kind), string(op)).Inc()
	o.Refresh(stats)
}

// Refresh sets the gauges from stats without counting a mutation. Used once
// after seeding.
func (o *StoreObserver) Refresh(stats store.Stats) {
	for k, n := range stats.Entities {
		entities.WithLabelValues(string(k)).Set(float64(n))
	}
	for c, n := range stats.Links {
		links.WithLabelValues(string(c)).Set(float64(n))
	}
}
