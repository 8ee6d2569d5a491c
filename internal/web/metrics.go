package web

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RequestMetrics records request counts and latency per matched route.
func RequestMetrics(registerer prometheus.Registerer) gin.HandlerFunc {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)
	requestsTotal := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storekeep",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})
	requestDuration := factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "storekeep",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	return func(contextGin *gin.Context) {
		started := time.Now()
		contextGin.Next()

		route := contextGin.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := contextGin.Request.Method
		requestsTotal.WithLabelValues(method, route, strconv.Itoa(contextGin.Writer.Status())).Inc()
		requestDuration.WithLabelValues(method, route).Observe(time.Since(started).Seconds())
	}
}
