package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "freshmart"

// Collector exposes scheduler, cache and HTTP metrics. It satisfies both
// scheduler.Recorder and cache.Recorder.
type Collector struct {
	jobsArmed       prometheus.Counter
	jobsRescheduled prometheus.Counter
	jobsSkipped     prometheus.Counter
	jobsCancelled   prometheus.Counter
	jobsFired       prometheus.Counter
	jobsFailed      prometheus.Counter
	liveJobs        prometheus.Gauge

	cacheInvalidations *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// NewCollector creates the collector and registers every metric with reg.
// A nil reg uses a fresh registry.
func NewCollector(reg *prometheus.Registry) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	c := &Collector{
		jobsArmed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "jobs_armed_total",
			Help:      "Total number of expiry jobs armed for a new name",
		}),
		jobsRescheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "jobs_rescheduled_total",
			Help:      "Total number of live expiry jobs moved to a new fire time",
		}),
		jobsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "jobs_skipped_total",
			Help:      "Total number of schedule requests rejected because the fire time had passed",
		}),
		jobsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "jobs_cancelled_total",
			Help:      "Total number of live expiry jobs cancelled",
		}),
		jobsFired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "jobs_fired_total",
			Help:      "Total number of expiry jobs whose timer fired",
		}),
		jobsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "jobs_failed_total",
			Help:      "Total number of expiry actions that returned an error or panicked",
		}),
		liveJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "jobs_live",
			Help:      "Current number of armed expiry jobs",
		}),
		cacheInvalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "invalidations_total",
			Help:      "Total number of materialised views invalidated, by kind",
		}, []string{"kind"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests, by method, route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		gatherer: reg,
	}

	reg.MustRegister(
		c.jobsArmed,
		c.jobsRescheduled,
		c.jobsSkipped,
		c.jobsCancelled,
		c.jobsFired,
		c.jobsFailed,
		c.liveJobs,
		c.cacheInvalidations,
		c.httpRequests,
		c.httpDuration,
	)

	return c
}

func (c *Collector) JobArmed()         { c.jobsArmed.Inc() }
func (c *Collector) JobRescheduled()   { c.jobsRescheduled.Inc() }
func (c *Collector) JobSkipped()       { c.jobsSkipped.Inc() }
func (c *Collector) JobCancelled()     { c.jobsCancelled.Inc() }
func (c *Collector) JobFired()         { c.jobsFired.Inc() }
func (c *Collector) JobFailed()        { c.jobsFailed.Inc() }
func (c *Collector) SetLiveJobs(n int) { c.liveJobs.Set(float64(n)) }

// CacheInvalidated counts one invalidation of the given view kind.
func (c *Collector) CacheInvalidated(kind string) {
	c.cacheInvalidations.WithLabelValues(kind).Inc()
}

// ObserveRequest records one served HTTP request.
func (c *Collector) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the registered metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
