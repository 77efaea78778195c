package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	registry       *prometheus.Registry
	runs           *prometheus.CounterVec // total runs
	runDuration    prometheus.Histogram   // time to run
	decisions      *prometheus.CounterVec // update decisions
	dnsRequests    *prometheus.CounterVec // dns provider requests
	ipLookups      *prometheus.CounterVec // external ip lookups
	resolutions    *prometheus.CounterVec // local dns resolutions
	badgerRequests *prometheus.CounterVec // badgerdb requests
	lastSuccess    prometheus.Gauge       // unix time of last successful run
}

func (m *Metrics) IncRun(success bool) {
	status := boolToResult(success)
	m.runs.WithLabelValues(status).Inc()
	if success {
		m.lastSuccess.SetToCurrentTime()
	}
}

func (m *Metrics) SetRunDuration(duration time.Duration) {
	m.runDuration.Observe(duration.Seconds())
}

func (m *Metrics) IncDecision(decision string) {
	if !isValidDecision(decision) {
		return
	}
	m.decisions.WithLabelValues(decision).Inc()
}

func (m *Metrics) IncDNSRequest(operation string, success bool, code int) {
	if !isValidOperation(operation) {
		return
	}
	status := boolToResult(success)
	scode := strconv.Itoa(code)
	m.dnsRequests.WithLabelValues(operation, status, scode).Inc()
}

func (m *Metrics) IncIPLookup(success bool) {
	status := boolToResult(success)
	m.ipLookups.WithLabelValues(status).Inc()
}

func (m *Metrics) IncResolution(result string) {
	switch result {
	case "found", "not_found", "error":
		m.resolutions.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) IncBadgerRequest(operation string, success bool) {
	if !isValidOperation(operation) {
		return
	}
	status := boolToResult(success)
	m.badgerRequests.WithLabelValues(operation, status).Inc()
}

// Validation helpers
func boolToResult(b bool) string {
	if b {
		return "success"
	}
	return "failure"
}

func isValidOperation(op string) bool {
	switch op {
	case "create", "read", "update":
		return true
	}
	return false
}

func isValidDecision(d string) bool {
	switch d {
	case "updated", "unchanged", "dry_run", "failed":
		return true
	}
	return false
}

func New(register bool) *Metrics {
	registry := prometheus.NewRegistry()
	namespace := "dyndns"

	m := &Metrics{
		registry: registry,

		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of update runs",
		}, []string{"status"}),

		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of update runs in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Total update decisions by outcome",
		}, []string{"decision"}),

		dnsRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dns_requests_total",
			Help:      "Total DNS provider API requests",
		}, []string{"operation", "status", "code"}),

		ipLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ip_lookups_total",
			Help:      "Total external IP lookups",
		}, []string{"status"}),

		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Total local DNS resolutions by result",
		}, []string{"result"}),

		badgerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "badgerdb_requests_total",
			Help:      "Total badgerdb requests",
		}, []string{"operation", "status"}),

		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run",
		}),
	}

	if register {
		registry.MustRegister(
			m.runs,
			m.runDuration,
			m.decisions,
			m.dnsRequests,
			m.ipLookups,
			m.resolutions,
			m.badgerRequests,
			m.lastSuccess,
		)
	}
	return m
}

// WriteTextfile writes all registered metrics to path in the text exposition
// format read by the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
