// Package metrics exposes prometheus instrumentation for the sync core.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JiraRequests counts outbound Jira REST calls by method and status.
	JiraRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracktime_jira_requests_total",
		Help: "Outbound Jira API requests by method and HTTP status",
	}, []string{"method", "status"})

	// JiraRequestDuration observes Jira round-trip latency.
	JiraRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tracktime_jira_request_seconds",
		Help:    "Latency of outbound Jira API requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	// SyncOutcomes counts entry sync results.
	SyncOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracktime_entry_sync_total",
		Help: "Entry worklog sync outcomes",
	}, []string{"operation", "result"})
)

// ObserveJiraRequest records one outbound request.
func ObserveJiraRequest(method string, statusCode int, started time.Time) {
	JiraRequests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	JiraRequestDuration.WithLabelValues(method).Observe(time.Since(started).Seconds())
}

// ObserveSync records one entry sync outcome.
func ObserveSync(operation string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	SyncOutcomes.WithLabelValues(operation, result).Inc()
}
