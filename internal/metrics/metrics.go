package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	EnvelopesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "webhook_envelopes_total",
			Help:      "Gateway message envelopes by pipeline outcome.",
		},
		[]string{"outcome", "reason"},
	)

	RoutesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "dispatch_routes_total",
			Help:      "Dispatch decisions by route (ai, operator, queued).",
		},
		[]string{"route"},
	)

	InboxRelayTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "inbox_webhook_events_total",
			Help:      "Inbox webhook events by handling result.",
		},
		[]string{"result"},
	)

	UpstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "relay",
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of calls to the gateway, inbox and workflow engine.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		},
		[]string{"system", "operation", "status"},
	)
)

func init() {
	prometheus.MustRegister(EnvelopesTotal)
	prometheus.MustRegister(RoutesTotal)
	prometheus.MustRegister(InboxRelayTotal)
	prometheus.MustRegister(UpstreamDuration)
}

// ObserveUpstream records one outbound call. status is "ok" or "error".
func ObserveUpstream(system, operation string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	UpstreamDuration.WithLabelValues(system, operation, status).Observe(time.Since(start).Seconds())
}
