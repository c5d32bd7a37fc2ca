package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WorkflowStarts counts gateway start requests by workflow type and how
	// they were resolved: started, attached, cached or failed.
	WorkflowStarts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "messaging",
			Name:      "workflow_starts_total",
			Help:      "Gateway start requests by workflow type and resolution",
		},
		[]string{"workflow_type", "resolution"},
	)

	// RuntimeCalls counts gateway-to-runtime attempts.
	RuntimeCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "messaging",
			Name:      "runtime_calls_total",
			Help:      "Gateway calls to the orchestration runtime by outcome",
		},
		[]string{"outcome"},
	)

	SyncWaitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "messaging",
			Name:      "sync_wait_duration_seconds",
			Help:      "Time spent awaiting synchronous workflow results",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"workflow_type", "outcome"},
	)

	ActivityExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "messaging",
			Name:      "activity_executions_total",
			Help:      "Activity attempts by activity name and outcome",
		},
		[]string{"activity", "outcome"},
	)

	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "messaging",
			Name:      "messages_sent_total",
			Help:      "Channel send attempts by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	InvocationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "messaging",
			Name:      "invocation_outcomes_total",
			Help:      "Terminal invocation states written by workers",
		},
		[]string{"workflow_type", "status"},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "messaging",
			Name:      "events_published_total",
			Help:      "Invocation outcome events published to the broker",
		},
		[]string{"routing_key", "outcome"},
	)
)
