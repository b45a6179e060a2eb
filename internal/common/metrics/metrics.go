// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransitionsCommitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifecycle_transitions_committed_total",
			Help: "Total number of committed status transitions",
		},
		[]string{"status"},
	)

	TransitionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifecycle_transitions_rejected_total",
			Help: "Total number of rejected status transitions",
		},
		[]string{"error_code"},
	)

	TransitionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "lifecycle_transition_duration_seconds",
			Help: "Duration of the atomic transition boundary in seconds",
		},
		[]string{"status"},
	)

	AuditRecordsAppended = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_records_appended_total",
			Help: "Total number of audit records appended",
		},
	)

	NotificationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_dispatched_total",
			Help: "Total number of notification deliveries attempted",
		},
		[]string{"channel", "status"},
	)

	NotificationsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_dropped_total",
			Help: "Notification events dropped because the outbound queue was full",
		},
	)

	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "application_query_duration_seconds",
			Help: "Duration of application list queries in seconds",
		},
		[]string{"scope"},
	)
)
