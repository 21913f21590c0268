// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DispatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meal_dispatches_total",
			Help: "Total number of meal dispatch invocations by outcome",
		},
		[]string{"outcome"},
	)

	NotificationsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "meal_notifications_sent_total",
			Help: "Total number of push notifications delivered",
		},
	)

	NotificationsFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "meal_notifications_failed_total",
			Help: "Total number of push notifications that failed delivery",
		},
	)

	RecipientsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meal_recipients_skipped_total",
			Help: "Total number of recipients skipped by reason",
		},
		[]string{"reason"},
	)

	DispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "meal_dispatch_duration_seconds",
			Help: "Duration of dispatch invocations in seconds",
		},
	)
)
