package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farmbridge_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// Registrations counts new identities by role.
	Registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farmbridge_registrations_total",
			Help: "Total number of registered identities",
		},
		[]string{"role"},
	)

	// PermissionChecks counts authorization decisions (allow|deny).
	PermissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farmbridge_permission_checks_total",
			Help: "Total number of permission checks",
		},
		[]string{"permission", "result"},
	)

	// ActiveSessions tracks active sessions (not expired/revoked).
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "farmbridge_active_sessions",
			Help: "Number of active sessions",
		},
	)

	// SubmissionEvents counts submission lifecycle events (submitted|approved|rejected).
	SubmissionEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farmbridge_submission_events_total",
			Help: "Total number of submission lifecycle events",
		},
		[]string{"event"},
	)

	// NotificationsCreated counts persisted notifications by kind.
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farmbridge_notifications_created_total",
			Help: "Total number of notifications created",
		},
		[]string{"kind"},
	)

	// RealtimeConnections tracks open notification stream connections.
	RealtimeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "farmbridge_realtime_connections",
			Help: "Number of open realtime connections",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "farmbridge_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
