package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RemoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xyb_remote_requests_total",
			Help: "Total number of requests issued to the remote API, by endpoint and envelope code",
		},
		[]string{"endpoint", "code"},
	)

	SessionLogins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xyb_session_logins_total",
			Help: "Total number of sessions obtained, by source (cache or exchange)",
		},
		[]string{"source"},
	)

	SessionInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "xyb_session_invalidations_total",
			Help: "Total number of server-signaled session invalidations",
		},
	)

	CodesCaptured = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "xyb_codes_captured_total",
			Help: "Total number of authorization codes intercepted by the capture proxy",
		},
	)

	UploadSteps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xyb_upload_steps_total",
			Help: "Photo upload handshake steps, by step and status",
		},
		[]string{"step", "status"},
	)
)
