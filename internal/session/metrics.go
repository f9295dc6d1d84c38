package session

import "github.com/prometheus/client_golang/prometheus"

var (
	loginSuccess = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eufyvac_session_login_success_total",
			Help: "Successful cloud logins",
		},
		[]string{"provider"},
	)
	loginFailure = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eufyvac_session_login_failure_total",
			Help: "Failed cloud logins",
		},
		[]string{"provider"},
	)
	tokenValid = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eufyvac_session_token_valid",
			Help: "Cloud access token validity (1=valid, 0=invalid)",
		},
		[]string{"provider"},
	)
	localPersistOK = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eufyvac_session_local_persist_ok",
			Help: "Local state persistence health (1=ok, 0=error)",
		},
		[]string{"provider"},
	)
	remotePersistOK = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eufyvac_session_remote_persist_ok",
			Help: "Remote blob persistence health (1=ok, 0=error)",
		},
		[]string{"provider"},
	)
)

// MetricsCollectors returns collectors for the shared session module.
func MetricsCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		loginSuccess,
		loginFailure,
		tokenValid,
		localPersistOK,
		remotePersistOK,
	}
}
