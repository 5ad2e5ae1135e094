package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "nihondrill"

// Resolution results
const (
	ResultAuthenticated = "authenticated"
	ResultAnonymous     = "anonymous"
	ResultError         = "error"
)

// One-time token redeem results
const (
	ResultRedeemed = "redeemed"
	ResultReplayed = "replayed"
	ResultInvalid  = "invalid"
)

type Metrics struct {
	// Session resolutions by result
	Resolutions *prometheus.CounterVec

	// Sessions issued
	Issued prometheus.Counter

	// Expired sessions removed by lazy cleanup and cleanup failures
	ExpiredDeleted  prometheus.Counter
	CleanupFailures prometheus.Counter

	// One-time tokens by redeem result
	OneTimeTokens *prometheus.CounterVec
}

// New creates metrics and registers them in reg
// Panics if metrics already registered in reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "resolutions_total",
			Help:      "Session resolutions by result.",
		}, []string{"result"}),
		Issued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "issued_total",
			Help:      "Sessions issued.",
		}),
		ExpiredDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "expired_deleted_total",
			Help:      "Expired sessions deleted by lazy cleanup.",
		}),
		CleanupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "cleanup_failures_total",
			Help:      "Failed lazy cleanup attempts.",
		}),
		OneTimeTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "onetime",
			Name:      "tokens_total",
			Help:      "One-time token redeem attempts by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(m.Resolutions, m.Issued, m.ExpiredDeleted, m.CleanupFailures, m.OneTimeTokens)

	return m
}

// NewNoOp returns metrics registered in a private registry, handy for tests
func NewNoOp() *Metrics {
	return New(prometheus.NewRegistry())
}
