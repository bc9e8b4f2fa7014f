package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PvPMetrics exports combat and decay events as Prometheus series. It
// satisfies services.Recorder.
type PvPMetrics struct {
	attacks    *prometheus.CounterVec
	rejections *prometheus.CounterVec
	replays    prometheus.Counter
	decayed    prometheus.Counter
	delta      prometheus.Histogram
}

// NewPvPMetrics creates and registers the PvP collectors on reg, or on the
// default registerer when reg is nil. Registering twice on the same
// registerer panics.
func NewPvPMetrics(reg prometheus.Registerer) *PvPMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &PvPMetrics{
		attacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pvp_attacks_total",
				Help: "Resolved attacks by result.",
			},
			[]string{"result"},
		),
		rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pvp_attack_rejections_total",
				Help: "Attacks refused before resolution, by error code.",
			},
			[]string{"code"},
		),
		replays: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pvp_idempotent_replays_total",
			Help: "Attack responses served from the idempotency ledger.",
		}),
		decayed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pvp_decay_accounts_total",
			Help: "Accounts that lost prestige to the nightly decay.",
		}),
		delta: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pvp_prestige_delta",
			Help:    "Applied attacker prestige delta per resolved attack.",
			Buckets: []float64{-25, -15, -10, -5, 0, 5, 10, 15, 20, 30, 50},
		}),
	}
	reg.MustRegister(m.attacks, m.rejections, m.replays, m.decayed, m.delta)
	return m
}

// AttackResolved counts one resolved attack and observes its delta.
func (m *PvPMetrics) AttackResolved(result string, appliedDelta int) {
	m.attacks.WithLabelValues(result).Inc()
	m.delta.Observe(float64(appliedDelta))
}

// AttackRejected counts one refused attack.
func (m *PvPMetrics) AttackRejected(code string) {
	m.rejections.WithLabelValues(code).Inc()
}

// AttackReplayed counts one idempotent replay.
func (m *PvPMetrics) AttackReplayed() { m.replays.Inc() }

// DecayApplied adds the accounts touched by one decay run.
func (m *PvPMetrics) DecayApplied(accounts int) {
	if accounts > 0 {
		m.decayed.Add(float64(accounts))
	}
}
