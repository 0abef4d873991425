package match

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the battle counters exported on /metrics. A nil *Metrics records nothing.
type Metrics struct {
	SessionsStarted  prometheus.Counter
	SessionsResolved *prometheus.CounterVec
	Dissolved        prometheus.Counter
	Rematches        *prometheus.CounterVec
	Waiting          *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them when reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "battlestudy",
			Name:      "sessions_started_total",
			Help:      "Battles that reached the answering phase.",
		}),
		SessionsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "battlestudy",
			Name:      "sessions_resolved_total",
			Help:      "Battles resolved, by outcome.",
		}, []string{"outcome"}),
		Dissolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "battlestudy",
			Name:      "pairings_dissolved_total",
			Help:      "Pairings dropped because no question was left for the pair.",
		}),
		Rematches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "battlestudy",
			Name:      "rematches_total",
			Help:      "Rematch negotiations, by result.",
		}, []string{"result"}),
		Waiting: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "battlestudy",
			Name:      "queue_waiting_players",
			Help:      "Players waiting for an opponent, by tier.",
		}, []string{"tier"}),
	}
	if reg != nil {
		reg.MustRegister(m.SessionsStarted, m.SessionsResolved, m.Dissolved, m.Rematches, m.Waiting)
	}
	return m
}

func (m *Metrics) started() {
	if m != nil {
		m.SessionsStarted.Inc()
	}
}

func (m *Metrics) resolved(outcome string) {
	if m != nil {
		m.SessionsResolved.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) dissolved() {
	if m != nil {
		m.Dissolved.Inc()
	}
}

func (m *Metrics) rematch(result string) {
	if m != nil {
		m.Rematches.WithLabelValues(result).Inc()
	}
}

// WaitingGauge returns the queue depth gauge, or nil.
func (m *Metrics) WaitingGauge() *prometheus.GaugeVec {
	if m == nil {
		return nil
	}
	return m.Waiting
}
