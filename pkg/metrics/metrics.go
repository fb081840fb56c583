package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "chat_media"

// Metrics は生成エンジンの計測値です。
type Metrics struct {
	Claims       *prometheus.CounterVec
	Generations  *prometheus.CounterVec
	Replacements *prometheus.CounterVec
	InFlight     prometheus.Gauge
}

// New は計測値を作成し、reg が nil でなければ登録するのだ。
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claims_total",
			Help:      "Placeholder claim attempts by result (claimed, skipped).",
		}, []string{"result"}),
		Generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Finished generation jobs by media kind and outcome.",
		}, []string{"kind", "outcome"}),
		Replacements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replacements_total",
			Help:      "Placeholder spans replaced with generated media tags.",
		}, []string{"kind"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_in_flight",
			Help:      "Generation jobs currently running.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Claims, m.Generations, m.Replacements, m.InFlight)
	}
	return m
}

// Noop は登録を行わない計測値を返します。
func Noop() *Metrics {
	return New(nil)
}
