package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "supplyq"

// Recorder owns a private registry so several controllers can live in one
// process. A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	steps         *prometheus.CounterVec
	rewards       *prometheus.HistogramVec
	episodes      prometheus.Counter
	tableStates   prometheus.Gauge
	tableEntries  prometheus.Gauge
	persistErrors *prometheus.CounterVec
	liveRunning   prometheus.Gauge
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		// Labels: mode (training, live)
		steps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "controller",
			Name:      "steps_total",
			Help:      "Control-loop steps executed",
		}, []string{"mode"}),
		rewards: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "controller",
			Name:      "step_reward",
			Help:      "Reward observed per step",
			Buckets:   []float64{-5000, -2000, -1000, -500, -200, -100, -50, -10, 0},
		}, []string{"mode"}),
		episodes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "controller",
			Name:      "episodes_total",
			Help:      "Training episodes completed",
		}),
		tableStates: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "qtable",
			Name:      "states",
			Help:      "Distinct discretized states in the value table",
		}),
		tableEntries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "qtable",
			Name:      "entries",
			Help:      "State-action pairs in the value table",
		}),
		// Labels: op (save, load, delete)
		persistErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "qtable",
			Name:      "persist_errors_total",
			Help:      "Value table persistence failures",
		}, []string{"op"}),
		liveRunning: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "controller",
			Name:      "live_running",
			Help:      "1 while the live loop is active",
		}),
	}
}

func (r *Recorder) Step(mode string, reward float64) {
	if r == nil {
		return
	}
	r.steps.WithLabelValues(mode).Inc()
	r.rewards.WithLabelValues(mode).Observe(reward)
}

func (r *Recorder) Episode() {
	if r == nil {
		return
	}
	r.episodes.Inc()
}

func (r *Recorder) Table(states, entries int) {
	if r == nil {
		return
	}
	r.tableStates.Set(float64(states))
	r.tableEntries.Set(float64(entries))
}

func (r *Recorder) PersistError(op string) {
	if r == nil {
		return
	}
	r.persistErrors.WithLabelValues(op).Inc()
}

func (r *Recorder) Live(running bool) {
	if r == nil {
		return
	}
	if running {
		r.liveRunning.Set(1)
		return
	}
	r.liveRunning.Set(0)
}

// Handler serves the recorder's registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
