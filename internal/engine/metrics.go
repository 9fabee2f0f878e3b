package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"brain/internal/visual"
)

// Metrics is the engine's prometheus surface on its own registry. A nil
// *Metrics records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	frameSeconds   prometheus.Histogram
	transitions    *prometheus.CounterVec
	rendererInfo   *prometheus.GaugeVec
	audioIntensity prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		frameSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "brain_frame_seconds",
			Help:    "Time spent drawing one frame",
			Buckets: []float64{.001, .002, .004, .008, .016, .033, .05, .1, .25},
		}),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brain_transitions_total",
				Help: "Visual state changes by target state",
			},
			[]string{"to"},
		),
		rendererInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "brain_renderer_info",
				Help: "Renderer strategy selected at mount, 1 for the active one",
			},
			[]string{"renderer"},
		),
		audioIntensity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "brain_audio_intensity",
			Help: "Intensity fed to the last drawn frame",
		}),
	}
	m.Registry.MustRegister(m.frameSeconds, m.transitions, m.rendererInfo, m.audioIntensity)
	return m
}

func (m *Metrics) ObserveFrame(d time.Duration) {
	if m != nil {
		m.frameSeconds.Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveTransition(to visual.State) {
	if m != nil {
		m.transitions.WithLabelValues(to.String()).Inc()
	}
}

// SetRenderer marks name as the active strategy.
func (m *Metrics) SetRenderer(name string) {
	if m == nil {
		return
	}
	m.rendererInfo.Reset()
	if name != "" {
		m.rendererInfo.WithLabelValues(name).Set(1)
	}
}

func (m *Metrics) SetIntensity(v float64) {
	if m != nil {
		m.audioIntensity.Set(v)
	}
}
