package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DigestMetrics covers extraction, catalog resolution and generation outcomes.
type DigestMetrics struct {
	service string

	modelsMu sync.RWMutex
	models   map[string]struct{}

	documentsTotal     *prometheus.CounterVec
	runsTotal          *prometheus.CounterVec
	promptChars        *prometheus.HistogramVec
	generationTotal    *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	generationInFlight prometheus.Gauge
	catalogTotal       *prometheus.CounterVec
	breakerState       *prometheus.GaugeVec
}

func NewDigestMetrics(service string, registerer prometheus.Registerer) *DigestMetrics {
	documentsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "digest",
			Name:      "documents_total",
			Help:      "Uploaded documents by extraction status.",
		},
		[]string{"service", "status"},
	)
	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "digest",
			Name:      "runs_total",
			Help:      "Finished actions by kind and final stage.",
		},
		[]string{"service", "action", "stage"},
	)
	promptChars := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "digest",
			Name:      "prompt_chars",
			Help:      "Assembled prompt length in characters.",
			Buckets:   prometheus.ExponentialBuckets(1000, 2, 10),
		},
		[]string{"service"},
	)
	generationTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "requests_total",
			Help:      "Generation calls by model and failure kind.",
		},
		[]string{"service", "model", "kind"},
	)
	generationDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "duration_seconds",
			Help:      "Generation call duration in seconds.",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 90, 120, 180},
		},
		[]string{"service", "model"},
	)
	generationInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "in_flight",
			Help:      "Number of in-flight generation calls.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	catalogTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "resolutions_total",
			Help:      "Model catalog resolutions by source.",
		},
		[]string{"service", "source"},
	)
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "breaker",
			Name:      "state",
			Help:      "Circuit breaker state per operation (0 closed, 1 half-open, 2 open).",
		},
		[]string{"service", "operation"},
	)

	registerer.MustRegister(
		documentsTotal,
		runsTotal,
		promptChars,
		generationTotal,
		generationDuration,
		generationInFlight,
		catalogTotal,
		breakerState,
	)

	return &DigestMetrics{
		service:            service,
		models:             make(map[string]struct{}),
		documentsTotal:     documentsTotal,
		runsTotal:          runsTotal,
		promptChars:        promptChars,
		generationTotal:    generationTotal,
		generationDuration: generationDuration,
		generationInFlight: generationInFlight,
		catalogTotal:       catalogTotal,
		breakerState:       breakerState,
	}
}

func (m *DigestMetrics) RecordDocuments(succeeded, failed int) {
	if succeeded > 0 {
		m.documentsTotal.WithLabelValues(m.service, "success").Add(float64(succeeded))
	}
	if failed > 0 {
		m.documentsTotal.WithLabelValues(m.service, "failed").Add(float64(failed))
	}
}

func (m *DigestMetrics) RecordRun(action, stage string, promptChars int) {
	if stage == "" {
		stage = "unknown"
	}
	m.runsTotal.WithLabelValues(m.service, action, stage).Inc()
	if promptChars > 0 {
		m.promptChars.WithLabelValues(m.service).Observe(float64(promptChars))
	}
}

func (m *DigestMetrics) StartGeneration() {
	m.generationInFlight.Inc()
}

// KnownModels adds catalog model ids to the set allowed as a model label.
func (m *DigestMetrics) KnownModels(ids ...string) {
	m.modelsMu.Lock()
	defer m.modelsMu.Unlock()
	for _, id := range ids {
		if id != "" {
			m.models[id] = struct{}{}
		}
	}
}

// modelLabel folds ids the catalog never announced into "other".
func (m *DigestMetrics) modelLabel(model string) string {
	if model == "" {
		return "unknown"
	}
	m.modelsMu.RLock()
	defer m.modelsMu.RUnlock()
	if _, ok := m.models[model]; !ok {
		return "other"
	}
	return model
}

// FinishGeneration records kind "ok" for a successful call.
func (m *DigestMetrics) FinishGeneration(model, kind string, duration time.Duration) {
	m.generationInFlight.Dec()
	model = m.modelLabel(model)
	if kind == "" {
		kind = "ok"
	}
	m.generationTotal.WithLabelValues(m.service, model, kind).Inc()
	m.generationDuration.WithLabelValues(m.service, model).Observe(duration.Seconds())
}

// RecordCatalog also admits the resolved model ids as generation labels.
func (m *DigestMetrics) RecordCatalog(source string, models []string) {
	m.catalogTotal.WithLabelValues(m.service, source).Inc()
	m.KnownModels(models...)
}

// ObserveBreakerState matches resilience.TransitionFunc.
func (m *DigestMetrics) ObserveBreakerState(operation, _, to string) {
	value := 0.0
	switch to {
	case "half-open":
		value = 1
	case "open":
		value = 2
	}
	m.breakerState.WithLabelValues(m.service, operation).Set(value)
}
