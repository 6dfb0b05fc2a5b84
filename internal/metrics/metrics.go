package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fallback kinds.
const (
	KindQuiz   = "quiz"
	KindLesson = "lesson"
	KindGrade  = "grade"
)

// State load fallback reasons.
const (
	ReasonRemoteError  = "remote_error"
	ReasonInvalidState = "invalid_state"
)

// Remote write results.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics holds the engine's collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry         *prometheus.Registry
	contentFallbacks *prometheus.CounterVec
	remoteWrites     *prometheus.CounterVec
	loadFallbacks    *prometheus.CounterVec
	stageCompletions *prometheus.CounterVec
	answersGraded    *prometheus.CounterVec
}

// New creates a registry with the Go runtime and process collectors plus the engine counters.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		contentFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logicbuild_content_fallback_total",
			Help: "Times local content or cache was used because a remote call failed or returned unusable data.",
		}, []string{"kind"}),
		remoteWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logicbuild_remote_writes_total",
			Help: "Debounced game state writes to the remote store.",
		}, []string{"result"}),
		loadFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logicbuild_state_load_fallback_total",
			Help: "Game state loads served from the local cache because the remote copy failed or was invalid.",
		}, []string{"reason"}),
		stageCompletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logicbuild_stage_completions_total",
			Help: "Stages completed for the first time.",
		}, []string{"type"}),
		answersGraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logicbuild_answers_graded_total",
			Help: "Answers graded, by grading source.",
		}, []string{"source"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.contentFallbacks,
		m.remoteWrites,
		m.loadFallbacks,
		m.stageCompletions,
		m.answersGraded,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ContentFallback(kind string) {
	if m == nil {
		return
	}
	m.contentFallbacks.WithLabelValues(kind).Inc()
}

func (m *Metrics) RemoteWrite(result string) {
	if m == nil {
		return
	}
	m.remoteWrites.WithLabelValues(result).Inc()
}

func (m *Metrics) StateLoadFallback(reason string) {
	if m == nil {
		return
	}
	m.loadFallbacks.WithLabelValues(reason).Inc()
}

func (m *Metrics) StageCompleted(stageType string) {
	if m == nil {
		return
	}
	m.stageCompletions.WithLabelValues(stageType).Inc()
}

func (m *Metrics) AnswerGraded(source string) {
	if m == nil {
		return
	}
	m.answersGraded.WithLabelValues(source).Inc()
}
