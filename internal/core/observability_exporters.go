package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"momentum/pkg/domain"
)

// Span outcomes written by SpanWriter.
const (
	OutcomeOK          = "ok"
	OutcomeDuplicate   = "duplicate"
	OutcomeNotFound    = "not_found"
	OutcomeBlocked     = "blocked"
	OutcomeUnpersisted = "unpersisted"
	OutcomeFailed      = "failed"
)

// ClassifyOutcome maps an operation error onto a span outcome.
func ClassifyOutcome(err error) string {
	var persistErr *PersistenceError
	var ruleErr RuleViolationError
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, domain.ErrDuplicateOperation):
		return OutcomeDuplicate
	case errors.Is(err, domain.ErrMissing):
		return OutcomeNotFound
	case errors.As(err, &ruleErr):
		return OutcomeBlocked
	case errors.As(err, &persistErr):
		return OutcomeUnpersisted
	default:
		return OutcomeFailed
	}
}

// SpanRecord is one finished operation as written by SpanWriter.
type SpanRecord struct {
	Operation string    `json:"operation"`
	Outcome   string    `json:"outcome"`
	Start     time.Time `json:"start"`
	ElapsedMS int64     `json:"elapsedMs"`
	Rules     []string  `json:"rules,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// SpanWriter implements Tracer by writing one JSON line per finished
// operation. Write errors are dropped.
type SpanWriter struct {
	mu    sync.Mutex
	enc   *json.Encoder
	clock Clock
}

// NewSpanWriter writes spans to w, timing them with clock. A nil clock uses
// wall time.
func NewSpanWriter(w io.Writer, clock Clock) *SpanWriter {
	if clock == nil {
		clock = systemClock{}
	}
	return &SpanWriter{enc: json.NewEncoder(w), clock: clock}
}

// Start implements Tracer.
func (t *SpanWriter) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &writtenSpan{writer: t, operation: operation, start: t.clock.Now()}
}

type writtenSpan struct {
	writer    *SpanWriter
	operation string
	start     time.Time
}

func (s *writtenSpan) End(err error) {
	rec := SpanRecord{
		Operation: s.operation,
		Outcome:   ClassifyOutcome(err),
		Start:     s.start,
		ElapsedMS: s.writer.clock.Now().Sub(s.start).Milliseconds(),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	var ruleErr RuleViolationError
	if errors.As(err, &ruleErr) {
		for _, v := range ruleErr.Result.Violations {
			if v.Severity == SeverityBlock {
				rec.Rules = append(rec.Rules, v.Rule)
			}
		}
	}
	s.writer.mu.Lock()
	defer s.writer.mu.Unlock()
	_ = s.writer.enc.Encode(rec)
}

// PrometheusMetricsRecorder exports operation counters and latency histograms.
type PrometheusMetricsRecorder struct {
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
}

// NewPrometheusMetricsRecorder registers the service collectors with reg.
// A nil registerer falls back to prometheus.DefaultRegisterer.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	rec := &PrometheusMetricsRecorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "momentum_operations_total",
			Help: "Service operations by name and outcome.",
		}, []string{"operation", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "momentum_operation_duration_seconds",
			Help:    "Service operation latency including persistence.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	for _, c := range []prometheus.Collector{rec.operations, rec.durations} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return rec, nil
}

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.operations.WithLabelValues(operation, status).Inc()
	r.durations.WithLabelValues(operation).Observe(duration.Seconds())
}
