// Package metrics exports pipeline counters and timings to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rnaindex/internal/relations"
	"rnaindex/pkg/domain"
)

const namespace = "rnaindex"

// Recorder publishes operation outcomes, resolver timings and retries on a
// private registry.
type Recorder struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	rules      *prometheus.HistogramVec
	retries    *prometheus.CounterVec
	entities   *prometheus.CounterVec
	chunks     prometheus.Counter
}

// NewRecorder constructs a recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Pipeline operations by outcome.",
		}, []string{"operation", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Pipeline operation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"operation"}),
		rules: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "relationship_rule_duration_seconds",
			Help:      "Relationship rule evaluation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"kind", "status"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_retries_total",
			Help:      "Retried store calls after transient failures.",
		}, []string{"operation"}),
		entities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entities_total",
			Help:      "Sequence entities processed by outcome.",
		}, []string{"status"}),
		chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_written_total",
			Help:      "Dump chunks written to the sink.",
		}),
	}
	r.registry.MustRegister(r.operations, r.durations, r.rules, r.retries, r.entities, r.chunks)
	return r
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// Observe records a pipeline operation outcome.
func (r *Recorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	r.operations.WithLabelValues(operation, status(success)).Inc()
	r.durations.WithLabelValues(operation).Observe(duration.Seconds())
}

// Entity counts one exported or failed entity.
func (r *Recorder) Entity(success bool) {
	r.entities.WithLabelValues(status(success)).Inc()
}

// Chunk counts one written dump chunk.
func (r *Recorder) Chunk() { r.chunks.Inc() }

// Retry counts one retried store call.
func (r *Recorder) Retry(operation string) {
	r.retries.WithLabelValues(operation).Inc()
}

// ResolverObserver adapts the recorder to the relationship resolver.
func (r *Recorder) ResolverObserver() relations.Observer {
	return func(kind domain.RelationshipKind, duration time.Duration, err error) {
		r.rules.WithLabelValues(string(kind), status(err == nil)).Observe(duration.Seconds())
	}
}

// Gatherer exposes the registry for tests and custom exporters.
func (r *Recorder) Gatherer() prometheus.Gatherer { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
