package prometheus

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"irqsched/core"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64
	LatencyBuckets  []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	spawnTotal             *prom.CounterVec
	queueFullTotal         *prom.CounterVec
	dispatchLatencySeconds *prom.HistogramVec
	taskDurationSeconds    *prom.HistogramVec
	queueDepth             *prom.GaugeVec
	taskPanicTotal         *prom.CounterVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for
// core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "irqsched"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	durationBuckets := opts.DurationBuckets
	if len(durationBuckets) == 0 {
		durationBuckets = prom.DefBuckets
	}
	latencyBuckets := opts.LatencyBuckets
	if len(latencyBuckets) == 0 {
		latencyBuckets = prom.ExponentialBuckets(0.0001, 4, 10)
	}

	spawnVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "spawn_total",
		Help:      "Total number of successful spawns.",
	}, []string{"task", "level"})
	queueFullVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "queue_full_total",
		Help:      "Total number of spawns rejected at capacity.",
	}, []string{"task"})
	latencyVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "dispatch_latency_seconds",
		Help:      "Time invocations spent in the ready queue before dispatch.",
		Buckets:   latencyBuckets,
	}, []string{"task", "level"})
	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "task_duration_seconds",
		Help:      "Task execution duration in seconds.",
		Buckets:   durationBuckets,
	}, []string{"task", "level"})
	queueDepthVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Current ready queue depth per priority level.",
	}, []string{"level"})
	panicVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_panic_total",
		Help:      "Total number of task panics.",
	}, []string{"task"})

	var err error
	if spawnVec, err = registerCollector(reg, spawnVec); err != nil {
		return nil, err
	}
	if queueFullVec, err = registerCollector(reg, queueFullVec); err != nil {
		return nil, err
	}
	if latencyVec, err = registerCollector(reg, latencyVec); err != nil {
		return nil, err
	}
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if queueDepthVec, err = registerCollector(reg, queueDepthVec); err != nil {
		return nil, err
	}
	if panicVec, err = registerCollector(reg, panicVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		spawnTotal:             spawnVec,
		queueFullTotal:         queueFullVec,
		dispatchLatencySeconds: latencyVec,
		taskDurationSeconds:    durationVec,
		queueDepth:             queueDepthVec,
		taskPanicTotal:         panicVec,
	}, nil
}

// RecordSpawn records one successful spawn.
func (m *MetricsExporter) RecordSpawn(task string, level core.Priority) {
	if m == nil {
		return
	}
	m.spawnTotal.WithLabelValues(normalizeLabel(task, "unknown"), levelLabel(level)).Inc()
}

// RecordQueueFull records a spawn rejected at capacity.
func (m *MetricsExporter) RecordQueueFull(task string) {
	if m == nil {
		return
	}
	m.queueFullTotal.WithLabelValues(normalizeLabel(task, "unknown")).Inc()
}

// RecordDispatchLatency records ready queue wait time.
func (m *MetricsExporter) RecordDispatchLatency(task string, level core.Priority, wait time.Duration) {
	if m == nil {
		return
	}
	m.dispatchLatencySeconds.WithLabelValues(normalizeLabel(task, "unknown"), levelLabel(level)).Observe(wait.Seconds())
}

// RecordTaskDuration records task execution duration.
func (m *MetricsExporter) RecordTaskDuration(task string, level core.Priority, duration time.Duration) {
	if m == nil {
		return
	}
	m.taskDurationSeconds.WithLabelValues(normalizeLabel(task, "unknown"), levelLabel(level)).Observe(duration.Seconds())
}

// RecordQueueDepth records ready queue depth.
func (m *MetricsExporter) RecordQueueDepth(level core.Priority, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(levelLabel(level)).Set(float64(depth))
}

// RecordTaskPanic records task panic events.
func (m *MetricsExporter) RecordTaskPanic(task string, panicInfo any) {
	if m == nil {
		return
	}
	m.taskPanicTotal.WithLabelValues(normalizeLabel(task, "unknown")).Inc()
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func levelLabel(level core.Priority) string {
	return strconv.Itoa(int(level))
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
