package extensions

import (
	"context"
	"time"

	cryptii "github.com/cryptii/cryptii-sub001"
	"github.com/cryptii/cryptii-sub001/chain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "cryptii"

// MetricsExtension exports brick operation counts and latencies, content
// changes and splices as Prometheus metrics.
type MetricsExtension struct {
	cryptii.BaseExtension

	// operations counts brick operations.
	// Labels: brick, operation (translate, view), status (ok, invalid, error)
	operations *prometheus.CounterVec
	// duration measures brick operations in seconds.
	// Labels: brick, operation
	duration *prometheus.HistogramVec
	// contentChanges counts bucket commits.
	// Labels: origin (user, brick)
	contentChanges *prometheus.CounterVec
	splices        prometheus.Counter
	bricks         prometheus.Gauge
	buckets        prometheus.Gauge

	pipe *cryptii.Pipe
}

// NewMetricsExtension registers the metrics with reg. Use one registry per
// pipe, or prometheus.DefaultRegisterer for a single pipe per process.
func NewMetricsExtension(reg prometheus.Registerer) *MetricsExtension {
	factory := promauto.With(reg)
	return &MetricsExtension{
		BaseExtension: cryptii.NewBaseExtension("metrics"),
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "brick",
			Name:      "operations_total",
			Help:      "Total brick operations by brick, operation and status",
		}, []string{"brick", "operation", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "brick",
			Name:      "operation_duration_seconds",
			Help:      "Brick operation latency in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"brick", "operation"}),
		contentChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "pipe",
			Name:      "content_changes_total",
			Help:      "Total bucket content commits by origin",
		}, []string{"origin"}),
		splices: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "pipe",
			Name:      "splices_total",
			Help:      "Total structural changes of the brick sequence",
		}),
		bricks: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "pipe",
			Name:      "bricks",
			Help:      "Number of bricks in the pipe",
		}),
		buckets: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "pipe",
			Name:      "buckets",
			Help:      "Number of buckets in the pipe",
		}),
	}
}

func (e *MetricsExtension) Init(p *cryptii.Pipe) error {
	e.pipe = p
	e.bricks.Set(float64(p.BrickCount()))
	e.buckets.Set(float64(p.BucketCount()))
	return nil
}

func (e *MetricsExtension) Wrap(ctx context.Context, next func() (*chain.Chain, error), op *cryptii.Operation) (*chain.Chain, error) {
	start := time.Now()
	result, err := next()

	name, kind := op.Brick.Name(), string(op.Kind)
	e.duration.WithLabelValues(name, kind).Observe(time.Since(start).Seconds())
	e.operations.WithLabelValues(name, kind, status(err)).Inc()

	return result, err
}

func (e *MetricsExtension) OnContentChange(bucket int, content *chain.Chain, sender cryptii.Brick) {
	origin := "brick"
	if sender == nil || sender.Kind() == cryptii.KindDisplay {
		origin = "user"
	}
	e.contentChanges.WithLabelValues(origin).Inc()
}

func (e *MetricsExtension) OnSplice(index int, removed, inserted []cryptii.Brick) {
	e.splices.Inc()
	if e.pipe != nil {
		e.bricks.Set(float64(e.pipe.BrickCount()))
		e.buckets.Set(float64(e.pipe.BucketCount()))
	}
}

func status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case cryptii.IsInvalidInput(err):
		return "invalid"
	default:
		return "error"
	}
}
