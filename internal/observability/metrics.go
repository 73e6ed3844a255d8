package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rainharvest"

// Metrics holds the Prometheus collectors for dataset generation and model
// training.
type Metrics struct {
	SamplesGenerated prometheus.Counter
	BatchesLoaded    prometheus.Counter
	GeneratorRunning prometheus.Gauge
	LoadErrors       *prometheus.CounterVec // labels: sink={csv,kafka}

	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Training metrics.
	DatasetRows      *prometheus.GaugeVec     // labels: model, split={train,validation,test}
	TrainingDuration *prometheus.HistogramVec // labels: model
	TrainingRounds   *prometheus.CounterVec   // labels: model
	ModelScore       *prometheus.GaugeVec     // labels: model, metric={rmse,mae,r2}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SamplesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_generated_total",
			Help:      "Total samples written to every configured sink.",
		}),
		BatchesLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_loaded_total",
			Help:      "Total generation batches loaded.",
		}),
		GeneratorRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "generator_running",
			Help:      "1 while a generation run is active, 0 otherwise.",
		}),
		LoadErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_errors_total",
			Help:      "Failed batch loads by sink.",
		}, []string{"sink"}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of samples per generation batch.",
			Buckets:   []float64{1, 10, 25, 50, 100, 250, 500, 1000},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of one sample-and-load cycle.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		DatasetRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_rows",
			Help:      "Rows per dataset split used by the last training run.",
		}, []string{"model", "split"}),
		TrainingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "training_duration_seconds",
			Help:      "Wall time spent fitting a model.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
		}, []string{"model"}),
		TrainingRounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "training_rounds_total",
			Help:      "Boosting rounds or epochs completed.",
		}, []string{"model"}),
		ModelScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_score",
			Help:      "Held-out evaluation score of the last trained model.",
		}, []string{"model", "metric"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.SamplesGenerated,
		m.BatchesLoaded,
		m.GeneratorRunning,
		m.LoadErrors,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.DatasetRows,
		m.TrainingDuration,
		m.TrainingRounds,
		m.ModelScore,
	}
}

// WriteTextfile dumps the default registry in the node-exporter textfile
// format. Batch jobs call it once on exit when METRICS_FILE is set.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
