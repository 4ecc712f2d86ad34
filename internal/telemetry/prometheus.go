package telemetry

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ExporterConfig defines the Prometheus exporter configuration.
type ExporterConfig struct {
	Enabled        bool          `yaml:"enabled"`
	ListenAddr     string        `yaml:"listen_addr"`
	MetricsPath    string        `yaml:"metrics_path"`
	UpdateInterval time.Duration `yaml:"update_interval"`
	Namespace      string        `yaml:"namespace"`
}

// Exporter bridges telemetry snapshots to a Prometheus scrape endpoint.
type Exporter struct {
	logger   *zap.Logger
	config   ExporterConfig
	snapshot func() Metrics
	registry *prometheus.Registry
	server   *http.Server

	totalOps        prometheus.Gauge
	totalLines      prometheus.Gauge
	totalBytes      prometheus.Gauge
	taskErrors      prometheus.Gauge
	backendOps      *prometheus.GaugeVec
	fallbacks       prometheus.Gauge
	steals          prometheus.Gauge
	avgLinesPerSec  prometheus.Gauge
	peakLinesPerSec prometheus.Gauge
	temperature     prometheus.Gauge
	throttling      prometheus.Gauge

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewExporter creates an exporter that pulls snapshots from the given
// function at the configured interval.
func NewExporter(logger *zap.Logger, config ExporterConfig, snapshot func() Metrics) *Exporter {
	if config.ListenAddr == "" {
		config.ListenAddr = ":9090"
	}
	if config.MetricsPath == "" {
		config.MetricsPath = "/metrics"
	}
	if config.UpdateInterval == 0 {
		config.UpdateInterval = 5 * time.Second
	}
	if config.Namespace == "" {
		config.Namespace = "linehawk"
	}

	e := &Exporter{
		logger:   logger,
		config:   config,
		snapshot: snapshot,
		registry: prometheus.NewRegistry(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	gauge := func(name, help string) prometheus.Gauge {
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      name,
			Help:      help,
		})
		e.registry.MustRegister(g)
		return g
	}

	e.totalOps = gauge("ops_total", "Total tasks processed")
	e.totalLines = gauge("lines_total", "Total lines processed")
	e.totalBytes = gauge("bytes_total", "Total bytes processed")
	e.taskErrors = gauge("task_errors_total", "Tasks finished with an error")
	e.fallbacks = gauge("accelerator_fallbacks_total", "Accelerator executions recovered on the vector backend")
	e.steals = gauge("steals_total", "Successful work steals")
	e.avgLinesPerSec = gauge("avg_lines_per_second", "Average processing rate")
	e.peakLinesPerSec = gauge("peak_lines_per_second", "Fastest observed single-task rate")
	e.temperature = gauge("temperature_celsius", "Current package temperature")
	e.throttling = gauge("thermal_throttling", "1 when the throttling flag is set")

	e.backendOps = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: config.Namespace,
		Name:      "backend_ops_total",
		Help:      "Tasks processed per backend",
	}, []string{"backend"})
	e.registry.MustRegister(e.backendOps)

	return e
}

// Start launches the update loop and the scrape endpoint.
func (e *Exporter) Start() error {
	mux := http.NewServeMux()
	mux.Handle(e.config.MetricsPath, promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{}))
	e.server = &http.Server{Addr: e.config.ListenAddr, Handler: mux}

	go func() {
		if err := e.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.logger.Error("Metrics server failed", zap.Error(err))
		}
	}()
	go e.updateLoop()

	e.logger.Info("Metrics exporter started",
		zap.String("listen_addr", e.config.ListenAddr),
		zap.String("path", e.config.MetricsPath),
	)
	return nil
}

// Stop shuts down the endpoint and the update loop.
func (e *Exporter) Stop(ctx context.Context) error {
	var err error
	e.stopOnce.Do(func() {
		close(e.stop)
		<-e.done
		if e.server != nil {
			err = e.server.Shutdown(ctx)
		}
	})
	return err
}

func (e *Exporter) updateLoop() {
	defer close(e.done)

	ticker := time.NewTicker(e.config.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stop:
			return
		case <-ticker.C:
			e.update(e.snapshot())
		}
	}
}

func (e *Exporter) update(m Metrics) {
	e.totalOps.Set(float64(m.TotalOps))
	e.totalLines.Set(float64(m.TotalLines))
	e.totalBytes.Set(float64(m.TotalBytes))
	e.taskErrors.Set(float64(m.TaskErrors))
	e.fallbacks.Set(float64(m.Fallbacks))
	e.steals.Set(float64(m.Steals))
	e.avgLinesPerSec.Set(m.AvgLinesPerSec)
	e.peakLinesPerSec.Set(m.PeakLinesPerSec)
	e.temperature.Set(m.CurrentTemp)
	if m.Throttling {
		e.throttling.Set(1)
	} else {
		e.throttling.Set(0)
	}
	e.backendOps.WithLabelValues("vector").Set(float64(m.VectorOps))
	e.backendOps.WithLabelValues("accelerator").Set(float64(m.AcceleratorOps))
}
