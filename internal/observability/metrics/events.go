// Package metrics provides Prometheus metrics for the pack lifecycle, the
// sidecar runs and the outbound transports.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jaja2302/Palm-counting-AI/internal/events"
)

// EventMetrics derives counters from the event stream. It is registered on
// the event bus as a consumer, so producers stay unaware of metrics.
type EventMetrics struct {
	eventsTotal      *prometheus.CounterVec
	packDownloads    *prometheus.CounterVec
	packBytes        prometheus.Gauge
	packPercent      prometheus.Gauge
	extractedEntries prometheus.Gauge
	processingFiles  *prometheus.CounterVec
	processingRuns   prometheus.Counter
	processingTrees  *prometheus.CounterVec
	modelConversions *prometheus.CounterVec
}

// NewEventMetrics creates and registers the event-derived metrics.
func NewEventMetrics(registry prometheus.Registerer) (*EventMetrics, error) {
	m := &EventMetrics{
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "palm_events_total",
			Help: "Total number of events published, by event name",
		}, []string{"event"}),
		packDownloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "palm_aipack_downloads_total",
			Help: "AI pack download attempts by outcome (done, paused, error)",
		}, []string{"result"}),
		packBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "palm_aipack_downloaded_bytes",
			Help: "Bytes of the AI pack on disk in the current or last attempt",
		}),
		packPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "palm_aipack_download_percent",
			Help: "Progress of the current or last AI pack download",
		}),
		extractedEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "palm_aipack_extracted_entries",
			Help: "Archive entries processed in the current or last extraction",
		}),
		processingFiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "palm_processing_files_total",
			Help: "Files reported by the sidecar, by status",
		}, []string{"status"}),
		processingRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "palm_processing_runs_total",
			Help: "Completed processing runs (including cancelled and failed ones)",
		}),
		processingTrees: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "palm_processing_trees_total",
			Help: "Palm trees counted by completed runs, by class",
		}, []string{"class"}),
		modelConversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "palm_model_imports_total",
			Help: "Model import outcomes",
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{
		m.eventsTotal, m.packDownloads, m.packBytes, m.packPercent, m.extractedEntries,
		m.processingFiles, m.processingRuns, m.processingTrees, m.modelConversions,
	} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register event metrics: %w", err)
		}
	}
	return m, nil
}

// Name implements events.EventConsumer.
func (m *EventMetrics) Name() string { return "metrics" }

// ProcessEvent implements events.EventConsumer.
func (m *EventMetrics) ProcessEvent(e events.Event) error {
	m.eventsTotal.WithLabelValues(e.Name).Inc()

	switch e.Name {
	case events.AIPackProgress:
		if p, ok := e.Payload.(events.PackProgressPayload); ok {
			m.packBytes.Set(float64(p.Downloaded))
			m.packPercent.Set(float64(p.Percent))
		}
	case events.AIPackPaused:
		m.packDownloads.WithLabelValues("paused").Inc()
	case events.AIPackExtractProgress:
		if p, ok := e.Payload.(events.PackExtractProgressPayload); ok {
			m.extractedEntries.Set(float64(p.Current))
		}
	case events.AIPackDone:
		m.packDownloads.WithLabelValues("done").Inc()
	case events.AIPackError:
		m.packDownloads.WithLabelValues("error").Inc()
	case events.ProcessingProgress:
		if p, ok := e.Payload.(events.ProgressPayload); ok {
			status := p.Status
			if status == "" {
				status = "unknown"
			}
			m.processingFiles.WithLabelValues(status).Inc()
		}
	case events.ProcessingDone:
		m.processingRuns.Inc()
		if p, ok := e.Payload.(events.DonePayload); ok {
			m.processingTrees.WithLabelValues("abnormal").Add(float64(p.TotalAbnormal))
			m.processingTrees.WithLabelValues("normal").Add(float64(p.TotalNormal))
		}
	case events.ModelConversionDone:
		m.modelConversions.WithLabelValues("done").Inc()
	case events.ModelConversionError:
		m.modelConversions.WithLabelValues("error").Inc()
	}
	return nil
}
