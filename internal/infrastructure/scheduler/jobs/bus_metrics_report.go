package jobs

import (
	"context"
	"log/slog"

	"github.com/learnhub/learnhub-engine/internal/infrastructure/messaging"
)

// BusMetricsSource exposes event bus counters.
type BusMetricsSource interface {
	Metrics() *messaging.EventBusMetrics
}

// BusMetricsReportJob logs the event bus counters.
type BusMetricsReportJob struct {
	bus    BusMetricsSource
	logger *slog.Logger
}

func NewBusMetricsReportJob(bus BusMetricsSource, logger *slog.Logger) *BusMetricsReportJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &BusMetricsReportJob{bus: bus, logger: logger.With("job", "bus-metrics-report")}
}

func (j *BusMetricsReportJob) Name() string        { return "bus-metrics-report" }
func (j *BusMetricsReportJob) Description() string { return "Log event bus counters" }

func (j *BusMetricsReportJob) Run(context.Context) error {
	m := j.bus.Metrics()
	if m == nil {
		return nil
	}
	snap := m.Snapshot()
	j.logger.Info("event bus metrics",
		"published", snap.TotalPublished,
		"handler_executions", snap.HandlerExecutions,
		"handler_failures", snap.HandlerFailures,
		"success_rate", snap.HandlerSuccessRate,
	)
	return nil
}
