package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	MaintenanceResultOK     = "ok"
	MaintenanceResultFailed = "failed"
)

// MaintenanceMetrics tracks the scheduled housekeeping jobs.
type MaintenanceMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
}

func NewMaintenanceMetrics(reg prometheus.Registerer) *MaintenanceMetrics {
	if reg == nil {
		return &MaintenanceMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "maintenance_job_duration_seconds",
		Help:    "Duration of maintenance jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "maintenance_job_runs_total",
		Help: "Maintenance job runs by result.",
	}, []string{"job", "result"})
	reg.MustRegister(duration, runs)
	return &MaintenanceMetrics{duration: duration, runs: runs}
}

// ObserveRun records one job execution.
func (m *MaintenanceMetrics) ObserveRun(job string, d time.Duration, err error) {
	if m == nil || m.duration == nil {
		return
	}
	job = normalizeLabel(job)
	m.duration.WithLabelValues(job).Observe(d.Seconds())
	result := MaintenanceResultOK
	if err != nil {
		result = MaintenanceResultFailed
	}
	m.runs.WithLabelValues(job, result).Inc()
}
