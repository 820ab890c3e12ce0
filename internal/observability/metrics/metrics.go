package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agreements_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agreements_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	agreementMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agreements_mutations_total",
		Help: "Count of agreement mutations by operation and result",
	}, []string{"operation", "result"})

	remindersSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agreements_reminders_total",
		Help: "Count of reminder dispatches by result",
	}, []string{"result"})

	reminderRunAgreements = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "agreements_reminder_last_run_agreements",
		Help: "Number of agreements selected by the last reminder run",
	})

	notificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agreements_notification_failures_total",
		Help: "Count of notification dispatch failures by kind",
	}, []string{"kind"})

	tempCleanup = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agreements_temp_cleanup_total",
		Help: "Count of staged upload removals by source and result",
	}, []string{"source", "result"})

	jobRuns = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agreements_job_duration_seconds",
		Help:    "Duration of scheduled job runs",
		Buckets: prometheus.DefBuckets,
	}, []string{"job", "result"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func ObserveMutation(operation, result string) {
	agreementMutations.WithLabelValues(operation, result).Inc()
}

// ObserveReminderRun records the summary of one reminder run.
func ObserveReminderRun(agreements, sent, failed int) {
	reminderRunAgreements.Set(float64(agreements))
	remindersSent.WithLabelValues("sent").Add(float64(sent))
	remindersSent.WithLabelValues("failed").Add(float64(failed))
}

func ObserveNotificationFailure(kind string) {
	notificationFailures.WithLabelValues(kind).Inc()
}

func ObserveTempCleanup(source, result string) {
	tempCleanup.WithLabelValues(source, result).Inc()
}

func ObserveJob(job, result string, duration time.Duration) {
	jobRuns.WithLabelValues(job, result).Observe(duration.Seconds())
}
