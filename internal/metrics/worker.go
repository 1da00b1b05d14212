package metrics

import "time"

// JobCompleted records a successful job completion
func JobCompleted(jobType string, duration time.Duration) {
	JobsTotal.WithLabelValues(jobType, "completed").Inc()
	JobDuration.WithLabelValues(jobType).Observe(duration.Seconds())
}

// JobFailed records a job failure
func JobFailed(jobType string) {
	JobsTotal.WithLabelValues(jobType, "failed").Inc()
}

// EmailSent records the outcome of one outbound email.
func EmailSent(kind string, err error) {
	status := "sent"
	if err != nil {
		status = "failed"
	}
	EmailsTotal.WithLabelValues(kind, status).Inc()
}
