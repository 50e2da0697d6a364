package handlers

import (
	"sync/atomic"
	"time"
)

// Metrics counts service activity since startup. All counters are atomic so
// handlers can update them without coordination.
type Metrics struct {
	startedAt time.Time

	totalRequests          atomic.Int64
	successfulRecognitions atomic.Int64
	failedRecognitions     atomic.Int64
	facesDetected          atomic.Int64
	enrollments            atomic.Int64
}

// NewMetrics creates zeroed metrics with the current start time.
func NewMetrics() *Metrics {
	return &Metrics{startedAt: time.Now()}
}

// RecordRecognition records the outcome of one recognition request.
func (m *Metrics) RecordRecognition(success bool, facesDetected int) {
	m.totalRequests.Add(1)
	if success {
		m.successfulRecognitions.Add(1)
	} else {
		m.failedRecognitions.Add(1)
	}
	m.facesDetected.Add(int64(facesDetected))
}

// RecordEnrollment records one successful enrollment.
func (m *Metrics) RecordEnrollment() {
	m.enrollments.Add(1)
}

// MetricsSnapshot is the JSON view of the counters.
type MetricsSnapshot struct {
	UptimeSeconds          int64 `json:"uptime_seconds"`
	TotalRequests          int64 `json:"total_requests"`
	SuccessfulRecognitions int64 `json:"successful_recognitions"`
	FailedRecognitions     int64 `json:"failed_recognitions"`
	FacesDetected          int64 `json:"faces_detected"`
	Enrollments            int64 `json:"enrollments"`
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		UptimeSeconds:          int64(time.Since(m.startedAt).Seconds()),
		TotalRequests:          m.totalRequests.Load(),
		SuccessfulRecognitions: m.successfulRecognitions.Load(),
		FailedRecognitions:     m.failedRecognitions.Load(),
		FacesDetected:          m.facesDetected.Load(),
		Enrollments:            m.enrollments.Load(),
	}
}
