// Package metrics exposes the prometheus metrics of the API.
package metrics

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
)

var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	EnrollmentTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrollment_transitions_total",
			Help: "Total number of enrollment requests and decisions, by resulting status",
		},
		[]string{"status"},
	)

	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submissions_total",
			Help: "Total number of assignment submissions",
		},
		[]string{"late"},
	)

	GradesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "grades_total",
			Help: "Total number of grades recorded",
		},
	)

	BlobOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blob_operations_total",
			Help: "Total number of blob store operations",
		},
		[]string{"op", "result"},
	)
)

// RecordAPIRequest records an API request. endpoint must be the route pattern, not the raw path.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

func RecordEnrollmentTransition(status string) {
	EnrollmentTransitionsTotal.WithLabelValues(status).Inc()
}

func RecordSubmission(late bool) {
	SubmissionsTotal.WithLabelValues(strconv.FormatBool(late)).Inc()
}

func RecordGrade() {
	GradesTotal.Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

type instrumentedBlobStore struct {
	next core.BlobStore
}

// InstrumentBlobStore counts the operations of next in blob_operations_total.
func InstrumentBlobStore(next core.BlobStore) core.BlobStore {
	return &instrumentedBlobStore{next: next}
}

func (s *instrumentedBlobStore) Put(ctx context.Context, key, contentType string, r io.Reader) (core.Blob, error) {
	blob, err := s.next.Put(ctx, key, contentType, r)
	BlobOperationsTotal.WithLabelValues("put", result(err)).Inc()
	return blob, err
}

func (s *instrumentedBlobStore) Delete(ctx context.Context, key string) error {
	err := s.next.Delete(ctx, key)
	BlobOperationsTotal.WithLabelValues("delete", result(err)).Inc()
	return err
}
