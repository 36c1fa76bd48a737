package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Appointment lifecycle metrics
	AppointmentsBooked prometheus.Counter
	StatusTransitions  *prometheus.CounterVec

	// Attachment metrics
	AttachmentUploads    *prometheus.CounterVec
	AttachmentBytesTotal prometheus.Counter

	// Cascade delete metrics
	CascadeDeletes      *prometheus.CounterVec
	OrphanedFileCleanup prometheus.Counter
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace, subsystem string) *Metrics {
	return &Metrics{
		AppointmentsBooked: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "appointments_booked_total",
			Help:      "Total number of appointments booked",
		}),
		StatusTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "appointment_status_transitions_total",
			Help:      "Appointment status transitions by target status and outcome",
		}, []string{"status", "outcome"}),
		AttachmentUploads: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "attachment_uploads_total",
			Help:      "Attachment uploads by outcome",
		}, []string{"outcome"}),
		AttachmentBytesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "attachment_bytes_total",
			Help:      "Total bytes of attachment images written to storage",
		}),
		CascadeDeletes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "patient_cascade_deletes_total",
			Help:      "Patient cascade deletions by outcome",
		}, []string{"outcome"}),
		OrphanedFileCleanup: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "orphaned_file_cleanup_failures_total",
			Help:      "File deletions that failed after their rows were already removed",
		}),
	}
}
