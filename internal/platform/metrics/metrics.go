// Package metrics holds the Prometheus collectors citamed exports on /metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes counters/histograms for HTTP traffic and booking flows.
// All methods are safe on a nil receiver.
type Metrics struct {
	httpRequests       *prometheus.HistogramVec
	appointmentsBooked *prometheus.CounterVec
	appointmentUpdates *prometheus.CounterVec
	recordsCreated     prometheus.Counter
	emailsSent         *prometheus.CounterVec
	doctorCache        *prometheus.CounterVec
}

// New registers the collectors on reg, or on the default registerer when reg
// is nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		httpRequests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "citamed",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP requests by route and status",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		appointmentsBooked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "citamed",
			Subsystem: "scheduling",
			Name:      "appointments_booked_total",
			Help:      "Appointments created, by appointment type",
		}, []string{"type"}),
		appointmentUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "citamed",
			Subsystem: "scheduling",
			Name:      "appointment_status_changes_total",
			Help:      "Appointment status changes, by new status",
		}, []string{"status"}),
		recordsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "citamed",
			Subsystem: "clinical",
			Name:      "medical_records_created_total",
			Help:      "Medical records written by doctors",
		}),
		emailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "citamed",
			Subsystem: "notify",
			Name:      "emails_total",
			Help:      "Confirmation emails, by outcome",
		}, []string{"status"}),
		doctorCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "citamed",
			Subsystem: "identity",
			Name:      "doctor_cache_total",
			Help:      "Doctor directory cache lookups, by result",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.httpRequests, m.appointmentsBooked, m.appointmentUpdates, m.recordsCreated, m.emailsSent, m.doctorCache)
	return m
}

func (m *Metrics) ObserveRequest(method, route string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(seconds)
}

func (m *Metrics) AppointmentBooked(appointmentType string) {
	if m == nil {
		return
	}
	m.appointmentsBooked.WithLabelValues(appointmentType).Inc()
}

func (m *Metrics) AppointmentStatusChanged(status string) {
	if m == nil {
		return
	}
	m.appointmentUpdates.WithLabelValues(status).Inc()
}

func (m *Metrics) MedicalRecordCreated() {
	if m == nil {
		return
	}
	m.recordsCreated.Inc()
}

func (m *Metrics) EmailSent(ok bool) {
	if m == nil {
		return
	}
	status := "sent"
	if !ok {
		status = "failed"
	}
	m.emailsSent.WithLabelValues(status).Inc()
}

// DoctorCacheLookup records a cache "hit", "miss" or "error".
func (m *Metrics) DoctorCacheLookup(result string) {
	if m == nil {
		return
	}
	m.doctorCache.WithLabelValues(result).Inc()
}
