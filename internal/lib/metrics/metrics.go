// Package metrics defines the Prometheus collectors for the inquiry flow.
//
// Collectors are registered on the Registerer passed to New so tests can use
// a private registry. Every method is safe on a nil *Metrics, which lets
// components run without metrics wired in.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "travelease"

// Inquiry outcomes.
const (
	OutcomeAccepted            = "accepted"
	OutcomeInvalid             = "invalid"
	OutcomeDestinationNotFound = "destination_not_found"
	OutcomeStoreFailed         = "store_failed"
	OutcomeNotifyFailed        = "notify_failed"
)

// Metrics groups the collectors.
type Metrics struct {
	inquiries          *prometheus.CounterVec
	destinationChecks  *prometheus.CounterVec
	emailsSent         *prometheus.CounterVec
	emailSendLatency   *prometheus.HistogramVec
	outboxRedeliveries *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		inquiries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inquiries_total",
			Help:      "Inquiry submissions by outcome",
		}, []string{"outcome"}),
		destinationChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "destination_checks_total",
			Help:      "Destination lookups by result",
		}, []string{"result"}),
		emailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_total",
			Help:      "Emails sent by template and status",
		}, []string{"template", "status"}),
		emailSendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "email_send_duration_seconds",
			Help:      "Time taken to hand an email to the provider",
			Buckets:   prometheus.DefBuckets,
		}, []string{"template"}),
		outboxRedeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_redeliveries_total",
			Help:      "Notification re-deliveries from the outbox by status",
		}, []string{"status"}),
	}

	reg.MustRegister(
		m.inquiries,
		m.destinationChecks,
		m.emailsSent,
		m.emailSendLatency,
		m.outboxRedeliveries,
	)

	return m
}

// Inquiry counts one submission outcome.
func (m *Metrics) Inquiry(outcome string) {
	if m == nil {
		return
	}
	m.inquiries.WithLabelValues(outcome).Inc()
}

// DestinationCheck counts one lookup result.
func (m *Metrics) DestinationCheck(result string) {
	if m == nil {
		return
	}
	m.destinationChecks.WithLabelValues(result).Inc()
}

// EmailSent records one send attempt and how long it took.
func (m *Metrics) EmailSent(template string, took time.Duration, err error) {
	if m == nil {
		return
	}
	m.emailSendLatency.WithLabelValues(template).Observe(took.Seconds())
	m.emailsSent.WithLabelValues(template, status(err)).Inc()
}

// OutboxRedelivery counts one outbox notification attempt.
func (m *Metrics) OutboxRedelivery(err error) {
	if m == nil {
		return
	}
	m.outboxRedeliveries.WithLabelValues(status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return "failed"
	}
	return "sent"
}
