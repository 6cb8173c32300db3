// Package monitoring exposes Prometheus counters for the registration,
// payment-review, and check-in workflows.
package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registrations  *prometheus.CounterVec
	paymentReviews *prometheus.CounterVec
	checkIns       *prometheus.CounterVec

	registry *prometheus.Registry
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "felicity_registrations_total",
			Help: "Registration attempts by outcome.",
		}, []string{"result"}),
		paymentReviews: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "felicity_payment_reviews_total",
			Help: "Payment proof reviews by decision.",
		}, []string{"decision"}),
		checkIns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "felicity_checkins_total",
			Help: "Ticket scans by outcome.",
		}, []string{"result"}),
	}
}

// Handler serves the scrape endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// The increment helpers are nil-safe so services can run without metrics
// in tests.

func (m *Metrics) Registration(result string) {
	if m != nil {
		m.registrations.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) PaymentReview(decision string) {
	if m != nil {
		m.paymentReviews.WithLabelValues(decision).Inc()
	}
}

func (m *Metrics) CheckIn(result string) {
	if m != nil {
		m.checkIns.WithLabelValues(result).Inc()
	}
}
