package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CheckoutDuration tracks the latency of order submissions
	CheckoutDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "checkout_submit_duration_seconds",
			Help: "Duration of order submissions in seconds",
			Buckets: []float64{
				0.01,  // 10ms
				0.025, // 25ms
				0.05,  // 50ms
				0.1,   // 100ms
				0.25,  // 250ms
				0.5,   // 500ms
				1.0,   // 1s
				2.5,   // 2.5s
				5.0,   // 5s
				10.0,  // 10s
				30.0,  // mail timeout
			},
		},
		[]string{"status"}, // success or failure
	)

	// CouponValidations counts coupon checks by outcome
	CouponValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coupon_validations_total",
			Help: "Coupon validations by result",
		},
		[]string{"result"}, // valid or invalid
	)

	// EmailSends counts mails handed to the relay
	EmailSends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_sends_total",
			Help: "Emails sent through the relay by template and status",
		},
		[]string{"template", "status"},
	)

	// RelayDeliveries counts SMTP deliveries made by the relay service
	RelayDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_deliveries_total",
			Help: "SMTP deliveries attempted by the mail relay",
		},
		[]string{"status"},
	)
)

// RecordCheckoutDuration records the duration of an order submission
func RecordCheckoutDuration(status string, duration float64) {
	CheckoutDuration.WithLabelValues(status).Observe(duration)
}

func RecordCouponValidation(valid bool) {
	if valid {
		CouponValidations.WithLabelValues("valid").Inc()
		return
	}
	CouponValidations.WithLabelValues("invalid").Inc()
}

func RecordEmailSend(template, status string) {
	EmailSends.WithLabelValues(template, status).Inc()
}

func RecordRelayDelivery(status string) {
	RelayDeliveries.WithLabelValues(status).Inc()
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
