package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	Transitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gigmarket_transitions_total",
		Help: "Lifecycle operations by operation and outcome",
	}, []string{"operation", "outcome"})
	NotificationsCreated = prometheus.NewCounter(prometheus.CounterOpts{Name: "gigmarket_notifications_created_total", Help: "Notifications written"})
	MessagesSent         = prometheus.NewCounter(prometheus.CounterOpts{Name: "gigmarket_messages_sent_total", Help: "Booking messages written"})
	ActiveSubscriptions  = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gigmarket_realtime_subscriptions",
		Help: "Open realtime subscriptions by topic kind",
	}, []string{"kind"})
	EventsDelivered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gigmarket_realtime_events_delivered_total",
		Help: "Rows delivered to realtime subscribers",
	}, []string{"kind"})
	Resubscribes = prometheus.NewCounter(prometheus.CounterOpts{Name: "gigmarket_realtime_resubscribes_total", Help: "Feed resubscription attempts after a failure"})
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gigmarket_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Register adds the collectors to the default registry once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			Transitions,
			NotificationsCreated,
			MessagesSent,
			ActiveSubscriptions,
			EventsDelivered,
			Resubscribes,
			HTTPDuration,
		)
	})
}

// Handler exposes /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	Register()
	return promhttp.Handler()
}

// Outcome labels an operation result for Transitions.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return "error"
}
