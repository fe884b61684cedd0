package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking engine.
type BookingMetrics struct {
	bookingsTotal   *prometheus.CounterVec
	bookingLatency  *prometheus.HistogramVec
	txRetries       prometheus.Counter
	transitions     *prometheus.CounterVec
	dispatchTotal   *prometheus.CounterVec
	remindersQueued prometheus.Counter
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "attempts_total",
			Help:      "Booking attempts by outcome code",
		}, []string{"outcome"}),
		bookingLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "latency_seconds",
			Help:      "End to end latency of booking attempts",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		txRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "tx_retries_total",
			Help:      "Reservation transactions retried after a write conflict",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "lifecycle",
			Name:      "transitions_total",
			Help:      "Lifecycle transition attempts by event and outcome code",
		}, []string{"event", "outcome"}),
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "dispatch",
			Name:      "tasks_total",
			Help:      "Post-commit side effects by kind and result",
		}, []string{"kind", "result"}),
		remindersQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "reminder",
			Name:      "queued_total",
			Help:      "Reminder notifications handed to the dispatcher",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.bookingLatency, m.txRetries, m.transitions, m.dispatchTotal, m.remindersQueued)
	return m
}

func outcomeLabel(code string) string {
	if code == "" {
		return "ok"
	}
	return code
}

func (m *BookingMetrics) ObserveBooking(code string, seconds float64) {
	if m == nil {
		return
	}
	label := outcomeLabel(code)
	m.bookingsTotal.WithLabelValues(label).Inc()
	m.bookingLatency.WithLabelValues(label).Observe(seconds)
}

func (m *BookingMetrics) ObserveTxRetry() {
	if m == nil {
		return
	}
	m.txRetries.Inc()
}

func (m *BookingMetrics) ObserveTransition(event, code string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(event, outcomeLabel(code)).Inc()
}

// ObserveDispatch records a side effect; result is one of sent, failed, dropped.
func (m *BookingMetrics) ObserveDispatch(kind, result string) {
	if m == nil {
		return
	}
	m.dispatchTotal.WithLabelValues(kind, result).Inc()
}

func (m *BookingMetrics) ObserveReminderQueued() {
	if m == nil {
		return
	}
	m.remindersQueued.Inc()
}
