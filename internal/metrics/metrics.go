package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for admission and lifecycle flows.
// A nil *BookingMetrics is valid and records nothing.
type BookingMetrics struct {
	requests       *prometheus.CounterVec
	duration       prometheus.Histogram
	tokenConflicts prometheus.Counter
	transitions    *prometheus.CounterVec
	statusUpdates  *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "requests_total",
			Help:      "Booking requests by outcome",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "duration_seconds",
			Help:      "Time spent admitting a booking, lock wait included",
			Buckets:   prometheus.DefBuckets,
		}),
		tokenConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "token_conflicts_total",
			Help:      "Token allocations rejected by the uniqueness constraint",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "appointment",
			Name:      "transitions_total",
			Help:      "Appointment status transitions",
		}, []string{"from", "to"}),
		statusUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "doctor",
			Name:      "status_updates_total",
			Help:      "Staff updates of doctor-clinic status and current token",
		}, []string{"kind"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requests, m.duration, m.tokenConflicts, m.transitions, m.statusUpdates)
	return m
}

func (m *BookingMetrics) ObserveBooking(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
	m.duration.Observe(seconds)
}

func (m *BookingMetrics) ObserveTokenConflict() {
	if m == nil {
		return
	}
	m.tokenConflicts.Inc()
}

func (m *BookingMetrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *BookingMetrics) ObserveStatusUpdate(kind string) {
	if m == nil {
		return
	}
	m.statusUpdates.WithLabelValues(kind).Inc()
}
