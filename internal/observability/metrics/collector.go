package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatsFunc reports the current session, topic and message counts. Gauges
// read it at scrape time so they are never stale.
type StatsFunc func() (sessions, topics, messages int)

// Metrics collector for the message broker
type Collector struct {
	registry *prometheus.Registry

	// Request metrics
	RequestDuration *prometheus.HistogramVec

	// Broker traffic
	SessionsRegistered   prometheus.Counter
	MessagesPublished    prometheus.Counter
	MessagesDelivered    prometheus.Counter
	MessagesAcknowledged prometheus.Counter
	ReceivePolls         prometheus.Counter

	// Sweeper activity
	SweepsTotal   prometheus.Counter
	SessionsSwept prometheus.Counter
	MessagesSwept prometheus.Counter
}

// NewCollector creates a new metrics collector. Instruments live in the
// collector's own registry, not the global one. stats may be nil.
func NewCollector(stats StatsFunc) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "httpmq_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "endpoint", "status"},
		),

		SessionsRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "httpmq_sessions_registered_total",
			Help: "Total sessions registered",
		}),
		MessagesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "httpmq_messages_published_total",
			Help: "Total messages published",
		}),
		MessagesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "httpmq_messages_delivered_total",
			Help: "Total message copies handed to consumers",
		}),
		MessagesAcknowledged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "httpmq_messages_acknowledged_total",
			Help: "Total acknowledgements recorded",
		}),
		ReceivePolls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "httpmq_receive_polls_total",
			Help: "Total receive polls served",
		}),

		SweepsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "httpmq_sweeps_total",
			Help: "Total expiry sweeps run",
		}),
		SessionsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "httpmq_sessions_swept_total",
			Help: "Total sessions removed by expiry sweeps",
		}),
		MessagesSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "httpmq_messages_swept_total",
			Help: "Total messages removed by expiry sweeps",
		}),
	}

	// Register all metrics
	c.registry.MustRegister(c.RequestDuration)
	c.registry.MustRegister(c.SessionsRegistered)
	c.registry.MustRegister(c.MessagesPublished)
	c.registry.MustRegister(c.MessagesDelivered)
	c.registry.MustRegister(c.MessagesAcknowledged)
	c.registry.MustRegister(c.ReceivePolls)
	c.registry.MustRegister(c.SweepsTotal)
	c.registry.MustRegister(c.SessionsSwept)
	c.registry.MustRegister(c.MessagesSwept)

	if stats != nil {
		c.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "httpmq_sessions_active",
			Help: "Sessions currently registered",
		}, func() float64 {
			sessions, _, _ := stats()
			return float64(sessions)
		}))
		c.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "httpmq_topics_live",
			Help: "Topics currently holding messages",
		}, func() float64 {
			_, topics, _ := stats()
			return float64(topics)
		}))
		c.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "httpmq_messages_live",
			Help: "Messages currently stored",
		}, func() float64 {
			_, _, messages := stats()
			return float64(messages)
		}))
	}

	return c
}

// RecordSweep tallies the outcome of one expiry sweep.
func (c *Collector) RecordSweep(sessionsSwept, messagesSwept int) {
	c.SweepsTotal.Inc()
	c.SessionsSwept.Add(float64(sessionsSwept))
	c.MessagesSwept.Add(float64(messagesSwept))
}

// Handler returns HTTP handler for metrics
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
