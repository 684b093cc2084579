// Package metrics holds the Prometheus collectors for campaign delivery,
// tracking and scheduled jobs. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"membership-backend/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	deliveries     *prometheus.CounterVec
	campaignsSent  prometheus.Counter
	trackingEvents *prometheus.CounterVec
	jobRuns        *prometheus.CounterVec
	jobDuration    *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{}

	m.deliveries = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "membership_deliveries_total",
			Help: "notification deliveries by channel and outcome",
		},
		[]string{"channel", "status"},
	)
	m.campaignsSent = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "membership_campaigns_sent_total",
			Help: "campaigns that reached the SENT status",
		},
	)
	m.trackingEvents = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "membership_tracking_events_total",
			Help: "open, click and unsubscribe events received from tracking links",
		},
		[]string{"event"},
	)
	m.jobRuns = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "membership_job_runs_total",
			Help: "scheduled job runs by outcome",
		},
		[]string{"job", "outcome"},
	)
	m.jobDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "membership_job_duration_seconds",
			Help:    "scheduled job run time",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)
	return m
}

func (m *Metrics) DeliveryRecorded(c domain.Channel, status domain.DeliveryStatus) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(string(c), string(status)).Inc()
}

func (m *Metrics) CampaignSent() {
	if m == nil {
		return
	}
	m.campaignsSent.Inc()
}

// TrackingEvent counts "open", "click" or "unsubscribe".
func (m *Metrics) TrackingEvent(event string) {
	if m == nil {
		return
	}
	m.trackingEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) JobFinished(job string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.jobRuns.WithLabelValues(job, outcome).Inc()
	m.jobDuration.WithLabelValues(job).Observe(elapsed.Seconds())
}
