package metrics

import (
	"errors"
	"testing"
	"time"

	"membership-backend/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.DeliveryRecorded(domain.ChannelEmail, domain.DeliveryStatusDelivered)
	m.DeliveryRecorded(domain.ChannelEmail, domain.DeliveryStatusDelivered)
	m.DeliveryRecorded(domain.ChannelSMS, domain.DeliveryStatusFailed)
	m.CampaignSent()
	m.TrackingEvent("open")
	m.JobFinished("dispatch_due_campaigns", time.Second, nil)
	m.JobFinished("dispatch_due_campaigns", time.Second, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.deliveries.WithLabelValues("EMAIL", "DELIVERED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveries.WithLabelValues("SMS", "FAILED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.campaignsSent))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.trackingEvents.WithLabelValues("open")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobRuns.WithLabelValues("dispatch_due_campaigns", "failure")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.jobDuration))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.DeliveryRecorded(domain.ChannelEmail, domain.DeliveryStatusDelivered)
		m.CampaignSent()
		m.TrackingEvent("click")
		m.JobFinished("x", 0, nil)
	})
}
