package slo

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackerFlushComputesGauges(t *testing.T) {
	tr := NewTracker(time.Minute)

	for i := 0; i < 99; i++ {
		tr.Observe(200, 10*time.Millisecond)
	}
	tr.Observe(500, 100*time.Millisecond)

	tr.Flush()

	assert.InDelta(t, 0.99, testutil.ToFloat64(SLOAvailability), 0.0001)
	assert.InDelta(t, 0.01, testutil.ToFloat64(SLOErrorRate), 0.0001)
	assert.InDelta(t, 0.010, testutil.ToFloat64(SLOLatencyP95), 0.001)
}

func TestTrackerFlushWithNoSamplesKeepsPriorValues(t *testing.T) {
	tr := NewTracker(time.Minute)
	UpdateAvailability(0.42)

	tr.Flush()

	assert.InDelta(t, 0.42, testutil.ToFloat64(SLOAvailability), 0.0001)
}

func TestQuantileNearestRank(t *testing.T) {
	ds := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, time.Duration(10), quantile(ds, 0.95))
	assert.Equal(t, time.Duration(5), quantile(ds, 0.5))
	assert.Equal(t, time.Duration(0), quantile(nil, 0.95))
}
