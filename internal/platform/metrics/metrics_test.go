package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotCountsRequestsAndPipeline(t *testing.T) {
	c := New()
	c.Record(200, 10*time.Millisecond)
	c.Record(503, 30*time.Millisecond)
	c.Record(429, 0)
	c.CycleProcessed(4, 1)
	c.PaymentInitiated()
	c.PaymentSettled(true)
	c.PaymentSettled(false)
	c.PaymentRetried(false)
	c.PaymentRetried(true)
	c.PaymentReconciled(false)

	snap := c.Snapshot()
	assert.Equal(t, uint64(3), snap["requestsTotal"])
	assert.Equal(t, uint64(1), snap["errorsTotal"])
	assert.Equal(t, uint64(1), snap["rateLimitedTotal"])
	assert.InDelta(t, 13.33, snap["avgDurationMs"], 0.01)
	assert.Equal(t, uint64(4), snap["payrollsCalculatedTotal"])
	assert.Equal(t, uint64(1), snap["cycleItemFailuresTotal"])
	assert.Equal(t, uint64(1), snap["paymentsSucceededTotal"])
	assert.Equal(t, uint64(1), snap["paymentsFailedTotal"])
	assert.Equal(t, uint64(1), snap["paymentRetriesTotal"])
	assert.Equal(t, uint64(1), snap["retriesExhaustedTotal"])
	assert.Equal(t, uint64(0), snap["reconciledTotal"])
	assert.Equal(t, uint64(1), snap["reconcileMismatchesTotal"])
}
