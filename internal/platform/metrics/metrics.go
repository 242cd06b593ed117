package metrics

import (
	"sync/atomic"
	"time"
)

type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64

	payrollsCalculated  uint64
	cycleItemFailures   uint64
	paymentsInitiated   uint64
	paymentsSucceeded   uint64
	paymentsFailed      uint64
	paymentRetries      uint64
	retriesExhausted    uint64
	reconciled          uint64
	reconcileMismatches uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

// CycleProcessed counts the outcome of one cycle run.
func (c *Collector) CycleProcessed(processed, failed int) {
	atomic.AddUint64(&c.payrollsCalculated, uint64(processed))
	atomic.AddUint64(&c.cycleItemFailures, uint64(failed))
}

func (c *Collector) PaymentInitiated() {
	atomic.AddUint64(&c.paymentsInitiated, 1)
}

func (c *Collector) PaymentSettled(success bool) {
	if success {
		atomic.AddUint64(&c.paymentsSucceeded, 1)
		return
	}
	atomic.AddUint64(&c.paymentsFailed, 1)
}

func (c *Collector) PaymentRetried(exhausted bool) {
	if exhausted {
		atomic.AddUint64(&c.retriesExhausted, 1)
		return
	}
	atomic.AddUint64(&c.paymentRetries, 1)
}

func (c *Collector) PaymentReconciled(matched bool) {
	if matched {
		atomic.AddUint64(&c.reconciled, 1)
		return
	}
	atomic.AddUint64(&c.reconcileMismatches, 1)
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	limited := atomic.LoadUint64(&c.rateLimited)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":            total,
		"errorsTotal":              errs,
		"rateLimitedTotal":         limited,
		"avgDurationMs":            avg,
		"totalDurationMs":          totalMs,
		"payrollsCalculatedTotal":  atomic.LoadUint64(&c.payrollsCalculated),
		"cycleItemFailuresTotal":   atomic.LoadUint64(&c.cycleItemFailures),
		"paymentsInitiatedTotal":   atomic.LoadUint64(&c.paymentsInitiated),
		"paymentsSucceededTotal":   atomic.LoadUint64(&c.paymentsSucceeded),
		"paymentsFailedTotal":      atomic.LoadUint64(&c.paymentsFailed),
		"paymentRetriesTotal":      atomic.LoadUint64(&c.paymentRetries),
		"retriesExhaustedTotal":    atomic.LoadUint64(&c.retriesExhausted),
		"reconciledTotal":          atomic.LoadUint64(&c.reconciled),
		"reconcileMismatchesTotal": atomic.LoadUint64(&c.reconcileMismatches),
	}
}
