package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"swapvault/native/swapescrow"
)

// Operations tracks escrow operation outcomes for Prometheus scraping. The
// result label distinguishes the escrow failure kinds so rejected exchanges
// and cancellations are observable per cause.
type Operations struct {
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewOperations builds and registers the operation collectors.
func NewOperations(reg prometheus.Registerer) *Operations {
	ops := &Operations{
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "swapvault",
			Subsystem: "escrow",
			Name:      "ops_total",
			Help:      "Escrow operations processed, by operation and result.",
		}, []string{"op", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "swapvault",
			Subsystem: "escrow",
			Name:      "op_duration_seconds",
			Help:      "Escrow operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	if reg != nil {
		reg.MustRegister(ops.total, ops.duration)
	}
	return ops
}

// ObserveOp records one operation outcome.
func (o *Operations) ObserveOp(op string, err error) {
	o.total.WithLabelValues(op, resultLabel(err)).Inc()
}

// Timer returns a function that records the operation latency when called.
func (o *Operations) Timer(op string) func() {
	start := time.Now()
	return func() {
		o.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, swapescrow.ErrInvalidSigner):
		return "invalid_signer"
	case errors.Is(err, swapescrow.ErrEscrowNotFound):
		return "not_found"
	case errors.Is(err, swapescrow.ErrAssetMismatch):
		return "asset_mismatch"
	case errors.Is(err, swapescrow.ErrAccountOwnership):
		return "ownership_mismatch"
	case errors.Is(err, swapescrow.ErrAddressCollision):
		return "address_collision"
	case errors.Is(err, swapescrow.ErrAllocation):
		return "allocation_failure"
	default:
		return "error"
	}
}
