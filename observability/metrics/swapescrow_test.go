package metrics

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"swapvault/native/swapescrow"
)

func TestObserveOpLabelsByResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	ops := NewOperations(reg)

	ops.ObserveOp("exchange", nil)
	ops.ObserveOp("exchange", fmt.Errorf("wrap: %w", swapescrow.ErrAssetMismatch))
	ops.ObserveOp("cancel", swapescrow.ErrInvalidSigner)
	ops.ObserveOp("cancel", fmt.Errorf("boom"))

	require.Equal(t, float64(1), testutil.ToFloat64(ops.total.WithLabelValues("exchange", "ok")))
	require.Equal(t, float64(1), testutil.ToFloat64(ops.total.WithLabelValues("exchange", "asset_mismatch")))
	require.Equal(t, float64(1), testutil.ToFloat64(ops.total.WithLabelValues("cancel", "invalid_signer")))
	require.Equal(t, float64(1), testutil.ToFloat64(ops.total.WithLabelValues("cancel", "error")))
}

func TestTimerRecordsDurationSample(t *testing.T) {
	reg := prometheus.NewRegistry()
	ops := NewOperations(reg)

	done := ops.Timer("initialize")
	done()

	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "swapvault_escrow_op_duration_seconds" {
			continue
		}
		require.Len(t, family.GetMetric(), 1)
		require.Equal(t, uint64(1), family.GetMetric()[0].GetHistogram().GetSampleCount())
		return
	}
	t.Fatalf("duration histogram not registered")
}
