package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordTick(t *testing.T) {
	ticks := testutil.ToFloat64(ticksCounter)
	steps := testutil.ToFloat64(stepsCounter)
	coins := testutil.ToFloat64(coinsCounter)

	RecordTick(25, 0)
	RecordTick(17, 2)

	require.InDelta(t, ticks+2, testutil.ToFloat64(ticksCounter), 0.0001)
	require.InDelta(t, steps+42, testutil.ToFloat64(stepsCounter), 0.0001)
	require.InDelta(t, coins+2, testutil.ToFloat64(coinsCounter), 0.0001)
}

func TestGaugesAndRedemptions(t *testing.T) {
	SetActiveSessions(4)
	require.Equal(t, 4.0, testutil.ToFloat64(activeSessionsGauge))

	before := testutil.ToFloat64(redemptionCounter.WithLabelValues("insufficient"))
	RecordRedemption("insufficient")
	require.InDelta(t, before+1, testutil.ToFloat64(redemptionCounter.WithLabelValues("insufficient")), 0.0001)

	ts := time.Date(2025, time.April, 10, 10, 0, 0, 0, time.UTC)
	RecordLedgerWrite(ts)
	RecordLedgerWrite(time.Time{})
	require.Equal(t, float64(ts.Unix()), testutil.ToFloat64(walletWriteGauge))
}
