package library

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"libraryos/internal/storage"
)

// collectSums returns the summed value of every int64 counter the reader has
// seen, keyed by instrument name.
func collectSums(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				sums[m.Name] += dp.Value
			}
		}
	}
	return sums
}

func TestCountersRecordCirculation(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { mp.Shutdown(context.Background()) })

	store := storage.NewMemory()
	seedStore(t, store)
	svc, clock := newTestService(t, store, WithMeterProvider(mp))
	ctx := context.Background()

	ok, err := svc.BorrowBook(ctx, "member-1", "2")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = svc.BorrowBook(ctx, "member-2", "2")
	require.NoError(t, err)
	require.False(t, ok)

	clock.Advance(15*24*time.Hour + time.Hour)
	require.NoError(t, svc.ReturnBook(ctx, svc.UserTransactions("member-1")[0].ID))

	sums := collectSums(t, reader)
	assert.Equal(t, int64(1), sums["library.borrows"])
	assert.Equal(t, int64(1), sums["library.borrow_refusals"])
	assert.Equal(t, int64(1), sums["library.returns"])
	assert.Equal(t, int64(2000), sums["library.penalty_total"])
}

func TestCountersSkipPenaltyForOnTimeReturn(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { mp.Shutdown(context.Background()) })

	store := storage.NewMemory()
	seedStore(t, store)
	svc, clock := newTestService(t, store, WithMeterProvider(mp))
	ctx := context.Background()

	ok, err := svc.BorrowBook(ctx, "member-1", "1")
	require.NoError(t, err)
	require.True(t, ok)
	clock.Advance(3 * 24 * time.Hour)
	require.NoError(t, svc.ReturnBook(ctx, svc.UserTransactions("member-1")[0].ID))

	sums := collectSums(t, reader)
	assert.Equal(t, int64(1), sums["library.returns"])
	assert.Zero(t, sums["library.penalty_total"])
}
