package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChaosZeroValuePassesThrough(t *testing.T) {
	opts := ChaosOptions{}
	assert.False(t, opts.Enabled())
	exerciseStore(t, NewChaos(NewMemory(), opts))
}

func TestChaosFailsEveryCallAtFullRate(t *testing.T) {
	ctx := context.Background()
	inner := NewMemory()
	c := NewChaos(inner, ChaosOptions{FailureRate: 1})

	assert.ErrorIs(t, c.Put(ctx, KeyBooks, []byte(`[]`)), ErrInjected)
	_, err := c.Get(ctx, KeyBooks)
	assert.ErrorIs(t, err, ErrInjected)
	assert.Equal(t, 2, c.Injected())
	assert.Equal(t, 0, inner.Puts())

	c.SetFailureRate(0)
	require.NoError(t, c.Put(ctx, KeyBooks, []byte(`[]`)))
	assert.Equal(t, 1, inner.Puts())
}

func TestChaosPartialRateIsDeterministicPerSeed(t *testing.T) {
	ctx := context.Background()
	run := func() []bool {
		c := NewChaos(NewMemory(), ChaosOptions{FailureRate: 0.5, Seed: 42})
		out := make([]bool, 50)
		for i := range out {
			out[i] = c.Put(ctx, KeyActivityLogs, []byte(`[]`)) != nil
		}
		return out
	}

	first := run()
	assert.Equal(t, first, run())
	assert.Contains(t, first, true)
	assert.Contains(t, first, false)
}

func TestChaosLatencyHonoursCancellation(t *testing.T) {
	c := NewChaos(NewMemory(), ChaosOptions{Latency: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := c.Put(ctx, KeyBooks, []byte(`[]`))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOpenWrapsChaos(t *testing.T) {
	s, err := Open(context.Background(), Options{
		Driver: DriverMemory,
		Chaos:  ChaosOptions{FailureRate: 1},
	})
	require.NoError(t, err)
	_, ok := s.(*Chaos)
	assert.True(t, ok)
}
