package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFor(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4}

	var counter int64
	seen := make([]bool, 100)
	err := For(context.Background(), len(seen), func(_ context.Context, i int) error {
		atomic.AddInt64(&counter, 1)
		seen[i] = true
		return nil
	}, cfg)

	require.NoError(t, err)
	assert.Equal(t, int64(100), counter)
	for i, ok := range seen {
		assert.True(t, ok, "item %d not run", i)
	}
}

func TestFor_Sequential(t *testing.T) {
	var order []int
	err := For(context.Background(), 5, func(_ context.Context, i int) error {
		order = append(order, i)
		return nil
	}, Config{Enabled: false})

	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestFor_JoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	err := For(context.Background(), 6, func(_ context.Context, i int) error {
		if i%2 == 1 {
			return boom
		}
		return nil
	}, Config{Enabled: true, NumWorkers: 3})

	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "item 1")
	assert.Contains(t, err.Error(), "item 5")
	assert.NotContains(t, err.Error(), "item 2")
}

func TestFor_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var counter int64
	err := For(ctx, 10, func(_ context.Context, _ int) error {
		atomic.AddInt64(&counter, 1)
		return nil
	}, DefaultConfig())

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, counter)
}

func BenchmarkFor(b *testing.B) {
	cfg := DefaultConfig()
	n := 64

	b.Run("parallel", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			var sum int64
			_ = For(context.Background(), n, func(_ context.Context, i int) error {
				atomic.AddInt64(&sum, int64(i))
				return nil
			}, cfg)
		}
	})

	b.Run("sequential", func(b *testing.B) {
		cfgSeq := cfg
		cfgSeq.Enabled = false
		for i := 0; i < b.N; i++ {
			var sum int64
			_ = For(context.Background(), n, func(_ context.Context, i int) error {
				atomic.AddInt64(&sum, int64(i))
				return nil
			}, cfgSeq)
		}
	})
}
