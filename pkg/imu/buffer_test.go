package imu

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniform(n uint32) Sample {
	v := float32(n)
	return Sample{
		Timestamp: n,
		Accel:     [3]float32{v, v, v},
		Gyro:      [3]float32{v, v, v},
	}
}

func TestBuffer_CursorAndReadyCycle(t *testing.T) {
	ctx := context.Background()
	b := NewBuffer()

	for cycle := 0; cycle < 3; cycle++ {
		for i := 0; i < BufferSlots; i++ {
			assert.Equal(t, i, b.Cursor())
			wrapped, err := b.Write(ctx, uniform(uint32(cycle*BufferSlots+i)))
			require.NoError(t, err)

			last := i == BufferSlots-1
			assert.Equal(t, last, wrapped, "cycle %d write %d", cycle, i)
			assert.Equal(t, last, b.Ready(), "cycle %d write %d", cycle, i)
		}
		assert.Equal(t, 0, b.Cursor())

		batch, ok := b.Snapshot(time.Millisecond)
		require.True(t, ok)
		assert.False(t, b.Ready())
		for i, s := range batch {
			assert.Equal(t, uint32(cycle*BufferSlots+i), s.Timestamp)
		}
	}
	assert.Equal(t, uint64(3), b.Wraps())
}

func TestBuffer_FlagStaysSetUntilConsumed(t *testing.T) {
	ctx := context.Background()
	b := NewBuffer()
	for i := 0; i < BufferSlots; i++ {
		_, err := b.Write(ctx, uniform(uint32(i)))
		require.NoError(t, err)
	}
	require.True(t, b.Ready())

	// Writes of the next batch do not clear it.
	_, err := b.Write(ctx, uniform(99))
	require.NoError(t, err)
	assert.True(t, b.Ready())

	batch, ok := b.Snapshot(0)
	require.True(t, ok)
	assert.Equal(t, uint32(99), batch[0].Timestamp)
	assert.Equal(t, uint32(1), batch[1].Timestamp)
	assert.False(t, b.Ready())
}

func TestBuffer_SnapshotTimesOutWhenHeld(t *testing.T) {
	ctx := context.Background()
	b := NewBuffer()
	for i := 0; i < BufferSlots; i++ {
		_, err := b.Write(ctx, uniform(uint32(i)))
		require.NoError(t, err)
	}

	require.NoError(t, b.token.Acquire(ctx))
	start := time.Now()
	_, ok := b.Snapshot(10 * time.Millisecond)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
	assert.True(t, b.Ready(), "flag must survive a skipped cycle")

	b.token.Release()
	_, ok = b.Snapshot(10 * time.Millisecond)
	assert.True(t, ok)
	assert.False(t, b.Ready())
}

func TestBuffer_WriteHonoursContext(t *testing.T) {
	b := NewBuffer()
	require.True(t, b.token.TryAcquire(0))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, err := b.Write(ctx, uniform(1))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, b.Cursor())
}

func TestToken_ReleaseUnheldPanics(t *testing.T) {
	tok := NewToken()
	assert.Panics(t, tok.Release)
}

// TestBuffer_NoTornSamples runs the writer and the reader at their reference
// relative rates and checks that no snapshot mixes fields of two writes.
func TestBuffer_NoTornSamples(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	b := NewBuffer()
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for n := uint32(1); ctx.Err() == nil; n++ {
			if _, err := b.Write(ctx, uniform(n)); err != nil {
				return
			}
		}
	}()

	var snapshots int
	for ctx.Err() == nil {
		if !b.Ready() {
			time.Sleep(50 * time.Microsecond)
			continue
		}
		batch, ok := b.Snapshot(time.Millisecond)
		if !ok {
			continue
		}
		snapshots++
		for i, s := range batch {
			v := float32(s.Timestamp)
			for _, a := range s.Axes() {
				require.Equal(t, v, a, "torn sample in slot %d", i)
			}
		}
	}
	wg.Wait()
	assert.Positive(t, snapshots)
}
