package imu

import (
	"context"
	"sync/atomic"
	"time"
)

// BufferSlots is the number of samples per frame.
const BufferSlots = 4

// AxesPerSample is the number of floats each sample contributes to a frame.
const AxesPerSample = 6

// Sample is one time-stamped 6-axis reading.
type Sample struct {
	Timestamp uint32     // Milliseconds since boot, wraps like millis()
	Accel     [3]float32 // Acceleration X, Y, Z (g)
	Gyro      [3]float32 // Angular rate X, Y, Z (dps)
}

// Axes returns the sample in frame order: accel X/Y/Z then gyro X/Y/Z.
func (s Sample) Axes() [AxesPerSample]float32 {
	return [AxesPerSample]float32{s.Accel[0], s.Accel[1], s.Accel[2], s.Gyro[0], s.Gyro[1], s.Gyro[2]}
}

// Batch is a consistent copy of all buffer slots in slot order.
type Batch [BufferSlots]Sample

// Buffer is the fixed-capacity sample store shared by the sensor sampler
// (sole writer) and the transmitter (reader).
//
// Ownership:
//   - slots: written only by the writer, under the token; read under the token.
//   - cursor: owned by the writer.
//   - ready: set by the writer on wraparound, cleared only by the reader.
type Buffer struct {
	token  *Token
	slots  [BufferSlots]Sample
	cursor int
	ready  atomic.Bool

	wraps atomic.Uint64
}

// NewBuffer creates an empty buffer with a released token.
func NewBuffer() *Buffer {
	return &Buffer{token: NewToken()}
}

// Write stores s at the cursor and advances it. It reports true when the
// cursor wrapped to 0 and the batch-ready flag was set.
//
// The token is held only for the slot copy; a reader holds it only for a
// batch copy, so the writer never waits longer than one Snapshot.
func (b *Buffer) Write(ctx context.Context, s Sample) (bool, error) {
	if err := b.token.Acquire(ctx); err != nil {
		return false, err
	}
	b.slots[b.cursor] = s
	b.token.Release()

	b.cursor++
	if b.cursor < BufferSlots {
		return false, nil
	}
	b.cursor = 0
	b.wraps.Add(1)
	b.ready.Store(true)
	return true, nil
}

// Ready peeks at the batch-ready flag without taking the token.
func (b *Buffer) Ready() bool {
	return b.ready.Load()
}

// Cursor returns the next slot to be written. It must only be called from
// the writer's goroutine.
func (b *Buffer) Cursor() int {
	return b.cursor
}

// Wraps returns how many times the writer has completed a batch.
func (b *Buffer) Wraps() uint64 {
	return b.wraps.Load()
}

// Snapshot tries to take the token within timeout, copies every slot and
// clears the ready flag. It returns false, leaving the flag untouched, if
// the token could not be taken in time.
func (b *Buffer) Snapshot(timeout time.Duration) (Batch, bool) {
	if !b.token.TryAcquire(timeout) {
		return Batch{}, false
	}
	batch := Batch(b.slots)
	b.ready.Store(false)
	b.token.Release()
	return batch, true
}
