package core

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/itohio/imutag/pkg/clock"
	"github.com/itohio/imutag/pkg/frame"
	"github.com/itohio/imutag/pkg/imu"
	"github.com/itohio/imutag/pkg/transport"
)

// Charge reports the battery state of charge.
type Charge interface {
	Percentage() int
}

// Source hands out completed sample batches.
type Source interface {
	Ready() bool
	Snapshot(timeout time.Duration) (imu.Batch, bool)
}

var _ Source = (*imu.Buffer)(nil)

// Stats counts transmitter outcomes.
type Stats struct {
	Sent      uint64 // Frames written
	Contended uint64 // Ticks that timed out waiting for the buffer
	Dropped   uint64 // Frames discarded as too large
	Short     uint64 // Frames cut short by the transport
	Bytes     uint64 // Bytes written
}

// Transmitter sends one frame per completed sample batch.
type Transmitter struct {
	src     Source
	charge  Charge
	sensor  imu.Sensor
	clk     *clock.Clock
	w       io.Writer
	timeout time.Duration
	limit   int

	scratch []byte

	sent      atomic.Uint64
	contended atomic.Uint64
	dropped   atomic.Uint64
	short     atomic.Uint64
	bytes     atomic.Uint64
}

// NewTransmitter creates a Transmitter. Frames longer than limit bytes are
// discarded whole; timeout bounds the wait for the buffer token.
func NewTransmitter(src Source, charge Charge, sensor imu.Sensor, clk *clock.Clock, w io.Writer, timeout time.Duration, limit int) *Transmitter {
	if limit <= 0 {
		limit = transport.FrameCapacity
	}
	return &Transmitter{
		src:     src,
		charge:  charge,
		sensor:  sensor,
		clk:     clk,
		w:       w,
		timeout: timeout,
		limit:   limit,
		scratch: make([]byte, 0, frame.PhysicalWorstCase),
	}
}

// Tick sends a frame if a batch is ready. It reports whether a frame was
// written. A token timeout is not an error: the batch stays ready and is
// retried on the next tick.
func (t *Transmitter) Tick() (bool, error) {
	if !t.src.Ready() {
		return false, nil
	}

	batch, ok := t.src.Snapshot(t.timeout)
	if !ok {
		t.contended.Add(1)
		glog.V(1).Infof("sample buffer busy for %v, skipping", t.timeout)
		return false, nil
	}

	rec := frame.Record{
		Battery: t.charge.Percentage(),
		TempC:   t.sensor.TempC(),
		Date:    t.clk.Now(),
		Samples: batch,
	}
	data, err := frame.Encode(t.scratch[:0], rec, t.limit)
	if err != nil {
		t.dropped.Add(1)
		glog.Warningf("dropping frame: %v", err)
		return false, nil
	}
	t.scratch = data[:0]

	n, err := t.w.Write(data)
	t.bytes.Add(uint64(n))
	switch {
	case errors.Is(err, transport.ErrShortWrite):
		t.short.Add(1)
		glog.Warningf("frame cut to %d of %d bytes", n, len(data))
		return true, nil
	case err != nil:
		return false, fmt.Errorf("failed to write frame: %w", err)
	}
	t.sent.Add(1)
	return true, nil
}

// Stats returns the counters so far.
func (t *Transmitter) Stats() Stats {
	return Stats{
		Sent:      t.sent.Load(),
		Contended: t.contended.Load(),
		Dropped:   t.dropped.Load(),
		Short:     t.short.Load(),
		Bytes:     t.bytes.Load(),
	}
}
