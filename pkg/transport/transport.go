// Package transport provides the byte stream between the tag and its peer.
package transport

import (
	"errors"
	"fmt"
	"io"
)

// FrameCapacity is the most a single write can carry.
const FrameCapacity = 1000

var (
	// ErrShortWrite is returned when a write exceeded the capacity and the
	// excess was dropped.
	ErrShortWrite = errors.New("write exceeds transport capacity")
	// ErrClosed is returned by operations on a closed transport.
	ErrClosed = errors.New("transport closed")
)

// Transport is a best-effort duplex byte stream. Read does not block: it
// returns (0, nil) when nothing has arrived. Write delivers p in one call
// or loses it; there is no acknowledgment.
type Transport interface {
	io.ReadWriteCloser
}

// Bounded limits each write to Capacity bytes, mirroring the fixed backing
// buffer of the radio stack. Bytes beyond it are lost.
type Bounded struct {
	Transport
	Capacity int
}

// NewBounded wraps t. A zero capacity selects FrameCapacity.
func NewBounded(t Transport, capacity int) *Bounded {
	if capacity <= 0 {
		capacity = FrameCapacity
	}
	return &Bounded{Transport: t, Capacity: capacity}
}

// Write writes at most Capacity bytes of p in a single call.
func (b *Bounded) Write(p []byte) (int, error) {
	if len(p) <= b.Capacity {
		return b.Transport.Write(p)
	}
	n, err := b.Transport.Write(p[:b.Capacity])
	if err != nil {
		return n, err
	}
	return n, fmt.Errorf("%w: %d of %d bytes sent", ErrShortWrite, n, len(p))
}
