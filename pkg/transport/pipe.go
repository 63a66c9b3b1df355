package transport

import (
	"sync"
)

// pipeBuffer is one direction of a Pipe.
type pipeBuffer struct {
	mu     sync.Mutex
	data   []byte
	closed bool
	notify chan struct{}
}

func newPipeBuffer() *pipeBuffer {
	return &pipeBuffer{notify: make(chan struct{}, 1)}
}

func (b *pipeBuffer) write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, ErrClosed
	}
	b.data = append(b.data, p...)
	select {
	case b.notify <- struct{}{}:
	default:
	}
	return len(p), nil
}

func (b *pipeBuffer) read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.data) == 0 && b.closed {
		return 0, ErrClosed
	}
	n := copy(p, b.data)
	b.data = b.data[n:]
	return n, nil
}

func (b *pipeBuffer) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.notify)
	}
}

// PipeEnd is one side of an in-memory duplex stream.
type PipeEnd struct {
	in  *pipeBuffer
	out *pipeBuffer
}

// Pipe creates two connected ends. Bytes written to one can be read from
// the other. Reads never block.
func Pipe() (*PipeEnd, *PipeEnd) {
	ab, ba := newPipeBuffer(), newPipeBuffer()
	return &PipeEnd{in: ba, out: ab}, &PipeEnd{in: ab, out: ba}
}

// Read implements Transport.
func (p *PipeEnd) Read(b []byte) (int, error) {
	return p.in.read(b)
}

// Write implements Transport.
func (p *PipeEnd) Write(b []byte) (int, error) {
	return p.out.write(b)
}

// Close closes both directions. Pending data can still be read by the peer.
func (p *PipeEnd) Close() error {
	p.in.close()
	p.out.close()
	return nil
}

// Readable is signalled when data may be available to Read. It is closed
// when the stream is closed.
func (p *PipeEnd) Readable() <-chan struct{} {
	return p.in.notify
}

var _ Transport = (*PipeEnd)(nil)
