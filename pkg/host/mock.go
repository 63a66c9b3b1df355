package host

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/itohio/imutag/pkg/config"
	"github.com/itohio/imutag/pkg/core"
	"github.com/itohio/imutag/pkg/transport"
)

// Mock runs a simulated tag in-process and receives its frames over an
// in-memory pipe.
type Mock struct {
	cfg *config.Config

	frames    chan Frame
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
	counters  counters

	host     *transport.PipeEnd
	tag      *core.Core
	done     chan struct{}
	coreDone chan error
}

// NewMock creates a new mocked device instance.
func NewMock(cfg *config.Config) *Mock {
	if cfg == nil {
		cfg = config.Default()
	}

	bufSize := cfg.Host.BufferSize
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Mock{
		cfg:    cfg,
		frames: make(chan Frame, bufSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Connect starts the simulated tag.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}
	if m.done != nil {
		return fmt.Errorf("device closed")
	}

	p, err := core.Simulated(m.cfg)
	if err != nil {
		return err
	}

	tagEnd, hostEnd := transport.Pipe()
	m.host = hostEnd
	m.tag = core.New(m.cfg, tagEnd, p)
	m.connected = true
	m.done = make(chan struct{})
	m.coreDone = make(chan error, 1)

	go func() {
		m.coreDone <- m.tag.Run(m.ctx)
	}()
	go func() {
		defer close(m.done)
		receive(m.ctx, &blockingPipe{PipeEnd: hostEnd, ctx: m.ctx}, m.cfg.Device.Name, m.frames, &m.counters)
	}()

	return nil
}

// Close stops the simulated tag. The frames channel is closed once the
// receiver has stopped.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil
	}

	m.cancel()
	m.host.Close()
	<-m.done
	err := <-m.coreDone
	m.connected = false

	return err
}

// Frames returns the channel for reading frames.
func (m *Mock) Frames() <-chan Frame {
	return m.frames
}

// SyncTime sets the simulated tag's calendar to t.
func (m *Mock) SyncTime(t time.Time) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected {
		return fmt.Errorf("not connected")
	}
	return syncTime(m.host, t)
}

// IsConnected returns whether the device is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// Stats returns the receiver counters.
func (m *Mock) Stats() Stats {
	return m.counters.stats()
}

// Core returns the simulated tag, or nil before Connect.
func (m *Mock) Core() *core.Core {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tag
}

// blockingPipe waits for data instead of returning empty reads, which
// bufio.Scanner would treat as a stalled reader.
type blockingPipe struct {
	*transport.PipeEnd
	ctx context.Context
}

func (b *blockingPipe) Read(p []byte) (int, error) {
	for {
		n, err := b.PipeEnd.Read(p)
		if n > 0 || err != nil {
			return n, err
		}
		select {
		case <-b.ctx.Done():
			return 0, io.EOF
		case <-b.Readable():
		}
	}
}
