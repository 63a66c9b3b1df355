package host

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/itohio/imutag/pkg/transport"
)

// Serial represents a connection to a tag over a serial port.
type Serial struct {
	port     string
	baudRate int
	bufSize  int
	name     string

	conn      *transport.Serial
	frames    chan Frame
	done      chan struct{}
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
	counters  counters
}

// New creates a new Serial with the specified port, baud rate and buffer
// size. Frames are attributed to the device name.
func New(port string, baudRate int, bufSize int, name string) *Serial {
	if baudRate == 0 {
		baudRate = transport.DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Serial{
		port:     port,
		baudRate: baudRate,
		bufSize:  bufSize,
		name:     name,
		frames:   make(chan Frame, bufSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]transport.Port, error) {
	return transport.Ports()
}

// Connect opens the serial port and starts receiving frames.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return fmt.Errorf("already connected")
	}
	if d.done != nil {
		return fmt.Errorf("device closed")
	}

	conn, err := transport.OpenSerial(d.port, d.baudRate, transport.NoReadTimeout)
	if err != nil {
		return err
	}

	d.conn = conn
	d.connected = true
	d.done = make(chan struct{})

	go func() {
		defer close(d.done)
		receive(d.ctx, conn, d.name, d.frames, &d.counters)
	}()

	glog.Infof("%s connected on %s at %d baud", d.name, d.port, d.baudRate)
	return nil
}

// Close closes the connection and stops receiving frames. The frames
// channel is closed once the receiver has stopped.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	d.cancel()

	if err := d.conn.Close(); err != nil {
		glog.Warningf("error closing serial port: %v", err)
	}
	<-d.done
	d.conn = nil
	d.connected = false

	glog.Infof("%s disconnected: %v", d.name, d.counters.stats())
	return nil
}

// Frames returns the channel for reading frames.
func (d *Serial) Frames() <-chan Frame {
	return d.frames
}

// SyncTime sets the tag's calendar to t.
func (d *Serial) SyncTime(t time.Time) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected {
		return fmt.Errorf("not connected")
	}
	return syncTime(d.conn, t)
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// Stats returns the receiver counters.
func (d *Serial) Stats() Stats {
	return d.counters.stats()
}
