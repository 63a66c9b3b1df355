package transport

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

func TestPipe_Duplex(t *testing.T) {
	a, b := Pipe()

	n, err := a.Write([]byte("ping"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	buf := make([]byte, 16)
	n, err = b.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf[:n]))

	_, err = b.Write([]byte("pong"))
	require.NoError(t, err)
	n, err = a.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(buf[:n]))
}

func TestPipe_ReadDoesNotBlock(t *testing.T) {
	a, _ := Pipe()
	n, err := a.Read(make([]byte, 8))
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestPipe_PartialReads(t *testing.T) {
	a, b := Pipe()
	_, err := a.Write([]byte("abcdef"))
	require.NoError(t, err)

	buf := make([]byte, 4)
	n, _ := b.Read(buf)
	assert.Equal(t, "abcd", string(buf[:n]))
	n, _ = b.Read(buf)
	assert.Equal(t, "ef", string(buf[:n]))
}

func TestPipe_Close(t *testing.T) {
	a, b := Pipe()
	_, err := a.Write([]byte("last"))
	require.NoError(t, err)
	require.NoError(t, a.Close())

	_, err = a.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrClosed)

	buf := make([]byte, 8)
	n, err := b.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "last", string(buf[:n]))

	_, err = b.Read(buf)
	assert.ErrorIs(t, err, ErrClosed)

	select {
	case _, ok := <-b.Readable():
		if ok {
			_, ok = <-b.Readable()
		}
		assert.False(t, ok)
	default:
		t.Fatal("readable channel not closed")
	}
}

func TestBounded_TruncatesSingleWrite(t *testing.T) {
	a, b := Pipe()
	bt := NewBounded(a, 8)

	n, err := bt.Write([]byte("0123456789"))
	assert.ErrorIs(t, err, ErrShortWrite)
	assert.Equal(t, 8, n)

	buf := make([]byte, 16)
	n, _ = b.Read(buf)
	assert.Equal(t, "01234567", string(buf[:n]))
}

func TestBounded_Defaults(t *testing.T) {
	a, b := Pipe()
	bt := NewBounded(a, 0)
	assert.Equal(t, FrameCapacity, bt.Capacity)

	payload := bytes.Repeat([]byte("x"), FrameCapacity)
	n, err := bt.Write(payload)
	require.NoError(t, err)
	assert.Equal(t, FrameCapacity, n)

	buf := make([]byte, 2*FrameCapacity)
	n, _ = b.Read(buf)
	assert.Equal(t, FrameCapacity, n)
}

type portErr struct {
	code serial.PortErrorCode
}

func (e portErr) Error() string              { return "port error" }
func (e portErr) Code() serial.PortErrorCode { return e.code }

// failingPort is a serial.Port whose reads and writes fail with err.
type failingPort struct {
	serial.Port
	err error
}

func (p *failingPort) Read([]byte) (int, error)  { return 0, p.err }
func (p *failingPort) Write([]byte) (int, error) { return 0, p.err }

func TestSerial_ClosedPortReportsErrClosed(t *testing.T) {
	s := &Serial{Port: &failingPort{err: portErr{serial.PortClosed}}, name: "ttyACM0"}

	_, err := s.Read(make([]byte, 8))
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSerial_OtherErrorsPassThrough(t *testing.T) {
	busy := portErr{serial.PortBusy}
	s := &Serial{Port: &failingPort{err: busy}}

	_, err := s.Read(make([]byte, 8))
	assert.Equal(t, busy, err)
	assert.NotErrorIs(t, err, ErrClosed)

	s = &Serial{Port: &failingPort{err: errors.New("io")}}
	_, err = s.Write([]byte("x"))
	assert.NotErrorIs(t, err, ErrClosed)
}
