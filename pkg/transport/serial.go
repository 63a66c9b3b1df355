package transport

import (
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the UART bridge speed.
	DefaultBaudRate = 115200
	// DefaultReadTimeout bounds how long Read waits before reporting no data.
	DefaultReadTimeout = time.Millisecond
)

// Port describes an available serial port.
type Port struct {
	Name        string
	Description string
}

// Ports returns the serial ports present on the system.
func Ports() ([]Port, error) {
	names, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	result := make([]Port, 0, len(names))
	for _, name := range names {
		result = append(result, Port{Name: name, Description: name})
	}
	return result, nil
}

// Serial is a Transport over a serial port.
type Serial struct {
	serial.Port
	name string
}

// OpenSerial opens name at baudRate. Reads return after readTimeout with
// whatever arrived, possibly nothing. Zero values select the defaults.
func OpenSerial(name string, baudRate int, readTimeout time.Duration) (*Serial, error) {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if readTimeout == 0 {
		readTimeout = DefaultReadTimeout
	}

	port, err := serial.Open(name, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", name, err)
	}
	return &Serial{Port: port, name: name}, nil
}

// Name returns the port name.
func (s *Serial) Name() string {
	return s.name
}

// Read reads from the port. A port that has gone away reports ErrClosed.
func (s *Serial) Read(p []byte) (int, error) {
	n, err := s.Port.Read(p)
	return n, portError(err)
}

// Write writes to the port. A port that has gone away reports ErrClosed.
func (s *Serial) Write(p []byte) (int, error) {
	n, err := s.Port.Write(p)
	return n, portError(err)
}

// portError maps the serial library's closed-port error to ErrClosed.
func portError(err error) error {
	var pe interface{ Code() serial.PortErrorCode }
	if errors.As(err, &pe) && pe.Code() == serial.PortClosed {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}
	return err
}

var _ Transport = (*Serial)(nil)

// NoReadTimeout makes reads block until data arrives or the port closes.
var NoReadTimeout = serial.NoTimeout
