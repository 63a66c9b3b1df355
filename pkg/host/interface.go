package host

import "time"

// Device defines the interface for tags (real or mocked).
type Device interface {
	Connect() error
	Close() error
	Frames() <-chan Frame
	SyncTime(t time.Time) error
	IsConnected() bool
	Stats() Stats
}

// Ensure Device implements DeviceInterface.
var _ Device = (*Serial)(nil)

// Ensure MockedDevice implements DeviceInterface.
var _ Device = (*Mock)(nil)
