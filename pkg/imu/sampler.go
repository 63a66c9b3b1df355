package imu

import (
	"context"

	"github.com/golang/glog"
)

// Sensor is the 6-axis IMU collaborator. Every read is independent; there is
// no batching API.
type Sensor interface {
	AccelX() float32
	AccelY() float32
	AccelZ() float32
	GyroX() float32
	GyroY() float32
	GyroZ() float32
	TempC() float32
}

// Millis is a monotonic millisecond counter since boot.
type Millis func() uint32

// Sampler reads one Sample per tick into a Buffer. It must be the only
// writer of that buffer.
type Sampler struct {
	sensor Sensor
	millis Millis
	buf    *Buffer
}

// NewSampler creates a Sampler writing into buf.
func NewSampler(sensor Sensor, millis Millis, buf *Buffer) *Sampler {
	return &Sampler{sensor: sensor, millis: millis, buf: buf}
}

// Read takes one reading from the sensor.
func (s *Sampler) Read() Sample {
	return Sample{
		Timestamp: s.millis(),
		Accel:     [3]float32{s.sensor.AccelX(), s.sensor.AccelY(), s.sensor.AccelZ()},
		Gyro:      [3]float32{s.sensor.GyroX(), s.sensor.GyroY(), s.sensor.GyroZ()},
	}
}

// Tick reads one sample and stores it.
func (s *Sampler) Tick(ctx context.Context) error {
	wrapped, err := s.buf.Write(ctx, s.Read())
	if err != nil {
		return err
	}
	if wrapped {
		glog.V(4).Infof("sample batch %d ready", s.buf.Wraps())
	}
	return nil
}
