// Package device simulates the tag's peripherals: the 6-axis IMU, the
// battery voltage divider ADC and its enable pin.
package device

import (
	"time"

	"github.com/chewxy/math32"

	"github.com/itohio/imutag/pkg/config"
	"github.com/itohio/imutag/pkg/imu"
)

// Gravity is the static accelerometer reading on the Z axis (g).
const Gravity = 1.0

// IMU simulates an arm swing seen from a wrist-mounted sensor.
// Readings are a function of time only, so repeated reads at the same
// instant agree.
type IMU struct {
	cfg    *config.MockConfig
	millis imu.Millis
}

var _ imu.Sensor = (*IMU)(nil)

// NewIMU creates a simulated sensor driven by millis.
func NewIMU(cfg *config.MockConfig, millis imu.Millis) *IMU {
	if cfg == nil {
		cfg = &config.Default().Mock
	}
	return &IMU{cfg: cfg, millis: millis}
}

// phase returns the swing phase in radians and the elapsed seconds.
func (m *IMU) phase() (float32, float32) {
	t := float32(m.millis()) / 1000
	period := float32(m.cfg.MotionPeriod.Seconds())
	if period <= 0 {
		period = 1
	}
	return 2 * math32.Pi * t / period, t
}

func (m *IMU) noise(t, seed float32) float32 {
	return (math32.Sin(t*(13.7+seed)) + math32.Cos(t*(7.3+seed))) * float32(m.cfg.NoiseLevel) * 0.5
}

// AccelX follows the forward swing of the arm.
func (m *IMU) AccelX() float32 {
	p, t := m.phase()
	return float32(m.cfg.AccelAmplitude)*math32.Sin(p) + m.noise(t, 0)
}

// AccelY is the sideways sway at twice the swing rate.
func (m *IMU) AccelY() float32 {
	p, t := m.phase()
	return 0.5*float32(m.cfg.AccelAmplitude)*math32.Sin(2*p) + m.noise(t, 1)
}

// AccelZ is gravity plus a small vertical bob.
func (m *IMU) AccelZ() float32 {
	p, t := m.phase()
	return Gravity + 0.2*float32(m.cfg.AccelAmplitude)*math32.Cos(p) + m.noise(t, 2)
}

// GyroX is the derivative of the swing angle, so it leads AccelX.
func (m *IMU) GyroX() float32 {
	p, t := m.phase()
	return float32(m.cfg.GyroAmplitude)*math32.Cos(p) + m.noise(t, 3)
}

// GyroY is the forearm roll that accompanies the swing.
func (m *IMU) GyroY() float32 {
	p, t := m.phase()
	return 0.3*float32(m.cfg.GyroAmplitude)*math32.Sin(p) + m.noise(t, 4)
}

// GyroZ is a small yaw wobble at twice the swing rate.
func (m *IMU) GyroZ() float32 {
	p, t := m.phase()
	return 0.1*float32(m.cfg.GyroAmplitude)*math32.Cos(2*p) + m.noise(t, 5)
}

// TempC drifts half a degree around the configured die temperature.
func (m *IMU) TempC() float32 {
	_, t := m.phase()
	return float32(m.cfg.TempC) + 0.5*math32.Sin(2*math32.Pi*t/float32(time.Minute.Seconds()))
}
