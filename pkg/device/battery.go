package device

import (
	"sync/atomic"

	"github.com/chewxy/math32"

	"github.com/itohio/imutag/pkg/battery"
	"github.com/itohio/imutag/pkg/config"
	"github.com/itohio/imutag/pkg/imu"
)

// ADCMax is the largest 10-bit conversion result.
const ADCMax = 1023

// Battery simulates a linearly discharging cell behind the VBAT divider.
type Battery struct {
	cfg      *config.MockConfig
	millis   imu.Millis
	mvPerLSB float32
	divider  float32
}

var _ battery.ADC = (*Battery)(nil)

// NewBattery creates a simulated battery ADC. The conversion parameters
// are the inverse of the ones the aggregator uses.
func NewBattery(cfg *config.MockConfig, bat *config.BatteryConfig, millis imu.Millis) *Battery {
	if cfg == nil {
		cfg = &config.Default().Mock
	}
	if bat == nil {
		bat = &config.Default().Battery
	}
	return &Battery{
		cfg:      cfg,
		millis:   millis,
		mvPerLSB: float32(bat.MilliVoltsPerLSB),
		divider:  float32(bat.Divider),
	}
}

// Voltage returns the simulated cell voltage now.
func (b *Battery) Voltage() float32 {
	full, empty := float32(b.cfg.BatteryFull), float32(b.cfg.BatteryEmpty)
	total := float32(b.cfg.DischargeTime.Seconds())
	if total <= 0 {
		return full
	}
	frac := math32.Min(float32(b.millis())/1000/total, 1)
	return full - (full-empty)*frac
}

// Get implements battery.ADC.
func (b *Battery) Get() uint16 {
	if b.mvPerLSB <= 0 || b.divider <= 0 {
		return 0
	}
	raw := math32.Floor(b.Voltage()*1000/b.divider/b.mvPerLSB + 0.5)
	return uint16(math32.Max(0, math32.Min(raw, ADCMax)))
}

// Pin records the level of a simulated output.
type Pin struct {
	low   atomic.Bool
	count atomic.Int32
}

var _ battery.Pin = (*Pin)(nil)

// Low drives the pin low.
func (p *Pin) Low() {
	p.low.Store(true)
	p.count.Add(1)
}

// IsLow reports whether the pin has been driven low.
func (p *Pin) IsLow() bool {
	return p.low.Load()
}

// Writes returns how many times the pin was driven.
func (p *Pin) Writes() int {
	return int(p.count.Load())
}
