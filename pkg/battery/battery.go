package battery

import (
	"math"
	"sync/atomic"

	"github.com/golang/glog"
)

const (
	// RingSize is the number of raw readings averaged per aggregation.
	RingSize = 8

	// DefaultMilliVoltsPerLSB is the scale of a 10-bit ADC with a 3.6 V range.
	DefaultMilliVoltsPerLSB = 3600.0 / 1024.0
	// DefaultDividerCompensation undoes the VBAT resistor divider.
	DefaultDividerCompensation = 3.004008
)

// ADC reads one raw count from the battery channel.
type ADC interface {
	Get() uint16
}

// Pin is the enable line that gates the battery divider. Driving it low
// enables the measurement.
type Pin interface {
	Low()
}

// Ring holds the last RingSize raw readings. Slots are individually atomic
// but the ring as a whole is not: an average may mix readings from two
// sampler ticks, which is acceptable for advisory telemetry.
type Ring struct {
	values [RingSize]atomic.Uint32
	cursor int // owned by the sampler
}

// Put overwrites the oldest reading and advances the cursor.
func (r *Ring) Put(v uint16) {
	r.values[r.cursor].Store(uint32(v))
	r.cursor = (r.cursor + 1) % RingSize
}

// Mean returns the integer mean of all slots.
func (r *Ring) Mean() uint32 {
	var sum uint32
	for i := range r.values {
		sum += r.values[i].Load()
	}
	return sum / RingSize
}

// Sampler is the periodic ADC reader. It is the only writer of its Ring.
type Sampler struct {
	adc    ADC
	enable Pin
	ring   *Ring

	enabled bool
}

// NewSampler creates a Sampler. enable may be nil when the divider is always on.
func NewSampler(adc ADC, enable Pin, ring *Ring) *Sampler {
	return &Sampler{adc: adc, enable: enable, ring: ring}
}

// Tick reads one count into the ring. The enable pin is asserted on the first
// tick and held for the life of the sampler.
func (s *Sampler) Tick() {
	if !s.enabled {
		if s.enable != nil {
			s.enable.Low()
		}
		s.enabled = true
	}
	s.ring.Put(s.adc.Get())
}

// Aggregator converts the ring average into a state-of-charge percentage.
type Aggregator struct {
	ring  *Ring
	curve Curve

	mvPerLSB float32
	divider  float32

	percentage atomic.Int32
	voltage    atomic.Uint32 // float32 bits, for diagnostics
}

// NewAggregator creates an Aggregator. Zero scale factors select the defaults.
func NewAggregator(ring *Ring, curve Curve, mvPerLSB, divider float32) *Aggregator {
	if len(curve) == 0 {
		curve = DefaultCurve
	}
	if mvPerLSB == 0 {
		mvPerLSB = DefaultMilliVoltsPerLSB
	}
	if divider == 0 {
		divider = DefaultDividerCompensation
	}
	return &Aggregator{
		ring:     ring,
		curve:    curve,
		mvPerLSB: mvPerLSB,
		divider:  divider,
	}
}

// Tick recomputes the percentage from the current ring contents.
func (a *Aggregator) Tick() {
	v := a.Voltage(a.ring.Mean())
	pct := a.curve.Lookup(v)
	if prev := a.percentage.Swap(int32(pct)); prev != int32(pct) {
		glog.V(3).Infof("battery %.3fV -> %d%%", v, pct)
	}
	a.voltage.Store(math.Float32bits(v))
}

// Voltage converts a raw mean count into volts at the cell.
func (a *Aggregator) Voltage(mean uint32) float32 {
	return float32(mean) * a.mvPerLSB * a.divider / 1000
}

// Percentage returns the last computed state of charge.
func (a *Aggregator) Percentage() int {
	return int(a.percentage.Load())
}

// LastVoltage returns the cell voltage of the last aggregation.
func (a *Aggregator) LastVoltage() float32 {
	return math.Float32frombits(a.voltage.Load())
}
