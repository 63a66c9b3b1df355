package clock

import (
	"sync"
	"time"
)

// MillisRTC is a software RTC that counts seconds from a millisecond
// source. It drifts with the source and loses its setting on restart.
type MillisRTC struct {
	millis func() uint32

	mu     sync.Mutex
	base   time.Time
	offset uint32
}

// NewMillisRTC creates an RTC set to boot, counting from millis.
func NewMillisRTC(millis func() uint32, boot DateTime) *MillisRTC {
	r := &MillisRTC{millis: millis}
	r.Adjust(boot)
	return r
}

// Adjust sets the calendar. Out-of-range fields are normalized.
func (r *MillisRTC) Adjust(d DateTime) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.base = d.Time()
	r.offset = r.millis()
}

// Now returns the calendar at the current millisecond count. Whole
// elapsed seconds are folded into the base, so the counter may wrap any
// number of times as long as Now is called at least once per wrap.
func (r *MillisRTC) Now() DateTime {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Unsigned subtraction survives one wrap of the counter.
	seconds := (r.millis() - r.offset) / 1000
	r.base = r.base.Add(time.Duration(seconds) * time.Second)
	r.offset += seconds * 1000
	return FromTime(r.base)
}

// Uptime returns a millisecond counter starting at zero when called.
// It wraps after about 49.7 days.
func Uptime() func() uint32 {
	start := time.Now()
	return func() uint32 {
		return uint32(time.Since(start).Milliseconds())
	}
}

// ParseBoot parses a boot timestamp in the sync command layout.
func ParseBoot(s string) (DateTime, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return DateTime{}, err
	}
	return FromTime(t), nil
}

// Layout is the calendar layout used by the time-sync command.
const Layout = "2006/01/02 15:04:05"
