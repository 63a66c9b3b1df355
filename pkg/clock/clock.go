package clock

import (
	"fmt"
	"sync"
	"time"
)

// DateTime is a calendar timestamp with one-second resolution. Fields are
// not range checked.
type DateTime struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
	Second int
}

// FromTime converts t to a DateTime in t's location.
func FromTime(t time.Time) DateTime {
	return DateTime{
		Year:   t.Year(),
		Month:  int(t.Month()),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: t.Second(),
	}
}

// Time converts d to a UTC time. Out-of-range fields are normalized, so
// month 13 becomes January of the following year.
func (d DateTime) Time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, d.Hour, d.Minute, d.Second, 0, time.UTC)
}

// Valid reports whether every field is within its calendar range.
func (d DateTime) Valid() bool {
	if d.Month < 1 || d.Month > 12 || d.Day < 1 || d.Hour < 0 || d.Hour > 23 ||
		d.Minute < 0 || d.Minute > 59 || d.Second < 0 || d.Second > 59 {
		return false
	}
	return d.Day <= time.Date(d.Year, time.Month(d.Month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (d DateTime) String() string {
	return fmt.Sprintf("%04d/%02d/%02d %02d:%02d:%02d", d.Year, d.Month, d.Day, d.Hour, d.Minute, d.Second)
}

// RTC is the real-time-clock peripheral.
type RTC interface {
	Now() DateTime
	Adjust(DateTime)
}

// Clock caches the RTC calendar for readers that must not touch the
// peripheral. It is refreshed periodically and after every adjustment.
type Clock struct {
	rtc RTC

	mu  sync.RWMutex
	now DateTime
}

// New creates a Clock primed from rtc.
func New(rtc RTC) *Clock {
	c := &Clock{rtc: rtc}
	c.Refresh()
	return c
}

// Refresh copies the RTC calendar into the cache.
func (c *Clock) Refresh() {
	now := c.rtc.Now()
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// Now returns the cached calendar.
func (c *Clock) Now() DateTime {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Set adjusts the RTC and refreshes the cache to match.
func (c *Clock) Set(d DateTime) {
	c.rtc.Adjust(d)
	c.Refresh()
}
