package clock

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMillis struct {
	v atomic.Uint32
}

func (f *fakeMillis) now() uint32       { return f.v.Load() }
func (f *fakeMillis) advance(ms uint32) { f.v.Add(ms) }
func (f *fakeMillis) set(ms uint32)     { f.v.Store(ms) }

var boot = DateTime{2023, 9, 30, 15, 0, 0}

func TestMillisRTC_CountsSeconds(t *testing.T) {
	ms := &fakeMillis{}
	rtc := NewMillisRTC(ms.now, boot)
	assert.Equal(t, boot, rtc.Now())

	ms.advance(999)
	assert.Equal(t, boot, rtc.Now())

	ms.advance(1)
	assert.Equal(t, DateTime{2023, 9, 30, 15, 0, 1}, rtc.Now())

	ms.advance(9 * 3600 * 1000)
	assert.Equal(t, DateTime{2023, 10, 1, 0, 0, 1}, rtc.Now())
}

func TestMillisRTC_Adjust(t *testing.T) {
	ms := &fakeMillis{}
	ms.set(5000)
	rtc := NewMillisRTC(ms.now, boot)

	ms.advance(7000)
	rtc.Adjust(DateTime{2024, 2, 21, 15, 16, 38})
	assert.Equal(t, DateTime{2024, 2, 21, 15, 16, 38}, rtc.Now())

	ms.advance(2000)
	assert.Equal(t, DateTime{2024, 2, 21, 15, 16, 40}, rtc.Now())
}

func TestMillisRTC_NormalizesOutOfRange(t *testing.T) {
	ms := &fakeMillis{}
	rtc := NewMillisRTC(ms.now, boot)
	rtc.Adjust(DateTime{2024, 13, 1, 0, 0, 0})
	assert.Equal(t, DateTime{2025, 1, 1, 0, 0, 0}, rtc.Now())
}

func TestMillisRTC_SurvivesCounterWrap(t *testing.T) {
	ms := &fakeMillis{}
	ms.set(^uint32(0) - 499)
	rtc := NewMillisRTC(ms.now, boot)
	ms.advance(1500)
	assert.Equal(t, DateTime{2023, 9, 30, 15, 0, 1}, rtc.Now())
}

func TestMillisRTC_LongUptimeAcrossWrap(t *testing.T) {
	ms := &fakeMillis{}
	rtc := NewMillisRTC(ms.now, boot)
	c := New(rtc)

	// Hourly refreshes for 50 days; the counter wraps after about 49.7.
	const steps = 50 * 24
	prev := c.Now()
	for range steps {
		ms.advance(3600 * 1000)
		c.Refresh()
		now := c.Now()
		require.True(t, now.Time().After(prev.Time()), "clock went back from %v to %v", prev, now)
		prev = now
	}
	assert.Equal(t, FromTime(boot.Time().Add(steps*time.Hour)), c.Now())
}

func TestMillisRTC_FoldsElapsedSeconds(t *testing.T) {
	ms := &fakeMillis{}
	rtc := NewMillisRTC(ms.now, boot)

	ms.advance(2500)
	assert.Equal(t, DateTime{2023, 9, 30, 15, 0, 2}, rtc.Now())
	ms.advance(700)
	assert.Equal(t, DateTime{2023, 9, 30, 15, 0, 3}, rtc.Now(), "sub-second remainder carries over")

	ms.set(^uint32(0) - 1000)
	before := rtc.Now()
	ms.advance(2000)
	after := rtc.Now()
	assert.Equal(t, before.Time().Add(2*time.Second), after.Time())
}

func TestClock_RefreshAndSet(t *testing.T) {
	ms := &fakeMillis{}
	rtc := NewMillisRTC(ms.now, boot)
	c := New(rtc)
	assert.Equal(t, boot, c.Now())

	ms.advance(3000)
	assert.Equal(t, boot, c.Now(), "cache changes only on refresh")
	c.Refresh()
	assert.Equal(t, DateTime{2023, 9, 30, 15, 0, 3}, c.Now())

	c.Set(DateTime{2024, 2, 21, 15, 16, 38})
	assert.Equal(t, DateTime{2024, 2, 21, 15, 16, 38}, c.Now())
}

func TestDateTime_Valid(t *testing.T) {
	tests := []struct {
		d    DateTime
		want bool
	}{
		{DateTime{2024, 2, 21, 15, 16, 38}, true},
		{DateTime{2024, 2, 29, 0, 0, 0}, true},
		{DateTime{2023, 2, 29, 0, 0, 0}, false},
		{DateTime{2024, 13, 1, 0, 0, 0}, false},
		{DateTime{2024, 0, 1, 0, 0, 0}, false},
		{DateTime{2024, 1, 99, 0, 0, 0}, false},
		{DateTime{2024, 1, 31, 24, 0, 0}, false},
		{DateTime{2024, 1, 31, 23, 60, 0}, false},
		{DateTime{2024, 1, 31, 23, 59, 60}, false},
	}

	for _, tt := range tests {
		t.Run(tt.d.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.d.Valid())
		})
	}
}

func TestParseBoot(t *testing.T) {
	d, err := ParseBoot("2023/09/30 15:00:00")
	require.NoError(t, err)
	assert.Equal(t, boot, d)

	_, err = ParseBoot("Sep 30 2023")
	assert.Error(t, err)
}

func TestFromTime_RoundTrip(t *testing.T) {
	ts := time.Date(2024, 2, 21, 15, 16, 38, 0, time.UTC)
	assert.Equal(t, ts, FromTime(ts).Time())
}
