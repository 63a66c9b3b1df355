package command

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/imutag/pkg/clock"
)

func TestValid(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"reference", "2024/02/21 15:16:38", true},
		{"dash date", "2024-02-21 15:16:38", false},
		{"20 chars", "2024/02/21 15:16:38 ", false},
		{"20 chars valid prefix", "2024/02/21 15:16:380", false},
		{"18 chars", "2024/02/21 15:16:3", false},
		{"T separator", "2024/02/21T15:16:38", false},
		{"bad minute sep", "2024/02/21 15.16:38", false},
		{"bad second sep", "2024/02/21 15:16.38", false},
		{"month slash", "2024/02.21 15:16:38", false},
		{"empty", "", false},
		{"garbage in digit slots", "abcd/ef/gh ij:kl:mn", true},
		{"out of range", "2024/13/99 25:61:61", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Valid(tt.in))
		})
	}
}

func TestParse(t *testing.T) {
	d, err := Parse("2024/02/21 15:16:38")
	require.NoError(t, err)
	assert.Equal(t, clock.DateTime{Year: 2024, Month: 2, Day: 21, Hour: 15, Minute: 16, Second: 38}, d)

	_, err = Parse("2024-02-21 15:16:38")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParse_PermissiveContent(t *testing.T) {
	d, err := Parse("2024/13/99 25:61:61")
	require.NoError(t, err)
	assert.Equal(t, clock.DateTime{Year: 2024, Month: 13, Day: 99, Hour: 25, Minute: 61, Second: 61}, d)

	d, err = Parse("abcd/1x/ 7 -1:+2:ss")
	require.NoError(t, err)
	assert.Equal(t, clock.DateTime{Year: 0, Month: 1, Day: 7, Hour: -1, Minute: 2, Second: 0}, d)
}

func TestParseStrict(t *testing.T) {
	_, err := ParseStrict("2024/02/21 15:16:38")
	require.NoError(t, err)

	_, err = ParseStrict("2024/13/99 25:61:61")
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = ParseStrict("2023/02/29 00:00:00")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestFormat(t *testing.T) {
	s := Format(time.Date(2024, 2, 21, 15, 16, 38, 0, time.UTC))
	assert.Equal(t, "2024/02/21 15:16:38", s)
	assert.True(t, Valid(s))
}

// countingRTC records adjustments.
type countingRTC struct {
	now     clock.DateTime
	adjusts int
}

func (r *countingRTC) Now() clock.DateTime { return r.now }
func (r *countingRTC) Adjust(d clock.DateTime) {
	r.now = d
	r.adjusts++
}

func newProcessor(strict bool) (*Processor, *countingRTC, *clock.Clock) {
	rtc := &countingRTC{now: clock.DateTime{Year: 2023, Month: 9, Day: 30, Hour: 15}}
	clk := clock.New(rtc)
	return NewProcessor(clk, strict), rtc, clk
}

func TestProcessor_AppliesValidCommand(t *testing.T) {
	p, rtc, clk := newProcessor(false)
	p.Submit("2024/02/21 15:16:38")
	p.Tick()

	assert.Equal(t, 1, rtc.adjusts)
	assert.Equal(t, clock.DateTime{Year: 2024, Month: 2, Day: 21, Hour: 15, Minute: 16, Second: 38}, clk.Now())
	assert.Equal(t, 1, p.Applied())
}

func TestProcessor_DuplicateSuppression(t *testing.T) {
	p, rtc, _ := newProcessor(false)
	p.Submit("2024/02/21 15:16:38")
	p.Tick()
	p.Submit("2024/02/21 15:16:38")
	p.Tick()
	p.Tick()
	assert.Equal(t, 1, rtc.adjusts)

	p.Submit("2024/02/21 15:16:39")
	p.Tick()
	assert.Equal(t, 2, rtc.adjusts)
}

func TestProcessor_CoalescesBurst(t *testing.T) {
	p, rtc, clk := newProcessor(false)
	p.Submit("2024/02/21 15:16:38")
	p.Submit("2024/02/21 15:16:39")
	p.Submit("2024/02/21 15:16:40")
	p.Tick()
	assert.Equal(t, 1, rtc.adjusts)
	assert.Equal(t, 40, clk.Now().Second)
}

func TestProcessor_InvalidMarkedProcessed(t *testing.T) {
	p, rtc, _ := newProcessor(false)
	p.Submit("hello")
	p.Tick()
	assert.Equal(t, 0, rtc.adjusts)
	assert.Equal(t, "hello", p.last)

	// Resubmitting the same invalid line is not reprocessed.
	p.Submit("hello")
	p.Tick()
	assert.Equal(t, "hello", p.last)
	assert.Equal(t, 0, p.Applied())
}

func TestProcessor_ForwardsOutOfRange(t *testing.T) {
	p, rtc, _ := newProcessor(false)
	p.Submit("2024/13/99 25:61:61")
	p.Tick()
	require.Equal(t, 1, rtc.adjusts)
	assert.Equal(t, 13, rtc.now.Month)
}

func TestProcessor_StrictRejectsOutOfRange(t *testing.T) {
	p, rtc, _ := newProcessor(true)
	p.Submit("2024/13/99 25:61:61")
	p.Tick()
	assert.Equal(t, 0, rtc.adjusts)
}

// chunkReader returns one queued chunk per Read, then (0, nil).
type chunkReader struct {
	chunks [][]byte
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		return 0, nil
	}
	n := copy(p, c.chunks[0])
	c.chunks[0] = c.chunks[0][n:]
	if len(c.chunks[0]) == 0 {
		c.chunks = c.chunks[1:]
	}
	return n, nil
}

func TestIngest_IdleGapCompletesLine(t *testing.T) {
	p, rtc, _ := newProcessor(false)
	r := &chunkReader{chunks: [][]byte{[]byte("2024/02/21 "), []byte("15:16:38")}}
	in := NewIngest(r, p, 0, 3)

	require.NoError(t, in.Tick())
	require.NoError(t, in.Tick())
	for range 2 {
		require.NoError(t, in.Tick()) // idle
	}
	p.Tick()
	assert.Equal(t, 0, rtc.adjusts, "partial line must not be submitted before the idle timeout")

	require.NoError(t, in.Tick()) // idle
	p.Tick()
	assert.Equal(t, 1, rtc.adjusts)
}

func TestIngest_LineSpansQuietTicks(t *testing.T) {
	p, rtc, _ := newProcessor(false)
	r := &chunkReader{}
	in := NewIngest(r, p, 0, 3)

	r.chunks = [][]byte{[]byte("2024/02/21 ")}
	require.NoError(t, in.Tick())
	require.NoError(t, in.Tick()) // idle
	require.NoError(t, in.Tick()) // idle
	r.chunks = [][]byte{[]byte("15:16:38\n")}
	require.NoError(t, in.Tick())
	p.Tick()

	p.mu.Lock()
	got := p.received
	p.mu.Unlock()
	assert.Equal(t, "2024/02/21 15:16:38", got)
	assert.Equal(t, 1, rtc.adjusts)
}

func TestIngest_IdleWithoutDataIsQuiet(t *testing.T) {
	p, _, _ := newProcessor(false)
	in := NewIngest(&chunkReader{}, p, 0, 1)
	for range 5 {
		require.NoError(t, in.Tick())
	}
	p.mu.Lock()
	assert.Equal(t, "", p.received)
	p.mu.Unlock()
	assert.Zero(t, in.idle)
}

func TestIdleTicks(t *testing.T) {
	assert.Equal(t, 100, IdleTicks(time.Second, 10*time.Millisecond))
	assert.Equal(t, 4, IdleTicks(35*time.Millisecond, 10*time.Millisecond))
	assert.Equal(t, 1, IdleTicks(time.Millisecond, 10*time.Millisecond))
	assert.Equal(t, 1, IdleTicks(time.Second, 0))
}

func TestIngest_Terminators(t *testing.T) {
	p, _, _ := newProcessor(false)
	r := &chunkReader{chunks: [][]byte{[]byte("bad\r\n2024/02/21 15:16:38\nrest")}}
	in := NewIngest(r, p, 0, 0)

	require.NoError(t, in.Tick())
	p.mu.Lock()
	got := p.received
	p.mu.Unlock()
	assert.Equal(t, "2024/02/21 15:16:38", got)
	assert.Equal(t, []byte("rest"), in.line)
}

func TestIngest_DiscardsOverlongLine(t *testing.T) {
	p, _, _ := newProcessor(false)
	long := bytes.Repeat([]byte("x"), 10)
	r := &chunkReader{chunks: [][]byte{long, []byte("more\n"), []byte("ok\n")}}
	in := NewIngest(r, p, 8, 0)

	for i := 0; i < 3; i++ {
		require.NoError(t, in.Tick())
	}
	p.mu.Lock()
	assert.Equal(t, "", p.received)
	p.mu.Unlock()

	require.NoError(t, in.Tick())
	p.mu.Lock()
	assert.Equal(t, "ok", p.received)
	p.mu.Unlock()
}
