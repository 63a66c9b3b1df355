// Package command handles the time-sync command pushed by the transport peer.
//
// A command is a single line in the layout "YYYY/MM/DD HH:MM:SS". Only the
// length and separator positions are checked; numeric content is forwarded
// to the RTC as is unless strict checking is enabled.
package command

import (
	"errors"
	"fmt"
	"time"

	"github.com/itohio/imutag/pkg/clock"
)

// Length is the exact length of a valid command.
const Length = 19

// ErrInvalid is returned for lines that are not time-sync commands.
var ErrInvalid = errors.New("invalid time-sync command")

// Valid reports whether s has the positional shape of a time-sync command.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	return s[4] == '/' && s[7] == '/' && s[10] == ' ' && s[13] == ':' && s[16] == ':'
}

// Parse validates s and extracts its fields by fixed offsets.
func Parse(s string) (clock.DateTime, error) {
	if !Valid(s) {
		return clock.DateTime{}, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	return clock.DateTime{
		Year:   atoi(s[0:4]),
		Month:  atoi(s[5:7]),
		Day:    atoi(s[8:10]),
		Hour:   atoi(s[11:13]),
		Minute: atoi(s[14:16]),
		Second: atoi(s[17:19]),
	}, nil
}

// ParseStrict is Parse plus calendar range checks.
func ParseStrict(s string) (clock.DateTime, error) {
	d, err := Parse(s)
	if err != nil {
		return d, err
	}
	if !d.Valid() {
		return clock.DateTime{}, fmt.Errorf("%w: %q out of range", ErrInvalid, s)
	}
	return d, nil
}

// Format renders t as a command line, without terminator.
func Format(t time.Time) string {
	return t.Format(clock.Layout)
}

// atoi converts the leading decimal digits of s, after optional spaces and
// sign, returning 0 if there are none.
func atoi(s string) int {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	neg := false
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		neg = s[i] == '-'
		i++
	}
	n := 0
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = n*10 + int(s[i]-'0')
	}
	if neg {
		return -n
	}
	return n
}
