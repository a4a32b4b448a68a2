// Package timecode converts between HH:MM:SS text and whole seconds.
package timecode

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MalformedTimeError reports text that is not a usable HH:MM:SS value.
type MalformedTimeError struct {
	Text   string
	Reason string
}

func (e *MalformedTimeError) Error() string {
	return fmt.Sprintf("malformed time %q: %s", e.Text, e.Reason)
}

// Parse folds "HH:MM:SS" into seconds as h*3600 + m*60 + s.
// Fields past the third are ignored. Fields are not range checked,
// so "00:90:00" parses to 5400.
func Parse(text string) (int, error) {
	parts := strings.Split(text, ":")
	if len(parts) < 3 {
		return 0, &MalformedTimeError{Text: text, Reason: "want three fields"}
	}

	var fields [3]int
	for i := 0; i < 3; i++ {
		raw := strings.TrimSpace(parts[i])
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0, &MalformedTimeError{Text: text, Reason: fmt.Sprintf("field %d is not numeric", i+1)}
		}
		if n < 0 {
			return 0, &MalformedTimeError{Text: text, Reason: fmt.Sprintf("field %d is negative", i+1)}
		}
		fields[i] = n
	}

	total, ok := fold(fields)
	if !ok {
		return 0, &MalformedTimeError{Text: text, Reason: "value out of range"}
	}
	return total, nil
}

// maxSeconds leaves room for the start+1 step in Repair.
const maxSeconds = math.MaxInt - 1

// fold computes h*3600 + m*60 + s, failing instead of overflowing.
func fold(f [3]int) (int, bool) {
	if f[0] > maxSeconds/3600 {
		return 0, false
	}
	total := f[0] * 3600
	if f[1] > (maxSeconds-total)/60 {
		return 0, false
	}
	total += f[1] * 60
	if f[2] > maxSeconds-total {
		return 0, false
	}
	return total + f[2], true
}

// Format renders seconds as zero padded HH:MM:SS. Hours are not capped
// at 99. Negative input is a programming error and panics.
func Format(seconds int) string {
	if seconds < 0 {
		panic(fmt.Sprintf("timecode: negative seconds %d", seconds))
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// Repair returns end unchanged when it is after start, otherwise
// Format(start+1). The bool reports whether end was rewritten.
func Repair(start, end string) (string, bool, error) {
	startSec, err := Parse(start)
	if err != nil {
		return end, false, err
	}
	endSec, err := Parse(end)
	if err != nil {
		return end, false, err
	}
	if endSec > startSec {
		return end, false, nil
	}
	return Format(startSec + 1), true, nil
}
