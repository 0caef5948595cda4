// Package coerce converts raw attribute and element text from MassHunter
// data files into typed Go values. All functions are pure: every failure
// is reported as an error wrapping one of the sentinel values below, and
// no partial result is ever returned alongside a non-nil error.
package coerce

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrMalformedValue means the text is not a well-formed representation
	// of the requested type.
	ErrMalformedValue = errors.New("coerce: malformed value")
	// ErrUnknownUnit means a unit suffix is not one the software can handle.
	ErrUnknownUnit = errors.New("coerce: unknown unit")
	// ErrInvalidRange means the value parsed but violates a range constraint.
	ErrInvalidRange = errors.New("coerce: value out of range")
	// ErrInvalidValue means the value parsed but violates a domain constraint.
	ErrInvalidValue = errors.New("coerce: invalid value")
)

// Float parses raw as a 64-bit float. Empty strings and trailing garbage
// are malformed.
func Float(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrMalformedValue)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrMalformedValue, raw)
	}
	return v, nil
}

// Int parses raw as a base-10 integer.
func Int(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrMalformedValue)
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrMalformedValue, raw)
	}
	return int(v), nil
}

// Bool parses the boolean spellings MassHunter files use.
// True values are y, yes, t, true, on, 1 and -1; false values are
// n, no, f, false, off and 0. The worklist format uses -1 for "yes".
func Bool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "y", "yes", "t", "true", "on", "1", "-1":
		return true, nil
	case "n", "no", "f", "false", "off", "0":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q is not a boolean", ErrMalformedValue, raw)
}

var durationRE = regexp.MustCompile(`^([+-]?[0-9]+(?:\.[0-9]+)?)\s*([A-Za-z]*)$`)

// Duration parses a magnitude with an optional unit suffix, e.g. "12min",
// "720sec" or "500ms". A bare magnitude is in minutes, matching how
// retention times are written in CEF and worklist files. The result is
// normalized to a time.Duration regardless of the source unit.
func Duration(raw string) (time.Duration, error) {
	m := durationRE.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return 0, fmt.Errorf("%w: %q is not a duration", ErrMalformedValue, raw)
	}
	mag, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrMalformedValue, m[1])
	}
	var unit time.Duration
	switch strings.ToLower(m[2]) {
	case "", "m", "min", "mins", "minute", "minutes":
		unit = time.Minute
	case "s", "sec", "secs", "second", "seconds":
		unit = time.Second
	case "ms", "msec", "millisecond", "milliseconds":
		unit = time.Millisecond
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, m[2])
	}
	if mag < 0 {
		return 0, fmt.Errorf("%w: negative duration %q", ErrInvalidRange, raw)
	}
	return time.Duration(mag * float64(unit)), nil
}

// Timestamp layouts as written by the acquisition software. The zone may
// be spelled ±hh:mm or ±hhmm, and seconds may carry a fraction.
var timestampLayouts = []string{
	"2006-01-02T15:04:05-07:00",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02T15:04:05Z",
}

// Timestamp parses an acquisition timestamp. An empty value means "not
// acquired" and yields the Unix epoch, which is how the worklist format
// marks jobs that have not run.
func Timestamp(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Unix(0, 0).UTC(), nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q is not a timestamp", ErrMalformedValue, raw)
}
