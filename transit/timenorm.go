package transit

import (
	"errors"
	"log"
	"strings"
	"time"
)

// JST is the fixed regional offset assumed for wall-clock inputs that carry
// no UTC offset of their own.
var JST = time.FixedZone("JST", 9*60*60)

// ErrInvalidTimeFormat is returned when a departure-time string cannot be
// parsed even after the regional offset assumption.
var ErrInvalidTimeFormat = errors.New("invalid time format")

// localLayouts are tried in order for offset-less inputs
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// offsetLayouts are tried in order for inputs carrying their own offset.
// RFC3339 requires seconds; the second layout accepts the same
// minute-precision inputs the offset-less path does.
var offsetLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
}

// ParseLocalTime parses an ISO-8601-like time string. Inputs with an
// explicit offset (or Z) are taken as-is; offset-less inputs are assumed
// to be JST wall-clock time.
func ParseLocalTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrInvalidTimeFormat
	}

	if hasExplicitOffset(raw) {
		for _, layout := range offsetLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t, nil
			}
		}
		return time.Time{}, ErrInvalidTimeFormat
	}

	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, raw, JST); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidTimeFormat
}

// DepartureTime resolves an optional departure-time string to an instant.
// An absent or unparseable value degrades to now: for a user-facing transit
// query a best-effort answer beats a hard failure.
func DepartureTime(raw string, now time.Time) time.Time {
	if strings.TrimSpace(raw) == "" {
		return now
	}
	t, err := ParseLocalTime(raw)
	if err != nil {
		log.Printf("transit: unparseable start_time %q, using now", raw)
		return now
	}
	return t
}

// DepartureEpoch is DepartureTime converted to integral epoch seconds, the
// representation several providers require.
func DepartureEpoch(raw string, now time.Time) int64 {
	return DepartureTime(raw, now).Unix()
}

// hasExplicitOffset reports whether raw carries its own UTC offset.
// The date part always contains dashes, so only the time part (after the
// 'T') is inspected for a sign.
func hasExplicitOffset(raw string) bool {
	if strings.HasSuffix(raw, "Z") {
		return true
	}
	idx := strings.IndexByte(raw, 'T')
	if idx < 0 {
		return false
	}
	timePart := raw[idx+1:]
	return strings.ContainsAny(timePart, "+-")
}
