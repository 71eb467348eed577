package fetch

import (
	"strconv"
	"strings"
	"time"
)

// Source date layouts: event pages spell the month out, profile pages
// abbreviate it.
const (
	eventDateLayout = "January 2, 2006"
	dobLayout       = "Jan 2, 2006"
)

const (
	inchesPerFoot = 12
	cmPerInch     = 2.54
)

// ParseEventDate parses the source's long-form event date.
func ParseEventDate(s string) (time.Time, error) {
	return time.Parse(eventDateLayout, strings.TrimSpace(s))
}

// ParseDOB parses the source's abbreviated date of birth, returning the zero
// time when absent or malformed — birth dates are slowly-changing display
// attributes, not identity.
func ParseDOB(s string) time.Time {
	t, err := time.Parse(dobLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t
}

// ParseOf splits a "X of Y" landed/attempted pair. Malformed input yields
// (0, 0): old cards simply lack these stats.
func ParseOf(s string) (landed, attempted int) {
	parts := strings.SplitN(s, " of ", 2)
	if len(parts) != 2 {
		return 0, 0
	}
	l, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	a, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return 0, 0
	}
	return l, a
}

// ParseClock converts a "m:ss" clock string to a duration; malformed input
// yields zero.
func ParseClock(s string) time.Duration {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0
	}
	m, err1 := strconv.Atoi(parts[0])
	sec, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || m < 0 || sec < 0 || sec > 59 {
		return 0
	}
	return time.Duration(m)*time.Minute + time.Duration(sec)*time.Second
}

// ParseIntSafe converts a stat string to an int, returning 0 for anything
// unparseable (the source uses "--" for unknowns).
func ParseIntSafe(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// ParseHeightCM converts an imperial height like `5' 11"` to centimeters;
// unknown ("--") or malformed input yields 0.
func ParseHeightCM(s string) float64 {
	s = strings.TrimSpace(s)
	feetPart, inchPart, ok := strings.Cut(s, "'")
	if !ok {
		return 0
	}
	feet, err := strconv.Atoi(strings.TrimSpace(feetPart))
	if err != nil {
		return 0
	}
	inchPart = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(inchPart), `"`))
	inches := 0
	if inchPart != "" {
		if inches, err = strconv.Atoi(inchPart); err != nil {
			return 0
		}
	}
	return float64(feet*inchesPerFoot+inches) * cmPerInch
}

// ParseReachIn converts a reach like `72"` to inches; unknown or malformed
// input yields 0.
func ParseReachIn(s string) float64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), `"`)
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return n
}
