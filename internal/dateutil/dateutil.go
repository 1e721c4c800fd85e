// Package dateutil converts human date formats to Go layouts and parses request dates.
package dateutil

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors.
var (
	ErrInvalidDateFormat = errors.New("invalid date format")
	ErrInvalidDate       = errors.New("invalid date")
)

// MaxDateFormatLength bounds the configured dates.format.
const MaxDateFormatLength = 50

// DefaultDateFormat is the format of request dates and of dates written to notices.
const DefaultDateFormat = "YYYY-MM-DD"

// ISOLayout is the Go layout of DefaultDateFormat.
const ISOLayout = "2006-01-02"

// dateTokens is matched greedily, so longer tokens come first.
var dateTokens = []struct {
	token string
	goFmt string
}{
	{"YYYY", "2006"},
	{"MMMM", "January"},
	{"MMM", "Jan"},
	{"YY", "06"},
	{"MM", "01"},
	{"DD", "02"},
	{"M", "1"},
	{"D", "2"},
}

// DatePresets are names accepted in place of a token format.
var DatePresets = map[string]string{
	"iso":      "YYYY-MM-DD",
	"swedish":  "YYYY-MM-DD",
	"european": "DD/MM/YYYY",
	"us":       "MM/DD/YYYY",
	"long":     "D MMMM YYYY",
}

// ParseDateFormat turns a token format such as "D MMMM YYYY" into a Go layout.
// Text in brackets is copied as is, so "[den] D MMMM" keeps "den".
func ParseDateFormat(format string) (string, error) {
	if format == "" {
		return "", fmt.Errorf("%w: format cannot be empty", ErrInvalidDateFormat)
	}
	if len(format) > MaxDateFormatLength {
		return "", fmt.Errorf("%w: format exceeds %d characters", ErrInvalidDateFormat, MaxDateFormatLength)
	}

	var result strings.Builder
	result.Grow(len(format) + 10)

	i := 0
	for i < len(format) {
		if format[i] == '[' {
			end := strings.Index(format[i+1:], "]")
			if end == -1 {
				return "", fmt.Errorf("%w: unclosed bracket at position %d", ErrInvalidDateFormat, i)
			}
			result.WriteString(format[i+1 : i+1+end])
			i += end + 2
			continue
		}

		matched := false
		for _, t := range dateTokens {
			if strings.HasPrefix(format[i:], t.token) {
				result.WriteString(t.goFmt)
				i += len(t.token)
				matched = true
				break
			}
		}

		if !matched {
			result.WriteByte(format[i])
			i++
		}
	}

	return result.String(), nil
}

// Layout resolves a preset name or a token format to a Go layout.
// An empty format yields ISOLayout.
func Layout(format string) (string, error) {
	if format == "" {
		return ISOLayout, nil
	}
	if preset, ok := DatePresets[strings.ToLower(format)]; ok {
		format = preset
	}
	return ParseDateFormat(format)
}

// ParseDate parses a request date in YYYY-MM-DD form.
// "auto" and "today" resolve to the calendar date of now.
// The result is midnight UTC of that date so comparisons ignore time of day.
func ParseDate(value string, now time.Time) (time.Time, error) {
	v := strings.TrimSpace(value)
	switch strings.ToLower(v) {
	case "":
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	case "auto", "today":
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}

	t, err := time.Parse(ISOLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q (want YYYY-MM-DD)", ErrInvalidDate, value)
	}
	return t, nil
}

// ParseOptionalDate is ParseDate where an empty value means absent.
func ParseOptionalDate(value string, now time.Time) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	t, err := ParseDate(value, now)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
