package utils

import (
	"fmt"
	"strings"
	"time"
)

const (
	accessLogLayout       = "02/Jan/2006:15:04:05"
	accessLogLayoutOffset = "02/Jan/2006:15:04:05 -0700"
)

// ParseAccessLogTime parses a Common Log Format timestamp field such as
// "02/Jan/2006:15:04:05 +0000". The zone offset is optional; without one the
// value is interpreted as UTC. Callers must always compare the parsed time,
// never the raw string.
func ParseAccessLogTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	if t, err := time.Parse(accessLogLayoutOffset, value); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(accessLogLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse access log time: %w", err)
	}
	return t, nil
}

// InWindow reports whether t falls inside the closed interval [start, end].
func InWindow(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}
