package services

import (
	"strings"
	"time"
)

// taskDateLayout is the only date format that crosses the storage boundary.
const taskDateLayout = "02/01/2006"

// NormalizeTaskDate trims whitespace and any trailing time component,
// leaving the bare DD/MM/YYYY slice.
func NormalizeTaskDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) > len(taskDateLayout) {
		raw = raw[:len(taskDateLayout)]
	}
	return strings.TrimSpace(raw)
}

// ParseTaskDate parses a DD/MM/YYYY date, tolerating a trailing time
// component. Comparisons stay in local time, never UTC-normalized.
func ParseTaskDate(raw string) (time.Time, error) {
	return time.ParseInLocation(taskDateLayout, NormalizeTaskDate(raw), time.Local)
}

func ValidTaskDate(raw string) bool {
	_, err := ParseTaskDate(raw)
	return err == nil
}

// SameTaskDate compares two boundary dates on their DD/MM/YYYY slice.
func SameTaskDate(a, b string) bool {
	na, nb := NormalizeTaskDate(a), NormalizeTaskDate(b)
	return na != "" && na == nb
}
