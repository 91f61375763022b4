package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PeriodLabel formats the canonical period label for a month of a year,
// e.g. "Jan 2023".
func PeriodLabel(year int, month time.Month) string {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("Jan 2006")
}

// ParsePeriodLabel is the inverse of PeriodLabel.
func ParsePeriodLabel(label string) (int, time.Month, error) {
	t, err := time.Parse("Jan 2006", strings.TrimSpace(label))
	if err != nil {
		return 0, 0, fmt.Errorf("parse period label %q: %w", label, err)
	}
	return t.Year(), t.Month(), nil
}

// VolumeForMonth derives the issue number within a year from the month index.
func VolumeForMonth(month time.Month) int {
	return int(month)
}

// ParsePeriodKey validates a period key, which is a four digit year.
func ParsePeriodKey(key string) (int, error) {
	year, err := strconv.Atoi(strings.TrimSpace(key))
	if err != nil || year < 1800 || year > 9999 {
		return 0, fmt.Errorf("period key must be a four digit year, got %q", key)
	}
	return year, nil
}
