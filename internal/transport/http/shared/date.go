package shared

import (
	"strings"
	"time"

	"hrpay/internal/domain/payroll"
)

// ParseDate reads a payroll calendar day. Plain YYYY-MM-DD values land on
// UTC midnight; full RFC3339 timestamps keep their instant.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if len(value) == len(payroll.DateLayout) {
		return time.ParseInLocation(payroll.DateLayout, value, time.UTC)
	}
	return time.Parse(time.RFC3339, value)
}
