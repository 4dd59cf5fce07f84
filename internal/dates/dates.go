// Package dates parses the calendar dates carried in requests.
package dates

import (
	"strings"
	"time"

	"github.com/smallbiznis/tutorbase/internal/errs"
)

const Layout = "2006-01-02"

// Parse accepts a plain date or an RFC 3339 timestamp and returns it in UTC.
func Parse(field, value string) (time.Time, *errs.ValidationError) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errs.Invalid(field, "required", field+" is required")
	}
	if t, err := time.Parse(Layout, value); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, errs.Invalid(field, "invalid_date", field+" must be YYYY-MM-DD or RFC 3339")
}

// ParseOptional returns nil for an absent or empty value.
func ParseOptional(field string, value *string) (*time.Time, *errs.ValidationError) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	t, vErr := Parse(field, *value)
	if vErr != nil {
		return nil, vErr
	}
	return &t, nil
}
