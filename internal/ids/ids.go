// Package ids parses the snowflake identifiers carried in requests.
package ids

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tutorbase/internal/errs"
)

// Parse reads a required id for field.
func Parse(field, value string) (snowflake.ID, *errs.ValidationError) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, errs.Invalid(field, "required", field+" is required")
	}
	id, err := snowflake.ParseString(value)
	if err != nil || id <= 0 {
		return 0, errs.Invalid(field, "invalid_id", field+" is not a valid id")
	}
	return id, nil
}

// ParseOptional returns nil for an empty value.
func ParseOptional(field string, value *string) (*snowflake.ID, *errs.ValidationError) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	id, vErr := Parse(field, *value)
	if vErr != nil {
		return nil, vErr
	}
	return &id, nil
}
