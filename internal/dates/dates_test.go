package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	got, vErr := Parse("startDate", "2024-01-31")
	require.Nil(t, vErr)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), got)

	got, vErr = Parse("startDate", "2024-01-31T10:30:00+05:30")
	require.Nil(t, vErr)
	assert.Equal(t, time.Date(2024, 1, 31, 5, 0, 0, 0, time.UTC), got)

	_, vErr = Parse("startDate", "")
	require.NotNil(t, vErr)
	assert.Equal(t, "required", vErr.Fields[0].Code)

	_, vErr = Parse("startDate", "31/01/2024")
	require.NotNil(t, vErr)
	assert.Equal(t, "invalid_date", vErr.Fields[0].Code)
	assert.Equal(t, "startDate", vErr.Fields[0].Field)
}

func TestParseOptional(t *testing.T) {
	got, vErr := ParseOptional("paymentDate", nil)
	assert.Nil(t, vErr)
	assert.Nil(t, got)

	empty := " "
	got, vErr = ParseOptional("paymentDate", &empty)
	assert.Nil(t, vErr)
	assert.Nil(t, got)

	value := "2024-02-01"
	got, vErr = ParseOptional("paymentDate", &value)
	require.Nil(t, vErr)
	require.NotNil(t, got)
	assert.Equal(t, 2024, got.Year())
}
