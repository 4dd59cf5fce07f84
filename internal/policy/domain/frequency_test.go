package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAddIntervalClampsMonthEnd(t *testing.T) {
	start := date(2024, 1, 31)

	cases := []struct {
		freq Frequency
		want time.Time
	}{
		{FrequencyMonthly, date(2024, 2, 29)},
		{FrequencyQuarterly, date(2024, 4, 30)},
		{FrequencyYearly, date(2025, 1, 31)},
	}
	for _, tc := range cases {
		t.Run(string(tc.freq), func(t *testing.T) {
			got := AddInterval(start, tc.freq)
			require.NotNil(t, got)
			assert.True(t, tc.want.Equal(*got), "got %s", got)
		})
	}

	assert.Nil(t, AddInterval(start, FrequencyOneTime))
	assert.Nil(t, AddInterval(start, Frequency("weekly")))
}

func TestAddMonths(t *testing.T) {
	assert.Equal(t, date(2023, 2, 28), AddMonths(date(2023, 1, 31), 1))
	assert.Equal(t, date(2024, 3, 1), AddMonths(date(2024, 2, 1), 1))
	assert.Equal(t, date(2025, 2, 28), AddMonths(date(2024, 2, 29), 12))
	assert.Equal(t, date(2024, 12, 15), AddMonths(date(2024, 11, 15), 1))
	assert.Equal(t, date(2025, 1, 15), AddMonths(date(2024, 12, 15), 1))
	assert.Equal(t, date(2023, 11, 29), AddMonths(date(2024, 2, 29), -3))
	assert.Equal(t, date(2024, 2, 29), AddMonths(date(2024, 3, 31), -1))

	withClock := time.Date(2024, 1, 31, 14, 5, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 2, 29, 14, 5, 0, 0, time.UTC), AddMonths(withClock, 1))
}

func TestFrequencyValid(t *testing.T) {
	assert.True(t, FrequencyOneTime.Valid())
	assert.False(t, Frequency("weekly").Valid())
	assert.True(t, FrequencyQuarterly.Recurring())
	assert.False(t, FrequencyOneTime.Recurring())
}
