package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateTime(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Time
	}{
		{"2021-06-01T09:00:00Z", time.Date(2021, 6, 1, 9, 0, 0, 0, time.UTC)},
		{"2021-06-01T09:00:00-04:00", time.Date(2021, 6, 1, 13, 0, 0, 0, time.UTC)},
		{"2021-06-01T09:00:00", time.Date(2021, 6, 1, 9, 0, 0, 0, time.UTC)},
		{"2021-06-01 09:00:00", time.Date(2021, 6, 1, 9, 0, 0, 0, time.UTC)},
		{"2021-06-01T09:30", time.Date(2021, 6, 1, 9, 30, 0, 0, time.UTC)},
		{" 2021-06-01 ", time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDateTime("start", tt.input)
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseDateTime_Invalid(t *testing.T) {
	_, err := ParseDateTime("datetime_range.end", "next tuesday")

	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "datetime_range.end")
}

func TestParseWeekday(t *testing.T) {
	tests := map[string]time.Weekday{
		"monday":   time.Monday,
		"MONDAY":   time.Monday,
		"Tuesday":  time.Tuesday,
		"wed":      time.Wednesday,
		" sunday ": time.Sunday,
		"sat":      time.Saturday,
	}
	for input, expected := range tests {
		got, err := ParseWeekday(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, got, input)
	}

	_, err := ParseWeekday("funday")
	assert.True(t, IsValidationError(err))
	_, err = ParseWeekday("")
	assert.True(t, IsValidationError(err))
}
