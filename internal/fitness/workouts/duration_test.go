package workouts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMinutes(t *testing.T) {
	testCases := []struct {
		duration string
		expected int
	}{
		{"30 min", 30},
		{"5min", 5},
		{"  45 min ", 45},
		{"120", 120},
		{"none", 0},
		{"", 0},
		{"min 30", 0},
		{"-10 min", 0},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, ParseMinutes(tc.duration), "duration: %q", tc.duration)
	}
}

func TestTotalMinutes(t *testing.T) {
	days := []DaySchedule{
		{
			Day: "Monday",
			Exercises: []ExerciseRef{
				{ID: 1, Name: "Squats", Duration: "20 min"},
				{ID: 2, Name: "Lunges", Duration: "15 min"},
			},
		},
		{
			Day: "Wednesday",
			Exercises: []ExerciseRef{
				// same exercise again, counted once per occurrence
				{ID: 1, Name: "Squats", Duration: "20 min"},
				{ID: 3, Name: "Stretching", Duration: "no idea"},
			},
		},
	}

	assert.Equal(t, 55, TotalMinutes(days))
	// idempotent
	assert.Equal(t, 55, TotalMinutes(days))

	assert.Equal(t, 0, TotalMinutes(nil))
	assert.Equal(t, 0, TotalMinutes([]DaySchedule{{Day: "Friday"}}))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "35 min", FormatDuration(35))
	assert.Equal(t, "0 min", FormatDuration(0))
}
