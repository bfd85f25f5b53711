package workouts

import (
	"fmt"
	"strings"
	"unicode"
)

// ParseMinutes extracts the leading integer of an exercise duration string
// like "30 min". Strings without a leading number contribute 0.
func ParseMinutes(duration string) int {
	s := strings.TrimSpace(duration)
	end := 0
	for end < len(s) && unicode.IsDigit(rune(s[end])) {
		end++
	}
	if end == 0 {
		return 0
	}

	minutes := 0
	for _, d := range s[:end] {
		minutes = minutes*10 + int(d-'0')
	}
	return minutes
}

// TotalMinutes sums the declared minutes of every exercise occurrence across
// all day schedules. An exercise appearing in multiple days counts once per
// occurrence.
func TotalMinutes(days []DaySchedule) int {
	total := 0
	for _, day := range days {
		for _, exercise := range day.Exercises {
			total += ParseMinutes(exercise.Duration)
		}
	}
	return total
}

func FormatDuration(minutes int) string {
	return fmt.Sprintf("%d min", minutes)
}
