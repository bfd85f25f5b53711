package workouts

import "time"

// ExerciseRef is an exercise summary as referenced by a day schedule.
// Exercises are shared catalog entities, referenced by id, never embedded.
type ExerciseRef struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Duration string `json:"duration"`
	Sets     int    `json:"sets"`
	Reps     string `json:"reps"`
}

// DaySchedule is an ordered list of exercises planned for one weekday.
type DaySchedule struct {
	ID        int           `json:"id"`
	Day       string        `json:"day"`
	Exercises []ExerciseRef `json:"exercises"`
}

type Workout struct {
	ID          int           `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Goals       []string      `json:"goals,omitempty"`
	Benefits    []string      `json:"benefits,omitempty"`
	Frequency   string        `json:"frequency,omitempty"`
	Difficulty  string        `json:"difficulty,omitempty"`
	Rating      float32       `json:"rating"`
	Duration    string        `json:"duration"`
	Days        []DaySchedule `json:"days,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
}

var weekdays = map[string]bool{
	"Monday":    true,
	"Tuesday":   true,
	"Wednesday": true,
	"Thursday":  true,
	"Friday":    true,
	"Saturday":  true,
	"Sunday":    true,
}

func IsValidDay(day string) bool {
	return weekdays[day]
}
