package stats

import "time"

const (
	GoalStatusOnTrack          = "On track"
	GoalStatusNeedsImprovement = "Needs improvement"
	GoalStatusFallingBehind    = "Falling behind"

	// DefaultWorkoutTarget is used when the profile has no weekly target set.
	DefaultWorkoutTarget = 4
)

// WeekStart returns the most recent Sunday midnight at or before t.
func WeekStart(t time.Time) time.Time {
	dayStart := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return dayStart.AddDate(0, 0, -int(t.Weekday()))
}

func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// GoalProgressPercent returns completed/target as a percentage, capped at 100.
func GoalProgressPercent(completed, target int) float64 {
	if target <= 0 {
		target = DefaultWorkoutTarget
	}
	percent := float64(completed) / float64(target) * 100
	if percent > 100 {
		percent = 100
	}
	return percent
}

func GoalStatus(percent float64) string {
	switch {
	case percent >= 80:
		return GoalStatusOnTrack
	case percent >= 50:
		return GoalStatusNeedsImprovement
	default:
		return GoalStatusFallingBehind
	}
}
