package enrollments

import "time"

type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusPaused || s == StatusCompleted
}

// Open reports whether the enrollment still counts against the one
// active-or-paused enrollment per (user, workout) rule.
func (s Status) Open() bool {
	return s == StatusActive || s == StatusPaused
}

type Enrollment struct {
	ID          int        `json:"id"`
	UserID      string     `json:"userId"`
	WorkoutID   int        `json:"workoutId"`
	Status      Status     `json:"status"`
	StartDate   time.Time  `json:"startDate"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Completion is immutable once written; removal happens only through the
// workout delete cascade.
type Completion struct {
	ID           int       `json:"id"`
	EnrollmentID int       `json:"enrollmentId"`
	ExerciseID   int       `json:"exerciseId"`
	CompletedAt  time.Time `json:"completedAt"`
}

// HistoryEntry is a completed enrollment with its workout summary resolved.
// Name and duration fall back to placeholders if the workout is gone.
type HistoryEntry struct {
	EnrollmentID    int       `json:"enrollmentId"`
	WorkoutID       int       `json:"workoutId"`
	WorkoutName     string    `json:"workoutName"`
	WorkoutDuration string    `json:"workoutDuration"`
	StartDate       time.Time `json:"startDate"`
	CompletedAt     time.Time `json:"completedAt"`
}

type ProgressMetrics struct {
	HoursTrained   float64 `json:"hoursTrained"`
	GoalPercentage float64 `json:"goalPercentage"`
	LastWorkout    string  `json:"lastWorkout"`
	ActiveWorkouts int     `json:"activeWorkouts"`
}
