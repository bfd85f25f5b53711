package enrollments

import (
	"context"
	"testing"
	"time"

	"github.com/fitrackhq/fitrack/internal/fitness/workouts"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_ResolveToday(t *testing.T) {
	ctx := context.Background()

	// Wednesday
	now := time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)

	repo := newRepoMock()
	repo.enrollments[1] = &Enrollment{ID: 1, UserID: "u1", WorkoutID: 1, Status: StatusActive}
	repo.enrollments[2] = &Enrollment{ID: 2, UserID: "u1", WorkoutID: 2, Status: StatusActive}
	repo.enrollments[3] = &Enrollment{ID: 3, UserID: "u1", WorkoutID: 3, Status: StatusPaused}
	repo.enrollments[4] = &Enrollment{ID: 4, UserID: "u1", WorkoutID: 42, Status: StatusActive}

	getter := &workoutGetterMock{workouts: map[int]*workouts.Workout{
		1: {
			ID:   1,
			Name: "Full Body Blast",
			Days: []workouts.DaySchedule{
				{Day: "Wednesday", Exercises: []workouts.ExerciseRef{
					{ID: 10, Name: "Push Ups", Sets: 3, Reps: "12"},
					{ID: 11, Name: "Squats", Sets: 4, Reps: "10"},
					{ID: 12, Name: "Plank", Sets: 3, Reps: "60s"},
					{ID: 13, Name: "Lunges", Sets: 3, Reps: "12"},
					{ID: 14, Name: "Burpees", Sets: 3, Reps: "15"},
				}},
				{Day: "Friday", Exercises: []workouts.ExerciseRef{
					{ID: 15, Name: "Deadlift", Sets: 5, Reps: "5"},
				}},
			},
		},
		2: {
			ID:   2,
			Name: "Leg Day",
			Days: []workouts.DaySchedule{
				{Day: "Monday", Exercises: []workouts.ExerciseRef{
					{ID: 20, Name: "Leg Press", Sets: 4, Reps: "10"},
				}},
			},
		},
		3: {
			ID:   3,
			Name: "Paused Plan",
			Days: []workouts.DaySchedule{
				{Day: "Wednesday", Exercises: []workouts.ExerciseRef{
					{ID: 30, Name: "Rowing", Sets: 3, Reps: "10"},
				}},
			},
		},
		// workout 42 intentionally missing
	}}

	// exercise 11 already done today, exercise 10 done yesterday
	repo.completions = []Completion{
		{ID: 1, EnrollmentID: 1, ExerciseID: 11, CompletedAt: now.Add(-time.Hour)},
		{ID: 2, EnrollmentID: 1, ExerciseID: 10, CompletedAt: now.AddDate(0, 0, -1)},
	}

	resolver := NewResolver(repo, getter)
	resolver.now = func() time.Time { return now }

	todaysWorkouts, err := resolver.ResolveToday(ctx, "u1", 0, 0)
	require.NoError(t, err)

	// only workout 1 is active and scheduled for Wednesday; the paused
	// enrollment and the deleted workout are skipped
	require.Len(t, todaysWorkouts, 1)
	today := todaysWorkouts[0]
	assert.Equal(t, 1, today.WorkoutID)
	assert.Equal(t, "Full Body Blast", today.WorkoutName)
	assert.Equal(t, "Wednesday", today.Day)
	assert.Equal(t, 5, today.TotalExercises)
	assert.Equal(t, 1, today.CurrentPage)
	assert.Equal(t, 2, today.TotalPages)

	// default page size 4
	require.Len(t, today.Exercises, 4)
	assert.Equal(t, "Push Ups", today.Exercises[0].Name)
	assert.False(t, today.Exercises[0].IsCompleted)
	assert.Equal(t, "Squats", today.Exercises[1].Name)
	assert.True(t, today.Exercises[1].IsCompleted)
}

func TestResolver_ResolveToday_DuplicateWeekday(t *testing.T) {
	ctx := context.Background()
	// Wednesday
	now := time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)

	repo := newRepoMock()
	repo.enrollments[1] = &Enrollment{ID: 1, UserID: "u1", WorkoutID: 1, Status: StatusActive}

	// nothing stops a plan from listing the same weekday twice, both
	// schedules must show up
	getter := &workoutGetterMock{workouts: map[int]*workouts.Workout{
		1: {
			ID:   1,
			Name: "Two-a-Day",
			Days: []workouts.DaySchedule{
				{Day: "Wednesday", Exercises: []workouts.ExerciseRef{
					{ID: 10, Name: "Push Ups", Sets: 3, Reps: "12"},
				}},
				{Day: "Wednesday", Exercises: []workouts.ExerciseRef{
					{ID: 11, Name: "Squats", Sets: 4, Reps: "10"},
				}},
			},
		},
	}}

	repo.completions = []Completion{
		{ID: 1, EnrollmentID: 1, ExerciseID: 11, CompletedAt: now.Add(-time.Hour)},
	}

	resolver := NewResolver(repo, getter)
	resolver.now = func() time.Time { return now }

	todaysWorkouts, err := resolver.ResolveToday(ctx, "u1", 1, 4)
	require.NoError(t, err)
	require.Len(t, todaysWorkouts, 2)

	assert.Equal(t, "Push Ups", todaysWorkouts[0].Exercises[0].Name)
	assert.False(t, todaysWorkouts[0].Exercises[0].IsCompleted)
	assert.Equal(t, "Squats", todaysWorkouts[1].Exercises[0].Name)
	assert.True(t, todaysWorkouts[1].Exercises[0].IsCompleted)
}

func TestResolver_ResolveToday_Pagination(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)

	repo := newRepoMock()
	repo.enrollments[1] = &Enrollment{ID: 1, UserID: "u1", WorkoutID: 1, Status: StatusActive}

	getter := &workoutGetterMock{workouts: map[int]*workouts.Workout{
		1: {
			ID:   1,
			Name: "Full Body Blast",
			Days: []workouts.DaySchedule{
				{Day: "Wednesday", Exercises: []workouts.ExerciseRef{
					{ID: 10, Name: "Push Ups"},
					{ID: 11, Name: "Squats"},
					{ID: 12, Name: "Plank"},
				}},
			},
		},
	}}

	resolver := NewResolver(repo, getter)
	resolver.now = func() time.Time { return now }

	todaysWorkouts, err := resolver.ResolveToday(ctx, "u1", 2, 2)
	require.NoError(t, err)
	require.Len(t, todaysWorkouts, 1)

	today := todaysWorkouts[0]
	assert.Equal(t, 2, today.CurrentPage)
	assert.Equal(t, 2, today.TotalPages)
	assert.Equal(t, 3, today.TotalExercises)
	require.Len(t, today.Exercises, 1)
	assert.Equal(t, "Plank", today.Exercises[0].Name)

	// page past the end yields an empty list
	todaysWorkouts, err = resolver.ResolveToday(ctx, "u1", 5, 2)
	require.NoError(t, err)
	require.Len(t, todaysWorkouts, 1)
	assert.Empty(t, todaysWorkouts[0].Exercises)
}

func TestResolver_ResolveToday_NoScheduleToday(t *testing.T) {
	ctx := context.Background()
	// Sunday
	now := time.Date(2024, 5, 12, 9, 0, 0, 0, time.UTC)

	repo := newRepoMock()
	repo.enrollments[1] = &Enrollment{ID: 1, UserID: "u1", WorkoutID: 1, Status: StatusActive}

	getter := &workoutGetterMock{workouts: map[int]*workouts.Workout{
		1: {
			ID:   1,
			Name: "Full Body Blast",
			Days: []workouts.DaySchedule{
				{Day: "Wednesday", Exercises: []workouts.ExerciseRef{{ID: 10, Name: "Push Ups"}}},
			},
		},
	}}

	resolver := NewResolver(repo, getter)
	resolver.now = func() time.Time { return now }

	todaysWorkouts, err := resolver.ResolveToday(ctx, "u1", 1, 4)
	require.NoError(t, err)
	assert.Empty(t, todaysWorkouts)
}
