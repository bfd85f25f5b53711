package integration_testing

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/fitrackhq/fitrack/internal/fitness/consistency"
	"github.com/fitrackhq/fitrack/internal/fitness/enrollments"
	"github.com/fitrackhq/fitrack/internal/fitness/events"
	"github.com/fitrackhq/fitrack/internal/fitness/exercises"
	"github.com/fitrackhq/fitrack/internal/fitness/users"
	"github.com/fitrackhq/fitrack/internal/fitness/workouts"
	"github.com/fitrackhq/fitrack/internal/telemetry/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	suite := newSuite(ctx)
	defer suite.cleanup()
	require.NotNil(t, suite.server)

	t.Run("version endpoint", func(t *testing.T) {
		resp, err := http.Get(serverEndpoint + "/version")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	exercisesRepo := exercises.NewRepo(suite.DBPool)
	workoutsService := workouts.NewService(workouts.NewRepo(suite.DBPool))
	enrollmentsRepo := enrollments.NewRepo(suite.DBPool)
	usersRepo := users.NewRepo(suite.DBPool)
	enrollmentsService := enrollments.NewService(
		enrollmentsRepo, workoutsService, usersRepo, events.NoopPublisher{},
	)
	cascadeService := consistency.NewService(suite.DBPool, metrics.NewTestManager())

	pushUps, err := exercisesRepo.Add(ctx, exercises.Exercise{
		Name:           "Push Ups",
		PrimaryMuscles: []string{"Chest"},
		Duration:       "10 min",
		Sets:           3,
		Reps:           "12",
		CreatedAt:      time.Now(),
	})
	require.NoError(t, err)
	squats, err := exercisesRepo.Add(ctx, exercises.Exercise{
		Name:           "Squats",
		PrimaryMuscles: []string{"Legs"},
		Duration:       "15 min",
		Sets:           4,
		Reps:           "10",
		CreatedAt:      time.Now(),
	})
	require.NoError(t, err)

	var workout *workouts.Workout
	t.Run("create workout computes duration", func(t *testing.T) {
		workout, err = workoutsService.Create(ctx, workouts.Workout{
			Name: "Full Body Blast",
			Days: []workouts.DaySchedule{
				{Day: "Monday", Exercises: []workouts.ExerciseRef{
					{ID: pushUps.ID}, {ID: squats.ID},
				}},
				{Day: "Thursday", Exercises: []workouts.ExerciseRef{
					{ID: pushUps.ID},
				}},
			},
		})
		require.NoError(t, err)
		// 10 + 15 + 10, each day occurrence counted
		assert.Equal(t, "35 min", workout.Duration)
	})

	t.Run("single open enrollment per user and workout", func(t *testing.T) {
		_, err := enrollmentsService.Enroll(ctx, "u1", workout.ID)
		require.NoError(t, err)

		_, err = enrollmentsService.Enroll(ctx, "u1", workout.ID)
		assert.ErrorIs(t, err, enrollments.ErrEnrollmentExists)

		// the partial unique index backstops direct writes too
		_, err = enrollmentsRepo.Add(ctx, enrollments.Enrollment{
			UserID:    "u1",
			WorkoutID: workout.ID,
			Status:    enrollments.StatusActive,
			StartDate: time.Now(),
		})
		assert.ErrorIs(t, err, enrollments.ErrEnrollmentExists)

		// another user is unaffected
		_, err = enrollmentsService.Enroll(ctx, "u2", workout.ID)
		require.NoError(t, err)
	})

	t.Run("exercise completion deduplicated per day", func(t *testing.T) {
		_, err := enrollmentsService.CompleteExercise(ctx, "u1", workout.ID, pushUps.ID)
		require.NoError(t, err)

		_, err = enrollmentsService.CompleteExercise(ctx, "u1", workout.ID, pushUps.ID)
		assert.ErrorIs(t, err, enrollments.ErrAlreadyCompletedToday)

		_, err = enrollmentsService.CompleteExercise(ctx, "u1", workout.ID, squats.ID)
		require.NoError(t, err)
	})

	t.Run("exercise delete cascades and recomputes durations", func(t *testing.T) {
		require.NoError(t, cascadeService.DeleteExercise(ctx, pushUps.ID))

		_, err := exercisesRepo.Peek(ctx, pushUps.ID)
		assert.ErrorIs(t, err, exercises.ErrExerciseNotFound)

		// both scheduled occurrences gone, only squats remain
		refreshed, err := workoutsService.Get(ctx, workout.ID)
		require.NoError(t, err)
		assert.Equal(t, "15 min", refreshed.Duration)
		for _, day := range refreshed.Days {
			for _, ex := range day.Exercises {
				assert.NotEqual(t, pushUps.ID, ex.ID)
			}
		}

		// recorded completions for the deleted exercise stay
		var orphaned int
		err = suite.DB.QueryRow(
			`SELECT COUNT(*) FROM exercise_completion WHERE exercise_id = $1`, pushUps.ID,
		).Scan(&orphaned)
		require.NoError(t, err)
		assert.Equal(t, 1, orphaned)

		assert.ErrorIs(t, cascadeService.DeleteExercise(ctx, pushUps.ID), exercises.ErrExerciseNotFound)
	})

	t.Run("workout delete cascades to enrollments and completions", func(t *testing.T) {
		require.NoError(t, cascadeService.DeleteWorkout(ctx, workout.ID))

		_, err := workoutsService.Get(ctx, workout.ID)
		assert.ErrorIs(t, err, workouts.ErrWorkoutNotFound)

		for _, table := range []string{"workout_day", "enrollment"} {
			var count int
			err = suite.DB.QueryRow(
				`SELECT COUNT(*) FROM `+table+` WHERE workout_id = $1`, workout.ID,
			).Scan(&count)
			require.NoError(t, err)
			assert.Zero(t, count, table)
		}

		var completions int
		err = suite.DB.QueryRow(`SELECT COUNT(*) FROM exercise_completion`).Scan(&completions)
		require.NoError(t, err)
		assert.Zero(t, completions)

		assert.ErrorIs(t, cascadeService.DeleteWorkout(ctx, workout.ID), workouts.ErrWorkoutNotFound)
	})
}
