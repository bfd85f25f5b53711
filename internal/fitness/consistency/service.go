package consistency

import (
	"context"
	"errors"
	"fmt"

	"github.com/fitrackhq/fitrack/internal/fitness/exercises"
	"github.com/fitrackhq/fitrack/internal/fitness/workouts"
	"github.com/fitrackhq/fitrack/internal/telemetry/metrics"
	"github.com/fitrackhq/fitrack/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// Service removes catalog entities together with every row that references
// them, in a single transaction per delete. Handlers reach it through their
// own small interfaces.
type Service struct {
	db      *pgxpool.Pool
	metrics *metrics.Manager
}

func NewService(db *pgxpool.Pool, metrics *metrics.Manager) *Service {
	return &Service{
		db:      db,
		metrics: metrics,
	}
}

// DeleteExercise removes the exercise from the catalog and from every
// workout day that schedules it, then recomputes the duration of each
// affected workout. Historical completions stay untouched.
func (s *Service) DeleteExercise(ctx context.Context, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "consistency.deleteexercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("exercise.id", id))

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			log.Errorf("delete exercise %d, rollback: %s", id, rollbackErr)
		}
	}()

	var exists bool
	if err := tx.QueryRow(
		ctx, `SELECT EXISTS(SELECT 1 FROM exercise WHERE id = $1);`, id,
	).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return exercises.ErrExerciseNotFound
	}

	affected, err := affectedWorkoutIDs(ctx, tx, id)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(
		ctx, `DELETE FROM workout_day_exercise WHERE exercise_id = $1;`, id,
	); err != nil {
		return fmt.Errorf("delete day exercises: %w", err)
	}

	for _, workoutID := range affected {
		if err := recomputeWorkoutDuration(ctx, tx, workoutID); err != nil {
			return fmt.Errorf("recompute workout %d duration: %w", workoutID, err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM exercise WHERE id = $1;`, id); err != nil {
		return fmt.Errorf("delete exercise: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	span.SetAttributes(attribute.Int("workouts.affected", len(affected)))
	s.metrics.CounterCascadeDeletes.With(prometheus.Labels{"entity": "exercise"}).Inc()
	return nil
}

// DeleteWorkout removes the workout with its schedule, enrollments and
// completions, leaf tables first.
func (s *Service) DeleteWorkout(ctx context.Context, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "consistency.deleteworkout")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workout.id", id))

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			log.Errorf("delete workout %d, rollback: %s", id, rollbackErr)
		}
	}()

	var exists bool
	if err := tx.QueryRow(
		ctx, `SELECT EXISTS(SELECT 1 FROM workout WHERE id = $1);`, id,
	).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return workouts.ErrWorkoutNotFound
	}

	if _, err := tx.Exec(
		ctx,
		`DELETE FROM exercise_completion
			WHERE enrollment_id IN (SELECT id FROM enrollment WHERE workout_id = $1);`,
		id,
	); err != nil {
		return fmt.Errorf("delete completions: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM enrollment WHERE workout_id = $1;`, id); err != nil {
		return fmt.Errorf("delete enrollments: %w", err)
	}

	if _, err := tx.Exec(
		ctx,
		`DELETE FROM workout_day_exercise
			WHERE workout_day_id IN (SELECT id FROM workout_day WHERE workout_id = $1);`,
		id,
	); err != nil {
		return fmt.Errorf("delete day exercises: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM workout_day WHERE workout_id = $1;`, id); err != nil {
		return fmt.Errorf("delete days: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM workout WHERE id = $1;`, id); err != nil {
		return fmt.Errorf("delete workout: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.metrics.CounterCascadeDeletes.With(prometheus.Labels{"entity": "workout"}).Inc()
	return nil
}

func affectedWorkoutIDs(ctx context.Context, tx pgx.Tx, exerciseID int) ([]int, error) {
	rows, err := tx.Query(
		ctx,
		`SELECT DISTINCT wd.workout_id
			FROM workout_day_exercise wde
			JOIN workout_day wd ON wd.id = wde.workout_day_id
			WHERE wde.exercise_id = $1;`,
		exerciseID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workoutIDs []int
	for rows.Next() {
		var workoutID int
		if err := rows.Scan(&workoutID); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		workoutIDs = append(workoutIDs, workoutID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return workoutIDs, nil
}

// recomputeWorkoutDuration re-derives the workout duration from the exercise
// durations still scheduled, within the same transaction as the cascade.
func recomputeWorkoutDuration(ctx context.Context, tx pgx.Tx, workoutID int) error {
	rows, err := tx.Query(
		ctx,
		`SELECT e.duration
			FROM workout_day_exercise wde
			JOIN workout_day wd ON wd.id = wde.workout_day_id
			JOIN exercise e ON e.id = wde.exercise_id
			WHERE wd.workout_id = $1;`,
		workoutID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	totalMinutes := 0
	for rows.Next() {
		var duration string
		if err := rows.Scan(&duration); err != nil {
			return fmt.Errorf("rows scan: %w", err)
		}
		totalMinutes += workouts.ParseMinutes(duration)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	_, err = tx.Exec(
		ctx,
		`UPDATE workout SET duration = $1 WHERE id = $2;`,
		workouts.FormatDuration(totalMinutes), workoutID,
	)
	return err
}
