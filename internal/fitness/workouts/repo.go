package workouts

import (
	"context"
	"errors"
	"fmt"

	"github.com/fitrackhq/fitrack/internal/telemetry/tracing"
	"github.com/fitrackhq/fitrack/pkg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrWorkoutNotFound        = errors.New("workout not found")
	ErrWorkoutExists          = errors.New("workout already exists")
	ErrDayNotFound            = errors.New("workout day not found")
	ErrUnknownExercise        = errors.New("referenced exercise not found")
	ErrDuplicateExerciseInDay = errors.New("exercise already in workout day")
	ErrExerciseNotInDay       = errors.New("exercise not in workout day")
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Create(ctx context.Context, workout Workout) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				err = fmt.Errorf("%w [rollback: %s]", err, rollbackErr)
			}
		}
	}()

	row := tx.QueryRow(
		ctx,
		`INSERT INTO workout
				(name, description, goals, benefits, frequency, difficulty, duration, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id;`,
		workout.Name, workout.Description, workout.Goals, workout.Benefits,
		workout.Frequency, workout.Difficulty, workout.Duration, workout.CreatedAt,
	)
	if err = row.Scan(&workout.ID); err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, ErrWorkoutExists
		}
		return nil, fmt.Errorf("insert workout: %w", err)
	}

	if err = r.insertDays(ctx, tx, workout.ID, workout.Days); err != nil {
		return nil, err
	}

	if len(workout.Days) > 0 {
		if err = recomputeDuration(ctx, tx, workout.ID); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	span.SetAttributes(attribute.Int("workout.id", workout.ID))
	return &workout, nil
}

// recomputeDuration re-derives the workout duration from the day schedules
// visible to the transaction and stores it. Runs inside the same tx as the
// day mutation so days and duration never commit apart.
func recomputeDuration(ctx context.Context, tx pgx.Tx, workoutID int) error {
	rows, err := tx.Query(
		ctx,
		`SELECT e.duration
			FROM workout_day wd
			JOIN workout_day_exercise wde ON wde.workout_day_id = wd.id
			JOIN exercise e ON e.id = wde.exercise_id
			WHERE wd.workout_id = $1;`,
		workoutID,
	)
	if err != nil {
		return fmt.Errorf("query durations: %w", err)
	}
	defer rows.Close()

	total := 0
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return fmt.Errorf("rows scan: %w", err)
		}
		total += ParseMinutes(d)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows: %w", err)
	}

	tag, err := tx.Exec(
		ctx,
		`UPDATE workout SET duration = $1 WHERE id = $2;`,
		FormatDuration(total), workoutID,
	)
	if err != nil {
		return fmt.Errorf("update duration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkoutNotFound
	}

	return nil
}

func (r *Repo) insertDays(ctx context.Context, tx pgx.Tx, workoutID int, days []DaySchedule) error {
	for pos, day := range days {
		var dayID int
		row := tx.QueryRow(
			ctx,
			`INSERT INTO workout_day (workout_id, day, position) VALUES ($1, $2, $3) RETURNING id;`,
			workoutID, day.Day, pos,
		)
		if err := row.Scan(&dayID); err != nil {
			return fmt.Errorf("insert workout day: %w", err)
		}

		for exPos, exercise := range day.Exercises {
			if _, err := tx.Exec(
				ctx,
				`INSERT INTO workout_day_exercise (workout_day_id, exercise_id, position) VALUES ($1, $2, $3);`,
				dayID, exercise.ID, exPos,
			); err != nil {
				if pkg.IsUniqueViolationError(err) {
					return ErrDuplicateExerciseInDay
				}
				if pkg.IsForeignKeyViolationError(err) {
					return ErrUnknownExercise
				}
				return fmt.Errorf("insert workout day exercise: %w", err)
			}
		}
	}
	return nil
}

// Get returns the workout with its day schedules and exercise summaries resolved.
func (r *Repo) Get(ctx context.Context, id int) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	row := r.db.QueryRow(
		ctx,
		`SELECT id, name, description, goals, benefits, frequency, difficulty, rating, duration, created_at
			FROM workout WHERE id = $1;`,
		id,
	)

	var w Workout
	if err := row.Scan(
		&w.ID, &w.Name, &w.Description, &w.Goals, &w.Benefits,
		&w.Frequency, &w.Difficulty, &w.Rating, &w.Duration, &w.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWorkoutNotFound
		}
		return nil, fmt.Errorf("scan workout: %w", err)
	}

	days, err := r.daysForWorkout(ctx, id)
	if err != nil {
		return nil, err
	}
	w.Days = days

	return &w, nil
}

func (r *Repo) daysForWorkout(ctx context.Context, workoutID int) ([]DaySchedule, error) {
	rows, err := r.db.Query(
		ctx,
		`SELECT wd.id, wd.day, e.id, e.name, e.duration, e.sets, e.reps
			FROM workout_day wd
			LEFT JOIN workout_day_exercise wde ON wde.workout_day_id = wd.id
			LEFT JOIN exercise e ON e.id = wde.exercise_id
			WHERE wd.workout_id = $1
			ORDER BY wd.position, wde.position;`,
		workoutID,
	)
	if err != nil {
		return nil, fmt.Errorf("query workout days: %w", err)
	}
	defer rows.Close()

	var days []DaySchedule
	dayIndex := map[int]int{}
	for rows.Next() {
		var (
			dayID      int
			day        string
			exID       *int
			exName     *string
			exDuration *string
			exSets     *int
			exReps     *string
		)
		if err := rows.Scan(&dayID, &day, &exID, &exName, &exDuration, &exSets, &exReps); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}

		idx, ok := dayIndex[dayID]
		if !ok {
			days = append(days, DaySchedule{ID: dayID, Day: day})
			idx = len(days) - 1
			dayIndex[dayID] = idx
		}

		if exID != nil {
			days[idx].Exercises = append(days[idx].Exercises, ExerciseRef{
				ID:       *exID,
				Name:     *exName,
				Duration: *exDuration,
				Sets:     *exSets,
				Reps:     *exReps,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return days, nil
}

// List returns a page of workouts without their day schedules resolved.
func (r *Repo) List(ctx context.Context, page, size int) (_ []Workout, total int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("page", page))
	span.SetAttributes(attribute.Int("size", size))

	if page < 1 {
		return nil, -1, errors.New("page must be greater than 0")
	}
	if size < 1 {
		return nil, -1, errors.New("size must be greater than 0")
	}

	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM workout;`).Scan(&total); err != nil {
		return nil, -1, fmt.Errorf("count workouts: %w", err)
	}

	rows, err := r.db.Query(
		ctx,
		`SELECT id, name, description, goals, benefits, frequency, difficulty, rating, duration, created_at
			FROM workout
			ORDER BY created_at DESC
			LIMIT $1 OFFSET $2;`,
		size, (page-1)*size,
	)
	if err != nil {
		return nil, -1, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var workouts []Workout
	for rows.Next() {
		var w Workout
		if err := rows.Scan(
			&w.ID, &w.Name, &w.Description, &w.Goals, &w.Benefits,
			&w.Frequency, &w.Difficulty, &w.Rating, &w.Duration, &w.CreatedAt,
		); err != nil {
			return nil, -1, fmt.Errorf("rows scan: %w", err)
		}
		workouts = append(workouts, w)
	}
	if err := rows.Err(); err != nil {
		return nil, -1, fmt.Errorf("rows: %w", err)
	}

	return workouts, total, nil
}

type UpdateParams struct {
	Name        *string
	Description *string
	Goals       *[]string
	Benefits    *[]string
	Frequency   *string
	Difficulty  *string
}

func (r *Repo) Update(ctx context.Context, id int, params UpdateParams) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE workout SET
				name = COALESCE($1, name),
				description = COALESCE($2, description),
				goals = COALESCE($3, goals),
				benefits = COALESCE($4, benefits),
				frequency = COALESCE($5, frequency),
				difficulty = COALESCE($6, difficulty)
			WHERE id = $7;`,
		params.Name, params.Description, params.Goals, params.Benefits,
		params.Frequency, params.Difficulty, id,
	)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return ErrWorkoutExists
		}
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrWorkoutNotFound
	}

	return nil
}

// ReplaceDays swaps the full day schedule of a workout in one transaction.
func (r *Repo) ReplaceDays(ctx context.Context, workoutID int, days []DaySchedule) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.replacedays")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workout.id", workoutID))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				err = fmt.Errorf("%w [rollback: %s]", err, rollbackErr)
			}
		}
	}()

	var exists bool
	if err = tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM workout WHERE id = $1);`, workoutID).Scan(&exists); err != nil {
		return fmt.Errorf("check workout: %w", err)
	}
	if !exists {
		return ErrWorkoutNotFound
	}

	if _, err = tx.Exec(
		ctx,
		`DELETE FROM workout_day_exercise
			WHERE workout_day_id IN (SELECT id FROM workout_day WHERE workout_id = $1);`,
		workoutID,
	); err != nil {
		return fmt.Errorf("delete day exercises: %w", err)
	}
	if _, err = tx.Exec(ctx, `DELETE FROM workout_day WHERE workout_id = $1;`, workoutID); err != nil {
		return fmt.Errorf("delete days: %w", err)
	}

	if err = r.insertDays(ctx, tx, workoutID, days); err != nil {
		return err
	}

	if err = recomputeDuration(ctx, tx, workoutID); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *Repo) AddExerciseToDay(ctx context.Context, workoutID int, day string, exerciseID int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.addexercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workout.id", workoutID))
	span.SetAttributes(attribute.String("day", day))
	span.SetAttributes(attribute.Int("exercise.id", exerciseID))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				err = fmt.Errorf("%w [rollback: %s]", err, rollbackErr)
			}
		}
	}()

	var dayID int
	err = tx.QueryRow(
		ctx,
		`SELECT id FROM workout_day WHERE workout_id = $1 AND day = $2 ORDER BY position LIMIT 1;`,
		workoutID, day,
	).Scan(&dayID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrDayNotFound
		}
		return fmt.Errorf("find workout day: %w", err)
	}

	if _, err = tx.Exec(
		ctx,
		`INSERT INTO workout_day_exercise (workout_day_id, exercise_id, position)
			VALUES ($1, $2, (
				SELECT COALESCE(MAX(position), -1) + 1 FROM workout_day_exercise WHERE workout_day_id = $1
			));`,
		dayID, exerciseID,
	); err != nil {
		if pkg.IsUniqueViolationError(err) {
			return ErrDuplicateExerciseInDay
		}
		if pkg.IsForeignKeyViolationError(err) {
			return ErrUnknownExercise
		}
		return fmt.Errorf("insert day exercise: %w", err)
	}

	if err = recomputeDuration(ctx, tx, workoutID); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *Repo) RemoveExerciseFromDay(ctx context.Context, workoutID int, day string, exerciseID int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.removeexercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workout.id", workoutID))
	span.SetAttributes(attribute.String("day", day))
	span.SetAttributes(attribute.Int("exercise.id", exerciseID))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				err = fmt.Errorf("%w [rollback: %s]", err, rollbackErr)
			}
		}
	}()

	tag, err := tx.Exec(
		ctx,
		`DELETE FROM workout_day_exercise
			WHERE exercise_id = $1
			AND workout_day_id IN (
				SELECT id FROM workout_day WHERE workout_id = $2 AND day = $3
			);`,
		exerciseID, workoutID, day,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrExerciseNotInDay
	}

	if err = recomputeDuration(ctx, tx, workoutID); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// RecomputeDuration re-derives and stores the workout duration on its own.
// The day-mutating repo methods already do this inside their transaction;
// this is the manual repair entry point.
func (r *Repo) RecomputeDuration(ctx context.Context, workoutID int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.recomputeduration")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workout.id", workoutID))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				err = fmt.Errorf("%w [rollback: %s]", err, rollbackErr)
			}
		}
	}()

	if err = recomputeDuration(ctx, tx, workoutID); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
