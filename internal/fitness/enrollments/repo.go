package enrollments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fitrackhq/fitrack/internal/telemetry/tracing"
	"github.com/fitrackhq/fitrack/pkg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrEnrollmentNotFound    = errors.New("enrollment not found")
	ErrEnrollmentExists      = errors.New("active or paused enrollment already exists")
	ErrAlreadyCompletedToday = errors.New("exercise already completed today")
	ErrInvalidStatus         = errors.New("invalid enrollment status")
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, enrollment Enrollment) (_ *Enrollment, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.enrollments.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", enrollment.UserID))
	span.SetAttributes(attribute.Int("workout.id", enrollment.WorkoutID))

	row := r.db.QueryRow(
		ctx,
		`INSERT INTO enrollment (user_id, workout_id, status, start_date)
			VALUES ($1, $2, $3, $4)
			RETURNING id;`,
		enrollment.UserID, enrollment.WorkoutID, enrollment.Status, enrollment.StartDate,
	)
	if err = row.Scan(&enrollment.ID); err != nil {
		// partial unique index on (user_id, workout_id) where status is open
		if pkg.IsUniqueViolationError(err) {
			return nil, ErrEnrollmentExists
		}
		return nil, err
	}

	span.SetAttributes(attribute.Int("enrollment.id", enrollment.ID))
	return &enrollment, nil
}

// GetOpen returns the single active or paused enrollment of the user for the
// given workout.
func (r *Repo) GetOpen(ctx context.Context, userID string, workoutID int) (_ *Enrollment, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.enrollments.getopen")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))
	span.SetAttributes(attribute.Int("workout.id", workoutID))

	row := r.db.QueryRow(
		ctx,
		`SELECT id, user_id, workout_id, status, start_date, completed_at
			FROM enrollment
			WHERE user_id = $1 AND workout_id = $2 AND status IN ('active', 'paused');`,
		userID, workoutID,
	)

	var e Enrollment
	if err := row.Scan(&e.ID, &e.UserID, &e.WorkoutID, &e.Status, &e.StartDate, &e.CompletedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("scan enrollment: %w", err)
	}

	return &e, nil
}

// HasCompleted reports whether the user has at least one completed
// enrollment for the workout.
func (r *Repo) HasCompleted(ctx context.Context, userID string, workoutID int) (_ bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.enrollments.hascompleted")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))
	span.SetAttributes(attribute.Int("workout.id", workoutID))

	var exists bool
	err = r.db.QueryRow(
		ctx,
		`SELECT EXISTS(
			SELECT 1 FROM enrollment
			WHERE user_id = $1 AND workout_id = $2 AND status = 'completed'
		);`,
		userID, workoutID,
	).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}

func (r *Repo) SetStatus(ctx context.Context, enrollmentID int, status Status, completedAt *time.Time) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.enrollments.setstatus")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("enrollment.id", enrollmentID))
	span.SetAttributes(attribute.String("status", string(status)))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE enrollment SET status = $1, completed_at = $2 WHERE id = $3;`,
		status, completedAt, enrollmentID,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrEnrollmentNotFound
	}

	return nil
}

func (r *Repo) ListByStatus(ctx context.Context, userID string, status Status) (_ []Enrollment, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.enrollments.listbystatus")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))
	span.SetAttributes(attribute.String("status", string(status)))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, user_id, workout_id, status, start_date, completed_at
			FROM enrollment
			WHERE user_id = $1 AND status = $2
			ORDER BY start_date DESC;`,
		userID, status,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var enrollments []Enrollment
	for rows.Next() {
		var e Enrollment
		if err := rows.Scan(&e.ID, &e.UserID, &e.WorkoutID, &e.Status, &e.StartDate, &e.CompletedAt); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		enrollments = append(enrollments, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return enrollments, nil
}

// History returns completed enrollments, newest first. Workout name and
// duration fall back to "Deleted Workout" / "0 min" if the workout row is
// gone.
func (r *Repo) History(ctx context.Context, userID string) (_ []HistoryEntry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.enrollments.history")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	rows, err := r.db.Query(
		ctx,
		`SELECT e.id, e.workout_id, COALESCE(w.name, 'Deleted Workout'),
				COALESCE(w.duration, '0 min'), e.start_date, e.completed_at
			FROM enrollment e
			LEFT JOIN workout w ON w.id = e.workout_id
			WHERE e.user_id = $1 AND e.status = 'completed'
			ORDER BY e.completed_at DESC;`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []HistoryEntry
	for rows.Next() {
		var h HistoryEntry
		if err := rows.Scan(
			&h.EnrollmentID, &h.WorkoutID, &h.WorkoutName, &h.WorkoutDuration,
			&h.StartDate, &h.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return history, nil
}

// CompletedCountSince counts enrollments of the user completed on or after
// the given time.
func (r *Repo) CompletedCountSince(ctx context.Context, userID string, since time.Time) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.enrollments.completedcountsince")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))
	span.SetAttributes(attribute.String("since", since.String()))

	var count int
	err = r.db.QueryRow(
		ctx,
		`SELECT COUNT(*) FROM enrollment
			WHERE user_id = $1 AND status = 'completed' AND completed_at >= $2;`,
		userID, since,
	).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// CompletedDurations returns the workout duration strings of all completed
// enrollments of the user, one per enrollment.
func (r *Repo) CompletedDurations(ctx context.Context, userID string) (_ []string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.enrollments.completeddurations")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	rows, err := r.db.Query(
		ctx,
		`SELECT COALESCE(w.duration, '0 min')
			FROM enrollment e
			LEFT JOIN workout w ON w.id = e.workout_id
			WHERE e.user_id = $1 AND e.status = 'completed';`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var durations []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		durations = append(durations, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return durations, nil
}

func (r *Repo) AddCompletion(ctx context.Context, enrollmentID, exerciseID int, completedAt time.Time) (_ *Completion, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.enrollments.addcompletion")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("enrollment.id", enrollmentID))
	span.SetAttributes(attribute.Int("exercise.id", exerciseID))

	completion := Completion{
		EnrollmentID: enrollmentID,
		ExerciseID:   exerciseID,
		CompletedAt:  completedAt,
	}
	row := r.db.QueryRow(
		ctx,
		`INSERT INTO exercise_completion (enrollment_id, exercise_id, completed_at)
			VALUES ($1, $2, $3)
			RETURNING id;`,
		enrollmentID, exerciseID, completedAt,
	)
	if err = row.Scan(&completion.ID); err != nil {
		return nil, err
	}

	return &completion, nil
}

// HasCompletionBetween reports whether a completion for (enrollment,
// exercise) exists within [from, to).
func (r *Repo) HasCompletionBetween(ctx context.Context, enrollmentID, exerciseID int, from, to time.Time) (_ bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.enrollments.hascompletionbetween")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("enrollment.id", enrollmentID))
	span.SetAttributes(attribute.Int("exercise.id", exerciseID))

	var exists bool
	err = r.db.QueryRow(
		ctx,
		`SELECT EXISTS(
			SELECT 1 FROM exercise_completion
			WHERE enrollment_id = $1 AND exercise_id = $2
			AND completed_at >= $3 AND completed_at < $4
		);`,
		enrollmentID, exerciseID, from, to,
	).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}

// CompletionsBetween returns all completions of the enrollment within
// [from, to).
func (r *Repo) CompletionsBetween(ctx context.Context, enrollmentID int, from, to time.Time) (_ []Completion, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.enrollments.completionsbetween")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("enrollment.id", enrollmentID))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, enrollment_id, exercise_id, completed_at
			FROM exercise_completion
			WHERE enrollment_id = $1 AND completed_at >= $2 AND completed_at < $3;`,
		enrollmentID, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var completions []Completion
	for rows.Next() {
		var c Completion
		if err := rows.Scan(&c.ID, &c.EnrollmentID, &c.ExerciseID, &c.CompletedAt); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		completions = append(completions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return completions, nil
}
