package exercises

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
	ErrExerciseNotFound = errors.New("exercise not found")
	ErrExerciseExists   = errors.New("exercise already exists")
)

// sortColumns whitelists the ORDER BY targets for List.
var sortColumns = map[string]string{
	"difficulty": "difficulty",
	"duration":   "duration",
	"created_at": "created_at",
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, exercise Exercise) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO exercise
				(name, description, primary_muscles, secondary_muscles, equipment, duration,
				 difficulty, instructions, sets, reps, rest, category, media_url, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			RETURNING id;`,
		exercise.Name, exercise.Description, exercise.PrimaryMuscles, exercise.SecondaryMuscles,
		exercise.Equipment, exercise.Duration, exercise.Difficulty, exercise.Instructions,
		exercise.Sets, exercise.Reps, exercise.Rest, exercise.Category, exercise.MediaURL,
		exercise.CreatedAt,
	)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, ErrExerciseExists
		}
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, errors.New("unexpected error [no rows next]")
	}

	var id int
	if err := rows.Scan(&id); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	span.SetAttributes(attribute.Int("exercise.id", id))

	exercise.ID = id
	return &exercise, nil
}

// Get returns the exercise and increments its usage counter in the same
// statement. The counter feeds the popular-exercises ranking and is
// best-effort, not exact under concurrent reads.
func (r *Repo) Get(ctx context.Context, id int) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	rows, err := r.db.Query(
		ctx,
		`UPDATE exercise SET usage_count = usage_count + 1
			WHERE id = $1
			RETURNING
				id, name, description, primary_muscles, secondary_muscles, equipment, duration,
				difficulty, instructions, sets, reps, rest, category, media_url, usage_count, created_at;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	exercises, err := r.rows2exercises(rows)
	if err != nil {
		return nil, err
	}

	if len(exercises) != 1 {
		return nil, ErrExerciseNotFound
	}

	return &exercises[0], nil
}

// Peek returns the exercise without touching the usage counter.
func (r *Repo) Peek(ctx context.Context, id int) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.peek")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	rows, err := r.db.Query(
		ctx,
		`SELECT
				id, name, description, primary_muscles, secondary_muscles, equipment, duration,
				difficulty, instructions, sets, reps, rest, category, media_url, usage_count, created_at
			FROM exercise
			WHERE id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	exercises, err := r.rows2exercises(rows)
	if err != nil {
		return nil, err
	}

	if len(exercises) != 1 {
		return nil, ErrExerciseNotFound
	}

	return &exercises[0], nil
}

func (r *Repo) List(ctx context.Context, params ListParams) (_ []Exercise, total int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("page", params.Page))
	span.SetAttributes(attribute.Int("size", params.Size))
	span.SetAttributes(attribute.String("category", params.Category))
	span.SetAttributes(attribute.String("body_part", params.BodyPart))

	if params.Page < 1 {
		return nil, -1, errors.New("page must be greater than 0")
	}
	if params.Size < 1 {
		return nil, -1, errors.New("size must be greater than 0")
	}

	muscles := bodyPartMuscles[params.BodyPart]

	orderBy := "created_at DESC"
	if col, ok := sortColumns[params.SortBy]; ok {
		orderBy = col + " ASC"
	}

	countRow := r.db.QueryRow(
		ctx,
		`SELECT COUNT(*) FROM exercise
			WHERE ($1::text = '' OR category = $1)
			AND ($2::text[] IS NULL OR primary_muscles && $2)
			AND ($3::text = '' OR
				name ILIKE '%' || $3 || '%' OR
				array_to_string(primary_muscles, ' ') ILIKE '%' || $3 || '%' OR
				array_to_string(equipment, ' ') ILIKE '%' || $3 || '%');`,
		params.Category, muscles, params.Search,
	)
	if err := countRow.Scan(&total); err != nil {
		return nil, -1, fmt.Errorf("count exercises: %w", err)
	}

	rows, err := r.db.Query(
		ctx,
		fmt.Sprintf(`SELECT
				id, name, description, primary_muscles, secondary_muscles, equipment, duration,
				difficulty, instructions, sets, reps, rest, category, media_url, usage_count, created_at
			FROM exercise
			WHERE ($1::text = '' OR category = $1)
			AND ($2::text[] IS NULL OR primary_muscles && $2)
			AND ($3::text = '' OR
				name ILIKE '%%' || $3 || '%%' OR
				array_to_string(primary_muscles, ' ') ILIKE '%%' || $3 || '%%' OR
				array_to_string(equipment, ' ') ILIKE '%%' || $3 || '%%')
			ORDER BY %s
			LIMIT $4 OFFSET $5;`, orderBy),
		params.Category, muscles, params.Search,
		params.Size, (params.Page-1)*params.Size,
	)
	if err != nil {
		return nil, -1, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, -1, fmt.Errorf("rows: %w", err)
	}

	exercises, err := r.rows2exercises(rows)
	if err != nil {
		return nil, -1, fmt.Errorf("rows2exercises: %w", err)
	}
	return exercises, total, nil
}

// Popular returns the most used exercises, newest first on usage ties.
func (r *Repo) Popular(ctx context.Context, limit int) (_ []Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.popular")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("limit", limit))

	rows, err := r.db.Query(
		ctx,
		`SELECT
				id, name, description, primary_muscles, secondary_muscles, equipment, duration,
				difficulty, instructions, sets, reps, rest, category, media_url, usage_count, created_at
			FROM exercise
			ORDER BY usage_count DESC, created_at DESC
			LIMIT $1;`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return r.rows2exercises(rows)
}

func (r *Repo) Update(ctx context.Context, exercise *Exercise) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", exercise.ID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE exercise SET
				name = $1, description = $2, primary_muscles = $3, secondary_muscles = $4,
				equipment = $5, duration = $6, difficulty = $7, instructions = $8,
				sets = $9, reps = $10, rest = $11, category = $12, media_url = $13
			WHERE id = $14;`,
		exercise.Name, exercise.Description, exercise.PrimaryMuscles, exercise.SecondaryMuscles,
		exercise.Equipment, exercise.Duration, exercise.Difficulty, exercise.Instructions,
		exercise.Sets, exercise.Reps, exercise.Rest, exercise.Category, exercise.MediaURL,
		exercise.ID,
	)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return ErrExerciseExists
		}
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrExerciseNotFound
	}

	return nil
}

func (r *Repo) rows2exercises(rows pgx.Rows) ([]Exercise, error) {
	var exercises []Exercise
	for rows.Next() {
		var e Exercise
		if err := rows.Scan(
			&e.ID, &e.Name, &e.Description, &e.PrimaryMuscles, &e.SecondaryMuscles,
			&e.Equipment, &e.Duration, &e.Difficulty, &e.Instructions,
			&e.Sets, &e.Reps, &e.Rest, &e.Category, &e.MediaURL, &e.UsageCount, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		exercises = append(exercises, e)
	}
	return exercises, nil
}
