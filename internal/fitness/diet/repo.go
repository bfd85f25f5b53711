package diet

import (
	"context"
	"fmt"
	"time"

	"github.com/fitrackhq/fitrack/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, entry Entry) (_ *Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.diet.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", entry.UserID))

	row := r.db.QueryRow(
		ctx,
		`INSERT INTO diet_entry (user_id, entry_date, total_calories, notes, created_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id;`,
		entry.UserID, entry.EntryDate, entry.TotalCalories, entry.Notes, entry.CreatedAt,
	)
	if err = row.Scan(&entry.ID); err != nil {
		return nil, err
	}

	return &entry, nil
}

func (r *Repo) List(ctx context.Context, userID string) (_ []Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.diet.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, user_id, entry_date, total_calories, notes, created_at
			FROM diet_entry
			WHERE user_id = $1
			ORDER BY entry_date DESC;`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.EntryDate, &e.TotalCalories, &e.Notes, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// CaloriesSince returns the calorie totals of all entries dated on or after
// the given time.
func (r *Repo) CaloriesSince(ctx context.Context, userID string, since time.Time) (_ []int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.diet.caloriessince")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))
	span.SetAttributes(attribute.String("since", since.String()))

	rows, err := r.db.Query(
		ctx,
		`SELECT total_calories FROM diet_entry
			WHERE user_id = $1 AND entry_date >= $2;`,
		userID, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calories []int
	for rows.Next() {
		var c int
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		calories = append(calories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return calories, nil
}
