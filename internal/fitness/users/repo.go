package users

import (
	"context"
	"errors"

	"github.com/fitrackhq/fitrack/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrProfileNotFound = errors.New("user profile not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Get(ctx context.Context, userID string) (_ *Profile, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	row := r.db.QueryRow(
		ctx,
		`SELECT user_id, username, avatar_url, weight_kg, height_cm, goal, target_workouts, activity_level
			FROM user_profile
			WHERE user_id = $1;`,
		userID,
	)

	var p Profile
	if err := row.Scan(
		&p.UserID, &p.Username, &p.AvatarURL, &p.WeightKg, &p.HeightCm,
		&p.Goal, &p.TargetWorkouts, &p.ActivityLevel,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	return &p, nil
}

func (r *Repo) Upsert(ctx context.Context, profile Profile) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.upsert")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", profile.UserID))

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO user_profile
				(user_id, username, avatar_url, weight_kg, height_cm, goal, target_workouts, activity_level)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (user_id) DO UPDATE SET
				username = EXCLUDED.username,
				avatar_url = EXCLUDED.avatar_url,
				weight_kg = EXCLUDED.weight_kg,
				height_cm = EXCLUDED.height_cm,
				goal = EXCLUDED.goal,
				target_workouts = EXCLUDED.target_workouts,
				activity_level = EXCLUDED.activity_level;`,
		profile.UserID, profile.Username, profile.AvatarURL, profile.WeightKg, profile.HeightCm,
		profile.Goal, profile.TargetWorkouts, profile.ActivityLevel,
	)
	return err
}
