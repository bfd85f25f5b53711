package workouts

import (
	"context"
	"time"

	"github.com/fitrackhq/fitrack/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

type serviceRepo interface {
	Create(ctx context.Context, workout Workout) (*Workout, error)
	Get(ctx context.Context, id int) (*Workout, error)
	List(ctx context.Context, page, size int) (_ []Workout, total int, err error)
	Update(ctx context.Context, id int, params UpdateParams) error
	ReplaceDays(ctx context.Context, workoutID int, days []DaySchedule) error
	AddExerciseToDay(ctx context.Context, workoutID int, day string, exerciseID int) error
	RemoveExerciseFromDay(ctx context.Context, workoutID int, day string, exerciseID int) error
	RecomputeDuration(ctx context.Context, workoutID int) error
}

// Service wraps the workouts repo. The repo recomputes the derived duration
// field inside the same transaction as every day-schedule mutation, so days
// and duration cannot commit apart.
type Service struct {
	repo serviceRepo
}

func NewService(repo serviceRepo) *Service {
	return &Service{
		repo: repo,
	}
}

func (s *Service) Create(ctx context.Context, workout Workout) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.workouts.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if workout.CreatedAt.IsZero() {
		workout.CreatedAt = time.Now()
	}
	workout.Duration = FormatDuration(0)

	created, err := s.repo.Create(ctx, workout)
	if err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, created.ID)
}

func (s *Service) Get(ctx context.Context, id int) (*Workout, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, page, size int) ([]Workout, int, error) {
	return s.repo.List(ctx, page, size)
}

func (s *Service) Update(ctx context.Context, id int, params UpdateParams, days *[]DaySchedule) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.workouts.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workout.id", id))

	if err := s.repo.Update(ctx, id, params); err != nil {
		return err
	}

	if days != nil {
		return s.repo.ReplaceDays(ctx, id, *days)
	}

	return nil
}

func (s *Service) AddExercise(ctx context.Context, workoutID int, day string, exerciseID int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.workouts.addexercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return s.repo.AddExerciseToDay(ctx, workoutID, day, exerciseID)
}

func (s *Service) RemoveExercise(ctx context.Context, workoutID int, day string, exerciseID int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.workouts.removeexercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return s.repo.RemoveExerciseFromDay(ctx, workoutID, day, exerciseID)
}

// RecomputeDuration re-derives the workout duration from the persisted day
// schedules and stores it. Idempotent, the mutating paths do not need it.
func (s *Service) RecomputeDuration(ctx context.Context, workoutID int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.workouts.recomputeduration")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workout.id", workoutID))

	return s.repo.RecomputeDuration(ctx, workoutID)
}
