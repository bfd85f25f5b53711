package stats

import (
	"context"
	"math"
	"time"

	"github.com/fitrackhq/fitrack/internal/fitness/users"
	"github.com/fitrackhq/fitrack/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

type caloriesSource interface {
	CaloriesSince(ctx context.Context, userID string, since time.Time) ([]int, error)
}

type completionsCounter interface {
	CompletedCountSince(ctx context.Context, userID string, since time.Time) (int, error)
}

type profileGetter interface {
	Get(ctx context.Context, userID string) (*users.Profile, error)
}

type GoalProgress struct {
	Completed int     `json:"completed"`
	Target    int     `json:"target"`
	Percent   float64 `json:"percent"`
	Status    string  `json:"status"`
}

type HealthStats struct {
	BMI                  float64      `json:"bmi"`
	BMIStatus            string       `json:"bmiStatus"`
	WeeklyCalorieAverage int          `json:"weeklyCalorieAverage"`
	WorkoutsPerWeek      float64      `json:"workoutsPerWeek"`
	GoalProgress         GoalProgress `json:"goalProgress"`
}

// Service derives read-only health aggregates; it holds no state of its own.
type Service struct {
	diet        caloriesSource
	completions completionsCounter
	profiles    profileGetter

	now func() time.Time
}

func NewService(diet caloriesSource, completions completionsCounter, profiles profileGetter) *Service {
	return &Service{
		diet:        diet,
		completions: completions,
		profiles:    profiles,
		now:         time.Now,
	}
}

// WeeklyCalorieAverage is the mean calorie total of diet entries dated within
// the current calendar week, 0 if there are none.
func (s *Service) WeeklyCalorieAverage(ctx context.Context, userID string) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.stats.weeklycalorieaverage")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	calories, err := s.diet.CaloriesSince(ctx, userID, WeekStart(s.now()))
	if err != nil {
		return 0, err
	}
	if len(calories) == 0 {
		return 0, nil
	}

	sum := 0
	for _, c := range calories {
		sum += c
	}
	return int(math.Round(float64(sum) / float64(len(calories)))), nil
}

// WorkoutsPerWeek approximates the weekly completion rate as completions this
// calendar month divided by 4, rounded to one decimal.
func (s *Service) WorkoutsPerWeek(ctx context.Context, userID string) (_ float64, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.stats.workoutsperweek")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	completedThisMonth, err := s.completions.CompletedCountSince(ctx, userID, MonthStart(s.now()))
	if err != nil {
		return 0, err
	}

	return round1(float64(completedThisMonth) / 4), nil
}

func (s *Service) GoalProgressFor(ctx context.Context, userID string) (_ *GoalProgress, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.stats.goalprogress")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	target := DefaultWorkoutTarget
	profile, err := s.profiles.Get(ctx, userID)
	if err == nil && profile.TargetWorkouts > 0 {
		target = profile.TargetWorkouts
	}

	completedThisWeek, err := s.completions.CompletedCountSince(ctx, userID, WeekStart(s.now()))
	if err != nil {
		return nil, err
	}

	percent := GoalProgressPercent(completedThisWeek, target)
	return &GoalProgress{
		Completed: completedThisWeek,
		Target:    target,
		Percent:   percent,
		Status:    GoalStatus(percent),
	}, nil
}

// HealthStatsFor combines BMI, calorie and completion aggregates. The user
// profile must exist, it carries the physical data.
func (s *Service) HealthStatsFor(ctx context.Context, userID string) (_ *HealthStats, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.stats.healthstats")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	bmi, bmiStatus := CalculateBMI(profile.WeightKg, profile.HeightCm)

	calorieAvg, err := s.WeeklyCalorieAverage(ctx, userID)
	if err != nil {
		return nil, err
	}

	perWeek, err := s.WorkoutsPerWeek(ctx, userID)
	if err != nil {
		return nil, err
	}

	goalProgress, err := s.GoalProgressFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &HealthStats{
		BMI:                  bmi,
		BMIStatus:            bmiStatus,
		WeeklyCalorieAverage: calorieAvg,
		WorkoutsPerWeek:      perWeek,
		GoalProgress:         *goalProgress,
	}, nil
}
