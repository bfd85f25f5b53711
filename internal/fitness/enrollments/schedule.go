package enrollments

import (
	"context"
	"errors"
	"time"

	"github.com/fitrackhq/fitrack/internal/fitness/workouts"
	"github.com/fitrackhq/fitrack/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultSchedulePage = 1
	defaultScheduleSize = 4
)

type TodayExercise struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Sets        int    `json:"sets"`
	Reps        string `json:"reps"`
	IsCompleted bool   `json:"isCompleted"`
}

type TodayWorkout struct {
	WorkoutID      int             `json:"workoutId"`
	WorkoutName    string          `json:"workoutName"`
	Day            string          `json:"day"`
	TotalExercises int             `json:"totalExercises"`
	CurrentPage    int             `json:"currentPage"`
	TotalPages     int             `json:"totalPages"`
	Exercises      []TodayExercise `json:"exercises"`
}

type resolverRepo interface {
	ListByStatus(ctx context.Context, userID string, status Status) ([]Enrollment, error)
	CompletionsBetween(ctx context.Context, enrollmentID int, from, to time.Time) ([]Completion, error)
}

// Resolver assembles the exercises scheduled for a user on a given weekday,
// across all active enrollments, with per-workout pagination.
type Resolver struct {
	repo     resolverRepo
	workouts workoutGetter

	now func() time.Time
}

func NewResolver(repo resolverRepo, workouts workoutGetter) *Resolver {
	return &Resolver{
		repo:     repo,
		workouts: workouts,
		now:      time.Now,
	}
}

func (r *Resolver) ResolveToday(ctx context.Context, userID string, page, size int) (_ []TodayWorkout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "resolver.schedule.today")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	if page < 1 {
		page = defaultSchedulePage
	}
	if size < 1 {
		size = defaultScheduleSize
	}

	now := r.now()
	weekday := now.Weekday().String()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	active, err := r.repo.ListByStatus(ctx, userID, StatusActive)
	if err != nil {
		return nil, err
	}

	todaysWorkouts := []TodayWorkout{}
	for _, enrollment := range active {
		workout, err := r.workouts.Get(ctx, enrollment.WorkoutID)
		if err != nil {
			// an enrollment can outlive its workout row
			if errors.Is(err, workouts.ErrWorkoutNotFound) {
				log.Warnf("resolve schedule: enrollment %d references missing workout %d", enrollment.ID, enrollment.WorkoutID)
				continue
			}
			return nil, err
		}

		days := schedulesForDay(workout, weekday)
		if len(days) == 0 {
			continue
		}

		completed, err := r.completedToday(ctx, enrollment.ID, dayStart, dayEnd)
		if err != nil {
			return nil, err
		}

		for _, day := range days {
			todaysWorkouts = append(todaysWorkouts, paginateDay(workout, day, page, size, completed))
		}
	}

	span.SetAttributes(attribute.Int("workouts.count", len(todaysWorkouts)))
	return todaysWorkouts, nil
}

func (r *Resolver) completedToday(ctx context.Context, enrollmentID int, from, to time.Time) (map[int]bool, error) {
	completions, err := r.repo.CompletionsBetween(ctx, enrollmentID, from, to)
	if err != nil {
		return nil, err
	}
	completed := make(map[int]bool, len(completions))
	for _, c := range completions {
		completed[c.ExerciseID] = true
	}
	return completed, nil
}

// schedulesForDay returns every non-empty day schedule matching the weekday.
// A workout may carry the same weekday more than once, each entry gets its
// own fragment.
func schedulesForDay(workout *workouts.Workout, weekday string) []*workouts.DaySchedule {
	var matched []*workouts.DaySchedule
	for i := range workout.Days {
		if workout.Days[i].Day == weekday && len(workout.Days[i].Exercises) > 0 {
			matched = append(matched, &workout.Days[i])
		}
	}
	return matched
}

// paginateDay slices the day's exercise list into the requested page. A page
// past the end yields an empty exercise list, not an error.
func paginateDay(
	workout *workouts.Workout,
	day *workouts.DaySchedule,
	page, size int,
	completed map[int]bool,
) TodayWorkout {
	total := len(day.Exercises)
	totalPages := (total + size - 1) / size

	from := (page - 1) * size
	to := from + size
	if from > total {
		from = total
	}
	if to > total {
		to = total
	}

	todayExercises := make([]TodayExercise, 0, to-from)
	for _, exercise := range day.Exercises[from:to] {
		todayExercises = append(todayExercises, TodayExercise{
			ID:          exercise.ID,
			Name:        exercise.Name,
			Sets:        exercise.Sets,
			Reps:        exercise.Reps,
			IsCompleted: completed[exercise.ID],
		})
	}

	return TodayWorkout{
		WorkoutID:      workout.ID,
		WorkoutName:    workout.Name,
		Day:            day.Day,
		TotalExercises: total,
		CurrentPage:    page,
		TotalPages:     totalPages,
		Exercises:      todayExercises,
	}
}
