package enrollments

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/fitrackhq/fitrack/internal/fitness/events"
	"github.com/fitrackhq/fitrack/internal/fitness/stats"
	"github.com/fitrackhq/fitrack/internal/fitness/users"
	"github.com/fitrackhq/fitrack/internal/fitness/workouts"
	"github.com/fitrackhq/fitrack/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// ErrEnrollmentCompleted is returned on attempts to transition an enrollment
// that already reached its terminal state. Re-enrollment creates a new record
// instead.
var ErrEnrollmentCompleted = errors.New("enrollment already completed")

type enrollmentsRepo interface {
	Add(ctx context.Context, enrollment Enrollment) (*Enrollment, error)
	GetOpen(ctx context.Context, userID string, workoutID int) (*Enrollment, error)
	HasCompleted(ctx context.Context, userID string, workoutID int) (bool, error)
	SetStatus(ctx context.Context, enrollmentID int, status Status, completedAt *time.Time) error
	ListByStatus(ctx context.Context, userID string, status Status) ([]Enrollment, error)
	History(ctx context.Context, userID string) ([]HistoryEntry, error)
	CompletedCountSince(ctx context.Context, userID string, since time.Time) (int, error)
	CompletedDurations(ctx context.Context, userID string) ([]string, error)
	AddCompletion(ctx context.Context, enrollmentID, exerciseID int, completedAt time.Time) (*Completion, error)
	HasCompletionBetween(ctx context.Context, enrollmentID, exerciseID int, from, to time.Time) (bool, error)
}

type workoutGetter interface {
	Get(ctx context.Context, id int) (*workouts.Workout, error)
}

type profileGetter interface {
	Get(ctx context.Context, userID string) (*users.Profile, error)
}

type eventPublisher interface {
	PublishEnrollmentCompleted(ctx context.Context, event events.EnrollmentCompleted) error
}

type Service struct {
	repo      enrollmentsRepo
	workouts  workoutGetter
	profiles  profileGetter
	publisher eventPublisher

	now func() time.Time
}

func NewService(
	repo enrollmentsRepo,
	workouts workoutGetter,
	profiles profileGetter,
	publisher eventPublisher,
) *Service {
	return &Service{
		repo:      repo,
		workouts:  workouts,
		profiles:  profiles,
		publisher: publisher,
		now:       time.Now,
	}
}

// Enroll starts a new active enrollment. At most one active or paused
// enrollment per (user, workout) may exist at any time.
func (s *Service) Enroll(ctx context.Context, userID string, workoutID int) (_ *Enrollment, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.enrollments.enroll")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))
	span.SetAttributes(attribute.Int("workout.id", workoutID))

	if _, err := s.workouts.Get(ctx, workoutID); err != nil {
		return nil, err
	}

	_, err = s.repo.GetOpen(ctx, userID, workoutID)
	if err == nil {
		return nil, ErrEnrollmentExists
	}
	if !errors.Is(err, ErrEnrollmentNotFound) {
		return nil, err
	}

	// the partial unique index backstops this check under races
	return s.repo.Add(ctx, Enrollment{
		UserID:    userID,
		WorkoutID: workoutID,
		Status:    StatusActive,
		StartDate: s.now(),
	})
}

// SetStatus transitions the user's open enrollment for the workout.
// Completed is terminal.
func (s *Service) SetStatus(ctx context.Context, userID string, workoutID int, newStatus Status) (_ *Enrollment, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.enrollments.setstatus")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))
	span.SetAttributes(attribute.Int("workout.id", workoutID))
	span.SetAttributes(attribute.String("status", string(newStatus)))

	if !newStatus.Valid() {
		return nil, ErrInvalidStatus
	}

	enrollment, err := s.repo.GetOpen(ctx, userID, workoutID)
	if err != nil {
		if errors.Is(err, ErrEnrollmentNotFound) {
			completed, hasErr := s.repo.HasCompleted(ctx, userID, workoutID)
			if hasErr == nil && completed {
				return nil, ErrEnrollmentCompleted
			}
		}
		return nil, err
	}

	if newStatus == StatusCompleted {
		completedAt := s.now()
		if err := s.repo.SetStatus(ctx, enrollment.ID, StatusCompleted, &completedAt); err != nil {
			return nil, err
		}
		enrollment.Status = StatusCompleted
		enrollment.CompletedAt = &completedAt

		s.publishCompleted(ctx, enrollment)
		return enrollment, nil
	}

	if err := s.repo.SetStatus(ctx, enrollment.ID, newStatus, nil); err != nil {
		return nil, err
	}
	enrollment.Status = newStatus
	return enrollment, nil
}

// publishCompleted emits the notification-trigger event, best-effort.
func (s *Service) publishCompleted(ctx context.Context, enrollment *Enrollment) {
	workoutName := ""
	if workout, err := s.workouts.Get(ctx, enrollment.WorkoutID); err == nil {
		workoutName = workout.Name
	}

	event := events.EnrollmentCompleted{
		UserID:      enrollment.UserID,
		WorkoutID:   enrollment.WorkoutID,
		WorkoutName: workoutName,
		CompletedAt: *enrollment.CompletedAt,
	}
	if err := s.publisher.PublishEnrollmentCompleted(ctx, event); err != nil {
		log.Errorf("publish enrollment completed event [user %s, workout %d]: %s",
			enrollment.UserID, enrollment.WorkoutID, err)
	}
}

// CompleteExercise records that the user performed the exercise today, at
// most once per (enrollment, exercise, calendar day). The duplicate check is
// read-then-write and best-effort under concurrent races.
func (s *Service) CompleteExercise(ctx context.Context, userID string, workoutID, exerciseID int) (_ *Completion, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.enrollments.completeexercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))
	span.SetAttributes(attribute.Int("workout.id", workoutID))
	span.SetAttributes(attribute.Int("exercise.id", exerciseID))

	enrollment, err := s.repo.GetOpen(ctx, userID, workoutID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	alreadyDone, err := s.repo.HasCompletionBetween(ctx, enrollment.ID, exerciseID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	if alreadyDone {
		return nil, ErrAlreadyCompletedToday
	}

	return s.repo.AddCompletion(ctx, enrollment.ID, exerciseID, now)
}

func (s *Service) History(ctx context.Context, userID string) ([]HistoryEntry, error) {
	return s.repo.History(ctx, userID)
}

// ProgressMetrics aggregates training hours and weekly goal progress.
func (s *Service) ProgressMetrics(ctx context.Context, userID string) (_ *ProgressMetrics, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.enrollments.progressmetrics")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	durations, err := s.repo.CompletedDurations(ctx, userID)
	if err != nil {
		return nil, err
	}
	totalMinutes := 0
	for _, d := range durations {
		totalMinutes += workouts.ParseMinutes(d)
	}
	hoursTrained := math.Round(float64(totalMinutes)/60*10) / 10

	target := stats.DefaultWorkoutTarget
	if profile, err := s.profiles.Get(ctx, userID); err == nil && profile.TargetWorkouts > 0 {
		target = profile.TargetWorkouts
	}
	completedThisWeek, err := s.repo.CompletedCountSince(ctx, userID, stats.WeekStart(s.now()))
	if err != nil {
		return nil, err
	}

	lastWorkout := ""
	history, err := s.repo.History(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(history) > 0 {
		lastWorkout = history[0].WorkoutName
	}

	active, err := s.repo.ListByStatus(ctx, userID, StatusActive)
	if err != nil {
		return nil, err
	}

	return &ProgressMetrics{
		HoursTrained:   hoursTrained,
		GoalPercentage: stats.GoalProgressPercent(completedThisWeek, target),
		LastWorkout:    lastWorkout,
		ActiveWorkouts: len(active),
	}, nil
}
