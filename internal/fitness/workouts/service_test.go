package workouts

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// repoMock keeps day-schedule state in memory so the duration sync logic can
// be exercised without a database. Like the real repo, every day-mutating
// method recomputes the duration before it "commits".
type repoMock struct {
	workouts       map[int]*Workout
	durations      map[int][]string
	recomputed     []int
	replacedDays   [][]DaySchedule
	updatedParams  []UpdateParams
	addedExercises []int

	replaceDaysErr error
}

func newRepoMock() *repoMock {
	return &repoMock{
		workouts:  map[int]*Workout{},
		durations: map[int][]string{},
	}
}

func (m *repoMock) recompute(workoutID int) {
	total := 0
	for _, d := range m.durations[workoutID] {
		total += ParseMinutes(d)
	}
	m.workouts[workoutID].Duration = FormatDuration(total)
	m.recomputed = append(m.recomputed, workoutID)
}

func (m *repoMock) Create(_ context.Context, workout Workout) (*Workout, error) {
	workout.ID = len(m.workouts) + 1
	m.workouts[workout.ID] = &workout
	if len(workout.Days) > 0 {
		m.recompute(workout.ID)
	}
	return &workout, nil
}

func (m *repoMock) Get(_ context.Context, id int) (*Workout, error) {
	w, ok := m.workouts[id]
	if !ok {
		return nil, ErrWorkoutNotFound
	}
	return w, nil
}

func (m *repoMock) List(_ context.Context, page, size int) ([]Workout, int, error) {
	return nil, 0, nil
}

func (m *repoMock) Update(_ context.Context, id int, params UpdateParams) error {
	if _, ok := m.workouts[id]; !ok {
		return ErrWorkoutNotFound
	}
	m.updatedParams = append(m.updatedParams, params)
	return nil
}

func (m *repoMock) ReplaceDays(_ context.Context, workoutID int, days []DaySchedule) error {
	if m.replaceDaysErr != nil {
		return m.replaceDaysErr
	}
	if _, ok := m.workouts[workoutID]; !ok {
		return ErrWorkoutNotFound
	}
	m.replacedDays = append(m.replacedDays, days)
	m.durations[workoutID] = nil
	for _, day := range days {
		for _, ex := range day.Exercises {
			m.durations[workoutID] = append(m.durations[workoutID], ex.Duration)
		}
	}
	m.recompute(workoutID)
	return nil
}

func (m *repoMock) AddExerciseToDay(_ context.Context, workoutID int, day string, exerciseID int) error {
	if _, ok := m.workouts[workoutID]; !ok {
		return ErrDayNotFound
	}
	m.addedExercises = append(m.addedExercises, exerciseID)
	m.recompute(workoutID)
	return nil
}

func (m *repoMock) RemoveExerciseFromDay(_ context.Context, workoutID int, day string, exerciseID int) error {
	if _, ok := m.workouts[workoutID]; ok {
		m.recompute(workoutID)
	}
	return nil
}

func (m *repoMock) RecomputeDuration(_ context.Context, workoutID int) error {
	if _, ok := m.workouts[workoutID]; !ok {
		return ErrWorkoutNotFound
	}
	m.recompute(workoutID)
	return nil
}

func TestService_RecomputeDuration(t *testing.T) {
	ctx := context.Background()
	repo := newRepoMock()
	service := NewService(repo)

	repo.workouts[1] = &Workout{ID: 1, Name: "Leg Day"}
	repo.durations[1] = []string{"20 min", "15 min"}

	require.NoError(t, service.RecomputeDuration(ctx, 1))
	assert.Equal(t, "35 min", repo.workouts[1].Duration)

	// recomputing again yields the same value
	require.NoError(t, service.RecomputeDuration(ctx, 1))
	assert.Equal(t, "35 min", repo.workouts[1].Duration)

	// exercise B removed
	repo.durations[1] = []string{"20 min"}
	require.NoError(t, service.RecomputeDuration(ctx, 1))
	assert.Equal(t, "20 min", repo.workouts[1].Duration)

	// no exercises left
	repo.durations[1] = nil
	require.NoError(t, service.RecomputeDuration(ctx, 1))
	assert.Equal(t, "0 min", repo.workouts[1].Duration)
}

func TestService_Create_RecomputesDuration(t *testing.T) {
	ctx := context.Background()
	repo := newRepoMock()
	service := NewService(repo)

	days := []DaySchedule{
		{Day: "Monday", Exercises: []ExerciseRef{
			{ID: 1, Duration: "20 min"},
			{ID: 2, Duration: "15 min"},
		}},
	}

	// Create persists refs through the repo; the mock mirrors them into
	// the duration lookup the way the schema join would.
	repo.durations[1] = []string{"20 min", "15 min"}

	created, err := service.Create(ctx, Workout{Name: "Leg Day", Days: days})
	require.NoError(t, err)
	assert.Equal(t, "35 min", created.Duration)
	assert.False(t, created.CreatedAt.IsZero())
}

func TestService_Update_DaysReplaceTriggersRecompute(t *testing.T) {
	ctx := context.Background()
	repo := newRepoMock()
	service := NewService(repo)

	repo.workouts[1] = &Workout{ID: 1, Name: "Push Day", Duration: "35 min"}

	newDays := []DaySchedule{
		{Day: "Tuesday", Exercises: []ExerciseRef{{ID: 3, Duration: "25 min"}}},
	}
	require.NoError(t, service.Update(ctx, 1, UpdateParams{}, &newDays))

	require.Len(t, repo.replacedDays, 1)
	assert.Equal(t, "25 min", repo.workouts[1].Duration)
}

func TestService_Update_DaysReplaceFailureKeepsDuration(t *testing.T) {
	ctx := context.Background()
	repo := newRepoMock()
	service := NewService(repo)

	repo.workouts[1] = &Workout{ID: 1, Name: "Push Day", Duration: "35 min"}
	repo.replaceDaysErr = errors.New("connection reset")

	newDays := []DaySchedule{
		{Day: "Tuesday", Exercises: []ExerciseRef{{ID: 3, Duration: "25 min"}}},
	}
	err := service.Update(ctx, 1, UpdateParams{}, &newDays)
	require.Error(t, err)

	// the failed replace must not leave a duration write behind, the two
	// only ever change together
	assert.Empty(t, repo.recomputed)
	assert.Equal(t, "35 min", repo.workouts[1].Duration)
}

func TestService_Update_NoDaysNoRecompute(t *testing.T) {
	ctx := context.Background()
	repo := newRepoMock()
	service := NewService(repo)

	repo.workouts[1] = &Workout{ID: 1, Name: "Push Day", Duration: "35 min"}

	name := "Push Day v2"
	require.NoError(t, service.Update(ctx, 1, UpdateParams{Name: &name}, nil))

	assert.Empty(t, repo.recomputed)
	assert.Equal(t, "35 min", repo.workouts[1].Duration)
}

func TestService_AddExercise_RecomputesDuration(t *testing.T) {
	ctx := context.Background()
	repo := newRepoMock()
	service := NewService(repo)

	repo.workouts[1] = &Workout{ID: 1, Name: "Leg Day", Duration: "20 min"}
	repo.durations[1] = []string{"20 min", "15 min"}

	require.NoError(t, service.AddExercise(ctx, 1, "Monday", 2))
	assert.Equal(t, []int{2}, repo.addedExercises)
	assert.Equal(t, "35 min", repo.workouts[1].Duration)
}

func TestService_Update_NotFound(t *testing.T) {
	ctx := context.Background()
	service := NewService(newRepoMock())

	err := service.Update(ctx, 404, UpdateParams{}, nil)
	assert.ErrorIs(t, err, ErrWorkoutNotFound)
}
