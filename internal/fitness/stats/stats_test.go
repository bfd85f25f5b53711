package stats

import (
	"context"
	"testing"
	"time"

	"github.com/fitrackhq/fitrack/internal/fitness/users"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateBMI(t *testing.T) {
	testCases := []struct {
		weightKg       float64
		heightCm       float64
		expectedBMI    float64
		expectedStatus string
	}{
		{50, 175, 16.3, BMIStatusUnderweight},
		{70, 175, 22.9, BMIStatusNormal},
		{80, 170, 27.7, BMIStatusOverweight},
		{100, 170, 34.6, BMIStatusObese},
		{0, 170, 0, ""},
		{70, 0, 0, ""},
	}

	for _, tc := range testCases {
		bmi, status := CalculateBMI(tc.weightKg, tc.heightCm)
		assert.Equal(t, tc.expectedBMI, bmi, "weight %v height %v", tc.weightKg, tc.heightCm)
		assert.Equal(t, tc.expectedStatus, status)
	}
}

func TestWeekStart(t *testing.T) {
	// Wednesday 2024-05-15 14:30 -> Sunday 2024-05-12 00:00
	wednesday := time.Date(2024, 5, 15, 14, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 12, 0, 0, 0, 0, time.UTC), WeekStart(wednesday))

	// Sunday stays on the same day
	sunday := time.Date(2024, 5, 12, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 12, 0, 0, 0, 0, time.UTC), WeekStart(sunday))
}

func TestGoalProgress(t *testing.T) {
	// 3 of 4 -> 75%, needs improvement
	percent := GoalProgressPercent(3, 4)
	assert.Equal(t, 75.0, percent)
	assert.Equal(t, GoalStatusNeedsImprovement, GoalStatus(percent))

	// capped at 100
	assert.Equal(t, 100.0, GoalProgressPercent(9, 4))
	assert.Equal(t, GoalStatusOnTrack, GoalStatus(100))

	// target unset falls back to 4
	assert.Equal(t, 50.0, GoalProgressPercent(2, 0))

	assert.Equal(t, GoalStatusFallingBehind, GoalStatus(25))
	assert.Equal(t, GoalStatusOnTrack, GoalStatus(80))
	assert.Equal(t, GoalStatusNeedsImprovement, GoalStatus(50))
}

type caloriesSourceMock struct {
	calories []int
	since    time.Time
}

func (m *caloriesSourceMock) CaloriesSince(_ context.Context, _ string, since time.Time) ([]int, error) {
	m.since = since
	return m.calories, nil
}

type completionsCounterMock struct {
	counts map[time.Time]int
}

func (m *completionsCounterMock) CompletedCountSince(_ context.Context, _ string, since time.Time) (int, error) {
	return m.counts[since], nil
}

type profileGetterMock struct {
	profile *users.Profile
}

func (m *profileGetterMock) Get(_ context.Context, _ string) (*users.Profile, error) {
	if m.profile == nil {
		return nil, users.ErrProfileNotFound
	}
	return m.profile, nil
}

func TestService_WeeklyCalorieAverage(t *testing.T) {
	ctx := context.Background()
	dietMock := &caloriesSourceMock{calories: []int{2000, 2500, 1800}}
	service := NewService(dietMock, &completionsCounterMock{}, &profileGetterMock{})

	now := time.Date(2024, 5, 15, 14, 30, 0, 0, time.UTC)
	service.now = func() time.Time { return now }

	avg, err := service.WeeklyCalorieAverage(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2100, avg)
	assert.Equal(t, WeekStart(now), dietMock.since)

	dietMock.calories = nil
	avg, err = service.WeeklyCalorieAverage(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, avg)
}

func TestService_WorkoutsPerWeek(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 15, 14, 30, 0, 0, time.UTC)

	completionsMock := &completionsCounterMock{counts: map[time.Time]int{
		MonthStart(now): 6,
	}}
	service := NewService(&caloriesSourceMock{}, completionsMock, &profileGetterMock{})
	service.now = func() time.Time { return now }

	perWeek, err := service.WorkoutsPerWeek(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1.5, perWeek)
}

func TestService_HealthStatsFor(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 15, 14, 30, 0, 0, time.UTC)

	completionsMock := &completionsCounterMock{counts: map[time.Time]int{
		MonthStart(now): 6,
		WeekStart(now):  3,
	}}
	service := NewService(
		&caloriesSourceMock{calories: []int{2000}},
		completionsMock,
		&profileGetterMock{profile: &users.Profile{
			UserID:         "u1",
			WeightKg:       70,
			HeightCm:       175,
			TargetWorkouts: 4,
		}},
	)
	service.now = func() time.Time { return now }

	healthStats, err := service.HealthStatsFor(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 22.9, healthStats.BMI)
	assert.Equal(t, BMIStatusNormal, healthStats.BMIStatus)
	assert.Equal(t, 2000, healthStats.WeeklyCalorieAverage)
	assert.Equal(t, 1.5, healthStats.WorkoutsPerWeek)
	assert.Equal(t, 75.0, healthStats.GoalProgress.Percent)
	assert.Equal(t, GoalStatusNeedsImprovement, healthStats.GoalProgress.Status)
}

func TestService_HealthStatsFor_NoProfile(t *testing.T) {
	service := NewService(&caloriesSourceMock{}, &completionsCounterMock{}, &profileGetterMock{})

	_, err := service.HealthStatsFor(context.Background(), "u1")
	assert.ErrorIs(t, err, users.ErrProfileNotFound)
}
