package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studiobooking/internal/domain"
)

func TestStudioWorkingHours_DefaultWithoutSchedule(t *testing.T) {
	repo := NewStudioWorkingHoursRepository(setupTestDB(t))

	wd, err := repo.WorkingDay(context.Background(), 1, time.Tuesday)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultWorkingDay(int(time.Tuesday)), wd)
}

func TestStudioWorkingHours_SaveAndReplace(t *testing.T) {
	repo := NewStudioWorkingHoursRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, 1, []domain.WorkingDay{
		{DayOfWeek: int(time.Monday), OpenTime: "10:00", CloseTime: "20:00"},
		{DayOfWeek: int(time.Sunday), IsClosed: true},
	}))

	wd, err := repo.WorkingDay(ctx, 1, time.Monday)
	require.NoError(t, err)
	assert.Equal(t, "10:00", wd.OpenTime)
	assert.Equal(t, "20:00", wd.CloseTime)

	wd, err = repo.WorkingDay(ctx, 1, time.Sunday)
	require.NoError(t, err)
	assert.True(t, wd.IsClosed)

	// days missing from a stored schedule are closed
	wd, err = repo.WorkingDay(ctx, 1, time.Wednesday)
	require.NoError(t, err)
	assert.True(t, wd.IsClosed)

	require.NoError(t, repo.Save(ctx, 1, []domain.WorkingDay{
		{DayOfWeek: int(time.Monday), OpenTime: "08:00", CloseTime: "12:00"},
	}))
	wd, err = repo.WorkingDay(ctx, 1, time.Monday)
	require.NoError(t, err)
	assert.Equal(t, "08:00", wd.OpenTime)

	// other studios are unaffected
	wd, err = repo.WorkingDay(ctx, 2, time.Monday)
	require.NoError(t, err)
	assert.Equal(t, "09:00", wd.OpenTime)
}
