package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agroalert/agroalert/internal/datastore/entities"
)

func TestPreferenceRepository_GetOrDefaultDoesNotPersist(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPreferenceRepository(db)
	ctx := t.Context()

	pref, err := repo.GetOrDefault(ctx, 1, entities.AlertTypeWeather)
	require.NoError(t, err)
	assert.Zero(t, pref.ID)
	assert.True(t, pref.IsEnabled)
	assert.Equal(t, entities.PriorityLow, pref.MinPriority)

	// The synthesized default must not have been written.
	_, err = repo.Get(ctx, 1, entities.AlertTypeWeather)
	require.ErrorIs(t, err, ErrPreferenceNotFound)
}

func TestPreferenceRepository_UpsertAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPreferenceRepository(db)
	ctx := t.Context()

	quietStart, err := entities.ParseDayTime("22:00")
	require.NoError(t, err)
	quietEnd, err := entities.ParseDayTime("08:00")
	require.NoError(t, err)

	pref := entities.DefaultPreference(1, entities.AlertTypeWeather)
	pref.MinPriority = entities.PriorityHigh
	pref.QuietHoursStart = &quietStart
	pref.QuietHoursEnd = &quietEnd
	require.NoError(t, repo.Upsert(ctx, pref))

	got, err := repo.Get(ctx, 1, entities.AlertTypeWeather)
	require.NoError(t, err)
	assert.Equal(t, entities.PriorityHigh, got.MinPriority)
	require.NotNil(t, got.QuietHoursStart)
	assert.Equal(t, "22:00", got.QuietHoursStart.String())
	assert.Equal(t, "08:00", got.QuietHoursEnd.String())

	// Second upsert updates the same (user, alert_type) row.
	pref2 := entities.DefaultPreference(1, entities.AlertTypeWeather)
	pref2.MinPriority = entities.PriorityMedium
	require.NoError(t, repo.Upsert(ctx, pref2))

	all, err := repo.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, entities.PriorityMedium, all[0].MinPriority)
}

func TestPreferenceRepository_ListAutoEnabled(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPreferenceRepository(db)
	ctx := t.Context()

	enabled := entities.DefaultPreference(1, entities.AlertTypePlanting)
	disabled := entities.DefaultPreference(2, entities.AlertTypePlanting)
	disabled.AutoGenerationEnabled = false
	muted := entities.DefaultPreference(3, entities.AlertTypePlanting)
	muted.IsEnabled = false
	for _, p := range []*entities.UserAlertPreference{enabled, disabled, muted} {
		require.NoError(t, repo.Upsert(ctx, p))
	}

	active, err := repo.ListAutoEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, uint(1), active[0].UserID)
}

func TestPreferenceRepository_MarkAutoGenerated(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPreferenceRepository(db)
	ctx := t.Context()

	pref := entities.DefaultPreference(1, entities.AlertTypePlanting)
	require.NoError(t, repo.Upsert(ctx, pref))

	stamp := time.Date(2025, 5, 5, 8, 0, 0, 0, time.UTC)
	require.NoError(t, repo.MarkAutoGenerated(ctx, pref.ID, stamp))

	got, err := repo.Get(ctx, 1, entities.AlertTypePlanting)
	require.NoError(t, err)
	require.NotNil(t, got.LastAutoGeneration)
	assert.WithinDuration(t, stamp, *got.LastAutoGeneration, time.Second)

	require.ErrorIs(t, repo.MarkAutoGenerated(ctx, 999, stamp), ErrPreferenceNotFound)
}

func TestCropProfileRepository_UpsertByKey(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCropProfileRepository(db)
	ctx := t.Context()

	profile := &entities.CropProfile{Key: "tomate", Name: "Tomate", GrowthDays: 120}
	require.NoError(t, profile.SetPlantingMonths([]string{"Março", "Abril", "Maio"}))
	require.NoError(t, repo.Upsert(ctx, profile))

	update := &entities.CropProfile{Key: "tomate", Name: "Tomate", GrowthDays: 110}
	require.NoError(t, update.SetPlantingMonths([]string{"Março", "Abril"}))
	require.NoError(t, repo.Upsert(ctx, update))

	got, err := repo.GetByKey(ctx, "tomate")
	require.NoError(t, err)
	assert.Equal(t, 110, got.GrowthDays)
	assert.Equal(t, []string{"Março", "Abril"}, got.PlantingMonthList())

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = repo.GetByKey(ctx, "abacaxi")
	require.ErrorIs(t, err, ErrCropProfileNotFound)
}
