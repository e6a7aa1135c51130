package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agroalert/agroalert/internal/datastore/entities"
)

func TestAlertRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertRepository(db)
	ctx := t.Context()
	user := createTestUser(t, db, "maria@example.com")

	culture := &entities.Culture{UserID: user.ID, Name: "Tomate", Active: true}
	require.NoError(t, NewCultureRepository(db).Create(ctx, culture))

	alert := &entities.Alert{
		UserID:    user.ID,
		Type:      entities.AlertTypeWeather,
		Priority:  entities.PriorityCritical,
		Status:    entities.StatusPending,
		Title:     "Alerta de Calor Extremo",
		Message:   "Temperatura acima de 35°C prevista para hoje.",
		CultureID: &culture.ID,
	}
	require.NoError(t, alert.SetMetadata(map[string]any{"rule_id": 7, "temperature": 36.5}))
	require.NoError(t, repo.Create(ctx, alert))
	assert.NotZero(t, alert.ID)

	got, err := repo.Get(ctx, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.AlertTypeWeather, got.Type)
	assert.Equal(t, entities.PriorityCritical, got.Priority)
	assert.Equal(t, "Alerta de Calor Extremo", got.Title)
	require.NotNil(t, got.Culture)
	assert.Equal(t, "Tomate", got.Culture.Name)
	assert.Equal(t, float64(7), got.MetadataMap()["rule_id"])
}

func TestAlertRepository_GetNotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertRepository(db)

	_, err := repo.Get(t.Context(), 999)
	require.ErrorIs(t, err, ErrAlertNotFound)
}

func TestAlertRepository_ListByUserFilters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertRepository(db)
	ctx := t.Context()
	user := createTestUser(t, db, "maria@example.com")
	other := createTestUser(t, db, "joao@example.com")

	seed := []entities.Alert{
		{UserID: user.ID, Type: entities.AlertTypeWeather, Priority: entities.PriorityHigh, Status: entities.StatusPending, Title: "a", Message: "m"},
		{UserID: user.ID, Type: entities.AlertTypeIrrigation, Priority: entities.PriorityMedium, Status: entities.StatusRead, Title: "b", Message: "m"},
		{UserID: user.ID, Type: entities.AlertTypeWeather, Priority: entities.PriorityLow, Status: entities.StatusSent, Title: "c", Message: "m"},
		{UserID: other.ID, Type: entities.AlertTypeWeather, Priority: entities.PriorityHigh, Status: entities.StatusPending, Title: "d", Message: "m"},
	}
	for i := range seed {
		require.NoError(t, repo.Create(ctx, &seed[i]))
	}

	all, err := repo.ListByUser(ctx, AlertFilter{UserID: user.ID})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	weather, err := repo.ListByUser(ctx, AlertFilter{UserID: user.ID, Types: []entities.AlertType{entities.AlertTypeWeather}})
	require.NoError(t, err)
	assert.Len(t, weather, 2)

	unread, err := repo.ListByUser(ctx, AlertFilter{UserID: user.ID, UnreadOnly: true})
	require.NoError(t, err)
	assert.Len(t, unread, 2, "read alerts are excluded from unread listing")

	count, err := repo.CountUnread(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestAlertRepository_ListPendingDue(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertRepository(db)
	ctx := t.Context()
	user := createTestUser(t, db, "maria@example.com")

	now := time.Now()
	future := now.Add(2 * time.Hour)
	past := now.Add(-2 * time.Hour)

	due := &entities.Alert{UserID: user.ID, Type: entities.AlertTypeGeneral, Status: entities.StatusPending, Title: "due", Message: "m", ScheduledFor: &past}
	notYet := &entities.Alert{UserID: user.ID, Type: entities.AlertTypeGeneral, Status: entities.StatusPending, Title: "later", Message: "m", ScheduledFor: &future}
	unscheduled := &entities.Alert{UserID: user.ID, Type: entities.AlertTypeGeneral, Status: entities.StatusPending, Title: "now", Message: "m"}
	sent := &entities.Alert{UserID: user.ID, Type: entities.AlertTypeGeneral, Status: entities.StatusSent, Title: "done", Message: "m"}
	for _, a := range []*entities.Alert{due, notYet, unscheduled, sent} {
		require.NoError(t, repo.Create(ctx, a))
	}

	pending, err := repo.ListPendingDue(ctx, now)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	titles := []string{pending[0].Title, pending[1].Title}
	assert.ElementsMatch(t, []string{"due", "now"}, titles)
}

func TestAlertRepository_HasRecentRuleAlert(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertRepository(db)
	ctx := t.Context()
	user := createTestUser(t, db, "maria@example.com")

	alert := &entities.Alert{UserID: user.ID, Type: entities.AlertTypeWeather, Status: entities.StatusPending, Title: "t", Message: "m"}
	require.NoError(t, alert.SetMetadata(map[string]any{"rule_id": 12}))
	require.NoError(t, repo.Create(ctx, alert))

	since := time.Now().Add(-24 * time.Hour)

	hit, err := repo.HasRecentRuleAlert(ctx, user.ID, 12, since)
	require.NoError(t, err)
	assert.True(t, hit, "rule 12 fired within the window")

	// Rule 1 must not match the "rule_id":12 metadata by prefix.
	miss, err := repo.HasRecentRuleAlert(ctx, user.ID, 1, since)
	require.NoError(t, err)
	assert.False(t, miss)

	// Outside the cooldown window nothing matches.
	old, err := repo.HasRecentRuleAlert(ctx, user.ID, 12, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, old)

	// Another user's alerts do not count.
	otherUser, err := repo.HasRecentRuleAlert(ctx, user.ID+1, 12, since)
	require.NoError(t, err)
	assert.False(t, otherUser)
}

func TestAlertRepository_ExpireOverdue(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertRepository(db)
	ctx := t.Context()
	user := createTestUser(t, db, "maria@example.com")

	now := time.Now()
	overdue := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	expired := &entities.Alert{UserID: user.ID, Type: entities.AlertTypeGeneral, Status: entities.StatusSent, Title: "old", Message: "m", ExpiresAt: &overdue}
	alive := &entities.Alert{UserID: user.ID, Type: entities.AlertTypeGeneral, Status: entities.StatusSent, Title: "new", Message: "m", ExpiresAt: &future}
	readOverdue := &entities.Alert{UserID: user.ID, Type: entities.AlertTypeGeneral, Status: entities.StatusRead, Title: "read", Message: "m", ExpiresAt: &overdue}
	for _, a := range []*entities.Alert{expired, alive, readOverdue} {
		require.NoError(t, repo.Create(ctx, a))
	}

	n, err := repo.ExpireOverdue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.Get(ctx, expired.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusExpired, got.Status)

	got, err = repo.Get(ctx, readOverdue.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusRead, got.Status, "terminal states are left alone")
}

func TestAlertRepository_DeleteTypeOlderThan(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertRepository(db)
	ctx := t.Context()
	user := createTestUser(t, db, "maria@example.com")

	old := &entities.Alert{UserID: user.ID, Type: entities.AlertTypePlanting, Status: entities.StatusRead, Title: "old", Message: "m", CreatedAt: time.Now().AddDate(0, 0, -45)}
	recent := &entities.Alert{UserID: user.ID, Type: entities.AlertTypePlanting, Status: entities.StatusRead, Title: "recent", Message: "m"}
	otherType := &entities.Alert{UserID: user.ID, Type: entities.AlertTypeWeather, Status: entities.StatusRead, Title: "weather", Message: "m", CreatedAt: time.Now().AddDate(0, 0, -45)}
	for _, a := range []*entities.Alert{old, recent, otherType} {
		require.NoError(t, repo.Create(ctx, a))
	}

	n, err := repo.DeleteTypeOlderThan(ctx, entities.AlertTypePlanting, time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.Get(ctx, old.ID)
	require.ErrorIs(t, err, ErrAlertNotFound)
	_, err = repo.Get(ctx, otherType.ID)
	require.NoError(t, err, "other types are untouched")
}

func TestAlertRepository_Stats(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertRepository(db)
	ctx := t.Context()
	user := createTestUser(t, db, "maria@example.com")

	seed := []entities.Alert{
		{UserID: user.ID, Type: entities.AlertTypeWeather, Priority: entities.PriorityCritical, Status: entities.StatusPending, Title: "a", Message: "m"},
		{UserID: user.ID, Type: entities.AlertTypeWeather, Priority: entities.PriorityLow, Status: entities.StatusSent, Title: "b", Message: "m"},
		{UserID: user.ID, Type: entities.AlertTypeHarvest, Priority: entities.PriorityHigh, Status: entities.StatusRead, Title: "c", Message: "m"},
	}
	for i := range seed {
		require.NoError(t, repo.Create(ctx, &seed[i]))
	}

	stats, err := repo.Stats(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.Unread)
	assert.Equal(t, int64(1), stats.Urgent, "read alerts do not count as urgent")
	assert.Equal(t, int64(2), stats.ByType["weather"])
	assert.Equal(t, int64(1), stats.ByType["harvest"])
	assert.Equal(t, int64(1), stats.ByPriority["critical"])
	assert.Equal(t, int64(1), stats.ByStatus["read"])
}
