package alerting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agroalert/agroalert/internal/datastore/entities"
	"github.com/agroalert/agroalert/internal/datastore/repository"
)

// mockAlertRepo is an in-memory AlertRepository.
type mockAlertRepo struct {
	mu     sync.Mutex
	alerts []entities.Alert
	nextID uint
	clock  func() time.Time
}

func newMockAlertRepo(clock func() time.Time) *mockAlertRepo {
	if clock == nil {
		clock = time.Now
	}
	return &mockAlertRepo{nextID: 1, clock: clock}
}

func (m *mockAlertRepo) Create(_ context.Context, alert *entities.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	alert.ID = m.nextID
	m.nextID++
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = m.clock()
	}
	m.alerts = append(m.alerts, *alert)
	return nil
}

func (m *mockAlertRepo) Get(_ context.Context, id uint) (*entities.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.alerts {
		if m.alerts[i].ID == id {
			alert := m.alerts[i]
			return &alert, nil
		}
	}
	return nil, repository.ErrAlertNotFound
}

func (m *mockAlertRepo) Update(_ context.Context, alert *entities.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.alerts {
		if m.alerts[i].ID == alert.ID {
			m.alerts[i] = *alert
			return nil
		}
	}
	return repository.ErrAlertNotFound
}

func (m *mockAlertRepo) Delete(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.alerts {
		if m.alerts[i].ID == id {
			m.alerts = append(m.alerts[:i], m.alerts[i+1:]...)
			return nil
		}
	}
	return repository.ErrAlertNotFound
}

func (m *mockAlertRepo) ListByUser(_ context.Context, filter repository.AlertFilter) ([]entities.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entities.Alert
	for i := range m.alerts {
		a := m.alerts[i]
		if filter.UserID != 0 && a.UserID != filter.UserID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, a.Status) {
			continue
		}
		if len(filter.Types) > 0 && !containsType(filter.Types, a.Type) {
			continue
		}
		out = append(out, a)
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *mockAlertRepo) CountUnread(_ context.Context, userID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.alerts {
		if m.alerts[i].UserID == userID && containsStatus(entities.UnreadStatuses, m.alerts[i].Status) {
			n++
		}
	}
	return n, nil
}

func (m *mockAlertRepo) ListPendingDue(_ context.Context, now time.Time) ([]entities.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entities.Alert
	for i := range m.alerts {
		a := m.alerts[i]
		if a.Status != entities.StatusPending {
			continue
		}
		if a.ScheduledFor != nil && a.ScheduledFor.After(now) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *mockAlertRepo) HasRecentRuleAlert(_ context.Context, userID, ruleID uint, since time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.alerts {
		a := &m.alerts[i]
		if a.UserID != userID || a.CreatedAt.Before(since) {
			continue
		}
		if id, ok := a.MetadataMap()[MetaRuleID].(float64); ok && uint(id) == ruleID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAlertRepo) ExpireOverdue(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.alerts {
		a := &m.alerts[i]
		if containsStatus(entities.ActiveStatuses, a.Status) && a.IsExpired(now) {
			a.Status = entities.StatusExpired
			n++
		}
	}
	return n, nil
}

func (m *mockAlertRepo) DeleteExpiredBefore(_ context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (m *mockAlertRepo) DeleteTypeOlderThan(_ context.Context, _ entities.AlertType, _ time.Time) (int64, error) {
	return 0, nil
}

func (m *mockAlertRepo) Stats(_ context.Context, userID uint) (*repository.AlertStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &repository.AlertStats{
		ByType:     map[string]int64{},
		ByPriority: map[string]int64{},
		ByStatus:   map[string]int64{},
	}
	for i := range m.alerts {
		a := &m.alerts[i]
		if a.UserID != userID {
			continue
		}
		stats.Total++
		stats.ByType[string(a.Type)]++
		stats.ByPriority[string(a.Priority)]++
		stats.ByStatus[string(a.Status)]++
		if containsStatus(entities.UnreadStatuses, a.Status) {
			stats.Unread++
		}
	}
	return stats, nil
}

func (m *mockAlertRepo) byID(id uint) *entities.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.alerts {
		if m.alerts[i].ID == id {
			return &m.alerts[i]
		}
	}
	return nil
}

func containsStatus(list []entities.AlertStatus, s entities.AlertStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsType(list []entities.AlertType, t entities.AlertType) bool {
	for _, v := range list {
		if v == t {
			return true
		}
	}
	return false
}

// mockRuleRepo is an in-memory AlertRuleRepository.
type mockRuleRepo struct {
	mu     sync.Mutex
	rules  []entities.AlertRule
	nextID uint
}

func newMockRuleRepo(rules ...entities.AlertRule) *mockRuleRepo {
	m := &mockRuleRepo{nextID: 1}
	for i := range rules {
		if rules[i].ID == 0 {
			rules[i].ID = m.nextID
		}
		if rules[i].ID >= m.nextID {
			m.nextID = rules[i].ID + 1
		}
		m.rules = append(m.rules, rules[i])
	}
	return m
}

func (m *mockRuleRepo) GetActiveRules(_ context.Context) ([]entities.AlertRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entities.AlertRule
	for i := range m.rules {
		if m.rules[i].IsActive {
			out = append(out, m.rules[i])
		}
	}
	return out, nil
}

func (m *mockRuleRepo) CreateRule(_ context.Context, rule *entities.AlertRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rule.ID = m.nextID
	m.nextID++
	m.rules = append(m.rules, *rule)
	return nil
}

func (m *mockRuleRepo) CountRulesByName(_ context.Context, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.rules {
		if m.rules[i].Name == name {
			n++
		}
	}
	return n, nil
}

// Remaining methods exist only to satisfy the interface.
func (m *mockRuleRepo) ListRules(_ context.Context, _ repository.AlertRuleFilter) ([]entities.AlertRule, error) {
	return nil, nil
}
func (m *mockRuleRepo) GetRule(_ context.Context, _ uint) (*entities.AlertRule, error) {
	return nil, repository.ErrAlertRuleNotFound
}
func (m *mockRuleRepo) UpdateRule(_ context.Context, _ *entities.AlertRule) error { return nil }
func (m *mockRuleRepo) DeleteRule(_ context.Context, _ uint) error                { return nil }
func (m *mockRuleRepo) ToggleRule(_ context.Context, _ uint, _ bool) error        { return nil }

// mockPrefRepo is an in-memory PreferenceRepository.
type mockPrefRepo struct {
	mu     sync.Mutex
	prefs  []entities.UserAlertPreference
	nextID uint
}

func newMockPrefRepo(prefs ...entities.UserAlertPreference) *mockPrefRepo {
	m := &mockPrefRepo{nextID: 1}
	for i := range prefs {
		if prefs[i].ID == 0 {
			prefs[i].ID = m.nextID
		}
		if prefs[i].ID >= m.nextID {
			m.nextID = prefs[i].ID + 1
		}
		m.prefs = append(m.prefs, prefs[i])
	}
	return m
}

func (m *mockPrefRepo) Get(_ context.Context, userID uint, alertType entities.AlertType) (*entities.UserAlertPreference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.prefs {
		if m.prefs[i].UserID == userID && m.prefs[i].AlertType == alertType {
			pref := m.prefs[i]
			return &pref, nil
		}
	}
	return nil, repository.ErrPreferenceNotFound
}

func (m *mockPrefRepo) GetOrDefault(ctx context.Context, userID uint, alertType entities.AlertType) (*entities.UserAlertPreference, error) {
	pref, err := m.Get(ctx, userID, alertType)
	if err == nil {
		return pref, nil
	}
	return entities.DefaultPreference(userID, alertType), nil
}

func (m *mockPrefRepo) Upsert(_ context.Context, pref *entities.UserAlertPreference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.prefs {
		if m.prefs[i].UserID == pref.UserID && m.prefs[i].AlertType == pref.AlertType {
			pref.ID = m.prefs[i].ID
			m.prefs[i] = *pref
			return nil
		}
	}
	pref.ID = m.nextID
	m.nextID++
	m.prefs = append(m.prefs, *pref)
	return nil
}

func (m *mockPrefRepo) ListAutoEnabled(_ context.Context) ([]entities.UserAlertPreference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entities.UserAlertPreference
	for i := range m.prefs {
		if m.prefs[i].IsEnabled && m.prefs[i].AutoGenerationEnabled {
			out = append(out, m.prefs[i])
		}
	}
	return out, nil
}

func (m *mockPrefRepo) MarkAutoGenerated(_ context.Context, id uint, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.prefs {
		if m.prefs[i].ID == id {
			t := at
			m.prefs[i].LastAutoGeneration = &t
			return nil
		}
	}
	return repository.ErrPreferenceNotFound
}

// Remaining methods exist only to satisfy the interface.
func (m *mockPrefRepo) ListByUser(_ context.Context, _ uint) ([]entities.UserAlertPreference, error) {
	return nil, nil
}
func (m *mockPrefRepo) Delete(_ context.Context, _ uint, _ entities.AlertType) error { return nil }

// mockUserRepo is an in-memory UserRepository.
type mockUserRepo struct {
	mu    sync.Mutex
	users []entities.User
}

func newMockUserRepo(users ...entities.User) *mockUserRepo {
	return &mockUserRepo{users: users}
}

func (m *mockUserRepo) Get(_ context.Context, id uint) (*entities.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].ID == id {
			user := m.users[i]
			return &user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepo) ListActive(_ context.Context) ([]entities.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entities.User
	for i := range m.users {
		if m.users[i].IsActive {
			out = append(out, m.users[i])
		}
	}
	return out, nil
}

func (m *mockUserRepo) Create(_ context.Context, user *entities.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.ID = uint(len(m.users) + 1)
	m.users = append(m.users, *user)
	return nil
}

func (m *mockUserRepo) Update(_ context.Context, _ *entities.User) error { return nil }

// mockNotifier records sends and fails on demand.
type mockNotifier struct {
	mu        sync.Mutex
	emails    []string
	sms       []string
	failEmail bool
	failSMS   bool
}

func (m *mockNotifier) SendEmailAlert(_ context.Context, alert *entities.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failEmail {
		return fmt.Errorf("smtp unavailable")
	}
	m.emails = append(m.emails, alert.Title)
	return nil
}

func (m *mockNotifier) SendSMSAlert(_ context.Context, alert *entities.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSMS {
		return fmt.Errorf("sms gateway unavailable")
	}
	m.sms = append(m.sms, alert.Title)
	return nil
}

// mockCropProfiles is an empty CropProfileRepository so knowledge.Store
// serves only the built-in catalog.
type mockCropProfiles struct{}

func (mockCropProfiles) List(_ context.Context) ([]entities.CropProfile, error) { return nil, nil }
func (mockCropProfiles) GetByKey(_ context.Context, _ string) (*entities.CropProfile, error) {
	return nil, repository.ErrCropProfileNotFound
}
func (mockCropProfiles) Upsert(_ context.Context, _ *entities.CropProfile) error { return nil }
func (mockCropProfiles) Delete(_ context.Context, _ string) error                { return nil }
