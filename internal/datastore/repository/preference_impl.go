package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agroalert/agroalert/internal/datastore/entities"
)

// preferenceRepository implements PreferenceRepository.
type preferenceRepository struct {
	db *gorm.DB
}

// NewPreferenceRepository creates a new PreferenceRepository.
func NewPreferenceRepository(db *gorm.DB) PreferenceRepository {
	return &preferenceRepository{db: db}
}

// Get returns the stored preference for (user, alert type).
func (r *preferenceRepository) Get(ctx context.Context, userID uint, alertType entities.AlertType) (*entities.UserAlertPreference, error) {
	var pref entities.UserAlertPreference
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND alert_type = ?", userID, alertType).
		First(&pref).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPreferenceNotFound
		}
		return nil, fmt.Errorf("failed to get preference for user %d type %s: %w", userID, alertType, err)
	}
	return &pref, nil
}

// GetOrDefault returns the stored preference or a synthesized default. Reads
// never create rows; the default exists only in memory.
func (r *preferenceRepository) GetOrDefault(ctx context.Context, userID uint, alertType entities.AlertType) (*entities.UserAlertPreference, error) {
	pref, err := r.Get(ctx, userID, alertType)
	if errors.Is(err, ErrPreferenceNotFound) {
		return entities.DefaultPreference(userID, alertType), nil
	}
	if err != nil {
		return nil, err
	}
	return pref, nil
}

// ListByUser returns all stored preference rows for a user.
func (r *preferenceRepository) ListByUser(ctx context.Context, userID uint) ([]entities.UserAlertPreference, error) {
	var prefs []entities.UserAlertPreference
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("alert_type ASC").
		Find(&prefs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list preferences for user %d: %w", userID, err)
	}
	return prefs, nil
}

// Upsert inserts the preference or updates the existing (user, alert_type) row.
func (r *preferenceRepository) Upsert(ctx context.Context, pref *entities.UserAlertPreference) error {
	// The explicit Select forces zero-valued flags (disabled channels) into
	// the insert; gorm would otherwise fall back to the column defaults.
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "alert_type"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"is_enabled", "web_enabled", "email_enabled", "sms_enabled",
			"quiet_hours_start", "quiet_hours_end", "min_priority",
			"auto_generation_enabled", "auto_frequency", "auto_time",
			"auto_weekday", "auto_day_of_month", "updated_at",
		}),
	}).Select(
		"user_id", "alert_type", "is_enabled", "web_enabled", "email_enabled",
		"sms_enabled", "quiet_hours_start", "quiet_hours_end", "min_priority",
		"auto_generation_enabled", "auto_frequency", "auto_time",
		"auto_weekday", "auto_day_of_month", "last_auto_generation",
		"created_at", "updated_at",
	).Create(pref).Error
	if err != nil {
		return fmt.Errorf("failed to upsert preference: %w", err)
	}
	return nil
}

// Delete removes the stored preference row, reverting the user to defaults.
func (r *preferenceRepository) Delete(ctx context.Context, userID uint, alertType entities.AlertType) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND alert_type = ?", userID, alertType).
		Delete(&entities.UserAlertPreference{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete preference: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrPreferenceNotFound
	}
	return nil
}

// ListAutoEnabled returns preference rows with scheduled generation switched
// on. The per-row time gates are evaluated by the caller.
func (r *preferenceRepository) ListAutoEnabled(ctx context.Context) ([]entities.UserAlertPreference, error) {
	var prefs []entities.UserAlertPreference
	err := r.db.WithContext(ctx).
		Where("auto_generation_enabled = ? AND is_enabled = ?", true, true).
		Order("user_id ASC, alert_type ASC").
		Find(&prefs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list auto-enabled preferences: %w", err)
	}
	return prefs, nil
}

// MarkAutoGenerated stamps the last successful scheduled generation.
func (r *preferenceRepository) MarkAutoGenerated(ctx context.Context, id uint, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&entities.UserAlertPreference{}).
		Where("id = ?", id).
		Update("last_auto_generation", at)
	if result.Error != nil {
		return fmt.Errorf("failed to mark preference %d auto-generated: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrPreferenceNotFound
	}
	return nil
}
