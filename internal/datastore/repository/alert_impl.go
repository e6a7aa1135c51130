package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/agroalert/agroalert/internal/datastore/entities"
)

// alertRepository implements AlertRepository.
type alertRepository struct {
	db *gorm.DB
}

// NewAlertRepository creates a new AlertRepository.
func NewAlertRepository(db *gorm.DB) AlertRepository {
	return &alertRepository{db: db}
}

// Create persists a new alert.
func (r *alertRepository) Create(ctx context.Context, alert *entities.Alert) error {
	if err := r.db.WithContext(ctx).Create(alert).Error; err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

// Get returns a single alert by ID with its culture preloaded.
// Returns ErrAlertNotFound if the alert does not exist.
func (r *alertRepository) Get(ctx context.Context, id uint) (*entities.Alert, error) {
	var alert entities.Alert
	if err := r.db.WithContext(ctx).Preload("Culture").First(&alert, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to get alert %d: %w", id, err)
	}
	return &alert, nil
}

// Update saves the full alert row.
func (r *alertRepository) Update(ctx context.Context, alert *entities.Alert) error {
	if alert.ID == 0 {
		return fmt.Errorf("failed to update alert: missing alert ID")
	}
	if err := r.db.WithContext(ctx).Save(alert).Error; err != nil {
		return fmt.Errorf("failed to update alert %d: %w", alert.ID, err)
	}
	return nil
}

// Delete removes an alert. Returns ErrAlertNotFound when no row matched.
func (r *alertRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&entities.Alert{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete alert %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// ListByUser returns alerts matching the given filter, newest first.
func (r *alertRepository) ListByUser(ctx context.Context, filter AlertFilter) ([]entities.Alert, error) {
	var alerts []entities.Alert
	query := r.db.WithContext(ctx).Preload("Culture")

	if filter.UserID > 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if len(filter.Types) > 0 {
		query = query.Where("type IN ?", filter.Types)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if len(filter.Priorities) > 0 {
		query = query.Where("priority IN ?", filter.Priorities)
	}
	if filter.UnreadOnly {
		query = query.Where("status IN ?", entities.UnreadStatuses)
	}
	if !filter.CreatedAfter.IsZero() {
		query = query.Where("created_at >= ?", filter.CreatedAfter)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Order("created_at DESC, id DESC").Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, nil
}

// CountUnread returns the number of alerts still awaiting the user's attention.
func (r *alertRepository) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Alert{}).
		Where("user_id = ?", userID).
		Where("status IN ?", entities.UnreadStatuses).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unread alerts: %w", err)
	}
	return count, nil
}

// ListPendingDue returns pending alerts whose scheduled time has arrived
// (or that have no schedule), oldest first so delivery preserves creation order.
func (r *alertRepository) ListPendingDue(ctx context.Context, now time.Time) ([]entities.Alert, error) {
	var alerts []entities.Alert
	err := r.db.WithContext(ctx).
		Where("status = ?", entities.StatusPending).
		Where("scheduled_for IS NULL OR scheduled_for <= ?", now).
		Order("created_at ASC, id ASC").
		Find(&alerts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending alerts: %w", err)
	}
	return alerts, nil
}

// HasRecentRuleAlert reports whether any alert carrying the given rule ID in
// its metadata was created for the user since the cutoff. The LIKE narrows
// candidates; the metadata is then parsed so rule 1 never matches rule 12.
func (r *alertRepository) HasRecentRuleAlert(ctx context.Context, userID, ruleID uint, since time.Time) (bool, error) {
	var candidates []entities.Alert
	pattern := fmt.Sprintf(`%%"rule_id":%d%%`, ruleID)
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("created_at >= ?", since).
		Where("alert_metadata LIKE ?", pattern).
		Find(&candidates).Error
	if err != nil {
		return false, fmt.Errorf("failed to query recent rule alerts: %w", err)
	}
	for i := range candidates {
		if id, ok := candidates[i].MetadataMap()["rule_id"].(float64); ok && uint(id) == ruleID {
			return true, nil
		}
	}
	return false, nil
}

// ExpireOverdue marks alerts past their expiry as expired. Terminal states
// are left alone.
func (r *alertRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&entities.Alert{}).
		Where("expires_at IS NOT NULL AND expires_at < ?", now).
		Where("status IN ?", entities.ActiveStatuses).
		Update("status", entities.StatusExpired)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to expire overdue alerts: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteExpiredBefore purges expired alerts whose expiry is older than the
// given cutoff.
func (r *alertRepository) DeleteExpiredBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ?", entities.StatusExpired).
		Where("expires_at IS NOT NULL AND expires_at < ?", before).
		Delete(&entities.Alert{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete expired alerts: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteTypeOlderThan purges alerts of one type created before the cutoff,
// whatever their status.
func (r *alertRepository) DeleteTypeOlderThan(ctx context.Context, alertType entities.AlertType, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("type = ?", alertType).
		Where("created_at < ?", before).
		Delete(&entities.Alert{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete old %s alerts: %w", alertType, result.Error)
	}
	return result.RowsAffected, nil
}

// Stats aggregates alert counts for one user.
func (r *alertRepository) Stats(ctx context.Context, userID uint) (*AlertStats, error) {
	stats := &AlertStats{
		ByType:     make(map[string]int64),
		ByPriority: make(map[string]int64),
		ByStatus:   make(map[string]int64),
	}
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&entities.Alert{}).Where("user_id = ?", userID)
	}

	if err := base().Count(&stats.Total).Error; err != nil {
		return nil, fmt.Errorf("failed to count alerts: %w", err)
	}
	if err := base().Where("status IN ?", entities.UnreadStatuses).Count(&stats.Unread).Error; err != nil {
		return nil, fmt.Errorf("failed to count unread alerts: %w", err)
	}
	if err := base().
		Where("status IN ?", entities.UnreadStatuses).
		Where("priority IN ?", []entities.AlertPriority{entities.PriorityHigh, entities.PriorityCritical}).
		Count(&stats.Urgent).Error; err != nil {
		return nil, fmt.Errorf("failed to count urgent alerts: %w", err)
	}

	type bucket struct {
		Bucket string
		Total  int64
	}
	groupCounts := func(column string, into map[string]int64) error {
		var rows []bucket
		if err := base().Select(column + " AS bucket, COUNT(*) AS total").Group(column).Scan(&rows).Error; err != nil {
			return fmt.Errorf("failed to group alerts by %s: %w", column, err)
		}
		for _, row := range rows {
			into[row.Bucket] = row.Total
		}
		return nil
	}
	if err := groupCounts("type", stats.ByType); err != nil {
		return nil, err
	}
	if err := groupCounts("priority", stats.ByPriority); err != nil {
		return nil, err
	}
	if err := groupCounts("status", stats.ByStatus); err != nil {
		return nil, err
	}
	return stats, nil
}
