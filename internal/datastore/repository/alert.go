package repository

import (
	"context"
	"time"

	"github.com/agroalert/agroalert/internal/datastore/entities"
)

// AlertRepository handles alert persistence and lifecycle queries.
type AlertRepository interface {
	// CRUD
	Create(ctx context.Context, alert *entities.Alert) error
	Get(ctx context.Context, id uint) (*entities.Alert, error)
	Update(ctx context.Context, alert *entities.Alert) error
	Delete(ctx context.Context, id uint) error

	// Listing
	ListByUser(ctx context.Context, filter AlertFilter) ([]entities.Alert, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
	ListPendingDue(ctx context.Context, now time.Time) ([]entities.Alert, error)

	// Cooldown: true when any alert created from the given rule exists for
	// the user since the cutoff, regardless of its current status.
	HasRecentRuleAlert(ctx context.Context, userID, ruleID uint, since time.Time) (bool, error)

	// Maintenance
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
	DeleteExpiredBefore(ctx context.Context, before time.Time) (int64, error)
	DeleteTypeOlderThan(ctx context.Context, alertType entities.AlertType, before time.Time) (int64, error)

	// Stats
	Stats(ctx context.Context, userID uint) (*AlertStats, error)
}

// AlertFilter controls alert listing queries. Zero values are ignored.
type AlertFilter struct {
	UserID       uint
	Types        []entities.AlertType
	Statuses     []entities.AlertStatus
	Priorities   []entities.AlertPriority
	UnreadOnly   bool
	CreatedAfter time.Time
	Limit        int
	Offset       int
}

// AlertStats aggregates alert counts for one user.
type AlertStats struct {
	Total      int64            `json:"total"`
	Unread     int64            `json:"unread"`
	Urgent     int64            `json:"urgent"`
	ByType     map[string]int64 `json:"by_type"`
	ByPriority map[string]int64 `json:"by_priority"`
	ByStatus   map[string]int64 `json:"by_status"`
}
