package repository

import (
	"context"
	"time"

	"github.com/agroalert/agroalert/internal/datastore/entities"
)

// PreferenceRepository handles per-user, per-alert-type delivery preferences.
type PreferenceRepository interface {
	// Get returns the stored preference row, or ErrPreferenceNotFound.
	Get(ctx context.Context, userID uint, alertType entities.AlertType) (*entities.UserAlertPreference, error)

	// GetOrDefault returns the stored row when present, otherwise a
	// synthesized default. The default is never written to the database.
	GetOrDefault(ctx context.Context, userID uint, alertType entities.AlertType) (*entities.UserAlertPreference, error)

	ListByUser(ctx context.Context, userID uint) ([]entities.UserAlertPreference, error)
	Upsert(ctx context.Context, pref *entities.UserAlertPreference) error
	Delete(ctx context.Context, userID uint, alertType entities.AlertType) error

	// Auto-generation scheduling
	ListAutoEnabled(ctx context.Context) ([]entities.UserAlertPreference, error)
	MarkAutoGenerated(ctx context.Context, id uint, at time.Time) error
}
