package repository

import (
	"context"

	"github.com/agroalert/agroalert/internal/datastore/entities"
)

// UserRepository exposes the user queries the alerting subsystem needs.
type UserRepository interface {
	Get(ctx context.Context, id uint) (*entities.User, error)
	// ListActive returns active users with their active cultures preloaded.
	ListActive(ctx context.Context) ([]entities.User, error)
	Create(ctx context.Context, user *entities.User) error
	Update(ctx context.Context, user *entities.User) error
}

// CultureRepository exposes the culture queries the alerting subsystem needs.
type CultureRepository interface {
	Get(ctx context.Context, id uint) (*entities.Culture, error)
	ListActiveByUser(ctx context.Context, userID uint) ([]entities.Culture, error)
	Create(ctx context.Context, culture *entities.Culture) error
	Update(ctx context.Context, culture *entities.Culture) error
}

// CropProfileRepository stores crop knowledge entries added at runtime.
type CropProfileRepository interface {
	List(ctx context.Context) ([]entities.CropProfile, error)
	GetByKey(ctx context.Context, key string) (*entities.CropProfile, error)
	Upsert(ctx context.Context, profile *entities.CropProfile) error
	Delete(ctx context.Context, key string) error
}
