package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agroalert/agroalert/internal/datastore/entities"
)

// userRepository implements UserRepository.
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Get(ctx context.Context, id uint) (*entities.User, error) {
	var user entities.User
	err := r.db.WithContext(ctx).
		Preload("Cultures", "active = ?", true).
		First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return &user, nil
}

func (r *userRepository) ListActive(ctx context.Context) ([]entities.User, error) {
	var users []entities.User
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Preload("Cultures", "active = ?", true).
		Order("id ASC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}
	return users, nil
}

func (r *userRepository) Create(ctx context.Context, user *entities.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, user *entities.User) error {
	if user.ID == 0 {
		return fmt.Errorf("failed to update user: missing user ID")
	}
	if err := r.db.WithContext(ctx).Omit("Cultures").Save(user).Error; err != nil {
		return fmt.Errorf("failed to update user %d: %w", user.ID, err)
	}
	return nil
}

// cultureRepository implements CultureRepository.
type cultureRepository struct {
	db *gorm.DB
}

// NewCultureRepository creates a new CultureRepository.
func NewCultureRepository(db *gorm.DB) CultureRepository {
	return &cultureRepository{db: db}
}

func (r *cultureRepository) Get(ctx context.Context, id uint) (*entities.Culture, error) {
	var culture entities.Culture
	if err := r.db.WithContext(ctx).First(&culture, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCultureNotFound
		}
		return nil, fmt.Errorf("failed to get culture %d: %w", id, err)
	}
	return &culture, nil
}

func (r *cultureRepository) ListActiveByUser(ctx context.Context, userID uint) ([]entities.Culture, error) {
	var cultures []entities.Culture
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND active = ?", userID, true).
		Order("id ASC").
		Find(&cultures).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cultures for user %d: %w", userID, err)
	}
	return cultures, nil
}

func (r *cultureRepository) Create(ctx context.Context, culture *entities.Culture) error {
	if err := r.db.WithContext(ctx).Create(culture).Error; err != nil {
		return fmt.Errorf("failed to create culture: %w", err)
	}
	return nil
}

func (r *cultureRepository) Update(ctx context.Context, culture *entities.Culture) error {
	if culture.ID == 0 {
		return fmt.Errorf("failed to update culture: missing culture ID")
	}
	if err := r.db.WithContext(ctx).Save(culture).Error; err != nil {
		return fmt.Errorf("failed to update culture %d: %w", culture.ID, err)
	}
	return nil
}

// cropProfileRepository implements CropProfileRepository.
type cropProfileRepository struct {
	db *gorm.DB
}

// NewCropProfileRepository creates a new CropProfileRepository.
func NewCropProfileRepository(db *gorm.DB) CropProfileRepository {
	return &cropProfileRepository{db: db}
}

func (r *cropProfileRepository) List(ctx context.Context) ([]entities.CropProfile, error) {
	var profiles []entities.CropProfile
	if err := r.db.WithContext(ctx).Order("crop_key ASC").Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to list crop profiles: %w", err)
	}
	return profiles, nil
}

func (r *cropProfileRepository) GetByKey(ctx context.Context, key string) (*entities.CropProfile, error) {
	var profile entities.CropProfile
	if err := r.db.WithContext(ctx).Where("crop_key = ?", key).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCropProfileNotFound
		}
		return nil, fmt.Errorf("failed to get crop profile %q: %w", key, err)
	}
	return &profile, nil
}

func (r *cropProfileRepository) Upsert(ctx context.Context, profile *entities.CropProfile) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "crop_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "category", "type", "planting_months", "growth_days",
			"min_area", "cost_per_m2", "yield_per_m2", "difficulty",
			"ideal_climate", "notes", "icon", "updated_at",
		}),
	}).Create(profile).Error
	if err != nil {
		return fmt.Errorf("failed to upsert crop profile %q: %w", profile.Key, err)
	}
	return nil
}

func (r *cropProfileRepository) Delete(ctx context.Context, key string) error {
	result := r.db.WithContext(ctx).Where("crop_key = ?", key).Delete(&entities.CropProfile{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete crop profile %q: %w", key, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCropProfileNotFound
	}
	return nil
}
