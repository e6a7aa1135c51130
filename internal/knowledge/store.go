package knowledge

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/agroalert/agroalert/internal/datastore/repository"
)

const (
	cacheKeyAll     = "crops:all"
	cacheTTL        = 10 * time.Minute
	cacheSweepEvery = 30 * time.Minute
)

// ErrCropNotFound is returned when neither the catalog nor the store knows
// the crop.
var ErrCropNotFound = errors.New("crop not found")

// Store combines the built-in catalog with runtime-added crop profiles.
// Reads go through an expiring cache; writes invalidate it. Runtime entries
// shadow built-in ones with the same key.
type Store struct {
	profiles repository.CropProfileRepository
	cache    *gocache.Cache
}

// NewStore creates a crop knowledge store backed by the given repository.
func NewStore(profiles repository.CropProfileRepository) *Store {
	return &Store{
		profiles: profiles,
		cache:    gocache.New(cacheTTL, cacheSweepEvery),
	}
}

// All returns every known crop, built-in plus stored, sorted by key.
func (s *Store) All(ctx context.Context) ([]Crop, error) {
	if cached, ok := s.cache.Get(cacheKeyAll); ok {
		return cached.([]Crop), nil
	}

	merged := make(map[string]Crop, len(builtinCatalog))
	for _, crop := range builtinCatalog {
		merged[crop.Key] = crop
	}
	stored, err := s.profiles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load crop profiles: %w", err)
	}
	for i := range stored {
		merged[stored[i].Key] = fromProfile(&stored[i])
	}

	crops := make([]Crop, 0, len(merged))
	for _, crop := range merged {
		crops = append(crops, crop)
	}
	sort.Slice(crops, func(i, j int) bool { return crops[i].Key < crops[j].Key })

	s.cache.Set(cacheKeyAll, crops, gocache.DefaultExpiration)
	return crops, nil
}

// Get looks a crop up by key (case-insensitive).
func (s *Store) Get(ctx context.Context, key string) (*Crop, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	crops, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	for i := range crops {
		if crops[i].Key == key {
			return &crops[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrCropNotFound, key)
}

// ByCategory returns crops in the given category, or all when empty.
func (s *Store) ByCategory(ctx context.Context, category string) ([]Crop, error) {
	crops, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	if category == "" {
		return crops, nil
	}
	var matched []Crop
	for _, crop := range crops {
		if strings.EqualFold(crop.Category, category) {
			matched = append(matched, crop)
		}
	}
	return matched, nil
}

// SuggestForMonth returns the crops whose planting window includes the given
// Portuguese month name.
func (s *Store) SuggestForMonth(ctx context.Context, month string) ([]Crop, error) {
	crops, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	var suggested []Crop
	for _, crop := range crops {
		for _, m := range crop.PlantingMonths {
			if strings.EqualFold(m, month) {
				suggested = append(suggested, crop)
				break
			}
		}
	}
	return suggested, nil
}

// Add persists a runtime crop entry and invalidates the cache. The entry
// becomes visible to all readers immediately.
func (s *Store) Add(ctx context.Context, crop Crop) error {
	crop.Key = strings.ToLower(strings.TrimSpace(crop.Key))
	if crop.Key == "" {
		return fmt.Errorf("crop entry requires a key")
	}
	if crop.Name == "" {
		return fmt.Errorf("crop entry requires a name")
	}
	profile, err := toProfile(&crop)
	if err != nil {
		return fmt.Errorf("failed to serialize crop %q: %w", crop.Key, err)
	}
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return err
	}
	s.cache.Delete(cacheKeyAll)
	return nil
}

// CostEstimate is the economics projection for growing a crop on some area.
type CostEstimate struct {
	TotalCost        float64 `json:"total_cost"`
	YieldKg          float64 `json:"yield_kg"`
	EstimatedRevenue float64 `json:"estimated_revenue"`
	EstimatedProfit  float64 `json:"estimated_profit"`
	ROIPercent       float64 `json:"roi_percent"`
	SalePriceKg      float64 `json:"sale_price_kg"`
}

// EstimateCosts projects cost, yield and revenue for growing the crop on the
// given area using average Portuguese sale prices.
func (s *Store) EstimateCosts(ctx context.Context, key string, areaM2 float64) (*CostEstimate, error) {
	crop, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	price, ok := salePrices[crop.Key]
	if !ok {
		price = defaultSalePrice
	}

	cost := crop.CostPerM2 * areaM2
	yield := crop.YieldPerM2 * areaM2
	revenue := yield * price
	profit := revenue - cost
	roi := 0.0
	if cost > 0 {
		roi = profit / cost * 100
	}
	return &CostEstimate{
		TotalCost:        round2(cost),
		YieldKg:          round1(yield),
		EstimatedRevenue: round2(revenue),
		EstimatedProfit:  round2(profit),
		ROIPercent:       round1(roi),
		SalePriceKg:      price,
	}, nil
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round1(v float64) float64 { return math.Round(v*10) / 10 }
