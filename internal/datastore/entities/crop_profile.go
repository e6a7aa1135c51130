package entities

import (
	"encoding/json"
	"time"
)

// CropProfile persists a crop knowledge entry. Built-in catalog entries are
// compiled into the knowledge package; rows here hold crops added at runtime
// so they survive restarts instead of living in ambient process state.
type CropProfile struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// Key is stored as crop_key because "key" is reserved in MySQL.
	Key string `gorm:"column:crop_key;size:100;not null;uniqueIndex" json:"key"`

	Name     string `gorm:"size:100;not null" json:"name"`
	Category string `gorm:"size:50;default:''" json:"category"`
	Type     string `gorm:"size:50;default:''" json:"type"`

	// PlantingMonths is a JSON array of Portuguese month names.
	PlantingMonths string `gorm:"type:text;default:'[]'" json:"planting_months"`

	GrowthDays   int     `gorm:"default:90" json:"growth_days"`
	MinArea      float64 `gorm:"default:1" json:"min_area"`
	CostPerM2    float64 `gorm:"default:0" json:"cost_per_m2"`
	YieldPerM2   float64 `gorm:"default:0" json:"yield_per_m2"`
	Difficulty   string  `gorm:"size:20;default:'Média'" json:"difficulty"`
	IdealClimate string  `gorm:"size:50;default:''" json:"ideal_climate"`
	Notes        string  `gorm:"type:text;default:''" json:"notes"`
	Icon         string  `gorm:"size:10;default:'🌱'" json:"icon"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM.
func (CropProfile) TableName() string {
	return "crop_profiles"
}

// PlantingMonthList deserializes the planting months column.
func (c *CropProfile) PlantingMonthList() []string {
	var months []string
	if err := json.Unmarshal([]byte(c.PlantingMonths), &months); err != nil {
		return nil
	}
	return months
}

// SetPlantingMonths serializes the planting months column.
func (c *CropProfile) SetPlantingMonths(months []string) error {
	data, err := json.Marshal(months)
	if err != nil {
		return err
	}
	c.PlantingMonths = string(data)
	return nil
}
