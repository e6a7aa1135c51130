package entities

import "time"

// Culture health states reported by the monitoring side.
const (
	HealthGood = "good"
	HealthFair = "fair"
	HealthPoor = "poor"
)

// Culture is a crop a user is growing on some plot.
type Culture struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null;index" json:"user_id"`

	Name string `gorm:"size:100;not null" json:"name"`
	Type string `gorm:"size:50;default:''" json:"type"`

	// Area in square meters.
	Area float64 `gorm:"default:0" json:"area"`

	PlantingDate *time.Time `json:"planting_date,omitempty"`
	HealthStatus string     `gorm:"size:20;default:'good'" json:"health_status"`
	Status       string     `gorm:"size:20;default:'active'" json:"status"`
	Active       bool       `gorm:"not null;default:true;index" json:"active"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Culture) TableName() string {
	return "cultures"
}

// DaysSincePlanting returns the whole days elapsed since the planting date,
// or -1 when no planting date is recorded.
func (c *Culture) DaysSincePlanting(now time.Time) int {
	if c.PlantingDate == nil {
		return -1
	}
	return int(now.Sub(*c.PlantingDate).Hours() / 24)
}
