package entities

import "time"

// User is the alert owner. Only the fields the alerting subsystem reads are
// modeled here; authentication and profile management live elsewhere.
type User struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Email string `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Name  string `gorm:"size:255;default:''" json:"name"`

	// Experience is the self-declared skill level (iniciante, intermedio,
	// avancado) used by rules to tailor recommendations.
	Experience   string `gorm:"size:20;default:'iniciante'" json:"experience"`
	ProducerType string `gorm:"size:20;default:'individual'" json:"producer_type"`

	LocationLat      *float64 `json:"location_lat,omitempty"`
	LocationLng      *float64 `json:"location_lng,omitempty"`
	LocationCity     string   `gorm:"size:100;default:''" json:"location_city,omitempty"`
	LocationDistrict string   `gorm:"size:100;default:''" json:"location_district,omitempty"`

	IsActive  bool      `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	Cultures []Culture `gorm:"foreignKey:UserID" json:"cultures,omitempty"`
}

// TableName returns the table name for GORM.
func (User) TableName() string {
	return "users"
}
