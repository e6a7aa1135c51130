package entities

import "time"

// AlertRule is a reusable, admin-authored trigger definition. Rules are global
// templates: personalization happens only through the per-user context they
// are evaluated against.
type AlertRule struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:100;not null" json:"name"`
	Description string `gorm:"type:text;default:''" json:"description"`

	AlertType AlertType     `gorm:"size:20;not null" json:"alert_type"`
	Priority  AlertPriority `gorm:"size:10;not null;default:medium" json:"priority"`

	// Conditions holds the serialized condition tree (JSON). It is parsed
	// once into an AST by the alerting package, not re-interpreted per call.
	Conditions string `gorm:"type:text;not null" json:"conditions"`

	TitleTemplate     string `gorm:"size:200;not null" json:"title_template"`
	MessageTemplate   string `gorm:"type:text;not null" json:"message_template"`
	ActionText        string `gorm:"size:100;default:''" json:"action_text,omitempty"`
	ActionURLTemplate string `gorm:"size:500;default:''" json:"action_url_template,omitempty"`

	// CooldownHours is the minimum gap between two alerts from this rule for
	// the same user. ExpiresAfterHours is the TTL applied to generated alerts.
	CooldownHours     int `gorm:"not null;default:24" json:"cooldown_hours"`
	ExpiresAfterHours int `gorm:"not null;default:72" json:"expires_after_hours"`

	IsActive  bool      `gorm:"not null;default:true;index" json:"is_active"`
	BuiltIn   bool      `gorm:"not null;default:false" json:"built_in"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM.
func (AlertRule) TableName() string {
	return "alert_rules"
}
