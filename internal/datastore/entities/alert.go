package entities

import (
	"encoding/json"
	"time"
)

// AlertType classifies what an alert is about.
type AlertType string

// Alert types available to rules, generators and user preferences.
const (
	AlertTypeWeather       AlertType = "weather"
	AlertTypePest          AlertType = "pest"
	AlertTypeDisease       AlertType = "disease"
	AlertTypeIrrigation    AlertType = "irrigation"
	AlertTypeFertilization AlertType = "fertilization"
	AlertTypeHarvest       AlertType = "harvest"
	AlertTypePruning       AlertType = "pruning"
	AlertTypePlanting      AlertType = "planting"
	AlertTypeMarket        AlertType = "market"
	AlertTypeGeneral       AlertType = "general"
)

var knownAlertTypes = map[AlertType]bool{
	AlertTypeWeather:       true,
	AlertTypePest:          true,
	AlertTypeDisease:       true,
	AlertTypeIrrigation:    true,
	AlertTypeFertilization: true,
	AlertTypeHarvest:       true,
	AlertTypePruning:       true,
	AlertTypePlanting:      true,
	AlertTypeMarket:        true,
	AlertTypeGeneral:       true,
}

// Valid reports whether t is one of the known alert types.
func (t AlertType) Valid() bool {
	return knownAlertTypes[t]
}

// AlertPriority orders alerts from low to critical.
type AlertPriority string

const (
	PriorityLow      AlertPriority = "low"
	PriorityMedium   AlertPriority = "medium"
	PriorityHigh     AlertPriority = "high"
	PriorityCritical AlertPriority = "critical"
)

// priorityOrdinals is the single priority table used everywhere; individual
// services must not keep their own mapping.
var priorityOrdinals = map[AlertPriority]int{
	PriorityLow:      1,
	PriorityMedium:   2,
	PriorityHigh:     3,
	PriorityCritical: 4,
}

// Ordinal returns the numeric rank of the priority (low=1 … critical=4).
// Unknown priorities rank as 0 so they never pass a minimum-priority filter.
func (p AlertPriority) Ordinal() int {
	return priorityOrdinals[p]
}

// Valid reports whether p is one of the known priorities.
func (p AlertPriority) Valid() bool {
	_, ok := priorityOrdinals[p]
	return ok
}

// AlertStatus is the lifecycle state of an alert.
// pending → sent → read; pending|active|sent → dismissed|resolved;
// any non-terminal state → expired once past ExpiresAt.
type AlertStatus string

const (
	StatusPending   AlertStatus = "pending"
	StatusActive    AlertStatus = "active"
	StatusSent      AlertStatus = "sent"
	StatusRead      AlertStatus = "read"
	StatusResolved  AlertStatus = "resolved"
	StatusDismissed AlertStatus = "dismissed"
	StatusExpired   AlertStatus = "expired"
)

// ActiveStatuses are the states in which an alert still counts for
// deduplication.
var ActiveStatuses = []AlertStatus{StatusPending, StatusActive, StatusSent}

// UnreadStatuses are the states counted as unread. The read state is excluded
// by definition; active alerts are considered already surfaced to the user.
var UnreadStatuses = []AlertStatus{StatusPending, StatusSent}

// Delivery channels.
const (
	ChannelWeb   = "web"
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// Alert is one notification instance owned by a user.
type Alert struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null;index" json:"user_id"`

	Type     AlertType     `gorm:"size:20;not null;index" json:"type"`
	Priority AlertPriority `gorm:"size:10;not null;default:medium" json:"priority"`
	Status   AlertStatus   `gorm:"size:10;not null;default:pending;index" json:"status"`

	Title      string `gorm:"size:200;not null" json:"title"`
	Message    string `gorm:"size:5000;not null" json:"message"`
	ActionText string `gorm:"size:100;default:''" json:"action_text,omitempty"`
	ActionURL  string `gorm:"size:500;default:''" json:"action_url,omitempty"`

	CultureID    *uint  `gorm:"index" json:"culture_id,omitempty"`
	LocationData string `gorm:"type:text;default:''" json:"-"`
	WeatherData  string `gorm:"type:text;default:''" json:"-"`
	Metadata     string `gorm:"column:alert_metadata;type:text;default:''" json:"-"`

	// SeverityLevel is 1-5 where 5 is most severe.
	SeverityLevel    int        `gorm:"default:1" json:"severity_level"`
	DeliveryChannels string     `gorm:"size:100;default:'web'" json:"delivery_channels"`
	RetryCount       int        `gorm:"default:0" json:"retry_count"`
	LastRetryAt      *time.Time `json:"last_retry_at,omitempty"`

	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	ExpiresAt    *time.Time `gorm:"index" json:"expires_at,omitempty"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	ReadAt       *time.Time `json:"read_at,omitempty"`
	DismissedAt  *time.Time `json:"dismissed_at,omitempty"`

	Culture *Culture `gorm:"foreignKey:CultureID" json:"-"`
}

// TableName returns the table name for GORM.
func (Alert) TableName() string {
	return "alerts"
}

// IsExpired reports whether the alert is past its expiry. The check is
// computed against the clock, not the stored status, so an alert is treated
// as expired even before the sweep catches up with it.
func (a *Alert) IsExpired(now time.Time) bool {
	if a.ExpiresAt == nil {
		return false
	}
	return now.After(*a.ExpiresAt)
}

// IsUrgent reports whether the alert is high or critical priority.
func (a *Alert) IsUrgent() bool {
	return a.Priority == PriorityHigh || a.Priority == PriorityCritical
}

// IsRead reports whether the alert has been read.
func (a *Alert) IsRead() bool {
	return a.ReadAt != nil
}

// IsResolved reports whether the alert reached a resolved/dismissed state.
func (a *Alert) IsResolved() bool {
	return a.Status == StatusDismissed || a.Status == StatusResolved
}

// MarkAsSent transitions the alert to sent and stamps SentAt.
func (a *Alert) MarkAsSent(now time.Time) {
	a.Status = StatusSent
	a.SentAt = &now
}

// MarkAsRead transitions pending/active/sent alerts to read. ReadAt is set at
// most once; repeat calls are no-ops. Returns whether a transition happened.
func (a *Alert) MarkAsRead(now time.Time) bool {
	switch a.Status {
	case StatusPending, StatusActive, StatusSent:
		a.Status = StatusRead
		a.ReadAt = &now
		return true
	default:
		return false
	}
}

// Dismiss transitions the alert to dismissed. DismissedAt is set at most once.
func (a *Alert) Dismiss(now time.Time) bool {
	switch a.Status {
	case StatusPending, StatusActive, StatusSent:
		a.Status = StatusDismissed
		a.DismissedAt = &now
		return true
	default:
		return false
	}
}

// Resolve transitions the alert to resolved.
func (a *Alert) Resolve() bool {
	switch a.Status {
	case StatusPending, StatusActive, StatusSent:
		a.Status = StatusResolved
		return true
	default:
		return false
	}
}

// SetMetadata serializes the given map into the metadata column.
func (a *Alert) SetMetadata(meta map[string]any) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	a.Metadata = string(data)
	return nil
}

// MetadataMap deserializes the metadata column. Returns an empty map when the
// column is empty or holds malformed JSON.
func (a *Alert) MetadataMap() map[string]any {
	if a.Metadata == "" {
		return map[string]any{}
	}
	var meta map[string]any
	if err := json.Unmarshal([]byte(a.Metadata), &meta); err != nil {
		return map[string]any{}
	}
	return meta
}

// ToDict is the canonical external JSON shape consumed by the web layer.
// Timestamps are ISO-8601, enums serialize to their string values and the
// metadata column is returned parsed.
func (a *Alert) ToDict() map[string]any {
	var cultureName any
	if a.Culture != nil {
		cultureName = a.Culture.Name
	}
	return map[string]any{
		"id":             a.ID,
		"type":           string(a.Type),
		"priority":       string(a.Priority),
		"status":         string(a.Status),
		"title":          a.Title,
		"message":        a.Message,
		"action_text":    a.ActionText,
		"action_url":     a.ActionURL,
		"culture_id":     a.CultureID,
		"culture_name":   cultureName,
		"is_read":        a.IsRead(),
		"is_resolved":    a.IsResolved(),
		"created_at":     a.CreatedAt.Format(time.RFC3339),
		"scheduled_for":  formatTimePtr(a.ScheduledFor),
		"expires_at":     formatTimePtr(a.ExpiresAt),
		"sent_at":        formatTimePtr(a.SentAt),
		"read_at":        formatTimePtr(a.ReadAt),
		"dismissed_at":   formatTimePtr(a.DismissedAt),
		"alert_metadata": a.MetadataMap(),
	}
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}
