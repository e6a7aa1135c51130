package entities

import "time"

// Auto-generation frequencies.
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// DefaultAutoTime is the time of day auto-generation runs when the user has
// not picked one.
const DefaultAutoTime = DayTime(8 * 60) // 08:00

// UserAlertPreference is the per-user, per-alert-type delivery policy.
// Exactly one row exists per (user, alert_type); when absent at evaluation
// time a default is synthesized on the fly, never persisted as a side effect
// of a read.
type UserAlertPreference struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null;uniqueIndex:idx_user_alert_type,priority:1" json:"user_id"`

	AlertType AlertType `gorm:"size:20;not null;uniqueIndex:idx_user_alert_type,priority:2" json:"alert_type"`
	IsEnabled bool      `gorm:"not null;default:true" json:"is_enabled"`

	WebEnabled   bool `gorm:"not null;default:true" json:"web_enabled"`
	EmailEnabled bool `gorm:"not null;default:true" json:"email_enabled"`
	SMSEnabled   bool `gorm:"not null;default:false" json:"sms_enabled"`

	// Quiet hours: a time-of-day window in which only critical alerts are
	// delivered. A window with start > end crosses midnight.
	QuietHoursStart *DayTime `gorm:"type:varchar(5)" json:"quiet_hours_start,omitempty"`
	QuietHoursEnd   *DayTime `gorm:"type:varchar(5)" json:"quiet_hours_end,omitempty"`

	MinPriority AlertPriority `gorm:"size:10;not null;default:low" json:"min_priority"`

	// Auto-generation schedule. AutoWeekday is 0=Monday … 6=Sunday,
	// AutoDayOfMonth is 1-31.
	AutoGenerationEnabled bool       `gorm:"not null;default:true" json:"auto_generation_enabled"`
	AutoFrequency         string     `gorm:"size:20;not null;default:daily" json:"auto_frequency"`
	AutoTime              *DayTime   `gorm:"type:varchar(5)" json:"auto_time,omitempty"`
	AutoWeekday           *int       `json:"auto_weekday,omitempty"`
	AutoDayOfMonth        *int       `json:"auto_day_of_month,omitempty"`
	LastAutoGeneration    *time.Time `json:"last_auto_generation,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM.
func (UserAlertPreference) TableName() string {
	return "user_alert_preferences"
}

// DefaultPreference synthesizes the preference used when no row exists:
// everything enabled except SMS, minimum priority low.
func DefaultPreference(userID uint, alertType AlertType) *UserAlertPreference {
	return &UserAlertPreference{
		UserID:                userID,
		AlertType:             alertType,
		IsEnabled:             true,
		WebEnabled:            true,
		EmailEnabled:          true,
		SMSEnabled:            false,
		MinPriority:           PriorityLow,
		AutoGenerationEnabled: true,
		AutoFrequency:         FrequencyDaily,
	}
}

// ShouldDeliver decides whether an alert of the given priority may be
// delivered to this user at the given moment. Critical alerts bypass quiet
// hours but not the enabled flag or the minimum-priority filter.
func (p *UserAlertPreference) ShouldDeliver(priority AlertPriority, now time.Time) bool {
	if !p.IsEnabled {
		return false
	}
	if priority.Ordinal() < p.MinPriority.Ordinal() {
		return false
	}
	if priority != PriorityCritical && p.QuietHoursStart != nil && p.QuietHoursEnd != nil {
		current := DayTimeOf(now)
		start, end := *p.QuietHoursStart, *p.QuietHoursEnd
		if start <= end {
			// Same-day window.
			if start <= current && current <= end {
				return false
			}
		} else {
			// Window crosses midnight, e.g. 22:00-08:00.
			if current >= start || current <= end {
				return false
			}
		}
	}
	return true
}

// EnabledChannels returns the delivery channels this preference allows.
func (p *UserAlertPreference) EnabledChannels() []string {
	var channels []string
	if p.WebEnabled {
		channels = append(channels, ChannelWeb)
	}
	if p.EmailEnabled {
		channels = append(channels, ChannelEmail)
	}
	if p.SMSEnabled {
		channels = append(channels, ChannelSMS)
	}
	return channels
}

// autoTime returns the configured generation time or the 08:00 default.
func (p *UserAlertPreference) autoTime() DayTime {
	if p.AutoTime != nil {
		return *p.AutoTime
	}
	return DefaultAutoTime
}

// WeekdayOf maps Go's Sunday-based weekday to the 0=Monday convention used by
// AutoWeekday and by the rule-evaluation context.
func WeekdayOf(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// ShouldAutoGenerate decides whether scheduled alert generation is due for
// this preference at the given moment.
func (p *UserAlertPreference) ShouldAutoGenerate(now time.Time) bool {
	if !p.AutoGenerationEnabled || !p.IsEnabled {
		return false
	}

	// Suppress if the current period was already generated.
	if p.LastAutoGeneration != nil {
		last := *p.LastAutoGeneration
		switch p.AutoFrequency {
		case FrequencyDaily:
			ly, lm, ld := last.Date()
			ny, nm, nd := now.Date()
			if time.Date(ly, lm, ld, 0, 0, 0, 0, time.UTC).
				Compare(time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)) >= 0 {
				return false
			}
		case FrequencyWeekly:
			if now.Sub(last) < 7*24*time.Hour {
				return false
			}
		case FrequencyMonthly:
			if last.Year() == now.Year() && last.Month() == now.Month() {
				return false
			}
		}
	}

	if DayTimeOf(now) < p.autoTime() {
		return false
	}
	if p.AutoFrequency == FrequencyWeekly && p.AutoWeekday != nil && WeekdayOf(now) != *p.AutoWeekday {
		return false
	}
	if p.AutoFrequency == FrequencyMonthly && p.AutoDayOfMonth != nil && now.Day() != *p.AutoDayOfMonth {
		return false
	}
	return true
}

// NextAutoGeneration computes the next scheduled generation time, or nil when
// auto-generation is disabled.
func (p *UserAlertPreference) NextAutoGeneration(now time.Time) *time.Time {
	if !p.AutoGenerationEnabled {
		return nil
	}
	target := p.autoTime()
	next := time.Date(now.Year(), now.Month(), now.Day(), target.Hour(), target.Minute(), 0, 0, now.Location())

	switch p.AutoFrequency {
	case FrequencyWeekly:
		weekday := 0
		if p.AutoWeekday != nil {
			weekday = *p.AutoWeekday
		}
		daysAhead := weekday - WeekdayOf(now)
		if daysAhead <= 0 {
			daysAhead += 7
		}
		next = next.AddDate(0, 0, daysAhead)
	case FrequencyMonthly:
		day := 1
		if p.AutoDayOfMonth != nil {
			day = *p.AutoDayOfMonth
		}
		if next.Day() != day || !next.After(now) {
			next = time.Date(now.Year(), now.Month()+1, day, target.Hour(), target.Minute(), 0, 0, now.Location())
		}
	default: // daily
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
	}
	return &next
}
