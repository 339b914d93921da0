package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	NotificationTypeMessage    = "message"
	NotificationTypeConnection = "connection"
	NotificationTypeSystem     = "system"
)

const (
	DigestImmediate = "immediate"
	DigestHourly    = "hourly"
	DigestDaily     = "daily"
)

type NotificationPreference struct {
	ID     uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;unique" json:"user_id"`

	EmailNotifications bool   `gorm:"default:true" json:"email_notifications"`
	EmailDigest        bool   `gorm:"default:true" json:"email_digest"`
	EmailFrequency     string `gorm:"size:20;default:'daily'" json:"email_frequency"`

	MessageNotifications    bool `gorm:"default:true" json:"message_notifications"`
	ConnectionNotifications bool `gorm:"default:true" json:"connection_notifications"`
	SystemNotifications     bool `gorm:"default:true" json:"system_notifications"`

	QuietHoursEnabled bool   `gorm:"default:false" json:"quiet_hours_enabled"`
	QuietHoursStart   string `gorm:"size:5;default:'22:00'" json:"quiet_hours_start"`
	QuietHoursEnd     string `gorm:"size:5;default:'08:00'" json:"quiet_hours_end"`

	User User `gorm:"foreignkey:UserID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *NotificationPreference) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ShouldSend reports whether an external alert of the given category is
// allowed by this preference set. In-app notification rows are not gated.
func (p *NotificationPreference) ShouldSend(notificationType string, at time.Time) bool {
	if !p.EmailNotifications {
		return false
	}

	switch notificationType {
	case NotificationTypeMessage:
		if !p.MessageNotifications {
			return false
		}
	case NotificationTypeConnection:
		if !p.ConnectionNotifications {
			return false
		}
	case NotificationTypeSystem:
		if !p.SystemNotifications {
			return false
		}
	}

	if p.QuietHoursEnabled && inQuietHours(at, p.QuietHoursStart, p.QuietHoursEnd) {
		return false
	}

	return true
}

func inQuietHours(at time.Time, start, end string) bool {
	parse := func(s string) (int, bool) {
		t, err := time.Parse("15:04", s)
		if err != nil {
			return 0, false
		}
		return t.Hour()*60 + t.Minute(), true
	}

	startMin, ok := parse(start)
	if !ok {
		return false
	}
	endMin, ok := parse(end)
	if !ok {
		return false
	}

	now := at.Hour()*60 + at.Minute()
	if startMin <= endMin {
		return now >= startMin && now < endMin
	}
	// Window crosses midnight, e.g. 22:00-08:00.
	return now >= startMin || now < endMin
}
