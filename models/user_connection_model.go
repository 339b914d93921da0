package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserConnection struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;unique" json:"user_id"`
	IsOnline     bool      `gorm:"default:false;index" json:"is_online"`
	LastSeen     time.Time `gorm:"index" json:"last_seen"`
	ConnectionID *string   `gorm:"size:100" json:"connection_id"`

	User User `gorm:"foreignkey:UserID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *UserConnection) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
