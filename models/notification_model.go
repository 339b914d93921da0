package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Notification struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	RecipientID    uuid.UUID `gorm:"type:uuid;not null;index:idx_recipient_read;uniqueIndex:idx_message_recipient" json:"recipient_id"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null" json:"conversation_id"`
	MessageID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_message_recipient" json:"message_id"`
	IsRead         bool      `gorm:"default:false;index:idx_recipient_read" json:"is_read"`

	Recipient    User         `gorm:"foreignkey:RecipientID" json:"-"`
	Conversation Conversation `gorm:"foreignkey:ConversationID;constraint:OnDelete:CASCADE;" json:"-"`
	Message      Message      `gorm:"foreignkey:MessageID;constraint:OnDelete:CASCADE;" json:"message,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
