package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MessageTypeText   = "text"
	MessageTypeImage  = "image"
	MessageTypeFile   = "file"
	MessageTypeSystem = "system"
)

type Message struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;index:idx_conversation_created" json:"conversation_id"`
	SenderID       uuid.UUID `gorm:"type:uuid;not null;index" json:"sender_id"`
	Content        string    `gorm:"type:text" json:"content"`
	MessageType    string    `gorm:"size:20;not null;default:'text'" json:"message_type"`
	FileURL        *string   `gorm:"size:512" json:"file_url"`
	IsEdited       bool      `gorm:"default:false" json:"is_edited"`

	Sender       User         `gorm:"foreignkey:SenderID" json:"sender,omitempty"`
	Conversation Conversation `gorm:"foreignkey:ConversationID;constraint:OnDelete:CASCADE;" json:"-"`

	// Recipients who have read the message. The sender is never added here.
	ReadBy []*User `gorm:"many2many:message_reads;" json:"read_by,omitempty"`

	CreatedAt time.Time `gorm:"index:idx_conversation_created" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
