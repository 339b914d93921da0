package chat

import (
	"errors"
	"strings"
	"time"

	"github.com/devconnect/server/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store owns conversations, messages and per-message read state. It invokes
// the notification fan-out explicitly after persisting a message so the
// causal chain stays visible instead of hiding behind ORM hooks.
type Store struct {
	db     *gorm.DB
	fanout *Fanout
}

func NewStore(db *gorm.DB, fanout *Fanout) *Store {
	return &Store{db: db, fanout: fanout}
}

// ConversationSummary pairs a conversation with the caller's unread count.
type ConversationSummary struct {
	Conversation models.Conversation `json:"conversation"`
	UnreadCount  int64               `json:"unread_count"`
}

var validMessageTypes = map[string]bool{
	models.MessageTypeText:   true,
	models.MessageTypeImage:  true,
	models.MessageTypeFile:   true,
	models.MessageTypeSystem: true,
}

// StartConversation returns the existing direct conversation between the two
// users or creates one. The second return value reports whether a new
// conversation was created.
func (s *Store) StartConversation(userID, recipientID uuid.UUID) (*models.Conversation, bool, error) {
	if userID == recipientID {
		return nil, false, ErrInvalidArgument
	}

	var conversation models.Conversation
	err := s.db.
		Joins("JOIN conversation_participants cp1 ON cp1.conversation_id = conversations.id AND cp1.user_id = ?", userID).
		Joins("JOIN conversation_participants cp2 ON cp2.conversation_id = conversations.id AND cp2.user_id = ?", recipientID).
		Where("conversations.is_group = ?", false).
		Preload("Participants").
		First(&conversation).Error
	if err == nil {
		return &conversation, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	var user, recipient models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, false, ErrNotFound
	}
	if err := s.db.First(&recipient, "id = ?", recipientID).Error; err != nil {
		return nil, false, ErrNotFound
	}

	conversation = models.Conversation{
		IsGroup:      false,
		Participants: []*models.User{&user, &recipient},
	}
	if err := s.db.Create(&conversation).Error; err != nil {
		return nil, false, err
	}

	return &conversation, true, nil
}

// CreateGroupConversation creates a named group with the creator plus at
// least two other participants.
func (s *Store) CreateGroupConversation(name string, creatorID uuid.UUID, participantIDs []uuid.UUID) (*models.Conversation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidArgument
	}

	memberIDs := []uuid.UUID{creatorID}
	for _, id := range participantIDs {
		if id != creatorID {
			memberIDs = append(memberIDs, id)
		}
	}
	if len(memberIDs) < 3 {
		return nil, ErrInvalidArgument
	}

	var users []*models.User
	if err := s.db.Where("id IN ?", memberIDs).Find(&users).Error; err != nil {
		return nil, err
	}
	if len(users) != len(memberIDs) {
		return nil, ErrNotFound
	}

	conversation := models.Conversation{
		IsGroup:      true,
		Name:         &name,
		Participants: users,
	}
	if err := s.db.Create(&conversation).Error; err != nil {
		return nil, err
	}

	return &conversation, nil
}

// GetConversation loads a conversation with its participants.
func (s *Store) GetConversation(conversationID uuid.UUID) (*models.Conversation, error) {
	var conversation models.Conversation
	err := s.db.Preload("Participants").First(&conversation, "id = ?", conversationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (s *Store) IsParticipant(conversationID, userID uuid.UUID) (bool, error) {
	var count int64
	err := s.db.
		Table("conversation_participants").
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListConversations returns the caller's conversations ordered by most
// recent activity, each annotated with its unread count.
func (s *Store) ListConversations(userID uuid.UUID, page, pageSize int) ([]ConversationSummary, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	var conversations []models.Conversation
	err := s.db.
		Joins("JOIN conversation_participants cp ON cp.conversation_id = conversations.id AND cp.user_id = ?", userID).
		Order("conversations.updated_at desc").
		Limit(pageSize).
		Offset(offset).
		Preload("Participants").
		Find(&conversations).Error
	if err != nil {
		return nil, err
	}

	summaries := make([]ConversationSummary, 0, len(conversations))
	for _, conversation := range conversations {
		unread, err := s.UnreadCount(conversation.ID, userID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, ConversationSummary{Conversation: conversation, UnreadCount: unread})
	}

	return summaries, nil
}

// CreateMessage persists a message, bumps the conversation's updated_at and
// fans out notification rows for every other participant.
func (s *Store) CreateMessage(conversationID, senderID uuid.UUID, content, messageType string, fileURL *string) (*models.Message, error) {
	conversation, err := s.GetConversation(conversationID)
	if err != nil {
		return nil, err
	}

	isParticipant := false
	for _, participant := range conversation.Participants {
		if participant.ID == senderID {
			isParticipant = true
			break
		}
	}
	if !isParticipant {
		return nil, ErrForbidden
	}

	content = strings.TrimSpace(content)
	if content == "" && fileURL == nil {
		return nil, ErrInvalidArgument
	}
	if messageType == "" {
		messageType = models.MessageTypeText
	}
	if !validMessageTypes[messageType] {
		return nil, ErrInvalidArgument
	}

	message := models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		MessageType:    messageType,
		FileURL:        fileURL,
	}
	if err := s.db.Create(&message).Error; err != nil {
		return nil, err
	}

	if err := s.db.Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Update("updated_at", time.Now()).Error; err != nil {
		return nil, err
	}

	if err := s.db.Preload("Sender").First(&message, "id = ?", message.ID).Error; err != nil {
		return nil, err
	}

	if s.fanout != nil {
		if _, err := s.fanout.OnMessageCreated(&message, conversation.Participants); err != nil {
			return nil, err
		}
	}

	return &message, nil
}

// ListMessages returns one page of a conversation's messages in ascending
// creation order. Restartable by page number.
func (s *Store) ListMessages(conversationID, requesterID uuid.UUID, page, pageSize int) ([]models.Message, error) {
	isParticipant, err := s.IsParticipant(conversationID, requesterID)
	if err != nil {
		return nil, err
	}
	if !isParticipant {
		return nil, ErrForbidden
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	var messages []models.Message
	err = s.db.
		Where("conversation_id = ?", conversationID).
		Order("created_at asc").
		Limit(pageSize).
		Offset(offset).
		Preload("Sender").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	return messages, nil
}

// MarkRead records that the reader has seen the message. Only participants
// of the message's conversation may read it. Repeat calls are no-ops, and
// the sender is never added to their own message's read set.
func (s *Store) MarkRead(messageID, readerID uuid.UUID) error {
	var message models.Message
	err := s.db.First(&message, "id = ?", messageID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	isParticipant, err := s.IsParticipant(message.ConversationID, readerID)
	if err != nil {
		return err
	}
	if !isParticipant {
		return ErrForbidden
	}

	if message.SenderID == readerID {
		return nil
	}

	var count int64
	err = s.db.
		Table("message_reads").
		Where("message_id = ? AND user_id = ?", messageID, readerID).
		Count(&count).Error
	if err != nil {
		return err
	}

	if count == 0 {
		reader := models.User{ID: readerID}
		if err := s.db.Model(&message).Association("ReadBy").Append(&reader); err != nil {
			return err
		}
	}

	return s.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND message_id = ?", readerID, messageID).
		Update("is_read", true).Error
}

// UnreadCount counts messages in the conversation the user has not read and
// did not send.
func (s *Store) UnreadCount(conversationID, userID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ?", conversationID, userID).
		Where("id NOT IN (?)", s.db.
			Table("message_reads").
			Select("message_id").
			Where("user_id = ?", userID)).
		Count(&count).Error
	return count, err
}
