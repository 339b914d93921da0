package handlers

import (
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/devconnect/server/chat"
	"github.com/devconnect/server/models"
	ws "github.com/devconnect/server/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type MessagingHandler struct {
	Store    *chat.Store
	Fanout   *chat.Fanout
	Presence *chat.Presence
	Hub      *ws.Hub
}

func NewMessagingHandler(store *chat.Store, fanout *chat.Fanout, presence *chat.Presence, hub *ws.Hub) *MessagingHandler {
	return &MessagingHandler{Store: store, Fanout: fanout, Presence: presence, Hub: hub}
}

// chatError maps the chat error taxonomy onto HTTP statuses.
func chatError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, chat.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	case errors.Is(err, chat.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, chat.ErrInvalidArgument):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	case errors.Is(err, chat.ErrUnauthenticated):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthenticated"})
	default:
		log.Printf("[ERROR] chat operation failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal error"})
	}
}

func (h *MessagingHandler) GetUserConversations(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthenticated"})
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "20"))

	summaries, err := h.Store.ListConversations(userID, page, pageSize)
	if err != nil {
		return chatError(c, err)
	}

	return c.JSON(summaries)
}

func (h *MessagingHandler) StartConversation(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthenticated"})
	}

	type Request struct {
		RecipientID string `json:"recipient_id" validate:"required,uuid"`
	}
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	recipientID, _ := uuid.Parse(req.RecipientID)

	conversation, created, err := h.Store.StartConversation(userID, recipientID)
	if err != nil {
		return chatError(c, err)
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(conversation)
}

func (h *MessagingHandler) CreateGroupChat(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthenticated"})
	}

	type Request struct {
		Name           string   `json:"name" validate:"required,min=1,max=100"`
		ParticipantIDs []string `json:"participant_ids" validate:"required,min=2,dive,uuid"`
	}
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	participantIDs := make([]uuid.UUID, 0, len(req.ParticipantIDs))
	for _, raw := range req.ParticipantIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid participant ID"})
		}
		participantIDs = append(participantIDs, id)
	}

	conversation, err := h.Store.CreateGroupConversation(req.Name, userID, participantIDs)
	if err != nil {
		return chatError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(conversation)
}

func (h *MessagingHandler) GetConversationMessages(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthenticated"})
	}

	conversationID, err := uuid.Parse(c.Params("conversationId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation ID"})
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "50"))

	messages, err := h.Store.ListMessages(conversationID, userID, page, pageSize)
	if err != nil {
		return chatError(c, err)
	}

	return c.JSON(messages)
}

func (h *MessagingHandler) SendMessage(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthenticated"})
	}

	conversationID, err := uuid.Parse(c.Params("conversationId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation ID"})
	}

	type Request struct {
		Content     string  `json:"content"`
		MessageType string  `json:"message_type"`
		FileURL     *string `json:"file_url"`
	}
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}

	message, err := h.Store.CreateMessage(conversationID, userID, req.Content, req.MessageType, req.FileURL)
	if err != nil {
		return chatError(c, err)
	}

	h.announceMessage(message)

	return c.Status(fiber.StatusCreated).JSON(message)
}

func (h *MessagingHandler) MarkMessageRead(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthenticated"})
	}

	messageID, err := uuid.Parse(c.Params("messageId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid message ID"})
	}

	if err := h.Store.MarkRead(messageID, userID); err != nil {
		return chatError(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

func (h *MessagingHandler) GetPresence(c *fiber.Ctx) error {
	if _, err := callerID(c); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthenticated"})
	}

	userID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	connection, err := h.Presence.Get(userID)
	if errors.Is(err, chat.ErrNotFound) {
		return c.JSON(fiber.Map{"user_id": userID, "is_online": false, "last_seen": nil})
	}
	if err != nil {
		return chatError(c, err)
	}

	return c.JSON(fiber.Map{
		"user_id":   userID,
		"is_online": connection.IsOnline,
		"last_seen": connection.LastSeen,
	})
}

// announceMessage broadcasts the stored message to its room and pushes
// per-recipient notification events. Called only after the message is
// durably persisted.
func (h *MessagingHandler) announceMessage(message *models.Message) {
	announceMessage(h.Hub, h.Fanout, message)
}

func announceMessage(hub *ws.Hub, fanout *chat.Fanout, message *models.Message) {
	hub.BroadcastRoom(message.ConversationID, ws.ChatMessageEvent{
		Type:           "chat_message",
		MessageID:      message.ID.String(),
		SenderID:       message.SenderID.String(),
		SenderUsername: message.Sender.Username,
		SenderAvatar:   message.Sender.AvatarURL,
		Message:        message.Content,
		Timestamp:      message.CreatedAt.Format(time.RFC3339),
		MessageType:    message.MessageType,
	})

	notifications, err := fanout.ForMessage(message.ID)
	if err != nil {
		log.Printf("Error loading notifications for message %s: %v", message.ID, err)
		return
	}

	for _, notification := range notifications {
		hub.PushUser(notification.RecipientID, ws.NewNotificationEvent{
			Type:         "new_notification",
			Notification: notification,
		})

		count, err := fanout.UnreadCount(notification.RecipientID)
		if err != nil {
			log.Printf("Error counting notifications for %s: %v", notification.RecipientID, err)
			continue
		}
		hub.PushUser(notification.RecipientID, ws.NotificationsCountEvent{
			Type:  "notifications_count",
			Count: count,
		})
	}
}
