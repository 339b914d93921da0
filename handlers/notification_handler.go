package handlers

import (
	"github.com/devconnect/server/chat"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type NotificationHandler struct {
	Fanout *chat.Fanout
}

func NewNotificationHandler(fanout *chat.Fanout) *NotificationHandler {
	return &NotificationHandler{Fanout: fanout}
}

func (h *NotificationHandler) GetNotifications(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthenticated"})
	}

	limit := c.QueryInt("limit", 20)
	notifications, err := h.Fanout.List(userID, limit)
	if err != nil {
		return chatError(c, err)
	}

	count, err := h.Fanout.UnreadCount(userID)
	if err != nil {
		return chatError(c, err)
	}

	return c.JSON(fiber.Map{
		"notifications": notifications,
		"unread_count":  count,
	})
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthenticated"})
	}

	notificationID, err := uuid.Parse(c.Params("notificationId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid notification ID"})
	}

	if err := h.Fanout.MarkRead(notificationID, userID); err != nil {
		return chatError(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthenticated"})
	}

	if err := h.Fanout.MarkAllRead(userID); err != nil {
		return chatError(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

func (h *NotificationHandler) GetPreferences(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthenticated"})
	}

	preferences, err := h.Fanout.Preferences(userID)
	if err != nil {
		return chatError(c, err)
	}

	return c.JSON(preferences)
}

type UpdatePreferencesRequest struct {
	EmailNotifications      *bool   `json:"email_notifications"`
	EmailDigest             *bool   `json:"email_digest"`
	EmailFrequency          *string `json:"email_frequency" validate:"omitempty,oneof=immediate hourly daily"`
	MessageNotifications    *bool   `json:"message_notifications"`
	ConnectionNotifications *bool   `json:"connection_notifications"`
	SystemNotifications     *bool   `json:"system_notifications"`
	QuietHoursEnabled       *bool   `json:"quiet_hours_enabled"`
	QuietHoursStart         *string `json:"quiet_hours_start" validate:"omitempty,len=5"`
	QuietHoursEnd           *string `json:"quiet_hours_end" validate:"omitempty,len=5"`
}

func (h *NotificationHandler) UpdatePreferences(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthenticated"})
	}

	var req UpdatePreferencesRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	preferences, err := h.Fanout.Preferences(userID)
	if err != nil {
		return chatError(c, err)
	}

	if req.EmailNotifications != nil {
		preferences.EmailNotifications = *req.EmailNotifications
	}
	if req.EmailDigest != nil {
		preferences.EmailDigest = *req.EmailDigest
	}
	if req.EmailFrequency != nil {
		preferences.EmailFrequency = *req.EmailFrequency
	}
	if req.MessageNotifications != nil {
		preferences.MessageNotifications = *req.MessageNotifications
	}
	if req.ConnectionNotifications != nil {
		preferences.ConnectionNotifications = *req.ConnectionNotifications
	}
	if req.SystemNotifications != nil {
		preferences.SystemNotifications = *req.SystemNotifications
	}
	if req.QuietHoursEnabled != nil {
		preferences.QuietHoursEnabled = *req.QuietHoursEnabled
	}
	if req.QuietHoursStart != nil {
		preferences.QuietHoursStart = *req.QuietHoursStart
	}
	if req.QuietHoursEnd != nil {
		preferences.QuietHoursEnd = *req.QuietHoursEnd
	}

	if err := h.Fanout.SavePreferences(preferences); err != nil {
		return chatError(c, err)
	}

	return c.JSON(preferences)
}
