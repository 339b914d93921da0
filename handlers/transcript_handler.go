package handlers

import (
	"github.com/devconnect/server/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type TranscriptHandler struct {
	Service *services.TranscriptService
}

func NewTranscriptHandler(service *services.TranscriptService) *TranscriptHandler {
	return &TranscriptHandler{Service: service}
}

func (h *TranscriptHandler) Export(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthenticated"})
	}

	conversationID, err := uuid.Parse(c.Params("conversationId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation ID"})
	}

	url, err := h.Service.Export(conversationID, userID)
	if err != nil {
		return chatError(c, err)
	}

	return c.JSON(fiber.Map{"transcript_url": url})
}
