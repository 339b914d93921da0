package routes

import (
	"github.com/devconnect/server/handlers"
	"github.com/devconnect/server/middleware"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

func MessagingRoutes(app *fiber.App, h *handlers.MessagingHandler, chatSocket *handlers.ChatSocketHandler, transcript *handlers.TranscriptHandler) {
	api := app.Group("/api/v1")

	conversations := api.Group("/conversations", middleware.Protected())
	conversations.Get("", h.GetUserConversations)
	conversations.Post("", h.StartConversation)
	conversations.Post("/group", h.CreateGroupChat)
	conversations.Get("/:conversationId/messages", h.GetConversationMessages)
	conversations.Post("/:conversationId/messages", h.SendMessage)
	conversations.Post("/:conversationId/transcript", transcript.Export)

	messages := api.Group("/messages", middleware.Protected())
	messages.Post("/:messageId/read", h.MarkMessageRead)

	users := api.Group("/users", middleware.Protected())
	users.Get("/:userId/presence", h.GetPresence)

	// The upgrade request authenticates via a token query parameter; the
	// JWT header middleware does not apply to browser websockets.
	api.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	})
	api.Get("/ws/chat/:conversationId", websocket.New(chatSocket.ServeChat))
}
