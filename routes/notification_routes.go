package routes

import (
	"github.com/devconnect/server/handlers"
	"github.com/devconnect/server/middleware"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

func NotificationRoutes(app *fiber.App, h *handlers.NotificationHandler, notificationSocket *handlers.NotificationSocketHandler) {
	api := app.Group("/api/v1")

	notifications := api.Group("/notifications", middleware.Protected())
	notifications.Get("", h.GetNotifications)
	notifications.Post("/read-all", h.MarkAllRead)
	notifications.Post("/:notificationId/read", h.MarkRead)
	notifications.Get("/preferences", h.GetPreferences)
	notifications.Put("/preferences", h.UpdatePreferences)

	api.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	})
	api.Get("/ws/notifications", websocket.New(notificationSocket.ServeNotifications))
}
