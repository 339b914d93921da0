package main

import (
	"fmt"
	"log"
	"time"

	"github.com/devconnect/server/chat"
	"github.com/devconnect/server/database"
	"github.com/devconnect/server/handlers"
	"github.com/devconnect/server/jobs"
	"github.com/devconnect/server/models"
	"github.com/devconnect/server/notifications"
	"github.com/devconnect/server/routes"
	"github.com/devconnect/server/services"
	ws "github.com/devconnect/server/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"
)

func main() {
	database.ConnectDB()
	database.Migrate()
	database.SeedAdmin()
	notifications.InitEmailService()

	fanout := chat.NewFanout(database.DB, func(recipient models.User, message models.Message) {
		emailSubject := fmt.Sprintf("New message from %s", message.Sender.Username)
		emailBody := fmt.Sprintf(
			"<h1>New Message</h1><p>Hi %s,</p><p><b>%s</b> sent you a message:</p><blockquote>%s</blockquote>",
			recipient.FullName,
			message.Sender.Username,
			message.Content,
		)
		notifications.SendEmail(recipient.FullName, recipient.Email, emailSubject, emailBody)
	})
	store := chat.NewStore(database.DB, fanout)
	presence := chat.NewPresence(database.DB)
	hub := ws.NewHub()

	messagingHandler := handlers.NewMessagingHandler(store, fanout, presence, hub)
	chatSocketHandler := handlers.NewChatSocketHandler(store, fanout, presence, hub)
	notificationHandler := handlers.NewNotificationHandler(fanout)
	notificationSocketHandler := handlers.NewNotificationSocketHandler(fanout, hub)
	transcriptHandler := handlers.NewTranscriptHandler(services.NewTranscriptService(store))

	c := cron.New()
	c.AddFunc("0 * * * *", jobs.SendUnreadDigests)
	c.AddFunc("*/5 * * * *", jobs.SweepStaleConnections)
	go c.Start()
	log.Println("✅ Cron jobs for digests and presence cleanup scheduled successfully.")

	app := fiber.New(fiber.Config{
		Prefork:           false,
		AppName:           "DevConnect",
		CaseSensitive:     true,
		StrictRouting:     true,
		EnablePrintRoutes: true,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			log.Printf("[ERROR] %v | Path: %s | Method: %s", err, c.Path(), c.Method())
			return c.Status(code).JSON(fiber.Map{
				"status":  "error",
				"code":    code,
				"message": err.Error(),
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Authorization",
		MaxAge:        86400,
	}))

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Welcome to DevConnect API",
		})
	})

	routes.AuthRoutes(app)
	routes.AdminRoutes(app)
	routes.MessagingRoutes(app, messagingHandler, chatSocketHandler, transcriptHandler)
	routes.NotificationRoutes(app, notificationHandler, notificationSocketHandler)
	routes.UploadRoutes(app)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})

	log.Println("✅ Server is running on port 8080")
	err := app.Listen(":8080")
	if err != nil {
		log.Fatalf("🔥 Server failed to start: %v", err)
	}
}
