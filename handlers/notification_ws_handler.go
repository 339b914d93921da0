package handlers

import (
	"encoding/json"
	"log"

	"github.com/devconnect/server/chat"
	ws "github.com/devconnect/server/websocket"
	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

type NotificationSocketHandler struct {
	Fanout *chat.Fanout
	Hub    *ws.Hub
}

func NewNotificationSocketHandler(fanout *chat.Fanout, hub *ws.Hub) *NotificationSocketHandler {
	return &NotificationSocketHandler{Fanout: fanout, Hub: hub}
}

// ServeNotifications runs one personal notification connection. The client
// gets its unread count on connect and new_notification pushes afterwards.
func (h *NotificationSocketHandler) ServeNotifications(c *websocketcontrib.Conn) {
	claims, err := parseToken(c.Query("token"))
	if err != nil {
		rejectSocket(c)
		return
	}
	rawUserID, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(rawUserID)
	if err != nil {
		rejectSocket(c)
		return
	}
	username, _ := claims["username"].(string)

	client := ws.NewClient(userID, username, nil, c)
	go client.Run()

	h.Hub.Subscribe(client)
	defer func() {
		h.Hub.Unsubscribe(client)
		client.Close()
	}()

	count, err := h.Fanout.UnreadCount(userID)
	if err != nil {
		log.Printf("Error counting notifications for %s: %v", userID, err)
	} else {
		_ = client.SendJSON(ws.NotificationsCountEvent{Type: "notifications_count", Count: count})
	}

	for {
		_, payload, err := c.ReadMessage()
		if err != nil {
			return
		}

		var event ws.InboundEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			_ = client.SendJSON(ws.NewErrorEvent("Invalid JSON format"))
			continue
		}

		switch event.Type {
		case ws.EventMarkRead:
			notificationID, err := uuid.Parse(event.NotificationID)
			if err != nil {
				_ = client.SendJSON(ws.NewErrorEvent("Invalid notification ID"))
				continue
			}
			if err := h.Fanout.MarkRead(notificationID, userID); err != nil {
				log.Printf("Failed to mark notification %s read: %v", notificationID, err)
			}
		case ws.EventGetNotifications:
			notifications, err := h.Fanout.List(userID, 20)
			if err != nil {
				log.Printf("Error listing notifications for %s: %v", userID, err)
				continue
			}
			_ = client.SendJSON(ws.NotificationsListEvent{
				Type:          "notifications_list",
				Notifications: notifications,
			})
		default:
			_ = client.SendJSON(ws.NewErrorEvent("Unknown event type"))
		}
	}
}
