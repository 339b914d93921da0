package websocket

// Inbound event tags accepted on a chat room connection.
const (
	EventMessage     = "message"
	EventTyping      = "typing"
	EventTypingStop  = "typing_stop"
	EventReadReceipt = "read_receipt"
)

// Inbound event tags accepted on a personal notification connection.
const (
	EventMarkRead         = "mark_read"
	EventGetNotifications = "get_notifications"
)

// InboundEvent is the JSON frame read from a client. Fields beyond Type are
// set depending on the tag.
type InboundEvent struct {
	Type           string `json:"type"`
	Message        string `json:"message,omitempty"`
	MessageID      string `json:"message_id,omitempty"`
	NotificationID string `json:"notification_id,omitempty"`
}

type ChatMessageEvent struct {
	Type           string  `json:"type"`
	MessageID      string  `json:"message_id"`
	SenderID       string  `json:"sender_id"`
	SenderUsername string  `json:"sender_username"`
	SenderAvatar   *string `json:"sender_avatar"`
	Message        string  `json:"message"`
	Timestamp      string  `json:"timestamp"`
	MessageType    string  `json:"message_type"`
}

// PresenceEvent carries user_join and user_leave broadcasts.
type PresenceEvent struct {
	Type      string `json:"type"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Timestamp string `json:"timestamp"`
}

// TypingEvent carries user_typing and user_typing_stop broadcasts.
type TypingEvent struct {
	Type     string `json:"type"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

type ReadReceiptEvent struct {
	Type      string `json:"type"`
	MessageID string `json:"message_id"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Timestamp string `json:"timestamp"`
}

// ErrorEvent is sent only to the originating connection.
type ErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type NotificationsCountEvent struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

type NewNotificationEvent struct {
	Type         string      `json:"type"`
	Notification interface{} `json:"notification"`
}

type NotificationsListEvent struct {
	Type          string      `json:"type"`
	Notifications interface{} `json:"notifications"`
}

func NewErrorEvent(message string) ErrorEvent {
	return ErrorEvent{Type: "error", Error: message}
}
