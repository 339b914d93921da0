package handlers

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/devconnect/server/chat"
	"github.com/devconnect/server/models"
	ws "github.com/devconnect/server/websocket"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testJWTSecret = "test-secret"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Conversation{},
		&models.Message{},
		&models.UserConnection{},
		&models.Notification{},
		&models.NotificationPreference{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func seedUsers(t *testing.T, db *gorm.DB, count int) []models.User {
	t.Helper()

	users := make([]models.User, 0, count)
	for i := 0; i < count; i++ {
		user := models.User{
			Username: fmt.Sprintf("user%d", i),
			FullName: fmt.Sprintf("User %d", i),
			Email:    fmt.Sprintf("user%d@example.com", i),
			Password: "hashed",
		}
		if err := db.Create(&user).Error; err != nil {
			t.Fatalf("failed to seed user %d: %v", i, err)
		}
		users = append(users, user)
	}
	return users
}

func signTestToken(t *testing.T, secret string, userID uuid.UUID, username string) string {
	t.Helper()

	claims := jwt.MapClaims{
		"user_id":  userID.String(),
		"username": username,
		"role":     "member",
		"exp":      time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func newChatHandler(t *testing.T, db *gorm.DB) *ChatSocketHandler {
	t.Helper()

	fanout := chat.NewFanout(db, nil)
	store := chat.NewStore(db, fanout)
	return NewChatSocketHandler(store, fanout, chat.NewPresence(db), ws.NewHub())
}

func recvEvent(t *testing.T, client *ws.Client) map[string]interface{} {
	t.Helper()
	select {
	case payload := <-client.Out:
		var event map[string]interface{}
		if err := json.Unmarshal(payload, &event); err != nil {
			t.Fatalf("invalid frame: %v", err)
		}
		return event
	default:
		t.Fatal("expected a queued frame")
		return nil
	}
}

func assertNoEvent(t *testing.T, client *ws.Client) {
	t.Helper()
	select {
	case payload := <-client.Out:
		t.Fatalf("expected no frame, got %s", payload)
	default:
	}
}

func TestResolveJoinRejections(t *testing.T) {
	t.Setenv("JWT_SECRET", testJWTSecret)

	db := newTestDB(t)
	handler := newChatHandler(t, db)
	users := seedUsers(t, db, 3)

	conversation, _, err := handler.Store.StartConversation(users[0].ID, users[1].ID)
	if err != nil {
		t.Fatalf("StartConversation failed: %v", err)
	}

	memberToken := signTestToken(t, testJWTSecret, users[0].ID, users[0].Username)
	outsiderToken := signTestToken(t, testJWTSecret, users[2].ID, users[2].Username)

	tests := []struct {
		name              string
		token             string
		conversationParam string
	}{
		{
			name:              "anonymous connect",
			token:             "",
			conversationParam: conversation.ID.String(),
		},
		{
			name:              "garbage token",
			token:             "not-a-jwt",
			conversationParam: conversation.ID.String(),
		},
		{
			name:              "token signed with wrong key",
			token:             signTestToken(t, "other-secret", users[0].ID, users[0].Username),
			conversationParam: conversation.ID.String(),
		},
		{
			name:              "authenticated non-participant",
			token:             outsiderToken,
			conversationParam: conversation.ID.String(),
		},
		{
			name:              "malformed conversation id",
			token:             memberToken,
			conversationParam: "not-a-uuid",
		},
		{
			name:              "unknown conversation",
			token:             memberToken,
			conversationParam: uuid.NewString(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			join, err := handler.resolveJoin(tt.token, tt.conversationParam)
			if err == nil {
				t.Fatalf("expected rejection, got join for %s", join.userID)
			}
		})
	}

	// A rejected attempt never reaches the room's subscriber set.
	if size := handler.Hub.RoomSize(conversation.ID); size != 0 {
		t.Errorf("expected empty room after rejections, got %d subscriber(s)", size)
	}
}

func TestResolveJoinAcceptsParticipant(t *testing.T) {
	t.Setenv("JWT_SECRET", testJWTSecret)

	db := newTestDB(t)
	handler := newChatHandler(t, db)
	users := seedUsers(t, db, 2)

	conversation, _, err := handler.Store.StartConversation(users[0].ID, users[1].ID)
	if err != nil {
		t.Fatalf("StartConversation failed: %v", err)
	}

	token := signTestToken(t, testJWTSecret, users[0].ID, users[0].Username)
	join, err := handler.resolveJoin(token, conversation.ID.String())
	if err != nil {
		t.Fatalf("resolveJoin failed: %v", err)
	}
	if join.userID != users[0].ID {
		t.Errorf("expected user %s, got %s", users[0].ID, join.userID)
	}
	if join.username != users[0].Username {
		t.Errorf("expected username %q, got %q", users[0].Username, join.username)
	}
	if join.conversationID != conversation.ID {
		t.Errorf("expected conversation %s, got %s", conversation.ID, join.conversationID)
	}
}

func TestHandleFrameErrorsStayWithOriginator(t *testing.T) {
	db := newTestDB(t)
	handler := newChatHandler(t, db)
	users := seedUsers(t, db, 2)

	conversation, _, err := handler.Store.StartConversation(users[0].ID, users[1].ID)
	if err != nil {
		t.Fatalf("StartConversation failed: %v", err)
	}

	sender := ws.NewClient(users[0].ID, users[0].Username, nil, nil)
	observer := ws.NewClient(users[1].ID, users[1].Username, nil, nil)
	handler.Hub.JoinRoom(conversation.ID, sender)
	handler.Hub.JoinRoom(conversation.ID, observer)

	session := &chatSession{handler: handler, client: sender, conversationID: conversation.ID}

	tests := []struct {
		name      string
		payload   string
		wantError string
	}{
		{
			name:      "malformed json",
			payload:   "{not json",
			wantError: "Invalid JSON format",
		},
		{
			name:      "unknown event tag",
			payload:   `{"type":"carrier-pigeon"}`,
			wantError: "Unknown event type",
		},
		{
			name:      "empty message content",
			payload:   `{"type":"message","message":"   "}`,
			wantError: "Message cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session.handleFrame([]byte(tt.payload))

			event := recvEvent(t, sender)
			if event["type"] != "error" || event["error"] != tt.wantError {
				t.Errorf("expected error %q, got %v", tt.wantError, event)
			}
			assertNoEvent(t, observer)
		})
	}

	var messageCount int64
	db.Model(&models.Message{}).Count(&messageCount)
	if messageCount != 0 {
		t.Errorf("rejected frames must not persist messages, got %d", messageCount)
	}
}

func TestHandleFrameBroadcastsStoredMessage(t *testing.T) {
	db := newTestDB(t)
	handler := newChatHandler(t, db)
	users := seedUsers(t, db, 2)

	conversation, _, err := handler.Store.StartConversation(users[0].ID, users[1].ID)
	if err != nil {
		t.Fatalf("StartConversation failed: %v", err)
	}

	sender := ws.NewClient(users[0].ID, users[0].Username, nil, nil)
	observer := ws.NewClient(users[1].ID, users[1].Username, nil, nil)
	personal := ws.NewClient(users[1].ID, users[1].Username, nil, nil)
	handler.Hub.JoinRoom(conversation.ID, sender)
	handler.Hub.JoinRoom(conversation.ID, observer)
	handler.Hub.Subscribe(personal)

	session := &chatSession{handler: handler, client: sender, conversationID: conversation.ID}
	session.handleFrame([]byte(`{"type":"message","message":"hi"}`))

	// The room sees the chat_message, including the sender's connection.
	for _, client := range []*ws.Client{sender, observer} {
		event := recvEvent(t, client)
		if event["type"] != "chat_message" || event["message"] != "hi" {
			t.Errorf("expected chat_message \"hi\", got %v", event)
		}
		if event["sender_id"] != users[0].ID.String() {
			t.Errorf("expected sender %s, got %v", users[0].ID, event["sender_id"])
		}
	}

	// The message was durably stored before any broadcast went out.
	var messageCount int64
	db.Model(&models.Message{}).Where("conversation_id = ?", conversation.ID).Count(&messageCount)
	if messageCount != 1 {
		t.Fatalf("expected 1 stored message, got %d", messageCount)
	}

	// The recipient's personal channel gets the notification push pair.
	event := recvEvent(t, personal)
	if event["type"] != "new_notification" {
		t.Errorf("expected new_notification, got %v", event["type"])
	}
	event = recvEvent(t, personal)
	if event["type"] != "notifications_count" || event["count"] != float64(1) {
		t.Errorf("expected notifications_count 1, got %v", event)
	}
}

func TestHandleFrameRevokesRemovedParticipant(t *testing.T) {
	db := newTestDB(t)
	handler := newChatHandler(t, db)
	users := seedUsers(t, db, 3)

	conversation, err := handler.Store.CreateGroupConversation("trio", users[0].ID, []uuid.UUID{users[1].ID, users[2].ID})
	if err != nil {
		t.Fatalf("CreateGroupConversation failed: %v", err)
	}

	sender := ws.NewClient(users[0].ID, users[0].Username, nil, nil)
	observer := ws.NewClient(users[1].ID, users[1].Username, nil, nil)
	handler.Hub.JoinRoom(conversation.ID, sender)
	handler.Hub.JoinRoom(conversation.ID, observer)

	session := &chatSession{handler: handler, client: sender, conversationID: conversation.ID}

	session.handleFrame([]byte(`{"type":"typing"}`))
	event := recvEvent(t, observer)
	if event["type"] != "user_typing" {
		t.Fatalf("expected user_typing before removal, got %v", event)
	}
	recvEvent(t, sender)

	// Removal from the conversation takes effect on the next dispatch.
	err = db.Exec("DELETE FROM conversation_participants WHERE conversation_id = ? AND user_id = ?",
		conversation.ID, users[0].ID).Error
	if err != nil {
		t.Fatalf("failed to remove participant: %v", err)
	}

	session.handleFrame([]byte(`{"type":"typing"}`))
	event = recvEvent(t, sender)
	if event["type"] != "error" || event["error"] != "Not a participant" {
		t.Errorf("expected a participant error, got %v", event)
	}
	assertNoEvent(t, observer)
}
