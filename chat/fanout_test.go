package chat

import (
	"errors"
	"testing"
	"time"

	"github.com/devconnect/server/models"
	"github.com/google/uuid"
)

func TestFanoutCreatesOneRowPerRecipient(t *testing.T) {
	db := newTestDB(t)
	fanout := NewFanout(db, nil)
	store := NewStore(db, fanout)
	users := seedUsers(t, db, 3)

	conversation, err := store.CreateGroupConversation("trio", users[0].ID, []uuid.UUID{users[1].ID, users[2].ID})
	if err != nil {
		t.Fatalf("CreateGroupConversation failed: %v", err)
	}

	message, err := store.CreateMessage(conversation.ID, users[0].ID, "hello all", "", nil)
	if err != nil {
		t.Fatalf("CreateMessage failed: %v", err)
	}

	notifications, err := fanout.ForMessage(message.ID)
	if err != nil {
		t.Fatalf("ForMessage failed: %v", err)
	}
	if len(notifications) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(notifications))
	}
	seen := map[uuid.UUID]bool{}
	for _, notification := range notifications {
		if notification.RecipientID == users[0].ID {
			t.Error("sender must not receive a notification")
		}
		if seen[notification.RecipientID] {
			t.Errorf("duplicate notification for %s", notification.RecipientID)
		}
		seen[notification.RecipientID] = true
	}
}

func TestFanoutIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	fanout := NewFanout(db, nil)
	store := NewStore(db, fanout)
	users := seedUsers(t, db, 3)

	conversation, err := store.CreateGroupConversation("trio", users[0].ID, []uuid.UUID{users[1].ID, users[2].ID})
	if err != nil {
		t.Fatalf("CreateGroupConversation failed: %v", err)
	}
	message, err := store.CreateMessage(conversation.ID, users[0].ID, "once", "", nil)
	if err != nil {
		t.Fatalf("CreateMessage failed: %v", err)
	}

	// Simulate a retried dispatch.
	full, err := store.GetConversation(conversation.ID)
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if _, err := fanout.OnMessageCreated(message, full.Participants); err != nil {
		t.Fatalf("second dispatch failed: %v", err)
	}

	var count int64
	db.Model(&models.Notification{}).Where("message_id = ?", message.ID).Count(&count)
	if count != 2 {
		t.Errorf("expected 2 notification rows after retry, got %d", count)
	}
}

func TestFanoutTriggersAlert(t *testing.T) {
	db := newTestDB(t)

	alerts := make(chan uuid.UUID, 4)
	fanout := NewFanout(db, func(recipient models.User, message models.Message) {
		alerts <- recipient.ID
	})
	store := NewStore(db, fanout)
	users := seedUsers(t, db, 2)

	conversation, _, err := store.StartConversation(users[0].ID, users[1].ID)
	if err != nil {
		t.Fatalf("StartConversation failed: %v", err)
	}
	if _, err := store.CreateMessage(conversation.ID, users[0].ID, "ping", "", nil); err != nil {
		t.Fatalf("CreateMessage failed: %v", err)
	}

	select {
	case recipientID := <-alerts:
		if recipientID != users[1].ID {
			t.Errorf("expected alert for %s, got %s", users[1].ID, recipientID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected an external alert")
	}
}

func TestFanoutAlertRespectsPreferences(t *testing.T) {
	db := newTestDB(t)
	fanout := NewFanout(db, nil)
	users := seedUsers(t, db, 1)

	// Missing record defaults to send.
	if !fanout.ShouldAlert(users[0].ID, models.NotificationTypeMessage) {
		t.Error("expected missing preference record to default to send")
	}

	preference, err := fanout.Preferences(users[0].ID)
	if err != nil {
		t.Fatalf("Preferences failed: %v", err)
	}
	preference.MessageNotifications = false
	if err := fanout.SavePreferences(preference); err != nil {
		t.Fatalf("SavePreferences failed: %v", err)
	}

	if fanout.ShouldAlert(users[0].ID, models.NotificationTypeMessage) {
		t.Error("expected message alerts to be suppressed")
	}
	if !fanout.ShouldAlert(users[0].ID, models.NotificationTypeSystem) {
		t.Error("expected system alerts to remain enabled")
	}
}

func TestFanoutMarkRead(t *testing.T) {
	db := newTestDB(t)
	fanout := NewFanout(db, nil)
	store := NewStore(db, fanout)
	users := seedUsers(t, db, 2)

	conversation, _, err := store.StartConversation(users[0].ID, users[1].ID)
	if err != nil {
		t.Fatalf("StartConversation failed: %v", err)
	}
	message, err := store.CreateMessage(conversation.ID, users[0].ID, "hi", "", nil)
	if err != nil {
		t.Fatalf("CreateMessage failed: %v", err)
	}

	notifications, err := fanout.ForMessage(message.ID)
	if err != nil || len(notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d (err=%v)", len(notifications), err)
	}
	notification := notifications[0]

	if err := fanout.MarkRead(notification.ID, users[0].ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("foreign notification: expected ErrForbidden, got %v", err)
	}
	if err := fanout.MarkRead(uuid.New(), users[1].ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown notification: expected ErrNotFound, got %v", err)
	}

	if err := fanout.MarkRead(notification.ID, users[1].ID); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	count, err := fanout.UnreadCount(users[1].ID)
	if err != nil {
		t.Fatalf("UnreadCount failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 unread after MarkRead, got %d", count)
	}

	// Repeat flip is a no-op.
	if err := fanout.MarkRead(notification.ID, users[1].ID); err != nil {
		t.Fatalf("repeated MarkRead failed: %v", err)
	}
}

func TestStoreMarkReadFlipsNotification(t *testing.T) {
	db := newTestDB(t)
	fanout := NewFanout(db, nil)
	store := NewStore(db, fanout)
	users := seedUsers(t, db, 2)

	conversation, _, err := store.StartConversation(users[0].ID, users[1].ID)
	if err != nil {
		t.Fatalf("StartConversation failed: %v", err)
	}
	message, err := store.CreateMessage(conversation.ID, users[0].ID, "hi", "", nil)
	if err != nil {
		t.Fatalf("CreateMessage failed: %v", err)
	}

	if err := store.MarkRead(message.ID, users[1].ID); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}

	count, err := fanout.UnreadCount(users[1].ID)
	if err != nil {
		t.Fatalf("UnreadCount failed: %v", err)
	}
	if count != 0 {
		t.Errorf("reading the message should clear its notification, got %d unread", count)
	}
}

func TestMarkAllRead(t *testing.T) {
	db := newTestDB(t)
	fanout := NewFanout(db, nil)
	store := NewStore(db, fanout)
	users := seedUsers(t, db, 2)

	conversation, _, err := store.StartConversation(users[0].ID, users[1].ID)
	if err != nil {
		t.Fatalf("StartConversation failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := store.CreateMessage(conversation.ID, users[0].ID, "spam", "", nil); err != nil {
			t.Fatalf("CreateMessage failed: %v", err)
		}
	}

	if err := fanout.MarkAllRead(users[1].ID); err != nil {
		t.Fatalf("MarkAllRead failed: %v", err)
	}
	count, err := fanout.UnreadCount(users[1].ID)
	if err != nil {
		t.Fatalf("UnreadCount failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 unread after MarkAllRead, got %d", count)
	}
}
