package chat

import (
	"errors"
	"testing"
	"time"

	"github.com/devconnect/server/models"
	"github.com/google/uuid"
)

func TestPresenceLifecycle(t *testing.T) {
	db := newTestDB(t)
	presence := NewPresence(db)
	users := seedUsers(t, db, 1)
	userID := users[0].ID

	// Before the first connect there is no row at all.
	online, err := presence.IsOnline(userID)
	if err != nil {
		t.Fatalf("IsOnline failed: %v", err)
	}
	if online {
		t.Error("expected user offline before first connect")
	}
	if _, err := presence.Get(userID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound before first connect, got %v", err)
	}

	if err := presence.SetOnline(userID, "conn-1"); err != nil {
		t.Fatalf("SetOnline failed: %v", err)
	}
	online, err = presence.IsOnline(userID)
	if err != nil {
		t.Fatalf("IsOnline failed: %v", err)
	}
	if !online {
		t.Error("expected user online after SetOnline")
	}

	connection, err := presence.Get(userID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if connection.ConnectionID == nil || *connection.ConnectionID != "conn-1" {
		t.Errorf("expected connection id conn-1, got %v", connection.ConnectionID)
	}
	if time.Since(connection.LastSeen) > time.Minute {
		t.Errorf("expected recent last_seen, got %v", connection.LastSeen)
	}

	if err := presence.SetOffline(userID); err != nil {
		t.Fatalf("SetOffline failed: %v", err)
	}
	online, err = presence.IsOnline(userID)
	if err != nil {
		t.Fatalf("IsOnline failed: %v", err)
	}
	if online {
		t.Error("expected user offline after SetOffline")
	}

	// A single row per user regardless of how many transitions happened.
	var count int64
	db.Model(&models.UserConnection{}).Where("user_id = ?", userID).Count(&count)
	if count != 1 {
		t.Errorf("expected a single connection row, got %d", count)
	}
}

func TestPresenceReconnectReplacesConnectionID(t *testing.T) {
	db := newTestDB(t)
	presence := NewPresence(db)
	users := seedUsers(t, db, 1)
	userID := users[0].ID

	if err := presence.SetOnline(userID, "conn-1"); err != nil {
		t.Fatalf("SetOnline failed: %v", err)
	}
	if err := presence.SetOnline(userID, "conn-2"); err != nil {
		t.Fatalf("second SetOnline failed: %v", err)
	}

	connection, err := presence.Get(userID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if connection.ConnectionID == nil || *connection.ConnectionID != "conn-2" {
		t.Errorf("expected connection id conn-2, got %v", connection.ConnectionID)
	}
}

func TestPresenceUnknownUser(t *testing.T) {
	db := newTestDB(t)
	presence := NewPresence(db)

	online, err := presence.IsOnline(uuid.New())
	if err != nil {
		t.Fatalf("IsOnline failed: %v", err)
	}
	if online {
		t.Error("unknown user must read as offline")
	}
}
