package chat

import (
	"fmt"
	"testing"

	"github.com/devconnect/server/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

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
