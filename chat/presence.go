package chat

import (
	"errors"
	"time"

	"github.com/devconnect/server/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Presence tracks per-user online state over the UserConnection table. The
// row is created lazily on the first connect and never deleted.
type Presence struct {
	db *gorm.DB
}

func NewPresence(db *gorm.DB) *Presence {
	return &Presence{db: db}
}

// SetOnline marks the user online and records the identifier of the current
// real-time session.
func (p *Presence) SetOnline(userID uuid.UUID, connectionID string) error {
	connection := models.UserConnection{UserID: userID}
	if err := p.db.Where("user_id = ?", userID).FirstOrCreate(&connection).Error; err != nil {
		return err
	}

	return p.db.Model(&connection).Updates(map[string]interface{}{
		"is_online":     true,
		"last_seen":     time.Now(),
		"connection_id": connectionID,
	}).Error
}

func (p *Presence) SetOffline(userID uuid.UUID) error {
	connection := models.UserConnection{UserID: userID}
	if err := p.db.Where("user_id = ?", userID).FirstOrCreate(&connection).Error; err != nil {
		return err
	}

	return p.db.Model(&connection).Updates(map[string]interface{}{
		"is_online": false,
		"last_seen": time.Now(),
	}).Error
}

func (p *Presence) IsOnline(userID uuid.UUID) (bool, error) {
	var connection models.UserConnection
	err := p.db.First(&connection, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return connection.IsOnline, nil
}

// Get returns the connection record, or ErrNotFound before the user's first
// connect.
func (p *Presence) Get(userID uuid.UUID) (*models.UserConnection, error) {
	var connection models.UserConnection
	err := p.db.First(&connection, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &connection, nil
}
