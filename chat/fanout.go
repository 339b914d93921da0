package chat

import (
	"errors"
	"log"
	"time"

	"github.com/devconnect/server/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AlertFunc delivers an external alert (email, push) for a freshly created
// notification. It runs outside the request path and must not block.
type AlertFunc func(recipient models.User, message models.Message)

// Fanout creates one notification row per eligible recipient when a message
// is persisted, and keeps the read flags. The in-app row is always written;
// the per-user preference set only gates the external alert.
type Fanout struct {
	db    *gorm.DB
	alert AlertFunc
}

func NewFanout(db *gorm.DB, alert AlertFunc) *Fanout {
	return &Fanout{db: db, alert: alert}
}

// OnMessageCreated writes one notification per participant except the
// sender. A unique (message_id, recipient_id) index makes a retried
// dispatch a no-op.
func (f *Fanout) OnMessageCreated(message *models.Message, participants []*models.User) ([]models.Notification, error) {
	notifications := make([]models.Notification, 0, len(participants))

	for _, participant := range participants {
		if participant.ID == message.SenderID {
			continue
		}

		notification := models.Notification{
			RecipientID:    participant.ID,
			ConversationID: message.ConversationID,
			MessageID:      message.ID,
		}
		result := f.db.
			Where("recipient_id = ? AND message_id = ?", participant.ID, message.ID).
			FirstOrCreate(&notification)
		if result.Error != nil {
			return nil, result.Error
		}

		notifications = append(notifications, notification)

		if result.RowsAffected > 0 && f.alert != nil && f.ShouldAlert(participant.ID, models.NotificationTypeMessage) {
			recipient := *participant
			msg := *message
			go f.alert(recipient, msg)
		}
	}

	return notifications, nil
}

// ShouldAlert consults the recipient's preference record. A missing record
// defaults to send.
func (f *Fanout) ShouldAlert(userID uuid.UUID, notificationType string) bool {
	var preference models.NotificationPreference
	err := f.db.First(&preference, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true
	}
	if err != nil {
		log.Printf("Error loading notification preferences for %s: %v", userID, err)
		return true
	}
	return preference.ShouldSend(notificationType, time.Now())
}

// MarkRead flips a notification's read flag. Only the recipient may flip
// their own rows.
func (f *Fanout) MarkRead(notificationID, userID uuid.UUID) error {
	var notification models.Notification
	err := f.db.First(&notification, "id = ?", notificationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if notification.RecipientID != userID {
		return ErrForbidden
	}

	if notification.IsRead {
		return nil
	}

	return f.db.Model(&notification).Update("is_read", true).Error
}

func (f *Fanout) MarkAllRead(userID uuid.UUID) error {
	return f.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
}

func (f *Fanout) UnreadCount(userID uuid.UUID) (int64, error) {
	var count int64
	err := f.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// ForMessage returns the notification rows created for one message.
func (f *Fanout) ForMessage(messageID uuid.UUID) ([]models.Notification, error) {
	var notifications []models.Notification
	err := f.db.
		Where("message_id = ?", messageID).
		Preload("Message").
		Preload("Message.Sender").
		Find(&notifications).Error
	return notifications, err
}

func (f *Fanout) List(userID uuid.UUID, limit int) ([]models.Notification, error) {
	if limit < 1 {
		limit = 20
	}

	var notifications []models.Notification
	err := f.db.
		Where("recipient_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Preload("Message").
		Preload("Message.Sender").
		Find(&notifications).Error
	return notifications, err
}

// Preferences returns the user's preference record, creating the default
// row on first access.
func (f *Fanout) Preferences(userID uuid.UUID) (*models.NotificationPreference, error) {
	preference := models.NotificationPreference{
		UserID:                  userID,
		EmailNotifications:      true,
		EmailDigest:             true,
		EmailFrequency:          models.DigestDaily,
		MessageNotifications:    true,
		ConnectionNotifications: true,
		SystemNotifications:     true,
		QuietHoursStart:         "22:00",
		QuietHoursEnd:           "08:00",
	}
	err := f.db.Where("user_id = ?", userID).FirstOrCreate(&preference).Error
	if err != nil {
		return nil, err
	}
	return &preference, nil
}

func (f *Fanout) SavePreferences(preference *models.NotificationPreference) error {
	return f.db.Save(preference).Error
}
