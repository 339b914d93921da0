package jobs

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/devconnect/server/database"
	"github.com/devconnect/server/models"
	"github.com/devconnect/server/notifications"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Daily-frequency users get their digest on the run inside this hour.
const dailyDigestHour = 8

// SendUnreadDigests emails users a summary of their unread notifications.
// The window per user follows their EmailFrequency preference: hourly users
// are summarized every run, daily users once a day, and immediate users are
// skipped entirely since the fan-out already alerted them per message.
func SendUnreadDigests() {
	sendUnreadDigests(database.DB, time.Now())
}

func sendUnreadDigests(db *gorm.DB, now time.Time) int {
	log.Println("Running job: SendUnreadDigests...")

	var recipientIDs []uuid.UUID
	err := db.Model(&models.Notification{}).
		Where("is_read = ? AND created_at > ?", false, now.Add(-24*time.Hour)).
		Distinct("recipient_id").
		Pluck("recipient_id", &recipientIDs).Error
	if err != nil {
		log.Printf("Error collecting unread notifications: %v", err)
		return 0
	}

	sent := 0
	for _, recipientID := range recipientIDs {
		frequency := models.DigestDaily
		var preference models.NotificationPreference
		err := db.First(&preference, "user_id = ?", recipientID).Error
		switch {
		case err == nil:
			if !preference.EmailNotifications || !preference.EmailDigest {
				continue
			}
			frequency = preference.EmailFrequency
		case errors.Is(err, gorm.ErrRecordNotFound):
			// No record yet: defaults apply.
		default:
			log.Printf("Error loading preferences for %s: %v", recipientID, err)
			continue
		}

		var since time.Time
		switch frequency {
		case models.DigestImmediate:
			continue
		case models.DigestHourly:
			since = now.Add(-1 * time.Hour)
		default:
			if now.Hour() != dailyDigestHour {
				continue
			}
			since = now.Add(-24 * time.Hour)
		}

		var count int64
		err = db.Model(&models.Notification{}).
			Where("recipient_id = ? AND is_read = ? AND created_at > ?", recipientID, false, since).
			Count(&count).Error
		if err != nil {
			log.Printf("Error counting notifications for %s: %v", recipientID, err)
			continue
		}
		if count == 0 {
			continue
		}

		var user models.User
		if err := db.First(&user, "id = ?", recipientID).Error; err != nil {
			log.Printf("Error loading user %s for digest: %v", recipientID, err)
			continue
		}

		emailSubject := "You have unread messages on DevConnect"
		emailBody := fmt.Sprintf(
			"<h1>Unread Messages</h1><p>Hi %s,</p><p>You have %d unread message notification(s). Log in to catch up on your conversations.</p>",
			user.FullName,
			count,
		)
		notifications.SendEmail(user.FullName, user.Email, emailSubject, emailBody)
		sent++
	}

	if sent > 0 {
		log.Printf("Sent digest emails to %d user(s).", sent)
	}
	return sent
}
