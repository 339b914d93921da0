package jobs

import (
	"log"
	"time"

	"github.com/devconnect/server/database"
	"github.com/devconnect/server/models"
)

const staleConnectionWindow = 10 * time.Minute

// SweepStaleConnections marks users offline whose connection record has not
// been touched recently. Covers sessions dropped without a clean disconnect
// (server restart, network partition).
func SweepStaleConnections() {
	log.Println("Running job: SweepStaleConnections...")

	cutoff := time.Now().Add(-staleConnectionWindow)

	result := database.DB.Model(&models.UserConnection{}).
		Where("is_online = ? AND last_seen < ?", true, cutoff).
		Updates(map[string]interface{}{
			"is_online": false,
			"last_seen": time.Now(),
		})
	if result.Error != nil {
		log.Printf("Error sweeping stale connections: %v", result.Error)
		return
	}

	if result.RowsAffected > 0 {
		log.Printf("Marked %d stale connection(s) offline.", result.RowsAffected)
	}
}
