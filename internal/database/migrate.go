package database

import (
	"log/slog"

	"postguard/internal/middleware"
	"postguard/internal/models"

	"gorm.io/gorm"
)

// legacyPendingValues are verification status spellings written by older
// writers. They all collapse into the pending state of the closed enum.
var legacyPendingValues = []string{"None", "none", "PENDING", ""}

// NormalizeLegacyStatuses maps legacy verification status strings into the
// closed three-state enum. It runs once at startup, never on read.
func NormalizeLegacyStatuses(db *gorm.DB) error {
	res := db.Model(&models.Post{}).
		Where("verification_status IN ? OR verification_status IS NULL", legacyPendingValues).
		Updates(map[string]interface{}{
			"verification_status": models.VerificationPending,
			"is_visible":          false,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		middleware.Logger.Info("normalized legacy verification statuses",
			slog.Int64("rows", res.RowsAffected))
	}
	return nil
}
