package business

import (
	"vaultback/internal/models"
	dbconfig "vaultback/pkg/config"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// recordSystemLog appends an audit row in the caller's transaction, so the
// trail commits or rolls back with the action it describes. A failed insert
// is logged but never blocks the action itself.
func recordSystemLog(tx *gorm.DB, level, module, message string, meta models.JSONMap) {
	entry := &models.SystemLog{
		Level:   level,
		Module:  module,
		Message: message,
		Meta:    meta,
	}
	if err := tx.Create(entry).Error; err != nil {
		logrus.Errorf("Failed to persist system log (%s: %s): %v", module, message, err)
	}
}

// SystemLogs lists audit rows newest first, optionally scoped to one module.
func SystemLogs(module string, limit int) ([]models.SystemLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := dbconfig.DB.Order("id desc").Limit(limit)
	if module != "" {
		query = query.Where("module = ?", module)
	}
	var logs []models.SystemLog
	if err := query.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
