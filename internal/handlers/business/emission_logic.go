package business

import (
	"errors"

	"vaultback/internal/models"
	dbconfig "vaultback/pkg/config"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DifficultyBasePrincipal is the aggregate active principal at which emission
// difficulty reaches 1.0; difficulty scales linearly above it and never drops
// below 1.
const DifficultyBasePrincipal = 1_000_000.0

// RefreshDifficulty recomputes the global emission difficulty from the
// aggregate principal of accruing investments. The calculator only ever
// reads the stored value; this job is the single writer.
func RefreshDifficulty() (float64, error) {
	var total float64
	err := dbconfig.DB.Model(&models.Investment{}).
		Where("status IN ?", []string{models.InvestmentStatusActive, models.InvestmentStatusSold}).
		Select("COALESCE(SUM(principal), 0)").Scan(&total).Error
	if err != nil {
		return 0, err
	}

	difficulty := total / DifficultyBasePrincipal
	if difficulty < 1 {
		difficulty = 1
	}

	err = dbconfig.DB.Transaction(func(tx *gorm.DB) error {
		var state models.EmissionState
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&state).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			state = models.EmissionState{Difficulty: difficulty, TotalActivePrincipal: total}
			return tx.Create(&state).Error
		}
		if err != nil {
			return err
		}
		state.Difficulty = difficulty
		state.TotalActivePrincipal = total
		return tx.Save(&state).Error
	})
	if err != nil {
		return 0, err
	}

	logrus.Infof("Emission difficulty refreshed: %.4f (active principal %.2f)", difficulty, total)
	return difficulty, nil
}
