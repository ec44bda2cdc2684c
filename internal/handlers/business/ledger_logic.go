package business

import (
	"errors"
	"fmt"

	"vaultback/internal/models"
	dbconfig "vaultback/pkg/config"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TaxRate is the flat rate applied to emission claims and marketplace sales.
// One constant on purpose: the two categories are never allowed to drift.
const TaxRate = 0.05

// SplitTax returns the tax and net parts of a gross amount.
func SplitTax(gross float64) (tax, net float64) {
	tax = gross * TaxRate
	return tax, gross - tax
}

// ApplyTax books a tax event inside the caller's transaction: one append-only
// TaxRecord plus the matching TreasuryBalance increment. Callers that
// distribute the net amount must do so in the same transaction.
func ApplyTax(tx *gorm.DB, sourceType string, sourceID uint, asset string, gross float64, proof, treasuryAddress string) (tax, net float64, err error) {
	tax, net = SplitTax(gross)

	record := &models.TaxRecord{
		SourceType:      sourceType,
		SourceID:        sourceID,
		Asset:           asset,
		GrossAmount:     gross,
		TaxAmount:       tax,
		NetAmount:       net,
		OutboundProof:   proof,
		TreasuryAddress: treasuryAddress,
	}
	if err := tx.Create(record).Error; err != nil {
		return 0, 0, fmt.Errorf("create tax record: %w", err)
	}

	var balance models.TreasuryBalance
	err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("asset = ?", asset).First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		balance = models.TreasuryBalance{Asset: asset}
		if err := tx.Create(&balance).Error; err != nil {
			return 0, 0, fmt.Errorf("create treasury balance: %w", err)
		}
	} else if err != nil {
		return 0, 0, fmt.Errorf("lock treasury balance: %w", err)
	}

	balance.Balance += tax
	balance.TotalCollected += tax
	if err := tx.Save(&balance).Error; err != nil {
		return 0, 0, fmt.Errorf("update treasury balance: %w", err)
	}
	return tax, net, nil
}

// WithdrawTreasury debits the per-asset treasury aggregate. The balance can
// never go negative; a short withdrawal fails whole.
func WithdrawTreasury(asset string, amount float64, proof string) (*models.TreasuryBalance, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("withdrawal amount must be positive")
	}

	var balance models.TreasuryBalance
	err := dbconfig.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("asset = ?", asset).First(&balance).Error; err != nil {
			return err
		}
		if balance.Balance < amount {
			return ErrTreasuryShortfall
		}
		balance.Balance -= amount
		balance.TotalWithdrawn += amount
		if err := tx.Save(&balance).Error; err != nil {
			return err
		}
		recordSystemLog(tx, "INFO", "treasury", "treasury withdrawal", models.JSONMap{
			"asset":  asset,
			"amount": amount,
			"proof":  proof,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

// TreasuryBalances lists the per-asset aggregates.
func TreasuryBalances() ([]models.TreasuryBalance, error) {
	var balances []models.TreasuryBalance
	if err := dbconfig.DB.Order("asset").Find(&balances).Error; err != nil {
		return nil, err
	}
	return balances, nil
}

// TaxRecords lists tax events, optionally filtered by source type.
func TaxRecords(sourceType string, limit int) ([]models.TaxRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := dbconfig.DB.Order("id desc").Limit(limit)
	if sourceType != "" {
		query = query.Where("source_type = ?", sourceType)
	}
	var records []models.TaxRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
