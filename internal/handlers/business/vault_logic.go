package business

import (
	"errors"
	"fmt"

	"vaultback/internal/models"
	dbconfig "vaultback/pkg/config"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecordContribution adds amount to a vault's fill under a row lock. When the
// fill reaches capacity the vault flips to mining and its zero-filled
// successor is created in the same transaction, so rotation happens exactly
// once no matter how many contributions race on the last slot.
func RecordContribution(tx *gorm.DB, vaultID uint, amount float64) (*models.Vault, error) {
	var vault models.Vault
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&vault, vaultID).Error; err != nil {
		return nil, fmt.Errorf("lock vault %d: %w", vaultID, err)
	}

	if vault.IsMining {
		return nil, ErrVaultFull
	}
	if !vault.IsActive {
		return nil, ErrVaultClosed
	}
	if amount < vault.MinContribution || amount > vault.MaxContribution {
		return nil, ErrContributionBounds
	}
	if vault.CurrentFilled+amount > vault.TotalCapacity {
		return nil, ErrVaultFull
	}

	vault.CurrentFilled += amount
	if vault.CurrentFilled >= vault.TotalCapacity {
		vault.IsActive = false
		vault.IsMining = true
		successor := vault.Successor()
		if err := tx.Create(successor).Error; err != nil {
			return nil, fmt.Errorf("create successor vault: %w", err)
		}
		logrus.Infof("Vault %d (%s gen %d) filled, rotated to vault %d",
			vault.ID, vault.Name, vault.Generation, successor.ID)
	}
	if err := tx.Save(&vault).Error; err != nil {
		return nil, fmt.Errorf("save vault %d: %w", vaultID, err)
	}
	return &vault, nil
}

// ActiveVaultInLineage finds the open generation of a vault's rotation chain.
func ActiveVaultInLineage(tx *gorm.DB, vault *models.Vault) (*models.Vault, error) {
	lineage := vault.LineageID
	if lineage == 0 {
		lineage = vault.ID
	}
	var active models.Vault
	err := tx.Where("(lineage_id = ? OR id = ?) AND is_active = ? AND is_mining = ?",
		lineage, lineage, true, false).
		Order("generation desc").First(&active).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVaultClosed
	}
	if err != nil {
		return nil, err
	}
	return &active, nil
}

// ListVaults returns vaults, optionally restricted to open ones.
func ListVaults(openOnly bool) ([]models.Vault, error) {
	query := dbconfig.DB.Order("id")
	if openOnly {
		query = query.Where("is_active = ? AND is_mining = ?", true, false)
	}
	var vaults []models.Vault
	if err := query.Find(&vaults).Error; err != nil {
		return nil, err
	}
	return vaults, nil
}

// GetVault fetches one vault by ID.
func GetVault(id uint) (*models.Vault, error) {
	var vault models.Vault
	if err := dbconfig.DB.First(&vault, id).Error; err != nil {
		return nil, err
	}
	return &vault, nil
}

// CreateVault inserts an operator-defined vault after sanity checks.
func CreateVault(vault *models.Vault) error {
	if vault.TotalCapacity <= 0 {
		return fmt.Errorf("total capacity must be positive")
	}
	if vault.MinContribution <= 0 || vault.MaxContribution < vault.MinContribution {
		return fmt.Errorf("invalid contribution bounds")
	}
	if vault.MaxRate < vault.BaseRate {
		return fmt.Errorf("max rate below base rate")
	}
	if vault.Tier == "" {
		vault.Tier = models.VaultTierBronze
	}
	vault.CurrentFilled = 0
	vault.IsActive = true
	vault.IsMining = false
	if vault.Generation == 0 {
		vault.Generation = 1
	}
	return dbconfig.DB.Create(vault).Error
}
