package business

import (
	"errors"
	"fmt"

	"vaultback/internal/models"
	"vaultback/pkg/chain"
	dbconfig "vaultback/pkg/config"

	"gorm.io/gorm"
)

// SetUserWallet upserts the destination address for a user on a chain after
// format validation by that chain's verifier.
func SetUserWallet(registry *chain.Registry, userID uint, chainName, address string) (*models.UserWallet, error) {
	verifier, err := registry.Get(chainName)
	if err != nil {
		return nil, err
	}
	if !verifier.IsValidAddress(address) {
		return nil, fmt.Errorf("%w: %s", chain.ErrInvalidAddress, address)
	}

	var wallet models.UserWallet
	err = dbconfig.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND chain = ?", userID, chainName).First(&wallet).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			wallet = models.UserWallet{UserID: userID, Chain: chainName, Address: address}
			return tx.Create(&wallet).Error
		}
		if err != nil {
			return err
		}
		wallet.Address = address
		return tx.Save(&wallet).Error
	})
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// ListUserWallets returns every destination address a user has on file.
func ListUserWallets(userID uint) ([]models.UserWallet, error) {
	var wallets []models.UserWallet
	if err := dbconfig.DB.Where("user_id = ?", userID).
		Order("chain").Find(&wallets).Error; err != nil {
		return nil, err
	}
	return wallets, nil
}
