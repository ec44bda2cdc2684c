package business

import (
	"fmt"

	"vaultback/internal/models"
	dbconfig "vaultback/pkg/config"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SellInvestment transfers ownership of an ACTIVE investment atomically. The
// accrual history, unclaimed balances, and boost-return obligation all follow
// the buyer; the sale tax is booked under its own category at the shared
// rate.
func SellInvestment(sellerID, buyerID, investmentID uint, price float64) (*models.MarketplaceSale, error) {
	if price <= 0 {
		return nil, fmt.Errorf("sale price must be positive")
	}
	if sellerID == buyerID {
		return nil, fmt.Errorf("buyer and seller must differ")
	}

	var sale *models.MarketplaceSale
	err := dbconfig.DB.Transaction(func(tx *gorm.DB) error {
		inv, err := lockInvestment(tx, investmentID)
		if err != nil {
			return err
		}
		if inv.UserID != sellerID {
			return gorm.ErrRecordNotFound
		}
		if inv.Status != models.InvestmentStatusActive && inv.Status != models.InvestmentStatusSold {
			return ErrNotSellable
		}

		var pendingClaims int64
		if err := tx.Model(&models.ClaimRequest{}).
			Where("investment_id = ? AND status IN ?", investmentID,
				[]string{models.ClaimStatusPending, models.ClaimStatusApproved}).
			Count(&pendingClaims).Error; err != nil {
			return err
		}
		if pendingClaims > 0 {
			return ErrNotSellable
		}

		treasury := ""
		if dbconfig.Settings != nil {
			treasury = dbconfig.Settings.TreasuryAddress
		}

		sale = &models.MarketplaceSale{
			InvestmentID: investmentID,
			SellerID:     sellerID,
			BuyerID:      buyerID,
			Asset:        inv.Asset,
			Price:        price,
		}
		if err := tx.Create(sale).Error; err != nil {
			return fmt.Errorf("create sale record: %w", err)
		}

		tax, net, err := ApplyTax(tx, models.TaxSourceMarketplaceSale, sale.ID, inv.Asset, price, "", treasury)
		if err != nil {
			return fmt.Errorf("apply sale tax: %w", err)
		}
		sale.TaxAmount = tax
		sale.NetProceeds = net
		if err := tx.Save(sale).Error; err != nil {
			return err
		}

		inv.UserID = buyerID
		if inv.Status == models.InvestmentStatusActive {
			if err := TransitionInvestment(tx, inv, models.InvestmentStatusSold); err != nil {
				return err
			}
		} else if err := tx.Save(inv).Error; err != nil {
			return err
		}

		logrus.Infof("Investment %d sold by user %d to user %d for %.2f %s (tax %.2f)",
			investmentID, sellerID, buyerID, price, inv.Asset, tax)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}
