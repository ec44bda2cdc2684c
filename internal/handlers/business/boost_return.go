package business

import (
	"context"
	"errors"
	"fmt"

	"vaultback/internal/models"
	"vaultback/pkg/chain"
	dbconfig "vaultback/pkg/config"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReturnBoosts sends unreturned boost deposits of completed investments back
// to the current owner. Idempotent: the returned flag is checked under a row
// lock, so a rerun or a concurrent job never double-sends.
func ReturnBoosts(ctx context.Context, dispatcher *chain.Dispatcher) (int, error) {
	var boostIDs []uint
	err := dbconfig.DB.Model(&models.Boost{}).
		Joins("JOIN investments ON investments.id = boosts.investment_id").
		Where("boosts.returned = ? AND investments.status = ?", false, models.InvestmentStatusCompleted).
		Pluck("boosts.id", &boostIDs).Error
	if err != nil {
		return 0, err
	}

	returned := 0
	for _, id := range boostIDs {
		if err := returnOneBoost(ctx, dispatcher, id); err != nil {
			logrus.Errorf("Boost %d return failed: %v", id, err)
			continue
		}
		returned++
	}
	return returned, nil
}

func returnOneBoost(ctx context.Context, dispatcher *chain.Dispatcher, boostID uint) error {
	return dbconfig.DB.Transaction(func(tx *gorm.DB) error {
		var boost models.Boost
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&boost, boostID).Error; err != nil {
			return err
		}
		if boost.Returned {
			return nil
		}

		var inv models.Investment
		if err := tx.First(&inv, boost.InvestmentID).Error; err != nil {
			return err
		}

		var wallet models.UserWallet
		err := tx.Where("user_id = ? AND chain = ?", inv.UserID, boost.Chain).First(&wallet).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("boost %d owner %d: %w", boostID, inv.UserID, ErrNoDestination)
		}
		if err != nil {
			return err
		}

		asset, ok := dbconfig.LookupAsset(boost.Chain, boost.Asset)
		if !ok {
			return fmt.Errorf("%w: %s on %s", ErrUnsupportedAsset, boost.Asset, boost.Chain)
		}
		sent, err := dispatcher.Send(ctx, boost.Chain, wallet.Address, asset, boost.Amount)
		if err != nil {
			return fmt.Errorf("outbound transfer: %w", err)
		}

		boost.Returned = true
		boost.ReturnProof = sent.ProofID
		if err := tx.Save(&boost).Error; err != nil {
			return err
		}
		if sent.Synthetic {
			logrus.Warnf("Boost %d marked returned with synthetic proof %s; no funds moved", boostID, sent.ProofID)
		} else {
			logrus.Infof("Boost %d returned to user %d: %s", boostID, inv.UserID, sent.ProofID)
		}
		return nil
	})
}
