package business

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vaultback/internal/models"
	"vaultback/pkg/chain"
	dbconfig "vaultback/pkg/config"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RequestClaim opens phase one of a withdrawal: the investment's pending
// balance of the requested type is zeroed in the same transaction the PENDING
// claim is created, so a racing duplicate either sees the zero or the
// existing PENDING row.
func RequestClaim(userID, investmentID uint, claimType string) (*models.ClaimRequest, error) {
	if claimType != models.ClaimTypeYield && claimType != models.ClaimTypeEmission {
		return nil, fmt.Errorf("unknown claim type %q", claimType)
	}

	var claim *models.ClaimRequest
	err := dbconfig.DB.Transaction(func(tx *gorm.DB) error {
		inv, err := lockInvestment(tx, investmentID)
		if err != nil {
			return err
		}
		if inv.UserID != userID {
			return gorm.ErrRecordNotFound
		}

		var pendingCount int64
		if err := tx.Model(&models.ClaimRequest{}).
			Where("investment_id = ? AND claim_type = ? AND status = ?",
				investmentID, claimType, models.ClaimStatusPending).
			Count(&pendingCount).Error; err != nil {
			return err
		}
		if pendingCount > 0 {
			return ErrDuplicateClaim
		}

		var gross float64
		switch claimType {
		case models.ClaimTypeYield:
			gross = inv.PendingYield
		case models.ClaimTypeEmission:
			gross = inv.PendingEmission
		}
		if gross <= 0 {
			return ErrNothingToClaim
		}

		var wallet models.UserWallet
		err = tx.Where("user_id = ? AND chain = ?", userID, inv.Chain).First(&wallet).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoDestination
		}
		if err != nil {
			return err
		}

		now := time.Now()
		switch claimType {
		case models.ClaimTypeYield:
			inv.PendingYield = 0
			inv.LastYieldClaimAt = &now
		case models.ClaimTypeEmission:
			inv.PendingEmission = 0
		}
		if err := tx.Save(inv).Error; err != nil {
			return err
		}

		claim = &models.ClaimRequest{
			InvestmentID: investmentID,
			UserID:       userID,
			ClaimType:    claimType,
			Chain:        inv.Chain,
			Asset:        inv.Asset,
			GrossAmount:  gross,
			Destination:  wallet.Address,
			Status:       models.ClaimStatusPending,
		}
		return tx.Create(claim).Error
	})
	if err != nil {
		return nil, err
	}
	return claim, nil
}

func lockClaim(tx *gorm.DB, id uint) (*models.ClaimRequest, error) {
	var claim models.ClaimRequest
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&claim, id).Error; err != nil {
		return nil, fmt.Errorf("lock claim %d: %w", id, err)
	}
	return &claim, nil
}

// ApproveClaim records the operator's sign-off. No funds move here.
func ApproveClaim(claimID, operatorID uint) (*models.ClaimRequest, error) {
	var claim *models.ClaimRequest
	err := dbconfig.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		claim, err = lockClaim(tx, claimID)
		if err != nil {
			return err
		}
		if claim.Status != models.ClaimStatusPending {
			return ErrClaimNotPending
		}
		now := time.Now()
		claim.Status = models.ClaimStatusApproved
		claim.OperatorID = operatorID
		claim.ApprovedAt = &now
		if err := tx.Save(claim).Error; err != nil {
			return err
		}
		recordSystemLog(tx, "INFO", "claims", "claim approved", models.JSONMap{
			"claim_id":    claim.ID,
			"operator_id": operatorID,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claim, nil
}

// RejectClaim is the saga rollback: the amount zeroed at request time is
// restored to the investment's pending balance in the same transaction.
func RejectClaim(claimID, operatorID uint, reason string) (*models.ClaimRequest, error) {
	var claim *models.ClaimRequest
	err := dbconfig.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		claim, err = lockClaim(tx, claimID)
		if err != nil {
			return err
		}
		if claim.Status != models.ClaimStatusPending && claim.Status != models.ClaimStatusApproved {
			return ErrClaimNotPending
		}

		inv, err := lockInvestment(tx, claim.InvestmentID)
		if err != nil {
			return err
		}
		switch claim.ClaimType {
		case models.ClaimTypeYield:
			inv.PendingYield += claim.GrossAmount
		case models.ClaimTypeEmission:
			inv.PendingEmission += claim.GrossAmount
		}
		if err := tx.Save(inv).Error; err != nil {
			return err
		}

		claim.Status = models.ClaimStatusRejected
		claim.OperatorID = operatorID
		claim.RejectReason = reason
		if err := tx.Save(claim).Error; err != nil {
			return err
		}
		recordSystemLog(tx, "WARN", "claims", "claim rejected", models.JSONMap{
			"claim_id":    claim.ID,
			"operator_id": operatorID,
			"reason":      reason,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claim, nil
}

// ProcessClaim completes a claim: emission claims pass through the tax ledger
// first, then the net amount goes out through the per-chain dispatcher. Tax
// booking and the transfer succeed or fail together; a failed broadcast rolls
// back the tax record and leaves the claim for a retry.
func ProcessClaim(ctx context.Context, dispatcher *chain.Dispatcher, claimID, operatorID uint) (*models.ClaimRequest, error) {
	var claim *models.ClaimRequest
	err := dbconfig.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		claim, err = lockClaim(tx, claimID)
		if err != nil {
			return err
		}
		if claim.Status != models.ClaimStatusPending && claim.Status != models.ClaimStatusApproved {
			return ErrClaimNotApproved
		}

		net := claim.GrossAmount
		var tax float64
		if claim.ClaimType == models.ClaimTypeEmission {
			treasury := ""
			if dbconfig.Settings != nil {
				treasury = dbconfig.Settings.TreasuryAddress
			}
			tax, net, err = ApplyTax(tx, models.TaxSourceEmissionClaim, claim.ID, claim.Asset, claim.GrossAmount, "", treasury)
			if err != nil {
				return fmt.Errorf("apply tax: %w", err)
			}
		}

		asset, ok := dbconfig.LookupAsset(claim.Chain, claim.Asset)
		if !ok {
			return fmt.Errorf("%w: %s on %s", ErrUnsupportedAsset, claim.Asset, claim.Chain)
		}
		sent, err := dispatcher.Send(ctx, claim.Chain, claim.Destination, asset, net)
		if err != nil {
			return fmt.Errorf("outbound transfer: %w", err)
		}

		inv, err := lockInvestment(tx, claim.InvestmentID)
		if err != nil {
			return err
		}
		switch claim.ClaimType {
		case models.ClaimTypeYield:
			inv.ClaimedYield += net
		case models.ClaimTypeEmission:
			inv.ClaimedEmission += net
		}
		if err := tx.Save(inv).Error; err != nil {
			return err
		}

		now := time.Now()
		claim.Status = models.ClaimStatusCompleted
		claim.OperatorID = operatorID
		claim.TaxAmount = tax
		claim.NetAmount = net
		claim.OutboundProof = sent.ProofID
		claim.SyntheticProof = sent.Synthetic
		claim.ProcessedAt = &now
		if err := tx.Save(claim).Error; err != nil {
			return err
		}
		if sent.Synthetic {
			logrus.Warnf("Claim %d completed with synthetic proof %s; no funds moved", claim.ID, sent.ProofID)
		}
		recordSystemLog(tx, "INFO", "claims", "claim processed", models.JSONMap{
			"claim_id":       claim.ID,
			"operator_id":    operatorID,
			"net_amount":     net,
			"tax_amount":     tax,
			"outbound_proof": sent.ProofID,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claim, nil
}

// GetClaim fetches one claim request.
func GetClaim(id uint) (*models.ClaimRequest, error) {
	var claim models.ClaimRequest
	if err := dbconfig.DB.First(&claim, id).Error; err != nil {
		return nil, err
	}
	return &claim, nil
}

// ListClaims returns claims filtered by status (all when empty).
func ListClaims(status string, limit int) ([]models.ClaimRequest, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := dbconfig.DB.Order("id desc").Limit(limit)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var claims []models.ClaimRequest
	if err := query.Find(&claims).Error; err != nil {
		return nil, err
	}
	return claims, nil
}

// ListUserClaims returns one user's claims, newest first.
func ListUserClaims(userID uint) ([]models.ClaimRequest, error) {
	var claims []models.ClaimRequest
	if err := dbconfig.DB.Where("user_id = ?", userID).
		Order("id desc").Find(&claims).Error; err != nil {
		return nil, err
	}
	return claims, nil
}
