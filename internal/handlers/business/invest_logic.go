package business

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"vaultback/internal/models"
	"vaultback/pkg/chain"
	dbconfig "vaultback/pkg/config"
	"vaultback/pkg/reward"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxVerifyAttempts is the retry budget before a pending investment is
// rejected outright.
const MaxVerifyAttempts = 5

// legVerifyTimeout bounds the aggregate multi-leg verification round.
const legVerifyTimeout = 90 * time.Second

// validTransitions is the lifecycle table. Anything not listed is an
// ErrInvalidTransition.
var validTransitions = map[string][]string{
	models.InvestmentStatusPendingPrincipal:  {models.InvestmentStatusPendingCollateral, models.InvestmentStatusPendingActivation, models.InvestmentStatusRejected},
	models.InvestmentStatusPendingCollateral: {models.InvestmentStatusPendingActivation, models.InvestmentStatusRejected},
	models.InvestmentStatusPendingActivation: {models.InvestmentStatusActive, models.InvestmentStatusRejected},
	models.InvestmentStatusActive:            {models.InvestmentStatusCompleted, models.InvestmentStatusSold},
	models.InvestmentStatusSold:              {models.InvestmentStatusCompleted},
}

// CanTransition reports whether from → to is a legal lifecycle step.
func CanTransition(from, to string) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TransitionInvestment moves an investment to the next status inside the
// caller's transaction, refusing illegal steps.
func TransitionInvestment(tx *gorm.DB, inv *models.Investment, next string) error {
	if !CanTransition(inv.Status, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, inv.Status, next)
	}
	inv.Status = next
	return tx.Save(inv).Error
}

// CreateInvestmentInput carries everything the client submits when entering a
// vault. Proofs for legs not yet paid may be empty and submitted later.
type CreateInvestmentInput struct {
	UserID          uint
	VaultID         uint
	Principal       float64
	FromAddress     string
	PrincipalProof  string
	CollateralProof string
	BoostType       string
	BoostAsset      string
	BoostAmount     float64
	BoostValueUSD   float64
	BoostProof      string
}

// CreateInvestment opens the lifecycle at PENDING_PRINCIPAL. The yield rate
// is fixed here, boost included; an oversized boost is refused, never
// clamped. Vault capacity is consumed at activation, not here.
func CreateInvestment(input CreateInvestmentInput) (*models.Investment, error) {
	var investment *models.Investment
	err := dbconfig.DB.Transaction(func(tx *gorm.DB) error {
		var vault models.Vault
		if err := tx.First(&vault, input.VaultID).Error; err != nil {
			return fmt.Errorf("load vault %d: %w", input.VaultID, err)
		}
		if vault.IsMining {
			return ErrVaultFull
		}
		if !vault.IsActive {
			return ErrVaultClosed
		}
		if input.Principal < vault.MinContribution || input.Principal > vault.MaxContribution {
			return ErrContributionBounds
		}

		boosted, err := reward.ComputeBoostedRate(vault.BaseRate, vault.Tier, input.Principal, input.BoostValueUSD)
		if err != nil {
			return err
		}

		investment = &models.Investment{
			OrderID:            uuid.NewString(),
			UserID:             input.UserID,
			VaultID:            vault.ID,
			Chain:              vault.Chain,
			Asset:              vault.Asset,
			Principal:          input.Principal,
			RequiredCollateral: input.Principal * vault.CollateralRatio,
			YieldRate:          boosted.FinalRate,
			EmissionRate:       vault.BaseEmissionRate,
			Status:             models.InvestmentStatusPendingPrincipal,
			PrincipalProof:     input.PrincipalProof,
			CollateralProof:    input.CollateralProof,
			BoostProof:         input.BoostProof,
		}
		if err := tx.Create(investment).Error; err != nil {
			return fmt.Errorf("create investment: %w", err)
		}

		if input.BoostValueUSD > 0 {
			boostType := input.BoostType
			if boostType == "" {
				boostType = models.BoostTypeYield
			}
			boost := &models.Boost{
				InvestmentID:   investment.ID,
				BoostType:      boostType,
				Chain:          vault.Chain,
				Asset:          input.BoostAsset,
				Amount:         input.BoostAmount,
				ValueUSD:       input.BoostValueUSD,
				FillPercent:    boosted.FillPercent,
				AdditionalRate: boosted.AdditionalRate,
			}
			if err := tx.Create(boost).Error; err != nil {
				return fmt.Errorf("create boost: %w", err)
			}
		}

		return createVerificationJobs(tx, investment, &vault, input)
	})
	if err != nil {
		return nil, err
	}
	return investment, nil
}

func createVerificationJobs(tx *gorm.DB, inv *models.Investment, vault *models.Vault, input CreateInvestmentInput) error {
	custody := custodyAddress(vault.Chain)

	jobs := []struct {
		leg    string
		proof  string
		asset  string
		amount float64
	}{
		{models.DepositLegPrincipal, input.PrincipalProof, vault.Asset, input.Principal},
		{models.DepositLegCollateral, input.CollateralProof, vault.CollateralAsset, inv.RequiredCollateral},
		{models.DepositLegBoost, input.BoostProof, input.BoostAsset, input.BoostAmount},
	}
	for _, j := range jobs {
		if j.proof == "" {
			continue
		}
		job := &models.VerificationJob{
			InvestmentID:   inv.ID,
			Leg:            j.leg,
			Chain:          vault.Chain,
			Asset:          j.asset,
			Proof:          j.proof,
			ExpectedFrom:   input.FromAddress,
			ExpectedTo:     custody,
			ExpectedAmount: j.amount,
		}
		if err := tx.Create(job).Error; err != nil {
			return fmt.Errorf("create %s verification job: %w", j.leg, err)
		}
	}
	return nil
}

func custodyAddress(chainName string) string {
	if dbconfig.Settings == nil {
		return ""
	}
	return dbconfig.Settings.Chains[chainName].CustodyAddress
}

func activationDelay() time.Duration {
	if dbconfig.Settings == nil {
		return 72 * time.Hour
	}
	if dbconfig.Settings.InstantActivation {
		return 0
	}
	return dbconfig.Settings.ActivationDelay
}

func proofMaxAge() time.Duration {
	if dbconfig.Settings == nil {
		return 24 * time.Hour
	}
	return dbconfig.Settings.ProofMaxAge
}

// LegResult is the outcome of one leg's chain verification.
type LegResult struct {
	Job    *models.VerificationJob
	Result *chain.InboundResult
	Err    error
}

// VerifyDepositLegs runs every supplied leg concurrently under one aggregate
// timeout. Legs are independent network round-trips; none may block another.
func VerifyDepositLegs(ctx context.Context, registry *chain.Registry, jobs []*models.VerificationJob) []LegResult {
	ctx, cancel := context.WithTimeout(ctx, legVerifyTimeout)
	defer cancel()

	results := make([]LegResult, len(jobs))
	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		go func(i int, job *models.VerificationJob) {
			defer wg.Done()
			results[i] = LegResult{Job: job}

			verifier, err := registry.Get(job.Chain)
			if err != nil {
				results[i].Err = err
				return
			}
			asset, ok := dbconfig.LookupAsset(job.Chain, job.Asset)
			if !ok {
				results[i].Err = fmt.Errorf("%w: %s on %s", ErrUnsupportedAsset, job.Asset, job.Chain)
				return
			}
			res, err := verifier.VerifyInboundTransfer(ctx, chain.InboundExpectation{
				Proof:  job.Proof,
				Asset:  asset,
				From:   job.ExpectedFrom,
				To:     job.ExpectedTo,
				Amount: job.ExpectedAmount,
				MaxAge: proofMaxAge(),
			})
			results[i].Result = res
			results[i].Err = err
		}(i, job)
	}
	wg.Wait()
	return results
}

// ApplyLegResult persists one verification outcome and advances the
// investment accordingly. A failed boost leg never blocks the lifecycle; it
// just strips the boost's additional rate. Other legs reject the investment
// once the retry budget is spent.
func ApplyLegResult(res LegResult) error {
	return dbconfig.DB.Transaction(func(tx *gorm.DB) error {
		job := res.Job
		job.Attempts++

		if res.Err != nil {
			job.LastError = res.Err.Error()
			if job.Attempts >= MaxVerifyAttempts {
				job.Status = models.VerificationStatusFailed
			} else {
				job.Status = models.VerificationStatusPending
			}
			if err := tx.Save(job).Error; err != nil {
				return err
			}
			if job.Status != models.VerificationStatusFailed {
				return nil
			}
			if job.Leg == models.DepositLegBoost {
				return stripBoost(tx, job.InvestmentID)
			}
			return rejectInvestmentTx(tx, job.InvestmentID,
				fmt.Sprintf("%s leg failed verification after %d attempts: %v", job.Leg, job.Attempts, res.Err))
		}

		job.Status = models.VerificationStatusConfirmed
		job.LastError = ""
		job.ConfirmedAmount = res.Result.ActualAmount
		bt := res.Result.BlockTime
		job.BlockTime = &bt
		if err := tx.Save(job).Error; err != nil {
			return err
		}

		switch job.Leg {
		case models.DepositLegPrincipal:
			return confirmPrincipalTx(tx, job.InvestmentID)
		case models.DepositLegCollateral:
			return confirmCollateralTx(tx, job.InvestmentID)
		case models.DepositLegBoost:
			return nil
		default:
			return fmt.Errorf("unknown verification leg %q", job.Leg)
		}
	})
}

func lockInvestment(tx *gorm.DB, id uint) (*models.Investment, error) {
	var inv models.Investment
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&inv, id).Error; err != nil {
		return nil, fmt.Errorf("lock investment %d: %w", id, err)
	}
	return &inv, nil
}

// confirmPrincipalTx advances PENDING_PRINCIPAL once the principal leg is
// confirmed. Zero-collateral vaults skip PENDING_COLLATERAL entirely.
func confirmPrincipalTx(tx *gorm.DB, investmentID uint) error {
	inv, err := lockInvestment(tx, investmentID)
	if err != nil {
		return err
	}
	if inv.Status != models.InvestmentStatusPendingPrincipal {
		return nil
	}
	if inv.RequiredCollateral <= 0 {
		now := time.Now()
		inv.CollateralConfirmedAt = &now
		return TransitionInvestment(tx, inv, models.InvestmentStatusPendingActivation)
	}
	return TransitionInvestment(tx, inv, models.InvestmentStatusPendingCollateral)
}

func confirmCollateralTx(tx *gorm.DB, investmentID uint) error {
	inv, err := lockInvestment(tx, investmentID)
	if err != nil {
		return err
	}
	if inv.Status != models.InvestmentStatusPendingCollateral {
		return nil
	}
	now := time.Now()
	inv.LockedCollateral = inv.RequiredCollateral
	inv.CollateralConfirmedAt = &now
	return TransitionInvestment(tx, inv, models.InvestmentStatusPendingActivation)
}

// stripBoost removes a failed boost's contribution to the fixed yield rate.
// The boost row stays for the audit trail; only its effect is zeroed.
func stripBoost(tx *gorm.DB, investmentID uint) error {
	var boost models.Boost
	err := tx.Where("investment_id = ?", investmentID).First(&boost).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if boost.AdditionalRate == 0 {
		return nil
	}

	inv, err := lockInvestment(tx, investmentID)
	if err != nil {
		return err
	}
	inv.YieldRate -= boost.AdditionalRate
	if err := tx.Save(inv).Error; err != nil {
		return err
	}

	logrus.Warnf("Boost verification failed for investment %d, additional rate %.2f removed",
		investmentID, boost.AdditionalRate)
	boost.AdditionalRate = 0
	boost.FillPercent = 0
	return tx.Save(&boost).Error
}

// RejectInvestment marks a pending investment REJECTED. Advisory only: no
// funds are held server-side beyond what the chain itself reports.
func RejectInvestment(investmentID uint, reason string) error {
	return dbconfig.DB.Transaction(func(tx *gorm.DB) error {
		return rejectInvestmentTx(tx, investmentID, reason)
	})
}

func rejectInvestmentTx(tx *gorm.DB, investmentID uint, reason string) error {
	inv, err := lockInvestment(tx, investmentID)
	if err != nil {
		return err
	}
	if inv.Terminal() {
		return nil
	}
	if err := TransitionInvestment(tx, inv, models.InvestmentStatusRejected); err != nil {
		return err
	}
	logrus.Warnf("Investment %d rejected: %s", investmentID, reason)
	return nil
}

// ActivateDue flips investments whose activation delay has elapsed to ACTIVE
// and charges the vault's capacity. If the target vault rotated while the
// investment waited, the contribution lands in the lineage's open generation
// instead.
func ActivateDue(now time.Time) (int, error) {
	cutoff := now.Add(-activationDelay())

	var due []models.Investment
	if err := dbconfig.DB.
		Where("status = ? AND collateral_confirmed_at <= ?", models.InvestmentStatusPendingActivation, cutoff).
		Find(&due).Error; err != nil {
		return 0, err
	}

	activated := 0
	for i := range due {
		if err := activateOne(&due[i], now); err != nil {
			logrus.Errorf("Activate investment %d failed: %v", due[i].ID, err)
			continue
		}
		activated++
	}
	return activated, nil
}

func activateOne(inv *models.Investment, now time.Time) error {
	return dbconfig.DB.Transaction(func(tx *gorm.DB) error {
		locked, err := lockInvestment(tx, inv.ID)
		if err != nil {
			return err
		}
		if locked.Status != models.InvestmentStatusPendingActivation {
			return nil
		}

		vault, err := contributeWithRetarget(tx, locked)
		if err != nil {
			return err
		}

		end := now.Add(time.Duration(vault.DurationDays) * 24 * time.Hour)
		locked.VaultID = vault.ID
		locked.StartAt = &now
		locked.EndAt = &end
		locked.LastAccruedAt = &now
		if err := TransitionInvestment(tx, locked, models.InvestmentStatusActive); err != nil {
			return err
		}
		logrus.Infof("Investment %d active in vault %d until %s", locked.ID, vault.ID, end.Format(time.RFC3339))
		return nil
	})
}

// contributeWithRetarget records the principal against the investment's vault,
// falling through to the lineage's open generation when the original filled
// while the investment was pending.
func contributeWithRetarget(tx *gorm.DB, inv *models.Investment) (*models.Vault, error) {
	vault, err := RecordContribution(tx, inv.VaultID, inv.Principal)
	if err == nil {
		return vault, nil
	}
	if !errors.Is(err, ErrVaultFull) && !errors.Is(err, ErrVaultClosed) {
		return nil, err
	}

	var original models.Vault
	if err := tx.First(&original, inv.VaultID).Error; err != nil {
		return nil, err
	}
	successor, err := ActiveVaultInLineage(tx, &original)
	if err != nil {
		return nil, err
	}
	return RecordContribution(tx, successor.ID, inv.Principal)
}

// AccrueInvestment recomputes pending balances as of asOf. Yield is a
// recomputation from the fixed rate (deterministic for a fixed asOf);
// emission is an increment over the window since the last accrual at the
// difficulty in force now.
func AccrueInvestment(tx *gorm.DB, investmentID uint, asOf time.Time, difficulty float64) error {
	inv, err := lockInvestment(tx, investmentID)
	if err != nil {
		return err
	}
	if !inv.Accruing() || inv.StartAt == nil {
		return nil
	}

	effective := asOf
	if inv.EndAt != nil && effective.After(*inv.EndAt) {
		effective = *inv.EndAt
	}

	inv.PendingYield = reward.PendingYield(inv.Principal, inv.YieldRate, *inv.StartAt, effective, inv.LastYieldClaimAt)

	from := *inv.StartAt
	if inv.LastAccruedAt != nil && inv.LastAccruedAt.After(from) {
		from = *inv.LastAccruedAt
	}
	inv.PendingEmission += reward.ProratedEmission(inv.Principal, difficulty, inv.EmissionRate, from, effective)
	inv.LastAccruedAt = &effective
	return tx.Save(inv).Error
}

// AccrueAll reconciles every accruing investment independently, one
// transaction each so a failure on one row never blocks the rest.
func AccrueAll(asOf time.Time) (int, error) {
	difficulty := CurrentDifficulty()

	var ids []uint
	if err := dbconfig.DB.Model(&models.Investment{}).
		Where("status IN ?", []string{models.InvestmentStatusActive, models.InvestmentStatusSold}).
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}

	accrued := 0
	for _, id := range ids {
		err := dbconfig.DB.Transaction(func(tx *gorm.DB) error {
			return AccrueInvestment(tx, id, asOf, difficulty)
		})
		if err != nil {
			logrus.Errorf("Accrue investment %d failed: %v", id, err)
			continue
		}
		accrued++
	}
	return accrued, nil
}

// CompleteDue finalizes investments past their vault end date: a last accrual
// up to the end date, then COMPLETED. Boost returns run separately and are
// idempotent.
func CompleteDue(now time.Time) (int, error) {
	difficulty := CurrentDifficulty()

	var ids []uint
	if err := dbconfig.DB.Model(&models.Investment{}).
		Where("status IN ? AND end_at <= ?", []string{models.InvestmentStatusActive, models.InvestmentStatusSold}, now).
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}

	completed := 0
	for _, id := range ids {
		err := dbconfig.DB.Transaction(func(tx *gorm.DB) error {
			if err := AccrueInvestment(tx, id, now, difficulty); err != nil {
				return err
			}
			inv, err := lockInvestment(tx, id)
			if err != nil {
				return err
			}
			if inv.Terminal() {
				return nil
			}
			return TransitionInvestment(tx, inv, models.InvestmentStatusCompleted)
		})
		if err != nil {
			logrus.Errorf("Complete investment %d failed: %v", id, err)
			continue
		}
		completed++
	}
	return completed, nil
}

// CurrentDifficulty reads the global emission difficulty; 1 when the state
// row has not been seeded yet.
func CurrentDifficulty() float64 {
	var state models.EmissionState
	if err := dbconfig.DB.First(&state).Error; err != nil {
		return 1
	}
	if state.Difficulty < 1 {
		return 1
	}
	return state.Difficulty
}

// GetInvestment fetches one investment with its vault.
func GetInvestment(id uint) (*models.Investment, error) {
	var inv models.Investment
	if err := dbconfig.DB.Preload("Vault").First(&inv, id).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

// ListInvestments returns a user's investments, newest first.
func ListInvestments(userID uint) ([]models.Investment, error) {
	var invs []models.Investment
	if err := dbconfig.DB.Where("user_id = ?", userID).
		Order("id desc").Find(&invs).Error; err != nil {
		return nil, err
	}
	return invs, nil
}
