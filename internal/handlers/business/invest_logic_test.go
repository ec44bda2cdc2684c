package business

import (
	"errors"
	"testing"
	"time"

	"vaultback/internal/models"
	"vaultback/pkg/chain"
	dbconfig "vaultback/pkg/config"
	"vaultback/pkg/reward"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestTransitionTable(t *testing.T) {
	legal := []struct{ from, to string }{
		{models.InvestmentStatusPendingPrincipal, models.InvestmentStatusPendingCollateral},
		{models.InvestmentStatusPendingPrincipal, models.InvestmentStatusPendingActivation},
		{models.InvestmentStatusPendingPrincipal, models.InvestmentStatusRejected},
		{models.InvestmentStatusPendingCollateral, models.InvestmentStatusPendingActivation},
		{models.InvestmentStatusPendingCollateral, models.InvestmentStatusRejected},
		{models.InvestmentStatusPendingActivation, models.InvestmentStatusActive},
		{models.InvestmentStatusPendingActivation, models.InvestmentStatusRejected},
		{models.InvestmentStatusActive, models.InvestmentStatusCompleted},
		{models.InvestmentStatusActive, models.InvestmentStatusSold},
		{models.InvestmentStatusSold, models.InvestmentStatusCompleted},
	}
	for _, step := range legal {
		assert.True(t, CanTransition(step.from, step.to), "%s -> %s should be legal", step.from, step.to)
	}

	illegal := []struct{ from, to string }{
		{models.InvestmentStatusPendingPrincipal, models.InvestmentStatusActive},
		{models.InvestmentStatusActive, models.InvestmentStatusRejected},
		{models.InvestmentStatusCompleted, models.InvestmentStatusActive},
		{models.InvestmentStatusRejected, models.InvestmentStatusPendingPrincipal},
		{models.InvestmentStatusSold, models.InvestmentStatusSold},
	}
	for _, step := range illegal {
		assert.False(t, CanTransition(step.from, step.to), "%s -> %s should be illegal", step.from, step.to)
	}
}

func TestCreateInvestment(t *testing.T) {
	t.Run("fixes boosted rate at entry", func(t *testing.T) {
		newTestDB(t)
		vault := seedVault(t, nil)

		inv, err := CreateInvestment(CreateInvestmentInput{
			UserID:         7,
			VaultID:        vault.ID,
			Principal:      1000,
			PrincipalProof: "0xabc",
			BoostAsset:     "USDT",
			BoostAmount:    450,
			BoostValueUSD:  450,
		})
		require.NoError(t, err)
		assert.Equal(t, models.InvestmentStatusPendingPrincipal, inv.Status)
		assert.InDelta(t, 12.0, inv.YieldRate, 1e-9)
		assert.NotEmpty(t, inv.OrderID)

		var boost models.Boost
		require.NoError(t, dbconfig.DB.Where("investment_id = ?", inv.ID).First(&boost).Error)
		assert.InDelta(t, 50.0, boost.FillPercent, 1e-9)
		assert.InDelta(t, 2.0, boost.AdditionalRate, 1e-9)

		var jobs []models.VerificationJob
		require.NoError(t, dbconfig.DB.Where("investment_id = ?", inv.ID).Find(&jobs).Error)
		require.Len(t, jobs, 1)
		assert.Equal(t, models.DepositLegPrincipal, jobs[0].Leg)
		assert.InDelta(t, 1000.0, jobs[0].ExpectedAmount, 1e-9)
	})

	t.Run("oversized boost refused, not clamped", func(t *testing.T) {
		newTestDB(t)
		vault := seedVault(t, nil)

		_, err := CreateInvestment(CreateInvestmentInput{
			UserID:        7,
			VaultID:       vault.ID,
			Principal:     1000,
			BoostValueUSD: 901,
		})
		assert.ErrorIs(t, err, reward.ErrBoostTooLarge)
	})

	t.Run("mining vault refused as full", func(t *testing.T) {
		newTestDB(t)
		vault := seedVault(t, func(v *models.Vault) {
			v.IsActive = false
			v.IsMining = true
		})

		_, err := CreateInvestment(CreateInvestmentInput{
			UserID: 7, VaultID: vault.ID, Principal: 1000,
		})
		assert.ErrorIs(t, err, ErrVaultFull)
	})

	t.Run("deactivated vault refused as closed", func(t *testing.T) {
		newTestDB(t)
		vault := seedVault(t, func(v *models.Vault) { v.IsActive = false })

		_, err := CreateInvestment(CreateInvestmentInput{
			UserID: 7, VaultID: vault.ID, Principal: 1000,
		})
		assert.ErrorIs(t, err, ErrVaultClosed)
	})

	t.Run("collateral requirement from vault ratio", func(t *testing.T) {
		newTestDB(t)
		vault := seedVault(t, func(v *models.Vault) { v.CollateralRatio = 0.2 })

		inv, err := CreateInvestment(CreateInvestmentInput{
			UserID: 7, VaultID: vault.ID, Principal: 1000,
		})
		require.NoError(t, err)
		assert.InDelta(t, 200.0, inv.RequiredCollateral, 1e-9)
	})
}

func confirmedLeg(job *models.VerificationJob, amount float64) LegResult {
	return LegResult{
		Job: job,
		Result: &chain.InboundResult{
			Confirmed:    true,
			ActualAmount: amount,
			BlockTime:    time.Now(),
		},
	}
}

func TestApplyLegResultAdvancesLifecycle(t *testing.T) {
	t.Run("principal confirm skips collateral when none required", func(t *testing.T) {
		newTestDB(t)
		vault := seedVault(t, nil)
		inv, err := CreateInvestment(CreateInvestmentInput{
			UserID: 7, VaultID: vault.ID, Principal: 1000, PrincipalProof: "0xabc",
		})
		require.NoError(t, err)

		var job models.VerificationJob
		require.NoError(t, dbconfig.DB.Where("investment_id = ?", inv.ID).First(&job).Error)

		require.NoError(t, ApplyLegResult(confirmedLeg(&job, 1000)))

		var after models.Investment
		require.NoError(t, dbconfig.DB.First(&after, inv.ID).Error)
		assert.Equal(t, models.InvestmentStatusPendingActivation, after.Status)
		assert.NotNil(t, after.CollateralConfirmedAt)
	})

	t.Run("principal then collateral when collateral required", func(t *testing.T) {
		newTestDB(t)
		vault := seedVault(t, func(v *models.Vault) { v.CollateralRatio = 0.2 })
		inv, err := CreateInvestment(CreateInvestmentInput{
			UserID: 7, VaultID: vault.ID, Principal: 1000,
			PrincipalProof: "0xabc", CollateralProof: "0xdef",
		})
		require.NoError(t, err)

		var jobs []models.VerificationJob
		require.NoError(t, dbconfig.DB.Where("investment_id = ?", inv.ID).Order("id").Find(&jobs).Error)
		require.Len(t, jobs, 2)

		require.NoError(t, ApplyLegResult(confirmedLeg(&jobs[0], 1000)))
		var mid models.Investment
		require.NoError(t, dbconfig.DB.First(&mid, inv.ID).Error)
		assert.Equal(t, models.InvestmentStatusPendingCollateral, mid.Status)

		require.NoError(t, ApplyLegResult(confirmedLeg(&jobs[1], 200)))
		var after models.Investment
		require.NoError(t, dbconfig.DB.First(&after, inv.ID).Error)
		assert.Equal(t, models.InvestmentStatusPendingActivation, after.Status)
		assert.InDelta(t, 200.0, after.LockedCollateral, 1e-9)
	})

	t.Run("failed boost strips rate without blocking", func(t *testing.T) {
		newTestDB(t)
		vault := seedVault(t, nil)
		inv, err := CreateInvestment(CreateInvestmentInput{
			UserID: 7, VaultID: vault.ID, Principal: 1000,
			PrincipalProof: "0xabc", BoostProof: "0xboost",
			BoostAsset: "USDT", BoostAmount: 450, BoostValueUSD: 450,
		})
		require.NoError(t, err)
		require.InDelta(t, 12.0, inv.YieldRate, 1e-9)

		var boostJob models.VerificationJob
		require.NoError(t, dbconfig.DB.
			Where("investment_id = ? AND leg = ?", inv.ID, models.DepositLegBoost).
			First(&boostJob).Error)

		// Exhaust the retry budget with failures.
		for i := 0; i < MaxVerifyAttempts; i++ {
			require.NoError(t, ApplyLegResult(LegResult{Job: &boostJob, Err: errors.New("not found")}))
		}

		var after models.Investment
		require.NoError(t, dbconfig.DB.First(&after, inv.ID).Error)
		assert.InDelta(t, 10.0, after.YieldRate, 1e-9)
		assert.Equal(t, models.InvestmentStatusPendingPrincipal, after.Status)

		var boost models.Boost
		require.NoError(t, dbconfig.DB.Where("investment_id = ?", inv.ID).First(&boost).Error)
		assert.Zero(t, boost.AdditionalRate)
	})

	t.Run("principal failure past budget rejects the investment", func(t *testing.T) {
		newTestDB(t)
		vault := seedVault(t, nil)
		inv, err := CreateInvestment(CreateInvestmentInput{
			UserID: 7, VaultID: vault.ID, Principal: 1000, PrincipalProof: "0xabc",
		})
		require.NoError(t, err)

		var job models.VerificationJob
		require.NoError(t, dbconfig.DB.Where("investment_id = ?", inv.ID).First(&job).Error)

		for i := 0; i < MaxVerifyAttempts; i++ {
			require.NoError(t, ApplyLegResult(LegResult{Job: &job, Err: errors.New("not found")}))
		}

		var after models.Investment
		require.NoError(t, dbconfig.DB.First(&after, inv.ID).Error)
		assert.Equal(t, models.InvestmentStatusRejected, after.Status)
	})
}

func pendingActivationInvestment(t *testing.T, vault *models.Vault, confirmedAt time.Time) *models.Investment {
	t.Helper()
	inv := &models.Investment{
		OrderID:               "act-" + time.Now().Format("150405.000000000"),
		UserID:                7,
		VaultID:               vault.ID,
		Chain:                 vault.Chain,
		Asset:                 vault.Asset,
		Principal:             1000,
		YieldRate:             vault.BaseRate,
		Status:                models.InvestmentStatusPendingActivation,
		CollateralConfirmedAt: &confirmedAt,
	}
	require.NoError(t, dbconfig.DB.Create(inv).Error)
	return inv
}

func TestActivateDue(t *testing.T) {
	t.Run("activates past the delay and charges the vault", func(t *testing.T) {
		newTestDB(t)
		vault := seedVault(t, nil)
		inv := pendingActivationInvestment(t, vault, time.Now().Add(-80*time.Hour))
		tooRecent := pendingActivationInvestment(t, vault, time.Now().Add(-time.Hour))

		n, err := ActivateDue(time.Now())
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		var active models.Investment
		require.NoError(t, dbconfig.DB.First(&active, inv.ID).Error)
		assert.Equal(t, models.InvestmentStatusActive, active.Status)
		require.NotNil(t, active.StartAt)
		require.NotNil(t, active.EndAt)
		assert.InDelta(t, float64(vault.DurationDays*24), active.EndAt.Sub(*active.StartAt).Hours(), 1)

		var waiting models.Investment
		require.NoError(t, dbconfig.DB.First(&waiting, tooRecent.ID).Error)
		assert.Equal(t, models.InvestmentStatusPendingActivation, waiting.Status)

		var after models.Vault
		require.NoError(t, dbconfig.DB.First(&after, vault.ID).Error)
		assert.InDelta(t, 1000.0, after.CurrentFilled, 1e-9)
	})

	t.Run("retargets to the successor when the vault rotated while waiting", func(t *testing.T) {
		newTestDB(t)
		vault := seedVault(t, func(v *models.Vault) { v.TotalCapacity = 1000 })
		inv := pendingActivationInvestment(t, vault, time.Now().Add(-80*time.Hour))

		// Fill and rotate the original vault first.
		require.NoError(t, dbconfig.DB.Transaction(func(tx *gorm.DB) error {
			_, err := RecordContribution(tx, vault.ID, 1000)
			return err
		}))

		n, err := ActivateDue(time.Now())
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		var active models.Investment
		require.NoError(t, dbconfig.DB.First(&active, inv.ID).Error)
		assert.Equal(t, models.InvestmentStatusActive, active.Status)
		assert.NotEqual(t, vault.ID, active.VaultID)

		var successor models.Vault
		require.NoError(t, dbconfig.DB.First(&successor, active.VaultID).Error)
		assert.Equal(t, 2, successor.Generation)
		assert.InDelta(t, 1000.0, successor.CurrentFilled, 1e-9)
	})
}

func TestAccrueInvestment(t *testing.T) {
	t.Run("deterministic for a fixed asOf", func(t *testing.T) {
		newTestDB(t)
		vault := seedVault(t, nil)
		inv := seedActiveInvestment(t, 7, vault, 0, 0)
		asOf := time.Now()

		require.NoError(t, dbconfig.DB.Transaction(func(tx *gorm.DB) error {
			return AccrueInvestment(tx, inv.ID, asOf, 1)
		}))
		var first models.Investment
		require.NoError(t, dbconfig.DB.First(&first, inv.ID).Error)

		require.NoError(t, dbconfig.DB.Transaction(func(tx *gorm.DB) error {
			return AccrueInvestment(tx, inv.ID, asOf, 1)
		}))
		var second models.Investment
		require.NoError(t, dbconfig.DB.First(&second, inv.ID).Error)

		assert.InDelta(t, first.PendingYield, second.PendingYield, 1e-9)
		assert.Greater(t, first.PendingYield, 0.0)
	})

	t.Run("strictly increasing in asOf", func(t *testing.T) {
		newTestDB(t)
		vault := seedVault(t, nil)
		inv := seedActiveInvestment(t, 7, vault, 0, 0)

		asOf := time.Now()
		require.NoError(t, dbconfig.DB.Transaction(func(tx *gorm.DB) error {
			return AccrueInvestment(tx, inv.ID, asOf, 1)
		}))
		var first models.Investment
		require.NoError(t, dbconfig.DB.First(&first, inv.ID).Error)

		require.NoError(t, dbconfig.DB.Transaction(func(tx *gorm.DB) error {
			return AccrueInvestment(tx, inv.ID, asOf.Add(time.Hour), 1)
		}))
		var later models.Investment
		require.NoError(t, dbconfig.DB.First(&later, inv.ID).Error)

		assert.Greater(t, later.PendingYield, first.PendingYield)
	})

	t.Run("accrual stops at the vault end date", func(t *testing.T) {
		newTestDB(t)
		vault := seedVault(t, nil)
		inv := seedActiveInvestment(t, 7, vault, 0, 0)

		require.NoError(t, dbconfig.DB.Transaction(func(tx *gorm.DB) error {
			return AccrueInvestment(tx, inv.ID, inv.EndAt.Add(24*time.Hour), 1)
		}))
		var atEnd models.Investment
		require.NoError(t, dbconfig.DB.First(&atEnd, inv.ID).Error)

		require.NoError(t, dbconfig.DB.Transaction(func(tx *gorm.DB) error {
			return AccrueInvestment(tx, inv.ID, inv.EndAt.Add(48*time.Hour), 1)
		}))
		var past models.Investment
		require.NoError(t, dbconfig.DB.First(&past, inv.ID).Error)

		assert.InDelta(t, atEnd.PendingYield, past.PendingYield, 1e-9)
	})

	t.Run("emission scales inversely with difficulty", func(t *testing.T) {
		newTestDB(t)
		vault := seedVault(t, func(v *models.Vault) { v.BaseEmissionRate = 12 })
		lowDiff := seedActiveInvestment(t, 7, vault, 0, 0)
		highDiff := seedActiveInvestment(t, 8, vault, 0, 0)
		asOf := time.Now()

		require.NoError(t, dbconfig.DB.Transaction(func(tx *gorm.DB) error {
			return AccrueInvestment(tx, lowDiff.ID, asOf, 1)
		}))
		require.NoError(t, dbconfig.DB.Transaction(func(tx *gorm.DB) error {
			return AccrueInvestment(tx, highDiff.ID, asOf, 4)
		}))

		var a, b models.Investment
		require.NoError(t, dbconfig.DB.First(&a, lowDiff.ID).Error)
		require.NoError(t, dbconfig.DB.First(&b, highDiff.ID).Error)
		assert.InDelta(t, a.PendingEmission/4, b.PendingEmission, a.PendingEmission*0.01)
	})
}

func TestCompleteDue(t *testing.T) {
	newTestDB(t)
	vault := seedVault(t, nil)
	inv := seedActiveInvestment(t, 7, vault, 0, 0)
	require.NoError(t, dbconfig.DB.Model(&models.Investment{}).
		Where("id = ?", inv.ID).Update("end_at", time.Now().Add(-time.Hour)).Error)
	running := seedActiveInvestment(t, 8, vault, 0, 0)

	n, err := CompleteDue(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var done models.Investment
	require.NoError(t, dbconfig.DB.First(&done, inv.ID).Error)
	assert.Equal(t, models.InvestmentStatusCompleted, done.Status)
	assert.Greater(t, done.PendingYield, 0.0)

	var still models.Investment
	require.NoError(t, dbconfig.DB.First(&still, running.ID).Error)
	assert.Equal(t, models.InvestmentStatusActive, still.Status)
}

func TestRefreshDifficulty(t *testing.T) {
	newTestDB(t)
	vault := seedVault(t, func(v *models.Vault) { v.MaxContribution = 5_000_000 })

	// Below the base principal the difficulty floors at 1.
	seedActiveInvestment(t, 7, vault, 0, 0)
	diff, err := RefreshDifficulty()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, diff, 1e-9)

	// Push aggregate principal past the base and difficulty scales linearly.
	big := seedActiveInvestment(t, 8, vault, 0, 0)
	require.NoError(t, dbconfig.DB.Model(&models.Investment{}).
		Where("id = ?", big.ID).Update("principal", 2_999_000).Error)
	diff, err = RefreshDifficulty()
	require.NoError(t, err)
	assert.InDelta(t, 3.0, diff, 1e-9)
	assert.InDelta(t, 3.0, CurrentDifficulty(), 1e-9)
}
