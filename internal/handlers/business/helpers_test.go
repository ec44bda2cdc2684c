package business

import (
	"context"
	"testing"
	"time"

	"vaultback/internal/models"
	"vaultback/pkg/chain"
	dbconfig "vaultback/pkg/config"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB swaps config.DB for an isolated in-memory database. A single
// connection keeps the database alive and serializes transactions.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Vault{},
		&models.Investment{},
		&models.Boost{},
		&models.ClaimRequest{},
		&models.TaxRecord{},
		&models.TreasuryBalance{},
		&models.MarketplaceSale{},
		&models.VerificationJob{},
		&models.UserWallet{},
		&models.EmissionState{},
		&models.SystemLog{},
	))

	prev := dbconfig.DB
	dbconfig.DB = db
	t.Cleanup(func() { dbconfig.DB = prev })
	return db
}

func seedVault(t *testing.T, mutate func(*models.Vault)) *models.Vault {
	t.Helper()
	vault := &models.Vault{
		Name:            "usdt-90d",
		Tier:            models.VaultTierBronze,
		Chain:           "ethereum",
		Asset:           "USDT",
		CollateralAsset: "USDT",
		DurationDays:    90,
		BaseRate:        10,
		MaxRate:         14,
		MinContribution: 100,
		MaxContribution: 5000,
		TotalCapacity:   10000,
		IsActive:        true,
		Generation:      1,
	}
	if mutate != nil {
		mutate(vault)
	}
	// Create skips zero-value fields carrying gorm default tags and writes the
	// DB defaults back into the struct, so a seed with IsActive=false would end
	// up active. Snapshot the flags and force the columns afterwards.
	isActive, isMining := vault.IsActive, vault.IsMining
	require.NoError(t, dbconfig.DB.Create(vault).Error)
	require.NoError(t, dbconfig.DB.Model(vault).
		Updates(map[string]interface{}{"is_active": isActive, "is_mining": isMining}).Error)
	vault.IsActive, vault.IsMining = isActive, isMining
	return vault
}

func seedWallet(t *testing.T, userID uint, chainName string) *models.UserWallet {
	t.Helper()
	wallet := &models.UserWallet{
		UserID:  userID,
		Chain:   chainName,
		Address: "0x9999999999999999999999999999999999999999",
	}
	require.NoError(t, dbconfig.DB.Create(wallet).Error)
	return wallet
}

// seedActiveInvestment plants an ACTIVE investment with accrued pending
// balances, bypassing the verification pipeline.
func seedActiveInvestment(t *testing.T, userID uint, vault *models.Vault, pendingYield, pendingEmission float64) *models.Investment {
	t.Helper()
	start := time.Now().Add(-30 * 24 * time.Hour)
	end := start.Add(time.Duration(vault.DurationDays) * 24 * time.Hour)
	inv := &models.Investment{
		OrderID:         "test-" + time.Now().Format("150405.000000000"),
		UserID:          userID,
		VaultID:         vault.ID,
		Chain:           vault.Chain,
		Asset:           vault.Asset,
		Principal:       1000,
		YieldRate:       vault.BaseRate,
		EmissionRate:    vault.BaseEmissionRate,
		Status:          models.InvestmentStatusActive,
		StartAt:         &start,
		EndAt:           &end,
		PendingYield:    pendingYield,
		PendingEmission: pendingEmission,
	}
	require.NoError(t, dbconfig.DB.Create(inv).Error)
	return inv
}

// dryVerifier satisfies chain.Verifier for outbound-only test paths.
type dryVerifier struct {
	chain string
}

func (d *dryVerifier) Chain() string { return d.chain }

func (d *dryVerifier) VerifyInboundTransfer(ctx context.Context, exp chain.InboundExpectation) (*chain.InboundResult, error) {
	return &chain.InboundResult{Confirmed: true, ActualAmount: exp.Amount, BlockTime: time.Now()}, nil
}

func (d *dryVerifier) SendOutboundTransfer(ctx context.Context, to string, asset chain.Asset, amount float64) (*chain.SendResult, error) {
	return &chain.SendResult{ProofID: "dry-test", Synthetic: true}, nil
}

func (d *dryVerifier) IsValidAddress(address string) bool { return address != "" }

func newTestDispatcher(t *testing.T, chains ...string) *chain.Dispatcher {
	t.Helper()
	registry := chain.NewRegistry()
	for _, c := range chains {
		registry.Register(&dryVerifier{chain: c})
	}
	d := chain.NewDispatcher(registry)
	t.Cleanup(d.Close)
	return d
}
