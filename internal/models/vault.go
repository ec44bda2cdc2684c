package models

import "time"

// Vault tiers determine the boost-rate ceiling applied on top of the base APY.
const (
	VaultTierBronze = "bronze"
	VaultTierSilver = "silver"
	VaultTierGold   = "gold"
)

// Vault is one capital pool instance. A vault starts active; once
// current_filled reaches total_capacity it goes inactive and flips to mining
// (full for new entries, still emitting to existing holders) and a
// zero-filled successor with the same parameters is created in the same
// transaction.
type Vault struct {
	ID               uint      `gorm:"primarykey" json:"id"`
	Name             string    `gorm:"size:64;not null" json:"name"`
	Tier             string    `gorm:"size:20;not null;default:'bronze'" json:"tier"`
	Chain            string    `gorm:"size:20;not null" json:"chain"`
	Asset            string    `gorm:"size:20;not null" json:"asset"`
	CollateralAsset  string    `gorm:"size:20" json:"collateral_asset"`
	DurationDays     int       `gorm:"not null" json:"duration_days"`
	BaseRate         float64   `gorm:"not null" json:"base_rate"` // percent APY
	MaxRate          float64   `gorm:"not null" json:"max_rate"`
	BaseEmissionRate float64   `gorm:"default:0" json:"base_emission_rate"`
	MaxEmissionRate  float64   `gorm:"default:0" json:"max_emission_rate"`
	MinContribution  float64   `gorm:"not null" json:"min_contribution"`
	MaxContribution  float64   `gorm:"not null" json:"max_contribution"`
	TotalCapacity    float64   `gorm:"not null" json:"total_capacity"`
	CurrentFilled    float64   `gorm:"default:0" json:"current_filled"`
	CollateralRatio  float64   `gorm:"default:0" json:"collateral_ratio"`
	IsActive         bool      `gorm:"default:true" json:"is_active"`
	IsMining         bool      `gorm:"default:false" json:"is_mining"`
	Generation       int       `gorm:"default:1" json:"generation"`
	LineageID        uint      `gorm:"index;default:0" json:"lineage_id"` // first vault of the rotation chain
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Vault) TableName() string {
	return "vaults"
}

// Successor builds the replacement vault created at rotation: identical
// parameters, zero fill, next generation.
func (v *Vault) Successor() *Vault {
	lineage := v.LineageID
	if lineage == 0 {
		lineage = v.ID
	}
	return &Vault{
		Name:             v.Name,
		Tier:             v.Tier,
		Chain:            v.Chain,
		Asset:            v.Asset,
		CollateralAsset:  v.CollateralAsset,
		DurationDays:     v.DurationDays,
		BaseRate:         v.BaseRate,
		MaxRate:          v.MaxRate,
		BaseEmissionRate: v.BaseEmissionRate,
		MaxEmissionRate:  v.MaxEmissionRate,
		MinContribution:  v.MinContribution,
		MaxContribution:  v.MaxContribution,
		TotalCapacity:    v.TotalCapacity,
		CurrentFilled:    0,
		CollateralRatio:  v.CollateralRatio,
		IsActive:         true,
		IsMining:         false,
		Generation:       v.Generation + 1,
		LineageID:        lineage,
	}
}
