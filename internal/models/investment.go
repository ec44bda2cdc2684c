package models

import "time"

// Investment lifecycle statuses. COMPLETED and REJECTED are terminal; SOLD
// keeps accruing for the new owner until the vault end date.
const (
	InvestmentStatusPendingPrincipal  = "PENDING_PRINCIPAL"
	InvestmentStatusPendingCollateral = "PENDING_COLLATERAL"
	InvestmentStatusPendingActivation = "PENDING_ACTIVATION"
	InvestmentStatusActive            = "ACTIVE"
	InvestmentStatusCompleted         = "COMPLETED"
	InvestmentStatusSold              = "SOLD"
	InvestmentStatusRejected          = "REJECTED"
)

type Investment struct {
	ID                    uint       `gorm:"primarykey" json:"id"`
	OrderID               string     `gorm:"size:64;uniqueIndex;not null" json:"order_id"`
	UserID                uint       `gorm:"not null;index" json:"user_id"`
	VaultID               uint       `gorm:"not null;index" json:"vault_id"`
	Chain                 string     `gorm:"size:20;not null" json:"chain"`
	Asset                 string     `gorm:"size:20;not null" json:"asset"`
	Principal             float64    `gorm:"not null" json:"principal"`
	RequiredCollateral    float64    `gorm:"default:0" json:"required_collateral"`
	LockedCollateral      float64    `gorm:"default:0" json:"locked_collateral"`
	YieldRate             float64    `gorm:"not null" json:"yield_rate"` // boost-adjusted percent APY, fixed at entry
	EmissionRate          float64    `gorm:"default:0" json:"emission_rate"`
	Status                string     `gorm:"size:24;not null;default:'PENDING_PRINCIPAL';index" json:"status"`
	StartAt               *time.Time `json:"start_at,omitempty"`
	EndAt                 *time.Time `json:"end_at,omitempty"`
	CollateralConfirmedAt *time.Time `json:"collateral_confirmed_at,omitempty"`
	PendingYield          float64    `gorm:"default:0" json:"pending_yield"`
	PendingEmission       float64    `gorm:"default:0" json:"pending_emission"`
	ClaimedYield          float64    `gorm:"default:0" json:"claimed_yield"`
	ClaimedEmission       float64    `gorm:"default:0" json:"claimed_emission"`
	LastYieldClaimAt      *time.Time `json:"last_yield_claim_at,omitempty"`
	LastAccruedAt         *time.Time `json:"last_accrued_at,omitempty"`
	PrincipalProof        string     `gorm:"size:128" json:"principal_proof"`
	CollateralProof       string     `gorm:"size:128" json:"collateral_proof"`
	BoostProof            string     `gorm:"size:128" json:"boost_proof"`
	CreatedAt             time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	Vault                 *Vault     `gorm:"foreignKey:VaultID" json:"vault,omitempty"`
}

func (Investment) TableName() string {
	return "investments"
}

// Terminal reports whether no further lifecycle transitions are possible.
func (i *Investment) Terminal() bool {
	return i.Status == InvestmentStatusCompleted || i.Status == InvestmentStatusRejected
}

// Accruing reports whether the investment earns yield and emission.
func (i *Investment) Accruing() bool {
	return i.Status == InvestmentStatusActive || i.Status == InvestmentStatusSold
}
