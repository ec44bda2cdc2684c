package models

import "time"

// Tax bookkeeping categories. The rate is shared, the categories are not.
const (
	TaxSourceEmissionClaim   = "emission_claim"
	TaxSourceMarketplaceSale = "marketplace_sale"
)

// TaxRecord is append-only. Every row is paired, in the same transaction,
// with an increment to the matching TreasuryBalance.
type TaxRecord struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	SourceType      string    `gorm:"size:32;not null;index" json:"source_type"`
	SourceID        uint      `gorm:"not null" json:"source_id"`
	Asset           string    `gorm:"size:20;not null;index" json:"asset"`
	GrossAmount     float64   `gorm:"not null" json:"gross_amount"`
	TaxAmount       float64   `gorm:"not null" json:"tax_amount"`
	NetAmount       float64   `gorm:"not null" json:"net_amount"`
	OutboundProof   string    `gorm:"size:128" json:"outbound_proof"`
	TreasuryAddress string    `gorm:"size:100" json:"treasury_address"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (TaxRecord) TableName() string {
	return "tax_records"
}

// TreasuryBalance holds the per-asset aggregate. Invariant:
// balance == total_collected - total_withdrawn at all times.
type TreasuryBalance struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	Asset          string    `gorm:"size:20;uniqueIndex;not null" json:"asset"`
	Balance        float64   `gorm:"default:0" json:"balance"`
	TotalCollected float64   `gorm:"default:0" json:"total_collected"`
	TotalWithdrawn float64   `gorm:"default:0" json:"total_withdrawn"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (TreasuryBalance) TableName() string {
	return "treasury_balances"
}
