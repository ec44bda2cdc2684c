package models

import "time"

const (
	BoostTypeYield      = "yield"
	BoostTypeCollateral = "collateral"
)

// Boost is an optional extra deposit raising the investment's yield rate in
// proportion to how much of the allowed maximum was filled. One row per
// investment per type; only the return process mutates it, nothing deletes it.
type Boost struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	InvestmentID   uint      `gorm:"not null;uniqueIndex:idx_boost_investment_type" json:"investment_id"`
	BoostType      string    `gorm:"size:20;not null;uniqueIndex:idx_boost_investment_type" json:"boost_type"`
	Chain          string    `gorm:"size:20;not null" json:"chain"`
	Asset          string    `gorm:"size:20;not null" json:"asset"`
	Amount         float64   `gorm:"not null" json:"amount"`
	ValueUSD       float64   `gorm:"not null" json:"value_usd"`
	FillPercent    float64   `gorm:"default:0" json:"fill_percent"`
	AdditionalRate float64   `gorm:"default:0" json:"additional_rate"`
	Returned       bool      `gorm:"default:false" json:"returned"`
	ReturnProof    string    `gorm:"size:128" json:"return_proof"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Boost) TableName() string {
	return "boosts"
}
