package models

import "time"

// MarketplaceSale records an atomic investment ownership transfer. The sale
// tax shares the flat rate with emission claims but is booked under its own
// source type.
type MarketplaceSale struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	InvestmentID uint      `gorm:"not null;index" json:"investment_id"`
	SellerID     uint      `gorm:"not null" json:"seller_id"`
	BuyerID      uint      `gorm:"not null" json:"buyer_id"`
	Asset        string    `gorm:"size:20;not null" json:"asset"`
	Price        float64   `gorm:"not null" json:"price"`
	TaxAmount    float64   `gorm:"not null" json:"tax_amount"`
	NetProceeds  float64   `gorm:"not null" json:"net_proceeds"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (MarketplaceSale) TableName() string {
	return "marketplace_sales"
}
