package models

import "time"

// UserWallet is the destination address on file for outbound transfers on a
// given chain. One address per user per chain.
type UserWallet struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_wallet_user_chain" json:"user_id"`
	Chain     string    `gorm:"size:20;not null;uniqueIndex:idx_wallet_user_chain" json:"chain"`
	Address   string    `gorm:"size:100;not null" json:"address"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (UserWallet) TableName() string {
	return "user_wallets"
}
