package models

import "time"

// Deposit legs a verification job can cover.
const (
	DepositLegPrincipal  = "principal"
	DepositLegCollateral = "collateral"
	DepositLegBoost      = "boost"

	VerificationStatusPending   = "pending"
	VerificationStatusRunning   = "running"
	VerificationStatusConfirmed = "confirmed"
	VerificationStatusFailed    = "failed"
)

// VerificationJob is the persisted progress record for one proof check.
// The worker updates it on every attempt, so a process restart loses nothing
// and multiple jobs can run at once.
type VerificationJob struct {
	ID              uint       `gorm:"primarykey" json:"id"`
	InvestmentID    uint       `gorm:"not null;index" json:"investment_id"`
	Leg             string     `gorm:"size:20;not null" json:"leg"`
	Chain           string     `gorm:"size:20;not null" json:"chain"`
	Asset           string     `gorm:"size:20;not null" json:"asset"`
	Proof           string     `gorm:"size:128;not null" json:"proof"`
	ExpectedFrom    string     `gorm:"size:100" json:"expected_from"`
	ExpectedTo      string     `gorm:"size:100" json:"expected_to"`
	ExpectedAmount  float64    `gorm:"not null" json:"expected_amount"`
	Status          string     `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Attempts        int        `gorm:"default:0" json:"attempts"`
	LastError       string     `gorm:"size:255" json:"last_error"`
	ConfirmedAmount float64    `gorm:"default:0" json:"confirmed_amount"`
	BlockTime       *time.Time `json:"block_time,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (VerificationJob) TableName() string {
	return "verification_jobs"
}
