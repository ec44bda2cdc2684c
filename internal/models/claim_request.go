package models

import "time"

const (
	ClaimTypeYield    = "yield"
	ClaimTypeEmission = "emission"

	ClaimStatusPending   = "PENDING"
	ClaimStatusApproved  = "APPROVED"
	ClaimStatusRejected  = "REJECTED"
	ClaimStatusCompleted = "COMPLETED"
)

// ClaimRequest is a pending withdrawal intent. At most one PENDING claim of a
// given type may exist per investment; the check lives in the settlement
// logic, not in a database constraint.
type ClaimRequest struct {
	ID             uint       `gorm:"primarykey" json:"id"`
	InvestmentID   uint       `gorm:"not null;index" json:"investment_id"`
	UserID         uint       `gorm:"not null;index" json:"user_id"`
	ClaimType      string     `gorm:"size:20;not null" json:"claim_type"`
	Chain          string     `gorm:"size:20;not null" json:"chain"`
	Asset          string     `gorm:"size:20;not null" json:"asset"`
	GrossAmount    float64    `gorm:"not null" json:"gross_amount"`
	TaxAmount      float64    `gorm:"default:0" json:"tax_amount"`
	NetAmount      float64    `gorm:"default:0" json:"net_amount"`
	Destination    string     `gorm:"size:100;not null" json:"destination"`
	Status         string     `gorm:"size:20;not null;default:'PENDING';index" json:"status"`
	OperatorID     uint       `gorm:"default:0" json:"operator_id"`
	RejectReason   string     `gorm:"size:255" json:"reject_reason"`
	OutboundProof  string     `gorm:"size:128" json:"outbound_proof"`
	SyntheticProof bool       `gorm:"default:false" json:"synthetic_proof"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`
	ProcessedAt    *time.Time `json:"processed_at,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ClaimRequest) TableName() string {
	return "claim_requests"
}
