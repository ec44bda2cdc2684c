package reward

import (
	"errors"
	"time"
)

const (
	// SecondsPerYear is the accrual year used for pro-rata yield.
	SecondsPerYear = 365 * 24 * 3600

	// MaxBoostPrincipalRatio caps the USD value of a boost at 90% of the
	// invested principal.
	MaxBoostPrincipalRatio = 0.90

	// DefaultTierBoostCap is the additional APY (percentage points) a fully
	// filled boost earns on an unknown tier.
	DefaultTierBoostCap = 4.0
)

// tierBoostCaps holds the per-tier ceiling for boost-added APY, in
// percentage points.
var tierBoostCaps = map[string]float64{
	"bronze": 4.0,
	"silver": 5.0,
	"gold":   6.0,
}

var ErrBoostTooLarge = errors.New("boost value exceeds maximum allowed for principal")

// BoostedRate is the outcome of applying a boost deposit to a base APY.
type BoostedRate struct {
	FinalRate        float64 `json:"final_rate"`
	MaxBoostValueUSD float64 `json:"max_boost_value_usd"`
	FillPercent      float64 `json:"fill_percent"`
	AdditionalRate   float64 `json:"additional_rate"`
}

// TierBoostCap returns the boost APY ceiling for a tier.
func TierBoostCap(tier string) float64 {
	if cap, ok := tierBoostCaps[tier]; ok {
		return cap
	}
	return DefaultTierBoostCap
}

// ComputeBoostedRate fixes the boost-adjusted APY for an investment entering
// a vault. Rates are percent units (10.0 == 10% APY). A boost worth more
// than MaxBoostPrincipalRatio of principal is an error, never a silent clamp.
func ComputeBoostedRate(baseRate float64, tier string, principal, boostValueUSD float64) (*BoostedRate, error) {
	maxBoost := principal * MaxBoostPrincipalRatio
	if boostValueUSD > maxBoost {
		return nil, ErrBoostTooLarge
	}
	if boostValueUSD < 0 {
		boostValueUSD = 0
	}

	fillPercent := 0.0
	if maxBoost > 0 {
		fillPercent = boostValueUSD / maxBoost * 100
	}
	if fillPercent > 100 {
		fillPercent = 100
	}

	additional := fillPercent / 100 * TierBoostCap(tier)
	return &BoostedRate{
		FinalRate:        baseRate + additional,
		MaxBoostValueUSD: maxBoost,
		FillPercent:      fillPercent,
		AdditionalRate:   additional,
	}, nil
}

// PendingYield is the simple pro-rata accrual between the last claim (or
// period start) and asOf. Deterministic for a fixed asOf and monotonically
// non-decreasing in asOf.
func PendingYield(principal, annualRate float64, periodStart, asOf time.Time, lastClaim *time.Time) float64 {
	from := periodStart
	if lastClaim != nil && lastClaim.After(from) {
		from = *lastClaim
	}
	if !asOf.After(from) {
		return 0
	}
	elapsed := asOf.Sub(from).Seconds()
	return principal * (annualRate / 100) * (elapsed / SecondsPerYear)
}

// EmissionReward is the annualized emission for a principal at the current
// global difficulty. Emission scales with principal and emission rate and
// inversely with difficulty. Difficulty below 1 is treated as 1.
func EmissionReward(principal, difficulty, emissionRate float64) float64 {
	if difficulty < 1 {
		difficulty = 1
	}
	return principal * (emissionRate / 100) / difficulty
}

// ProratedEmission spreads EmissionReward over the [from, to) interval using
// the difficulty in force during that interval.
func ProratedEmission(principal, difficulty, emissionRate float64, from, to time.Time) float64 {
	if !to.After(from) {
		return 0
	}
	elapsed := to.Sub(from).Seconds()
	return EmissionReward(principal, difficulty, emissionRate) * (elapsed / SecondsPerYear)
}
