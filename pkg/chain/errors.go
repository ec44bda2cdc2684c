package chain

import (
	"errors"
	"fmt"
)

// Verification failure reasons. Each maps to a stable code the API layer can
// hand to clients without parsing message text.
var (
	ErrNotFound      = errors.New("transaction not found")
	ErrNotFinalized  = errors.New("transaction not finalized")
	ErrStale         = errors.New("transaction outside freshness window")
	ErrAmountMismatch = errors.New("transfer amount mismatch")
	ErrPartyMismatch  = errors.New("transfer party mismatch")
	ErrAssetMismatch  = errors.New("transfer asset mismatch")
)

// Outbound transfer failures.
var (
	ErrSignerNotConfigured = errors.New("custodial signer not configured")
	ErrInsufficientFunds   = errors.New("custodial signer balance too low")
	ErrBroadcastFailed     = errors.New("transaction broadcast failed")
)

var (
	ErrUnsupportedChain = errors.New("unsupported chain")
	ErrInvalidAddress   = errors.New("invalid address")
)

// VerificationError carries the observed value alongside the failure reason
// so mismatches are diagnosable without refetching the transaction.
type VerificationError struct {
	Reason   error
	Expected string
	Observed string
}

func (e *VerificationError) Error() string {
	if e.Expected == "" && e.Observed == "" {
		return e.Reason.Error()
	}
	return fmt.Sprintf("%s: expected %s, observed %s", e.Reason.Error(), e.Expected, e.Observed)
}

func (e *VerificationError) Unwrap() error {
	return e.Reason
}

func verificationFailure(reason error, expected, observed string) error {
	return &VerificationError{Reason: reason, Expected: expected, Observed: observed}
}
