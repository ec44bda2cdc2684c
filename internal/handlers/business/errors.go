package business

import "errors"

var (
	ErrVaultClosed        = errors.New("vault is closed for new contributions")
	ErrVaultFull          = errors.New("contribution exceeds remaining vault capacity")
	ErrContributionBounds = errors.New("contribution outside vault min/max bounds")
	ErrInvalidTransition  = errors.New("invalid investment status transition")
	ErrDuplicateClaim     = errors.New("a pending claim of this type already exists")
	ErrNothingToClaim     = errors.New("no pending balance to claim")
	ErrNoDestination      = errors.New("no destination wallet on file")
	ErrNotSellable        = errors.New("investment is not in a sellable state")
	ErrClaimNotPending    = errors.New("claim is not pending")
	ErrClaimNotApproved   = errors.New("claim is not approved")
	ErrTreasuryShortfall  = errors.New("withdrawal exceeds treasury balance")
	ErrUnsupportedAsset   = errors.New("unsupported asset for chain")
)
