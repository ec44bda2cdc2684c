package chain

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Asset identifies a transferable asset on one chain. Contract is empty for
// the chain's native asset.
type Asset struct {
	Symbol   string `json:"symbol"`
	Contract string `json:"contract"`
	Decimals uint8  `json:"decimals"`
	Stable   bool   `json:"stable"`
}

// Native reports whether the asset is the chain's native one.
func (a Asset) Native() bool {
	return a.Contract == ""
}

// InboundExpectation describes the transfer a submitted proof must match.
type InboundExpectation struct {
	Proof  string
	Asset  Asset
	From   string
	To     string
	Amount float64
	MaxAge time.Duration
}

// InboundResult is a confirmed inbound transfer.
type InboundResult struct {
	Confirmed    bool
	ActualAmount float64
	BlockTime    time.Time
}

// SendResult is the proof for an outbound transfer. Synthetic marks proofs
// minted in dry mode where nothing was broadcast; callers must not treat
// those as confirmed transfers.
type SendResult struct {
	ProofID   string
	Synthetic bool
}

// Verifier is the per-chain capability: confirm inbound payment proofs,
// issue outbound transfers from the chain's single custodial signer, and
// validate addresses in the chain's format.
type Verifier interface {
	Chain() string
	VerifyInboundTransfer(ctx context.Context, exp InboundExpectation) (*InboundResult, error)
	SendOutboundTransfer(ctx context.Context, to string, asset Asset, amount float64) (*SendResult, error)
	IsValidAddress(address string) bool
}

// Registry resolves verifiers by chain identifier.
type Registry struct {
	mu        sync.RWMutex
	verifiers map[string]Verifier
}

func NewRegistry() *Registry {
	return &Registry{verifiers: make(map[string]Verifier)}
}

func (r *Registry) Register(v Verifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verifiers[v.Chain()] = v
}

func (r *Registry) Get(chain string) (Verifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.verifiers[chain]
	if !ok {
		return nil, ErrUnsupportedChain
	}
	return v, nil
}

func (r *Registry) Chains() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	chains := make([]string, 0, len(r.verifiers))
	for name := range r.verifiers {
		chains = append(chains, name)
	}
	return chains
}

const (
	// StableTolerance absorbs decimal-conversion rounding on stablecoins.
	StableTolerance = 0.01
	// RelativeTolerance is the fraction allowed on non-stable assets.
	RelativeTolerance = 0.01
	// amountEpsilon covers float64 representation error, so a delta of
	// exactly the tolerance (e.g. one cent on a stablecoin) still passes.
	amountEpsilon = 1e-9
)

// AmountWithinTolerance compares a decoded on-chain amount against the
// expected one: fixed 0.01 units for stablecoins, 1% relative otherwise.
func AmountWithinTolerance(expected, actual float64, stable bool) bool {
	diff := math.Abs(expected - actual)
	if stable {
		return diff <= StableTolerance+amountEpsilon
	}
	if expected == 0 {
		return diff == 0
	}
	return diff/math.Abs(expected) <= RelativeTolerance+amountEpsilon
}

// syntheticProof mints a dry-mode proof id. The prefix keeps synthetic
// proofs visually distinct in records and logs.
func syntheticProof() string {
	return "dry-" + uuid.NewString()
}
