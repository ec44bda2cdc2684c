package chain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountWithinTolerance(t *testing.T) {
	t.Run("stablecoin absorbs cent-level rounding", func(t *testing.T) {
		assert.True(t, AmountWithinTolerance(100, 100.01, true))
		assert.True(t, AmountWithinTolerance(100, 99.99, true))
	})

	t.Run("stablecoin rejects a unit discrepancy", func(t *testing.T) {
		assert.False(t, AmountWithinTolerance(100, 99.0, true))
		assert.False(t, AmountWithinTolerance(100, 101.0, true))
	})

	t.Run("non-stable uses one percent relative", func(t *testing.T) {
		assert.True(t, AmountWithinTolerance(1000, 991, false))
		assert.True(t, AmountWithinTolerance(1000, 990, false))
		assert.False(t, AmountWithinTolerance(1000, 989, false))
	})

	t.Run("zero expected requires exact", func(t *testing.T) {
		assert.True(t, AmountWithinTolerance(0, 0, false))
		assert.False(t, AmountWithinTolerance(0, 0.001, false))
	})
}

type stubVerifier struct {
	chain string
}

func (s *stubVerifier) Chain() string { return s.chain }
func (s *stubVerifier) VerifyInboundTransfer(ctx context.Context, exp InboundExpectation) (*InboundResult, error) {
	return &InboundResult{Confirmed: true, ActualAmount: exp.Amount}, nil
}
func (s *stubVerifier) SendOutboundTransfer(ctx context.Context, to string, asset Asset, amount float64) (*SendResult, error) {
	return &SendResult{ProofID: "stub"}, nil
}
func (s *stubVerifier) IsValidAddress(address string) bool { return address != "" }

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubVerifier{chain: "ethereum"})
	reg.Register(&stubVerifier{chain: "tron"})

	v, err := reg.Get("ethereum")
	require.NoError(t, err)
	assert.Equal(t, "ethereum", v.Chain())

	_, err = reg.Get("dogecoin")
	assert.ErrorIs(t, err, ErrUnsupportedChain)

	assert.ElementsMatch(t, []string{"ethereum", "tron"}, reg.Chains())
}

func TestVerificationErrorCarriesObserved(t *testing.T) {
	err := verificationFailure(ErrAmountMismatch, "100", "99")
	assert.ErrorIs(t, err, ErrAmountMismatch)
	assert.Contains(t, err.Error(), "expected 100")
	assert.Contains(t, err.Error(), "observed 99")
}
