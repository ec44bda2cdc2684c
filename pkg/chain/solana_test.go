package chain

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solExpectation(from, to solana.PublicKey, amount float64) InboundExpectation {
	return InboundExpectation{
		Proof:  "sig",
		Asset:  Asset{Symbol: "SOL", Decimals: 9},
		From:   from.String(),
		To:     to.String(),
		Amount: amount,
		MaxAge: time.Hour,
	}
}

func TestMatchNativeTransfer(t *testing.T) {
	sender := solana.NewWallet().PublicKey()
	custody := solana.NewWallet().PublicKey()
	keys := []solana.PublicKey{sender, custody}

	t.Run("reads recipient lamport delta", func(t *testing.T) {
		meta := &rpc.TransactionMeta{
			PreBalances:  []uint64{10 * lamportsPerSol, 1 * lamportsPerSol},
			PostBalances: []uint64{7 * lamportsPerSol, 3*lamportsPerSol + lamportsPerSol/2},
		}
		got, err := matchNativeTransfer(meta, keys, solExpectation(sender, custody, 2.5))
		require.NoError(t, err)
		assert.InDelta(t, 2.5, got, 1e-9)
	})

	t.Run("fee payer must be the expected sender", func(t *testing.T) {
		other := solana.NewWallet().PublicKey()
		meta := &rpc.TransactionMeta{
			PreBalances:  []uint64{lamportsPerSol, lamportsPerSol},
			PostBalances: []uint64{0, 2 * lamportsPerSol},
		}
		_, err := matchNativeTransfer(meta, []solana.PublicKey{other, custody}, solExpectation(sender, custody, 1))
		assert.ErrorIs(t, err, ErrPartyMismatch)
	})

	t.Run("recipient absent from transaction", func(t *testing.T) {
		meta := &rpc.TransactionMeta{
			PreBalances:  []uint64{lamportsPerSol},
			PostBalances: []uint64{lamportsPerSol},
		}
		_, err := matchNativeTransfer(meta, []solana.PublicKey{sender}, solExpectation(sender, custody, 1))
		assert.ErrorIs(t, err, ErrPartyMismatch)
	})

	t.Run("address comparison is case-sensitive", func(t *testing.T) {
		wsol := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
		meta := &rpc.TransactionMeta{
			PreBalances:  []uint64{10 * lamportsPerSol, lamportsPerSol},
			PostBalances: []uint64{9 * lamportsPerSol, 2 * lamportsPerSol},
		}
		exp := solExpectation(wsol, custody, 1)
		exp.From = strings.ToLower(exp.From)
		_, err := matchNativeTransfer(meta, []solana.PublicKey{wsol, custody}, exp)
		assert.ErrorIs(t, err, ErrPartyMismatch)
	})

	t.Run("no balance increase", func(t *testing.T) {
		meta := &rpc.TransactionMeta{
			PreBalances:  []uint64{lamportsPerSol, lamportsPerSol},
			PostBalances: []uint64{lamportsPerSol, lamportsPerSol},
		}
		_, err := matchNativeTransfer(meta, keys, solExpectation(sender, custody, 1))
		assert.ErrorIs(t, err, ErrAmountMismatch)
	})
}

func tokenBalance(mint solana.PublicKey, owner solana.PublicKey, amount string, decimals uint8) rpc.TokenBalance {
	return rpc.TokenBalance{
		Mint:  mint,
		Owner: &owner,
		UiTokenAmount: &rpc.UiTokenAmount{
			Amount:   amount,
			Decimals: decimals,
		},
	}
}

func TestMatchTokenTransfer(t *testing.T) {
	sender := solana.NewWallet().PublicKey()
	custody := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	exp := InboundExpectation{
		Asset:  Asset{Symbol: "USDC", Contract: mint.String(), Decimals: 6, Stable: true},
		From:   sender.String(),
		To:     custody.String(),
		Amount: 250,
	}

	t.Run("recipient delta with matching sender decrease", func(t *testing.T) {
		meta := &rpc.TransactionMeta{
			PreTokenBalances: []rpc.TokenBalance{
				tokenBalance(mint, sender, "500000000", 6),
				tokenBalance(mint, custody, "0", 6),
			},
			PostTokenBalances: []rpc.TokenBalance{
				tokenBalance(mint, sender, "250000000", 6),
				tokenBalance(mint, custody, "250000000", 6),
			},
		}
		got, err := matchTokenTransfer(meta, exp)
		require.NoError(t, err)
		assert.InDelta(t, 250.0, got, 1e-9)
	})

	t.Run("wrong mint is AssetMismatch", func(t *testing.T) {
		otherMint := solana.NewWallet().PublicKey()
		meta := &rpc.TransactionMeta{
			PreTokenBalances:  []rpc.TokenBalance{tokenBalance(otherMint, sender, "500000000", 6)},
			PostTokenBalances: []rpc.TokenBalance{tokenBalance(otherMint, sender, "250000000", 6)},
		}
		_, err := matchTokenTransfer(meta, exp)
		assert.ErrorIs(t, err, ErrAssetMismatch)
	})

	t.Run("sender balance must decrease", func(t *testing.T) {
		third := solana.NewWallet().PublicKey()
		meta := &rpc.TransactionMeta{
			PreTokenBalances: []rpc.TokenBalance{
				tokenBalance(mint, third, "500000000", 6),
				tokenBalance(mint, custody, "0", 6),
			},
			PostTokenBalances: []rpc.TokenBalance{
				tokenBalance(mint, third, "250000000", 6),
				tokenBalance(mint, custody, "250000000", 6),
			},
		}
		_, err := matchTokenTransfer(meta, exp)
		assert.ErrorIs(t, err, ErrPartyMismatch)
	})
}

func TestSolanaSendDryMode(t *testing.T) {
	v := NewSolanaVerifier("solana", "http://unreachable.invalid", nil, "", "", false)
	res, err := v.SendOutboundTransfer(context.Background(), solana.NewWallet().PublicKey().String(), Asset{Symbol: "SOL", Decimals: 9}, 1)
	require.NoError(t, err)
	assert.True(t, res.Synthetic)
}

func TestSolanaIsValidAddress(t *testing.T) {
	v := NewSolanaVerifier("solana", "http://unreachable.invalid", nil, "", "", false)
	assert.True(t, v.IsValidAddress(solana.NewWallet().PublicKey().String()))
	assert.False(t, v.IsValidAddress("0x1111111111111111111111111111111111111111"))
}
