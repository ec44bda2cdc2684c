package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
)

const lamportsPerSol = 1_000_000_000

// SolanaVerifier confirms transfers by balance delta: the chain has no
// EVM-style logs, so native transfers are read off pre/post lamport balances
// and token transfers off pre/post token balances keyed by mint and owner.
// Outbound transfers are signed locally from the encrypted keystore.
type SolanaVerifier struct {
	chain         string
	client        *rpc.Client
	keystore      *KeyStore
	signer        string // base58 custody address
	password      string
	realTransfers bool
}

func NewSolanaVerifier(chainName, endpoint string, keystore *KeyStore, signer, password string, realTransfers bool) *SolanaVerifier {
	return &SolanaVerifier{
		chain:         chainName,
		client:        rpc.New(endpoint),
		keystore:      keystore,
		signer:        signer,
		password:      password,
		realTransfers: realTransfers,
	}
}

func (v *SolanaVerifier) Chain() string {
	return v.chain
}

func (v *SolanaVerifier) IsValidAddress(address string) bool {
	_, err := solana.PublicKeyFromBase58(address)
	return err == nil
}

func (v *SolanaVerifier) VerifyInboundTransfer(ctx context.Context, exp InboundExpectation) (*InboundResult, error) {
	sig, err := solana.SignatureFromBase58(exp.Proof)
	if err != nil {
		return nil, verificationFailure(ErrNotFound, exp.Proof, "unparseable signature")
	}

	maxVersion := uint64(0)
	out, err := v.client.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Commitment:                     rpc.CommitmentFinalized,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, verificationFailure(ErrNotFound, exp.Proof, "")
		}
		return nil, fmt.Errorf("fetch transaction: %w", err)
	}
	if out == nil || out.Meta == nil {
		return nil, verificationFailure(ErrNotFound, exp.Proof, "")
	}
	if out.Meta.Err != nil {
		return nil, verificationFailure(ErrNotFinalized, "success", fmt.Sprintf("%v", out.Meta.Err))
	}
	if out.BlockTime == nil {
		return nil, verificationFailure(ErrNotFinalized, "block time", "missing")
	}
	blockTime := out.BlockTime.Time()
	if age := time.Since(blockTime); age > exp.MaxAge {
		return nil, verificationFailure(ErrStale, exp.MaxAge.String(), age.Truncate(time.Second).String())
	}

	parsed, err := out.Transaction.GetTransaction()
	if err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}

	var amount float64
	if exp.Asset.Native() {
		amount, err = matchNativeTransfer(out.Meta, parsed.Message.AccountKeys, exp)
	} else {
		amount, err = matchTokenTransfer(out.Meta, exp)
	}
	if err != nil {
		return nil, err
	}

	if !AmountWithinTolerance(exp.Amount, amount, exp.Asset.Stable) {
		return nil, verificationFailure(ErrAmountMismatch, fmt.Sprintf("%f", exp.Amount), fmt.Sprintf("%f", amount))
	}
	return &InboundResult{Confirmed: true, ActualAmount: amount, BlockTime: blockTime}, nil
}

// matchNativeTransfer reads the lamport delta of the recipient account and
// confirms the fee payer is the expected sender.
func matchNativeTransfer(meta *rpc.TransactionMeta, accountKeys []solana.PublicKey, exp InboundExpectation) (float64, error) {
	if len(accountKeys) == 0 {
		return 0, verificationFailure(ErrPartyMismatch, exp.From, "no accounts")
	}
	// base58 is case-sensitive; addresses must match byte for byte.
	payer := accountKeys[0].String()
	if payer != exp.From {
		return 0, verificationFailure(ErrPartyMismatch, exp.From, payer)
	}

	toIdx := -1
	for i, key := range accountKeys {
		if key.String() == exp.To {
			toIdx = i
			break
		}
	}
	if toIdx < 0 || toIdx >= len(meta.PreBalances) || toIdx >= len(meta.PostBalances) {
		return 0, verificationFailure(ErrPartyMismatch, exp.To, "recipient not in transaction")
	}

	delta := int64(meta.PostBalances[toIdx]) - int64(meta.PreBalances[toIdx])
	if delta <= 0 {
		return 0, verificationFailure(ErrAmountMismatch, fmt.Sprintf("%f", exp.Amount), "no balance increase")
	}
	return float64(delta) / lamportsPerSol, nil
}

// matchTokenTransfer computes the recipient's balance delta for the expected
// mint and confirms the sender's matching decrease.
func matchTokenTransfer(meta *rpc.TransactionMeta, exp InboundExpectation) (float64, error) {
	mintSeen := false
	toDelta := big.NewInt(0)
	fromDelta := big.NewInt(0)
	var decimals uint8 = exp.Asset.Decimals

	apply := func(balances []rpc.TokenBalance, sign int64) {
		for _, tb := range balances {
			if tb.Mint.String() != exp.Asset.Contract || tb.Owner == nil || tb.UiTokenAmount == nil {
				continue
			}
			mintSeen = true
			raw, ok := new(big.Int).SetString(tb.UiTokenAmount.Amount, 10)
			if !ok {
				continue
			}
			raw.Mul(raw, big.NewInt(sign))
			decimals = tb.UiTokenAmount.Decimals
			switch tb.Owner.String() {
			case exp.To:
				toDelta.Add(toDelta, raw)
			case exp.From:
				fromDelta.Add(fromDelta, raw)
			}
		}
	}
	apply(meta.PreTokenBalances, -1)
	apply(meta.PostTokenBalances, 1)

	if !mintSeen {
		return 0, verificationFailure(ErrAssetMismatch, exp.Asset.Contract, "mint not touched")
	}
	if fromDelta.Sign() >= 0 {
		return 0, verificationFailure(ErrPartyMismatch, exp.From, "sender balance did not decrease")
	}
	if toDelta.Sign() <= 0 {
		return 0, verificationFailure(ErrAmountMismatch, fmt.Sprintf("%f", exp.Amount), "no balance increase")
	}
	return rawToFloat(toDelta, decimals), nil
}

func (v *SolanaVerifier) SendOutboundTransfer(ctx context.Context, to string, asset Asset, amount float64) (*SendResult, error) {
	if !v.realTransfers {
		return &SendResult{ProofID: syntheticProof(), Synthetic: true}, nil
	}
	if v.signer == "" || v.keystore == nil {
		return nil, ErrSignerNotConfigured
	}

	account, err := v.keystore.Load(v.signer, v.password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignerNotConfigured, err)
	}
	signerKey := solana.PrivateKey(account.PrivateKey)
	signerPub := signerKey.PublicKey()

	toPub, err := solana.PublicKeyFromBase58(to)
	if err != nil {
		return nil, fmt.Errorf("destination address: %w", ErrInvalidAddress)
	}

	balance, err := v.client.GetBalance(ctx, signerPub, rpc.CommitmentFinalized)
	if err != nil {
		return nil, fmt.Errorf("fetch signer balance: %w", err)
	}

	var instructions []solana.Instruction
	if asset.Native() {
		lamports := floatToRaw(amount, 9).Uint64()
		if balance.Value < lamports {
			return nil, fmt.Errorf("%w: have %d lamports, need %d", ErrInsufficientFunds, balance.Value, lamports)
		}
		instructions = append(instructions,
			system.NewTransferInstruction(lamports, signerPub, toPub).Build())
	} else {
		if balance.Value == 0 {
			return nil, fmt.Errorf("%w: no lamports for fees", ErrInsufficientFunds)
		}
		mint, err := solana.PublicKeyFromBase58(asset.Contract)
		if err != nil {
			return nil, fmt.Errorf("asset mint: %w", ErrInvalidAddress)
		}
		sourceATA, _, err := solana.FindAssociatedTokenAddress(signerPub, mint)
		if err != nil {
			return nil, fmt.Errorf("derive source token account: %w", err)
		}
		destATA, _, err := solana.FindAssociatedTokenAddress(toPub, mint)
		if err != nil {
			return nil, fmt.Errorf("derive destination token account: %w", err)
		}
		raw := floatToRaw(amount, asset.Decimals).Uint64()
		instructions = append(instructions,
			token.NewTransferInstruction(raw, sourceATA, destATA, signerPub, nil).Build())
	}

	bh, err := v.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBroadcastFailed, err)
	}
	tx, err := solana.NewTransaction(instructions, bh.Value.Blockhash, solana.TransactionPayer(signerPub))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBroadcastFailed, err)
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(signerPub) {
			return &signerKey
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBroadcastFailed, err)
	}

	sig, err := v.client.SendTransaction(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBroadcastFailed, err)
	}
	return &SendResult{ProofID: sig.String()}, nil
}
