package chain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// TronVerifier confirms transfers on a tron-style chain. Addresses arrive in
// base58check form and must be reduced to raw hex before they can be held
// against zero-padded 32-byte event topics; the node's EVM-compatible
// JSON-RPC endpoint serves receipts and outbound sends.
type TronVerifier struct {
	chain          string
	rpc            *RPCClient
	signer         string // base58check custodial address
	realTransfers  bool
	nativeDecimals uint8
}

func NewTronVerifier(chainName, endpoint, signer string, realTransfers bool) *TronVerifier {
	return &TronVerifier{
		chain:          chainName,
		rpc:            NewRPCClient(endpoint, 10),
		signer:         signer,
		realTransfers:  realTransfers,
		nativeDecimals: 6,
	}
}

func (v *TronVerifier) Chain() string {
	return v.chain
}

func (v *TronVerifier) IsValidAddress(address string) bool {
	_, err := DecodeTronAddress(address)
	return err == nil
}

// normalizeParty accepts either base58check or raw hex and reduces both to
// the lowercase 40-char account form used for comparison.
func (v *TronVerifier) normalizeParty(address string) (string, error) {
	if strings.HasPrefix(address, "T") {
		h, err := TronAddressToHex(address)
		if err != nil {
			return "", err
		}
		return normalizeHexAddress(h), nil
	}
	return normalizeHexAddress(address), nil
}

func (v *TronVerifier) VerifyInboundTransfer(ctx context.Context, exp InboundExpectation) (*InboundResult, error) {
	expFrom, err := v.normalizeParty(exp.From)
	if err != nil {
		return nil, err
	}
	expTo, err := v.normalizeParty(exp.To)
	if err != nil {
		return nil, err
	}

	var tx evmTransaction
	if err := v.rpc.Call(ctx, "eth_getTransactionByHash", []interface{}{exp.Proof}, &tx); err != nil {
		return nil, fmt.Errorf("fetch transaction: %w", err)
	}
	if tx.Hash == "" {
		return nil, verificationFailure(ErrNotFound, exp.Proof, "")
	}
	if tx.BlockNumber == "" {
		return nil, verificationFailure(ErrNotFinalized, "mined", "pending")
	}

	var receipt evmReceipt
	if err := v.rpc.Call(ctx, "eth_getTransactionReceipt", []interface{}{exp.Proof}, &receipt); err != nil {
		return nil, fmt.Errorf("fetch receipt: %w", err)
	}
	if receipt.BlockNumber == "" || receipt.Status != "0x1" {
		return nil, verificationFailure(ErrNotFinalized, "0x1", receipt.Status)
	}

	var block evmBlock
	if err := v.rpc.Call(ctx, "eth_getBlockByNumber", []interface{}{tx.BlockNumber, false}, &block); err != nil {
		return nil, fmt.Errorf("fetch block: %w", err)
	}
	ts, err := parseHexAmount(block.Timestamp, 0)
	if err != nil {
		return nil, fmt.Errorf("decode block timestamp: %w", err)
	}
	blockTime := time.Unix(int64(ts), 0)
	if age := time.Since(blockTime); age > exp.MaxAge {
		return nil, verificationFailure(ErrStale, exp.MaxAge.String(), age.Truncate(time.Second).String())
	}

	var from, to string
	var amount float64
	if exp.Asset.Native() {
		from = normalizeHexAddress(tx.From)
		to = normalizeHexAddress(tx.To)
		if amount, err = parseHexAmount(tx.Value, v.nativeDecimals); err != nil {
			return nil, fmt.Errorf("decode value: %w", err)
		}
	} else {
		contract, cerr := v.normalizeParty(exp.Asset.Contract)
		if cerr != nil {
			return nil, cerr
		}
		var observed []string
		found := false
		for _, lg := range receipt.Logs {
			if len(lg.Topics) < 3 || !strings.EqualFold(lg.Topics[0], erc20TransferTopic) {
				continue
			}
			if normalizeHexAddress(lg.Address) != contract {
				observed = append(observed, normalizeHexAddress(lg.Address))
				continue
			}
			if from, err = topicToAddressHex(lg.Topics[1]); err != nil {
				return nil, err
			}
			if to, err = topicToAddressHex(lg.Topics[2]); err != nil {
				return nil, err
			}
			if amount, err = parseHexAmount(lg.Data, exp.Asset.Decimals); err != nil {
				return nil, err
			}
			found = true
			break
		}
		if !found {
			return nil, verificationFailure(ErrAssetMismatch, contract, strings.Join(observed, ","))
		}
	}

	if from != expFrom {
		return nil, verificationFailure(ErrPartyMismatch, expFrom, from)
	}
	if to != expTo {
		return nil, verificationFailure(ErrPartyMismatch, expTo, to)
	}
	if !AmountWithinTolerance(exp.Amount, amount, exp.Asset.Stable) {
		return nil, verificationFailure(ErrAmountMismatch, fmt.Sprintf("%f", exp.Amount), fmt.Sprintf("%f", amount))
	}

	return &InboundResult{Confirmed: true, ActualAmount: amount, BlockTime: blockTime}, nil
}

func (v *TronVerifier) SendOutboundTransfer(ctx context.Context, to string, asset Asset, amount float64) (*SendResult, error) {
	if !v.realTransfers {
		return &SendResult{ProofID: syntheticProof(), Synthetic: true}, nil
	}
	if v.signer == "" {
		return nil, ErrSignerNotConfigured
	}

	signerHex, err := TronAddressToHex(v.signer)
	if err != nil {
		return nil, fmt.Errorf("signer address: %w", err)
	}
	toHex, err := v.normalizeParty(to)
	if err != nil {
		return nil, fmt.Errorf("destination address: %w", err)
	}

	var balanceHex string
	if err := v.rpc.Call(ctx, "eth_getBalance", []interface{}{"0x" + signerHex, "latest"}, &balanceHex); err != nil {
		return nil, fmt.Errorf("fetch signer balance: %w", err)
	}
	balance, err := parseHexAmount(balanceHex, v.nativeDecimals)
	if err != nil {
		return nil, fmt.Errorf("decode signer balance: %w", err)
	}
	if asset.Native() && balance < amount {
		return nil, fmt.Errorf("%w: have %f, need %f", ErrInsufficientFunds, balance, amount)
	}
	if !asset.Native() && balance <= 0 {
		return nil, fmt.Errorf("%w: no native balance for energy", ErrInsufficientFunds)
	}

	params := map[string]string{"from": "0x" + signerHex}
	if asset.Native() {
		params["to"] = "0x" + toHex
		params["value"] = hexQuantity(floatToRaw(amount, v.nativeDecimals))
	} else {
		contract, cerr := v.normalizeParty(asset.Contract)
		if cerr != nil {
			return nil, cerr
		}
		params["to"] = "0x" + contract
		params["data"] = encodeERC20Transfer("0x"+toHex, amount, asset.Decimals)
	}

	var hash string
	if err := v.rpc.Call(ctx, "eth_sendTransaction", []interface{}{params}, &hash); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBroadcastFailed, err)
	}
	if hash == "" {
		return nil, ErrBroadcastFailed
	}
	return &SendResult{ProofID: hash}, nil
}
