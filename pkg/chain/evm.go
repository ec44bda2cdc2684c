package chain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// erc20TransferTopic is keccak256("Transfer(address,address,uint256)").
const erc20TransferTopic = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"

type evmTransaction struct {
	Hash        string `json:"hash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	BlockNumber string `json:"blockNumber"`
}

type evmLog struct {
	Address string   `json:"address"`
	Topics  []string `json:"topics"`
	Data    string   `json:"data"`
}

type evmReceipt struct {
	Status      string   `json:"status"`
	BlockNumber string   `json:"blockNumber"`
	Logs        []evmLog `json:"logs"`
}

type evmBlock struct {
	Timestamp string `json:"timestamp"`
}

// EVMVerifier confirms transfers on an EVM chain via its JSON-RPC endpoint.
// Outbound transfers go through eth_sendTransaction against a node holding
// the single custodial account, so no key material lives in this process.
type EVMVerifier struct {
	chain          string
	rpc            *RPCClient
	signer         string
	realTransfers  bool
	nativeDecimals uint8
}

func NewEVMVerifier(chainName, endpoint, signer string, realTransfers bool) *EVMVerifier {
	return &EVMVerifier{
		chain:          chainName,
		rpc:            NewRPCClient(endpoint, 10),
		signer:         signer,
		realTransfers:  realTransfers,
		nativeDecimals: 18,
	}
}

func (v *EVMVerifier) Chain() string {
	return v.chain
}

func (v *EVMVerifier) IsValidAddress(address string) bool {
	return IsHexAddress(address)
}

func (v *EVMVerifier) VerifyInboundTransfer(ctx context.Context, exp InboundExpectation) (*InboundResult, error) {
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
	if receipt.BlockNumber == "" {
		return nil, verificationFailure(ErrNotFinalized, "mined", "pending")
	}
	if receipt.Status != "0x1" {
		return nil, verificationFailure(ErrNotFinalized, "0x1", receipt.Status)
	}

	blockTime, err := v.blockTime(ctx, tx.BlockNumber)
	if err != nil {
		return nil, err
	}
	// The freshness window is checked at response time, so a confirmation
	// that arrives after the window closed is still rejected.
	if age := time.Since(blockTime); age > exp.MaxAge {
		return nil, verificationFailure(ErrStale, exp.MaxAge.String(), age.Truncate(time.Second).String())
	}

	var from, to string
	var amount float64
	if exp.Asset.Native() {
		from = normalizeHexAddress(tx.From)
		to = normalizeHexAddress(tx.To)
		amount, err = parseHexAmount(tx.Value, v.nativeDecimals)
		if err != nil {
			return nil, fmt.Errorf("decode value: %w", err)
		}
	} else {
		from, to, amount, err = v.decodeTokenTransfer(receipt, exp.Asset)
		if err != nil {
			return nil, err
		}
	}

	if from != normalizeHexAddress(exp.From) {
		return nil, verificationFailure(ErrPartyMismatch, normalizeHexAddress(exp.From), from)
	}
	if to != normalizeHexAddress(exp.To) {
		return nil, verificationFailure(ErrPartyMismatch, normalizeHexAddress(exp.To), to)
	}
	if !AmountWithinTolerance(exp.Amount, amount, exp.Asset.Stable) {
		return nil, verificationFailure(ErrAmountMismatch, fmt.Sprintf("%f", exp.Amount), fmt.Sprintf("%f", amount))
	}

	return &InboundResult{Confirmed: true, ActualAmount: amount, BlockTime: blockTime}, nil
}

// decodeTokenTransfer finds the ERC-20 Transfer event emitted by the asset's
// contract and decodes its zero-padded address topics.
func (v *EVMVerifier) decodeTokenTransfer(receipt evmReceipt, asset Asset) (from, to string, amount float64, err error) {
	contract := normalizeHexAddress(asset.Contract)
	var observed []string
	for _, lg := range receipt.Logs {
		if len(lg.Topics) < 3 || !strings.EqualFold(lg.Topics[0], erc20TransferTopic) {
			continue
		}
		if normalizeHexAddress(lg.Address) != contract {
			observed = append(observed, normalizeHexAddress(lg.Address))
			continue
		}
		if from, err = topicToAddressHex(lg.Topics[1]); err != nil {
			return "", "", 0, err
		}
		if to, err = topicToAddressHex(lg.Topics[2]); err != nil {
			return "", "", 0, err
		}
		if amount, err = parseHexAmount(lg.Data, asset.Decimals); err != nil {
			return "", "", 0, err
		}
		return from, to, amount, nil
	}
	return "", "", 0, verificationFailure(ErrAssetMismatch, contract, strings.Join(observed, ","))
}

func (v *EVMVerifier) blockTime(ctx context.Context, blockNumber string) (time.Time, error) {
	var block evmBlock
	if err := v.rpc.Call(ctx, "eth_getBlockByNumber", []interface{}{blockNumber, false}, &block); err != nil {
		return time.Time{}, fmt.Errorf("fetch block: %w", err)
	}
	ts, err := parseHexAmount(block.Timestamp, 0)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode block timestamp: %w", err)
	}
	return time.Unix(int64(ts), 0), nil
}

func (v *EVMVerifier) SendOutboundTransfer(ctx context.Context, to string, asset Asset, amount float64) (*SendResult, error) {
	if !v.realTransfers {
		return &SendResult{ProofID: syntheticProof(), Synthetic: true}, nil
	}
	if v.signer == "" {
		return nil, ErrSignerNotConfigured
	}

	var balanceHex string
	if err := v.rpc.Call(ctx, "eth_getBalance", []interface{}{v.signer, "latest"}, &balanceHex); err != nil {
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
		return nil, fmt.Errorf("%w: no native balance for gas", ErrInsufficientFunds)
	}

	params := map[string]string{"from": v.signer}
	if asset.Native() {
		params["to"] = to
		params["value"] = hexQuantity(floatToRaw(amount, v.nativeDecimals))
	} else {
		params["to"] = asset.Contract
		params["data"] = encodeERC20Transfer(to, amount, asset.Decimals)
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

// encodeERC20Transfer builds calldata for transfer(address,uint256).
func encodeERC20Transfer(to string, amount float64, decimals uint8) string {
	raw := floatToRaw(amount, decimals)
	amountHex := raw.Text(16)
	return "0xa9059cbb" +
		strings.Repeat("0", 24) + normalizeHexAddress(to) +
		strings.Repeat("0", 64-len(amountHex)) + amountHex
}
