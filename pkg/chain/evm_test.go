package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSender    = "0x1111111111111111111111111111111111111111"
	testCustody   = "0x2222222222222222222222222222222222222222"
	testContract  = "0x3333333333333333333333333333333333333333"
	testTokenHash = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
)

type fakeNode struct {
	blockTime   time.Time
	tokenAmount float64
	decimals    uint8
	status      string
	missing     bool
	pending     bool
}

// newFakeEVMNode serves just enough JSON-RPC for the verifier: a token
// transfer receipt with a Transfer log, the carrying transaction, and the
// block timestamp.
func newFakeEVMNode(t *testing.T, cfg fakeNode) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		result := func(v interface{}) {
			raw, err := json.Marshal(v)
			require.NoError(t, err)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"jsonrpc": "2.0", "id": req.ID, "result": json.RawMessage(raw),
			})
		}

		switch req.Method {
		case "eth_getTransactionByHash":
			if cfg.missing {
				result(nil)
				return
			}
			tx := evmTransaction{Hash: testTokenHash, From: testSender, To: testContract}
			if !cfg.pending {
				tx.BlockNumber = "0x10"
			}
			result(tx)
		case "eth_getTransactionReceipt":
			if cfg.missing || cfg.pending {
				result(nil)
				return
			}
			status := cfg.status
			if status == "" {
				status = "0x1"
			}
			result(evmReceipt{
				Status:      status,
				BlockNumber: "0x10",
				Logs: []evmLog{{
					Address: testContract,
					Topics: []string{
						erc20TransferTopic,
						addressToTopic(testSender[2:]),
						addressToTopic(testCustody[2:]),
					},
					Data: hexQuantity(floatToRaw(cfg.tokenAmount, cfg.decimals)),
				}},
			})
		case "eth_getBlockByNumber":
			result(evmBlock{Timestamp: fmt.Sprintf("0x%x", cfg.blockTime.Unix())})
		case "eth_getBalance":
			result(hexQuantity(floatToRaw(5, 18)))
		case "eth_sendTransaction":
			result("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
		default:
			t.Fatalf("unexpected method %s", req.Method)
		}
	}))
}

func usdtAsset() Asset {
	return Asset{Symbol: "USDT", Contract: testContract, Decimals: 6, Stable: true}
}

func tokenExpectation(amount float64) InboundExpectation {
	return InboundExpectation{
		Proof:  testTokenHash,
		Asset:  usdtAsset(),
		From:   testSender,
		To:     testCustody,
		Amount: amount,
		MaxAge: time.Hour,
	}
}

func TestEVMVerifyInboundTransfer(t *testing.T) {
	t.Run("confirms matching token transfer", func(t *testing.T) {
		node := newFakeEVMNode(t, fakeNode{blockTime: time.Now(), tokenAmount: 100.0, decimals: 6})
		defer node.Close()

		v := NewEVMVerifier("ethereum", node.URL, "", false)
		res, err := v.VerifyInboundTransfer(context.Background(), tokenExpectation(100.0))
		require.NoError(t, err)
		assert.True(t, res.Confirmed)
		assert.InDelta(t, 100.0, res.ActualAmount, 1e-9)
	})

	t.Run("absorbs stablecoin rounding within a cent", func(t *testing.T) {
		node := newFakeEVMNode(t, fakeNode{blockTime: time.Now(), tokenAmount: 100.009999, decimals: 6})
		defer node.Close()

		v := NewEVMVerifier("ethereum", node.URL, "", false)
		_, err := v.VerifyInboundTransfer(context.Background(), tokenExpectation(100.0))
		require.NoError(t, err)
	})

	t.Run("rejects a whole unit discrepancy", func(t *testing.T) {
		node := newFakeEVMNode(t, fakeNode{blockTime: time.Now(), tokenAmount: 99.0, decimals: 6})
		defer node.Close()

		v := NewEVMVerifier("ethereum", node.URL, "", false)
		_, err := v.VerifyInboundTransfer(context.Background(), tokenExpectation(100.0))
		assert.ErrorIs(t, err, ErrAmountMismatch)
	})

	t.Run("rejects stale proof even when everything matches", func(t *testing.T) {
		node := newFakeEVMNode(t, fakeNode{blockTime: time.Now().Add(-2 * time.Hour), tokenAmount: 100.0, decimals: 6})
		defer node.Close()

		v := NewEVMVerifier("ethereum", node.URL, "", false)
		_, err := v.VerifyInboundTransfer(context.Background(), tokenExpectation(100.0))
		assert.ErrorIs(t, err, ErrStale)
	})

	t.Run("unknown hash is NotFound", func(t *testing.T) {
		node := newFakeEVMNode(t, fakeNode{missing: true})
		defer node.Close()

		v := NewEVMVerifier("ethereum", node.URL, "", false)
		_, err := v.VerifyInboundTransfer(context.Background(), tokenExpectation(100.0))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("pending transaction is NotFinalized", func(t *testing.T) {
		node := newFakeEVMNode(t, fakeNode{pending: true})
		defer node.Close()

		v := NewEVMVerifier("ethereum", node.URL, "", false)
		_, err := v.VerifyInboundTransfer(context.Background(), tokenExpectation(100.0))
		assert.ErrorIs(t, err, ErrNotFinalized)
	})

	t.Run("reverted transaction is NotFinalized", func(t *testing.T) {
		node := newFakeEVMNode(t, fakeNode{blockTime: time.Now(), tokenAmount: 100.0, decimals: 6, status: "0x0"})
		defer node.Close()

		v := NewEVMVerifier("ethereum", node.URL, "", false)
		_, err := v.VerifyInboundTransfer(context.Background(), tokenExpectation(100.0))
		assert.ErrorIs(t, err, ErrNotFinalized)
	})

	t.Run("wrong recipient is PartyMismatch with observed value", func(t *testing.T) {
		node := newFakeEVMNode(t, fakeNode{blockTime: time.Now(), tokenAmount: 100.0, decimals: 6})
		defer node.Close()

		exp := tokenExpectation(100.0)
		exp.To = "0x4444444444444444444444444444444444444444"
		v := NewEVMVerifier("ethereum", node.URL, "", false)
		_, err := v.VerifyInboundTransfer(context.Background(), exp)
		assert.ErrorIs(t, err, ErrPartyMismatch)
		assert.Contains(t, err.Error(), normalizeHexAddress(testCustody))
	})
}

func TestEVMSendOutboundTransfer(t *testing.T) {
	t.Run("dry mode returns tagged synthetic proof", func(t *testing.T) {
		v := NewEVMVerifier("ethereum", "http://unreachable.invalid", testSender, false)
		res, err := v.SendOutboundTransfer(context.Background(), testCustody, usdtAsset(), 10)
		require.NoError(t, err)
		assert.True(t, res.Synthetic)
		assert.NotEmpty(t, res.ProofID)
	})

	t.Run("missing signer fails before any RPC", func(t *testing.T) {
		v := NewEVMVerifier("ethereum", "http://unreachable.invalid", "", true)
		_, err := v.SendOutboundTransfer(context.Background(), testCustody, usdtAsset(), 10)
		assert.ErrorIs(t, err, ErrSignerNotConfigured)
	})

	t.Run("real mode broadcasts through the signer node", func(t *testing.T) {
		node := newFakeEVMNode(t, fakeNode{blockTime: time.Now()})
		defer node.Close()

		v := NewEVMVerifier("ethereum", node.URL, testSender, true)
		res, err := v.SendOutboundTransfer(context.Background(), testCustody, usdtAsset(), 10)
		require.NoError(t, err)
		assert.False(t, res.Synthetic)
		assert.NotEmpty(t, res.ProofID)
	})
}

func TestEVMIsValidAddress(t *testing.T) {
	v := NewEVMVerifier("ethereum", "http://unreachable.invalid", "", false)
	assert.True(t, v.IsValidAddress(testSender))
	assert.False(t, v.IsValidAddress("TSenderNotHex"))
	assert.False(t, v.IsValidAddress("0x1234"))
}
