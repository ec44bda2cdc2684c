package chain

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowVerifier fails the moment two sends overlap on the same chain.
type slowVerifier struct {
	chain   string
	active  int32
	overlap int32
	sent    int32
}

func (s *slowVerifier) Chain() string { return s.chain }

func (s *slowVerifier) VerifyInboundTransfer(ctx context.Context, exp InboundExpectation) (*InboundResult, error) {
	return nil, ErrNotFound
}

func (s *slowVerifier) SendOutboundTransfer(ctx context.Context, to string, asset Asset, amount float64) (*SendResult, error) {
	if atomic.AddInt32(&s.active, 1) > 1 {
		atomic.StoreInt32(&s.overlap, 1)
	}
	time.Sleep(5 * time.Millisecond)
	atomic.AddInt32(&s.active, -1)
	n := atomic.AddInt32(&s.sent, 1)
	return &SendResult{ProofID: fmt.Sprintf("%s-%d", s.chain, n)}, nil
}

func (s *slowVerifier) IsValidAddress(address string) bool { return true }

func TestDispatcherSerializesPerChain(t *testing.T) {
	reg := NewRegistry()
	eth := &slowVerifier{chain: "ethereum"}
	trx := &slowVerifier{chain: "tron"}
	reg.Register(eth)
	reg.Register(trx)

	d := NewDispatcher(reg)
	defer d.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		for _, chainName := range []string{"ethereum", "tron"} {
			wg.Add(1)
			go func(chainName string) {
				defer wg.Done()
				res, err := d.Send(context.Background(), chainName, "dest", Asset{Symbol: "USDT", Stable: true}, 1)
				assert.NoError(t, err)
				assert.NotEmpty(t, res.ProofID)
			}(chainName)
		}
	}
	wg.Wait()

	assert.Zero(t, atomic.LoadInt32(&eth.overlap), "ethereum sends overlapped")
	assert.Zero(t, atomic.LoadInt32(&trx.overlap), "tron sends overlapped")
	assert.EqualValues(t, 8, atomic.LoadInt32(&eth.sent))
	assert.EqualValues(t, 8, atomic.LoadInt32(&trx.sent))
}

func TestDispatcherRejectsUnknownChain(t *testing.T) {
	d := NewDispatcher(NewRegistry())
	defer d.Close()

	_, err := d.Send(context.Background(), "dogecoin", "dest", Asset{}, 1)
	assert.ErrorIs(t, err, ErrUnsupportedChain)
}

func TestDispatcherHonorsCallerContext(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&slowVerifier{chain: "ethereum"})
	d := NewDispatcher(reg)
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Send(ctx, "ethereum", "dest", Asset{}, 1)
	require.ErrorIs(t, err, context.Canceled)
}
