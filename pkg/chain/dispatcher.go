package chain

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const sendTimeout = 2 * time.Minute

type sendJob struct {
	to     string
	asset  Asset
	amount float64
	reply  chan sendOutcome
}

type sendOutcome struct {
	res *SendResult
	err error
}

// Dispatcher serializes outbound transfers per chain. Each custodial signer
// is a non-reentrant resource (nonce/sequence conflicts under concurrent
// sends), so every chain gets one queue drained by one worker.
type Dispatcher struct {
	registry *Registry
	mu       sync.Mutex
	queues   map[string]chan sendJob
	closed   bool
	wg       sync.WaitGroup
}

func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		queues:   make(map[string]chan sendJob),
	}
}

// Send enqueues an outbound transfer on the chain's queue and waits for the
// single worker to run it. The caller's context bounds only the wait; an
// accepted job runs to completion so a broadcast is never abandoned midway.
func (d *Dispatcher) Send(ctx context.Context, chainName, to string, asset Asset, amount float64) (*SendResult, error) {
	if _, err := d.registry.Get(chainName); err != nil {
		return nil, err
	}

	job := sendJob{to: to, asset: asset, amount: amount, reply: make(chan sendOutcome, 1)}
	queue := d.queue(chainName)

	select {
	case queue <- job:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case outcome := <-job.reply:
		return outcome.res, outcome.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (d *Dispatcher) queue(chainName string) chan sendJob {
	d.mu.Lock()
	defer d.mu.Unlock()
	q, ok := d.queues[chainName]
	if !ok {
		q = make(chan sendJob, 64)
		d.queues[chainName] = q
		d.wg.Add(1)
		go d.worker(chainName, q)
	}
	return q
}

func (d *Dispatcher) worker(chainName string, queue chan sendJob) {
	defer d.wg.Done()
	for job := range queue {
		verifier, err := d.registry.Get(chainName)
		if err != nil {
			job.reply <- sendOutcome{err: err}
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		res, err := verifier.SendOutboundTransfer(ctx, job.to, job.asset, job.amount)
		cancel()

		if err != nil {
			log.Errorf("Outbound transfer failed on %s to %s: %v", chainName, job.to, err)
		} else if res.Synthetic {
			log.Warnf("Outbound transfer on %s to %s returned synthetic proof %s (dry mode, nothing broadcast)",
				chainName, job.to, res.ProofID)
		} else {
			log.Infof("Outbound transfer on %s to %s: %s", chainName, job.to, res.ProofID)
		}
		job.reply <- sendOutcome{res: res, err: err}
	}
}

// Close drains the queues and stops the workers.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, q := range d.queues {
		close(q)
	}
	d.mu.Unlock()
	d.wg.Wait()
}
