package chain

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	watcherStateDisconnected = "disconnected"
	watcherStateConnecting   = "connecting"
	watcherStateConnected    = "connected"

	maxReconnectAttempts = 10
	reconnectDelay       = 5 * time.Second
	readDeadline         = 90 * time.Second
)

// SignatureCallback receives the signature of a transaction that touched the
// custody address. The watcher only surfaces candidates; verification stays
// with the worker.
type SignatureCallback func(signature string)

// DepositWatcher subscribes to log notifications mentioning the custody
// address over the node's websocket endpoint, so deposits surface without
// waiting for a client to submit the proof.
type DepositWatcher struct {
	wsEndpoint     string
	custodyAddress string
	callback       SignatureCallback

	mu       sync.RWMutex
	conn     *websocket.Conn
	status   string
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewDepositWatcher(wsEndpoint, custodyAddress string, callback SignatureCallback) *DepositWatcher {
	return &DepositWatcher{
		wsEndpoint:     wsEndpoint,
		custodyAddress: custodyAddress,
		callback:       callback,
		status:         watcherStateDisconnected,
		stopCh:         make(chan struct{}),
	}
}

// Start connects and begins delivering signatures until Stop is called.
// Reconnects are automatic with a bounded retry budget.
func (w *DepositWatcher) Start() error {
	if err := w.connect(); err != nil {
		return err
	}
	go w.readLoop()
	return nil
}

func (w *DepositWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.mu.Lock()
		if w.conn != nil {
			w.conn.Close()
		}
		w.status = watcherStateDisconnected
		w.mu.Unlock()
	})
}

func (w *DepositWatcher) Status() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.status
}

func (w *DepositWatcher) connect() error {
	w.mu.Lock()
	w.status = watcherStateConnecting
	w.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.Dial(w.wsEndpoint, nil)
	if err != nil {
		w.mu.Lock()
		w.status = watcherStateDisconnected
		w.mu.Unlock()
		return fmt.Errorf("dial websocket: %w", err)
	}

	subscribe := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "logsSubscribe",
		"params": []interface{}{
			map[string]interface{}{"mentions": []string{w.custodyAddress}},
			map[string]interface{}{"commitment": "finalized"},
		},
	}
	if err := conn.WriteJSON(subscribe); err != nil {
		conn.Close()
		return fmt.Errorf("subscribe: %w", err)
	}

	w.mu.Lock()
	w.conn = conn
	w.status = watcherStateConnected
	w.mu.Unlock()

	log.Infof("Deposit watcher subscribed for %s", w.custodyAddress)
	return nil
}

type logsNotification struct {
	Method string `json:"method"`
	Params struct {
		Result struct {
			Value struct {
				Signature string      `json:"signature"`
				Err       interface{} `json:"err"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

func (w *DepositWatcher) readLoop() {
	attempts := 0
	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		w.mu.RLock()
		conn := w.conn
		w.mu.RUnlock()
		if conn == nil {
			return
		}

		conn.SetReadDeadline(time.Now().Add(readDeadline))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-w.stopCh:
				return
			default:
			}

			attempts++
			if attempts > maxReconnectAttempts {
				log.Errorf("Deposit watcher for %s giving up after %d reconnect attempts: %v",
					w.custodyAddress, maxReconnectAttempts, err)
				w.Stop()
				return
			}
			log.Warnf("Deposit watcher read failed (attempt %d/%d), reconnecting: %v",
				attempts, maxReconnectAttempts, err)
			conn.Close()
			time.Sleep(reconnectDelay)
			if cerr := w.connect(); cerr != nil {
				log.Errorf("Deposit watcher reconnect failed: %v", cerr)
			}
			continue
		}
		attempts = 0

		var note logsNotification
		if err := json.Unmarshal(raw, &note); err != nil {
			continue
		}
		if note.Method != "logsNotification" {
			continue
		}
		if note.Params.Result.Value.Err != nil {
			// Failed transactions never verify; skip early.
			continue
		}
		if sig := note.Params.Result.Value.Signature; sig != "" && w.callback != nil {
			w.callback(sig)
		}
	}
}
