package orewatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/gorilla/websocket"
)

const DefaultPingInterval = 15 * time.Second

// Notification is one program-account change event: the round account that
// changed and the slot the change landed in.
type Notification struct {
	Pubkey string
	Slot   uint64
}

type Options struct {
	PingInterval time.Duration

	BackoffMin time.Duration
	BackoffMax time.Duration

	OutBuffer int
}

func (o Options) withDefaults() Options {
	if o.PingInterval <= 0 {
		o.PingInterval = DefaultPingInterval
	}
	if o.BackoffMin <= 0 {
		o.BackoffMin = 500 * time.Millisecond
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 15 * time.Second
	}
	if o.OutBuffer <= 0 {
		o.OutBuffer = 64
	}
	return o
}

// Start subscribes to account changes under programID via the Solana
// websocket RPC and emits a Notification per change. The connection is
// re-dialed with jittered backoff until ctx is canceled; both channels
// close when it is.
func Start(ctx context.Context, url, programID string, opts Options) (<-chan Notification, <-chan error) {
	opts = opts.withDefaults()

	out := make(chan Notification, opts.OutBuffer)
	errs := make(chan error, 16)

	go func() {
		defer close(out)
		defer close(errs)

		backoff := opts.BackoffMin
		for {
			if ctx.Err() != nil {
				return
			}

			conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
			if err != nil {
				emitErrNonBlocking(errs, fmt.Errorf("watch dial: %w", err))
				sleepWithJitter(ctx, backoff)
				backoff = nextBackoff(backoff, opts.BackoffMax)
				continue
			}

			backoff = opts.BackoffMin

			if err := runSession(ctx, conn, programID, opts.PingInterval, out, errs); err != nil && ctx.Err() == nil {
				emitErrNonBlocking(errs, err)
			}

			_ = conn.Close()
			if ctx.Err() != nil {
				return
			}
			sleepWithJitter(ctx, backoff)
			backoff = nextBackoff(backoff, opts.BackoffMax)
		}
	}()

	return out, errs
}

type subscribeRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

func runSession(
	ctx context.Context,
	conn *websocket.Conn,
	programID string,
	pingInterval time.Duration,
	out chan<- Notification,
	errs chan<- error,
) error {
	if conn == nil {
		return fmt.Errorf("watch session: nil conn")
	}

	req := subscribeRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "programSubscribe",
		Params:  []any{programID, map[string]any{"encoding": "base64", "commitment": "confirmed"}},
	}
	reqBytes, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("watch subscribe marshal: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, reqBytes); err != nil {
		return fmt.Errorf("watch subscribe write: %w", err)
	}

	stop := make(chan struct{})
	defer close(stop)

	go func() {
		t := time.NewTicker(pingInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-t.C:
				deadline := time.Now().Add(3 * time.Second)
				if werr := conn.WriteControl(websocket.PingMessage, nil, deadline); werr != nil {
					emitErrNonBlocking(errs, fmt.Errorf("watch ping: %w", werr))
					_ = conn.Close()
					return
				}
			}
		}
	}()

	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		typ, msg, err := conn.ReadMessage()
		if err != nil {
			if errors.Is(err, websocket.ErrCloseSent) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("watch read: %w", err)
		}
		if typ != websocket.TextMessage && typ != websocket.BinaryMessage {
			continue
		}

		n, ok, err := parseNotification(msg)
		if err != nil {
			emitErrNonBlocking(errs, err)
			continue
		}
		if !ok {
			// Subscription ack or an unrelated server message.
			continue
		}

		select {
		case out <- n:
		default:
		}
	}
}

// parseNotification decodes a programNotification envelope. ok is false for
// valid but unrelated messages such as subscription acks.
func parseNotification(msg []byte) (Notification, bool, error) {
	if len(msg) == 0 {
		return Notification{}, false, nil
	}

	var envelope struct {
		Method string `json:"method"`
		Params struct {
			Result struct {
				Context struct {
					Slot uint64 `json:"slot"`
				} `json:"context"`
				Value struct {
					Pubkey string `json:"pubkey"`
				} `json:"value"`
			} `json:"result"`
		} `json:"params"`
	}
	if err := json.Unmarshal(msg, &envelope); err != nil {
		return Notification{}, false, fmt.Errorf("watch json decode: %w", err)
	}
	if envelope.Method != "programNotification" {
		return Notification{}, false, nil
	}
	return Notification{
		Pubkey: envelope.Params.Result.Value.Pubkey,
		Slot:   envelope.Params.Result.Context.Slot,
	}, true, nil
}

func emitErrNonBlocking(ch chan<- error, err error) {
	if err == nil {
		return
	}
	select {
	case ch <- err:
	default:
	}
}

func nextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next > max {
		return max
	}
	return next
}

func sleepWithJitter(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	j := int64(d) / 7
	if j > 0 {
		d = time.Duration(int64(d) + rand.Int64N(2*j+1) - j)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
