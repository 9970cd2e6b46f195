package hengine

import (
	"context"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	i10rnet "github.com/ebourg/hathor-wallet/net"
	"github.com/ebourg/hathor-wallet/wallet/log"
)

// Event is one message from the engine's live feed.
type Event struct {
	// ID is the feed's monotonically increasing event id, used to
	// resume the stream after a reconnect.
	ID uint64 `json:"id"`

	// Type is "network:new_block" or "network:new_tx".
	Type string `json:"type"`

	// Height and NativeBalance are set for new-block events.
	Height        uint64  `json:"height,omitempty"`
	NativeBalance Balance `json:"native_balance,omitempty"`

	// Tx is set for transaction events.
	Tx *Tx `json:"tx,omitempty"`
}

// EventHandler processes one feed event. Returning an error stops
// the stream.
type EventHandler func(*Event) error

// handlerError marks an error produced by the handler rather than
// by the connection, so StreamEvents knows not to reconnect.
type handlerError struct{ err error }

func (e *handlerError) Error() string { return e.err.Error() }

// StreamEvents connects to the engine's websocket feed and calls
// handler for each event, in feed order. It reconnects with backoff
// on connection failure, resuming after the last delivered event id,
// and returns when the context is done or the handler errs.
func (c *Client) StreamEvents(ctx context.Context, after uint64, handler EventHandler) error {
	backoff := i10rnet.Backoff{Base: time.Second}
	for {
		err := c.streamOnce(ctx, &after, handler)
		if he, ok := err.(*handlerError); ok {
			return he.err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Debugf("event stream disconnected: %s; reconnecting", err)
		timer := time.NewTimer(backoff.Next())
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *Client) streamOnce(ctx context.Context, after *uint64, handler EventHandler) error {
	u, err := c.baseURL()
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/v1a/event_ws"
	if *after > 0 {
		q := u.Query()
		q.Set("last_ack_event_id", strconv.FormatUint(*after, 10))
		u.RawQuery = q.Encode()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Unblock ReadJSON when the context is canceled. The done channel
	// releases the watchdog when this connection ends first, so the
	// reconnect loop doesn't accumulate one goroutine per dial.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var ev Event
		err := conn.ReadJSON(&ev)
		if err != nil {
			return err
		}
		if ev.ID != 0 && ev.ID <= *after {
			continue // replayed event
		}
		err = handler(&ev)
		if err != nil {
			return &handlerError{err: err}
		}
		if ev.ID > *after {
			*after = ev.ID
		}
	}
}
