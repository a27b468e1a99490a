package sui

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/louisbranch/formledger/internal/ledger"
	"github.com/louisbranch/formledger/internal/platform/timeouts"
	"golang.org/x/net/websocket"
)

const (
	defaultEventLimit = 50
	subscribeMethod   = "suix_subscribeEvent"
	unsubscribeMethod = "suix_unsubscribeEvent"
	wsOrigin          = "http://localhost/"
)

// QueryEvents returns one page of historical events.
func (c *Client) QueryEvents(ctx context.Context, query ledger.EventQuery) (ledger.EventPage, error) {
	filter, err := eventFilterJSON(query.Filter)
	if err != nil {
		return ledger.EventPage{}, err
	}
	limit := query.Limit
	if limit <= 0 {
		limit = defaultEventLimit
	}
	var page eventPageJSON
	if err := c.call(ctx, &page, "suix_queryEvents", filter, query.Cursor, limit, query.Descending); err != nil {
		return ledger.EventPage{}, err
	}
	out := ledger.EventPage{NextCursor: page.NextCursor, HasNextPage: page.HasNextPage}
	for _, ev := range page.Data {
		out.Events = append(out.Events, ev.toRaw())
	}
	return out, nil
}

type wsRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type wsMessage struct {
	ID     *int            `json:"id"`
	Method string          `json:"method"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Params struct {
		Subscription json.RawMessage `json:"subscription"`
		Result       eventJSON       `json:"result"`
	} `json:"params"`
}

// SubscribeEvents opens a websocket subscription for filter. Events are
// delivered in arrival order from a single goroutine.
func (c *Client) SubscribeEvents(ctx context.Context, filter ledger.EventFilter, handler func(ledger.RawEvent)) (func(), error) {
	if handler == nil {
		return nil, fmt.Errorf("event handler is required")
	}
	filterJSON, err := eventFilterJSON(filter)
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := websocket.NewConfig(c.wsURL, wsOrigin)
	if err != nil {
		return nil, fmt.Errorf("websocket config: %w", err)
	}
	conn, err := cfg.DialContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("dial websocket: %w", err)
	}

	if err := websocket.JSON.Send(conn, wsRequest{JSONRPC: "2.0", ID: 1, Method: subscribeMethod, Params: []any{filterJSON}}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", subscribeMethod, err)
	}
	ack, err := c.receiveAck(ctx, conn)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", subscribeMethod, err)
	}
	if ack.Error != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %s (code %d)", subscribeMethod, ack.Error.Message, ack.Error.Code)
	}
	subscriptionID := ack.Result

	subCtx, cancel := context.WithCancel(ctx)
	go func() {
		<-subCtx.Done()
		_ = websocket.JSON.Send(conn, wsRequest{JSONRPC: "2.0", ID: 2, Method: unsubscribeMethod, Params: []any{subscriptionID}})
		_ = conn.Close()
	}()
	go func() {
		defer cancel()
		for {
			var msg wsMessage
			if err := websocket.JSON.Receive(conn, &msg); err != nil {
				if subCtx.Err() == nil {
					c.logger.Warn("event subscription closed", "error", err)
				}
				return
			}
			if msg.Method != subscribeMethod {
				continue
			}
			ev := msg.Params.Result.toRaw()
			if !filter.Matches(ev) {
				continue
			}
			if subCtx.Err() != nil {
				return
			}
			handler(ev)
		}
	}()

	var once sync.Once
	return func() { once.Do(cancel) }, nil
}

// receiveAck waits for the subscription acknowledgement. The wait ends at
// the dial timeout or when ctx is done, whichever comes first.
func (c *Client) receiveAck(ctx context.Context, conn *websocket.Conn) (wsMessage, error) {
	timeout := c.dialTimeout
	if timeout <= 0 {
		timeout = timeouts.LedgerDial
	}
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return wsMessage{}, err
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })

	var ack wsMessage
	err := websocket.JSON.Receive(conn, &ack)
	if !stop() {
		return wsMessage{}, ctx.Err()
	}
	if err != nil {
		return wsMessage{}, err
	}
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return wsMessage{}, err
	}
	return ack, nil
}
