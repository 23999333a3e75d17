package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/emre-gn/tradeflow/internal/models"
	"github.com/emre-gn/tradeflow/internal/sink"
)

// StreamState is the connection lifecycle state of the stream manager.
type StreamState int32

const (
	StateDisconnected StreamState = iota
	StateConnecting
	StateConnected
)

func (s StreamState) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	default:
		return "DISCONNECTED"
	}
}

type commandKind int

const (
	cmdSubscribe commandKind = iota
	cmdUnsubscribe
	cmdCancel
)

// streamCommand is the hand-off envelope between caller goroutines and the
// connection owner. Callers never touch the connection or the registry.
type streamCommand struct {
	kind     commandKind
	id       int
	channels []string
	reply    chan commandReply
}

type commandReply struct {
	id  int
	ack <-chan error
	err error
}

// wsRequest is the venue's wire format for stream commands.
type wsRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int      `json:"id"`
}

// streamManager owns one persistent streaming connection. A single goroutine
// (Run) dials, reads, writes, replays subscriptions after reconnect and
// renews the listen key; everything external goes through the command
// channel.
type streamManager struct {
	url     string
	rest    *restClient
	sink    sink.Sink
	logger  *logrus.Logger
	private bool

	commands chan streamCommand
	state    atomic.Int32

	reconnectMin time.Duration
	reconnectMax time.Duration

	// registry of active subscriptions, written only by the Run goroutine.
	// The mutex exists so callers can read snapshots.
	mu            sync.RWMutex
	subscriptions map[int][]string

	// owner-goroutine state, never touched elsewhere.
	nextID    int
	pending   map[int]chan error
	listenKey string
}

func newStreamManager(url string, rest *restClient, events sink.Sink, private bool, logger *logrus.Logger) *streamManager {
	return &streamManager{
		url:           url,
		rest:          rest,
		sink:          events,
		logger:        logger,
		private:       private,
		commands:      make(chan streamCommand, 64),
		reconnectMin:  reconnectMin,
		reconnectMax:  reconnectMax,
		subscriptions: make(map[int][]string),
		nextID:        1,
		pending:       make(map[int]chan error),
	}
}

// State reports the current connection state.
func (m *streamManager) State() StreamState {
	return StreamState(m.state.Load())
}

// Subscription returns the channel list recorded under id.
func (m *streamManager) Subscription(id int) ([]string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	channels, ok := m.subscriptions[id]
	if !ok {
		return nil, false
	}
	out := make([]string, len(channels))
	copy(out, channels)
	return out, true
}

// Subscribe registers channels for the given symbols and queues the SUBSCRIBE
// command. The returned id identifies the subscription for Unsubscribe; the
// ack channel resolves when the venue acknowledges the command.
func (m *streamManager) Subscribe(ctx context.Context, channel string, symbols []string) (int, <-chan error, error) {
	channels := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		channels = append(channels, strings.ToLower(strings.TrimSpace(symbol))+"@"+channel)
	}

	reply := make(chan commandReply, 1)
	cmd := streamCommand{kind: cmdSubscribe, channels: channels, reply: reply}

	select {
	case m.commands <- cmd:
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	}
	select {
	case r := <-reply:
		return r.id, r.ack, r.err
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	}
}

// Unsubscribe transmits the symmetric UNSUBSCRIBE for the stored channel list
// of id. The registry entry is removed only after a successful transmit, so a
// failed call can be retried safely.
func (m *streamManager) Unsubscribe(ctx context.Context, id int) error {
	reply := make(chan commandReply, 1)
	cmd := streamCommand{kind: cmdUnsubscribe, id: id, reply: reply}

	select {
	case m.commands <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case r := <-reply:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel drops the pending-acknowledgement bookkeeping for id. A command
// already transmitted is not retracted from the wire.
func (m *streamManager) Cancel(ctx context.Context, id int) error {
	reply := make(chan commandReply, 1)
	cmd := streamCommand{kind: cmdCancel, id: id, reply: reply}

	select {
	case m.commands <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run owns the connection for the life of ctx: connect, serve, reconnect
// with capped exponential backoff, forever. Commands are still serviced
// between connections so callers never block on a network blip.
func (m *streamManager) Run(ctx context.Context) error {
	defer m.state.Store(int32(StateDisconnected))

	keepalive := time.NewTicker(listenKeyKeepalive)
	defer keepalive.Stop()

	delay := m.reconnectMin
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		served, err := m.connectAndServe(ctx, keepalive.C)
		if ctx.Err() != nil {
			return nil
		}
		if served {
			delay = m.reconnectMin
		}
		if err != nil {
			m.logger.Warnf("Stream disconnected, reconnecting in %v: %v", delay, err)
		}

		if !m.waitReconnect(ctx, delay) {
			return nil
		}
		delay *= 2
		if delay > m.reconnectMax {
			delay = m.reconnectMax
		}
	}
}

// waitReconnect sleeps the backoff delay while still servicing commands.
// Returns false when ctx is done.
func (m *streamManager) waitReconnect(ctx context.Context, delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return true
		case cmd := <-m.commands:
			m.handleOfflineCommand(cmd)
		}
	}
}

// handleOfflineCommand services a command while no connection exists.
// Subscriptions are recorded and will be transmitted by the post-connect
// replay; unsubscribes cannot transmit, so the registry stays intact.
func (m *streamManager) handleOfflineCommand(cmd streamCommand) {
	switch cmd.kind {
	case cmdSubscribe:
		id := m.recordSubscription(cmd.channels)
		cmd.reply <- commandReply{id: id, ack: m.newPending(id)}
	case cmdUnsubscribe:
		m.mu.RLock()
		_, ok := m.subscriptions[cmd.id]
		m.mu.RUnlock()
		if !ok {
			cmd.reply <- commandReply{err: ErrUnknownSubscription}
			return
		}
		cmd.reply <- commandReply{err: ErrNotConnected}
	case cmdCancel:
		m.dropPending(cmd.id)
		cmd.reply <- commandReply{}
	}
}

func (m *streamManager) recordSubscription(channels []string) int {
	id := m.nextID
	m.nextID++
	m.mu.Lock()
	m.subscriptions[id] = channels
	m.mu.Unlock()
	return id
}

func (m *streamManager) newPending(id int) <-chan error {
	ack := make(chan error, 1)
	m.pending[id] = ack
	return ack
}

func (m *streamManager) dropPending(id int) {
	if ack, ok := m.pending[id]; ok {
		close(ack)
		delete(m.pending, id)
	}
}

func (m *streamManager) resolvePending(id int, err error) {
	ack, ok := m.pending[id]
	if !ok {
		return
	}
	ack <- err
	close(ack)
	delete(m.pending, id)
}

// connectAndServe runs one connection lifecycle. served reports whether the
// dial succeeded, so the caller can reset its backoff.
func (m *streamManager) connectAndServe(ctx context.Context, keepalive <-chan time.Time) (served bool, err error) {
	m.state.Store(int32(StateConnecting))

	if m.private && m.listenKey == "" {
		if err := m.obtainListenKey(ctx); err != nil {
			// Fall back to public streams; the keepalive tick retries.
			m.logger.Errorf("Unable to create a listen key for the user data stream: %v", err)
		}
	}

	url := m.url
	if m.listenKey != "" {
		url += "/" + m.listenKey
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		m.state.Store(int32(StateDisconnected))
		return false, fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close()
	defer m.state.Store(int32(StateDisconnected))

	m.state.Store(int32(StateConnected))
	m.logger.Info("Stream connected")

	conn.SetPongHandler(func(string) error { return nil })

	// The venue forgets subscriptions across a drop; replay is the only
	// thing preventing silent data loss after a blip.
	if err := m.replaySubscriptions(conn); err != nil {
		return true, err
	}

	return true, m.serve(ctx, conn, keepalive)
}

func (m *streamManager) replaySubscriptions(conn *websocket.Conn) error {
	m.mu.RLock()
	ids := make([]int, 0, len(m.subscriptions))
	for id := range m.subscriptions {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	replay := make([]wsRequest, 0, len(ids))
	for _, id := range ids {
		replay = append(replay, wsRequest{Method: "SUBSCRIBE", Params: m.subscriptions[id], ID: id})
	}
	m.mu.RUnlock()

	for _, req := range replay {
		if err := m.write(conn, req); err != nil {
			return fmt.Errorf("replay subscription %d: %w", req.ID, err)
		}
	}
	if len(replay) > 0 {
		m.logger.Infof("Replayed %d subscriptions", len(replay))
	}
	return nil
}

func (m *streamManager) write(conn *websocket.Conn, v any) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(v)
}

// serve is the owner loop for one live connection.
func (m *streamManager) serve(ctx context.Context, conn *websocket.Conn, keepalive <-chan time.Time) error {
	messages := make(chan []byte, 100)
	readErr := make(chan error, 1)

	go func() {
		defer close(messages)
		for {
			conn.SetReadDeadline(time.Now().Add(readTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				select {
				case readErr <- err:
				default:
				}
				return
			}
			select {
			case messages <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeTimeout))
			return nil

		case err := <-readErr:
			return fmt.Errorf("read error: %w", err)

		case msg, ok := <-messages:
			if !ok {
				// Reader exited; surface its error instead of feeding the
				// nil receive into the frame parser.
				select {
				case err := <-readErr:
					return fmt.Errorf("read error: %w", err)
				default:
					return fmt.Errorf("read loop exited")
				}
			}
			if err := m.handleMessage(ctx, msg); err != nil {
				return err
			}

		case cmd := <-m.commands:
			if err := m.handleCommand(conn, cmd); err != nil {
				return err
			}

		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return fmt.Errorf("ping failed: %w", err)
			}

		case <-keepalive:
			m.renewListenKey(ctx)
		}
	}
}

// handleCommand services a caller command on a live connection. A write
// failure is returned so the connection is torn down and the replay takes
// over; the registry already holds whatever the caller asked for.
func (m *streamManager) handleCommand(conn *websocket.Conn, cmd streamCommand) error {
	switch cmd.kind {
	case cmdSubscribe:
		// Recorded before transmission so the subscription survives a
		// send failure.
		id := m.recordSubscription(cmd.channels)
		ack := m.newPending(id)
		err := m.write(conn, wsRequest{Method: "SUBSCRIBE", Params: cmd.channels, ID: id})
		cmd.reply <- commandReply{id: id, ack: ack}
		if err != nil {
			m.logger.Errorf("Websocket error while subscribing to %d channels: %v", len(cmd.channels), err)
			return err
		}

	case cmdUnsubscribe:
		m.mu.RLock()
		channels, ok := m.subscriptions[cmd.id]
		m.mu.RUnlock()
		if !ok {
			cmd.reply <- commandReply{err: ErrUnknownSubscription}
			return nil
		}
		err := m.write(conn, wsRequest{Method: "UNSUBSCRIBE", Params: channels, ID: cmd.id})
		if err != nil {
			m.logger.Errorf("Websocket error while unsubscribing %d: %v", cmd.id, err)
			cmd.reply <- commandReply{err: err}
			return err
		}
		m.mu.Lock()
		delete(m.subscriptions, cmd.id)
		m.mu.Unlock()
		// Release any outstanding subscribe acknowledgement for the id; the
		// subscription no longer exists to be acknowledged.
		m.dropPending(cmd.id)
		cmd.reply <- commandReply{id: cmd.id}

	case cmdCancel:
		m.dropPending(cmd.id)
		cmd.reply <- commandReply{}
	}
	return nil
}

// handleMessage parses one inbound frame. Acks resolve pending command
// futures; push events are normalized and delivered to the sink. A malformed
// frame is logged and dropped; it never tears down the connection.
func (m *streamManager) handleMessage(ctx context.Context, raw []byte) error {
	var frame map[string]any
	if err := json.Unmarshal(raw, &frame); err != nil {
		m.logger.Warnf("Dropping undecodable frame: %v", err)
		return nil
	}

	// Command acknowledgement: {"result":null,"id":N} or an error object.
	if idRaw, ok := frame["id"]; ok {
		if _, isEvent := frame["e"]; !isEvent {
			id, ok := idRaw.(float64)
			if !ok {
				m.logger.Warnf("Dropping ack with non-numeric id")
				return nil
			}
			var ackErr error
			if errObj, ok := frame["error"].(map[string]any); ok {
				ackErr = fmt.Errorf("venue rejected stream command %d: %v", int(id), errObj["msg"])
			}
			m.resolvePending(int(id), ackErr)
			return nil
		}
	}

	eventType, _ := frame["e"].(string)
	switch eventType {
	case "aggTrade":
		trade, err := models.ParseAggTrade(frame)
		if err != nil {
			m.logger.Warnf("Dropping aggTrade event: %v", err)
			return nil
		}
		m.publish(ctx, sink.Event{Kind: sink.KindTrade, Symbol: trade.Symbol, Trade: &trade})

	case "kline":
		k, ok := frame["k"].(map[string]any)
		if !ok {
			m.logger.Warnf("Dropping kline event without payload")
			return nil
		}
		candle, err := models.ParseKline(k)
		if err != nil {
			m.logger.Warnf("Dropping kline event: %v", err)
			return nil
		}
		symbol, _ := frame["s"].(string)
		m.publish(ctx, sink.Event{Kind: sink.KindCandle, Symbol: symbol, Candle: &candle})

	case "ORDER_TRADE_UPDATE":
		o, ok := frame["o"].(map[string]any)
		if !ok {
			m.logger.Warnf("Dropping order update without payload")
			return nil
		}
		order, err := models.ParseOrderUpdate(o)
		if err != nil {
			m.logger.Warnf("Dropping order update: %v", err)
			return nil
		}
		m.publish(ctx, sink.Event{Kind: sink.KindOrder, Symbol: order.Symbol, Order: &order})

	case "ACCOUNT_UPDATE":
		a, ok := frame["a"].(map[string]any)
		if !ok {
			m.logger.Warnf("Dropping account update without payload")
			return nil
		}
		eventTime, _ := frame["E"].(float64)
		wallet, err := models.ParseAccountUpdate(a, int64(eventTime))
		if err != nil {
			m.logger.Warnf("Dropping account update: %v", err)
			return nil
		}
		m.publish(ctx, sink.Event{Kind: sink.KindWallet, Wallet: &wallet})

	case "listenKeyExpired":
		// Force a redial with a fresh key; subscriptions replay as usual.
		m.listenKey = ""
		return fmt.Errorf("listen key expired")

	default:
		m.logger.Debugf("Dropping unhandled event type %q", eventType)
	}
	return nil
}

func (m *streamManager) publish(ctx context.Context, ev sink.Event) {
	if m.sink == nil {
		return
	}
	if err := m.sink.Publish(ctx, ev); err != nil {
		m.logger.Errorf("Event sink failed for %s: %v", ev.Kind, err)
	}
}

func (m *streamManager) obtainListenKey(ctx context.Context) error {
	var out struct {
		ListenKey string `json:"listenKey"`
	}
	if err := m.rest.requestJSON(ctx, "POST", "/fapi/v1/listenKey", map[string]any{}, &out); err != nil {
		return err
	}
	if out.ListenKey == "" {
		return fmt.Errorf("empty listen key in response")
	}
	m.listenKey = out.ListenKey
	m.logger.Info("Listen key obtained")
	return nil
}

// renewListenKey extends the key's server-side validity. Failure is non-fatal
// here; the next tick, or the next reconnect, tries again.
func (m *streamManager) renewListenKey(ctx context.Context) {
	if !m.private {
		return
	}
	if m.listenKey == "" {
		if err := m.obtainListenKey(ctx); err != nil {
			m.logger.Errorf("Listen key renewal failed: %v", err)
		}
		return
	}
	if _, err := m.rest.request(ctx, "PUT", "/fapi/v1/listenKey", map[string]any{}); err != nil {
		m.logger.Errorf("Listen key renewal failed: %v", err)
		return
	}
	m.logger.Debug("Listen key renewed")
}
