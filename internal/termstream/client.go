// Package termstream maintains the WebSocket connection to the local
// terminal-stream endpoint, multiplexes per-terminal output into
// client-side buffers, and self-heals on disconnect.
package termstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"devbridge/cli/internal/logging"
	"devbridge/cli/internal/protocol"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateError        State = "error"
)

const normalCloseCode = 1000

// Socket is one established connection. The real implementation wraps
// coder/websocket; tests use FakeSocket.
type Socket interface {
	ReadText(ctx context.Context) (string, error)
	WriteText(ctx context.Context, text string) error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, url string) (Socket, error)
}

// CloseError carries the WebSocket close code out of a read.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("websocket closed with code %d: %s", e.Code, e.Reason)
}

func isNormalClose(err error) bool {
	var ce *CloseError
	return errors.As(err, &ce) && ce.Code == normalCloseCode
}

type Events struct {
	OnState   func(State)
	OnMessage func(protocol.ServerMessage)
}

type Client struct {
	url     string
	dialer  Dialer
	log     *slog.Logger
	buffers *Buffers
	events  Events

	autoReconnect bool
	baseDelay     time.Duration
	maxAttempts   int

	sleep func(ctx context.Context, d time.Duration) error

	mu    sync.Mutex
	state State
	sock  Socket
}

type ClientOption func(*Client)

func WithLogger(log *slog.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

func WithEvents(ev Events) ClientOption {
	return func(c *Client) { c.events = ev }
}

func WithAutoReconnect(enabled bool) ClientOption {
	return func(c *Client) { c.autoReconnect = enabled }
}

func WithReconnectPolicy(baseDelay time.Duration, maxAttempts int) ClientOption {
	return func(c *Client) {
		if baseDelay > 0 {
			c.baseDelay = baseDelay
		}
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
	}
}

func withSleep(sleep func(ctx context.Context, d time.Duration) error) ClientOption {
	return func(c *Client) { c.sleep = sleep }
}

func NewClient(url string, dialer Dialer, buffers *Buffers, opts ...ClientOption) *Client {
	c := &Client{
		url:           url,
		dialer:        dialer,
		log:           logging.Nop(),
		buffers:       buffers,
		autoReconnect: true,
		baseDelay:     3 * time.Second,
		maxAttempts:   5,
		state:         StateDisconnected,
		sleep: func(ctx context.Context, d time.Duration) error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				return nil
			}
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ReconnectDelay returns the backoff delay before reconnect attempt
// number attempt (0-based): baseDelay × 1.5^attempt.
func (c *Client) ReconnectDelay(attempt int) time.Duration {
	return time.Duration(float64(c.baseDelay) * math.Pow(1.5, float64(attempt)))
}

// Run connects and processes messages until the server closes normally,
// the context ends, or the reconnect budget is exhausted. Calling Run is
// the explicit connect: the reconnect attempt counter starts at zero and
// is only reset by another Run call.
func (c *Client) Run(ctx context.Context) error {
	attempt := 0
	for {
		c.setState(StateConnecting)
		sock, err := c.dialer.Dial(ctx, c.url)
		if err != nil {
			if ctx.Err() != nil {
				c.setState(StateDisconnected)
				return nil
			}
			c.setState(StateError)
			c.log.Warn("terminal stream dial failed", "err", err)
			if !c.autoReconnect {
				c.setState(StateDisconnected)
				return err
			}
			if rerr := c.backoff(ctx, &attempt, err); rerr != nil {
				return rerr
			}
			continue
		}

		c.setSock(sock)
		c.setState(StateConnected)
		readErr := c.readLoop(ctx, sock)
		c.setSock(nil)
		_ = sock.Close()

		if ctx.Err() != nil || readErr == nil || isNormalClose(readErr) {
			c.setState(StateDisconnected)
			return nil
		}

		c.setState(StateError)
		c.log.Warn("terminal stream closed abnormally", "err", readErr)
		if !c.autoReconnect {
			c.setState(StateDisconnected)
			return readErr
		}
		if rerr := c.backoff(ctx, &attempt, readErr); rerr != nil {
			return rerr
		}
	}
}

// backoff sleeps before the next reconnect, or reports cause when the
// attempt budget is spent. The client then stays disconnected until the
// next explicit Run.
func (c *Client) backoff(ctx context.Context, attempt *int, cause error) error {
	if *attempt >= c.maxAttempts {
		c.setState(StateDisconnected)
		c.log.Error("terminal stream reconnect attempts exhausted", "attempts", c.maxAttempts)
		return fmt.Errorf("reconnect attempts exhausted: %w", cause)
	}
	delay := c.ReconnectDelay(*attempt)
	*attempt++
	c.setState(StateDisconnected)
	c.log.Info("terminal stream reconnect scheduled", "attempt", *attempt, "delay", delay)
	// A context end during the wait surfaces on the next dial.
	_ = c.sleep(ctx, delay)
	return nil
}

func (c *Client) readLoop(ctx context.Context, sock Socket) error {
	for {
		text, err := sock.ReadText(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		msg, err := protocol.ParseServerMessage([]byte(text))
		if err != nil {
			c.log.Warn("dropping unparseable stream message", "err", err)
			continue
		}
		c.dispatch(msg)
	}
}

// dispatch applies one server message to the buffers and forwards it to
// the registered handler.
func (c *Client) dispatch(msg protocol.ServerMessage) {
	switch msg.Type {
	case protocol.ServerTerminals:
		for _, t := range msg.Terminals {
			c.buffers.Upsert(t.ID, t.Name, protocol.IsManagedTerminalID(t.ID))
		}
	case protocol.ServerOutput:
		c.buffers.Append(msg.TerminalID, msg.Data)
	case protocol.ServerTerminalOpened, protocol.ServerTerminalCreated:
		if msg.Terminal != nil {
			c.buffers.Upsert(msg.Terminal.ID, msg.Terminal.Name, protocol.IsManagedTerminalID(msg.Terminal.ID))
		}
	case protocol.ServerTerminalClosed:
		c.buffers.Remove(msg.TerminalID)
	case protocol.ServerSubscribed:
		c.buffers.SetSubscribed(msg.TerminalID, true)
	case protocol.ServerUnsubscribed:
		c.buffers.SetSubscribed(msg.TerminalID, false)
	case protocol.ServerError:
		c.log.Warn("terminal stream server error", "err", msg.Error)
	}
	if c.events.OnMessage != nil {
		c.events.OnMessage(msg)
	}
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	c.mu.Unlock()
	if changed && c.events.OnState != nil {
		c.events.OnState(s)
	}
}

func (c *Client) setSock(sock Socket) {
	c.mu.Lock()
	c.sock = sock
	c.mu.Unlock()
}

func (c *Client) send(ctx context.Context, msg protocol.ClientMessage) error {
	c.mu.Lock()
	sock := c.sock
	c.mu.Unlock()
	if sock == nil {
		return errors.New("terminal stream is not connected")
	}
	raw, err := protocol.MarshalClientMessage(msg)
	if err != nil {
		return err
	}
	return sock.WriteText(ctx, string(raw))
}

func (c *Client) RequestList(ctx context.Context) error {
	return c.send(ctx, protocol.ClientMessage{Type: protocol.ClientList})
}

func (c *Client) Subscribe(ctx context.Context, terminalID string) error {
	return c.send(ctx, protocol.ClientMessage{Type: protocol.ClientSubscribe, TerminalID: terminalID})
}

func (c *Client) SubscribeAll(ctx context.Context) error {
	return c.send(ctx, protocol.ClientMessage{Type: protocol.ClientSubscribeAll})
}

func (c *Client) Unsubscribe(ctx context.Context, terminalID string) error {
	return c.send(ctx, protocol.ClientMessage{Type: protocol.ClientUnsubscribe, TerminalID: terminalID})
}

func (c *Client) SendInput(ctx context.Context, terminalID, data string) error {
	return c.send(ctx, protocol.ClientMessage{Type: protocol.ClientInput, TerminalID: terminalID, Data: data})
}

func (c *Client) CreateTerminal(ctx context.Context, name, cwd string) error {
	return c.send(ctx, protocol.ClientMessage{Type: protocol.ClientCreateTerminal, Name: name, Cwd: cwd})
}
