package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/hg192/tankGPT/internal/protocol"
)

var (
	ErrReconnectExhausted = errors.New("client: reconnect attempts exhausted")
	ErrNotConnected       = errors.New("client: not connected")

	errConnectionLost = errors.New("connection lost")
)

const (
	DefaultMaxAttempts = 5
	DefaultRetryDelay  = time.Second
	writeTimeout       = 10 * time.Second
)

type Options struct {
	URL   string
	Name  string
	Team  string
	Codec protocol.Codec

	// MaxAttempts bounds consecutive failed connections: dial errors and
	// connections dropped before a welcome arrives. A welcome resets the count.
	MaxAttempts int
	// RetryDelay is multiplied by the attempt number before each redial.
	RetryDelay time.Duration

	Dialer *websocket.Dialer
	Logger zerolog.Logger

	// OnMessage receives every frame after its type has been decoded. It runs
	// on the read goroutine.
	OnMessage func(typ string, data []byte)
}

// Client keeps a websocket session to the relay alive. On every (re)connect
// it sends join_lobby, carrying the rejoin token from the last welcome.
type Client struct {
	opts Options
	log  zerolog.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	playerID string
	token    string
}

func New(opts Options) *Client {
	if opts.Codec == nil {
		opts.Codec = protocol.JSON
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	return &Client{
		opts: opts,
		log:  opts.Logger.With().Str("component", "client").Str("url", opts.URL).Logger(),
	}
}

// PlayerID returns the id from the most recent welcome.
func (c *Client) PlayerID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerID
}

// Run connects and reconnects until ctx is cancelled or MaxAttempts
// connections in a row end without a welcome.
func (c *Client) Run(ctx context.Context) error {
	attempts := 0
	for {
		conn, _, err := c.opts.Dialer.DialContext(ctx, c.opts.URL, nil)
		if err == nil {
			c.log.Info().Msg("connected")
			if c.serve(ctx, conn) {
				attempts = 0
			}
			err = errConnectionLost
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		attempts++
		if attempts >= c.opts.MaxAttempts {
			c.log.Error().Err(err).Int("attempts", attempts).Msg("giving up on relay")
			return fmt.Errorf("%w after %d attempts: %v", ErrReconnectExhausted, attempts, err)
		}
		delay := c.opts.RetryDelay * time.Duration(attempts)
		c.log.Warn().Err(err).Int("attempt", attempts).Dur("retry_in", delay).Msg("reconnecting")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// serve joins over conn and reads until the connection drops. It reports
// whether the relay answered with a welcome.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) (welcomed bool) {
	c.mu.Lock()
	c.conn = conn
	token := c.token
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
	}()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	join := protocol.JoinLobby{
		Type:  protocol.MsgJoinLobby,
		Name:  c.opts.Name,
		Team:  c.opts.Team,
		Token: token,
	}
	if err := c.Send(join); err != nil {
		c.log.Warn().Err(err).Msg("join failed")
		return false
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return welcomed
		}
		typ, err := protocol.DecodeType(c.opts.Codec, data)
		if err != nil {
			c.log.Debug().Err(err).Msg("bad frame")
			continue
		}
		if typ == protocol.MsgWelcome && c.remember(data) {
			welcomed = true
		}
		if c.opts.OnMessage != nil {
			c.opts.OnMessage(typ, data)
		}
	}
}

func (c *Client) remember(data []byte) bool {
	welcome, err := protocol.Decode[protocol.Welcome](c.opts.Codec, data)
	if err != nil {
		c.log.Debug().Err(err).Msg("bad welcome")
		return false
	}
	c.mu.Lock()
	c.playerID = welcome.PlayerID
	c.token = welcome.Token
	c.mu.Unlock()
	return true
}

// Send encodes msg with the client codec and writes it to the live
// connection.
func (c *Client) Send(msg any) error {
	data, err := c.opts.Codec.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	frame := websocket.TextMessage
	if c.opts.Codec.Binary() {
		frame = websocket.BinaryMessage
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteMessage(frame, data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}
