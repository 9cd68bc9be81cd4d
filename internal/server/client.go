package server

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/hg192/tankGPT/internal/protocol"
)

var (
	ErrSendBufferFull = errors.New("server: send buffer full")
	ErrClientClosed   = errors.New("server: client closed")
)

const (
	sendBufferSize = 256
	maxMessageSize = 64 << 10
	readTimeout    = 60 * time.Second
	pingInterval   = 54 * time.Second
	writeTimeout   = 10 * time.Second
)

// Conn is the session's view of a connected player.
type Conn interface {
	Codec() protocol.Codec
	// Send queues an encoded frame without blocking.
	Send(data []byte) error
	Close()
}

// Client is a websocket connection with a buffered outbound queue. Frames are
// written by a dedicated goroutine; the session never blocks on a slow peer.
type Client struct {
	conn  *websocket.Conn
	codec protocol.Codec
	log   zerolog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, codec protocol.Codec, log zerolog.Logger) *Client {
	return &Client{
		conn:  conn,
		codec: codec,
		log:   log,
		send:  make(chan []byte, sendBufferSize),
		done:  make(chan struct{}),
	}
}

func (c *Client) Codec() protocol.Codec { return c.codec }

func (c *Client) Send(data []byte) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close stops the write pump, which sends a close frame and releases the
// socket. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Client) sendMessage(msg any) {
	data, err := c.codec.Marshal(msg)
	if err != nil {
		c.log.Error().Err(err).Msg("encode message")
		return
	}
	if err := c.Send(data); err != nil {
		c.log.Debug().Err(err).Msg("drop message")
	}
}

// readPump hands every inbound frame to handle until the socket fails.
func (c *Client) readPump(handle func(data []byte)) {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn().Err(err).Msg("websocket read failed")
			}
			return
		}
		handle(data)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	frame := websocket.TextMessage
	if c.codec.Binary() {
		frame = websocket.BinaryMessage
	}

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(frame, msg); err != nil {
				c.log.Debug().Err(err).Msg("websocket write failed")
				c.Close()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
