package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/hg192/tankGPT/internal/protocol"
	"github.com/hg192/tankGPT/internal/store"
)

const (
	defaultResultLimit = 20
	maxResultLimit     = 100
	shutdownTimeout    = 5 * time.Second
)

// ResultLister reads recorded rounds for the results endpoint.
type ResultLister interface {
	Recent(ctx context.Context, limit int) ([]store.Result, error)
}

type Options struct {
	Addr      string
	StaticDir string
	Session   *Session
	Results   ResultLister // optional
	Logger    zerolog.Logger
}

// Server handles HTTP and WebSocket connections
type Server struct {
	addr      string
	staticDir string
	session   *Session
	results   ResultLister
	log       zerolog.Logger
	upgrader  websocket.Upgrader
}

func New(opts Options) *Server {
	return &Server{
		addr:      opts.Addr,
		staticDir: opts.StaticDir,
		session:   opts.Session,
		results:   opts.Results,
		log:       opts.Logger.With().Str("component", "server").Logger(),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Handler returns the routes: the websocket endpoint, health, stats, recent
// results and the static client.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/results", s.handleResults)
	if s.staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.staticDir)))
	}
	return mux
}

// Run starts the session and serves until ctx is cancelled, then shuts the
// listener down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go s.session.Run(ctx)

	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.addr).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	<-s.session.Done()
	s.log.Info().Msg("server stopped")
	return nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	codec, err := protocol.CodecByName(r.URL.Query().Get("codec"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := newClient(conn, codec, s.log.With().Str("remote", r.RemoteAddr).Logger())
	go client.writePump()

	var playerID string
	client.readPump(func(data []byte) {
		if playerID == "" {
			playerID = s.admit(client, data)
			return
		}
		s.session.Submit(Message{PlayerID: playerID, Data: data})
	})

	if playerID != "" {
		s.session.Submit(Leave{PlayerID: playerID, Conn: client})
	}
	client.Close()
}

// admit expects a join_lobby frame and waits for the session to accept it.
func (s *Server) admit(c *Client, data []byte) string {
	typ, err := protocol.DecodeType(c.codec, data)
	if err == nil && typ != protocol.MsgJoinLobby {
		err = fmt.Errorf("expected %s, got %s", protocol.MsgJoinLobby, typ)
	}
	var msg protocol.JoinLobby
	if err == nil {
		msg, err = protocol.Decode[protocol.JoinLobby](c.codec, data)
	}
	if err != nil {
		c.sendMessage(protocol.NewError(err.Error()))
		return ""
	}

	reply := make(chan JoinResult, 1)
	if !s.session.Submit(Join{Conn: c, Msg: msg, Reply: reply}) {
		return ""
	}
	select {
	case res := <-reply:
		if res.Err != nil {
			c.sendMessage(protocol.NewError(res.Err.Error()))
			return ""
		}
		return res.PlayerID
	case <-s.session.Done():
		return ""
	}
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	count, size := s.session.Stats()
	writeJSON(w, map[string]int64{
		"snapshots":     count,
		"snapshotBytes": size,
	})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	limit := defaultResultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxResultLimit)
	}

	results := []store.Result{}
	if s.results != nil {
		var err error
		results, err = s.results.Recent(r.Context(), limit)
		if err != nil {
			s.log.Error().Err(err).Msg("list results")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
	}
	writeJSON(w, results)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
