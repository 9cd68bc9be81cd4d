package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hg192/tankGPT/internal/protocol"
	"github.com/hg192/tankGPT/internal/store"
)

func newTestServer(t *testing.T, results ResultLister) *httptest.Server {
	t.Helper()
	s, _ := newTestSession(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-s.Done()
	})

	srv := New(Options{Session: s, Results: results, Logger: zerolog.Nop()})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func wsURL(ts *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws" + query
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, body := get(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestResultsWithoutStore(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, body := get(t, ts.URL+"/results")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, "[]", string(body))
}

func TestResultsFromStore(t *testing.T) {
	db, err := store.Open(store.MemoryPath, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Record(context.Background(), store.Result{
		RoundID: "r1",
		Mode:    "battle",
		Winner:  "blue",
		EndedAt: time.Now().UTC(),
	}))

	ts := newTestServer(t, db)
	resp, body := get(t, ts.URL+"/results?limit=5")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got []store.Result
	require.NoError(t, json.Unmarshal(body, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].RoundID)
	assert.Equal(t, "blue", got[0].Winner)

	resp, _ = get(t, ts.URL+"/results?limit=zero")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, body := get(t, ts.URL+"/stats")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats map[string]int64
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Contains(t, stats, "snapshots")
	assert.Contains(t, stats, "snapshotBytes")
}

func readUntil(t *testing.T, conn *websocket.Conn, codec protocol.Codec, typ string) []byte {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		got, err := protocol.DecodeType(codec, data)
		require.NoError(t, err)
		if got == typ {
			return data
		}
	}
}

func TestWebSocketJoin(t *testing.T) {
	ts := newTestServer(t, nil)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, ""), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(protocol.PlayerReady{Type: protocol.MsgPlayerReady, Ready: true}))
	data := readUntil(t, conn, protocol.JSON, protocol.MsgError)
	assert.Contains(t, string(data), protocol.MsgJoinLobby)

	require.NoError(t, conn.WriteJSON(protocol.JoinLobby{Type: protocol.MsgJoinLobby, Name: "alice", Team: "red"}))
	welcome, err := protocol.Decode[protocol.Welcome](protocol.JSON, readUntil(t, conn, protocol.JSON, protocol.MsgWelcome))
	require.NoError(t, err)
	assert.NotEmpty(t, welcome.PlayerID)
	assert.Equal(t, "red", welcome.Team)

	lobby, err := protocol.Decode[protocol.LobbyState](protocol.JSON, readUntil(t, conn, protocol.JSON, protocol.MsgLobbyState))
	require.NoError(t, err)
	require.Len(t, lobby.Players, 1)
	assert.Equal(t, "alice", lobby.Players[0].Name)

	other, _, err := websocket.DefaultDialer.Dial(wsURL(ts, ""), nil)
	require.NoError(t, err)
	defer other.Close()
	require.NoError(t, other.WriteJSON(protocol.JoinLobby{Type: protocol.MsgJoinLobby, Name: "bob"}))
	readUntil(t, other, protocol.JSON, protocol.MsgWelcome)

	conn.Close()
	left, err := protocol.Decode[protocol.PlayerLeft](protocol.JSON, readUntil(t, other, protocol.JSON, protocol.MsgPlayerLeft))
	require.NoError(t, err)
	assert.Equal(t, welcome.PlayerID, left.ID)
}

func TestWebSocketMsgpack(t *testing.T) {
	ts := newTestServer(t, nil)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "?codec=msgpack"), nil)
	require.NoError(t, err)
	defer conn.Close()

	join, err := protocol.Msgpack.Marshal(protocol.JoinLobby{Type: protocol.MsgJoinLobby, Name: "bob"})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, join))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	frame, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, frame)
	welcome, err := protocol.Decode[protocol.Welcome](protocol.Msgpack, data)
	require.NoError(t, err)
	assert.Equal(t, protocol.MsgWelcome, welcome.Type)
}

func TestWebSocketRejectsUnknownCodec(t *testing.T) {
	ts := newTestServer(t, nil)
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, "?codec=xml"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
