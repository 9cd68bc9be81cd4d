package server

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hg192/tankGPT/internal/game"
	"github.com/hg192/tankGPT/internal/protocol"
	"github.com/hg192/tankGPT/internal/store"
)

type fakeConn struct {
	codec  protocol.Codec
	sent   [][]byte
	full   bool
	closed bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{codec: protocol.JSON}
}

func (c *fakeConn) Codec() protocol.Codec { return c.codec }

func (c *fakeConn) Send(data []byte) error {
	if c.closed {
		return ErrClientClosed
	}
	if c.full {
		return ErrSendBufferFull
	}
	c.sent = append(c.sent, data)
	return nil
}

func (c *fakeConn) Close() { c.closed = true }

// received returns every message of type typ sent to the connection.
func (c *fakeConn) received(t *testing.T, typ string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, data := range c.sent {
		var m map[string]any
		require.NoError(t, c.codec.Unmarshal(data, &m))
		if m["type"] == typ {
			out = append(out, m)
		}
	}
	return out
}

func (c *fakeConn) last(t *testing.T, typ string) map[string]any {
	t.Helper()
	msgs := c.received(t, typ)
	require.NotEmpty(t, msgs, "no %s message", typ)
	return msgs[len(msgs)-1]
}

type fakeRecorder struct {
	results chan store.Result
}

func (r *fakeRecorder) Record(_ context.Context, res store.Result) error {
	r.results <- res
	return nil
}

func newTestSession(t *testing.T, teamSize int) (*Session, *fakeRecorder) {
	t.Helper()
	tokens, err := NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	rec := &fakeRecorder{results: make(chan store.Result, 4)}
	s := NewSession(SessionConfig{
		Mode:     game.ModeBomb,
		TeamSize: teamSize,
		Rand:     rand.New(rand.NewSource(1)),
		Tokens:   tokens,
		Results:  rec,
		Logger:   zerolog.Nop(),
	})
	return s, rec
}

func joinAs(t *testing.T, s *Session, conn Conn, msg protocol.JoinLobby) JoinResult {
	t.Helper()
	msg.Type = protocol.MsgJoinLobby
	reply := make(chan JoinResult, 1)
	s.handle(Join{Conn: conn, Msg: msg, Reply: reply})
	return <-reply
}

func mustJoin(t *testing.T, s *Session, conn Conn, name, team string) string {
	t.Helper()
	res := joinAs(t, s, conn, protocol.JoinLobby{Name: name, Team: team})
	require.NoError(t, res.Err)
	return res.PlayerID
}

func send(t *testing.T, s *Session, id string, conn *fakeConn, msg any) {
	t.Helper()
	data, err := conn.codec.Marshal(msg)
	require.NoError(t, err)
	s.handle(Message{PlayerID: id, Data: data})
}

func steps(s *Session, n int) {
	for i := 0; i < n; i++ {
		s.world.Step()
	}
}

// startMatch joins one human per team, readies both and runs the countdown.
func startMatch(t *testing.T, s *Session) (alice, bob string, aliceConn, bobConn *fakeConn) {
	t.Helper()
	aliceConn, bobConn = newFakeConn(), newFakeConn()
	alice = mustJoin(t, s, aliceConn, "alice", "red")
	bob = mustJoin(t, s, bobConn, "bob", "blue")
	send(t, s, alice, aliceConn, protocol.PlayerReady{Type: protocol.MsgPlayerReady, Ready: true})
	send(t, s, bob, bobConn, protocol.PlayerReady{Type: protocol.MsgPlayerReady, Ready: true})
	require.Equal(t, game.PhaseCountdown, s.world.Round().Phase)
	steps(s, game.CountdownSeconds*game.TickRate)
	require.Equal(t, game.PhaseActive, s.world.Round().Phase)
	return alice, bob, aliceConn, bobConn
}

func TestJoinSendsWelcomeAndLobby(t *testing.T) {
	s, _ := newTestSession(t, 2)
	conn := newFakeConn()
	id := mustJoin(t, s, conn, "alice", "red")

	welcome := conn.last(t, protocol.MsgWelcome)
	assert.Equal(t, id, welcome["playerId"])
	assert.Equal(t, "red", welcome["team"])
	assert.NotEmpty(t, welcome["token"])

	lobby := conn.last(t, protocol.MsgLobbyState)
	assert.Equal(t, "lobby", lobby["phase"])
	players := lobby["players"].([]any)
	assert.Len(t, players, 4, "alice, one red bot and two blue bots")
}

func TestJoinAnnouncesToOthers(t *testing.T) {
	s, _ := newTestSession(t, 2)
	aliceConn, bobConn := newFakeConn(), newFakeConn()
	mustJoin(t, s, aliceConn, "alice", "red")
	bob := mustJoin(t, s, bobConn, "bob", "")

	joined := aliceConn.last(t, protocol.MsgPlayerJoined)
	assert.Equal(t, bob, joined["id"])
	assert.Equal(t, "blue", joined["team"], "unassigned players balance onto the smaller team")
	assert.Empty(t, bobConn.received(t, protocol.MsgPlayerJoined))
}

func TestJoinDefaultsName(t *testing.T) {
	s, _ := newTestSession(t, 0)
	id := mustJoin(t, s, newFakeConn(), "", "red")

	p, ok := s.world.Round().Participant(id)
	require.True(t, ok)
	assert.Equal(t, "Player "+id[:4], p.Name)
}

func TestRejoinTokenKeepsIdentity(t *testing.T) {
	s, _ := newTestSession(t, 1)
	first := newFakeConn()
	id := mustJoin(t, s, first, "alice", "blue")
	token := first.last(t, protocol.MsgWelcome)["token"].(string)

	s.handle(Leave{PlayerID: id, Conn: first})
	assert.True(t, first.closed)
	_, still := s.world.Round().Participant(id)
	assert.False(t, still)

	second := newFakeConn()
	res := joinAs(t, s, second, protocol.JoinLobby{Name: "alice", Token: token})
	require.NoError(t, res.Err)
	assert.Equal(t, id, res.PlayerID)
	assert.Equal(t, "blue", second.last(t, protocol.MsgWelcome)["team"])
}

func TestRejoinTokenIgnoredWhileConnected(t *testing.T) {
	s, _ := newTestSession(t, 1)
	first := newFakeConn()
	id := mustJoin(t, s, first, "alice", "blue")
	token := first.last(t, protocol.MsgWelcome)["token"].(string)

	res := joinAs(t, s, newFakeConn(), protocol.JoinLobby{Name: "copy", Token: token})
	require.NoError(t, res.Err)
	assert.NotEqual(t, id, res.PlayerID)
}

func TestInvalidTokenGetsFreshID(t *testing.T) {
	s, _ := newTestSession(t, 1)
	res := joinAs(t, s, newFakeConn(), protocol.JoinLobby{Name: "eve", Token: "not-a-token"})
	require.NoError(t, res.Err)
	assert.NotEmpty(t, res.PlayerID)
}

func TestStaleLeaveIsIgnored(t *testing.T) {
	s, _ := newTestSession(t, 0)
	conn := newFakeConn()
	id := mustJoin(t, s, conn, "alice", "red")

	s.handle(Leave{PlayerID: id, Conn: newFakeConn()})
	_, still := s.world.Round().Participant(id)
	assert.True(t, still)
	assert.False(t, conn.closed)
}

func TestLeaveBroadcastsAndRefillsBots(t *testing.T) {
	s, _ := newTestSession(t, 1)
	aliceConn, bobConn := newFakeConn(), newFakeConn()
	mustJoin(t, s, aliceConn, "alice", "red")
	bob := mustJoin(t, s, bobConn, "bob", "blue")

	s.handle(Leave{PlayerID: bob, Conn: bobConn})

	assert.Equal(t, bob, aliceConn.last(t, protocol.MsgPlayerLeft)["id"])
	humans, bots := s.world.Round().Count(game.TeamBlue)
	assert.Equal(t, 0, humans)
	assert.Equal(t, 1, bots)
}

func TestReadyStartsCountdownAndRound(t *testing.T) {
	s, _ := newTestSession(t, 1)
	_, _, aliceConn, bobConn := startMatch(t, s)

	countdowns := aliceConn.received(t, protocol.MsgCountdown)
	require.Len(t, countdowns, game.CountdownSeconds)
	assert.EqualValues(t, 10, countdowns[0]["seconds"])
	assert.EqualValues(t, 1, countdowns[9]["seconds"])

	start := bobConn.last(t, protocol.MsgGameStart)
	assert.Equal(t, "bomb", start["mode"])
	assert.Len(t, start["players"].([]any), 2)

	steps(s, snapshotEvery)
	state := aliceConn.last(t, protocol.MsgGameState)
	assert.Equal(t, "active", state["phase"])
	assert.Len(t, state["players"].([]any), 2)
	bomb := state["bomb"].(map[string]any)
	assert.Equal(t, "carried", bomb["state"])

	count, size := s.Stats()
	assert.Positive(t, count)
	assert.Positive(t, size)
}

func TestStartGameErrors(t *testing.T) {
	s, _ := newTestSession(t, 1)
	conn := newFakeConn()
	id := mustJoin(t, s, conn, "alice", "red")

	send(t, s, id, conn, protocol.StartGame{Type: protocol.MsgStartGame, Mode: "capture"})
	assert.Contains(t, conn.last(t, protocol.MsgError)["message"], "invalid mode")

	send(t, s, id, conn, protocol.StartGame{Type: protocol.MsgStartGame, Mode: "battle"})
	assert.Contains(t, conn.last(t, protocol.MsgError)["message"], "ready")
	assert.Equal(t, game.ModeBattle, s.world.Round().Mode)
	assert.Equal(t, game.PhaseLobby, s.world.Round().Phase)
}

func TestSelectTeamRebalancesBots(t *testing.T) {
	s, _ := newTestSession(t, 2)
	conn := newFakeConn()
	id := mustJoin(t, s, conn, "alice", "red")

	send(t, s, id, conn, protocol.SelectTeam{Type: protocol.MsgSelectTeam, Team: "blue"})

	_, redBots := s.world.Round().Count(game.TeamRed)
	blueHumans, blueBots := s.world.Round().Count(game.TeamBlue)
	assert.Equal(t, 2, redBots)
	assert.Equal(t, 1, blueHumans)
	assert.Equal(t, 1, blueBots)

	send(t, s, id, conn, protocol.SelectTeam{Type: protocol.MsgSelectTeam, Team: "green"})
	assert.Contains(t, conn.last(t, protocol.MsgError)["message"], "invalid team")
}

func TestUnknownAndRepeatedJoin(t *testing.T) {
	s, _ := newTestSession(t, 0)
	conn := newFakeConn()
	id := mustJoin(t, s, conn, "alice", "red")

	send(t, s, id, conn, protocol.Header{Type: "dance"})
	assert.Contains(t, conn.last(t, protocol.MsgError)["message"], "unknown message type")

	send(t, s, id, conn, protocol.JoinLobby{Type: protocol.MsgJoinLobby, Name: "again"})
	assert.Equal(t, "already joined", conn.last(t, protocol.MsgError)["message"])

	s.handle(Message{PlayerID: id, Data: nil})
	assert.Contains(t, conn.last(t, protocol.MsgError)["message"], "empty message")
}

func TestPlayerUpdateRelaysToOthers(t *testing.T) {
	s, _ := newTestSession(t, 1)
	alice, _, aliceConn, bobConn := startMatch(t, s)

	tank, ok := s.world.Tank(alice)
	require.True(t, ok)
	target := tank.Position.Add(game.Vec3{X: 0.5})
	send(t, s, alice, aliceConn, protocol.PlayerUpdate{
		Type:     protocol.MsgPlayerUpdate,
		Position: protocol.Vec3{X: target.X, Y: 99, Z: target.Z},
		Rotation: 0.3,
	})

	move := bobConn.last(t, protocol.MsgTankMove)
	assert.Equal(t, alice, move["id"])
	assert.InDelta(t, target.X, move["position"].(map[string]any)["x"], 1e-9)
	assert.InDelta(t, 0.3, move["rotation"], 1e-9)
	assert.Empty(t, aliceConn.received(t, protocol.MsgTankMove))

	before := len(bobConn.received(t, protocol.MsgTankMove))
	send(t, s, alice, aliceConn, protocol.PlayerUpdate{
		Type:     protocol.MsgPlayerUpdate,
		Position: protocol.Vec3{X: target.X + 40, Z: target.Z},
	})
	assert.Len(t, bobConn.received(t, protocol.MsgTankMove), before, "rejected poses are not relayed")
}

func TestProjectileFiredBroadcasts(t *testing.T) {
	s, _ := newTestSession(t, 1)
	alice, _, aliceConn, bobConn := startMatch(t, s)

	send(t, s, alice, aliceConn, protocol.ProjectileFired{Type: protocol.MsgProjectileFired})
	send(t, s, alice, aliceConn, protocol.ProjectileFired{Type: protocol.MsgProjectileFired})

	fires := bobConn.received(t, protocol.MsgTankFire)
	require.Len(t, fires, 1, "second shot is inside the cooldown")
	assert.Equal(t, alice, fires[0]["id"])
	assert.Len(t, aliceConn.received(t, protocol.MsgTankFire), 1)
}

func TestBombRoundEndsAndIsRecorded(t *testing.T) {
	s, rec := newTestSession(t, 1)
	alice, bob, aliceConn, bobConn := startMatch(t, s)

	aliceTank, _ := s.world.Tank(alice)
	bobTank, _ := s.world.Tank(bob)
	require.True(t, aliceTank.HasBomb)
	aliceTank.Position = game.Vec3{X: 33, Y: 1, Z: 31}
	bobTank.Position = game.Vec3{X: 10, Y: 1, Z: 40}

	send(t, s, alice, aliceConn, protocol.BombAction{Type: protocol.MsgPlantBomb})
	steps(s, 10)

	progress := aliceConn.last(t, protocol.MsgActionProgress)
	assert.Equal(t, game.LabelPlanting, progress["label"])
	assert.Equal(t, true, progress["active"])
	assert.Empty(t, bobConn.received(t, protocol.MsgActionProgress))

	steps(s, int(game.PlantDuration/game.TickInterval))
	planted := bobConn.last(t, protocol.MsgBombPlanted)
	assert.Equal(t, alice, planted["by"])
	assert.Equal(t, false, aliceConn.last(t, protocol.MsgActionProgress)["active"])

	steps(s, int(game.FuseDuration/game.TickInterval)+1)
	require.Equal(t, game.PhaseEnded, s.world.Round().Phase)
	assert.NotEmpty(t, bobConn.received(t, protocol.MsgBombExploded))
	end := bobConn.last(t, protocol.MsgGameEnd)
	assert.Equal(t, "red", end["winner"])
	assert.EqualValues(t, 1, end["scores"].(map[string]any)["red"])

	select {
	case res := <-rec.results:
		assert.Equal(t, "red", res.Winner)
		assert.Equal(t, "bomb", res.Mode)
		assert.Equal(t, 1, res.RedScore)
		assert.Equal(t, s.world.Round().ID, res.RoundID)
	case <-time.After(time.Second):
		t.Fatal("round result was not recorded")
	}

	send(t, s, alice, aliceConn, protocol.Header{Type: protocol.MsgRestartGame})
	lobby := bobConn.last(t, protocol.MsgLobbyState)
	assert.Equal(t, "lobby", lobby["phase"])
	for _, p := range lobby["players"].([]any) {
		assert.Equal(t, false, p.(map[string]any)["ready"])
	}
}

func TestBroadcastSkipsFullAndDropsClosed(t *testing.T) {
	s, _ := newTestSession(t, 0)
	ok, full, gone := newFakeConn(), newFakeConn(), newFakeConn()
	mustJoin(t, s, ok, "ok", "red")
	fullID := mustJoin(t, s, full, "full", "red")
	goneID := mustJoin(t, s, gone, "gone", "blue")

	full.full = true
	gone.closed = true
	s.broadcast(protocol.Countdown{Type: protocol.MsgCountdown, Seconds: 3}, "")

	_, fullStill := s.world.Round().Participant(fullID)
	_, goneStill := s.world.Round().Participant(goneID)
	assert.True(t, fullStill)
	assert.False(t, goneStill)
	assert.Equal(t, goneID, ok.last(t, protocol.MsgPlayerLeft)["id"])
}

func TestMsgpackClientGetsBinaryFrames(t *testing.T) {
	s, _ := newTestSession(t, 0)
	conn := &fakeConn{codec: protocol.Msgpack}
	id := mustJoin(t, s, conn, "alice", "red")

	require.NotEmpty(t, conn.sent)
	welcome, err := protocol.Decode[protocol.Welcome](protocol.Msgpack, conn.sent[0])
	require.NoError(t, err)
	assert.Equal(t, protocol.MsgWelcome, welcome.Type)
	assert.Equal(t, id, welcome.PlayerID)
}
