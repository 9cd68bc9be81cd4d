package server

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hg192/tankGPT/internal/game"
	"github.com/hg192/tankGPT/internal/protocol"
	"github.com/hg192/tankGPT/internal/store"
)

const (
	// snapshotEvery sends game_state on every third tick.
	snapshotEvery = 3
	inboxSize     = 256
	recordTimeout = 5 * time.Second
	progressStep  = 0.05
)

// ResultRecorder persists finished rounds.
type ResultRecorder interface {
	Record(ctx context.Context, r store.Result) error
}

type SessionConfig struct {
	Mode     game.Mode
	TeamSize int
	Rand     *rand.Rand
	Tokens   *TokenIssuer
	Results  ResultRecorder
	Logger   zerolog.Logger
}

// Session runs one shared match. The world, the client table and every
// message handler live on the goroutine that runs Run; other goroutines talk
// to it through Inbox.
type Session struct {
	Inbox chan any

	world   *game.World
	tokens  *TokenIssuer
	results ResultRecorder
	log     zerolog.Logger

	clients  map[string]Conn
	progress map[string]float64
	stats    SnapshotStats

	done    chan struct{}
	records sync.WaitGroup
}

func NewSession(cfg SessionConfig) *Session {
	s := &Session{
		Inbox:    make(chan any, inboxSize),
		tokens:   cfg.Tokens,
		results:  cfg.Results,
		log:      cfg.Logger.With().Str("component", "session").Logger(),
		clients:  make(map[string]Conn),
		progress: make(map[string]float64),
		done:     make(chan struct{}),
	}
	s.world = game.NewWorld(game.Options{
		Logger:   &cfg.Logger,
		Rand:     cfg.Rand,
		Mode:     cfg.Mode,
		TeamSize: cfg.TeamSize,
		Renderer: s,
		UI:       s,
		Hooks: game.Hooks{
			PhaseChanged: s.onPhaseChanged,
			TankFired:    s.onTankFired,
			TankDied:     s.onTankDied,
			BombPlanted:  s.onBombPlanted,
			BombDefused:  s.onBombDefused,
			BombExploded: s.onBombExploded,
			RoundEnded:   s.onRoundEnded,
		},
	})
	s.world.ReconcileBots()
	return s
}

// Run drives the simulation at the tick rate until ctx is cancelled.
func (s *Session) Run(ctx context.Context) {
	ticker := time.NewTicker(game.TickInterval)
	defer func() {
		ticker.Stop()
		for _, c := range s.clients {
			c.Close()
		}
		s.records.Wait()
		close(s.done)
	}()

	s.log.Info().Str("mode", string(s.world.Round().Mode)).Msg("session running")
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-s.Inbox:
			s.handle(cmd)
		case <-ticker.C:
			s.world.Step()
		}
	}
}

// Done is closed once Run has returned.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Submit queues cmd for the session goroutine. It reports false once the
// session has stopped.
func (s *Session) Submit(cmd any) bool {
	select {
	case s.Inbox <- cmd:
		return true
	case <-s.done:
		return false
	}
}

// Stats returns snapshot counters. Safe for concurrent use.
func (s *Session) Stats() (count, totalSize int64) {
	return s.stats.Load()
}

func (s *Session) handle(cmd any) {
	switch c := cmd.(type) {
	case Join:
		id, err := s.join(c.Conn, c.Msg)
		c.Reply <- JoinResult{PlayerID: id, Err: err}
	case Message:
		s.handleMessage(c.PlayerID, c.Data)
	case Leave:
		if conn, ok := s.clients[c.PlayerID]; ok && conn == c.Conn {
			s.leave(c.PlayerID)
		}
	default:
		s.log.Warn().Str("command", fmt.Sprintf("%T", cmd)).Msg("unknown command")
	}
}

func (s *Session) join(conn Conn, msg protocol.JoinLobby) (string, error) {
	id := ""
	team := game.Team(msg.Team)
	if msg.Token != "" && s.tokens != nil {
		tokenID, tokenTeam, err := s.tokens.Parse(msg.Token)
		if err != nil {
			s.log.Debug().Err(err).Msg("ignoring rejoin token")
		} else if _, taken := s.clients[tokenID]; !taken {
			id = tokenID
			if !team.Valid() {
				team = tokenTeam
			}
		}
	}
	if id == "" {
		id = uuid.NewString()
	}
	name := msg.Name
	if name == "" {
		name = "Player " + id[:4]
	}

	p, err := s.world.AddParticipant(id, name, team)
	if err != nil {
		return "", err
	}
	s.clients[id] = conn
	s.world.ReconcileBots()

	welcome := protocol.Welcome{Type: protocol.MsgWelcome, PlayerID: id, Team: string(p.Team)}
	if s.tokens != nil {
		if welcome.Token, err = s.tokens.Issue(id, p.Team); err != nil {
			s.log.Error().Err(err).Str("id", id).Msg("issue rejoin token")
		}
	}
	s.sendTo(id, welcome)
	s.broadcast(protocol.PlayerJoined{
		Type: protocol.MsgPlayerJoined,
		ID:   id,
		Name: p.Name,
		Team: string(p.Team),
	}, id)

	if s.world.Round().Phase == game.PhaseActive {
		s.sendTo(id, s.gameStart())
	} else {
		s.broadcast(lobbyState(s.world), "")
	}
	return id, nil
}

func (s *Session) leave(id string) {
	conn, ok := s.clients[id]
	if !ok {
		return
	}
	delete(s.clients, id)
	delete(s.progress, id)
	conn.Close()

	if err := s.world.RemoveParticipant(id); err != nil {
		s.log.Debug().Err(err).Str("id", id).Msg("leave")
	}
	s.world.ReconcileBots()
	s.broadcast(protocol.PlayerLeft{Type: protocol.MsgPlayerLeft, ID: id}, "")
	if s.world.Round().Phase != game.PhaseActive {
		s.broadcast(lobbyState(s.world), "")
	}
}

func (s *Session) handleMessage(id string, data []byte) {
	conn, ok := s.clients[id]
	if !ok {
		return
	}
	codec := conn.Codec()
	typ, err := protocol.DecodeType(codec, data)
	if err != nil {
		s.sendError(id, err)
		return
	}

	switch typ {
	case protocol.MsgJoinLobby:
		s.sendError(id, errors.New("already joined"))

	case protocol.MsgSelectTeam:
		msg, err := protocol.Decode[protocol.SelectTeam](codec, data)
		if err == nil {
			err = s.world.SelectTeam(id, game.Team(msg.Team))
		}
		if err != nil {
			s.sendError(id, err)
			return
		}
		s.world.ReconcileBots()
		s.broadcast(lobbyState(s.world), "")

	case protocol.MsgPlayerReady:
		msg, err := protocol.Decode[protocol.PlayerReady](codec, data)
		if err == nil {
			err = s.world.SetReady(id, msg.Ready)
		}
		if err != nil {
			s.sendError(id, err)
			return
		}
		s.broadcast(lobbyState(s.world), "")
		if msg.Ready {
			if err := s.world.StartCountdown(); err != nil && !errors.Is(err, game.ErrNotReady) {
				s.log.Debug().Err(err).Msg("auto start")
			}
		}

	case protocol.MsgStartGame:
		msg, err := protocol.Decode[protocol.StartGame](codec, data)
		if err == nil && msg.Mode != "" {
			err = s.world.SetMode(game.Mode(msg.Mode))
		}
		if err == nil {
			err = s.world.StartCountdown()
		}
		if err != nil {
			s.sendError(id, err)
		}

	case protocol.MsgPlayerUpdate:
		msg, err := protocol.Decode[protocol.PlayerUpdate](codec, data)
		if err != nil {
			s.sendError(id, err)
			return
		}
		pos := game.Vec3{X: msg.Position.X, Y: msg.Position.Y, Z: msg.Position.Z}
		if err := s.world.SetPose(id, pos, msg.Rotation); err != nil {
			s.log.Trace().Err(err).Str("id", id).Msg("pose ignored")
			return
		}
		t, _ := s.world.Tank(id)
		s.broadcast(protocol.TankMove{
			Type:     protocol.MsgTankMove,
			ID:       id,
			Position: vec(t.Position),
			Rotation: t.Rotation,
		}, id)

	case protocol.MsgProjectileFired:
		if _, err := s.world.Fire(id); err != nil {
			s.log.Trace().Err(err).Str("id", id).Msg("fire ignored")
		}

	case protocol.MsgPlantBomb, protocol.MsgDefuseBomb:
		msg, err := protocol.Decode[protocol.BombAction](codec, data)
		if err != nil {
			s.sendError(id, err)
			return
		}
		if err := s.world.HoldAction(id, !msg.Release); err != nil {
			s.log.Trace().Err(err).Str("id", id).Msg("bomb action ignored")
		}

	case protocol.MsgRestartGame:
		if err := s.world.Restart(); err != nil {
			s.sendError(id, err)
			return
		}
		s.progress = make(map[string]float64)
		s.world.ReconcileBots()
		s.broadcast(lobbyState(s.world), "")

	default:
		s.sendError(id, fmt.Errorf("%w: %q", protocol.ErrUnknownMessage, typ))
	}
}

func (s *Session) gameStart() protocol.GameStart {
	return protocol.GameStart{
		Type:    protocol.MsgGameStart,
		Mode:    string(s.world.Round().Mode),
		Players: playerStates(s.world),
	}
}

// broadcast encodes msg once per codec and queues it for every client except
// the one with id except. Clients whose queue is full miss this message;
// closed clients are dropped.
func (s *Session) broadcast(msg any, except string) int {
	encoded := make(map[string][]byte, 2)
	var dead []string
	size := 0
	for id, conn := range s.clients {
		if id == except {
			continue
		}
		codec := conn.Codec()
		data, ok := encoded[codec.Name()]
		if !ok {
			var err error
			if data, err = codec.Marshal(msg); err != nil {
				s.log.Error().Err(err).Str("codec", codec.Name()).Msg("encode broadcast")
				continue
			}
			encoded[codec.Name()] = data
		}
		switch err := conn.Send(data); {
		case err == nil:
			size += len(data)
		case errors.Is(err, ErrSendBufferFull):
			s.log.Debug().Str("id", id).Msg("send buffer full, skipping")
		default:
			dead = append(dead, id)
		}
	}
	for _, id := range dead {
		s.leave(id)
	}
	return size
}

func (s *Session) sendTo(id string, msg any) {
	conn, ok := s.clients[id]
	if !ok {
		return
	}
	data, err := conn.Codec().Marshal(msg)
	if err != nil {
		s.log.Error().Err(err).Msg("encode message")
		return
	}
	if err := conn.Send(data); err != nil {
		s.log.Debug().Err(err).Str("id", id).Msg("send failed")
	}
}

func (s *Session) sendError(id string, err error) {
	s.sendTo(id, protocol.NewError(err.Error()))
}

// RenderFrame publishes a snapshot on the broadcast cadence.
func (s *Session) RenderFrame(f game.Frame) {
	if f.Phase != game.PhaseActive || f.Tick%snapshotEvery != 0 || len(s.clients) == 0 {
		return
	}
	size := s.broadcast(gameState(s.world), "")
	if size > 0 {
		s.stats.add(size)
	}
}

func (s *Session) ShowProgress(tankID, label string, progress float64) {
	last, shown := s.progress[tankID]
	if shown && progress < 1 && progress-last < progressStep {
		return
	}
	s.progress[tankID] = progress
	s.sendTo(tankID, protocol.ActionProgress{
		Type:     protocol.MsgActionProgress,
		Label:    label,
		Progress: progress,
		Active:   true,
	})
}

func (s *Session) HideProgress(tankID string) {
	if _, shown := s.progress[tankID]; !shown {
		return
	}
	delete(s.progress, tankID)
	s.sendTo(tankID, protocol.ActionProgress{Type: protocol.MsgActionProgress})
}

// ShowHealth is a no-op; health travels in every snapshot.
func (s *Session) ShowHealth(string, int) {}

func (s *Session) ShowCountdown(seconds int) {
	s.broadcast(protocol.Countdown{Type: protocol.MsgCountdown, Seconds: seconds}, "")
}

func (s *Session) ShowResult(r game.RoundResult) {
	scores := make(map[string]int, len(r.Scores))
	for team, score := range r.Scores {
		scores[string(team)] = score
	}
	s.broadcast(protocol.GameEnd{
		Type:   protocol.MsgGameEnd,
		Winner: string(r.Winner),
		Scores: scores,
	}, "")
}

func (s *Session) onPhaseChanged(phase game.Phase) {
	switch phase {
	case game.PhaseCountdown:
		s.broadcast(lobbyState(s.world), "")
	case game.PhaseActive:
		s.broadcast(s.gameStart(), "")
	}
}

func (s *Session) onTankFired(t *game.Tank, b *game.Bullet) {
	s.broadcast(protocol.TankFire{
		Type:      protocol.MsgTankFire,
		ID:        t.ID,
		Position:  vec(b.Position),
		Direction: vec(b.Direction),
	}, "")
}

func (s *Session) onTankDied(victim, killer *game.Tank, cause game.KillCause) {
	delete(s.progress, victim.ID)
}

func (s *Session) onBombPlanted(planter *game.Tank, pos game.Vec3) {
	s.broadcast(protocol.BombPlanted{Type: protocol.MsgBombPlanted, By: planter.ID, Position: vec(pos)}, "")
}

func (s *Session) onBombDefused(defuser *game.Tank) {
	s.broadcast(protocol.BombDefused{Type: protocol.MsgBombDefused, By: defuser.ID}, "")
}

func (s *Session) onBombExploded(pos game.Vec3) {
	s.broadcast(protocol.BombExploded{Type: protocol.MsgBombExploded, Position: vec(pos)}, "")
}

// onRoundEnded stores the result off the tick goroutine.
func (s *Session) onRoundEnded(r game.RoundResult) {
	if s.results == nil {
		return
	}
	rec := store.Result{
		RoundID:    r.RoundID,
		Mode:       string(r.Mode),
		Winner:     string(r.Winner),
		RedScore:   r.Scores[game.TeamRed],
		BlueScore:  r.Scores[game.TeamBlue],
		DurationMs: r.Duration.Milliseconds(),
		EndedAt:    r.EndedAt,
	}
	s.records.Add(1)
	go func() {
		defer s.records.Done()
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := s.results.Record(ctx, rec); err != nil {
			s.log.Error().Err(err).Str("round", rec.RoundID).Msg("failed to record round")
		}
	}()
}
