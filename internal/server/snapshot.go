package server

import (
	"sync/atomic"

	"github.com/hg192/tankGPT/internal/game"
	"github.com/hg192/tankGPT/internal/protocol"
)

// SnapshotStats counts game_state frames handed to clients.
type SnapshotStats struct {
	count atomic.Int64
	bytes atomic.Int64
}

func (s *SnapshotStats) add(size int) {
	s.count.Add(1)
	s.bytes.Add(int64(size))
}

// Load returns the number of snapshots sent and their total size in bytes.
func (s *SnapshotStats) Load() (count, totalSize int64) {
	return s.count.Load(), s.bytes.Load()
}

func vec(v game.Vec3) protocol.Vec3 {
	return protocol.Vec3{X: v.X, Y: v.Y, Z: v.Z}
}

func playerState(t *game.Tank) protocol.PlayerState {
	return protocol.PlayerState{
		ID:       t.ID,
		Name:     t.Name,
		Team:     string(t.Team),
		Position: vec(t.Position),
		Rotation: t.Rotation,
		Health:   t.Health,
		IsDead:   t.IsDead,
		HasBomb:  t.HasBomb,
		Bot:      t.IsBot(),
	}
}

func playerStates(w *game.World) []protocol.PlayerState {
	tanks := w.Tanks()
	out := make([]protocol.PlayerState, 0, len(tanks))
	for _, t := range tanks {
		out = append(out, playerState(t))
	}
	return out
}

func teamScores(r *game.Round) map[string]int {
	out := make(map[string]int, len(r.Teams))
	for team, score := range r.Scores() {
		out[string(team)] = score
	}
	return out
}

func lobbyState(w *game.World) protocol.LobbyState {
	r := w.Round()
	msg := protocol.LobbyState{
		Type:    protocol.MsgLobbyState,
		Phase:   string(r.Phase),
		Mode:    string(r.Mode),
		Players: make([]protocol.LobbyPlayer, 0, len(r.Participants)),
		Scores:  teamScores(r),
	}
	for _, p := range r.Participants {
		msg.Players = append(msg.Players, protocol.LobbyPlayer{
			ID:    p.ID,
			Name:  p.Name,
			Team:  string(p.Team),
			Ready: p.Ready,
			Bot:   p.Bot,
		})
	}
	return msg
}

func gameState(w *game.World) protocol.GameState {
	r := w.Round()
	bullets := w.Bullets()
	msg := protocol.GameState{
		Type:    protocol.MsgGameState,
		Tick:    w.Tick(),
		Phase:   string(r.Phase),
		Players: playerStates(w),
		Bullets: make([]protocol.BulletState, 0, len(bullets)),
		Teams:   make(map[string]protocol.TeamState, len(r.Teams)),
	}
	for _, b := range bullets {
		msg.Bullets = append(msg.Bullets, protocol.BulletState{
			ID:        b.ID,
			OwnerID:   b.OwnerID,
			Position:  vec(b.Position),
			Direction: vec(b.Direction),
		})
	}
	for team, ts := range r.Teams {
		state := protocol.TeamState{Members: make([]string, 0, len(ts.Members)), Score: ts.Score}
		for _, t := range ts.Members {
			state.Members = append(state.Members, t.ID)
		}
		if ts.BombSite != nil {
			site := vec(*ts.BombSite)
			state.BombSite = &site
		}
		msg.Teams[string(team)] = state
	}
	if b := w.Bomb(); b != nil {
		now := w.Now()
		bomb := &protocol.BombState{
			State:         string(b.State),
			Position:      vec(b.Position),
			Progress:      b.Progress(now),
			FuseRemaining: b.FuseRemaining(now).Milliseconds(),
			Blink:         b.Blink,
		}
		if b.Carrier != nil {
			bomb.Carrier = b.Carrier.ID
		}
		msg.Bomb = bomb
	}
	return msg
}
