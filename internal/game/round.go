package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TeamState is one side of the round.
type TeamState struct {
	Name     Team
	Members  []*Tank
	BombSite *Vec3
	Score    int
}

// Round holds the phase machine, the lobby roster and the team scores.
// Scores carry over from one round to the next.
type Round struct {
	ID           string
	Phase        Phase
	Mode         Mode
	Winner       Team
	Teams        map[Team]*TeamState
	Participants []*Participant
	StartedAt    time.Duration
	Countdown    int
}

func newRound(mode Mode) *Round {
	r := &Round{
		Phase: PhaseLobby,
		Mode:  mode,
		Teams: make(map[Team]*TeamState, len(Teams)),
	}
	for _, team := range Teams {
		r.Teams[team] = &TeamState{Name: team}
	}
	return r
}

// Participant returns the roster entry of id.
func (r *Round) Participant(id string) (*Participant, bool) {
	for _, p := range r.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// Count returns the number of humans and bots on team.
func (r *Round) Count(team Team) (humans, bots int) {
	for _, p := range r.Participants {
		if p.Team != team {
			continue
		}
		if p.Bot {
			bots++
		} else {
			humans++
		}
	}
	return humans, bots
}

// Scores returns a copy of the team scores.
func (r *Round) Scores() map[Team]int {
	out := make(map[Team]int, len(r.Teams))
	for team, ts := range r.Teams {
		out[team] = ts.Score
	}
	return out
}

// TeamsReady reports whether every team has at least one member and every
// member is ready.
func (r *Round) TeamsReady() bool {
	for _, team := range Teams {
		members := 0
		for _, p := range r.Participants {
			if p.Team != team {
				continue
			}
			members++
			if !p.Ready {
				return false
			}
		}
		if members == 0 {
			return false
		}
	}
	return true
}

// AddParticipant puts a human on the roster. An invalid team is replaced by
// the team with fewer humans. Joining mid-round spawns a tank immediately.
func (w *World) AddParticipant(id, name string, team Team) (*Participant, error) {
	if _, exists := w.round.Participant(id); exists {
		return nil, ErrDuplicateID
	}
	if !team.Valid() {
		team = w.smallerTeam()
	}
	p := &Participant{ID: id, Name: name, Team: team}
	w.round.Participants = append(w.round.Participants, p)
	w.log.Info().Str("id", id).Str("name", name).Str("team", string(team)).Msg("participant joined")

	if w.round.Phase == PhaseActive {
		w.spawnParticipant(p)
	}
	return p, nil
}

// RemoveParticipant drops id from the roster and removes its tank.
func (w *World) RemoveParticipant(id string) error {
	idx := -1
	for i, p := range w.round.Participants {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrUnknownParticipant
	}
	w.round.Participants = append(w.round.Participants[:idx], w.round.Participants[idx+1:]...)
	if t, ok := w.Tank(id); ok {
		w.removeTank(t)
	}
	w.log.Info().Str("id", id).Msg("participant left")
	return nil
}

// SelectTeam moves a participant to team while in the lobby.
func (w *World) SelectTeam(id string, team Team) error {
	if w.round.Phase != PhaseLobby {
		return ErrWrongPhase
	}
	if !team.Valid() {
		return ErrInvalidTeam
	}
	p, ok := w.round.Participant(id)
	if !ok {
		return ErrUnknownParticipant
	}
	p.Team = team
	return nil
}

// SetReady updates a participant's lobby readiness.
func (w *World) SetReady(id string, ready bool) error {
	if w.round.Phase != PhaseLobby {
		return ErrWrongPhase
	}
	p, ok := w.round.Participant(id)
	if !ok {
		return ErrUnknownParticipant
	}
	p.Ready = ready
	return nil
}

// SetMode changes the mode of the next round.
func (w *World) SetMode(mode Mode) error {
	if w.round.Phase != PhaseLobby {
		return ErrWrongPhase
	}
	if !mode.Valid() {
		return ErrInvalidMode
	}
	w.round.Mode = mode
	return nil
}

// SetTeamSize changes the per-team target used by ReconcileBots.
func (w *World) SetTeamSize(size int) {
	w.teamSize = max(size, 0)
}

// ReconcileBots tops each team up to the team size with bots, or trims
// surplus bots. Mid-round additions spawn staggered by BotSpawnStagger.
func (w *World) ReconcileBots() {
	for _, team := range Teams {
		humans, bots := w.round.Count(team)
		want := max(w.teamSize-humans, 0)

		for bots > want {
			w.removeLastBot(team)
			bots--
		}

		for i := 0; bots < want; i++ {
			w.nextBotID++
			p := &Participant{
				ID:    fmt.Sprintf("bot-%d", w.nextBotID),
				Name:  fmt.Sprintf("Bot %d", w.nextBotID),
				Team:  team,
				Ready: true,
				Bot:   true,
			}
			w.round.Participants = append(w.round.Participants, p)
			bots++

			if w.round.Phase != PhaseActive {
				continue
			}
			roundID := w.round.ID
			w.sched.After(time.Duration(i)*BotSpawnStagger, func() {
				if w.round.ID != roundID || w.round.Phase != PhaseActive {
					return
				}
				if _, still := w.round.Participant(p.ID); !still {
					return
				}
				w.spawnParticipant(p)
			})
		}
	}
}

func (w *World) removeLastBot(team Team) {
	for i := len(w.round.Participants) - 1; i >= 0; i-- {
		p := w.round.Participants[i]
		if p.Bot && p.Team == team {
			_ = w.RemoveParticipant(p.ID)
			return
		}
	}
}

func (w *World) smallerTeam() Team {
	redHumans, redBots := w.round.Count(TeamRed)
	blueHumans, blueBots := w.round.Count(TeamBlue)
	if blueHumans < redHumans || (blueHumans == redHumans && blueHumans+blueBots < redHumans+redBots) {
		return TeamBlue
	}
	return TeamRed
}

// StartCountdown moves the lobby to the countdown once every team is ready.
func (w *World) StartCountdown() error {
	if w.round.Phase != PhaseLobby {
		return ErrWrongPhase
	}
	if !w.round.TeamsReady() {
		return ErrNotReady
	}

	r := w.round
	r.ID = uuid.NewString()
	r.Winner = TeamNone
	r.Countdown = CountdownSeconds

	w.arena = NewArena(r.Mode, w.rng)
	for team, ts := range r.Teams {
		ts.BombSite = nil
		if site, ok := w.arena.BombSite(team); ok {
			ts.BombSite = &site
		}
	}

	w.log.Info().Str("round", r.ID).Str("mode", string(r.Mode)).Msg("countdown started")
	w.setPhase(PhaseCountdown)
	w.ui.ShowCountdown(r.Countdown)
	w.scheduleCountdown(r.ID)
	return nil
}

func (w *World) scheduleCountdown(roundID string) {
	w.sched.After(time.Second, func() {
		r := w.round
		if r.ID != roundID || r.Phase != PhaseCountdown {
			return
		}
		r.Countdown--
		if r.Countdown <= 0 {
			w.beginRound()
			return
		}
		w.ui.ShowCountdown(r.Countdown)
		w.scheduleCountdown(roundID)
	})
}

// beginRound spawns every participant and arms the objective.
func (w *World) beginRound() {
	r := w.round
	r.StartedAt = w.Now()
	w.tanks = nil
	w.bullets = nil
	w.bomb = nil
	for _, ts := range r.Teams {
		ts.Members = nil
	}

	for _, p := range r.Participants {
		w.spawnParticipant(p)
	}

	if r.Mode == ModeBomb {
		w.bomb = NewBomb()
		w.reassignBomb()
	}

	w.log.Info().Str("round", r.ID).Int("tanks", len(w.tanks)).Msg("round started")
	w.setPhase(PhaseActive)
}

func (w *World) spawnParticipant(p *Participant) *Tank {
	ctrl := HumanController()
	if p.Bot {
		ctrl = BotController(NewBotBehavior(p.Team, w.rng))
	}
	t := NewTank(p.ID, p.Name, p.Team, w.spawnPoint(p.Team), ctrl)
	w.tanks = append(w.tanks, t)
	if ts, ok := w.round.Teams[p.Team]; ok {
		ts.Members = append(ts.Members, t)
	}

	w.ui.ShowHealth(t.ID, t.Health)
	if w.hooks.TankSpawned != nil {
		w.hooks.TankSpawned(t)
	}
	return t
}

// removeTank marks t for removal at the end of the tick and releases any
// bomb role it held.
func (w *World) removeTank(t *Tank) {
	if t.removed {
		return
	}
	wasAlive := t.Alive()
	t.removed = true

	if w.bomb != nil {
		if w.bomb.Actor() == t {
			w.bomb.Cancel()
		}
		if w.bomb.Carrier == t {
			w.bomb.Drop()
			if wasAlive {
				w.reassignBomb()
			}
		}
	}
	w.ui.HideProgress(t.ID)
	if w.hooks.TankRemoved != nil {
		w.hooks.TankRemoved(t)
	}
}

func (w *World) aliveCount(team Team) int {
	n := 0
	for _, t := range w.tanks {
		if t.Team == team && t.Alive() {
			n++
		}
	}
	return n
}

// checkRoundEnd applies the win conditions of the current mode.
func (w *World) checkRoundEnd() {
	if w.round.Phase != PhaseActive {
		return
	}
	if w.round.Mode == ModeBomb && w.bomb != nil {
		switch w.bomb.State {
		case BombExploded:
			w.endRound(TeamRed)
			return
		case BombDefused:
			w.endRound(TeamBlue)
			return
		}
	}

	red, blue := w.aliveCount(TeamRed), w.aliveCount(TeamBlue)
	if w.round.Mode == ModeBomb {
		armed := w.bomb != nil && w.bomb.Armed()
		switch {
		case blue == 0:
			w.endRound(TeamRed)
		case red == 0 && !armed:
			w.endRound(TeamBlue)
		}
		return
	}

	switch {
	case red == 0 && blue == 0:
		w.endRound(TeamNone)
	case red == 0:
		w.endRound(TeamBlue)
	case blue == 0:
		w.endRound(TeamRed)
	}
}

func (w *World) endRound(winner Team) {
	r := w.round
	if r.Phase != PhaseActive {
		return
	}
	r.Winner = winner
	if ts, ok := r.Teams[winner]; ok {
		ts.Score++
	}
	if w.bomb != nil {
		w.bomb.Cancel()
	}
	for _, t := range w.tanks {
		w.ui.HideProgress(t.ID)
		t.Velocity = Vec3{}
		t.spin = 0
	}
	w.bullets = nil

	result := RoundResult{
		RoundID:  r.ID,
		Mode:     r.Mode,
		Winner:   winner,
		Scores:   r.Scores(),
		Duration: w.Now() - r.StartedAt,
		EndedAt:  time.Now().UTC(),
	}
	w.log.Info().
		Str("round", r.ID).
		Str("winner", string(winner)).
		Dur("duration", result.Duration).
		Msg("round ended")

	w.setPhase(PhaseEnded)
	w.ui.ShowResult(result)
	if w.hooks.RoundEnded != nil {
		w.hooks.RoundEnded(result)
	}
}

// Restart returns an ended round to the lobby. Humans must ready up again.
func (w *World) Restart() error {
	if w.round.Phase != PhaseEnded {
		return ErrWrongPhase
	}
	w.sched.Reset()
	w.tanks = nil
	w.bullets = nil
	w.bomb = nil
	for _, ts := range w.round.Teams {
		ts.Members = nil
	}
	for _, p := range w.round.Participants {
		p.Ready = p.Bot
	}
	w.round.Winner = TeamNone
	w.setPhase(PhaseLobby)
	return nil
}

func (w *World) setPhase(phase Phase) {
	w.round.Phase = phase
	if w.hooks.PhaseChanged != nil {
		w.hooks.PhaseChanged(phase)
	}
}
