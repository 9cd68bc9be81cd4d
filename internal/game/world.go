package game

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

// Options configures a World.
type Options struct {
	Logger   *zerolog.Logger
	Rand     *rand.Rand
	Mode     Mode
	TeamSize int

	Renderer Renderer
	Audio    Audio
	UI       UI
	Hooks    Hooks
}

// World owns the arena, the round and every entity in it. It is not safe
// for concurrent use; a single goroutine drives Step and issues commands.
type World struct {
	log      zerolog.Logger
	rng      *rand.Rand
	sched    *Scheduler
	renderer Renderer
	audio    Audio
	ui       UI
	hooks    Hooks

	teamSize int
	arena    *Arena
	round    *Round
	tanks    []*Tank
	bullets  []*Bullet
	bomb     *Bomb

	nextBulletID uint64
	nextBotID    int
}

// NewWorld creates a world in the lobby phase.
func NewWorld(opts Options) *World {
	w := &World{
		rng:      opts.Rand,
		sched:    NewScheduler(),
		renderer: opts.Renderer,
		audio:    opts.Audio,
		ui:       opts.UI,
		hooks:    opts.Hooks,
		teamSize: opts.TeamSize,
	}
	if opts.Logger != nil {
		w.log = opts.Logger.With().Str("component", "world").Logger()
	} else {
		w.log = zerolog.Nop()
	}
	if w.rng == nil {
		w.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if w.renderer == nil {
		w.renderer = nopRenderer{}
	}
	if w.audio == nil {
		w.audio = nopAudio{}
	}
	if w.ui == nil {
		w.ui = nopUI{}
	}
	if w.teamSize < 0 {
		w.teamSize = 0
	}
	mode := opts.Mode
	if !mode.Valid() {
		mode = ModeBomb
	}
	w.round = newRound(mode)
	return w
}

// Now returns the simulation time.
func (w *World) Now() time.Duration {
	return w.sched.Now()
}

// Tick returns the simulation tick.
func (w *World) Tick() uint64 {
	return w.sched.Tick()
}

// Scheduler exposes the simulation clock for deferred actions.
func (w *World) Scheduler() *Scheduler {
	return w.sched
}

// Round returns the current round.
func (w *World) Round() *Round {
	return w.round
}

// Arena returns the current map, or nil before the first countdown.
func (w *World) Arena() *Arena {
	return w.arena
}

// Bomb returns the bomb of a bomb-mode round.
func (w *World) Bomb() *Bomb {
	return w.bomb
}

// BombSite returns the site of team on the current map.
func (w *World) BombSite(team Team) (Vec3, bool) {
	return w.arena.BombSite(team)
}

// Tanks returns every tank that has not been removed.
func (w *World) Tanks() []*Tank {
	out := make([]*Tank, 0, len(w.tanks))
	for _, t := range w.tanks {
		if !t.removed {
			out = append(out, t)
		}
	}
	return out
}

// Tank returns the tank of participant id.
func (w *World) Tank(id string) (*Tank, bool) {
	for _, t := range w.tanks {
		if t.ID == id && !t.removed {
			return t, true
		}
	}
	return nil, false
}

// Bullets returns the bullets in flight.
func (w *World) Bullets() []*Bullet {
	return w.bullets
}

// Step runs one simulation tick: deferred events, fuse, controllers, tank
// motion, bullets, round end, roster compaction and finally the render.
func (w *World) Step() {
	w.sched.Advance()

	if w.round.Phase == PhaseActive {
		w.checkFuse()
	}
	if w.round.Phase == PhaseActive {
		w.runControllers()
		w.updateTanks()
		w.updateBullets()
		w.trackBomb()
		w.checkRoundEnd()
	}

	w.compact()
	w.renderer.RenderFrame(w.frame())
}

func (w *World) runControllers() {
	for _, t := range w.tanks {
		if w.round.Phase != PhaseActive {
			return
		}
		if !t.Alive() {
			continue
		}
		if t.IsBot() {
			t.Controller.Bot.Update(w, t)
			t.Controller.Bot.steer(t)
		}
		if t.Controller.holding() {
			w.advanceAction(t)
		} else if w.bomb != nil && w.bomb.Actor() == t {
			w.bomb.Cancel()
			w.ui.HideProgress(t.ID)
		}
	}
}

func (w *World) updateTanks() {
	for _, t := range w.tanks {
		if !t.Alive() {
			continue
		}
		t.Update(w.arena, w.tanks)

		moving := t.Velocity.Len() > TankMovingEpsilon
		if moving != t.moving {
			kind := CueMoveStop
			if moving {
				kind = CueMoveStart
			}
			w.audio.PlayCue(Cue{Kind: kind, TankID: t.ID, Position: t.Position})
			t.moving = moving
		}
	}
}

func (w *World) updateBullets() {
	kept := w.bullets[:0]
	for _, b := range w.bullets {
		outcome, target := b.Update(w.arena, w.tanks)
		switch outcome {
		case BulletFlying:
			kept = append(kept, b)
		case BulletHitTank:
			owner, _ := w.Tank(b.OwnerID)
			w.applyDamage(target, b.Damage, owner, KillCauseBullet)
		}
	}
	for i := len(kept); i < len(w.bullets); i++ {
		w.bullets[i] = nil
	}
	w.bullets = kept
}

func (w *World) trackBomb() {
	if w.bomb != nil && w.bomb.State == BombCarried && w.bomb.Carrier != nil {
		w.bomb.Position = w.bomb.Carrier.Position
	}
}

// compact drops removed tanks from the roster and their teams.
func (w *World) compact() {
	kept := w.tanks[:0]
	for _, t := range w.tanks {
		if !t.removed {
			kept = append(kept, t)
		}
	}
	for i := len(kept); i < len(w.tanks); i++ {
		w.tanks[i] = nil
	}
	w.tanks = kept

	for _, ts := range w.round.Teams {
		members := ts.Members[:0]
		for _, t := range ts.Members {
			if !t.removed {
				members = append(members, t)
			}
		}
		ts.Members = members
	}
}

func (w *World) frame() Frame {
	f := Frame{Tick: w.Tick(), Phase: w.round.Phase}
	for _, t := range w.tanks {
		if !t.removed {
			f.Tanks = append(f.Tanks, t.Pose())
		}
	}
	for _, b := range w.bullets {
		f.Bullets = append(f.Bullets, b.Position)
	}
	return f
}

// Move applies a movement intent to the tank of id.
func (w *World) Move(id string, intent Intent) error {
	if w.round.Phase != PhaseActive {
		return ErrWrongPhase
	}
	t, ok := w.Tank(id)
	if !ok || !t.Alive() {
		return ErrNoTank
	}
	t.Move(intent)
	return nil
}

// Fire shoots from the tank of id using its authoritative pose.
func (w *World) Fire(id string) (*Bullet, error) {
	if w.round.Phase != PhaseActive {
		return nil, ErrWrongPhase
	}
	t, ok := w.Tank(id)
	if !ok || !t.Alive() {
		return nil, ErrNoTank
	}
	b, ok := t.Fire(w.Now())
	if !ok {
		return nil, ErrCooldown
	}
	w.nextBulletID++
	b.ID = w.nextBulletID
	w.bullets = append(w.bullets, b)

	w.audio.PlayCue(Cue{Kind: CueFire, TankID: t.ID, Position: b.Position})
	if w.hooks.TankFired != nil {
		w.hooks.TankFired(t, b)
	}
	return b, nil
}

// SetPose accepts a client-reported pose for a human tank after checking it
// against the same geometry and separation rules as simulated motion.
func (w *World) SetPose(id string, pos Vec3, rotation float64) error {
	if w.round.Phase != PhaseActive {
		return ErrWrongPhase
	}
	t, ok := w.Tank(id)
	if !ok || !t.Alive() {
		return ErrNoTank
	}
	if math.IsNaN(pos.X) || math.IsNaN(pos.Z) || math.IsNaN(rotation) ||
		math.IsInf(pos.X, 0) || math.IsInf(pos.Z, 0) || math.IsInf(rotation, 0) {
		return fmt.Errorf("%w: non-finite values", ErrPoseRejected)
	}
	if pos.DistanceTo(t.Position) > MaxPoseJump {
		return fmt.Errorf("%w: moved %.1f units", ErrPoseRejected, pos.DistanceTo(t.Position))
	}
	if !t.poseClear(w.arena, w.tanks, pos) {
		t.Blocked = true
		return fmt.Errorf("%w: collision", ErrPoseRejected)
	}
	t.Position = Vec3{X: pos.X, Y: t.Position.Y, Z: pos.Z}
	t.Rotation = normalizeAngle(rotation)
	t.Blocked = false
	return nil
}

// HoldAction sets whether a human is holding the bomb action key. Releasing
// cancels an in-progress plant or defuse on the next tick.
func (w *World) HoldAction(id string, holding bool) error {
	if w.round.Phase != PhaseActive {
		return ErrWrongPhase
	}
	t, ok := w.Tank(id)
	if !ok || !t.Alive() {
		return ErrNoTank
	}
	if t.Controller.Human == nil {
		return ErrNoTank
	}
	t.Controller.Human.Holding = holding
	return nil
}
