package game

import "time"

// Frame is one rendered view of the round.
type Frame struct {
	Tick    uint64
	Phase   Phase
	Tanks   []Pose
	Bullets []Vec3
}

// CueKind names an audio cue.
type CueKind string

const (
	CueFire       CueKind = "fire"
	CueHit        CueKind = "hit"
	CueExplosion  CueKind = "explosion"
	CueLowHealth  CueKind = "low_health"
	CueMoveStart  CueKind = "move_start"
	CueMoveStop   CueKind = "move_stop"
	CueBombTick   CueKind = "bomb_tick"
	CueBombPlant  CueKind = "bomb_plant"
	CueBombDefuse CueKind = "bomb_defuse"
)

// Cue is a request to play a sound.
type Cue struct {
	Kind     CueKind
	TankID   string
	Position Vec3
	Interval time.Duration // Spacing of repeating cues such as the bomb tick
}

// Renderer draws frames. Rendering never feeds back into game state.
type Renderer interface {
	RenderFrame(f Frame)
}

// Audio plays cues.
type Audio interface {
	PlayCue(c Cue)
}

// UI shows progress bars, health, the countdown and the result banner.
type UI interface {
	ShowProgress(tankID, label string, progress float64)
	HideProgress(tankID string)
	ShowHealth(tankID string, health int)
	ShowCountdown(seconds int)
	ShowResult(result RoundResult)
}

// Hooks observe state changes that a relay forwards to remote clients.
// Nil hooks are skipped.
type Hooks struct {
	PhaseChanged func(phase Phase)
	TankSpawned  func(t *Tank)
	TankRemoved  func(t *Tank)
	TankFired    func(t *Tank, b *Bullet)
	TankDied     func(victim, killer *Tank, cause KillCause)
	BombPlanted  func(planter *Tank, pos Vec3)
	BombDefused  func(defuser *Tank)
	BombExploded func(pos Vec3)
	RoundEnded   func(result RoundResult)
}

type nopRenderer struct{}

func (nopRenderer) RenderFrame(Frame) {}

type nopAudio struct{}

func (nopAudio) PlayCue(Cue) {}

type nopUI struct{}

func (nopUI) ShowProgress(string, string, float64) {}
func (nopUI) HideProgress(string)                  {}
func (nopUI) ShowHealth(string, int)               {}
func (nopUI) ShowCountdown(int)                    {}
func (nopUI) ShowResult(RoundResult)               {}
