package game

import (
	"math"
	"time"
)

// Team identifies one of the two sides of the arena.
type Team string

const (
	TeamNone Team = ""
	TeamRed  Team = "red"
	TeamBlue Team = "blue"
)

// Teams lists the playable teams in a stable order.
var Teams = []Team{TeamRed, TeamBlue}

// Valid reports whether t is a playable team.
func (t Team) Valid() bool {
	return t == TeamRed || t == TeamBlue
}

// Opponent returns the other playable team.
func (t Team) Opponent() Team {
	switch t {
	case TeamRed:
		return TeamBlue
	case TeamBlue:
		return TeamRed
	default:
		return TeamNone
	}
}

// Mode selects the rule set of a round.
type Mode string

const (
	ModeBattle Mode = "battle"
	ModeBomb   Mode = "bomb"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeBattle || m == ModeBomb
}

// Phase is the round state machine position.
type Phase string

const (
	PhaseLobby     Phase = "lobby"
	PhaseCountdown Phase = "countdown"
	PhaseActive    Phase = "active"
	PhaseEnded     Phase = "ended"
)

// Vec3 is a point or direction in arena space. Y is height; gameplay
// distances are measured on the X/Z ground plane.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Len returns the planar length of v.
func (v Vec3) Len() float64 {
	return math.Hypot(v.X, v.Z)
}

// DistanceTo returns the planar distance between v and o.
func (v Vec3) DistanceTo(o Vec3) float64 {
	return math.Hypot(v.X-o.X, v.Z-o.Z)
}

// Normalize returns the planar unit vector of v, or the zero vector.
func (v Vec3) Normalize() Vec3 {
	l := v.Len()
	if l == 0 {
		return Vec3{}
	}
	return Vec3{X: v.X / l, Z: v.Z / l}
}

// Pose is the position and facing of a tank as seen by the renderer.
type Pose struct {
	ID       string
	Team     Team
	Position Vec3
	Rotation float64
	IsDead   bool
}

// Participant is a lobby roster entry. Participants outlive the tanks that
// represent them inside a round.
type Participant struct {
	ID    string
	Name  string
	Team  Team
	Ready bool
	Bot   bool
}

// RoundResult describes a finished round.
type RoundResult struct {
	RoundID  string
	Mode     Mode
	Winner   Team
	Scores   map[Team]int
	Duration time.Duration
	EndedAt  time.Time
}

// headingTo returns the facing angle that points from from to to.
// Facing 0 looks down +Z; positive angles turn toward +X.
func headingTo(from, to Vec3) float64 {
	return math.Atan2(to.X-from.X, to.Z-from.Z)
}

// normalizeAngle maps angle into (-π, π].
func normalizeAngle(angle float64) float64 {
	for angle > math.Pi {
		angle -= 2 * math.Pi
	}
	for angle <= -math.Pi {
		angle += 2 * math.Pi
	}
	return angle
}

func clampFloat(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
