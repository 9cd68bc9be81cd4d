package game

import (
	"math"
	"time"
)

// Intent is a discrete movement command.
type Intent uint8

const (
	IntentForward Intent = iota
	IntentBackward
	IntentRotateLeft
	IntentRotateRight
	IntentStopRotate
)

// Tank is a player- or bot-controlled vehicle inside a round.
type Tank struct {
	ID       string
	Name     string
	Team     Team
	Position Vec3
	Rotation float64
	Velocity Vec3
	Health   int
	IsDead   bool
	HasBomb  bool
	Blocked  bool // Last Update was rolled back by a collision

	Controller Controller

	spin     int
	lastFire time.Duration
	hasFired bool
	moving   bool
	removed  bool
}

// NewTank creates a full-health tank at pos facing the arena center.
func NewTank(id, name string, team Team, pos Vec3, ctrl Controller) *Tank {
	return &Tank{
		ID:         id,
		Name:       name,
		Team:       team,
		Position:   pos,
		Rotation:   headingTo(pos, Vec3{}),
		Health:     TankMaxHealth,
		Controller: ctrl,
	}
}

// IsBot reports whether the tank is bot controlled.
func (t *Tank) IsBot() bool {
	return t.Controller.Kind == ControllerBot
}

// Alive reports whether the tank can act and be hit.
func (t *Tank) Alive() bool {
	return !t.IsDead && !t.removed
}

// Forward returns the unit facing vector.
func (t *Tank) Forward() Vec3 {
	return Vec3{X: math.Sin(t.Rotation), Z: math.Cos(t.Rotation)}
}

// Spin returns the current rotation direction: -1, 0 or 1.
func (t *Tank) Spin() int {
	return t.spin
}

// Move applies a movement intent. Forward and backward accelerate along the
// facing vector; rotate intents set a spin that persists until stopped.
func (t *Tank) Move(intent Intent) {
	if !t.Alive() {
		return
	}
	switch intent {
	case IntentForward:
		t.accelerate(TankAcceleration)
	case IntentBackward:
		t.accelerate(-TankAcceleration)
	case IntentRotateLeft:
		t.spin = -1
	case IntentRotateRight:
		t.spin = 1
	case IntentStopRotate:
		t.spin = 0
	}
}

func (t *Tank) accelerate(amount float64) {
	v := t.Velocity.Add(t.Forward().Scale(amount))
	if speed := v.Len(); speed > TankMaxSpeed {
		v = v.Scale(TankMaxSpeed / speed)
	}
	t.Velocity = v
}

// Update integrates one tick of motion. When the new pose hits map geometry
// or comes within TankSeparation of another live tank, position and rotation
// roll back and the tank stops dead. It returns false on rollback.
func (t *Tank) Update(arena *Arena, others []*Tank) bool {
	if !t.Alive() {
		return false
	}

	prevPos, prevRot := t.Position, t.Rotation

	t.Rotation = normalizeAngle(t.Rotation + float64(t.spin)*TankTurnRate)
	t.Position = t.Position.Add(Vec3{X: t.Velocity.X, Z: t.Velocity.Z})

	if !t.poseClear(arena, others, t.Position) {
		t.Position, t.Rotation = prevPos, prevRot
		t.Velocity = Vec3{}
		t.Blocked = true
		return false
	}

	t.Velocity = t.Velocity.Scale(TankFriction)
	t.Blocked = false
	return true
}

// poseClear reports whether pos is free of geometry and other live tanks.
func (t *Tank) poseClear(arena *Arena, others []*Tank, pos Vec3) bool {
	if arena.CheckCollision(pos, TankCollisionRadius) {
		return false
	}
	for _, other := range others {
		if other == t || !other.Alive() {
			continue
		}
		if pos.DistanceTo(other.Position) < TankSeparation {
			return false
		}
	}
	return true
}

// CanFire reports whether the fire cooldown has elapsed at now.
func (t *Tank) CanFire(now time.Duration) bool {
	if !t.Alive() {
		return false
	}
	return !t.hasFired || now-t.lastFire >= FireCooldown
}

// Fire spawns a bullet from the muzzle when the cooldown allows it.
func (t *Tank) Fire(now time.Duration) (*Bullet, bool) {
	if !t.CanFire(now) {
		return nil, false
	}
	t.lastFire = now
	t.hasFired = true

	forward := t.Forward()
	muzzle := t.Position.Add(forward.Scale(BulletMuzzleOffset))
	muzzle.Y = t.Position.Y + BulletHeight
	return NewBullet(t, muzzle, forward), true
}

// TakeDamage subtracts amount from health, clamped at zero. It returns true
// when this damage killed the tank.
func (t *Tank) TakeDamage(amount int) bool {
	if !t.Alive() || amount <= 0 {
		return false
	}
	t.Health -= amount
	if t.Health > 0 {
		return false
	}
	t.Health = 0
	t.IsDead = true
	t.Velocity = Vec3{}
	t.spin = 0
	return true
}

// respawn restores the tank at pos for a new round.
func (t *Tank) respawn(pos Vec3) {
	t.Position = pos
	t.Rotation = headingTo(pos, Vec3{})
	t.Velocity = Vec3{}
	t.Health = TankMaxHealth
	t.IsDead = false
	t.HasBomb = false
	t.Blocked = false
	t.spin = 0
	t.hasFired = false
	t.moving = false
	t.removed = false
}

// Pose returns the render view of the tank.
func (t *Tank) Pose() Pose {
	return Pose{ID: t.ID, Team: t.Team, Position: t.Position, Rotation: t.Rotation, IsDead: t.IsDead}
}
