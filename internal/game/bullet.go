package game

import "math"

// BulletOutcome is the result of advancing a bullet one tick.
type BulletOutcome uint8

const (
	BulletFlying BulletOutcome = iota
	BulletHitTank
	BulletHitObstacle
	BulletOutOfBounds
)

// Bullet is a projectile travelling in a straight line.
type Bullet struct {
	ID        uint64
	OwnerID   string
	Team      Team
	Position  Vec3
	Direction Vec3
	Speed     float64
	Damage    int
}

// NewBullet creates a bullet fired by owner.
func NewBullet(owner *Tank, pos, dir Vec3) *Bullet {
	return &Bullet{
		OwnerID:   owner.ID,
		Team:      owner.Team,
		Position:  pos,
		Direction: dir.Normalize(),
		Speed:     BulletSpeed,
		Damage:    BulletDamage,
	}
}

// Update advances the bullet and resolves it against enemy tanks, then map
// geometry, then the world bound. On BulletHitTank the target is returned;
// applying damage is left to the caller.
func (b *Bullet) Update(arena *Arena, tanks []*Tank) (BulletOutcome, *Tank) {
	b.Position = b.Position.Add(b.Direction.Scale(b.Speed))

	for _, t := range tanks {
		if !t.Alive() || t.Team == b.Team {
			continue
		}
		if b.Position.DistanceTo(t.Position) < BulletHitRadius {
			return BulletHitTank, t
		}
	}

	if arena.CheckCollision(b.Position, BulletObstacleRadius) {
		return BulletHitObstacle, nil
	}

	if math.Abs(b.Position.X) > WorldBound || math.Abs(b.Position.Z) > WorldBound {
		return BulletOutOfBounds, nil
	}
	return BulletFlying, nil
}
