package game

import (
	"math"
	"time"
)

// BombState is the position of the bomb state machine.
type BombState string

const (
	BombIdle     BombState = "idle"
	BombCarried  BombState = "carried"
	BombPlanting BombState = "planting"
	BombPlanted  BombState = "planted"
	BombDefusing BombState = "defusing"
	BombDefused  BombState = "defused"
	BombExploded BombState = "exploded"
)

// Bomb is the single objective item of a bomb-mode round.
//
//	idle -> carried -> planting -> planted -> defusing -> defused
//	           ^           |          ^           |
//	           +-- cancel -+          +-- cancel -+
//	planted/defusing -> exploded once the fuse runs out
type Bomb struct {
	State     BombState
	Carrier   *Tank
	Position  Vec3
	PlantedAt time.Duration
	PlantedBy string
	Blink     bool

	actor       *Tank
	actionStart time.Duration
}

// NewBomb returns an idle bomb.
func NewBomb() *Bomb {
	return &Bomb{State: BombIdle}
}

// Assign hands the bomb to a live red tank. Only an idle or carried bomb can
// change hands.
func (b *Bomb) Assign(t *Tank) bool {
	if t == nil || !t.Alive() || t.Team != TeamRed {
		return false
	}
	if b.State != BombIdle && b.State != BombCarried {
		return false
	}
	if b.Carrier != nil {
		b.Carrier.HasBomb = false
	}
	b.Carrier = t
	t.HasBomb = true
	b.Position = t.Position
	b.State = BombCarried
	return true
}

// Drop releases the bomb from its carrier.
func (b *Bomb) Drop() {
	if b.State == BombPlanting {
		b.Cancel()
	}
	if b.Carrier != nil {
		b.Carrier.HasBomb = false
		b.Position = b.Carrier.Position
		b.Carrier = nil
	}
	if b.State == BombCarried {
		b.State = BombIdle
	}
}

// Actor returns the tank currently planting or defusing.
func (b *Bomb) Actor() *Tank {
	return b.actor
}

// Armed reports whether the bomb is planted and its fuse is running.
func (b *Bomb) Armed() bool {
	return b.State == BombPlanted || b.State == BombDefusing
}

// StartPlanting begins a plant by the carrier within PlantRadius of site.
func (b *Bomb) StartPlanting(planter *Tank, site Vec3, now time.Duration) bool {
	if b.State != BombCarried || b.Carrier != planter || !planter.Alive() {
		return false
	}
	if planter.Position.DistanceTo(site) >= PlantRadius {
		return false
	}
	b.State = BombPlanting
	b.actor = planter
	b.actionStart = now
	return true
}

// ContinuePlanting advances a plant. It cancels when the planter died or
// left the site, and completes once PlantDuration has elapsed.
func (b *Bomb) ContinuePlanting(site Vec3, now time.Duration) (progress float64, planted bool) {
	if b.State != BombPlanting {
		return 0, false
	}
	if !b.actor.Alive() || b.actor.Position.DistanceTo(site) >= PlantRadius {
		b.Cancel()
		return 0, false
	}
	progress = b.Progress(now)
	if now-b.actionStart < PlantDuration {
		return progress, false
	}

	planter := b.actor
	b.State = BombPlanted
	b.Position = planter.Position
	b.PlantedAt = now
	b.PlantedBy = planter.ID
	b.Blink = true
	planter.HasBomb = false
	b.Carrier = nil
	b.actor = nil
	return 1, true
}

// StartDefusing begins a defuse by a live blue tank within DefuseRadius.
func (b *Bomb) StartDefusing(defuser *Tank, now time.Duration) bool {
	if b.State != BombPlanted || defuser == nil || !defuser.Alive() || defuser.Team != TeamBlue {
		return false
	}
	if defuser.Position.DistanceTo(b.Position) >= DefuseRadius {
		return false
	}
	b.State = BombDefusing
	b.actor = defuser
	b.actionStart = now
	return true
}

// ContinueDefusing advances a defuse. It cancels when the defuser died or
// moved away, and completes once DefuseDuration has elapsed.
func (b *Bomb) ContinueDefusing(now time.Duration) (progress float64, defused bool) {
	if b.State != BombDefusing {
		return 0, false
	}
	if !b.actor.Alive() || b.actor.Position.DistanceTo(b.Position) >= DefuseRadius {
		b.Cancel()
		return 0, false
	}
	progress = b.Progress(now)
	if now-b.actionStart < DefuseDuration {
		return progress, false
	}
	b.State = BombDefused
	b.actor = nil
	b.Blink = false
	return 1, true
}

// Cancel aborts an in-progress plant or defuse. Progress restarts from zero
// on the next attempt.
func (b *Bomb) Cancel() {
	switch b.State {
	case BombPlanting:
		b.State = BombCarried
	case BombDefusing:
		b.State = BombPlanted
	default:
		return
	}
	b.actor = nil
	b.actionStart = 0
}

// Progress returns the completed fraction of the current plant or defuse.
func (b *Bomb) Progress(now time.Duration) float64 {
	var total time.Duration
	switch b.State {
	case BombPlanting:
		total = PlantDuration
	case BombDefusing:
		total = DefuseDuration
	default:
		return 0
	}
	return clampFloat(float64(now-b.actionStart)/float64(total), 0, 1)
}

// CheckFuse detonates an armed bomb whose fuse has run out.
func (b *Bomb) CheckFuse(now time.Duration) bool {
	if !b.Armed() || now-b.PlantedAt < FuseDuration {
		return false
	}
	b.State = BombExploded
	b.actor = nil
	b.Blink = false
	return true
}

// FuseRemaining returns the time left on an armed bomb.
func (b *Bomb) FuseRemaining(now time.Duration) time.Duration {
	if !b.Armed() {
		return 0
	}
	return max(FuseDuration-(now-b.PlantedAt), 0)
}

// TickInterval returns the spacing of the audible tick cue, which speeds up
// as the fuse burns down.
func (b *Bomb) TickInterval(now time.Duration) time.Duration {
	elapsed := now - b.PlantedAt
	return max(BombTickMax-elapsed/30, BombTickMin)
}

// ExplosionDamage returns the blast damage at distance d from the bomb.
func ExplosionDamage(d float64) int {
	if d >= ExplosionRadius || d < 0 {
		return 0
	}
	return int(math.Floor(ExplosionMaxDamage * (1 - d/ExplosionRadius)))
}
