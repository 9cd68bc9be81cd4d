package game

import (
	"math"
	"math/rand"
	"time"
)

// Pattern is a bot's current tactical goal.
type Pattern string

const (
	PatternAttack    Pattern = "attack"
	PatternPlantBomb Pattern = "plant_bomb"
	PatternSupport   Pattern = "support"
	PatternDefend    Pattern = "defend"
	PatternPatrol    Pattern = "patrol"
	PatternRetreat   Pattern = "retreat"
)

const (
	botSupportDistance = 5.0
	botDefendRingMin   = 5.0
	botDefendRingMax   = 10.0
	botPatrolRingMin   = 10.0
	botPatrolRingMax   = 20.0
	botRetreatDistance = 15.0
	botWanderMin       = 5.0
	botWanderMax       = 10.0
)

// BotBehavior decides what a bot-controlled tank does. Decisions run at
// BotActionInterval; between decisions steer keeps the tank on its chosen
// heading every tick.
type BotBehavior struct {
	Pattern Pattern

	team      Team
	rng       *rand.Rand
	target    Vec3
	hasTarget bool
	heading   float64
	steering  bool
	driving   bool
	holding   bool

	started           bool
	hasShot           bool
	lastAction        time.Duration
	lastShot          time.Duration
	lastPatternChange time.Duration
}

// NewBotBehavior creates a behavior for a bot on team.
func NewBotBehavior(team Team, rng *rand.Rand) *BotBehavior {
	b := &BotBehavior{team: team, rng: rng}
	if team == TeamRed {
		b.Pattern = PatternAttack
	} else {
		b.Pattern = PatternDefend
	}
	return b
}

// Update runs one decision when the action cadence allows it: scan and
// shoot, maybe re-roll the pattern, then execute the pattern.
func (b *BotBehavior) Update(w *World, t *Tank) {
	if w.round.Phase != PhaseActive || !t.Alive() {
		return
	}
	now := w.Now()
	if b.started && now-b.lastAction < BotActionInterval {
		return
	}
	if !b.started {
		b.started = true
		b.changePattern(t, now)
	}
	b.lastAction = now

	b.checkAndShoot(w, t, now)

	if now-b.lastPatternChange >= BotPatternInterval || (t.HasBomb && b.Pattern != PatternPlantBomb) {
		b.changePattern(t, now)
	}

	if t.Blocked {
		t.Move(IntentBackward)
		b.hasTarget = false
	}

	b.holding = false
	switch b.Pattern {
	case PatternAttack:
		b.attack(w, t)
	case PatternPlantBomb:
		b.plantBomb(w, t)
	case PatternSupport:
		b.support(w, t)
	case PatternDefend:
		b.defend(w, t)
	case PatternPatrol:
		b.patrol(w, t)
	case PatternRetreat:
		b.retreat(w, t)
	}
}

// steer keeps the tank turning toward and driving along the heading chosen
// at the last decision.
func (b *BotBehavior) steer(t *Tank) {
	if !b.steering {
		return
	}
	diff := normalizeAngle(b.heading - t.Rotation)
	if math.Abs(diff) <= BotTurnDeadzone {
		t.Move(IntentStopRotate)
	}
	if b.driving && math.Abs(diff) < BotDriveTolerance {
		t.Move(IntentForward)
	}
}

func (b *BotBehavior) changePattern(t *Tank, now time.Duration) {
	b.lastPatternChange = now
	b.hasTarget = false

	if t.HasBomb {
		b.Pattern = PatternPlantBomb
		return
	}
	roll := b.rng.Float64()
	if b.team == TeamRed {
		if roll < 0.7 {
			b.Pattern = PatternAttack
		} else {
			b.Pattern = PatternSupport
		}
		return
	}
	switch {
	case roll < 0.7:
		b.Pattern = PatternDefend
	case roll < 0.9:
		b.Pattern = PatternPatrol
	default:
		b.Pattern = PatternRetreat
	}
}

func (b *BotBehavior) checkAndShoot(w *World, t *Tank, now time.Duration) {
	enemy, dist := nearestEnemy(w, t)
	if enemy == nil || dist >= BotDetectionRange {
		return
	}
	if b.hasShot && now-b.lastShot < BotShotCooldown {
		return
	}
	diff := normalizeAngle(headingTo(t.Position, enemy.Position) - t.Rotation)
	if math.Abs(diff) >= BotFireTolerance {
		return
	}
	if _, err := w.Fire(t.ID); err == nil {
		b.lastShot = now
		b.hasShot = true
	}
}

func (b *BotBehavior) attack(w *World, t *Tank) {
	if enemy, _ := nearestEnemy(w, t); enemy != nil {
		b.moveTowards(t, enemy.Position)
		return
	}
	b.wander(t)
}

func (b *BotBehavior) plantBomb(w *World, t *Tank) {
	site, ok := w.BombSite(TeamBlue)
	if !ok || !t.HasBomb {
		b.attack(w, t)
		return
	}
	if t.Position.DistanceTo(site) < PlantRadius {
		b.stop(t)
		b.holding = true
		return
	}
	b.moveTowards(t, site)
}

func (b *BotBehavior) support(w *World, t *Tank) {
	var carrier *Tank
	for _, other := range w.tanks {
		if other != t && other.Alive() && other.Team == t.Team && other.HasBomb {
			carrier = other
			break
		}
	}
	if carrier == nil {
		b.attack(w, t)
		return
	}
	if t.Position.DistanceTo(carrier.Position) > botSupportDistance {
		b.moveTowards(t, carrier.Position)
		return
	}
	b.stop(t)
}

func (b *BotBehavior) defend(w *World, t *Tank) {
	site, ok := w.BombSite(TeamBlue)
	if !ok {
		b.hunt(w, t)
		return
	}

	if bomb := w.bomb; bomb != nil && bomb.Armed() {
		if t.Position.DistanceTo(bomb.Position) < DefuseRadius {
			b.stop(t)
			b.holding = true
			return
		}
		b.moveTowards(t, bomb.Position)
		return
	}

	if enemy, _ := nearestEnemy(w, t); enemy != nil && enemy.Position.DistanceTo(site) < BotDetectionRange {
		b.moveTowards(t, enemy.Position)
		return
	}
	b.circle(t, site, botDefendRingMin, botDefendRingMax)
}

func (b *BotBehavior) patrol(w *World, t *Tank) {
	site, ok := w.BombSite(TeamBlue)
	if !ok {
		b.hunt(w, t)
		return
	}
	b.circle(t, site, botPatrolRingMin, botPatrolRingMax)
}

func (b *BotBehavior) retreat(w *World, t *Tank) {
	site, ok := w.BombSite(TeamBlue)
	if !ok {
		b.wander(t)
		return
	}
	if t.Position.DistanceTo(site) >= botRetreatDistance {
		b.Pattern = PatternDefend
		b.defend(w, t)
		return
	}
	away := t.Position.Sub(site).Normalize()
	if away == (Vec3{}) {
		away = t.Forward()
	}
	b.moveTowards(t, t.Position.Add(away.Scale(botRetreatDistance)))
}

// hunt chases an enemy in detection range, otherwise wanders.
func (b *BotBehavior) hunt(w *World, t *Tank) {
	if enemy, dist := nearestEnemy(w, t); enemy != nil && dist < BotDetectionRange {
		b.moveTowards(t, enemy.Position)
		return
	}
	b.wander(t)
}

// circle roams random points on a ring around center.
func (b *BotBehavior) circle(t *Tank, center Vec3, minR, maxR float64) {
	if !b.hasTarget || t.Position.DistanceTo(b.target) < BotArriveDistance {
		b.target = b.pointAround(center, minR, maxR)
		b.hasTarget = true
	}
	b.moveTowards(t, b.target)
}

// wander roams random points near the tank.
func (b *BotBehavior) wander(t *Tank) {
	b.circle(t, t.Position, botWanderMin, botWanderMax)
}

func (b *BotBehavior) pointAround(center Vec3, minR, maxR float64) Vec3 {
	angle := b.rng.Float64() * 2 * math.Pi
	radius := minR + b.rng.Float64()*(maxR-minR)
	return Vec3{
		X: center.X + math.Sin(angle)*radius,
		Y: center.Y,
		Z: center.Z + math.Cos(angle)*radius,
	}
}

func (b *BotBehavior) moveTowards(t *Tank, target Vec3) {
	b.heading = headingTo(t.Position, target)
	b.steering = true
	b.driving = true

	diff := normalizeAngle(b.heading - t.Rotation)
	switch {
	case diff > BotTurnDeadzone:
		t.Move(IntentRotateRight)
	case diff < -BotTurnDeadzone:
		t.Move(IntentRotateLeft)
	default:
		t.Move(IntentStopRotate)
	}
	if math.Abs(diff) < BotDriveTolerance {
		t.Move(IntentForward)
	}
}

func (b *BotBehavior) stop(t *Tank) {
	b.steering = false
	b.driving = false
	t.Move(IntentStopRotate)
}

// Target returns the point the bot is currently roaming toward.
func (b *BotBehavior) Target() (Vec3, bool) {
	return b.target, b.hasTarget
}

// Holding reports whether the bot is holding the bomb action.
func (b *BotBehavior) Holding() bool {
	return b.holding
}

func nearestEnemy(w *World, t *Tank) (*Tank, float64) {
	var best *Tank
	bestDist := math.Inf(1)
	for _, other := range w.tanks {
		if !other.Alive() || other.Team == t.Team {
			continue
		}
		if d := t.Position.DistanceTo(other.Position); d < bestDist {
			best, bestDist = other, d
		}
	}
	return best, bestDist
}
