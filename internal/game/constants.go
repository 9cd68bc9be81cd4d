package game

import (
	"math"
	"time"
)

// Simulation timing
const (
	TickRate     = 50 // Simulation ticks per second
	TickInterval = time.Second / TickRate
)

// Tank physics constants
const (
	TankMaxHealth       = 100
	TankAcceleration    = 0.15 // Velocity added per forward/backward intent
	TankMaxSpeed        = 0.3  // Maximum speed in units per tick
	TankFriction        = 0.9  // Velocity decay factor per tick
	TankTurnRate        = 0.05 // Radians per tick while spinning
	TankCollisionRadius = 1.5  // Radius used against map geometry
	TankSeparation      = 3.0  // Minimum distance between live tanks
	TankSpawnHeight     = 1.0
	TankMovingEpsilon   = 0.01
	LowHealthThreshold  = 50
	FireCooldown        = 500 * time.Millisecond
	DeathRemovalDelay   = 1000 * time.Millisecond
	MaxPoseJump         = 5.0 // Largest accepted client pose correction per update
)

// Bullet constants
const (
	BulletSpeed          = 0.5
	BulletDamage         = 20
	BulletHitRadius      = 2.0
	BulletObstacleRadius = 0.1
	BulletMuzzleOffset   = 2.0
	BulletHeight         = 1.0
	WorldBound           = 50.0 // Bullets beyond ±WorldBound are destroyed
)

// Bomb constants
const (
	PlantDuration      = 3000 * time.Millisecond
	DefuseDuration     = 5000 * time.Millisecond
	FuseDuration       = 30000 * time.Millisecond
	PlantRadius        = 5.0
	DefuseRadius       = 3.0
	ExplosionRadius    = 10.0
	ExplosionMaxDamage = 100
	BlinkInterval      = 500 * time.Millisecond
	BombTickMax        = 1000 * time.Millisecond
	BombTickMin        = 100 * time.Millisecond
)

// Round constants
const (
	CountdownSeconds = 10
	SpawnAttempts    = 50
	SpawnClearance   = 3.0
	SpawnAreaSize    = 20.0
	BotSpawnStagger  = 50 * time.Millisecond
	DefaultTeamSize  = 5
)

// Bot decision constants
const (
	BotActionInterval  = 500 * time.Millisecond
	BotPatternInterval = 5000 * time.Millisecond
	BotShotCooldown    = 1000 * time.Millisecond
	BotDetectionRange  = 20.0
	BotFireTolerance   = math.Pi / 6
	BotDriveTolerance  = math.Pi / 3
	BotTurnDeadzone    = 0.1
	BotArriveDistance  = 2.0
)

// Progress labels shown while a bomb action is held.
const (
	LabelPlanting = "Planting Bomb..."
	LabelDefusing = "Defusing Bomb..."
)
