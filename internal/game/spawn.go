package game

import "math/rand"

// SpawnArea is the rectangle a team spawns in.
type SpawnArea struct {
	Center Vec3
	Width  float64
	Depth  float64
}

var spawnAreas = map[Team]SpawnArea{
	TeamRed:  {Center: Vec3{X: -35, Y: TankSpawnHeight, Z: -35}, Width: SpawnAreaSize, Depth: SpawnAreaSize},
	TeamBlue: {Center: Vec3{X: 35, Y: TankSpawnHeight, Z: 35}, Width: SpawnAreaSize, Depth: SpawnAreaSize},
}

// sample returns a uniformly random point inside the area.
func (a SpawnArea) sample(rng *rand.Rand) Vec3 {
	return Vec3{
		X: a.Center.X + (rng.Float64()-0.5)*a.Width,
		Y: a.Center.Y,
		Z: a.Center.Z + (rng.Float64()-0.5)*a.Depth,
	}
}

// arbitrateSpawn samples up to attempts points in area and returns the first
// one accepted by safe. When every attempt is rejected it falls back to the
// area center and reports false.
func arbitrateSpawn(area SpawnArea, rng *rand.Rand, attempts int, safe func(Vec3) bool) (Vec3, bool) {
	for i := 0; i < attempts; i++ {
		pos := area.sample(rng)
		if safe(pos) {
			return pos, true
		}
	}
	return area.Center, false
}

// spawnPoint picks a spawn position for team.
func (w *World) spawnPoint(team Team) Vec3 {
	area, ok := spawnAreas[team]
	if !ok {
		return Vec3{Y: TankSpawnHeight}
	}
	pos, ok := arbitrateSpawn(area, w.rng, SpawnAttempts, w.isLocationSafe)
	if !ok {
		w.log.Debug().Str("team", string(team)).Msg("no clear spawn point, using area center")
	}
	return pos
}

// isLocationSafe checks clearance from obstacles and live tanks.
func (w *World) isLocationSafe(pos Vec3) bool {
	if w.arena.ObstacleClearance(pos) <= SpawnClearance {
		return false
	}
	for _, t := range w.tanks {
		if t.Alive() && t.Position.DistanceTo(pos) <= SpawnClearance {
			return false
		}
	}
	return true
}
