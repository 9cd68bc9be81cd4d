package game

import (
	"math"
	"math/rand"
)

// Box is an axis-aligned obstacle footprint on the ground plane.
type Box struct {
	Center Vec3    `json:"center"`
	Width  float64 `json:"width"`
	Depth  float64 `json:"depth"`
}

// Contains reports whether pos lies inside the box grown by radius.
func (b Box) Contains(pos Vec3, radius float64) bool {
	halfW := b.Width/2 + radius
	halfD := b.Depth/2 + radius
	return math.Abs(pos.X-b.Center.X) <= halfW && math.Abs(pos.Z-b.Center.Z) <= halfD
}

// DistanceTo returns the planar distance from pos to the box edge, or 0
// when pos is inside.
func (b Box) DistanceTo(pos Vec3) float64 {
	dx := math.Max(math.Abs(pos.X-b.Center.X)-b.Width/2, 0)
	dz := math.Max(math.Abs(pos.Z-b.Center.Z)-b.Depth/2, 0)
	return math.Hypot(dx, dz)
}

// Arena is the static map: boundary walls, obstacles and bomb sites. It is
// the collision oracle for tanks, bullets and spawn arbitration.
type Arena struct {
	Walls     []Box
	Obstacles []Box
	sites     map[Team]Vec3
}

const (
	arenaHalfSize      = 50.0
	wallThickness      = 1.0
	battleObstacles    = 20
	battleObstacleMin  = 3.0
	battleObstacleSpan = 5.0
	battleObstacleArea = 40.0
	bombObstacleSize   = 5.0
)

var bombSites = map[Team]Vec3{
	TeamRed:  {X: -35, Z: -35},
	TeamBlue: {X: 35, Z: 35},
}

// NewArena builds the map for mode. Battle maps scatter random obstacles;
// bomb maps use a fixed layout with one site per team.
func NewArena(mode Mode, rng *rand.Rand) *Arena {
	a := &Arena{
		Walls: []Box{
			{Center: Vec3{Z: -arenaHalfSize}, Width: 2 * arenaHalfSize, Depth: wallThickness},
			{Center: Vec3{Z: arenaHalfSize}, Width: 2 * arenaHalfSize, Depth: wallThickness},
			{Center: Vec3{X: -arenaHalfSize}, Width: wallThickness, Depth: 2 * arenaHalfSize},
			{Center: Vec3{X: arenaHalfSize}, Width: wallThickness, Depth: 2 * arenaHalfSize},
		},
		sites: map[Team]Vec3{},
	}

	if mode == ModeBomb {
		for _, c := range []Vec3{{X: -20, Z: -20}, {X: 20, Z: 20}, {}} {
			a.Obstacles = append(a.Obstacles, Box{Center: c, Width: bombObstacleSize, Depth: bombObstacleSize})
		}
		for team, site := range bombSites {
			a.sites[team] = site
		}
		return a
	}

	for i := 0; i < battleObstacles; i++ {
		a.Obstacles = append(a.Obstacles, Box{
			Center: Vec3{
				X: (rng.Float64()*2 - 1) * battleObstacleArea,
				Z: (rng.Float64()*2 - 1) * battleObstacleArea,
			},
			Width: battleObstacleMin + rng.Float64()*battleObstacleSpan,
			Depth: battleObstacleMin + rng.Float64()*battleObstacleSpan,
		})
	}
	return a
}

// CheckCollision reports whether a circle of radius at pos overlaps any
// wall or obstacle.
func (a *Arena) CheckCollision(pos Vec3, radius float64) bool {
	if a == nil {
		return false
	}
	for _, w := range a.Walls {
		if w.Contains(pos, radius) {
			return true
		}
	}
	for _, o := range a.Obstacles {
		if o.Contains(pos, radius) {
			return true
		}
	}
	return false
}

// ObstacleClearance returns the distance from pos to the nearest obstacle,
// or +Inf when there are none.
func (a *Arena) ObstacleClearance(pos Vec3) float64 {
	best := math.Inf(1)
	if a == nil {
		return best
	}
	for _, o := range a.Obstacles {
		best = math.Min(best, o.DistanceTo(pos))
	}
	return best
}

// BombSite returns the site of team. Battle maps have none.
func (a *Arena) BombSite(team Team) (Vec3, bool) {
	if a == nil {
		return Vec3{}, false
	}
	site, ok := a.sites[team]
	return site, ok
}

// Sites returns a copy of the bomb sites.
func (a *Arena) Sites() map[Team]Vec3 {
	out := make(map[Team]Vec3, len(bombSites))
	if a == nil {
		return out
	}
	for team, site := range a.sites {
		out[team] = site
	}
	return out
}
