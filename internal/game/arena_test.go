package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArenaSitesByMode(t *testing.T) {
	bomb := NewArena(ModeBomb, rand.New(rand.NewSource(1)))
	sites := bomb.Sites()
	assert.Len(t, sites, 2)
	assert.Equal(t, Vec3{X: -35, Z: -35}, sites[TeamRed])
	assert.Equal(t, Vec3{X: 35, Z: 35}, sites[TeamBlue])

	sites[TeamRed] = Vec3{}
	site, ok := bomb.BombSite(TeamRed)
	assert.True(t, ok)
	assert.Equal(t, Vec3{X: -35, Z: -35}, site, "Sites returns a copy")

	battle := NewArena(ModeBattle, rand.New(rand.NewSource(1)))
	assert.Empty(t, battle.Sites())
	_, ok = battle.BombSite(TeamBlue)
	assert.False(t, ok)

	var none *Arena
	assert.Empty(t, none.Sites())
}
