package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZoneOfPurchaseRanges(t *testing.T) {
	g := NewGeometry(0, nil)

	cases := []struct {
		tile     int
		purchase bool
	}{
		{11, false},
		{12, true},
		{16, true},
		{20, true},
		{21, false},
		{40, false},
		{41, true},
		{50, true},
		{51, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.purchase, g.ZoneOf(tc.tile).AssetPurchase, "tile %d", tc.tile)
	}
}

func TestZoneOfReturnRequiresOddTile(t *testing.T) {
	g := NewGeometry(0, nil)

	// In range but even: no return.
	assert.False(t, g.ZoneOf(22).AssetReturn)
	assert.False(t, g.ZoneOf(30).AssetReturn)
	assert.False(t, g.ZoneOf(60).AssetReturn)

	// In range and odd: return.
	assert.True(t, g.ZoneOf(21).AssetReturn)
	assert.True(t, g.ZoneOf(29).AssetReturn)
	assert.True(t, g.ZoneOf(61).AssetReturn)

	// Odd but out of range: no return.
	assert.False(t, g.ZoneOf(31).AssetReturn)
	assert.False(t, g.ZoneOf(59).AssetReturn)
	assert.False(t, g.ZoneOf(63).AssetReturn)
}

func TestZoneOverlapYellowAndReturn(t *testing.T) {
	// Tile 27 is a default yellow strip and sits odd inside [21,30]: a single
	// landing must trigger both the bonus draw and the economic effect.
	g := NewGeometry(0, nil)
	z := g.ZoneOf(27)

	assert.True(t, z.Yellow)
	assert.True(t, z.AssetReturn)
	assert.False(t, z.Neutral())
}

func TestZoneNeutral(t *testing.T) {
	g := NewGeometry(0, nil)
	z := g.ZoneOf(34)

	assert.False(t, z.Yellow)
	assert.False(t, z.AssetPurchase)
	assert.False(t, z.AssetReturn)
	assert.True(t, z.Neutral())
}

func TestCustomYellowStrips(t *testing.T) {
	g := NewGeometry(40, []int{3, 7})

	assert.Equal(t, 40, g.Length)
	assert.True(t, g.IsYellow(3))
	assert.False(t, g.IsYellow(1))
}

func TestValidMoves(t *testing.T) {
	assert.Equal(t, []int{0}, ValidMoves([]int{0}, 7, 80))
	assert.Equal(t, []int{}, ValidMoves([]int{78}, 7, 80))
	assert.Equal(t, []int{1, 3}, ValidMoves([]int{78, 10, 79, 73}, 7, 80))

	// Landing exactly on the final tile is legal.
	assert.Equal(t, []int{0}, ValidMoves([]int{73}, 7, 80))
}

func TestPhaseOf(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 10: 1, 11: 2, 20: 2, 21: 3, 55: 6, 80: 8}
	for tile, phase := range cases {
		assert.Equal(t, phase, PhaseOf(tile), "tile %d", tile)
	}
}

func TestReturnWindow(t *testing.T) {
	// Bought in phase 2 (tile 15): window is the odd tiles of phase 3.
	window := ReturnWindow(15)
	assert.Equal(t, map[int]bool{21: true, 23: true, 25: true, 27: true, 29: true}, window)

	// Bought at tile 48 (phase 5): window is the odd tiles of 51-60.
	window = ReturnWindow(48)
	assert.True(t, window[51])
	assert.True(t, window[59])
	assert.False(t, window[61])
	assert.False(t, window[50])
}
