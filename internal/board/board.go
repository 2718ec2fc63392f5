// Package board holds the pure geometry rules of the game board: zone
// classification, move legality, and the phase windows that gate asset
// returns. Nothing here carries state.
package board

// DefaultLength is the tile count of the standard board.
const DefaultLength = 80

// DefaultYellowStrips lists the bonus tiles of the standard board, laid out
// as serpentine symmetric pairs including both endpoints.
var DefaultYellowStrips = []int{
	1, 80, 5, 76, 11, 70, 19, 62, 25, 56, 32, 49,
	38, 43, 48, 33, 54, 27, 59, 22, 66, 15, 71, 10, 77, 4,
}

// purchaseRanges are the tile ranges where assets may be bought.
var purchaseRanges = [][2]int{{12, 20}, {41, 50}}

// returnRanges are the tile ranges where asset returns may trigger. Returns
// additionally require an odd tile; both conditions must hold. The second
// range is intentionally narrow.
var returnRanges = [][2]int{{21, 30}, {60, 61}}

// Zone classifies what a landed-on tile can trigger. A single landing may
// carry the yellow bonus and an economic zone at the same time, so Zone
// reports them independently.
type Zone struct {
	Yellow        bool
	AssetPurchase bool
	AssetReturn   bool
}

// Neutral reports whether the tile triggers nothing.
func (z Zone) Neutral() bool {
	return !z.Yellow && !z.AssetPurchase && !z.AssetReturn
}

// Geometry is the fixed layout of one match's board.
type Geometry struct {
	Length       int
	yellowStrips map[int]bool
}

// NewGeometry builds a board of the given length with the given yellow-strip
// tiles. Zero or nil arguments fall back to the standard board.
func NewGeometry(length int, yellowStrips []int) Geometry {
	if length <= 0 {
		length = DefaultLength
	}
	if yellowStrips == nil {
		yellowStrips = DefaultYellowStrips
	}
	set := make(map[int]bool, len(yellowStrips))
	for _, tile := range yellowStrips {
		set[tile] = true
	}
	return Geometry{Length: length, yellowStrips: set}
}

// YellowStrips returns the yellow-strip tiles in ascending order of the
// original list's membership test, for snapshots.
func (g Geometry) YellowStrips() []int {
	tiles := make([]int, 0, len(g.yellowStrips))
	for tile := range g.yellowStrips {
		tiles = append(tiles, tile)
	}
	return tiles
}

// IsYellow reports whether the tile grants a bonus card draw.
func (g Geometry) IsYellow(tile int) bool {
	return g.yellowStrips[tile]
}

// ZoneOf classifies a tile. Yellow takes precedence for bonus-card
// triggering; the economic zones resolve independently so an overlapping
// tile fires both effects on one landing.
func (g Geometry) ZoneOf(tile int) Zone {
	return Zone{
		Yellow:        g.IsYellow(tile),
		AssetPurchase: inRanges(tile, purchaseRanges),
		AssetReturn:   inRanges(tile, returnRanges) && tile%2 == 1,
	}
}

func inRanges(tile int, ranges [][2]int) bool {
	for _, r := range ranges {
		if tile >= r[0] && tile <= r[1] {
			return true
		}
	}
	return false
}

// ValidMoves returns the indices of tokens whose position advanced by
// diceTotal stays on the board. Moves past the final tile are illegal.
func ValidMoves(tokenPositions []int, diceTotal, boardLength int) []int {
	moves := make([]int, 0, len(tokenPositions))
	for idx, pos := range tokenPositions {
		if pos+diceTotal <= boardLength {
			moves = append(moves, idx)
		}
	}
	return moves
}

// PhaseOf maps a tile to its board phase: tiles 1-10 are phase 1, 11-20
// phase 2, and so on. Tile 0 (the start) counts as phase 1.
func PhaseOf(tile int) int {
	if tile < 1 {
		tile = 1
	}
	return (tile-1)/10 + 1
}

// ReturnWindow returns the odd tiles of the phase after the one the asset
// was bought in. An asset only pays out when a token lands inside this
// window.
func ReturnWindow(purchaseSpot int) map[int]bool {
	next := PhaseOf(purchaseSpot) + 1
	start := (next-1)*10 + 1
	window := make(map[int]bool, 5)
	for tile := start; tile <= start+9; tile++ {
		if tile%2 == 1 {
			window[tile] = true
		}
	}
	return window
}
