package match

import (
	"sort"

	"github.com/musiliandrew/pesamali-financial-journey/internal/board"
	"github.com/musiliandrew/pesamali-financial-journey/internal/catalog"
	"github.com/musiliandrew/pesamali-financial-journey/internal/player"
	"github.com/musiliandrew/pesamali-financial-journey/internal/rng"
)

// PlayerSnapshot captures one seat's ledger for external use.
type PlayerSnapshot struct {
	UserID            string                `json:"userId"`
	Seat              int                   `json:"seat"`
	IsAI              bool                  `json:"isAi"`
	TokenPositions    []int                 `json:"tokens"`
	CurrentPoints     int64                 `json:"currentPoints"`
	SavingsPoints     int64                 `json:"savings"`
	LiabilityPoints   int64                 `json:"liabilities"`
	AssetReturnPoints int64                 `json:"assetReturnPoints"`
	Assets            []player.Holding      `json:"assets"`
	Cards             []player.CardInstance `json:"cards"`
	DreamBought       bool                  `json:"dreamBought"`
	BonusDraws        int                   `json:"bonusDraws"`
	Eliminated        bool                  `json:"eliminated"`
}

// Snapshot is a consistent full-state copy of a match. The persistence
// collaborator stores it after every update; restoring it (seed and draw
// counter included) resumes the match with identical future dice.
type Snapshot struct {
	MatchID      string           `json:"matchId"`
	Status       string           `json:"status"`
	Seed         string           `json:"seed"`
	DrawCounter  uint64           `json:"drawCounter"`
	TurnIndex    int              `json:"currentTurn"`
	SeatCount    int              `json:"seatCount"`
	BoardLength  int              `json:"boardLength"`
	YellowStrips []int            `json:"yellowStripSpots"`
	LastDice     []int            `json:"lastDiceRoll,omitempty"`
	Winner       string           `json:"winner,omitempty"`
	Players      []PlayerSnapshot `json:"players"`
}

// Snapshot returns a deep, consistent copy of the match state.
func (m *Match) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	players := make([]PlayerSnapshot, 0, len(m.players))
	for _, p := range m.players {
		if p == nil {
			continue
		}
		cp := p.Clone()
		players = append(players, PlayerSnapshot{
			UserID:            cp.UserID,
			Seat:              cp.SeatPosition,
			IsAI:              cp.IsAI,
			TokenPositions:    cp.TokenPositions,
			CurrentPoints:     cp.CurrentPoints,
			SavingsPoints:     cp.SavingsPoints,
			LiabilityPoints:   cp.LiabilityPoints,
			AssetReturnPoints: cp.AssetReturnPoints,
			Assets:            cp.Assets,
			Cards:             cp.Cards,
			DreamBought:       cp.DreamBought,
			BonusDraws:        cp.BonusDraws,
			Eliminated:        cp.Eliminated,
		})
	}

	yellow := m.geometry.YellowStrips()
	sort.Ints(yellow)

	var lastDice []int
	if m.lastDice != [2]int{} {
		lastDice = []int{m.lastDice[0], m.lastDice[1]}
	}

	return Snapshot{
		MatchID:      m.ID,
		Status:       m.status.String(),
		Seed:         m.Seed,
		DrawCounter:  m.seq.Counter(),
		TurnIndex:    m.turnIndex,
		SeatCount:    m.seatCount,
		BoardLength:  m.geometry.Length,
		YellowStrips: yellow,
		LastDice:     lastDice,
		Winner:       m.winnerID,
		Players:      players,
	}
}

func statusFromString(s string) Status {
	switch s {
	case "asset_selection":
		return StatusAssetSelection
	case "in_progress":
		return StatusInProgress
	case "ended":
		return StatusEnded
	default:
		return StatusWaiting
	}
}

// Restore rebuilds a match from a stored snapshot so an external store can
// re-hydrate it after a restart. The draw counter resumes exactly where it
// stopped.
func Restore(snap Snapshot, cat *catalog.Catalog) *Match {
	m := New(snap.MatchID, snap.Seed, snap.SeatCount,
		board.NewGeometry(snap.BoardLength, snap.YellowStrips), cat)
	m.status = statusFromString(snap.Status)
	m.seq = rng.NewSequence(snap.Seed, snap.DrawCounter)
	m.turnIndex = snap.TurnIndex
	m.winnerID = snap.Winner
	if len(snap.LastDice) == 2 {
		m.lastDice = [2]int{snap.LastDice[0], snap.LastDice[1]}
	}

	for _, ps := range snap.Players {
		p := player.New(ps.UserID, ps.Seat, ps.IsAI)
		p.TokenPositions = append([]int(nil), ps.TokenPositions...)
		p.CurrentPoints = ps.CurrentPoints
		p.SavingsPoints = ps.SavingsPoints
		p.LiabilityPoints = ps.LiabilityPoints
		p.AssetReturnPoints = ps.AssetReturnPoints
		p.Assets = append([]player.Holding(nil), ps.Assets...)
		p.Cards = append([]player.CardInstance(nil), ps.Cards...)
		p.DreamBought = ps.DreamBought
		p.BonusDraws = ps.BonusDraws
		p.Eliminated = ps.Eliminated
		if ps.Seat >= 0 && ps.Seat < len(m.players) {
			m.players[ps.Seat] = p
		}
	}
	return m
}
