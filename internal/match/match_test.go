package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musiliandrew/pesamali-financial-journey/internal/board"
	"github.com/musiliandrew/pesamali-financial-journey/internal/catalog"
	"github.com/musiliandrew/pesamali-financial-journey/internal/player"
	"github.com/musiliandrew/pesamali-financial-journey/internal/stream"
)

// inProgressMatch builds a two-player match already in the turn loop, with
// full control over player ledgers via the snapshot restore path.
func inProgressMatch(t *testing.T, seed string, players []PlayerSnapshot) *Match {
	t.Helper()
	return Restore(Snapshot{
		MatchID:     "m1",
		Status:      "in_progress",
		Seed:        seed,
		DrawCounter: 0,
		TurnIndex:   0,
		SeatCount:   len(players),
		BoardLength: board.DefaultLength,
		Players:     players,
	}, catalog.Default())
}

func seatSnapshot(userID string, seat int, tokens []int) PlayerSnapshot {
	return PlayerSnapshot{
		UserID:         userID,
		Seat:           seat,
		TokenPositions: tokens,
		CurrentPoints:  player.StartingPoints,
	}
}

func TestLobbyLifecycle(t *testing.T) {
	m := New("m1", "s1", 2, board.NewGeometry(0, nil), catalog.Default())
	require.Equal(t, StatusWaiting, m.Status())

	require.NoError(t, m.Join("alice", 0, false))
	require.NoError(t, m.Join("bot", 1, true))

	assert.ErrorIs(t, m.Join("carol", 0, false), ErrSeatTaken)
	assert.ErrorIs(t, m.Join("alice", 1, false), ErrSeatTaken)
	assert.ErrorIs(t, m.Join("carol", 2, false), ErrMatchFull)

	require.NoError(t, m.Start())
	assert.Equal(t, StatusAssetSelection, m.Status())

	// Status only moves forward.
	assert.ErrorIs(t, m.Start(), ErrWrongStatus)
	assert.ErrorIs(t, m.Join("carol", 1, false), ErrWrongStatus)
}

func TestStartRequiresFullSeats(t *testing.T) {
	m := New("m1", "s1", 2, board.NewGeometry(0, nil), catalog.Default())
	require.NoError(t, m.Join("alice", 0, false))
	assert.ErrorIs(t, m.Start(), ErrWrongStatus)
}

func TestAssetSelectionPhase(t *testing.T) {
	m := New("m1", "s1", 2, board.NewGeometry(0, nil), catalog.Default())
	require.NoError(t, m.Join("alice", 0, false))
	require.NoError(t, m.Join("bob", 1, false))
	require.NoError(t, m.Start())

	// Rolling is not legal until the turn loop begins.
	_, err := m.Apply(Action{Type: ActionRollDice, UserID: "alice"})
	assert.ErrorIs(t, err, ErrWrongStatus)

	// Selection goes seat by seat.
	_, err = m.Apply(Action{Type: ActionPurchaseAsset, UserID: "bob", AssetID: "a2"})
	assert.ErrorIs(t, err, ErrNotYourTurn)

	events, err := m.Apply(Action{Type: ActionPurchaseAsset, UserID: "alice", AssetID: "a1"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, stream.UpdateAssetPurchase, events[0].Type)
	assert.Equal(t, StatusAssetSelection, m.Status())

	_, err = m.Apply(Action{Type: ActionPurchaseAsset, UserID: "bob", AssetID: "a2"})
	require.NoError(t, err)

	// Everyone holds an opening asset: the turn loop starts at seat 0.
	assert.Equal(t, StatusInProgress, m.Status())
	assert.Equal(t, 0, m.TurnSeat())
}

func TestRollGoldenDiceAndTurnAdvance(t *testing.T) {
	m := inProgressMatch(t, "s1", []PlayerSnapshot{
		seatSnapshot("alice", 0, []int{0, 0, 0, 0}),
		seatSnapshot("bob", 1, []int{0, 0, 0, 0}),
	})

	events, err := m.Apply(Action{Type: ActionRollDice, UserID: "alice"})
	require.NoError(t, err)
	require.Len(t, events, 1)

	result := events[0].Data.(DiceResult)
	// Seed "s1" at counter 0 always yields this pair.
	assert.Equal(t, 5, result.Die1)
	assert.Equal(t, 6, result.Die2)
	assert.Equal(t, 11, result.Sum)
	assert.Equal(t, 11, result.Position)
	assert.True(t, result.Yellow, "tile 11 is a yellow strip")
	assert.Equal(t, 1, result.NextSeat)

	assert.Equal(t, uint64(2), m.DrawCounter())
	assert.Equal(t, 1, m.TurnSeat())

	// Bob's roll consumes the next two draws.
	events, err = m.Apply(Action{Type: ActionRollDice, UserID: "bob"})
	require.NoError(t, err)
	result = events[0].Data.(DiceResult)
	assert.Equal(t, 6, result.Die1)
	assert.Equal(t, 6, result.Die2)
	assert.True(t, result.CanBuy, "tile 12 is in the purchase zone")
	assert.Equal(t, uint64(4), m.DrawCounter())
	assert.Equal(t, 0, m.TurnSeat())
}

func TestRollNotYourTurn(t *testing.T) {
	m := inProgressMatch(t, "s1", []PlayerSnapshot{
		seatSnapshot("alice", 0, []int{0, 0, 0, 0}),
		seatSnapshot("bob", 1, []int{0, 0, 0, 0}),
	})

	_, err := m.Apply(Action{Type: ActionRollDice, UserID: "bob"})
	assert.ErrorIs(t, err, ErrNotYourTurn)
	assert.Equal(t, uint64(0), m.DrawCounter(), "rejected action consumes no draws")

	_, err = m.Apply(Action{Type: ActionRollDice, UserID: "mallory"})
	assert.ErrorIs(t, err, ErrUnknownPlayer)
}

func TestRollNoValidMovesSpendsTurn(t *testing.T) {
	m := inProgressMatch(t, "s1", []PlayerSnapshot{
		seatSnapshot("alice", 0, []int{78, 79, 80, 75}),
		seatSnapshot("bob", 1, []int{0, 0, 0, 0}),
	})

	// First roll totals 11: every token would overshoot tile 80.
	events, err := m.Apply(Action{Type: ActionRollDice, UserID: "alice"})
	require.NoError(t, err)

	result := events[0].Data.(DiceResult)
	assert.True(t, result.NoMove)
	assert.Equal(t, -1, result.TokenIndex)
	assert.Equal(t, []int{78, 79, 80, 75}, m.Snapshot().Players[0].TokenPositions)

	// The turn still advances and the dice were still consumed.
	assert.Equal(t, 1, m.TurnSeat())
	assert.Equal(t, uint64(2), m.DrawCounter())
}

func TestRollInvalidTokenChoiceLeavesStateUntouched(t *testing.T) {
	m := inProgressMatch(t, "s1", []PlayerSnapshot{
		seatSnapshot("alice", 0, []int{0, 75, 0, 0}),
		seatSnapshot("bob", 1, []int{0, 0, 0, 0}),
	})

	// Token 1 cannot move 11 from tile 75.
	one := 1
	_, err := m.Apply(Action{Type: ActionRollDice, UserID: "alice", TokenIndex: &one})
	assert.ErrorIs(t, err, player.ErrInvalidToken)

	assert.Equal(t, uint64(0), m.DrawCounter())
	assert.Equal(t, 0, m.TurnSeat())

	// Retrying with a legal token sees the same dice.
	zero := 0
	events, err := m.Apply(Action{Type: ActionRollDice, UserID: "alice", TokenIndex: &zero})
	require.NoError(t, err)
	assert.Equal(t, 11, events[0].Data.(DiceResult).Sum)
}

func TestRollZoneOverlapTriggersBothEffects(t *testing.T) {
	// Alice owns a1 bought at tile 16 (phase 2), so its return window is the
	// odd tiles 21-29. Her first roll totals 11 and lands token 0 on 27: a
	// yellow strip inside the window. One landing, both effects.
	m := inProgressMatch(t, "s1", []PlayerSnapshot{
		{
			UserID:         "alice",
			Seat:           0,
			TokenPositions: []int{16, 0, 0, 0},
			CurrentPoints:  500,
			Assets:         []player.Holding{{AssetID: "a1", PurchaseSpot: 16}},
		},
		seatSnapshot("bob", 1, []int{0, 0, 0, 0}),
	})

	zero := 0
	events, err := m.Apply(Action{Type: ActionRollDice, UserID: "alice", TokenIndex: &zero})
	require.NoError(t, err)

	result := events[0].Data.(DiceResult)
	require.Equal(t, 27, result.Position)
	assert.True(t, result.Yellow)
	require.Len(t, result.Returns, 1)
	assert.Equal(t, AssetReturnEvent{AssetID: "a1", Amount: 320, ReturnsCollected: 1}, result.Returns[0])

	snap := m.Snapshot()
	assert.Equal(t, int64(820), snap.Players[0].CurrentPoints)
	assert.Equal(t, 1, snap.Players[0].BonusDraws)
}

func TestRollYellowSkipPenalty(t *testing.T) {
	// With all tokens at 0 the roll of 11 could land on yellow tile 11, but
	// alice moves the token sitting at 5 to neutral tile 16 instead.
	m := inProgressMatch(t, "s1", []PlayerSnapshot{
		seatSnapshot("alice", 0, []int{0, 5, 0, 0}),
		seatSnapshot("bob", 1, []int{0, 0, 0, 0}),
	})

	one := 1
	events, err := m.Apply(Action{Type: ActionRollDice, UserID: "alice", TokenIndex: &one})
	require.NoError(t, err)

	result := events[0].Data.(DiceResult)
	assert.Equal(t, 16, result.Position)
	assert.False(t, result.Yellow)
	assert.Equal(t, int64(YellowSkipPenalty), result.YellowSkipPenalty)
	assert.Equal(t, int64(YellowSkipPenalty), m.Snapshot().Players[0].LiabilityPoints)
}

func TestDrawPlayingCardRequiresEligibility(t *testing.T) {
	m := inProgressMatch(t, "s1", []PlayerSnapshot{
		seatSnapshot("alice", 0, []int{0, 0, 0, 0}),
		seatSnapshot("bob", 1, []int{0, 0, 0, 0}),
	})

	_, err := m.Apply(Action{Type: ActionDrawPlayingCard, UserID: "alice"})
	assert.ErrorIs(t, err, ErrNotEligible)
}

func TestDrawPlayingCardConsumesBonus(t *testing.T) {
	players := []PlayerSnapshot{
		seatSnapshot("alice", 0, []int{0, 0, 0, 0}),
		seatSnapshot("bob", 1, []int{0, 0, 0, 0}),
	}
	players[0].BonusDraws = 1
	m := inProgressMatch(t, "s1", players)

	events, err := m.Apply(Action{Type: ActionDrawPlayingCard, UserID: "alice"})
	require.NoError(t, err)
	require.Len(t, events, 1)

	drawn := events[0].Data.(CardDrawnEvent)
	assert.Equal(t, "pl1", drawn.CardID)
	assert.Equal(t, int64(50), drawn.EffectPoints)

	snap := m.Snapshot()
	assert.Equal(t, 0, snap.Players[0].BonusDraws)
	require.Len(t, snap.Players[0].Cards, 1)
	assert.True(t, snap.Players[0].Cards[0].Played, "event cards resolve on draw")
	assert.Equal(t, int64(player.StartingPoints+50), snap.Players[0].CurrentPoints)
	assert.Equal(t, uint64(1), m.DrawCounter(), "card draw consumes one RNG draw")

	_, err = m.Apply(Action{Type: ActionDrawPlayingCard, UserID: "alice"})
	assert.ErrorIs(t, err, ErrNotEligible)
}

// A drawn playing card must never wedge the all-cards-played win conjunct:
// it resolves immediately, so a player who otherwise qualifies can still
// win — here the draw itself closes out the match.
func TestDrawPlayingCardDoesNotBlockWin(t *testing.T) {
	players := []PlayerSnapshot{
		{
			UserID:         "alice",
			Seat:           0,
			TokenPositions: []int{10, 0, 0, 0},
			CurrentPoints:  1000,
			SavingsPoints:  500,
			Assets: []player.Holding{
				{AssetID: "a1", PurchaseSpot: 16},
				{AssetID: "a2", PurchaseSpot: 18},
			},
			DreamBought: true,
			BonusDraws:  1,
		},
		seatSnapshot("bob", 1, []int{0, 0, 0, 0}),
	}
	m := inProgressMatch(t, "s1", players)

	events, err := m.Apply(Action{Type: ActionDrawPlayingCard, UserID: "alice"})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, stream.UpdateCardDrawn, events[0].Type)
	assert.Equal(t, stream.UpdateGameEnded, events[1].Type)

	assert.Equal(t, StatusEnded, m.Status())
	assert.Equal(t, "alice", m.Winner())
}

func TestNonTurnActionsValidation(t *testing.T) {
	m := inProgressMatch(t, "s1", []PlayerSnapshot{
		seatSnapshot("alice", 0, []int{0, 0, 0, 0}),
		seatSnapshot("bob", 1, []int{0, 0, 0, 0}),
	})

	_, err := m.Apply(Action{Type: ActionPurchaseAsset, UserID: "alice", AssetID: "nope"})
	assert.ErrorIs(t, err, catalog.ErrUnknownEntry)

	_, err = m.Apply(Action{Type: ActionPlaySavingsCard, UserID: "alice", CardID: "sp1", Amount: 100})
	assert.ErrorIs(t, err, ErrUnknownAction, "spending card is not playable as savings")

	_, err = m.Apply(Action{Type: "dance", UserID: "alice"})
	assert.ErrorIs(t, err, ErrUnknownAction)

	_, err = m.Apply(Action{Type: ActionPurchaseDream, UserID: "bob", DreamID: "d1"})
	assert.ErrorIs(t, err, ErrNotYourTurn)
}

func TestWinOffCardPlay(t *testing.T) {
	// Alice has everything but one unplayed spending card. Playing it must
	// end the match immediately; a win is not tied to a move.
	players := []PlayerSnapshot{
		{
			UserID:         "alice",
			Seat:           0,
			TokenPositions: []int{10, 0, 0, 0},
			CurrentPoints:  1000,
			SavingsPoints:  500,
			Assets: []player.Holding{
				{AssetID: "a1", PurchaseSpot: 16},
				{AssetID: "a2", PurchaseSpot: 18},
			},
			Cards:       []player.CardInstance{{CardID: "sp1", Type: catalog.CardTypeSpending}},
			DreamBought: true,
		},
		seatSnapshot("bob", 1, []int{0, 0, 0, 0}),
	}
	m := inProgressMatch(t, "s1", players)

	events, err := m.Apply(Action{Type: ActionPlaySpendingCard, UserID: "alice", CardID: "sp1"})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, stream.UpdateCardPlayed, events[0].Type)
	assert.Equal(t, stream.UpdateGameEnded, events[1].Type)
	assert.Equal(t, GameEndedEvent{WinnerID: "alice", WinnerSeat: 0}, events[1].Data)

	assert.Equal(t, StatusEnded, m.Status())
	assert.Equal(t, "alice", m.Winner())

	// Terminal state freezes every action.
	_, err = m.Apply(Action{Type: ActionRollDice, UserID: "bob"})
	assert.ErrorIs(t, err, ErrMatchEnded)
	_, err = m.Apply(Action{Type: ActionPurchaseDream, UserID: "alice", DreamID: "d1"})
	assert.ErrorIs(t, err, ErrMatchEnded)
}

func TestEliminatedSeatSkipped(t *testing.T) {
	players := []PlayerSnapshot{
		seatSnapshot("alice", 0, []int{0, 0, 0, 0}),
		seatSnapshot("bob", 1, []int{0, 0, 0, 0}),
		seatSnapshot("carol", 2, []int{0, 0, 0, 0}),
	}
	players[1].Eliminated = true
	m := inProgressMatch(t, "s1", players)

	_, err := m.Apply(Action{Type: ActionRollDice, UserID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, 2, m.TurnSeat(), "eliminated seat 1 is skipped")
}

func TestDeterministicReplay(t *testing.T) {
	run := func() (Snapshot, []DiceResult) {
		m := inProgressMatch(t, "determinism", []PlayerSnapshot{
			seatSnapshot("alice", 0, []int{0, 0, 0, 0}),
			seatSnapshot("bob", 1, []int{0, 0, 0, 0}),
		})
		var dice []DiceResult
		actors := []string{"alice", "bob"}
		for i := 0; i < 12; i++ {
			events, err := m.Apply(Action{Type: ActionRollDice, UserID: actors[i%2]})
			require.NoError(t, err)
			dice = append(dice, events[0].Data.(DiceResult))
		}
		return m.Snapshot(), dice
	}

	snapA, diceA := run()
	snapB, diceB := run()

	assert.Equal(t, snapA, snapB)
	assert.Equal(t, diceA, diceB)
	assert.Equal(t, uint64(24), snapA.DrawCounter)
}

func TestSnapshotRestoreResumesDice(t *testing.T) {
	m := inProgressMatch(t, "replay-seed", []PlayerSnapshot{
		seatSnapshot("alice", 0, []int{0, 0, 0, 0}),
		seatSnapshot("bob", 1, []int{0, 0, 0, 0}),
	})

	_, err := m.Apply(Action{Type: ActionRollDice, UserID: "alice"})
	require.NoError(t, err)

	// A twin continuing from the persisted snapshot rolls the same future.
	twin := Restore(m.Snapshot(), catalog.Default())
	require.Equal(t, m.DrawCounter(), twin.DrawCounter())

	a, err := m.Apply(Action{Type: ActionRollDice, UserID: "bob"})
	require.NoError(t, err)
	b, err := twin.Apply(Action{Type: ActionRollDice, UserID: "bob"})
	require.NoError(t, err)

	assert.Equal(t, a[0].Data.(DiceResult), b[0].Data.(DiceResult))
	assert.Equal(t, m.Snapshot(), twin.Snapshot())
}

func TestAbandonIsTerminal(t *testing.T) {
	m := inProgressMatch(t, "s1", []PlayerSnapshot{
		seatSnapshot("alice", 0, []int{0, 0, 0, 0}),
		seatSnapshot("bob", 1, []int{0, 0, 0, 0}),
	})

	m.Abandon()
	assert.Equal(t, StatusEnded, m.Status())

	_, err := m.Apply(Action{Type: ActionRollDice, UserID: "alice"})
	assert.ErrorIs(t, err, ErrMatchEnded)
	assert.True(t, IsTerminal(err))
}

func TestErrorTaxonomy(t *testing.T) {
	assert.True(t, IsRuleViolation(ErrNotYourTurn))
	assert.True(t, IsRuleViolation(player.ErrThresholdNotMet))
	assert.True(t, IsValidation(catalog.ErrUnknownEntry))
	assert.True(t, IsValidation(ErrUnknownPlayer))
	assert.True(t, IsTerminal(ErrMatchEnded))
	assert.False(t, IsRuleViolation(ErrMatchEnded))
	assert.False(t, IsValidation(player.ErrInsufficientFunds))
}
