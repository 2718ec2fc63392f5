// Package match implements the authoritative state machine for one game
// session: turn order, action resolution, win detection, and the registry
// that serializes concurrent access per match.
package match

import (
	"fmt"
	"sync"

	"github.com/musiliandrew/pesamali-financial-journey/internal/board"
	"github.com/musiliandrew/pesamali-financial-journey/internal/catalog"
	"github.com/musiliandrew/pesamali-financial-journey/internal/player"
	"github.com/musiliandrew/pesamali-financial-journey/internal/rng"
	"github.com/musiliandrew/pesamali-financial-journey/internal/stream"
)

// Status is a match's lifecycle phase. It only moves forward; Ended is
// terminal.
type Status int

const (
	StatusWaiting Status = iota
	StatusAssetSelection
	StatusInProgress
	StatusEnded
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusAssetSelection:
		return "asset_selection"
	case StatusInProgress:
		return "in_progress"
	case StatusEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// YellowSkipPenalty is the liability added when a player could have landed
// on a yellow strip this roll but moved elsewhere.
const YellowSkipPenalty = 20

// Match owns one session's full state. Mutations go through Apply, which
// callers must serialize per match; the registry does this via its runtime
// lock. The internal mutex keeps concurrent Snapshot reads consistent.
type Match struct {
	ID   string
	Seed string

	mu        sync.RWMutex
	status    Status
	seq       *rng.Sequence
	turnIndex int
	seatCount int
	players   []*player.Player
	geometry  board.Geometry
	catalog   *catalog.Catalog
	winnerID  string
	lastDice  [2]int
}

// New creates a match in the waiting phase with empty seats.
func New(id, seed string, seatCount int, geometry board.Geometry, cat *catalog.Catalog) *Match {
	if seatCount < 1 {
		seatCount = 1
	}
	return &Match{
		ID:        id,
		Seed:      seed,
		status:    StatusWaiting,
		seq:       rng.NewSequence(seed, 0),
		seatCount: seatCount,
		players:   make([]*player.Player, seatCount),
		geometry:  geometry,
		catalog:   cat,
	}
}

// Status returns the current lifecycle phase.
func (m *Match) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// DrawCounter returns the number of RNG draws consumed so far.
func (m *Match) DrawCounter() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.seq.Counter()
}

// TurnSeat returns the seat whose turn is active.
func (m *Match) TurnSeat() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.turnIndex
}

// Winner returns the winning user id once the match has ended with a win.
func (m *Match) Winner() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.winnerID
}

// Join fills a seat during the waiting phase. Seat order is join order for
// the rest of the match.
func (m *Match) Join(userID string, seat int, isAI bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != StatusWaiting {
		return fmt.Errorf("join in %s: %w", m.status, ErrWrongStatus)
	}
	if seat < 0 || seat >= m.seatCount {
		return fmt.Errorf("seat %d of %d: %w", seat, m.seatCount, ErrMatchFull)
	}
	if m.players[seat] != nil {
		return fmt.Errorf("seat %d: %w", seat, ErrSeatTaken)
	}
	for _, p := range m.players {
		if p != nil && p.UserID == userID {
			return fmt.Errorf("user %q: %w", userID, ErrSeatTaken)
		}
	}
	m.players[seat] = player.New(userID, seat, isAI)
	return nil
}

// Start moves the match from waiting into the asset-selection phase. Every
// seat must be filled.
func (m *Match) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != StatusWaiting {
		return fmt.Errorf("start in %s: %w", m.status, ErrWrongStatus)
	}
	for seat, p := range m.players {
		if p == nil {
			return fmt.Errorf("seat %d empty: %w", seat, ErrWrongStatus)
		}
	}
	m.status = StatusAssetSelection
	m.turnIndex = 0
	return nil
}

// Abandon terminates the match without a winner. Idempotent once ended.
func (m *Match) Abandon() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = StatusEnded
}

// Apply validates and resolves one action, returning the resulting events
// in emission order. A non-nil error means nothing changed. Callers must
// serialize Apply invocations for the same match.
func (m *Match) Apply(a Action) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status == StatusEnded {
		return nil, ErrMatchEnded
	}

	p := m.playerByUser(a.UserID)
	if p == nil {
		return nil, fmt.Errorf("user %q: %w", a.UserID, ErrUnknownPlayer)
	}
	if p.SeatPosition != m.turnIndex {
		return nil, fmt.Errorf("seat %d acting on seat %d's turn: %w",
			p.SeatPosition, m.turnIndex, ErrNotYourTurn)
	}

	switch a.Type {
	case ActionRollDice:
		if m.status != StatusInProgress {
			return nil, fmt.Errorf("roll in %s: %w", m.status, ErrWrongStatus)
		}
		return m.applyRoll(p, a)
	case ActionPurchaseAsset:
		if m.status != StatusAssetSelection && m.status != StatusInProgress {
			return nil, fmt.Errorf("purchase in %s: %w", m.status, ErrWrongStatus)
		}
		return m.applyPurchaseAsset(p, a)
	case ActionPlaySavingsCard, ActionPlaySpendingCard, ActionDrawPlayingCard, ActionPurchaseDream:
		if m.status != StatusInProgress {
			return nil, fmt.Errorf("%s in %s: %w", a.Type, m.status, ErrWrongStatus)
		}
		switch a.Type {
		case ActionPlaySavingsCard:
			return m.applySavingsCard(p, a)
		case ActionPlaySpendingCard:
			return m.applySpendingCard(p, a)
		case ActionDrawPlayingCard:
			return m.applyDrawCard(p)
		default:
			return m.applyPurchaseDream(p, a)
		}
	default:
		return nil, fmt.Errorf("%q: %w", a.Type, ErrUnknownAction)
	}
}

func (m *Match) playerByUser(userID string) *player.Player {
	for _, p := range m.players {
		if p != nil && p.UserID == userID {
			return p
		}
	}
	return nil
}

// applyRoll runs one full turn: dice, move, zone resolution, win check,
// turn advance. A roll with no legal move is still a spent turn.
func (m *Match) applyRoll(p *player.Player, a Action) ([]Event, error) {
	// Peek the dice without committing the draws: a rejected roll must
	// leave the draw counter exactly where it was.
	counter := m.seq.Counter()
	d1 := int(rng.Draw(m.Seed, counter)*6) + 1
	d2 := int(rng.Draw(m.Seed, counter+1)*6) + 1
	total := d1 + d2

	result := DiceResult{
		UserID: p.UserID,
		Die1:   d1,
		Die2:   d2,
		Sum:    total,
	}

	valid := board.ValidMoves(p.TokenPositions, total, m.geometry.Length)
	if len(valid) == 0 {
		// A stuck player does not block the match.
		m.commitRoll(d1, d2)
		result.NoMove = true
		result.TokenIndex = -1
		m.advanceTurn()
		result.NextSeat = m.turnIndex
		return []Event{{Type: stream.UpdateDiceResult, Data: result}}, nil
	}

	tokenIdx := valid[0]
	if a.TokenIndex != nil {
		tokenIdx = -1
		for _, idx := range valid {
			if idx == *a.TokenIndex {
				tokenIdx = idx
				break
			}
		}
		if tokenIdx == -1 {
			return nil, fmt.Errorf("token %d cannot move %d: %w",
				*a.TokenIndex, total, player.ErrInvalidToken)
		}
	}
	m.commitRoll(d1, d2)

	couldReachYellow := false
	for _, idx := range valid {
		if m.geometry.IsYellow(p.TokenPositions[idx] + total) {
			couldReachYellow = true
			break
		}
	}

	if err := p.ApplyMove(tokenIdx, total, m.geometry.Length); err != nil {
		return nil, err
	}
	position := p.TokenPositions[tokenIdx]
	result.TokenIndex = tokenIdx
	result.Position = position

	zone := m.geometry.ZoneOf(position)
	if couldReachYellow && !zone.Yellow {
		p.LiabilityPoints += YellowSkipPenalty
		result.YellowSkipPenalty = YellowSkipPenalty
	}
	if zone.Yellow {
		p.BonusDraws++
		result.Yellow = true
	}
	result.CanBuy = zone.AssetPurchase

	// Asset returns resolve automatically. An asset pays out when the landed
	// tile falls inside the odd-tile window of the phase after its purchase,
	// up to its cap. Yellow and returns can both fire on one landing.
	for _, h := range p.Assets {
		if !board.ReturnWindow(h.PurchaseSpot)[position] {
			continue
		}
		asset, err := m.catalog.Asset(h.AssetID)
		if err != nil {
			continue
		}
		if p.CollectAssetReturn(asset) {
			result.Returns = append(result.Returns, AssetReturnEvent{
				AssetID:          asset.ID,
				Amount:           asset.ProfitPerReturn,
				ReturnsCollected: m.returnsCollected(p, asset.ID),
			})
		}
	}

	if p.CheckWinCondition() {
		result.NextSeat = m.turnIndex
		return append([]Event{{Type: stream.UpdateDiceResult, Data: result}}, m.endWithWinner(p)), nil
	}

	m.advanceTurn()
	result.NextSeat = m.turnIndex
	return []Event{{Type: stream.UpdateDiceResult, Data: result}}, nil
}

// commitRoll consumes the two peeked draws once the roll is accepted.
func (m *Match) commitRoll(d1, d2 int) {
	m.seq.Next()
	m.seq.Next()
	m.lastDice = [2]int{d1, d2}
}

func (m *Match) returnsCollected(p *player.Player, assetID string) int {
	for _, h := range p.Assets {
		if h.AssetID == assetID {
			return h.ReturnsCollected
		}
	}
	return 0
}

func (m *Match) applyPurchaseAsset(p *player.Player, a Action) ([]Event, error) {
	asset, err := m.catalog.Asset(a.AssetID)
	if err != nil {
		return nil, err
	}
	spot := p.FurthestToken()
	if err := p.PurchaseAsset(asset, spot); err != nil {
		return nil, err
	}

	ev := AssetPurchaseEvent{UserID: p.UserID, AssetID: asset.ID, PurchaseSpot: spot}

	if m.status == StatusAssetSelection {
		// Selecting an opening asset spends the selection turn; once every
		// seat holds one the turn loop begins at seat 0.
		m.advanceTurn()
		if m.allSelected() {
			m.status = StatusInProgress
			m.turnIndex = 0
		}
		ev.NextSeat = m.turnIndex
		return []Event{{Type: stream.UpdateAssetPurchase, Data: ev}}, nil
	}

	ev.NextSeat = m.turnIndex
	events := []Event{{Type: stream.UpdateAssetPurchase, Data: ev}}
	if p.CheckWinCondition() {
		events = append(events, m.endWithWinner(p))
	}
	return events, nil
}

func (m *Match) allSelected() bool {
	for _, p := range m.players {
		if len(p.Assets) == 0 {
			return false
		}
	}
	return true
}

func (m *Match) applySavingsCard(p *player.Player, a Action) ([]Event, error) {
	card, err := m.catalog.Card(a.CardID)
	if err != nil {
		return nil, err
	}
	if card.Type != catalog.CardTypeSavings {
		return nil, fmt.Errorf("card %q is %s, not savings: %w", card.ID, card.Type, ErrUnknownAction)
	}
	if err := p.PlaySavingsCard(card, a.Amount); err != nil {
		return nil, err
	}

	events := []Event{{Type: stream.UpdateCardPlayed, Data: CardPlayedEvent{
		UserID:    p.UserID,
		CardID:    card.ID,
		CardType:  string(card.Type),
		Amount:    a.Amount,
		Liability: p.LiabilityPoints,
	}}}
	if p.CheckWinCondition() {
		events = append(events, m.endWithWinner(p))
	}
	return events, nil
}

func (m *Match) applySpendingCard(p *player.Player, a Action) ([]Event, error) {
	card, err := m.catalog.Card(a.CardID)
	if err != nil {
		return nil, err
	}
	if card.Type != catalog.CardTypeSpending {
		return nil, fmt.Errorf("card %q is %s, not spending: %w", card.ID, card.Type, ErrUnknownAction)
	}
	if err := p.PlaySpendingCard(card); err != nil {
		return nil, err
	}

	events := []Event{{Type: stream.UpdateCardPlayed, Data: CardPlayedEvent{
		UserID:    p.UserID,
		CardID:    card.ID,
		CardType:  string(card.Type),
		Amount:    card.TotalCost,
		Liability: p.LiabilityPoints,
	}}}
	if p.CheckWinCondition() {
		events = append(events, m.endWithWinner(p))
	}
	return events, nil
}

// applyDrawCard redeems one yellow-strip bonus for a playing card chosen
// deterministically from the catalog. The card resolves on draw: its
// effect lands immediately and it enters the ledger already played.
func (m *Match) applyDrawCard(p *player.Player) ([]Event, error) {
	if p.BonusDraws == 0 {
		return nil, fmt.Errorf("user %q: %w", p.UserID, ErrNotEligible)
	}
	deck := m.catalog.PlayingCards()
	if len(deck) == 0 {
		return nil, fmt.Errorf("playing cards: %w", catalog.ErrUnknownEntry)
	}

	card := deck[int(m.seq.Next()*float64(len(deck)))]
	p.BonusDraws--
	p.ResolveEventCard(card)

	events := []Event{{Type: stream.UpdateCardDrawn, Data: CardDrawnEvent{
		UserID:       p.UserID,
		CardID:       card.ID,
		EffectPoints: card.EffectPoints,
	}}}
	if p.CheckWinCondition() {
		events = append(events, m.endWithWinner(p))
	}
	return events, nil
}

func (m *Match) applyPurchaseDream(p *player.Player, a Action) ([]Event, error) {
	dream, err := m.catalog.Dream(a.DreamID)
	if err != nil {
		return nil, err
	}
	if err := p.PurchaseDream(dream); err != nil {
		return nil, err
	}

	events := []Event{{Type: stream.UpdateDreamPurchase, Data: DreamPurchaseEvent{
		UserID:  p.UserID,
		DreamID: dream.ID,
	}}}
	if p.CheckWinCondition() {
		events = append(events, m.endWithWinner(p))
	}
	return events, nil
}

func (m *Match) endWithWinner(p *player.Player) Event {
	m.status = StatusEnded
	m.winnerID = p.UserID
	return Event{Type: stream.UpdateGameEnded, Data: GameEndedEvent{
		WinnerID:   p.UserID,
		WinnerSeat: p.SeatPosition,
	}}
}

// advanceTurn moves to the next non-eliminated seat, round-robin.
func (m *Match) advanceTurn() {
	for i := 0; i < m.seatCount; i++ {
		m.turnIndex = (m.turnIndex + 1) % m.seatCount
		if p := m.players[m.turnIndex]; p != nil && !p.Eliminated {
			return
		}
	}
}
