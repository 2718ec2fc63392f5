// Package player implements the per-player financial ledger and the
// transition rules that mutate it. Every operation is all-or-nothing: a
// rejected operation leaves the player untouched.
package player

import (
	"errors"
	"fmt"

	"github.com/musiliandrew/pesamali-financial-journey/internal/catalog"
)

// Rule violations reported by ledger operations. Callers match these with
// errors.Is.
var (
	ErrInvalidToken      = errors.New("invalid token move")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAlreadyOwned      = errors.New("asset already owned")
	ErrAlreadyPlayed     = errors.New("card already played")
	ErrAlreadyBought     = errors.New("dream already bought")
	ErrThresholdNotMet   = errors.New("savings threshold not met")
	ErrCardNotHeld       = errors.New("card not held by player")
)

// Default starting values for a freshly seated player.
const (
	StartingPoints = 1200
	TokenCount     = 4
)

// Holding is one owned asset instance. PurchaseSpot anchors the return
// window; ReturnsCollected counts payouts toward the asset's cap.
type Holding struct {
	AssetID          string
	PurchaseSpot     int
	ReturnsCollected int
}

// CardInstance is a card dealt to a player, with its played state.
type CardInstance struct {
	CardID string
	Type   catalog.CardType
	Played bool
}

// Player is one seat's full ledger for the lifetime of a match.
type Player struct {
	UserID       string
	SeatPosition int
	IsAI         bool

	TokenPositions []int

	CurrentPoints     int64
	SavingsPoints     int64
	LiabilityPoints   int64
	AssetReturnPoints int64

	Assets      []Holding
	Cards       []CardInstance
	DreamBought bool

	// BonusDraws counts yellow-strip landings not yet redeemed for a
	// playing-card draw.
	BonusDraws int

	Eliminated bool
}

// New seats a player with the standard starting ledger.
func New(userID string, seat int, isAI bool) *Player {
	return &Player{
		UserID:         userID,
		SeatPosition:   seat,
		IsAI:           isAI,
		TokenPositions: make([]int, TokenCount),
		CurrentPoints:  StartingPoints,
		Assets:         make([]Holding, 0, 4),
		Cards:          make([]CardInstance, 0, 8),
	}
}

// ApplyMove advances one token by distance tiles. The caller is expected to
// have pre-filtered via board.ValidMoves; an out-of-range index or an
// overshoot past boardLength fails with ErrInvalidToken.
func (p *Player) ApplyMove(tokenIndex, distance, boardLength int) error {
	if tokenIndex < 0 || tokenIndex >= len(p.TokenPositions) {
		return fmt.Errorf("token index %d: %w", tokenIndex, ErrInvalidToken)
	}
	target := p.TokenPositions[tokenIndex] + distance
	if target > boardLength {
		return fmt.Errorf("token %d would land on %d past tile %d: %w",
			tokenIndex, target, boardLength, ErrInvalidToken)
	}
	if target < 0 {
		target = 0
	}
	p.TokenPositions[tokenIndex] = target
	return nil
}

// FurthestToken returns the highest token position; it anchors an asset's
// purchase spot.
func (p *Player) FurthestToken() int {
	furthest := 0
	for _, pos := range p.TokenPositions {
		if pos > furthest {
			furthest = pos
		}
	}
	return furthest
}

// PurchaseAsset deducts the asset's cost and records the holding with its
// purchase spot. Owning the same asset id twice is rejected.
func (p *Player) PurchaseAsset(asset catalog.Asset, purchaseSpot int) error {
	for _, h := range p.Assets {
		if h.AssetID == asset.ID {
			return fmt.Errorf("asset %q: %w", asset.ID, ErrAlreadyOwned)
		}
	}
	if p.CurrentPoints < asset.Cost {
		return fmt.Errorf("asset %q costs %d, have %d: %w",
			asset.ID, asset.Cost, p.CurrentPoints, ErrInsufficientFunds)
	}
	p.CurrentPoints -= asset.Cost
	p.Assets = append(p.Assets, Holding{AssetID: asset.ID, PurchaseSpot: purchaseSpot})
	return nil
}

// CollectAssetReturn pays one return on the holding, up to the asset's cap.
// Past the cap it is a no-op, not an error; the asset has simply run dry.
// It reports whether a payout happened.
func (p *Player) CollectAssetReturn(asset catalog.Asset) bool {
	for i := range p.Assets {
		if p.Assets[i].AssetID != asset.ID {
			continue
		}
		if p.Assets[i].ReturnsCollected >= asset.MaxReturns {
			return false
		}
		p.Assets[i].ReturnsCollected++
		p.CurrentPoints += asset.ProfitPerReturn
		p.AssetReturnPoints += asset.ProfitPerReturn
		return true
	}
	return false
}

// DealCard hands the player a card instance to play later.
func (p *Player) DealCard(card catalog.Card) {
	p.Cards = append(p.Cards, CardInstance{CardID: card.ID, Type: card.Type})
}

// ResolveEventCard applies a drawn playing card's effect immediately: a
// positive effect adds points, a negative one adds liability. The card
// enters the ledger already played; event cards never wait in hand.
func (p *Player) ResolveEventCard(card catalog.Card) {
	if card.EffectPoints >= 0 {
		p.CurrentPoints += card.EffectPoints
	} else {
		p.LiabilityPoints += -card.EffectPoints
	}
	p.Cards = append(p.Cards, CardInstance{CardID: card.ID, Type: card.Type, Played: true})
}

// PlaySavingsCard moves amount from current points into savings. The amount
// must meet the card's threshold and be covered by current points.
func (p *Player) PlaySavingsCard(card catalog.Card, amount int64) error {
	inst, err := p.heldCard(card.ID)
	if err != nil {
		return err
	}
	if inst.Played {
		return fmt.Errorf("card %q: %w", card.ID, ErrAlreadyPlayed)
	}
	if amount < card.Threshold {
		return fmt.Errorf("amount %d below threshold %d: %w",
			amount, card.Threshold, ErrThresholdNotMet)
	}
	if p.CurrentPoints < amount {
		return fmt.Errorf("saving %d with %d available: %w",
			amount, p.CurrentPoints, ErrInsufficientFunds)
	}
	p.CurrentPoints -= amount
	p.SavingsPoints += amount
	inst.Played = true
	return nil
}

// PlaySpendingCard deducts the card's total cost. A shortfall is never an
// InsufficientFunds rejection: points drop to zero and the deficit converts
// to liability.
func (p *Player) PlaySpendingCard(card catalog.Card) error {
	inst, err := p.heldCard(card.ID)
	if err != nil {
		return err
	}
	if inst.Played {
		return fmt.Errorf("card %q: %w", card.ID, ErrAlreadyPlayed)
	}
	if card.TotalCost <= p.CurrentPoints {
		p.CurrentPoints -= card.TotalCost
	} else {
		p.LiabilityPoints += card.TotalCost - p.CurrentPoints
		p.CurrentPoints = 0
	}
	inst.Played = true
	return nil
}

func (p *Player) heldCard(cardID string) (*CardInstance, error) {
	for i := range p.Cards {
		if p.Cards[i].CardID == cardID {
			return &p.Cards[i], nil
		}
	}
	return nil, fmt.Errorf("card %q: %w", cardID, ErrCardNotHeld)
}

// PurchaseDream buys the player's dream. It can happen exactly once.
func (p *Player) PurchaseDream(dream catalog.Dream) error {
	if p.DreamBought {
		return fmt.Errorf("dream %q: %w", dream.ID, ErrAlreadyBought)
	}
	if p.CurrentPoints < dream.Cost {
		return fmt.Errorf("dream %q costs %d, have %d: %w",
			dream.ID, dream.Cost, p.CurrentPoints, ErrInsufficientFunds)
	}
	p.CurrentPoints -= dream.Cost
	p.DreamBought = true
	return nil
}

// CheckWinCondition reports whether the player has met every win condition:
// at least two assets, 500 in savings, zero liabilities, every dealt card
// played, and the dream bought. All five are required.
func (p *Player) CheckWinCondition() bool {
	if len(p.Assets) < 2 {
		return false
	}
	if p.SavingsPoints < 500 {
		return false
	}
	if p.LiabilityPoints != 0 {
		return false
	}
	for _, c := range p.Cards {
		if !c.Played {
			return false
		}
	}
	return p.DreamBought
}

// Clone returns a deep copy, used for snapshots handed outside the match
// lock.
func (p *Player) Clone() *Player {
	cp := *p
	cp.TokenPositions = append([]int(nil), p.TokenPositions...)
	cp.Assets = append([]Holding(nil), p.Assets...)
	cp.Cards = append([]CardInstance(nil), p.Cards...)
	return &cp
}
