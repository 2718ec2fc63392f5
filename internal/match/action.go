package match

import "github.com/musiliandrew/pesamali-financial-journey/internal/stream"

// ActionType tags a player request.
type ActionType string

const (
	ActionRollDice         ActionType = "roll_dice"
	ActionPurchaseAsset    ActionType = "purchase_asset"
	ActionPlaySavingsCard  ActionType = "play_savings_card"
	ActionPlaySpendingCard ActionType = "play_spending_card"
	ActionDrawPlayingCard  ActionType = "draw_playing_card"
	ActionPurchaseDream    ActionType = "purchase_dream"
)

// Action is one player request against a match. It is ephemeral: validated,
// applied, and discarded. TokenIndex selects which token to move on a roll;
// nil means the first valid token.
type Action struct {
	Type       ActionType `json:"type"`
	UserID     string     `json:"userId"`
	TokenIndex *int       `json:"tokenIndex,omitempty"`
	AssetID    string     `json:"assetId,omitempty"`
	CardID     string     `json:"cardId,omitempty"`
	DreamID    string     `json:"dreamId,omitempty"`
	Amount     int64      `json:"amount,omitempty"`
}

// Event is one state transition produced by an accepted action, before the
// broadcaster assigns its sequence number.
type Event struct {
	Type stream.UpdateType
	Data any
}

// Broadcast payload shapes. These field names are the compatibility surface
// consumers parse.

// DiceResult reports one turn's roll and its resolution.
type DiceResult struct {
	UserID            string             `json:"userId"`
	Die1              int                `json:"die1"`
	Die2              int                `json:"die2"`
	Sum               int                `json:"sum"`
	TokenIndex        int                `json:"tokenIndex"`
	Position          int                `json:"position"`
	NoMove            bool               `json:"noMove"`
	Yellow            bool               `json:"yellow"`
	CanBuy            bool               `json:"canBuy"`
	Returns           []AssetReturnEvent `json:"returns,omitempty"`
	YellowSkipPenalty int64              `json:"yellowSkipPenalty,omitempty"`
	NextSeat          int                `json:"nextPlayerSeat"`
}

// AssetReturnEvent reports one automatic payout on landing.
type AssetReturnEvent struct {
	AssetID          string `json:"assetId"`
	Amount           int64  `json:"amount"`
	ReturnsCollected int    `json:"returnsCollected"`
}

// AssetPurchaseEvent reports a completed asset purchase.
type AssetPurchaseEvent struct {
	UserID       string `json:"userId"`
	AssetID      string `json:"assetId"`
	PurchaseSpot int    `json:"purchaseSpot"`
	NextSeat     int    `json:"nextPlayerSeat"`
}

// CardPlayedEvent reports a savings or spending card resolution.
type CardPlayedEvent struct {
	UserID    string `json:"userId"`
	CardID    string `json:"cardId"`
	CardType  string `json:"cardType"`
	Amount    int64  `json:"amount,omitempty"`
	Liability int64  `json:"liabilityPoints"`
}

// CardDrawnEvent reports a bonus playing-card draw and its immediate
// points effect.
type CardDrawnEvent struct {
	UserID       string `json:"userId"`
	CardID       string `json:"cardId"`
	EffectPoints int64  `json:"effectPoints"`
}

// DreamPurchaseEvent reports a dream purchase.
type DreamPurchaseEvent struct {
	UserID  string `json:"userId"`
	DreamID string `json:"dreamId"`
}

// GameEndedEvent names the winner when a match reaches its terminal state.
type GameEndedEvent struct {
	WinnerID   string `json:"winnerId"`
	WinnerSeat int    `json:"winnerSeat"`
}

// TurnChangeEvent announces the next seat to act.
type TurnChangeEvent struct {
	NextSeat int `json:"nextPlayerSeat"`
}
