package match

import (
	"errors"

	"github.com/musiliandrew/pesamali-financial-journey/internal/catalog"
	"github.com/musiliandrew/pesamali-financial-journey/internal/player"
)

// Match-level rejections. Ledger-level rule violations come from the player
// package; both classify through the helpers below.
var (
	ErrMatchNotFound = errors.New("match not found")
	ErrMatchEnded    = errors.New("match already ended")
	ErrNotYourTurn   = errors.New("not your turn")
	ErrWrongStatus   = errors.New("action not valid in current match status")
	ErrSeatTaken     = errors.New("seat already taken")
	ErrMatchFull     = errors.New("match is full")
	ErrUnknownPlayer = errors.New("player not part of this match")
	ErrNotEligible   = errors.New("no pending card draw")
	ErrUnknownAction = errors.New("unknown action type")
)

// IsRuleViolation reports whether the error is a game-rule rejection: the
// action was well-formed but the rules forbid it. State is untouched.
func IsRuleViolation(err error) bool {
	return errors.Is(err, ErrNotYourTurn) ||
		errors.Is(err, ErrWrongStatus) ||
		errors.Is(err, ErrNotEligible) ||
		errors.Is(err, player.ErrInvalidToken) ||
		errors.Is(err, player.ErrAlreadyOwned) ||
		errors.Is(err, player.ErrAlreadyPlayed) ||
		errors.Is(err, player.ErrAlreadyBought) ||
		errors.Is(err, player.ErrThresholdNotMet)
}

// IsValidation reports whether the error is a malformed or unresolvable
// action, rejected before any rule ran.
func IsValidation(err error) bool {
	return errors.Is(err, catalog.ErrUnknownEntry) ||
		errors.Is(err, player.ErrCardNotHeld) ||
		errors.Is(err, ErrUnknownPlayer) ||
		errors.Is(err, ErrUnknownAction)
}

// IsTerminal reports whether the action was rejected because the match is
// over.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrMatchEnded)
}
