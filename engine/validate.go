package engine

import (
	"fmt"

	"github.com/google/uuid"
)

// ActionType tags the Action variant.
type ActionType string

const (
	ActionPlayCard         ActionType = "play_card"
	ActionChancellorReturn ActionType = "chancellor_return"
	ActionRevengeGuess     ActionType = "revenge_guess"
)

// Action is a player intent. It crosses the wire, so every field is plain
// data. Unused fields for a given Type are ignored by the validator.
type Action struct {
	Type ActionType `json:"type"`
	Card CardID     `json:"card,omitempty"`
	// TargetPlayer is uuid.Nil when the action names no target.
	TargetPlayer uuid.UUID `json:"targetPlayer"`
	Guess        CardID    `json:"guess,omitempty"`
	ReturnCards  []CardID  `json:"returnCards,omitempty"`
}

// Reason codes a validation rejection. Callers branch on the code; the
// message is for humans.
type Reason string

const (
	ReasonGameNotRunning   Reason = "game_not_running"
	ReasonNotYourTurn      Reason = "not_your_turn"
	ReasonWrongPhase       Reason = "wrong_phase"
	ReasonCardNotInHand    Reason = "card_not_in_hand"
	ReasonMustPlayCountess Reason = "must_play_countess"
	ReasonTargetRequired   Reason = "target_required"
	ReasonInvalidTarget    Reason = "invalid_target"
	ReasonTargetProtected  Reason = "target_protected"
	ReasonGuessRequired    Reason = "guess_required"
	ReasonCannotGuessGuard Reason = "cannot_guess_guard"
	ReasonBadReturnCount   Reason = "bad_return_count"
	ReasonReturnNotHeld    Reason = "return_not_held"
	ReasonUnknownAction    Reason = "unknown_action"
	ReasonUnknownCard      Reason = "unknown_card"
)

// ValidationError is a rejected action. It is an expected outcome, not a
// programming fault: network handlers drop it, UIs show Message.
type ValidationError struct {
	Code    Reason
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func reject(code Reason, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Validate is a pure legality check for an action; the state is not
// modified. Checks short-circuit in spec order. A nil return means Submit
// will accept the action.
func (g *GameState) Validate(playerID uuid.UUID, a Action) error {
	switch a.Type {
	case ActionPlayCard:
		return g.validatePlayCard(playerID, a)
	case ActionChancellorReturn:
		return g.validateChancellorReturn(playerID, a)
	case ActionRevengeGuess:
		return g.validateRevengeGuess(playerID, a)
	default:
		return reject(ReasonUnknownAction, "unknown action type %q", a.Type)
	}
}

func (g *GameState) validatePlayCard(playerID uuid.UUID, a Action) error {
	actor := g.ActivePlayer()
	if actor == nil || actor.ID != playerID {
		return reject(ReasonNotYourTurn, "it is not your turn")
	}
	if g.Phase != PhaseWaitingForAction {
		return reject(ReasonWrongPhase, "cannot play a card during %s", g.Phase)
	}

	spec, err := Spec(g.Ruleset, a.Card)
	if err != nil {
		return reject(ReasonUnknownCard, "no such card %q", a.Card)
	}
	if !handContains(actor.Hand, a.Card) {
		return reject(ReasonCardNotInHand, "you do not hold %s", spec.Name)
	}

	// Countess rule: holding Countess with King or Prince forces the
	// Countess. Absolute, no house-rule override.
	if a.Card != CardCountess &&
		handContains(actor.Hand, CardCountess) &&
		(handContains(actor.Hand, CardKing) || handContains(actor.Hand, CardPrince)) {
		return reject(ReasonMustPlayCountess, "you must play the Countess while holding the King or a Prince")
	}

	if !spec.NeedsTarget {
		return nil
	}

	targets := g.ValidTargets(playerID, spec)
	if len(targets) == 0 {
		// Fizzle: with no legal target anywhere, the card is playable
		// with no target at all. A target supplied anyway is stale
		// client state and gets rejected, never coerced.
		if a.TargetPlayer != uuid.Nil {
			return reject(ReasonInvalidTarget, "no player can be targeted right now")
		}
		return nil
	}

	if a.TargetPlayer == uuid.Nil {
		return reject(ReasonTargetRequired, "%s needs a target", spec.Name)
	}
	target := g.PlayerByID(a.TargetPlayer)
	if target == nil || !target.Alive() {
		return reject(ReasonInvalidTarget, "target is not in the round")
	}
	if target.ID == playerID && !spec.CanTargetSelf {
		return reject(ReasonInvalidTarget, "%s cannot target yourself", spec.Name)
	}
	if target.Status == StatusProtected && target.ID != playerID {
		return reject(ReasonTargetProtected, "%s is protected", target.Name)
	}

	if spec.NeedsGuess {
		if a.Guess == "" {
			return reject(ReasonGuessRequired, "%s needs a card guess", spec.Name)
		}
		if IsGuardFamily(g.Ruleset, a.Guess) {
			return reject(ReasonCannotGuessGuard, "you may not guess the Guard")
		}
		if _, err := Spec(g.Ruleset, a.Guess); err != nil {
			return reject(ReasonUnknownCard, "no such card %q", a.Guess)
		}
	}
	return nil
}

func (g *GameState) validateChancellorReturn(playerID uuid.UUID, a Action) error {
	actor := g.ActivePlayer()
	if actor == nil || actor.ID != playerID {
		return reject(ReasonNotYourTurn, "it is not your turn")
	}
	if g.Phase != PhaseChancellorResolving {
		return reject(ReasonWrongPhase, "no chancellor resolution is pending")
	}
	want := len(actor.Hand) - 1
	if len(a.ReturnCards) != want {
		return reject(ReasonBadReturnCount, "must return exactly %d card(s), got %d", want, len(a.ReturnCards))
	}
	// Multiset check: the returned cards must all come from the hand.
	rest := append([]CardID(nil), actor.Hand...)
	for _, c := range a.ReturnCards {
		found := false
		for i, h := range rest {
			if h == c {
				rest = append(rest[:i], rest[i+1:]...)
				found = true
				break
			}
		}
		if !found {
			return reject(ReasonReturnNotHeld, "you do not hold %s", c)
		}
	}
	return nil
}

func (g *GameState) validateRevengeGuess(playerID uuid.UUID, a Action) error {
	if g.Phase != PhaseWaitingForRevengeGuess || g.Revenge == nil {
		return reject(ReasonWrongPhase, "no revenge guess is pending")
	}
	// The revenge sub-turn belongs to the wronged player, not the
	// round's active player.
	if g.Revenge.GuesserID != playerID {
		return reject(ReasonNotYourTurn, "the revenge guess is not yours")
	}
	if a.Guess == "" {
		return reject(ReasonGuessRequired, "a card guess is required")
	}
	if IsGuardFamily(g.Ruleset, a.Guess) {
		return reject(ReasonCannotGuessGuard, "you may not guess the Guard")
	}
	if _, err := Spec(g.Ruleset, a.Guess); err != nil {
		return reject(ReasonUnknownCard, "no such card %q", a.Guess)
	}
	return nil
}

func handContains(hand []CardID, card CardID) bool {
	for _, c := range hand {
		if c == card {
			return true
		}
	}
	return false
}
