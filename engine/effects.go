package engine

import (
	"fmt"

	"github.com/google/uuid"
)

// Reveal is a private card reveal produced by the Priest. Only the actor
// may be shown it; the sync layer unicasts it.
type Reveal struct {
	PlayerID uuid.UUID `json:"playerId"`
	Card     CardID    `json:"card"`
}

// ActionResult describes what an accepted action did.
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	// Revealed is set by see-hand effects and must stay private to the actor.
	Revealed   *Reveal   `json:"revealed,omitempty"`
	Eliminated uuid.UUID `json:"eliminated"`
	// SkipAdvance suspends turn advancement: the turn is not over yet
	// (chancellor resolution, revenge guess pending).
	SkipAdvance bool `json:"-"`
}

// resolveEffect applies the played card's effect. The card has already
// been moved from the actor's hand to their discard pile. The switch is
// exhaustive over EffectKind; an unhandled kind is a programming fault.
func (g *GameState) resolveEffect(actor *Player, spec CardSpec, a Action) (*ActionResult, error) {
	target := g.PlayerByID(a.TargetPlayer)

	switch spec.Effect {
	case EffectGuessCard:
		return g.effectGuessCard(actor, target, a.Guess, false), nil

	case EffectGuessCardRevenge:
		return g.effectGuessCard(actor, target, a.Guess, true), nil

	case EffectSeeHand:
		if target == nil {
			return g.fizzle(actor, spec), nil
		}
		g.logf("%s looks at %s's hand", actor.Name, target.Name)
		return &ActionResult{
			Success:  true,
			Message:  fmt.Sprintf("%s looks at %s's hand", actor.Name, target.Name),
			Revealed: &Reveal{PlayerID: target.ID, Card: target.HeldCard()},
		}, nil

	case EffectCompareHands:
		return g.effectCompareHands(actor, target, spec), nil

	case EffectProtection:
		actor.Status = StatusProtected
		g.logf("%s is protected until their next turn", actor.Name)
		return &ActionResult{Success: true, Message: fmt.Sprintf("%s is protected", actor.Name)}, nil

	case EffectForceDiscard:
		return g.effectForceDiscard(actor, target, spec), nil

	case EffectTradeHands:
		return g.effectTradeHands(actor, target, spec), nil

	case EffectConditionalDiscard:
		g.logf("%s discards the %s", actor.Name, spec.Name)
		return &ActionResult{Success: true, Message: fmt.Sprintf("%s discards the %s", actor.Name, spec.Name)}, nil

	case EffectLoseIfDiscarded:
		g.eliminate(actor, fmt.Sprintf("played the %s", spec.Name))
		return &ActionResult{
			Success:    true,
			Message:    fmt.Sprintf("%s played the %s and is out", actor.Name, spec.Name),
			Eliminated: actor.ID,
		}, nil

	case EffectSpyBonus:
		g.logf("%s discards a %s", actor.Name, spec.Name)
		return &ActionResult{Success: true, Message: fmt.Sprintf("%s discards a %s", actor.Name, spec.Name)}, nil

	case EffectChancellorDraw:
		return g.effectChancellorDraw(actor, spec), nil
	}
	return nil, fmt.Errorf("unhandled effect kind %d for card %s", spec.Effect, spec.ID)
}

// fizzle records a targeted card played with no legal target.
func (g *GameState) fizzle(actor *Player, spec CardSpec) *ActionResult {
	g.logf("%s plays the %s with no valid target; nothing happens", actor.Name, spec.Name)
	return &ActionResult{Success: true, Message: fmt.Sprintf("%s has no effect: no valid target", spec.Name)}
}

// effectGuessCard resolves Guard-family guesses. With revenge active, an
// incorrect guess opens a one-shot counter-guess for the target instead
// of simply failing.
func (g *GameState) effectGuessCard(actor, target *Player, guess CardID, revenge bool) *ActionResult {
	if target == nil {
		spec, _ := Spec(g.Ruleset, CardGuard)
		return g.fizzle(actor, spec)
	}
	guessSpec := registry[guess]
	if target.HeldCard() == guess {
		g.logf("%s guesses %s against %s: correct", actor.Name, guessSpec.Name, target.Name)
		g.eliminate(target, fmt.Sprintf("%s guessed their %s", actor.Name, guessSpec.Name))
		return &ActionResult{
			Success:    true,
			Message:    fmt.Sprintf("%s guessed right: %s held the %s", actor.Name, target.Name, guessSpec.Name),
			Eliminated: target.ID,
		}
	}
	if revenge {
		g.Revenge = &RevengeState{GuesserID: target.ID, TargetID: actor.ID}
		g.Phase = PhaseWaitingForRevengeGuess
		g.logf("%s guesses %s against %s: wrong; %s gets a revenge guess", actor.Name, guessSpec.Name, target.Name, target.Name)
		return &ActionResult{
			Success:     true,
			Message:     fmt.Sprintf("%s guessed wrong; %s may guess back", actor.Name, target.Name),
			SkipAdvance: true,
		}
	}
	g.logf("%s guesses %s against %s: wrong", actor.Name, guessSpec.Name, target.Name)
	return &ActionResult{Success: true, Message: fmt.Sprintf("%s guessed wrong", actor.Name)}
}

func (g *GameState) effectCompareHands(actor, target *Player, spec CardSpec) *ActionResult {
	if target == nil {
		return g.fizzle(actor, spec)
	}
	actorVal := CardValue(g.Ruleset, actor.HeldCard())
	targetVal := CardValue(g.Ruleset, target.HeldCard())
	switch {
	case actorVal > targetVal:
		g.eliminate(target, fmt.Sprintf("lost a comparison against %s", actor.Name))
		return &ActionResult{
			Success:    true,
			Message:    fmt.Sprintf("%s loses the comparison", target.Name),
			Eliminated: target.ID,
		}
	case targetVal > actorVal:
		g.eliminate(actor, fmt.Sprintf("lost a comparison against %s", target.Name))
		return &ActionResult{
			Success:    true,
			Message:    fmt.Sprintf("%s loses the comparison", actor.Name),
			Eliminated: actor.ID,
		}
	default:
		g.logf("%s and %s compare hands: tie", actor.Name, target.Name)
		return &ActionResult{Success: true, Message: "the comparison is a tie; no one is eliminated"}
	}
}

func (g *GameState) effectForceDiscard(actor, target *Player, spec CardSpec) *ActionResult {
	if target == nil {
		return g.fizzle(actor, spec)
	}
	held := target.HeldCard()
	if held == "" {
		g.logf("%s targets %s with the %s, but they hold no card", actor.Name, target.Name, spec.Name)
		return &ActionResult{Success: true, Message: fmt.Sprintf("%s holds no card to discard", target.Name)}
	}
	heldSpec := registry[held]
	removeFromHand(target, held)
	target.Discard = append(target.Discard, held)
	g.logf("%s forces %s to discard the %s", actor.Name, target.Name, heldSpec.Name)

	if heldSpec.Effect == EffectLoseIfDiscarded {
		// No redraw: discarding the top card this way is immediately fatal.
		g.eliminate(target, fmt.Sprintf("forced to discard the %s", heldSpec.Name))
		return &ActionResult{
			Success:    true,
			Message:    fmt.Sprintf("%s was forced to discard the %s and is out", target.Name, heldSpec.Name),
			Eliminated: target.ID,
		}
	}
	if card, ok := g.drawFromDeck(); ok {
		target.Hand = append(target.Hand, card)
		g.logf("%s draws a replacement card", target.Name)
	} else {
		g.logf("the deck is empty; %s draws nothing", target.Name)
	}
	return &ActionResult{Success: true, Message: fmt.Sprintf("%s discards the %s", target.Name, heldSpec.Name)}
}

func (g *GameState) effectTradeHands(actor, target *Player, spec CardSpec) *ActionResult {
	if target == nil {
		if g.House.KingBurnSwap && g.Burned != "" {
			held := actor.HeldCard()
			if held != "" {
				actor.Hand[0] = g.Burned
				g.Burned = held
				g.logf("%s swaps their card with the face-down burned card", actor.Name)
				return &ActionResult{Success: true, Message: fmt.Sprintf("%s swaps with the burned card", actor.Name)}
			}
		}
		return g.fizzle(actor, spec)
	}
	actor.Hand, target.Hand = target.Hand, actor.Hand
	g.logf("%s trades hands with %s", actor.Name, target.Name)
	return &ActionResult{Success: true, Message: fmt.Sprintf("%s trades hands with %s", actor.Name, target.Name)}
}

func (g *GameState) effectChancellorDraw(actor *Player, spec CardSpec) *ActionResult {
	drawn := 0
	for i := 0; i < 2; i++ {
		card, ok := g.drawFromDeck()
		if !ok {
			break
		}
		actor.Hand = append(actor.Hand, card)
		drawn++
	}
	if drawn == 0 {
		g.logf("%s plays the %s, but the deck is empty", actor.Name, spec.Name)
		return &ActionResult{Success: true, Message: fmt.Sprintf("the deck is empty; the %s does nothing", spec.Name)}
	}
	g.ChancellorDrawn = drawn
	g.Phase = PhaseChancellorResolving
	g.logf("%s draws %d card(s) and must return all but one", actor.Name, drawn)
	return &ActionResult{
		Success:     true,
		Message:     fmt.Sprintf("%s drew %d card(s) and must keep one", actor.Name, drawn),
		SkipAdvance: true,
	}
}
