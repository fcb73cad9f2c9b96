// Package bot picks moves for AI-controlled seats. It reads engine state
// and produces the same Action shape a human client submits; it never
// mutates the game.
package bot

import (
	"github.com/google/uuid"

	"github.com/Chrizpy/royalletters-sub000/engine"
)

// ChooseAction returns the action the AI seat would submit right now, or
// nil when no decision is called for (not its turn, or the phase does not
// ask this player for anything).
func ChooseAction(g *engine.GameState, playerID uuid.UUID) *engine.Action {
	p := g.PlayerByID(playerID)
	if p == nil || !p.Alive() {
		return nil
	}

	switch g.Phase {
	case engine.PhaseWaitingForAction:
		if g.ActivePlayer() == nil || g.ActivePlayer().ID != playerID {
			return nil
		}
		return choosePlay(g, p)

	case engine.PhaseChancellorResolving:
		if g.ActivePlayer() == nil || g.ActivePlayer().ID != playerID {
			return nil
		}
		return chooseChancellorReturn(p)

	case engine.PhaseWaitingForRevengeGuess:
		if g.Revenge == nil || g.Revenge.GuesserID != playerID {
			return nil
		}
		return &engine.Action{
			Type:  engine.ActionRevengeGuess,
			Guess: chooseGuess(g, playerID),
		}
	}
	return nil
}

// choosePlay picks which card to play and, where needed, a target and a
// guess.
func choosePlay(g *engine.GameState, p *engine.Player) *engine.Action {
	card := chooseCard(g, p)
	spec, err := engine.Spec(g.Ruleset, card)
	if err != nil {
		return nil
	}

	a := &engine.Action{Type: engine.ActionPlayCard, Card: card}
	if spec.NeedsTarget {
		target := chooseTarget(g, p, spec)
		if target == nil {
			return a // fizzle play
		}
		a.TargetPlayer = target.ID
		if spec.NeedsGuess {
			a.Guess = chooseGuess(g, p.ID)
		}
	}
	return a
}

// chooseCard: forced Countess first, then the cheapest card that is not
// an instant loss. The instant-loss card is played only when it is all
// that remains.
func chooseCard(g *engine.GameState, p *engine.Player) engine.CardID {
	holdsCountess := false
	holdsRoyal := false
	for _, c := range p.Hand {
		switch c {
		case engine.CardCountess:
			holdsCountess = true
		case engine.CardKing, engine.CardPrince:
			holdsRoyal = true
		}
	}
	if holdsCountess && holdsRoyal {
		return engine.CardCountess
	}

	var best engine.CardID
	bestVal := 0
	for _, c := range p.Hand {
		spec, err := engine.Spec(g.Ruleset, c)
		if err != nil || spec.Effect == engine.EffectLoseIfDiscarded {
			continue
		}
		v := engine.CardValue(g.Ruleset, c)
		if best == "" || v < bestVal {
			best, bestVal = c, v
		}
	}
	if best == "" {
		return p.Hand[0] // only the instant-loss card is left
	}
	return best
}

// chooseTarget prefers the opponent closest to winning; self only for
// self-targetable cards with nobody else available.
func chooseTarget(g *engine.GameState, p *engine.Player, spec engine.CardSpec) *engine.Player {
	targets := g.ValidTargets(p.ID, spec)
	var best *engine.Player
	for _, t := range targets {
		if t.ID == p.ID {
			continue
		}
		if best == nil || t.Tokens > best.Tokens {
			best = t
		}
	}
	if best != nil {
		return best
	}
	if spec.CanTargetSelf {
		for _, t := range targets {
			if t.ID == p.ID {
				return t
			}
		}
	}
	return nil
}

// chooseChancellorReturn keeps the single highest-value card and returns
// the rest in hand order.
func chooseChancellorReturn(p *engine.Player) *engine.Action {
	keep := 0
	// Ruleset-specific values do not change relative order here, so the
	// base values are enough to pick the keeper.
	for i := range p.Hand {
		if engine.CardValue(engine.RulesetEdition2019, p.Hand[i]) >
			engine.CardValue(engine.RulesetEdition2019, p.Hand[keep]) {
			keep = i
		}
	}
	returns := make([]engine.CardID, 0, len(p.Hand)-1)
	for i, c := range p.Hand {
		if i != keep {
			returns = append(returns, c)
		}
	}
	return &engine.Action{Type: engine.ActionChancellorReturn, ReturnCards: returns}
}

// chooseGuess weights every still-unseen guessable card id by
// remaining_count × value and picks the heaviest; the Priest is the fixed
// fallback when nothing is computable.
func chooseGuess(g *engine.GameState, selfID uuid.UUID) engine.CardID {
	remaining := engine.DeckComposition(g.Ruleset)
	if remaining == nil {
		return engine.CardPriest
	}
	for _, c := range g.BurnedFaceUp {
		remaining[c]--
	}
	for _, p := range g.Players {
		for _, c := range p.Discard {
			remaining[c]--
		}
	}

	var best engine.CardID
	bestWeight := 0
	for id, count := range remaining {
		if count <= 0 || engine.IsGuardFamily(g.Ruleset, id) {
			continue
		}
		w := count * engine.CardValue(g.Ruleset, id)
		if w > bestWeight {
			best, bestWeight = id, w
		}
	}
	if best == "" {
		return engine.CardPriest
	}
	return best
}
