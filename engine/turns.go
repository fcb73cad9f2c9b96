package engine

import (
	"fmt"

	"github.com/google/uuid"
)

// StartRound re-seeds, rebuilds and deals a fresh round. Tokens carry
// over; hands, discards and statuses reset. The previous round's winner
// leads; round one is led by seat 0. The caller follows up with
// BeginTurn to open the leader's turn.
func (g *GameState) StartRound(seed string) error {
	if g.Phase != PhaseLobby && g.Phase != PhaseRoundEnd {
		return fmt.Errorf("start round: illegal in phase %s", g.Phase)
	}
	if len(g.Players) < 2 {
		return fmt.Errorf("start round: need at least 2 players, have %d", len(g.Players))
	}

	leader := g.ActiveIndex
	for i, p := range g.Players {
		if p.Status == StatusWonRound {
			leader = i
		}
	}

	for _, p := range g.Players {
		p.Hand = nil
		p.Discard = nil
		p.Status = StatusPlaying
		p.EliminationReason = ""
	}

	deck, err := CreateDeck(g.Ruleset)
	if err != nil {
		return err
	}
	g.Deck = Shuffle(deck, seed)
	g.Seed = seed
	g.Revenge = nil
	g.ChancellorDrawn = 0
	g.BurnedFaceUp = nil

	// One face-down burn every round; three extra face-up burns with
	// exactly two players.
	burned, _ := g.drawFromDeck()
	g.Burned = burned
	if len(g.Players) == 2 {
		for i := 0; i < 3; i++ {
			if card, ok := g.drawFromDeck(); ok {
				g.BurnedFaceUp = append(g.BurnedFaceUp, card)
			}
		}
	}

	for _, p := range g.Players {
		card, ok := g.drawFromDeck()
		if !ok {
			return fmt.Errorf("start round: deck exhausted while dealing")
		}
		p.Hand = []CardID{card}
	}

	g.Round++
	g.ActiveIndex = leader
	g.Phase = PhaseTurnStart
	g.logf("round %d begins; %s leads", g.Round, g.Players[leader].Name)
	return nil
}

// BeginTurn opens the active player's turn: their protection expires now,
// and they draw. An empty deck ends the round instead.
func (g *GameState) BeginTurn() error {
	if g.Phase != PhaseTurnStart {
		return fmt.Errorf("begin turn: illegal in phase %s", g.Phase)
	}
	p := g.ActivePlayer()
	if p.Status == StatusProtected {
		p.Status = StatusPlaying
	}
	card, ok := g.drawFromDeck()
	if !ok {
		g.endRound()
		return nil
	}
	p.Hand = append(p.Hand, card)
	g.Phase = PhaseWaitingForAction
	return nil
}

// Submit validates and applies one player action, then advances the turn
// machine unless the effect suspended advancement. A *ValidationError
// return is an expected rejection; any other error is an internal
// invariant violation.
func (g *GameState) Submit(playerID uuid.UUID, a Action) (*ActionResult, error) {
	if err := g.Validate(playerID, a); err != nil {
		return nil, err
	}

	switch a.Type {
	case ActionPlayCard:
		return g.applyPlayCard(playerID, a)
	case ActionChancellorReturn:
		return g.applyChancellorReturn(a)
	case ActionRevengeGuess:
		return g.applyRevengeGuess(a)
	}
	return nil, fmt.Errorf("submit: unreachable action type %q", a.Type)
}

func (g *GameState) applyPlayCard(playerID uuid.UUID, a Action) (*ActionResult, error) {
	actor := g.ActivePlayer()
	spec, err := Spec(g.Ruleset, a.Card)
	if err != nil {
		return nil, fmt.Errorf("apply: card %q vanished after validation: %w", a.Card, err)
	}
	// Remove exactly one copy; duplicates of the played id stay in hand.
	if !removeFromHand(actor, a.Card) {
		return nil, fmt.Errorf("apply: card %s not in %s's hand after validation", a.Card, actor.Name)
	}
	actor.Discard = append(actor.Discard, a.Card)
	g.logf("%s plays the %s", actor.Name, spec.Name)

	res, err := g.resolveEffect(actor, spec, a)
	if err != nil {
		return nil, err
	}
	if !res.SkipAdvance {
		g.advanceTurn()
	}
	return res, nil
}

func (g *GameState) applyChancellorReturn(a Action) (*ActionResult, error) {
	actor := g.ActivePlayer()
	for _, c := range a.ReturnCards {
		if !removeFromHand(actor, c) {
			return nil, fmt.Errorf("apply: return card %s not in %s's hand after validation", c, actor.Name)
		}
	}
	// The first selected card ends up deepest: push the reversed list.
	for i := len(a.ReturnCards) - 1; i >= 0; i-- {
		g.Deck = append(g.Deck, a.ReturnCards[i])
	}
	g.ChancellorDrawn = 0
	g.logf("%s returns %d card(s) to the bottom of the deck", actor.Name, len(a.ReturnCards))

	res := &ActionResult{
		Success: true,
		Message: fmt.Sprintf("%s keeps one card and returns the rest", actor.Name),
	}
	g.advanceTurn()
	return res, nil
}

func (g *GameState) applyRevengeGuess(a Action) (*ActionResult, error) {
	rv := g.Revenge
	guesser := g.PlayerByID(rv.GuesserID)
	target := g.PlayerByID(rv.TargetID)
	if guesser == nil || target == nil {
		return nil, fmt.Errorf("apply: revenge participants missing from state")
	}
	g.Revenge = nil

	res := &ActionResult{Success: true}
	if target.Alive() && target.HeldCard() == a.Guess {
		g.logf("%s's revenge guess is correct", guesser.Name)
		g.eliminate(target, fmt.Sprintf("%s's revenge guess found their %s", guesser.Name, registry[a.Guess].Name))
		res.Message = fmt.Sprintf("%s's revenge succeeds: %s is out", guesser.Name, target.Name)
		res.Eliminated = target.ID
	} else {
		g.logf("%s's revenge guess is wrong", guesser.Name)
		res.Message = fmt.Sprintf("%s's revenge guess misses", guesser.Name)
	}
	g.advanceTurn()
	return res, nil
}

// advanceTurn moves to the next alive player's turn, or ends the round
// when one player remains or the next draw is impossible.
func (g *GameState) advanceTurn() {
	if g.Phase == PhaseGameEnd || g.Phase == PhaseRoundEnd {
		return
	}
	if g.AliveCount() <= 1 {
		g.endRound()
		return
	}
	next := g.ActiveIndex
	for i := 0; i < len(g.Players); i++ {
		next = (next + 1) % len(g.Players)
		if g.Players[next].Alive() {
			break
		}
	}
	if next == g.ActiveIndex && !g.Players[next].Alive() {
		// Wrapped all the way around without finding anyone.
		g.endRound()
		return
	}
	g.ActiveIndex = next
	g.Phase = PhaseTurnStart
	g.BeginTurn() // only fails on wrong phase, which we just set
}

// endRound scores the round: last player standing, or the highest held
// card when the deck ran out. Ties award no token. Edition2019 then
// evaluates the Spy bonus, and any token total at the threshold ends the
// game on the spot.
func (g *GameState) endRound() {
	g.Phase = PhaseRoundEnd
	g.Revenge = nil
	g.ChancellorDrawn = 0

	var winner *Player
	alive := make([]*Player, 0, len(g.Players))
	for _, p := range g.Players {
		if p.Alive() {
			alive = append(alive, p)
		}
	}
	switch {
	case len(alive) == 1:
		winner = alive[0]
	case len(alive) > 1:
		best, tie := -2, false
		for _, p := range alive {
			v := -1 // an emptied hand scores below every card
			if held := p.HeldCard(); held != "" {
				v = CardValue(g.Ruleset, held)
			}
			switch {
			case v > best:
				best, winner, tie = v, p, false
			case v == best:
				tie = true
			}
		}
		if tie {
			winner = nil
		}
	}

	if winner != nil {
		winner.Status = StatusWonRound
		winner.Tokens++
		g.logf("%s wins round %d and gains a token (%d)", winner.Name, g.Round, winner.Tokens)
	} else {
		g.logf("round %d ends in a tie; no token awarded", g.Round)
	}

	g.applySpyBonus()

	for _, p := range g.Players {
		if p.Tokens >= g.TokensToWin {
			g.Phase = PhaseGameEnd
			g.WinnerID = p.ID
			g.logf("%s wins the game with %d tokens", p.Name, p.Tokens)
			return
		}
	}
}

// applySpyBonus awards the Edition2019 end-of-round bonus: exactly one
// surviving player with a Spy among their discards gains a token.
func (g *GameState) applySpyBonus() {
	if g.Ruleset != RulesetEdition2019 {
		return
	}
	var holder *Player
	for _, p := range g.Players {
		if p.Status == StatusEliminated {
			continue
		}
		if handContains(p.Discard, CardSpy) {
			if holder != nil {
				return // two or more qualify: no bonus
			}
			holder = p
		}
	}
	if holder != nil {
		holder.Tokens++
		g.logf("%s gains the Spy bonus token (%d)", holder.Name, holder.Tokens)
	}
}
