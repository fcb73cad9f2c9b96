package engine

import "testing"

// totalCards counts every card the state tracks, wherever it sits.
func totalCards(g *GameState) int {
	n := len(g.Deck) + len(g.BurnedFaceUp)
	if g.Burned != "" {
		n++
	}
	for _, p := range g.Players {
		n += len(p.Hand) + len(p.Discard)
	}
	return n
}

func TestStartRoundTwoPlayerClassicSetup(t *testing.T) {
	g, _ := NewGame(RulesetClassic)
	g.AddPlayer("a", true, false)
	g.AddPlayer("b", false, false)

	if err := g.StartRound("fixed-seed"); err != nil {
		t.Fatal(err)
	}
	if g.Phase != PhaseTurnStart {
		t.Fatalf("phase = %s, want %s", g.Phase, PhaseTurnStart)
	}
	if g.Burned == "" {
		t.Error("no face-down burn")
	}
	if len(g.BurnedFaceUp) != 3 {
		t.Errorf("face-up burns = %d, want 3 with two players", len(g.BurnedFaceUp))
	}
	// 16 - 1 burn - 3 face-up - 2 dealt = 10 left to draw from.
	if len(g.Deck) != 10 {
		t.Errorf("deck after setup = %d, want 10", len(g.Deck))
	}
	for _, p := range g.Players {
		if len(p.Hand) != 1 {
			t.Errorf("%s holds %d cards after deal, want 1", p.Name, len(p.Hand))
		}
	}
	if totalCards(g) != 16 {
		t.Errorf("cards tracked = %d, want 16", totalCards(g))
	}

	if err := g.BeginTurn(); err != nil {
		t.Fatal(err)
	}
	if g.Phase != PhaseWaitingForAction {
		t.Fatalf("phase after BeginTurn = %s", g.Phase)
	}
	if len(g.ActivePlayer().Hand) != 2 {
		t.Errorf("active player holds %d cards, want 2", len(g.ActivePlayer().Hand))
	}
	if totalCards(g) != 16 {
		t.Errorf("cards tracked after draw = %d, want 16", totalCards(g))
	}
}

func TestStartRoundThreePlayersNoFaceUpBurn(t *testing.T) {
	g, _ := NewGame(RulesetClassic)
	g.AddPlayer("a", true, false)
	g.AddPlayer("b", false, false)
	g.AddPlayer("c", false, false)
	if err := g.StartRound("s"); err != nil {
		t.Fatal(err)
	}
	if len(g.BurnedFaceUp) != 0 {
		t.Errorf("face-up burns = %d, want 0 with three players", len(g.BurnedFaceUp))
	}
	if len(g.Deck) != 16-1-3 {
		t.Errorf("deck = %d, want 12", len(g.Deck))
	}
}

func TestStartRoundNeedsTwoPlayers(t *testing.T) {
	g, _ := NewGame(RulesetClassic)
	g.AddPlayer("solo", true, false)
	if err := g.StartRound("s"); err == nil {
		t.Fatal("round started with one player")
	}
}

func TestStartRoundIllegalMidRound(t *testing.T) {
	g, _ := NewGame(RulesetClassic)
	g.AddPlayer("a", true, false)
	g.AddPlayer("b", false, false)
	g.StartRound("s")
	if err := g.StartRound("again"); err == nil {
		t.Fatal("restart accepted during a running round")
	}
}

func TestBeginTurnExpiresProtection(t *testing.T) {
	g := table(t, RulesetClassic, []CardID{CardGuard}, []CardID{CardBaron})
	g.Players[0].Status = StatusProtected
	g.Phase = PhaseTurnStart
	if err := g.BeginTurn(); err != nil {
		t.Fatal(err)
	}
	if g.Players[0].Status != StatusPlaying {
		t.Errorf("status = %s, protection must expire at own turn start", g.Players[0].Status)
	}
}

func TestBeginTurnEmptyDeckEndsRound(t *testing.T) {
	g := table(t, RulesetClassic, []CardID{CardPriest}, []CardID{CardKing})
	g.Deck = nil
	g.Phase = PhaseTurnStart
	if err := g.BeginTurn(); err != nil {
		t.Fatal(err)
	}
	if g.Phase != PhaseRoundEnd {
		t.Fatalf("phase = %s, want %s", g.Phase, PhaseRoundEnd)
	}
	// King (6) beats Priest (2) under classic values.
	if g.Players[1].Tokens != 1 || g.Players[1].Status != StatusWonRound {
		t.Error("highest held card did not take the round")
	}
}

func TestRoundEndTieAwardsNoToken(t *testing.T) {
	g := table(t, RulesetClassic, []CardID{CardPriest}, []CardID{CardPriest})
	g.Deck = nil
	g.Phase = PhaseTurnStart
	g.BeginTurn()
	if g.Phase != PhaseRoundEnd {
		t.Fatalf("phase = %s", g.Phase)
	}
	for _, p := range g.Players {
		if p.Tokens != 0 {
			t.Errorf("%s got a token from a tie", p.Name)
		}
		if p.Status == StatusWonRound {
			t.Errorf("%s marked round winner on a tie", p.Name)
		}
	}
}

func TestRoundEndEmptyHandScoresBelowEverything(t *testing.T) {
	g := table(t, RulesetEdition2019, []CardID{CardSpy}, nil)
	g.Deck = nil
	g.Phase = PhaseTurnStart
	g.BeginTurn()
	// Spy is worth 0 but an emptied hand is worth less.
	if g.Players[0].Status != StatusWonRound {
		t.Error("spy holder lost to an empty hand")
	}
}

func TestLastStandingWinsImmediately(t *testing.T) {
	g := table(t, RulesetClassic, []CardID{CardGuard, CardPriest}, []CardID{CardBaron})
	res, err := g.Submit(g.Players[0].ID, Action{
		Type: ActionPlayCard, Card: CardGuard,
		TargetPlayer: g.Players[1].ID, Guess: CardBaron,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Eliminated != g.Players[1].ID {
		t.Error("correct guess did not eliminate the target")
	}
	if g.Phase != PhaseRoundEnd {
		t.Fatalf("phase = %s, want %s", g.Phase, PhaseRoundEnd)
	}
	if g.Players[0].Tokens != 1 {
		t.Errorf("winner tokens = %d, want 1", g.Players[0].Tokens)
	}
}

func TestGameEndsAtTokenThreshold(t *testing.T) {
	g := table(t, RulesetClassic, []CardID{CardGuard, CardPriest}, []CardID{CardBaron})
	g.TokensToWin = 2
	g.Players[0].Tokens = 1
	if _, err := g.Submit(g.Players[0].ID, Action{
		Type: ActionPlayCard, Card: CardGuard,
		TargetPlayer: g.Players[1].ID, Guess: CardBaron,
	}); err != nil {
		t.Fatal(err)
	}
	if g.Phase != PhaseGameEnd {
		t.Fatalf("phase = %s, want %s", g.Phase, PhaseGameEnd)
	}
	if g.WinnerID != g.Players[0].ID {
		t.Error("winner id not recorded")
	}
}

func TestRoundWinnerLeadsNextRound(t *testing.T) {
	g, _ := NewGame(RulesetClassic)
	g.AddPlayer("a", true, false)
	g.AddPlayer("b", false, false)
	g.AddPlayer("c", false, false)

	g.Phase = PhaseRoundEnd
	g.Players[2].Status = StatusWonRound
	g.Players[2].Tokens = 1

	if err := g.StartRound("next"); err != nil {
		t.Fatal(err)
	}
	if g.ActiveIndex != 2 {
		t.Errorf("leader index = %d, want the previous winner at 2", g.ActiveIndex)
	}
	if g.Players[2].Tokens != 1 {
		t.Error("tokens must survive the round reset")
	}
	for _, p := range g.Players {
		if p.Status != StatusPlaying || len(p.Discard) != 0 {
			t.Errorf("%s not reset for the new round", p.Name)
		}
	}
}

func TestAdvanceSkipsEliminatedSeats(t *testing.T) {
	g := table(t, RulesetClassic,
		[]CardID{CardHandmaid, CardPriest}, []CardID{CardBaron}, []CardID{CardGuard})
	g.Players[1].Status = StatusEliminated
	g.Players[1].Hand = nil

	if _, err := g.Submit(g.Players[0].ID, Action{Type: ActionPlayCard, Card: CardHandmaid}); err != nil {
		t.Fatal(err)
	}
	if g.ActiveIndex != 2 {
		t.Errorf("active index = %d, want 2 (seat 1 is out)", g.ActiveIndex)
	}
	if g.Phase != PhaseWaitingForAction {
		t.Errorf("phase = %s, the next turn should have opened", g.Phase)
	}
}

func TestSpyBonusSingleHolder(t *testing.T) {
	g := table(t, RulesetEdition2019, []CardID{CardPriest}, []CardID{CardBaron})
	g.Players[0].Discard = []CardID{CardSpy}
	g.Deck = nil
	g.Phase = PhaseTurnStart
	g.BeginTurn()

	// Baron (3) takes the round; the spy discarder still collects the bonus.
	if g.Players[1].Tokens != 1 {
		t.Errorf("round winner tokens = %d, want 1", g.Players[1].Tokens)
	}
	if g.Players[0].Tokens != 1 {
		t.Errorf("spy bonus tokens = %d, want 1", g.Players[0].Tokens)
	}
}

func TestSpyBonusSplitAwardsNothing(t *testing.T) {
	g := table(t, RulesetEdition2019, []CardID{CardPriest}, []CardID{CardBaron})
	g.Players[0].Discard = []CardID{CardSpy}
	g.Players[1].Discard = []CardID{CardSpy}
	g.Deck = nil
	g.Phase = PhaseTurnStart
	g.BeginTurn()

	if g.Players[0].Tokens != 0 {
		t.Error("split spy bonus leaked a token to seat 0")
	}
	if g.Players[1].Tokens != 1 { // round win only
		t.Errorf("seat 1 tokens = %d, want 1 from the round alone", g.Players[1].Tokens)
	}
}

func TestSpyBonusIgnoresEliminated(t *testing.T) {
	g := table(t, RulesetEdition2019, []CardID{CardPriest}, []CardID{CardBaron})
	g.Players[0].Discard = []CardID{CardSpy}
	g.Players[0].Status = StatusEliminated
	g.Players[0].Hand = nil
	g.Deck = nil
	g.Phase = PhaseTurnStart
	g.ActiveIndex = 1
	g.BeginTurn()

	if g.Players[0].Tokens != 0 {
		t.Error("eliminated player collected the spy bonus")
	}
}

func TestSpyBonusClassicNever(t *testing.T) {
	g := table(t, RulesetClassic, []CardID{CardPriest}, []CardID{CardBaron})
	g.Players[0].Discard = []CardID{CardSpy}
	g.Deck = nil
	g.Phase = PhaseTurnStart
	g.BeginTurn()
	if g.Players[0].Tokens != 0 {
		t.Error("spy bonus applied outside edition2019")
	}
}

func TestCloneIsDetached(t *testing.T) {
	g := table(t, RulesetClassic, []CardID{CardGuard, CardPriest}, []CardID{CardBaron})
	cp := g.Clone()
	cp.Players[0].Hand[0] = CardPrincess
	cp.Deck[0] = CardPrincess
	cp.Revenge = &RevengeState{}
	if g.Players[0].Hand[0] == CardPrincess || g.Deck[0] == CardPrincess {
		t.Fatal("clone shares memory with the original")
	}
	if g.Revenge != nil {
		t.Fatal("clone write leaked into original revenge state")
	}
}
