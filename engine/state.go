package engine

import (
	"fmt"

	"github.com/google/uuid"
)

// Phase names a state of the turn machine. Phases are strings because the
// GameState value is also the wire snapshot for guest sync.
type Phase string

const (
	PhaseLobby                  Phase = "lobby"
	PhaseTurnStart              Phase = "turn_start"
	PhaseWaitingForAction       Phase = "waiting_for_action"
	PhaseChancellorResolving    Phase = "chancellor_resolving"
	PhaseWaitingForRevengeGuess Phase = "waiting_for_revenge_guess"
	PhaseRoundEnd               Phase = "round_end"
	PhaseGameEnd                Phase = "game_end"
)

// PlayerStatus describes a player's standing within the current round.
type PlayerStatus string

const (
	StatusPlaying    PlayerStatus = "playing"
	StatusProtected  PlayerStatus = "protected"
	StatusEliminated PlayerStatus = "eliminated"
	StatusWonRound   PlayerStatus = "won_round"
)

// Player is one seat at the table. IDs are stable across reconnects;
// Tokens persist across rounds within a game.
type Player struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	// Hand is order-significant: index 0 is the held card for
	// single-card-hand effects.
	Hand    []CardID     `json:"hand"`
	Discard []CardID     `json:"discard"`
	Tokens  int          `json:"tokens"`
	Status  PlayerStatus `json:"status"`
	// EliminationReason is set iff Status is StatusEliminated.
	EliminationReason string `json:"eliminationReason,omitempty"`
	IsHost            bool   `json:"isHost"`
	IsAI              bool   `json:"isAI"`
}

// Alive reports whether the player is still in the round.
func (p *Player) Alive() bool {
	return p.Status == StatusPlaying || p.Status == StatusProtected
}

// HeldCard returns the player's single held card, or "" for an empty hand.
func (p *Player) HeldCard() CardID {
	if len(p.Hand) == 0 {
		return ""
	}
	return p.Hand[0]
}

// RevengeState is the pending sub-turn granted by an incorrect revenge
// guard guess: GuesserID (the original target) now guesses TargetID's
// (the original actor's) card.
type RevengeState struct {
	GuesserID uuid.UUID `json:"guesserId"`
	TargetID  uuid.UUID `json:"targetId"`
}

// GameState is the canonical snapshot of one game. The host mutates it
// only through Submit and the round lifecycle calls; guests replace their
// copy wholesale on every sync and never merge.
type GameState struct {
	Ruleset Ruleset    `json:"ruleset"`
	House   HouseRules `json:"house"`
	Players []*Player  `json:"players"` // turn order = array order
	// Deck is drawn from the front; Chancellor returns append to the back.
	Deck   []CardID `json:"deck"`
	Burned CardID   `json:"burned,omitempty"`
	// BurnedFaceUp holds the 3 public burns of a 2-player round.
	BurnedFaceUp []CardID `json:"burnedFaceUp,omitempty"`
	ActiveIndex  int      `json:"activeIndex"`
	Phase        Phase    `json:"phase"`
	// ChancellorDrawn counts the extra cards currently held during
	// chancellor resolution (0 outside of it).
	ChancellorDrawn int           `json:"chancellorDrawn,omitempty"`
	Revenge         *RevengeState `json:"revenge,omitempty"`
	Round           int           `json:"round"`
	Seed            string        `json:"seed"`
	Log             []string      `json:"log"`
	WinnerID        uuid.UUID     `json:"winnerId"`
	TokensToWin     int           `json:"tokensToWin"`
}

// NewGame creates an empty lobby-phase game for the given ruleset.
func NewGame(rs Ruleset) (*GameState, error) {
	if !KnownRuleset(rs) {
		return nil, fmt.Errorf("new game: unknown ruleset %q", rs)
	}
	return &GameState{
		Ruleset:     rs,
		House:       houseRulesFor(rs),
		Phase:       PhaseLobby,
		TokensToWin: TokensToWin(0),
	}, nil
}

// AddPlayer seats a new player under a fresh id. Only legal in the lobby
// and below the ruleset's player cap.
func (g *GameState) AddPlayer(name string, isHost, isAI bool) (*Player, error) {
	return g.AddSeat(uuid.New(), name, isHost, isAI)
}

// AddSeat seats a player under a caller-provided id. Remote peers bring
// their own id so it stays stable across reconnects. The win threshold
// follows the player count.
func (g *GameState) AddSeat(id uuid.UUID, name string, isHost, isAI bool) (*Player, error) {
	if g.Phase != PhaseLobby {
		return nil, fmt.Errorf("add player: game already started (phase %s)", g.Phase)
	}
	if len(g.Players) >= MaxPlayers(g.Ruleset) {
		return nil, fmt.Errorf("add player: table is full (%d/%d)", len(g.Players), MaxPlayers(g.Ruleset))
	}
	if id == uuid.Nil {
		return nil, fmt.Errorf("add player: nil player id")
	}
	if g.PlayerByID(id) != nil {
		return nil, fmt.Errorf("add player: id %s already seated", id)
	}
	p := &Player{
		ID:     id,
		Name:   name,
		Status: StatusPlaying,
		IsHost: isHost,
		IsAI:   isAI,
	}
	g.Players = append(g.Players, p)
	g.TokensToWin = TokensToWin(len(g.Players))
	return p, nil
}

// PlayerByID returns the seated player with the given id, or nil.
func (g *GameState) PlayerByID(id uuid.UUID) *Player {
	for _, p := range g.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// ActivePlayer returns the player whose turn it is.
func (g *GameState) ActivePlayer() *Player {
	if len(g.Players) == 0 {
		return nil
	}
	return g.Players[g.ActiveIndex]
}

// AliveCount returns the number of players still in the round.
func (g *GameState) AliveCount() int {
	n := 0
	for _, p := range g.Players {
		if p.Alive() {
			n++
		}
	}
	return n
}

// ValidTargets returns the players the actor may legally target with the
// given card: alive, and not protected unless the target is the actor and
// the card permits self-targeting. Self is excluded for cards that cannot
// target self.
func (g *GameState) ValidTargets(actorID uuid.UUID, spec CardSpec) []*Player {
	var out []*Player
	for _, p := range g.Players {
		if !p.Alive() {
			continue
		}
		if p.ID == actorID {
			if spec.CanTargetSelf {
				out = append(out, p)
			}
			continue
		}
		if p.Status == StatusProtected {
			continue
		}
		out = append(out, p)
	}
	return out
}

// drawFromDeck pops the front card. ok is false on an empty deck.
func (g *GameState) drawFromDeck() (CardID, bool) {
	if len(g.Deck) == 0 {
		return "", false
	}
	card := g.Deck[0]
	g.Deck = g.Deck[1:]
	return card, true
}

// removeFromHand removes a single instance of card from the player's
// hand, preserving the order of the rest. Duplicate copies stay.
func removeFromHand(p *Player, card CardID) bool {
	for i, c := range p.Hand {
		if c == card {
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			return true
		}
	}
	return false
}

// eliminate marks a player out of the round and moves their hand,
// face-up, onto their discard pile.
func (g *GameState) eliminate(p *Player, reason string) {
	p.Status = StatusEliminated
	p.EliminationReason = reason
	p.Discard = append(p.Discard, p.Hand...)
	p.Hand = nil
	g.logf("%s is eliminated: %s", p.Name, reason)
}

func (g *GameState) logf(format string, args ...interface{}) {
	g.Log = append(g.Log, fmt.Sprintf(format, args...))
}

// Clone deep-copies the state. The clone is the snapshot payload for
// GAME_STATE_SYNC, so it must share no mutable memory with the original.
func (g *GameState) Clone() *GameState {
	cp := *g
	cp.Players = make([]*Player, len(g.Players))
	for i, p := range g.Players {
		pc := *p
		pc.Hand = append([]CardID(nil), p.Hand...)
		pc.Discard = append([]CardID(nil), p.Discard...)
		cp.Players[i] = &pc
	}
	cp.Deck = append([]CardID(nil), g.Deck...)
	cp.BurnedFaceUp = append([]CardID(nil), g.BurnedFaceUp...)
	cp.Log = append([]string(nil), g.Log...)
	if g.Revenge != nil {
		rv := *g.Revenge
		cp.Revenge = &rv
	}
	return &cp
}
