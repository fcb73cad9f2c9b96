// Package engine implements the royalletters rules core: a deterministic
// state machine for a multi-edition Love Letter variant.
//
// The engine is a pure library. It performs no I/O and no logging beyond
// the in-state event log; the service layer in internal/game owns the
// single mutable instance and drives it through Submit.
package engine

import "fmt"

// CardID identifies a card kind. Multiple copies of the same id may exist
// in a deck; copies are indistinguishable.
type CardID string

const (
	CardSpy        CardID = "spy"
	CardGuard      CardID = "guard"
	CardPriest     CardID = "priest"
	CardBaron      CardID = "baron"
	CardHandmaid   CardID = "handmaid"
	CardPrince     CardID = "prince"
	CardChancellor CardID = "chancellor"
	CardKing       CardID = "king"
	CardCountess   CardID = "countess"
	CardPrincess   CardID = "princess"
)

// EffectKind is the closed set of card effects. The resolver switches
// exhaustively over these; adding a kind without a handler is a
// compile-visible change, not a silent runtime fallthrough.
type EffectKind uint8

const (
	EffectSpyBonus EffectKind = iota
	EffectGuessCard
	EffectSeeHand
	EffectCompareHands
	EffectProtection
	EffectForceDiscard
	EffectChancellorDraw
	EffectTradeHands
	EffectConditionalDiscard
	EffectLoseIfDiscarded
	EffectGuessCardRevenge
)

// Ruleset names a card-set edition.
type Ruleset string

const (
	RulesetClassic     Ruleset = "classic"
	RulesetEdition2019 Ruleset = "edition2019"
	RulesetHouse       Ruleset = "house"
)

// CardSpec is the immutable identity of a card kind.
type CardSpec struct {
	ID          CardID `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	// BaseValue is the Edition2019 value; classic-family rulesets override
	// the top three cards (see classicValues).
	BaseValue     int        `json:"baseValue"`
	Effect        EffectKind `json:"effect"`
	NeedsTarget   bool       `json:"needsTarget"`
	CanTargetSelf bool       `json:"canTargetSelf"`
	NeedsGuess    bool       `json:"needsGuess"`
}

// cardOrder fixes the expansion order of deck composition tables so that
// CreateDeck output is stable before shuffling.
var cardOrder = []CardID{
	CardSpy, CardGuard, CardPriest, CardBaron, CardHandmaid,
	CardPrince, CardChancellor, CardKing, CardCountess, CardPrincess,
}

var registry = map[CardID]CardSpec{
	CardSpy: {
		ID: CardSpy, Name: "Spy", BaseValue: 0, Effect: EffectSpyBonus,
		Description: "No effect now; if you alone survive with a Spy discarded, gain a token.",
	},
	CardGuard: {
		ID: CardGuard, Name: "Guard", BaseValue: 1, Effect: EffectGuessCard,
		NeedsTarget: true, NeedsGuess: true,
		Description: "Guess a player's card (not Guard); a correct guess eliminates them.",
	},
	CardPriest: {
		ID: CardPriest, Name: "Priest", BaseValue: 2, Effect: EffectSeeHand,
		NeedsTarget: true,
		Description: "Privately look at another player's hand.",
	},
	CardBaron: {
		ID: CardBaron, Name: "Baron", BaseValue: 3, Effect: EffectCompareHands,
		NeedsTarget: true,
		Description: "Compare hands with another player; the lower value is eliminated.",
	},
	CardHandmaid: {
		ID: CardHandmaid, Name: "Handmaid", BaseValue: 4, Effect: EffectProtection,
		Description: "You cannot be targeted until your next turn.",
	},
	CardPrince: {
		ID: CardPrince, Name: "Prince", BaseValue: 5, Effect: EffectForceDiscard,
		NeedsTarget: true, CanTargetSelf: true,
		Description: "A player of your choice discards their hand and draws a new card.",
	},
	CardChancellor: {
		ID: CardChancellor, Name: "Chancellor", BaseValue: 6, Effect: EffectChancellorDraw,
		Description: "Draw two cards, keep one, return the rest to the bottom of the deck.",
	},
	CardKing: {
		ID: CardKing, Name: "King", BaseValue: 7, Effect: EffectTradeHands,
		NeedsTarget: true,
		Description: "Trade hands with another player.",
	},
	CardCountess: {
		ID: CardCountess, Name: "Countess", BaseValue: 8, Effect: EffectConditionalDiscard,
		Description: "Must be played if you also hold the King or a Prince.",
	},
	CardPrincess: {
		ID: CardPrincess, Name: "Princess", BaseValue: 9, Effect: EffectLoseIfDiscarded,
		Description: "If this card leaves your hand, you are eliminated.",
	},
}

// classicValues overrides BaseValue for the classic-family rulesets
// (which have no Spy or Chancellor shifting the scale).
var classicValues = map[CardID]int{
	CardKing:     6,
	CardCountess: 7,
	CardPrincess: 8,
}

var deckCompositions = map[Ruleset]map[CardID]int{
	RulesetClassic: {
		CardGuard: 5, CardPriest: 2, CardBaron: 2, CardHandmaid: 2,
		CardPrince: 2, CardKing: 1, CardCountess: 1, CardPrincess: 1,
	},
	RulesetEdition2019: {
		CardSpy: 2, CardGuard: 6, CardPriest: 2, CardBaron: 2, CardHandmaid: 2,
		CardPrince: 2, CardChancellor: 2, CardKing: 1, CardCountess: 1, CardPrincess: 1,
	},
	RulesetHouse: {
		CardGuard: 5, CardPriest: 2, CardBaron: 2, CardHandmaid: 2,
		CardPrince: 2, CardKing: 1, CardCountess: 1, CardPrincess: 1,
	},
}

var maxPlayersByRuleset = map[Ruleset]int{
	RulesetClassic:     4,
	RulesetEdition2019: 6,
	RulesetHouse:       4,
}

// HouseRules holds the optional rule switches a ruleset activates.
type HouseRules struct {
	// KingBurnSwap lets a King with no valid target swap with the
	// face-down burned card instead of fizzling.
	KingBurnSwap bool `json:"kingBurnSwap"`
	// RevengeGuard upgrades the Guard: an incorrect guess grants the
	// target a one-shot revenge guess against the actor.
	RevengeGuard bool `json:"revengeGuard"`
}

func houseRulesFor(rs Ruleset) HouseRules {
	if rs == RulesetHouse {
		return HouseRules{KingBurnSwap: true, RevengeGuard: true}
	}
	return HouseRules{}
}

// DeckComposition returns a copy of the ruleset's card-id → count table,
// or nil for an unknown ruleset. The AI uses it to count unseen copies.
func DeckComposition(rs Ruleset) map[CardID]int {
	comp, ok := deckCompositions[rs]
	if !ok {
		return nil
	}
	out := make(map[CardID]int, len(comp))
	for id, n := range comp {
		out[id] = n
	}
	return out
}

// KnownRuleset reports whether rs is registered.
func KnownRuleset(rs Ruleset) bool {
	_, ok := deckCompositions[rs]
	return ok
}

// Spec returns the card spec for id under the given ruleset.
// Under the house ruleset the Guard carries the revenge effect.
func Spec(rs Ruleset, id CardID) (CardSpec, error) {
	spec, ok := registry[id]
	if !ok {
		return CardSpec{}, fmt.Errorf("unknown card id %q", id)
	}
	if id == CardGuard && houseRulesFor(rs).RevengeGuard {
		spec.Effect = EffectGuessCardRevenge
	}
	return spec, nil
}

// CardValue returns the card's point value under the given ruleset.
// Unknown ids are worth -1 so a malformed comparison loses loudly.
func CardValue(rs Ruleset, id CardID) int {
	spec, ok := registry[id]
	if !ok {
		return -1
	}
	if rs != RulesetEdition2019 {
		if v, ok := classicValues[id]; ok {
			return v
		}
	}
	return spec.BaseValue
}

// IsGuardFamily reports whether id resolves guesses (and therefore may
// neither be guessed with a Guard nor with a revenge guess).
func IsGuardFamily(rs Ruleset, id CardID) bool {
	spec, err := Spec(rs, id)
	if err != nil {
		return false
	}
	return spec.Effect == EffectGuessCard || spec.Effect == EffectGuessCardRevenge
}

// MaxPlayers returns the player cap for the ruleset.
func MaxPlayers(rs Ruleset) int {
	if n, ok := maxPlayersByRuleset[rs]; ok {
		return n
	}
	return 4
}

// TokensToWin returns the token threshold for the given player count.
func TokensToWin(playerCount int) int {
	switch playerCount {
	case 2:
		return 6
	case 3:
		return 5
	case 4:
		return 4
	case 5, 6:
		return 3
	default:
		return 4
	}
}
