package engine

import "fmt"

// CreateDeck expands the ruleset's composition table into a flat ordered
// multiset. An unknown ruleset is a hard error; a silently empty deck
// would deal impossible rounds.
func CreateDeck(rs Ruleset) ([]CardID, error) {
	comp, ok := deckCompositions[rs]
	if !ok {
		return nil, fmt.Errorf("create deck: unknown ruleset %q", rs)
	}
	deck := make([]CardID, 0, 21)
	for _, id := range cardOrder {
		for i := 0; i < comp[id]; i++ {
			deck = append(deck, id)
		}
	}
	return deck, nil
}

// Shuffle returns a new ordering of deck determined entirely by seed.
// Fisher–Yates from the last index down to 1, index drawn as
// floor(rng()*(i+1)). The input slice is not modified.
func Shuffle(deck []CardID, seed string) []CardID {
	out := make([]CardID, len(deck))
	copy(out, deck)
	rng := NewRNG(seed)
	for i := len(out) - 1; i > 0; i-- {
		j := int(rng.Float64() * float64(i+1))
		out[i], out[j] = out[j], out[i]
	}
	return out
}
