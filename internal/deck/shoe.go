package deck

import (
	"errors"
	"math/rand/v2"
)

const (
	// DefaultDecks is the number of standard decks composed into a shoe.
	DefaultDecks = 6

	// DefaultReshuffleThreshold is the low-water mark below which the shoe
	// is recomposed before the next draw.
	DefaultReshuffleThreshold = 15

	cardsPerDeck = 52
)

// ErrEmptyShoe is returned when a card is drawn from a shoe that could not
// be replenished. With a composed shoe this indicates the reshuffle policy
// was bypassed.
var ErrEmptyShoe = errors.New("shoe is empty")

// ComposeShoe returns decks copies of the standard 52-card set, shuffled.
func ComposeShoe(decks int, rng *rand.Rand) []Card {
	cards := make([]Card, 0, decks*cardsPerDeck)
	for copyIdx := range decks {
		for _, suit := range Suits {
			for _, rank := range Ranks {
				cards = append(cards, Card{Suit: suit, Rank: rank, Copy: copyIdx})
			}
		}
	}
	Shuffle(cards, rng)
	return cards
}

// Shuffle permutes cards in place using Fisher-Yates
func Shuffle(cards []Card, rng *rand.Rand) {
	for i := len(cards) - 1; i > 0; i-- {
		var j int
		if rng != nil {
			j = rng.IntN(i + 1)
		} else {
			j = rand.IntN(i + 1)
		}
		cards[i], cards[j] = cards[j], cards[i]
	}
}

// Shoe is the working supply of cards. Draws remove cards from the top.
type Shoe struct {
	cards     []Card
	decks     int
	threshold int
	rng       *rand.Rand
}

// NewShoe composes a shuffled shoe of the given number of decks. The shoe
// is recomposed whenever fewer than threshold cards remain at draw time. A
// threshold that is not below the shoe size falls back to the default.
func NewShoe(decks, threshold int, rng *rand.Rand) *Shoe {
	if decks < 1 {
		decks = DefaultDecks
	}
	if threshold < 0 {
		threshold = 0
	}
	if threshold >= decks*52 {
		threshold = DefaultReshuffleThreshold
	}
	return &Shoe{
		cards:     ComposeShoe(decks, rng),
		decks:     decks,
		threshold: threshold,
		rng:       rng,
	}
}

// NewStackedShoe returns a shoe that deals exactly the given cards in order
// and is never replenished. Used to script deals.
func NewStackedShoe(cards ...Card) *Shoe {
	stacked := make([]Card, len(cards))
	copy(stacked, cards)
	return &Shoe{cards: stacked}
}

// Remaining returns the number of cards left in the shoe
func (s *Shoe) Remaining() int {
	return len(s.cards)
}

// Decks returns the number of decks the shoe is composed from. A stacked
// shoe reports zero.
func (s *Shoe) Decks() int {
	return s.decks
}

// NeedsReshuffle reports whether the next draw must be preceded by a
// recomposition.
func (s *Shoe) NeedsReshuffle() bool {
	if s.decks == 0 {
		return false
	}
	return len(s.cards) < s.threshold || len(s.cards) == 0
}

// Replenish recomposes the shoe if it has dropped below its threshold and
// reports whether it did. Previously drawn cards are forgotten.
func (s *Shoe) Replenish() bool {
	if !s.NeedsReshuffle() {
		return false
	}
	s.cards = ComposeShoe(s.decks, s.rng)
	return true
}

// Recompose replaces the shoe with a freshly shuffled set regardless of
// how many cards remain. A stacked shoe is left untouched.
func (s *Shoe) Recompose() {
	if s.decks == 0 {
		return
	}
	s.cards = ComposeShoe(s.decks, s.rng)
}

// Draw removes and returns the top card.
func (s *Shoe) Draw() (Card, error) {
	if len(s.cards) == 0 {
		return Card{}, ErrEmptyShoe
	}
	card := s.cards[0]
	s.cards = s.cards[1:]
	return card, nil
}

// Peek returns the top card without removing it from the shoe
func (s *Shoe) Peek() (Card, bool) {
	if len(s.cards) == 0 {
		return Card{}, false
	}
	return s.cards[0], true
}

// Clone returns an independent copy sharing the random source.
func (s *Shoe) Clone() *Shoe {
	cards := make([]Card, len(s.cards))
	copy(cards, s.cards)
	return &Shoe{
		cards:     cards,
		decks:     s.decks,
		threshold: s.threshold,
		rng:       s.rng,
	}
}
