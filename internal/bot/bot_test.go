package bot

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/evaluator"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/randutil"
)

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

// situation builds a player_turn snapshot with a single active hand.
func situation(t *testing.T, player, upCard string, actions ...game.Action) game.Snapshot {
	t.Helper()
	cards := deck.MustParseCards(player)
	dealer := deck.MustParseCards(upCard + " 2c")
	total, soft := evaluator.Value(cards)

	if len(actions) == 0 {
		actions = []game.Action{game.Hit, game.Stand, game.Double, game.Split}
	}
	return game.Snapshot{
		Phase:        game.PlayerTurn,
		ActiveHand:   0,
		Hands:        []game.HandView{{Cards: cards, Bet: 10, Value: total, Soft: soft}},
		Dealer:       game.DealerView{Cards: dealer, HoleConcealed: true},
		ValidActions: actions,
	}
}

func TestBasicBotChart(t *testing.T) {
	bot := NewBasicBot(quietLogger())

	tests := []struct {
		player string
		up     string
		want   game.Action
	}{
		{"8s 8h", "Ah", game.Split},
		{"As Ah", "6d", game.Split},
		{"Ts Kh", "6d", game.Stand},
		{"9s 9h", "7d", game.Stand},
		{"9s 9h", "8d", game.Split},
		{"5s 5h", "6d", game.Double},
		{"5s 6h", "Ad", game.Double},
		{"5s 4h", "2d", game.Hit},
		{"5s 4h", "4d", game.Double},
		{"Ts 2h", "3d", game.Hit},
		{"Ts 2h", "4d", game.Stand},
		{"Ts 6h", "7d", game.Hit},
		{"Ts 6h", "6d", game.Stand},
		{"Ts 7h", "Ad", game.Stand},
		{"As 7h", "5d", game.Double},
		{"As 7h", "7d", game.Stand},
		{"As 7h", "9d", game.Hit},
		{"As 6h", "2d", game.Hit},
		{"As 2h", "5d", game.Double},
		{"As 8h", "6d", game.Stand},
	}

	for _, tt := range tests {
		t.Run(tt.player+" vs "+tt.up, func(t *testing.T) {
			got := bot.MakeDecision(situation(t, tt.player, tt.up))
			assert.Equal(t, tt.want, got.Action, got.Reasoning)
		})
	}
}

func TestBasicBotFallsBackWhenDoubleUnavailable(t *testing.T) {
	bot := NewBasicBot(quietLogger())

	got := bot.MakeDecision(situation(t, "5s 6h", "6d", game.Hit, game.Stand))
	assert.Equal(t, game.Hit, got.Action)

	got = bot.MakeDecision(situation(t, "As 7h", "5d", game.Hit, game.Stand))
	assert.Equal(t, game.Stand, got.Action)
}

func TestBasicBotDoesNotSplitWhenNotOffered(t *testing.T) {
	bot := NewBasicBot(quietLogger())
	got := bot.MakeDecision(situation(t, "8s 8h", "Td", game.Hit, game.Stand))
	assert.Equal(t, game.Hit, got.Action, "hard 16 vs 10 hits")
}

func TestDealerBot(t *testing.T) {
	bot := NewDealerBot(quietLogger())
	assert.Equal(t, game.Hit, bot.MakeDecision(situation(t, "Ts 6h", "2d")).Action)
	assert.Equal(t, game.Stand, bot.MakeDecision(situation(t, "As 6h", "Td")).Action)
}

func TestRandBotOnlyPicksOfferedActions(t *testing.T) {
	bot := NewRandBot(randutil.New(7), quietLogger())
	snap := situation(t, "Ts 6h", "2d", game.Hit, game.Stand)

	seen := map[game.Action]bool{}
	for range 100 {
		seen[bot.MakeDecision(snap).Action] = true
	}
	assert.Equal(t, map[game.Action]bool{game.Hit: true, game.Stand: true}, seen)
}

func TestNew(t *testing.T) {
	assert.Equal(t, []string{"basic", "dealer", "expectation", "random"}, Names())

	for _, name := range Names() {
		s, err := New(name, randutil.New(1), quietLogger())
		require.NoError(t, err)
		require.NotNil(t, s)
	}

	_, err := New("card-counter", randutil.New(1), quietLogger())
	assert.Error(t, err)
}

// TestBotsCompleteRounds drives a real engine with every strategy.
func TestBotsCompleteRounds(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			strategy, err := New(name, randutil.New(3), quietLogger())
			require.NoError(t, err)
			e := game.NewEngine(game.WithRNG(randutil.New(11)), game.WithBalance(100_000))

			for range 100 {
				snap, err := e.StartRound(10)
				require.NoError(t, err)
				for snap.Phase == game.PlayerTurn {
					switch strategy.MakeDecision(snap).Action {
					case game.Hit:
						snap, err = e.Hit()
					case game.Stand:
						snap, err = e.Stand()
					case game.Double:
						snap, err = e.DoubleDown()
					case game.Split:
						snap, err = e.Split()
					}
					require.NoError(t, err)
				}
				require.Equal(t, game.Settled, snap.Phase)
			}
		})
	}
}

func TestExpectationBot(t *testing.T) {
	bot := NewExpectationBot(6, quietLogger())

	got := bot.MakeDecision(situation(t, "5s 6h", "6d"))
	assert.Equal(t, game.Double, got.Action, got.Reasoning)

	got = bot.MakeDecision(situation(t, "Ts 9h", "7d"))
	assert.Equal(t, game.Stand, got.Action, got.Reasoning)

	got = bot.MakeDecision(situation(t, "8s 8h", "Td"))
	assert.Equal(t, game.Split, got.Action, got.Reasoning)
}
