// Package game implements the blackjack round engine.
//
// The main type is Engine, which owns the shoe, the player's balance and the
// round in progress. Every command validates completely before mutating, so a
// rejected command leaves the engine exactly as it was.
//
// # Basic Usage
//
//	e := game.NewEngine(game.WithBalance(1000))
//	snap, err := e.StartRound(50)
//	if err != nil {
//	    // errors.Is(err, game.ErrInvalidBet)
//	}
//	for snap.Phase == game.PlayerTurn {
//	    snap, _ = e.Stand()
//	}
//	// snap.Phase == game.Settled, snap.Hands[i].Result holds each outcome
//
// # Deterministic Testing
//
// Inject a seeded RNG or script the exact cards with a stacked shoe:
//
//	e := game.NewEngine(game.WithRNG(randutil.New(42)))
//	e := game.NewEngine(game.WithShoe(deck.NewStackedShoe(cards...)))
//
// # Dealer Pacing
//
// By default the dealer plays out synchronously inside whichever command
// finished the last player hand. WithSteppedDealer stops the round in
// DealerTurn instead; each DealerStep call then reveals, draws or settles
// exactly once, which lets a presentation layer pace the dealer without the
// engine knowing about time.
//
// # Events
//
// Engine publishes CardDealt, HandBusted, DealerRevealed, RoundSettled and a
// few bookkeeping events on its EventBus after each successful command.
package game
