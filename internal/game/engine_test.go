package game

import (
	"errors"
	"reflect"
	"testing"

	"github.com/lox/blackjack/internal/deck"
)

func TestPlayerNaturalPaysThreeToTwo(t *testing.T) {
	e, rec := newStackedEngine(t, "As 9d Kh 8c", WithBalance(1000))

	snap := mustStart(t, e, 50)

	if snap.Phase != Settled {
		t.Fatalf("phase = %s, want settled", snap.Phase)
	}
	if snap.Hands[0].Result != BlackjackWin {
		t.Errorf("result = %s, want BLACKJACK", snap.Hands[0].Result)
	}
	if snap.Balance != 1075 {
		t.Errorf("balance = %d, want 1075", snap.Balance)
	}
	if snap.Dealer.HoleConcealed {
		t.Error("hole card should be revealed after settlement")
	}
	if len(rec.ofType(EventTypeDealerRevealed)) != 1 {
		t.Error("expected a DealerRevealed event")
	}
}

func TestBlackjackPayoutRoundsDown(t *testing.T) {
	e, _ := newStackedEngine(t, "As 9d Kh 8c", WithBalance(100))
	snap := mustStart(t, e, 15)
	// 15 * 2.5 = 37.5 -> 37
	if snap.Balance != 100-15+37 {
		t.Errorf("balance = %d, want %d", snap.Balance, 100-15+37)
	}
}

func TestBothNaturalsPush(t *testing.T) {
	e, _ := newStackedEngine(t, "As Ad Kh Kc", WithBalance(1000))
	snap := mustStart(t, e, 50)

	if snap.Phase != Settled || snap.Hands[0].Result != Push {
		t.Fatalf("got %s/%s, want settled/PUSH", snap.Phase, snap.Hands[0].Result)
	}
	if snap.Balance != 1000 {
		t.Errorf("balance = %d, want 1000", snap.Balance)
	}
}

func TestDealerNaturalLoses(t *testing.T) {
	e, _ := newStackedEngine(t, "9s Ad 8h Kc", WithBalance(1000))
	snap := mustStart(t, e, 50)

	if snap.Phase != Settled || snap.Hands[0].Result != Lose {
		t.Fatalf("got %s/%s, want settled/LOSE", snap.Phase, snap.Hands[0].Result)
	}
	if snap.Balance != 950 {
		t.Errorf("balance = %d, want 950", snap.Balance)
	}
}

func TestBetIsDeductedImmediately(t *testing.T) {
	e, _ := newStackedEngine(t, "10s 9d 6h 8c", WithBalance(1000))
	snap := mustStart(t, e, 50)

	if snap.Phase != PlayerTurn {
		t.Fatalf("phase = %s, want player_turn", snap.Phase)
	}
	if snap.Balance != 950 {
		t.Errorf("balance = %d, want 950", snap.Balance)
	}
	if snap.ActiveHand != 0 {
		t.Errorf("active hand = %d, want 0", snap.ActiveHand)
	}
}

func TestInvalidBets(t *testing.T) {
	for _, bet := range []int{0, -5, 1001} {
		e, _ := newStackedEngine(t, "10s 9d 6h 8c", WithBalance(1000))
		before := e.Snapshot()

		_, err := e.StartRound(bet)
		if !errors.Is(err, ErrInvalidBet) {
			t.Errorf("bet %d: expected ErrInvalidBet, got %v", bet, err)
		}
		if !reflect.DeepEqual(before, e.Snapshot()) {
			t.Errorf("bet %d: rejected bet changed state", bet)
		}
	}
}

func TestBetOfEntireBalanceIsAllowed(t *testing.T) {
	e, _ := newStackedEngine(t, "10s 9d 6h 8c", WithBalance(50))
	snap := mustStart(t, e, 50)
	if snap.Balance != 0 {
		t.Errorf("balance = %d, want 0", snap.Balance)
	}
}

func TestCannotStartRoundWhileInProgress(t *testing.T) {
	e, _ := newStackedEngine(t, "10s 9d 6h 8c", WithBalance(1000))
	mustStart(t, e, 50)

	_, err := e.StartRound(50)
	if !errors.Is(err, ErrIllegalAction) {
		t.Fatalf("expected ErrIllegalAction, got %v", err)
	}
	if e.Balance() != 950 {
		t.Errorf("balance = %d, want 950", e.Balance())
	}
}

func TestActionsWithoutRoundAreRejected(t *testing.T) {
	e := NewEngine()
	commands := map[string]func() (Snapshot, error){
		"hit":    e.Hit,
		"stand":  e.Stand,
		"double": e.DoubleDown,
		"split":  e.Split,
	}
	for name, cmd := range commands {
		if _, err := cmd(); !errors.Is(err, ErrIllegalAction) {
			t.Errorf("%s: expected ErrIllegalAction, got %v", name, err)
		}
	}
	if _, _, err := e.DealerStep(); !errors.Is(err, ErrIllegalAction) {
		t.Errorf("dealer step: expected ErrIllegalAction, got %v", err)
	}
}

func TestHitBustLosesAndEndsPlayerTurn(t *testing.T) {
	// Player 10,6 hits an 8. Dealer 9,8 stands on 17.
	e, rec := newStackedEngine(t, "10s 9d 6h 8c 8d", WithBalance(1000))
	mustStart(t, e, 50)

	snap := must(t, e.Hit())

	if snap.Hands[0].Value != 24 {
		t.Fatalf("value = %d, want 24", snap.Hands[0].Value)
	}
	if snap.Phase != Settled {
		t.Fatalf("phase = %s, want settled", snap.Phase)
	}
	if snap.Hands[0].Result != Lose {
		t.Errorf("result = %s, want LOSE", snap.Hands[0].Result)
	}
	if snap.Balance != 950 {
		t.Errorf("balance = %d, want 950", snap.Balance)
	}
	if busted := rec.ofType(EventTypeHandBusted); len(busted) != 1 {
		t.Errorf("expected one HandBusted event, got %d", len(busted))
	}
	if _, err := e.Hit(); !errors.Is(err, ErrIllegalAction) {
		t.Errorf("hit after bust: expected ErrIllegalAction, got %v", err)
	}
}

func TestHittingTwentyOneDoesNotAutoStand(t *testing.T) {
	e, _ := newStackedEngine(t, "5s 10d 6h 7c 10h", WithBalance(1000))
	mustStart(t, e, 50)

	snap := must(t, e.Hit())
	if snap.Hands[0].Value != 21 {
		t.Fatalf("value = %d, want 21", snap.Hands[0].Value)
	}
	if snap.Phase != PlayerTurn {
		t.Errorf("phase = %s, want player_turn", snap.Phase)
	}
	if !snap.Can(Stand) {
		t.Error("stand should still be available")
	}
}

func TestStandWinsAgainstLowerDealer(t *testing.T) {
	e, _ := newStackedEngine(t, "10s 10d 9h 7c", WithBalance(1000))
	mustStart(t, e, 50)

	snap := must(t, e.Stand())
	if snap.Hands[0].Result != Win {
		t.Fatalf("result = %s, want WIN", snap.Hands[0].Result)
	}
	if snap.Balance != 1050 {
		t.Errorf("balance = %d, want 1050", snap.Balance)
	}
}

func TestEqualTotalsPush(t *testing.T) {
	e, _ := newStackedEngine(t, "10s 10d 7h 7c", WithBalance(1000))
	mustStart(t, e, 50)

	snap := must(t, e.Stand())
	if snap.Hands[0].Result != Push {
		t.Fatalf("result = %s, want PUSH", snap.Hands[0].Result)
	}
	if snap.Balance != 1000 {
		t.Errorf("balance = %d, want 1000", snap.Balance)
	}
}

func TestLowerTotalLoses(t *testing.T) {
	e, _ := newStackedEngine(t, "10s 10d 7h 9c", WithBalance(1000))
	mustStart(t, e, 50)

	snap := must(t, e.Stand())
	if snap.Hands[0].Result != Lose || snap.Balance != 950 {
		t.Fatalf("got %s with balance %d, want LOSE with 950", snap.Hands[0].Result, snap.Balance)
	}
}

func TestDealerBustPaysEvenMoney(t *testing.T) {
	// Player 18, dealer 16 draws a king.
	e, _ := newStackedEngine(t, "10s 10d 8h 6c Kc", WithBalance(1000))
	mustStart(t, e, 50)

	snap := must(t, e.Stand())
	if snap.Dealer.Value != 26 {
		t.Fatalf("dealer value = %d, want 26", snap.Dealer.Value)
	}
	if snap.Hands[0].Result != Win || snap.Balance != 1050 {
		t.Errorf("got %s with balance %d, want WIN with 1050", snap.Hands[0].Result, snap.Balance)
	}
}

func TestDealerStandsOnSoftSeventeen(t *testing.T) {
	e, _ := newStackedEngine(t, "10s Ad 9h 6c 5d", WithBalance(1000))
	mustStart(t, e, 50)

	snap := must(t, e.Stand())
	if len(snap.Dealer.Cards) != 2 {
		t.Fatalf("dealer drew on soft 17: %s", cardsString(snap.Dealer.Cards))
	}
	if snap.Dealer.Value != 17 {
		t.Errorf("dealer value = %d, want 17", snap.Dealer.Value)
	}
	if snap.ShoeRemaining != 1 {
		t.Errorf("shoe remaining = %d, want 1", snap.ShoeRemaining)
	}
	if snap.Hands[0].Result != Win {
		t.Errorf("19 vs 17: result = %s, want WIN", snap.Hands[0].Result)
	}
}

func TestDealerDrawsToSeventeen(t *testing.T) {
	// Dealer 2,3 draws 4, 2, 6 -> 17.
	e, _ := newStackedEngine(t, "10s 2d 10h 3c 4d 2h 6s 9c", WithBalance(1000))
	mustStart(t, e, 50)

	snap := must(t, e.Stand())
	if got := len(snap.Dealer.Cards); got != 5 {
		t.Fatalf("dealer has %d cards, want 5", got)
	}
	if snap.Dealer.Value != 17 {
		t.Errorf("dealer value = %d, want 17", snap.Dealer.Value)
	}
}

func TestDoubleDown(t *testing.T) {
	// Player 5,6 doubles and draws a 9. Dealer 10,7.
	e, rec := newStackedEngine(t, "5s 10d 6h 7c 9d 2c", WithBalance(1000))
	mustStart(t, e, 50)

	snap := must(t, e.DoubleDown())

	hand := snap.Hands[0]
	if hand.Bet != 100 || !hand.Doubled || !hand.Finished {
		t.Fatalf("hand after double = %+v", hand)
	}
	if len(hand.Cards) != 3 {
		t.Fatalf("doubled hand has %d cards, want 3", len(hand.Cards))
	}
	if hand.Result != Win {
		t.Errorf("20 vs 17: result = %s, want WIN", hand.Result)
	}
	// 1000 - 50 - 50 + 200
	if snap.Balance != 1100 {
		t.Errorf("balance = %d, want 1100", snap.Balance)
	}
	if snap.Staked != 100 || snap.Paid != 200 {
		t.Errorf("staked/paid = %d/%d, want 100/200", snap.Staked, snap.Paid)
	}
	if len(rec.ofType(EventTypeHandDoubled)) != 1 {
		t.Error("expected HandDoubled event")
	}
}

func TestDoubleDownFinishesHandEvenWhenLow(t *testing.T) {
	// Player 5,6 doubles and draws a 2 (13). The hand is finished anyway.
	e, _ := newStackedEngine(t, "5s 10d 6h 7c 2d", WithBalance(1000))
	mustStart(t, e, 50)

	snap := must(t, e.DoubleDown())
	if !snap.Hands[0].Finished || snap.Phase != Settled {
		t.Fatalf("phase = %s, finished = %v", snap.Phase, snap.Hands[0].Finished)
	}
	if len(snap.Hands[0].Cards) != 3 {
		t.Errorf("doubled hand received %d cards", len(snap.Hands[0].Cards)-2)
	}
}

func TestDoubleDownInsufficientBalance(t *testing.T) {
	e, _ := newStackedEngine(t, "5s 10d 6h 7c 9d", WithBalance(60))
	before := mustStart(t, e, 50)

	if before.Can(Double) {
		t.Error("double should not be offered with balance 10")
	}
	_, err := e.DoubleDown()
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if !reflect.DeepEqual(before, e.Snapshot()) {
		t.Error("rejected double changed state")
	}
}

func TestDoubleDownOnlyOnTwoCards(t *testing.T) {
	e, _ := newStackedEngine(t, "2s 10d 3h 7c 4d 9d", WithBalance(1000))
	mustStart(t, e, 50)
	must(t, e.Hit())

	_, err := e.DoubleDown()
	if !errors.Is(err, ErrIllegalAction) {
		t.Fatalf("expected ErrIllegalAction, got %v", err)
	}
}

func TestSplitPair(t *testing.T) {
	e, rec := newStackedEngine(t, "8s 10d 8h 7c 3d Kc", WithBalance(1000))
	mustStart(t, e, 50)

	snap := must(t, e.Split())

	if len(snap.Hands) != 2 {
		t.Fatalf("got %d hands, want 2", len(snap.Hands))
	}
	for i, h := range snap.Hands {
		if h.Bet != 50 {
			t.Errorf("hand %d bet = %d, want 50", i, h.Bet)
		}
		if len(h.Cards) != 2 {
			t.Errorf("hand %d has %d cards, want 2", i, len(h.Cards))
		}
		if h.Cards[0].Rank != deck.Eight {
			t.Errorf("hand %d should start with an eight, got %v", i, h.Cards[0])
		}
	}
	if snap.ActiveHand != 0 {
		t.Errorf("active hand = %d, want 0", snap.ActiveHand)
	}
	if snap.Balance != 900 {
		t.Errorf("balance = %d, want 900", snap.Balance)
	}
	if snap.Can(Split) {
		t.Error("split must not be offered after splitting")
	}
	if len(rec.ofType(EventTypeHandSplit)) != 1 {
		t.Error("expected HandSplit event")
	}
}

func TestSplitOnlyOnce(t *testing.T) {
	// Both split hands pair up again.
	e, _ := newStackedEngine(t, "8s 10d 8h 7c 8d 8c", WithBalance(1000))
	mustStart(t, e, 50)
	before := must(t, e.Split())

	if before.Can(Split) {
		t.Fatal("split offered on a split hand")
	}
	_, err := e.Split()
	if !errors.Is(err, ErrIllegalAction) {
		t.Fatalf("expected ErrIllegalAction, got %v", err)
	}
	if !reflect.DeepEqual(before, e.Snapshot()) {
		t.Error("rejected split changed state")
	}

	// Still refused on the second hand.
	must(t, e.Stand())
	if _, err := e.Split(); !errors.Is(err, ErrIllegalAction) {
		t.Errorf("second hand: expected ErrIllegalAction, got %v", err)
	}
}

func TestSplitRequiresMatchingRank(t *testing.T) {
	e, _ := newStackedEngine(t, "10s 9d Kh 7c", WithBalance(1000))
	snap := mustStart(t, e, 50)

	if snap.Can(Split) {
		t.Error("10 and K must not be splittable")
	}
	if _, err := e.Split(); !errors.Is(err, ErrIllegalAction) {
		t.Errorf("expected ErrIllegalAction, got %v", err)
	}
}

func TestSplitInsufficientBalance(t *testing.T) {
	e, _ := newStackedEngine(t, "8s 10d 8h 7c 3d Kc", WithBalance(80))
	before := mustStart(t, e, 50)

	if _, err := e.Split(); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if !reflect.DeepEqual(before, e.Snapshot()) {
		t.Error("rejected split changed state")
	}
}

func TestSplitHandsPlayInOrderAndSettleIndependently(t *testing.T) {
	// Hands: 8,3 and 8,K. Hand 1 hits a 9 (20). Dealer 10,7.
	e, rec := newStackedEngine(t, "8s 10d 8h 7c 3d Kc 9h", WithBalance(1000))
	mustStart(t, e, 50)
	must(t, e.Split())

	snap := must(t, e.Hit())
	if snap.ActiveHand != 0 || snap.Hands[0].Value != 20 {
		t.Fatalf("after hit: active %d value %d", snap.ActiveHand, snap.Hands[0].Value)
	}

	snap = must(t, e.Stand())
	if snap.ActiveHand != 1 {
		t.Fatalf("active hand = %d, want 1", snap.ActiveHand)
	}

	snap = must(t, e.Stand())
	if snap.Phase != Settled {
		t.Fatalf("phase = %s, want settled", snap.Phase)
	}
	if snap.Hands[0].Result != Win || snap.Hands[1].Result != Win {
		t.Errorf("results = %s/%s, want WIN/WIN", snap.Hands[0].Result, snap.Hands[1].Result)
	}
	// 1000 - 100 + 2*100
	if snap.Balance != 1100 {
		t.Errorf("balance = %d, want 1100", snap.Balance)
	}

	activated := rec.ofType(EventTypeHandActivated)
	last := activated[len(activated)-1].(HandActivatedEvent)
	if last.HandIndex != 1 {
		t.Errorf("last activated hand = %d, want 1", last.HandIndex)
	}
}

func TestSplitHandBustStillResolvesOtherHand(t *testing.T) {
	// Hands: 8,6 and 8,10. Hand 1 hits a king and busts. Dealer 10,7.
	e, _ := newStackedEngine(t, "8s 10d 8h 7c 6d 10c Kh", WithBalance(1000))
	mustStart(t, e, 50)
	must(t, e.Split())

	snap := must(t, e.Hit())
	if !snap.Hands[0].Finished || snap.ActiveHand != 1 {
		t.Fatalf("busted hand should finish and pass to hand 2, active = %d", snap.ActiveHand)
	}

	snap = must(t, e.Stand())
	if snap.Hands[0].Result != Lose || snap.Hands[1].Result != Win {
		t.Errorf("results = %s/%s, want LOSE/WIN", snap.Hands[0].Result, snap.Hands[1].Result)
	}
	if snap.Balance != 1000 {
		t.Errorf("balance = %d, want 1000", snap.Balance)
	}
}

func TestSplitAcesToTwentyOnePaysBlackjack(t *testing.T) {
	// Hands: A,K and A,5. Dealer 9,8.
	e, _ := newStackedEngine(t, "As 9d Ah 8c Kd 5c", WithBalance(1000))
	mustStart(t, e, 50)
	must(t, e.Split())
	must(t, e.Stand())
	snap := must(t, e.Stand())

	if snap.Hands[0].Result != BlackjackWin || snap.Hands[0].Payout != 125 {
		t.Errorf("hand 1 = %s paying %d, want BLACKJACK paying 125", snap.Hands[0].Result, snap.Hands[0].Payout)
	}
	if snap.Hands[1].Result != Lose {
		t.Errorf("hand 2 = %s, want LOSE", snap.Hands[1].Result)
	}
	if snap.Balance != 1025 {
		t.Errorf("balance = %d, want 1025", snap.Balance)
	}
}

func TestDoubleAfterSplit(t *testing.T) {
	// Hands: 8,3 and 8,2. Hand 1 doubles into a 10 (21).
	e, _ := newStackedEngine(t, "8s 10d 8h 7c 3d 2c 10h", WithBalance(1000))
	mustStart(t, e, 50)
	must(t, e.Split())

	snap := must(t, e.DoubleDown())
	if snap.Hands[0].Bet != 100 || !snap.Hands[0].Finished {
		t.Fatalf("hand 1 = %+v", snap.Hands[0])
	}
	if snap.ActiveHand != 1 {
		t.Errorf("active = %d, want 1", snap.ActiveHand)
	}
	if snap.Balance != 850 {
		t.Errorf("balance = %d, want 850", snap.Balance)
	}
}

func TestHoleCardConcealedDuringPlayerTurn(t *testing.T) {
	e, rec := newStackedEngine(t, "10s 9d 6h Kc", WithBalance(1000))
	snap := mustStart(t, e, 50)

	if !snap.Dealer.HoleConcealed {
		t.Fatal("hole card should be concealed")
	}
	if len(snap.Dealer.Visible()) != 1 {
		t.Errorf("visible dealer cards = %d, want 1", len(snap.Dealer.Visible()))
	}
	if snap.Dealer.Value != 9 {
		t.Errorf("visible dealer value = %d, want 9", snap.Dealer.Value)
	}

	var concealed int
	for _, ev := range rec.ofType(EventTypeCardDealt) {
		if ev.(CardDealtEvent).Concealed {
			concealed++
		}
	}
	if concealed != 1 {
		t.Errorf("concealed cards dealt = %d, want 1", concealed)
	}
}

func TestEmptyShoeRollsBackCommand(t *testing.T) {
	// Dealer must draw after the player stands but the shoe is dry.
	e, _ := newStackedEngine(t, "10s 2d 10h 3c", WithBalance(1000))
	before := mustStart(t, e, 50)

	_, err := e.Stand()
	if !errors.Is(err, deck.ErrEmptyShoe) {
		t.Fatalf("expected ErrEmptyShoe, got %v", err)
	}
	if !reflect.DeepEqual(before, e.Snapshot()) {
		t.Error("failed command left partial state")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	e, _ := newStackedEngine(t, "10s 9d 6h 8c", WithBalance(1000))
	snap := mustStart(t, e, 50)

	snap.Hands[0].Cards[0] = deck.NewCard(deck.Hearts, deck.Ace)
	snap.Dealer.Cards[1] = deck.NewCard(deck.Hearts, deck.Ace)

	again := e.Snapshot()
	if again.Hands[0].Cards[0].Rank != deck.Ten || again.Dealer.Cards[1].Rank != deck.Eight {
		t.Error("mutating a snapshot changed the engine")
	}
}

func TestReset(t *testing.T) {
	e, _ := newStackedEngine(t, "10s 9d 6h 8c", WithBalance(1000))
	mustStart(t, e, 50)

	if err := e.Reset(500); !errors.Is(err, ErrIllegalAction) {
		t.Fatalf("reset mid-round: expected ErrIllegalAction, got %v", err)
	}

	fresh := NewEngine(WithBalance(10))
	if err := fresh.Reset(0); !errors.Is(err, ErrInvalidBalance) {
		t.Errorf("expected ErrInvalidBalance, got %v", err)
	}
	if err := fresh.Reset(2000); err != nil {
		t.Fatal(err)
	}
	if fresh.Balance() != 2000 || fresh.Phase() != AwaitingBet {
		t.Errorf("after reset: balance %d phase %s", fresh.Balance(), fresh.Phase())
	}
	if fresh.Snapshot().ShoeRemaining != 6*52 {
		t.Errorf("reset should recompose the shoe, %d cards", fresh.Snapshot().ShoeRemaining)
	}
}

func TestParseAction(t *testing.T) {
	tests := map[string]Action{"hit": Hit, "S": Stand, "double": Double, "p": Split}
	for in, want := range tests {
		got, err := ParseAction(in)
		if err != nil || got != want {
			t.Errorf("ParseAction(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseAction("surrender"); err == nil {
		t.Error("surrender is not supported")
	}
}

func TestTextEncodingRoundTrip(t *testing.T) {
	for _, r := range []Result{Pending, Win, Lose, Push, BlackjackWin} {
		text, _ := r.MarshalText()
		var got Result
		if err := got.UnmarshalText(text); err != nil || got != r {
			t.Errorf("result %v: got %v, %v", r, got, err)
		}
	}
	for _, a := range []Action{Hit, Stand, Double, Split} {
		text, _ := a.MarshalText()
		var got Action
		if err := got.UnmarshalText(text); err != nil || got != a {
			t.Errorf("action %v: got %v, %v", a, got, err)
		}
	}
	for _, p := range []Phase{AwaitingBet, Dealing, PlayerTurn, DealerTurn, Settled} {
		text, _ := p.MarshalText()
		var got Phase
		if err := got.UnmarshalText(text); err != nil || got != p {
			t.Errorf("phase %v: got %v, %v", p, got, err)
		}
	}
}
