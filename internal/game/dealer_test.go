package game

import (
	"errors"
	"testing"
)

func TestSteppedDealer(t *testing.T) {
	// Player 20 stands. Dealer 2,3 draws 4, 10 -> 19.
	e, rec := newStackedEngine(t, "10s 2d Kh 3c 4d 10c", WithSteppedDealer())
	mustStart(t, e, 50)

	snap := must(t, e.Stand())
	if snap.Phase != DealerTurn {
		t.Fatalf("phase = %s, want dealer_turn", snap.Phase)
	}
	if !snap.Dealer.HoleConcealed {
		t.Fatal("hole card revealed before the first dealer step")
	}
	if len(snap.ValidActions) != 0 {
		t.Errorf("player actions offered during dealer turn: %v", snap.ValidActions)
	}
	if _, err := e.Hit(); !errors.Is(err, ErrIllegalAction) {
		t.Errorf("hit during dealer turn: expected ErrIllegalAction, got %v", err)
	}

	wantCards := []int{2, 3, 4, 4}
	for i, want := range wantCards {
		snap, settled, err := e.DealerStep()
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if got := len(snap.Dealer.Cards); got != want {
			t.Errorf("step %d: dealer has %d cards, want %d", i, got, want)
		}
		if settled != (i == len(wantCards)-1) {
			t.Errorf("step %d: settled = %v", i, settled)
		}
	}

	if e.Phase() != Settled {
		t.Fatalf("phase = %s, want settled", e.Phase())
	}
	if _, _, err := e.DealerStep(); !errors.Is(err, ErrIllegalAction) {
		t.Errorf("step after settle: expected ErrIllegalAction, got %v", err)
	}
	if len(rec.ofType(EventTypeRoundSettled)) != 1 {
		t.Error("expected exactly one RoundSettled")
	}
}

func TestSteppedDealerWithNaturalSettlesImmediately(t *testing.T) {
	e, _ := newStackedEngine(t, "As 9d Kh 8c", WithSteppedDealer())
	snap := mustStart(t, e, 50)
	if snap.Phase != Settled {
		t.Fatalf("phase = %s, want settled", snap.Phase)
	}
}

func TestDealerPlaysWhenEveryHandBusted(t *testing.T) {
	// Player busts. Dealer 2,3 still draws out to 17+.
	e, _ := newStackedEngine(t, "10s 2d 6h 3c Kd 10c 4h")
	mustStart(t, e, 50)

	snap := must(t, e.Hit())
	if snap.Phase != Settled {
		t.Fatalf("phase = %s", snap.Phase)
	}
	if got := len(snap.Dealer.Cards); got != 4 {
		t.Errorf("dealer has %d cards, want 4", got)
	}
}

func TestPayoutPrecedence(t *testing.T) {
	tests := []struct {
		name   string
		player string
		dealer string
		result Result
		payout int
	}{
		{"bust loses to dealer bust", "10s 6h Kd", "10c 6d 9s", Lose, 0},
		{"blackjack beats 21", "As Kh", "7c 7d 7s", BlackjackWin, 250},
		{"blackjack pushes blackjack", "As Kh", "Ac Qd", Push, 100},
		{"three card 21 loses to blackjack", "7c 7d 7s", "As Kh", Lose, 0},
		{"dealer bust", "10s 2h", "10c 6d 9s", Win, 200},
		{"higher total", "10s 9h", "10c 8d", Win, 200},
		{"equal total", "10s 8h", "10c 8d", Push, 100},
		{"lower total", "10s 7h", "10c 8d", Lose, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &Hand{Cards: cards(t, tt.player), Bet: 100}
			result, paid := payout(h, cards(t, tt.dealer))
			if result != tt.result || paid != tt.payout {
				t.Errorf("got %s/%d, want %s/%d", result, paid, tt.result, tt.payout)
			}
		})
	}
}
