package history

import "testing"

func TestNewSeedsBlinds(t *testing.T) {
	t.Parallel()
	tr := New(false)
	snap := tr.Snapshot()
	if len(snap) != 1 || snap[0][0] != 1 || snap[0][1] != 2 {
		t.Fatalf("expected blinds seeded as the first street, got %v", snap)
	}
}

func TestUpdateRejectsDecreasingContribution(t *testing.T) {
	t.Parallel()
	tr := New(false)
	_ = tr.Update(1, 2, Preflop)
	if err := tr.Update(2, 6, Preflop); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tr.Update(1, 6, Preflop); err == nil {
		t.Fatalf("expected an error when my contribution decreases")
	}
}

// TestSmallBlindSequence ports testUpdateSb from the reference
// HistoryTracker test: preflop SB calls then raises, flop checks through,
// a bet/raise, turn, and a double-check river, including the implicit
// calls the back-patch must recover at each street boundary.
func TestSmallBlindSequence(t *testing.T) {
	t.Parallel()
	tr := New(false)

	mustUpdate(t, tr, 1, 2, Preflop)
	// SB calls, BB bets.
	mustUpdate(t, tr, 2, 6, Preflop)
	snap := tr.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("expected still on preflop, got %d streets", len(snap))
	}
	wantPreflop := []int{1, 2, 1, 4}
	assertInts(t, "preflop after SB call/BB bet", snap[0], wantPreflop)

	// SB raises to 10, BB calls.
	mustUpdate(t, tr, 10, 10, Preflop)
	snap = tr.Snapshot()
	assertInts(t, "preflop after SB raise/BB call", snap[0], []int{1, 2, 1, 4, 8, 4})

	// BB checks the flop (reported before SB's own action).
	mustUpdate(t, tr, 10, 10, Flop)
	snap = tr.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected flop street opened, got %d streets", len(snap))
	}
	if snap[1][0] != 0 {
		t.Fatalf("expected BB's flop check recorded as 0, got %v", snap[1])
	}

	// SB bets 7, BB raises to 13.
	mustUpdate(t, tr, 17, 23, Flop)
	snap = tr.Snapshot()
	assertInts(t, "flop after bet/raise", snap[1], []int{0, 7, 13})

	// SB calls the flop raise, BB bets 20 on the turn.
	mustUpdate(t, tr, 23, 43, Turn)
	snap = tr.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected turn street opened, got %d streets", len(snap))
	}
	assertInts(t, "flop after implicit call back-patch", snap[1], []int{0, 7, 13, 6})
	if snap[2][0] != 20 {
		t.Fatalf("expected BB's turn bet recorded as 20, got %v", snap[2])
	}

	// SB raises, BB raises back.
	mustUpdate(t, tr, 50, 60, Turn)
	snap = tr.Snapshot()
	assertInts(t, "turn after raise/raise", snap[2], []int{20, 27, 17})

	// SB calls the turn, river: BB checks, then SB checks.
	mustUpdate(t, tr, 60, 60, River)
	mustUpdate(t, tr, 60, 60, River)
	snap = tr.Snapshot()
	if len(snap) != 4 {
		t.Fatalf("expected river street opened, got %d streets", len(snap))
	}
	assertInts(t, "river double check", snap[3], []int{0, 0})
}

// TestBigBlindSequence ports testUpdateBb: mirrors the same hand from the
// big blind's point of view, where the tracker observes the opponent's
// action first on every postflop street.
func TestBigBlindSequence(t *testing.T) {
	t.Parallel()
	tr := New(true)
	snap := tr.Snapshot()
	if snap[0][0] != 1 || snap[0][1] != 2 {
		t.Fatalf("expected blinds seeded, got %v", snap)
	}

	// SB calls, ending preflop.
	mustUpdate(t, tr, 2, 2, Flop)
	snap = tr.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected flop opened, got %d streets", len(snap))
	}
	assertInts(t, "preflop after SB call", snap[0], []int{1, 2, 1})

	// Flop: BB bets, SB raises.
	mustUpdate(t, tr, 10, 20, Flop)
	snap = tr.Snapshot()
	assertInts(t, "flop after BB bet/SB raise", snap[1], []int{8, 18})

	// BB calls, ending the flop; reported before BB's first turn action.
	mustUpdate(t, tr, 20, 20, Turn)
	snap = tr.Snapshot()
	if snap[1][2] != 10 {
		t.Fatalf("expected BB's implicit flop call recovered as 10, got %v", snap[1])
	}

	// Turn: BB checks, SB checks.
	mustUpdate(t, tr, 20, 20, Turn)
	snap = tr.Snapshot()
	assertInts(t, "turn double check", snap[2], []int{0, 0})
}

func mustUpdate(t *testing.T, tr *Tracker, my, opp int, street Street) {
	t.Helper()
	if err := tr.Update(my, opp, street); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func assertInts(t *testing.T, label string, got, want []int) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: expected %v, got %v", label, want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%s: expected %v, got %v", label, want, got)
		}
	}
}
