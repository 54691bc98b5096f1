package engine

import (
	"math/rand/v2"
	"testing"
)

func newTestRound(sb int) RoundState {
	return NewRound(sb, rand.New(rand.NewPCG(7, 7)))
}

func TestNewRoundPostsBlinds(t *testing.T) {
	t.Parallel()
	s := newTestRound(0)
	if s.Pips[0] != SmallBlind || s.Pips[1] != BigBlind {
		t.Fatalf("expected blinds %d/%d, got %v", SmallBlind, BigBlind, s.Pips)
	}
	if s.Stacks[0] != StartingStack-SmallBlind || s.Stacks[1] != StartingStack-BigBlind {
		t.Fatalf("unexpected starting stacks: %v", s.Stacks)
	}
	if s.ActivePlayer != 0 {
		t.Fatalf("expected button (SB) to act first preflop, got %d", s.ActivePlayer)
	}
	if len(s.History) != 1 || s.History[0][0] != SmallBlind || s.History[0][1] != BigBlind {
		t.Fatalf("expected first history entry to be the forced blinds, got %v", s.History)
	}
}

func TestLegalActionsPreflopFacingBigBlind(t *testing.T) {
	t.Parallel()
	s := newTestRound(0)
	mask := LegalActions(s)
	if !mask.Allows(Fold) || !mask.Allows(Call) || !mask.Allows(Raise) {
		t.Fatalf("expected fold/call/raise to be legal facing the BB, got %03b", mask)
	}
	if mask.Allows(Check) {
		t.Fatalf("check should not be legal while a cost to continue is outstanding")
	}
}

func TestBigBlindGetsOptionAfterLimp(t *testing.T) {
	t.Parallel()
	s := newTestRound(0)
	s, err := Proceed(s, Call, 0)
	if err != nil {
		t.Fatalf("unexpected error on SB limp: %v", err)
	}
	if s.Terminal {
		t.Fatalf("street should not be complete until the BB has acted")
	}
	if s.ActivePlayer != 1 {
		t.Fatalf("expected BB to act after the limp, got %d", s.ActivePlayer)
	}
	mask := LegalActions(s)
	if !mask.Allows(Check) || !mask.Allows(Raise) {
		t.Fatalf("expected BB's option to include check/raise, got %03b", mask)
	}
}

func TestCheckCheckAdvancesStreet(t *testing.T) {
	t.Parallel()
	s := newTestRound(0)
	s, _ = Proceed(s, Call, 0) // SB limps
	s, _ = Proceed(s, Check, 0) // BB checks option
	if s.Street != Flop {
		t.Fatalf("expected flop after check-check, got %s", s.Street)
	}
	if s.Pips != [2]int{0, 0} {
		t.Fatalf("expected pips reset on new street, got %v", s.Pips)
	}
	if s.ActivePlayer != 1 {
		t.Fatalf("expected BB (non-button) to act first postflop, got %d", s.ActivePlayer)
	}
}

func TestFoldEndsHandWithCorrectDeltas(t *testing.T) {
	t.Parallel()
	s := newTestRound(0)
	s, err := Proceed(s, Fold, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Terminal {
		t.Fatalf("expected terminal state after fold")
	}
	if s.Deltas[0] != -SmallBlind || s.Deltas[1] != SmallBlind {
		t.Fatalf("expected folder to lose exactly their contribution, got %v", s.Deltas)
	}
}

func TestRaiseBoundsRespectStackCaps(t *testing.T) {
	t.Parallel()
	s := newTestRound(0)
	min, max := RaiseBounds(s)
	if min < BigBlind*2 {
		t.Fatalf("expected a min-raise of at least two big blinds preflop, got %d", min)
	}
	if max != s.Pips[0]+minInt(s.Stacks[0], s.Stacks[1]+ (s.Pips[1]-s.Pips[0])) {
		t.Fatalf("unexpected max raise bound: %d", max)
	}
}

func TestRaiseIllegalAmountIsRejected(t *testing.T) {
	t.Parallel()
	s := newTestRound(0)
	min, _ := RaiseBounds(s)
	if _, err := Proceed(s, Raise, min-1); err == nil {
		t.Fatalf("expected an error for a below-minimum raise")
	}
}

func TestAllInRunsBoardOutToShowdown(t *testing.T) {
	t.Parallel()
	s := newTestRound(0)
	_, max := RaiseBounds(s)
	s, err := Proceed(s, Raise, max)
	if err != nil {
		t.Fatalf("unexpected error shoving: %v", err)
	}
	s, err = Proceed(s, Call, 0)
	if err != nil {
		t.Fatalf("unexpected error calling the shove: %v", err)
	}
	s = AdvanceToNextDecision(s)
	if !s.Terminal {
		t.Fatalf("expected an all-in hand to resolve straight to showdown")
	}
	if s.Deltas[0]+s.Deltas[1] != 0 {
		t.Fatalf("expected zero-sum payoff, got %v", s.Deltas)
	}
}

func TestChipConservationInvariant(t *testing.T) {
	t.Parallel()
	s := newTestRound(1)
	s, _ = Proceed(s, Call, 0)
	s, _ = Proceed(s, Check, 0)
	total := s.Stacks[0] + s.Stacks[1] + s.Pips[0] + s.Pips[1]
	// Pips reset when a street closes, so chips committed on earlier streets
	// are counted from History.
	for _, street := range s.History[:len(s.History)-1] {
		for _, d := range street {
			total += d
		}
	}
	if total != 2*StartingStack {
		t.Fatalf("expected chip conservation, got total %d", total)
	}
}

func TestCloneDoesNotAliasHistoryAcrossSiblings(t *testing.T) {
	t.Parallel()
	s := newTestRound(0)
	a, _ := Proceed(s, Call, 0)
	b, _ := Proceed(s, Fold, 0)
	if len(a.History) == 0 || len(b.History) == 0 {
		t.Fatalf("expected both sibling states to retain history")
	}
	a.History[0][0] = 999
	if b.History[0][0] == 999 {
		t.Fatalf("sibling states must not alias the same history backing array")
	}
}

// Preflop raising chain: SB limps, BB raises to 4, SB re-raises to 8, BB
// calls. The street advances only on the closing call, the action passes
// back and forth each step, and the recorded deltas account for every chip
// committed.
func TestPreflopRaiseChain(t *testing.T) {
	t.Parallel()
	s := newTestRound(0)

	s, err := Proceed(s, Call, 0)
	if err != nil {
		t.Fatalf("SB limp: %v", err)
	}
	if s.Street != Preflop || s.ActivePlayer != 1 {
		t.Fatalf("expected BB to act on the preflop option, got street %s active %d", s.Street, s.ActivePlayer)
	}

	s, err = Proceed(s, Raise, 4)
	if err != nil {
		t.Fatalf("BB raise to 4: %v", err)
	}
	if s.ActivePlayer != 0 {
		t.Fatalf("expected action back on the SB after the raise, got %d", s.ActivePlayer)
	}

	s, err = Proceed(s, Raise, 8)
	if err != nil {
		t.Fatalf("SB re-raise to 8: %v", err)
	}
	if s.Street != Preflop {
		t.Fatalf("street must not advance while a raise is unanswered")
	}

	s, err = Proceed(s, Call, 0)
	if err != nil {
		t.Fatalf("BB closing call: %v", err)
	}
	if s.Street != Flop {
		t.Fatalf("expected the closing call to advance to the flop, got %s", s.Street)
	}

	want := []int{1, 2, 1, 2, 6, 4}
	if len(s.History[0]) != len(want) {
		t.Fatalf("preflop history %v, want %v", s.History[0], want)
	}
	for i, d := range want {
		if s.History[0][i] != d {
			t.Fatalf("preflop history %v, want %v", s.History[0], want)
		}
	}
	committed := 0
	for _, street := range s.History {
		for _, d := range street {
			committed += d
		}
	}
	if committed != 2*StartingStack-s.Stacks[0]-s.Stacks[1] {
		t.Fatalf("history sum %d disagrees with chips committed %d", committed, 2*StartingStack-s.Stacks[0]-s.Stacks[1])
	}
}
