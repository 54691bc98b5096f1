package handeval

import (
	"testing"

	"github.com/lox/rankshift/internal/cards"
)

func hand(strs ...string) cards.Hand {
	h := cards.Hand(0)
	for _, s := range strs {
		h.Add(cards.MustParse(s))
	}
	return h
}

func TestEvaluate7TypeOrdering(t *testing.T) {
	t.Parallel()
	straightFlush := Evaluate7(hand("2s", "3s", "4s", "5s", "6s", "Kh", "Qd"))
	if straightFlush.Type() != StraightFlush {
		t.Fatalf("expected straight flush, got %s", straightFlush)
	}

	quads := Evaluate7(hand("2s", "2h", "2c", "2d", "6s", "Kh", "Qd"))
	if quads.Type() != FourOfAKind {
		t.Fatalf("expected four of a kind, got %s", quads)
	}

	if Compare(straightFlush, quads) != 1 {
		t.Fatalf("straight flush should beat four of a kind")
	}
}

func TestEvaluate7WheelStraight(t *testing.T) {
	t.Parallel()
	wheel := Evaluate7(hand("As", "2h", "3c", "4d", "5s", "Kh", "Qd"))
	if wheel.Type() != Straight {
		t.Fatalf("expected straight (wheel), got %s", wheel)
	}
}

func TestEvaluate7TieIsEqual(t *testing.T) {
	t.Parallel()
	board := []string{"2c", "5d", "9h", "Jc", "Kd"}
	a := Evaluate7(hand(append([]string{"As", "Qs"}, board...)...))
	b := Evaluate7(hand(append([]string{"Ah", "Qh"}, board...)...))
	if Compare(a, b) != 0 {
		t.Fatalf("expected tie between identical-rank hole cards, got a=%v b=%v", a, b)
	}
}

func TestEvaluate7RequiresSevenCards(t *testing.T) {
	t.Parallel()
	if s := Evaluate7(hand("As", "Ks")); s != 0 {
		t.Fatalf("expected zero score for short hand, got %v", s)
	}
}
