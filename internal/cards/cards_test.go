package cards

import (
	"math/rand/v2"
	"testing"
)

func TestNewAndParse(t *testing.T) {
	t.Parallel()
	ace := New(Ace, Spade)
	if ace.Rank() != Ace || ace.Suit() != Spade {
		t.Fatalf("rank/suit round trip failed: %s", ace)
	}
	if ace.String() != "As" {
		t.Fatalf("expected As, got %s", ace)
	}

	c, err := Parse("Th")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Rank() != Ten || c.Suit() != Heart {
		t.Fatalf("unexpected parse result: %s", c)
	}
}

func TestParseInvalid(t *testing.T) {
	t.Parallel()
	for _, s := range []string{"", "A", "Ax", "Zs", "Ahh"} {
		if _, err := Parse(s); err == nil {
			t.Fatalf("expected error parsing %q", s)
		}
	}
}

func TestHandCountAndMasks(t *testing.T) {
	t.Parallel()
	h := NewHand(MustParse("2s"), MustParse("As"), MustParse("2h"))
	if h.CountCards() != 3 {
		t.Fatalf("expected 3 cards, got %d", h.CountCards())
	}
	if h.GetSuitMask(Spade) != (1<<0)|(1<<12) {
		t.Fatalf("unexpected spade mask %012b", h.GetSuitMask(Spade))
	}
	if !h.Has(MustParse("2h")) {
		t.Fatalf("expected hand to contain 2h")
	}
}

func TestHandGetCardOrdering(t *testing.T) {
	t.Parallel()
	h := NewHand(MustParse("As"), MustParse("2c"), MustParse("Kd"))
	seen := map[Card]bool{}
	for i := 0; i < h.CountCards(); i++ {
		seen[h.GetCard(i)] = true
	}
	if len(seen) != 3 {
		t.Fatalf("expected 3 distinct cards from GetCard, got %d", len(seen))
	}
	want := []Card{MustParse("As"), MustParse("2c"), MustParse("Kd")}
	for i, c := range want {
		if got := h.GetCard(i); got != c {
			t.Fatalf("expected GetCard(%d) to be %v in ascending bit order, got %v", i, c, got)
		}
	}
}

func TestDeckDealsUniqueCards(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(1, 2))
	d := NewDeck(rng)
	seen := make(map[Card]bool, 52)
	for d.Remaining() > 0 {
		c := d.DealOne()
		if seen[c] {
			t.Fatalf("card %s dealt twice", c)
		}
		seen[c] = true
	}
	if len(seen) != 52 {
		t.Fatalf("expected 52 unique cards, got %d", len(seen))
	}
}

func TestDeckDealExhaustion(t *testing.T) {
	t.Parallel()
	d := NewDeck(rand.New(rand.NewPCG(1, 1)))
	if got := d.Deal(53); got != nil {
		t.Fatalf("expected nil dealing beyond deck size, got %v", got)
	}
}
