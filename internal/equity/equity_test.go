package equity

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/lox/rankshift/internal/cards"
)

func h(strs ...string) cards.Hand {
	hand := cards.Hand(0)
	for _, s := range strs {
		hand.Add(cards.MustParse(s))
	}
	return hand
}

func TestEstimateAgainstSpecificVillain(t *testing.T) {
	t.Parallel()
	q := Query{
		Hero:    h("As", "Ah"),
		Villain: h("Ks", "Kh"),
	}
	rng := rand.New(rand.NewPCG(1, 1))
	eq := Estimate(context.Background(), q, 2000, rng)
	if eq < 0.75 {
		t.Fatalf("expected pocket aces to dominate pocket kings, got %v", eq)
	}
}

func TestEstimateRandomVillainIsValidProbability(t *testing.T) {
	t.Parallel()
	q := Query{Hero: h("7s", "2d")}
	rng := rand.New(rand.NewPCG(2, 2))
	eq := Estimate(context.Background(), q, 4000, rng)
	if eq <= 0 || eq >= 1 {
		t.Fatalf("expected a valid equity in (0,1), got %v", eq)
	}
}

func TestEstimateSingleSampleDeterministic(t *testing.T) {
	t.Parallel()
	q := Query{Hero: h("As", "Ks"), Board: h("2h", "3c", "4d")}
	rng1 := rand.New(rand.NewPCG(42, 42))
	rng2 := rand.New(rand.NewPCG(42, 42))
	a := Estimate(context.Background(), q, 1, rng1)
	b := Estimate(context.Background(), q, 1, rng2)
	if a != b {
		t.Fatalf("expected deterministic single-sample results, got %v vs %v", a, b)
	}
}

func TestEstimateRejectsBadHero(t *testing.T) {
	t.Parallel()
	q := Query{Hero: h("As")}
	if got := Estimate(context.Background(), q, 10, rand.New(rand.NewPCG(1, 1))); got != -1 {
		t.Fatalf("expected -1 for malformed hero hand, got %v", got)
	}
}
