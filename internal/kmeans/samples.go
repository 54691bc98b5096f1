package kmeans

import (
	"context"
	"math/rand/v2"

	"github.com/lox/rankshift/internal/cards"
	"github.com/lox/rankshift/internal/equity"
)

// equityItersPerDim is the Monte-Carlo sample count for each of the 8
// archetype-vs-hero equity estimates; offline sample generation can afford
// far more precision than the online per-action clock budget.
const equityItersPerDim = 300

// StrengthVector computes hero's strength vector against board: equity of
// hero vs. each of the 8 cluster archetype holes, skipping (leaving at
// zero) any archetype that shares a card with hero or board, since that
// combination is impossible given what's already dealt.
func StrengthVector(ctx context.Context, hero, board cards.Hand, archetypes [VectorDims]cards.Hand, rng *rand.Rand) Vector {
	var v Vector
	blocked := hero | board
	for i, villain := range archetypes {
		if villain&blocked != 0 {
			continue
		}
		q := equity.Query{Hero: hero, Villain: villain, Board: board}
		e := equity.Estimate(ctx, q, equityItersPerDim, rng)
		if e >= 0 {
			v[i] = float64(e)
		}
	}
	return v
}

// GenerateSamples deals n random rounds and computes one strength vector per
// street of each deal (preflop, flop, turn, river: 4n vectors in all), the
// raw material Lloyd clusters into opponent-strength centroids.
func GenerateSamples(ctx context.Context, n int, archetypes [VectorDims]cards.Hand, rng *rand.Rand) []Vector {
	out := make([]Vector, 0, 4*n)
	for i := 0; i < n; i++ {
		deck := cards.NewDeck(rng)
		hero := cards.NewHand(deck.Deal(2)...)
		board := deck.Deal(5)
		for _, visible := range []int{0, 3, 4, 5} {
			out = append(out, StrengthVector(ctx, hero, cards.NewHand(board[:visible]...), archetypes, rng))
		}
	}
	return out
}
