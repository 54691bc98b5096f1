// Package equity implements the Equity oracle the core consumes as an
// opaque collaborator: Monte-Carlo equity of one hand against a specific
// villain hand or against a random remaining holding.
//
// A parallel Monte-Carlo sampler built on golang.org/x/sync/errgroup with a
// sync.Pool of scratch card slices to avoid per-sample allocation.
package equity

import (
	"context"
	"math/rand/v2"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/lox/rankshift/internal/cards"
	"github.com/lox/rankshift/internal/handeval"
	"github.com/lox/rankshift/internal/randutil"
)

// Query describes one equity computation: Hero's two hole cards against
// either a specific Villain holding (two cards) or a random remaining hand
// (Villain == 0), given a partial Board (0, 3, 4, or 5 cards) and any Dead
// cards that must be excluded from the remaining deck.
type Query struct {
	Hero    cards.Hand
	Villain cards.Hand
	Board   cards.Hand
	Dead    cards.Hand
}

var scratchPool = sync.Pool{
	New: func() any {
		s := make([]cards.Card, 0, 52)
		return &s
	},
}

// parallelThreshold is the sample count above which splitting work across
// goroutines outweighs the coordination overhead.
const parallelThreshold = 500

// Estimate computes q's equity via iters Monte-Carlo trials. iters == 1
// requests a single deterministic sample (driven entirely by rng), suitable
// for the particle filter's showdown constraint checks where reproducible
// single-draw behaviour matters more than precision.
func Estimate(ctx context.Context, q Query, iters int, rng *rand.Rand) float32 {
	if q.Hero.CountCards() != 2 {
		return -1
	}
	if iters <= 0 {
		iters = 1
	}

	remaining := remainingDeck(q)
	if len(remaining) < neededDraws(q) {
		return -1
	}

	if iters == 1 || iters < parallelThreshold {
		wins, ties, valid := runTrials(q, remaining, iters, rng)
		return settle(wins, ties, valid)
	}

	return estimateParallel(ctx, q, remaining, iters, rng)
}

func estimateParallel(ctx context.Context, q Query, remaining []cards.Card, iters int, rng *rand.Rand) float32 {
	workers := runtime.GOMAXPROCS(0)
	if workers > iters {
		workers = iters
	}
	if workers < 1 {
		workers = 1
	}

	perWorker := iters / workers
	extra := iters % workers

	results := make([]struct{ wins, ties, valid int }, workers)
	g, _ := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		w := w
		n := perWorker
		if w < extra {
			n++
		}
		workerRNG := randutil.Derive(rng)
		g.Go(func() error {
			wins, ties, valid := runTrials(q, remaining, n, workerRNG)
			results[w] = struct{ wins, ties, valid int }{wins, ties, valid}
			return nil
		})
	}
	_ = g.Wait()

	var wins, ties, valid int
	for _, r := range results {
		wins += r.wins
		ties += r.ties
		valid += r.valid
	}
	return settle(wins, ties, valid)
}

func runTrials(q Query, remaining []cards.Card, n int, rng *rand.Rand) (wins, ties, valid int) {
	scratchPtr := scratchPool.Get().(*[]cards.Card)
	scratch := (*scratchPtr)[:0]
	defer func() {
		*scratchPtr = scratch
		scratchPool.Put(scratchPtr)
	}()

	boardNeeded := 5 - q.Board.CountCards()
	villainKnown := q.Villain.CountCards() == 2

	for t := 0; t < n; t++ {
		scratch = scratch[:0]
		scratch = append(scratch, remaining...)
		shuffleTopN(scratch, boardNeeded+boolToInt(!villainKnown)*2, rng)

		drawn := scratch[:boardNeeded]
		board := q.Board
		for _, c := range drawn {
			board.Add(c)
		}

		villain := q.Villain
		if !villainKnown {
			villain = cards.NewHand(scratch[boardNeeded], scratch[boardNeeded+1])
		}

		heroScore := handeval.Evaluate7(q.Hero | board)
		villainScore := handeval.Evaluate7(villain | board)

		switch handeval.Compare(heroScore, villainScore) {
		case 1:
			wins++
		case 0:
			ties++
		}
		valid++
	}
	return wins, ties, valid
}

// shuffleTopN performs a partial Fisher-Yates shuffle so that only the first
// n elements of s need randomising to produce n uniformly-sampled draws
// without replacement.
func shuffleTopN(s []cards.Card, n int, rng *rand.Rand) {
	if n > len(s) {
		n = len(s)
	}
	for i := 0; i < n; i++ {
		j := i + rng.IntN(len(s)-i)
		s[i], s[j] = s[j], s[i]
	}
}

func remainingDeck(q Query) []cards.Card {
	used := q.Hero | q.Board | q.Dead
	if q.Villain != 0 {
		used |= q.Villain
	}
	out := make([]cards.Card, 0, 52)
	for s := cards.Suit(0); s < 4; s++ {
		for r := cards.Rank(0); r < 13; r++ {
			c := cards.New(r, s)
			if !used.Has(c) {
				out = append(out, c)
			}
		}
	}
	return out
}

func neededDraws(q Query) int {
	n := 5 - q.Board.CountCards()
	if q.Villain == 0 {
		n += 2
	}
	return n
}

func settle(wins, ties, valid int) float32 {
	if valid == 0 {
		return -1
	}
	return (float32(wins) + 0.5*float32(ties)) / float32(valid)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
