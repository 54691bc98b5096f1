// Package permfilter implements the Permutation Particle Filter: a
// Metropolis-Hastings particle population that infers, purely from
// showdown outcomes observed during play, which secret bijection over the
// thirteen rank labels the dealer applied for this game.
//
// Every random draw routes through the caller's seeded math/rand/v2
// generator, and internal/handeval supplies the hard constraint check. The
// MCMC structure follows standard particle-filter practice: propose,
// reject proposals that violate a hard constraint, accept surviving
// proposals by a Metropolis-Hastings ratio over the prior alone.
package permfilter

import (
	"math/rand/v2"

	"github.com/lox/rankshift/internal/cards"
)

// Permutation maps an observed (labelled) rank to the true rank the dealer
// actually assigned it for this game. Permutation[label] = trueRank.
type Permutation [13]cards.Rank

// geomP is the success probability of the geometric draw the dealer's
// shuffling procedure uses at each queue pop. The analytic prior truncates
// the wrap-around sum over that geometric at geomTruncation terms.
const (
	geomP          = 0.25
	geomTruncation = 5
)

// Identity is the no-op permutation: labels mean what they say.
func Identity() Permutation {
	var p Permutation
	for r := cards.Rank(0); r < 13; r++ {
		p[r] = r
	}
	return p
}

// Random returns a uniformly random permutation of the 13 ranks.
func Random(rng *rand.Rand) Permutation {
	p := Identity()
	for i := 12; i > 0; i-- {
		j := rng.IntN(i + 1)
		p[i], p[j] = p[j], p[i]
	}
	return p
}

// SamplePrior draws one permutation from the dealer's generative process:
// starting from the ordered rank queue [0..12], each label in turn takes
// the queue element at offset s mod r, where s is geometric with success
// probability geomP and r is how many ranks remain.
func SamplePrior(rng *rand.Rand) Permutation {
	queue := make([]cards.Rank, 13)
	for r := cards.Rank(0); r < 13; r++ {
		queue[r] = r
	}

	var p Permutation
	for label := 0; label < 13; label++ {
		s := 0
		for rng.Float64() >= geomP {
			s++
		}
		idx := s % len(queue)
		p[label] = queue[idx]
		queue = append(queue[:idx], queue[idx+1:]...)
	}
	return p
}

// ComputePrior returns the probability (up to the geometric truncation) that
// SamplePrior produces p: for each label in order it locates p[label] at
// index s of the remaining queue and sums the mass of every geometric draw
// that lands there, s + k*r for k in [0, geomTruncation).
func ComputePrior(p Permutation) float64 {
	queue := make([]cards.Rank, 13)
	for r := cards.Rank(0); r < 13; r++ {
		queue[r] = r
	}

	prior := 1.0
	for label := 0; label < 13; label++ {
		r := len(queue)
		s := -1
		for i, v := range queue {
			if v == p[label] {
				s = i
				break
			}
		}
		if s < 0 {
			return 0 // not a permutation
		}

		term := 0.0
		weight := geomP * pow75(s)
		wrap := pow75(r)
		for k := 0; k < geomTruncation; k++ {
			term += weight
			weight *= wrap
		}
		prior *= term

		queue = append(queue[:s], queue[s+1:]...)
	}
	return prior
}

// pow75 returns (1-geomP)^n without going through math.Pow in what is the
// innermost arithmetic of every MH acceptance test.
func pow75(n int) float64 {
	out := 1.0
	for ; n > 0; n-- {
		out *= 1 - geomP
	}
	return out
}

// Valid reports whether p is a true permutation: 13 distinct values, each
// in 0..12.
func (p Permutation) Valid() bool {
	var seen [13]bool
	for _, v := range p {
		if v > 12 || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

// Remap rebuilds h with every card's rank replaced by perm's true rank for
// its observed label, preserving suit.
func Remap(perm Permutation, h cards.Hand) cards.Hand {
	var out cards.Hand
	for _, c := range h.Cards() {
		out.Add(cards.New(perm[c.Rank()], c.Suit()))
	}
	return out
}

// swap returns a copy of p with the true ranks assigned to labels a and b
// exchanged.
func (p Permutation) swap(a, b cards.Rank) Permutation {
	next := p
	next[a], next[b] = next[b], next[a]
	return next
}
