package permfilter

import (
	"context"
	"math/rand/v2"

	"github.com/lox/rankshift/internal/cards"
	"github.com/lox/rankshift/internal/equity"
	"github.com/lox/rankshift/internal/handeval"
	"github.com/lox/rankshift/internal/kmeans"
	"github.com/lox/rankshift/internal/preflop"
)

// DefaultNumParticles is the default particle population size.
const DefaultNumParticles = 25000

// kInvalidTries bounds the repair proposals spent on a particle a new
// showdown invalidated before its slot is declared dead; kValidTries bounds
// the diversify proposals a still-consistent particle contributes toward
// resurrecting dead slots.
const (
	kInvalidTries = 50
	kValidTries   = 5
)

// Observation is one revealed showdown: the winner's and loser's labelled
// hole cards plus the labelled board. The constraint it imposes on a
// candidate permutation is that the winner's remapped seven-card score is
// at least the loser's (the actual winner may have won outright or tied).
type Observation struct {
	Winner, Loser, Board cards.Hand
}

// Satisfies reports whether perm is consistent with obs: substituting
// perm's true ranks into both hands, the winner must score >= the loser.
func Satisfies(perm Permutation, obs Observation) bool {
	winner := handeval.Evaluate7(Remap(perm, obs.Winner|obs.Board))
	loser := handeval.Evaluate7(Remap(perm, obs.Loser|obs.Board))
	return winner >= loser
}

// SatisfiesAll reports whether perm is consistent with every observation.
func SatisfiesAll(perm Permutation, obs []Observation) bool {
	for _, o := range obs {
		if !Satisfies(perm, o) {
			return false
		}
	}
	return true
}

// Filter is the particle population tracking the posterior over
// Permutation given every showdown observed so far this game. A slot is
// either live (weight 1) or dead (weight 0); dead slots are recycled
// through a LIFO stack so one observation can kill some slots and
// resurrect others in the same pass without index aliasing.
type Filter struct {
	particles []Permutation
	live      []bool
	results   []Observation
	deadIdx   []int
	rng       *rand.Rand

	preflopTable preflop.Table
}

// New seeds a fresh population of numParticles particles drawn from the
// dealer prior.
func New(numParticles int, rng *rand.Rand) *Filter {
	f := &Filter{
		particles: make([]Permutation, numParticles),
		live:      make([]bool, numParticles),
		rng:       rng,
	}
	for i := range f.particles {
		f.particles[i] = SamplePrior(rng)
		f.live[i] = true
	}
	return f
}

// SetPreflopTable installs the pre-computed heads-up preflop equity lookup
// ComputeEVRandom consults for empty-board queries instead of running a
// Monte-Carlo sample per particle.
func (f *Filter) SetPreflopTable(t preflop.Table) {
	f.preflopTable = t
}

// NumParticles reports the population size, live or dead.
func (f *Filter) NumParticles() int {
	return len(f.particles)
}

// NonZero reports how many particles are currently live. Zero means the
// filter has collapsed and the player should fall back to check/fold.
func (f *Filter) NonZero() int {
	n := 0
	for _, alive := range f.live {
		if alive {
			n++
		}
	}
	return n
}

// Unique reports how many distinct permutations the live population
// represents; Unique()==1 means the filter has converged, after which
// equity queries may collapse to a single deterministic sample.
func (f *Filter) Unique() int {
	seen := make(map[Permutation]struct{}, 64)
	for i, p := range f.particles {
		if f.live[i] {
			seen[p] = struct{}{}
		}
	}
	return len(seen)
}

// Results returns the showdown observations folded in so far.
func (f *Filter) Results() []Observation {
	return f.results
}

// Observe folds one revealed showdown into the population. Slots are
// visited in index order: a slot the new constraint invalidates gets up to
// kInvalidTries repair proposals and dies if none is accepted; a slot that
// already satisfies the constraint spends up to kValidTries diversify
// proposals, each accepted one resurrecting the most recently killed dead
// slot. Acceptance everywhere is Metropolis-Hastings over the dealer
// prior (the proposal kernels are symmetric transposition swaps, so no
// Hastings correction applies) plus consistency with the full observation
// history, not just the newest result.
func (f *Filter) Observe(obs Observation) {
	f.results = append(f.results, obs)

	wasLive := make([]bool, len(f.live))
	copy(wasLive, f.live)

	for i := range f.particles {
		if !wasLive[i] {
			continue
		}
		p := f.particles[i]

		if !Satisfies(p, obs) {
			repaired := false
			for t := 0; t < kInvalidTries; t++ {
				q := f.SampleMCMCInvalid(p, obs)
				if f.accept(p, q) {
					f.particles[i] = q
					repaired = true
					break
				}
			}
			if !repaired {
				f.live[i] = false
				f.deadIdx = append(f.deadIdx, i)
			}
			continue
		}

		for t := 0; t < kValidTries && len(f.deadIdx) > 0; t++ {
			q := f.SampleMCMCValid(p, obs)
			if !f.accept(p, q) {
				continue
			}
			top := len(f.deadIdx) - 1
			slot := f.deadIdx[top]
			f.deadIdx = f.deadIdx[:top]
			f.particles[slot] = q
			f.live[slot] = true
		}
	}
}

// accept applies the MH rule: accept q over cur with probability
// min(1, prior(q)/prior(cur)), and even then only if q is consistent with
// every observation recorded so far.
func (f *Filter) accept(cur, q Permutation) bool {
	ratio := ComputePrior(q) / ComputePrior(cur)
	if ratio < 1 && f.rng.Float64() >= ratio {
		return false
	}
	return SatisfiesAll(q, f.results)
}

// SampleMCMCInvalid proposes a repair for a particle obs invalidated: pick
// the winner's or loser's hand with equal probability, pick a rank inside
// it, and swap its true-rank assignment with a rank drawn from the ranks
// outside the showdown plus that same hand. Restricting one end of the
// swap to the violated hand is what gives the proposal a real chance of
// flipping the constraint.
func (f *Filter) SampleMCMCInvalid(p Permutation, obs Observation) Permutation {
	hand := obs.Winner
	if f.rng.IntN(2) == 1 {
		hand = obs.Loser
	}
	handRanks := ranksOf(hand)
	pool := append(otherRanks(obs), handRanks...)

	vi := handRanks[f.rng.IntN(len(handRanks))]
	vj := pool[f.rng.IntN(len(pool))]
	return p.swap(vi, vj)
}

// SampleMCMCValid proposes a diversification that cannot invalidate obs:
// swap two true-rank assignments within the winner's hand, within the
// loser's hand, within the board, or among the ranks absent from the
// showdown, chosen in proportion to how many of the thirteen ranks each
// group covers (2, 2, 5, and the remainder). Intra-group swaps permute
// true ranks among labels revealed together, which preserves the showdown
// outcome; acceptance still re-checks the full observation history.
func (f *Filter) SampleMCMCValid(p Permutation, obs Observation) Permutation {
	var group []cards.Rank
	switch u := f.rng.IntN(13); {
	case u < 2:
		group = ranksOf(obs.Winner)
	case u < 4:
		group = ranksOf(obs.Loser)
	case u < 9:
		group = ranksOf(obs.Board)
	default:
		group = otherRanks(obs)
	}
	if len(group) < 2 {
		return p
	}
	vi := group[f.rng.IntN(len(group))]
	vj := group[f.rng.IntN(len(group))]
	return p.swap(vi, vj)
}

// ranksOf lists the rank label of every card in h, duplicates included, so
// a paired hand still yields one entry per card.
func ranksOf(h cards.Hand) []cards.Rank {
	cs := h.Cards()
	out := make([]cards.Rank, len(cs))
	for i, c := range cs {
		out[i] = c.Rank()
	}
	return out
}

// otherRanks lists the distinct ranks that appear nowhere in obs.
func otherRanks(obs Observation) []cards.Rank {
	var present [13]bool
	for _, c := range (obs.Winner | obs.Loser | obs.Board).Cards() {
		present[c.Rank()] = true
	}
	out := make([]cards.Rank, 0, 13)
	for r := cards.Rank(0); r < 13; r++ {
		if !present[r] {
			out = append(out, r)
		}
	}
	return out
}

// liveIndices returns the slots currently holding live particles.
func (f *Filter) liveIndices() []int {
	out := make([]int, 0, len(f.particles))
	for i, alive := range f.live {
		if alive {
			out = append(out, i)
		}
	}
	return out
}

// MAP returns the most frequently represented live permutation: the
// filter's point estimate of the dealer's true mapping.
func (f *Filter) MAP() Permutation {
	counts := make(map[Permutation]int, 64)
	best := Identity()
	bestCount := -1
	for i, p := range f.particles {
		if !f.live[i] {
			continue
		}
		counts[p]++
		if counts[p] > bestCount {
			bestCount = counts[p]
			best = p
		}
	}
	return best
}

// ComputeEVRandom estimates hero's equity against a random villain holding,
// marginalised over the particle population. Scanning all ~25,000 particles
// on every decision is far more Monte Carlo work than the per-action clock
// budget allows, so ComputeEVRandom instead draws nsamples particle indices
// uniformly at random, with replacement, from the live set and averages
// their per-particle equities unweighted: live particles all carry weight
// one, so a uniform draw over them is an unbiased draw from the posterior.
// When the filter has converged (Unique()==1) every live particle agrees,
// so the caller should pass nsamples=1. Returns -1 when the filter has
// collapsed or no particle produced a usable estimate.
func ComputeEVRandom(ctx context.Context, f *Filter, hero, board, dead cards.Hand, nsamples, itersPerParticle int, rng *rand.Rand) float32 {
	living := f.liveIndices()
	if len(living) == 0 {
		return -1
	}
	if nsamples <= 0 {
		nsamples = 1
	}
	if nsamples > len(living) {
		nsamples = len(living)
	}

	preflopQuery := board.CountCards() == 0 && f.preflopTable != nil

	var sum float64
	var n int
	for i := 0; i < nsamples; i++ {
		idx := living[rng.IntN(len(living))]
		perm := f.particles[idx]
		remappedHero := Remap(perm, hero)

		if preflopQuery {
			if ev, ok := f.preflopTable.Lookup(remappedHero); ok {
				sum += float64(ev)
				n++
				continue
			}
		}

		q := equity.Query{Hero: remappedHero, Board: Remap(perm, board), Dead: Remap(perm, dead)}
		e := equity.Estimate(ctx, q, itersPerParticle, rng)
		if e < 0 {
			continue
		}
		sum += float64(e)
		n++
	}
	if n == 0 {
		return -1
	}
	return float32(sum / float64(n))
}

// ComputeStrengthVectorRandom estimates hero's opponent-bucket strength
// vector marginalised over the particle population: for each of nsamples
// live particles drawn uniformly with replacement, hero and board are
// remapped through the particle's permutation and scored against each of
// the archetype opponent holdings, skipping archetypes that collide with a
// card already dealt. The per-dimension means feed the k-means bucket
// assignment. ok is false when the filter has collapsed.
func ComputeStrengthVectorRandom(ctx context.Context, f *Filter, hero, board cards.Hand, archetypes [kmeans.VectorDims]cards.Hand, nsamples, itersPerParticle int, rng *rand.Rand) (kmeans.Vector, bool) {
	living := f.liveIndices()
	if len(living) == 0 {
		return kmeans.Vector{}, false
	}
	if nsamples <= 0 {
		nsamples = 1
	}
	if nsamples > len(living) {
		nsamples = len(living)
	}

	var sum kmeans.Vector
	var counts [kmeans.VectorDims]int
	for i := 0; i < nsamples; i++ {
		idx := living[rng.IntN(len(living))]
		perm := f.particles[idx]
		rh := Remap(perm, hero)
		rb := Remap(perm, board)
		blocked := rh | rb

		for d, villain := range archetypes {
			if villain&blocked != 0 {
				continue
			}
			q := equity.Query{Hero: rh, Villain: villain, Board: rb}
			e := equity.Estimate(ctx, q, itersPerParticle, rng)
			if e < 0 {
				continue
			}
			sum[d] += float64(e)
			counts[d]++
		}
	}

	var out kmeans.Vector
	for d := range sum {
		if counts[d] > 0 {
			out[d] = sum[d] / float64(counts[d])
		}
	}
	return out, true
}
