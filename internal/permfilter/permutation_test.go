package permfilter

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lox/rankshift/internal/cards"
)

func TestSamplePriorProducesValidPermutations(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(1, 1))
	for i := 0; i < 1000; i++ {
		p := SamplePrior(rng)
		require.True(t, p.Valid(), "sample %d: %v is not a permutation", i, p)
	}
}

func TestComputePriorIsPositiveAndPeaksAtIdentity(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(2, 2))

	identityPrior := ComputePrior(Identity())
	require.Greater(t, identityPrior, 0.0)

	for i := 0; i < 1000; i++ {
		p := Random(rng)
		prior := ComputePrior(p)
		require.Greater(t, prior, 0.0, "uniform sample %d: %v", i, p)
		if p != Identity() {
			require.Less(t, prior, identityPrior,
				"identity must be the prior mode, but %v scored higher", p)
		}
	}
}

// The prior must actually describe the sampler: permutations drawn from
// SamplePrior should score systematically higher under ComputePrior than
// uniformly random ones.
func TestComputePriorCorrelatesWithSampler(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(3, 3))

	const n = 1000
	var priorDrawn, uniformDrawn float64
	for i := 0; i < n; i++ {
		priorDrawn += math.Log(ComputePrior(SamplePrior(rng)))
		uniformDrawn += math.Log(ComputePrior(Random(rng)))
	}
	require.Greater(t, priorDrawn/n, uniformDrawn/n)
}

func TestComputePriorRejectsNonPermutation(t *testing.T) {
	t.Parallel()
	var dup Permutation // [0,0,...,0]: not a bijection
	require.False(t, dup.Valid())
	require.Zero(t, ComputePrior(dup))
}

func TestRemap(t *testing.T) {
	t.Parallel()
	h := cards.NewHand(cards.MustParse("As"), cards.MustParse("2d"))

	require.Equal(t, h, Remap(Identity(), h))

	swapped := Identity().swap(cards.Ace, cards.Two)
	got := Remap(swapped, h)
	want := cards.NewHand(cards.MustParse("2s"), cards.MustParse("Ad"))
	require.Equal(t, want, got)
}
