package cfr

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/lox/rankshift/internal/engine"
	"github.com/lox/rankshift/internal/infoset"
	"github.com/lox/rankshift/internal/strategy"
)

func testBucket() infoset.BucketFn {
	return infoset.NewFixedBucketFn(infoset.Small, 5)
}

func TestTraverseCfrReturnsZeroSumStrategyEV(t *testing.T) {
	t.Parallel()
	table := strategy.New()
	rng := rand.New(rand.NewPCG(1, 1))
	s := engine.NewRound(0, rng)
	reach := [2]float64{1.0, 1.0}

	info := TraverseCfr(context.Background(), table, testBucket(), DefaultBetSizing, s, 0, 0, reach, true, false, false, 1, 5, rng)
	if info.StrategyEV[0] != info.StrategyEV[0] || info.StrategyEV[1] != info.StrategyEV[1] {
		t.Fatalf("got NaN strategy EV: %+v", info.StrategyEV)
	}
	if math.Abs(info.StrategyEV[0]+info.StrategyEV[1]) > 1e-6 {
		t.Fatalf("expected zero-sum strategy EV, got %+v", info.StrategyEV)
	}
}

func TestTraverseCfrPopulatesStrategyTable(t *testing.T) {
	t.Parallel()
	table := strategy.New()
	rng := rand.New(rand.NewPCG(2, 2))
	reach := [2]float64{1.0, 1.0}
	for i := 0; i < 5; i++ {
		button := i % 2
		s := engine.NewRound(button, rng)
		TraverseCfr(context.Background(), table, testBucket(), DefaultBetSizing, s, i%2, button, reach, true, false, false, i+1, 5, rng)
	}
	if table.Size() == 0 {
		t.Fatalf("expected the traversal to populate at least one InfoSet")
	}
}

func TestTraverseCfrAllowUpdatesFalseLeavesRegretUntouched(t *testing.T) {
	t.Parallel()
	table := strategy.New()
	rng := rand.New(rand.NewPCG(3, 3))
	s := engine.NewRound(0, rng)
	reach := [2]float64{1.0, 1.0}

	// traversePlyr=0 is a real seat, so the active==traversePlyr guard lets
	// seat 0's nodes through and only allowUpdates=false keeps the table
	// untouched.
	TraverseCfr(context.Background(), table, testBucket(), DefaultBetSizing, s, 0, 0, reach, false, false, true, 0, 5, rng)

	visited := 0
	table.Each(func(key string, e *strategy.Entry) {
		visited++
		for _, r := range e.RegretSum {
			if r != 0 {
				t.Fatalf("expected an allowUpdates=false pass to leave regret at zero, got %v", e.RegretSum)
			}
		}
		if e.Normalising != 0 {
			t.Fatalf("expected an allowUpdates=false pass to leave the average-strategy accumulator untouched, got %v", e.Normalising)
		}
	})
	if visited == 0 {
		t.Fatalf("expected the evaluation pass to visit at least one InfoSet")
	}
}

func TestTrainerRunIterationAdvancesCounter(t *testing.T) {
	t.Parallel()
	trainer := NewTrainer(testBucket(), DefaultBetSizing, 42)
	if _, err := trainer.RunIteration(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trainer.Iteration() != 1 {
		t.Fatalf("expected iteration counter to advance to 1, got %d", trainer.Iteration())
	}
}

// TestEvaluateExploitabilityReportsFiniteStats exercises the
// allowUpdates=false, skipUnreachable=true evaluation pass against a
// lightly trained table and asserts the claimed statistics are actually
// computed: a finite mean inside the range a per-deal best response can
// produce (never negative, since a best response does at least as well as
// the strategy it replaces, and at most both full stacks, in milli-big-blinds),
// and a non-negative, finite spread.
func TestEvaluateExploitabilityReportsFiniteStats(t *testing.T) {
	t.Parallel()
	trainer := NewTrainer(testBucket(), DefaultBetSizing, 7)
	for i := 0; i < 10; i++ {
		_, _ = trainer.RunIteration()
	}
	rng := rand.New(rand.NewPCG(99, 99))
	report := evaluateExploitability(trainer.Table, testBucket(), DefaultBetSizing, rng, 3, 5)

	if report.Hands != 3 {
		t.Fatalf("expected 3 sampled evaluations, got %d", report.Hands)
	}
	if math.IsNaN(report.MeanMilliBB) || math.IsInf(report.MeanMilliBB, 0) {
		t.Fatalf("expected a finite mean exploitability, got %v", report.MeanMilliBB)
	}
	maxMilliBB := float64(2*engine.StartingStack) / float64(engine.BigBlind) * 1000
	if report.MeanMilliBB < 0 || report.MeanMilliBB > maxMilliBB {
		t.Fatalf("expected mean exploitability in [0, %v] milli-BB, got %v milli-BB", maxMilliBB, report.MeanMilliBB)
	}
	if report.StdDev < 0 || math.IsNaN(report.StdDev) {
		t.Fatalf("expected a non-negative, finite standard deviation, got %v", report.StdDev)
	}
}
