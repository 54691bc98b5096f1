package cfr

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync/atomic"

	"github.com/lox/rankshift/internal/engine"
	"github.com/lox/rankshift/internal/infoset"
	"github.com/lox/rankshift/internal/strategy"
)

// Trainer drives repeated MCCFR iterations against a shared strategy Table,
// alternating which seat is the traversing player from one traversal to the
// next within an iteration and persisting the table periodically.
//
// The mutable hand-state/bucket-mapper collaborators a naive port would use
// are replaced by the immutable engine.RoundState and the
// granularity-agnostic infoset.BucketFn.
type Trainer struct {
	Table             *strategy.Table
	Bucket            infoset.BucketFn
	BetSizing         BetSizing
	EquityIters       int
	TraversalsPerIter int
	rng               *rand.Rand

	iteration       atomic.Int64
	checkpointPath  string
	checkpointEvery int
}

// NewTrainer constructs a trainer with a fresh strategy table.
func NewTrainer(bucket infoset.BucketFn, sizing BetSizing, seed uint64) *Trainer {
	if sizing == (BetSizing{}) {
		sizing = DefaultBetSizing
	}
	return &Trainer{
		Table:             strategy.New(),
		Bucket:            bucket,
		BetSizing:         sizing,
		EquityIters:       DefaultEquityIters,
		TraversalsPerIter: 2,
		rng:               rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// EnableCheckpoints configures the trainer to persist its strategy table to
// path every `every` iterations.
func (t *Trainer) EnableCheckpoints(path string, every int) {
	t.checkpointPath = path
	t.checkpointEvery = every
}

// Iteration returns the number of completed iterations.
func (t *Trainer) Iteration() int64 {
	return t.iteration.Load()
}

// RunIteration runs TraversalsPerIter full-width traversals, each from a
// freshly dealt round, alternating both the traversing seat and the button
// with the traversal index. It returns each seat's mean utility across its
// own traversals (NodeInfo.StrategyEV[target]), mostly useful for progress
// logging.
func (t *Trainer) RunIteration() ([2]float64, error) {
	iter := int(t.iteration.Add(1))
	n := t.TraversalsPerIter
	if n <= 0 {
		n = 2
	}

	var utils [2]float64
	var counts [2]int
	for k := 0; k < n; k++ {
		target := k % 2
		button := k % 2
		s := engine.NewRound(button, t.rng)
		reach := [2]float64{1.0, 1.0}
		info := TraverseCfr(context.Background(), t.Table, t.Bucket, t.BetSizing, s, target, button, reach, true, false, false, iter, t.EquityIters, t.rng)
		utils[target] += info.StrategyEV[target]
		counts[target]++
	}
	for i := range utils {
		if counts[i] > 0 {
			utils[i] /= float64(counts[i])
		}
	}

	if t.checkpointPath != "" && t.checkpointEvery > 0 && iter%t.checkpointEvery == 0 {
		if err := t.Table.Save(t.checkpointPath); err != nil {
			return utils, fmt.Errorf("cfr: checkpoint at iteration %d: %w", iter, err)
		}
	}
	return utils, nil
}

// ExploitabilityReport aggregates a Monte-Carlo exploitability estimate:
// since the full best-response/strategy-EV pass is run here over sampled
// deals rather than the entire game tree, this samples nHands deals and
// reports the mean, standard deviation, and standard error of
// exploitability[0]+exploitability[1], in milli-big-blinds per hand.
type ExploitabilityReport struct {
	MeanMilliBB float64
	StdDev      float64
	StdErr      float64
	Hands       int
}

// EvaluateExploitability samples nHands deals and, for each, runs a single
// allowUpdates=false, skipUnreachable=true TraverseCfr pass: this
// evaluates the best response to the current regret-matched strategy for both
// seats in the same traversal, rather than running a second, separately
// maintained best-response recursion.
func EvaluateExploitability(table *strategy.Table, bucket infoset.BucketFn, sizing BetSizing, rng *rand.Rand, nHands int) ExploitabilityReport {
	return evaluateExploitability(table, bucket, sizing, rng, nHands, DefaultEquityIters)
}

func evaluateExploitability(table *strategy.Table, bucket infoset.BucketFn, sizing BetSizing, rng *rand.Rand, nHands, equityIters int) ExploitabilityReport {
	if sizing == (BetSizing{}) {
		sizing = DefaultBetSizing
	}
	ctx := context.Background()
	values := make([]float64, 0, nHands)
	for i := 0; i < nHands; i++ {
		button := i % 2
		s := engine.NewRound(button, rng)
		reach := [2]float64{1.0, 1.0}
		info := TraverseCfr(ctx, table, bucket, sizing, s, -1, button, reach, false, false, true, 0, equityIters, rng)
		total := info.Exploitability[0] + info.Exploitability[1]
		values = append(values, total/float64(engine.BigBlind)*1000)
	}
	return summarize(values)
}

func summarize(values []float64) ExploitabilityReport {
	n := len(values)
	if n == 0 {
		return ExploitabilityReport{}
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	if n > 1 {
		variance /= float64(n - 1)
	}
	stddev := math.Sqrt(variance)
	return ExploitabilityReport{
		MeanMilliBB: mean,
		StdDev:      stddev,
		StdErr:      stddev / math.Sqrt(float64(n)),
		Hands:       n,
	}
}
