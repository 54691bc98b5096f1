// Package cfr implements full-width, dual-player Monte Carlo CFR+ over the
// round engine: at every decision node both players' every legal action is
// recursed into (not just a single sampled path), producing both the
// current strategy's expected value and a simultaneous best-response value
// for each seat in one traversal pass, regret-matched against
// internal/strategy.
//
// internal/engine.RoundState is an immutable value, so TraverseCfr branches
// straight off the state returned by engine.Proceed; there is no re-simulated
// action path or mutable hand state to guard between siblings.
package cfr

import (
	"context"
	"math"
	"math/rand/v2"

	"github.com/lox/rankshift/internal/engine"
	"github.com/lox/rankshift/internal/equity"
	"github.com/lox/rankshift/internal/infoset"
	"github.com/lox/rankshift/internal/strategy"
)

// Slot indices of the fixed six-way abstract action space every strategy
// vector is indexed by: fold, call, check, then the three half-pot-multiple
// raises. A slot index always means the same action; slots a node cannot
// take are masked, never compacted away, so entries shared by differently
// shaped nodes under one InfoSet key still train index-for-index against
// the same abstract action.
const (
	SlotFold = iota
	SlotCall
	SlotCheck
	SlotRaiseHalfPot
	SlotRaisePot
	SlotRaiseTwoPot
)

// NumActionSlots mirrors strategy.NumActions: one strategy weight per slot.
const NumActionSlots = strategy.NumActions

// BetSizing holds the pot fraction behind each of the three raise slots.
type BetSizing [3]float64

// DefaultBetSizing is the half-pot-multiple ladder: half pot, pot, and two
// pot, with the all-in reached by clamping to engine.RaiseBounds.
var DefaultBetSizing = BetSizing{0.5, 1.0, 2.0}

// DefaultEquityIters is the Monte Carlo sample count TraverseCfr's node
// equity estimate uses for the BucketEvK hole-card axis. Training runs on
// the un-permuted (identity) game, where the labelled ranks already are the
// true ranks, so this stands in for an offline exact-equity oracle: cheap
// enough to call at every visited node, accurate enough that the bucket it
// quantises into rarely disagrees with the true equity ordering.
const DefaultEquityIters = 30

// SlotActions is the concrete shape of the abstract slots at one node:
// which slots are legal, and the pip target each raise slot maps to.
type SlotActions struct {
	Mask    [NumActionSlots]bool
	Amounts [NumActionSlots]int
}

// Any reports whether at least one slot is legal.
func (sa SlotActions) Any() bool {
	for _, m := range sa.Mask {
		if m {
			return true
		}
	}
	return false
}

// SlotEngineAction returns the concrete engine action behind slot i.
func SlotEngineAction(i int) engine.Action {
	switch i {
	case SlotFold:
		return engine.Fold
	case SlotCall:
		return engine.Call
	case SlotCheck:
		return engine.Check
	default:
		return engine.Raise
	}
}

// ActionSlots maps s's legal moves onto the fixed slots: fold, call, and
// check straight off the legal-action mask, and one raise slot per sizing
// fraction with its pip target clamped into engine.RaiseBounds. When
// clamping collapses a larger fraction onto an amount a smaller slot
// already carries, only the smaller slot stays legal, so every legal raise
// slot holds a distinct amount. The policy player builds its slots with
// the same sizing CFR trained against, so slot i always refers to the same
// abstract action on both sides.
func ActionSlots(s engine.RoundState, sizing BetSizing) SlotActions {
	var out SlotActions
	mask := engine.LegalActions(s)
	out.Mask[SlotFold] = mask.Allows(engine.Fold)
	out.Mask[SlotCall] = mask.Allows(engine.Call)
	out.Mask[SlotCheck] = mask.Allows(engine.Check)
	if !mask.Allows(engine.Raise) {
		return out
	}

	min, max := engine.RaiseBounds(s)
	pot := potSize(s)
	for i, frac := range sizing {
		slot := SlotRaiseHalfPot + i
		amt := s.Pips[s.ActivePlayer] + int(frac*float64(pot))
		if amt < min {
			amt = min
		}
		if amt > max {
			amt = max
		}
		dup := false
		for j := SlotRaiseHalfPot; j < slot; j++ {
			if out.Mask[j] && out.Amounts[j] == amt {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		out.Mask[slot] = true
		out.Amounts[slot] = amt
	}
	return out
}

func potSize(s engine.RoundState) int {
	contributed := 2*engine.StartingStack - s.Stacks[0] - s.Stacks[1]
	return contributed
}

// infoSetKey builds the InfoSet string key for player at s, bucketing
// hole strength under the caller-supplied equity estimate.
func infoSetKey(s engine.RoundState, player int, bucket infoset.BucketFn, eq float64) string {
	return bucket.Key(infoset.InfoSet{
		Equity:     eq,
		SmallBlind: player == s.SBPlayer,
		Street:     s.Street,
		Hole:       s.Hands[player],
		Board:      s.VisibleBoard(),
		History:    s.History,
	})
}

// nodeEquity estimates player's equity against a random opponent holding at
// s's current street and board, for infoSetKey's bucketing axis. Run during
// CFR training on the un-permuted identity game, where labelled ranks are
// the true ranks, a direct equity.Estimate sample is exactly the oracle the
// abstraction wants. The online player must instead marginalise over the
// particle filter's posterior (internal/permfilter.ComputeEVRandom) because
// the true permutation is hidden.
func nodeEquity(ctx context.Context, s engine.RoundState, player, iters int, rng *rand.Rand) float64 {
	q := equity.Query{Hero: s.Hands[player], Board: s.VisibleBoard()}
	e := equity.Estimate(ctx, q, iters, rng)
	if e < 0 {
		return 0.5
	}
	return float64(e)
}

// NodeInfo is what one TraverseCfr call returns about the subtree rooted at
// its RoundState: both seats' expected value under the current strategy,
// both seats' value under a best response to the other seat's current
// regret-matched strategy, and the resulting per-seat exploitability (best-response EV
// minus strategy EV).
type NodeInfo struct {
	StrategyEV     [2]float64
	BestResponseEV [2]float64
	Exploitability [2]float64
}

func terminalNode(s engine.RoundState) NodeInfo {
	ev := [2]float64{float64(s.Deltas[0]), float64(s.Deltas[1])}
	return NodeInfo{StrategyEV: ev, BestResponseEV: ev}
}

// TraverseCfr runs one full-width CFR traversal rooted at s: unlike
// external-sampling MCCFR, every legal action of the player to act is
// recursed into regardless of which seat is traversePlyr, so one call
// computes both seats' strategy and best-response values simultaneously.
//
// sbIdx is accepted for parity with the offline driver's call signature
// (it picked the small blind when it dealt s) but is not otherwise used
// here: which seat acts, and in what order, is already carried on s.
//
// reach holds each seat's reach probability into s under the current
// strategy (1.0 at the root of an iteration). When allowUpdates is true and
// the node's active player is traversePlyr, the node's instantaneous regret
// and average-strategy contribution are folded into table, weighted by the
// opposing seat's reach probability (counterfactual reach) and, for the
// average strategy, by iteration (linear averaging discounts early, noisier
// iterations). When skipUnreachable is true, actions the current strategy
// assigns zero probability are not recursed into at all; the periodic
// exploitability evaluation pass runs with allowUpdates=false,
// skipUnreachable=true so it never mutates the table it is scoring.
//
// externalSampling is accepted for call-signature parity but is currently
// always treated as false: this traversal is always full-width.
func TraverseCfr(ctx context.Context, table *strategy.Table, bucket infoset.BucketFn, sizing BetSizing, s engine.RoundState, traversePlyr, sbIdx int, reach [2]float64, allowUpdates, externalSampling, skipUnreachable bool, iteration int, equityIters int, rng *rand.Rand) NodeInfo {
	s = engine.AdvanceToNextDecision(s)
	if s.Terminal {
		return terminalNode(s)
	}

	active := s.ActivePlayer
	slots := ActionSlots(s, sizing)
	if !slots.Any() {
		return terminalNode(engine.Showdown(s))
	}

	eq := nodeEquity(ctx, s, active, equityIters, rng)
	key := infoSetKey(s, active, bucket, eq)
	entry := table.Get(key)
	strat := strategy.ApplyMaskAndUniform(entry.Strategy(), slots.Mask)

	var actionValues, brValues [NumActionSlots][2]float64
	for i := 0; i < NumActionSlots; i++ {
		if !slots.Mask[i] {
			continue
		}
		if skipUnreachable && strat[i] <= 0 {
			continue
		}
		next, err := engine.Proceed(s, SlotEngineAction(i), slots.Amounts[i])
		if err != nil {
			continue
		}
		nextReach := reach
		nextReach[active] *= strat[i]
		child := TraverseCfr(ctx, table, bucket, sizing, next, traversePlyr, sbIdx, nextReach, allowUpdates, externalSampling, skipUnreachable, iteration, equityIters, rng)
		actionValues[i] = child.StrategyEV
		brValues[i] = child.BestResponseEV
	}

	var stratEV [2]float64
	for i := range strat {
		stratEV[0] += strat[i] * actionValues[i][0]
		stratEV[1] += strat[i] * actionValues[i][1]
	}

	var regret strategy.Vector
	for i := range regret {
		if slots.Mask[i] {
			regret[i] = actionValues[i][active] - stratEV[active]
		}
	}

	inactive := 1 - active
	var brEV [2]float64
	maxBR := math.Inf(-1)
	anyReachable := false
	for i := 0; i < NumActionSlots; i++ {
		if !slots.Mask[i] {
			continue
		}
		if skipUnreachable && strat[i] <= 0 {
			continue
		}
		anyReachable = true
		if brValues[i][active] > maxBR {
			maxBR = brValues[i][active]
		}
		brEV[inactive] += strat[i] * brValues[i][inactive]
	}
	if !anyReachable {
		maxBR = stratEV[active]
	}
	brEV[active] = maxBR

	if allowUpdates && active == traversePlyr {
		entry.Update(regret, strat, reach[inactive], iteration)
	}

	return NodeInfo{
		StrategyEV:     stratEV,
		BestResponseEV: brEV,
		Exploitability: [2]float64{brEV[0] - stratEV[0], brEV[1] - stratEV[1]},
	}
}
