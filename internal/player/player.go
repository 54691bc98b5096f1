// Package player implements the per-game policy player: the
// orchestration that ties the particle filter, the history tracker, the
// bucketed infoset key, and the regret-matched strategy table into the
// three callbacks the referee protocol drives: HandleNewRound, GetAction,
// HandleRoundOver.
//
// It is a stateful per-game object driven by an external loop, built around
// the permuted-rank domain's extra collaborators: the particle filter and
// the hand-history tracker.
package player

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/lox/rankshift/internal/cards"
	"github.com/lox/rankshift/internal/cfr"
	"github.com/lox/rankshift/internal/clock"
	"github.com/lox/rankshift/internal/engine"
	"github.com/lox/rankshift/internal/history"
	"github.com/lox/rankshift/internal/infoset"
	"github.com/lox/rankshift/internal/permfilter"
	"github.com/lox/rankshift/internal/strategy"
)

// decisionBudget is the time elapsed since the start of a GetAction call
// past which streetEquity uses a single deterministic sample. The check runs
// once, before the equity sample starts; a sample already running is not
// interrupted.
const decisionBudget = 3 * time.Second

// lowTimeRemaining is the referee-reported game-clock threshold below which
// GetAction treats every remaining decision this round as time-critical.
const lowTimeRemaining = 2 * time.Second

// equitySamplesByStreet configures, per street, how many Monte-Carlo iterations
// permfilter.ComputeEVRandom runs per particle: cheaper early so a round
// with many decisions stays well under the per-action clock budget, richer
// once the board is fuller and fewer streets remain to recoup the cost.
var equitySamplesByStreet = map[engine.Street]int{
	engine.Preflop: 1, // the preflop equity table (internal/preflop) usually answers this directly
	engine.Flop:    200,
	engine.Turn:    400,
	engine.River:   800,
}

// particleSamplesByStreet configures, per street, how many particles
// ComputeEVRandom subsamples from the filter's living set rather than
// scanning the whole population: the full ~25,000-particle population times
// a few hundred Monte Carlo iterations each is well over a second of work
// per decision, far past the per-action clock budget.
var particleSamplesByStreet = map[engine.Street]int{
	engine.Preflop: 1,
	engine.Flop:    32,
	engine.Turn:    48,
	engine.River:   64,
}

// Showdown is what the referee reveals at the end of a hand when both hole
// cards went to showdown: the raw labelled cards plus which seat actually
// won the pot, independent of any permutation hypothesis.
type Showdown struct {
	Hero, Villain cards.Hand
	Board         cards.Hand
	HeroWon       int // +1 hero, -1 villain, 0 tie
}

// Player is the per-game state the protocol runner drives: the particle filter,
// the strategy table, counters, and a per-round equity cache, driven
// strictly sequentially (HandleNewRound, any number of GetAction,
// HandleRoundOver) by the enclosing protocol runner.
type Player struct {
	Filter *permfilter.Filter
	Table  *strategy.Table
	Bucket infoset.BucketFn
	Sizing cfr.BetSizing
	rng    *rand.Rand

	tracker *history.Tracker

	clk           clock.Clock
	timeRemaining time.Duration

	numShowdownsSeen      int
	numShowdownsConverged int

	checkFoldMode bool
	isBigBlind    bool
	equityCache   map[engine.Street]float32

	lastEquity   float32
	lastStrategy []float64
}

// New constructs a Player around the given collaborators. rng must be the
// process's single deterministic generator: every MCMC step, deck shuffle,
// and action sample routes through one seedable generator.
func New(filter *permfilter.Filter, table *strategy.Table, bucket infoset.BucketFn, sizing cfr.BetSizing, rng *rand.Rand) *Player {
	return &Player{
		Filter:        filter,
		Table:         table,
		Bucket:        bucket,
		Sizing:        sizing,
		rng:           rng,
		clk:           clock.Real(),
		timeRemaining: time.Hour, // ample until the referee's first TagTime report arrives
	}
}

// SetClock overrides the player's clock; tests use this to swap in a
// quartz.Mock instead of waiting on real wall time for budget checks.
func (p *Player) SetClock(c clock.Clock) { p.clk = c }

// ObserveTimeRemaining records how much game clock the referee reports is
// left. GetAction treats a near-exhausted clock as another signal to skip
// expensive Monte Carlo sampling, alongside its own per-call decisionBudget.
func (p *Player) ObserveTimeRemaining(d time.Duration) { p.timeRemaining = d }

// CanCheckFoldRemainder reports whether bankroll chips already exceeds the
// most that could still be lost by check-folding every remaining round:
// 1.5 chips per remaining round, the average of posting the small blind and
// the big blind in alternate rounds and folding it away, plus one chip.
func CanCheckFoldRemainder(bankroll, roundNum int) bool {
	remaining := engine.NumRounds - roundNum
	return float64(bankroll) > 1.5*float64(remaining)+1
}

// HandleNewRound resets the player's per-round caches and evaluates the
// check-fold-mode bankroll guard ahead of the first GetAction this round.
func (p *Player) HandleNewRound(bankroll, roundNum int, isBigBlind bool) {
	p.equityCache = make(map[engine.Street]float32, 4)
	// isBigBlind determines who the tracker expects to act first on each
	// street, and so which seat's contribution it treats as "already
	// observed" when a street opens with only the opponent having acted.
	p.tracker = history.New(isBigBlind)
	p.isBigBlind = isBigBlind
	p.checkFoldMode = CanCheckFoldRemainder(bankroll, roundNum)
}

// HandleRoundOver updates the particle filter when a showdown was revealed
// and the filter is neither collapsed nor already converged on a single
// hypothesis: once Unique()==1 there is nothing left for another
// constraint to teach the filter, so further MCMC work is wasted.
func (p *Player) HandleRoundOver(sd *Showdown) {
	if sd == nil {
		return
	}
	if p.Filter.NonZero() == 0 {
		return
	}
	if p.Filter.Unique() == 1 {
		return
	}

	// The filter's constraint is winner-score >= loser-score, so a tie is
	// recorded as both orientations, which pins the two scores equal.
	if sd.HeroWon >= 0 {
		p.Filter.Observe(permfilter.Observation{Winner: sd.Hero, Loser: sd.Villain, Board: sd.Board})
	}
	if sd.HeroWon <= 0 {
		p.Filter.Observe(permfilter.Observation{Winner: sd.Villain, Loser: sd.Hero, Board: sd.Board})
	}

	p.numShowdownsSeen++
	if p.Filter.Unique() == 1 {
		p.numShowdownsConverged++
	}
}

// NumShowdownsSeen reports how many showdowns HandleRoundOver has folded
// into the particle filter this game.
func (p *Player) NumShowdownsSeen() int { return p.numShowdownsSeen }

// NumShowdownsConverged reports how many of those showdowns left the filter
// converged on a single permutation hypothesis.
func (p *Player) NumShowdownsConverged() int { return p.numShowdownsConverged }

// GetAction decides the concrete action to take at s, given the latest
// whole-hand cumulative contribution totals the referee has reported.
// It always returns a legal action; error is non-nil only for the
// fail-fast history-tracker invariant violation, which indicates a
// programmer bug rather than a recoverable condition.
func (p *Player) GetAction(ctx context.Context, s engine.RoundState, myContrib, oppContrib int) (engine.Action, int, error) {
	if err := p.tracker.Update(myContrib, oppContrib, history.Street(s.Street)); err != nil {
		return engine.Fold, 0, fmt.Errorf("player: history tracker: %w", err)
	}

	mask := engine.LegalActions(s)
	if p.checkFoldMode || p.Filter.NonZero() == 0 {
		return checkOrFold(mask), 0, nil
	}

	started := p.clk.Now()
	active := s.ActivePlayer
	equity, equityKnown := p.streetEquity(ctx, s, active, started)
	p.lastEquity = equity

	slots := cfr.ActionSlots(s, p.Sizing)
	if !slots.Any() {
		return checkOrFold(mask), 0, nil
	}

	key := p.Bucket.Key(infoset.InfoSet{
		Equity:     float64(equity),
		SmallBlind: !p.isBigBlind,
		Street:     s.Street,
		Hole:       s.Hands[active],
		Board:      s.VisibleBoard(),
		History:    p.tracker.Snapshot(),
	})

	var action engine.Action
	var amount int
	if entry, ok := p.Table.Lookup(key); ok && equityKnown {
		strat := strategy.ApplyMaskAndUniform(entry.AverageStrategy(), slots.Mask)
		p.lastStrategy = strat[:]
		idx := sampleSlot(strat, p.rng)
		action, amount = cfr.SlotEngineAction(idx), slots.Amounts[idx]
	} else {
		action, amount = p.fallbackPolicy(s, mask, equity)
		p.lastStrategy = nil
	}

	action, amount = p.applySafetyOverrides(s, mask, action, amount, equity)
	return action, amount, nil
}

// LastEquity returns the street equity cached during the most recent
// GetAction call.
func (p *Player) LastEquity() float32 { return p.lastEquity }

// LastStrategy returns the masked average-strategy vector sampled during the
// most recent GetAction call, or nil when that decision used the fallback
// policy instead of a trained strategy-table entry.
func (p *Player) LastStrategy() []float64 { return p.lastStrategy }

// NumParticles reports the particle filter's configured population size.
func (p *Player) NumParticles() int { return p.Filter.NumParticles() }

// streetEquity returns the cached equity for s.Street, computing and
// caching it via the particle filter on first use this street. It collapses
// to a single sample once either the per-call decisionBudget or the
// referee's reported game clock runs low, trading estimate quality for a
// reply that still lands on time. A negative oracle result signals "not
// enough valid particles": the neutral estimate is returned uncached with
// known=false, which routes the decision to the hand-coded policy instead
// of the strategy table.
func (p *Player) streetEquity(ctx context.Context, s engine.RoundState, active int, started time.Time) (eq float32, known bool) {
	if eq, ok := p.equityCache[s.Street]; ok {
		return eq, true
	}

	iters := equitySamplesByStreet[s.Street]
	nsamples := particleSamplesByStreet[s.Street]
	if p.Filter.Unique() == 1 {
		iters = 1
		nsamples = 1
	}
	if p.timeRemaining < lowTimeRemaining || p.clk.Since(started) > decisionBudget {
		iters = 1
		nsamples = 1
	}
	eq = permfilter.ComputeEVRandom(ctx, p.Filter, s.Hands[active], s.VisibleBoard(), cards.Hand(0), nsamples, iters, p.rng)
	if eq < 0 {
		return 0.5, false
	}
	p.equityCache[s.Street] = eq
	return eq, true
}

// fallbackPolicy is the hand-coded equity/pot-odds policy used when the
// strategy table has never seen this bucket: it must always terminate
// with a legal action.
func (p *Player) fallbackPolicy(s engine.RoundState, mask engine.ActionMask, equity float32) (engine.Action, int) {
	active, opp := s.ActivePlayer, 1-s.ActivePlayer
	continueCost := s.Pips[opp] - s.Pips[active]
	if continueCost < 0 {
		continueCost = 0
	}
	pot := contributed(s)

	potOdds := 0.0
	if continueCost > 0 {
		potOdds = float64(continueCost) / float64(pot+continueCost)
	}

	switch {
	case mask.Allows(engine.Raise) && float64(equity) >= 0.70:
		min, max := engine.RaiseBounds(s)
		amt := clampInt(s.Pips[active]+pot/2, min, max)
		return engine.Raise, amt
	case mask.Allows(engine.Call) && float64(equity) > potOdds:
		return engine.Call, 0
	case mask.Allows(engine.Check):
		return engine.Check, 0
	case mask.Allows(engine.Fold):
		return engine.Fold, 0
	default:
		return engine.Check, 0
	}
}

// applySafetyOverrides pulls back unsafe plays the strategy table or
// fallback policy might otherwise choose: a call that would put us all-in
// without strong enough equity becomes a fold, and an all-in raise without
// strong enough equity is pulled back to check/call. Preflop decisions are
// left as chosen; the overrides apply from the flop on.
func (p *Player) applySafetyOverrides(s engine.RoundState, mask engine.ActionMask, action engine.Action, amount int, equity float32) (engine.Action, int) {
	if s.Street == engine.Preflop {
		return action, amount
	}
	active, opp := s.ActivePlayer, 1-s.ActivePlayer
	continueCost := s.Pips[opp] - s.Pips[active]
	if continueCost < 0 {
		continueCost = 0
	}

	if action == engine.Call && continueCost >= s.Stacks[active] && equity <= 0.80 {
		if mask.Allows(engine.Fold) {
			return engine.Fold, 0
		}
		return action, amount
	}

	if action == engine.Raise {
		_, max := engine.RaiseBounds(s)
		isAllIn := amount >= max && s.Pips[active]+s.Stacks[active] == max
		if isAllIn && equity <= 0.80 {
			if mask.Allows(engine.Check) {
				return engine.Check, 0
			}
			if mask.Allows(engine.Call) {
				return engine.Call, 0
			}
		}
	}

	return action, amount
}

func checkOrFold(mask engine.ActionMask) engine.Action {
	if mask.Allows(engine.Check) {
		return engine.Check
	}
	return engine.Fold
}

// sampleSlot draws one slot index from a masked, normalised strategy
// vector. Slots with zero mass (illegal or never taken) can never be
// drawn; float rounding at the tail falls back to the last positive slot.
func sampleSlot(strat strategy.Vector, rng *rand.Rand) int {
	r := rng.Float64()
	cum := 0.0
	last := 0
	for i, p := range strat {
		if p <= 0 {
			continue
		}
		last = i
		cum += p
		if r < cum {
			return i
		}
	}
	return last
}

func contributed(s engine.RoundState) int {
	return 2*engine.StartingStack - s.Stacks[0] - s.Stacks[1]
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
