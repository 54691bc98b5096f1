package player

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"

	"github.com/lox/rankshift/internal/cfr"
	"github.com/lox/rankshift/internal/engine"
	"github.com/lox/rankshift/internal/infoset"
	"github.com/lox/rankshift/internal/permfilter"
	"github.com/lox/rankshift/internal/strategy"
)

func TestCanCheckFoldRemainder(t *testing.T) {
	t.Parallel()
	// Comfortably ahead with half the match left to play.
	require.True(t, CanCheckFoldRemainder(800, 500))
	require.False(t, CanCheckFoldRemainder(10, 10))
}

func newTestPlayer(t *testing.T) *Player {
	t.Helper()
	rng := rand.New(rand.NewPCG(1, 1))
	filter := permfilter.New(64, rng)
	table := strategy.New()
	bucket := infoset.NewFixedBucketFn(infoset.Small, 5)
	return New(filter, table, bucket, cfr.DefaultBetSizing, rng)
}

func TestGetActionAlwaysLegal(t *testing.T) {
	t.Parallel()
	p := newTestPlayer(t)
	p.HandleNewRound(200, 0, false)

	rng := rand.New(rand.NewPCG(2, 2))
	s := engine.NewRound(0, rng)

	action, amount, err := p.GetAction(context.Background(), s, s.Pips[0], s.Pips[1])
	require.NoError(t, err)
	mask := engine.LegalActions(s)
	require.True(t, mask.Allows(action), "player chose illegal action %s", action)

	if action == engine.Raise {
		min, max := engine.RaiseBounds(s)
		require.GreaterOrEqual(t, amount, min)
		require.LessOrEqual(t, amount, max)
	}
}

func TestCheckFoldModeAlwaysChecksOrFolds(t *testing.T) {
	t.Parallel()
	p := newTestPlayer(t)
	// Bankroll already exceeds what could still be lost: check-fold mode.
	p.HandleNewRound(10_000, 999, false)
	require.True(t, p.checkFoldMode)

	rng := rand.New(rand.NewPCG(3, 3))
	s := engine.NewRound(0, rng)
	action, _, err := p.GetAction(context.Background(), s, s.Pips[0], s.Pips[1])
	require.NoError(t, err)
	require.Contains(t, []engine.Action{engine.Check, engine.Fold}, action)
}

func TestHandleRoundOverIgnoresMissingShowdown(t *testing.T) {
	t.Parallel()
	p := newTestPlayer(t)
	p.HandleNewRound(200, 0, false)

	// A nil showdown (no reveal) must not touch the filter or counters.
	p.HandleRoundOver(nil)
	require.Equal(t, 0, p.NumShowdownsSeen())
}

func TestGetActionStillLegalUnderLowTimeRemaining(t *testing.T) {
	t.Parallel()
	p := newTestPlayer(t)
	mock := quartz.NewMock(t)
	p.SetClock(mock)
	p.HandleNewRound(200, 0, false)

	// Below lowTimeRemaining: streetEquity must collapse to a single cheap
	// sample rather than the full per-street iteration count, but the
	// decision itself still has to come back legal.
	p.ObserveTimeRemaining(1 * time.Second)

	rng := rand.New(rand.NewPCG(4, 4))
	s := engine.NewRound(0, rng)

	action, amount, err := p.GetAction(context.Background(), s, s.Pips[0], s.Pips[1])
	require.NoError(t, err)
	mask := engine.LegalActions(s)
	require.True(t, mask.Allows(action), "player chose illegal action %s", action)

	if action == engine.Raise {
		min, max := engine.RaiseBounds(s)
		require.GreaterOrEqual(t, amount, min)
		require.LessOrEqual(t, amount, max)
	}
}
