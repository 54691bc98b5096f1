// Package history reconstructs the per-street bet history engine.RoundState
// carries internally, but from the outside: the referee protocol reports
// each player's cumulative contribution, never individual actions, so a
// Tracker turns successive contribution snapshots into the same delta
// sequence shape the CFR-trained bucketing code expects.
//
// Ported from the reference bot's HistoryTracker
// (original_source/bot/python_skeleton/pokerbots_cpp_python/history_tracker.cpp):
// a single Update call drives both per-action recording and the street-close
// back-patch, rather than two separate calls a caller could sequence wrong.
package history

import "fmt"

// Street mirrors engine.Street without importing it, so this package has no
// dependency on the internal round representation it is reconstructing.
type Street int

const (
	Preflop Street = 0
	Flop    Street = 3
	Turn    Street = 4
	River   Street = 5
)

// noStreet is the "no street observed yet" sentinel Update uses to detect
// the very first call, mirroring the reference tracker's prev_street_ = -1.
const noStreet Street = -1

// Tracker accumulates the chip-add history of one hand from contribution
// snapshots reported over the wire.
type Tracker struct {
	isBigBlind bool

	// contributions holds cumulative whole-hand chip totals, [mine, opponent],
	// as of the last recorded action.
	contributions [2]int
	// prevStreetContrib is the cumulative contribution level (the smaller
	// of the two) at which the current street began.
	prevStreetContrib int
	prevStreet        Street

	history [][]int
}

// New starts a Tracker for a fresh hand, seeded with the two forced blinds
// exactly as engine.NewRound records them: [SmallBlind, BigBlind] as the
// first street's entries, with per-player contributions seeded according to
// which blind this player posted.
func New(isBigBlind bool) *Tracker {
	t := &Tracker{
		isBigBlind: isBigBlind,
		prevStreet: noStreet,
		history:    [][]int{{1, 2}},
	}
	if isBigBlind {
		t.contributions = [2]int{2, 1}
	} else {
		t.contributions = [2]int{1, 2}
	}
	return t
}

// Update records the latest cumulative contributions the referee has
// reported for street. my_contrib/opp_contrib are whole-hand cumulative
// totals, never per-street deltas. On a street change, Update first
// back-patches the street that just closed so both sides' recorded deltas
// net to the chip total actually committed, recovering the implicit final
// CALL a referee that jumps straight to the next street never reports
// explicitly, before appending a fresh, empty street entry.
func (t *Tracker) Update(myContrib, oppContrib int, street Street) error {
	if myContrib < t.contributions[0] {
		return fmt.Errorf("history: my contribution decreased (%d -> %d)", t.contributions[0], myContrib)
	}
	if oppContrib < t.contributions[1] {
		return fmt.Errorf("history: opponent contribution decreased (%d -> %d)", t.contributions[1], oppContrib)
	}

	didStartNewStreet := t.prevStreet != street
	if didStartNewStreet {
		if street != Preflop {
			t.backPatchClosedStreet(myContrib, oppContrib)
		}
		t.prevStreet = street
	}

	weGoFirstThisStreet := (street == Preflop && !t.isBigBlind) || (street != Preflop && t.isBigBlind)

	switch {
	case !weGoFirstThisStreet && didStartNewStreet:
		// Only the opponent has acted yet this street.
		t.updateOpponent(oppContrib)
	case weGoFirstThisStreet && didStartNewStreet:
		// Nobody has acted yet; this observation is just the street
		// transition itself.
	default:
		t.updatePlayer(myContrib)
		t.updateOpponent(oppContrib)
	}
	return nil
}

// backPatchClosedStreet closes out the previous street's entry before a new
// one opens: the amount each side actually put in during that street is
// min(myContrib, oppContrib) - prevStreetContrib (both sides are level by
// the time the street ends), and anything not already reflected in the
// recorded per-parity deltas is appended as one implicit call.
func (t *Tracker) backPatchClosedStreet(myContrib, oppContrib int) {
	prevAdds := t.history[len(t.history)-1]
	prevStreetPip := min(myContrib, oppContrib) - t.prevStreetContrib

	var pips [2]int
	for i, delta := range prevAdds {
		pips[i%2] += delta
	}

	callAmt0 := prevStreetPip - pips[0]
	callAmt1 := prevStreetPip - pips[1]

	switch {
	case callAmt0 > 0 && callAmt1 > 0:
		// Both sides owe money on the last round only because one side
		// raised and the other called without either ever being observed
		// individually; reconstruct both in the parity order the next
		// entry would have used.
		if len(prevAdds)%2 == 0 {
			prevAdds = append(prevAdds, callAmt0, callAmt1)
		} else {
			prevAdds = append(prevAdds, callAmt1, callAmt0)
		}
	case callAmt0 > 0:
		prevAdds = append(prevAdds, callAmt0)
	case callAmt1 > 0:
		prevAdds = append(prevAdds, callAmt1)
	}

	for len(prevAdds) < 2 {
		prevAdds = append(prevAdds, 0)
	}
	t.history[len(t.history)-1] = prevAdds

	floor := min(myContrib, oppContrib)
	t.contributions = [2]int{floor, floor}
	t.prevStreetContrib = floor
	t.history = append(t.history, []int{})
}

func (t *Tracker) updatePlayer(myContrib int) {
	addAmt := myContrib - t.contributions[0]
	last := len(t.history) - 1
	if addAmt > 0 || len(t.history[last]) < 2 {
		t.history[last] = append(t.history[last], addAmt)
		t.contributions[0] = myContrib
	}
}

func (t *Tracker) updateOpponent(oppContrib int) {
	addAmt := oppContrib - t.contributions[1]
	last := len(t.history) - 1
	if addAmt > 0 || len(t.history[last]) < 2 {
		t.history[last] = append(t.history[last], addAmt)
		t.contributions[1] = oppContrib
	}
}

// Street reports the street the tracker currently believes is in progress.
func (t *Tracker) Street() Street {
	if t.prevStreet == noStreet {
		return Preflop
	}
	return t.prevStreet
}

// Snapshot returns a defensive copy of the accumulated per-street delta
// history, in the same shape engine.RoundState.History carries.
func (t *Tracker) Snapshot() [][]int {
	out := make([][]int, len(t.history))
	for i, s := range t.history {
		out[i] = append([]int(nil), s...)
	}
	return out
}

