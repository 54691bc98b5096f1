// Package engine implements the pure-functional round state machine for one
// hand of heads-up No-Limit Hold'em: street transitions, legal actions,
// raise bounds, and showdown payoffs.
//
// There is no previous_state back-pointer: the bet history and terminal
// deltas live on the state itself, with a tagged Terminal flag in place of
// a State/RoundState/TerminalState hierarchy.
// Every transition returns a new value; RoundState shares no mutable state
// between siblings in the game tree (History is deep-copied on every
// transition).
package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/lox/rankshift/internal/cards"
	"github.com/lox/rankshift/internal/handeval"
)

// Match constants.
const (
	NumRounds     = 1000
	StartingStack = 200
	BigBlind      = 2
	SmallBlind    = 1
)

// Street is the number of board cards revealed so far.
type Street int

const (
	Preflop Street = 0
	Flop    Street = 3
	Turn    Street = 4
	River   Street = 5
)

func (s Street) String() string {
	switch s {
	case Preflop:
		return "preflop"
	case Flop:
		return "flop"
	case Turn:
		return "turn"
	case River:
		return "river"
	default:
		return "unknown"
	}
}

// Action is one of the four concrete actions a player may take.
type Action int

const (
	Fold Action = iota
	Call
	Check
	Raise
)

func (a Action) String() string {
	switch a {
	case Fold:
		return "fold"
	case Call:
		return "call"
	case Check:
		return "check"
	case Raise:
		return "raise"
	default:
		return "unknown"
	}
}

// ActionMask is a bitmask over the four concrete actions.
type ActionMask uint8

const (
	MaskFold ActionMask = 1 << iota
	MaskCall
	MaskCheck
	MaskRaise
)

// Allows reports whether the mask permits the given action.
func (m ActionMask) Allows(a Action) bool {
	switch a {
	case Fold:
		return m&MaskFold != 0
	case Call:
		return m&MaskCall != 0
	case Check:
		return m&MaskCheck != 0
	case Raise:
		return m&MaskRaise != 0
	default:
		return false
	}
}

// Actions expands the mask into a slice of concrete actions, in a stable
// fold/call/check/raise order.
func (m ActionMask) Actions() []Action {
	out := make([]Action, 0, 4)
	for _, a := range [...]Action{Fold, Call, Check, Raise} {
		if m.Allows(a) {
			out = append(out, a)
		}
	}
	return out
}

// RoundState is the immutable state of one hand in progress. Every field is
// either a value type or, for History, deep-copied on every transition so
// that two states reachable from the same parent never alias each other.
type RoundState struct {
	Button       int
	SBPlayer     int
	Street       Street
	ActivePlayer int // -1 when no decision is pending (terminal, or all-in run-out)
	Pips         [2]int
	Stacks       [2]int
	Hands        [2]cards.Hand
	BoardCards   [5]cards.Card
	History      [][]int // per-street chip-add deltas; History[0][:2] are the forced blinds
	ActedThisStreet [2]bool
	Terminal     bool
	Deltas       [2]int
}

// NewRound deals a fresh hand: 2 hole cards to each player, a 5-card board,
// and posts blinds. sbPlayer is both the button and the small blind in
// heads-up play.
func NewRound(sbPlayer int, rng *rand.Rand) RoundState {
	deck := cards.NewDeck(rng)
	h0 := cards.NewHand(deck.Deal(2)...)
	h1 := cards.NewHand(deck.Deal(2)...)
	board := deck.Deal(5)

	bb := 1 - sbPlayer
	s := RoundState{
		Button:       sbPlayer,
		SBPlayer:     sbPlayer,
		Street:       Preflop,
		ActivePlayer: sbPlayer,
		Hands:        [2]cards.Hand{h0, h1},
		History:      [][]int{{SmallBlind, BigBlind}},
	}
	copy(s.BoardCards[:], board)
	s.Pips[sbPlayer] = SmallBlind
	s.Pips[bb] = BigBlind
	s.Stacks[sbPlayer] = StartingStack - SmallBlind
	s.Stacks[bb] = StartingStack - BigBlind
	return s
}

// VisibleBoard returns the board cards revealed so far as a Hand.
func (s RoundState) VisibleBoard() cards.Hand {
	n := int(s.Street)
	if n > 5 {
		n = 5
	}
	return cards.NewHand(s.BoardCards[:n]...)
}

// LegalActions returns the action mask available to the active player.
// Returns 0 if there is no pending decision.
func LegalActions(s RoundState) ActionMask {
	if s.Terminal || s.ActivePlayer < 0 {
		return 0
	}
	active, opp := s.ActivePlayer, 1-s.ActivePlayer
	continueCost := s.Pips[opp] - s.Pips[active]

	if continueCost <= 0 {
		if s.Stacks[active] == 0 || s.Stacks[opp] == 0 {
			return MaskCheck
		}
		return MaskCheck | MaskRaise
	}

	if continueCost >= s.Stacks[active] || s.Stacks[opp] == 0 {
		return MaskFold | MaskCall
	}
	return MaskFold | MaskCall | MaskRaise
}

// RaiseBounds returns the inclusive range of legal new-pip-target amounts
// for a Raise action. When the active player cannot meet the usual minimum
// raise, the range collapses to their all-in amount (still a legal raise).
func RaiseBounds(s RoundState) (min, max int) {
	active, opp := s.ActivePlayer, 1-s.ActivePlayer
	continueCost := s.Pips[opp] - s.Pips[active]
	if continueCost < 0 {
		continueCost = 0
	}

	increment := continueCost
	if increment < BigBlind {
		increment = BigBlind
	}

	minTotal := s.Pips[active] + continueCost + increment
	maxTotal := s.Pips[active] + minInt(s.Stacks[active], s.Stacks[opp]+continueCost)
	if minTotal > maxTotal {
		minTotal = maxTotal
	}
	return minTotal, maxTotal
}

// Proceed applies action (with amount significant only for Raise, where it
// is the new pip target) and returns the resulting state.
func Proceed(s RoundState, action Action, amount int) (RoundState, error) {
	if s.Terminal || s.ActivePlayer < 0 {
		return s, errors.New("engine: cannot act on a state with no pending decision")
	}
	mask := LegalActions(s)
	if !mask.Allows(action) {
		return s, fmt.Errorf("engine: action %s is not legal here (mask %03b)", action, mask)
	}

	active, opp := s.ActivePlayer, 1-s.ActivePlayer
	next := s.clone()

	switch action {
	case Fold:
		next.Terminal = true
		next.ActivePlayer = -1
		folderContribution := StartingStack - s.Stacks[active]
		next.Deltas[active] = -folderContribution
		next.Deltas[opp] = folderContribution
		return next, nil

	case Check:
		next.appendHistory(0)
		next.ActedThisStreet[active] = true
		return next.advanceOrPass(active), nil

	case Call:
		continueCost := s.Pips[opp] - s.Pips[active]
		if continueCost < 0 {
			continueCost = 0
		}
		next.Stacks[active] -= continueCost
		next.Pips[active] = s.Pips[opp]
		next.appendHistory(continueCost)
		next.ActedThisStreet[active] = true
		return next.advanceOrPass(active), nil

	case Raise:
		min, max := RaiseBounds(s)
		if amount < min || amount > max {
			return s, fmt.Errorf("engine: raise amount %d outside bounds [%d,%d]", amount, min, max)
		}
		contribution := amount - s.Pips[active]
		next.Stacks[active] -= contribution
		next.Pips[active] = amount
		next.appendHistory(contribution)
		next.ActedThisStreet[active] = true
		next.ActedThisStreet[opp] = false
		next.ActivePlayer = opp
		return next, nil
	}

	return s, fmt.Errorf("engine: unknown action %d", action)
}

// advanceOrPass decides whether the street is complete (advance) or the
// turn simply passes to the opponent.
func (s RoundState) advanceOrPass(justActed int) RoundState {
	if streetComplete(s) {
		return ProceedStreet(s)
	}
	s.ActivePlayer = 1 - justActed
	return s
}

func streetComplete(s RoundState) bool {
	if s.Stacks[0] == 0 && s.Stacks[1] == 0 {
		return true
	}
	return s.Pips[0] == s.Pips[1] && s.ActedThisStreet[0] && s.ActedThisStreet[1]
}

// ProceedStreet resets betting for the next street, or runs the showdown if
// the river is complete. The player to act first on a new street is always
// the non-button seat (heads-up: the big blind).
func ProceedStreet(s RoundState) RoundState {
	if s.Street == River {
		return Showdown(s)
	}

	next := s.clone()
	next.Pips = [2]int{}
	next.ActedThisStreet = [2]bool{}
	next.History = append(next.History, []int{})

	switch s.Street {
	case Preflop:
		next.Street = Flop
	case Flop:
		next.Street = Turn
	case Turn:
		next.Street = River
	}

	next.ActivePlayer = 1 - s.SBPlayer
	if next.Stacks[0] == 0 && next.Stacks[1] == 0 {
		next.ActivePlayer = -1
	}
	return next
}

// AdvanceToNextDecision repeatedly proceeds through streets that have no
// pending decision (both players all-in), stopping at either a real
// decision or a terminal state.
func AdvanceToNextDecision(s RoundState) RoundState {
	for !s.Terminal && s.ActivePlayer == -1 {
		s = ProceedStreet(s)
	}
	return s
}

// Showdown scores both hands and computes the zero-sum payoff. Because
// raise bounds never allow a bet the opponent cannot fully call, both
// players' total contributions are always equal at showdown.
func Showdown(s RoundState) RoundState {
	next := s.clone()
	next.Terminal = true
	next.ActivePlayer = -1

	board := cards.NewHand(next.BoardCards[:]...)
	h0 := handeval.Evaluate7(s.Hands[0] | board)
	h1 := handeval.Evaluate7(s.Hands[1] | board)
	contribution := StartingStack - s.Stacks[0]

	switch handeval.Compare(h0, h1) {
	case 1:
		next.Deltas = [2]int{contribution, -contribution}
	case -1:
		next.Deltas = [2]int{-contribution, contribution}
	default:
		next.Deltas = [2]int{}
	}
	return next
}

func (s RoundState) clone() RoundState {
	next := s
	next.History = make([][]int, len(s.History))
	for i, street := range s.History {
		next.History[i] = append([]int(nil), street...)
	}
	return next
}

func (s *RoundState) appendHistory(delta int) {
	last := len(s.History) - 1
	s.History[last] = append(s.History[last], delta)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
