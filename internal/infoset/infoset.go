// Package infoset builds the abstracted information-set keys CFR trains
// over and the policy player looks up at decision time: the acting
// player's blind position, the street, a hole-strength bucket, and the bet
// history classified into a small discrete action vocabulary, joined into
// one printable string key.
//
// The three interchangeable granularities (Small/Medium/Large) plus a
// K-means variant are modeled as a single BucketFn sum type rather than
// four separate call sites, so the CFR inner loop pays one switch instead
// of an indirect call.
package infoset

import (
	"strconv"
	"strings"

	"github.com/lox/rankshift/internal/cards"
	"github.com/lox/rankshift/internal/engine"
)

// maxActionsPerStreet is the wrap width of the betting abstraction: a
// street's actions beyond this many are folded into the last two slots so
// acting parity is preserved.
const maxActionsPerStreet = 4

// smallCurrentSlots is how many current-street actions the Small variant
// enumerates individually before wrapping.
const smallCurrentSlots = 6

// Action-slot vocabulary. A raise is classed by its chip delta as a
// fraction of the pot before the action: at or below a quarter pot
// (a clamped minimum raise) is "?P", at or below three quarters is the
// half-pot class, at or below one and a half is the pot class, and
// anything larger is the two-pot class.
const (
	slotEmpty    = "x"
	slotCheck    = "CK"
	slotCall     = "CL"
	slotRaiseMin = "?P"
	slotRaiseHP  = "HP"
	slotRaise1P  = "1P"
	slotRaise2P  = "2P"
	slotRaised   = "R" // Small-variant prior-street indicator
)

// Granularity selects which bucketing scheme a BucketFn implements.
type Granularity int

const (
	Small Granularity = iota
	Medium
	Large
	Kmeans
)

// KmeansLookup resolves a hand's strength vector to a learned cluster id; it
// is supplied by the offline internal/kmeans component and is nil for the
// three fixed granularities.
type KmeansLookup func(hole cards.Hand, board cards.Hand) int

// BucketFn maps an infoset into its abstraction key, at whatever
// granularity it was built for.
type BucketFn struct {
	granularity Granularity
	holeBuckets int
	lookup      KmeansLookup
}

// NewFixedBucketFn returns a BucketFn for one of the three fixed
// granularities. holeBuckets is the equity-quantile count of the
// hole-strength slot (5, 7, and 10 are the shipped configurations).
func NewFixedBucketFn(g Granularity, holeBuckets int) BucketFn {
	return BucketFn{granularity: g, holeBuckets: holeBuckets}
}

// NewKmeansBucketFn wraps a learned cluster lookup as a BucketFn.
func NewKmeansBucketFn(lookup KmeansLookup) BucketFn {
	return BucketFn{granularity: Kmeans, lookup: lookup}
}

// InfoSet is everything the abstraction keys on: the acting player's
// equity estimate and blind position, the street, the hole and board
// cards (used only by the K-means lookup), and the flex bet history
// (per-street chip deltas, History[0][:2] being the forced blinds).
type InfoSet struct {
	Equity     float64
	SmallBlind bool
	Street     engine.Street
	Hole       cards.Hand
	Board      cards.Hand
	History    [][]int
}

// Bucket computes the hole-strength slot value. For the three fixed
// granularities this is an equity-quantile cell over the caller's equity
// estimate; raw rank labels are never bucketed directly, since in the
// permuted-rank game the online labels say nothing about true strength;
// only an equity estimate (marginalised over the particle filter online,
// sampled directly during training on the un-permuted game) stays
// meaningful on both sides of the train/play divide.
func (f BucketFn) Bucket(equity float64, hole, board cards.Hand) int {
	if f.granularity == Kmeans {
		return f.lookup(hole, board)
	}
	return equityQuantile(equity, f.holeBuckets)
}

// Key builds the full abstraction key for is. Two infosets that should
// share a strategy produce identical keys; in particular two raises whose
// amounts fall in the same pot-fraction class are indistinguishable.
func (f BucketFn) Key(is InfoSet) string {
	hs := f.Bucket(is.Equity, is.Hole, is.Board)
	if f.granularity == Small {
		return join(bucketSmall(is, hs))
	}
	return join(bucketBetting16(is, hs))
}

// equityQuantile maps an equity estimate in [0,1] to one of buckets
// equal-width quantile cells.
func equityQuantile(equity float64, buckets int) int {
	if buckets <= 0 {
		return 0
	}
	b := int(equity * float64(buckets))
	if b >= buckets {
		b = buckets - 1
	}
	if b < 0 {
		b = 0
	}
	return b
}

func positionSlot(smallBlind bool) string {
	if smallBlind {
		return "SB"
	}
	return "BB"
}

func streetSlot(s engine.Street) string {
	switch s {
	case engine.Preflop:
		return "P"
	case engine.Flop:
		return "F"
	case engine.Turn:
		return "T"
	default:
		return "R"
	}
}

// bucketBetting16 is the 19-slot encoding: position, street letter,
// hole-strength bucket, then four action slots per street for four
// streets, padded with "x".
func bucketBetting16(is InfoSet, hs int) []string {
	slots := make([]string, 0, 19)
	slots = append(slots, positionSlot(is.SmallBlind), streetSlot(is.Street), strconv.Itoa(hs))

	labels := classifyHistory(is.History)
	for street := 0; street < 4; street++ {
		var streetLabels []string
		if street < len(labels) {
			streetLabels = labels[street]
		}
		for a := 0; a < maxActionsPerStreet; a++ {
			if a < len(streetLabels) {
				slots = append(slots, streetLabels[a])
			} else {
				slots = append(slots, slotEmpty)
			}
		}
	}
	return slots
}

// bucketSmall is the coarser 15-slot encoding: the same three header
// slots, then one raised/quiet indicator per side for each of the up to
// three completed prior streets, then the current street's actions
// enumerated individually. A check in the current street is only recorded
// as CK when it opens the street and either the opponent made it or a bet
// followed it; a leading own-check with no bet behind carries no strategic
// information and stays "x".
func bucketSmall(is InfoSet, hs int) []string {
	slots := make([]string, 0, 15)
	slots = append(slots, positionSlot(is.SmallBlind), streetSlot(is.Street), strconv.Itoa(hs))

	labels := classifyHistory(is.History)
	current := len(labels) - 1
	if current < 0 {
		current = 0
	}

	for street := 0; street < 3; street++ {
		side0, side1 := slotEmpty, slotEmpty
		if street < current {
			for a, l := range labels[street] {
				if !isRaiseLabel(l) {
					continue
				}
				if a%2 == 0 {
					side0 = slotRaised
				} else {
					side1 = slotRaised
				}
			}
		}
		slots = append(slots, side0, side1)
	}

	var cur []string
	if current < len(labels) {
		cur = labels[current]
	}
	for a := 0; a < smallCurrentSlots; a++ {
		label := slotEmpty
		if a < len(cur) {
			label = cur[a]
			if label == slotCheck && !keepCheck(a, cur, is, current) {
				label = slotEmpty
			}
		}
		slots = append(slots, label)
	}
	return slots
}

// keepCheck applies the Small variant's opening-check rule: CK only when
// the check is the street's first action and either it was the opponent's
// or a bet follows it.
func keepCheck(offset int, labels []string, is InfoSet, street int) bool {
	if offset != 0 {
		return false
	}
	// Parity 0 acts first: the small blind preflop, the big blind after.
	firstActorIsSB := street == 0
	isPlayer := firstActorIsSB == is.SmallBlind
	if !isPlayer {
		return true
	}
	for _, l := range labels[1:] {
		if isRaiseLabel(l) {
			return true
		}
	}
	return false
}

func isRaiseLabel(l string) bool {
	switch l {
	case slotRaiseMin, slotRaiseHP, slotRaise1P, slotRaise2P:
		return true
	}
	return false
}

// classifyHistory walks the flex history street by street, replaying the
// per-street pips to label every chip delta as a check, call, or
// pot-fraction raise class. The preflop blinds seed the pips but are not
// action slots themselves, and any street's actions beyond the wrap width
// are folded into its last two slots so parity is preserved.
func classifyHistory(history [][]int) [][]string {
	pot := 0
	out := make([][]string, len(history))
	for si, deltas := range history {
		acts := deltas
		var pips [2]int
		if si == 0 {
			if len(acts) >= 2 {
				pips[0], pips[1] = acts[0], acts[1]
				pot += acts[0] + acts[1]
				acts = acts[2:]
			} else {
				acts = nil
			}
		}
		acts = wrapActions(acts)

		labels := make([]string, 0, len(acts))
		for j, d := range acts {
			me, opp := j%2, (j+1)%2
			cc := pips[opp] - pips[me]
			if cc < 0 {
				cc = 0
			}
			switch {
			case d == 0:
				labels = append(labels, slotCheck)
			case d <= cc:
				labels = append(labels, slotCall)
			default:
				labels = append(labels, raiseClass(d, pot))
			}
			pips[me] += d
			pot += d
		}
		out[si] = labels
	}
	return out
}

// wrapActions folds a street's actions beyond maxActionsPerStreet into the
// last two slots, each extra delta merging into the slot of its own
// parity.
func wrapActions(acts []int) []int {
	if len(acts) <= maxActionsPerStreet {
		return acts
	}
	wrapped := append([]int(nil), acts[:maxActionsPerStreet]...)
	for j := maxActionsPerStreet; j < len(acts); j++ {
		wrapped[maxActionsPerStreet-2+j%2] += acts[j]
	}
	return wrapped
}

// raiseClass buckets a raise's chip delta by its fraction of the pot
// before the action.
func raiseClass(delta, potBefore int) string {
	if potBefore <= 0 {
		return slotRaise2P
	}
	frac := float64(delta) / float64(potBefore)
	switch {
	case frac <= 0.25:
		return slotRaiseMin
	case frac <= 0.75:
		return slotRaiseHP
	case frac <= 1.5:
		return slotRaise1P
	default:
		return slotRaise2P
	}
}

// join serializes a slot array into the printable key: the three header
// slots joined with ".", then the action slots joined with "|".
func join(slots []string) string {
	var b strings.Builder
	for i, s := range slots {
		if i > 0 {
			if i <= 3 {
				b.WriteByte('.')
			} else {
				b.WriteByte('|')
			}
		}
		b.WriteString(s)
	}
	return b.String()
}
