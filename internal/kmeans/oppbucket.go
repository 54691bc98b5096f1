package kmeans

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"math/rand/v2"

	"github.com/lox/rankshift/internal/cards"
	"github.com/lox/rankshift/internal/equity"
)

// Buckets maps each of the 169 canonical starting-hand labels ("AA", "AKs",
// "72o") to an opponent-strength bucket id in 1..VectorDims.
type Buckets map[string]int

// NumHandLabels is the number of canonical heads-up starting hands: 13
// pairs, 78 suited and 78 offsuit combinations.
const NumHandLabels = 169

// CanonicalLabel folds a two-card hand down to its 169-class label: ranks
// high-first, suffixed "s" for suited and "o" for offsuit, no suffix for
// pairs.
func CanonicalLabel(hole cards.Hand) (string, bool) {
	if hole.CountCards() != 2 {
		return "", false
	}
	a, b := hole.GetCard(0), hole.GetCard(1)
	hi, lo := a, b
	if lo.Rank() > hi.Rank() {
		hi, lo = lo, hi
	}
	switch {
	case hi.Rank() == lo.Rank():
		return hi.Rank().String() + lo.Rank().String(), true
	case hi.Suit() == lo.Suit():
		return hi.Rank().String() + lo.Rank().String() + "s", true
	default:
		return hi.Rank().String() + lo.Rank().String() + "o", true
	}
}

// ComboForLabel returns one concrete two-card hand belonging to label:
// spade/heart for pairs and offsuit hands, both spades for suited ones.
func ComboForLabel(label string) (cards.Hand, bool) {
	if len(label) < 2 || len(label) > 3 {
		return 0, false
	}
	hi, err := cards.Parse(string(label[0]) + "s")
	if err != nil {
		return 0, false
	}
	loSuit := "h"
	if len(label) == 3 {
		switch label[2] {
		case 's':
			loSuit = "s"
		case 'o':
			loSuit = "h"
		default:
			return 0, false
		}
	}
	lo, err := cards.Parse(string(label[1]) + loSuit)
	if err != nil {
		return 0, false
	}
	if hi == lo {
		return 0, false
	}
	return cards.NewHand(hi, lo), true
}

// HandLabels enumerates all 169 canonical labels, pairs first, then suited
// and offsuit combinations, each ordered high rank first.
func HandLabels() []string {
	out := make([]string, 0, NumHandLabels)
	for hi := cards.Ace; ; hi-- {
		out = append(out, hi.String()+hi.String())
		if hi == cards.Two {
			break
		}
	}
	for hi := cards.Ace; hi > cards.Two; hi-- {
		for lo := hi - 1; ; lo-- {
			out = append(out, hi.String()+lo.String()+"s")
			out = append(out, hi.String()+lo.String()+"o")
			if lo == cards.Two {
				break
			}
		}
	}
	return out
}

// GenerateBuckets splits the 169 starting hands into VectorDims
// equal-quantile strength classes by each label's preflop equity against a
// random holding, bucket 1 being the weakest class.
func GenerateBuckets(ctx context.Context, itersPerLabel int, rng *rand.Rand) Buckets {
	labels := HandLabels()
	type scored struct {
		label string
		ev    float32
	}
	all := make([]scored, 0, len(labels))
	for _, label := range labels {
		combo, ok := ComboForLabel(label)
		if !ok {
			continue
		}
		ev := equity.Estimate(ctx, equity.Query{Hero: combo}, itersPerLabel, rng)
		if ev < 0 {
			ev = 0.5
		}
		all = append(all, scored{label: label, ev: ev})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ev < all[j].ev })

	b := make(Buckets, len(all))
	for i, s := range all {
		id := 1 + i*VectorDims/len(all)
		if id > VectorDims {
			id = VectorDims
		}
		b[s.label] = id
	}
	return b
}

// BucketFor resolves a concrete two-card hand to its bucket id.
func BucketFor(b Buckets, hole cards.Hand) (int, bool) {
	label, ok := CanonicalLabel(hole)
	if !ok {
		return 0, false
	}
	id, ok := b[label]
	return id, ok
}

// ArchetypesFromBuckets picks one concrete representative hand per bucket:
// the lexically middle member label, so the choice is deterministic and
// sits away from the bucket's edges. Buckets with no members keep the
// built-in archetype for that dimension.
func ArchetypesFromBuckets(b Buckets) [VectorDims]cards.Hand {
	members := make([][]string, VectorDims+1)
	for label, id := range b {
		if id < 1 || id > VectorDims {
			continue
		}
		members[id] = append(members[id], label)
	}

	out := RepresentativeHands()
	for id := 1; id <= VectorDims; id++ {
		if len(members[id]) == 0 {
			continue
		}
		sort.Strings(members[id])
		if combo, ok := ComboForLabel(members[id][len(members[id])/2]); ok {
			out[id-1] = combo
		}
	}
	return out
}

// SaveBuckets writes b as "<hand_label> <bucket_id>" lines, sorted by
// label.
func SaveBuckets(path string, b Buckets) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("kmeans: create %s: %w", path, err)
	}
	defer f.Close()

	labels := make([]string, 0, len(b))
	for label := range b {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	w := bufio.NewWriter(f)
	for _, label := range labels {
		fmt.Fprintf(w, "%s %d\n", label, b[label])
	}
	return w.Flush()
}

// LoadBuckets reads a file written by SaveBuckets.
func LoadBuckets(path string) (Buckets, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("kmeans: open %s: %w", path, err)
	}
	defer f.Close()

	b := make(Buckets, NumHandLabels)
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("kmeans: %s:%d: expected 2 fields, got %d", path, line, len(fields))
		}
		id, err := strconv.Atoi(fields[1])
		if err != nil || id < 1 || id > VectorDims {
			return nil, fmt.Errorf("kmeans: %s:%d: invalid bucket id %q", path, line, fields[1])
		}
		b[fields[0]] = id
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("kmeans: scan %s: %w", path, err)
	}
	return b, nil
}
