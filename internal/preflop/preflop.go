// Package preflop loads the pre-computed heads-up preflop equity lookup the
// particle filter needs at every preflop decision: rather than running a
// Monte-Carlo estimate for every particle on every preflop decision, the
// particle filter substitutes a lookup of a hand's win probability against a
// uniformly random opponent hand, keyed by the exact two-card hand string.
//
// The table is not computed at runtime; it ships as a 2652-line (52*51
// ordered hole-card pairs) text file. cmd/genpreflop generates it.
package preflop

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/lox/rankshift/internal/cards"
)

// Table maps a two-card hand string (e.g. "AsKd") to its equity against a
// uniformly random opponent holding, heads-up, preflop.
type Table map[string]float32

// Load reads a whitespace-delimited "<hand_string> <ev>" file.
func Load(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("preflop: open %s: %w", path, err)
	}
	defer f.Close()

	t := make(Table, 2652)
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
			return nil, fmt.Errorf("preflop: %s:%d: expected 2 fields, got %d", path, line, len(fields))
		}
		ev, err := strconv.ParseFloat(fields[1], 32)
		if err != nil {
			return nil, fmt.Errorf("preflop: %s:%d: invalid equity %q: %w", path, line, fields[1], err)
		}
		t[fields[0]] = float32(ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("preflop: scan %s: %w", path, err)
	}
	return t, nil
}

// Save writes t back out in the same "<hand_string> <ev>" format, via a
// plain, non-atomic write in map iteration order (the file is regenerated wholesale, never patched in
// place, so atomic rename is unnecessary here unlike internal/strategy).
func Save(path string, t Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("preflop: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for hand, ev := range t {
		if _, err := fmt.Fprintf(w, "%s %.6f\n", hand, ev); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Key builds the lookup string for a two-card hand, concatenating its
// cards in the deterministic ascending bit-position order cards.Hand.Cards
// always produces.
func Key(hole cards.Hand) (string, bool) {
	if hole.CountCards() != 2 {
		return "", false
	}
	return hole.GetCard(0).String() + hole.GetCard(1).String(), true
}

// Lookup returns the stored equity for hole, and whether it was found.
func (t Table) Lookup(hole cards.Hand) (float32, bool) {
	key, ok := Key(hole)
	if !ok {
		return 0, false
	}
	ev, ok := t[key]
	return ev, ok
}
