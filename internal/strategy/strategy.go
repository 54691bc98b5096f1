// Package strategy implements the regret-matched strategy table CFR trains
// and the policy player samples from: a sharded, thread-safe map from
// InfoSet key to per-action regret and average-strategy accumulators, using
// CFR+ (regrets clamped at zero) regret matching.
//
// Persisted as whitespace-delimited text, "<key> <v0> <v1> ... <vN>" per
// line, via atomic temp-file-plus-rename so a crashed checkpoint write never
// corrupts the on-disk table. The same line format is written twice, once
// for the regret table (Save/Load, resumable training state) and once for
// the average strategy alone (ExportStrategy/LoadStrategyFile, the smaller
// artifact the online policy player actually loads).
package strategy

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/lox/rankshift/internal/fileutil"
)

const shardCount = 64
const shardMask = shardCount - 1

// NumActions is the fixed width of every strategy vector: one slot per
// abstract action, FOLD, CALL, CHECK, and the three half-pot-multiple
// raises. Slots a node cannot legally take are masked at use
// (ApplyMaskAndUniform), never resized away, so a slot index always means
// the same action no matter which concrete node visited the entry.
const NumActions = 6

// Vector is one fixed-width per-action value vector: regrets, strategy
// sums, or probabilities.
type Vector [NumActions]float64

// Entry accumulates CFR+ regrets and the average-strategy sum for one
// InfoSet.
type Entry struct {
	mu          sync.Mutex
	RegretSum   Vector
	StrategySum Vector
	Normalising float64
}

// Strategy returns the current regret-matched distribution, normalising
// only the positive part of RegretSum (CFR+) and falling back to uniform
// over all six slots when every action has non-positive regret.
func (e *Entry) Strategy() Vector {
	e.mu.Lock()
	defer e.mu.Unlock()
	var strat Vector
	total := 0.0
	for i, r := range e.RegretSum {
		if r > 0 {
			strat[i] = r
			total += r
		}
	}
	if total <= 0 {
		return uniform()
	}
	for i := range strat {
		strat[i] /= total
	}
	return strat
}

// Update accumulates this traversal's instantaneous regret and strategy
// contribution. regret is the counterfactual value (still to be scaled by
// the opposing player's reach probability, reachWeight); Regrets are
// clamped to zero (CFR+); the strategy sum is weighted by reachWeight times
// the iteration number (linear averaging), which discounts early, noisier
// iterations relative to later ones.
func (e *Entry) Update(regret, strat Vector, reachWeight float64, iteration int) {
	if iteration < 1 {
		iteration = 1
	}
	weight := reachWeight * float64(iteration)

	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range regret {
		e.RegretSum[i] += regret[i] * reachWeight
		if e.RegretSum[i] < 0 {
			e.RegretSum[i] = 0
		}
		e.StrategySum[i] += weight * strat[i]
	}
	e.Normalising += weight
}

// AverageStrategy returns the time-averaged strategy CFR converges to,
// which is what the policy player actually samples from at runtime.
func (e *Entry) AverageStrategy() Vector {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Normalising <= 0 {
		return uniform()
	}
	var strat Vector
	for i := range strat {
		strat[i] = e.StrategySum[i] / e.Normalising
	}
	return strat
}

func uniform() Vector {
	var strat Vector
	for i := range strat {
		strat[i] = 1.0 / NumActions
	}
	return strat
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// Table is a sharded, thread-safe regret-matched strategy table keyed by
// InfoSet string key (see internal/infoset.BucketFn.Key).
type Table struct {
	shards [shardCount]shard
}

// KmeansTable is the same structure, populated with InfoSet keys built from
// the learned K-means hole-strength clusters (internal/kmeans) rather than
// the three fixed bucket granularities; it needs no distinct implementation
// since both are opaque string-keyed regret tables.
type KmeansTable = Table

// New returns an empty strategy table.
func New() *Table {
	t := &Table{}
	for i := range t.shards {
		t.shards[i].entries = make(map[string]*Entry)
	}
	return t
}

// Get returns the entry for key, creating a zeroed one if this is the
// first time it has been visited.
func (t *Table) Get(key string) *Entry {
	shard := t.shardFor(key)

	shard.mu.RLock()
	entry, ok := shard.entries[key]
	shard.mu.RUnlock()
	if ok {
		return entry
	}

	shard.mu.Lock()
	defer shard.mu.Unlock()
	if entry, ok = shard.entries[key]; ok {
		return entry
	}
	entry = &Entry{}
	shard.entries[key] = entry
	return entry
}

// Lookup returns the entry for key without creating one, and whether it was
// found. The online policy player uses this (rather than Get) to detect the
// "CFR never saw this bucket" case, which falls through to the hand-coded
// fallback policy instead of querying a freshly created uniform entry.
func (t *Table) Lookup(key string) (*Entry, bool) {
	shard := t.shardFor(key)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	entry, ok := shard.entries[key]
	return entry, ok
}

// Size reports how many InfoSets the table has visited.
func (t *Table) Size() int {
	total := 0
	for i := range t.shards {
		t.shards[i].mu.RLock()
		total += len(t.shards[i].entries)
		t.shards[i].mu.RUnlock()
	}
	return total
}

// Each calls fn once per visited InfoSet, in no particular order. Used by
// the offline export/debug tooling that needs to walk every entry rather
// than look one up by key.
func (t *Table) Each(fn func(key string, e *Entry)) {
	for i := range t.shards {
		t.shards[i].mu.RLock()
		for k, e := range t.shards[i].entries {
			fn(k, e)
		}
		t.shards[i].mu.RUnlock()
	}
}

func (t *Table) shardFor(key string) *shard {
	return &t.shards[hashKey(key)&shardMask]
}

func hashKey(key string) uint32 {
	const offset32 = 2166136261
	const prime32 = 16777619
	var hash uint32 = offset32
	for i := 0; i < len(key); i++ {
		hash ^= uint32(key[i])
		hash *= prime32
	}
	return hash
}

// ApplyMaskAndUniform zeroes the probability of every slot mask marks
// illegal and renormalises the rest; if the masked distribution has no
// mass left, the legal slots split uniformly. With no legal slot at all it
// returns the zero vector.
func ApplyMaskAndUniform(strat Vector, mask [NumActions]bool) Vector {
	var out Vector
	total := 0.0
	legal := 0
	for i, p := range strat {
		if !mask[i] {
			continue
		}
		out[i] = p
		total += p
		legal++
	}
	if legal == 0 {
		return out
	}
	if total <= 0 {
		v := 1.0 / float64(legal)
		for i := range out {
			if mask[i] {
				out[i] = v
			}
		}
		return out
	}
	for i := range out {
		out[i] /= total
	}
	return out
}

// writeKeyVectorFile writes rows to path in the canonical "<key> <v0> <v1>
// ... <vN>" line format, one line per key in sorted order (so repeated
// Save calls against an unchanged table produce byte-identical output),
// via an atomic temp-file-plus-rename.
func writeKeyVectorFile(path string, rows map[string][]float64) error {
	keys := make([]string, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		for _, v := range rows[k] {
			b.WriteByte(' ')
			b.WriteString(strconv.FormatFloat(v, 'f', 8, 64))
		}
		b.WriteByte('\n')
	}
	return fileutil.WriteFileAtomic(path, []byte(b.String()), 0o644)
}

// readKeyVectorFile reads a file written by writeKeyVectorFile.
func readKeyVectorFile(path string) (map[string][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("strategy: open %s: %w", path, err)
	}
	defer f.Close()

	rows := make(map[string][]float64)
	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 2 {
			return nil, fmt.Errorf("strategy: %s:%d: expected key plus at least one value", path, line)
		}
		key := fields[0]
		values := make([]float64, len(fields)-1)
		for i, field := range fields[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("strategy: %s:%d: invalid value %q: %w", path, line, field, err)
			}
			values[i] = v
		}
		rows[key] = values
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("strategy: scan %s: %w", path, err)
	}
	return rows, nil
}

// Save persists the table's regret sums to path in the canonical
// whitespace-delimited "<key> <r0> <r1> ... <rN>" format. The average
// strategy and iteration-weighting state are not persisted here: a table
// reloaded via Load resumes regret matching but starts its average-strategy
// accumulation fresh, which only affects how many iterations of warmup the
// resumed run needs before its average strategy is reliable again, not the
// correctness of further training.
func (t *Table) Save(path string) error {
	rows := make(map[string][]float64)
	for i := range t.shards {
		t.shards[i].mu.RLock()
		for k, e := range t.shards[i].entries {
			e.mu.Lock()
			regret := e.RegretSum
			e.mu.Unlock()
			rows[k] = regret[:]
		}
		t.shards[i].mu.RUnlock()
	}
	return writeKeyVectorFile(path, rows)
}

// Load reads a table previously written by Save. Entries resume with their
// regret sums intact and a zeroed average-strategy accumulator. Rows whose
// vector is not exactly NumActions wide are rejected: a slot index must
// always mean the same action.
func Load(path string) (*Table, error) {
	rows, err := readKeyVectorFile(path)
	if err != nil {
		return nil, err
	}
	t := New()
	for k, regret := range rows {
		vec, err := toVector(path, k, regret)
		if err != nil {
			return nil, err
		}
		t.shardFor(k).entries[k] = &Entry{RegretSum: vec}
	}
	return t, nil
}

func toVector(path, key string, values []float64) (Vector, error) {
	var vec Vector
	if len(values) != NumActions {
		return vec, fmt.Errorf("strategy: %s: key %q has %d values, want %d", path, key, len(values), NumActions)
	}
	copy(vec[:], values)
	return vec, nil
}

// ExportStrategy writes the table's average strategy in the same canonical
// whitespace-delimited format as Save, one line per key, "<key> <p0> <p1>
// ... <pN>". This is the smaller artifact the online policy player actually
// loads (LoadStrategyFile); Save/Load above persist the regret table a
// resumed training run needs instead.
func (t *Table) ExportStrategy(path string) error {
	rows := make(map[string][]float64)
	for i := range t.shards {
		t.shards[i].mu.RLock()
		for k, e := range t.shards[i].entries {
			avg := e.AverageStrategy()
			rows[k] = avg[:]
		}
		t.shards[i].mu.RUnlock()
	}
	return writeKeyVectorFile(path, rows)
}

// LoadStrategyFile reads a file written by ExportStrategy into a table whose
// entries carry only an average strategy (no regret state), suitable for
// the online player's read-only use but not for resuming training.
func LoadStrategyFile(path string) (*Table, error) {
	rows, err := readKeyVectorFile(path)
	if err != nil {
		return nil, err
	}
	t := New()
	for k, probs := range rows {
		vec, err := toVector(path, k, probs)
		if err != nil {
			return nil, err
		}
		t.shardFor(k).entries[k] = &Entry{
			StrategySum: vec,
			Normalising: 1,
		}
	}
	return t, nil
}
