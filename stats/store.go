package stats

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"
)

// Key is implemented by the lookup keys of a Store. Distance ranks keys
// during nearest-key fallback, Less breaks distance ties.
type Key[K any] interface {
	comparable
	Distance(other K) float64
	Less(other K) bool
}

// Size keys loop and tail populations by base pair length.
type Size int

func (s Size) Distance(other Size) float64 { return absDiff(s, other) }
func (s Size) Less(other Size) bool        { return s < other }

// StemKey keys the stem population. Both halves hold the base pair length of
// the stem.
type StemKey struct {
	A, B int
}

func (k StemKey) Distance(other StemKey) float64 {
	return math.Hypot(absDiff(k.A, other.A), absDiff(k.B, other.B))
}

func (k StemKey) Less(other StemKey) bool {
	if k.A != other.A {
		return k.A < other.A
	}
	return k.B < other.B
}

func (k StemKey) String() string { return fmt.Sprintf("(%d, %d)", k.A, k.B) }

// AngleKey keys angle populations. Distance only looks at the sizes, callers
// filter on AngleType.
type AngleKey struct {
	Size1, Size2 int
	AngleType    int
}

// Mirror returns the key of the same junction with the helices swapped.
func (k AngleKey) Mirror() AngleKey {
	return AngleKey{Size1: k.Size2, Size2: k.Size1, AngleType: -k.AngleType}
}

func (k AngleKey) Distance(other AngleKey) float64 {
	return math.Hypot(absDiff(k.Size1, other.Size1), absDiff(k.Size2, other.Size2))
}

func (k AngleKey) Less(other AngleKey) bool {
	switch {
	case k.Size1 != other.Size1:
		return k.Size1 < other.Size1
	case k.Size2 != other.Size2:
		return k.Size2 < other.Size2
	default:
		return k.AngleType < other.AngleType
	}
}

func (k AngleKey) String() string {
	return fmt.Sprintf("(%d, %d, %d)", k.Size1, k.Size2, k.AngleType)
}

func absDiff[T constraints.Integer](a, b T) float64 {
	if a > b {
		return float64(a - b)
	}
	return float64(b - a)
}

// Candidate is a key ranked by its distance to a query.
type Candidate[K any] struct {
	Distance float64
	Key      K
}

// rank orders keys by distance to query, ties by key order.
func rank[K Key[K]](keys []K, query K, keep func(K) bool) []Candidate[K] {
	slices.SortFunc(keys, func(a, b K) bool { return a.Less(b) })
	out := make([]Candidate[K], 0, len(keys))
	for _, k := range keys {
		if keep != nil && !keep(k) {
			continue
		}
		out = append(out, Candidate[K]{Distance: query.Distance(k), Key: k})
	}
	slices.SortStableFunc(out, func(a, b Candidate[K]) bool { return a.Distance < b.Distance })
	return out
}

// Store maps keys to buckets of records. It is filled once while a corpus is
// loaded and read-only afterwards.
type Store[K Key[K], R any] struct {
	buckets map[K][]R
	size    int
}

// NewStore returns an empty store.
func NewStore[K Key[K], R any]() *Store[K, R] {
	return &Store[K, R]{buckets: make(map[K][]R)}
}

// Add appends r to the bucket of k.
func (s *Store[K, R]) Add(k K, r R) {
	s.buckets[k] = append(s.buckets[k], r)
	s.size++
}

// Exact returns the bucket of k, nil if there is none. The returned slice
// must not be modified.
func (s *Store[K, R]) Exact(k K) []R {
	return s.buckets[k]
}

// Keys returns the keys with a bucket, in key order.
func (s *Store[K, R]) Keys() []K {
	keys := make([]K, 0, len(s.buckets))
	for k := range s.buckets {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b K) bool { return a.Less(b) })
	return keys
}

// Len returns the number of records in the store.
func (s *Store[K, R]) Len() int { return s.size }

// Nearest returns every key ranked by ascending distance to query.
func (s *Store[K, R]) Nearest(query K) []Candidate[K] {
	return rank(s.Keys(), query, nil)
}

// StemStore holds stems by StemKey{bp, bp}.
type StemStore = Store[StemKey, *StemRecord]

// LoopStore holds hairpins or tails by base pair length.
type LoopStore = Store[Size, *LoopRecord]

const maxLineSize = 1 << 20

// scanCorpus calls fn for every non blank line starting with tag. Lines are
// numbered from 1.
func scanCorpus(r io.Reader, tag Tag, fn func(n int, line string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || firstField(line) != string(tag) {
			continue
		}
		if err := fn(n, line); err != nil {
			return err
		}
	}
	return sc.Err()
}

func firstField(line string) string {
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		return line[:i]
	}
	return line
}

// LoadStemStore reads every stem line of a corpus. Malformed lines are
// logged and skipped.
func LoadStemStore(r io.Reader) (*StemStore, error) {
	store := NewStore[StemKey, *StemRecord]()
	err := scanCorpus(r, TagStem, func(n int, line string) error {
		rec, err := ParseStemRecord(line)
		if err != nil {
			logSkipped(n, err)
			return nil
		}
		store.Add(StemKey{A: rec.BasePairLength, B: rec.BasePairLength}, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading stem statistics: %w", err)
	}
	return store, nil
}

// LoadLoopStore reads every line tagged tag (TagLoop, TagFivePrime or
// TagThreePrime) of a corpus. Malformed lines are logged and skipped.
func LoadLoopStore(r io.Reader, tag Tag) (*LoopStore, error) {
	if !slices.Contains([]Tag{TagLoop, TagFivePrime, TagThreePrime}, tag) {
		return nil, fmt.Errorf("%q does not tag loop statistics", tag)
	}
	store := NewStore[Size, *LoopRecord]()
	err := scanCorpus(r, tag, func(n int, line string) error {
		rec, err := ParseLoopRecord(line)
		if err != nil {
			logSkipped(n, err)
			return nil
		}
		store.Add(Size(rec.BasePairLength), rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading %s statistics: %w", tag, err)
	}
	return store, nil
}

func logSkipped(n int, err error) {
	logger.Warnf("skipping corpus line: %v", withLine(n, err))
}

// ReadStemStore opens path and loads its stems.
func ReadStemStore(path string) (*StemStore, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return LoadStemStore(fh)
}

// ReadLoopStore opens path and loads its lines tagged tag.
func ReadLoopStore(path string, tag Tag) (*LoopStore, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return LoadLoopStore(fh, tag)
}
