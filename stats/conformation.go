package stats

import (
	"fmt"
)

// DefaultMinEntries is the number of records a lookup tries to exceed before
// it stops gathering buckets of more distant keys.
const DefaultMinEntries = 10

// Sampler returns the statistics compatible with an element.
type Sampler interface {
	SampleStats(el Element, minEntries int) ([]Record, error)
}

// ConformationStats answers, for any element, which recorded statistics may
// describe it.
type ConformationStats struct {
	Stems      *StemStore
	Loops      *LoopStore
	FivePrime  *LoopStore
	ThreePrime *LoopStore
	Angles     AngleSource
	// MinEntries is the threshold used when SampleStats is called with a
	// negative one.
	MinEntries int

	metrics *Metrics
}

// Option configures a ConformationStats.
type Option func(*ConformationStats)

// WithMetrics makes the statistics count their lookups in m.
func WithMetrics(m *Metrics) Option {
	return func(s *ConformationStats) { s.metrics = m }
}

// WithMinEntries sets the default threshold of SampleStats.
func WithMinEntries(n int) Option {
	return func(s *ConformationStats) { s.MinEntries = n }
}

// NewConformationStats bundles the populations of one corpus. angles is
// either an *AngleIndex or a *ClusteredAngleIndex.
func NewConformationStats(stems *StemStore, loops, fivePrime, threePrime *LoopStore, angles AngleSource, opts ...Option) *ConformationStats {
	s := &ConformationStats{
		Stems:      stems,
		Loops:      loops,
		FivePrime:  fivePrime,
		ThreePrime: threePrime,
		Angles:     angles,
		MinEntries: DefaultMinEntries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ConstrainStats would restrict the statistics of single elements to the
// ones listed in path. It is not supported yet.
func (s *ConformationStats) ConstrainStats(path string) error {
	return fmt.Errorf("constraining statistics with %s: %w", path, ErrNotImplemented)
}

// SampleStats returns the statistics compatible with el.
//
// Stems only match their exact length. Every other element gathers the
// complete buckets of the closest keys, nearest first, until more than
// minEntries records are gathered or the keys run out. The result may
// therefore hold more than minEntries records. It is never empty: when
// nothing matches a *LookupError is returned. A negative minEntries stands
// for s.MinEntries.
func (s *ConformationStats) SampleStats(el Element, minEntries int) ([]Record, error) {
	if minEntries < 0 {
		minEntries = s.MinEntries
	}
	var (
		out        []Record
		used       int
		candidates int
		available  []string
		exact      bool
	)

	switch el := el.(type) {
	case Stem:
		key := StemKey{A: el.Length, B: el.Length}
		if s.Stems != nil {
			out = records(s.Stems.Exact(key))
			available = keyStrings(s.Stems.Keys())
		}
		candidates, used, exact = 1, 0, true
	case Junction:
		if s.Angles != nil {
			cands := s.Angles.NearestKeys(el.Size1, el.Size2, el.AngleType)
			out, used = accumulate(cands, s.Angles.Bucket, minEntries)
			candidates, exact = len(cands), used == 1 && cands[0].Distance == 0
		}
	case Hairpin:
		out, candidates, used, exact = s.sampleLoops(s.Loops, el.Length, minEntries)
	case ThreePrime:
		out, candidates, used, exact = s.sampleLoops(s.ThreePrime, el.Length, minEntries)
	case FivePrime:
		out, candidates, used, exact = s.sampleLoops(s.FivePrime, el.Length, minEntries)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownElement, el)
	}

	if len(out) == 0 {
		s.metrics.observe(el.kind(), "miss", 0)
		lerr := &LookupError{
			Element:    el.ElementName(),
			Dims:       el.Dims(),
			Candidates: candidates,
			Available:  available,
		}
		if j, ok := el.(Junction); ok {
			lerr.AngleType, lerr.HasAngleType = j.AngleType, true
		}
		return nil, lerr
	}
	result := "fallback"
	if exact {
		result = "exact"
	}
	s.metrics.observe(el.kind(), result, used)
	return out, nil
}

func (s *ConformationStats) sampleLoops(store *LoopStore, length, minEntries int) (out []Record, candidates, used int, exact bool) {
	if store == nil {
		return nil, 0, 0, false
	}
	cands := store.Nearest(Size(length))
	out, used = accumulate(cands, store.Exact, minEntries)
	return out, len(cands), used, used == 1 && cands[0].Distance == 0
}

// accumulate appends whole buckets of cands in order while at most
// minEntries records are gathered. It returns the records and the number of
// buckets used.
func accumulate[K any, R Record](cands []Candidate[K], bucket func(K) []R, minEntries int) ([]Record, int) {
	var (
		out  []Record
		used int
	)
	for _, c := range cands {
		if len(out) > minEntries {
			break
		}
		out = append(out, records(bucket(c.Key))...)
		used++
	}
	return out, used
}

func records[R Record](rs []R) []Record {
	out := make([]Record, 0, len(rs))
	for _, r := range rs {
		out = append(out, r)
	}
	return out
}

func keyStrings[K fmt.Stringer](keys []K) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.String())
	}
	return out
}
