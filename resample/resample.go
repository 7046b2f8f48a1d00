/*
Package resample generates synthetic angle statistics from a discrete angle
population, for keys whose recorded observations are too few to sample from
directly.

Two models are provided. BoundedUniform draws every parameter independently
between the smallest and largest value observed for a key. KDE fits a
gaussian kernel density estimate over the six parameters of a key and draws
from it.
*/
package resample

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/abondrn/rnastats/stats"
	"github.com/lunny/log"
	"golang.org/x/exp/rand"
	"golang.org/x/exp/slices"
)

// ErrNoModel is returned when sampling a key that has no model. It matches
// stats.ErrLookup.
var ErrNoModel = fmt.Errorf("%w: no generative model", stats.ErrLookup)

const logPrefix = "[rnastats/resample] "

var logger = log.New(os.Stderr, logPrefix, log.LstdFlags)

// SetLogOutput redirects the diagnostics of this package, such as keys left
// without a density, to w.
func SetLogOutput(w io.Writer) {
	logger = log.New(w, logPrefix, log.LstdFlags)
}

// Model generates angle records.
type Model interface {
	// Sample returns a synthetic record for key. Only the sizes, the angle
	// type and the six parameters are set.
	Sample(key stats.AngleKey) (*stats.AngleRecord, error)
	// Keys returns the modeled keys in key order.
	Keys() []stats.AngleKey
}

// Population is the discrete angle population a model is built from. Both
// stats.AngleIndex and stats.ClusteredAngleIndex are populations.
type Population interface {
	Keys() []stats.AngleKey
	Exact(key stats.AngleKey) []*stats.AngleRecord
}

const dims = 6

func observations(recs []*stats.AngleRecord) [][dims]float64 {
	out := make([][dims]float64, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.Params())
	}
	return out
}

func synthetic(key stats.AngleKey, p [dims]float64) *stats.AngleRecord {
	return &stats.AngleRecord{
		Size1:     key.Size1,
		Size2:     key.Size2,
		AngleType: key.AngleType,
		U:         p[0],
		V:         p[1],
		T:         p[2],
		R1:        p[3],
		U1:        p[4],
		V1:        p[5],
	}
}

func sortedKeys[M ~map[stats.AngleKey]V, V any](m M) []stats.AngleKey {
	keys := make([]stats.AngleKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, stats.AngleKey.Less)
	return keys
}

type bounds struct {
	min, max [dims]float64
}

// BoundedUniform draws each parameter uniformly within the range observed
// for the key.
type BoundedUniform struct {
	bounds map[stats.AngleKey]bounds

	mu  sync.Mutex
	rng *rand.Rand
}

// NewBoundedUniform models every key of pop with at least one record. A nil
// rng is seeded from the clock.
func NewBoundedUniform(pop Population, rng *rand.Rand) *BoundedUniform {
	if rng == nil {
		rng = stats.NewRand(0)
	}
	m := &BoundedUniform{bounds: make(map[stats.AngleKey]bounds), rng: rng}
	for _, key := range pop.Keys() {
		data := observations(pop.Exact(key))
		if len(data) == 0 {
			continue
		}
		b := bounds{min: data[0], max: data[0]}
		for _, row := range data[1:] {
			for i, v := range row {
				if v < b.min[i] {
					b.min[i] = v
				}
				if v > b.max[i] {
					b.max[i] = v
				}
			}
		}
		m.bounds[key] = b
	}
	return m
}

func (m *BoundedUniform) Sample(key stats.AngleKey) (*stats.AngleRecord, error) {
	b, ok := m.bounds[key]
	if !ok {
		return nil, fmt.Errorf("%w for %v", ErrNoModel, key)
	}
	var p [dims]float64
	m.mu.Lock()
	for i := range p {
		p[i] = b.min[i] + m.rng.Float64()*(b.max[i]-b.min[i])
	}
	m.mu.Unlock()
	return synthetic(key, p), nil
}

func (m *BoundedUniform) Keys() []stats.AngleKey { return sortedKeys(m.bounds) }
