package stats

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/abondrn/rnastats/config"
	"lukechampine.com/blake3"
)

// Registry keeps the populations loaded from corpus files so that a corpus
// is parsed once per process. Every getter returns the cached population
// unless none was loaded yet or refresh is set, in which case it (re)loads
// from path. A cached population is returned whatever path is passed.
//
// A Registry is safe for concurrent use.
type Registry struct {
	// Metrics, when set, is attached to the default ConformationStats.
	Metrics *Metrics
	// Seed seeds the clustered angle index of the default ConformationStats
	// built by ConformationStats; zero seeds from the clock.
	Seed uint64

	mu         sync.Mutex
	angles     slot[*AngleIndex]
	stems      slot[*StemStore]
	loops      slot[*LoopStore]
	fivePrime  slot[*LoopStore]
	threePrime slot[*LoopStore]
	conf       Sampler
	digests    map[string][32]byte
}

type slot[T any] struct {
	value  T
	loaded bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{digests: make(map[string][32]byte)}
}

var defaultRegistry = NewRegistry()

// Default returns the process wide registry.
func Default() *Registry { return defaultRegistry }

// corpusFile is the content of a corpus file. Its digest is only recorded
// once the content was accepted.
type corpusFile struct {
	*bytes.Reader
	path   string
	digest [32]byte
}

func readCorpus(path string) (*corpusFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &corpusFile{Reader: bytes.NewReader(data), path: path, digest: blake3.Sum256(data)}, nil
}

// accept records the digest of files. r.mu must be held.
func (r *Registry) accept(files ...*corpusFile) {
	for _, f := range files {
		r.digests[f.path] = f.digest
	}
}

func load[T any](r *Registry, s *slot[T], path string, refresh bool, parse func(io.Reader) (T, error)) (T, error) {
	if s.loaded && !refresh {
		return s.value, nil
	}
	data, err := readCorpus(path)
	if err != nil {
		var zero T
		return zero, err
	}
	v, err := parse(data)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%s: %w", path, err)
	}
	s.value, s.loaded = v, true
	r.accept(data)
	return v, nil
}

func loopParser(tag Tag) func(io.Reader) (*LoopStore, error) {
	return func(rd io.Reader) (*LoopStore, error) { return LoadLoopStore(rd, tag) }
}

// AngleIndex returns the angle index of path.
func (r *Registry) AngleIndex(path string, refresh bool) (*AngleIndex, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return load(r, &r.angles, path, refresh, LoadAngleIndex)
}

// StemStore returns the stems of path.
func (r *Registry) StemStore(path string, refresh bool) (*StemStore, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return load(r, &r.stems, path, refresh, LoadStemStore)
}

// LoopStore returns the hairpin loops of path.
func (r *Registry) LoopStore(path string, refresh bool) (*LoopStore, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return load(r, &r.loops, path, refresh, loopParser(TagLoop))
}

// FivePrimeStore returns the 5' tails of path.
func (r *Registry) FivePrimeStore(path string, refresh bool) (*LoopStore, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return load(r, &r.fivePrime, path, refresh, loopParser(TagFivePrime))
}

// ThreePrimeStore returns the 3' tails of path.
func (r *Registry) ThreePrimeStore(path string, refresh bool) (*LoopStore, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return load(r, &r.threePrime, path, refresh, loopParser(TagThreePrime))
}

// ConformationStats returns the default statistics. If none is cached, the
// populations of path are reloaded and bundled, with the angles taken from
// clusteredPath when it is not empty.
func (r *Registry) ConformationStats(path, clusteredPath string) (Sampler, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conf != nil {
		return r.conf, nil
	}
	conf, err := r.build(path, clusteredPath, r.Seed)
	if err != nil {
		return nil, err
	}
	r.conf = conf
	return conf, nil
}

// build reloads every population of path. r.mu must be held.
func (r *Registry) build(path, clusteredPath string, seed uint64, opts ...Option) (*ConformationStats, error) {
	stems, err := load(r, &r.stems, path, true, LoadStemStore)
	if err != nil {
		return nil, err
	}
	loops, err := load(r, &r.loops, path, true, loopParser(TagLoop))
	if err != nil {
		return nil, err
	}
	fivePrime, err := load(r, &r.fivePrime, path, true, loopParser(TagFivePrime))
	if err != nil {
		return nil, err
	}
	threePrime, err := load(r, &r.threePrime, path, true, loopParser(TagThreePrime))
	if err != nil {
		return nil, err
	}

	var angles AngleSource
	if clusteredPath == "" {
		angles, err = load(r, &r.angles, path, true, LoadAngleIndex)
	} else {
		var data *corpusFile
		data, err = readCorpus(clusteredPath)
		if err == nil {
			angles, err = LoadClusteredAngleIndex(data, NewRand(seed))
		}
		if err != nil {
			err = fmt.Errorf("%s: %w", clusteredPath, err)
		} else {
			r.accept(data)
		}
	}
	if err != nil {
		return nil, err
	}
	opts = append([]Option{WithMetrics(r.Metrics)}, opts...)
	return NewConformationStats(stems, loops, fivePrime, threePrime, angles, opts...), nil
}

// SetConformationStats replaces the default statistics, for instance by a
// FilteredConformationStats.
func (r *Registry) SetConformationStats(s Sampler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conf = s
}

// Reload reloads every population from path and drops the default
// statistics.
func (r *Registry) Reload(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.build(path, "", r.Seed); err != nil {
		return err
	}
	r.conf = nil
	return nil
}

// Invalidate forgets everything loaded so far.
func (r *Registry) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.angles, r.stems = slot[*AngleIndex]{}, slot[*StemStore]{}
	r.loops, r.fivePrime, r.threePrime = slot[*LoopStore]{}, slot[*LoopStore]{}, slot[*LoopStore]{}
	r.conf = nil
	r.digests = make(map[string][32]byte)
}

// Changed reports whether path differs from the content last loaded from it.
// A path that was never loaded counts as changed. Nothing is reloaded.
func (r *Registry) Changed(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	digest, ok := r.digests[path]
	return !ok || digest != blake3.Sum256(data), nil
}

// Open builds the statistics described by cfg, with cfg.MinEntries as their
// default threshold, wrapped in a FilteredConformationStats when cfg names a
// filter file, and makes them the default statistics.
func (r *Registry) Open(cfg *config.Config) (Sampler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	base, err := r.build(cfg.StatsFile, cfg.ClusteredAngleFile, cfg.Seed, WithMinEntries(cfg.MinEntries))
	if err != nil {
		return nil, err
	}
	var conf Sampler = base
	if cfg.FilterFile != "" {
		filtered := NewFilteredConformationStats(base, cfg.FilterProb, NewRand(cfg.Seed))
		data, err := readCorpus(cfg.FilterFile)
		if err != nil {
			return nil, err
		}
		if err := filtered.LoadFilter(data); err != nil {
			return nil, fmt.Errorf("%s: %w", cfg.FilterFile, err)
		}
		r.accept(data)
		conf = filtered
	}
	r.conf = conf
	return conf, nil
}
