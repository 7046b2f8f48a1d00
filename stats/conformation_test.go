package stats_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/abondrn/rnastats/stats"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func corpusStats(t *testing.T, opts ...stats.Option) *stats.ConformationStats {
	t.Helper()
	stems, err := stats.LoadStemStore(strings.NewReader(corpus))
	require.NoError(t, err)
	loops, err := stats.LoadLoopStore(strings.NewReader(corpus), stats.TagLoop)
	require.NoError(t, err)
	five, err := stats.LoadLoopStore(strings.NewReader(corpus), stats.TagFivePrime)
	require.NoError(t, err)
	three, err := stats.LoadLoopStore(strings.NewReader(corpus), stats.TagThreePrime)
	require.NoError(t, err)
	return stats.NewConformationStats(stems, loops, five, three, loadAngles(t, corpus), opts...)
}

func TestSampleStatsStem(t *testing.T) {
	s := corpusStats(t)

	got, err := s.SampleStats(stats.Stem{Name: "s0", Length: 5}, stats.DefaultMinEntries)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	for _, rec := range got {
		assert.Equal(t, stats.TagStem, rec.Tag())
	}

	// a stem never borrows from another length, however close
	_, err = s.SampleStats(stats.Stem{Name: "s1", Length: 6}, stats.DefaultMinEntries)
	require.Error(t, err)
	assert.True(t, errors.Is(err, stats.ErrLookup))

	var lerr *stats.LookupError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, "s1", lerr.Element)
	assert.Equal(t, []int{6, 6}, lerr.Dims)
	assert.False(t, lerr.HasAngleType)
	assert.Contains(t, err.Error(), "(5, 5)")
}

func TestSampleStatsAccumulationThreshold(t *testing.T) {
	var recs []*stats.AngleRecord
	add := func(n, size1, size2 int) {
		for i := 0; i < n; i++ {
			recs = append(recs, angle("x", size1, size2, 1, float64(len(recs))))
		}
	}
	add(3, 2, 2) // distance 0
	add(4, 2, 3) // distance 1
	add(5, 4, 2) // distance 2
	s := stats.NewConformationStats(nil, nil, nil, nil, stats.NewAngleIndex(recs...))

	got, err := s.SampleStats(stats.Junction{Name: "i0", Size1: 2, Size2: 2, AngleType: 1}, 5)
	require.NoError(t, err)
	require.Len(t, got, 7)
	for i, rec := range got {
		a := rec.(*stats.AngleRecord)
		if i < 3 {
			assert.Equal(t, 2, a.Size2)
		} else {
			assert.Equal(t, 3, a.Size2)
		}
	}

	// the threshold gates fetching, it does not truncate
	got, err = s.SampleStats(stats.Junction{Name: "i0", Size1: 2, Size2: 2, AngleType: 1}, 1)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = s.SampleStats(stats.Junction{Name: "i0", Size1: 2, Size2: 2, AngleType: 1}, 100)
	require.NoError(t, err)
	assert.Len(t, got, 12)
}

func TestSampleStatsJunctionMiss(t *testing.T) {
	s := corpusStats(t)
	_, err := s.SampleStats(stats.Junction{Name: "m3", Size1: 2, Size2: 3, AngleType: 5}, stats.DefaultMinEntries)
	require.Error(t, err)

	var lerr *stats.LookupError
	require.ErrorAs(t, err, &lerr)
	assert.True(t, lerr.HasAngleType)
	assert.Equal(t, 5, lerr.AngleType)
	assert.Equal(t, 0, lerr.Candidates)
	assert.Contains(t, err.Error(), "angle type 5")
}

func TestSampleStatsLoops(t *testing.T) {
	s := corpusStats(t)

	got, err := s.SampleStats(stats.Hairpin{Name: "h0", Length: 5}, 0)
	require.NoError(t, err)
	// sizes 4 and 6 are both one away, 4 comes first and already exceeds 0
	require.Len(t, got, 1)
	assert.Equal(t, 4, got[0].(*stats.LoopRecord).BasePairLength)

	got, err = s.SampleStats(stats.Hairpin{Name: "h0", Length: 5}, stats.DefaultMinEntries)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = s.SampleStats(stats.FivePrime{Name: "f0", Length: 12}, stats.DefaultMinEntries)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, stats.TagFivePrime, got[0].Tag())

	got, err = s.SampleStats(stats.ThreePrime{Name: "t0", Length: 0}, stats.DefaultMinEntries)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, stats.TagThreePrime, got[0].Tag())

	empty := stats.NewConformationStats(nil, stats.NewStore[stats.Size, *stats.LoopRecord](), nil, nil, nil)
	_, err = empty.SampleStats(stats.Hairpin{Name: "h0", Length: 5}, 1)
	assert.True(t, errors.Is(err, stats.ErrLookup))
	_, err = empty.SampleStats(stats.ThreePrime{Name: "t0", Length: 5}, 1)
	assert.True(t, errors.Is(err, stats.ErrLookup))
	_, err = empty.SampleStats(stats.Junction{Name: "i0", Size1: 1, Size2: 1, AngleType: 1}, 1)
	assert.True(t, errors.Is(err, stats.ErrLookup))
}

func TestSampleStatsClustered(t *testing.T) {
	idx := loadClustered(t, clusteredCorpus)
	s := stats.NewConformationStats(nil, nil, nil, nil, idx)

	got, err := s.SampleStats(stats.Junction{Name: "i0", Size1: 1, Size2: 1, AngleType: -1}, stats.DefaultMinEntries)
	require.NoError(t, err)
	// one per cluster, (2, 3, 1) has the wrong angle type
	assert.Len(t, got, 3)
}

func TestConstrainStats(t *testing.T) {
	s := corpusStats(t)
	err := s.ConstrainStats("jar3d.constraints")
	assert.True(t, errors.Is(err, stats.ErrNotImplemented))
}

func TestSampleStatsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := stats.NewMetrics(reg)
	s := corpusStats(t, stats.WithMetrics(m))

	_, err := s.SampleStats(stats.Stem{Name: "s0", Length: 5}, stats.DefaultMinEntries)
	require.NoError(t, err)
	_, err = s.SampleStats(stats.Hairpin{Name: "h0", Length: 5}, stats.DefaultMinEntries)
	require.NoError(t, err)
	_, err = s.SampleStats(stats.Junction{Name: "i0", Size1: 2, Size2: 3, AngleType: 1}, 0)
	require.NoError(t, err)
	_, err = s.SampleStats(stats.Stem{Name: "s1", Length: 6}, stats.DefaultMinEntries)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.LookupsTotal.WithLabelValues("stem", "exact")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LookupsTotal.WithLabelValues("stem", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LookupsTotal.WithLabelValues("hairpin", "fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LookupsTotal.WithLabelValues("junction", "exact")))
}

func TestElementOf(t *testing.T) {
	g := fakeGraph{
		dims: map[string][]int{
			"s0": {5, 5},
			"i1": {2, 3},
			"m2": {0, 1000},
			"h3": {6},
			"t4": {2},
			"f5": {3},
			"x6": {1},
			"i7": {2},
		},
		angleTypes: map[string]int{"i1": -2, "m2": 4},
	}

	tests := []struct {
		name string
		want stats.Element
	}{
		{"s0", stats.Stem{Name: "s0", Length: 5}},
		{"i1", stats.Junction{Name: "i1", Size1: 2, Size2: 3, AngleType: -2}},
		{"m2", stats.Junction{Name: "m2", Size1: 0, Size2: 1000, AngleType: 4}},
		{"h3", stats.Hairpin{Name: "h3", Length: 6}},
		{"t4", stats.ThreePrime{Name: "t4", Length: 2}},
		{"f5", stats.FivePrime{Name: "f5", Length: 3}},
	}
	for _, tt := range tests {
		el, err := stats.ElementOf(g, tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, el)
		assert.Equal(t, tt.name, el.ElementName())
	}

	_, err := stats.ElementOf(g, "x6")
	assert.True(t, errors.Is(err, stats.ErrUnknownElement))
	_, err = stats.ElementOf(g, "")
	assert.True(t, errors.Is(err, stats.ErrUnknownElement))
	_, err = stats.ElementOf(g, "s9")
	assert.Error(t, err)

	buf := captureLog(t)
	_, err = stats.ElementOf(g, "i7")
	assert.True(t, errors.Is(err, stats.ErrAngleType))
	assert.Contains(t, buf.String(), "i7")

	cause := errors.New("no such junction")
	g.angleErr = cause
	_, err = stats.ElementOf(g, "i1")
	assert.True(t, errors.Is(err, stats.ErrAngleType))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, buf.String(), "[2 3]")
}

func TestSampleStatsDefaultThreshold(t *testing.T) {
	hairpin := stats.Hairpin{Name: "h0", Length: 5}

	got, err := corpusStats(t).SampleStats(hairpin, -1)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = corpusStats(t, stats.WithMinEntries(0)).SampleStats(hairpin, -1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
