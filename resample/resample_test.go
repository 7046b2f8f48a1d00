package resample_test

import (
	"bytes"
	"errors"
	"math"
	"os"
	"testing"

	"github.com/abondrn/rnastats/resample"
	"github.com/abondrn/rnastats/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(source string, key stats.AngleKey, p [6]float64) *stats.AngleRecord {
	return &stats.AngleRecord{
		SourceID:  source,
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

// spread returns n records of key scattered around centre.
func spread(n int, key stats.AngleKey, centre [6]float64, seed uint64) []*stats.AngleRecord {
	rng := stats.NewRand(seed)
	out := make([]*stats.AngleRecord, 0, n)
	for i := 0; i < n; i++ {
		p := centre
		for j := range p {
			p[j] += rng.NormFloat64() * 0.3
		}
		out = append(out, record("x", key, p))
	}
	return out
}

var (
	single = stats.AngleKey{Size1: 1, Size2: 2, AngleType: 1}
	pair   = stats.AngleKey{Size1: 2, Size2: 2, AngleType: 2}
	flat   = stats.AngleKey{Size1: 3, Size2: 3, AngleType: 3}
	rich   = stats.AngleKey{Size1: 4, Size2: 5, AngleType: 1}

	centre = [6]float64{1.5, 1.8, -1.2, 12, 0.8, 2}
)

func population() *stats.AngleIndex {
	var recs []*stats.AngleRecord
	recs = append(recs, record("a", single, centre))
	recs = append(recs,
		record("b", pair, [6]float64{1, 1, 1, 10, 1, 1}),
		record("b", pair, [6]float64{2, 3, -1, 14, 1.5, 2}),
	)
	for i := 0; i < 5; i++ {
		recs = append(recs, record("c", flat, centre))
	}
	recs = append(recs, spread(30, rich, centre, 42)...)
	return stats.NewAngleIndex(recs...)
}

func TestBoundedUniform(t *testing.T) {
	m := resample.NewBoundedUniform(population(), stats.NewRand(1))
	assert.Len(t, m.Keys(), 8)

	rec, err := m.Sample(single)
	require.NoError(t, err)
	assert.Equal(t, centre, rec.Params())
	assert.Equal(t, single, rec.Key())

	for i := 0; i < 100; i++ {
		rec, err := m.Sample(pair)
		require.NoError(t, err)
		p := rec.Params()
		lo := [6]float64{1, 1, -1, 10, 1, 1}
		hi := [6]float64{2, 3, 1, 14, 1.5, 2}
		for j := range p {
			assert.GreaterOrEqual(t, p[j], lo[j])
			assert.LessOrEqual(t, p[j], hi[j])
		}
	}

	// mirrored keys are modeled too
	rec, err = m.Sample(single.Mirror())
	require.NoError(t, err)
	assert.Equal(t, single.Mirror(), rec.Key())

	_, err = m.Sample(stats.AngleKey{Size1: 9, Size2: 9, AngleType: 1})
	assert.True(t, errors.Is(err, resample.ErrNoModel))
	assert.True(t, errors.Is(err, stats.ErrLookup))
}

func TestKDE(t *testing.T) {
	var buf bytes.Buffer
	resample.SetLogOutput(&buf)
	t.Cleanup(func() { resample.SetLogOutput(os.Stderr) })

	m := resample.NewKDE(population(), stats.NewRand(1))

	// too few observations for single and pair, a degenerate spread for flat
	assert.Equal(t, []stats.AngleKey{rich, rich.Mirror()}, m.Keys())
	assert.Contains(t, buf.String(), flat.String()+": "+resample.ErrSingular.Error())
	assert.Contains(t, buf.String(), flat.Mirror().String())
	assert.NotContains(t, buf.String(), pair.String())
	for _, key := range []stats.AngleKey{single, pair, flat} {
		_, err := m.Sample(key)
		assert.True(t, errors.Is(err, resample.ErrNoModel), "%v", key)
	}

	var mean [6]float64
	const n = 500
	for i := 0; i < n; i++ {
		rec, err := m.Sample(rich)
		require.NoError(t, err)
		assert.Equal(t, rich, rec.Key())
		for j, v := range rec.Params() {
			require.False(t, math.IsNaN(v) || math.IsInf(v, 0))
			mean[j] += v / n
		}
	}
	for j := range mean {
		assert.InDelta(t, centre[j], mean[j], 0.3, "parameter %d", j)
	}
}

func TestModelsShareInterface(t *testing.T) {
	pop := population()
	for _, m := range []resample.Model{
		resample.NewBoundedUniform(pop, nil),
		resample.NewKDE(pop, nil),
	} {
		for _, key := range m.Keys() {
			rec, err := m.Sample(key)
			require.NoError(t, err)
			assert.Equal(t, key, rec.Key())
			assert.Empty(t, rec.SourceID)
		}
	}
}
