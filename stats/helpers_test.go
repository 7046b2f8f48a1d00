package stats_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abondrn/rnastats/stats"
	"github.com/stretchr/testify/require"
)

// corpus holds a bit of everything. The last angle line carries the
// excluded marker.
const corpus = `
stem 1GID_A 5 12.5 0.8 10 14 40 44
stem 1GID_A 5 12.9 0.7 20 24 60 64
stem 2QBG_B 7 17.1 1.1 3 9 90 96
loop 1GID_A 4 8.1 8.1 1.2 -0.3 15 18
loop 3U5F_6 6 10.2 10.2 1.1 0.4 30 35
loop 3U5F_6 6 10.4 10.4 1.0 0.5 70 75
5prime 1GID_A 3 5.5 5.5 0.9 0.2 1 3
3prime 1GID_A 2 4.1 4.1 1.4 -1.2 120 121
# a comment
angle 1X8W_A 2 3 1.52 1.83 -1.38 11.23 0.86 2.05 1 27 28 101 103 GC AUG
angle 1X8W_A 2 3 1.56 1.86 -0.96 16.24 0.89 2.17 -1 40 41 80 82 AA UUC
angle 3U5F_6 0 3 1.53 1.91 -1.10 15.78 0.82 2.25 1 1348 1350 AGU
angle 3U5F_6 1 1000 1.1 1.2 0.3 9.5 0.7 1.9 2 200 200 A
angle 3U5F_6 0 1000 1.0 1.3 0.2 8.5 0.6 1.8 3
angle 2QBG_B 2 3 1.4 1.7 -1.2 12.0 0.8 2.0 1 1 2 50 52 GC AUG
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// captureLog sends the package diagnostics to a buffer for the duration of
// the test.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	stats.SetLogOutput(&buf)
	t.Cleanup(func() { stats.SetLogOutput(os.Stderr) })
	return &buf
}

func loadAngles(t *testing.T, body string) *stats.AngleIndex {
	t.Helper()
	idx, err := stats.LoadAngleIndex(strings.NewReader(body))
	require.NoError(t, err)
	return idx
}

func angle(source string, size1, size2, angleType int, u float64, define ...int) *stats.AngleRecord {
	return &stats.AngleRecord{
		SourceID:  source,
		Size1:     size1,
		Size2:     size2,
		AngleType: angleType,
		U:         u,
		V:         1.5,
		T:         -1,
		R1:        12,
		U1:        0.8,
		V1:        2,
		Define:    define,
	}
}

// fakeGraph answers dimension and angle type queries from maps.
type fakeGraph struct {
	dims       map[string][]int
	angleTypes map[string]int
	angleErr   error
}

func (g fakeGraph) NodeDimensions(name string) ([]int, error) {
	d, ok := g.dims[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return d, nil
}

func (g fakeGraph) AngleType(name string) (int, error) {
	if g.angleErr != nil {
		return 0, g.angleErr
	}
	return g.angleTypes[name], nil
}
