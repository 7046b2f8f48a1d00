package stats

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/exp/rand"
	"golang.org/x/exp/slices"
)

// NotFound is returned by ClusterOf for records outside every cluster.
const NotFound = -1

var clusterHeader = regexp.MustCompile(`^#\s*Cluster\s+(\d+)\s+for\s+\(\s*(-?\d+)\s*,\s*(-?\d+)\s*,\s*(-?\d+)\s*\)\s*:?\s*$`)

// ClusteredAngleIndex groups the angle records of each key into clusters of
// near-duplicate observations. Sampling a key yields one representative per
// cluster so that large clusters do not dominate.
//
// The corpus is produced by clustering an angle corpus:
//
//	# Cluster 0 for (1, 1, -1):
//	angle RS_1788_S_000008_A 1 1 1.520877 1.837257 -1.380352 11.237569 0.867246 2.057771 1 19 19 30 30 UCG CAA
//	# Cluster 1 for (1, 1, -1):
//	angle RS_1140_S_000002_A 1 1 1.563667 1.869580 -0.967966 16.241881 0.896602 2.177000 -1 13 13 24 24 ACG CUU
type ClusteredAngleIndex struct {
	clusters map[AngleKey][][]*AngleRecord
	rng      *lockedRand
}

// LoadClusteredAngleIndex reads a clustered corpus. rng drives Sample; nil
// seeds a generator from the clock.
func LoadClusteredAngleIndex(r io.Reader, rng *rand.Rand) (*ClusteredAngleIndex, error) {
	idx := &ClusteredAngleIndex{
		clusters: make(map[AngleKey][][]*AngleRecord),
		rng:      newLockedRand(rng),
	}

	var (
		current AngleKey
		open    bool
		n       int
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "# Cluster"):
			key, err := parseClusterHeader(line)
			if err != nil {
				return nil, withLine(n, err)
			}
			idx.clusters[key] = append(idx.clusters[key], nil)
			current, open = key, true
			continue
		case strings.HasPrefix(line, "#"):
			continue
		}

		rec, err := ParseAngleRecord(line)
		if err != nil {
			return nil, fmt.Errorf("reading clustered angle statistics: %w", withLine(n, err))
		}
		if rec.excluded() {
			continue
		}
		if !open {
			return nil, &ConsistencyError{Line: n, Record: rec.Key(), NoCluster: true}
		}
		// the producer may write a member in either orientation
		if rec.Key() != current && rec.MirrorKey() != current {
			return nil, &ConsistencyError{Line: n, Cluster: current, Record: rec.Key()}
		}
		clusters := idx.clusters[current]
		clusters[len(clusters)-1] = append(clusters[len(clusters)-1], rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading clustered angle statistics: %w", err)
	}
	return idx, nil
}

// ReadClusteredAngleIndex opens path and loads its clusters.
func ReadClusteredAngleIndex(path string, rng *rand.Rand) (*ClusteredAngleIndex, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return LoadClusteredAngleIndex(fh, rng)
}

func parseClusterHeader(line string) (AngleKey, error) {
	m := clusterHeader.FindStringSubmatch(line)
	if m == nil {
		return AngleKey{}, &ParseError{Text: line, Reason: "malformed cluster header"}
	}
	// the submatches are integers by construction
	size1, _ := strconv.Atoi(m[2])
	size2, _ := strconv.Atoi(m[3])
	angleType, _ := strconv.Atoi(m[4])
	return AngleKey{Size1: size1, Size2: size2, AngleType: angleType}, nil
}

// Sample returns one uniformly chosen record from every non-empty cluster of
// key.
func (idx *ClusteredAngleIndex) Sample(key AngleKey) []*AngleRecord {
	clusters := idx.clusters[key]
	out := make([]*AngleRecord, 0, len(clusters))
	for _, cluster := range clusters {
		if len(cluster) == 0 {
			continue
		}
		out = append(out, cluster[idx.rng.Intn(len(cluster))])
	}
	return out
}

// Bucket is Sample.
func (idx *ClusteredAngleIndex) Bucket(key AngleKey) []*AngleRecord {
	return idx.Sample(key)
}

// Exact returns every member of every cluster of key.
func (idx *ClusteredAngleIndex) Exact(key AngleKey) []*AngleRecord {
	var out []*AngleRecord
	for _, cluster := range idx.clusters[key] {
		out = append(out, cluster...)
	}
	return out
}

// Clusters returns the clusters of key in corpus order. The result must not
// be modified.
func (idx *ClusteredAngleIndex) Clusters(key AngleKey) [][]*AngleRecord {
	return idx.clusters[key]
}

// Keys returns every key with at least one cluster header, in key order.
func (idx *ClusteredAngleIndex) Keys() []AngleKey {
	keys := make([]AngleKey, 0, len(idx.clusters))
	for k := range idx.clusters {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, AngleKey.Less)
	return keys
}

// NearestKeys ranks the keys with the given angle type by the euclidean
// distance of their sizes to (size1, size2).
func (idx *ClusteredAngleIndex) NearestKeys(size1, size2, angleType int) []Candidate[AngleKey] {
	return nearestAngleKeys(idx.Keys(), size1, size2, angleType)
}

// ClusterOf returns the position of the cluster holding a record equal to
// rec among the clusters of rec's key, or NotFound.
func (idx *ClusteredAngleIndex) ClusterOf(rec *AngleRecord) int {
	for i, cluster := range idx.clusters[rec.Key()] {
		if containsRecord(cluster, rec) {
			return i
		}
	}
	return NotFound
}

// PopulationSummary returns the size of the cluster holding rec (NotFound if
// none does), the number of records under rec's key and the number of
// clusters under rec's key.
func (idx *ClusteredAngleIndex) PopulationSummary(rec *AngleRecord) (clusterSize, total, clusterCount int) {
	clusters := idx.clusters[rec.Key()]
	clusterSize = NotFound
	for _, cluster := range clusters {
		total += len(cluster)
		if clusterSize == NotFound && containsRecord(cluster, rec) {
			clusterSize = len(cluster)
		}
	}
	return clusterSize, total, len(clusters)
}

func containsRecord(cluster []*AngleRecord, rec *AngleRecord) bool {
	for _, member := range cluster {
		if member.Equal(rec) {
			return true
		}
	}
	return false
}
