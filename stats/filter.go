package stats

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/abondrn/rnastats/checks"
	"golang.org/x/exp/rand"
	"golang.org/x/exp/slices"
)

// FilterKey identifies the filtered statistics of one junction.
type FilterKey struct {
	Element   string
	AngleType int
}

// FilteredConformationStats prefers, for the junctions listed in a filter
// file, the angle records the filter allows. The preference is random: the
// filtered records are offered with probability FilterProb, the unfiltered
// lookup otherwise.
type FilteredConformationStats struct {
	*ConformationStats
	FilterProb float64

	filtered map[FilterKey][]*AngleRecord
	rng      *lockedRand
}

// NewFilteredConformationStats wraps base. rng drives the choice between
// filtered and unfiltered statistics; nil seeds a generator from the clock.
func NewFilteredConformationStats(base *ConformationStats, filterProb float64, rng *rand.Rand) *FilteredConformationStats {
	return &FilteredConformationStats{
		ConformationStats: base,
		FilterProb:        filterProb,
		rng:               newLockedRand(rng),
	}
}

// LoadFilter replaces the filtered statistics with the ones selected by a
// filter file. Each row names an element, the structure and define of an
// allowed angle record, and an annotation:
//
//	i3 1X8W_A 4 27 31 101 104 ""
//	i2 3U5F_6 4 1348 1348 1365 1367 "cWW AG or UU"
//
// The columns are elem_name pdb_id define_len size1 size2 define... annotation.
// A row selects every angle record of the structure with exactly that define,
// under both angle types and both orientations of the sizes.
func (s *FilteredConformationStats) LoadFilter(r io.Reader) error {
	if s.ConformationStats == nil || s.Angles == nil {
		return errors.New("filtering statistics: no angle statistics loaded")
	}
	filtered := make(map[FilterKey][]*AngleRecord)

	reader := csv.NewReader(r)
	reader.Comma = ' '
	reader.FieldsPerRecord = -1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("reading filter: %w", err)
		}
		line, _ := reader.FieldPos(0)
		entry, err := parseFilterRow(row)
		if err != nil {
			return withLine(line, err)
		}
		if !checks.IsDefine(entry.define) {
			logger.Warnf("filter line %d: define %v of %s cannot match any record", line, entry.define, entry.source)
			continue
		}

		for _, angleType := range []int{1, -1} {
			key := AngleKey{Size1: entry.size1, Size2: entry.size2, AngleType: angleType}
			fk := FilterKey{Element: entry.element, AngleType: angleType}
			// an angle index files each record under both keys
			seen := make(map[*AngleRecord]bool)
			for _, bucket := range [][]*AngleRecord{s.Angles.Exact(key), s.Angles.Exact(key.Mirror())} {
				for _, rec := range bucket {
					if seen[rec] || rec.SourceID != entry.source || !slices.Equal(rec.Define, entry.define) {
						continue
					}
					seen[rec] = true
					filtered[fk] = append(filtered[fk], rec)
				}
			}
		}
	}
	s.filtered = filtered
	return nil
}

// ReadFilter opens path and loads it as a filter.
func (s *FilteredConformationStats) ReadFilter(path string) error {
	fh, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fh.Close()
	return s.LoadFilter(fh)
}

type filterEntry struct {
	element, source string
	size1, size2    int
	define          []int
}

func parseFilterRow(row []string) (filterEntry, error) {
	text := strings.Join(row, " ")
	if len(row) < 5 {
		return filterEntry{}, &ParseError{Text: text, Reason: "too few filter columns"}
	}
	var (
		entry = filterEntry{element: row[0], source: row[1]}
		nums  [3]int
	)
	for i := range nums {
		v, err := strconv.Atoi(row[2+i])
		if err != nil {
			return filterEntry{}, &ParseError{Text: text, Reason: fmt.Sprintf("column %d is not an integer", 3+i), Err: err}
		}
		nums[i] = v
	}
	defineLength := nums[0]
	entry.size1, entry.size2 = nums[1], nums[2]
	if defineLength < 0 || len(row) < 5+defineLength {
		return filterEntry{}, &ParseError{Text: text, Reason: fmt.Sprintf("define of length %d does not fit the row", defineLength)}
	}
	for i, tok := range row[5 : 5+defineLength] {
		v, err := strconv.Atoi(tok)
		if err != nil {
			return filterEntry{}, &ParseError{Text: text, Reason: fmt.Sprintf("define position %d is not an integer", i), Err: err}
		}
		entry.define = append(entry.define, v)
	}
	return entry, nil
}

// Filtered returns the filtered records of a junction.
func (s *FilteredConformationStats) Filtered(element string, angleType int) []*AngleRecord {
	return s.filtered[FilterKey{Element: element, AngleType: angleType}]
}

// SampleStats returns, with probability FilterProb, the filtered records of
// el if there are any. Otherwise, and for elements without an angle type, it
// falls back to the unfiltered statistics.
func (s *FilteredConformationStats) SampleStats(el Element, minEntries int) ([]Record, error) {
	if s.filtered != nil && s.rng.Float64() <= s.FilterProb {
		if j, ok := el.(Junction); ok {
			if recs := s.Filtered(j.Name, j.AngleType); len(recs) > 0 {
				return records(recs), nil
			}
		}
	}
	return s.ConformationStats.SampleStats(el, minEntries)
}
