package stats

import (
	"fmt"
	"io"
	"os"
)

// AngleSource is the part of an angle population the conformation
// statistics need: a bucket per key and a ranking of the available keys.
type AngleSource interface {
	// Exact returns every record stored under key.
	Exact(key AngleKey) []*AngleRecord
	// Bucket returns the records to offer for key. Implementations may
	// subsample.
	Bucket(key AngleKey) []*AngleRecord
	NearestKeys(size1, size2, angleType int) []Candidate[AngleKey]
	Keys() []AngleKey
}

// AngleIndex holds every usable angle record of a corpus under its natural
// key and under its mirror key.
type AngleIndex struct {
	store *Store[AngleKey, *AngleRecord]
}

// NewAngleIndex returns an index holding records, each under both keys.
// Records carrying the excluded marker are dropped.
func NewAngleIndex(records ...*AngleRecord) *AngleIndex {
	idx := &AngleIndex{store: NewStore[AngleKey, *AngleRecord]()}
	for _, rec := range records {
		idx.add(rec)
	}
	return idx
}

func (idx *AngleIndex) add(rec *AngleRecord) {
	if rec.excluded() {
		return
	}
	idx.store.Add(rec.Key(), rec)
	idx.store.Add(rec.MirrorKey(), rec)
}

// LoadAngleIndex reads every angle line of a corpus. Unlike stems and loops a
// malformed angle line aborts the load.
func LoadAngleIndex(r io.Reader) (*AngleIndex, error) {
	idx := NewAngleIndex()
	err := scanCorpus(r, TagAngle, func(n int, line string) error {
		rec, err := ParseAngleRecord(line)
		if err != nil {
			return withLine(n, err)
		}
		idx.add(rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading angle statistics: %w", err)
	}
	return idx, nil
}

// ReadAngleIndex opens path and loads its angle records.
func ReadAngleIndex(path string) (*AngleIndex, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return LoadAngleIndex(fh)
}

func withLine(n int, err error) error {
	if pe, ok := err.(*ParseError); ok {
		pe.Line = n
	}
	return err
}

// Exact returns the records stored under key.
func (idx *AngleIndex) Exact(key AngleKey) []*AngleRecord {
	return idx.store.Exact(key)
}

// Bucket is Exact.
func (idx *AngleIndex) Bucket(key AngleKey) []*AngleRecord {
	return idx.store.Exact(key)
}

// Keys returns every key with at least one record, in key order.
func (idx *AngleIndex) Keys() []AngleKey { return idx.store.Keys() }

// Len returns the number of stored entries, counting each record once per
// orientation.
func (idx *AngleIndex) Len() int { return idx.store.Len() }

// NearestKeys ranks the keys with the given angle type by the euclidean
// distance of their sizes to (size1, size2).
func (idx *AngleIndex) NearestKeys(size1, size2, angleType int) []Candidate[AngleKey] {
	return nearestAngleKeys(idx.Keys(), size1, size2, angleType)
}

func nearestAngleKeys(keys []AngleKey, size1, size2, angleType int) []Candidate[AngleKey] {
	query := AngleKey{Size1: size1, Size2: size2, AngleType: angleType}
	return rank(keys, query, func(k AngleKey) bool { return k.AngleType == angleType })
}
