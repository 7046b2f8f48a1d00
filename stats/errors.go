package stats

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/go-wordwrap"
)

var (
	// ErrParse is matched by every *ParseError.
	ErrParse = errors.New("malformed corpus line")
	// ErrConsistency is matched by every *ConsistencyError.
	ErrConsistency = errors.New("inconsistent clustered corpus")
	// ErrLookup is returned when no statistics exist for a requested element
	// or key.
	ErrLookup = errors.New("no statistics")
	// ErrAngleType wraps failures of the graph to report an angle type.
	ErrAngleType = errors.New("cannot resolve angle type")
	// ErrUnknownElement is returned for element names whose kind cannot be
	// derived from their first letter.
	ErrUnknownElement = errors.New("unknown element kind")
	// ErrNotImplemented is returned by operations that are not supported yet.
	ErrNotImplemented = errors.New("not implemented")
)

// ParseError describes a corpus line that could not be turned into a record.
type ParseError struct {
	Line   int
	Text   string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	if e.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", e.Line)
	}
	fmt.Fprintf(&b, "%s: %q", e.Reason, e.Text)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

func (e *ParseError) Unwrap() error { return e.Err }

// ConsistencyError reports a clustered-corpus data line that does not belong
// to the cluster it appears in.
type ConsistencyError struct {
	Line    int
	Cluster AngleKey
	Record  AngleKey
	// NoCluster is set when the data line precedes every cluster header.
	NoCluster bool
}

func (e *ConsistencyError) Error() string {
	if e.NoCluster {
		return fmt.Sprintf("line %d: record %v appears before any cluster header", e.Line, e.Record)
	}
	return fmt.Sprintf("line %d: record %v does not belong to cluster %v", e.Line, e.Record, e.Cluster)
}

func (e *ConsistencyError) Is(target error) bool { return target == ErrConsistency }

// LookupError reports an element for which no statistics could be found.
type LookupError struct {
	Element string
	Dims    []int
	// AngleType is only meaningful for junctions (HasAngleType).
	AngleType    int
	HasAngleType bool
	// Candidates is the number of keys that were considered.
	Candidates int
	// Available lists the keys present in the searched population.
	Available []string
}

const lookupErrorWidth = 100

func (e *LookupError) Error() string {
	msg := fmt.Sprintf("no statistics for element %s with dims %v", e.Element, e.Dims)
	if e.HasAngleType {
		msg += fmt.Sprintf(" and angle type %d", e.AngleType)
	}
	msg += fmt.Sprintf(" (%d candidate keys)", e.Candidates)
	if len(e.Available) > 0 {
		msg += "\navailable keys: " + wordwrap.WrapString(strings.Join(e.Available, " "), lookupErrorWidth)
	}
	return msg
}

func (e *LookupError) Is(target error) bool { return target == ErrLookup }
