/*
Package stats indexes and samples the empirical geometry of RNA secondary
structure elements.

A statistics corpus is a line oriented text file. Each line holds one
observation of a stem, a hairpin loop, a dangling 5' or 3' tail or the angle
between two helices flanking a junction:

	stem <pdb> <bp> <phys> <twist> <d1> <d2> <d3> <d4>
	loop|5prime|3prime <pdb> <bp> <phys> <r> <u> <v> <define...>
	angle <pdb> <dim1> <dim2> <u> <v> <t> <r1> <u1> <v1> <angle_type> <define...> <seq...>

The records are grouped by size into stores and indexes which answer the
question "which observations could describe an element of this size". When an
exact size has no or too few observations the closest sizes are used instead.
*/
package stats

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/abondrn/rnastats/checks"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"golang.org/x/exp/slices"
)

// Tag is the first token of a corpus line.
type Tag string

const (
	TagStem       Tag = "stem"
	TagLoop       Tag = "loop"
	TagFivePrime  Tag = "5prime"
	TagThreePrime Tag = "3prime"
	TagAngle      Tag = "angle"
)

// Unbounded is the Size2 of angle records measured across a multiloop segment
// or single stranded region, where the second strand has no fixed length.
const Unbounded = 1000

// excludedMarker as the first define position flags an unusable angle record.
const excludedMarker = 1

// Record is implemented by every record type of the corpus.
type Record interface {
	Tag() Tag
	Source() string
	// String serializes the record back into a corpus line.
	String() string
}

// LoopRecord is the shape of a hairpin loop or of a dangling tail.
type LoopRecord struct {
	// Kind is one of TagLoop, TagFivePrime or TagThreePrime.
	Kind           Tag
	SourceID       string
	BasePairLength int
	// PhysicalLength is the distance between the start and the centroid of
	// the loop.
	PhysicalLength float64
	R, U, V        float64
	Define         []int
}

// StemRecord is the shape of one helix.
type StemRecord struct {
	SourceID       string
	BasePairLength int
	PhysicalLength float64
	// TwistAngle is the angle between the two twist vectors of the helix.
	TwistAngle float64
	Define     [4]int
}

// AngleRecord is the orientation and position of one helix relative to
// another one across a junction.
//
// (U, V) is the orientation of the second helix, T its twist and (R1, U1, V1)
// the position of its start in spherical coordinates, all in the frame of the
// first helix.
type AngleRecord struct {
	SourceID     string
	Size1, Size2 int
	U, V, T      float64
	R1, U1, V1   float64
	AngleType    int
	Define       []int
	Sequences    []string
}

func (r *LoopRecord) Tag() Tag       { return r.Kind }
func (r *LoopRecord) Source() string { return r.SourceID }

func (r *StemRecord) Tag() Tag       { return TagStem }
func (r *StemRecord) Source() string { return r.SourceID }

func (r *AngleRecord) Tag() Tag       { return TagAngle }
func (r *AngleRecord) Source() string { return r.SourceID }

// Key returns the key the record is naturally stored under.
func (r *AngleRecord) Key() AngleKey {
	return AngleKey{Size1: r.Size1, Size2: r.Size2, AngleType: r.AngleType}
}

// MirrorKey returns the key of the same junction seen from the other helix.
func (r *AngleRecord) MirrorKey() AngleKey {
	return r.Key().Mirror()
}

// OrientationParams returns (u, v).
func (r *AngleRecord) OrientationParams() (float64, float64) { return r.U, r.V }

// TwistParams returns (u, v, t).
func (r *AngleRecord) TwistParams() (float64, float64, float64) { return r.U, r.V, r.T }

// PositionParams returns (r1, u1, v1).
func (r *AngleRecord) PositionParams() (float64, float64, float64) { return r.R1, r.U1, r.V1 }

// Params returns the six continuous parameters u, v, t, r1, u1, v1.
func (r *AngleRecord) Params() [6]float64 {
	return [6]float64{r.U, r.V, r.T, r.R1, r.U1, r.V1}
}

// excluded reports whether the corpus flagged the record as unusable.
func (r *AngleRecord) excluded() bool {
	return len(r.Define) > 0 && r.Define[0] == excludedMarker
}

var paramsApprox = cmpopts.EquateApprox(1e-5, 1e-8)

// Equal compares the sizes exactly and the six parameters approximately.
// SourceID, AngleType, Define and Sequences are ignored.
func (r *AngleRecord) Equal(other *AngleRecord) bool {
	if r == nil || other == nil {
		return r == other
	}
	if r.Size1 != other.Size1 || r.Size2 != other.Size2 {
		return false
	}
	return cmp.Equal(r.Params(), other.Params(), paramsApprox)
}

// DefineLength returns the number of define positions an angle record with
// the given sizes carries.
func DefineLength(size1, size2 int) (int, error) {
	if size2 == Unbounded {
		if size1 == 0 {
			return 0, nil
		}
		return 2, nil
	}
	n := 4
	if size1 == 0 {
		n -= 2
	}
	if size2 == 0 {
		n -= 2
	}
	// at least one strand of an interior loop has unpaired residues
	if n <= 0 {
		return 0, fmt.Errorf("sizes (%d, %d) leave no unpaired residues", size1, size2)
	}
	return n, nil
}

// fields walks the whitespace separated tokens of one corpus line and
// remembers the first conversion failure.
type fields struct {
	line   string
	tokens []string
	pos    int
	err    *ParseError
}

func newFields(line string) *fields {
	return &fields{line: line, tokens: strings.Fields(line)}
}

func (f *fields) fail(reason string, err error) {
	if f.err == nil {
		f.err = &ParseError{Text: f.line, Reason: reason, Err: err}
	}
}

func (f *fields) next() (string, bool) {
	if f.err != nil {
		return "", false
	}
	if f.pos >= len(f.tokens) {
		f.fail(fmt.Sprintf("too few fields (want more than %d)", len(f.tokens)), nil)
		return "", false
	}
	tok := f.tokens[f.pos]
	f.pos++
	return tok, true
}

func (f *fields) str() string {
	tok, _ := f.next()
	return tok
}

func (f *fields) int() int {
	tok, ok := f.next()
	if !ok {
		return 0
	}
	v, err := strconv.Atoi(tok)
	if err != nil {
		f.fail(fmt.Sprintf("field %d is not an integer", f.pos), err)
	}
	return v
}

func (f *fields) float() float64 {
	tok, ok := f.next()
	if !ok {
		return 0
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		f.fail(fmt.Sprintf("field %d is not a number", f.pos), err)
	}
	return v
}

func (f *fields) ints(n int) []int {
	if n == 0 {
		return nil
	}
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, f.int())
	}
	return out
}

func (f *fields) remaining() int { return len(f.tokens) - f.pos }

func (f *fields) tag(allowed ...Tag) Tag {
	tok := Tag(f.str())
	if f.err == nil && !slices.Contains(allowed, tok) {
		f.fail(fmt.Sprintf("unexpected tag %q", tok), nil)
	}
	return tok
}

// ParseLoopRecord parses a loop, 5prime or 3prime line.
func ParseLoopRecord(line string) (*LoopRecord, error) {
	f := newFields(line)
	r := &LoopRecord{
		Kind:           f.tag(TagLoop, TagFivePrime, TagThreePrime),
		SourceID:       f.str(),
		BasePairLength: f.int(),
		PhysicalLength: f.float(),
		R:              f.float(),
		U:              f.float(),
		V:              f.float(),
	}
	r.Define = f.ints(f.remaining())
	if f.err != nil {
		return nil, f.err
	}
	return r, nil
}

// ParseStemRecord parses a stem line.
func ParseStemRecord(line string) (*StemRecord, error) {
	f := newFields(line)
	f.tag(TagStem)
	r := &StemRecord{
		SourceID:       f.str(),
		BasePairLength: f.int(),
		PhysicalLength: f.float(),
		TwistAngle:     f.float(),
	}
	copy(r.Define[:], f.ints(4))
	if f.err != nil {
		return nil, f.err
	}
	return r, nil
}

// ParseAngleRecord parses an angle line. The number of define positions
// depends on the two sizes (see DefineLength), every token after the define
// is a sequence fragment.
func ParseAngleRecord(line string) (*AngleRecord, error) {
	f := newFields(line)
	f.tag(TagAngle)
	r := &AngleRecord{
		SourceID:  f.str(),
		Size1:     f.int(),
		Size2:     f.int(),
		U:         f.float(),
		V:         f.float(),
		T:         f.float(),
		R1:        f.float(),
		U1:        f.float(),
		V1:        f.float(),
		AngleType: f.int(),
	}
	if f.err != nil {
		return nil, f.err
	}
	n, err := DefineLength(r.Size1, r.Size2)
	if err != nil {
		return nil, &ParseError{Text: line, Reason: "invalid define length", Err: err}
	}
	r.Define = f.ints(n)
	if f.err != nil {
		return nil, f.err
	}
	if f.remaining() > 0 {
		r.Sequences = f.tokens[f.pos:]
	}
	for _, seq := range r.Sequences {
		if !checks.IsRNA(seq) {
			logger.Warnf("angle record %s has a non RNA fragment %q", r.SourceID, seq)
		}
	}
	return r, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func joinLine(tokens []string, define []int, rest ...string) string {
	for _, d := range define {
		tokens = append(tokens, strconv.Itoa(d))
	}
	tokens = append(tokens, rest...)
	return strings.Join(tokens, " ")
}

func (r *LoopRecord) String() string {
	return joinLine([]string{
		string(r.Kind), r.SourceID, strconv.Itoa(r.BasePairLength),
		formatFloat(r.PhysicalLength), formatFloat(r.R), formatFloat(r.U), formatFloat(r.V),
	}, r.Define)
}

func (r *StemRecord) String() string {
	return joinLine([]string{
		string(TagStem), r.SourceID, strconv.Itoa(r.BasePairLength),
		formatFloat(r.PhysicalLength), formatFloat(r.TwistAngle),
	}, r.Define[:])
}

func (r *AngleRecord) String() string {
	return joinLine([]string{
		string(TagAngle), r.SourceID, strconv.Itoa(r.Size1), strconv.Itoa(r.Size2),
		formatFloat(r.U), formatFloat(r.V), formatFloat(r.T),
		formatFloat(r.R1), formatFloat(r.U1), formatFloat(r.V1),
		strconv.Itoa(r.AngleType),
	}, r.Define, r.Sequences...)
}

// WriteCorpus writes one corpus line per record.
func WriteCorpus(w io.Writer, records ...Record) error {
	for _, r := range records {
		if _, err := fmt.Fprintln(w, r.String()); err != nil {
			return fmt.Errorf("writing %s record from %s: %w", r.Tag(), r.Source(), err)
		}
	}
	return nil
}
