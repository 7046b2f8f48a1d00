package stats

import (
	"fmt"
)

// Element is a structural element of a secondary structure, one of Stem,
// Junction, Hairpin, ThreePrime or FivePrime.
type Element interface {
	ElementName() string
	// Dims returns the sizes of the element as reported by its graph.
	Dims() []int
	kind() string
}

// Stem is a helix of Length base pairs.
type Stem struct {
	Name   string
	Length int
}

// Junction is an interior loop or a multiloop segment between two helices.
type Junction struct {
	Name         string
	Size1, Size2 int
	AngleType    int
}

// Hairpin is a hairpin loop closed by a helix.
type Hairpin struct {
	Name   string
	Length int
}

// ThreePrime is the unpaired 3' tail.
type ThreePrime struct {
	Name   string
	Length int
}

// FivePrime is the unpaired 5' tail.
type FivePrime struct {
	Name   string
	Length int
}

func (e Stem) ElementName() string       { return e.Name }
func (e Junction) ElementName() string   { return e.Name }
func (e Hairpin) ElementName() string    { return e.Name }
func (e ThreePrime) ElementName() string { return e.Name }
func (e FivePrime) ElementName() string  { return e.Name }

func (e Stem) Dims() []int       { return []int{e.Length, e.Length} }
func (e Junction) Dims() []int   { return []int{e.Size1, e.Size2} }
func (e Hairpin) Dims() []int    { return []int{e.Length} }
func (e ThreePrime) Dims() []int { return []int{e.Length} }
func (e FivePrime) Dims() []int  { return []int{e.Length} }

func (Stem) kind() string       { return "stem" }
func (Junction) kind() string   { return "junction" }
func (Hairpin) kind() string    { return "hairpin" }
func (ThreePrime) kind() string { return "3prime" }
func (FivePrime) kind() string  { return "5prime" }

// Graph is the secondary structure graph the elements come from.
type Graph interface {
	NodeDimensions(name string) ([]int, error)
	AngleType(name string) (int, error)
}

// ElementOf builds the element called name from g. The kind of the element
// is given by the first letter of its name: s (stem), i or m (interior loop
// or multiloop), h (hairpin), t (3' tail) and f (5' tail).
func ElementOf(g Graph, name string) (Element, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty element name", ErrUnknownElement)
	}
	dims, err := g.NodeDimensions(name)
	if err != nil {
		return nil, fmt.Errorf("dimensions of %s: %w", name, err)
	}

	switch name[0] {
	case 's':
		if len(dims) < 1 {
			return nil, fmt.Errorf("stem %s has no dimensions", name)
		}
		return Stem{Name: name, Length: dims[0]}, nil
	case 'i', 'm':
		if len(dims) < 2 {
			logger.Errorf("resolving angle type: elem %s dims %v: missing second dimension", name, dims)
			return nil, fmt.Errorf("%w: element %s with dims %v", ErrAngleType, name, dims)
		}
		angleType, err := g.AngleType(name)
		if err != nil {
			logger.Errorf("resolving angle type: elem %s dims %v: %v", name, dims, err)
			return nil, fmt.Errorf("%w: element %s with dims %v: %w", ErrAngleType, name, dims, err)
		}
		return Junction{Name: name, Size1: dims[0], Size2: dims[1], AngleType: angleType}, nil
	}

	if len(dims) < 1 {
		return nil, fmt.Errorf("element %s has no dimensions", name)
	}
	switch name[0] {
	case 'h':
		return Hairpin{Name: name, Length: dims[0]}, nil
	case 't':
		return ThreePrime{Name: name, Length: dims[0]}, nil
	case 'f':
		return FivePrime{Name: name, Length: dims[0]}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownElement, name)
}
