// Package repr is the boundary between the renderer and whatever produces
// render objects. A Representation owns render objects, resolves picking
// ids to loci and applies marker actions to loci.
package repr

import (
	"slices"

	"github.com/molcanvas/canvas3d/molgl/geometry"
	"github.com/molcanvas/canvas3d/molgl/renderable"
)

// Loci is an opaque selection of parts of a representation.
type Loci interface {
	IsEmpty() bool
}

type EmptyLoci struct{}

func (EmptyLoci) IsEmpty() bool { return true }

// EveryLoci selects everything of a representation.
type EveryLoci struct{}

func (EveryLoci) IsEmpty() bool { return false }

var (
	Empty Loci = EmptyLoci{}
	Every Loci = EveryLoci{}
)

type GroupElement struct {
	Instance int
	Groups   []int
}

// GroupLoci selects groups of instances of one render object.
type GroupLoci struct {
	ObjectID int
	Elements []GroupElement
}

func (l GroupLoci) IsEmpty() bool {
	for _, e := range l.Elements {
		if len(e.Groups) > 0 {
			return false
		}
	}
	return true
}

// DataLoci tags a selection that has no render-object structure, such as
// the parts of a helper overlay.
type DataLoci struct {
	Tag     string
	Indices []int
}

func (l DataLoci) IsEmpty() bool { return len(l.Indices) == 0 }

// LociEqual compares two loci structurally.
func LociEqual(a, b Loci) bool {
	switch la := a.(type) {
	case EmptyLoci, EveryLoci:
		return a == b
	case GroupLoci:
		lb, ok := b.(GroupLoci)
		if !ok || la.ObjectID != lb.ObjectID || len(la.Elements) != len(lb.Elements) {
			return false
		}
		for i, e := range la.Elements {
			if e.Instance != lb.Elements[i].Instance || !slices.Equal(e.Groups, lb.Elements[i].Groups) {
				return false
			}
		}
		return true
	case DataLoci:
		lb, ok := b.(DataLoci)
		return ok && la.Tag == lb.Tag && slices.Equal(la.Indices, lb.Indices)
	}
	return false
}

// ReprLoci pairs a loci with the representation it belongs to. A nil Repr
// applies the loci to every representation.
type ReprLoci struct {
	Loci Loci
	Repr Representation
}

func (r ReprLoci) IsEmpty() bool { return r.Loci == nil || r.Loci.IsEmpty() }

// MarkObject applies a to the markers of o selected by l and reports
// whether anything changed. The new markers are uploaded on the next scene
// commit.
func MarkObject(o *renderable.RenderObject, l Loci, a geometry.MarkerAction) bool {
	m := o.Values.Markers.Get()
	changed := false
	switch l := l.(type) {
	case EveryLoci:
		changed = geometry.ApplyMarkerRange(m, 0, len(m), a)
	case GroupLoci:
		if l.ObjectID != o.ID {
			return false
		}
		groups := max(o.Values.GroupCount.Get(), 1)
		for _, e := range l.Elements {
			idx := make([]int, 0, len(e.Groups))
			for _, g := range e.Groups {
				if g >= 0 && g < groups {
					idx = append(idx, e.Instance*groups+g)
				}
			}
			if geometry.ApplyMarkerIndices(m, idx, a) {
				changed = true
			}
		}
	}
	if changed {
		o.Values.Markers.Update(m)
		o.Values.MarkerAverage.Update(geometry.MarkerAverage(m))
	}
	return changed
}
