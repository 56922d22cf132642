package repr

import (
	"fmt"
	"sync/atomic"

	"github.com/molcanvas/canvas3d/molgl/core"
	"github.com/molcanvas/canvas3d/molgl/event"
	"github.com/molcanvas/canvas3d/molgl/geometry"
	"github.com/molcanvas/canvas3d/molgl/renderable"
)

type Representation interface {
	ID() int
	Label() string
	RenderObjects() []*renderable.RenderObject
	// GetLoci resolves a picking id; the empty loci means no match.
	GetLoci(id core.PickingID) Loci
	// Mark applies a to the render objects selected by l and reports
	// whether any marker changed.
	Mark(l Loci, a geometry.MarkerAction) bool
	// Updated emits a version whenever the set of render objects or their
	// values changed.
	Updated() *event.Subject[int]
	Destroy()
}

var nextReprID atomic.Int64

// NextID returns a process-wide unique representation id.
func NextID() int { return int(nextReprID.Add(1)) }

// Shape is the description a ShapeRepresentation renders: one geometry
// with its instances, theme and appearance.
type Shape struct {
	Name       string
	Geometry   geometry.Geometry
	Transforms geometry.TransformData
	Theme      geometry.Theme
	Props      geometry.Props
	MaterialID int
}

// ShapeRepresentation renders a single Shape as one render object.
type ShapeRepresentation struct {
	id      int
	shape   Shape
	utils   geometry.Utils
	object  *renderable.RenderObject
	updated *event.Subject[int]
	version int
}

func NewShapeRepresentation(shape Shape) (*ShapeRepresentation, error) {
	r := &ShapeRepresentation{id: NextID(), updated: event.NewSubject[int]()}
	if err := r.create(shape); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *ShapeRepresentation) create(shape Shape) error {
	if shape.Geometry == nil {
		return fmt.Errorf("shape %q: no geometry", shape.Name)
	}
	u, err := geometry.UtilsFor(shape.Geometry.Kind())
	if err != nil {
		return fmt.Errorf("shape %q: %w", shape.Name, err)
	}
	v, err := u.CreateValues(shape.Geometry, shape.Transforms, shape.Theme, shape.Props)
	if err != nil {
		return fmt.Errorf("shape %q: %w", shape.Name, err)
	}
	if r.object != nil {
		r.object.State.Disposed = true
	}
	r.utils = u
	r.shape = shape
	r.object = renderable.CreateRenderObject(shape.Geometry.Kind(), v, u.CreateRenderableState(shape.Props), shape.MaterialID)
	return nil
}

func (r *ShapeRepresentation) ID() int                          { return r.id }
func (r *ShapeRepresentation) Label() string                    { return r.shape.Name }
func (r *ShapeRepresentation) Shape() Shape                     { return r.shape }
func (r *ShapeRepresentation) Object() *renderable.RenderObject { return r.object }
func (r *ShapeRepresentation) Updated() *event.Subject[int]     { return r.updated }
func (r *ShapeRepresentation) Version() int                     { return r.version }

func (r *ShapeRepresentation) RenderObjects() []*renderable.RenderObject {
	if r.object == nil {
		return nil
	}
	return []*renderable.RenderObject{r.object}
}

// Update replaces the shape. Values are updated in place unless the kind
// or the theme requires a new render object.
func (r *ShapeRepresentation) Update(shape Shape) error {
	if shape.Geometry == nil {
		return fmt.Errorf("shape %q: no geometry", shape.Name)
	}
	old := r.shape
	recreate := shape.Geometry.Kind() != old.Geometry.Kind() ||
		shape.MaterialID != old.MaterialID ||
		geometry.ThemeChangeRequiresGeometry(shape.Geometry.Kind(), old.Theme, shape.Theme)
	if recreate {
		if err := r.create(shape); err != nil {
			return err
		}
	} else {
		v := r.object.Values
		if len(shape.Transforms.Transforms) > 0 {
			geometry.SetTransforms(v, shape.Transforms)
		}
		if err := r.utils.UpdateGeometry(v, shape.Geometry, shape.Theme, shape.Props); err != nil {
			return fmt.Errorf("shape %q: %w", shape.Name, err)
		}
		r.utils.UpdateRenderableState(r.object.State, shape.Props)
		r.shape = shape
	}
	r.bump()
	return nil
}

// SetProps changes appearance only.
func (r *ShapeRepresentation) SetProps(props geometry.Props) {
	r.shape.Props = props
	r.utils.UpdateValues(r.object.Values, props)
	r.utils.UpdateRenderableState(r.object.State, props)
	r.bump()
}

func (r *ShapeRepresentation) bump() {
	r.version++
	r.updated.Next(r.version)
}

func (r *ShapeRepresentation) GetLoci(id core.PickingID) Loci {
	if r.object == nil || id.ObjectID != r.object.ID {
		return Empty
	}
	return GroupLoci{
		ObjectID: r.object.ID,
		Elements: []GroupElement{{Instance: id.InstanceID, Groups: []int{id.GroupID}}},
	}
}

func (r *ShapeRepresentation) Mark(l Loci, a geometry.MarkerAction) bool {
	if r.object == nil {
		return false
	}
	return MarkObject(r.object, l, a)
}

func (r *ShapeRepresentation) Destroy() {
	if r.object != nil {
		r.object.State.Disposed = true
		r.object = nil
	}
	r.updated.Close()
}
