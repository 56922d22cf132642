// Package helper draws overlays on top of the scene: the camera axes
// gizmo, the manipulation handle and debug bounding spheres. Each helper
// owns a small scene of its own that the passes draw after the main one.
package helper

import (
	"github.com/molcanvas/canvas3d/molgl/core"
	"github.com/molcanvas/canvas3d/molgl/geometry"
	"github.com/molcanvas/canvas3d/molgl/gpu"
	"github.com/molcanvas/canvas3d/molgl/repr"
	"github.com/molcanvas/canvas3d/molgl/scene"
)

// overlay is one helper representation in its own scene. Picks on it
// resolve to DataLoci carrying the overlay tag and the picked group.
type overlay struct {
	tag   string
	scene *scene.Scene
	repr  *repr.ShapeRepresentation
}

func newOverlay(ctx gpu.Context, tag string) *overlay {
	return &overlay{tag: tag, scene: scene.Create(ctx)}
}

func (o *overlay) Scene() *scene.Scene { return o.scene }

// show sets the shape, creating the representation on first use.
func (o *overlay) show(shape repr.Shape) error {
	if o.repr == nil {
		r, err := repr.NewShapeRepresentation(shape)
		if err != nil {
			return err
		}
		o.repr = r
		o.scene.Add(r.Object())
	} else {
		prev := o.repr.Object()
		if err := o.repr.Update(shape); err != nil {
			return err
		}
		if next := o.repr.Object(); next != prev {
			o.scene.Remove(prev)
			o.scene.Add(next)
		} else {
			o.scene.Update(o.repr.RenderObjects(), false)
		}
	}
	o.scene.Commit(0)
	return nil
}

func (o *overlay) hide() {
	if o.repr == nil {
		return
	}
	o.scene.Remove(o.repr.Object())
	o.scene.Commit(0)
	o.repr.Destroy()
	o.repr = nil
}

func (o *overlay) visible() bool { return o.repr != nil }

func (o *overlay) GetLoci(id core.PickingID) repr.Loci {
	if o.repr == nil || id.ObjectID != o.repr.Object().ID {
		return repr.Empty
	}
	return repr.DataLoci{Tag: o.tag, Indices: []int{id.GroupID}}
}

// Mark applies a to the overlay groups named by l and reports whether any
// marker changed. Callers follow up with SyncMarkers once per frame.
func (o *overlay) Mark(l repr.Loci, a geometry.MarkerAction) bool {
	if o.repr == nil {
		return false
	}
	var target repr.Loci
	switch l := l.(type) {
	case repr.EveryLoci:
		target = l
	case repr.DataLoci:
		if l.Tag != o.tag {
			return false
		}
		target = repr.GroupLoci{
			ObjectID: o.repr.Object().ID,
			Elements: []repr.GroupElement{{Instance: 0, Groups: l.Indices}},
		}
	default:
		return false
	}
	return o.repr.Mark(target, a)
}

// SyncMarkers uploads pending marker changes.
func (o *overlay) SyncMarkers() {
	if o.repr == nil {
		return
	}
	o.scene.Update(nil, true)
	o.scene.Commit(0)
}

func (o *overlay) Dispose() {
	o.hide()
	o.scene.Clear()
}
