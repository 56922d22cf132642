package helper

import (
	"github.com/molcanvas/canvas3d/molgl/core"
	"github.com/molcanvas/canvas3d/molgl/gpu"

	"github.com/go-gl/mathgl/mgl32"
)

const HandleTag = "handle"

type HandleHelperProps struct {
	Enabled bool
	// Scale is the arm length in world units.
	Scale float32
}

func DefaultHandleHelperProps() HandleHelperProps {
	return HandleHelperProps{Enabled: false, Scale: 1}
}

// HandleHelper is a three-armed manipulation handle at a world position.
// Picking an arm yields DataLoci{Tag: HandleTag} with the arm index.
type HandleHelper struct {
	*overlay
	Props HandleHelperProps

	pose  core.Transform
	shown mgl32.Mat4
}

func NewHandleHelper(ctx gpu.Context, props HandleHelperProps) *HandleHelper {
	return &HandleHelper{overlay: newOverlay(ctx, HandleTag), Props: props, pose: core.IdentityTransform()}
}

func (h *HandleHelper) IsEnabled() bool { return h.Props.Enabled }

func (h *HandleHelper) Position() mgl32.Vec3 { return h.pose.Position }

// SetPose moves the handle; call Update to apply it.
func (h *HandleHelper) SetPose(position mgl32.Vec3, rotation mgl32.Quat) {
	h.pose.Position, h.pose.Rotation = position, rotation
}

func (h *HandleHelper) transform() mgl32.Mat4 {
	return h.pose.WithUniformScale(h.Props.Scale).Matrix()
}

// Update shows, moves or hides the handle according to its props.
func (h *HandleHelper) Update() error {
	if !h.Props.Enabled {
		h.hide()
		return nil
	}
	t := h.transform()
	if h.visible() && t == h.shown {
		return nil
	}
	h.shown = t
	return h.show(axesShape(HandleTag, t, 0.04))
}
