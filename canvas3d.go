// Package canvas3d renders molecular scenes incrementally. A Canvas3D owns
// a scene, a camera with trackball controls and the overlay helpers, and
// draws them through the passes of a shared Canvas3DContext. Hosts drive
// it by calling Tick from their frame loop.
package canvas3d

import (
	"fmt"
	"slices"
	"time"

	"github.com/molcanvas/canvas3d/molgl/camera"
	"github.com/molcanvas/canvas3d/molgl/controls"
	"github.com/molcanvas/canvas3d/molgl/core"
	"github.com/molcanvas/canvas3d/molgl/event"
	"github.com/molcanvas/canvas3d/molgl/geometry"
	"github.com/molcanvas/canvas3d/molgl/gpu"
	"github.com/molcanvas/canvas3d/molgl/helper"
	"github.com/molcanvas/canvas3d/molgl/input"
	"github.com/molcanvas/canvas3d/molgl/passes"
	"github.com/molcanvas/canvas3d/molgl/renderable"
	"github.com/molcanvas/canvas3d/molgl/renderer"
	"github.com/molcanvas/canvas3d/molgl/repr"
	"github.com/molcanvas/canvas3d/molgl/scene"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

// sceneCommitTimeout bounds the commit work of one asynchronous tick.
const sceneCommitTimeout = 250 * time.Millisecond

type TickOptions struct {
	// IsSynchronous commits the whole queue in this tick.
	IsSynchronous bool
	// ManualDraw leaves drawing to the caller.
	ManualDraw bool
}

type DrawOptions struct {
	Force bool
}

// CameraResetOptions customize the next camera reset. A nil Duration uses
// Props.CameraResetDuration.
type CameraResetOptions struct {
	Duration *time.Duration
	// Snapshot derives the final state from the state that focuses the
	// visible scene.
	Snapshot func(focus camera.Snapshot) camera.Snapshot
}

type Stats struct {
	Scene           scene.Stats
	Renderer        renderer.Stats
	GPU             gpu.Stats
	ReprCount       int
	CommitQueueSize int
	Draws           int
}

// Notifications are the observable events of a canvas.
type Notifications struct {
	DidDraw  *event.Subject[time.Duration]
	Commited *event.Subject[time.Duration]
	// CommitQueueSize replays the queue size after each partial commit.
	CommitQueueSize *event.Subject[int]
	ReprCount       *event.Subject[int]
	Resized         *event.Subject[struct{}]
}

type Option func(*options)

type options struct {
	props        Props
	log          Logger
	sceneOptions []scene.Option
}

func WithProps(p Props) Option {
	return func(o *options) { o.props = p }
}

func WithLogger(l Logger) Option {
	return func(o *options) { o.log = l }
}

// WithSceneOptions passes options to the scene of the canvas.
func WithSceneOptions(opts ...scene.Option) Option {
	return func(o *options) { o.sceneOptions = append(o.sceneOptions, opts...) }
}

type reprEntry struct {
	repr    repr.Representation
	objects []*renderable.RenderObject
	sub     event.Subscription
}

type markEntry struct {
	loci   repr.ReprLoci
	action geometry.MarkerAction
}

type Canvas3D struct {
	id       uuid.UUID
	ctx      *Canvas3DContext
	gl       gpu.Context
	log      Logger
	mode     *Mode
	profiler *Profiler
	props    Props

	scene    *scene.Scene
	renderer *renderer.Renderer
	camera   *camera.Camera
	stereo   *camera.StereoCamera
	controls *controls.TrackballControls

	cameraHelper *helper.CameraHelper
	handleHelper *helper.HandleHelper
	debugHelper  *helper.DebugHelper

	pick           *passes.PickHelper
	multiSample    *passes.MultiSampleHelper
	interaction    *InteractionHelper
	lastPickCamera renderer.Camera

	reprs      []*reprEntry
	markBuffer []markEntry

	Notifications Notifications

	currentTime     time.Duration
	lastInteraction time.Duration
	interacted      bool
	drawPaused      bool
	running         bool

	forceNextRender           bool
	forceDrawAfterAllCommited bool
	resizeRequested           bool
	commitPending             bool

	cameraResetRequested     bool
	nextCameraReset          CameraResetOptions
	oldBoundingSphereVisible core.Sphere3D

	fence    gpu.Sync
	draws    int
	subs     event.Group
	disposed bool
}

// New creates a canvas drawing through ctx.
func New(ctx *Canvas3DContext, opts ...Option) (*Canvas3D, error) {
	if ctx == nil || ctx.IsDisposed() {
		return nil, fmt.Errorf("create canvas: %w", ErrNoTarget)
	}
	o := options{props: DefaultProps()}
	for _, opt := range opts {
		opt(&o)
	}
	c := &Canvas3D{
		id:       uuid.New(),
		ctx:      ctx,
		gl:       ctx.GL,
		mode:     ctx.Mode(),
		profiler: NewProfiler(),
		props:    o.props,
		log:      o.log,
		Notifications: Notifications{
			DidDraw:         event.NewSubject[time.Duration](),
			Commited:        event.NewSubject[time.Duration](),
			CommitQueueSize: event.NewBehavior(0),
			ReprCount:       event.NewBehavior(0),
			Resized:         event.NewSubject[struct{}](),
		},
	}
	if c.log == nil {
		scope := "canvas3d:" + c.id.String()[:8]
		if parent, ok := ctx.Logger().(*DefaultLogger); ok {
			c.log = parent.With(scope)
		} else {
			c.log = newModeLogger(scope, c.mode)
		}
	}

	c.scene = scene.Create(c.gl, o.sceneOptions...)
	c.scene.SetTransparency(ctx.Props().Transparency)

	w, h := c.gl.DrawingBufferSize()
	vp := c.props.Viewport.resolve(w, h, ctx.PixelRatio())
	c.camera = camera.New(c.cameraSnapshot(camera.DefaultSnapshot()), vp)
	c.stereo = camera.NewStereoCamera(c.camera, c.props.Camera.Stereo.StereoProps)
	c.controls = controls.New(ctx.Input, c.camera, c.props.Trackball)
	c.renderer = renderer.New(c.gl, c.props.Renderer)
	c.renderer.SetViewport(vp)

	c.cameraHelper = helper.NewCameraHelper(c.gl, c.props.Camera.Helper)
	c.handleHelper = helper.NewHandleHelper(c.gl, c.props.Handle)
	c.debugHelper = helper.NewDebugHelper(c.gl, c.props.Debug)
	if err := c.handleHelper.Update(); err != nil {
		return nil, fmt.Errorf("create canvas: %w", err)
	}

	c.bindPasses()
	c.interaction = newInteractionHelper(ctx.Input, c.identifyLoci, c.props.Interaction)

	onInteraction := func() {
		c.lastInteraction, c.interacted = c.currentTime, true
	}
	c.subs.Add(
		ctx.Input.Resize.Subscribe(func(input.ResizeInput) { c.RequestResize() }),
		ctx.Input.Drag.Subscribe(func(input.DragInput) { onInteraction() }),
		ctx.Input.Wheel.Subscribe(func(input.WheelInput) { onInteraction() }),
		ctx.Input.Pinch.Subscribe(func(input.PinchInput) { onInteraction() }),
		ctx.Changed.Subscribe(func(struct{}) {
			c.scene.SetTransparency(ctx.Props().Transparency)
			c.bindPasses()
			c.handleResize(false)
		}),
		ctx.ContextRestored.Subscribe(func(time.Time) {
			c.pick.Dirty()
			c.log.Infof("redrawing after context restore")
			c.clearFence()
			c.Draw(DrawOptions{Force: true})
			c.clearFence()
			c.Draw(DrawOptions{Force: true})
		}),
	)
	return c, nil
}

// bindPasses binds the helpers to the current context passes, which are
// recreated when the transparency setup changes.
func (c *Canvas3D) bindPasses() {
	p := c.ctx.Passes
	c.pick = passes.NewPickHelper(c.gl, p.Pick, c.ctx.Props().PickPadding)
	c.multiSample = passes.NewMultiSampleHelper(p.MultiSample)
	c.lastPickCamera = nil
}

func (c *Canvas3D) cameraSnapshot(s camera.Snapshot) camera.Snapshot {
	p := c.props
	s.Mode = p.Camera.Mode
	s.FOV = mgl32.DegToRad(p.Camera.FOV)
	s.Fog = p.fog()
	s.ClipFar = p.CameraClipping.Far
	s.MinNear = p.CameraClipping.MinNear
	return s
}

func (c *Canvas3D) ID() uuid.UUID                         { return c.id }
func (c *Canvas3D) Context() *Canvas3DContext             { return c.ctx }
func (c *Canvas3D) Camera() *camera.Camera                { return c.camera }
func (c *Canvas3D) StereoCamera() *camera.StereoCamera    { return c.stereo }
func (c *Canvas3D) Controls() *controls.TrackballControls { return c.controls }
func (c *Canvas3D) Scene() *scene.Scene                   { return c.scene }
func (c *Canvas3D) Renderer() *renderer.Renderer          { return c.renderer }
func (c *Canvas3D) Interaction() *InteractionHelper       { return c.interaction }
func (c *Canvas3D) Handle() *helper.HandleHelper          { return c.handleHelper }
func (c *Canvas3D) Logger() Logger                        { return c.log }
func (c *Canvas3D) Profiler() *Profiler                   { return c.profiler }
func (c *Canvas3D) IsRunning() bool                       { return c.running }
func (c *Canvas3D) IsDisposed() bool                      { return c.disposed }

// Props returns a deep copy of the current props.
func (c *Canvas3D) Props() Props {
	var out Props
	if err := copier.CopyWithOption(&out, &c.props, copier.Option{DeepCopy: true}); err != nil {
		c.log.Errorf("copy props: %v", err)
		return c.props
	}
	return out
}

func (c *Canvas3D) Reprs() []repr.Representation {
	out := make([]repr.Representation, len(c.reprs))
	for i, e := range c.reprs {
		out[i] = e.repr
	}
	return out
}

func (c *Canvas3D) Stats() Stats {
	return Stats{
		Scene:           c.scene.Stats(),
		Renderer:        c.renderer.Stats(),
		GPU:             c.gl.Stats(),
		ReprCount:       len(c.reprs),
		CommitQueueSize: c.scene.CommitQueueSize(),
		Draws:           c.draws,
	}
}

// Animate marks the canvas as running and lifts a draw pause.
func (c *Canvas3D) Animate() {
	c.drawPaused = false
	c.running = true
}

// Pause stops the canvas. With noDraw set Draw is suppressed as well.
func (c *Canvas3D) Pause(noDraw bool) {
	c.running = false
	c.drawPaused = noDraw
}

func (c *Canvas3D) Resume() { c.drawPaused = false }

// Tick advances the canvas to time t: controls, commit, camera transition
// and, unless ManualDraw is set, a draw. Input picks run last.
func (c *Canvas3D) Tick(t time.Duration, opts TickOptions) {
	if c.disposed {
		return
	}
	c.currentTime = t
	c.controls.Update(t)
	c.ctx.Passes.HiZ.Sync()
	c.Commit(opts.IsSynchronous)
	c.camera.TickTransition(t)
	if !opts.ManualDraw {
		c.Draw(DrawOptions{})
	}
	if !c.camera.IsAnimating() && !c.gl.IsContextLost() {
		c.profiler.BeginScope("interaction")
		c.interaction.Tick(t)
		c.profiler.EndScope("interaction")
	}
}

// Commit runs one commit step. Once the queue is drained it resolves a
// pending camera reset and the deferred draw, then emits Commited.
func (c *Canvas3D) Commit(isSynchronous bool) {
	if c.disposed {
		return
	}
	c.profiler.BeginScope("commit")
	done := c.commitScene(isSynchronous)
	c.profiler.EndScope("commit")
	if !done {
		return
	}
	if c.mode.Timing {
		c.log.Infof("commit took %s", c.profiler.Scope("commit"))
	}
	if c.cameraResetRequested {
		c.resolveCameraReset()
	}
	if c.forceDrawAfterAllCommited {
		c.updateDebugHelper()
		c.Draw(DrawOptions{Force: true})
		c.forceDrawAfterAllCommited = false
	}
	c.Notifications.Commited.Next(c.currentTime)
}

func (c *Canvas3D) commitScene(isSynchronous bool) bool {
	if !c.scene.NeedsCommit() {
		c.commitPending = false
		return true
	}
	c.oldBoundingSphereVisible = c.scene.BoundingSphereVisible()

	budget := sceneCommitTimeout
	if isSynchronous {
		budget = 0
	}
	if !c.scene.Commit(budget) {
		c.commitPending = true
		c.Notifications.CommitQueueSize.Next(c.scene.CommitQueueSize())
		return false
	}
	c.commitPending = false
	c.Notifications.CommitQueueSize.Next(0)
	c.ctx.Passes.HiZ.Clear()
	c.updateDebugHelper()

	if !c.props.Camera.ManualReset && (len(c.reprs) == 0 || c.shouldResetCamera()) {
		c.cameraResetRequested = true
	}
	if c.cameraResetRequested && c.oldBoundingSphereVisible.Radius == 0 {
		zero := time.Duration(0)
		c.nextCameraReset.Duration = &zero
	}
	if !c.props.Camera.ManualReset {
		r := c.sceneRadius()
		c.camera.Adjust(func(s *camera.Snapshot) { s.RadiusMax = r })
	}
	c.Notifications.ReprCount.Next(len(c.reprs))
	if c.mode.Debug {
		c.consoleStats()
	}
	return true
}

func (c *Canvas3D) sceneRadius() float32 {
	return c.scene.BoundingSphere().Radius * c.props.SceneRadiusFactor
}

// shouldResetCamera reports whether the committed scene moved out of the
// region the camera currently frames.
func (c *Canvas3D) shouldResetCamera() bool {
	st := c.camera.State()
	if st.RadiusMax == 0 {
		return true
	}
	if c.camera.IsAnimating() || c.nextCameraReset.Snapshot != nil {
		return false
	}
	camSphere := core.Sphere3D{Center: st.Target, Radius: st.Radius}
	overlapsNone, isEmpty := true, true
	for _, r := range c.scene.Renderables() {
		if !r.Visible() {
			continue
		}
		b := r.BoundingSphere()
		if b.Radius == 0 {
			continue
		}
		isEmpty = false
		d := camSphere.Center.Sub(b.Center).Len()
		if (d > camSphere.Radius || d > b.Radius || b.Radius > st.RadiusMax) && !c.oldBoundingSphereVisible.Includes(b) {
			return true
		}
		if camSphere.Overlaps(b) {
			overlapsNone = false
		}
	}
	return overlapsNone || (!isEmpty && camSphere.Radius <= 0.1)
}

func (c *Canvas3D) resolveCameraReset() {
	visible := c.scene.BoundingSphereVisible()
	c.controls.AdjustDistance(visible.Radius)
	if visible.Radius > 0 {
		d := c.props.CameraResetDuration
		if c.nextCameraReset.Duration != nil {
			d = *c.nextCameraReset.Duration
		}
		focus := c.camera.GetFocus(visible.Center, visible.Radius)
		if c.nextCameraReset.Snapshot != nil {
			focus = c.nextCameraReset.Snapshot(focus)
		}
		focus.RadiusMax = c.sceneRadius()
		c.camera.SetState(focus, d)
	}
	c.cameraResetRequested = false
	c.nextCameraReset = CameraResetOptions{}
}

// RequestCameraReset schedules a reset for the next completed commit. A
// later request replaces an earlier one.
func (c *Canvas3D) RequestCameraReset(opts CameraResetOptions) {
	c.nextCameraReset = opts
	c.cameraResetRequested = true
}

func (c *Canvas3D) RequestResize() { c.resizeRequested = true }

// HandleResize applies the current input size immediately.
func (c *Canvas3D) HandleResize() { c.handleResize(true) }

func (c *Canvas3D) handleResize(draw bool) {
	c.resizeRequested = false
	c.ctx.HandleResize()
	c.syncViewport()
	c.pick.Dirty()
	c.Notifications.Resized.Next(struct{}{})
	if draw {
		c.Draw(DrawOptions{Force: true})
	}
}

func (c *Canvas3D) syncViewport() {
	w, h := c.gl.DrawingBufferSize()
	vp := c.props.Viewport.resolve(w, h, c.ctx.PixelRatio())
	c.camera.SetViewport(vp)
	c.renderer.SetViewport(vp)
}

func (c *Canvas3D) clearFence() {
	if c.fence != nil {
		c.fence.Delete()
		c.fence = nil
	}
}

// Draw renders a frame when anything changed, or always with Force, and
// emits DidDraw.
func (c *Canvas3D) Draw(opts DrawOptions) {
	if c.disposed || c.drawPaused {
		return
	}
	if !c.Render(opts.Force) {
		return
	}
	if c.mode.Timing {
		c.log.Infof("render took %s", c.profiler.Scope("render"))
	}
	c.Notifications.DidDraw.Next(c.currentTime)
}

// Render draws one frame and reports whether anything was drawn. It skips
// while the context is lost or the previous frame is still on the GPU.
func (c *Canvas3D) Render(force bool) bool {
	if c.disposed || c.drawPaused || c.gl.IsContextLost() {
		return false
	}
	if c.fence != nil {
		if !c.fence.Signaled() {
			if force {
				c.forceNextRender = true
			}
			return false
		}
		c.clearFence()
	}

	resized := c.resizeRequested
	if resized {
		c.handleResize(false)
	}
	vp := c.camera.Viewport()
	if vp.IsZero() {
		return false
	}
	if w, h := c.gl.DrawingBufferSize(); vp.X >= w || vp.Y >= h || vp.X+vp.Width <= 0 || vp.Y+vp.Height <= 0 {
		return false
	}

	c.profiler.BeginScope("render")
	defer c.profiler.EndScope("render")

	markingUpdated := c.resolveMarking() && (c.renderer.Props().ColorMarker || c.props.Marking.Enabled)
	cameraChanged := c.camera.Update()
	shouldRender := force || cameraChanged || resized || c.forceNextRender
	c.forceNextRender = false
	changed := shouldRender || markingUpdated

	p := c.ctx.Passes
	illumination := p.Illumination != nil && c.props.Illumination.Enabled
	interacting := c.isInteracting()
	var illumDue, msDue bool
	switch {
	case c.scene.Count() == 0:
	case illumination:
		if changed {
			p.Illumination.Reset()
		}
		illumDue = !interacting && p.Illumination.ShouldRender(c.props.Illumination)
	default:
		msDue = c.multiSample.Update(changed, c.props.MultiSample) &&
			(changed || c.multiSample.Pass().SampleIndex() > 0)
	}
	if !changed && !illumDue && !msDue {
		return false
	}

	if c.cameraHelper.IsEnabled() {
		if err := c.cameraHelper.Update(c.camera); err != nil {
			c.log.Warnf("camera helper: %v", err)
		}
	}
	drawProps := c.props.drawProps()
	hiZ := c.props.HiZ.Enabled && !illumination && !c.props.Camera.Stereo.Enabled
	p.HiZ.Enabled = hiZ
	if hiZ && p.HiZ.HasData() {
		c.renderer.SetOcclusionTest(p.HiZ.IsOccluded)
	} else {
		c.renderer.SetOcclusionTest(nil)
	}

	switch {
	case c.props.Camera.Stereo.Enabled:
		c.stereo.Update()
		p.Draw.Render(c.renderContext(&c.stereo.Left), drawProps, nil)
		p.Draw.Render(c.renderContext(&c.stereo.Right), drawProps, nil)
	case illumination && illumDue:
		p.Illumination.Render(c.renderContext(c.camera), drawProps, c.props.Illumination, nil)
	case illumination:
		p.Draw.Render(c.renderContext(c.camera), drawProps, nil)
	default:
		ms := c.props.MultiSample
		if ms.ReduceFlicker && !cameraChanged && markingUpdated && !c.controls.IsAnimating() {
			ms.Mode = passes.MultiSampleOn
		}
		rc := c.renderContext(c.camera)
		if !c.multiSample.Render(rc, drawProps, ms, nil) {
			p.Draw.Render(rc, drawProps, nil)
		}
		if hiZ {
			p.HiZ.Render(p.Draw.ColorTarget(), c.camera)
		}
	}

	c.pick.Dirty()
	c.fence = c.gl.FenceSync()
	c.gl.Flush()
	c.draws++
	return true
}

func (c *Canvas3D) isInteracting() bool {
	if c.controls.IsInteracting() {
		return true
	}
	return c.interacted && c.currentTime-c.lastInteraction < c.props.UserInteractionRelease
}

func (c *Canvas3D) renderContext(cam renderer.Camera) passes.RenderContext {
	return passes.RenderContext{
		Renderer: c.renderer,
		Camera:   cam,
		Scene:    c.scene,
		Helpers:  c.helperGroups(),
	}
}

func (c *Canvas3D) helperGroups() []*scene.Group {
	var out []*scene.Group
	for _, s := range []*scene.Scene{c.debugHelper.Scene(), c.handleHelper.Scene(), c.cameraHelper.Scene()} {
		if s.Count() > 0 {
			out = append(out, s.Primitives())
		}
	}
	return out
}

func (c *Canvas3D) updateDebugHelper() {
	if err := c.debugHelper.Update(c.scene); err != nil {
		c.log.Warnf("debug helper: %v", err)
	}
}

// pickCamera returns the camera covering window column x. Switching
// cameras invalidates the pick buffers.
func (c *Canvas3D) pickCamera(x int) renderer.Camera {
	var cam renderer.Camera = c.camera
	if c.props.Camera.Stereo.Enabled {
		c.stereo.Update()
		cam = &c.stereo.Left
		if x >= c.stereo.Right.Viewport().X {
			cam = &c.stereo.Right
		}
	}
	if cam != c.lastPickCamera {
		c.pick.Dirty()
		c.lastPickCamera = cam
	}
	return cam
}

// Identify picks at window position (x, y), origin top left.
func (c *Canvas3D) Identify(x, y float32) (passes.PickData, bool) {
	if c.disposed || c.gl.IsContextLost() {
		return passes.PickData{}, false
	}
	c.profiler.BeginScope("pick")
	defer c.profiler.EndScope("pick")
	ratio := c.ctx.PixelRatio()
	bx, by := int(x*ratio), int(y*ratio)
	cam := c.pickCamera(bx)
	return c.pick.Identify(c.renderContext(cam), bx, by)
}

// GetLoci resolves a picking id. Helpers take precedence over
// representations; when several representations claim the id the first
// added wins.
func (c *Canvas3D) GetLoci(id core.PickingID) repr.ReprLoci {
	if l := c.cameraHelper.GetLoci(id); !l.IsEmpty() {
		return repr.ReprLoci{Loci: l}
	}
	if l := c.handleHelper.GetLoci(id); !l.IsEmpty() {
		return repr.ReprLoci{Loci: l}
	}
	out := repr.ReprLoci{Loci: repr.Empty}
	for _, e := range c.reprs {
		l := e.repr.GetLoci(id)
		if l.IsEmpty() {
			continue
		}
		if !out.IsEmpty() {
			if !c.mode.Production {
				c.log.Warnf("picking id %s matches %q and %q, keeping the first", id, out.Repr.Label(), e.repr.Label())
			}
			continue
		}
		out = repr.ReprLoci{Loci: l, Repr: e.repr}
	}
	return out
}

func (c *Canvas3D) identifyLoci(x, y float32) (repr.ReprLoci, mgl32.Vec3, bool) {
	pd, ok := c.Identify(x, y)
	if !ok {
		return repr.ReprLoci{}, mgl32.Vec3{}, false
	}
	cam := c.lastPickCamera
	vp := cam.Viewport()
	pos, err := mgl32.UnProject(pd.Point, cam.View(), cam.Projection(), vp.X, vp.Y, vp.Width, vp.Height)
	if err != nil {
		pos = mgl32.Vec3{}
	}
	return c.GetLoci(pd.ID), pos, true
}

// Mark queues a marker change applied before the next frame. Marks queued
// between two frames share one scene update.
func (c *Canvas3D) Mark(l repr.ReprLoci, a geometry.MarkerAction) {
	if c.disposed {
		return
	}
	c.markBuffer = append(c.markBuffer, markEntry{loci: l, action: a})
}

func (c *Canvas3D) resolveMarking() bool {
	if len(c.markBuffer) == 0 {
		return false
	}
	changed, helpers := false, false
	for _, m := range c.markBuffer {
		if m.loci.Repr != nil {
			changed = m.loci.Repr.Mark(m.loci.Loci, m.action) || changed
			continue
		}
		if c.handleHelper.Mark(m.loci.Loci, m.action) {
			helpers = true
		}
		if c.cameraHelper.Mark(m.loci.Loci, m.action) {
			helpers = true
		}
		for _, e := range c.reprs {
			changed = e.repr.Mark(m.loci.Loci, m.action) || changed
		}
	}
	c.markBuffer = c.markBuffer[:0]

	if changed {
		pending := c.scene.NeedsCommit()
		c.scene.Update(nil, true)
		if pending {
			c.forceDrawAfterAllCommited = true
		} else {
			c.scene.Commit(0)
		}
	}
	if helpers {
		c.handleHelper.SyncMarkers()
		c.cameraHelper.SyncMarkers()
	}
	return changed || helpers
}

func (c *Canvas3D) entry(r repr.Representation) (int, *reprEntry) {
	for i, e := range c.reprs {
		if e.repr == r {
			return i, e
		}
	}
	return -1, nil
}

// Add registers r, or syncs its render objects when it is already
// registered. Adding the same objects twice queues updates only.
func (c *Canvas3D) Add(r repr.Representation) {
	if c.disposed || r == nil {
		return
	}
	next := slices.Clone(r.RenderObjects())
	_, e := c.entry(r)
	if e == nil {
		e = &reprEntry{repr: r}
		e.sub = r.Updated().Subscribe(func(int) { c.Add(r) })
		c.reprs = append(c.reprs, e)
		for _, o := range next {
			c.scene.Add(o)
		}
	} else {
		for _, o := range next {
			if !slices.Contains(e.objects, o) {
				c.scene.Add(o)
			}
		}
		for _, o := range e.objects {
			if !slices.Contains(next, o) {
				c.scene.Remove(o)
			}
		}
	}
	e.objects = next
	if len(next) > 0 {
		c.scene.Update(next, false)
	}
	c.forceDrawAfterAllCommited = true
	if c.mode.Debug {
		c.log.Debugf("add repr %d %q with %d objects", r.ID(), r.Label(), len(next))
	}
}

func (c *Canvas3D) Remove(r repr.Representation) {
	i, e := c.entry(r)
	if e == nil {
		return
	}
	e.sub.Unsubscribe()
	for _, o := range e.objects {
		c.scene.Remove(o)
	}
	c.reprs = slices.Delete(c.reprs, i, i+1)
	c.forceNextRender = true
}

// Update queues value uploads for r, or for every representation when r
// is nil.
func (c *Canvas3D) Update(r repr.Representation, keepBoundingSphere bool) {
	if r == nil {
		c.scene.Update(nil, keepBoundingSphere)
	} else if _, e := c.entry(r); e != nil && len(e.objects) > 0 {
		c.scene.Update(e.objects, keepBoundingSphere)
	} else {
		return
	}
	c.forceDrawAfterAllCommited = true
}

// Clear removes every representation at once.
func (c *Canvas3D) Clear() {
	for _, e := range c.reprs {
		e.sub.Unsubscribe()
	}
	c.reprs = nil
	c.markBuffer = c.markBuffer[:0]
	c.scene.Clear()
	c.updateDebugHelper()
	c.forceNextRender = true
	c.Notifications.ReprCount.Next(0)
}

// SyncVisibility recomputes visibility dependent state after object
// visibility changed.
func (c *Canvas3D) SyncVisibility() {
	if c.camera.State().RadiusMax == 0 {
		zero := time.Duration(0)
		c.RequestCameraReset(CameraResetOptions{Duration: &zero})
	}
	if c.scene.SyncVisibility() {
		c.updateDebugHelper()
	}
	c.forceNextRender = true
}

// SetProps applies the set sections and reports whether anything changed.
// Unless doNotRequestDraw is set the next frame is forced.
func (c *Canvas3D) SetProps(pp PartialProps, doNotRequestDraw bool) bool {
	if c.disposed {
		return false
	}
	prev := c.props
	next := prev.Merge(pp)
	if next == prev {
		return false
	}
	c.props = next

	if next.Camera != prev.Camera || next.CameraFog != prev.CameraFog || next.CameraClipping != prev.CameraClipping {
		c.applyCameraProps()
	}
	if next.Camera.Helper != prev.Camera.Helper {
		c.cameraHelper.Props = next.Camera.Helper
		if err := c.cameraHelper.Update(c.camera); err != nil {
			c.log.Warnf("camera helper: %v", err)
		}
	}
	if next.Camera.Stereo != prev.Camera.Stereo {
		c.stereo.Props = next.Camera.Stereo.StereoProps
		c.lastPickCamera = nil
	}
	if next.Viewport != prev.Viewport {
		c.syncViewport()
		c.pick.Dirty()
	}
	if next.Renderer != prev.Renderer {
		c.renderer.SetProps(next.Renderer)
	}
	if next.Trackball != prev.Trackball {
		c.controls.SetProps(next.Trackball)
	}
	if next.Interaction != prev.Interaction {
		c.interaction.SetProps(next.Interaction)
	}
	if next.Debug != prev.Debug {
		c.debugHelper.Props = next.Debug
		c.updateDebugHelper()
	}
	if next.Handle != prev.Handle {
		c.handleHelper.Props = next.Handle
		if err := c.handleHelper.Update(); err != nil {
			c.log.Warnf("handle helper: %v", err)
		}
	}
	if next.MultiSample != prev.MultiSample {
		c.multiSample.Pass().Reset()
	}
	if next.Illumination != prev.Illumination && c.ctx.Passes.Illumination != nil {
		c.ctx.Passes.Illumination.Reset()
	}
	if next.HiZ != prev.HiZ {
		c.ctx.Passes.HiZ.Clear()
	}
	if !doNotRequestDraw {
		c.forceNextRender = true
	}
	return true
}

// applyCameraProps pushes mode, fov, fog and clipping into the camera
// state and any running transition.
func (c *Canvas3D) applyCameraProps() {
	var radius float32
	if r := c.props.CameraClipping.Radius; r < 100 {
		radius = c.sceneRadius() * r / 100
	}
	c.camera.Adjust(func(s *camera.Snapshot) {
		*s = c.cameraSnapshot(*s)
		if radius > 0 {
			s.Radius = radius
		}
	})
}

// ImagePass returns an offscreen pass rendering this canvas with a copy of
// its camera sized to the requested image.
func (c *Canvas3D) ImagePass(props passes.ImageProps) *passes.ImagePass {
	source := func(w, h int) passes.RenderContext {
		cam := c.camera.Clone()
		cam.SetViewport(core.Viewport{Width: w, Height: h})
		cam.Update()
		c.renderer.SetOcclusionTest(nil)
		c.forceNextRender = true
		return c.renderContext(cam)
	}
	cp := c.ctx.Props()
	return passes.NewImagePass(c.gl, source, props, c.props.drawProps(), cp.EnableWboit, cp.EnableDpoit)
}

func (c *Canvas3D) consoleStats() {
	st := c.Stats()
	c.profiler.SetCount("reprs", st.ReprCount)
	c.profiler.SetCount("objects", c.scene.Count())
	c.profiler.SetCount("drawCalls", st.GPU.DrawCalls)
	c.profiler.SetCount("instances", st.GPU.InstancesDrawn)
	c.profiler.SetCount("buffers", st.GPU.Buffers)
	c.profiler.SetCount("textures", st.GPU.Textures)
	c.log.Debugf("reprs=%d objects=%d drawCalls=%d buffers=%d textures=%d",
		st.ReprCount, c.scene.Count(), st.GPU.DrawCalls, st.GPU.Buffers, st.GPU.Textures)
	c.mode.publish(ConsoleStats{Canvas: c.id.String(), Stats: st, Timings: c.profiler.GetStatsString()})
}

// Dispose releases everything the canvas created. The context stays
// usable for other canvases.
func (c *Canvas3D) Dispose() {
	if c.disposed {
		return
	}
	c.disposed = true
	c.subs.Unsubscribe()
	for _, e := range c.reprs {
		e.sub.Unsubscribe()
	}
	c.reprs = nil
	c.markBuffer = nil
	c.scene.Clear()
	c.cameraHelper.Dispose()
	c.handleHelper.Dispose()
	c.debugHelper.Dispose()
	c.controls.Dispose()
	c.interaction.Dispose()
	c.clearFence()
	c.renderer.SetOcclusionTest(nil)

	n := c.Notifications
	n.DidDraw.Close()
	n.Commited.Close()
	n.CommitQueueSize.Close()
	n.ReprCount.Close()
	n.Resized.Close()
}
