package canvas3d

import (
	"errors"
	"fmt"
	"time"

	"github.com/molcanvas/canvas3d/molgl/event"
	"github.com/molcanvas/canvas3d/molgl/gpu"
	"github.com/molcanvas/canvas3d/molgl/input"
	"github.com/molcanvas/canvas3d/molgl/passes"
	"github.com/molcanvas/canvas3d/molgl/scene"

	"github.com/chewxy/math32"
	"github.com/google/uuid"
)

var (
	ErrNoTarget    = errors.New("no rendering target")
	ErrContextLost = passes.ErrContextLost
)

type ResolutionMode int

const (
	// ResolutionAuto renders at device resolution on low density displays
	// and at window resolution on high density ones.
	ResolutionAuto ResolutionMode = iota
	ResolutionScaled
	ResolutionNative
)

func (m ResolutionMode) String() string {
	switch m {
	case ResolutionScaled:
		return "scaled"
	case ResolutionNative:
		return "native"
	}
	return "auto"
}

func ParseResolutionMode(s string) (ResolutionMode, error) {
	switch s {
	case "auto", "":
		return ResolutionAuto, nil
	case "scaled":
		return ResolutionScaled, nil
	case "native":
		return ResolutionNative, nil
	}
	return 0, fmt.Errorf("unknown resolution mode %q", s)
}

type ContextProps struct {
	ResolutionMode ResolutionMode
	PixelScale     float32
	PickScale      float32
	// PickPadding is the search radius in pixels around a pick position.
	PickPadding  int
	EnableWboit  bool
	EnableDpoit  bool
	Transparency scene.Transparency
}

func DefaultContextProps() ContextProps {
	return ContextProps{
		ResolutionMode: ResolutionAuto,
		PixelScale:     1,
		PickScale:      0.25,
		PickPadding:    3,
		Transparency:   scene.TransparencyBlended,
	}
}

type PartialContextProps struct {
	ResolutionMode *ResolutionMode
	PixelScale     *float32
	PickScale      *float32
	PickPadding    *int
	EnableWboit    *bool
	EnableDpoit    *bool
	Transparency   *scene.Transparency
}

// ContextPasses are the render passes shared by every canvas drawing into
// one context.
type ContextPasses struct {
	Draw         *passes.DrawPass
	Pick         *passes.PickPass
	MultiSample  *passes.MultiSamplePass
	Illumination *passes.IlluminationPass
	HiZ          *passes.HiZPass
}

func newContextPasses(gl gpu.Context, w, h int, props ContextProps) *ContextPasses {
	draw := passes.NewDrawPass(gl, w, h, props.EnableWboit, props.EnableDpoit)
	p := &ContextPasses{
		Draw:        draw,
		Pick:        passes.NewPickPass(gl, w, h, props.PickScale),
		MultiSample: passes.NewMultiSamplePass(gl, draw, w, h),
		HiZ:         passes.NewHiZPass(gl, w, h),
	}
	if passes.IlluminationSupported(gl.Extensions()) {
		p.Illumination = passes.NewIlluminationPass(gl, w, h)
	}
	return p
}

func (p *ContextPasses) setSize(w, h int) {
	p.Draw.SetSize(w, h)
	p.Pick.SetSize(w, h)
	p.MultiSample.SetSize(w, h)
	p.HiZ.SetSize(w, h)
	if p.Illumination != nil {
		p.Illumination.SetSize(w, h)
	}
}

// reset restarts every accumulation after the GPU resources were lost.
func (p *ContextPasses) reset() {
	p.MultiSample.Reset()
	p.HiZ.Clear()
	if p.Illumination != nil {
		p.Illumination.Reset()
	}
}

func (p *ContextPasses) dispose() {
	p.Draw.Dispose()
	p.Pick.Dispose()
	p.MultiSample.Dispose()
	p.HiZ.Dispose()
	if p.Illumination != nil {
		p.Illumination.Dispose()
	}
}

type ContextOption func(*Canvas3DContext)

func WithContextLogger(l Logger) ContextOption {
	return func(c *Canvas3DContext) { c.log = l }
}

func WithContextMode(m *Mode) ContextOption {
	return func(c *Canvas3DContext) { c.mode = m }
}

func WithContextProps(p ContextProps) ContextOption {
	return func(c *Canvas3DContext) { c.props = p }
}

// WithDevicePixelRatio sets the ratio of device pixels to window pixels.
func WithDevicePixelRatio(r float32) ContextOption {
	return func(c *Canvas3DContext) { c.devicePixelRatio = r }
}

// Canvas3DContext owns one GPU context, its input and the passes drawn
// through it.
type Canvas3DContext struct {
	id    uuid.UUID
	GL    gpu.Context
	Input *input.Observer

	Passes *ContextPasses
	// Changed fires after SetProps changed anything.
	Changed *event.Subject[struct{}]
	// ContextRestored fires once the GPU resources were recreated.
	ContextRestored *event.Subject[time.Time]

	props            ContextProps
	devicePixelRatio float32
	pixelRatio       float32
	log              Logger
	mode             *Mode
	subs             event.Group
	disposed         bool
}

// NewContext wraps gl. The drawing buffer is sized from the input size.
func NewContext(gl gpu.Context, in *input.Observer, opts ...ContextOption) (*Canvas3DContext, error) {
	if gl == nil {
		return nil, fmt.Errorf("create context: %w", ErrNoTarget)
	}
	if in == nil {
		in = input.NewObserver()
	}
	c := &Canvas3DContext{
		id:               uuid.New(),
		GL:               gl,
		Input:            in,
		Changed:          event.NewSubject[struct{}](),
		ContextRestored:  event.NewSubject[time.Time](),
		props:            DefaultContextProps(),
		devicePixelRatio: 1,
	}
	for _, o := range opts {
		o(c)
	}
	if c.mode == nil {
		c.mode = NewMode()
	}
	if c.log == nil {
		c.log = newModeLogger("canvas3d-context:"+c.id.String()[:8], c.mode)
	}
	c.pixelRatio = c.computePixelRatio()
	if w, h := in.Size(); w > 0 && h > 0 {
		gl.SetDrawingBufferSize(c.scaled(w), c.scaled(h))
	}
	w, h := gl.DrawingBufferSize()
	c.Passes = newContextPasses(gl, w, h, c.props)

	c.subs.Add(
		gl.ContextLost().Subscribe(func(time.Time) {
			c.log.Warnf("context lost")
		}),
		gl.ContextRestored().Subscribe(func(t time.Time) {
			gl.HandleContextRestored(c.Passes.reset)
			c.log.Infof("context restored")
			c.ContextRestored.Next(t)
		}),
	)
	return c, nil
}

func (c *Canvas3DContext) ID() uuid.UUID       { return c.id }
func (c *Canvas3DContext) Props() ContextProps { return c.props }
func (c *Canvas3DContext) Mode() *Mode         { return c.mode }
func (c *Canvas3DContext) Logger() Logger      { return c.log }
func (c *Canvas3DContext) IsContextLost() bool { return c.GL.IsContextLost() }
func (c *Canvas3DContext) PixelRatio() float32 { return c.pixelRatio }
func (c *Canvas3DContext) IsDisposed() bool    { return c.disposed }

func (c *Canvas3DContext) computePixelRatio() float32 {
	scale := c.props.PixelScale
	if scale <= 0 {
		scale = 1
	}
	dpr := max(c.devicePixelRatio, 1)
	switch c.props.ResolutionMode {
	case ResolutionScaled:
		return dpr * scale
	case ResolutionNative:
		return scale
	}
	if dpr > 1 {
		return scale
	}
	return dpr * scale
}

func (c *Canvas3DContext) scaled(v int) int {
	return max(int(math32.Round(float32(v)*c.pixelRatio)), 1)
}

// HandleResize sizes the drawing buffer and the passes to the input size.
func (c *Canvas3DContext) HandleResize() {
	w, h := c.Input.Size()
	if w > 0 && h > 0 {
		c.GL.SetDrawingBufferSize(c.scaled(w), c.scaled(h))
	}
	bw, bh := c.GL.DrawingBufferSize()
	c.Passes.setSize(bw, bh)
}

// SetDevicePixelRatio updates the ratio reported by the host display.
func (c *Canvas3DContext) SetDevicePixelRatio(r float32) {
	c.devicePixelRatio = r
	c.SetProps(PartialContextProps{})
}

// SetProps applies the set fields and fires Changed when anything moved.
func (c *Canvas3DContext) SetProps(pp PartialContextProps) {
	next := c.props
	set(&next.ResolutionMode, pp.ResolutionMode)
	set(&next.PixelScale, pp.PixelScale)
	set(&next.PickScale, pp.PickScale)
	set(&next.PickPadding, pp.PickPadding)
	set(&next.EnableWboit, pp.EnableWboit)
	set(&next.EnableDpoit, pp.EnableDpoit)
	set(&next.Transparency, pp.Transparency)

	prev := c.props
	c.props = next
	ratio := c.computePixelRatio()
	if next == prev && ratio == c.pixelRatio {
		return
	}
	if next.EnableWboit != prev.EnableWboit || next.EnableDpoit != prev.EnableDpoit {
		w, h := c.GL.DrawingBufferSize()
		c.Passes.dispose()
		c.Passes = newContextPasses(c.GL, w, h, next)
	}
	if next.PickScale != prev.PickScale {
		w, h := c.GL.DrawingBufferSize()
		c.Passes.Pick.SetScale(next.PickScale, w, h)
	}
	if ratio != c.pixelRatio {
		c.pixelRatio = ratio
		c.HandleResize()
	}
	c.Changed.Next(struct{}{})
}

// SimulateContextLoss loses the GPU context and restores it after the
// caller invokes the returned func. It is only available in debug mode.
func (c *Canvas3DContext) SimulateContextLoss() (restore func(), err error) {
	if !c.mode.Debug {
		return nil, errors.New("simulate context loss: debug mode only")
	}
	ext := c.GL.LoseContextExtension()
	if ext == nil {
		return nil, errors.New("simulate context loss: extension unavailable")
	}
	ext.LoseContext()
	return ext.RestoreContext, nil
}

// Dispose releases the passes and the GPU context.
func (c *Canvas3DContext) Dispose() {
	if c.disposed {
		return
	}
	c.disposed = true
	c.subs.Unsubscribe()
	c.Passes.dispose()
	c.Changed.Close()
	c.ContextRestored.Close()
	c.GL.Destroy()
}
