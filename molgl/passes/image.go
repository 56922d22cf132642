package passes

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/molcanvas/canvas3d/molgl/gpu"

	xdraw "golang.org/x/image/draw"
)

var (
	ErrContextLost   = errors.New("context lost")
	ErrImageTooLarge = errors.New("image exceeds max texture size")
)

type ImageProps struct {
	TransparentBackground bool
	MultiSample           MultiSampleProps
	// Supersample renders at this factor and scales the result down.
	Supersample int
}

// RenderContextSource returns a render context whose camera covers an
// image of width by height pixels.
type RenderContextSource func(width, height int) RenderContext

// ImagePass renders the scene offscreen at an arbitrary size.
type ImagePass struct {
	ctx    gpu.Context
	draw   *DrawPass
	multi  *MultiSamplePass
	target gpu.RenderTarget
	source RenderContextSource

	Props     ImageProps
	DrawProps Props
}

func NewImagePass(ctx gpu.Context, source RenderContextSource, props ImageProps, drawProps Props, enableWboit, enableDpoit bool) *ImagePass {
	draw := NewDrawPass(ctx, 1, 1, enableWboit, enableDpoit)
	return &ImagePass{
		ctx:       ctx,
		draw:      draw,
		multi:     NewMultiSamplePass(ctx, draw, 1, 1),
		target:    ctx.CreateRenderTarget(1, 1, gpu.TargetOptions{Label: "image", Type: gpu.TextureFloat, Depth: true}),
		source:    source,
		Props:     props,
		DrawProps: drawProps,
	}
}

func (p *ImagePass) setSize(w, h int) {
	p.draw.SetSize(w, h)
	p.multi.SetSize(w, h)
	ensureSize(p.target, w, h)
}

// GetImageData renders the scene and returns it as a top-down RGBA image.
func (p *ImagePass) GetImageData(width, height int) (*image.RGBA, error) {
	if p.ctx.IsContextLost() {
		return nil, fmt.Errorf("image pass: %w", ErrContextLost)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("image pass: invalid size %dx%d", width, height)
	}
	s := max(p.Props.Supersample, 1)
	rw, rh := width*s, height*s
	if limit := p.ctx.MaxTextureSize(); rw > limit || rh > limit {
		return nil, fmt.Errorf("image pass %dx%d (limit %d): %w", rw, rh, limit, ErrImageTooLarge)
	}
	p.setSize(rw, rh)

	rc := p.source(rw, rh)
	drawProps := p.DrawProps
	drawProps.TransparentBackground = p.Props.TransparentBackground
	if p.Props.MultiSample.Mode == MultiSampleOff {
		p.draw.Render(rc, drawProps, p.target)
	} else {
		p.multi.Render(rc, drawProps, p.Props.MultiSample, p.target)
	}

	buf := make([]float32, rw*rh*4)
	if err := p.target.ReadFloatPixels(0, 0, 0, rw, rh, buf); err != nil {
		return nil, fmt.Errorf("image pass: %w", err)
	}
	img := toRGBA(buf, rw, rh)
	if s == 1 {
		return img, nil
	}
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(out, out.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return out, nil
}

// toRGBA flips bottom-up float rows into an image.
func toRGBA(buf []float32, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := h - 1 - y
		for x := 0; x < w; x++ {
			i := (row*w + x) * 4
			img.SetRGBA(x, y, color.RGBA{
				R: to8(buf[i] * buf[i+3]),
				G: to8(buf[i+1] * buf[i+3]),
				B: to8(buf[i+2] * buf[i+3]),
				A: to8(buf[i+3]),
			})
		}
	}
	return img
}

func to8(v float32) uint8 {
	return uint8(min(max(v, 0), 1)*255 + 0.5)
}

func (p *ImagePass) Dispose() {
	p.draw.Dispose()
	p.multi.Dispose()
	p.target.Destroy()
}
