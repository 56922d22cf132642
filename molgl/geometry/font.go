package geometry

import (
	"fmt"
	"image"
	"image/draw"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	atlasSize     = 256
	atlasFontSize = 18
	atlasPadding  = 2
)

// Glyph locates one rasterized rune in the atlas. Offsets and sizes are in
// em units so a label of size s scales them by s.
type Glyph struct {
	UVMin, UVMax [2]float32
	Size         [2]float32
	// Off is the top left corner relative to the pen on the baseline, y down.
	Off [2]float32
	Adv float32
}

// GlyphAtlas is an alpha coverage atlas of the printable ASCII range.
type GlyphAtlas struct {
	Glyphs  map[rune]Glyph
	Texture TextureData
	// Ascent and LineHeight are in em units.
	Ascent     float32
	LineHeight float32
}

// NewGlyphAtlas rasterizes the printable ASCII runes of an OpenType font.
func NewGlyphAtlas(ttf []byte, size float64) (*GlyphAtlas, error) {
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("create face: %w", err)
	}
	defer face.Close()

	em := float32(size)
	img := image.NewAlpha(image.Rect(0, 0, atlasSize, atlasSize))
	a := &GlyphAtlas{Glyphs: make(map[rune]Glyph)}
	m := face.Metrics()
	a.Ascent = float32(m.Ascent.Ceil()) / em
	a.LineHeight = float32(m.Height.Ceil()) / em

	x, y, rowHeight := atlasPadding, atlasPadding, 0
	for r := rune(32); r < 127; r++ {
		bounds, mask, mp, adv, ok := face.Glyph(fixed.Point26_6{}, r)
		if !ok {
			continue
		}
		w, h := bounds.Dx(), bounds.Dy()
		if x+w >= atlasSize {
			x = atlasPadding
			y += rowHeight + 2*atlasPadding
			rowHeight = 0
		}
		if y+h >= atlasSize {
			return nil, fmt.Errorf("glyph atlas overflow at %q with font size %v", r, size)
		}
		draw.Draw(img, image.Rect(x, y, x+w, y+h), mask, mp, draw.Src)
		a.Glyphs[r] = Glyph{
			UVMin: [2]float32{float32(x) / atlasSize, float32(y) / atlasSize},
			UVMax: [2]float32{float32(x+w) / atlasSize, float32(y+h) / atlasSize},
			Size:  [2]float32{float32(w) / em, float32(h) / em},
			Off:   [2]float32{float32(bounds.Min.X) / em, float32(bounds.Min.Y) / em},
			Adv:   float32(adv) / 64 / em,
		}
		x += w + 2*atlasPadding
		rowHeight = max(rowHeight, h)
	}

	rgba := make([]float32, atlasSize*atlasSize*4)
	for i, c := range img.Pix {
		rgba[i*4], rgba[i*4+1], rgba[i*4+2] = 1, 1, 1
		rgba[i*4+3] = float32(c) / 255
	}
	a.Texture = TextureData{Width: atlasSize, Height: atlasSize, RGBA: rgba}
	return a, nil
}

var defaultAtlas = sync.OnceValues(func() (*GlyphAtlas, error) {
	return NewGlyphAtlas(goregular.TTF, atlasFontSize)
})

// DefaultGlyphAtlas is the shared atlas of the Go Regular font.
func DefaultGlyphAtlas() (*GlyphAtlas, error) { return defaultAtlas() }

// Measure returns the width and height of text at size, honoring newlines.
func (a *GlyphAtlas) Measure(text string, size float32) (width, height float32) {
	lines := 1
	line := float32(0)
	for _, r := range text {
		if r == '\n' {
			width = max(width, line)
			line = 0
			lines++
			continue
		}
		line += a.Glyphs[r].Adv
	}
	width = max(width, line)
	return width * size, a.LineHeight * size * float32(lines)
}

// GlyphCount is the number of quads text lays out to.
func (a *GlyphAtlas) GlyphCount(text string) int {
	n := 0
	for _, r := range text {
		if g, ok := a.Glyphs[r]; ok && g.Size[0] > 0 && g.Size[1] > 0 {
			n++
		}
	}
	return n
}

// quad is a glyph rectangle in the label plane, y up, with its uv box.
type quad struct {
	x0, y0, x1, y1 float32
	uv             [2][2]float32
}

// layout places the glyphs of text with the baseline of the first line at
// y = 0.
func (a *GlyphAtlas) layout(text string, size float32) []quad {
	var out []quad
	penX, penY := float32(0), float32(0)
	for _, r := range text {
		if r == '\n' {
			penX = 0
			penY -= a.LineHeight * size
			continue
		}
		g, ok := a.Glyphs[r]
		if !ok {
			continue
		}
		if g.Size[0] > 0 && g.Size[1] > 0 {
			x0 := penX + g.Off[0]*size
			top := penY - g.Off[1]*size
			out = append(out, quad{
				x0: x0, y0: top - g.Size[1]*size,
				x1: x0 + g.Size[0]*size, y1: top,
				uv: [2][2]float32{g.UVMin, g.UVMax},
			})
		}
		penX += g.Adv * size
	}
	return out
}
