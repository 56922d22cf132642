package core

// Viewport is a pixel rectangle with the origin at the bottom left.
type Viewport struct {
	X, Y          int
	Width, Height int
}

func (v Viewport) Equals(o Viewport) bool {
	return v == o
}

func (v Viewport) IsZero() bool {
	return v.Width <= 0 || v.Height <= 0
}

func (v Viewport) Aspect() float32 {
	if v.Height == 0 {
		return 1
	}
	return float32(v.Width) / float32(v.Height)
}

// ContainsWindowPoint reports whether the point, given in window coordinates
// with the origin at the top left of a surface of the given height, lies
// inside the viewport.
func (v Viewport) ContainsWindowPoint(x, y, surfaceHeight int) bool {
	gy := surfaceHeight - y
	return x >= v.X && x < v.X+v.Width && gy > v.Y && gy <= v.Y+v.Height
}
