// Command molview opens a window and renders a small demo molecule with the
// software backend. Hovering highlights atoms, clicking toggles their
// selection. With -props the given TOML file is applied on start and
// reloaded whenever it changes.
package main

import (
	"flag"
	"os"
	"path/filepath"
	"time"

	"github.com/molcanvas/canvas3d"
	"github.com/molcanvas/canvas3d/molgl/core"
	"github.com/molcanvas/canvas3d/molgl/geometry"
	"github.com/molcanvas/canvas3d/molgl/gpu/soft"
	"github.com/molcanvas/canvas3d/molgl/host"
	"github.com/molcanvas/canvas3d/molgl/input"
	"github.com/molcanvas/canvas3d/molgl/repr"

	"github.com/chewxy/math32"
	"github.com/fsnotify/fsnotify"
)

func main() {
	width := flag.Int("width", 960, "window width")
	height := flag.Int("height", 720, "window height")
	atoms := flag.Int("atoms", 48, "number of atoms in the demo helix")
	propsPath := flag.String("props", "", "TOML canvas props file, reloaded on change")
	debug := flag.Bool("debug", false, "log debug output and console stats")
	timing := flag.Bool("timing", false, "log commit and render timings")
	flag.Parse()

	logger := canvas3d.NewDefaultLogger("molview", *debug)
	if err := run(logger, *width, *height, *atoms, *propsPath, *debug, *timing); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(logger *canvas3d.DefaultLogger, width, height, atoms int, propsPath string, debug, timing bool) error {
	win, err := host.OpenWindow(width, height, "molview")
	if err != nil {
		return err
	}
	defer win.Close()

	presenter, err := host.NewPresenter(win)
	if err != nil {
		return err
	}
	defer presenter.Release()

	fw, fh := win.FramebufferSize()
	gl := soft.New(soft.Options{Width: fw, Height: fh})
	defer gl.Destroy()

	obs := input.NewObserver()
	defer obs.Dispose()
	win.BindInput(obs, presenter.Resize)

	mode := canvas3d.NewMode()
	mode.Debug, mode.Timing = debug, timing
	ctx, err := canvas3d.NewContext(gl, obs, canvas3d.WithContextMode(mode), canvas3d.WithContextLogger(logger.With("context")))
	if err != nil {
		return err
	}
	defer ctx.Dispose()

	canvas, err := canvas3d.New(ctx, canvas3d.WithLogger(logger.With("canvas")))
	if err != nil {
		return err
	}
	defer canvas.Dispose()

	mol, err := demoMolecule(atoms)
	if err != nil {
		return err
	}
	for _, r := range mol {
		canvas.Add(r)
	}
	bindMarking(canvas)

	var reload <-chan struct{}
	if propsPath != "" {
		applyPropsFile(canvas, logger, propsPath)
		ch, stop, err := watchFile(propsPath, logger)
		if err != nil {
			return err
		}
		defer stop()
		reload = ch
	}

	drawn := false
	canvas.Notifications.DidDraw.Subscribe(func(time.Duration) { drawn = true })
	canvas.Animate()

	var pixels []uint8
	for !win.ShouldClose() {
		win.PollEvents()
		select {
		case <-reload:
			applyPropsFile(canvas, logger, propsPath)
		default:
		}

		canvas.Tick(time.Duration(win.Time()*float64(time.Second)), canvas3d.TickOptions{})
		if !drawn {
			time.Sleep(4 * time.Millisecond)
			continue
		}
		drawn = false

		w, h := gl.DrawingBufferSize()
		if n := w * h * 4; len(pixels) != n {
			pixels = make([]uint8, n)
		}
		gl.BindRenderTarget(nil)
		if err := gl.ReadPixels(0, 0, w, h, pixels); err != nil {
			logger.Warnf("read drawing buffer: %v", err)
			continue
		}
		if err := presenter.Present(pixels, w, h); err != nil {
			logger.Warnf("%v", err)
		}
	}
	return nil
}

// bindMarking highlights the hovered loci and toggles the selection of
// clicked loci.
func bindMarking(c *canvas3d.Canvas3D) {
	hovered := repr.ReprLoci{Loci: repr.Empty}
	c.Interaction().Hover.Subscribe(func(e canvas3d.HoverEvent) {
		if !hovered.IsEmpty() {
			c.Mark(hovered, geometry.MarkerActionRemoveHighlight)
		}
		hovered = e.Current
		if !hovered.IsEmpty() {
			c.Mark(hovered, geometry.MarkerActionHighlight)
		}
	})
	c.Interaction().Click.Subscribe(func(e canvas3d.ClickEvent) {
		if e.Current.IsEmpty() {
			if e.Button == input.ButtonPrimary && !e.Modifiers.Any() {
				c.RequestCameraReset(canvas3d.CameraResetOptions{})
			}
			return
		}
		c.Mark(e.Current, geometry.MarkerActionToggle)
	})
}

func applyPropsFile(c *canvas3d.Canvas3D, logger canvas3d.Logger, path string) {
	pp, err := canvas3d.LoadPropsFile(path, c.Props())
	if err != nil {
		logger.Warnf("props file: %v", err)
		return
	}
	if c.SetProps(pp, false) {
		logger.Infof("applied props from %s", path)
	}
}

// watchFile signals on the returned channel whenever path is written or
// replaced. The parent directory is watched so editors that save by rename
// keep triggering reloads.
func watchFile(path string, logger canvas3d.Logger) (<-chan struct{}, func(), error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, nil, err
	}

	changed := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				select {
				case changed <- struct{}{}:
				default:
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warnf("watch %s: %v", path, err)
			}
		}
	}()
	stop := func() {
		close(done)
		if err := w.Close(); err != nil {
			logger.Warnf("close watcher: %v", err)
		}
	}
	return changed, stop, nil
}

var elementColors = []core.Color{
	core.ColorFromRGB(144, 144, 144),
	core.ColorFromRGB(48, 80, 248),
	core.ColorFromRGB(255, 13, 13),
	core.ColorFromRGB(255, 200, 50),
}

// demoMolecule builds an alpha helix like chain of atoms and the bonds
// between neighbours.
func demoMolecule(n int) ([]repr.Representation, error) {
	const (
		rise   = 1.5
		radius = 2.3
		turn   = 100 * math32.Pi / 180
	)
	n = max(n, 2)
	centers := make([]float32, 0, n*3)
	for i := range n {
		a := float32(i) * turn
		centers = append(centers, radius*math32.Cos(a), radius*math32.Sin(a), float32(i)*rise/3.6-float32(n)*rise/7.2)
	}

	atomProps := geometry.DefaultProps()
	atoms, err := repr.NewShapeRepresentation(repr.Shape{
		Name:       "atoms",
		Geometry:   &geometry.Spheres{Centers: centers, Padding: 0.6},
		Transforms: geometry.NewTransformData(),
		Theme: geometry.Theme{
			Color: geometry.ColorTheme{
				Name:        "element",
				Granularity: geometry.GranularityGroup,
				Color:       func(l geometry.Location) core.Color { return elementColors[l.Group%len(elementColors)] },
			},
			Size: geometry.SizeTheme{Name: "uniform", Granularity: geometry.GranularityUniform, Uniform: 0.6},
		},
		Props: atomProps,
	})
	if err != nil {
		return nil, err
	}

	starts := make([]float32, 0, (n-1)*3)
	ends := make([]float32, 0, (n-1)*3)
	for i := 0; i < n-1; i++ {
		starts = append(starts, centers[i*3:i*3+3]...)
		ends = append(ends, centers[i*3+3:i*3+6]...)
	}
	bonds, err := repr.NewShapeRepresentation(repr.Shape{
		Name:       "bonds",
		Geometry:   &geometry.Cylinders{Starts: starts, Ends: ends, Padding: 0.15},
		Transforms: geometry.NewTransformData(),
		Theme:      geometry.UniformTheme(core.ColorFromRGB(200, 200, 200), 0.15),
		Props:      geometry.DefaultProps(),
	})
	if err != nil {
		return nil, err
	}
	return []repr.Representation{atoms, bonds}, nil
}
