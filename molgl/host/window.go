// Package host connects a canvas to a desktop window: glfw events are fed
// into an input.Observer and the drawing buffer is presented on a WebGPU
// surface.
package host

import (
	"fmt"
	"runtime"

	"github.com/molcanvas/canvas3d/molgl/input"

	"github.com/go-gl/glfw/v3.3/glfw"
)

type Window struct {
	glfw          *glfw.Window
	width, height int
	title         string
}

// OpenWindow initialises glfw and creates a resizable window without a
// client API. Call it from the main goroutine.
func OpenWindow(width, height int, title string) (*Window, error) {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfw init: %w", err)
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create window: %w", err)
	}
	return &Window{glfw: win, width: width, height: height, title: title}, nil
}

func (w *Window) GLFW() *glfw.Window { return w.glfw }

// FramebufferSize is the drawing buffer size in pixels.
func (w *Window) FramebufferSize() (int, int) { return w.glfw.GetFramebufferSize() }

func (w *Window) ShouldClose() bool { return w.glfw.ShouldClose() }

func (w *Window) SetTitle(title string) {
	w.title = title
	w.glfw.SetTitle(title)
}

func (w *Window) PollEvents() { glfw.PollEvents() }

// Time is the glfw clock in seconds.
func (w *Window) Time() float64 { return glfw.GetTime() }

func (w *Window) Close() {
	w.glfw.Destroy()
	glfw.Terminate()
}

// pixelScale converts window coordinates to framebuffer pixels.
func (w *Window) pixelScale() (float32, float32) {
	ww, wh := w.glfw.GetSize()
	fw, fh := w.glfw.GetFramebufferSize()
	if ww == 0 || wh == 0 {
		return 1, 1
	}
	return float32(fw) / float32(ww), float32(fh) / float32(wh)
}

// BindInput routes window events into obs. onResize, when set, is called
// with the new framebuffer size.
func (w *Window) BindInput(obs *input.Observer, onResize func(width, height int)) {
	fw, fh := w.FramebufferSize()
	obs.SetSize(fw, fh)

	w.glfw.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		obs.SetSize(width, height)
		if onResize != nil {
			onResize(width, height)
		}
	})
	w.glfw.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		sx, sy := w.pixelScale()
		obs.PointerMove(float32(x)*sx, float32(y)*sy)
	})
	w.glfw.SetMouseButtonCallback(func(gw *glfw.Window, b glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		obs.SetModifiers(modifiers(mods))
		button, ok := buttons[b]
		if !ok {
			return
		}
		x, y := gw.GetCursorPos()
		sx, sy := w.pixelScale()
		switch action {
		case glfw.Press:
			obs.PointerDown(float32(x)*sx, float32(y)*sy, button)
		case glfw.Release:
			obs.PointerUp(float32(x)*sx, float32(y)*sy, button)
		}
	})
	w.glfw.SetScrollCallback(func(_ *glfw.Window, dx, dy float64) {
		// glfw reports lines with positive y away from the user
		obs.Scroll(float32(dx)*-40, float32(dy)*-40)
	})
	w.glfw.SetCursorEnterCallback(func(_ *glfw.Window, entered bool) {
		if !entered {
			obs.PointerLeave()
		}
	})
	w.glfw.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, mods glfw.ModifierKey) {
		obs.SetModifiers(modifiers(mods))
		name, ok := keyNames[key]
		if !ok {
			return
		}
		switch action {
		case glfw.Press:
			obs.Key(name, true)
		case glfw.Release:
			obs.Key(name, false)
		}
	})
}

var buttons = map[glfw.MouseButton]input.Buttons{
	glfw.MouseButtonLeft:   input.ButtonPrimary,
	glfw.MouseButtonRight:  input.ButtonSecondary,
	glfw.MouseButtonMiddle: input.ButtonAuxiliary,
}

func modifiers(m glfw.ModifierKey) input.Modifiers {
	return input.Modifiers{
		Shift:   m&glfw.ModShift != 0,
		Alt:     m&glfw.ModAlt != 0,
		Control: m&glfw.ModControl != 0,
		Meta:    m&glfw.ModSuper != 0,
	}
}

var keyNames = map[glfw.Key]string{
	glfw.KeyA: "a", glfw.KeyB: "b", glfw.KeyC: "c", glfw.KeyD: "d",
	glfw.KeyE: "e", glfw.KeyF: "f", glfw.KeyG: "g", glfw.KeyH: "h",
	glfw.KeyI: "i", glfw.KeyJ: "j", glfw.KeyK: "k", glfw.KeyL: "l",
	glfw.KeyM: "m", glfw.KeyN: "n", glfw.KeyO: "o", glfw.KeyP: "p",
	glfw.KeyQ: "q", glfw.KeyR: "r", glfw.KeyS: "s", glfw.KeyT: "t",
	glfw.KeyU: "u", glfw.KeyV: "v", glfw.KeyW: "w", glfw.KeyX: "x",
	glfw.KeyY: "y", glfw.KeyZ: "z",
	glfw.Key0: "0", glfw.Key1: "1", glfw.Key2: "2", glfw.Key3: "3",
	glfw.Key4: "4", glfw.Key5: "5", glfw.Key6: "6", glfw.Key7: "7",
	glfw.Key8: "8", glfw.Key9: "9",

	glfw.KeySpace:       "space",
	glfw.KeyEnter:       "enter",
	glfw.KeyEscape:      "escape",
	glfw.KeyTab:         "tab",
	glfw.KeyBackspace:   "backspace",
	glfw.KeyDelete:      "delete",
	glfw.KeyRight:       "arrowright",
	glfw.KeyLeft:        "arrowleft",
	glfw.KeyDown:        "arrowdown",
	glfw.KeyUp:          "arrowup",
	glfw.KeyMinus:       "-",
	glfw.KeyEqual:       "=",
	glfw.KeyKPAdd:       "+",
	glfw.KeyKPSubtract:  "-",
	glfw.KeyF1:          "f1",
	glfw.KeyF2:          "f2",
	glfw.KeyF3:          "f3",
	glfw.KeyF4:          "f4",
	glfw.KeyF5:          "f5",
	glfw.KeyF12:         "f12",
	glfw.KeyLeftShift:   "shift",
	glfw.KeyRightShift:  "shift",
	glfw.KeyLeftControl: "control",
	glfw.KeyLeftAlt:     "alt",
}
