// Package window is the SDL2 shim the renderer draws into.
package window

import (
	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"
)

// pollTimeout bounds a blocking Poll so a paused loop still notices
// cancellation.
const pollTimeout = 100

// ResizeObserver receives the drawable size after the window changed size.
// A minimized window reports 0x0.
type ResizeObserver func(width, height int)

type Options struct {
	Title      string
	Width      int
	Height     int
	Fullscreen bool
}

type Window struct {
	window   *sdl.Window
	observer ResizeObserver
	size     func() (int, int)
	closed   bool

	log logrus.FieldLogger
}

// New initializes SDL video and opens a resizable Vulkan window.
func New(opts Options, logger logrus.FieldLogger) (*Window, error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, errors.Wrap(err, "init sdl")
	}

	flags := uint32(sdl.WINDOW_SHOWN | sdl.WINDOW_VULKAN | sdl.WINDOW_RESIZABLE)
	if opts.Fullscreen {
		flags |= sdl.WINDOW_FULLSCREEN_DESKTOP
	}

	window, err := sdl.CreateWindow(opts.Title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, int32(opts.Width), int32(opts.Height), flags)
	if err != nil {
		sdl.Quit()
		return nil, errors.Wrap(err, "create window")
	}

	w := &Window{window: window, log: logger}
	w.size = w.DrawableSize

	width, height := w.DrawableSize()
	logger.WithFields(logrus.Fields{
		"title":  opts.Title,
		"width":  width,
		"height": height,
	}).Debug("window created")
	return w, nil
}

// SDL returns the underlying window for surface creation.
func (w *Window) SDL() *sdl.Window {
	return w.window
}

// DrawableSize returns the size of the window in pixels, which can differ
// from its size in screen coordinates on high-DPI displays.
func (w *Window) DrawableSize() (int, int) {
	width, height := w.window.VulkanGetDrawableSize()
	return int(width), int(height)
}

// SetResizeObserver replaces the observer notified on size changes.
func (w *Window) SetResizeObserver(observer ResizeObserver) {
	w.observer = observer
}

// Poll handles every pending event and reports whether the window is still
// open. With block set it first waits for one event, at most pollTimeout
// milliseconds.
func (w *Window) Poll(block bool) bool {
	if block {
		if event := sdl.WaitEventTimeout(pollTimeout); event != nil {
			w.handle(event)
		}
	}
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		w.handle(event)
	}
	return !w.closed
}

func (w *Window) handle(event sdl.Event) {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		w.closed = true
	case *sdl.KeyboardEvent:
		if e.Keysym.Sym == sdl.K_ESCAPE {
			w.closed = true
		}
	case *sdl.WindowEvent:
		switch e.Event {
		case sdl.WINDOWEVENT_MINIMIZED:
			w.notify(0, 0)
		case sdl.WINDOWEVENT_RESTORED, sdl.WINDOWEVENT_RESIZED, sdl.WINDOWEVENT_SIZE_CHANGED:
			w.notify(w.size())
		}
	}
}

func (w *Window) notify(width, height int) {
	w.log.WithFields(logrus.Fields{
		"width":  width,
		"height": height,
	}).Debug("window resized")
	if w.observer != nil {
		w.observer(width, height)
	}
}

// Destroy closes the window and shuts SDL down.
func (w *Window) Destroy() {
	if w == nil || w.window == nil {
		return
	}
	if err := w.window.Destroy(); err != nil {
		w.log.WithError(err).Warn("destroy window")
	}
	w.window = nil
	sdl.Quit()
}
