package window

import (
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/veandco/go-sdl2/sdl"
)

type resize struct {
	width, height int
}

func newTestWindow(width, height int) (*Window, *[]resize) {
	logger, _ := test.NewNullLogger()
	var seen []resize
	w := &Window{
		size: func() (int, int) { return width, height },
		log:  logger,
	}
	w.SetResizeObserver(func(width, height int) {
		seen = append(seen, resize{width, height})
	})
	return w, &seen
}

func TestHandleClose(t *testing.T) {
	tests := []struct {
		name   string
		event  sdl.Event
		closed bool
	}{
		{"quit", &sdl.QuitEvent{}, true},
		{"escape", &sdl.KeyboardEvent{Keysym: sdl.Keysym{Sym: sdl.K_ESCAPE}}, true},
		{"other key", &sdl.KeyboardEvent{Keysym: sdl.Keysym{Sym: sdl.K_SPACE}}, false},
		{"window moved", &sdl.WindowEvent{Event: sdl.WINDOWEVENT_MOVED}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, seen := newTestWindow(800, 600)
			w.handle(tt.event)
			if w.closed != tt.closed {
				t.Errorf("closed = %v, want %v", w.closed, tt.closed)
			}
			if len(*seen) != 0 {
				t.Errorf("unexpected resize notifications %v", *seen)
			}
		})
	}
}

func TestHandleResize(t *testing.T) {
	tests := []struct {
		name  string
		event sdl.Event
		want  resize
	}{
		{"resized", &sdl.WindowEvent{Event: sdl.WINDOWEVENT_RESIZED}, resize{800, 600}},
		{"size changed", &sdl.WindowEvent{Event: sdl.WINDOWEVENT_SIZE_CHANGED}, resize{800, 600}},
		{"restored", &sdl.WindowEvent{Event: sdl.WINDOWEVENT_RESTORED}, resize{800, 600}},
		{"minimized", &sdl.WindowEvent{Event: sdl.WINDOWEVENT_MINIMIZED}, resize{0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, seen := newTestWindow(800, 600)
			w.handle(tt.event)
			if len(*seen) != 1 || (*seen)[0] != tt.want {
				t.Errorf("notifications = %v, want [%v]", *seen, tt.want)
			}
			if w.closed {
				t.Error("window closed on resize")
			}
		})
	}
}

func TestResizeObserverReplaced(t *testing.T) {
	w, first := newTestWindow(640, 480)

	var second []resize
	w.SetResizeObserver(func(width, height int) {
		second = append(second, resize{width, height})
	})
	w.handle(&sdl.WindowEvent{Event: sdl.WINDOWEVENT_RESIZED})

	if len(*first) != 0 {
		t.Errorf("replaced observer notified: %v", *first)
	}
	if len(second) != 1 || second[0] != (resize{640, 480}) {
		t.Errorf("notifications = %v", second)
	}
}

func TestDestroyNil(t *testing.T) {
	var w *Window
	w.Destroy()
	(&Window{}).Destroy()
}
