package renderer_test

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/vkngwrapper/pbr/gpu/gputest"
	"github.com/vkngwrapper/pbr/renderer"
)

func quietLogger() logrus.FieldLogger {
	logger, _ := test.NewNullLogger()
	return logger
}

func newDevice(t *testing.T, driver *gputest.Driver) *renderer.Device {
	t.Helper()

	device, err := renderer.NewDevice(driver, quietLogger())
	if err != nil {
		t.Fatalf("NewDevice: %+v", err)
	}
	return device
}

func newSwapchain(t *testing.T, driver *gputest.Driver, device *renderer.Device) *renderer.Swapchain {
	t.Helper()

	swapchain := renderer.NewSwapchain(driver, device, true, quietLogger())
	if err := swapchain.InitSurface(driver); err != nil {
		t.Fatalf("InitSurface: %+v", err)
	}
	return swapchain
}

func defaultOptions(compute bool) renderer.Options {
	return renderer.Options{
		Width:        1280,
		Height:       720,
		Compute:      compute,
		ClearColor:   mgl32.Vec4{0.1, 0.2, 0.3, 1},
		ComputeColor: mgl32.Vec4{1, 0, 0, 1},
	}
}

func newRenderer(t *testing.T, driver *gputest.Driver, compute bool) *renderer.Renderer {
	t.Helper()
	return newRendererWith(t, driver, defaultOptions(compute))
}

func newRendererWith(t *testing.T, driver *gputest.Driver, opts renderer.Options) *renderer.Renderer {
	t.Helper()

	device := newDevice(t, driver)
	swapchain := newSwapchain(t, driver, device)
	r, err := renderer.NewRenderer(device, swapchain, opts, quietLogger())
	if err != nil {
		t.Fatalf("NewRenderer: %+v", err)
	}
	return r
}

func checkProblems(t *testing.T, driver *gputest.Driver) {
	t.Helper()

	for _, problem := range driver.Problems {
		t.Errorf("driver: %s", problem)
	}
}

func checkReleased(t *testing.T, driver *gputest.Driver) {
	t.Helper()

	for _, kind := range gputest.Kinds {
		if live := driver.Live(kind); live != 0 {
			t.Errorf("%d %s objects leaked", live, kind)
		}
	}
}
