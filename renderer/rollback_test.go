package renderer_test

import (
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/vkngwrapper/pbr/gpu/gputest"
	"github.com/vkngwrapper/pbr/renderer"
)

func TestNewRendererFailureReleasesEverything(t *testing.T) {
	tests := []struct {
		name string
		op   string
		n    int
	}{
		{"swapchain", "CreateSwapchain", 1},
		{"second swapchain view", "CreateImageView", 2},
		{"render-complete semaphore", "CreateSemaphore", 2},
		{"third frame fence", "CreateFence", 3},
		{"render pass", "CreateRenderPass", 1},
		{"depth image", "CreateImage", 1},
		{"depth memory", "AllocateMemory", 1},
		{"depth view", "CreateImageView", 4},
		{"second framebuffer", "CreateFramebuffer", 2},
		{"compute pool", "CreateCommandPool", 1},
		{"compute command buffer", "AllocateCommandBuffers", 1},
		{"compute fence", "CreateFence", 4},
		{"compute target", "CreateImage", 2},
		{"compute target memory", "AllocateMemory", 2},
		{"compute transition buffer", "AllocateCommandBuffers", 2},
		{"compute transition fence", "CreateFence", 5},
		{"frame command buffers", "AllocateCommandBuffers", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver := gputest.New()
			device := newDevice(t, driver)
			swapchain := newSwapchain(t, driver, device)

			driver.FailAt(tt.op, tt.n)
			r, err := renderer.NewRenderer(device, swapchain, defaultOptions(true), quietLogger())
			if err == nil {
				t.Fatalf("NewRenderer succeeded with %s call %d failing", tt.op, tt.n)
			}
			if !errors.Is(err, gputest.ErrInjected) {
				t.Errorf("err = %v, want the injected failure", err)
			}
			if !errors.Is(err, renderer.ErrDevice) && !errors.Is(err, renderer.ErrSwapchain) {
				t.Errorf("err = %v, want a device or swapchain error", err)
			}
			if r != nil {
				t.Errorf("NewRenderer returned a renderer alongside an error")
			}

			swapchain.Destroy()
			device.Destroy()
			checkReleased(t, driver)
			checkProblems(t, driver)
		})
	}
}

func TestRebuildFailureReleasesEverything(t *testing.T) {
	tests := []struct {
		name string
		op   string
		n    int
		grow bool
	}{
		{"swapchain", "CreateSwapchain", 1, false},
		{"first swapchain view", "CreateImageView", 1, false},
		{"third swapchain view", "CreateImageView", 3, false},
		{"depth image", "CreateImage", 1, false},
		{"depth memory", "AllocateMemory", 1, false},
		{"depth view", "CreateImageView", 4, false},
		{"first framebuffer", "CreateFramebuffer", 1, false},
		{"third framebuffer", "CreateFramebuffer", 3, false},
		{"command buffers", "AllocateCommandBuffers", 1, false},
		{"grown fence ring", "CreateFence", 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver := gputest.New()
			r := newRenderer(t, driver, true)
			frame(t, r)

			if tt.grow {
				driver.Capabilities.MinImageCount = 3
				driver.Capabilities.MaxImageCount = 4
			}
			driver.FailAt(tt.op, tt.n)
			r.Resizer.OnResize(1024, 768)

			err := r.Frame()
			if err == nil {
				t.Fatalf("Frame succeeded with %s call %d failing", tt.op, tt.n)
			}
			if !errors.Is(err, gputest.ErrInjected) {
				t.Errorf("err = %v, want the injected failure", err)
			}
			if r.Ready() {
				t.Errorf("renderer ready after a failed rebuild")
			}
			if r.Resizer.Rebuilds() != 0 {
				t.Errorf("Rebuilds = %d after a failed rebuild", r.Resizer.Rebuilds())
			}

			swapchain, device := r.Swapchain, r.Device
			r.Destroy()
			swapchain.Destroy()
			device.Destroy()
			checkReleased(t, driver)
			checkProblems(t, driver)
		})
	}
}

func TestSwapchainViewFailureReleasesPartialViews(t *testing.T) {
	driver := gputest.New()
	device := newDevice(t, driver)
	swapchain := newSwapchain(t, driver, device)

	driver.FailAt("CreateImageView", 3)
	err := swapchain.Create(1280, 720)
	if !errors.Is(err, gputest.ErrInjected) || !errors.Is(err, renderer.ErrSwapchain) {
		t.Fatalf("Create: err = %v, want an injected swapchain error", err)
	}
	if live := driver.Live(gputest.KindImageView); live != 0 {
		t.Errorf("%d views left behind by the failed create", live)
	}
	if len(swapchain.Views) != 0 {
		t.Errorf("swapchain kept %d views", len(swapchain.Views))
	}

	// The next create retires the swapchain the failed one left behind.
	if err := swapchain.Create(1280, 720); err != nil {
		t.Fatalf("Create after failure: %+v", err)
	}
	if len(swapchain.Views) != 3 {
		t.Errorf("views = %d, want 3", len(swapchain.Views))
	}

	swapchain.Destroy()
	device.Destroy()
	checkReleased(t, driver)
	checkProblems(t, driver)
}
