package renderer_test

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/pbr/gpu"
	"github.com/vkngwrapper/pbr/gpu/gputest"
	"github.com/vkngwrapper/pbr/renderer"
)

func TestChooseSurfaceFormat(t *testing.T) {
	srgb := khr_surface.SurfaceFormat{Format: core1_0.FormatB8G8R8A8SRGB, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear}
	rgba := khr_surface.SurfaceFormat{Format: core1_0.FormatR8G8B8A8UnsignedNormalized, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear}
	undefined := khr_surface.SurfaceFormat{Format: core1_0.FormatUndefined, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear}

	tests := []struct {
		name    string
		formats []khr_surface.SurfaceFormat
		want    khr_surface.SurfaceFormat
	}{
		{"undefined", []khr_surface.SurfaceFormat{undefined}, khr_surface.SurfaceFormat{Format: core1_0.FormatB8G8R8A8UnsignedNormalized, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear}},
		{"srgb preferred", []khr_surface.SurfaceFormat{rgba, srgb}, srgb},
		{"first otherwise", []khr_surface.SurfaceFormat{rgba}, rgba},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := renderer.ChooseSurfaceFormat(tt.formats)
			if err != nil {
				t.Fatalf("unexpected error: %+v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	_, err := renderer.ChooseSurfaceFormat(nil)
	if !errors.Is(err, renderer.ErrNoSurfaceFormats) || !errors.Is(err, renderer.ErrSwapchain) {
		t.Errorf("err = %v, want a swapchain ErrNoSurfaceFormats", err)
	}
}

func TestChooseImageCount(t *testing.T) {
	tests := []struct {
		min, max int
		want     int
	}{
		{2, 3, 3},
		{2, 2, 2},
		{3, 0, 4},
		{1, 8, 2},
	}

	for _, tt := range tests {
		caps := &khr_surface.SurfaceCapabilities{MinImageCount: tt.min, MaxImageCount: tt.max}
		if got := renderer.ChooseImageCount(caps); got != tt.want {
			t.Errorf("min %d max %d: got %d, want %d", tt.min, tt.max, got, tt.want)
		}
	}
}

func TestChooseExtent(t *testing.T) {
	bounds := khr_surface.SurfaceCapabilities{
		MinImageExtent: core1_0.Extent2D{Width: 64, Height: 64},
		MaxImageExtent: core1_0.Extent2D{Width: 2048, Height: 1024},
	}

	tests := []struct {
		name          string
		current       core1_0.Extent2D
		width, height int
		want          core1_0.Extent2D
	}{
		{"fixed by surface", core1_0.Extent2D{Width: 800, Height: 600}, 1280, 720, core1_0.Extent2D{Width: 800, Height: 600}},
		{"any extent", core1_0.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32}, 1280, 720, core1_0.Extent2D{Width: 1280, Height: 720}},
		{"signed sentinel", core1_0.Extent2D{Width: -1, Height: -1}, 1280, 720, core1_0.Extent2D{Width: 1280, Height: 720}},
		{"clamped high", core1_0.Extent2D{Width: -1, Height: -1}, 4000, 4000, core1_0.Extent2D{Width: 2048, Height: 1024}},
		{"clamped low", core1_0.Extent2D{Width: -1, Height: -1}, 10, 0, core1_0.Extent2D{Width: 64, Height: 64}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caps := bounds
			caps.CurrentExtent = tt.current
			if got := renderer.ChooseExtent(&caps, tt.width, tt.height); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChoosePreTransform(t *testing.T) {
	caps := &khr_surface.SurfaceCapabilities{
		SupportedTransforms: khr_surface.TransformIdentity | khr_surface.TransformRotate90,
		CurrentTransform:    khr_surface.TransformRotate90,
	}
	if got := renderer.ChoosePreTransform(caps); got != khr_surface.TransformIdentity {
		t.Errorf("got %s, want identity", got)
	}

	caps.SupportedTransforms = khr_surface.TransformRotate90
	if got := renderer.ChoosePreTransform(caps); got != khr_surface.TransformRotate90 {
		t.Errorf("got %s, want current transform", got)
	}
}

func TestChooseCompositeAlpha(t *testing.T) {
	tests := []struct {
		supported khr_surface.CompositeAlphaFlags
		want      khr_surface.CompositeAlphaFlags
	}{
		{khr_surface.CompositeAlphaOpaque | khr_surface.CompositeAlphaInherit, khr_surface.CompositeAlphaOpaque},
		{khr_surface.CompositeAlphaPostMultiplied | khr_surface.CompositeAlphaPreMultiplied, khr_surface.CompositeAlphaPreMultiplied},
		{khr_surface.CompositeAlphaInherit, khr_surface.CompositeAlphaInherit},
		{0, khr_surface.CompositeAlphaOpaque},
	}

	for _, tt := range tests {
		caps := &khr_surface.SurfaceCapabilities{SupportedCompositeAlpha: tt.supported}
		if got := renderer.ChooseCompositeAlpha(caps); got != tt.want {
			t.Errorf("supported %s: got %s, want %s", tt.supported, got, tt.want)
		}
	}
}

func TestChoosePresentMode(t *testing.T) {
	all := []khr_surface.PresentMode{khr_surface.PresentModeFIFO, khr_surface.PresentModeImmediate, khr_surface.PresentModeMailbox}

	tests := []struct {
		name  string
		modes []khr_surface.PresentMode
		vsync bool
		want  khr_surface.PresentMode
	}{
		{"vsync", all, true, khr_surface.PresentModeFIFO},
		{"mailbox", all, false, khr_surface.PresentModeMailbox},
		{"immediate", all[:2], false, khr_surface.PresentModeImmediate},
		{"fifo fallback", all[:1], false, khr_surface.PresentModeFIFO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := renderer.ChoosePresentMode(tt.modes, tt.vsync); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSwapchainCreate(t *testing.T) {
	driver := gputest.New()
	device := newDevice(t, driver)
	swapchain := newSwapchain(t, driver, device)

	if swapchain.State() != renderer.SwapchainSurfaceBound {
		t.Fatalf("state = %s after InitSurface", swapchain.State())
	}
	if swapchain.ColorFormat != core1_0.FormatB8G8R8A8SRGB {
		t.Errorf("color format = %s", swapchain.ColorFormat)
	}

	err := swapchain.Create(1280, 720)
	if err != nil {
		t.Fatalf("Create: %+v", err)
	}

	if swapchain.State() != renderer.SwapchainCreated {
		t.Errorf("state = %s, want created", swapchain.State())
	}
	if swapchain.ImageCount() != 3 || len(swapchain.Views) != 3 {
		t.Errorf("images/views = %d/%d, want 3/3", swapchain.ImageCount(), len(swapchain.Views))
	}

	info := driver.SwapchainInfo(swapchain.Handle())
	if info.Usage&core1_0.ImageUsageTransferSrc == 0 {
		t.Errorf("usage %s lacks transfer source although the format supports blits", info.Usage)
	}
	if info.PresentMode != khr_surface.PresentModeFIFO {
		t.Errorf("present mode = %s", info.PresentMode)
	}
	if info.OldSwapchain.Initialized() {
		t.Errorf("first swapchain was handed an old swapchain")
	}
	checkProblems(t, driver)
}

func TestSwapchainRecreate(t *testing.T) {
	driver := gputest.New()
	device := newDevice(t, driver)
	swapchain := newSwapchain(t, driver, device)

	if err := swapchain.Create(1280, 720); err != nil {
		t.Fatalf("Create: %+v", err)
	}
	old := swapchain.Handle()
	oldViews := append([]gpu.ImageView(nil), swapchain.Views...)
	generation := swapchain.Generation

	driver.ResetCalls()
	if err := swapchain.Create(1280, 720); err != nil {
		t.Fatalf("second Create: %+v", err)
	}

	if info := driver.SwapchainInfo(swapchain.Handle()); info.OldSwapchain != old {
		t.Errorf("old swapchain = %d, want %d", info.OldSwapchain, old)
	}
	if !driver.Destroyed(uint64(old)) {
		t.Errorf("old swapchain was not destroyed")
	}
	for _, view := range oldViews {
		if !driver.Destroyed(uint64(view)) {
			t.Errorf("view %d of the old swapchain leaked", view)
		}
	}

	created := driver.Index(0, "CreateSwapchain", uint64(swapchain.Handle()))
	destroyed := driver.Index(0, "DestroySwapchain", uint64(old))
	if created < 0 || destroyed < created {
		t.Errorf("old swapchain destroyed before its replacement was created: %v", driver.Calls)
	}
	if driver.Live(gputest.KindImageView) != 3 {
		t.Errorf("live views = %d, want 3", driver.Live(gputest.KindImageView))
	}
	if swapchain.Generation == generation {
		t.Errorf("generation did not change")
	}
	checkProblems(t, driver)
}

func TestSwapchainRejectsSeparatePresentFamily(t *testing.T) {
	driver := gputest.New()
	driver.PresentFamilies = map[int]bool{1: true}
	device := newDevice(t, driver)

	swapchain := renderer.NewSwapchain(driver, device, true, quietLogger())
	err := swapchain.InitSurface(driver)
	if !errors.Is(err, renderer.ErrNoSuitableQueue) || !errors.Is(err, renderer.ErrSwapchain) {
		t.Fatalf("err = %v, want a swapchain ErrNoSuitableQueue", err)
	}

	swapchain.Destroy()
	if driver.Live(gputest.KindSurface) != 0 {
		t.Errorf("surface leaked")
	}
}

func TestSwapchainUndefinedFormat(t *testing.T) {
	driver := gputest.New()
	driver.SurfaceFmts = []khr_surface.SurfaceFormat{
		{Format: core1_0.FormatUndefined, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear},
	}
	device := newDevice(t, driver)
	swapchain := newSwapchain(t, driver, device)

	if err := swapchain.Create(1280, 720); err != nil {
		t.Fatalf("Create: %+v", err)
	}
	info := driver.SwapchainInfo(swapchain.Handle())
	if info.Format != core1_0.FormatB8G8R8A8UnsignedNormalized {
		t.Errorf("format = %s, want B8G8R8A8 UNORM", info.Format)
	}
	if info.Usage&core1_0.ImageUsageTransferSrc != 0 {
		t.Errorf("transfer source requested for a format without blit support")
	}
}

func TestSwapchainCreateBeforeSurface(t *testing.T) {
	driver := gputest.New()
	device := newDevice(t, driver)
	swapchain := renderer.NewSwapchain(driver, device, true, quietLogger())

	err := swapchain.Create(1280, 720)
	if !errors.Is(err, renderer.ErrNotInitialized) {
		t.Errorf("err = %v, want ErrNotInitialized", err)
	}

	_, _, err = swapchain.AcquireNextImage(common.NoTimeout, 0)
	if !errors.Is(err, renderer.ErrNotInitialized) {
		t.Errorf("acquire: err = %v, want ErrNotInitialized", err)
	}
}

func TestSwapchainAcquireResults(t *testing.T) {
	driver := gputest.New()
	device := newDevice(t, driver)
	swapchain := newSwapchain(t, driver, device)
	if err := swapchain.Create(1280, 720); err != nil {
		t.Fatalf("Create: %+v", err)
	}
	semaphore, err := driver.CreateSemaphore()
	if err != nil {
		t.Fatalf("CreateSemaphore: %+v", err)
	}

	driver.AcquireResults = []common.VkResult{
		core1_0.VKSuccess,
		khr_swapchain.VKSuboptimal,
		khr_swapchain.VKErrorOutOfDate,
		core1_0.VKTimeout,
	}
	want := []renderer.PresentStatus{renderer.StatusSuccess, renderer.StatusSuboptimal, renderer.StatusOutOfDate}

	for i, status := range want {
		_, got, err := swapchain.AcquireNextImage(common.NoTimeout, semaphore)
		if err != nil {
			t.Fatalf("acquire %d: %+v", i, err)
		}
		if got != status {
			t.Errorf("acquire %d: status = %s, want %s", i, got, status)
		}
	}

	_, _, err = swapchain.AcquireNextImage(common.NoTimeout, semaphore)
	if err == nil || !errors.Is(err, renderer.ErrSwapchain) {
		t.Errorf("timeout: err = %v, want a swapchain error", err)
	}
}

func TestSwapchainDestroy(t *testing.T) {
	driver := gputest.New()
	device := newDevice(t, driver)
	swapchain := newSwapchain(t, driver, device)
	if err := swapchain.Create(1280, 720); err != nil {
		t.Fatalf("Create: %+v", err)
	}
	handle := swapchain.Handle()
	surface := swapchain.Surface()
	views := append([]gpu.ImageView(nil), swapchain.Views...)

	driver.ResetCalls()
	swapchain.Destroy()
	swapchain.Destroy()

	lastView := -1
	for _, view := range views {
		if idx := driver.Index(0, "DestroyImageView", uint64(view)); idx > lastView {
			lastView = idx
		}
	}
	chain := driver.Index(0, "DestroySwapchain", uint64(handle))
	surf := driver.Index(0, "DestroySurface", uint64(surface))
	if lastView < 0 || chain < lastView || surf < chain {
		t.Errorf("teardown order wrong: %v", driver.Calls)
	}
	if swapchain.State() != renderer.SwapchainDestroyed {
		t.Errorf("state = %s, want destroyed", swapchain.State())
	}
	if driver.Live(gputest.KindSwapchain) != 0 || driver.Live(gputest.KindImageView) != 0 || driver.Live(gputest.KindSurface) != 0 {
		t.Errorf("swapchain objects leaked")
	}
	checkProblems(t, driver)
}
