package renderer

import (
	"math"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/pbr/gpu"
)

// PresentStatus is the recoverable outcome of an acquire or present.
type PresentStatus int

const (
	StatusSuccess PresentStatus = iota
	StatusSuboptimal
	StatusOutOfDate
)

func (s PresentStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusSuboptimal:
		return "suboptimal"
	case StatusOutOfDate:
		return "out of date"
	}
	return "unknown"
}

// NeedsRecreate reports whether the swapchain must be rebuilt.
func (s PresentStatus) NeedsRecreate() bool {
	return s != StatusSuccess
}

func classifyResult(res common.VkResult, err error) (PresentStatus, error) {
	switch res {
	case khr_swapchain.VKErrorOutOfDate:
		return StatusOutOfDate, nil
	case khr_swapchain.VKSuboptimal:
		return StatusSuboptimal, nil
	}
	if err != nil {
		return StatusSuccess, err
	}
	if res != core1_0.VKSuccess {
		return StatusSuccess, errors.Errorf("unexpected result %s", res)
	}
	return StatusSuccess, nil
}

type SwapchainState int

const (
	SwapchainUninitialized SwapchainState = iota
	SwapchainSurfaceBound
	SwapchainCreated
	SwapchainRecreating
	SwapchainDestroyed
)

func (s SwapchainState) String() string {
	switch s {
	case SwapchainUninitialized:
		return "uninitialized"
	case SwapchainSurfaceBound:
		return "surface bound"
	case SwapchainCreated:
		return "created"
	case SwapchainRecreating:
		return "recreating"
	case SwapchainDestroyed:
		return "destroyed"
	}
	return "unknown"
}

// ChooseSurfaceFormat picks the swapchain color format. A lone Undefined
// entry means any format is acceptable and yields B8G8R8A8 UNORM in the
// reported color space. Otherwise B8G8R8A8 SRGB wins, then the first entry.
func ChooseSurfaceFormat(formats []khr_surface.SurfaceFormat) (khr_surface.SurfaceFormat, error) {
	if len(formats) == 0 {
		return khr_surface.SurfaceFormat{}, swapchainError(ErrNoSurfaceFormats, "choose surface format")
	}

	if len(formats) == 1 && formats[0].Format == core1_0.FormatUndefined {
		return khr_surface.SurfaceFormat{
			Format:     core1_0.FormatB8G8R8A8UnsignedNormalized,
			ColorSpace: formats[0].ColorSpace,
		}, nil
	}

	for _, format := range formats {
		if format.Format == core1_0.FormatB8G8R8A8SRGB {
			return format, nil
		}
	}

	return formats[0], nil
}

// ChooseImageCount asks for one image more than the minimum, capped at the
// maximum unless the maximum is zero (unbounded).
func ChooseImageCount(caps *khr_surface.SurfaceCapabilities) int {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

// anyExtent reports whether the surface leaves the extent up to the
// swapchain (current extent of 0xFFFFFFFF).
func anyExtent(extent core1_0.Extent2D) bool {
	return uint32(extent.Width) == math.MaxUint32
}

// ChooseExtent returns the surface's current extent, or the requested size
// clamped to the supported range when the surface does not fix one.
func ChooseExtent(caps *khr_surface.SurfaceCapabilities, width, height int) core1_0.Extent2D {
	if !anyExtent(caps.CurrentExtent) {
		return caps.CurrentExtent
	}

	return core1_0.Extent2D{
		Width:  clamp(width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clamp(height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func ChoosePreTransform(caps *khr_surface.SurfaceCapabilities) khr_surface.SurfaceTransformFlags {
	if caps.SupportedTransforms&khr_surface.TransformIdentity != 0 {
		return khr_surface.TransformIdentity
	}
	return caps.CurrentTransform
}

var compositeAlphaPreference = []khr_surface.CompositeAlphaFlags{
	khr_surface.CompositeAlphaOpaque,
	khr_surface.CompositeAlphaPreMultiplied,
	khr_surface.CompositeAlphaPostMultiplied,
	khr_surface.CompositeAlphaInherit,
}

func ChooseCompositeAlpha(caps *khr_surface.SurfaceCapabilities) khr_surface.CompositeAlphaFlags {
	for _, alpha := range compositeAlphaPreference {
		if caps.SupportedCompositeAlpha&alpha != 0 {
			return alpha
		}
	}
	return khr_surface.CompositeAlphaOpaque
}

// ChoosePresentMode returns FIFO when vsync is on. Without vsync it prefers
// mailbox, then immediate, and falls back to FIFO, which every surface
// supports.
func ChoosePresentMode(modes []khr_surface.PresentMode, vsync bool) khr_surface.PresentMode {
	if vsync {
		return khr_surface.PresentModeFIFO
	}

	for _, want := range []khr_surface.PresentMode{khr_surface.PresentModeMailbox, khr_surface.PresentModeImmediate} {
		for _, mode := range modes {
			if mode == want {
				return mode
			}
		}
	}
	return khr_surface.PresentModeFIFO
}

// Swapchain owns the surface, the swapchain handle and one view per
// presentable image.
type Swapchain struct {
	ColorFormat core1_0.Format
	ColorSpace  khr_surface.ColorSpace
	Extent      core1_0.Extent2D
	PresentMode khr_surface.PresentMode
	Images      []gpu.Image
	Views       []gpu.ImageView
	Generation  uuid.UUID

	instance gpu.Instance
	device   *Device
	vsync    bool

	surface gpu.Surface
	handle  gpu.Swapchain
	state   SwapchainState
	log     logrus.FieldLogger
}

func NewSwapchain(instance gpu.Instance, device *Device, vsync bool, logger logrus.FieldLogger) *Swapchain {
	return &Swapchain{
		instance: instance,
		device:   device,
		vsync:    vsync,
		log:      logger,
	}
}

func (s *Swapchain) State() SwapchainState {
	return s.state
}

func (s *Swapchain) Handle() gpu.Swapchain {
	return s.handle
}

func (s *Swapchain) Surface() gpu.Surface {
	return s.surface
}

func (s *Swapchain) ImageCount() int {
	return len(s.Images)
}

// InitSurface creates the window surface, checks that the device's graphics
// family can present to it and picks the color format.
func (s *Swapchain) InitSurface(source gpu.SurfaceSource) error {
	if s.state != SwapchainUninitialized {
		return swapchainError(ErrNotInitialized, "init surface in state %s", s.state)
	}

	surface, err := source.CreateSurface()
	if err != nil {
		return wrapSwapchain(err, "create surface")
	}
	s.surface = surface
	s.state = SwapchainSurfaceBound

	family, err := s.presentFamily()
	if err != nil {
		return err
	}
	s.device.Families.Present = family

	formats, err := s.device.Adapter.SurfaceFormats(surface)
	if err != nil {
		return wrapSwapchain(err, "query surface formats")
	}
	format, err := ChooseSurfaceFormat(formats)
	if err != nil {
		return err
	}
	s.ColorFormat = format.Format
	s.ColorSpace = format.ColorSpace

	s.log.WithFields(logrus.Fields{
		"format":     s.ColorFormat,
		"colorSpace": s.ColorSpace,
		"family":     family,
	}).Debug("surface bound")
	return nil
}

// presentFamily finds the family that supports both graphics and present.
// Separate graphics and present families are rejected.
func (s *Swapchain) presentFamily() (int, error) {
	adapter := s.device.Adapter
	families := adapter.Info().QueueFamilies

	graphics, present := -1, -1
	for idx, family := range families {
		supported, err := adapter.SurfaceSupport(s.surface, idx)
		if err != nil {
			return -1, wrapSwapchain(err, "query present support of family %d", idx)
		}
		isGraphics := family.Flags&core1_0.QueueGraphics != 0

		if isGraphics && graphics < 0 {
			graphics = idx
		}
		if supported && present < 0 {
			present = idx
		}
		if isGraphics && supported {
			graphics, present = idx, idx
			break
		}
	}

	if graphics < 0 || present < 0 {
		return -1, swapchainError(ErrNoSuitableQueue, "graphics family %d, present family %d", graphics, present)
	}
	if graphics != present {
		return -1, swapchainError(ErrNoSuitableQueue, "graphics family %d differs from present family %d", graphics, present)
	}
	if graphics != s.device.Families.Graphics {
		return -1, swapchainError(ErrNoSuitableQueue, "device graphics family %d cannot present, family %d can", s.device.Families.Graphics, graphics)
	}
	return graphics, nil
}

// Create builds a swapchain for the given window size. When a swapchain
// already exists it is handed to the new one and destroyed, together with
// its views, once the new one exists.
func (s *Swapchain) Create(width, height int) error {
	if s.state == SwapchainUninitialized || s.state == SwapchainDestroyed {
		return swapchainError(ErrNotInitialized, "create in state %s", s.state)
	}

	adapter := s.device.Adapter
	driver := s.device.Driver

	caps, err := adapter.SurfaceCapabilities(s.surface)
	if err != nil {
		return wrapSwapchain(err, "query surface capabilities")
	}
	modes, err := adapter.SurfacePresentModes(s.surface)
	if err != nil {
		return wrapSwapchain(err, "query present modes")
	}

	extent := ChooseExtent(caps, width, height)
	presentMode := ChoosePresentMode(modes, s.vsync)

	usage := core1_0.ImageUsageColorAttachment
	props := adapter.FormatProperties(s.ColorFormat)
	if props.OptimalTilingFeatures&core1_0.FormatFeatureBlitSource != 0 {
		usage |= core1_0.ImageUsageTransferSrc
	}

	old := s.handle
	previous := s.state
	if old.Initialized() {
		s.state = SwapchainRecreating
	}

	handle, err := driver.CreateSwapchain(gpu.SwapchainCreateInfo{
		Surface:        s.surface,
		MinImageCount:  ChooseImageCount(caps),
		Format:         s.ColorFormat,
		ColorSpace:     s.ColorSpace,
		Extent:         extent,
		Usage:          usage,
		PreTransform:   ChoosePreTransform(caps),
		CompositeAlpha: ChooseCompositeAlpha(caps),
		PresentMode:    presentMode,
		OldSwapchain:   old,
	})
	if err != nil {
		s.state = previous
		return wrapSwapchain(err, "create swapchain %dx%d", extent.Width, extent.Height)
	}

	s.destroyViews()
	if old.Initialized() {
		driver.DestroySwapchain(old)
	}
	s.handle = handle
	s.Images = nil

	images, err := driver.SwapchainImages(handle)
	if err != nil {
		return wrapSwapchain(err, "get swapchain images")
	}
	err = s.rebuildViews(images)
	if err != nil {
		return err
	}

	s.Extent = extent
	s.PresentMode = presentMode
	s.Generation = uuid.New()
	s.state = SwapchainCreated

	s.log.WithFields(logrus.Fields{
		"swapchain":   s.Generation,
		"extent":      extent,
		"images":      len(images),
		"presentMode": presentMode,
	}).Info("swapchain created")
	return nil
}

// rebuildViews creates one color view per image. On failure the views made
// so far are released.
func (s *Swapchain) rebuildViews(images []gpu.Image) error {
	views := make([]gpu.ImageView, 0, len(images))
	for idx, image := range images {
		view, err := s.device.Driver.CreateImageView(gpu.ImageViewCreateInfo{
			Image:  image,
			Format: s.ColorFormat,
			Aspect: core1_0.ImageAspectColor,
		})
		if err != nil {
			for _, created := range views {
				s.device.Driver.DestroyImageView(created)
			}
			return wrapSwapchain(err, "create view for image %d", idx)
		}
		views = append(views, view)
	}

	s.Images = images
	s.Views = views
	return nil
}

func (s *Swapchain) destroyViews() {
	for _, view := range s.Views {
		if view.Initialized() {
			s.device.Driver.DestroyImageView(view)
		}
	}
	s.Views = nil
}

// AcquireNextImage asks for the next presentable image, signaling signal when
// it is ready. OutOfDate leaves the returned index meaningless.
func (s *Swapchain) AcquireNextImage(timeout time.Duration, signal gpu.Semaphore) (int, PresentStatus, error) {
	if s.state != SwapchainCreated {
		return -1, StatusSuccess, swapchainError(ErrNotInitialized, "acquire in state %s", s.state)
	}

	index, res, err := s.device.Driver.AcquireNextImage(s.handle, timeout, signal)
	status, err := classifyResult(res, err)
	if err != nil {
		return -1, status, wrapSwapchain(err, "acquire next image")
	}
	return index, status, nil
}

// Present queues imageIndex for presentation once wait is signaled.
func (s *Swapchain) Present(queue gpu.Queue, imageIndex int, wait gpu.Semaphore) (PresentStatus, error) {
	if s.state != SwapchainCreated {
		return StatusSuccess, swapchainError(ErrNotInitialized, "present in state %s", s.state)
	}

	res, err := s.device.Driver.QueuePresent(queue, s.handle, imageIndex, wait)
	status, err := classifyResult(res, err)
	if err != nil {
		return status, wrapSwapchain(err, "present image %d", imageIndex)
	}
	return status, nil
}

// Destroy releases the views, the swapchain and the surface, in that order.
// It is safe on a partially initialized swapchain and more than once.
func (s *Swapchain) Destroy() {
	if s == nil || s.state == SwapchainDestroyed {
		return
	}

	if s.device != nil && s.device.Driver != nil {
		s.destroyViews()
		if s.handle.Initialized() {
			s.device.Driver.DestroySwapchain(s.handle)
			s.handle = 0
		}
	}
	s.Images = nil

	if s.surface.Initialized() {
		s.instance.DestroySurface(s.surface)
		s.surface = 0
	}
	s.state = SwapchainDestroyed
}
