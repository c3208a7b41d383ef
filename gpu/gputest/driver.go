// Package gputest provides an in-memory implementation of the gpu driver
// interfaces. It tracks every handle it issues so tests can assert on leaks,
// double frees and the order in which the renderer touches objects.
package gputest

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/pbr/gpu"
)

type Kind string

const (
	KindSurface       Kind = "surface"
	KindSwapchain     Kind = "swapchain"
	KindImage         Kind = "image"
	KindImageView     Kind = "image-view"
	KindMemory        Kind = "memory"
	KindBuffer        Kind = "buffer"
	KindFence         Kind = "fence"
	KindSemaphore     Kind = "semaphore"
	KindCommandPool   Kind = "command-pool"
	KindCommandBuffer Kind = "command-buffer"
	KindRenderPass    Kind = "render-pass"
	KindFramebuffer   Kind = "framebuffer"
	KindDevice        Kind = "device"
)

// Kinds lists every kind of object the driver issues.
var Kinds = []Kind{
	KindSurface, KindSwapchain, KindImage, KindImageView, KindMemory,
	KindBuffer, KindFence, KindSemaphore, KindCommandPool, KindCommandBuffer,
	KindRenderPass, KindFramebuffer, KindDevice,
}

// ErrInjected is returned by calls scheduled to fail with FailAt.
var ErrInjected = errors.New("gputest: injected failure")

// Call is one entry of the driver's call log.
type Call struct {
	Op     string
	Handle uint64
}

func (c Call) String() string {
	return fmt.Sprintf("%s(%d)", c.Op, c.Handle)
}

type object struct {
	kind      Kind
	destroyed bool
}

type fenceState struct {
	signaled bool
}

type swapchainState struct {
	info   gpu.SwapchainCreateInfo
	images []gpu.Image
	next   int
}

// Driver implements gpu.Instance, gpu.Adapter and gpu.Device over a single
// simulated physical device.
type Driver struct {
	Name          string
	DeviceType    core1_0.PhysicalDeviceType
	QueueFamilies []gpu.QueueFamily
	MemoryTypes   []gpu.MemoryType
	Extensions    []string
	Formats       map[core1_0.Format]gpu.FormatProperties

	PresentFamilies map[int]bool
	Capabilities    khr_surface.SurfaceCapabilities
	SurfaceFmts     []khr_surface.SurfaceFormat
	PresentModes    []khr_surface.PresentMode

	// AcquireResults and PresentResults are consumed front to back; an empty
	// script yields success.
	AcquireResults []common.VkResult
	PresentResults []common.VkResult

	// HoldFences keeps submitted fences unsignaled until Complete is called.
	HoldFences bool

	Calls    []Call
	Problems []string

	failures   map[string]int
	nextHandle uint64
	objects    map[uint64]*object
	fences     map[gpu.Fence]*fenceState
	pending    []gpu.Fence
	swapchains map[gpu.Swapchain]*swapchainState
	mapped     map[gpu.DeviceMemory][]byte
	info       *gpu.PhysicalDeviceInfo
}

// New returns a driver describing a discrete GPU with one universal queue
// family, one dedicated compute family and the usual memory types. The
// surface reports 1280x720, two to three images and a B8G8R8A8 SRGB format.
func New() *Driver {
	return &Driver{
		Name:       "gputest",
		DeviceType: core1_0.PhysicalDeviceTypeDiscreteGPU,
		QueueFamilies: []gpu.QueueFamily{
			{Flags: core1_0.QueueGraphics | core1_0.QueueCompute | core1_0.QueueTransfer, Count: 1},
			{Flags: core1_0.QueueCompute | core1_0.QueueTransfer, Count: 1},
		},
		MemoryTypes: []gpu.MemoryType{
			{PropertyFlags: core1_0.MemoryPropertyDeviceLocal},
			{PropertyFlags: core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent},
			{PropertyFlags: core1_0.MemoryPropertyHostVisible},
		},
		Extensions: []string{khr_swapchain.ExtensionName},
		Formats: map[core1_0.Format]gpu.FormatProperties{
			core1_0.FormatD32SignedFloatS8UnsignedInt: {OptimalTilingFeatures: core1_0.FormatFeatureDepthStencilAttachment},
			core1_0.FormatB8G8R8A8SRGB:                {OptimalTilingFeatures: core1_0.FormatFeatureColorAttachment | core1_0.FormatFeatureBlitSource},
		},
		PresentFamilies: map[int]bool{0: true},
		Capabilities: khr_surface.SurfaceCapabilities{
			MinImageCount:           2,
			MaxImageCount:           3,
			CurrentExtent:           core1_0.Extent2D{Width: 1280, Height: 720},
			MinImageExtent:          core1_0.Extent2D{Width: 1, Height: 1},
			MaxImageExtent:          core1_0.Extent2D{Width: 4096, Height: 4096},
			MaxImageArrayLayers:     1,
			SupportedTransforms:     khr_surface.TransformIdentity,
			CurrentTransform:        khr_surface.TransformIdentity,
			SupportedCompositeAlpha: khr_surface.CompositeAlphaOpaque,
		},
		SurfaceFmts: []khr_surface.SurfaceFormat{
			{Format: core1_0.FormatB8G8R8A8SRGB, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear},
		},
		PresentModes: []khr_surface.PresentMode{khr_surface.PresentModeFIFO},
		objects:      map[uint64]*object{},
		fences:       map[gpu.Fence]*fenceState{},
		swapchains:   map[gpu.Swapchain]*swapchainState{},
		mapped:       map[gpu.DeviceMemory][]byte{},
		failures:     map[string]int{},
	}
}

// FailAt makes the nth call to op from now on return ErrInjected, counting
// from one. Failed calls issue no handle and are not logged. Creation calls
// and AllocateMemory honor it.
func (d *Driver) FailAt(op string, n int) {
	d.failures[op] = n
}

func (d *Driver) fail(op string) error {
	n, ok := d.failures[op]
	if !ok {
		return nil
	}
	if n > 1 {
		d.failures[op] = n - 1
		return nil
	}
	delete(d.failures, op)
	return errors.Wrapf(ErrInjected, "%s", op)
}

func (d *Driver) issue(kind Kind, op string) uint64 {
	d.nextHandle++
	d.objects[d.nextHandle] = &object{kind: kind}
	d.record(op, d.nextHandle)
	return d.nextHandle
}

func (d *Driver) release(kind Kind, op string, handle uint64) {
	d.record(op, handle)
	if handle == 0 {
		d.problem("%s called with a null handle", op)
		return
	}
	obj, ok := d.objects[handle]
	switch {
	case !ok:
		d.problem("%s: unknown handle %d", op, handle)
	case obj.kind != kind:
		d.problem("%s: handle %d is a %s", op, handle, obj.kind)
	case obj.destroyed:
		d.problem("%s: handle %d destroyed twice", op, handle)
	default:
		obj.destroyed = true
	}
}

func (d *Driver) alive(kind Kind, op string, handle uint64) {
	obj, ok := d.objects[handle]
	if !ok || obj.kind != kind || obj.destroyed {
		d.problem("%s: %s %d is not alive", op, kind, handle)
	}
}

func (d *Driver) record(op string, handle uint64) {
	d.Calls = append(d.Calls, Call{Op: op, Handle: handle})
}

func (d *Driver) problem(format string, args ...interface{}) {
	d.Problems = append(d.Problems, fmt.Sprintf(format, args...))
}

// Live returns how many objects of kind are created and not yet destroyed.
func (d *Driver) Live(kind Kind) int {
	count := 0
	for _, obj := range d.objects {
		if obj.kind == kind && !obj.destroyed {
			count++
		}
	}
	return count
}

// Destroyed reports whether handle was released exactly once.
func (d *Driver) Destroyed(handle uint64) bool {
	obj, ok := d.objects[handle]
	return ok && obj.destroyed
}

// Count returns how many times op was called.
func (d *Driver) Count(op string) int {
	count := 0
	for _, call := range d.Calls {
		if call.Op == op {
			count++
		}
	}
	return count
}

// Index returns the position of the first call matching op and handle after
// position from, or -1.
func (d *Driver) Index(from int, op string, handle uint64) int {
	for i := from; i < len(d.Calls); i++ {
		if d.Calls[i].Op == op && d.Calls[i].Handle == handle {
			return i
		}
	}
	return -1
}

// ResetCalls clears the call log without touching object state.
func (d *Driver) ResetCalls() {
	d.Calls = nil
}

// Complete signals every fence submitted while HoldFences was set.
func (d *Driver) Complete() {
	for _, fence := range d.pending {
		if state, ok := d.fences[fence]; ok {
			state.signaled = true
		}
	}
	d.pending = nil
}

// Signaled reports the current state of fence.
func (d *Driver) Signaled(fence gpu.Fence) bool {
	state, ok := d.fences[fence]
	return ok && state.signaled
}

// Instance

func (d *Driver) Adapters() ([]gpu.Adapter, error) {
	return []gpu.Adapter{d}, nil
}

func (d *Driver) DestroySurface(surface gpu.Surface) {
	d.release(KindSurface, "DestroySurface", uint64(surface))
}

// CreateSurface makes the driver usable as a gpu.SurfaceSource.
func (d *Driver) CreateSurface() (gpu.Surface, error) {
	return gpu.Surface(d.issue(KindSurface, "CreateSurface")), nil
}

// Adapter

func (d *Driver) Info() *gpu.PhysicalDeviceInfo {
	if d.info == nil {
		extensions := map[string]struct{}{}
		for _, name := range d.Extensions {
			extensions[name] = struct{}{}
		}
		d.info = &gpu.PhysicalDeviceInfo{
			Name:          d.Name,
			Type:          d.DeviceType,
			APIVersion:    common.Vulkan1_2,
			QueueFamilies: d.QueueFamilies,
			MemoryTypes:   d.MemoryTypes,
			Extensions:    extensions,
		}
	}
	return d.info
}

func (d *Driver) FormatProperties(format core1_0.Format) gpu.FormatProperties {
	return d.Formats[format]
}

func (d *Driver) SurfaceSupport(surface gpu.Surface, queueFamily int) (bool, error) {
	d.alive(KindSurface, "SurfaceSupport", uint64(surface))
	return d.PresentFamilies[queueFamily], nil
}

func (d *Driver) SurfaceCapabilities(surface gpu.Surface) (*khr_surface.SurfaceCapabilities, error) {
	d.alive(KindSurface, "SurfaceCapabilities", uint64(surface))
	caps := d.Capabilities
	return &caps, nil
}

func (d *Driver) SurfaceFormats(surface gpu.Surface) ([]khr_surface.SurfaceFormat, error) {
	d.alive(KindSurface, "SurfaceFormats", uint64(surface))
	return append([]khr_surface.SurfaceFormat(nil), d.SurfaceFmts...), nil
}

func (d *Driver) SurfacePresentModes(surface gpu.Surface) ([]khr_surface.PresentMode, error) {
	d.alive(KindSurface, "SurfacePresentModes", uint64(surface))
	return append([]khr_surface.PresentMode(nil), d.PresentModes...), nil
}

func (d *Driver) CreateDevice(info gpu.DeviceCreateInfo) (gpu.Device, error) {
	for _, family := range info.QueueFamilies {
		if family < 0 || family >= len(d.QueueFamilies) {
			return nil, errors.Errorf("gputest: queue family %d out of range", family)
		}
	}
	d.issue(KindDevice, "CreateDevice")
	return d, nil
}

// Device

func (d *Driver) Queue(queueFamily, index int) gpu.Queue {
	return gpu.Queue(uint64(queueFamily)<<8 | uint64(index) | 1<<32)
}

func (d *Driver) Destroy() {
	for handle, obj := range d.objects {
		if obj.kind == KindDevice && !obj.destroyed {
			d.release(KindDevice, "DestroyDevice", handle)
		}
	}
}

func (d *Driver) WaitIdle() error {
	d.record("WaitIdle", 0)
	d.Complete()
	return nil
}

func (d *Driver) QueueWaitIdle(queue gpu.Queue) error {
	d.record("QueueWaitIdle", uint64(queue))
	d.Complete()
	return nil
}

func (d *Driver) CreateFence(signaled bool) (gpu.Fence, error) {
	if err := d.fail("CreateFence"); err != nil {
		return 0, err
	}
	fence := gpu.Fence(d.issue(KindFence, "CreateFence"))
	d.fences[fence] = &fenceState{signaled: signaled}
	return fence, nil
}

func (d *Driver) DestroyFence(fence gpu.Fence) {
	d.release(KindFence, "DestroyFence", uint64(fence))
}

func (d *Driver) WaitForFences(waitAll bool, timeout time.Duration, fences ...gpu.Fence) (common.VkResult, error) {
	for _, fence := range fences {
		d.record("WaitForFences", uint64(fence))
		d.alive(KindFence, "WaitForFences", uint64(fence))
	}
	for _, fence := range fences {
		if !d.fences[fence].signaled {
			return core1_0.VKTimeout, nil
		}
	}
	return core1_0.VKSuccess, nil
}

func (d *Driver) ResetFences(fences ...gpu.Fence) error {
	for _, fence := range fences {
		d.record("ResetFences", uint64(fence))
		d.alive(KindFence, "ResetFences", uint64(fence))
		d.fences[fence].signaled = false
	}
	return nil
}

func (d *Driver) CreateSemaphore() (gpu.Semaphore, error) {
	if err := d.fail("CreateSemaphore"); err != nil {
		return 0, err
	}
	return gpu.Semaphore(d.issue(KindSemaphore, "CreateSemaphore")), nil
}

func (d *Driver) DestroySemaphore(semaphore gpu.Semaphore) {
	d.release(KindSemaphore, "DestroySemaphore", uint64(semaphore))
}

func (d *Driver) CreateCommandPool(queueFamily int, flags core1_0.CommandPoolCreateFlags) (gpu.CommandPool, error) {
	if err := d.fail("CreateCommandPool"); err != nil {
		return 0, err
	}
	return gpu.CommandPool(d.issue(KindCommandPool, "CreateCommandPool")), nil
}

func (d *Driver) DestroyCommandPool(pool gpu.CommandPool) {
	d.release(KindCommandPool, "DestroyCommandPool", uint64(pool))
}

func (d *Driver) AllocateCommandBuffers(pool gpu.CommandPool, level core1_0.CommandBufferLevel, count int) ([]gpu.CommandBuffer, error) {
	d.alive(KindCommandPool, "AllocateCommandBuffers", uint64(pool))
	if err := d.fail("AllocateCommandBuffers"); err != nil {
		return nil, err
	}
	buffers := make([]gpu.CommandBuffer, count)
	for i := range buffers {
		buffers[i] = gpu.CommandBuffer(d.issue(KindCommandBuffer, "AllocateCommandBuffers"))
	}
	return buffers, nil
}

func (d *Driver) FreeCommandBuffers(buffers ...gpu.CommandBuffer) {
	for _, buffer := range buffers {
		d.release(KindCommandBuffer, "FreeCommandBuffers", uint64(buffer))
	}
}

func (d *Driver) BeginCommandBuffer(buffer gpu.CommandBuffer, flags core1_0.CommandBufferUsageFlags) error {
	d.record("BeginCommandBuffer", uint64(buffer))
	d.alive(KindCommandBuffer, "BeginCommandBuffer", uint64(buffer))
	return nil
}

func (d *Driver) EndCommandBuffer(buffer gpu.CommandBuffer) error {
	d.record("EndCommandBuffer", uint64(buffer))
	d.alive(KindCommandBuffer, "EndCommandBuffer", uint64(buffer))
	return nil
}

func (d *Driver) ResetCommandBuffer(buffer gpu.CommandBuffer) error {
	d.record("ResetCommandBuffer", uint64(buffer))
	d.alive(KindCommandBuffer, "ResetCommandBuffer", uint64(buffer))
	return nil
}

func (d *Driver) QueueSubmit(queue gpu.Queue, fence gpu.Fence, submits ...gpu.SubmitInfo) error {
	for _, submit := range submits {
		if len(submit.CommandBuffers) == 0 {
			d.record("QueueSubmit", 0)
		}
		for _, buffer := range submit.CommandBuffers {
			d.record("QueueSubmit", uint64(buffer))
			d.alive(KindCommandBuffer, "QueueSubmit", uint64(buffer))
		}
	}
	if !fence.Initialized() {
		return nil
	}
	d.record("SignalFence", uint64(fence))
	state, ok := d.fences[fence]
	if !ok {
		d.problem("QueueSubmit: unknown fence %d", fence)
		return nil
	}
	if state.signaled {
		d.problem("QueueSubmit: fence %d submitted while signaled", fence)
	}
	if d.HoldFences {
		d.pending = append(d.pending, fence)
	} else {
		state.signaled = true
	}
	return nil
}

func (d *Driver) CmdBeginRenderPass(buffer gpu.CommandBuffer, info gpu.RenderPassBeginInfo) error {
	d.record("CmdBeginRenderPass", uint64(buffer))
	d.alive(KindRenderPass, "CmdBeginRenderPass", uint64(info.RenderPass))
	d.alive(KindFramebuffer, "CmdBeginRenderPass", uint64(info.Framebuffer))
	return nil
}

func (d *Driver) CmdEndRenderPass(buffer gpu.CommandBuffer) {
	d.record("CmdEndRenderPass", uint64(buffer))
}

func (d *Driver) CmdSetViewport(buffer gpu.CommandBuffer, viewport core1_0.Viewport) {
	d.record("CmdSetViewport", uint64(buffer))
}

func (d *Driver) CmdSetScissor(buffer gpu.CommandBuffer, scissor core1_0.Rect2D) {
	d.record("CmdSetScissor", uint64(buffer))
}

func (d *Driver) CmdPipelineBarrier(buffer gpu.CommandBuffer, barrier gpu.ImageBarrier) error {
	d.record("CmdPipelineBarrier", uint64(buffer))
	d.alive(KindImage, "CmdPipelineBarrier", uint64(barrier.Image))
	return nil
}

func (d *Driver) CmdCopyBuffer(buffer gpu.CommandBuffer, src, dst gpu.Buffer, size int) error {
	d.record("CmdCopyBuffer", uint64(buffer))
	d.alive(KindBuffer, "CmdCopyBuffer", uint64(src))
	d.alive(KindBuffer, "CmdCopyBuffer", uint64(dst))
	return nil
}

func (d *Driver) CmdClearColorImage(buffer gpu.CommandBuffer, image gpu.Image, layout core1_0.ImageLayout, color [4]float32) {
	d.record("CmdClearColorImage", uint64(buffer))
	d.alive(KindImage, "CmdClearColorImage", uint64(image))
}

func (d *Driver) AllocateMemory(size int, memoryTypeIndex int) (gpu.DeviceMemory, error) {
	if memoryTypeIndex < 0 || memoryTypeIndex >= len(d.MemoryTypes) {
		return 0, errors.Errorf("gputest: memory type %d out of range", memoryTypeIndex)
	}
	if err := d.fail("AllocateMemory"); err != nil {
		return 0, err
	}
	memory := gpu.DeviceMemory(d.issue(KindMemory, "AllocateMemory"))
	d.mapped[memory] = make([]byte, size)
	return memory, nil
}

func (d *Driver) FreeMemory(memory gpu.DeviceMemory) {
	d.release(KindMemory, "FreeMemory", uint64(memory))
}

func (d *Driver) MapMemory(memory gpu.DeviceMemory, size int) ([]byte, error) {
	d.record("MapMemory", uint64(memory))
	data, ok := d.mapped[memory]
	if !ok || size > len(data) {
		return nil, errors.Errorf("gputest: cannot map %d bytes of memory %d", size, memory)
	}
	return data[:size], nil
}

func (d *Driver) UnmapMemory(memory gpu.DeviceMemory) {
	d.record("UnmapMemory", uint64(memory))
}

func (d *Driver) FlushMemory(memory gpu.DeviceMemory) error {
	d.record("FlushMemory", uint64(memory))
	return nil
}

// Contents returns the bytes last written to memory through MapMemory.
func (d *Driver) Contents(memory gpu.DeviceMemory) []byte {
	return d.mapped[memory]
}

func (d *Driver) CreateImage(info gpu.ImageCreateInfo) (gpu.Image, error) {
	if err := d.fail("CreateImage"); err != nil {
		return 0, err
	}
	return gpu.Image(d.issue(KindImage, "CreateImage")), nil
}

func (d *Driver) DestroyImage(image gpu.Image) {
	d.release(KindImage, "DestroyImage", uint64(image))
}

func (d *Driver) ImageMemoryRequirements(image gpu.Image) gpu.MemoryRequirements {
	return gpu.MemoryRequirements{Size: 4096, Alignment: 256, MemoryTypeBits: 0b111}
}

func (d *Driver) BindImageMemory(image gpu.Image, memory gpu.DeviceMemory) error {
	d.alive(KindImage, "BindImageMemory", uint64(image))
	d.alive(KindMemory, "BindImageMemory", uint64(memory))
	return nil
}

func (d *Driver) CreateImageView(info gpu.ImageViewCreateInfo) (gpu.ImageView, error) {
	d.alive(KindImage, "CreateImageView", uint64(info.Image))
	if err := d.fail("CreateImageView"); err != nil {
		return 0, err
	}
	return gpu.ImageView(d.issue(KindImageView, "CreateImageView")), nil
}

func (d *Driver) DestroyImageView(view gpu.ImageView) {
	d.release(KindImageView, "DestroyImageView", uint64(view))
}

func (d *Driver) CreateBuffer(info gpu.BufferCreateInfo) (gpu.Buffer, error) {
	if err := d.fail("CreateBuffer"); err != nil {
		return 0, err
	}
	return gpu.Buffer(d.issue(KindBuffer, "CreateBuffer")), nil
}

func (d *Driver) DestroyBuffer(buffer gpu.Buffer) {
	d.release(KindBuffer, "DestroyBuffer", uint64(buffer))
}

func (d *Driver) BufferMemoryRequirements(buffer gpu.Buffer) gpu.MemoryRequirements {
	return gpu.MemoryRequirements{Size: 1024, Alignment: 16, MemoryTypeBits: 0b111}
}

func (d *Driver) BindBufferMemory(buffer gpu.Buffer, memory gpu.DeviceMemory) error {
	d.alive(KindBuffer, "BindBufferMemory", uint64(buffer))
	d.alive(KindMemory, "BindBufferMemory", uint64(memory))
	return nil
}

func (d *Driver) CreateRenderPass(info gpu.RenderPassCreateInfo) (gpu.RenderPass, error) {
	if err := d.fail("CreateRenderPass"); err != nil {
		return 0, err
	}
	return gpu.RenderPass(d.issue(KindRenderPass, "CreateRenderPass")), nil
}

func (d *Driver) DestroyRenderPass(pass gpu.RenderPass) {
	d.release(KindRenderPass, "DestroyRenderPass", uint64(pass))
}

func (d *Driver) CreateFramebuffer(info gpu.FramebufferCreateInfo) (gpu.Framebuffer, error) {
	for _, view := range info.Attachments {
		d.alive(KindImageView, "CreateFramebuffer", uint64(view))
	}
	if err := d.fail("CreateFramebuffer"); err != nil {
		return 0, err
	}
	return gpu.Framebuffer(d.issue(KindFramebuffer, "CreateFramebuffer")), nil
}

func (d *Driver) DestroyFramebuffer(framebuffer gpu.Framebuffer) {
	d.release(KindFramebuffer, "DestroyFramebuffer", uint64(framebuffer))
}

func (d *Driver) CreateSwapchain(info gpu.SwapchainCreateInfo) (gpu.Swapchain, error) {
	d.alive(KindSurface, "CreateSwapchain", uint64(info.Surface))
	if info.OldSwapchain.Initialized() {
		d.alive(KindSwapchain, "CreateSwapchain", uint64(info.OldSwapchain))
	}
	if err := d.fail("CreateSwapchain"); err != nil {
		return 0, err
	}
	swapchain := gpu.Swapchain(d.issue(KindSwapchain, "CreateSwapchain"))
	state := &swapchainState{info: info}
	for i := 0; i < info.MinImageCount; i++ {
		state.images = append(state.images, gpu.Image(d.issue(KindImage, "SwapchainImage")))
	}
	d.swapchains[swapchain] = state
	return swapchain, nil
}

// SwapchainInfo returns the create info a swapchain was built from.
func (d *Driver) SwapchainInfo(swapchain gpu.Swapchain) gpu.SwapchainCreateInfo {
	return d.swapchains[swapchain].info
}

func (d *Driver) DestroySwapchain(swapchain gpu.Swapchain) {
	d.release(KindSwapchain, "DestroySwapchain", uint64(swapchain))
	if state, ok := d.swapchains[swapchain]; ok {
		for _, image := range state.images {
			d.objects[uint64(image)].destroyed = true
		}
	}
}

func (d *Driver) SwapchainImages(swapchain gpu.Swapchain) ([]gpu.Image, error) {
	state, ok := d.swapchains[swapchain]
	if !ok {
		return nil, errors.Errorf("gputest: unknown swapchain %d", swapchain)
	}
	return append([]gpu.Image(nil), state.images...), nil
}

func (d *Driver) AcquireNextImage(swapchain gpu.Swapchain, timeout time.Duration, signal gpu.Semaphore) (int, common.VkResult, error) {
	d.record("AcquireNextImage", uint64(swapchain))
	d.alive(KindSwapchain, "AcquireNextImage", uint64(swapchain))
	d.alive(KindSemaphore, "AcquireNextImage", uint64(signal))

	res := core1_0.VKSuccess
	if len(d.AcquireResults) > 0 {
		res, d.AcquireResults = d.AcquireResults[0], d.AcquireResults[1:]
	}
	if res == khr_swapchain.VKErrorOutOfDate {
		return 0, res, errors.Errorf("gputest: acquire: %s", res)
	}

	state := d.swapchains[swapchain]
	index := state.next
	state.next = (state.next + 1) % len(state.images)
	return index, res, nil
}

func (d *Driver) QueuePresent(queue gpu.Queue, swapchain gpu.Swapchain, imageIndex int, wait gpu.Semaphore) (common.VkResult, error) {
	d.record("QueuePresent", uint64(swapchain))
	d.alive(KindSwapchain, "QueuePresent", uint64(swapchain))

	res := core1_0.VKSuccess
	if len(d.PresentResults) > 0 {
		res, d.PresentResults = d.PresentResults[0], d.PresentResults[1:]
	}
	if res == khr_swapchain.VKErrorOutOfDate {
		return res, errors.Errorf("gputest: present: %s", res)
	}
	return res, nil
}

var (
	_ gpu.Instance      = (*Driver)(nil)
	_ gpu.Adapter       = (*Driver)(nil)
	_ gpu.Device        = (*Driver)(nil)
	_ gpu.SurfaceSource = (*Driver)(nil)
)
