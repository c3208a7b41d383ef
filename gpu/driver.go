// Package gpu defines the handle types and driver interfaces the renderer is
// written against. The vkng subpackage implements them on vkngwrapper; the
// gputest subpackage implements them in memory for tests.
package gpu

import (
	"time"

	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

// SurfaceSource creates a presentable surface for a native window.
type SurfaceSource interface {
	CreateSurface() (Surface, error)
}

type Instance interface {
	Adapters() ([]Adapter, error)
	DestroySurface(surface Surface)
	Destroy()
}

// Adapter is a physical device together with the surface queries that need
// one.
type Adapter interface {
	Info() *PhysicalDeviceInfo
	FormatProperties(format core1_0.Format) FormatProperties

	SurfaceSupport(surface Surface, queueFamily int) (bool, error)
	SurfaceCapabilities(surface Surface) (*khr_surface.SurfaceCapabilities, error)
	SurfaceFormats(surface Surface) ([]khr_surface.SurfaceFormat, error)
	SurfacePresentModes(surface Surface) ([]khr_surface.PresentMode, error)

	CreateDevice(info DeviceCreateInfo) (Device, error)
}

type DeviceCreateInfo struct {
	QueueFamilies []int
	Extensions    []string
}

type SubmitInfo struct {
	WaitSemaphores   []Semaphore
	WaitDstStageMask []core1_0.PipelineStageFlags
	CommandBuffers   []CommandBuffer
	SignalSemaphores []Semaphore
}

type ImageCreateInfo struct {
	Format core1_0.Format
	Extent core1_0.Extent2D
	Usage  core1_0.ImageUsageFlags
}

type ImageViewCreateInfo struct {
	Image  Image
	Format core1_0.Format
	Aspect core1_0.ImageAspectFlags
}

type BufferCreateInfo struct {
	Size  int
	Usage core1_0.BufferUsageFlags
}

// RenderPassCreateInfo describes the single-subpass color + depth pass used
// by the renderer.
type RenderPassCreateInfo struct {
	ColorFormat core1_0.Format
	DepthFormat core1_0.Format
}

type FramebufferCreateInfo struct {
	RenderPass  RenderPass
	Attachments []ImageView
	Extent      core1_0.Extent2D
}

type RenderPassBeginInfo struct {
	RenderPass  RenderPass
	Framebuffer Framebuffer
	Extent      core1_0.Extent2D
	ClearColor  [4]float32
	ClearDepth  float32
}

type ImageBarrier struct {
	Image     Image
	Aspect    core1_0.ImageAspectFlags
	OldLayout core1_0.ImageLayout
	NewLayout core1_0.ImageLayout
	SrcAccess core1_0.AccessFlags
	DstAccess core1_0.AccessFlags
	SrcStage  core1_0.PipelineStageFlags
	DstStage  core1_0.PipelineStageFlags
}

type SwapchainCreateInfo struct {
	Surface        Surface
	MinImageCount  int
	Format         core1_0.Format
	ColorSpace     khr_surface.ColorSpace
	Extent         core1_0.Extent2D
	Usage          core1_0.ImageUsageFlags
	PreTransform   khr_surface.SurfaceTransformFlags
	CompositeAlpha khr_surface.CompositeAlphaFlags
	PresentMode    khr_surface.PresentMode
	OldSwapchain   Swapchain
}

// Sync covers fences, semaphores and host-side waits.
type Sync interface {
	CreateFence(signaled bool) (Fence, error)
	DestroyFence(fence Fence)
	WaitForFences(waitAll bool, timeout time.Duration, fences ...Fence) (common.VkResult, error)
	ResetFences(fences ...Fence) error
	CreateSemaphore() (Semaphore, error)
	DestroySemaphore(semaphore Semaphore)
	WaitIdle() error
	QueueWaitIdle(queue Queue) error
}

// Commands covers command pools, buffers and submission.
type Commands interface {
	CreateCommandPool(queueFamily int, flags core1_0.CommandPoolCreateFlags) (CommandPool, error)
	DestroyCommandPool(pool CommandPool)
	AllocateCommandBuffers(pool CommandPool, level core1_0.CommandBufferLevel, count int) ([]CommandBuffer, error)
	FreeCommandBuffers(buffers ...CommandBuffer)
	BeginCommandBuffer(buffer CommandBuffer, flags core1_0.CommandBufferUsageFlags) error
	EndCommandBuffer(buffer CommandBuffer) error
	ResetCommandBuffer(buffer CommandBuffer) error
	QueueSubmit(queue Queue, fence Fence, submits ...SubmitInfo) error
}

// Recorder writes commands into a buffer in the recording state.
type Recorder interface {
	CmdBeginRenderPass(buffer CommandBuffer, info RenderPassBeginInfo) error
	CmdEndRenderPass(buffer CommandBuffer)
	CmdSetViewport(buffer CommandBuffer, viewport core1_0.Viewport)
	CmdSetScissor(buffer CommandBuffer, scissor core1_0.Rect2D)
	CmdPipelineBarrier(buffer CommandBuffer, barrier ImageBarrier) error
	CmdCopyBuffer(buffer CommandBuffer, src, dst Buffer, size int) error
	CmdClearColorImage(buffer CommandBuffer, image Image, layout core1_0.ImageLayout, color [4]float32)
}

// Resources covers memory, images, buffers and the attachments built from
// them.
type Resources interface {
	AllocateMemory(size int, memoryTypeIndex int) (DeviceMemory, error)
	FreeMemory(memory DeviceMemory)
	MapMemory(memory DeviceMemory, size int) ([]byte, error)
	UnmapMemory(memory DeviceMemory)
	// FlushMemory makes host writes to the whole mapped range visible.
	FlushMemory(memory DeviceMemory) error

	CreateImage(info ImageCreateInfo) (Image, error)
	DestroyImage(image Image)
	ImageMemoryRequirements(image Image) MemoryRequirements
	BindImageMemory(image Image, memory DeviceMemory) error

	CreateImageView(info ImageViewCreateInfo) (ImageView, error)
	DestroyImageView(view ImageView)

	CreateBuffer(info BufferCreateInfo) (Buffer, error)
	DestroyBuffer(buffer Buffer)
	BufferMemoryRequirements(buffer Buffer) MemoryRequirements
	BindBufferMemory(buffer Buffer, memory DeviceMemory) error

	CreateRenderPass(info RenderPassCreateInfo) (RenderPass, error)
	DestroyRenderPass(pass RenderPass)
	CreateFramebuffer(info FramebufferCreateInfo) (Framebuffer, error)
	DestroyFramebuffer(framebuffer Framebuffer)
}

// Swapchains wraps the swapchain extension. AcquireNextImage and
// QueuePresent return the raw result so callers can tell out-of-date and
// suboptimal apart from success.
type Swapchains interface {
	CreateSwapchain(info SwapchainCreateInfo) (Swapchain, error)
	DestroySwapchain(swapchain Swapchain)
	SwapchainImages(swapchain Swapchain) ([]Image, error)
	AcquireNextImage(swapchain Swapchain, timeout time.Duration, signal Semaphore) (int, common.VkResult, error)
	QueuePresent(queue Queue, swapchain Swapchain, imageIndex int, wait Semaphore) (common.VkResult, error)
}

// Device is a logical device with the swapchain extension enabled.
type Device interface {
	Sync
	Commands
	Recorder
	Resources
	Swapchains

	Queue(queueFamily, index int) Queue
	Destroy()
}
