package vkng

import (
	"time"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/pbr/gpu"
)

type queueKey struct {
	family int
	index  int
}

// Device is a logical device. Every object it creates is handed out as an
// opaque gpu handle and looked up again when the handle comes back.
type Device struct {
	adapter            *Adapter
	driver             core1_0.CoreDeviceDriver
	swapchainExtension khr_swapchain.ExtensionDriver

	ids            handles
	queues         registry[core1_0.Queue]
	queueIDs       map[queueKey]gpu.Queue
	fences         registry[core1_0.Fence]
	semaphores     registry[core1_0.Semaphore]
	pools          registry[core1_0.CommandPool]
	commandBuffers registry[core1_0.CommandBuffer]
	memory         registry[core1_0.DeviceMemory]
	images         registry[core1_0.Image]
	views          registry[core1_0.ImageView]
	buffers        registry[core1_0.Buffer]
	renderPasses   registry[core1_0.RenderPass]
	framebuffers   registry[core1_0.Framebuffer]
	swapchains     registry[khr_swapchain.Swapchain]

	swapchainImages map[gpu.Swapchain][]gpu.Image
}

func newDevice(adapter *Adapter, driver core1_0.CoreDeviceDriver) *Device {
	d := &Device{
		adapter:            adapter,
		driver:             driver,
		swapchainExtension: khr_swapchain.CreateExtensionDriverFromCoreDriver(driver),
		queueIDs:           map[queueKey]gpu.Queue{},
		swapchainImages:    map[gpu.Swapchain][]gpu.Image{},
	}
	d.queues = newRegistry[core1_0.Queue](&d.ids)
	d.fences = newRegistry[core1_0.Fence](&d.ids)
	d.semaphores = newRegistry[core1_0.Semaphore](&d.ids)
	d.pools = newRegistry[core1_0.CommandPool](&d.ids)
	d.commandBuffers = newRegistry[core1_0.CommandBuffer](&d.ids)
	d.memory = newRegistry[core1_0.DeviceMemory](&d.ids)
	d.images = newRegistry[core1_0.Image](&d.ids)
	d.views = newRegistry[core1_0.ImageView](&d.ids)
	d.buffers = newRegistry[core1_0.Buffer](&d.ids)
	d.renderPasses = newRegistry[core1_0.RenderPass](&d.ids)
	d.framebuffers = newRegistry[core1_0.Framebuffer](&d.ids)
	d.swapchains = newRegistry[khr_swapchain.Swapchain](&d.ids)
	return d
}

func (d *Device) Queue(queueFamily, index int) gpu.Queue {
	key := queueKey{family: queueFamily, index: index}
	if id, ok := d.queueIDs[key]; ok {
		return id
	}
	id := gpu.Queue(d.queues.add(d.driver.GetQueue(queueFamily, index)))
	d.queueIDs[key] = id
	return id
}

func (d *Device) Destroy() {
	if d.driver == nil {
		return
	}
	d.driver.DestroyDevice(nil)
	d.driver = nil
}

// Sync

func (d *Device) CreateFence(signaled bool) (gpu.Fence, error) {
	var flags core1_0.FenceCreateFlags
	if signaled {
		flags = core1_0.FenceCreateSignaled
	}
	fence, _, err := d.driver.CreateFence(nil, core1_0.FenceCreateInfo{Flags: flags})
	if err != nil {
		return 0, err
	}
	return gpu.Fence(d.fences.add(fence)), nil
}

func (d *Device) DestroyFence(handle gpu.Fence) {
	if fence, ok := d.fences.take(uint64(handle)); ok {
		d.driver.DestroyFence(fence, nil)
	}
}

func (d *Device) lookupFences(handles []gpu.Fence) ([]core1_0.Fence, error) {
	fences := make([]core1_0.Fence, 0, len(handles))
	for _, handle := range handles {
		fence, err := d.fences.get(uint64(handle))
		if err != nil {
			return nil, err
		}
		fences = append(fences, fence)
	}
	return fences, nil
}

func (d *Device) WaitForFences(waitAll bool, timeout time.Duration, handles ...gpu.Fence) (common.VkResult, error) {
	fences, err := d.lookupFences(handles)
	if err != nil {
		return core1_0.VKErrorUnknown, err
	}
	return d.driver.WaitForFences(waitAll, timeout, fences...)
}

func (d *Device) ResetFences(handles ...gpu.Fence) error {
	fences, err := d.lookupFences(handles)
	if err != nil {
		return err
	}
	_, err = d.driver.ResetFences(fences...)
	return err
}

func (d *Device) CreateSemaphore() (gpu.Semaphore, error) {
	semaphore, _, err := d.driver.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	if err != nil {
		return 0, err
	}
	return gpu.Semaphore(d.semaphores.add(semaphore)), nil
}

func (d *Device) DestroySemaphore(handle gpu.Semaphore) {
	if semaphore, ok := d.semaphores.take(uint64(handle)); ok {
		d.driver.DestroySemaphore(semaphore, nil)
	}
}

func (d *Device) lookupSemaphores(handles []gpu.Semaphore) ([]core1_0.Semaphore, error) {
	semaphores := make([]core1_0.Semaphore, 0, len(handles))
	for _, handle := range handles {
		semaphore, err := d.semaphores.get(uint64(handle))
		if err != nil {
			return nil, err
		}
		semaphores = append(semaphores, semaphore)
	}
	return semaphores, nil
}

func (d *Device) WaitIdle() error {
	_, err := d.driver.DeviceWaitIdle()
	return err
}

func (d *Device) QueueWaitIdle(handle gpu.Queue) error {
	queue, err := d.queues.get(uint64(handle))
	if err != nil {
		return err
	}
	_, err = d.driver.QueueWaitIdle(queue)
	return err
}

// Commands

func (d *Device) CreateCommandPool(queueFamily int, flags core1_0.CommandPoolCreateFlags) (gpu.CommandPool, error) {
	pool, _, err := d.driver.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		QueueFamilyIndex: queueFamily,
		Flags:            flags,
	})
	if err != nil {
		return 0, err
	}
	return gpu.CommandPool(d.pools.add(pool)), nil
}

func (d *Device) DestroyCommandPool(handle gpu.CommandPool) {
	if pool, ok := d.pools.take(uint64(handle)); ok {
		d.driver.DestroyCommandPool(pool, nil)
	}
}

func (d *Device) AllocateCommandBuffers(handle gpu.CommandPool, level core1_0.CommandBufferLevel, count int) ([]gpu.CommandBuffer, error) {
	pool, err := d.pools.get(uint64(handle))
	if err != nil {
		return nil, err
	}

	buffers, _, err := d.driver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        pool,
		Level:              level,
		CommandBufferCount: count,
	})
	if err != nil {
		return nil, err
	}

	ids := make([]gpu.CommandBuffer, len(buffers))
	for i, buffer := range buffers {
		ids[i] = gpu.CommandBuffer(d.commandBuffers.add(buffer))
	}
	return ids, nil
}

func (d *Device) FreeCommandBuffers(handles ...gpu.CommandBuffer) {
	var buffers []core1_0.CommandBuffer
	for _, handle := range handles {
		if buffer, ok := d.commandBuffers.take(uint64(handle)); ok {
			buffers = append(buffers, buffer)
		}
	}
	if len(buffers) > 0 {
		d.driver.FreeCommandBuffers(buffers...)
	}
}

func (d *Device) BeginCommandBuffer(handle gpu.CommandBuffer, flags core1_0.CommandBufferUsageFlags) error {
	buffer, err := d.commandBuffers.get(uint64(handle))
	if err != nil {
		return err
	}
	_, err = d.driver.BeginCommandBuffer(buffer, core1_0.CommandBufferBeginInfo{Flags: flags})
	return err
}

func (d *Device) EndCommandBuffer(handle gpu.CommandBuffer) error {
	buffer, err := d.commandBuffers.get(uint64(handle))
	if err != nil {
		return err
	}
	_, err = d.driver.EndCommandBuffer(buffer)
	return err
}

func (d *Device) ResetCommandBuffer(handle gpu.CommandBuffer) error {
	buffer, err := d.commandBuffers.get(uint64(handle))
	if err != nil {
		return err
	}
	_, err = d.driver.ResetCommandBuffer(buffer, 0)
	return err
}

func (d *Device) QueueSubmit(queueHandle gpu.Queue, fenceHandle gpu.Fence, submits ...gpu.SubmitInfo) error {
	queue, err := d.queues.get(uint64(queueHandle))
	if err != nil {
		return err
	}

	var fence *core1_0.Fence
	if fenceHandle.Initialized() {
		found, err := d.fences.get(uint64(fenceHandle))
		if err != nil {
			return err
		}
		fence = &found
	}

	infos := make([]core1_0.SubmitInfo, 0, len(submits))
	for _, submit := range submits {
		info := core1_0.SubmitInfo{WaitDstStageMask: submit.WaitDstStageMask}

		info.WaitSemaphores, err = d.lookupSemaphores(submit.WaitSemaphores)
		if err != nil {
			return err
		}
		info.SignalSemaphores, err = d.lookupSemaphores(submit.SignalSemaphores)
		if err != nil {
			return err
		}
		for _, handle := range submit.CommandBuffers {
			buffer, err := d.commandBuffers.get(uint64(handle))
			if err != nil {
				return err
			}
			info.CommandBuffers = append(info.CommandBuffers, buffer)
		}
		infos = append(infos, info)
	}

	_, err = d.driver.QueueSubmit(queue, fence, infos...)
	return err
}

// Resources

func (d *Device) AllocateMemory(size int, memoryTypeIndex int) (gpu.DeviceMemory, error) {
	memory, _, err := d.driver.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  size,
		MemoryTypeIndex: memoryTypeIndex,
	})
	if err != nil {
		return 0, err
	}
	return gpu.DeviceMemory(d.memory.add(memory)), nil
}

func (d *Device) FreeMemory(handle gpu.DeviceMemory) {
	if memory, ok := d.memory.take(uint64(handle)); ok {
		d.driver.FreeMemory(memory, nil)
	}
}

// MapMemory maps the first size bytes of an allocation. The slice is valid
// until UnmapMemory.
func (d *Device) MapMemory(handle gpu.DeviceMemory, size int) ([]byte, error) {
	memory, err := d.memory.get(uint64(handle))
	if err != nil {
		return nil, err
	}
	ptr, _, err := d.driver.MapMemory(memory, 0, size, 0)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(ptr), size), nil
}

func (d *Device) UnmapMemory(handle gpu.DeviceMemory) {
	if memory, err := d.memory.get(uint64(handle)); err == nil {
		d.driver.UnmapMemory(memory)
	}
}

// wholeSize becomes VK_WHOLE_SIZE once the driver converts it to a
// VkDeviceSize. A flushed size must otherwise be a multiple of
// nonCoherentAtomSize.
const wholeSize = -1

func wholeRange(memory core1_0.DeviceMemory) core1_0.MappedMemoryRange {
	return core1_0.MappedMemoryRange{
		Memory: memory,
		Offset: 0,
		Size:   wholeSize,
	}
}

func (d *Device) FlushMemory(handle gpu.DeviceMemory) error {
	memory, err := d.memory.get(uint64(handle))
	if err != nil {
		return err
	}
	_, err = d.driver.FlushMappedMemoryRanges(wholeRange(memory))
	return err
}

func (d *Device) CreateImage(info gpu.ImageCreateInfo) (gpu.Image, error) {
	image, _, err := d.driver.CreateImage(nil, core1_0.ImageCreateInfo{
		ImageType: core1_0.ImageType2D,
		Extent: core1_0.Extent3D{
			Width:  info.Extent.Width,
			Height: info.Extent.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        info.Format,
		Tiling:        core1_0.ImageTilingOptimal,
		InitialLayout: core1_0.ImageLayoutUndefined,
		Usage:         info.Usage,
		SharingMode:   core1_0.SharingModeExclusive,
		Samples:       core1_0.Samples1,
	})
	if err != nil {
		return 0, err
	}
	return gpu.Image(d.images.add(image)), nil
}

func (d *Device) DestroyImage(handle gpu.Image) {
	if image, ok := d.images.take(uint64(handle)); ok {
		d.driver.DestroyImage(image, nil)
	}
}

func (d *Device) ImageMemoryRequirements(handle gpu.Image) gpu.MemoryRequirements {
	image, err := d.images.get(uint64(handle))
	if err != nil {
		return gpu.MemoryRequirements{}
	}
	reqs := d.driver.GetImageMemoryRequirements(image)
	return gpu.MemoryRequirements{Size: reqs.Size, Alignment: reqs.Alignment, MemoryTypeBits: reqs.MemoryTypeBits}
}

func (d *Device) BindImageMemory(imageHandle gpu.Image, memoryHandle gpu.DeviceMemory) error {
	image, err := d.images.get(uint64(imageHandle))
	if err != nil {
		return err
	}
	memory, err := d.memory.get(uint64(memoryHandle))
	if err != nil {
		return err
	}
	_, err = d.driver.BindImageMemory(image, memory, 0)
	return err
}

func (d *Device) CreateImageView(info gpu.ImageViewCreateInfo) (gpu.ImageView, error) {
	image, err := d.images.get(uint64(info.Image))
	if err != nil {
		return 0, err
	}
	view, _, err := d.driver.CreateImageView(nil, core1_0.ImageViewCreateInfo{
		Image:    image,
		ViewType: core1_0.ImageViewType2D,
		Format:   info.Format,
		SubresourceRange: core1_0.ImageSubresourceRange{
			AspectMask:     info.Aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	})
	if err != nil {
		return 0, err
	}
	return gpu.ImageView(d.views.add(view)), nil
}

func (d *Device) DestroyImageView(handle gpu.ImageView) {
	if view, ok := d.views.take(uint64(handle)); ok {
		d.driver.DestroyImageView(view, nil)
	}
}

func (d *Device) CreateBuffer(info gpu.BufferCreateInfo) (gpu.Buffer, error) {
	buffer, _, err := d.driver.CreateBuffer(nil, core1_0.BufferCreateInfo{
		Size:        info.Size,
		Usage:       info.Usage,
		SharingMode: core1_0.SharingModeExclusive,
	})
	if err != nil {
		return 0, err
	}
	return gpu.Buffer(d.buffers.add(buffer)), nil
}

func (d *Device) DestroyBuffer(handle gpu.Buffer) {
	if buffer, ok := d.buffers.take(uint64(handle)); ok {
		d.driver.DestroyBuffer(buffer, nil)
	}
}

func (d *Device) BufferMemoryRequirements(handle gpu.Buffer) gpu.MemoryRequirements {
	buffer, err := d.buffers.get(uint64(handle))
	if err != nil {
		return gpu.MemoryRequirements{}
	}
	reqs := d.driver.GetBufferMemoryRequirements(buffer)
	return gpu.MemoryRequirements{Size: reqs.Size, Alignment: reqs.Alignment, MemoryTypeBits: reqs.MemoryTypeBits}
}

func (d *Device) BindBufferMemory(bufferHandle gpu.Buffer, memoryHandle gpu.DeviceMemory) error {
	buffer, err := d.buffers.get(uint64(bufferHandle))
	if err != nil {
		return err
	}
	memory, err := d.memory.get(uint64(memoryHandle))
	if err != nil {
		return err
	}
	_, err = d.driver.BindBufferMemory(buffer, memory, 0)
	return err
}

func (d *Device) DestroyRenderPass(handle gpu.RenderPass) {
	if pass, ok := d.renderPasses.take(uint64(handle)); ok {
		d.driver.DestroyRenderPass(pass, nil)
	}
}

func (d *Device) CreateFramebuffer(info gpu.FramebufferCreateInfo) (gpu.Framebuffer, error) {
	pass, err := d.renderPasses.get(uint64(info.RenderPass))
	if err != nil {
		return 0, err
	}

	attachments := make([]core1_0.ImageView, 0, len(info.Attachments))
	for _, handle := range info.Attachments {
		view, err := d.views.get(uint64(handle))
		if err != nil {
			return 0, err
		}
		attachments = append(attachments, view)
	}

	framebuffer, _, err := d.driver.CreateFramebuffer(nil, core1_0.FramebufferCreateInfo{
		RenderPass:  pass,
		Layers:      1,
		Attachments: attachments,
		Width:       info.Extent.Width,
		Height:      info.Extent.Height,
	})
	if err != nil {
		return 0, err
	}
	return gpu.Framebuffer(d.framebuffers.add(framebuffer)), nil
}

func (d *Device) DestroyFramebuffer(handle gpu.Framebuffer) {
	if framebuffer, ok := d.framebuffers.take(uint64(handle)); ok {
		d.driver.DestroyFramebuffer(framebuffer, nil)
	}
}

// lookupImage returns the image and is shared by the recorder.
func (d *Device) lookupImage(handle gpu.Image) (core1_0.Image, error) {
	image, err := d.images.get(uint64(handle))
	if err != nil {
		return image, errors.Wrap(err, "image")
	}
	return image, nil
}

var _ gpu.Device = (*Device)(nil)
