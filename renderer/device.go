package renderer

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_portability_subset"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/pbr/gpu"
)

const (
	// SubmitTimeout bounds every host-side fence wait. Hitting it means the
	// device is lost or deadlocked.
	SubmitTimeout = 100 * time.Second
)

var deviceExtensions = []string{khr_swapchain.ExtensionName}

// QueueFamilyIndices maps queue roles to families. Graphics and Present are
// always the same family.
type QueueFamilyIndices struct {
	Graphics   int
	Present    int
	Compute    int
	HasCompute bool
}

// DedicatedCompute reports whether compute work runs on a family of its own.
func (q QueueFamilyIndices) DedicatedCompute() bool {
	return q.HasCompute && q.Compute != q.Graphics
}

// SelectQueueFamilies assigns the first graphics family to both graphics and
// present, and prefers a compute family without graphics support.
func SelectQueueFamilies(families []gpu.QueueFamily) (QueueFamilyIndices, error) {
	indices := QueueFamilyIndices{Graphics: -1, Present: -1, Compute: -1}

	for idx, family := range families {
		if family.Flags&core1_0.QueueGraphics != 0 {
			indices.Graphics = idx
			indices.Present = idx
			break
		}
	}
	if indices.Graphics < 0 {
		return indices, deviceError(ErrNoSuitableQueue, "none of %d queue families supports graphics", len(families))
	}

	for idx, family := range families {
		if family.Flags&core1_0.QueueCompute != 0 && family.Flags&core1_0.QueueGraphics == 0 {
			indices.Compute = idx
			indices.HasCompute = true
			return indices, nil
		}
	}
	for idx, family := range families {
		if family.Flags&core1_0.QueueCompute != 0 {
			indices.Compute = idx
			indices.HasCompute = true
			break
		}
	}

	return indices, nil
}

// PickAdapter returns adapters[preferred] when preferred is a valid index.
// Otherwise it takes the first discrete GPU that can drive a swapchain, then
// any adapter that can.
func PickAdapter(adapters []gpu.Adapter, preferred int) (gpu.Adapter, error) {
	if preferred >= 0 {
		if preferred >= len(adapters) {
			return nil, deviceError(ErrNoSuitableDevice, "gpu index %d requested but only %d present", preferred, len(adapters))
		}
		if !adapterSuitable(adapters[preferred]) {
			return nil, deviceError(ErrNoSuitableDevice, "gpu %d (%s) cannot present", preferred, adapters[preferred].Info().Name)
		}
		return adapters[preferred], nil
	}

	var fallback gpu.Adapter
	for _, adapter := range adapters {
		if !adapterSuitable(adapter) {
			continue
		}
		if adapter.Info().Type == core1_0.PhysicalDeviceTypeDiscreteGPU {
			return adapter, nil
		}
		if fallback == nil {
			fallback = adapter
		}
	}

	if fallback == nil {
		return nil, deviceError(ErrNoSuitableDevice, "checked %d adapters", len(adapters))
	}
	return fallback, nil
}

func adapterSuitable(adapter gpu.Adapter) bool {
	info := adapter.Info()
	for _, ext := range deviceExtensions {
		if !info.HasExtension(ext) {
			return false
		}
	}
	_, err := SelectQueueFamilies(info.QueueFamilies)
	return err == nil
}

// Device owns the logical device, its queues and the shared command pool.
type Device struct {
	Adapter  gpu.Adapter
	Info     *gpu.PhysicalDeviceInfo
	Driver   gpu.Device
	Families QueueFamilyIndices

	GraphicsQueue gpu.Queue
	PresentQueue  gpu.Queue
	ComputeQueue  gpu.Queue
	CommandPool   gpu.CommandPool

	log logrus.FieldLogger
}

func NewDevice(adapter gpu.Adapter, logger logrus.FieldLogger) (*Device, error) {
	info := adapter.Info()
	families, err := SelectQueueFamilies(info.QueueFamilies)
	if err != nil {
		return nil, err
	}

	queueFamilies := []int{families.Graphics}
	if families.DedicatedCompute() {
		queueFamilies = append(queueFamilies, families.Compute)
	}

	extensions := append([]string(nil), deviceExtensions...)
	if info.HasExtension(khr_portability_subset.ExtensionName) {
		extensions = append(extensions, khr_portability_subset.ExtensionName)
	}

	driver, err := adapter.CreateDevice(gpu.DeviceCreateInfo{
		QueueFamilies: queueFamilies,
		Extensions:    extensions,
	})
	if err != nil {
		return nil, wrapDevice(err, "create logical device on %s", info.Name)
	}

	d := &Device{
		Adapter:  adapter,
		Info:     info,
		Driver:   driver,
		Families: families,
		log: logger.WithFields(logrus.Fields{
			"gpu":      info.Name,
			"graphics": families.Graphics,
			"compute":  families.Compute,
		}),
	}

	d.GraphicsQueue = driver.Queue(families.Graphics, 0)
	d.PresentQueue = d.GraphicsQueue
	if families.HasCompute {
		d.ComputeQueue = driver.Queue(families.Compute, 0)
	}

	d.CommandPool, err = driver.CreateCommandPool(families.Graphics, core1_0.CommandPoolCreateResetBuffer)
	if err != nil {
		driver.Destroy()
		return nil, wrapDevice(err, "create command pool")
	}

	d.log.WithField("cache", info.CacheUUID).Info("logical device created")
	return d, nil
}

// FindMemoryType returns the first memory type whose bit is set in filter and
// whose flags include every flag in required.
func (d *Device) FindMemoryType(filter uint32, required core1_0.MemoryPropertyFlags) (int, error) {
	for idx, memoryType := range d.Info.MemoryTypes {
		if filter&(1<<uint(idx)) != 0 && memoryType.PropertyFlags&required == required {
			return idx, nil
		}
	}

	return -1, deviceError(ErrNoMatchingMemoryType, "filter %#b, properties %s", filter, required)
}

// CreateCommandBuffer allocates one buffer from the shared pool. The caller
// owns it afterwards.
func (d *Device) CreateCommandBuffer(level core1_0.CommandBufferLevel, begin bool) (gpu.CommandBuffer, error) {
	buffers, err := d.Driver.AllocateCommandBuffers(d.CommandPool, level, 1)
	if err != nil {
		return 0, wrapDevice(err, "allocate command buffer")
	}

	if begin {
		err = d.Driver.BeginCommandBuffer(buffers[0], core1_0.CommandBufferUsageOneTimeSubmit)
		if err != nil {
			d.Driver.FreeCommandBuffers(buffers[0])
			return 0, wrapDevice(err, "begin command buffer")
		}
	}

	return buffers[0], nil
}

// SubmitAndWait ends buffer, submits it to queue behind a throwaway fence and
// blocks until the fence signals. It is meant for one-shot uploads. With free
// set the buffer is returned to the pool whether or not the submit succeeds.
func (d *Device) SubmitAndWait(buffer gpu.CommandBuffer, queue gpu.Queue, free bool) error {
	if !buffer.Initialized() {
		return deviceError(ErrNotInitialized, "submit of null command buffer")
	}
	if free {
		defer d.Driver.FreeCommandBuffers(buffer)
	}

	err := d.Driver.EndCommandBuffer(buffer)
	if err != nil {
		return wrapDevice(err, "end command buffer")
	}

	fence, err := d.Driver.CreateFence(false)
	if err != nil {
		return wrapDevice(err, "create submit fence")
	}
	defer d.Driver.DestroyFence(fence)

	err = d.Driver.QueueSubmit(queue, fence, gpu.SubmitInfo{
		CommandBuffers: []gpu.CommandBuffer{buffer},
	})
	if err != nil {
		return wrapDevice(err, "submit one-shot command buffer")
	}

	return waitFence(d.Driver, fence, SubmitTimeout)
}

// Destroy waits for the device to go idle and releases the pool and the
// device. It is safe to call more than once.
func (d *Device) Destroy() {
	if d == nil || d.Driver == nil {
		return
	}

	if err := d.Driver.WaitIdle(); err != nil {
		d.log.WithError(err).Warn("wait idle before device teardown")
	}
	if d.CommandPool.Initialized() {
		d.Driver.DestroyCommandPool(d.CommandPool)
		d.CommandPool = 0
	}
	d.Driver.Destroy()
	d.Driver = nil
}

func waitFence(sync gpu.Sync, fence gpu.Fence, limit time.Duration) error {
	res, err := sync.WaitForFences(true, limit, fence)
	if err != nil {
		return wrapDevice(err, "wait for fence %d", fence)
	}
	if res == core1_0.VKTimeout {
		return deviceError(ErrFenceTimeout, "fence %d not signaled after %s", fence, limit)
	}
	return nil
}
