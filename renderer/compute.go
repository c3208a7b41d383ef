package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/sirupsen/logrus"
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/vkngwrapper/pbr/gpu"
)

// ComputeTargetSize is the edge length of the image the compute stage writes.
const ComputeTargetSize = 256

// ComputeStage runs an image effect on the compute queue. It has its own
// pool, command buffer and fence and never waits on the graphics frame
// fences. The graphics side orders itself against it with Barrier.
type ComputeStage struct {
	Queue  gpu.Queue
	Pool   gpu.CommandPool
	Buffer gpu.CommandBuffer
	Fence  gpu.Fence
	Target gpu.Image
	Memory gpu.DeviceMemory

	device *Device
	log    logrus.FieldLogger
}

func NewComputeStage(device *Device, color mgl32.Vec4, logger logrus.FieldLogger) (*ComputeStage, error) {
	if !device.Families.HasCompute {
		return nil, deviceError(ErrNoSuitableQueue, "device has no compute family")
	}

	driver := device.Driver
	c := &ComputeStage{
		Queue:  device.ComputeQueue,
		device: device,
		log:    logger.WithField("family", device.Families.Compute),
	}

	var err error
	c.Pool, err = driver.CreateCommandPool(device.Families.Compute, core1_0.CommandPoolCreateResetBuffer)
	if err != nil {
		return nil, wrapDevice(err, "create compute command pool")
	}

	buffers, err := driver.AllocateCommandBuffers(c.Pool, core1_0.CommandBufferLevelPrimary, 1)
	if err != nil {
		c.Destroy()
		return nil, wrapDevice(err, "allocate compute command buffer")
	}
	c.Buffer = buffers[0]

	// Signaled so the first Submit does not block.
	c.Fence, err = driver.CreateFence(true)
	if err != nil {
		c.Destroy()
		return nil, wrapDevice(err, "create compute fence")
	}

	err = c.createTarget()
	if err != nil {
		c.Destroy()
		return nil, err
	}

	err = c.record(color)
	if err != nil {
		c.Destroy()
		return nil, err
	}

	c.log.Debug("compute stage ready")
	return c, nil
}

// createTarget makes the storage image and moves it to the GENERAL layout
// with a one-shot submission on the graphics queue.
func (c *ComputeStage) createTarget() error {
	driver := c.device.Driver

	var err error
	c.Target, err = driver.CreateImage(gpu.ImageCreateInfo{
		Format: core1_0.FormatR8G8B8A8UnsignedNormalized,
		Extent: core1_0.Extent2D{Width: ComputeTargetSize, Height: ComputeTargetSize},
		Usage:  core1_0.ImageUsageStorage | core1_0.ImageUsageSampled | core1_0.ImageUsageTransferDst,
	})
	if err != nil {
		return wrapDevice(err, "create compute target")
	}

	reqs := driver.ImageMemoryRequirements(c.Target)
	memoryType, err := c.device.FindMemoryType(reqs.MemoryTypeBits, core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		return err
	}
	c.Memory, err = driver.AllocateMemory(reqs.Size, memoryType)
	if err != nil {
		return wrapDevice(err, "allocate compute target memory")
	}
	err = driver.BindImageMemory(c.Target, c.Memory)
	if err != nil {
		return wrapDevice(err, "bind compute target memory")
	}

	cmd, err := c.device.CreateCommandBuffer(core1_0.CommandBufferLevelPrimary, true)
	if err != nil {
		return err
	}
	err = driver.CmdPipelineBarrier(cmd, gpu.ImageBarrier{
		Image:     c.Target,
		Aspect:    core1_0.ImageAspectColor,
		OldLayout: core1_0.ImageLayoutUndefined,
		NewLayout: core1_0.ImageLayoutGeneral,
		DstAccess: core1_0.AccessShaderWrite | core1_0.AccessTransferWrite,
		SrcStage:  core1_0.PipelineStageTopOfPipe,
		DstStage:  core1_0.PipelineStageTransfer | core1_0.PipelineStageComputeShader,
	})
	if err != nil {
		driver.FreeCommandBuffers(cmd)
		return wrapDevice(err, "record compute target transition")
	}
	return c.device.SubmitAndWait(cmd, c.device.GraphicsQueue, true)
}

func (c *ComputeStage) record(color mgl32.Vec4) error {
	driver := c.device.Driver

	err := driver.BeginCommandBuffer(c.Buffer, 0)
	if err != nil {
		return wrapDevice(err, "begin compute command buffer")
	}
	driver.CmdClearColorImage(c.Buffer, c.Target, core1_0.ImageLayoutGeneral, color)
	return wrapDevice(driver.EndCommandBuffer(c.Buffer), "end compute command buffer")
}

// Barrier is recorded into every graphics command buffer so fragment
// shaders read the target only after the compute writes land.
func (c *ComputeStage) Barrier() gpu.ImageBarrier {
	return gpu.ImageBarrier{
		Image:     c.Target,
		Aspect:    core1_0.ImageAspectColor,
		OldLayout: core1_0.ImageLayoutGeneral,
		NewLayout: core1_0.ImageLayoutGeneral,
		SrcAccess: core1_0.AccessShaderWrite | core1_0.AccessTransferWrite,
		DstAccess: core1_0.AccessShaderRead,
		SrcStage:  core1_0.PipelineStageComputeShader | core1_0.PipelineStageTransfer,
		DstStage:  core1_0.PipelineStageFragmentShader,
	}
}

// Submit waits for the previous compute submission, then queues the next.
func (c *ComputeStage) Submit() error {
	driver := c.device.Driver

	err := waitFence(driver, c.Fence, SubmitTimeout)
	if err != nil {
		return err
	}
	err = driver.ResetFences(c.Fence)
	if err != nil {
		return wrapDevice(err, "reset compute fence")
	}

	return wrapDevice(driver.QueueSubmit(c.Queue, c.Fence, gpu.SubmitInfo{
		CommandBuffers: []gpu.CommandBuffer{c.Buffer},
	}), "submit compute work")
}

// Destroy waits for outstanding compute work and releases everything the
// stage owns. It is safe on a partially built stage.
func (c *ComputeStage) Destroy() {
	if c == nil {
		return
	}
	driver := c.device.Driver

	if c.Fence.Initialized() {
		if err := waitFence(driver, c.Fence, SubmitTimeout); err != nil {
			c.log.WithError(err).Warn("compute work still pending at teardown")
		}
		driver.DestroyFence(c.Fence)
		c.Fence = 0
	}
	if c.Buffer.Initialized() {
		driver.FreeCommandBuffers(c.Buffer)
		c.Buffer = 0
	}
	if c.Pool.Initialized() {
		driver.DestroyCommandPool(c.Pool)
		c.Pool = 0
	}
	if c.Target.Initialized() {
		driver.DestroyImage(c.Target)
		c.Target = 0
	}
	if c.Memory.Initialized() {
		driver.FreeMemory(c.Memory)
		c.Memory = 0
	}
}
