package renderer

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/vkngwrapper/pbr/gpu"
)

// DrawFunc records effect-specific commands inside the render pass.
type DrawFunc func(rec gpu.Recorder, buffer gpu.CommandBuffer, extent core1_0.Extent2D) error

// RecordTarget is everything a per-image command buffer refers to.
type RecordTarget struct {
	RenderPass   gpu.RenderPass
	Framebuffers []gpu.Framebuffer
	Extent       core1_0.Extent2D
	ClearColor   mgl32.Vec4
	Barrier      *gpu.ImageBarrier
	Draw         DrawFunc
}

// CommandBuffers is the per-image set of primary command buffers.
type CommandBuffers struct {
	Buffers []gpu.CommandBuffer

	device *Device
}

func AllocateCommandBuffers(device *Device, count int) (*CommandBuffers, error) {
	buffers, err := device.Driver.AllocateCommandBuffers(device.CommandPool, core1_0.CommandBufferLevelPrimary, count)
	if err != nil {
		return nil, wrapDevice(err, "allocate %d command buffers", count)
	}
	return &CommandBuffers{Buffers: buffers, device: device}, nil
}

// RecordAll re-records every buffer. None of them may be in flight.
func (c *CommandBuffers) RecordAll(target RecordTarget) error {
	for slot := range c.Buffers {
		if err := c.Record(slot, target); err != nil {
			return err
		}
	}
	return nil
}

// Record writes the render pass envelope for one slot: the optional compute
// barrier, the clear, viewport and scissor covering the extent, then the
// draw hook.
func (c *CommandBuffers) Record(slot int, target RecordTarget) error {
	if slot < 0 || slot >= len(c.Buffers) || slot >= len(target.Framebuffers) {
		return deviceError(ErrNotInitialized, "record slot %d of %d buffers, %d framebuffers", slot, len(c.Buffers), len(target.Framebuffers))
	}

	driver := c.device.Driver
	buffer := c.Buffers[slot]

	err := driver.BeginCommandBuffer(buffer, 0)
	if err != nil {
		return wrapDevice(err, "begin command buffer %d", slot)
	}

	if target.Barrier != nil {
		err = driver.CmdPipelineBarrier(buffer, *target.Barrier)
		if err != nil {
			return wrapDevice(err, "record compute barrier")
		}
	}

	err = driver.CmdBeginRenderPass(buffer, gpu.RenderPassBeginInfo{
		RenderPass:  target.RenderPass,
		Framebuffer: target.Framebuffers[slot],
		Extent:      target.Extent,
		ClearColor:  target.ClearColor,
		ClearDepth:  1,
	})
	if err != nil {
		return wrapDevice(err, "begin render pass")
	}

	driver.CmdSetViewport(buffer, core1_0.Viewport{
		Width:    float32(target.Extent.Width),
		Height:   float32(target.Extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	})
	driver.CmdSetScissor(buffer, core1_0.Rect2D{Extent: target.Extent})

	if target.Draw != nil {
		err = target.Draw(driver, buffer, target.Extent)
		if err != nil {
			return wrapDevice(err, "draw into slot %d", slot)
		}
	}

	driver.CmdEndRenderPass(buffer)
	return wrapDevice(driver.EndCommandBuffer(buffer), "end command buffer %d", slot)
}

func (c *CommandBuffers) Free() {
	if c == nil || len(c.Buffers) == 0 {
		return
	}
	c.device.Driver.FreeCommandBuffers(c.Buffers...)
	c.Buffers = nil
}

// PulseColor scales the color channels of base by a factor that cycles
// between 0.25 and 1 every two seconds. Alpha is kept.
func PulseColor(base mgl32.Vec4, seconds float64) mgl32.Vec4 {
	factor := float32(0.625 + 0.375*math.Sin(seconds*math.Pi))
	scaled := base.Vec3().Mul(factor)
	return scaled.Vec4(base.W())
}
