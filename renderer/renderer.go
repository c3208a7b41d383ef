// Package renderer implements the swapchain, frame synchronization and
// command submission core of the demo: acquire, record, submit and present
// on a graphics queue, an optional compute queue, and swapchain rebuilds
// when the surface changes size.
package renderer

import (
	"context"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/loov/hrtime"
	"github.com/sirupsen/logrus"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/vkngwrapper/pbr/gpu"
)

type Options struct {
	Width   int
	Height  int
	Compute bool

	ClearColor   mgl32.Vec4
	ComputeColor mgl32.Vec4
	Draw         DrawFunc
}

// EventSource feeds window events to the loop.
type EventSource interface {
	// Poll handles pending events and returns false once the window should
	// close. When block is set it may wait a short while for an event.
	Poll(block bool) bool
}

// Renderer drives frames. It borrows the device and the swapchain; it owns
// the frame sync objects, the render pass, the per-image command buffers,
// the depth target, the framebuffers and the compute stage.
type Renderer struct {
	Device       *Device
	Swapchain    *Swapchain
	Sync         *FrameSync
	RenderPass   gpu.RenderPass
	Depth        *DepthTarget
	Framebuffers *Framebuffers
	Commands     *CommandBuffers
	Compute      *ComputeStage
	Resizer      *ResizeCoordinator
	Stats        *FrameStats

	depthFormat core1_0.Format
	opts        Options
	ready       bool
	started     time.Duration
	frames      uint64
	log         logrus.FieldLogger
}

// NewRenderer creates the swapchain at the requested size and everything
// that depends on it. swapchain must already be bound to a surface.
func NewRenderer(device *Device, swapchain *Swapchain, opts Options, logger logrus.FieldLogger) (*Renderer, error) {
	r := &Renderer{
		Device:    device,
		Swapchain: swapchain,
		Stats:     NewFrameStats(),
		opts:      opts,
		started:   hrtime.Now(),
		log:       logger,
	}
	r.Resizer = &ResizeCoordinator{renderer: r, width: opts.Width, height: opts.Height}

	err := r.prepare()
	if err != nil {
		r.Destroy()
		return nil, err
	}

	r.ready = true
	return r, nil
}

func (r *Renderer) prepare() error {
	driver := r.Device.Driver

	err := r.Swapchain.Create(r.opts.Width, r.opts.Height)
	if err != nil {
		return err
	}

	r.Sync, err = NewFrameSync(driver, r.Swapchain.ImageCount())
	if err != nil {
		return err
	}

	r.depthFormat, err = r.Device.SelectDepthFormat()
	if err != nil {
		return err
	}

	r.RenderPass, err = driver.CreateRenderPass(gpu.RenderPassCreateInfo{
		ColorFormat: r.Swapchain.ColorFormat,
		DepthFormat: r.depthFormat,
	})
	if err != nil {
		return wrapDevice(err, "create render pass")
	}

	err = r.buildTargets()
	if err != nil {
		return err
	}

	if r.opts.Compute && r.Device.Families.HasCompute {
		r.Compute, err = NewComputeStage(r.Device, r.opts.ComputeColor, r.log)
		if err != nil {
			return err
		}
	} else {
		r.log.Info("compute stage disabled")
	}

	r.Commands, err = AllocateCommandBuffers(r.Device, r.Swapchain.ImageCount())
	if err != nil {
		return err
	}
	return r.Commands.RecordAll(r.target())
}

func (r *Renderer) buildTargets() error {
	var err error
	r.Depth, err = NewDepthTarget(r.Device, r.depthFormat, r.Swapchain.Extent)
	if err != nil {
		return err
	}

	r.Framebuffers, err = NewFramebuffers(r.Device, r.RenderPass, r.Swapchain.Views, r.Depth.View, r.Swapchain.Extent)
	return err
}

func (r *Renderer) destroyTargets() {
	r.Framebuffers.Destroy()
	r.Framebuffers = nil
	r.Depth.Destroy()
	r.Depth = nil
}

func (r *Renderer) target() RecordTarget {
	target := RecordTarget{
		RenderPass: r.RenderPass,
		Extent:     r.Swapchain.Extent,
		ClearColor: PulseColor(r.opts.ClearColor, hrtime.Since(r.started).Seconds()),
		Draw:       r.opts.Draw,
	}
	if r.Framebuffers != nil {
		target.Framebuffers = r.Framebuffers.Handles
	}
	if r.Compute != nil {
		barrier := r.Compute.Barrier()
		target.Barrier = &barrier
	}
	return target
}

// Ready reports whether frames are being rendered. It is false while a
// rebuild is in progress and while the window has no area.
func (r *Renderer) Ready() bool {
	return r.ready
}

// Frames returns how many frames have been presented.
func (r *Renderer) Frames() uint64 {
	return r.frames
}

// Frame runs one acquire, wait, record, submit, present cycle followed by
// the compute submission. Pending resizes are applied first.
func (r *Renderer) Frame() error {
	if r.Resizer.Pending() {
		err := r.Resizer.Rebuild()
		if err != nil {
			return err
		}
	}
	if !r.ready {
		return nil
	}

	start := r.Stats.Begin()
	driver := r.Device.Driver

	slot, status, err := r.Swapchain.AcquireNextImage(common.NoTimeout, r.Sync.ImageAvailable)
	if err != nil {
		return err
	}
	switch status {
	case StatusOutOfDate:
		return r.Resizer.Recover(status)
	case StatusSuboptimal:
		// The acquire signaled ImageAvailable. Consume it so the next
		// acquire does not signal a semaphore that is already signaled.
		err = driver.QueueSubmit(r.Device.GraphicsQueue, 0, gpu.SubmitInfo{
			WaitSemaphores:   []gpu.Semaphore{r.Sync.ImageAvailable},
			WaitDstStageMask: []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput},
		})
		if err != nil {
			return wrapDevice(err, "release image-available semaphore")
		}
		return r.Resizer.Recover(status)
	}
	r.Sync.setPhase(slot, PhaseAcquiring)

	err = r.Sync.WaitSlot(slot)
	if err != nil {
		return err
	}

	r.Sync.setPhase(slot, PhaseRecording)
	err = r.Commands.Record(slot, r.target())
	if err != nil {
		return err
	}

	err = driver.QueueSubmit(r.Device.GraphicsQueue, r.Sync.Fence(slot), gpu.SubmitInfo{
		WaitSemaphores:   []gpu.Semaphore{r.Sync.ImageAvailable},
		WaitDstStageMask: []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput},
		CommandBuffers:   []gpu.CommandBuffer{r.Commands.Buffers[slot]},
		SignalSemaphores: []gpu.Semaphore{r.Sync.RenderComplete},
	})
	if err != nil {
		return wrapDevice(err, "submit frame for slot %d", slot)
	}
	r.Sync.setPhase(slot, PhaseSubmitted)

	r.Sync.setPhase(slot, PhasePresenting)
	status, err = r.Swapchain.Present(r.Device.PresentQueue, slot, r.Sync.RenderComplete)
	if err != nil {
		return err
	}
	r.Sync.setPhase(slot, PhaseIdle)
	r.frames++

	if r.Compute != nil {
		err = r.Compute.Submit()
		if err != nil {
			return err
		}
	}
	r.Stats.End(start)

	if status.NeedsRecreate() {
		return r.Resizer.Recover(status)
	}
	return nil
}

// Run renders until the event source reports a close or ctx is cancelled,
// then waits for the device to go idle.
func (r *Renderer) Run(ctx context.Context, events EventSource) error {
	for ctx.Err() == nil {
		if !events.Poll(!r.ready && !r.Resizer.Pending()) {
			break
		}

		err := r.Frame()
		if err != nil {
			return err
		}
	}

	r.log.WithField("frames", r.frames).Info("render loop finished")
	return wrapDevice(r.Device.Driver.WaitIdle(), "wait idle after render loop")
}

// Destroy releases everything the renderer owns. The swapchain and the
// device are left to their owners.
func (r *Renderer) Destroy() {
	if r == nil || r.Device == nil || r.Device.Driver == nil {
		return
	}
	driver := r.Device.Driver
	r.ready = false

	if err := driver.WaitIdle(); err != nil {
		r.log.WithError(err).Warn("wait idle before renderer teardown")
	}

	r.Compute.Destroy()
	r.Compute = nil
	r.Commands.Free()
	r.Commands = nil
	r.destroyTargets()
	if r.RenderPass.Initialized() {
		driver.DestroyRenderPass(r.RenderPass)
		r.RenderPass = 0
	}
	r.Sync.Destroy()
	r.Sync = nil
}
