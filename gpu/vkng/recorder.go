package vkng

import (
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/pbr/gpu"
)

// CreateRenderPass builds a single-subpass pass with a cleared color
// attachment that ends ready for presentation and a cleared depth attachment.
func (d *Device) CreateRenderPass(info gpu.RenderPassCreateInfo) (gpu.RenderPass, error) {
	pass, _, err := d.driver.CreateRenderPass(nil, core1_0.RenderPassCreateInfo{
		Attachments: []core1_0.AttachmentDescription{
			{
				Format:         info.ColorFormat,
				Samples:        core1_0.Samples1,
				LoadOp:         core1_0.AttachmentLoadOpClear,
				StoreOp:        core1_0.AttachmentStoreOpStore,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  core1_0.ImageLayoutUndefined,
				FinalLayout:    khr_swapchain.ImageLayoutPresentSrc,
			},
			{
				Format:         info.DepthFormat,
				Samples:        core1_0.Samples1,
				LoadOp:         core1_0.AttachmentLoadOpClear,
				StoreOp:        core1_0.AttachmentStoreOpDontCare,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  core1_0.ImageLayoutUndefined,
				FinalLayout:    core1_0.ImageLayoutDepthStencilAttachmentOptimal,
			},
		},
		Subpasses: []core1_0.SubpassDescription{
			{
				PipelineBindPoint: core1_0.PipelineBindPointGraphics,
				ColorAttachments: []core1_0.AttachmentReference{
					{
						Attachment: 0,
						Layout:     core1_0.ImageLayoutColorAttachmentOptimal,
					},
				},
				DepthStencilAttachment: &core1_0.AttachmentReference{
					Attachment: 1,
					Layout:     core1_0.ImageLayoutDepthStencilAttachmentOptimal,
				},
			},
		},
		SubpassDependencies: []core1_0.SubpassDependency{
			{
				SrcSubpass: core1_0.SubpassExternal,
				DstSubpass: 0,

				SrcStageMask:  core1_0.PipelineStageColorAttachmentOutput | core1_0.PipelineStageEarlyFragmentTests,
				SrcAccessMask: 0,

				DstStageMask:  core1_0.PipelineStageColorAttachmentOutput | core1_0.PipelineStageEarlyFragmentTests,
				DstAccessMask: core1_0.AccessColorAttachmentWrite | core1_0.AccessDepthStencilAttachmentWrite,
			},
			{
				SrcSubpass: 0,
				DstSubpass: core1_0.SubpassExternal,

				SrcStageMask:  core1_0.PipelineStageColorAttachmentOutput,
				SrcAccessMask: core1_0.AccessColorAttachmentWrite,

				DstStageMask:  core1_0.PipelineStageBottomOfPipe,
				DstAccessMask: core1_0.AccessMemoryRead,
			},
		},
	})
	if err != nil {
		return 0, err
	}
	return gpu.RenderPass(d.renderPasses.add(pass)), nil
}

func (d *Device) CmdBeginRenderPass(handle gpu.CommandBuffer, info gpu.RenderPassBeginInfo) error {
	buffer, err := d.commandBuffers.get(uint64(handle))
	if err != nil {
		return err
	}
	pass, err := d.renderPasses.get(uint64(info.RenderPass))
	if err != nil {
		return err
	}
	framebuffer, err := d.framebuffers.get(uint64(info.Framebuffer))
	if err != nil {
		return err
	}

	return d.driver.CmdBeginRenderPass(buffer, core1_0.SubpassContentsInline,
		core1_0.RenderPassBeginInfo{
			RenderPass:  pass,
			Framebuffer: framebuffer,
			RenderArea: core1_0.Rect2D{
				Offset: core1_0.Offset2D{X: 0, Y: 0},
				Extent: info.Extent,
			},
			ClearValues: []core1_0.ClearValue{
				core1_0.ClearValueFloat(info.ClearColor),
				core1_0.ClearValueDepthStencil{Depth: info.ClearDepth, Stencil: 0},
			},
		})
}

func (d *Device) CmdEndRenderPass(handle gpu.CommandBuffer) {
	if buffer, err := d.commandBuffers.get(uint64(handle)); err == nil {
		d.driver.CmdEndRenderPass(buffer)
	}
}

func (d *Device) CmdSetViewport(handle gpu.CommandBuffer, viewport core1_0.Viewport) {
	if buffer, err := d.commandBuffers.get(uint64(handle)); err == nil {
		d.driver.CmdSetViewport(buffer, viewport)
	}
}

func (d *Device) CmdSetScissor(handle gpu.CommandBuffer, scissor core1_0.Rect2D) {
	if buffer, err := d.commandBuffers.get(uint64(handle)); err == nil {
		d.driver.CmdSetScissor(buffer, scissor)
	}
}

func (d *Device) CmdPipelineBarrier(handle gpu.CommandBuffer, barrier gpu.ImageBarrier) error {
	buffer, err := d.commandBuffers.get(uint64(handle))
	if err != nil {
		return err
	}
	image, err := d.lookupImage(barrier.Image)
	if err != nil {
		return err
	}

	return d.driver.CmdPipelineBarrier(buffer, barrier.SrcStage, barrier.DstStage, 0, nil, nil, []core1_0.ImageMemoryBarrier{
		{
			OldLayout:           barrier.OldLayout,
			NewLayout:           barrier.NewLayout,
			SrcQueueFamilyIndex: -1,
			DstQueueFamilyIndex: -1,
			Image:               image,
			SubresourceRange: core1_0.ImageSubresourceRange{
				AspectMask:     barrier.Aspect,
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
			SrcAccessMask: barrier.SrcAccess,
			DstAccessMask: barrier.DstAccess,
		},
	})
}

func (d *Device) CmdCopyBuffer(handle gpu.CommandBuffer, src, dst gpu.Buffer, size int) error {
	buffer, err := d.commandBuffers.get(uint64(handle))
	if err != nil {
		return err
	}
	srcBuffer, err := d.buffers.get(uint64(src))
	if err != nil {
		return err
	}
	dstBuffer, err := d.buffers.get(uint64(dst))
	if err != nil {
		return err
	}

	return d.driver.CmdCopyBuffer(buffer, srcBuffer, dstBuffer,
		core1_0.BufferCopy{
			SrcOffset: 0,
			DstOffset: 0,
			Size:      size,
		})
}

func (d *Device) CmdClearColorImage(handle gpu.CommandBuffer, imageHandle gpu.Image, layout core1_0.ImageLayout, color [4]float32) {
	buffer, err := d.commandBuffers.get(uint64(handle))
	if err != nil {
		return
	}
	image, err := d.lookupImage(imageHandle)
	if err != nil {
		return
	}

	d.driver.CmdClearColorImage(buffer, image, layout, core1_0.ClearValueFloat(color), core1_0.ImageSubresourceRange{
		AspectMask:     core1_0.ImageAspectColor,
		BaseMipLevel:   0,
		LevelCount:     1,
		BaseArrayLayer: 0,
		LayerCount:     1,
	})
}
