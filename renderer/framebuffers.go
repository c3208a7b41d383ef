package renderer

import (
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/vkngwrapper/pbr/gpu"
)

// Framebuffers holds one framebuffer per swapchain view, each pairing the
// view with the shared depth view.
type Framebuffers struct {
	Handles []gpu.Framebuffer

	device *Device
}

func NewFramebuffers(device *Device, pass gpu.RenderPass, views []gpu.ImageView, depth gpu.ImageView, extent core1_0.Extent2D) (*Framebuffers, error) {
	f := &Framebuffers{device: device}
	for idx, view := range views {
		handle, err := device.Driver.CreateFramebuffer(gpu.FramebufferCreateInfo{
			RenderPass:  pass,
			Attachments: []gpu.ImageView{view, depth},
			Extent:      extent,
		})
		if err != nil {
			f.Destroy()
			return nil, wrapDevice(err, "create framebuffer %d", idx)
		}
		f.Handles = append(f.Handles, handle)
	}
	return f, nil
}

func (f *Framebuffers) Destroy() {
	if f == nil {
		return
	}
	for _, handle := range f.Handles {
		f.device.Driver.DestroyFramebuffer(handle)
	}
	f.Handles = nil
}
