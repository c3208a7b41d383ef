package renderer

import (
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/vkngwrapper/pbr/gpu"
)

// Depth formats in order of preference.
var depthFormats = []core1_0.Format{
	core1_0.FormatD32SignedFloatS8UnsignedInt,
	core1_0.FormatD32SignedFloat,
	core1_0.FormatD24UnsignedNormalizedS8UnsignedInt,
	core1_0.FormatD16UnsignedNormalizedS8UnsignedInt,
	core1_0.FormatD16UnsignedNormalized,
}

// SelectDepthFormat returns the first depth format usable as an optimally
// tiled depth-stencil attachment.
func (d *Device) SelectDepthFormat() (core1_0.Format, error) {
	for _, format := range depthFormats {
		props := d.Adapter.FormatProperties(format)
		if props.OptimalTilingFeatures&core1_0.FormatFeatureDepthStencilAttachment != 0 {
			return format, nil
		}
	}

	return core1_0.FormatUndefined, deviceError(ErrNoDepthFormat, "tried %d formats", len(depthFormats))
}

func hasStencil(format core1_0.Format) bool {
	switch format {
	case core1_0.FormatD32SignedFloatS8UnsignedInt,
		core1_0.FormatD24UnsignedNormalizedS8UnsignedInt,
		core1_0.FormatD16UnsignedNormalizedS8UnsignedInt:
		return true
	}
	return false
}

// DepthTarget is the device-local depth attachment sized to the swapchain.
type DepthTarget struct {
	Format core1_0.Format
	Extent core1_0.Extent2D
	Image  gpu.Image
	Memory gpu.DeviceMemory
	View   gpu.ImageView

	device *Device
}

func NewDepthTarget(device *Device, format core1_0.Format, extent core1_0.Extent2D) (*DepthTarget, error) {
	t := &DepthTarget{Format: format, Extent: extent, device: device}
	driver := device.Driver

	var err error
	t.Image, err = driver.CreateImage(gpu.ImageCreateInfo{
		Format: format,
		Extent: extent,
		Usage:  core1_0.ImageUsageDepthStencilAttachment | core1_0.ImageUsageTransferSrc,
	})
	if err != nil {
		return nil, wrapDevice(err, "create depth image %dx%d", extent.Width, extent.Height)
	}

	reqs := driver.ImageMemoryRequirements(t.Image)
	memoryType, err := device.FindMemoryType(reqs.MemoryTypeBits, core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		t.Destroy()
		return nil, err
	}

	t.Memory, err = driver.AllocateMemory(reqs.Size, memoryType)
	if err != nil {
		t.Destroy()
		return nil, wrapDevice(err, "allocate depth memory")
	}

	err = driver.BindImageMemory(t.Image, t.Memory)
	if err != nil {
		t.Destroy()
		return nil, wrapDevice(err, "bind depth memory")
	}

	aspect := core1_0.ImageAspectDepth
	if hasStencil(format) {
		aspect |= core1_0.ImageAspectStencil
	}
	t.View, err = driver.CreateImageView(gpu.ImageViewCreateInfo{
		Image:  t.Image,
		Format: format,
		Aspect: aspect,
	})
	if err != nil {
		t.Destroy()
		return nil, wrapDevice(err, "create depth view")
	}

	return t, nil
}

// Destroy releases the view, the image and its memory. It is safe to call on
// a partially built target and more than once.
func (t *DepthTarget) Destroy() {
	if t == nil {
		return
	}
	driver := t.device.Driver
	if t.View.Initialized() {
		driver.DestroyImageView(t.View)
		t.View = 0
	}
	if t.Image.Initialized() {
		driver.DestroyImage(t.Image)
		t.Image = 0
	}
	if t.Memory.Initialized() {
		driver.FreeMemory(t.Memory)
		t.Memory = 0
	}
}
