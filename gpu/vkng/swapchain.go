package vkng

import (
	"time"

	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/pbr/gpu"
)

func (d *Device) CreateSwapchain(info gpu.SwapchainCreateInfo) (gpu.Swapchain, error) {
	surface, err := d.adapter.instance.surface(info.Surface)
	if err != nil {
		return 0, err
	}

	var oldSwapchain khr_swapchain.Swapchain
	if info.OldSwapchain.Initialized() {
		oldSwapchain, err = d.swapchains.get(uint64(info.OldSwapchain))
		if err != nil {
			return 0, err
		}
	}

	swapchain, _, err := d.swapchainExtension.CreateSwapchain(nil, khr_swapchain.SwapchainCreateInfo{
		Surface: surface,

		MinImageCount:    info.MinImageCount,
		ImageFormat:      info.Format,
		ImageColorSpace:  info.ColorSpace,
		ImageExtent:      info.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       info.Usage,

		ImageSharingMode: core1_0.SharingModeExclusive,

		PreTransform:   info.PreTransform,
		CompositeAlpha: info.CompositeAlpha,
		PresentMode:    info.PresentMode,
		Clipped:        true,
		OldSwapchain:   oldSwapchain,
	})
	if err != nil {
		return 0, err
	}
	return gpu.Swapchain(d.swapchains.add(swapchain)), nil
}

// DestroySwapchain destroys the swapchain and forgets the handles of its
// images, which the swapchain owns.
func (d *Device) DestroySwapchain(handle gpu.Swapchain) {
	swapchain, ok := d.swapchains.take(uint64(handle))
	if !ok {
		return
	}
	for _, image := range d.swapchainImages[handle] {
		d.images.take(uint64(image))
	}
	delete(d.swapchainImages, handle)
	d.swapchainExtension.DestroySwapchain(swapchain, nil)
}

func (d *Device) SwapchainImages(handle gpu.Swapchain) ([]gpu.Image, error) {
	if ids, ok := d.swapchainImages[handle]; ok {
		return ids, nil
	}

	swapchain, err := d.swapchains.get(uint64(handle))
	if err != nil {
		return nil, err
	}
	images, _, err := d.swapchainExtension.GetSwapchainImages(swapchain)
	if err != nil {
		return nil, err
	}

	ids := make([]gpu.Image, len(images))
	for i, image := range images {
		ids[i] = gpu.Image(d.images.add(image))
	}
	d.swapchainImages[handle] = ids
	return ids, nil
}

func (d *Device) AcquireNextImage(handle gpu.Swapchain, timeout time.Duration, signal gpu.Semaphore) (int, common.VkResult, error) {
	swapchain, err := d.swapchains.get(uint64(handle))
	if err != nil {
		return -1, core1_0.VKErrorUnknown, err
	}

	var semaphore *core1_0.Semaphore
	if signal.Initialized() {
		found, err := d.semaphores.get(uint64(signal))
		if err != nil {
			return -1, core1_0.VKErrorUnknown, err
		}
		semaphore = &found
	}

	return d.swapchainExtension.AcquireNextImage(swapchain, timeout, semaphore, nil)
}

func (d *Device) QueuePresent(queueHandle gpu.Queue, handle gpu.Swapchain, imageIndex int, wait gpu.Semaphore) (common.VkResult, error) {
	queue, err := d.queues.get(uint64(queueHandle))
	if err != nil {
		return core1_0.VKErrorUnknown, err
	}
	swapchain, err := d.swapchains.get(uint64(handle))
	if err != nil {
		return core1_0.VKErrorUnknown, err
	}
	semaphores, err := d.lookupSemaphores([]gpu.Semaphore{wait})
	if err != nil {
		return core1_0.VKErrorUnknown, err
	}

	return d.swapchainExtension.QueuePresent(queue, khr_swapchain.PresentInfo{
		WaitSemaphores: semaphores,
		Swapchains:     []khr_swapchain.Swapchain{swapchain},
		ImageIndices:   []int{imageIndex},
	})
}
