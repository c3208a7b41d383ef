package vkng

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"

	"github.com/vkngwrapper/pbr/gpu"
)

// Adapter is one physical device of an Instance.
type Adapter struct {
	instance *Instance
	device   core1_0.PhysicalDevice
	info     *gpu.PhysicalDeviceInfo
}

func newAdapter(instance *Instance, device core1_0.PhysicalDevice) (*Adapter, error) {
	driver := instance.instanceDriver

	props, err := driver.GetPhysicalDeviceProperties(device)
	if err != nil {
		return nil, errors.Wrap(err, "query physical device properties")
	}

	extensions, _, err := driver.EnumerateDeviceExtensionProperties(device)
	if err != nil {
		return nil, errors.Wrapf(err, "enumerate extensions of %s", props.DriverName)
	}

	info := &gpu.PhysicalDeviceInfo{
		Name:       props.DriverName,
		Type:       props.DriverType,
		APIVersion: props.APIVersion,
		CacheUUID:  props.PipelineCacheUUID,
		Extensions: map[string]struct{}{},
	}
	for name := range extensions {
		info.Extensions[name] = struct{}{}
	}
	for _, family := range driver.GetPhysicalDeviceQueueFamilyProperties(device) {
		info.QueueFamilies = append(info.QueueFamilies, gpu.QueueFamily{
			Flags: family.QueueFlags,
			Count: family.QueueCount,
		})
	}
	for _, memoryType := range driver.GetPhysicalDeviceMemoryProperties(device).MemoryTypes {
		info.MemoryTypes = append(info.MemoryTypes, gpu.MemoryType{
			PropertyFlags: memoryType.PropertyFlags,
			HeapIndex:     memoryType.HeapIndex,
		})
	}

	return &Adapter{instance: instance, device: device, info: info}, nil
}

func (a *Adapter) Info() *gpu.PhysicalDeviceInfo {
	return a.info
}

func (a *Adapter) FormatProperties(format core1_0.Format) gpu.FormatProperties {
	props := a.instance.instanceDriver.GetPhysicalDeviceFormatProperties(a.device, format)
	return gpu.FormatProperties{
		LinearTilingFeatures:  props.LinearTilingFeatures,
		OptimalTilingFeatures: props.OptimalTilingFeatures,
	}
}

func (a *Adapter) SurfaceSupport(handle gpu.Surface, queueFamily int) (bool, error) {
	surface, err := a.instance.surface(handle)
	if err != nil {
		return false, err
	}
	supported, _, err := a.instance.surfaceExtension.GetPhysicalDeviceSurfaceSupport(surface, a.device, queueFamily)
	return supported, err
}

func (a *Adapter) SurfaceCapabilities(handle gpu.Surface) (*khr_surface.SurfaceCapabilities, error) {
	surface, err := a.instance.surface(handle)
	if err != nil {
		return nil, err
	}
	caps, _, err := a.instance.surfaceExtension.GetPhysicalDeviceSurfaceCapabilities(surface, a.device)
	return caps, err
}

func (a *Adapter) SurfaceFormats(handle gpu.Surface) ([]khr_surface.SurfaceFormat, error) {
	surface, err := a.instance.surface(handle)
	if err != nil {
		return nil, err
	}
	formats, _, err := a.instance.surfaceExtension.GetPhysicalDeviceSurfaceFormats(surface, a.device)
	return formats, err
}

func (a *Adapter) SurfacePresentModes(handle gpu.Surface) ([]khr_surface.PresentMode, error) {
	surface, err := a.instance.surface(handle)
	if err != nil {
		return nil, err
	}
	modes, _, err := a.instance.surfaceExtension.GetPhysicalDeviceSurfacePresentModes(surface, a.device)
	return modes, err
}

// CreateDevice creates a logical device with one queue per requested family.
func (a *Adapter) CreateDevice(info gpu.DeviceCreateInfo) (gpu.Device, error) {
	var queues []core1_0.DeviceQueueCreateInfo
	for _, family := range info.QueueFamilies {
		queues = append(queues, core1_0.DeviceQueueCreateInfo{
			QueueFamilyIndex: family,
			QueuePriorities:  []float32{1.0},
		})
	}

	device, _, err := a.instance.instanceDriver.CreateDevice(a.device, nil, core1_0.DeviceCreateInfo{
		QueueCreateInfos:      queues,
		EnabledExtensionNames: info.Extensions,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "create device on %s", a.info.Name)
	}

	driver, err := a.instance.instanceDriver.BuildDeviceDriver(device)
	if err != nil {
		return nil, errors.Wrapf(err, "load device driver for %s", a.info.Name)
	}
	return newDevice(a, driver), nil
}

var _ gpu.Adapter = (*Adapter)(nil)
