// Package vkng implements the gpu driver interfaces on top of vkngwrapper and
// SDL2.
package vkng

import (
	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_portability_enumeration"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	vkng_sdl2 "github.com/vkngwrapper/integrations/sdl2/v3"

	"github.com/vkngwrapper/pbr/gpu"
)

var validationLayers = []string{"VK_LAYER_KHRONOS_validation"}

type InstanceOptions struct {
	AppName    string
	Validation bool
	// Verbose also forwards info and verbose layer messages.
	Verbose bool
}

// Instance owns the Vulkan instance, the debug messenger and every surface
// created for the window it was built with.
type Instance struct {
	globalDriver   core1_0.GlobalDriver
	instanceDriver core1_0.CoreInstanceDriver

	debugDriver    ext_debug_utils.ExtensionDriver
	debugMessenger ext_debug_utils.DebugUtilsMessenger
	messenger      *debugMessenger

	surfaceExtension khr_surface.ExtensionDriver
	surfaces         registry[khr_surface.Surface]
	ids              handles

	window *sdl.Window
	log    logrus.FieldLogger
}

// NewInstance loads the Vulkan loader through SDL and creates an instance
// with the extensions the window needs.
func NewInstance(window *sdl.Window, opts InstanceOptions, logger logrus.FieldLogger) (*Instance, error) {
	i := &Instance{
		window:    window,
		messenger: &debugMessenger{log: logger.WithField("source", "validation")},
		log:       logger,
	}
	i.surfaces = newRegistry[khr_surface.Surface](&i.ids)

	var err error
	i.globalDriver, err = core.CreateDriverFromProcAddr(sdl.VulkanGetVkGetInstanceProcAddr())
	if err != nil {
		return nil, errors.Wrap(err, "load vulkan")
	}

	createInfo := core1_0.InstanceCreateInfo{
		ApplicationName:    opts.AppName,
		ApplicationVersion: common.CreateVersion(1, 0, 0),
		EngineName:         "vkpbr",
		EngineVersion:      common.CreateVersion(1, 0, 0),
		APIVersion:         common.Vulkan1_2,
	}

	extensions, _, err := i.globalDriver.AvailableExtensions()
	if err != nil {
		return nil, errors.Wrap(err, "enumerate instance extensions")
	}

	for _, ext := range window.VulkanGetInstanceExtensions() {
		if _, ok := extensions[ext]; !ok {
			return nil, errors.Errorf("window needs missing instance extension %s", ext)
		}
		createInfo.EnabledExtensionNames = append(createInfo.EnabledExtensionNames, ext)
	}

	if _, ok := extensions[khr_portability_enumeration.ExtensionName]; ok {
		createInfo.EnabledExtensionNames = append(createInfo.EnabledExtensionNames, khr_portability_enumeration.ExtensionName)
		createInfo.Flags |= khr_portability_enumeration.InstanceCreateEnumeratePortability
	}

	if opts.Validation {
		layers, _, err := i.globalDriver.AvailableLayers()
		if err != nil {
			return nil, errors.Wrap(err, "enumerate instance layers")
		}
		for _, layer := range validationLayers {
			if _, ok := layers[layer]; !ok {
				return nil, errors.Errorf("validation layer %s not available, install the Vulkan SDK", layer)
			}
			createInfo.EnabledLayerNames = append(createInfo.EnabledLayerNames, layer)
		}
		createInfo.EnabledExtensionNames = append(createInfo.EnabledExtensionNames, ext_debug_utils.ExtensionName)
		createInfo.Next = i.messenger.createInfo(opts.Verbose)
	}

	instance, _, err := i.globalDriver.CreateInstance(nil, createInfo)
	if err != nil {
		return nil, errors.Wrap(err, "create instance")
	}
	i.instanceDriver, err = i.globalDriver.BuildInstanceDriver(instance)
	if err != nil {
		return nil, errors.Wrap(err, "load instance driver")
	}

	if opts.Validation {
		i.debugDriver = ext_debug_utils.CreateExtensionDriverFromCoreDriver(i.instanceDriver)
		i.debugMessenger, _, err = i.debugDriver.CreateDebugUtilsMessenger(nil, i.messenger.createInfo(opts.Verbose))
		if err != nil {
			i.Destroy()
			return nil, errors.Wrap(err, "create debug messenger")
		}
	}

	i.surfaceExtension = khr_surface.CreateExtensionDriverFromCoreDriver(i.instanceDriver)

	logger.WithFields(logrus.Fields{
		"validation": opts.Validation,
		"extensions": len(createInfo.EnabledExtensionNames),
	}).Debug("instance created")
	return i, nil
}

// CreateSurface creates a surface for the instance's window.
func (i *Instance) CreateSurface() (gpu.Surface, error) {
	surface, err := vkng_sdl2.CreateSurface(i.instanceDriver.Instance(), i.surfaceExtension, i.window)
	if err != nil {
		return 0, errors.Wrap(err, "create window surface")
	}
	return gpu.Surface(i.surfaces.add(surface)), nil
}

func (i *Instance) surface(handle gpu.Surface) (khr_surface.Surface, error) {
	return i.surfaces.get(uint64(handle))
}

func (i *Instance) DestroySurface(handle gpu.Surface) {
	surface, ok := i.surfaces.take(uint64(handle))
	if ok {
		i.surfaceExtension.DestroySurface(surface, nil)
	}
}

// Adapters lists the physical devices of the instance.
func (i *Instance) Adapters() ([]gpu.Adapter, error) {
	devices, _, err := i.instanceDriver.EnumeratePhysicalDevices()
	if err != nil {
		return nil, errors.Wrap(err, "enumerate physical devices")
	}

	adapters := make([]gpu.Adapter, 0, len(devices))
	for _, device := range devices {
		adapter, err := newAdapter(i, device)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, adapter)
	}
	return adapters, nil
}

// Destroy releases leftover surfaces, the messenger and the instance.
func (i *Instance) Destroy() {
	if i.instanceDriver == nil {
		return
	}
	for id := range i.surfaces.items {
		i.DestroySurface(gpu.Surface(id))
	}
	if i.debugMessenger.Initialized() {
		i.debugDriver.DestroyDebugUtilsMessenger(i.debugMessenger, nil)
	}
	i.instanceDriver.DestroyInstance(nil)
	i.instanceDriver = nil
}

var (
	_ gpu.Instance      = (*Instance)(nil)
	_ gpu.SurfaceSource = (*Instance)(nil)
)
