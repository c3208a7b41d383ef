package gpu

import (
	"github.com/google/uuid"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// QueueFamily describes one queue family of a physical device.
type QueueFamily struct {
	Flags core1_0.QueueFlags
	Count int
}

// MemoryType describes one entry of a physical device's memory type list.
type MemoryType struct {
	PropertyFlags core1_0.MemoryPropertyFlags
	HeapIndex     int
}

// PhysicalDeviceInfo is an immutable snapshot of an adapter, queried once
// when the adapter is enumerated.
type PhysicalDeviceInfo struct {
	Name          string
	Type          core1_0.PhysicalDeviceType
	APIVersion    common.APIVersion
	CacheUUID     uuid.UUID
	QueueFamilies []QueueFamily
	MemoryTypes   []MemoryType
	Extensions    map[string]struct{}
}

func (i *PhysicalDeviceInfo) HasExtension(name string) bool {
	_, ok := i.Extensions[name]
	return ok
}

type FormatProperties struct {
	LinearTilingFeatures  core1_0.FormatFeatureFlags
	OptimalTilingFeatures core1_0.FormatFeatureFlags
}

type MemoryRequirements struct {
	Size           int
	Alignment      int
	MemoryTypeBits uint32
}
