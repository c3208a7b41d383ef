package renderer

import (
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/vkngwrapper/pbr/gpu"
)

// Buffer is a buffer bound to memory allocated for it alone.
type Buffer struct {
	Handle gpu.Buffer
	Memory gpu.DeviceMemory
	Size   int

	device *Device
}

// CreateBuffer creates a buffer, backs it with memory of the requested
// properties and, when data is non-nil, copies data into it. The copy is
// flushed when the chosen memory type is not host coherent.
func (d *Device) CreateBuffer(usage core1_0.BufferUsageFlags, properties core1_0.MemoryPropertyFlags, size int, data []byte) (*Buffer, error) {
	if data != nil && len(data) > size {
		size = len(data)
	}

	handle, err := d.Driver.CreateBuffer(gpu.BufferCreateInfo{Size: size, Usage: usage})
	if err != nil {
		return nil, wrapDevice(err, "create buffer of %d bytes", size)
	}
	b := &Buffer{Handle: handle, Size: size, device: d}

	reqs := d.Driver.BufferMemoryRequirements(handle)
	memoryType, err := d.FindMemoryType(reqs.MemoryTypeBits, properties)
	if err != nil {
		b.Destroy()
		return nil, err
	}

	b.Memory, err = d.Driver.AllocateMemory(reqs.Size, memoryType)
	if err != nil {
		b.Destroy()
		return nil, wrapDevice(err, "allocate %d bytes of buffer memory", reqs.Size)
	}

	if data != nil {
		coherent := d.Info.MemoryTypes[memoryType].PropertyFlags&core1_0.MemoryPropertyHostCoherent != 0
		err = b.write(data, !coherent)
		if err != nil {
			b.Destroy()
			return nil, err
		}
	}

	err = d.Driver.BindBufferMemory(handle, b.Memory)
	if err != nil {
		b.Destroy()
		return nil, wrapDevice(err, "bind buffer memory")
	}

	return b, nil
}

func (b *Buffer) write(data []byte, flush bool) error {
	driver := b.device.Driver
	mapped, err := driver.MapMemory(b.Memory, len(data))
	if err != nil {
		return wrapDevice(err, "map buffer memory")
	}
	copy(mapped, data)

	if flush {
		err = driver.FlushMemory(b.Memory)
	}
	driver.UnmapMemory(b.Memory)
	return wrapDevice(err, "flush buffer memory")
}

func (b *Buffer) Destroy() {
	if b == nil || b.device == nil {
		return
	}
	if b.Handle.Initialized() {
		b.device.Driver.DestroyBuffer(b.Handle)
		b.Handle = 0
	}
	if b.Memory.Initialized() {
		b.device.Driver.FreeMemory(b.Memory)
		b.Memory = 0
	}
}
