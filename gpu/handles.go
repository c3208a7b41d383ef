package gpu

// Handles are opaque identifiers issued by a driver. The zero value of every
// handle type is the null handle.

type Surface uint64

func (h Surface) Initialized() bool { return h != 0 }

type Swapchain uint64

func (h Swapchain) Initialized() bool { return h != 0 }

type Queue uint64

func (h Queue) Initialized() bool { return h != 0 }

type CommandPool uint64

func (h CommandPool) Initialized() bool { return h != 0 }

type CommandBuffer uint64

func (h CommandBuffer) Initialized() bool { return h != 0 }

type Fence uint64

func (h Fence) Initialized() bool { return h != 0 }

type Semaphore uint64

func (h Semaphore) Initialized() bool { return h != 0 }

type Image uint64

func (h Image) Initialized() bool { return h != 0 }

type ImageView uint64

func (h ImageView) Initialized() bool { return h != 0 }

type DeviceMemory uint64

func (h DeviceMemory) Initialized() bool { return h != 0 }

type Buffer uint64

func (h Buffer) Initialized() bool { return h != 0 }

type RenderPass uint64

func (h RenderPass) Initialized() bool { return h != 0 }

type Framebuffer uint64

func (h Framebuffer) Initialized() bool { return h != 0 }
