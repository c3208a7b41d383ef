package renderer

import (
	"github.com/vkngwrapper/pbr/gpu"
)

// FramePhase is where a frame slot sits in the acquire/submit/present cycle.
type FramePhase int

const (
	PhaseIdle FramePhase = iota
	PhaseAcquiring
	PhaseRecording
	PhaseSubmitted
	PhasePresenting
)

func (p FramePhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAcquiring:
		return "acquiring"
	case PhaseRecording:
		return "recording"
	case PhaseSubmitted:
		return "submitted"
	case PhasePresenting:
		return "presenting"
	}
	return "unknown"
}

// FrameSync holds one fence per swapchain image and the two semaphores shared
// by every frame. Reusing the semaphores across slots is only safe because a
// slot's fence is waited before the slot is submitted again.
type FrameSync struct {
	ImageAvailable gpu.Semaphore
	RenderComplete gpu.Semaphore
	Fences         []gpu.Fence

	// OnPhase, when set, sees every phase change of every slot.
	OnPhase func(slot int, phase FramePhase)

	phases []FramePhase
	sync   gpu.Sync
}

func NewFrameSync(sync gpu.Sync, imageCount int) (*FrameSync, error) {
	f := &FrameSync{sync: sync}

	var err error
	f.ImageAvailable, err = sync.CreateSemaphore()
	if err != nil {
		return nil, wrapDevice(err, "create image-available semaphore")
	}
	f.RenderComplete, err = sync.CreateSemaphore()
	if err != nil {
		f.Destroy()
		return nil, wrapDevice(err, "create render-complete semaphore")
	}

	err = f.Resize(imageCount)
	if err != nil {
		f.Destroy()
		return nil, err
	}
	return f, nil
}

// Resize grows or shrinks the fence ring to imageCount. New fences start
// signaled. The device must be idle when the ring shrinks.
func (f *FrameSync) Resize(imageCount int) error {
	for len(f.Fences) > imageCount {
		last := len(f.Fences) - 1
		f.sync.DestroyFence(f.Fences[last])
		f.Fences = f.Fences[:last]
	}
	for len(f.Fences) < imageCount {
		fence, err := f.sync.CreateFence(true)
		if err != nil {
			return wrapDevice(err, "create fence for slot %d", len(f.Fences))
		}
		f.Fences = append(f.Fences, fence)
	}

	f.phases = make([]FramePhase, imageCount)
	return nil
}

// WaitSlot blocks until the slot's previous submission has finished and
// resets its fence for the next one.
func (f *FrameSync) WaitSlot(slot int) error {
	if slot < 0 || slot >= len(f.Fences) {
		return deviceError(ErrNotInitialized, "frame slot %d outside %d fences", slot, len(f.Fences))
	}

	fence := f.Fences[slot]
	err := waitFence(f.sync, fence, SubmitTimeout)
	if err != nil {
		return err
	}
	return wrapDevice(f.sync.ResetFences(fence), "reset fence of slot %d", slot)
}

func (f *FrameSync) Fence(slot int) gpu.Fence {
	return f.Fences[slot]
}

func (f *FrameSync) Phase(slot int) FramePhase {
	if slot < 0 || slot >= len(f.phases) {
		return PhaseIdle
	}
	return f.phases[slot]
}

func (f *FrameSync) setPhase(slot int, phase FramePhase) {
	if slot < 0 || slot >= len(f.phases) {
		return
	}
	f.phases[slot] = phase
	if f.OnPhase != nil {
		f.OnPhase(slot, phase)
	}
}

func (f *FrameSync) Destroy() {
	if f == nil {
		return
	}
	for _, fence := range f.Fences {
		f.sync.DestroyFence(fence)
	}
	f.Fences = nil
	if f.ImageAvailable.Initialized() {
		f.sync.DestroySemaphore(f.ImageAvailable)
		f.ImageAvailable = 0
	}
	if f.RenderComplete.Initialized() {
		f.sync.DestroySemaphore(f.RenderComplete)
		f.RenderComplete = 0
	}
}
