package renderer

import (
	"github.com/sirupsen/logrus"
)

// SizeFunc reports the current drawable size of the window.
type SizeFunc func() (width, height int)

// ResizeCoordinator rebuilds the swapchain and everything sized after it.
// Notifications only mark a rebuild as pending; the render loop applies it
// between frames, so no frame is submitted while a rebuild runs.
type ResizeCoordinator struct {
	renderer *Renderer
	size     SizeFunc

	pending  bool
	width    int
	height   int
	rebuilds int
}

// SetSizeFunc sets where Recover reads the window size from. Without one it
// reuses the last notified size.
func (c *ResizeCoordinator) SetSizeFunc(size SizeFunc) {
	c.size = size
}

// OnResize records a new window size and schedules a rebuild.
func (c *ResizeCoordinator) OnResize(width, height int) {
	c.width, c.height = width, height
	c.pending = true
}

func (c *ResizeCoordinator) Pending() bool {
	return c.pending
}

// Rebuilds returns how many rebuilds have completed.
func (c *ResizeCoordinator) Rebuilds() int {
	return c.rebuilds
}

// Recover rebuilds after an acquire or present reported status.
func (c *ResizeCoordinator) Recover(status PresentStatus) error {
	if c.size != nil {
		c.width, c.height = c.size()
	}
	c.renderer.log.WithFields(logrus.Fields{
		"status": status,
		"width":  c.width,
		"height": c.height,
	}).Debug("swapchain needs rebuild")
	return c.Rebuild()
}

// Rebuild waits for the device to go idle, recreates the swapchain, the depth
// target, the framebuffers and the command buffers, re-records them and
// waits idle again. A window without area only pauses rendering.
func (c *ResizeCoordinator) Rebuild() error {
	r := c.renderer
	c.pending = false
	r.ready = false

	if c.width <= 0 || c.height <= 0 {
		r.log.Debug("window has no area, rendering paused")
		return nil
	}

	driver := r.Device.Driver
	err := driver.WaitIdle()
	if err != nil {
		return wrapDevice(err, "wait idle before rebuild")
	}

	err = r.Swapchain.Create(c.width, c.height)
	if err != nil {
		return err
	}
	count := r.Swapchain.ImageCount()

	r.destroyTargets()
	err = r.buildTargets()
	if err != nil {
		return err
	}

	r.Commands.Free()
	r.Commands, err = AllocateCommandBuffers(r.Device, count)
	if err != nil {
		return err
	}

	if len(r.Sync.Fences) != count {
		err = r.Sync.Resize(count)
		if err != nil {
			return err
		}
	}

	err = r.Commands.RecordAll(r.target())
	if err != nil {
		return err
	}

	err = driver.WaitIdle()
	if err != nil {
		return wrapDevice(err, "wait idle after rebuild")
	}

	c.rebuilds++
	r.ready = true
	r.log.WithFields(logrus.Fields{
		"swapchain": r.Swapchain.Generation,
		"extent":    r.Swapchain.Extent,
		"images":    count,
	}).Info("swapchain rebuilt")
	return nil
}
