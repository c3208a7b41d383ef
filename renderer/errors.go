package renderer

import (
	"github.com/cockroachdb/errors"
)

// Category markers. Every error returned by this package is marked with one
// of them so callers can use errors.Is(err, ErrDevice).
var (
	ErrDevice    = errors.New("device error")
	ErrSwapchain = errors.New("swapchain error")
)

var (
	ErrNoSuitableDevice     = errors.New("no suitable physical device")
	ErrNoSuitableQueue      = errors.New("no queue family supports both graphics and present")
	ErrNoMatchingMemoryType = errors.New("no matching memory type")
	ErrNoDepthFormat        = errors.New("no supported depth format")
	ErrNoSurfaceFormats     = errors.New("surface reports no formats")
	ErrFenceTimeout         = errors.New("fence wait timed out")
	ErrNotInitialized       = errors.New("not initialized")
)

func deviceError(kind error, format string, args ...interface{}) error {
	return errors.Mark(errors.Wrapf(kind, format, args...), ErrDevice)
}

func swapchainError(kind error, format string, args ...interface{}) error {
	return errors.Mark(errors.Wrapf(kind, format, args...), ErrSwapchain)
}

// wrapDevice annotates a driver failure. It returns nil when err is nil.
func wrapDevice(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrapf(err, format, args...), ErrDevice)
}

func wrapSwapchain(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrapf(err, format, args...), ErrSwapchain)
}
